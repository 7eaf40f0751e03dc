package notification

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
)

var (
	ruleTypeTag  = "ruletype"
	ruleTypeText = "type must be one of: reminder, followup"

	minutesBeforeTag  = "reminder_offset"
	minutesBeforeText = "reminders need a positive minutes_before and no minutes_after"

	minutesAfterTag  = "followup_offset"
	minutesAfterText = "followups need a non-negative minutes_after and no minutes_before"

	audienceTag  = "audience"
	audienceText = "at least one of send_to_students or send_to_teacher is required"
)

// InitValidators registers the notification validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(ruleTypeTag, ruleTypeValidation)
	core.RegisterCustomTranslation(validate, translator, ruleTypeTag, ruleTypeText)

	validate.RegisterStructValidation(ruleStructValidation, NewRule{})
	core.RegisterCustomTranslation(validate, translator, minutesBeforeTag, minutesBeforeText)
	core.RegisterCustomTranslation(validate, translator, minutesAfterTag, minutesAfterText)
	core.RegisterCustomTranslation(validate, translator, audienceTag, audienceText)
}

// Custom Validators

func ruleTypeValidation(fl validator.FieldLevel) bool {
	switch RuleType(fl.Field().String()) {
	case RuleReminder, RuleFollowup:
		return true
	}
	return false
}

// ruleStructValidation makes sure exactly one offset applies, the one matching the rule type.
func ruleStructValidation(sl validator.StructLevel) {
	nr, ok := sl.Current().Interface().(NewRule)
	if !ok {
		return
	}

	switch nr.Type {
	case RuleReminder:
		if !nr.MinutesBefore.Valid || nr.MinutesBefore.Int <= 0 || nr.MinutesAfter.Valid {
			sl.ReportError(nr.MinutesBefore, "minutes_before", "MinutesBefore", minutesBeforeTag, "")
		}
	case RuleFollowup:
		if !nr.MinutesAfter.Valid || nr.MinutesAfter.Int < 0 || nr.MinutesBefore.Valid {
			sl.ReportError(nr.MinutesAfter, "minutes_after", "MinutesAfter", minutesAfterTag, "")
		}
	}

	if !nr.SendToStudents && !nr.SendToTeacher {
		sl.ReportError(nr.SendToStudents, "send_to_students", "SendToStudents", audienceTag, "")
	}
}
