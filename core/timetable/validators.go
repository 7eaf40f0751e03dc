package timetable

import (
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
)

var (
	recurrenceTag  = "recurrence"
	recurrenceText = "recurrence must be one of: weekly, bi_weekly, monthly"

	scheduleKeysTag  = "schedule_keys"
	scheduleKeysText = "schedule keys must be weekday names (weekly, bi_weekly) or week_1..week_5 (monthly)"

	scheduleTimesTag  = "schedule_times"
	scheduleTimesText = "schedule times must be formatted HH:MM or HH:MM:SS"

	endDateTag  = "end_after_start"
	endDateText = "end_date cannot be before start_date"
)

// InitValidators registers the timetable validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(recurrenceTag, recurrenceValidation)
	core.RegisterCustomTranslation(validate, translator, recurrenceTag, recurrenceText)

	validate.RegisterStructValidation(timetableStructValidation, NewTimetable{})
	core.RegisterCustomTranslation(validate, translator, scheduleKeysTag, scheduleKeysText)
	core.RegisterCustomTranslation(validate, translator, scheduleTimesTag, scheduleTimesText)
	core.RegisterCustomTranslation(validate, translator, endDateTag, endDateText)
}

// Custom Validators

func recurrenceValidation(fl validator.FieldLevel) bool {
	return Recurrence(fl.Field().String()).Valid()
}

// timetableStructValidation checks that the schedule shape matches the recurrence and that bounds are chronological.
func timetableStructValidation(sl validator.StructLevel) {
	nt, ok := sl.Current().Interface().(NewTimetable)
	if !ok {
		return
	}

	sched := nt.Schedule
	badKeys := sched.UnknownKeys()
	switch nt.Recurrence {
	case Monthly:
		for wd, times := range sched.Weekly {
			if len(times) > 0 {
				badKeys = append(badKeys, wd.String())
			}
		}
	case Weekly, BiWeekly:
		if len(sched.Monthly) > 0 {
			badKeys = append(badKeys, weekKeyPrefix+"N")
		}
	}
	if len(badKeys) > 0 {
		sl.ReportError(strings.Join(badKeys, ","), "schedule", "Schedule", scheduleKeysTag, "")
	}

	if bad := sched.MalformedTimes(); len(bad) > 0 {
		sl.ReportError(strings.Join(bad, ","), "schedule", "Schedule", scheduleTimesTag, "")
	}

	if nt.StartDate.Valid && nt.EndDate.Valid {
		start, end := dateIn(nt.StartDate.Time, time.UTC), dateIn(nt.EndDate.Time, time.UTC)
		if end.Before(start) {
			sl.ReportError(nt.EndDate.Time, "end_date", "EndDate", endDateTag, "")
		}
	}
}
