package notification

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
)

// Rule types
type RuleType string

const (
	RuleReminder RuleType = "reminder" // fires minutes_before the session start
	RuleFollowup RuleType = "followup" // fires minutes_after the session completion
)

// Statuses
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusCancelled  Status = "cancelled"
	StatusFailed     Status = "failed"
)

// ActiveStatuses are the statuses covered by the de-duplication key.
var ActiveStatuses = []Status{StatusPending, StatusProcessing}

func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusProcessing
}

// Rule is a per-class reminder or followup policy.
type Rule struct {
	ID             string    `json:"id"`
	ClassID        string    `json:"class_id"`
	Name           string    `json:"name"`
	Type           RuleType  `json:"type"`
	IsEnabled      bool      `json:"is_enabled"`
	SendToStudents bool      `json:"send_to_students"`
	SendToTeacher  bool      `json:"send_to_teacher"`
	MinutesBefore  null.Int  `json:"minutes_before"`
	MinutesAfter   null.Int  `json:"minutes_after"`
	Template       string    `json:"template"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// FireAt applies the rule offset to the occurrence: start - minutes_before for reminders,
// reference + minutes_after for followups.
func (r Rule) FireAt(reference time.Time) time.Time {
	switch r.Type {
	case RuleReminder:
		return reference.Add(-time.Duration(r.MinutesBefore.Int) * time.Minute)
	case RuleFollowup:
		return reference.Add(time.Duration(r.MinutesAfter.Int) * time.Minute)
	}
	return reference
}

// ScheduledNotification is one rule applied to one concrete occurrence.
type ScheduledNotification struct {
	ID             string              `json:"id" db:"id"`
	ClassID        string              `json:"class_id" db:"class_id"`
	SessionID      null.String         `json:"session_id" db:"session_id"` // null when derived from a timetable slot
	OccurrenceDate time.Time           `json:"occurrence_date" db:"occurrence_date"`
	OccurrenceTime timetable.TimeOfDay `json:"occurrence_time" db:"occurrence_time"`
	RuleID         string              `json:"rule_id" db:"rule_id"`
	Status         Status              `json:"status" db:"status"`
	ScheduledAt    time.Time           `json:"scheduled_at" db:"scheduled_at"` // UTC
	RecipientCount int                 `json:"recipient_count" db:"recipient_count"`
	CreatedAt      time.Time           `json:"created_at" db:"created_at"` // UTC
	UpdatedAt      time.Time           `json:"updated_at" db:"updated_at"` // UTC
}

// NewRule contains the information needed to create a Rule.
type NewRule struct {
	Name           string   `json:"name" validate:"required,notblank"`
	Type           RuleType `json:"type" validate:"required,ruletype"`
	IsEnabled      *bool    `json:"is_enabled"`
	SendToStudents bool     `json:"send_to_students"`
	SendToTeacher  bool     `json:"send_to_teacher"`
	MinutesBefore  null.Int `json:"minutes_before"`
	MinutesAfter   null.Int `json:"minutes_after"`
	Template       string   `json:"template"`
}

func (nr *NewRule) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	nr.Type = RuleType(core.CleanString(string(nr.Type), true /* lower */))
	return validate.Struct(nr)
}

type QueryFilter struct {
	ClassID       string    `query:"class_id"`
	SessionID     string    `query:"session_id"`
	RuleID        string    `query:"rule_id"`
	Statuses      []Status  `query:"status"`
	ScheduledFrom time.Time `query:"scheduled_from"`
	ScheduledTo   time.Time `query:"scheduled_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.ClassID == "" && qf.SessionID == "" && qf.RuleID == "" && qf.Statuses == nil &&
		qf.ScheduledFrom.IsZero() && qf.ScheduledTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.ClassID = core.CleanString(qf.ClassID)
	qf.SessionID = core.CleanString(qf.SessionID)
	qf.RuleID = core.CleanString(qf.RuleID)
}

// Matches applies the filter to a single row; used by the in-memory repository.
func (qf *QueryFilter) Matches(sn ScheduledNotification) bool {
	if qf == nil {
		return true
	}
	if qf.ClassID != "" && sn.ClassID != qf.ClassID {
		return false
	}
	if qf.SessionID != "" && sn.SessionID.String != qf.SessionID {
		return false
	}
	if qf.RuleID != "" && sn.RuleID != qf.RuleID {
		return false
	}
	if len(qf.Statuses) > 0 {
		var found bool
		for _, st := range qf.Statuses {
			if sn.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !qf.ScheduledFrom.IsZero() && sn.ScheduledAt.Before(qf.ScheduledFrom) {
		return false
	}
	if !qf.ScheduledTo.IsZero() && sn.ScheduledAt.After(qf.ScheduledTo) {
		return false
	}
	return true
}
