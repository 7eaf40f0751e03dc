package notification

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/classroom"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
)

var (
	// errors
	ErrNotFound     = errors.New("scheduled notification not found")
	ErrRuleNotFound = errors.New("notification rule not found")
)

type (
	Repository interface {
		// ExistsActive reports whether a pending or processing row has this de-duplication key.
		ExistsActive(ctx context.Context, classID string, scheduledAt time.Time, ruleID string, exec ...core.DBExecutor) (bool, error)
		// InsertIfAbsent stores sn as pending unless an active row shares its de-duplication key,
		// in which case created is false and err is nil.
		InsertIfAbsent(ctx context.Context, sn ScheduledNotification, exec ...core.DBExecutor) (row ScheduledNotification, created bool, err error)
		// AttachSession links the active rows of the class occurrence (date, start) that have no session yet
		// to sessionID, and returns how many were linked.
		AttachSession(ctx context.Context, classID string, date time.Time, start timetable.TimeOfDay, sessionID string, at time.Time, exec ...core.DBExecutor) (int64, error)
		// CancelActiveBySession moves the pending and processing rows of the session to cancelled.
		CancelActiveBySession(ctx context.Context, sessionID string, at time.Time, exec ...core.DBExecutor) (int64, error)
		QueryScheduled(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]ScheduledNotification, error)
		GetScheduled(ctx context.Context, id string, exec ...core.DBExecutor) (ScheduledNotification, error)
	}

	RuleRepository interface {
		CreateRule(ctx context.Context, rule Rule) (Rule, error)
		GetRule(ctx context.Context, id string) (Rule, error)
		// QueryRules returns the rules of a class ordered by creation date.
		QueryRules(ctx context.Context, classID string, enabledOnly bool) ([]Rule, error)
		SetRuleEnabled(ctx context.Context, id string, enabled bool) (Rule, error)
	}

	// Service manages rules and exposes the scheduled rows to staff.
	Service struct {
		repo     Repository
		rules    RuleRepository
		classes  classroom.Repository
		settings core.SettingsProvider
		renderer *Renderer
	}
)

// Preview is a scheduled row with its rule template rendered for one recipient.
type Preview struct {
	Notification ScheduledNotification `json:"notification"`
	Rule         Rule                  `json:"rule"`
	Message      string                `json:"message"`
}

var orderingFields = []string{"scheduled_at", "created_at", "status"}

func NewService(
	repo Repository,
	rules RuleRepository,
	classes classroom.Repository,
	settings core.SettingsProvider,
	renderer *Renderer,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(rules, "rules"),
		vala.IsNotNil(classes, "classes"),
		vala.IsNotNil(settings, "settings"),
		vala.IsNotNil(renderer, "renderer"),
	).CheckAndPanic()

	return &Service{
		repo:     repo,
		rules:    rules,
		classes:  classes,
		settings: settings,
		renderer: renderer,
	}
}

func (svc *Service) CreateRule(ctx context.Context, validate *validator.Validate, classID string, nr NewRule) (Rule, error) {
	if err := nr.Validate(validate); err != nil {
		return Rule{}, err
	}
	if nr.Template != "" {
		if err := svc.renderer.Check(nr.Template); err != nil {
			return Rule{}, core.NewValidationError(err, core.FieldError{Field: "template", Error: err.Error()})
		}
	}
	if _, err := svc.classes.GetClass(ctx, classID); err != nil {
		return Rule{}, err
	}

	now := core.NowFunc().UTC()
	rule := Rule{
		ClassID:        classID,
		Name:           nr.Name,
		Type:           nr.Type,
		IsEnabled:      true,
		SendToStudents: nr.SendToStudents,
		SendToTeacher:  nr.SendToTeacher,
		MinutesBefore:  nr.MinutesBefore,
		MinutesAfter:   nr.MinutesAfter,
		Template:       nr.Template,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if nr.IsEnabled != nil {
		rule.IsEnabled = *nr.IsEnabled
	}
	return svc.rules.CreateRule(ctx, rule)
}

func (svc *Service) QueryRules(ctx context.Context, classID string) ([]Rule, error) {
	return svc.rules.QueryRules(ctx, classID, false)
}

func (svc *Service) SetRuleEnabled(ctx context.Context, id string, enabled bool) (Rule, error) {
	return svc.rules.SetRuleEnabled(ctx, id, enabled)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]ScheduledNotification, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryScheduled(ctx, filter, core.CleanOrdering(ordering, orderingFields...))
}

func (svc *Service) Get(ctx context.Context, id string) (ScheduledNotification, error) {
	return svc.repo.GetScheduled(ctx, id)
}

// Preview renders the rule template of a scheduled row for studentName, resolving every
// placeholder from the row's class, occurrence and rule.
func (svc *Service) Preview(ctx context.Context, id, studentName string) (Preview, error) {
	sn, err := svc.repo.GetScheduled(ctx, id)
	if err != nil {
		return Preview{}, err
	}
	rule, err := svc.rules.GetRule(ctx, sn.RuleID)
	if err != nil {
		return Preview{}, errors.Wrap(err, "getting rule")
	}
	class, err := svc.classes.GetClass(ctx, sn.ClassID)
	if err != nil {
		return Preview{}, errors.Wrap(err, "getting class")
	}
	progress, err := svc.classes.SessionProgress(ctx, sn.ClassID)
	if err != nil {
		return Preview{}, errors.Wrap(err, "getting session progress")
	}
	rate, err := svc.classes.AttendanceRate(ctx, sn.ClassID)
	if err != nil {
		return Preview{}, errors.Wrap(err, "getting attendance rate")
	}
	loc, err := core.Location(ctx, svc.settings)
	if err != nil {
		return Preview{}, err
	}

	msg, err := svc.renderer.Render(rule.ID, rule.Template, Placeholders{
		StudentName:       studentName,
		TeacherName:       class.TeacherName,
		ClassName:         class.Name,
		CourseName:        class.CourseName,
		SessionAt:         sn.OccurrenceTime.On(sn.OccurrenceDate, loc),
		Location:          class.Location,
		MeetingURL:        class.MeetingURL,
		GroupChatURL:      class.GroupChatURL,
		DurationMinutes:   class.DurationMinutes,
		RemainingSessions: progress.Remaining(),
		TotalSessions:     progress.Total,
		AttendanceRate:    rate,
	})
	if err != nil {
		return Preview{}, errors.Wrap(err, "rendering template")
	}
	return Preview{Notification: sn, Rule: rule, Message: msg}, nil
}
