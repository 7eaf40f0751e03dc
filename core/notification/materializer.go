package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/classroom"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
)

// scheduling modes
const (
	ModeSession   = "session"
	ModeTimetable = "timetable"
)

// reasons a candidate is not persisted
const (
	SkipPast      = "past"
	SkipDuplicate = "duplicate"
	SkipConflict  = "conflict"
	SkipCancelled = "cancelled" // the slot's session was cancelled
)

// Recorder receives scheduling metrics.
type Recorder interface {
	Scheduled(mode string, n int)
	Skipped(mode, reason string)
	Cancelled(n int64)
	ObservePass(mode string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) Scheduled(string, int)             {}
func (nopRecorder) Skipped(string, string)            {}
func (nopRecorder) Cancelled(int64)                   {}
func (nopRecorder) ObservePass(string, time.Duration) {}

type (
	MaterializerDeps struct {
		Repo       Repository
		Rules      RuleRepository
		Classes    classroom.Repository
		Timetables timetable.Repository
		Settings   core.SettingsProvider
		Logger     core.Logger
		Metrics    Recorder // optional
	}

	// Materializer turns session and timetable occurrences into pending scheduled notifications.
	// Calls for different classes share no state and may run in parallel.
	Materializer struct {
		repo       Repository
		rules      RuleRepository
		classes    classroom.Repository
		timetables timetable.Repository
		settings   core.SettingsProvider
		logger     core.Logger
		metrics    Recorder
	}

	// SweepResult summarizes one pass over every active timetable.
	SweepResult struct {
		Classes int `json:"classes"`
		Created int `json:"created"`
		Failed  int `json:"failed"`
	}

	candidate struct {
		classID   string
		sessionID null.String
		date      time.Time
		tod       timetable.TimeOfDay
		fireAt    time.Time
		rule      Rule
	}

	// audience memoizes the roster snapshot of one class for the duration of a pass.
	audience struct {
		classes  classroom.Repository
		classID  string
		loaded   bool
		students int
		teacher  bool
	}
)

func NewMaterializer(deps MaterializerDeps) *Materializer {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Repo, "Repo"),
		vala.IsNotNil(deps.Rules, "Rules"),
		vala.IsNotNil(deps.Classes, "Classes"),
		vala.IsNotNil(deps.Timetables, "Timetables"),
		vala.IsNotNil(deps.Settings, "Settings"),
		vala.IsNotNil(deps.Logger, "Logger"),
	).CheckAndPanic()

	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Materializer{
		repo:       deps.Repo,
		rules:      deps.Rules,
		classes:    deps.Classes,
		timetables: deps.Timetables,
		settings:   deps.Settings,
		logger:     deps.Logger,
		metrics:    metrics,
	}
}

func (a *audience) count(ctx context.Context, rule Rule) (int, error) {
	if !a.loaded {
		var err error
		if a.students, err = a.classes.CountReachableStudents(ctx, a.classID); err != nil {
			return 0, errors.Wrap(err, "counting reachable students")
		}
		if a.teacher, err = a.classes.TeacherReachable(ctx, a.classID); err != nil {
			return 0, errors.Wrap(err, "checking teacher reachability")
		}
		a.loaded = true
	}

	var n int
	if rule.SendToStudents {
		n += a.students
	}
	if rule.SendToTeacher && a.teacher {
		n++
	}
	return n, nil
}

// ScheduleSession applies every enabled reminder (start - minutes_before) and followup
// ((completed_at or start) + minutes_after) rule to one session.
func (m *Materializer) ScheduleSession(ctx context.Context, sess classroom.Session) ([]ScheduledNotification, error) {
	defer m.observe(ModeSession, time.Now())

	if sess.Status == classroom.SessionCancelled {
		return nil, nil
	}
	if err := m.attach(ctx, sess); err != nil {
		return nil, err
	}
	rules, err := m.rules.QueryRules(ctx, sess.ClassID, true)
	if err != nil {
		return nil, errors.Wrap(err, "querying enabled rules")
	}
	if len(rules) == 0 {
		return nil, nil
	}
	loc, err := core.Location(ctx, m.settings)
	if err != nil {
		return nil, err
	}

	start := sess.StartsAt(loc)
	followupRef := start
	if sess.CompletedAt.Valid {
		followupRef = sess.CompletedAt.Time
	}

	aud := &audience{classes: m.classes, classID: sess.ClassID}
	var created []ScheduledNotification
	for _, rule := range rules {
		ref := start
		if rule.Type == RuleFollowup {
			ref = followupRef
		}
		sn, ok, err := m.materialize(ctx, ModeSession, aud, candidate{
			classID:   sess.ClassID,
			sessionID: null.StringFrom(sess.ID),
			date:      sess.Date,
			tod:       sess.StartTime,
			fireAt:    rule.FireAt(ref),
			rule:      rule,
		})
		if err != nil {
			return created, err
		}
		if ok {
			created = append(created, sn)
		}
	}
	m.metrics.Scheduled(ModeSession, len(created))
	return created, nil
}

// ScheduleSessionByID loads the session then schedules it.
func (m *Materializer) ScheduleSessionByID(ctx context.Context, sessionID string) ([]ScheduledNotification, error) {
	sess, err := m.classes.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return m.ScheduleSession(ctx, sess)
}

// ScheduleTimetable applies every enabled reminder rule of the class to the timetable slots
// of the next lookahead days. Followups need a completed session and are never derived from slots.
func (m *Materializer) ScheduleTimetable(ctx context.Context, tt timetable.Timetable, lookahead int) ([]ScheduledNotification, error) {
	defer m.observe(ModeTimetable, time.Now())

	if lookahead < 0 {
		return nil, timetable.ErrNegativeLookahead
	}
	loc, err := core.Location(ctx, m.settings)
	if err != nil {
		return nil, err
	}
	slots, err := timetable.Generate(tt, lookahead, core.NowFunc(), loc)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, nil
	}

	rules, err := m.rules.QueryRules(ctx, tt.ClassID, true)
	if err != nil {
		return nil, errors.Wrap(err, "querying enabled rules")
	}
	reminders := rules[:0:0]
	for _, rule := range rules {
		if rule.Type == RuleReminder {
			reminders = append(reminders, rule)
		}
	}
	if len(reminders) == 0 {
		return nil, nil
	}

	aud := &audience{classes: m.classes, classID: tt.ClassID}
	var created []ScheduledNotification
	for _, slot := range slots {
		var sessionID null.String
		sess, err := m.classes.SessionAt(ctx, tt.ClassID, slot.Date, slot.Time)
		switch {
		case err == nil && sess.Status == classroom.SessionCancelled:
			for range reminders {
				m.metrics.Skipped(ModeTimetable, SkipCancelled)
			}
			continue
		case err == nil:
			sessionID = null.StringFrom(sess.ID)
		case errors.Cause(err) != classroom.ErrSessionNotFound:
			return created, errors.Wrap(err, "looking up slot session")
		}

		for _, rule := range reminders {
			sn, ok, err := m.materialize(ctx, ModeTimetable, aud, candidate{
				classID:   tt.ClassID,
				sessionID: sessionID,
				date:      slot.Date,
				tod:       slot.Time,
				fireAt:    rule.FireAt(slot.At),
				rule:      rule,
			})
			if err != nil {
				return created, err
			}
			if ok {
				created = append(created, sn)
			}
		}
	}
	m.metrics.Scheduled(ModeTimetable, len(created))
	return created, nil
}

// ScheduleClass runs a timetable pass for one class with the configured lookahead.
func (m *Materializer) ScheduleClass(ctx context.Context, classID string) ([]ScheduledNotification, error) {
	tt, err := m.timetables.GetTimetableByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	lookahead, err := core.LookaheadDays(ctx, m.settings)
	if err != nil {
		return nil, err
	}
	return m.ScheduleTimetable(ctx, tt, lookahead)
}

// CancelSession withdraws the pending and processing rows of a session, including those a timetable
// pass created for the same occurrence. Sent and failed rows are kept.
func (m *Materializer) CancelSession(ctx context.Context, sessionID string) (int64, error) {
	sess, err := m.classes.GetSession(ctx, sessionID)
	switch {
	case err == nil:
		if err = m.attach(ctx, sess); err != nil {
			return 0, err
		}
	case errors.Cause(err) != classroom.ErrSessionNotFound:
		return 0, errors.Wrap(err, "getting session")
	}

	n, err := m.repo.CancelActiveBySession(ctx, sessionID, core.NowFunc().UTC())
	if err != nil {
		return 0, errors.Wrap(err, "cancelling session notifications")
	}
	m.metrics.Cancelled(n)
	return n, nil
}

// attach hands the rows a timetable pass made for the session's occurrence over to the session.
func (m *Materializer) attach(ctx context.Context, sess classroom.Session) error {
	_, err := m.repo.AttachSession(ctx, sess.ClassID, sess.Date, sess.StartTime, sess.ID, core.NowFunc().UTC())
	return errors.Wrap(err, "attaching session")
}

// Sweep runs a timetable pass for every active timetable. A failing class is logged and skipped,
// except for shutdown errors, which end the sweep.
func (m *Materializer) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	timetables, err := m.timetables.QueryActiveTimetables(ctx)
	if err != nil {
		return res, errors.Wrap(err, "querying active timetables")
	}
	lookahead, err := core.LookaheadDays(ctx, m.settings)
	if err != nil {
		return res, err
	}

	for _, tt := range timetables {
		if err = ctx.Err(); err != nil {
			return res, errors.Wrap(err, "sweep interrupted")
		}
		res.Classes++
		created, err := m.ScheduleTimetable(ctx, tt, lookahead)
		res.Created += len(created)
		if core.IsShutdown(err) {
			res.Failed++
			return res, err
		}
		if err != nil {
			res.Failed++
			m.logger.Error(fmt.Sprintf("scheduling class %s", tt.ClassID), err)
		}
	}
	return res, nil
}

// materialize persists one (occurrence, rule) pair unless its fire time is not in the future
// or an active row already has the same (class, fire time, rule).
func (m *Materializer) materialize(ctx context.Context, mode string, aud *audience, c candidate) (ScheduledNotification, bool, error) {
	now := core.NowFunc()
	if !c.fireAt.After(now) {
		m.metrics.Skipped(mode, SkipPast)
		return ScheduledNotification{}, false, nil
	}
	fireAt := c.fireAt.UTC()

	exists, err := m.repo.ExistsActive(ctx, c.classID, fireAt, c.rule.ID)
	if err != nil {
		return ScheduledNotification{}, false, errors.Wrap(err, "checking existing notification")
	}
	if exists {
		m.metrics.Skipped(mode, SkipDuplicate)
		return ScheduledNotification{}, false, nil
	}

	recipients, err := aud.count(ctx, c.rule)
	if err != nil {
		return ScheduledNotification{}, false, err
	}

	row, created, err := m.repo.InsertIfAbsent(ctx, ScheduledNotification{
		ClassID:        c.classID,
		SessionID:      c.sessionID,
		OccurrenceDate: time.Date(c.date.Year(), c.date.Month(), c.date.Day(), 0, 0, 0, 0, time.UTC),
		OccurrenceTime: c.tod,
		RuleID:         c.rule.ID,
		Status:         StatusPending,
		ScheduledAt:    fireAt,
		RecipientCount: recipients,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	})
	if err != nil {
		return ScheduledNotification{}, false, errors.Wrap(err, "inserting notification")
	}
	if !created {
		m.metrics.Skipped(mode, SkipConflict)
	}
	return row, created, nil
}

func (m *Materializer) observe(mode string, start time.Time) {
	m.metrics.ObservePass(mode, time.Since(start))
}
