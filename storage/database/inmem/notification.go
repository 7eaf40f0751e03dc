package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
)

type ruleRepository struct {
	db *DB
}

var _ notification.RuleRepository = (*ruleRepository)(nil)

func NewRuleRepository(db *DB) *ruleRepository {
	return &ruleRepository{db: db}
}

func (repo *ruleRepository) CreateRule(_ context.Context, rule notification.Rule) (notification.Rule, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	rule.ID = uuid.New().String()
	repo.db.rules[rule.ID] = &rule
	repo.db.ruleOrder = append(repo.db.ruleOrder, rule.ID)
	return rule, nil
}

func (repo *ruleRepository) GetRule(_ context.Context, id string) (notification.Rule, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rule, ok := repo.db.rules[id]; ok {
		return *rule, nil
	}
	return notification.Rule{}, notification.ErrRuleNotFound
}

func (repo *ruleRepository) QueryRules(_ context.Context, classID string, enabledOnly bool) ([]notification.Rule, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var rules []notification.Rule
	for _, id := range repo.db.ruleOrder {
		rule := repo.db.rules[id]
		if rule.ClassID != classID || (enabledOnly && !rule.IsEnabled) {
			continue
		}
		rules = append(rules, *rule)
	}
	return rules, nil
}

func (repo *ruleRepository) SetRuleEnabled(_ context.Context, id string, enabled bool) (notification.Rule, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	rule, ok := repo.db.rules[id]
	if !ok {
		return notification.Rule{}, notification.ErrRuleNotFound
	}
	rule.IsEnabled = enabled
	rule.UpdatedAt = core.NowFunc().UTC()
	return *rule, nil
}

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) existsActive(classID string, scheduledAt time.Time, ruleID string) bool {
	for _, sn := range repo.db.scheduled {
		if sn.Status.IsActive() && sn.ClassID == classID && sn.RuleID == ruleID && sn.ScheduledAt.Equal(scheduledAt) {
			return true
		}
	}
	return false
}

func (repo *notificationRepository) ExistsActive(_ context.Context, classID string, scheduledAt time.Time, ruleID string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.existsActive(classID, scheduledAt, ruleID), nil
}

func (repo *notificationRepository) InsertIfAbsent(_ context.Context, sn notification.ScheduledNotification, _ ...core.DBExecutor) (notification.ScheduledNotification, bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	// same guarantee as the partial unique index of the SQL schema
	if sn.Status.IsActive() && repo.existsActive(sn.ClassID, sn.ScheduledAt, sn.RuleID) {
		return notification.ScheduledNotification{}, false, nil
	}
	sn.ID = uuid.New().String()
	repo.db.scheduled[sn.ID] = &sn
	repo.db.schedOrder = append(repo.db.schedOrder, sn.ID)
	return sn, true, nil
}

func (repo *notificationRepository) AttachSession(_ context.Context, classID string, date time.Time, start timetable.TimeOfDay, sessionID string, at time.Time, _ ...core.DBExecutor) (int64, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int64
	for _, sn := range repo.db.scheduled {
		if sn.SessionID.Valid || !sn.Status.IsActive() || sn.ClassID != classID {
			continue
		}
		if sn.OccurrenceTime == start && sameDate(sn.OccurrenceDate, date) {
			sn.SessionID.SetValid(sessionID)
			sn.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

func (repo *notificationRepository) CancelActiveBySession(_ context.Context, sessionID string, at time.Time, _ ...core.DBExecutor) (int64, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int64
	for _, sn := range repo.db.scheduled {
		if sn.SessionID.Valid && sn.SessionID.String == sessionID && sn.Status.IsActive() {
			sn.Status = notification.StatusCancelled
			sn.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

func (repo *notificationRepository) QueryScheduled(_ context.Context, filter *notification.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]notification.ScheduledNotification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	rows := make([]notification.ScheduledNotification, 0)
	for _, id := range repo.db.schedOrder {
		if sn := repo.db.scheduled[id]; filter.Matches(*sn) {
			rows = append(rows, *sn)
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "scheduled_at", Ascending: true}}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareScheduled(rows[i], rows[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return rows, nil
}

func (repo *notificationRepository) GetScheduled(_ context.Context, id string, _ ...core.DBExecutor) (notification.ScheduledNotification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sn, ok := repo.db.scheduled[id]; ok {
		return *sn, nil
	}
	return notification.ScheduledNotification{}, notification.ErrNotFound
}

// SetStatus moves a row to st, the way the dispatcher does once it picks the row up.
func (repo *notificationRepository) SetStatus(id string, st notification.Status) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sn, ok := repo.db.scheduled[id]
	if !ok {
		return notification.ErrNotFound
	}
	sn.Status = st
	sn.UpdatedAt = core.NowFunc().UTC()
	return nil
}

func compareScheduled(a, b notification.ScheduledNotification, field string) int {
	cmpTime := func(x, y time.Time) int {
		switch {
		case x.Before(y):
			return -1
		case x.After(y):
			return 1
		}
		return 0
	}
	switch field {
	case "scheduled_at":
		return cmpTime(a.ScheduledAt, b.ScheduledAt)
	case "created_at":
		return cmpTime(a.CreatedAt, b.CreatedAt)
	case "status":
		switch {
		case a.Status < b.Status:
			return -1
		case a.Status > b.Status:
			return 1
		}
	}
	return 0
}
