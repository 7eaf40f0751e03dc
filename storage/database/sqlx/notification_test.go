package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
	sqlxrepos "github.com/aminpamelo/mudeerbedaie-sub010/storage/database/sqlx"
	testutil "github.com/aminpamelo/mudeerbedaie-sub010/tests"
)

func TestNotificationRepository(t *testing.T) {
	ctx := context.Background()
	db, _ := testutil.PrepareDB(t)
	repo := sqlxrepos.NewNotificationRepository(db)

	classID := testutil.SeedClass(t, db, "alpha")
	sessionID := testutil.SeedSession(t, db, classID, "2025-03-10", "09:00")
	ruleID := uuid.New().String()
	_, err := db.Exec(
		"INSERT INTO notification_rule (id, class_id, name, type, minutes_before) VALUES ($1, $2, 'day before', 'reminder', 1440)",
		ruleID, classID,
	)
	require.NoError(t, err)

	now := time.Date(2025, 3, 5, 8, 0, 0, 0, time.UTC)
	at := time.Date(2025, 3, 9, 9, 0, 0, 0, time.UTC)
	sn := notification.ScheduledNotification{
		ClassID:        classID,
		SessionID:      null.StringFrom(sessionID),
		OccurrenceDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		OccurrenceTime: timetable.TimeOfDay{Hour: 9},
		RuleID:         ruleID,
		Status:         notification.StatusPending,
		ScheduledAt:    at,
		RecipientCount: 2,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	exists, err := repo.ExistsActive(ctx, classID, at, ruleID)
	require.NoError(t, err)
	assert.False(t, exists)

	first, created, err := repo.InsertIfAbsent(ctx, sn)
	require.NoError(t, err)
	require.True(t, created)
	assert.NotEmpty(t, first.ID)
	assert.True(t, first.ScheduledAt.Equal(at))
	assert.Equal(t, timetable.TimeOfDay{Hour: 9}, first.OccurrenceTime)

	// same key, different zone: still the same instant
	dup := sn
	dup.ScheduledAt = at.In(time.FixedZone("MYT", 8*3600))
	_, created, err = repo.InsertIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)

	exists, err = repo.ExistsActive(ctx, classID, at, ruleID)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := repo.GetScheduled(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	_, err = repo.GetScheduled(ctx, "lol")
	assert.Equal(t, notification.ErrNotFound, err)
	_, err = repo.GetScheduled(ctx, uuid.New().String())
	assert.Equal(t, notification.ErrNotFound, err)

	n, err := repo.CancelActiveBySession(ctx, sessionID, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.CancelActiveBySession(ctx, sessionID, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	// cancelled rows free the key
	second, created, err := repo.InsertIfAbsent(ctx, sn)
	require.NoError(t, err)
	require.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)

	tests := []struct {
		name     string
		filter   *notification.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "all", want: []string{first.ID, second.ID}},
		{name: "by status", filter: &notification.QueryFilter{Statuses: notification.ActiveStatuses}, want: []string{second.ID}},
		{
			name:   "cancelled in session",
			filter: &notification.QueryFilter{SessionID: sessionID, Statuses: []notification.Status{notification.StatusCancelled}},
			want:   []string{first.ID},
		},
		{name: "by range", filter: &notification.QueryFilter{ScheduledFrom: at.Add(time.Minute)}, want: []string{}},
		{name: "by class", filter: &notification.QueryFilter{ClassID: classID, RuleID: ruleID}, want: []string{first.ID, second.ID}},
		{
			name:     "by status, descending",
			ordering: []core.DBOrdering{{Field: "status"}},
			want:     []string{second.ID, first.ID},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := repo.QueryScheduled(ctx, tc.filter, tc.ordering)
			require.NoError(t, err)
			ids := make([]string, 0, len(rows))
			for _, row := range rows {
				ids = append(ids, row.ID)
			}
			if tc.ordering == nil {
				assert.ElementsMatch(t, tc.want, ids)
			} else {
				assert.Equal(t, tc.want, ids)
			}
		})
	}
}

func TestSettingStore(t *testing.T) {
	ctx := context.Background()
	db, _ := testutil.PrepareDB(t)
	store := sqlxrepos.NewSettingStore(db)

	_, err := store.GetSetting(ctx, core.SettingTimezone)
	assert.Equal(t, core.ErrSettingNotFound, err)

	require.NoError(t, store.SetSetting(ctx, core.SettingTimezone, "UTC"))
	require.NoError(t, store.SetSetting(ctx, core.SettingTimezone, "Asia/Kuala_Lumpur"))

	val, err := store.GetSetting(ctx, core.SettingTimezone)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kuala_Lumpur", val)
}
