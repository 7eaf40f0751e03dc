package gormrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
	"github.com/aminpamelo/mudeerbedaie-sub010/storage/database"
	gormrepos "github.com/aminpamelo/mudeerbedaie-sub010/storage/database/gorm"
	testutil "github.com/aminpamelo/mudeerbedaie-sub010/tests"
)

func TestRuleRepository(t *testing.T) {
	ctx := context.Background()
	db, conf := testutil.PrepareDB(t)
	gdb, err := database.OpenGorm(db.DB, conf)
	require.NoError(t, err)
	repo := gormrepos.NewRuleRepository(gdb)
	classID := testutil.SeedClass(t, db, "alpha")

	now := time.Date(2025, 3, 5, 8, 0, 0, 0, time.UTC)
	testutil.MockNow(t, now)

	reminder, err := repo.CreateRule(ctx, notification.Rule{
		ClassID: classID, Name: "day before", Type: notification.RuleReminder, IsEnabled: true,
		SendToStudents: true, MinutesBefore: null.IntFrom(1440), CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	followup, err := repo.CreateRule(ctx, notification.Rule{
		ClassID: classID, Name: "thanks", Type: notification.RuleFollowup, SendToTeacher: true,
		MinutesAfter: null.IntFrom(30), CreatedAt: now.Add(time.Second), UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.False(t, followup.MinutesBefore.Valid)

	_, err = repo.CreateRule(ctx, notification.Rule{
		ClassID: "8b7c9f3e-5a8e-4c55-9a5e-1c6f1b1f0f11", Name: "orphan", Type: notification.RuleReminder,
		MinutesBefore: null.IntFrom(5), CreatedAt: now, UpdatedAt: now,
	})
	_, invalid := core.TranslateValidationErrors(err, nil)
	assert.True(t, invalid)

	rules, err := repo.QueryRules(ctx, classID, false)
	require.NoError(t, err)
	assert.Equal(t, []notification.Rule{reminder, followup}, rules)

	rules, err = repo.QueryRules(ctx, classID, true)
	require.NoError(t, err)
	assert.Equal(t, []notification.Rule{reminder}, rules)

	enabled, err := repo.SetRuleEnabled(ctx, followup.ID, true)
	require.NoError(t, err)
	assert.True(t, enabled.IsEnabled)

	for _, id := range []string{"lol", "8b7c9f3e-5a8e-4c55-9a5e-1c6f1b1f0f11"} {
		_, err = repo.GetRule(ctx, id)
		assert.Equal(t, notification.ErrRuleNotFound, err)
		_, err = repo.SetRuleEnabled(ctx, id, false)
		assert.Equal(t, notification.ErrRuleNotFound, err)
	}
}

func TestTimetableRepository(t *testing.T) {
	ctx := context.Background()
	db, conf := testutil.PrepareDB(t)
	gdb, err := database.OpenGorm(db.DB, conf)
	require.NoError(t, err)
	repo := gormrepos.NewTimetableRepository(gdb)
	classID := testutil.SeedClass(t, db, "alpha")

	_, err = repo.GetTimetableByClass(ctx, classID)
	assert.Equal(t, timetable.ErrNotFound, err)

	sched := timetable.Schedule{
		Weekly: timetable.DayTimes{timetable.Monday: {"09:00"}},
	}
	saved, err := repo.SaveTimetable(ctx, timetable.Timetable{
		ClassID: classID, Schedule: sched, Recurrence: timetable.Weekly, IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, sched, saved.Schedule)

	// second save updates in place
	sched.Weekly[timetable.Friday] = []string{"20:30"}
	updated, err := repo.SaveTimetable(ctx, timetable.Timetable{
		ClassID: classID, Schedule: sched, Recurrence: timetable.BiWeekly, IsActive: true,
		StartDate: null.TimeFrom(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)
	assert.Equal(t, timetable.BiWeekly, updated.Recurrence)
	assert.Equal(t, sched, updated.Schedule)

	active, err := repo.QueryActiveTimetables(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, updated, active[0])

	invalid := []struct {
		name       string
		tt         timetable.Timetable
		wantFields map[string]string
	}{
		{
			name:       "unknown class",
			tt:         timetable.Timetable{ClassID: "8b7c9f3e-5a8e-4c55-9a5e-1c6f1b1f0f11", Schedule: sched, Recurrence: timetable.Weekly},
			wantFields: map[string]string{"class_id": "unknown class"},
		},
		{
			name:       "malformed class id",
			tt:         timetable.Timetable{ClassID: "lol", Schedule: sched, Recurrence: timetable.Weekly},
			wantFields: map[string]string{"class_id": "unknown class"},
		},
		{
			name: "end before start",
			tt: timetable.Timetable{
				ClassID: classID, Schedule: sched, Recurrence: timetable.Weekly,
				StartDate: null.TimeFrom(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)),
				EndDate:   null.TimeFrom(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)),
			},
			wantFields: map[string]string{"end_date": "end_date cannot be before start_date"},
		},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.SaveTimetable(ctx, tc.tt)
			fields, ok := core.TranslateValidationErrors(err, nil)
			require.True(t, ok, "SaveTimetable() error = %v", err)
			assert.Equal(t, tc.wantFields, fields)
		})
	}

	// the rejected update left the stored row alone
	got, err := repo.GetTimetableByClass(ctx, classID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}
