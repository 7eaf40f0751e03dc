package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/classroom"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
	inmemdb "github.com/aminpamelo/mudeerbedaie-sub010/storage/database/inmem"
)

// MockNow freezes core.NowFunc at now for the duration of the test.
func MockNow(t *testing.T, now time.Time) {
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })
}

// Date parses a "2006-01-02" calendar date.
func Date(t *testing.T, s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("Date() failed: %v", err)
	}
	return d
}

// Student returns an active, reachable student.
func Student(name string) classroom.Student {
	return classroom.Student{Name: name, Email: name + "@example.com", IsActive: true}
}

func CreateClass(t *testing.T, db *inmemdb.DB, name string, teacher *classroom.Teacher, students ...classroom.Student) classroom.Class {
	repo := inmemdb.NewClassroomRepository(db)
	cls := repo.AddClass(classroom.Class{
		Name:            name,
		CourseName:      "Tahfiz " + name,
		Location:        "Room 1",
		MeetingURL:      "https://meet.example.com/" + name,
		GroupChatURL:    "https://chat.example.com/" + name,
		DurationMinutes: 90,
		TotalSessions:   12,
		IsActive:        true,
	}, teacher)
	if err := repo.Enroll(cls.ID, students...); err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func CreateSession(t *testing.T, db *inmemdb.DB, classID, date, start, status string, completedAt ...time.Time) classroom.Session {
	tod, err := timetable.ParseTimeOfDay(start)
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	sess := classroom.Session{ClassID: classID, Date: Date(t, date), StartTime: tod, Status: status}
	if len(completedAt) > 0 {
		sess.CompletedAt = null.TimeFrom(completedAt[0])
	}
	sess, err = inmemdb.NewClassroomRepository(db).AddSession(sess)
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return sess
}

// CreateTimetable stores an active timetable whose schedule is given as JSON.
func CreateTimetable(t *testing.T, db *inmemdb.DB, classID string, rec timetable.Recurrence, schedule string) timetable.Timetable {
	var sched timetable.Schedule
	if err := json.Unmarshal([]byte(schedule), &sched); err != nil {
		t.Fatalf("CreateTimetable() failed: %v", err)
	}
	tt, err := inmemdb.NewTimetableRepository(db).SaveTimetable(context.Background(), timetable.Timetable{
		ClassID:    classID,
		Schedule:   sched,
		Recurrence: rec,
		IsActive:   true,
		CreatedAt:  core.NowFunc().UTC(),
		UpdatedAt:  core.NowFunc().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateTimetable() failed: %v", err)
	}
	return tt
}

// CreateRule stores an enabled rule; minutes is minutes_before for reminders and minutes_after for followups.
func CreateRule(
	t *testing.T,
	db *inmemdb.DB,
	classID string,
	typ notification.RuleType,
	minutes int,
	toStudents, toTeacher bool,
	template ...string,
) notification.Rule {
	rule := notification.Rule{
		ClassID:        classID,
		Name:           string(typ),
		Type:           typ,
		IsEnabled:      true,
		SendToStudents: toStudents,
		SendToTeacher:  toTeacher,
		CreatedAt:      core.NowFunc().UTC(),
		UpdatedAt:      core.NowFunc().UTC(),
	}
	if typ == notification.RuleReminder {
		rule.MinutesBefore = null.IntFrom(minutes)
	} else {
		rule.MinutesAfter = null.IntFrom(minutes)
	}
	if len(template) > 0 {
		rule.Template = template[0]
	}
	rule, err := inmemdb.NewRuleRepository(db).CreateRule(context.Background(), rule)
	if err != nil {
		t.Fatalf("CreateRule() failed: %v", err)
	}
	return rule
}
