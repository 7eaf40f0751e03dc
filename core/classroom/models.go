package classroom

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
)

// Session statuses
const (
	SessionScheduled = "scheduled"
	SessionOngoing   = "ongoing"
	SessionCompleted = "completed"
	SessionCancelled = "cancelled"
)

type Class struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	CourseName      string      `json:"course_name"`
	TeacherID       null.String `json:"teacher_id"`
	TeacherName     string      `json:"teacher_name"`
	Location        string      `json:"location"`
	MeetingURL      string      `json:"meeting_url"`
	GroupChatURL    string      `json:"group_chat_url"`
	DurationMinutes int         `json:"duration_minutes"`
	TotalSessions   int         `json:"total_sessions"`
	IsActive        bool        `json:"is_active"`
}

// Session is one materialized class meeting.
type Session struct {
	ID          string              `json:"id"`
	ClassID     string              `json:"class_id"`
	Date        time.Time           `json:"date"` // calendar date; the wall date is what counts
	StartTime   timetable.TimeOfDay `json:"start_time"`
	Status      string              `json:"status"`
	CompletedAt null.Time           `json:"completed_at"`
}

// StartsAt returns the session start instant in loc.
func (s Session) StartsAt(loc *time.Location) time.Time {
	return s.StartTime.On(s.Date, loc)
}

// Progress counts the sessions of a class.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

func (p Progress) Remaining() int {
	if p.Completed >= p.Total {
		return 0
	}
	return p.Total - p.Completed
}

// Student is an enrolled student as seen by the roster.
type Student struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"` // enrollment status
}

// Reachable reports whether the student has at least one contact channel.
func (s Student) Reachable() bool {
	return s.Phone != "" || s.Email != ""
}

type Teacher struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (t Teacher) Reachable() bool {
	return t.Phone != "" || t.Email != ""
}
