package classroom

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
)

var ErrNotFound = errors.New("class not found")

// ErrSessionNotFound is returned when a session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// Repository reads class setup, enrollment and staffing.
type Repository interface {
	GetClass(ctx context.Context, classID string) (Class, error)
	GetSession(ctx context.Context, sessionID string) (Session, error)
	// SessionAt returns the session of the class held on the wall date of date at start.
	// A live session is preferred over a cancelled one. ErrSessionNotFound when there is none.
	SessionAt(ctx context.Context, classID string, date time.Time, start timetable.TimeOfDay) (Session, error)
	// CountReachableStudents counts the active enrollments whose student has a phone number or an email.
	CountReachableStudents(ctx context.Context, classID string) (int, error)
	// TeacherReachable reports whether the class has an assigned teacher with a phone number or an email.
	TeacherReachable(ctx context.Context, classID string) (bool, error)
	SessionProgress(ctx context.Context, classID string) (Progress, error)
	// AttendanceRate is the share of present marks among the attendance records of the class, in [0, 1].
	AttendanceRate(ctx context.Context, classID string) (float64, error)
}
