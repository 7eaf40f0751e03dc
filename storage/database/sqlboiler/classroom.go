package boiledrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/classroom"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
)

type classroomRepository struct {
	exec core.DBExecutor
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(exec core.DBExecutor) *classroomRepository {
	return &classroomRepository{exec: exec}
}

type (
	classRow struct {
		ID              string      `boil:"id"`
		Name            string      `boil:"name"`
		CourseName      string      `boil:"course_name"`
		TeacherID       null.String `boil:"teacher_id"`
		TeacherName     null.String `boil:"teacher_name"`
		Location        string      `boil:"location"`
		MeetingURL      string      `boil:"meeting_url"`
		GroupChatURL    string      `boil:"group_chat_url"`
		DurationMinutes int         `boil:"duration_minutes"`
		TotalSessions   int         `boil:"total_sessions"`
		IsActive        bool        `boil:"is_active"`
	}

	sessionRow struct {
		ID          string              `boil:"id"`
		ClassID     string              `boil:"class_id"`
		SessionDate time.Time           `boil:"session_date"`
		StartTime   timetable.TimeOfDay `boil:"start_time"`
		Status      string              `boil:"status"`
		CompletedAt null.Time           `boil:"completed_at"`
	}

	countRow struct {
		N int `boil:"n"`
	}
)

func (row classRow) unboil() classroom.Class {
	return classroom.Class{
		ID:              row.ID,
		Name:            row.Name,
		CourseName:      row.CourseName,
		TeacherID:       row.TeacherID,
		TeacherName:     row.TeacherName.String,
		Location:        row.Location,
		MeetingURL:      row.MeetingURL,
		GroupChatURL:    row.GroupChatURL,
		DurationMinutes: row.DurationMinutes,
		TotalSessions:   row.TotalSessions,
		IsActive:        row.IsActive,
	}
}

func (row sessionRow) unboil() classroom.Session {
	return classroom.Session{
		ID:          row.ID,
		ClassID:     row.ClassID,
		Date:        row.SessionDate,
		StartTime:   row.StartTime,
		Status:      row.Status,
		CompletedAt: row.CompletedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo classroomRepository) GetClass(ctx context.Context, classID string) (classroom.Class, error) {
	if _, err := uuid.Parse(classID); err != nil {
		return classroom.Class{}, classroom.ErrNotFound
	}

	var row classRow
	err := queries.Raw(
		`SELECT c.id, c.name, c.course_name, c.teacher_id, t.name AS teacher_name, c.location,
			c.meeting_url, c.group_chat_url, c.duration_minutes, c.total_sessions, c.is_active
		FROM class c LEFT JOIN teacher t ON t.id = c.teacher_id
		WHERE c.id = $1`,
		classID,
	).Bind(ctx, repo.exec, &row)
	if err != nil {
		return classroom.Class{}, trapNoRowsErr(err, classroom.ErrNotFound, "getting class")
	}
	return row.unboil(), nil
}

func (repo classroomRepository) GetSession(ctx context.Context, sessionID string) (classroom.Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return classroom.Session{}, classroom.ErrSessionNotFound
	}

	var row sessionRow
	err := queries.Raw(
		`SELECT id, class_id, session_date, start_time, status, completed_at
		FROM class_session WHERE id = $1`,
		sessionID,
	).Bind(ctx, repo.exec, &row)
	if err != nil {
		return classroom.Session{}, trapNoRowsErr(err, classroom.ErrSessionNotFound, "getting session")
	}
	return row.unboil(), nil
}

func (repo classroomRepository) SessionAt(ctx context.Context, classID string, date time.Time, start timetable.TimeOfDay) (classroom.Session, error) {
	if _, err := uuid.Parse(classID); err != nil {
		return classroom.Session{}, classroom.ErrSessionNotFound
	}

	var row sessionRow
	err := queries.Raw(
		`SELECT id, class_id, session_date, start_time, status, completed_at
		FROM class_session
		WHERE class_id = $1 AND session_date = $2::date AND start_time = $3
		ORDER BY status = $4, created_at DESC
		LIMIT 1`,
		classID, date.Format("2006-01-02"), start, classroom.SessionCancelled,
	).Bind(ctx, repo.exec, &row)
	if err != nil {
		return classroom.Session{}, trapNoRowsErr(err, classroom.ErrSessionNotFound, "finding session")
	}
	return row.unboil(), nil
}

func (repo classroomRepository) count(ctx context.Context, msg, query string, args ...interface{}) (int, error) {
	var row countRow
	if err := queries.Raw(query, args...).Bind(ctx, repo.exec, &row); err != nil {
		return 0, errors.Wrap(err, msg)
	}
	return row.N, nil
}

func (repo classroomRepository) CountReachableStudents(ctx context.Context, classID string) (int, error) {
	return repo.count(ctx, "counting reachable students",
		`SELECT COUNT(*) AS n
		FROM enrollment e JOIN student s ON s.id = e.student_id
		WHERE e.class_id = $1 AND e.status = 'active' AND (s.phone <> '' OR s.email <> '')`,
		classID,
	)
}

func (repo classroomRepository) TeacherReachable(ctx context.Context, classID string) (bool, error) {
	n, err := repo.count(ctx, "checking teacher reachability",
		`SELECT COUNT(*) AS n
		FROM class c JOIN teacher t ON t.id = c.teacher_id
		WHERE c.id = $1 AND (t.phone <> '' OR t.email <> '')`,
		classID,
	)
	return n > 0, err
}

func (repo classroomRepository) SessionProgress(ctx context.Context, classID string) (classroom.Progress, error) {
	cls, err := repo.GetClass(ctx, classID)
	if err != nil {
		return classroom.Progress{}, err
	}
	completed, err := repo.count(ctx, "counting completed sessions",
		`SELECT COUNT(*) AS n FROM class_session WHERE class_id = $1 AND status = $2`,
		classID, classroom.SessionCompleted,
	)
	if err != nil {
		return classroom.Progress{}, err
	}
	return classroom.Progress{Completed: completed, Total: cls.TotalSessions}, nil
}

func (repo classroomRepository) AttendanceRate(ctx context.Context, classID string) (float64, error) {
	var row struct {
		Present int `boil:"present"`
		Total   int `boil:"total"`
	}
	err := queries.Raw(
		`SELECT COUNT(*) FILTER (WHERE a.status = 'present') AS present, COUNT(*) AS total
		FROM attendance a JOIN class_session cs ON cs.id = a.session_id
		WHERE cs.class_id = $1`,
		classID,
	).Bind(ctx, repo.exec, &row)
	if err != nil {
		return 0, errors.Wrap(err, "computing attendance rate")
	}
	if row.Total == 0 {
		return 0, nil
	}
	return float64(row.Present) / float64(row.Total), nil
}
