package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aminpamelo/mudeerbedaie-sub010/core/classroom"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
)

type classroomRepository struct {
	db *DB
}

var _ classroom.Repository = (*classroomRepository)(nil)

func NewClassroomRepository(db *DB) *classroomRepository {
	return &classroomRepository{db: db}
}

// AddClass stores cls, assigning an ID when it has none. teacher may be nil.
func (repo *classroomRepository) AddClass(cls classroom.Class, teacher *classroom.Teacher) classroom.Class {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if cls.ID == "" {
		cls.ID = uuid.New().String()
	}
	if teacher != nil {
		if teacher.ID == "" {
			teacher.ID = uuid.New().String()
		}
		cls.TeacherID.SetValid(teacher.ID)
		cls.TeacherName = teacher.Name
	}
	repo.db.classes[cls.ID] = &classRow{class: cls, teacher: teacher}
	return cls
}

func (repo *classroomRepository) Enroll(classID string, students ...classroom.Student) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	row, ok := repo.db.classes[classID]
	if !ok {
		return classroom.ErrNotFound
	}
	for _, st := range students {
		if st.ID == "" {
			st.ID = uuid.New().String()
		}
		row.students = append(row.students, st)
	}
	return nil
}

func (repo *classroomRepository) AddSession(sess classroom.Session) (classroom.Session, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[sess.ClassID]; !ok {
		return classroom.Session{}, classroom.ErrNotFound
	}
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.Status == "" {
		sess.Status = classroom.SessionScheduled
	}
	repo.db.sessions[sess.ID] = &sess
	return sess, nil
}

// SetSessionStatus moves a session to status, the way the class management side does.
func (repo *classroomRepository) SetSessionStatus(sessionID, status string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sess, ok := repo.db.sessions[sessionID]
	if !ok {
		return classroom.ErrSessionNotFound
	}
	sess.Status = status
	return nil
}

// MarkAttendance records one attendance mark per value of present.
func (repo *classroomRepository) MarkAttendance(classID string, present ...bool) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	row, ok := repo.db.classes[classID]
	if !ok {
		return classroom.ErrNotFound
	}
	row.attendance = append(row.attendance, present...)
	return nil
}

func (repo *classroomRepository) class(classID string) (*classRow, error) {
	row, ok := repo.db.classes[classID]
	if !ok {
		return nil, classroom.ErrNotFound
	}
	return row, nil
}

func (repo *classroomRepository) GetClass(_ context.Context, classID string) (classroom.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	row, err := repo.class(classID)
	if err != nil {
		return classroom.Class{}, err
	}
	return row.class, nil
}

func (repo *classroomRepository) GetSession(_ context.Context, sessionID string) (classroom.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sess, ok := repo.db.sessions[sessionID]; ok {
		return *sess, nil
	}
	return classroom.Session{}, classroom.ErrSessionNotFound
}

func (repo *classroomRepository) SessionAt(_ context.Context, classID string, date time.Time, start timetable.TimeOfDay) (classroom.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var found *classroom.Session
	for _, sess := range repo.db.sessions {
		if sess.ClassID != classID || sess.StartTime != start || !sameDate(sess.Date, date) {
			continue
		}
		if found == nil || found.Status == classroom.SessionCancelled {
			found = sess
		}
	}
	if found == nil {
		return classroom.Session{}, classroom.ErrSessionNotFound
	}
	return *found, nil
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func (repo *classroomRepository) CountReachableStudents(_ context.Context, classID string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	row, err := repo.class(classID)
	if err != nil {
		return 0, err
	}
	var n int
	for _, st := range row.students {
		if st.IsActive && st.Reachable() {
			n++
		}
	}
	return n, nil
}

func (repo *classroomRepository) TeacherReachable(_ context.Context, classID string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	row, err := repo.class(classID)
	if err != nil {
		return false, err
	}
	return row.teacher != nil && row.teacher.Reachable(), nil
}

func (repo *classroomRepository) SessionProgress(_ context.Context, classID string) (classroom.Progress, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	row, err := repo.class(classID)
	if err != nil {
		return classroom.Progress{}, err
	}
	p := classroom.Progress{Total: row.class.TotalSessions}
	for _, sess := range repo.db.sessions {
		if sess.ClassID == classID && sess.Status == classroom.SessionCompleted {
			p.Completed++
		}
	}
	return p, nil
}

func (repo *classroomRepository) AttendanceRate(_ context.Context, classID string) (float64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	row, err := repo.class(classID)
	if err != nil {
		return 0, err
	}
	if len(row.attendance) == 0 {
		return 0, nil
	}
	var present int
	for _, p := range row.attendance {
		if p {
			present++
		}
	}
	return float64(present) / float64(len(row.attendance)), nil
}
