package inmemdb

import (
	"sync"

	"github.com/aminpamelo/mudeerbedaie-sub010/core/classroom"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
)

type (
	// DB is a process-local database used by tests and by the API in TEST mode.
	// One lock guards every table so that check-then-insert sequences are atomic.
	DB struct {
		mu sync.RWMutex

		classes     map[string]*classRow
		sessions    map[string]*classroom.Session
		timetables  map[string]*timetable.Timetable // by class ID
		rules       map[string]*notification.Rule
		ruleOrder   []string
		scheduled   map[string]*notification.ScheduledNotification
		schedOrder  []string
	}

	classRow struct {
		class      classroom.Class
		teacher    *classroom.Teacher
		students   []classroom.Student
		attendance []bool // present marks
	}
)

func Open() *DB {
	return &DB{
		classes:    make(map[string]*classRow),
		sessions:   make(map[string]*classroom.Session),
		timetables: make(map[string]*timetable.Timetable),
		rules:      make(map[string]*notification.Rule),
		scheduled:  make(map[string]*notification.ScheduledNotification),
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.classes = make(map[string]*classRow)
	db.sessions = make(map[string]*classroom.Session)
	db.timetables = make(map[string]*timetable.Timetable)
	db.rules = make(map[string]*notification.Rule)
	db.ruleOrder = nil
	db.scheduled = make(map[string]*notification.ScheduledNotification)
	db.schedOrder = nil
}
