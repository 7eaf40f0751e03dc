package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
)

type timetableRepository struct {
	db *DB
}

var _ timetable.Repository = (*timetableRepository)(nil)

func NewTimetableRepository(db *DB) *timetableRepository {
	return &timetableRepository{db: db}
}

func (repo *timetableRepository) GetTimetableByClass(_ context.Context, classID string) (timetable.Timetable, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if tt, ok := repo.db.timetables[classID]; ok {
		return *tt, nil
	}
	return timetable.Timetable{}, timetable.ErrNotFound
}

func (repo *timetableRepository) QueryActiveTimetables(_ context.Context) ([]timetable.Timetable, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	tts := make([]timetable.Timetable, 0, len(repo.db.timetables))
	for _, tt := range repo.db.timetables {
		if tt.IsActive {
			tts = append(tts, *tt)
		}
	}
	sort.Slice(tts, func(i, j int) bool { return tts[i].ClassID < tts[j].ClassID })
	return tts, nil
}

func (repo *timetableRepository) SaveTimetable(_ context.Context, tt timetable.Timetable) (timetable.Timetable, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if orig, ok := repo.db.timetables[tt.ClassID]; ok {
		tt.ID = orig.ID
		tt.CreatedAt = orig.CreatedAt
	} else if tt.ID == "" {
		tt.ID = uuid.New().String()
	}
	repo.db.timetables[tt.ClassID] = &tt
	return tt, nil
}
