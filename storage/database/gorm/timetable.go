package gormrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
)

type timetableModel struct {
	ID         string         `gorm:"column:id;type:uuid;primaryKey"`
	ClassID    string         `gorm:"column:class_id;type:uuid;uniqueIndex"`
	Schedule   datatypes.JSON `gorm:"column:schedule;type:jsonb"`
	Recurrence string         `gorm:"column:recurrence"`
	StartDate  null.Time      `gorm:"column:start_date;type:date"`
	EndDate    null.Time      `gorm:"column:end_date;type:date"`
	IsActive   bool           `gorm:"column:is_active"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
	UpdatedAt  time.Time      `gorm:"column:updated_at"`
}

func (timetableModel) TableName() string { return "class_timetable" }

type timetableRepository struct {
	db *gorm.DB
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(db *gorm.DB) *timetableRepository {
	return &timetableRepository{db: db}
}

func (repo timetableRepository) toModel(tt timetable.Timetable) (timetableModel, error) {
	sched, err := json.Marshal(tt.Schedule)
	if err != nil {
		return timetableModel{}, errors.Wrap(err, "encoding schedule")
	}
	return timetableModel{
		ID:         tt.ID,
		ClassID:    tt.ClassID,
		Schedule:   datatypes.JSON(sched),
		Recurrence: string(tt.Recurrence),
		StartDate:  tt.StartDate,
		EndDate:    tt.EndDate,
		IsActive:   tt.IsActive,
		CreatedAt:  tt.CreatedAt.UTC(),
		UpdatedAt:  tt.UpdatedAt.UTC(),
	}, nil
}

func (repo timetableRepository) fromModel(m timetableModel) (timetable.Timetable, error) {
	var sched timetable.Schedule
	if len(m.Schedule) > 0 {
		if err := json.Unmarshal(m.Schedule, &sched); err != nil {
			return timetable.Timetable{}, errors.Wrapf(err, "decoding schedule of class %s", m.ClassID)
		}
	}
	return timetable.Timetable{
		ID:         m.ID,
		ClassID:    m.ClassID,
		Schedule:   sched,
		Recurrence: timetable.Recurrence(m.Recurrence),
		StartDate:  m.StartDate,
		EndDate:    m.EndDate,
		IsActive:   m.IsActive,
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}, nil
}

func (repo timetableRepository) GetTimetableByClass(ctx context.Context, classID string) (timetable.Timetable, error) {
	if _, err := uuid.Parse(classID); err != nil {
		return timetable.Timetable{}, timetable.ErrNotFound
	}
	var m timetableModel
	if err := repo.db.WithContext(ctx).Where("class_id = ?", classID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return timetable.Timetable{}, timetable.ErrNotFound
		}
		return timetable.Timetable{}, errors.Wrap(err, "getting timetable")
	}
	return repo.fromModel(m)
}

func (repo timetableRepository) QueryActiveTimetables(ctx context.Context) ([]timetable.Timetable, error) {
	var ms []timetableModel
	if err := repo.db.WithContext(ctx).Where("is_active = ?", true).Order("class_id").Find(&ms).Error; err != nil {
		return nil, errors.Wrap(err, "querying active timetables")
	}
	tts := make([]timetable.Timetable, 0, len(ms))
	for _, m := range ms {
		tt, err := repo.fromModel(m)
		if err != nil {
			return nil, err
		}
		tts = append(tts, tt)
	}
	return tts, nil
}

// SaveTimetable upserts on class_id: a class has at most one timetable.
func (repo timetableRepository) SaveTimetable(ctx context.Context, tt timetable.Timetable) (timetable.Timetable, error) {
	if _, err := uuid.Parse(tt.ClassID); err != nil {
		return timetable.Timetable{}, core.NewValidationError(err, errUnknownClass)
	}
	if tt.ID == "" {
		tt.ID = uuid.New().String()
	}
	m, err := repo.toModel(tt)
	if err != nil {
		return timetable.Timetable{}, err
	}

	err = repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "class_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"schedule", "recurrence", "start_date", "end_date", "is_active", "updated_at"}),
	}).Create(&m).Error
	switch {
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return timetable.Timetable{}, core.NewValidationError(err, errUnknownClass)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return timetable.Timetable{}, core.NewValidationError(err, core.FieldError{Field: "end_date", Error: "end_date cannot be before start_date"})
	case err != nil:
		return timetable.Timetable{}, errors.Wrap(err, "saving timetable")
	}
	return repo.GetTimetableByClass(ctx, tt.ClassID)
}
