package timetable

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
)

var ErrNotFound = errors.New("timetable not found")

type (
	Repository interface {
		GetTimetableByClass(ctx context.Context, classID string) (Timetable, error)
		// QueryActiveTimetables returns every active timetable, ordered by class.
		QueryActiveTimetables(ctx context.Context) ([]Timetable, error)
		// SaveTimetable creates the class timetable or replaces the existing one.
		SaveTimetable(ctx context.Context, tt Timetable) (Timetable, error)
	}

	Service struct {
		repo     Repository
		settings core.SettingsProvider
	}
)

func NewService(repo Repository, settings core.SettingsProvider) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(settings, "settings"),
	).CheckAndPanic()

	return &Service{repo: repo, settings: settings}
}

func (svc *Service) GetByClass(ctx context.Context, classID string) (Timetable, error) {
	return svc.repo.GetTimetableByClass(ctx, classID)
}

func (svc *Service) QueryActive(ctx context.Context) ([]Timetable, error) {
	return svc.repo.QueryActiveTimetables(ctx)
}

// Save validates nt and stores it as the timetable of classID.
func (svc *Service) Save(ctx context.Context, validate *validator.Validate, classID string, nt NewTimetable) (Timetable, error) {
	if err := nt.Validate(validate); err != nil {
		return Timetable{}, err
	}

	now := core.NowFunc().UTC()
	tt := Timetable{
		ClassID:    classID,
		Schedule:   nt.Schedule,
		Recurrence: nt.Recurrence,
		StartDate:  nt.StartDate,
		EndDate:    nt.EndDate,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if nt.IsActive != nil {
		tt.IsActive = *nt.IsActive
	}
	return svc.repo.SaveTimetable(ctx, tt)
}

// Occurrences previews the slots of the class timetable. lookahead < 0 uses the configured default.
func (svc *Service) Occurrences(ctx context.Context, classID string, lookahead int) ([]Slot, error) {
	tt, err := svc.repo.GetTimetableByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if lookahead < 0 {
		if lookahead, err = core.LookaheadDays(ctx, svc.settings); err != nil {
			return nil, err
		}
	}
	loc, err := core.Location(ctx, svc.settings)
	if err != nil {
		return nil, err
	}
	return Generate(tt, lookahead, core.NowFunc(), loc)
}

// Location returns the timezone timetables are expanded in.
func (svc *Service) Location(ctx context.Context) (*time.Location, error) {
	return core.Location(ctx, svc.settings)
}
