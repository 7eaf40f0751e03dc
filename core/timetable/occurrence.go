package timetable

import (
	"time"

	"github.com/pkg/errors"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
)

// ErrNegativeLookahead is returned when a caller asks for a negative lookahead window.
var ErrNegativeLookahead = errors.New("lookahead days must not be negative")

// Slot is one concrete occurrence implied by a timetable.
type Slot struct {
	Date time.Time `json:"date"` // midnight, timetable location
	Time TimeOfDay `json:"time"`
	At   time.Time `json:"at"`
}

// Generate expands tt into the slots of the next lookahead days that are strictly after now.
// Slots are ordered by date, then by the declared order of the day's times.
// Inactive or empty timetables, malformed times and empty windows produce no slots, never an error.
func Generate(tt Timetable, lookahead int, now time.Time, loc *time.Location) ([]Slot, error) {
	if lookahead < 0 {
		return nil, ErrNegativeLookahead
	}
	if loc == nil {
		loc = time.UTC
	}
	if !tt.IsActive || tt.Schedule.IsEmpty() {
		return nil, nil
	}
	from, to, ok := tt.Window(now, lookahead, loc)
	if !ok {
		return nil, nil
	}

	var (
		slots      []Slot
		anchorWeek time.Time
	)
	if tt.Recurrence == BiWeekly {
		anchorWeek = tt.biWeeklyAnchor(from, loc)
	}
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		times := tt.Schedule.TimesFor(day, tt.Recurrence)
		if len(times) == 0 {
			continue
		}
		if tt.Recurrence == BiWeekly && weeksBetween(anchorWeek, startOfWeek(day))%2 != 0 {
			continue
		}

		seen := make(map[TimeOfDay]bool, len(times))
		for _, raw := range times {
			tod, err := ParseTimeOfDay(raw)
			if err != nil || seen[tod] {
				continue
			}
			seen[tod] = true

			at := tod.On(day, loc)
			if !at.After(now) {
				continue
			}
			slots = append(slots, Slot{Date: day, Time: tod, At: at})
		}
	}
	return slots, nil
}

// biWeeklyAnchor returns the Monday of the first week with scheduled times on or after the start
// date, else the creation date, else fallback. On weeks are an even number of weeks from it.
func (tt Timetable) biWeeklyAnchor(fallback time.Time, loc *time.Location) time.Time {
	base := fallback
	switch {
	case tt.StartDate.Valid:
		base = dateIn(tt.StartDate.Time, loc)
	case !tt.CreatedAt.IsZero():
		base = core.StartOfDay(tt.CreatedAt, loc)
	}
	for i := 0; i < 7; i++ {
		if day := base.AddDate(0, 0, i); len(tt.Schedule.TimesFor(day, BiWeekly)) > 0 {
			return startOfWeek(day)
		}
	}
	return startOfWeek(base)
}

// startOfWeek returns the Monday starting d's calendar week.
func startOfWeek(d time.Time) time.Time {
	return d.AddDate(0, 0, -int(WeekdayOf(d)-Monday))
}

// weeksBetween counts whole weeks from base to target, ignoring DST shifts.
func weeksBetween(base, target time.Time) int {
	b := time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	days := int(t.Sub(b).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days / 7
}
