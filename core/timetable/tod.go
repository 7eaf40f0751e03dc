package timetable

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time without date or zone; stored as Postgres TIME.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
}

// On combines the calendar date of d (its own wall date, whatever its zone) with tod in loc.
func (tod TimeOfDay) On(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), tod.Hour, tod.Minute, tod.Second, 0, loc)
}

func (tod TimeOfDay) String() string {
	if tod.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", tod.Hour, tod.Minute, tod.Second)
	}
	return fmt.Sprintf("%02d:%02d", tod.Hour, tod.Minute)
}

func (tod TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(tod.String()), nil
}

func (tod *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*tod = parsed
	return nil
}

func (tod TimeOfDay) Value() (driver.Value, error) {
	return fmt.Sprintf("%02d:%02d:%02d", tod.Hour, tod.Minute, tod.Second), nil
}

func (tod *TimeOfDay) Scan(v interface{}) error {
	switch x := v.(type) {
	case time.Time:
		*tod = TimeOfDay{Hour: x.Hour(), Minute: x.Minute(), Second: x.Second()}
		return nil
	case []byte:
		return tod.UnmarshalText(x)
	case string:
		return tod.UnmarshalText([]byte(x))
	case nil:
		*tod = TimeOfDay{}
		return nil
	default:
		return fmt.Errorf("timetable: unsupported TimeOfDay Scan type %T", v)
	}
}
