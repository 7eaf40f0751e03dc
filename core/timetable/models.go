package timetable

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
)

// Weekday uses ISO numbering: Monday = 1 ... Sunday = 7.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// ParseWeekday maps a day name ("Monday", " monday ") to its Weekday.
func ParseWeekday(s string) (Weekday, error) {
	name := core.CleanString(s, true /* lower */)
	for i := Monday; i <= Sunday; i++ {
		if weekdayNames[i] == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

// WeekdayOf returns the ISO weekday of t in its own zone.
func WeekdayOf(t time.Time) Weekday {
	if t.Weekday() == time.Sunday {
		return Sunday
	}
	return Weekday(t.Weekday())
}

func (d Weekday) Valid() bool { return d >= Monday && d <= Sunday }

func (d Weekday) String() string {
	if !d.Valid() {
		return "weekday(" + strconv.Itoa(int(d)) + ")"
	}
	return weekdayNames[d]
}

func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Weekday) UnmarshalText(b []byte) error {
	wd, err := ParseWeekday(string(b))
	if err != nil {
		return err
	}
	*d = wd
	return nil
}

// Recurrence patterns
type Recurrence string

const (
	Weekly   Recurrence = "weekly"
	BiWeekly Recurrence = "bi_weekly"
	Monthly  Recurrence = "monthly"
)

var Recurrences = []Recurrence{Weekly, BiWeekly, Monthly}

func (r Recurrence) Valid() bool {
	for _, rec := range Recurrences {
		if r == rec {
			return true
		}
	}
	return false
}

const (
	weekKeyPrefix  = "week_"
	maxWeekOfMonth = 5
)

// WeekOfMonth returns which occurrence of its weekday d is within its month (1-based).
func WeekOfMonth(d time.Time) int {
	return (d.Day()-1)/7 + 1
}

// DayTimes maps a weekday to its time-of-day strings, in declared order.
type DayTimes map[Weekday][]string

// Schedule is the timetable's weekly definition.
// Weekly and bi-weekly timetables use Weekly; monthly timetables use Monthly, keyed by week of month.
// Times are kept as declared: malformed entries are reported by validation and skipped by Generate.
type Schedule struct {
	Weekly  DayTimes
	Monthly map[int]DayTimes

	// keys that are neither a weekday nor week_<1..5>, kept for validation
	unknownKeys []string
}

func (s Schedule) IsEmpty() bool {
	for _, times := range s.Weekly {
		if len(times) > 0 {
			return false
		}
	}
	for _, days := range s.Monthly {
		for _, times := range days {
			if len(times) > 0 {
				return false
			}
		}
	}
	return true
}

// TimesFor returns the declared times applying to date d under recurrence rec.
func (s Schedule) TimesFor(d time.Time, rec Recurrence) []string {
	wd := WeekdayOf(d)
	if rec == Monthly {
		return s.Monthly[WeekOfMonth(d)][wd]
	}
	return s.Weekly[wd]
}

// UnknownKeys returns the schedule keys that could not be understood, sorted.
func (s Schedule) UnknownKeys() []string {
	keys := append([]string(nil), s.unknownKeys...)
	sort.Strings(keys)
	return keys
}

// MalformedTimes returns the declared times that do not parse, as "key: value".
func (s Schedule) MalformedTimes() []string {
	var bad []string
	check := func(prefix string, days DayTimes) {
		for wd, times := range days {
			for _, tm := range times {
				if _, err := ParseTimeOfDay(tm); err != nil {
					bad = append(bad, fmt.Sprintf("%s%s: %q", prefix, wd, tm))
				}
			}
		}
	}
	check("", s.Weekly)
	for week, days := range s.Monthly {
		check(weekKeyPrefix+strconv.Itoa(week)+".", days)
	}
	sort.Strings(bad)
	return bad
}

func parseWeekKey(key string) (int, bool) {
	key = core.CleanString(key, true /* lower */)
	if !strings.HasPrefix(key, weekKeyPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(key, weekKeyPrefix))
	if err != nil || n < 1 || n > maxWeekOfMonth {
		return 0, false
	}
	return n, true
}

// MarshalJSON renders {"monday": [...]} or {"week_2": {"friday": [...]}}.
func (s Schedule) MarshalJSON() ([]byte, error) {
	raw := make(map[string]interface{}, len(s.Weekly)+len(s.Monthly))
	for wd, times := range s.Weekly {
		raw[wd.String()] = times
	}
	for week, days := range s.Monthly {
		inner := make(map[string][]string, len(days))
		for wd, times := range days {
			inner[wd.String()] = times
		}
		raw[weekKeyPrefix+strconv.Itoa(week)] = inner
	}
	return json.Marshal(raw)
}

func (s *Schedule) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	sched := Schedule{}
	for key, val := range raw {
		if wd, err := ParseWeekday(key); err == nil {
			var times []string
			if err := json.Unmarshal(val, &times); err != nil {
				sched.unknownKeys = append(sched.unknownKeys, key)
				continue
			}
			if sched.Weekly == nil {
				sched.Weekly = make(DayTimes)
			}
			sched.Weekly[wd] = append(sched.Weekly[wd], times...)
			continue
		}

		week, ok := parseWeekKey(key)
		if !ok {
			sched.unknownKeys = append(sched.unknownKeys, key)
			continue
		}
		var days map[string][]string
		if err := json.Unmarshal(val, &days); err != nil {
			sched.unknownKeys = append(sched.unknownKeys, key)
			continue
		}
		if sched.Monthly == nil {
			sched.Monthly = make(map[int]DayTimes)
		}
		if sched.Monthly[week] == nil {
			sched.Monthly[week] = make(DayTimes)
		}
		for dayKey, times := range days {
			wd, err := ParseWeekday(dayKey)
			if err != nil {
				sched.unknownKeys = append(sched.unknownKeys, key+"."+dayKey)
				continue
			}
			sched.Monthly[week][wd] = append(sched.Monthly[week][wd], times...)
		}
	}
	*s = sched
	return nil
}

type Timetable struct {
	ID         string     `json:"id"`
	ClassID    string     `json:"class_id"`
	Schedule   Schedule   `json:"schedule"`
	Recurrence Recurrence `json:"recurrence"`
	StartDate  null.Time  `json:"start_date"`
	EndDate    null.Time  `json:"end_date"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"` // UTC
	UpdatedAt  time.Time  `json:"updated_at"` // UTC
}

// Window returns the inclusive date range [max(today, start), min(today+lookahead, end)] in loc.
// ok is false when the range is empty.
func (tt Timetable) Window(now time.Time, lookahead int, loc *time.Location) (from, to time.Time, ok bool) {
	today := core.StartOfDay(now, loc)
	from, to = today, today.AddDate(0, 0, lookahead)
	if tt.StartDate.Valid {
		if start := dateIn(tt.StartDate.Time, loc); start.After(from) {
			from = start
		}
	}
	if tt.EndDate.Valid {
		if end := dateIn(tt.EndDate.Time, loc); end.Before(to) {
			to = end
		}
	}
	return from, to, !from.After(to)
}

// dateIn keeps the wall date of t and moves it to midnight in loc.
func dateIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// NewTimetable contains the information needed to create or replace a class timetable.
type NewTimetable struct {
	Schedule   Schedule   `json:"schedule"`
	Recurrence Recurrence `json:"recurrence" validate:"required,recurrence"`
	StartDate  null.Time  `json:"start_date"`
	EndDate    null.Time  `json:"end_date"`
	IsActive   *bool      `json:"is_active"`
}

// UnmarshalJSON accepts start_date and end_date either as plain dates (2006-01-02) or RFC 3339 timestamps.
func (nt *NewTimetable) UnmarshalJSON(data []byte) error {
	type plain NewTimetable
	aux := struct {
		*plain
		StartDate *string `json:"start_date"`
		EndDate   *string `json:"end_date"`
	}{plain: (*plain)(nt)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if nt.StartDate, err = parseDate(aux.StartDate); err != nil {
		return errors.Wrap(err, "start_date")
	}
	if nt.EndDate, err = parseDate(aux.EndDate); err != nil {
		return errors.Wrap(err, "end_date")
	}
	return nil
}

const dateLayout = "2006-01-02"

func parseDate(s *string) (null.Time, error) {
	if s == nil || *s == "" {
		return null.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, *s); err == nil {
		return null.TimeFrom(t), nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return null.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", *s)
	}
	return null.TimeFrom(t), nil
}

func (nt *NewTimetable) Validate(validate *validator.Validate) error {
	nt.Recurrence = Recurrence(core.CleanString(string(nt.Recurrence), true /* lower */))
	return validate.Struct(nt)
}
