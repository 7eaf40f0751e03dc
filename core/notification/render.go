package notification

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/go-playground/locales"
)

// Placeholders are the values a message template can refer to.
type Placeholders struct {
	StudentName       string
	TeacherName       string
	ClassName         string
	CourseName        string
	SessionAt         time.Time // already in the class timezone
	Location          string
	MeetingURL        string
	GroupChatURL      string
	DurationMinutes   int
	RemainingSessions int
	TotalSessions     int
	AttendanceRate    float64 // [0, 1]
}

// Renderer resolves {{token}} placeholders in staff-authored templates.
// Dates, times and percentages are formatted for its locale.
type Renderer struct {
	locale locales.Translator
}

func NewRenderer(locale locales.Translator) *Renderer {
	return &Renderer{locale: locale}
}

func (r *Renderer) funcMap(p Placeholders) template.FuncMap {
	str := func(s string) func() string { return func() string { return s } }
	return template.FuncMap{
		"student_name":       str(p.StudentName),
		"teacher_name":       str(p.TeacherName),
		"class_name":         str(p.ClassName),
		"course_name":        str(p.CourseName),
		"session_date":       str(r.locale.FmtDateLong(p.SessionAt)),
		"session_time":       str(r.locale.FmtTimeShort(p.SessionAt)),
		"location":           str(p.Location),
		"meeting_url":        str(p.MeetingURL),
		"group_url":          str(p.GroupChatURL),
		"duration":           str(formatDuration(p.DurationMinutes)),
		"remaining_sessions": str(strconv.Itoa(p.RemainingSessions)),
		"total_sessions":     str(strconv.Itoa(p.TotalSessions)),
		"attendance_rate":    str(r.locale.FmtPercent(p.AttendanceRate*100, 0)),
	}
}

// Render executes text with the placeholders of p. Unknown tokens are an error.
func (r *Renderer) Render(name, text string, p Placeholders) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Funcs(r.funcMap(p)).Parse(text)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err = tmpl.Execute(&b, nil); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Check parses text without rendering it.
func (r *Renderer) Check(text string) error {
	_, err := template.New("check").Funcs(r.funcMap(Placeholders{})).Parse(text)
	return err
}

func formatDuration(minutes int) string {
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
