package core

// Logger is the application logger. args may hold errors, extra data maps and at most one Actor.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Actor identifies who triggered the logged event (a staff member or a CLI operator).
type Actor struct {
	ID       string
	Username string
	Email    string
}
