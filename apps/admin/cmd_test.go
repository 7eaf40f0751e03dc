package main

import (
	"bytes"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/aminpamelo/mudeerbedaie-sub010/apps/api/echo"
	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/classroom"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
	logsvc "github.com/aminpamelo/mudeerbedaie-sub010/services/logger"
	settingsvc "github.com/aminpamelo/mudeerbedaie-sub010/services/settings"
	inmemdb "github.com/aminpamelo/mudeerbedaie-sub010/storage/database/inmem"
	testutil "github.com/aminpamelo/mudeerbedaie-sub010/tests"
)

var wednesday = time.Date(2025, time.March, 5, 8, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*commandLine, *inmemdb.DB, *bytes.Buffer) {
	testutil.MockNow(t, wednesday)

	db := inmemdb.Open()
	timetables := inmemdb.NewTimetableRepository(db)
	out := new(bytes.Buffer)
	conf := &core.Config{AppName: "test", SecretKey: "secret"}
	conf.Server.JWTExpirationDelta = time.Hour

	return &commandLine{
		conf: conf,
		mat: notification.NewMaterializer(notification.MaterializerDeps{
			Repo:       inmemdb.NewNotificationRepository(db),
			Rules:      inmemdb.NewRuleRepository(db),
			Classes:    inmemdb.NewClassroomRepository(db),
			Timetables: timetables,
			Settings:   settingsvc.NewMemoryProvider(map[string]string{core.SettingTimezone: "UTC", core.SettingLookaheadDays: "7"}),
			Logger:     logsvc.NewNopLogger(),
		}),
		timetables: timetables,
		out:        out,
	}, db, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string
}

func runCLITests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				require.NoError(t, err)
				if tt.wantOut != "" {
					assert.Equal(t, tt.wantOut, out.String())
				}
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, out := setup(t)

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		if _, err := fs.Stat(fsys, dir+"/00002_notification.sql"); err != nil {
			return err
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, out, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "digest", "sql"}},
	})
}

func Test_commandLine_schedule(t *testing.T) {
	cli, db, out := setup(t)

	cls := testutil.CreateClass(t, db, "alpha", nil, testutil.Student("ali"), testutil.Student("bala"))
	testutil.CreateTimetable(t, db, cls.ID, timetable.Weekly, `{"monday": ["09:00"], "thursday": ["20:30"]}`)
	testutil.CreateRule(t, db, cls.ID, notification.RuleReminder, 60, true, false)
	testutil.CreateRule(t, db, cls.ID, notification.RuleFollowup, 30, true, false)
	sess := testutil.CreateSession(t, db, cls.ID, "2025-03-06", "20:30", classroom.SessionScheduled)

	runCLITests(t, cli, out, []cliTest{
		{name: "schedule: no class", args: []string{"schedule"}, wantErr: errHelp},
		{name: "schedule: bad flag", args: []string{"schedule", "-lol"}, wantErr: errHelp},
		{name: "schedule: unknown class", args: []string{"schedule", "-class", "lol"}, wantErr: timetable.ErrNotFound},
		{
			name: "schedule: negative lookahead", args: []string{"schedule", "-class", cls.ID, "-lookahead", "-1"},
			wantErr: timetable.ErrNegativeLookahead,
		},
		{
			// only the 03-06 20:30 slot falls within three days
			name: "schedule: lookahead", args: []string{"schedule", "-class", cls.ID, "-lookahead", "3"},
			wantOut: fmt.Sprintf("class %s: 1 notification(s) scheduled over 3 day(s)\n", cls.ID),
		},
		{
			name: "schedule: default lookahead", args: []string{"schedule", "-class", cls.ID},
			wantOut: fmt.Sprintf("class %s: 1 notification(s) scheduled\n", cls.ID),
		},
		{name: "schedule-session: no session", args: []string{"schedule-session"}, wantErr: errHelp},
		{name: "schedule-session: unknown", args: []string{"schedule-session", "-session", "lol"}, wantErr: classroom.ErrSessionNotFound},
		{
			// the timetable pass already holds the 03-06 19:30 reminder; only the followup is new
			name: "schedule-session", args: []string{"schedule-session", "-session", sess.ID},
			wantOut: fmt.Sprintf("session %s: 1 notification(s) scheduled\n", sess.ID),
		},
		{
			// the slot reminder was linked to the session when the timetable pass created it
			name: "cancel-session", args: []string{"cancel-session", "-session", sess.ID},
			wantOut: fmt.Sprintf("session %s: 2 notification(s) cancelled\n", sess.ID),
		},
	})

	require.NoError(t, inmemdb.NewClassroomRepository(db).SetSessionStatus(sess.ID, classroom.SessionCancelled))
	runCLITests(t, cli, out, []cliTest{
		{
			name: "sweep", args: []string{"sweep"},
			wantOut: "{\n  \"classes\": 1,\n  \"created\": 0,\n  \"failed\": 0\n}\n",
		},
	})
}

func Test_commandLine_token(t *testing.T) {
	cli, _, out := setup(t)

	runCLITests(t, cli, out, []cliTest{
		{name: "no args", args: []string{"token"}, wantErr: errHelp},
		{name: "no username", args: []string{"token", "-subject", "42"}, wantErr: errHelp},
	})

	tests := []struct {
		name      string
		args      []string
		wantRoles []string
	}{
		{name: "staff", args: []string{"token", "-subject", "42", "-username", "aisyah"}, wantRoles: []string{echoapi.RoleStaff}},
		{name: "admin", args: []string{"token", "-subject", "42", "-username", "aisyah", "-admin"}, wantRoles: []string{echoapi.RoleStaff, echoapi.RoleAdmin}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			require.NoError(t, cli.run(append([]string{"admin"}, tt.args...)))

			claims := new(echoapi.Claims)
			_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
				return []byte(cli.conf.SecretKey), nil
			})
			require.NoError(t, err)
			assert.Equal(t, "42", claims.Subject)
			assert.Equal(t, "aisyah", claims.Username)
			assert.Equal(t, tt.wantRoles, claims.Roles)
		})
	}
}
