package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	echoapi "github.com/aminpamelo/mudeerbedaie-sub010/apps/api/echo"
	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf       *core.Config
	db         *sql.DB
	mat        *notification.Materializer
	timetables timetable.Repository
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                      - run a goose command (up, down, status...)")
	fmt.Fprintln(cli.out, "  schedule -class ID [-lookahead N]           - materialize the timetable reminders of a class")
	fmt.Fprintln(cli.out, "  schedule-session -session ID                - materialize the reminders and followups of a session")
	fmt.Fprintln(cli.out, "  cancel-session -session ID                  - cancel the pending notifications of a session")
	fmt.Fprintln(cli.out, "  sweep                                       - materialize every active timetable")
	fmt.Fprintln(cli.out, "  token -subject ID -username NAME [-admin]   - issue a staff API token")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	scheduleCmd := cli.newFlagSet("schedule")
	scheduleClass := scheduleCmd.String("class", "", "The class ID.")
	scheduleLookahead := scheduleCmd.Int("lookahead", -1, "Days to look ahead. Defaults to the lookahead setting.")

	sessionCmd := cli.newFlagSet(args[1])
	sessionID := sessionCmd.String("session", "", "The session ID.")

	tokenCmd := cli.newFlagSet("token")
	tokenSubject := tokenCmd.String("subject", "", "The staff member ID.")
	tokenUsername := tokenCmd.String("username", "", "The staff member username.")
	tokenAdmin := tokenCmd.Bool("admin", false, "Grant the admin role (settings management).")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "schedule":
		if err := scheduleCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *scheduleClass == "" {
			scheduleCmd.Usage()
			return errHelp
		}
		// an explicit lookahead, negative included, bypasses the setting
		return cli.schedule(ctx, *scheduleClass, *scheduleLookahead, isFlagSet(scheduleCmd, "lookahead"))

	case "schedule-session", "cancel-session":
		if err := sessionCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *sessionID == "" {
			sessionCmd.Usage()
			return errHelp
		}
		if args[1] == "cancel-session" {
			return cli.cancelSession(ctx, *sessionID)
		}
		return cli.scheduleSession(ctx, *sessionID)

	case "sweep":
		return cli.sweep(ctx)

	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *tokenSubject == "" || *tokenUsername == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenSubject, *tokenUsername, *tokenAdmin)

	default:
		cli.printUsage()
		return errHelp
	}
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	var found bool
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func (cli *commandLine) printJSON(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (cli *commandLine) token(subject, username string, admin bool) error {
	roles := []string{echoapi.RoleStaff}
	if admin {
		roles = append(roles, echoapi.RoleAdmin)
	}
	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewStaffClaims(cli.conf, subject, username, roles...))
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
