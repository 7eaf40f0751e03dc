package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// schedule runs a timetable pass for classID; lookahead is only used when explicit.
func (cli *commandLine) schedule(ctx context.Context, classID string, lookahead int, explicit bool) error {
	if !explicit {
		created, err := cli.mat.ScheduleClass(ctx, classID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "class %s: %d notification(s) scheduled\n", classID, len(created))
		return nil
	}

	tt, err := cli.timetables.GetTimetableByClass(ctx, classID)
	if err != nil {
		return err
	}
	created, err := cli.mat.ScheduleTimetable(ctx, tt, lookahead)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "class %s: %d notification(s) scheduled over %d day(s)\n", classID, len(created), lookahead)
	return nil
}

func (cli *commandLine) scheduleSession(ctx context.Context, sessionID string) error {
	created, err := cli.mat.ScheduleSessionByID(ctx, sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "session %s: %d notification(s) scheduled\n", sessionID, len(created))
	return nil
}

func (cli *commandLine) cancelSession(ctx context.Context, sessionID string) error {
	n, err := cli.mat.CancelSession(ctx, sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "session %s: %d notification(s) cancelled\n", sessionID, n)
	return nil
}

func (cli *commandLine) sweep(ctx context.Context) error {
	res, err := cli.mat.Sweep(ctx)
	if err != nil {
		return errors.Wrap(err, "sweeping timetables")
	}
	return cli.printJSON(res)
}
