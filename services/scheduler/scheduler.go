package schedsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
)

type Sweeper interface {
	Sweep(ctx context.Context) (notification.SweepResult, error)
}

// Scheduler runs the timetable sweep on a cron spec. Overlapping runs are skipped.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  core.Logger
	spec    string
	timeout time.Duration
	errors  chan error
}

func New(sweeper Sweeper, logger core.Logger, conf *core.Config) *Scheduler {
	vala.BeginValidation().Validate(
		vala.IsNotNil(sweeper, "sweeper"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(conf.Location()),
			cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		sweeper: sweeper,
		logger:  logger,
		spec:    conf.Scheduler.SweepSpec,
		timeout: conf.Scheduler.SweepTimeout,
		errors:  make(chan error, 1),
	}
}

// Register adds the sweep job. It fails on an invalid cron spec.
func (s *Scheduler) Register() error {
	if _, err := s.cron.AddFunc(s.spec, func() { _, _ = s.RunOnce(context.Background()) }); err != nil {
		return errors.Wrapf(err, "registering sweep %q", s.spec)
	}
	return nil
}

// RunOnce runs a single sweep bounded by the configured timeout.
func (s *Scheduler) RunOnce(ctx context.Context) (notification.SweepResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error(fmt.Sprintf("sweep failed: %v", err), err)
		if core.IsShutdown(err) {
			select {
			case s.errors <- err:
			default:
			}
		}
		return res, err
	}
	s.logger.Info(fmt.Sprintf("sweep done in %s: %d classes, %d created, %d failed",
		time.Since(start).Round(time.Millisecond), res.Classes, res.Created, res.Failed))
	return res, nil
}

// Errors receives the sweep errors after which the process should stop.
func (s *Scheduler) Errors() <-chan error {
	return s.errors
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the cron and returns a context done once the running sweep, if any, has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
