package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
	logsvc "github.com/aminpamelo/mudeerbedaie-sub010/services/logger"
	metricsvc "github.com/aminpamelo/mudeerbedaie-sub010/services/metrics"
	schedsvc "github.com/aminpamelo/mudeerbedaie-sub010/services/scheduler"
	settingsvc "github.com/aminpamelo/mudeerbedaie-sub010/services/settings"
	"github.com/aminpamelo/mudeerbedaie-sub010/storage/database"
	gormrepos "github.com/aminpamelo/mudeerbedaie-sub010/storage/database/gorm"
	boiledrepos "github.com/aminpamelo/mudeerbedaie-sub010/storage/database/sqlboiler"
	sqlxrepos "github.com/aminpamelo/mudeerbedaie-sub010/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "SCHEDULER : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("Failed to close database", err)
		}
	}()
	gormDB, err := database.OpenGorm(db.DB, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening gorm: %v", err), err)
	}

	rdb := settingsvc.NewRedisClient(context.Background(), conf, logger)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	settings := settingsvc.NewCachedProvider(
		sqlxrepos.NewSettingStore(db), rdb, conf.Redis.SettingsTTL, conf.SettingDefaults(), logger,
	)

	mat := notification.NewMaterializer(notification.MaterializerDeps{
		Repo:       sqlxrepos.NewNotificationRepository(db),
		Rules:      gormrepos.NewRuleRepository(gormDB),
		Classes:    boiledrepos.NewClassroomRepository(db),
		Timetables: gormrepos.NewTimetableRepository(gormDB),
		Settings:   settings,
		Logger:     logger,
		Metrics:    metricsvc.NewPrometheusRecorder(prometheus.DefaultRegisterer),
	})

	// =========================================================================
	// Start Metrics Service

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(conf.Server.DebugHost, mux); err != nil {
			logger.Error(fmt.Sprintf("metrics server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Scheduler

	sched := schedsvc.New(mat, logger, conf)
	if err = sched.Register(); err != nil {
		logger.Fatal(fmt.Sprintf("registering sweep: %v", err), err)
	}
	logger.Info(fmt.Sprintf("Scheduler starting : version %q, sweep %q", conf.Build, conf.Scheduler.SweepSpec))
	sched.Start()

	// =========================================================================
	// Shutdown

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-sched.Errors():
		logger.Error(fmt.Sprintf("sweep error: %v: Start shutdown...", err), err)
	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
	}

	// wait for a running sweep, bounded by the shutdown timeout
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	select {
	case <-sched.Stop().Done():
		logger.Info("Scheduler stopped")
	case <-ctx.Done():
		logger.Warn("sweep still running at shutdown")
	}
}
