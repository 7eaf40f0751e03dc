package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // /debug/pprof
	"os"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/aminpamelo/mudeerbedaie-sub010/apps/api/echo"
	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
	logsvc "github.com/aminpamelo/mudeerbedaie-sub010/services/logger"
	metricsvc "github.com/aminpamelo/mudeerbedaie-sub010/services/metrics"
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

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()
	gormDB, err := database.OpenGorm(db.DB, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up gorm: %v", err), err)
	}

	// set up settings
	rdb := settingsvc.NewRedisClient(context.Background(), conf, logger)
	if rdb != nil {
		defer func() {
			if err = rdb.Close(); err != nil {
				logger.Error("Failed to close redis", err)
			}
		}()
	}
	settings := settingsvc.NewCachedProvider(
		sqlxrepos.NewSettingStore(db),
		rdb,
		conf.Redis.SettingsTTL,
		conf.SettingDefaults(),
		logger,
	)

	// set up repos & services
	notifRepo := sqlxrepos.NewNotificationRepository(db)
	ruleRepo := gormrepos.NewRuleRepository(gormDB)
	ttRepo := gormrepos.NewTimetableRepository(gormDB)
	classRepo := boiledrepos.NewClassroomRepository(db)

	mat := notification.NewMaterializer(notification.MaterializerDeps{
		Repo:       notifRepo,
		Rules:      ruleRepo,
		Classes:    classRepo,
		Timetables: ttRepo,
		Settings:   settings,
		Logger:     logger,
		Metrics:    metricsvc.NewPrometheusRecorder(prometheus.DefaultRegisterer),
	})
	ttSvc := timetable.NewService(ttRepo, settings)
	notifSvc := notification.NewService(notifRepo, ruleRepo, classRepo, settings, notification.NewRenderer(en.New()))

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	timetable.InitValidators(validate, translator)
	notification.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			TimetableSvc:    ttSvc,
			NotificationSvc: notifSvc,
			Materializer:    mat,
			Settings:        settings,
			Validate:        validate,
			Translator:      translator,
			MetricsHandler:  promhttp.Handler(),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
