package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
	logsvc "github.com/aminpamelo/mudeerbedaie-sub010/services/logger"
	settingsvc "github.com/aminpamelo/mudeerbedaie-sub010/services/settings"
	"github.com/aminpamelo/mudeerbedaie-sub010/storage/database"
	gormrepos "github.com/aminpamelo/mudeerbedaie-sub010/storage/database/gorm"
	boiledrepos "github.com/aminpamelo/mudeerbedaie-sub010/storage/database/sqlboiler"
	sqlxrepos "github.com/aminpamelo/mudeerbedaie-sub010/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", err)
		}
	}()
	gormDB, err := database.OpenGorm(db.DB, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening gorm: %v", err), err)
	}

	// set up services
	settings := settingsvc.NewCachedProvider(
		sqlxrepos.NewSettingStore(db),
		nil, // one-shot commands read the settings table directly
		conf.Redis.SettingsTTL,
		conf.SettingDefaults(),
		logger,
	)
	timetables := gormrepos.NewTimetableRepository(gormDB)
	mat := notification.NewMaterializer(notification.MaterializerDeps{
		Repo:       sqlxrepos.NewNotificationRepository(db),
		Rules:      gormrepos.NewRuleRepository(gormDB),
		Classes:    boiledrepos.NewClassroomRepository(db),
		Timetables: timetables,
		Settings:   settings,
		Logger:     logger,
	})

	// start CLI
	cli := commandLine{
		conf:       conf,
		db:         db.DB,
		mat:        mat,
		timetables: timetables,
		out:        os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		logger.Close()
		os.Exit(1)
	}
}
