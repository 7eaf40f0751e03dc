package core

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Address     string
		Password    string
		DB          int
		SettingsTTL time.Duration
		Disabled    bool
	}

	SchedulerConfig struct {
		LookaheadDays int
		SweepSpec     string // cron expression
		SweepTimeout  time.Duration
	}

	Config struct {
		AppName      string
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string
		Timezone     string

		Server    ServerConfig
		Database  DatabaseConfig
		Redis     RedisConfig
		Scheduler SchedulerConfig
	}
)

// Address returns the database "host:port".
func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// Location loads the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NewConfig reads the configuration from defaults, config/.env.<env> and the environment.
// ENV selects the environment (DEV by default) and is also used as the env prefix: DEV_DATABASE_HOST...
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Mudeer Bedaie")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "kq7%w1v!x0c-_schedule_dev_only_&nq3)3z+e8b")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("timezone", "Asia/Kuala_Lumpur")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "mudeer")
	v.SetDefault("database.user", "mudeer")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.settingsTTL", 10*time.Minute)
	v.SetDefault("redis.disabled", false)

	v.SetDefault("scheduler.lookaheadDays", DefaultLookaheadDays)
	v.SetDefault("scheduler.sweepSpec", "*/15 * * * *")
	v.SetDefault("scheduler.sweepTimeout", 5*time.Minute)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Timezone:     v.GetString("timezone"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Address:            v.GetString("server.address"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Address:     v.GetString("redis.address"),
			Password:    v.GetString("redis.password"),
			DB:          v.GetInt("redis.db"),
			SettingsTTL: v.GetDuration("redis.settingsTTL"),
			Disabled:    v.GetBool("redis.disabled"),
		},
		Scheduler: SchedulerConfig{
			LookaheadDays: v.GetInt("scheduler.lookaheadDays"),
			SweepSpec:     v.GetString("scheduler.sweepSpec"),
			SweepTimeout:  v.GetDuration("scheduler.sweepTimeout"),
		},
	}
}

// SettingDefaults returns the runtime settings seeded from the static configuration.
func (c *Config) SettingDefaults() map[string]string {
	return map[string]string{
		SettingLookaheadDays: fmt.Sprint(c.Scheduler.LookaheadDays),
		SettingTimezone:      c.Timezone,
	}
}
