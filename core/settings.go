package core

import (
	"context"
	"strconv"
	"time"
	_ "time/tzdata" // timezone setting must resolve on hosts without a zoneinfo database

	"github.com/pkg/errors"
)

// runtime setting keys
const (
	SettingLookaheadDays = "notification.lookahead_days"
	SettingTimezone      = "app.timezone"

	DefaultLookaheadDays = 7
)

// SettingsProvider gives access to runtime settings that staff may change without a redeploy.
// Implementations may cache values; Invalidate drops the cached value of key.
type SettingsProvider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Invalidate(ctx context.Context, key string) error
}

// LookaheadDays reads SettingLookaheadDays, falling back to DefaultLookaheadDays when unset or malformed.
func LookaheadDays(ctx context.Context, settings SettingsProvider) (int, error) {
	val, err := settings.Get(ctx, SettingLookaheadDays)
	if err != nil {
		if errors.Cause(err) == ErrSettingNotFound {
			return DefaultLookaheadDays, nil
		}
		return 0, errors.Wrap(err, "getting lookahead days")
	}
	days, err := strconv.Atoi(val)
	if err != nil || days < 0 {
		return DefaultLookaheadDays, nil
	}
	return days, nil
}

// Location reads SettingTimezone, falling back to UTC when unset or unknown.
func Location(ctx context.Context, settings SettingsProvider) (*time.Location, error) {
	val, err := settings.Get(ctx, SettingTimezone)
	if err != nil {
		if errors.Cause(err) == ErrSettingNotFound {
			return time.UTC, nil
		}
		return nil, errors.Wrap(err, "getting timezone")
	}
	loc, err := time.LoadLocation(val)
	if err != nil {
		return time.UTC, nil
	}
	return loc, nil
}
