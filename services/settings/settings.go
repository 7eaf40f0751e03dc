package settingsvc

import (
	"context"
	"sync"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
)

const cacheKeyPrefix = "settings:"

// Store persists setting values. Get returns core.ErrSettingNotFound for unknown keys.
type Store interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// MemoryProvider keeps settings in process memory. Used in tests and when no database is configured.
type MemoryProvider struct {
	mu       sync.RWMutex
	values   map[string]string
	defaults map[string]string
}

var _ core.SettingsProvider = (*MemoryProvider)(nil)

func NewMemoryProvider(defaults map[string]string) *MemoryProvider {
	return &MemoryProvider{values: make(map[string]string), defaults: defaults}
}

func (p *MemoryProvider) Get(_ context.Context, key string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if val, ok := p.values[key]; ok {
		return val, nil
	}
	if val, ok := p.defaults[key]; ok {
		return val, nil
	}
	return "", core.ErrSettingNotFound
}

func (p *MemoryProvider) Set(_ context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	return nil
}

// Invalidate is a no-op: there is no cache in front of the values.
func (p *MemoryProvider) Invalidate(context.Context, string) error {
	return nil
}

// CachedProvider reads settings from a Store through a redis cache.
// Redis failures are logged and fall back to the store.
type CachedProvider struct {
	store    Store
	rdb      redis.Cmdable // nil disables caching
	ttl      time.Duration
	defaults map[string]string
	logger   core.Logger
}

var _ core.SettingsProvider = (*CachedProvider)(nil)

func NewCachedProvider(store Store, rdb redis.Cmdable, ttl time.Duration, defaults map[string]string, logger core.Logger) *CachedProvider {
	vala.BeginValidation().Validate(
		vala.IsNotNil(store, "store"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &CachedProvider{store: store, rdb: rdb, ttl: ttl, defaults: defaults, logger: logger}
}

func (p *CachedProvider) Get(ctx context.Context, key string) (string, error) {
	if p.rdb != nil {
		val, err := p.rdb.Get(ctx, cacheKeyPrefix+key).Result()
		switch {
		case err == nil:
			return val, nil
		case err != redis.Nil:
			p.logger.Warn("reading setting cache", err, map[string]interface{}{"key": key})
		}
	}

	val, err := p.store.GetSetting(ctx, key)
	if err != nil {
		if errors.Cause(err) != core.ErrSettingNotFound {
			return "", errors.Wrap(err, "getting setting")
		}
		def, ok := p.defaults[key]
		if !ok {
			return "", core.ErrSettingNotFound
		}
		val = def
	}

	if p.rdb != nil {
		if err = p.rdb.Set(ctx, cacheKeyPrefix+key, val, p.ttl).Err(); err != nil {
			p.logger.Warn("writing setting cache", err, map[string]interface{}{"key": key})
		}
	}
	return val, nil
}

func (p *CachedProvider) Set(ctx context.Context, key, value string) error {
	if err := p.store.SetSetting(ctx, key, value); err != nil {
		return errors.Wrap(err, "setting value")
	}
	return p.Invalidate(ctx, key)
}

func (p *CachedProvider) Invalidate(ctx context.Context, key string) error {
	if p.rdb == nil {
		return nil
	}
	if err := p.rdb.Del(ctx, cacheKeyPrefix+key).Err(); err != nil {
		return errors.Wrap(err, "invalidating setting cache")
	}
	return nil
}

// NewRedisClient connects to redis. It returns nil when redis is disabled or unreachable,
// in which case settings are read straight from the store.
func NewRedisClient(ctx context.Context, conf *core.Config, logger core.Logger) redis.UniversalClient {
	if conf.Redis.Disabled || conf.Redis.Address == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, settings cache disabled", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}
