package settingsvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	logsvc "github.com/aminpamelo/mudeerbedaie-sub010/services/logger"
)

type mapStore map[string]string

func (s mapStore) GetSetting(_ context.Context, key string) (string, error) {
	if val, ok := s[key]; ok {
		return val, nil
	}
	return "", core.ErrSettingNotFound
}

func (s mapStore) SetSetting(_ context.Context, key, value string) error {
	s[key] = value
	return nil
}

func TestMemoryProvider(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(map[string]string{core.SettingLookaheadDays: "7"})

	val, err := p.Get(ctx, core.SettingLookaheadDays)
	require.NoError(t, err)
	assert.Equal(t, "7", val)

	_, err = p.Get(ctx, "lol")
	assert.Equal(t, core.ErrSettingNotFound, err)

	require.NoError(t, p.Set(ctx, core.SettingLookaheadDays, "14"))
	days, err := core.LookaheadDays(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 14, days)
}

func TestCachedProvider_withoutCache(t *testing.T) {
	ctx := context.Background()
	store := mapStore{core.SettingTimezone: "Asia/Kuala_Lumpur"}
	p := NewCachedProvider(store, nil, 0, map[string]string{core.SettingLookaheadDays: "7"}, logsvc.NewNopLogger())

	tests := []struct {
		key     string
		want    string
		wantErr error
	}{
		{key: core.SettingTimezone, want: "Asia/Kuala_Lumpur"},
		{key: core.SettingLookaheadDays, want: "7"},
		{key: "unknown", wantErr: core.ErrSettingNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			val, err := p.Get(ctx, tc.key)
			assert.Equal(t, tc.wantErr, err)
			assert.Equal(t, tc.want, val)
		})
	}

	require.NoError(t, p.Set(ctx, core.SettingLookaheadDays, "3"))
	assert.Equal(t, "3", store[core.SettingLookaheadDays])
	require.NoError(t, p.Invalidate(ctx, core.SettingLookaheadDays))

	days, err := core.LookaheadDays(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 3, days)
}

func TestLocation_fallbacks(t *testing.T) {
	ctx := context.Background()

	loc, err := core.Location(ctx, NewMemoryProvider(nil))
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	p := NewMemoryProvider(map[string]string{core.SettingTimezone: "Asia/Kuala_Lumpur"})
	loc, err = core.Location(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kuala_Lumpur", loc.String())

	require.NoError(t, p.Set(ctx, core.SettingTimezone, "Mars/Olympus"))
	loc, err = core.Location(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}
