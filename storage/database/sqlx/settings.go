package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	settingsvc "github.com/aminpamelo/mudeerbedaie-sub010/services/settings"
)

// settingStore keeps runtime settings in the app_setting table.
type settingStore struct {
	exec core.DBExecutor
}

var _ settingsvc.Store = (*settingStore)(nil)

func NewSettingStore(exec core.DBExecutor) *settingStore {
	return &settingStore{exec: exec}
}

func (s settingStore) GetSetting(ctx context.Context, key string) (string, error) {
	var val string
	err := s.exec.QueryRowContext(ctx, "SELECT value FROM app_setting WHERE key = $1", key).Scan(&val)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", core.ErrSettingNotFound
		}
		return "", wrapErr(err, "reading setting")
	}
	return val, nil
}

func (s settingStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.exec.ExecContext(ctx,
		`INSERT INTO app_setting (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value, core.NowFunc().UTC(),
	)
	return wrapErr(err, "writing setting")
}
