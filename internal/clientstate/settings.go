package clientstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

const keyMuted = "muted"

// Setting reads a raw setting. Absent keys return ("", false, nil).
func (s *Store) Setting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := retryOnBusy(ensureContext(ctx), func() error {
		return s.db.QueryRowContext(ensureContext(ctx), "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting upserts a raw setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	err := s.exec(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, nowString(),
	)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

// LoadMute returns the persisted mute flag, false when never saved.
func (s *Store) LoadMute() (bool, error) {
	raw, ok, err := s.Setting(context.Background(), keyMuted)
	if err != nil || !ok {
		return false, err
	}
	muted, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse mute flag %q: %w", raw, err)
	}
	return muted, nil
}

// SaveMute persists the mute flag.
func (s *Store) SaveMute(muted bool) error {
	return s.SetSetting(context.Background(), keyMuted, strconv.FormatBool(muted))
}
