package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

const (
	MetaLastImportAt   = "lastImportAt"
	MetaSampleSeededAt = "sampleSeededAt"
)

func dashboardLayoutKey(personID string) string { return "dashboardLayout:" + personID }

func lastPortionMetaKey(key string) string { return "lastPortion:" + key }

func setMeta(ctx context.Context, exec sqlExecutor, key string, value any, now time.Time) error {
	raw, err := encodeJSON(value)
	if err != nil {
		return err
	}
	_, err = exec.ExecContext(ctx, `
INSERT INTO meta(key, value_json, updated_at) VALUES(?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value_json=excluded.value_json, updated_at=excluded.updated_at
`, key, raw, toMillis(now))
	if err != nil {
		return fmt.Errorf("set meta %q: %w", key, err)
	}
	return nil
}

// SetMeta stores value as JSON under key.
func (s *Store) SetMeta(ctx context.Context, key string, value any) error {
	if err := model.RequireID("key", key); err != nil {
		return err
	}
	return setMeta(ctx, s.db, key, value, s.stamp())
}

// Meta decodes the value stored under key into dst. It reports false when
// the key is absent.
func (s *Store) Meta(ctx context.Context, key string, dst any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value_json FROM meta WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get meta %q: %w", key, err)
	}
	if err := decodeJSON(raw, dst); err != nil {
		return false, fmt.Errorf("meta %q: %w", key, err)
	}
	return true, nil
}

// LastPortion returns the grams last logged for a person and food.
func (s *Store) LastPortion(ctx context.Context, personID, foodID string) (float64, bool, error) {
	var grams float64
	ok, err := s.Meta(ctx, lastPortionMetaKey(model.LastPortionKey(personID, foodID)), &grams)
	if err != nil || !ok {
		return 0, false, err
	}
	return grams, true, nil
}

// DashboardLayout returns the person's saved layout, or the default one.
func (s *Store) DashboardLayout(ctx context.Context, personID string) (model.DashboardLayout, error) {
	var layout model.DashboardLayout
	ok, err := s.Meta(ctx, dashboardLayoutKey(personID), &layout)
	if err != nil {
		return model.DashboardLayout{}, err
	}
	if !ok {
		return model.DefaultDashboardLayout(), nil
	}
	return model.NormalizeDashboardLayout(layout), nil
}

func (s *Store) SetDashboardLayout(ctx context.Context, personID string, layout model.DashboardLayout) (model.DashboardLayout, error) {
	if err := model.RequireID("personId", personID); err != nil {
		return model.DashboardLayout{}, err
	}
	layout = model.NormalizeDashboardLayout(layout)
	if err := setMeta(ctx, s.db, dashboardLayoutKey(personID), layout, s.stamp()); err != nil {
		return model.DashboardLayout{}, err
	}
	return layout, nil
}
