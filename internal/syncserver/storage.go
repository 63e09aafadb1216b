package syncserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redboxergaming-hash/trackerv8/internal/remote"
)

const schema = `
CREATE TABLE IF NOT EXISTS remote_persons (
  user_id TEXT NOT NULL,
  id TEXT NOT NULL,
  name TEXT NOT NULL,
  kcal_goal INTEGER NOT NULL,
  macro_targets_json TEXT NOT NULL DEFAULT '{}',
  habit_targets_json TEXT NOT NULL DEFAULT '{}',
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (user_id, id)
);

CREATE TABLE IF NOT EXISTS remote_entries (
  user_id TEXT NOT NULL,
  id TEXT NOT NULL,
  person_id TEXT NOT NULL,
  date TEXT NOT NULL,
  time TEXT NOT NULL DEFAULT '',
  payload_json TEXT NOT NULL,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (user_id, id)
);
CREATE INDEX IF NOT EXISTS idx_remote_entries_person_date ON remote_entries(user_id, person_id, date);

CREATE TABLE IF NOT EXISTS remote_products (
  user_id TEXT NOT NULL,
  barcode TEXT NOT NULL,
  product_name TEXT NOT NULL DEFAULT '',
  brands TEXT NOT NULL DEFAULT '',
  image_url TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  fetched_at INTEGER NOT NULL,
  PRIMARY KEY (user_id, barcode)
);
`

// Storage keeps every row under the owning user's id.
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

func NewStorage(ctx context.Context, db *sql.DB) (*Storage, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create sync schema: %w", err)
	}
	return &Storage{db: db, now: time.Now}, nil
}

// stamp keeps a client-supplied timestamp so last-writer-wins comparisons
// on the device see the same value they pushed.
func (s *Storage) stamp(t time.Time) time.Time {
	if t.IsZero() {
		t = s.now()
	}
	return time.UnixMilli(t.UnixMilli()).UTC()
}

func (s *Storage) UpsertPerson(ctx context.Context, row remote.PersonRow) (remote.PersonRow, error) {
	row.UpdatedAt = s.stamp(row.UpdatedAt)
	macros, err := json.Marshal(row.MacroTargets)
	if err != nil {
		return remote.PersonRow{}, fmt.Errorf("encode macro targets: %w", err)
	}
	habits, err := json.Marshal(row.HabitTargets)
	if err != nil {
		return remote.PersonRow{}, fmt.Errorf("encode habit targets: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO remote_persons(user_id, id, name, kcal_goal, macro_targets_json, habit_targets_json, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, id) DO UPDATE SET
  name = excluded.name,
  kcal_goal = excluded.kcal_goal,
  macro_targets_json = excluded.macro_targets_json,
  habit_targets_json = excluded.habit_targets_json,
  updated_at = excluded.updated_at
`, row.UserID, row.ID, row.Name, row.KcalGoal, string(macros), string(habits), row.UpdatedAt.UnixMilli())
	if err != nil {
		return remote.PersonRow{}, fmt.Errorf("upsert person %s: %w", row.ID, err)
	}
	return row, nil
}

func (s *Storage) ListPersons(ctx context.Context, userID string) ([]remote.PersonRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, kcal_goal, macro_targets_json, habit_targets_json, updated_at
FROM remote_persons WHERE user_id = ? ORDER BY updated_at DESC, id
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	out := []remote.PersonRow{}
	for rows.Next() {
		row := remote.PersonRow{UserID: userID}
		var macros, habits string
		var updated int64
		if err := rows.Scan(&row.ID, &row.Name, &row.KcalGoal, &macros, &habits, &updated); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		if err := json.Unmarshal([]byte(macros), &row.MacroTargets); err != nil {
			return nil, fmt.Errorf("decode macro targets for %s: %w", row.ID, err)
		}
		if err := json.Unmarshal([]byte(habits), &row.HabitTargets); err != nil {
			return nil, fmt.Errorf("decode habit targets for %s: %w", row.ID, err)
		}
		row.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeletePerson removes the person and the entries filed under them.
func (s *Storage) DeletePerson(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete person: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM remote_entries WHERE user_id = ? AND person_id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete entries of person %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM remote_persons WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete person %s: %w", id, err)
	}
	return tx.Commit()
}

func (s *Storage) UpsertEntry(ctx context.Context, row remote.EntryRow) (remote.EntryRow, error) {
	row.UpdatedAt = s.stamp(row.UpdatedAt)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO remote_entries(user_id, id, person_id, date, time, payload_json, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, id) DO UPDATE SET
  person_id = excluded.person_id,
  date = excluded.date,
  time = excluded.time,
  payload_json = excluded.payload_json,
  updated_at = excluded.updated_at
`, row.UserID, row.ID, row.PersonID, row.Date, row.Time, string(row.Payload), row.UpdatedAt.UnixMilli())
	if err != nil {
		return remote.EntryRow{}, fmt.Errorf("upsert entry %s: %w", row.ID, err)
	}
	return row, nil
}

func (s *Storage) ListEntries(ctx context.Context, userID string, f remote.EntryFilter) ([]remote.EntryRow, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if f.PersonID != "" {
		where = append(where, "person_id = ?")
		args = append(args, f.PersonID)
	}
	if f.StartDate != "" {
		where = append(where, "date >= ?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		where = append(where, "date <= ?")
		args = append(args, f.EndDate)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = remote.DefaultListLimit
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, `
SELECT id, person_id, date, time, payload_json, updated_at
FROM remote_entries WHERE `+strings.Join(where, " AND ")+`
ORDER BY updated_at DESC, id LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	out := []remote.EntryRow{}
	for rows.Next() {
		row := remote.EntryRow{UserID: userID}
		var payload string
		var updated int64
		if err := rows.Scan(&row.ID, &row.PersonID, &row.Date, &row.Time, &payload, &updated); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		row.Payload = json.RawMessage(payload)
		row.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Storage) DeleteEntry(ctx context.Context, userID, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM remote_entries WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	return nil
}

func (s *Storage) UpsertProductPointer(ctx context.Context, row remote.ProductPointerRow) (remote.ProductPointerRow, error) {
	row.FetchedAt = s.stamp(row.FetchedAt)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO remote_products(user_id, barcode, product_name, brands, image_url, source, fetched_at)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, barcode) DO UPDATE SET
  product_name = excluded.product_name,
  brands = excluded.brands,
  image_url = excluded.image_url,
  source = excluded.source,
  fetched_at = excluded.fetched_at
`, row.UserID, row.Barcode, row.ProductName, row.Brands, row.ImageURL, row.Source, row.FetchedAt.UnixMilli())
	if err != nil {
		return remote.ProductPointerRow{}, fmt.Errorf("upsert product %s: %w", row.Barcode, err)
	}
	return row, nil
}
