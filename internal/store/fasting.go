package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redboxergaming-hash/trackerv8/internal/analytics"
	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

const fastingColumns = `id, person_id, start_at, end_at, date_key, created_at, updated_at`

// StartFast opens a fast for the person at startAt (now when zero). Only one
// fast per person may be active.
func (s *Store) StartFast(ctx context.Context, personID string, startAt time.Time) (model.FastingLog, error) {
	now := s.stamp()
	if startAt.IsZero() {
		startAt = now
	}
	startAt = time.UnixMilli(startAt.UnixMilli())
	f := model.FastingLog{
		ID:        s.newID(),
		PersonID:  personID,
		StartAt:   startAt,
		DateKey:   startAt.In(s.loc).Format(model.DateLayout),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requirePerson(ctx, tx, personID); err != nil {
			return err
		}
		if _, err := activeFast(ctx, tx, personID); err == nil {
			return &model.ValidationError{Field: "personId", Constraint: "activeFast"}
		} else if err != sql.ErrNoRows {
			return fmt.Errorf("lookup active fast: %w", err)
		}
		return writeFastingLog(ctx, tx, f)
	})
	if err != nil {
		return model.FastingLog{}, err
	}
	return f, nil
}

// EndActiveFast closes the person's active fast at endAt (now when zero).
func (s *Store) EndActiveFast(ctx context.Context, personID string, endAt time.Time) (model.FastingLog, error) {
	now := s.stamp()
	if endAt.IsZero() {
		endAt = now
	}
	endAt = time.UnixMilli(endAt.UnixMilli())
	var f model.FastingLog
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		f, err = activeFast(ctx, tx, personID)
		if err == sql.ErrNoRows {
			return model.NotFound("active fast", personID)
		}
		if err != nil {
			return fmt.Errorf("lookup active fast: %w", err)
		}
		if !endAt.After(f.StartAt) {
			return &model.ValidationError{Field: "endAt", Constraint: "after", Param: "startAt"}
		}
		f.EndAt = &endAt
		f.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, `UPDATE fasting_logs SET end_at = ?, updated_at = ? WHERE id = ?`, toMillis(endAt), toMillis(now), f.ID); err != nil {
			return fmt.Errorf("end fast %q: %w", f.ID, err)
		}
		return nil
	})
	if err != nil {
		return model.FastingLog{}, err
	}
	return f, nil
}

func activeFast(ctx context.Context, exec sqlExecutor, personID string) (model.FastingLog, error) {
	return scanFastingLog(exec.QueryRowContext(ctx, `SELECT `+fastingColumns+` FROM fasting_logs WHERE person_id = ? AND end_at IS NULL`, personID))
}

// ActiveFast returns the person's open fast, or nil.
func (s *Store) ActiveFast(ctx context.Context, personID string) (*model.FastingLog, error) {
	f, err := activeFast(ctx, s.db, personID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup active fast: %w", err)
	}
	return &f, nil
}

func (s *Store) LatestCompletedFast(ctx context.Context, personID string) (*model.FastingLog, error) {
	f, err := scanFastingLog(s.db.QueryRowContext(ctx, `SELECT `+fastingColumns+` FROM fasting_logs
WHERE person_id = ? AND end_at IS NOT NULL
ORDER BY end_at DESC LIMIT 1`, personID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup completed fast: %w", err)
	}
	return &f, nil
}

// FastingLogs lists a person's fasts, newest start first.
func (s *Store) FastingLogs(ctx context.Context, personID string) ([]model.FastingLog, error) {
	return queryFastingLogs(ctx, s.db, `SELECT `+fastingColumns+` FROM fasting_logs WHERE person_id = ? ORDER BY start_at DESC`, personID)
}

// FastingStreak counts consecutive days with a completed fast.
func (s *Store) FastingStreak(ctx context.Context, personID string) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date_key FROM fasting_logs WHERE person_id = ? AND end_at IS NOT NULL`, personID)
	if err != nil {
		return 0, fmt.Errorf("list fasting days: %w", err)
	}
	defer rows.Close()
	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return 0, fmt.Errorf("scan fasting day: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate fasting days: %w", err)
	}
	return analytics.FastingStreak(keys), nil
}

func writeFastingLog(ctx context.Context, exec sqlExecutor, f model.FastingLog) error {
	_, err := exec.ExecContext(ctx, `INSERT INTO fasting_logs(`+fastingColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.PersonID, toMillis(f.StartAt), nullableMillis(f.EndAt), f.DateKey, toMillis(f.CreatedAt), toMillis(f.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert fasting log %q: %w", f.ID, err)
	}
	return nil
}

func scanFastingLog(r rowScanner) (model.FastingLog, error) {
	var f model.FastingLog
	var start, created, updated int64
	var end sql.NullInt64
	if err := r.Scan(&f.ID, &f.PersonID, &start, &end, &f.DateKey, &created, &updated); err != nil {
		return model.FastingLog{}, err
	}
	f.StartAt = fromMillis(start)
	f.EndAt = fromNullableMillis(end)
	f.CreatedAt = fromMillis(created)
	f.UpdatedAt = fromMillis(updated)
	return f, nil
}

func queryFastingLogs(ctx context.Context, exec sqlExecutor, query string, args ...any) ([]model.FastingLog, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fasting logs: %w", err)
	}
	defer rows.Close()
	out := make([]model.FastingLog, 0)
	for rows.Next() {
		f, err := scanFastingLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fasting log: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fasting logs: %w", err)
	}
	return out, nil
}
