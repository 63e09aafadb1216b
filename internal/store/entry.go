package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

const entryColumns = `id, person_id, date, time, food_id, food_name, amount_grams, kcal, protein_g, carbs_g, fat_g, micros_json, source, created_at, updated_at`

// AddEntry validates and stores an entry together with its recent-food and
// last-portion bookkeeping in one transaction, then publishes EventEntrySaved.
func (s *Store) AddEntry(ctx context.Context, e model.Entry) (model.Entry, error) {
	e, err := model.NewEntry(e)
	if err != nil {
		return model.Entry{}, err
	}
	now := s.stamp()
	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := writeEntry(ctx, tx, e); err != nil {
			return err
		}
		if e.Recent != nil {
			if err := s.upsertRecent(ctx, tx, e.PersonID, *e.Recent, now); err != nil {
				return err
			}
		}
		if key := strings.TrimSpace(e.LastPortionKey); key != "" {
			if err := setMeta(ctx, tx, lastPortionMetaKey(key), e.AmountGrams, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Entry{}, err
	}

	saved := e
	saved.Recent = nil
	saved.LastPortionKey = ""
	s.events.Publish(Event{Kind: EventEntrySaved, Entry: &saved})
	return saved, nil
}

// ApplyRemoteEntry overwrites the local row with a pulled entry, keeping its
// timestamps. It does not publish an event.
func (s *Store) ApplyRemoteEntry(ctx context.Context, e model.Entry) (model.Entry, error) {
	if err := model.RequireID("id", e.ID); err != nil {
		return model.Entry{}, err
	}
	e, err := model.NewEntry(e)
	if err != nil {
		return model.Entry{}, err
	}
	e.Recent = nil
	e.LastPortionKey = ""
	if e.CreatedAt.IsZero() {
		e.CreatedAt = e.UpdatedAt
	}
	if err := writeEntry(ctx, s.db, e); err != nil {
		return model.Entry{}, err
	}
	return e, nil
}

func writeEntry(ctx context.Context, exec sqlExecutor, e model.Entry) error {
	micros, err := encodeJSON(e.Micros)
	if err != nil {
		return err
	}
	_, err = exec.ExecContext(ctx, `
INSERT INTO entries(`+entryColumns+`)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  person_id=excluded.person_id,
  date=excluded.date,
  time=excluded.time,
  food_id=excluded.food_id,
  food_name=excluded.food_name,
  amount_grams=excluded.amount_grams,
  kcal=excluded.kcal,
  protein_g=excluded.protein_g,
  carbs_g=excluded.carbs_g,
  fat_g=excluded.fat_g,
  micros_json=excluded.micros_json,
  source=excluded.source,
  created_at=excluded.created_at,
  updated_at=excluded.updated_at
`, e.ID, e.PersonID, e.Date, e.Time, e.FoodID, e.FoodName, e.AmountGrams, e.Kcal, e.P, e.C, e.F, micros, e.Source, toMillis(e.CreatedAt), toMillis(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert entry %q: %w", e.ID, err)
	}
	return nil
}

func scanEntry(r rowScanner) (model.Entry, error) {
	var e model.Entry
	var micros string
	var created, updated int64
	if err := r.Scan(&e.ID, &e.PersonID, &e.Date, &e.Time, &e.FoodID, &e.FoodName, &e.AmountGrams, &e.Kcal, &e.P, &e.C, &e.F, &micros, &e.Source, &created, &updated); err != nil {
		return model.Entry{}, err
	}
	if err := decodeJSON(micros, &e.Micros); err != nil {
		return model.Entry{}, fmt.Errorf("entry %q micros: %w", e.ID, err)
	}
	e.CreatedAt = fromMillis(created)
	e.UpdatedAt = fromMillis(updated)
	return e, nil
}

func queryEntries(ctx context.Context, exec sqlExecutor, query string, args ...any) ([]model.Entry, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()
	out := make([]model.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

func (s *Store) Entry(ctx context.Context, id string) (model.Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return model.Entry{}, model.NotFound("entry", id)
	}
	if err != nil {
		return model.Entry{}, fmt.Errorf("get entry %q: %w", id, err)
	}
	return e, nil
}

// EntriesForPersonDate lists one day of entries in time order.
func (s *Store) EntriesForPersonDate(ctx context.Context, personID, date string) ([]model.Entry, error) {
	return queryEntries(ctx, s.db, `SELECT `+entryColumns+` FROM entries
WHERE person_id = ? AND date = ?
ORDER BY time ASC, created_at ASC`, personID, date)
}

// EntriesInRange lists a person's entries with from <= date <= to.
func (s *Store) EntriesInRange(ctx context.Context, personID, from, to string) ([]model.Entry, error) {
	return queryEntries(ctx, s.db, `SELECT `+entryColumns+` FROM entries
WHERE person_id = ? AND date >= ? AND date <= ?
ORDER BY date ASC, time ASC, created_at ASC`, personID, from, to)
}

type EntryWindow struct {
	From     string
	To       string
	PageSize int
}

const defaultEntryPageSize = 200

// IterEntries walks a person's entries in (date, time, id) order one page at
// a time. Iteration stops at the first error, which is yielded.
func (s *Store) IterEntries(ctx context.Context, personID string, w EntryWindow) iter.Seq2[model.Entry, error] {
	if w.PageSize <= 0 {
		w.PageSize = defaultEntryPageSize
	}
	if w.To == "" {
		w.To = "9999-12-31"
	}
	return func(yield func(model.Entry, error) bool) {
		lastDate, lastTime, lastID := "", "", ""
		first := true
		for {
			var page []model.Entry
			var err error
			if first {
				page, err = queryEntries(ctx, s.db, `SELECT `+entryColumns+` FROM entries
WHERE person_id = ? AND date >= ? AND date <= ?
ORDER BY date, time, id
LIMIT ?`, personID, w.From, w.To, w.PageSize)
			} else {
				page, err = queryEntries(ctx, s.db, `SELECT `+entryColumns+` FROM entries
WHERE person_id = ? AND date <= ? AND (date, time, id) > (?, ?, ?)
ORDER BY date, time, id
LIMIT ?`, personID, w.To, lastDate, lastTime, lastID, w.PageSize)
			}
			if err != nil {
				yield(model.Entry{}, err)
				return
			}
			for _, e := range page {
				if !yield(e, nil) {
					return
				}
			}
			if len(page) < w.PageSize {
				return
			}
			last := page[len(page)-1]
			lastDate, lastTime, lastID = last.Date, last.Time, last.ID
			first = false
		}
	}
}

// LoggedDates lists the distinct dates a person has entries for, newest first.
func (s *Store) LoggedDates(ctx context.Context, personID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT date FROM entries WHERE person_id = ? ORDER BY date DESC`, personID)
	if err != nil {
		return nil, fmt.Errorf("list logged dates: %w", err)
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan logged date: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logged dates: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return model.NotFound("entry", id)
	}
	return nil
}
