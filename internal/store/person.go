package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

const personColumns = `id, name, kcal_goal, macro_targets_json, micro_targets_json, water_goal_ml, exercise_goal_min, created_at, updated_at`

// UpsertPerson creates or edits a person. CreatedAt survives edits and
// UpdatedAt is refreshed.
func (s *Store) UpsertPerson(ctx context.Context, p model.Person) (model.Person, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = s.newID()
	}
	p.UpdatedAt = time.Time{}
	return s.putPerson(ctx, p)
}

// ApplyRemotePerson stores a person pulled from the sync backend and keeps
// its UpdatedAt.
func (s *Store) ApplyRemotePerson(ctx context.Context, p model.Person) (model.Person, error) {
	if err := model.RequireID("id", p.ID); err != nil {
		return model.Person{}, err
	}
	return s.putPerson(ctx, p)
}

func (s *Store) putPerson(ctx context.Context, p model.Person) (model.Person, error) {
	p, err := model.NewPerson(p)
	if err != nil {
		return model.Person{}, err
	}
	now := s.stamp()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var created int64
		err := tx.QueryRowContext(ctx, `SELECT created_at FROM persons WHERE id = ?`, p.ID).Scan(&created)
		switch {
		case err == nil:
			p.CreatedAt = fromMillis(created)
		case err == sql.ErrNoRows:
			if p.CreatedAt.IsZero() {
				p.CreatedAt = now
			}
		default:
			return fmt.Errorf("lookup person %q: %w", p.ID, err)
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = now
		}
		return writePerson(ctx, tx, p)
	})
	if err != nil {
		return model.Person{}, err
	}
	return p, nil
}

func writePerson(ctx context.Context, exec sqlExecutor, p model.Person) error {
	macros, err := encodeJSON(p.MacroTargets)
	if err != nil {
		return err
	}
	micros, err := encodeJSON(p.MicroTargets)
	if err != nil {
		return err
	}
	_, err = exec.ExecContext(ctx, `
INSERT INTO persons(`+personColumns+`)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  name=excluded.name,
  kcal_goal=excluded.kcal_goal,
  macro_targets_json=excluded.macro_targets_json,
  micro_targets_json=excluded.micro_targets_json,
  water_goal_ml=excluded.water_goal_ml,
  exercise_goal_min=excluded.exercise_goal_min,
  updated_at=excluded.updated_at
`, p.ID, p.Name, p.KcalGoal, macros, micros, p.WaterGoalMl, p.ExerciseGoalMin, toMillis(p.CreatedAt), toMillis(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert person %q: %w", p.ID, err)
	}
	return nil
}

func (s *Store) Person(ctx context.Context, id string) (model.Person, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM persons WHERE id = ?`, id)
	p, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return model.Person{}, model.NotFound("person", id)
	}
	if err != nil {
		return model.Person{}, fmt.Errorf("get person %q: %w", id, err)
	}
	return p, nil
}

func (s *Store) Persons(ctx context.Context) ([]model.Person, error) {
	return listPersons(ctx, s.db)
}

func listPersons(ctx context.Context, exec sqlExecutor) ([]model.Person, error) {
	rows, err := exec.QueryContext(ctx, `SELECT `+personColumns+` FROM persons ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()
	out := make([]model.Person, 0)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(r rowScanner) (model.Person, error) {
	var p model.Person
	var macros, micros string
	var created, updated int64
	if err := r.Scan(&p.ID, &p.Name, &p.KcalGoal, &macros, &micros, &p.WaterGoalMl, &p.ExerciseGoalMin, &created, &updated); err != nil {
		return model.Person{}, err
	}
	if err := decodeJSON(macros, &p.MacroTargets); err != nil {
		return model.Person{}, fmt.Errorf("person %q macro targets: %w", p.ID, err)
	}
	if err := decodeJSON(micros, &p.MicroTargets); err != nil {
		return model.Person{}, fmt.Errorf("person %q micro targets: %w", p.ID, err)
	}
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return p, nil
}

// personOwnedTables lists every collection purged with its person.
var personOwnedTables = []string{
	"entries",
	"favorites",
	"recents",
	"weight_logs",
	"water_logs",
	"exercise_logs",
	"fasting_logs",
	"goal_periods",
}

// DeletePersonCascade removes the person and every row keyed to them in one
// transaction.
func (s *Store) DeletePersonCascade(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := personExists(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return model.NotFound("person", id)
		}
		for _, table := range personOwnedTables {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE person_id = ?`, id); err != nil {
				return fmt.Errorf("delete %s for person %q: %w", table, id, err)
			}
		}
		portionPrefix := lastPortionMetaKey(model.LastPortionKey(id, ""))
		if _, err := tx.ExecContext(ctx, `DELETE FROM meta WHERE key = ? OR substr(key, 1, length(?)) = ?`, dashboardLayoutKey(id), portionPrefix, portionPrefix); err != nil {
			return fmt.Errorf("delete meta for person %q: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM persons WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete person %q: %w", id, err)
		}
		return nil
	})
}
