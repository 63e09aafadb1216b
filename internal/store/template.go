package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

const (
	SourceMealTemplate = "meal-template"
	SourceRecipe       = "recipe"
)

const templateColumns = `id, name, items_json, created_at, updated_at`

// UpsertMealTemplate validates and saves a template. An invalid item rejects
// the whole template.
func (s *Store) UpsertMealTemplate(ctx context.Context, t model.MealTemplate) (model.MealTemplate, error) {
	t, err := model.NewMealTemplate(t)
	if err != nil {
		return model.MealTemplate{}, err
	}
	if t.ID == "" {
		t.ID = s.newID()
	}
	now := s.stamp()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		created, err := existingCreatedAt(ctx, tx, "meal_templates", t.ID)
		if err != nil {
			return err
		}
		t.CreatedAt = created
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.UpdatedAt = now
		return writeMealTemplate(ctx, tx, t)
	})
	if err != nil {
		return model.MealTemplate{}, err
	}
	return t, nil
}

func writeMealTemplate(ctx context.Context, exec sqlExecutor, t model.MealTemplate) error {
	items, err := encodeJSON(t.Items)
	if err != nil {
		return err
	}
	_, err = exec.ExecContext(ctx, `INSERT OR REPLACE INTO meal_templates(`+templateColumns+`) VALUES(?, ?, ?, ?, ?)`,
		t.ID, t.Name, items, toMillis(t.CreatedAt), toMillis(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert meal template %q: %w", t.ID, err)
	}
	return nil
}

func scanMealTemplate(r rowScanner) (model.MealTemplate, error) {
	var t model.MealTemplate
	var items string
	var created, updated int64
	if err := r.Scan(&t.ID, &t.Name, &items, &created, &updated); err != nil {
		return model.MealTemplate{}, err
	}
	if err := decodeJSON(items, &t.Items); err != nil {
		return model.MealTemplate{}, fmt.Errorf("meal template %q items: %w", t.ID, err)
	}
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}

func (s *Store) MealTemplate(ctx context.Context, id string) (model.MealTemplate, error) {
	return mealTemplate(ctx, s.db, id)
}

func mealTemplate(ctx context.Context, exec sqlExecutor, id string) (model.MealTemplate, error) {
	t, err := scanMealTemplate(exec.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM meal_templates WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return model.MealTemplate{}, model.NotFound("meal template", id)
	}
	if err != nil {
		return model.MealTemplate{}, fmt.Errorf("get meal template %q: %w", id, err)
	}
	return t, nil
}

// MealTemplates lists templates most recently updated first.
func (s *Store) MealTemplates(ctx context.Context) ([]model.MealTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM meal_templates ORDER BY updated_at DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list meal templates: %w", err)
	}
	defer rows.Close()
	out := make([]model.MealTemplate, 0)
	for rows.Next() {
		t, err := scanMealTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal template: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meal templates: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteMealTemplate(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, "meal_templates", "meal template", id)
}

type TemplateLogSummary struct {
	Count     int           `json:"count"`
	TotalKcal float64       `json:"totalKcal"`
	Entries   []model.Entry `json:"entries"`
}

// LogMealTemplate expands the template into one entry per item for the
// person and date, updating recents for every item, in one transaction.
func (s *Store) LogMealTemplate(ctx context.Context, templateID, personID, date, at string) (TemplateLogSummary, error) {
	if err := model.RequireDate("date", date); err != nil {
		return TemplateLogSummary{}, err
	}
	now := s.stamp()
	var summary TemplateLogSummary
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requirePerson(ctx, tx, personID); err != nil {
			return err
		}
		t, err := mealTemplate(ctx, tx, templateID)
		if err != nil {
			return err
		}
		entries := make([]model.Entry, 0, len(t.Items))
		var total float64
		for _, it := range t.Items {
			m := model.ScalePer100g(it.Per100g, it.GramsDefault)
			e, err := model.NewEntry(model.Entry{
				ID:          s.newID(),
				PersonID:    personID,
				Date:        date,
				Time:        at,
				FoodID:      it.FoodKey,
				FoodName:    it.Label,
				AmountGrams: it.GramsDefault,
				Kcal:        m.Kcal,
				P:           m.P,
				C:           m.C,
				F:           m.F,
				Source:      SourceMealTemplate,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
			if err != nil {
				return err
			}
			if err := writeEntry(ctx, tx, e); err != nil {
				return err
			}
			recent := model.RecentItem{FoodID: it.FoodKey, Label: it.Label, Nutrition: it.Per100g, SourceType: SourceMealTemplate}
			if err := s.upsertRecent(ctx, tx, personID, recent, now); err != nil {
				return err
			}
			entries = append(entries, e)
			total += e.Kcal
		}
		summary = TemplateLogSummary{Count: len(entries), TotalKcal: model.RoundTo(total, 1), Entries: entries}
		return nil
	})
	if err != nil {
		return TemplateLogSummary{}, err
	}
	for i := range summary.Entries {
		e := summary.Entries[i]
		s.events.Publish(Event{Kind: EventEntrySaved, Entry: &e})
	}
	return summary, nil
}

func existingCreatedAt(ctx context.Context, tx *sql.Tx, table, id string) (time.Time, error) {
	var ms int64
	err := tx.QueryRowContext(ctx, `SELECT created_at FROM `+table+` WHERE id = ?`, id).Scan(&ms)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("lookup %s %q: %w", table, id, err)
	}
	return fromMillis(ms), nil
}

func deleteByID(ctx context.Context, exec sqlExecutor, table, kind, id string) error {
	res, err := exec.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s %q: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if n == 0 {
		return model.NotFound(kind, id)
	}
	return nil
}
