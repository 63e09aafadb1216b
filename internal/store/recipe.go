package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

const recipeColumns = `id, name, servings_default, items_json, total_grams, totals_json, per100g_json, per_serving_json, created_at, updated_at`

// UpsertRecipe validates the recipe, derives its totals and saves it.
func (s *Store) UpsertRecipe(ctx context.Context, r model.Recipe) (model.Recipe, error) {
	r, err := model.NewRecipe(r)
	if err != nil {
		return model.Recipe{}, err
	}
	if r.ID == "" {
		r.ID = s.newID()
	}
	now := s.stamp()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		created, err := existingCreatedAt(ctx, tx, "recipes", r.ID)
		if err != nil {
			return err
		}
		r.CreatedAt = created
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
		return writeRecipe(ctx, tx, r)
	})
	if err != nil {
		return model.Recipe{}, err
	}
	return r, nil
}

func writeRecipe(ctx context.Context, exec sqlExecutor, r model.Recipe) error {
	items, err := encodeJSON(r.Items)
	if err != nil {
		return err
	}
	totals, err := encodeJSON(r.Totals)
	if err != nil {
		return err
	}
	per100g, err := encodeJSON(r.Per100g)
	if err != nil {
		return err
	}
	perServing, err := encodeJSON(r.PerServing)
	if err != nil {
		return err
	}
	_, err = exec.ExecContext(ctx, `INSERT OR REPLACE INTO recipes(`+recipeColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.ServingsDefault, items, r.TotalGrams, totals, per100g, perServing, toMillis(r.CreatedAt), toMillis(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert recipe %q: %w", r.ID, err)
	}
	return nil
}

func scanRecipe(row rowScanner) (model.Recipe, error) {
	var r model.Recipe
	var items, totals, per100g, perServing string
	var created, updated int64
	if err := row.Scan(&r.ID, &r.Name, &r.ServingsDefault, &items, &r.TotalGrams, &totals, &per100g, &perServing, &created, &updated); err != nil {
		return model.Recipe{}, err
	}
	for _, f := range []struct {
		raw string
		dst any
	}{{items, &r.Items}, {totals, &r.Totals}, {per100g, &r.Per100g}, {perServing, &r.PerServing}} {
		if err := decodeJSON(f.raw, f.dst); err != nil {
			return model.Recipe{}, fmt.Errorf("recipe %q: %w", r.ID, err)
		}
	}
	r.CreatedAt = fromMillis(created)
	r.UpdatedAt = fromMillis(updated)
	return r, nil
}

func (s *Store) Recipe(ctx context.Context, id string) (model.Recipe, error) {
	return recipe(ctx, s.db, id)
}

func recipe(ctx context.Context, exec sqlExecutor, id string) (model.Recipe, error) {
	r, err := scanRecipe(exec.QueryRowContext(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return model.Recipe{}, model.NotFound("recipe", id)
	}
	if err != nil {
		return model.Recipe{}, fmt.Errorf("get recipe %q: %w", id, err)
	}
	return r, nil
}

// Recipes lists recipes most recently updated first.
func (s *Store) Recipes(ctx context.Context) ([]model.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recipeColumns+` FROM recipes ORDER BY updated_at DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()
	out := make([]model.Recipe, 0)
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipes: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteRecipe(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, "recipes", "recipe", id)
}

// RecipeFoodID is the food id entries and recents use for a recipe.
func RecipeFoodID(recipeID string) string { return "recipe:" + recipeID }

// LogRecipe logs servings of a recipe as a single entry scaled from the
// recipe totals by servings/servingsDefault.
func (s *Store) LogRecipe(ctx context.Context, recipeID, personID, date, at string, servings float64) (model.Entry, error) {
	if err := model.RequireDate("date", date); err != nil {
		return model.Entry{}, err
	}
	if err := model.RequirePositive("servings", servings); err != nil {
		return model.Entry{}, err
	}
	now := s.stamp()
	var saved model.Entry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requirePerson(ctx, tx, personID); err != nil {
			return err
		}
		r, err := recipe(ctx, tx, recipeID)
		if err != nil {
			return err
		}
		ratio := servings / r.ServingsDefault
		m := r.Totals.Scale(ratio).Round(1)
		e, err := model.NewEntry(model.Entry{
			ID:          s.newID(),
			PersonID:    personID,
			Date:        date,
			Time:        at,
			FoodID:      RecipeFoodID(r.ID),
			FoodName:    r.Name,
			AmountGrams: model.RoundTo(r.TotalGrams*ratio, 1),
			Kcal:        m.Kcal,
			P:           m.P,
			C:           m.C,
			F:           m.F,
			Source:      SourceRecipe,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return err
		}
		if err := writeEntry(ctx, tx, e); err != nil {
			return err
		}
		recent := model.RecentItem{FoodID: e.FoodID, Label: r.Name, Nutrition: r.Per100g.AsPer100g(), SourceType: SourceRecipe}
		if err := s.upsertRecent(ctx, tx, personID, recent, now); err != nil {
			return err
		}
		saved = e
		return nil
	})
	if err != nil {
		return model.Entry{}, err
	}
	s.events.Publish(Event{Kind: EventEntrySaved, Entry: &saved})
	return saved, nil
}
