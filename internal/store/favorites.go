package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

const DefaultRecentsLimit = 20

const (
	favoriteColumns = `id, person_id, food_id, label, nutrition_json, source_type, piece_gram_hint, image_url, created_at`
	recentColumns   = `id, person_id, food_id, label, nutrition_json, source_type, piece_gram_hint, image_url, used_at`
)

// upsertRecent moves the (person, food) recent to the front by replacing it.
func (s *Store) upsertRecent(ctx context.Context, tx *sql.Tx, personID string, item model.RecentItem, usedAt time.Time) error {
	if err := model.Validate(item); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recents WHERE person_id = ? AND food_id = ?`, personID, item.FoodID); err != nil {
		return fmt.Errorf("clear recent %q: %w", item.FoodID, err)
	}
	return writeRecent(ctx, tx, model.Recent{
		ID:            s.newID(),
		PersonID:      personID,
		FoodID:        item.FoodID,
		Label:         item.Label,
		Nutrition:     item.Nutrition,
		SourceType:    item.SourceType,
		PieceGramHint: item.PieceGramHint,
		ImageURL:      item.ImageURL,
		UsedAt:        usedAt,
	})
}

func writeRecent(ctx context.Context, exec sqlExecutor, r model.Recent) error {
	nutrition, err := encodeJSON(r.Nutrition)
	if err != nil {
		return err
	}
	_, err = exec.ExecContext(ctx, `INSERT OR REPLACE INTO recents(`+recentColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.PersonID, r.FoodID, r.Label, nutrition, r.SourceType, nullableFloat(r.PieceGramHint), r.ImageURL, toMillis(r.UsedAt))
	if err != nil {
		return fmt.Errorf("insert recent %q: %w", r.FoodID, err)
	}
	return nil
}

func scanRecent(r rowScanner) (model.Recent, error) {
	var rec model.Recent
	var nutrition string
	var hint sql.NullFloat64
	var used int64
	if err := r.Scan(&rec.ID, &rec.PersonID, &rec.FoodID, &rec.Label, &nutrition, &rec.SourceType, &hint, &rec.ImageURL, &used); err != nil {
		return model.Recent{}, err
	}
	if err := decodeJSON(nutrition, &rec.Nutrition); err != nil {
		return model.Recent{}, err
	}
	rec.PieceGramHint = fromNullableFloat(hint)
	rec.UsedAt = fromMillis(used)
	return rec, nil
}

// Recents lists the person's most recently used foods, newest first, one per
// food id. limit <= 0 uses DefaultRecentsLimit.
func (s *Store) Recents(ctx context.Context, personID string, limit int) ([]model.Recent, error) {
	if limit <= 0 {
		limit = DefaultRecentsLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+recentColumns+` FROM recents WHERE person_id = ? ORDER BY used_at DESC, id DESC`, personID)
	if err != nil {
		return nil, fmt.Errorf("list recents: %w", err)
	}
	defer rows.Close()
	out := make([]model.Recent, 0, limit)
	seen := map[string]bool{}
	for rows.Next() && len(out) < limit {
		rec, err := scanRecent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recent: %w", err)
		}
		if seen[rec.FoodID] {
			continue
		}
		seen[rec.FoodID] = true
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recents: %w", err)
	}
	return out, nil
}

func favoriteID(personID, foodID string) string { return personID + ":" + foodID }

// ToggleFavorite adds the food to the person's favorites or removes it when
// it is already there. It reports whether the food is now a favorite.
func (s *Store) ToggleFavorite(ctx context.Context, personID string, item model.RecentItem) (bool, error) {
	if err := model.RequireID("personId", personID); err != nil {
		return false, err
	}
	if err := model.Validate(item); err != nil {
		return false, err
	}
	id := favoriteID(personID, item.FoodID)
	var added bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete favorite %q: %w", id, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("read affected rows: %w", err)
		} else if n > 0 {
			return nil
		}
		nutrition, err := encodeJSON(item.Nutrition)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO favorites(`+favoriteColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, personID, item.FoodID, item.Label, nutrition, item.SourceType, nullableFloat(item.PieceGramHint), item.ImageURL, toMillis(s.stamp())); err != nil {
			return fmt.Errorf("insert favorite %q: %w", id, err)
		}
		added = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

func (s *Store) IsFavorite(ctx context.Context, personID, foodID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM favorites WHERE id = ?`, favoriteID(personID, foodID)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup favorite: %w", err)
	}
	return true, nil
}

// Favorites lists a person's favorites ordered by label.
func (s *Store) Favorites(ctx context.Context, personID string) ([]model.Favorite, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+favoriteColumns+` FROM favorites WHERE person_id = ? ORDER BY label COLLATE NOCASE ASC`, personID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()
	out := make([]model.Favorite, 0)
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return out, nil
}

func scanFavorite(r rowScanner) (model.Favorite, error) {
	var f model.Favorite
	var nutrition string
	var hint sql.NullFloat64
	var created int64
	if err := r.Scan(&f.ID, &f.PersonID, &f.FoodID, &f.Label, &nutrition, &f.SourceType, &hint, &f.ImageURL, &created); err != nil {
		return model.Favorite{}, err
	}
	if err := decodeJSON(nutrition, &f.Nutrition); err != nil {
		return model.Favorite{}, err
	}
	f.PieceGramHint = fromNullableFloat(hint)
	f.CreatedAt = fromMillis(created)
	return f, nil
}

func writeFavorite(ctx context.Context, exec sqlExecutor, f model.Favorite) error {
	nutrition, err := encodeJSON(f.Nutrition)
	if err != nil {
		return err
	}
	_, err = exec.ExecContext(ctx, `INSERT OR REPLACE INTO favorites(`+favoriteColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.PersonID, f.FoodID, f.Label, nutrition, f.SourceType, nullableFloat(f.PieceGramHint), f.ImageURL, toMillis(f.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert favorite %q: %w", f.ID, err)
	}
	return nil
}
