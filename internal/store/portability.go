package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/redboxergaming-hash/trackerv8/internal/db"
	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

// ErrInvalidImport reports a payload that is not a tracker export.
var ErrInvalidImport = errors.New("invalid import format")

// requiredImportKeys must be present as arrays in every import payload.
// Collections added later default to empty.
var requiredImportKeys = []string{"persons", "entries", "productsCache", "favorites", "recents", "weightLogs"}

// importTables are cleared by ImportAllData and DeleteAllData.
var importTables = []string{
	"persons",
	"entries",
	"products_cache",
	"favorites",
	"recents",
	"weight_logs",
	"water_logs",
	"exercise_logs",
	"fasting_logs",
	"meal_templates",
	"recipes",
	"goal_periods",
}

type ExportData struct {
	SchemaVersion int                  `json:"schemaVersion"`
	ExportedAt    time.Time            `json:"exportedAt"`
	Persons       []model.Person       `json:"persons"`
	Entries       []model.Entry        `json:"entries"`
	ProductsCache []model.Product      `json:"productsCache"`
	Favorites     []model.Favorite     `json:"favorites"`
	Recents       []model.Recent       `json:"recents"`
	WeightLogs    []model.WeightLog    `json:"weightLogs"`
	WaterLogs     []model.WaterLog     `json:"waterLogs"`
	ExerciseLogs  []model.ExerciseLog  `json:"exerciseLogs"`
	FastingLogs   []model.FastingLog   `json:"fastingLogs"`
	MealTemplates []model.MealTemplate `json:"mealTemplates"`
	Recipes       []model.Recipe       `json:"recipes"`
	GoalPeriods   []model.GoalPeriod   `json:"goalPeriods"`
}

// ImportCounts holds the rows written per collection.
type ImportCounts struct {
	Persons       int `json:"persons"`
	Entries       int `json:"entries"`
	ProductsCache int `json:"productsCache"`
	Favorites     int `json:"favorites"`
	Recents       int `json:"recents"`
	WeightLogs    int `json:"weightLogs"`
	WaterLogs     int `json:"waterLogs"`
	ExerciseLogs  int `json:"exerciseLogs"`
	FastingLogs   int `json:"fastingLogs"`
	MealTemplates int `json:"mealTemplates"`
	Recipes       int `json:"recipes"`
	GoalPeriods   int `json:"goalPeriods"`
}

func (c ImportCounts) Total() int {
	return c.Persons + c.Entries + c.ProductsCache + c.Favorites + c.Recents + c.WeightLogs +
		c.WaterLogs + c.ExerciseLogs + c.FastingLogs + c.MealTemplates + c.Recipes + c.GoalPeriods
}

// ExportAllData snapshots every collection.
func (s *Store) ExportAllData(ctx context.Context) (*ExportData, error) {
	version, err := db.SchemaVersion(s.db)
	if err != nil {
		return nil, err
	}
	out := &ExportData{SchemaVersion: version, ExportedAt: s.stamp()}
	if out.Persons, err = listPersons(ctx, s.db); err != nil {
		return nil, err
	}
	if out.Entries, err = queryEntries(ctx, s.db, `SELECT `+entryColumns+` FROM entries ORDER BY person_id, date, time, id`); err != nil {
		return nil, err
	}
	if out.ProductsCache, err = queryAll(ctx, s.db, `SELECT `+productColumns+` FROM products_cache ORDER BY barcode`, scanProduct); err != nil {
		return nil, err
	}
	if out.Favorites, err = queryAll(ctx, s.db, `SELECT `+favoriteColumns+` FROM favorites ORDER BY person_id, created_at`, scanFavorite); err != nil {
		return nil, err
	}
	if out.Recents, err = queryAll(ctx, s.db, `SELECT `+recentColumns+` FROM recents ORDER BY person_id, used_at`, scanRecent); err != nil {
		return nil, err
	}
	if out.WeightLogs, err = queryWeightLogs(ctx, s.db, `SELECT `+weightColumns+` FROM weight_logs ORDER BY person_id, date`); err != nil {
		return nil, err
	}
	if out.WaterLogs, err = s.listWaterLogs(ctx); err != nil {
		return nil, err
	}
	if out.ExerciseLogs, err = s.listExerciseLogs(ctx); err != nil {
		return nil, err
	}
	if out.FastingLogs, err = queryFastingLogs(ctx, s.db, `SELECT `+fastingColumns+` FROM fasting_logs ORDER BY person_id, start_at`); err != nil {
		return nil, err
	}
	if out.MealTemplates, err = s.MealTemplates(ctx); err != nil {
		return nil, err
	}
	if out.Recipes, err = s.Recipes(ctx); err != nil {
		return nil, err
	}
	if out.GoalPeriods, err = queryGoalPeriods(ctx, s.db, `SELECT `+goalPeriodColumns+` FROM goal_periods ORDER BY person_id, start_date`); err != nil {
		return nil, err
	}
	return out, nil
}

func queryAll[T any](ctx context.Context, exec sqlExecutor, query string, scan func(rowScanner) (T, error)) ([]T, error) {
	rows, err := exec.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}

// ImportAllData replaces every collection with the payload's rows in one
// transaction. Duplicate ids keep the last row. Weight logs without a
// person, a date or a positive weight are dropped, and duplicate
// (person, date) pairs collapse to the last one.
func (s *Store) ImportAllData(ctx context.Context, payload []byte) (ImportCounts, error) {
	data, err := parseImport(payload)
	if err != nil {
		return ImportCounts{}, err
	}
	now := s.stamp()

	persons := uniqueBy(data.Persons, func(p model.Person) string { return p.ID })
	for i, p := range persons {
		p, err := model.NewPerson(p)
		if err != nil {
			return ImportCounts{}, fmt.Errorf("import person %q: %w", persons[i].ID, err)
		}
		persons[i] = withTimestamps(p, now)
	}
	entries := uniqueBy(data.Entries, func(e model.Entry) string { return e.ID })
	for i, e := range entries {
		e, err := model.NewEntry(e)
		if err != nil {
			return ImportCounts{}, fmt.Errorf("import entry %q: %w", entries[i].ID, err)
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = e.CreatedAt
		}
		entries[i] = e
	}
	products := uniqueBy(data.ProductsCache, func(p model.Product) string { return p.Barcode })
	favorites := uniqueBy(data.Favorites, func(f model.Favorite) string { return f.ID })
	recents := uniqueBy(data.Recents, func(r model.Recent) string { return r.ID })
	weights := s.sanitizeWeightLogs(data.WeightLogs, now)
	water := uniqueBy(data.WaterLogs, func(l model.WaterLog) string { return l.ID })
	for i, l := range water {
		l, err := model.NewWaterLog(l)
		if err != nil {
			return ImportCounts{}, fmt.Errorf("import water log %q: %w", water[i].ID, err)
		}
		if l.CreatedAt.IsZero() {
			l.CreatedAt = now
		}
		water[i] = l
	}
	exercise := uniqueBy(data.ExerciseLogs, func(l model.ExerciseLog) string { return l.ID })
	for i, l := range exercise {
		l, err := model.NewExerciseLog(l)
		if err != nil {
			return ImportCounts{}, fmt.Errorf("import exercise log %q: %w", exercise[i].ID, err)
		}
		if l.CreatedAt.IsZero() {
			l.CreatedAt = now
		}
		exercise[i] = l
	}
	fasts := uniqueBy(data.FastingLogs, func(f model.FastingLog) string { return f.ID })
	for i, f := range fasts {
		if f.DateKey == "" && !f.StartAt.IsZero() {
			f.DateKey = f.StartAt.In(s.loc).Format(model.DateLayout)
		}
		f, err := model.NewFastingLog(f)
		if err != nil {
			return ImportCounts{}, fmt.Errorf("import fasting log %q: %w", fasts[i].ID, err)
		}
		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}
		if f.UpdatedAt.IsZero() {
			f.UpdatedAt = f.CreatedAt
		}
		fasts[i] = f
	}
	fasts = collapseActiveFasts(fasts)
	templates := uniqueBy(data.MealTemplates, func(t model.MealTemplate) string { return t.ID })
	for i, t := range templates {
		t, err := model.NewMealTemplate(t)
		if err != nil {
			return ImportCounts{}, fmt.Errorf("import meal template %q: %w", templates[i].ID, err)
		}
		templates[i] = t
	}
	recipes := uniqueBy(data.Recipes, func(r model.Recipe) string { return r.ID })
	for i, r := range recipes {
		r, err := model.NewRecipe(r)
		if err != nil {
			return ImportCounts{}, fmt.Errorf("import recipe %q: %w", recipes[i].ID, err)
		}
		recipes[i] = r
	}
	periods := uniqueBy(data.GoalPeriods, func(g model.GoalPeriod) string { return g.ID })
	for i, g := range periods {
		g, err := model.NewGoalPeriod(g)
		if err != nil {
			return ImportCounts{}, fmt.Errorf("import goal period %q: %w", periods[i].ID, err)
		}
		periods[i] = g
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := clearTables(ctx, tx, importTables); err != nil {
			return err
		}
		for _, p := range persons {
			if err := writePerson(ctx, tx, p); err != nil {
				return err
			}
		}
		for _, e := range entries {
			if err := writeEntry(ctx, tx, e); err != nil {
				return err
			}
		}
		for _, p := range products {
			if err := writeProduct(ctx, tx, p); err != nil {
				return err
			}
		}
		for _, f := range favorites {
			if err := writeFavorite(ctx, tx, f); err != nil {
				return err
			}
		}
		for _, r := range recents {
			if err := writeRecent(ctx, tx, r); err != nil {
				return err
			}
		}
		personsWithWeight := map[string]bool{}
		for _, l := range weights {
			if err := writeWeightLog(ctx, tx, l); err != nil {
				return err
			}
			personsWithWeight[l.PersonID] = true
		}
		for personID := range personsWithWeight {
			if _, err := recomputePersonTrends(ctx, tx, personID); err != nil {
				return err
			}
		}
		for _, l := range water {
			if err := writeWaterLog(ctx, tx, l); err != nil {
				return err
			}
		}
		for _, l := range exercise {
			if err := writeExerciseLog(ctx, tx, l); err != nil {
				return err
			}
		}
		for _, f := range fasts {
			if err := writeFastingLog(ctx, tx, f); err != nil {
				return err
			}
		}
		for _, t := range templates {
			if err := writeMealTemplate(ctx, tx, withTemplateTimestamps(t, now)); err != nil {
				return err
			}
		}
		for _, r := range recipes {
			if err := writeRecipe(ctx, tx, withRecipeTimestamps(r, now)); err != nil {
				return err
			}
		}
		for _, g := range periods {
			if err := writeGoalPeriod(ctx, tx, g); err != nil {
				return err
			}
		}
		return setMeta(ctx, tx, MetaLastImportAt, now, now)
	})
	if err != nil {
		return ImportCounts{}, err
	}

	counts := ImportCounts{
		Persons:       len(persons),
		Entries:       len(entries),
		ProductsCache: len(products),
		Favorites:     len(favorites),
		Recents:       len(recents),
		WeightLogs:    len(weights),
		WaterLogs:     len(water),
		ExerciseLogs:  len(exercise),
		FastingLogs:   len(fasts),
		MealTemplates: len(templates),
		Recipes:       len(recipes),
		GoalPeriods:   len(periods),
	}
	s.log.Info("imported data",
		zap.Int("persons", counts.Persons),
		zap.Int("entries", counts.Entries),
		zap.Int("weightLogs", counts.WeightLogs),
		zap.Int("total", counts.Total()),
	)
	return counts, nil
}

func parseImport(payload []byte) (ExportData, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return ExportData{}, fmt.Errorf("%w: payload must be a JSON object", ErrInvalidImport)
	}
	for _, key := range requiredImportKeys {
		raw, ok := fields[key]
		if !ok || !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
			return ExportData{}, fmt.Errorf("%w: %s must be an array", ErrInvalidImport, key)
		}
	}
	var data ExportData
	if err := json.Unmarshal(payload, &data); err != nil {
		return ExportData{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	return data, nil
}

// uniqueBy drops rows without a key and keeps the last row per key at the
// position the key first appeared.
func uniqueBy[T any](items []T, key func(T) string) []T {
	index := make(map[string]int, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if k == "" {
			continue
		}
		if i, ok := index[k]; ok {
			out[i] = item
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}

// collapseActiveFasts keeps only the latest-starting open fast per person.
func collapseActiveFasts(fasts []model.FastingLog) []model.FastingLog {
	latest := map[string]int{}
	for i, f := range fasts {
		if !f.Active() {
			continue
		}
		if j, ok := latest[f.PersonID]; !ok || !f.StartAt.Before(fasts[j].StartAt) {
			latest[f.PersonID] = i
		}
	}
	out := make([]model.FastingLog, 0, len(fasts))
	for i, f := range fasts {
		if f.Active() && latest[f.PersonID] != i {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (s *Store) sanitizeWeightLogs(logs []model.WeightLog, now time.Time) []model.WeightLog {
	valid := make([]model.WeightLog, 0, len(logs))
	for _, l := range logs {
		if l.PersonID == "" || !model.ValidDate(l.Date) || !model.IsFinite(l.ScaleWeight) || l.ScaleWeight <= 0 {
			continue
		}
		valid = append(valid, l)
	}
	out := uniqueBy(valid, func(l model.WeightLog) string { return l.PersonID + "|" + l.Date })
	ids := make(map[string]bool, len(out))
	for i := range out {
		if out[i].ID == "" || ids[out[i].ID] {
			out[i].ID = s.newID()
		}
		ids[out[i].ID] = true
		if out[i].CreatedAt.IsZero() {
			out[i].CreatedAt = now
		}
		if out[i].UpdatedAt.IsZero() {
			out[i].UpdatedAt = out[i].CreatedAt
		}
	}
	return out
}

func writeWeightLog(ctx context.Context, exec sqlExecutor, l model.WeightLog) error {
	_, err := exec.ExecContext(ctx, `INSERT INTO weight_logs(`+weightColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.PersonID, l.Date, l.ScaleWeight, nullableFloat(l.TrendWeight), toMillis(l.CreatedAt), toMillis(l.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert weight log %q: %w", l.ID, err)
	}
	return nil
}

func withTimestamps(p model.Person, now time.Time) model.Person {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	return p
}

func withTemplateTimestamps(t model.MealTemplate, now time.Time) model.MealTemplate {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	return t
}

func withRecipeTimestamps(r model.Recipe, now time.Time) model.Recipe {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	return r
}

func clearTables(ctx context.Context, tx *sql.Tx, tables []string) error {
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// DeleteAllData empties every collection, meta included.
func (s *Store) DeleteAllData(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return clearTables(ctx, tx, append(append([]string{}, importTables...), "meta"))
	})
}

type SeedResult struct {
	Persons []model.Person
	Entries []model.Entry
}

// SeedSampleData replaces persons and their food data with two sample
// people and one entry each for today.
func (s *Store) SeedSampleData(ctx context.Context) (SeedResult, error) {
	now := s.stamp()
	today := s.Today()
	f := func(v float64) *float64 { return &v }
	persons := []model.Person{
		{ID: s.newID(), Name: "Alex", KcalGoal: 2200, MacroTargets: model.MacroTargets{P: f(160), C: f(240), F: f(70)}},
		{ID: s.newID(), Name: "Sam", KcalGoal: 1800, MacroTargets: model.MacroTargets{P: f(120), C: f(190), F: f(60)}},
	}
	for i := range persons {
		p, err := model.NewPerson(persons[i])
		if err != nil {
			return SeedResult{}, err
		}
		persons[i] = withTimestamps(p, now)
	}
	entries := []model.Entry{
		{ID: s.newID(), PersonID: persons[0].ID, Date: today, Time: "08:15", FoodID: "gf_oats", FoodName: "Oats (dry)", AmountGrams: 60, Kcal: 233, P: 10, C: 40, F: 4, Source: "generic", CreatedAt: now, UpdatedAt: now},
		{ID: s.newID(), PersonID: persons[1].ID, Date: today, Time: "12:30", FoodID: "custom_chicken", FoodName: "Chicken breast (cooked)", AmountGrams: 150, Kcal: 248, P: 46, C: 0, F: 5, Source: "custom", CreatedAt: now, UpdatedAt: now},
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := clearTables(ctx, tx, []string{"persons", "entries", "favorites", "recents", "weight_logs"}); err != nil {
			return err
		}
		for _, p := range persons {
			if err := writePerson(ctx, tx, p); err != nil {
				return err
			}
		}
		for _, e := range entries {
			if err := writeEntry(ctx, tx, e); err != nil {
				return err
			}
		}
		return setMeta(ctx, tx, MetaSampleSeededAt, now, now)
	})
	if err != nil {
		return SeedResult{}, err
	}
	return SeedResult{Persons: persons, Entries: entries}, nil
}
