package db

import (
	"context"
	"database/sql"
	"fmt"
)

type column struct {
	table string
	name  string
	ddl   string
}

type migration struct {
	version  int
	name     string
	sql      string
	columns  []column
	backfill func(ctx context.Context, tx *sql.Tx) error
}

// LatestVersion is the schema version ApplyMigrations upgrades to.
var LatestVersion = migrations[len(migrations)-1].version

var migrations = []migration{
	{
		version: 1,
		name:    "initial_schema",
		sql: `
CREATE TABLE IF NOT EXISTS persons (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  kcal_goal INTEGER NOT NULL,
  micro_targets_json TEXT NOT NULL DEFAULT '{}',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
  id TEXT PRIMARY KEY,
  person_id TEXT NOT NULL,
  date TEXT NOT NULL,
  time TEXT NOT NULL DEFAULT '',
  food_id TEXT NOT NULL DEFAULT '',
  food_name TEXT NOT NULL,
  amount_grams REAL NOT NULL CHECK(amount_grams >= 0),
  kcal REAL NOT NULL CHECK(kcal >= 0),
  protein_g REAL NOT NULL CHECK(protein_g >= 0),
  carbs_g REAL NOT NULL CHECK(carbs_g >= 0),
  fat_g REAL NOT NULL CHECK(fat_g >= 0),
  micros_json TEXT NOT NULL DEFAULT '{}',
  source TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_person_date ON entries(person_id, date);
CREATE INDEX IF NOT EXISTS idx_entries_person_date_time ON entries(person_id, date, time);
CREATE INDEX IF NOT EXISTS idx_entries_person ON entries(person_id);

CREATE TABLE IF NOT EXISTS products_cache (
  barcode TEXT PRIMARY KEY,
  product_name TEXT NOT NULL DEFAULT '',
  brands TEXT NOT NULL DEFAULT '',
  image_url TEXT NOT NULL DEFAULT '',
  nutrition_json TEXT NOT NULL DEFAULT '{}',
  source TEXT NOT NULL DEFAULT '',
  fetched_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS favorites (
  id TEXT PRIMARY KEY,
  person_id TEXT NOT NULL,
  food_id TEXT NOT NULL,
  label TEXT NOT NULL,
  nutrition_json TEXT NOT NULL DEFAULT '{}',
  source_type TEXT NOT NULL DEFAULT '',
  piece_gram_hint REAL,
  image_url TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_favorites_person ON favorites(person_id);
CREATE INDEX IF NOT EXISTS idx_favorites_person_label ON favorites(person_id, label);

CREATE TABLE IF NOT EXISTS recents (
  id TEXT PRIMARY KEY,
  person_id TEXT NOT NULL,
  food_id TEXT NOT NULL,
  label TEXT NOT NULL,
  nutrition_json TEXT NOT NULL DEFAULT '{}',
  source_type TEXT NOT NULL DEFAULT '',
  piece_gram_hint REAL,
  image_url TEXT NOT NULL DEFAULT '',
  used_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recents_person_used_at ON recents(person_id, used_at);
CREATE INDEX IF NOT EXISTS idx_recents_person_food ON recents(person_id, food_id);

CREATE TABLE IF NOT EXISTS meta (
  key TEXT PRIMARY KEY,
  value_json TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);
`,
	},
	{
		version: 2,
		name:    "person_macro_targets",
		columns: []column{
			{table: "persons", name: "macro_targets_json", ddl: `TEXT NOT NULL DEFAULT ''`},
		},
		backfill: backfillMacroTargets,
	},
	{
		version: 3,
		name:    "weight_logs",
		sql: `
CREATE TABLE IF NOT EXISTS weight_logs (
  id TEXT PRIMARY KEY,
  person_id TEXT NOT NULL,
  date TEXT NOT NULL,
  scale_weight REAL NOT NULL CHECK(scale_weight > 0),
  trend_weight REAL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_weight_logs_person_date ON weight_logs(person_id, date);
CREATE INDEX IF NOT EXISTS idx_weight_logs_person ON weight_logs(person_id);
CREATE INDEX IF NOT EXISTS idx_weight_logs_date ON weight_logs(date);
`,
	},
	{
		version: 4,
		name:    "meal_templates",
		sql: `
CREATE TABLE IF NOT EXISTS meal_templates (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  items_json TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_meal_templates_updated_at ON meal_templates(updated_at);
`,
	},
	{
		version: 5,
		name:    "habit_logs",
		sql: `
CREATE TABLE IF NOT EXISTS water_logs (
  id TEXT PRIMARY KEY,
  person_id TEXT NOT NULL,
  date TEXT NOT NULL,
  amount_ml REAL NOT NULL CHECK(amount_ml > 0),
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_water_logs_person_date ON water_logs(person_id, date);

CREATE TABLE IF NOT EXISTS exercise_logs (
  id TEXT PRIMARY KEY,
  person_id TEXT NOT NULL,
  date TEXT NOT NULL,
  minutes REAL NOT NULL CHECK(minutes > 0),
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exercise_logs_person_date ON exercise_logs(person_id, date);
`,
	},
	{
		version: 6,
		name:    "person_habit_goals",
		columns: []column{
			{table: "persons", name: "water_goal_ml", ddl: `INTEGER NOT NULL DEFAULT 0`},
			{table: "persons", name: "exercise_goal_min", ddl: `INTEGER NOT NULL DEFAULT 0`},
		},
		backfill: backfillHabitGoals,
	},
	{
		version: 7,
		name:    "recipes_goal_periods",
		sql: `
CREATE TABLE IF NOT EXISTS recipes (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  servings_default REAL NOT NULL CHECK(servings_default > 0),
  items_json TEXT NOT NULL,
  total_grams REAL NOT NULL CHECK(total_grams > 0),
  totals_json TEXT NOT NULL,
  per100g_json TEXT NOT NULL,
  per_serving_json TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recipes_updated_at ON recipes(updated_at);

CREATE TABLE IF NOT EXISTS goal_periods (
  id TEXT PRIMARY KEY,
  person_id TEXT NOT NULL,
  name TEXT NOT NULL,
  start_date TEXT NOT NULL,
  end_date TEXT NOT NULL,
  weekday_goals_json TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  CHECK(start_date <= end_date)
);
CREATE INDEX IF NOT EXISTS idx_goal_periods_person_range ON goal_periods(person_id, start_date, end_date);
CREATE INDEX IF NOT EXISTS idx_goal_periods_person_updated_at ON goal_periods(person_id, updated_at);
`,
	},
	{
		version: 8,
		name:    "fasting_logs",
		sql: `
CREATE TABLE IF NOT EXISTS fasting_logs (
  id TEXT PRIMARY KEY,
  person_id TEXT NOT NULL,
  start_at INTEGER NOT NULL,
  end_at INTEGER,
  date_key TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  CHECK(end_at IS NULL OR end_at > start_at)
);
CREATE INDEX IF NOT EXISTS idx_fasting_logs_person_start ON fasting_logs(person_id, start_at);
CREATE INDEX IF NOT EXISTS idx_fasting_logs_person_date_key ON fasting_logs(person_id, date_key);
CREATE UNIQUE INDEX IF NOT EXISTS idx_fasting_logs_active ON fasting_logs(person_id) WHERE end_at IS NULL;
`,
	},
}

// backfillMacroTargets gives every person a macro targets object.
func backfillMacroTargets(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
UPDATE persons
SET macro_targets_json = '{"p":null,"c":null,"f":null}'
WHERE json_valid(macro_targets_json) = 0 OR json_type(macro_targets_json) <> 'object'
`)
	return err
}

// backfillHabitGoals defaults absent or invalid habit goals.
func backfillHabitGoals(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `UPDATE persons SET water_goal_ml = 2000 WHERE water_goal_ml IS NULL OR water_goal_ml <= 0`); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `UPDATE persons SET exercise_goal_min = 30 WHERE exercise_goal_min IS NULL OR exercise_goal_min <= 0`)
	return err
}

func ApplyMigrations(db *sql.DB) error {
	return ApplyMigrationsTo(db, LatestVersion)
}

// ApplyMigrationsTo applies every pending migration up to and including
// target in a single transaction.
func ApplyMigrationsTo(db *sql.DB, target int) error {
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range migrations {
		if m.version > target {
			break
		}
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE version = ?`, m.version).Scan(&exists)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration version %d: %w", m.version, err)
		}

		if m.sql != "" {
			if _, err := tx.ExecContext(ctx, m.sql); err != nil {
				return fmt.Errorf("apply migration version %d (%s): %w", m.version, m.name, err)
			}
		}
		for _, c := range m.columns {
			if err := ensureColumn(ctx, tx, c); err != nil {
				return fmt.Errorf("apply migration version %d (%s): %w", m.version, m.name, err)
			}
		}
		if m.backfill != nil {
			if err := m.backfill(ctx, tx); err != nil {
				return fmt.Errorf("backfill migration version %d (%s): %w", m.version, m.name, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES(?, ?)`, m.version, m.name); err != nil {
			return fmt.Errorf("record migration version %d: %w", m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

func ensureColumn(ctx context.Context, tx *sql.Tx, c column) error {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM pragma_table_info(?) WHERE name = ?`, c.table, c.name).Scan(&n); err != nil {
		return fmt.Errorf("inspect %s.%s: %w", c.table, c.name, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, c.table, c.name, c.ddl)); err != nil {
		return fmt.Errorf("add column %s.%s: %w", c.table, c.name, err)
	}
	return nil
}

// SchemaVersion reports the highest applied migration version.
func SchemaVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow(`SELECT IFNULL(MAX(version), 0) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}
