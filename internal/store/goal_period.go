package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

const goalPeriodColumns = `id, person_id, name, start_date, end_date, weekday_goals_json, created_at, updated_at`

func (s *Store) UpsertGoalPeriod(ctx context.Context, g model.GoalPeriod) (model.GoalPeriod, error) {
	g, err := model.NewGoalPeriod(g)
	if err != nil {
		return model.GoalPeriod{}, err
	}
	if g.ID == "" {
		g.ID = s.newID()
	}
	now := s.stamp()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requirePerson(ctx, tx, g.PersonID); err != nil {
			return err
		}
		created, err := existingCreatedAt(ctx, tx, "goal_periods", g.ID)
		if err != nil {
			return err
		}
		g.CreatedAt = created
		if g.CreatedAt.IsZero() {
			g.CreatedAt = now
		}
		g.UpdatedAt = now
		return writeGoalPeriod(ctx, tx, g)
	})
	if err != nil {
		return model.GoalPeriod{}, err
	}
	return g, nil
}

func writeGoalPeriod(ctx context.Context, exec sqlExecutor, g model.GoalPeriod) error {
	goals, err := encodeJSON(g.WeekdayGoals)
	if err != nil {
		return err
	}
	_, err = exec.ExecContext(ctx, `INSERT OR REPLACE INTO goal_periods(`+goalPeriodColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.PersonID, g.Name, g.StartDate, g.EndDate, goals, toMillis(g.CreatedAt), toMillis(g.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert goal period %q: %w", g.ID, err)
	}
	return nil
}

func queryGoalPeriods(ctx context.Context, exec sqlExecutor, query string, args ...any) ([]model.GoalPeriod, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query goal periods: %w", err)
	}
	defer rows.Close()
	out := make([]model.GoalPeriod, 0)
	for rows.Next() {
		var g model.GoalPeriod
		var goals string
		var created, updated int64
		if err := rows.Scan(&g.ID, &g.PersonID, &g.Name, &g.StartDate, &g.EndDate, &goals, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan goal period: %w", err)
		}
		if err := decodeJSON(goals, &g.WeekdayGoals); err != nil {
			return nil, fmt.Errorf("goal period %q weekday goals: %w", g.ID, err)
		}
		g.CreatedAt = fromMillis(created)
		g.UpdatedAt = fromMillis(updated)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goal periods: %w", err)
	}
	return out, nil
}

// GoalPeriods lists a person's goal periods by start date.
func (s *Store) GoalPeriods(ctx context.Context, personID string) ([]model.GoalPeriod, error) {
	return queryGoalPeriods(ctx, s.db, `SELECT `+goalPeriodColumns+` FROM goal_periods WHERE person_id = ? ORDER BY start_date ASC, updated_at ASC`, personID)
}

func (s *Store) DeleteGoalPeriod(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, "goal_periods", "goal period", id)
}

// ResolveGoalForPersonDate returns the goal of the period covering date, or
// nil when no period covers it. Overlapping periods resolve to the one that
// started last, then the one updated last.
func (s *Store) ResolveGoalForPersonDate(ctx context.Context, personID, date string) (*model.ResolvedGoal, error) {
	if err := model.RequireDate("date", date); err != nil {
		return nil, err
	}
	p, err := s.Person(ctx, personID)
	if err != nil {
		return nil, err
	}
	periods, err := queryGoalPeriods(ctx, s.db, `SELECT `+goalPeriodColumns+` FROM goal_periods
WHERE person_id = ? AND start_date <= ? AND end_date >= ?
ORDER BY start_date DESC, updated_at DESC
LIMIT 1`, personID, date, date)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, nil
	}
	goal, err := periods[0].Resolve(p, date)
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

// EffectiveGoal is the resolved period goal for date, or the person's static
// goal outside every period.
func (s *Store) EffectiveGoal(ctx context.Context, personID, date string) (model.ResolvedGoal, error) {
	goal, err := s.ResolveGoalForPersonDate(ctx, personID, date)
	if err != nil {
		return model.ResolvedGoal{}, err
	}
	if goal != nil {
		return *goal, nil
	}
	p, err := s.Person(ctx, personID)
	if err != nil {
		return model.ResolvedGoal{}, err
	}
	return model.StaticGoal(p), nil
}
