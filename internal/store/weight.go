package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redboxergaming-hash/trackerv8/internal/analytics"
	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

const weightColumns = `id, person_id, date, scale_weight, trend_weight, created_at, updated_at`

// AddWeightLog records the scale weight for a person and date. A second log
// for the same date replaces the first. Every trend weight of the person is
// recomputed in the same transaction.
func (s *Store) AddWeightLog(ctx context.Context, personID, date string, scaleWeight float64) (model.WeightLog, error) {
	if err := model.RequireID("personId", personID); err != nil {
		return model.WeightLog{}, err
	}
	if err := model.RequireDate("date", date); err != nil {
		return model.WeightLog{}, err
	}
	if err := model.RequirePositive("scaleWeight", scaleWeight); err != nil {
		return model.WeightLog{}, err
	}

	now := s.stamp()
	var saved model.WeightLog
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO weight_logs(`+weightColumns+`) VALUES(?, ?, ?, ?, NULL, ?, ?)
ON CONFLICT(person_id, date) DO UPDATE SET
  scale_weight=excluded.scale_weight,
  updated_at=excluded.updated_at
`, s.newID(), personID, date, scaleWeight, toMillis(now), toMillis(now))
		if err != nil {
			return fmt.Errorf("upsert weight log: %w", err)
		}
		logs, err := recomputePersonTrends(ctx, tx, personID)
		if err != nil {
			return err
		}
		for _, l := range logs {
			if l.Date == date {
				saved = l
			}
		}
		return nil
	})
	if err != nil {
		return model.WeightLog{}, err
	}
	return saved, nil
}

// recomputePersonTrends rewrites trend_weight for every log of the person.
func recomputePersonTrends(ctx context.Context, tx *sql.Tx, personID string) ([]model.WeightLog, error) {
	logs, err := queryWeightLogs(ctx, tx, `SELECT `+weightColumns+` FROM weight_logs WHERE person_id = ? ORDER BY date ASC`, personID)
	if err != nil {
		return nil, err
	}
	logs = analytics.RecomputeTrends(logs)
	for _, l := range logs {
		if _, err := tx.ExecContext(ctx, `UPDATE weight_logs SET trend_weight = ? WHERE id = ?`, nullableFloat(l.TrendWeight), l.ID); err != nil {
			return nil, fmt.Errorf("update trend weight %q: %w", l.ID, err)
		}
	}
	return logs, nil
}

func queryWeightLogs(ctx context.Context, exec sqlExecutor, query string, args ...any) ([]model.WeightLog, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query weight logs: %w", err)
	}
	defer rows.Close()
	out := make([]model.WeightLog, 0)
	for rows.Next() {
		var l model.WeightLog
		var trend sql.NullFloat64
		var created, updated int64
		if err := rows.Scan(&l.ID, &l.PersonID, &l.Date, &l.ScaleWeight, &trend, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan weight log: %w", err)
		}
		l.TrendWeight = fromNullableFloat(trend)
		l.CreatedAt = fromMillis(created)
		l.UpdatedAt = fromMillis(updated)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weight logs: %w", err)
	}
	return out, nil
}

func (s *Store) WeightLogsByPerson(ctx context.Context, personID string) ([]model.WeightLog, error) {
	return queryWeightLogs(ctx, s.db, `SELECT `+weightColumns+` FROM weight_logs WHERE person_id = ? ORDER BY date ASC`, personID)
}

func (s *Store) WeightLogsInRange(ctx context.Context, personID, from, to string) ([]model.WeightLog, error) {
	return queryWeightLogs(ctx, s.db, `SELECT `+weightColumns+` FROM weight_logs
WHERE person_id = ? AND date >= ? AND date <= ?
ORDER BY date ASC`, personID, from, to)
}

// WeeklyWeight returns the seven days ending on endDate with their trend
// weights, plus the 3 and 7 day trend deltas of the whole series.
func (s *Store) WeeklyWeight(ctx context.Context, personID, endDate string) ([]analytics.Point, analytics.WeightDeltas, error) {
	start, err := model.ShiftDate(endDate, -(analytics.TrendWindowDays - 1))
	if err != nil {
		return nil, analytics.WeightDeltas{}, err
	}
	logs, err := s.WeightLogsInRange(ctx, personID, start, endDate)
	if err != nil {
		return nil, analytics.WeightDeltas{}, err
	}
	byDate := make(map[string]*float64, len(logs))
	for _, l := range logs {
		byDate[l.Date] = l.TrendWeight
	}
	points := make([]analytics.Point, 0, analytics.TrendWindowDays)
	for i := 0; i < analytics.TrendWindowDays; i++ {
		day, _ := model.ShiftDate(start, i)
		points = append(points, analytics.Point{Date: day, Value: byDate[day]})
	}
	all, err := s.WeightLogsByPerson(ctx, personID)
	if err != nil {
		return nil, analytics.WeightDeltas{}, err
	}
	return points, analytics.ComputeWeightDeltas(all), nil
}
