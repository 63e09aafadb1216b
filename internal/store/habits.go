package store

import (
	"context"
	"fmt"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

func (s *Store) requirePerson(ctx context.Context, exec sqlExecutor, personID string) error {
	if err := model.RequireID("personId", personID); err != nil {
		return err
	}
	ok, err := personExists(ctx, exec, personID)
	if err != nil {
		return err
	}
	if !ok {
		return model.NotFound("person", personID)
	}
	return nil
}

func (s *Store) AddWaterLog(ctx context.Context, personID, date string, amountMl float64) (model.WaterLog, error) {
	if err := model.RequireDate("date", date); err != nil {
		return model.WaterLog{}, err
	}
	if err := model.RequirePositive("amountMl", amountMl); err != nil {
		return model.WaterLog{}, err
	}
	if err := s.requirePerson(ctx, s.db, personID); err != nil {
		return model.WaterLog{}, err
	}
	l := model.WaterLog{ID: s.newID(), PersonID: personID, Date: date, AmountMl: amountMl, CreatedAt: s.stamp()}
	if err := writeWaterLog(ctx, s.db, l); err != nil {
		return model.WaterLog{}, err
	}
	return l, nil
}

func writeWaterLog(ctx context.Context, exec sqlExecutor, l model.WaterLog) error {
	_, err := exec.ExecContext(ctx, `INSERT INTO water_logs(id, person_id, date, amount_ml, created_at) VALUES(?, ?, ?, ?, ?)`,
		l.ID, l.PersonID, l.Date, l.AmountMl, toMillis(l.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert water log: %w", err)
	}
	return nil
}

func (s *Store) AddExerciseLog(ctx context.Context, personID, date string, minutes float64) (model.ExerciseLog, error) {
	if err := model.RequireDate("date", date); err != nil {
		return model.ExerciseLog{}, err
	}
	if err := model.RequirePositive("minutes", minutes); err != nil {
		return model.ExerciseLog{}, err
	}
	if err := s.requirePerson(ctx, s.db, personID); err != nil {
		return model.ExerciseLog{}, err
	}
	l := model.ExerciseLog{ID: s.newID(), PersonID: personID, Date: date, Minutes: minutes, CreatedAt: s.stamp()}
	if err := writeExerciseLog(ctx, s.db, l); err != nil {
		return model.ExerciseLog{}, err
	}
	return l, nil
}

func writeExerciseLog(ctx context.Context, exec sqlExecutor, l model.ExerciseLog) error {
	_, err := exec.ExecContext(ctx, `INSERT INTO exercise_logs(id, person_id, date, minutes, created_at) VALUES(?, ?, ?, ?, ?)`,
		l.ID, l.PersonID, l.Date, l.Minutes, toMillis(l.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert exercise log: %w", err)
	}
	return nil
}

// WaterTotal sums the water logged by a person on date.
func (s *Store) WaterTotal(ctx context.Context, personID, date string) (float64, error) {
	return s.sumLogs(ctx, `SELECT IFNULL(SUM(amount_ml), 0) FROM water_logs WHERE person_id = ? AND date = ?`, personID, date)
}

func (s *Store) ExerciseTotal(ctx context.Context, personID, date string) (float64, error) {
	return s.sumLogs(ctx, `SELECT IFNULL(SUM(minutes), 0) FROM exercise_logs WHERE person_id = ? AND date = ?`, personID, date)
}

func (s *Store) sumLogs(ctx context.Context, query, personID, date string) (float64, error) {
	var total float64
	if err := s.db.QueryRowContext(ctx, query, personID, date).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum logs: %w", err)
	}
	return total, nil
}

func (s *Store) listWaterLogs(ctx context.Context) ([]model.WaterLog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, person_id, date, amount_ml, created_at FROM water_logs ORDER BY date, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list water logs: %w", err)
	}
	defer rows.Close()
	out := make([]model.WaterLog, 0)
	for rows.Next() {
		var l model.WaterLog
		var created int64
		if err := rows.Scan(&l.ID, &l.PersonID, &l.Date, &l.AmountMl, &created); err != nil {
			return nil, fmt.Errorf("scan water log: %w", err)
		}
		l.CreatedAt = fromMillis(created)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) listExerciseLogs(ctx context.Context) ([]model.ExerciseLog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, person_id, date, minutes, created_at FROM exercise_logs ORDER BY date, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list exercise logs: %w", err)
	}
	defer rows.Close()
	out := make([]model.ExerciseLog, 0)
	for rows.Next() {
		var l model.ExerciseLog
		var created int64
		if err := rows.Scan(&l.ID, &l.PersonID, &l.Date, &l.Minutes, &created); err != nil {
			return nil, fmt.Errorf("scan exercise log: %w", err)
		}
		l.CreatedAt = fromMillis(created)
		out = append(out, l)
	}
	return out, rows.Err()
}
