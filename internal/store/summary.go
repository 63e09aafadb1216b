package store

import (
	"context"

	"github.com/redboxergaming-hash/trackerv8/internal/analytics"
	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

type DaySummary struct {
	PersonID        string             `json:"personId"`
	Date            string             `json:"date"`
	EntryCount      int                `json:"entryCount"`
	Totals          model.Macros       `json:"totals"`
	Goal            model.ResolvedGoal `json:"goal"`
	RemainingKcal   float64            `json:"remainingKcal"`
	WaterMl         float64            `json:"waterMl"`
	WaterGoalMl     int                `json:"waterGoalMl"`
	ExerciseMin     float64            `json:"exerciseMin"`
	ExerciseGoalMin int                `json:"exerciseGoalMin"`
}

// DaySummary totals a person's day against the goal in effect for it.
func (s *Store) DaySummary(ctx context.Context, personID, date string) (DaySummary, error) {
	if err := model.RequireDate("date", date); err != nil {
		return DaySummary{}, err
	}
	p, err := s.Person(ctx, personID)
	if err != nil {
		return DaySummary{}, err
	}
	goal, err := s.EffectiveGoal(ctx, personID, date)
	if err != nil {
		return DaySummary{}, err
	}
	entries, err := s.EntriesForPersonDate(ctx, personID, date)
	if err != nil {
		return DaySummary{}, err
	}
	var totals model.Macros
	for _, e := range entries {
		totals = totals.Add(e.Macros())
	}
	totals = totals.Round(1)
	water, err := s.WaterTotal(ctx, personID, date)
	if err != nil {
		return DaySummary{}, err
	}
	exercise, err := s.ExerciseTotal(ctx, personID, date)
	if err != nil {
		return DaySummary{}, err
	}
	return DaySummary{
		PersonID:        personID,
		Date:            date,
		EntryCount:      len(entries),
		Totals:          totals,
		Goal:            goal,
		RemainingKcal:   model.RoundTo(goal.KcalGoal-totals.Kcal, 1),
		WaterMl:         water,
		WaterGoalMl:     p.WaterGoalMl,
		ExerciseMin:     exercise,
		ExerciseGoalMin: p.ExerciseGoalMin,
	}, nil
}

// LoggingStreak counts consecutive logged days ending on date.
func (s *Store) LoggingStreak(ctx context.Context, personID, date string) (int, error) {
	dates, err := s.LoggedDates(ctx, personID)
	if err != nil {
		return 0, err
	}
	return analytics.LoggingStreak(dates, date), nil
}

// Consistency scores the seven days ending on date.
func (s *Store) Consistency(ctx context.Context, personID, date string) (analytics.Consistency, error) {
	start, err := model.ShiftDate(date, -(analytics.ConsistencyWindowDays - 1))
	if err != nil {
		return analytics.Consistency{}, err
	}
	entries, err := s.EntriesInRange(ctx, personID, start, date)
	if err != nil {
		return analytics.Consistency{}, err
	}
	protein := map[string]float64{}
	logged := map[string]bool{}
	for _, e := range entries {
		logged[e.Date] = true
		protein[e.Date] += e.P
	}
	days := make([]analytics.DayStatus, 0, analytics.ConsistencyWindowDays)
	for i := 0; i < analytics.ConsistencyWindowDays; i++ {
		day, _ := model.ShiftDate(start, i)
		status := analytics.DayStatus{Date: day, Logged: logged[day]}
		if status.Logged {
			goal, err := s.EffectiveGoal(ctx, personID, day)
			if err != nil {
				return analytics.Consistency{}, err
			}
			if target := goal.MacroTargets.P; target != nil && *target > 0 {
				status.ProteinGoalMet = protein[day] >= *target
			}
		}
		days = append(days, status)
	}
	streak, err := s.LoggingStreak(ctx, personID, date)
	if err != nil {
		return analytics.Consistency{}, err
	}
	return analytics.ConsistencyScore(days, streak), nil
}

// RollingIntakeDays is the window of the averaged kcal and protein series.
const RollingIntakeDays = 7

type IntakeAverages struct {
	Kcal    []analytics.Point `json:"kcal"`
	Protein []analytics.Point `json:"protein"`
}

// RollingIntake averages daily kcal and protein over trailing windows for the
// RollingIntakeDays days ending on date. Days without entries are skipped.
func (s *Store) RollingIntake(ctx context.Context, personID, date string) (IntakeAverages, error) {
	span := 2*RollingIntakeDays - 1
	start, err := model.ShiftDate(date, -(span - 1))
	if err != nil {
		return IntakeAverages{}, err
	}
	entries, err := s.EntriesInRange(ctx, personID, start, date)
	if err != nil {
		return IntakeAverages{}, err
	}
	totals := map[string]model.Macros{}
	for _, e := range entries {
		totals[e.Date] = totals[e.Date].Add(e.Macros())
	}
	kcal := make([]analytics.Point, 0, span)
	protein := make([]analytics.Point, 0, span)
	for i := 0; i < span; i++ {
		day, _ := model.ShiftDate(start, i)
		k, p := analytics.Point{Date: day}, analytics.Point{Date: day}
		if t, ok := totals[day]; ok {
			k.Value, p.Value = &t.Kcal, &t.P
		}
		kcal = append(kcal, k)
		protein = append(protein, p)
	}
	return IntakeAverages{
		Kcal:    analytics.RollingAverage(kcal, RollingIntakeDays)[span-RollingIntakeDays:],
		Protein: analytics.RollingAverage(protein, RollingIntakeDays)[span-RollingIntakeDays:],
	}, nil
}

// LongestLoggingStreak finds the longest run of consecutive logged days on or
// before date.
func (s *Store) LongestLoggingStreak(ctx context.Context, personID, date string) (int, error) {
	if err := model.RequireDate("date", date); err != nil {
		return 0, err
	}
	dates, err := s.LoggedDates(ctx, personID)
	if err != nil {
		return 0, err
	}
	logged := make(map[string]bool, len(dates))
	first := ""
	for _, d := range dates {
		if d > date {
			continue
		}
		logged[d] = true
		first = d
	}
	if first == "" {
		return 0, nil
	}
	days := make([]string, 0, len(logged))
	for day := first; day <= date; day, _ = model.ShiftDate(day, 1) {
		days = append(days, day)
	}
	_, longest := analytics.BooleanStreak(days, func(day string) bool { return logged[day] })
	return longest, nil
}
