package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

func TestResolveGoalForPersonDate(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.UpsertPerson(ctx, model.Person{Name: "Alex", KcalGoal: 2200, MacroTargets: model.MacroTargets{P: ptr(160)}})
	if err != nil {
		t.Fatalf("upsert person: %v", err)
	}
	if _, err := s.UpsertGoalPeriod(ctx, model.GoalPeriod{
		PersonID:     p.ID,
		Name:         "January",
		StartDate:    "2024-01-01",
		EndDate:      "2024-01-07",
		WeekdayGoals: map[string]model.WeekdayGoal{"Mon": {Kcal: ptr(1900), Protein: ptr(170)}},
	}); err != nil {
		t.Fatalf("upsert goal period: %v", err)
	}

	monday, err := s.ResolveGoalForPersonDate(ctx, p.ID, "2024-01-01")
	if err != nil {
		t.Fatalf("resolve monday: %v", err)
	}
	if monday == nil || monday.KcalGoal != 1900 || monday.Weekday != "mon" || *monday.MacroTargets.P != 170 {
		t.Fatalf("unexpected monday goal %+v", monday)
	}

	tuesday, err := s.ResolveGoalForPersonDate(ctx, p.ID, "2024-01-02")
	if err != nil {
		t.Fatalf("resolve tuesday: %v", err)
	}
	if tuesday == nil || tuesday.KcalGoal != 2200 || *tuesday.MacroTargets.P != 160 {
		t.Fatalf("expected static fallback on tuesday, got %+v", tuesday)
	}

	outside, err := s.ResolveGoalForPersonDate(ctx, p.ID, "2024-02-01")
	if err != nil {
		t.Fatalf("resolve outside: %v", err)
	}
	if outside != nil {
		t.Fatalf("expected nil outside period, got %+v", outside)
	}

	if _, err := s.UpsertGoalPeriod(ctx, model.GoalPeriod{PersonID: p.ID, Name: "Backwards", StartDate: "2024-03-10", EndDate: "2024-03-01"}); !model.IsValidation(err) {
		t.Fatalf("expected validation error for end before start, got %v", err)
	}
}

func TestDaySummaryAndConsistency(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.UpsertPerson(ctx, model.Person{Name: "Alex", KcalGoal: 2000, MacroTargets: model.MacroTargets{P: ptr(100)}})
	if err != nil {
		t.Fatalf("upsert person: %v", err)
	}
	for i := 0; i < 7; i++ {
		day, _ := model.ShiftDate("2024-01-01", i)
		protein := 50.0
		if i < 5 {
			protein = 120
		}
		mustEntry(t, s, model.Entry{PersonID: p.ID, Date: day, FoodName: "Chicken", AmountGrams: 200, Kcal: 500, P: protein})
	}
	if _, err := s.AddWaterLog(ctx, p.ID, "2024-01-07", 750); err != nil {
		t.Fatalf("add water: %v", err)
	}

	summary, err := s.DaySummary(ctx, p.ID, "2024-01-07")
	if err != nil {
		t.Fatalf("day summary: %v", err)
	}
	if summary.EntryCount != 1 || summary.RemainingKcal != 1500 || summary.WaterMl != 750 || summary.WaterGoalMl != 2000 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	c, err := s.Consistency(ctx, p.ID, "2024-01-07")
	if err != nil {
		t.Fatalf("consistency: %v", err)
	}
	if c.LoggedDays != 7 || c.ProteinGoalMetDays != 5 || c.StreakDays != 7 || c.Score != 91 {
		t.Fatalf("unexpected consistency %+v", c)
	}
}

func TestFastingLifecycle(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	p := mustPerson(t, s, "Alex", 2200)

	start := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	f, err := s.StartFast(ctx, p.ID, start)
	if err != nil {
		t.Fatalf("start fast: %v", err)
	}
	if f.DateKey != "2024-01-01" || !f.Active() {
		t.Fatalf("unexpected fast %+v", f)
	}
	if _, err := s.StartFast(ctx, p.ID, start.Add(time.Hour)); !model.IsValidation(err) {
		t.Fatalf("expected active fast rejection, got %v", err)
	}
	if _, err := s.EndActiveFast(ctx, p.ID, start.Add(-time.Hour)); !model.IsValidation(err) {
		t.Fatalf("expected end before start rejection, got %v", err)
	}

	ended, err := s.EndActiveFast(ctx, p.ID, start.Add(16*time.Hour))
	if err != nil {
		t.Fatalf("end fast: %v", err)
	}
	if ended.Duration(time.Time{}) != 16*time.Hour {
		t.Fatalf("expected 16h fast, got %v", ended.Duration(time.Time{}))
	}
	active, err := s.ActiveFast(ctx, p.ID)
	if err != nil || active != nil {
		t.Fatalf("expected no active fast, got %+v %v", active, err)
	}
	latest, err := s.LatestCompletedFast(ctx, p.ID)
	if err != nil || latest == nil || latest.ID != f.ID {
		t.Fatalf("expected latest completed fast %s, got %+v %v", f.ID, latest, err)
	}

	next := time.Date(2024, 1, 2, 20, 0, 0, 0, time.UTC)
	if _, err := s.StartFast(ctx, p.ID, next); err != nil {
		t.Fatalf("start second fast: %v", err)
	}
	if _, err := s.EndActiveFast(ctx, p.ID, next.Add(14*time.Hour)); err != nil {
		t.Fatalf("end second fast: %v", err)
	}
	streak, err := s.FastingStreak(ctx, p.ID)
	if err != nil || streak != 2 {
		t.Fatalf("expected streak 2, got %d %v", streak, err)
	}
}
