package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

func TestUpsertPersonDefaultsAndPreservesCreatedAt(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	p := mustPerson(t, s, "  Alex ", 2200)
	if p.Name != "Alex" || p.WaterGoalMl != 2000 || p.ExerciseGoalMin != 30 {
		t.Fatalf("unexpected defaults %+v", p)
	}

	p.KcalGoal = 2000
	edited, err := s.UpsertPerson(ctx, p)
	if err != nil {
		t.Fatalf("edit person: %v", err)
	}
	if !edited.CreatedAt.Equal(p.CreatedAt) {
		t.Fatalf("expected createdAt %v preserved, got %v", p.CreatedAt, edited.CreatedAt)
	}
	if !edited.UpdatedAt.After(p.UpdatedAt) {
		t.Fatalf("expected updatedAt refreshed")
	}

	got, err := s.Person(ctx, p.ID)
	if err != nil {
		t.Fatalf("get person: %v", err)
	}
	if got.KcalGoal != 2000 {
		t.Fatalf("expected kcal goal 2000, got %d", got.KcalGoal)
	}

	if _, err := s.UpsertPerson(ctx, model.Person{Name: "Bad", KcalGoal: 0}); !model.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := s.Person(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpsertPersonGeneratesIDForBlankID(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.UpsertPerson(ctx, model.Person{ID: "   ", Name: "Alex", KcalGoal: 2000})
	if err != nil {
		t.Fatalf("upsert person: %v", err)
	}
	if p.ID == "" {
		t.Fatalf("expected generated id, got blank")
	}
	if _, err := s.Person(ctx, p.ID); err != nil {
		t.Fatalf("get person: %v", err)
	}
	trimmed, err := s.UpsertPerson(ctx, model.Person{ID: " p1 ", Name: "Sam", KcalGoal: 1800})
	if err != nil || trimmed.ID != "p1" {
		t.Fatalf("expected trimmed id p1, got %q %v", trimmed.ID, err)
	}
}

func TestDeletePersonCascadeRemovesEveryDependentRow(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	alex := mustPerson(t, s, "Alex", 2200)
	sam := mustPerson(t, s, "Sam", 1800)

	for _, p := range []model.Person{alex, sam} {
		item := model.RecentItem{FoodID: "banana", Label: "Banana", Nutrition: model.Per100g{Kcal: 89, P: 1.1, C: 23, F: 0.3}}
		mustEntry(t, s, model.Entry{
			PersonID: p.ID, Date: "2024-01-01", Time: "08:00", FoodID: "banana", FoodName: "Banana",
			AmountGrams: 120, Kcal: 106.8, P: 1.3, C: 27.6, F: 0.4,
			Recent: &item, LastPortionKey: model.LastPortionKey(p.ID, "banana"),
		})
		if _, err := s.ToggleFavorite(ctx, p.ID, item); err != nil {
			t.Fatalf("toggle favorite: %v", err)
		}
		if _, err := s.AddWeightLog(ctx, p.ID, "2024-01-01", 80); err != nil {
			t.Fatalf("add weight: %v", err)
		}
		if _, err := s.AddWaterLog(ctx, p.ID, "2024-01-01", 500); err != nil {
			t.Fatalf("add water: %v", err)
		}
		if _, err := s.AddExerciseLog(ctx, p.ID, "2024-01-01", 30); err != nil {
			t.Fatalf("add exercise: %v", err)
		}
		if _, err := s.StartFast(ctx, p.ID, time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)); err != nil {
			t.Fatalf("start fast: %v", err)
		}
		if _, err := s.UpsertGoalPeriod(ctx, model.GoalPeriod{PersonID: p.ID, Name: "Cut", StartDate: "2024-01-01", EndDate: "2024-01-31"}); err != nil {
			t.Fatalf("upsert goal period: %v", err)
		}
		if _, err := s.SetDashboardLayout(ctx, p.ID, model.DashboardLayout{Order: []string{"macros"}}); err != nil {
			t.Fatalf("set layout: %v", err)
		}
	}

	if err := s.DeletePersonCascade(ctx, alex.ID); err != nil {
		t.Fatalf("delete cascade: %v", err)
	}

	for _, table := range []string{"entries", "favorites", "recents", "weight_logs", "water_logs", "exercise_logs", "fasting_logs", "goal_periods"} {
		var gone, kept int
		if err := s.DB().QueryRow(`SELECT COUNT(1) FROM `+table+` WHERE person_id = ?`, alex.ID).Scan(&gone); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if err := s.DB().QueryRow(`SELECT COUNT(1) FROM `+table+` WHERE person_id = ?`, sam.ID).Scan(&kept); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if gone != 0 || kept != 1 {
			t.Fatalf("%s: expected 0 rows for deleted person and 1 for other, got %d and %d", table, gone, kept)
		}
	}

	var alexMeta, samMeta int
	if err := s.DB().QueryRow(`SELECT COUNT(1) FROM meta WHERE instr(key, ?) > 0`, alex.ID).Scan(&alexMeta); err != nil {
		t.Fatalf("count meta: %v", err)
	}
	if err := s.DB().QueryRow(`SELECT COUNT(1) FROM meta WHERE instr(key, ?) > 0`, sam.ID).Scan(&samMeta); err != nil {
		t.Fatalf("count meta: %v", err)
	}
	if alexMeta != 0 || samMeta != 2 {
		t.Fatalf("expected meta 0/2, got %d/%d", alexMeta, samMeta)
	}

	if _, err := s.Person(ctx, alex.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected person gone, got %v", err)
	}
	if err := s.DeletePersonCascade(ctx, alex.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
