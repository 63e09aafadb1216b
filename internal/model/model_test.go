package model_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

func validEntry() model.Entry {
	return model.Entry{
		PersonID:    "p1",
		Date:        "2024-01-01",
		Time:        "08:15",
		FoodID:      "gf_oats",
		FoodName:    "Oats",
		AmountGrams: 60,
		Kcal:        233.4,
		P:           10,
		C:           40,
		F:           4,
	}
}

func TestNewEntryRejectsNegativeAndNonFinite(t *testing.T) {
	t.Parallel()

	cases := []struct {
		field string
		mut   func(*model.Entry)
	}{
		{"amountGrams", func(e *model.Entry) { e.AmountGrams = -1 }},
		{"kcal", func(e *model.Entry) { e.Kcal = math.NaN() }},
		{"p", func(e *model.Entry) { e.P = -0.5 }},
		{"c", func(e *model.Entry) { e.C = math.Inf(1) }},
		{"f", func(e *model.Entry) { e.F = -3 }},
	}
	for _, tc := range cases {
		e := validEntry()
		tc.mut(&e)
		_, err := model.NewEntry(e)
		var ve *model.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected validation error, got %v", tc.field, err)
		}
		if ve.Field != tc.field {
			t.Fatalf("expected field %q, got %q (%v)", tc.field, ve.Field, err)
		}
	}

	if _, err := model.NewEntry(validEntry()); err != nil {
		t.Fatalf("valid entry rejected: %v", err)
	}
}

func TestNewPersonDefaultsHabitGoals(t *testing.T) {
	t.Parallel()

	p, err := model.NewPerson(model.Person{ID: "p1", Name: "  Alex ", KcalGoal: 2200, WaterGoalMl: -5})
	if err != nil {
		t.Fatalf("new person: %v", err)
	}
	if p.Name != "Alex" || p.WaterGoalMl != 2000 || p.ExerciseGoalMin != 30 {
		t.Fatalf("unexpected normalized person: %+v", p)
	}

	if _, err := model.NewPerson(model.Person{Name: "Sam", KcalGoal: 0}); err == nil {
		t.Fatalf("expected kcal goal validation error")
	}
	if _, err := model.NewPerson(model.Person{ID: "  ", Name: "Sam", KcalGoal: 1800}); !model.IsValidation(err) {
		t.Fatalf("expected blank id validation error, got %v", err)
	}
}

func TestNewFastingLogRequiresEndAfterStart(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err := model.NewFastingLog(model.FastingLog{ID: "f1", PersonID: "p1", StartAt: start, EndAt: &end, DateKey: "2024-01-01"})
	var ve *model.ValidationError
	if !errors.As(err, &ve) || ve.Field != "endAt" {
		t.Fatalf("expected endAt validation error, got %v", err)
	}
	if _, err := model.NewWaterLog(model.WaterLog{ID: "w1", PersonID: "p1", Date: "2024-01-01", AmountMl: 0}); !model.IsValidation(err) {
		t.Fatalf("expected amountMl validation error, got %v", err)
	}
}

func TestScalePer100gRoundsToOneDecimal(t *testing.T) {
	t.Parallel()

	banana := model.ScalePer100g(model.Per100g{Kcal: 89, P: 1.1, C: 22.8, F: 0.3}, 120)
	if banana.Kcal != 106.8 {
		t.Fatalf("expected 106.8 kcal, got %v", banana.Kcal)
	}
	oats := model.ScalePer100g(model.Per100g{Kcal: 389}, 60)
	if oats.Kcal != 233.4 {
		t.Fatalf("expected 233.4 kcal, got %v", oats.Kcal)
	}
}

func TestNewMealTemplateRejectsAnyInvalidItem(t *testing.T) {
	t.Parallel()

	tpl := model.MealTemplate{
		Name: "Breakfast",
		Items: []model.TemplateItem{
			{FoodKey: "banana", Label: "Banana", Per100g: model.Per100g{Kcal: 89}, GramsDefault: 120},
			{FoodKey: "oats", Label: "Oats", Per100g: model.Per100g{Kcal: 389}, GramsDefault: 0},
		},
	}
	_, err := model.NewMealTemplate(tpl)
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Field != "items[1].gramsDefault" {
		t.Fatalf("unexpected field %q", ve.Field)
	}

	tpl.Items = nil
	if _, err := model.NewMealTemplate(tpl); err == nil {
		t.Fatalf("expected empty item list to be rejected")
	}

	tpl.Name = "this template name is longer than forty characters"
	tpl.Items = []model.TemplateItem{{FoodKey: "a", Label: "A", GramsDefault: 1}}
	if _, err := model.NewMealTemplate(tpl); err == nil {
		t.Fatalf("expected long name to be rejected")
	}
}

func TestNewRecipeDerivesAggregates(t *testing.T) {
	t.Parallel()

	r, err := model.NewRecipe(model.Recipe{
		Name:            "Overnight oats",
		ServingsDefault: 2,
		Items: []model.RecipeItem{
			{FoodKey: "oats", Label: "Oats", Per100g: model.Per100g{Kcal: 389, P: 16.9, C: 66.3, F: 6.9}, Grams: 100},
			{FoodKey: "milk", Label: "Milk", Per100g: model.Per100g{Kcal: 64, P: 3.4, C: 4.8, F: 3.6}, Grams: 300},
		},
	})
	if err != nil {
		t.Fatalf("new recipe: %v", err)
	}
	if r.TotalGrams != 400 {
		t.Fatalf("expected total grams 400, got %v", r.TotalGrams)
	}
	if r.Totals.Kcal != 581 {
		t.Fatalf("expected total kcal 581, got %v", r.Totals.Kcal)
	}
	if r.PerServing.Kcal != 290.5 {
		t.Fatalf("expected per serving kcal 290.5, got %v", r.PerServing.Kcal)
	}
	if r.Per100g.Kcal != 145.3 {
		t.Fatalf("expected per 100g kcal 145.3, got %v", r.Per100g.Kcal)
	}

	if _, err := model.NewRecipe(model.Recipe{Name: "Empty", ServingsDefault: 1}); err == nil {
		t.Fatalf("expected recipe without items to be rejected")
	}
}

func TestGoalPeriodResolveFallsBackPerField(t *testing.T) {
	t.Parallel()

	kcal := 1900.0
	protein := 150.0
	staticP, staticF := 160.0, 70.0
	person := model.Person{ID: "p1", Name: "Alex", KcalGoal: 2200, MacroTargets: model.MacroTargets{P: &staticP, F: &staticF}}
	period, err := model.NewGoalPeriod(model.GoalPeriod{
		PersonID:  "p1",
		Name:      "Cut",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-07",
		WeekdayGoals: map[string]model.WeekdayGoal{
			"mon": {Kcal: &kcal, Protein: &protein},
		},
	})
	if err != nil {
		t.Fatalf("new goal period: %v", err)
	}

	monday, err := period.Resolve(person, "2024-01-01")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if monday.Weekday != "mon" || monday.KcalGoal != 1900 {
		t.Fatalf("unexpected monday goal: %+v", monday)
	}
	if *monday.MacroTargets.P != 150 || *monday.MacroTargets.F != 70 || monday.MacroTargets.C != nil {
		t.Fatalf("unexpected macro fallback: %+v", monday.MacroTargets)
	}

	tuesday, _ := period.Resolve(person, "2024-01-02")
	if tuesday.KcalGoal != 2200 {
		t.Fatalf("expected static kcal fallback on tuesday, got %v", tuesday.KcalGoal)
	}

	if _, err := model.NewGoalPeriod(model.GoalPeriod{PersonID: "p1", Name: "Bad", StartDate: "2024-02-01", EndDate: "2024-01-01"}); err == nil {
		t.Fatalf("expected end before start to be rejected")
	}
	if _, err := model.NewGoalPeriod(model.GoalPeriod{PersonID: "p1", Name: "Bad", StartDate: "2024-01-01", EndDate: "2024-01-02",
		WeekdayGoals: map[string]model.WeekdayGoal{"funday": {}}}); err == nil {
		t.Fatalf("expected unknown weekday to be rejected")
	}
}

func TestWeekdayKeyIsCalendarBased(t *testing.T) {
	t.Parallel()

	for date, want := range map[string]string{"2024-01-01": "mon", "2024-01-07": "sun", "2024-02-29": "thu"} {
		got, err := model.WeekdayKey(date)
		if err != nil {
			t.Fatalf("weekday %s: %v", date, err)
		}
		if got != want {
			t.Fatalf("weekday %s: expected %s, got %s", date, want, got)
		}
	}
}

func TestNormalizeDashboardLayout(t *testing.T) {
	t.Parallel()

	got := model.NormalizeDashboardLayout(model.DashboardLayout{
		Order:  []string{"fasting", "bogus", "macros", "fasting"},
		Hidden: map[string]bool{"streak": true, "bogus": true},
	})
	if len(got.Order) != len(model.DashboardSections) {
		t.Fatalf("expected %d sections, got %v", len(model.DashboardSections), got.Order)
	}
	if got.Order[0] != "fasting" || got.Order[1] != "macros" || got.Order[2] != "caloriesHero" {
		t.Fatalf("unexpected order %v", got.Order)
	}
	if !got.Hidden["streak"] || got.Hidden["macros"] {
		t.Fatalf("unexpected hidden map %v", got.Hidden)
	}
	if _, ok := got.Hidden["bogus"]; ok {
		t.Fatalf("unknown section leaked into hidden map")
	}
}
