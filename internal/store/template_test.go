package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
	"github.com/redboxergaming-hash/trackerv8/internal/store"
)

func TestLogMealTemplateExpandsItems(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	p := mustPerson(t, s, "Alex", 2200)

	tpl, err := s.UpsertMealTemplate(ctx, model.MealTemplate{
		Name: " Breakfast ",
		Items: []model.TemplateItem{
			{FoodKey: "banana", Label: "Banana", Per100g: model.Per100g{Kcal: 89, P: 1.1, C: 22.8, F: 0.3}, GramsDefault: 120},
			{FoodKey: "oats", Label: "Oats", Per100g: model.Per100g{Kcal: 389, P: 16.9, C: 66.3, F: 6.9}, GramsDefault: 60},
		},
	})
	if err != nil {
		t.Fatalf("upsert template: %v", err)
	}
	if tpl.Name != "Breakfast" {
		t.Fatalf("expected trimmed name, got %q", tpl.Name)
	}

	summary, err := s.LogMealTemplate(ctx, tpl.ID, p.ID, "2024-01-01", "08:00")
	if err != nil {
		t.Fatalf("log template: %v", err)
	}
	if summary.Count != 2 || summary.TotalKcal != 340.2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Entries[0].Kcal != 106.8 || summary.Entries[1].Kcal != 233.4 {
		t.Fatalf("expected kcal 106.8 and 233.4, got %v and %v", summary.Entries[0].Kcal, summary.Entries[1].Kcal)
	}
	for _, e := range summary.Entries {
		if e.Source != store.SourceMealTemplate {
			t.Fatalf("expected meal-template source, got %q", e.Source)
		}
	}

	recents, err := s.Recents(ctx, p.ID, 10)
	if err != nil {
		t.Fatalf("recents: %v", err)
	}
	foods := map[string]bool{}
	for _, r := range recents {
		foods[r.FoodID] = true
	}
	if !foods["banana"] || !foods["oats"] {
		t.Fatalf("expected recents for both items, got %+v", recents)
	}
}

func TestUpsertMealTemplateRejectsInvalidItem(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertMealTemplate(ctx, model.MealTemplate{
		Name: "Lunch",
		Items: []model.TemplateItem{
			{FoodKey: "rice", Label: "Rice", Per100g: model.Per100g{Kcal: 130}, GramsDefault: 150},
			{FoodKey: "beans", Label: "Beans", Per100g: model.Per100g{Kcal: 120}, GramsDefault: 0},
		},
	})
	var ve *model.ValidationError
	if !errors.As(err, &ve) || ve.Field != "items[1].gramsDefault" {
		t.Fatalf("expected items[1].gramsDefault validation error, got %v", err)
	}
	templates, err := s.MealTemplates(ctx)
	if err != nil || len(templates) != 0 {
		t.Fatalf("expected nothing saved, got %d %v", len(templates), err)
	}

	if _, err := s.LogMealTemplate(ctx, "missing", "nobody", "2024-01-01", ""); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLogRecipeScalesByServings(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	p := mustPerson(t, s, "Alex", 2200)

	r, err := s.UpsertRecipe(ctx, model.Recipe{
		Name:            "Porridge",
		ServingsDefault: 2,
		Items: []model.RecipeItem{
			{FoodKey: "oats", Label: "Oats", Per100g: model.Per100g{Kcal: 389}, Grams: 100},
			{FoodKey: "milk", Label: "Milk", Per100g: model.Per100g{Kcal: 42}, Grams: 300},
		},
	})
	if err != nil {
		t.Fatalf("upsert recipe: %v", err)
	}
	if r.TotalGrams != 400 || r.Totals.Kcal != 515 || r.PerServing.Kcal != 257.5 {
		t.Fatalf("unexpected derived fields %+v", r)
	}

	e, err := s.LogRecipe(ctx, r.ID, p.ID, "2024-01-01", "19:00", 1)
	if err != nil {
		t.Fatalf("log recipe: %v", err)
	}
	if e.Kcal != 257.5 || e.AmountGrams != 200 || e.Source != store.SourceRecipe || e.FoodID != store.RecipeFoodID(r.ID) {
		t.Fatalf("unexpected recipe entry %+v", e)
	}

	edited := r
	edited.Name = "Porridge XL"
	again, err := s.UpsertRecipe(ctx, edited)
	if err != nil {
		t.Fatalf("edit recipe: %v", err)
	}
	if !again.CreatedAt.Equal(r.CreatedAt) || !again.UpdatedAt.After(r.UpdatedAt) {
		t.Fatalf("expected createdAt kept and updatedAt refreshed")
	}
	if _, err := s.LogRecipe(ctx, r.ID, p.ID, "2024-01-01", "", 0); !model.IsValidation(err) {
		t.Fatalf("expected validation error for zero servings, got %v", err)
	}
}
