package labelscan

import (
	"testing"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

func TestParseTextEnglishLabel(t *testing.T) {
	t.Parallel()
	text := `Nutrition per 100g
Energy 1046 kJ / 250 kcal
Fat: 12,5 g
Carbohydrate 30 g
of which sugars 22 g
Fibre 3.1 g
Protein 6 g
Salt 0.5 g`

	res := ParseText(text)
	if len(res.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", res.Warnings)
	}
	if res.Macros.Kcal100g == nil || *res.Macros.Kcal100g != 250 {
		t.Fatalf("expected 250 kcal, got %v", res.Macros.Kcal100g)
	}
	if *res.Macros.F100g != 12.5 || *res.Macros.C100g != 30 || *res.Macros.P100g != 6 {
		t.Fatalf("unexpected macros %+v", res.Macros)
	}
	if *res.Micros.SugarG != 22 || *res.Micros.FiberG != 3.1 {
		t.Fatalf("unexpected micros %+v", res.Micros)
	}
	if res.Micros.SodiumMg == nil || *res.Micros.SodiumMg != 196.5 {
		t.Fatalf("expected sodium derived from salt, got %v", res.Micros.SodiumMg)
	}

	per100, err := res.Per100g()
	if err != nil {
		t.Fatalf("per100g: %v", err)
	}
	if per100 != (model.Per100g{Kcal: 250, P: 6, C: 30, F: 12.5}) {
		t.Fatalf("unexpected per100g %+v", per100)
	}
}

func TestParseTextGermanAndWarnings(t *testing.T) {
	t.Parallel()
	res := ParseText("Brennwert 400 kcal\nFett 20 g\nEiweiss 10 g\nNatrium 120 mg\nSalz 1 g")
	if len(res.Warnings) != 1 || res.Warnings[0] != WarnNotPer100g {
		t.Fatalf("expected per-100g warning, got %v", res.Warnings)
	}
	if *res.Macros.Kcal100g != 400 || *res.Macros.F100g != 20 || *res.Macros.P100g != 10 {
		t.Fatalf("unexpected macros %+v", res.Macros)
	}
	if *res.Micros.SodiumMg != 120 {
		t.Fatalf("expected explicit sodium to win over salt, got %v", *res.Micros.SodiumMg)
	}
	if res.Macros.C100g != nil {
		t.Fatalf("expected missing carbs to stay nil")
	}

	if _, err := ParseText("no numbers here").Per100g(); !model.IsValidation(err) {
		t.Fatalf("expected validation error without calories, got %v", err)
	}
}
