package store_test

import (
	"context"
	"testing"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

func TestAddWeightLogUpsertsByDateAndRecomputesTrend(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	p := mustPerson(t, s, "Alex", 2200)

	for _, w := range []struct {
		date   string
		weight float64
	}{
		{"2024-01-03", 82},
		{"2024-01-01", 80},
		{"2024-01-01", 84},
		{"2024-01-10", 79},
	} {
		if _, err := s.AddWeightLog(ctx, p.ID, w.date, w.weight); err != nil {
			t.Fatalf("add weight %s: %v", w.date, err)
		}
	}

	logs, err := s.WeightLogsByPerson(ctx, p.ID)
	if err != nil {
		t.Fatalf("list weights: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected one log per date, got %d", len(logs))
	}
	want := map[string]float64{"2024-01-01": 84, "2024-01-03": 83, "2024-01-10": 79}
	for _, l := range logs {
		if l.TrendWeight == nil || *l.TrendWeight != want[l.Date] {
			t.Fatalf("trend for %s: expected %v, got %v", l.Date, want[l.Date], l.TrendWeight)
		}
	}
	if logs[0].ScaleWeight != 84 {
		t.Fatalf("expected last write to win, got %v", logs[0].ScaleWeight)
	}

	for _, bad := range []float64{0, -1} {
		if _, err := s.AddWeightLog(ctx, p.ID, "2024-01-04", bad); !model.IsValidation(err) {
			t.Fatalf("expected validation error for %v, got %v", bad, err)
		}
	}

	points, deltas, err := s.WeeklyWeight(ctx, p.ID, "2024-01-07")
	if err != nil {
		t.Fatalf("weekly weight: %v", err)
	}
	if len(points) != 7 || points[0].Date != "2024-01-01" || points[0].Value == nil || *points[0].Value != 84 {
		t.Fatalf("unexpected weekly points %+v", points)
	}
	if points[1].Value != nil {
		t.Fatalf("expected empty day without a log")
	}
	if deltas.LatestDate != "2024-01-10" {
		t.Fatalf("expected latest date 2024-01-10, got %s", deltas.LatestDate)
	}
}
