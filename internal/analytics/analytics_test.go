package analytics_test

import (
	"testing"

	"github.com/redboxergaming-hash/trackerv8/internal/analytics"
	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

func weightLogs(start string, weights ...float64) []model.WeightLog {
	out := make([]model.WeightLog, 0, len(weights))
	for i, w := range weights {
		date, _ := model.ShiftDate(start, i)
		out = append(out, model.WeightLog{PersonID: "p1", Date: date, ScaleWeight: w})
	}
	return out
}

func TestTrendForDateAveragesTrailingWeek(t *testing.T) {
	t.Parallel()

	logs := weightLogs("2024-01-01", 80, 80.4, 79.9, 80.2, 80.1, 79.7, 79.9)
	got := analytics.TrendForDate("2024-01-07", logs)
	if got == nil {
		t.Fatalf("expected trend value")
	}
	if *got != 80.029 {
		t.Fatalf("expected 80.029, got %v", *got)
	}

	if got := analytics.TrendForDate("2024-01-20", logs); got != nil {
		t.Fatalf("expected nil trend outside every window, got %v", *got)
	}
}

func TestRecomputeTrendsMatchesPointwiseTrend(t *testing.T) {
	t.Parallel()

	logs := weightLogs("2024-03-01", 90, 89.5, 89.8, 89.1, 88.7, 88.9, 88.4, 88.0, 87.9, 88.3)
	logs = append(logs[:4], logs[5:]...)
	shuffled := []model.WeightLog{logs[3], logs[0], logs[8], logs[1], logs[6], logs[2], logs[7], logs[5], logs[4]}

	got := analytics.RecomputeTrends(shuffled)
	for i, l := range got {
		if i > 0 && got[i-1].Date > l.Date {
			t.Fatalf("expected logs sorted by date")
		}
		want := analytics.TrendForDate(l.Date, logs)
		if l.TrendWeight == nil || want == nil || *l.TrendWeight != *want {
			t.Fatalf("trend mismatch on %s: got %v want %v", l.Date, l.TrendWeight, want)
		}
	}
}

func TestLoggingStreak(t *testing.T) {
	t.Parallel()

	dates := []string{"2024-01-05", "2024-01-04", "2024-01-03", "2024-01-01"}
	if got := analytics.LoggingStreak(dates, "2024-01-05"); got != 3 {
		t.Fatalf("expected streak 3, got %d", got)
	}
	if got := analytics.LoggingStreak(dates, "2024-01-06"); got != 0 {
		t.Fatalf("expected streak 0 on unlogged day, got %d", got)
	}
}

func TestFastingStreakBreaksOnGap(t *testing.T) {
	t.Parallel()

	keys := []string{"2024-01-01", "2024-01-03", "2024-01-04", "2024-01-04", "2024-01-05"}
	if got := analytics.FastingStreak(keys); got != 3 {
		t.Fatalf("expected fasting streak 3, got %d", got)
	}
	if got := analytics.FastingStreak(nil); got != 0 {
		t.Fatalf("expected empty streak 0, got %d", got)
	}
}

func TestConsistencyScore(t *testing.T) {
	t.Parallel()

	days := make([]analytics.DayStatus, 0, 7)
	for i := 0; i < 7; i++ {
		days = append(days, analytics.DayStatus{Logged: true, ProteinGoalMet: i < 5})
	}
	got := analytics.ConsistencyScore(days, 9)
	if got.Score != 91 {
		t.Fatalf("expected score 91, got %d", got.Score)
	}
	want := []string{analytics.BadgeWeekStreak, analytics.BadgeEveryDay, analytics.BadgeProteinPro}
	if len(got.Badges) != len(want) {
		t.Fatalf("expected badges %v, got %v", want, got.Badges)
	}
	for i := range want {
		if got.Badges[i] != want[i] {
			t.Fatalf("expected badges %v, got %v", want, got.Badges)
		}
	}

	empty := analytics.ConsistencyScore(nil, 0)
	if empty.Score != 0 || len(empty.Badges) != 0 {
		t.Fatalf("expected empty consistency, got %+v", empty)
	}
}

func TestRollingAverageSkipsNulls(t *testing.T) {
	t.Parallel()

	v := func(f float64) *float64 { return &f }
	points := []analytics.Point{{Date: "d1", Value: v(10)}, {Date: "d2"}, {Date: "d3", Value: v(20)}, {Date: "d4", Value: v(30)}}
	got := analytics.RollingAverage(points, 2)
	if *got[0].Value != 10 || *got[1].Value != 10 || *got[2].Value != 20 || *got[3].Value != 25 {
		t.Fatalf("unexpected rolling averages %+v", got)
	}
}

func TestBooleanStreak(t *testing.T) {
	t.Parallel()

	current, longest := analytics.BooleanStreak([]bool{true, true, true, false, true, true}, func(b bool) bool { return b })
	if current != 2 || longest != 3 {
		t.Fatalf("expected current 2 longest 3, got %d %d", current, longest)
	}
}
