package analytics

import (
	"sort"
	"time"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

// TrendWindowDays is the trailing window, ending on the target date, that
// trend weight averages over.
const TrendWindowDays = 7

// DayIndex converts an ISO date to days since the Unix epoch.
func DayIndex(date string) (int, bool) {
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return 0, false
	}
	return int(t.Unix() / 86400), true
}

// TrendForDate averages scale weight over [target-6, target] across logs and
// rounds to three decimals. It returns nil when no log falls in the window.
func TrendForDate(target string, logs []model.WeightLog) *float64 {
	end, ok := DayIndex(target)
	if !ok {
		return nil
	}
	start := end - (TrendWindowDays - 1)
	var sum float64
	var n int
	for _, l := range logs {
		day, ok := DayIndex(l.Date)
		if !ok || day < start || day > end {
			continue
		}
		sum += l.ScaleWeight
		n++
	}
	if n == 0 {
		return nil
	}
	v := model.RoundTo(sum/float64(n), 3)
	return &v
}

// RecomputeTrends returns logs sorted by date with TrendWeight set for every
// row from the full series.
func RecomputeTrends(logs []model.WeightLog) []model.WeightLog {
	out := make([]model.WeightLog, len(logs))
	copy(out, logs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	days := make([]int, len(out))
	for i := range out {
		days[i], _ = DayIndex(out[i].Date)
	}
	for i := range out {
		lo, hi := i, i
		for lo > 0 && days[i]-days[lo-1] < TrendWindowDays {
			lo--
		}
		for hi+1 < len(out) && days[hi+1] == days[i] {
			hi++
		}
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += out[j].ScaleWeight
		}
		v := model.RoundTo(sum/float64(hi-lo+1), 3)
		out[i].TrendWeight = &v
	}
	return out
}

type WeightDeltas struct {
	LatestDate  string   `json:"latestDate,omitempty"`
	LatestTrend *float64 `json:"latestTrend,omitempty"`
	Delta3d     *float64 `json:"delta3d,omitempty"`
	Delta7d     *float64 `json:"delta7d,omitempty"`
}

// ComputeWeightDeltas compares the latest trend weight with the trend 3 and
// 7 days earlier.
func ComputeWeightDeltas(logs []model.WeightLog) WeightDeltas {
	if len(logs) == 0 {
		return WeightDeltas{}
	}
	sorted := RecomputeTrends(logs)
	latest := sorted[len(sorted)-1]
	out := WeightDeltas{LatestDate: latest.Date, LatestTrend: latest.TrendWeight}
	delta := func(days int) *float64 {
		past, err := model.ShiftDate(latest.Date, -days)
		if err != nil {
			return nil
		}
		prev := TrendForDate(past, sorted)
		if prev == nil || latest.TrendWeight == nil {
			return nil
		}
		v := model.RoundTo(*latest.TrendWeight-*prev, 2)
		return &v
	}
	out.Delta3d = delta(3)
	out.Delta7d = delta(7)
	return out
}
