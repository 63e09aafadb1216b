package analytics

import "github.com/redboxergaming-hash/trackerv8/internal/model"

type Point struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// RollingAverage averages the non-null values of each trailing window of
// window points. Windows without any value yield a null point.
func RollingAverage(points []Point, window int) []Point {
	out := make([]Point, 0, len(points))
	if window <= 0 {
		return out
	}
	for i := range points {
		start := i - (window - 1)
		if start < 0 {
			start = 0
		}
		var sum float64
		var n int
		for _, p := range points[start : i+1] {
			if p.Value == nil {
				continue
			}
			sum += *p.Value
			n++
		}
		pt := Point{Date: points[i].Date}
		if n > 0 {
			v := model.RoundTo(sum/float64(n), 1)
			pt.Value = &v
		}
		out = append(out, pt)
	}
	return out
}
