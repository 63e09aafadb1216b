package model

import (
	"math"
	"slices"
	"time"
)

func RoundTo(v float64, decimals int) float64 {
	if !IsFinite(v) {
		return 0
	}
	factor := math.Pow10(decimals)
	return math.Round(v*factor) / factor
}

// ScalePer100g converts per-100g nutrition into the macros of grams grams.
func ScalePer100g(n Per100g, grams float64) Macros {
	if !IsFinite(grams) || grams < 0 {
		grams = 0
	}
	ratio := grams / 100
	return Macros{
		Kcal: RoundTo(n.Kcal*ratio, 1),
		P:    RoundTo(n.P*ratio, 1),
		C:    RoundTo(n.C*ratio, 1),
		F:    RoundTo(n.F*ratio, 1),
	}
}

func (m Macros) Scale(factor float64) Macros {
	return Macros{Kcal: m.Kcal * factor, P: m.P * factor, C: m.C * factor, F: m.F * factor}
}

func (m Macros) Round(decimals int) Macros {
	return Macros{
		Kcal: RoundTo(m.Kcal, decimals),
		P:    RoundTo(m.P, decimals),
		C:    RoundTo(m.C, decimals),
		F:    RoundTo(m.F, decimals),
	}
}

func (m Macros) Add(o Macros) Macros {
	return Macros{Kcal: m.Kcal + o.Kcal, P: m.P + o.P, C: m.C + o.C, F: m.F + o.F}
}

func (m Macros) AsPer100g() Per100g {
	return Per100g{Kcal: m.Kcal, P: m.P, C: m.C, F: m.F}
}

func (e Entry) Macros() Macros {
	return Macros{Kcal: e.Kcal, P: e.P, C: e.C, F: e.F}
}

// ShiftDate moves an ISO date by days calendar days.
func ShiftDate(date string, days int) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", invalid("date", "isodate", "")
	}
	return t.AddDate(0, 0, days).Format(DateLayout), nil
}

var DashboardSections = []string{"caloriesHero", "macros", "streak", "consistencyBadges", "habits", "fasting", "macroBreakdown"}

func DefaultDashboardLayout() DashboardLayout {
	hidden := make(map[string]bool, len(DashboardSections))
	for _, key := range DashboardSections {
		hidden[key] = false
	}
	return DashboardLayout{Order: slices.Clone(DashboardSections), Hidden: hidden}
}

// NormalizeDashboardLayout keeps known sections in their requested order,
// appends any missing ones and fills visibility for every section.
func NormalizeDashboardLayout(l DashboardLayout) DashboardLayout {
	out := DefaultDashboardLayout()
	order := make([]string, 0, len(DashboardSections))
	for _, key := range l.Order {
		if slices.Contains(DashboardSections, key) && !slices.Contains(order, key) {
			order = append(order, key)
		}
	}
	for _, key := range DashboardSections {
		if !slices.Contains(order, key) {
			order = append(order, key)
		}
	}
	out.Order = order
	for _, key := range DashboardSections {
		out.Hidden[key] = l.Hidden[key]
	}
	return out
}
