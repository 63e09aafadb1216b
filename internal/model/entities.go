package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

func NewPerson(p Person) (Person, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	if p.WaterGoalMl <= 0 {
		p.WaterGoalMl = DefaultWaterGoalMl
	}
	if p.ExerciseGoalMin <= 0 {
		p.ExerciseGoalMin = DefaultExerciseGoalMin
	}
	if err := Validate(p); err != nil {
		return Person{}, err
	}
	return p, nil
}

func NewEntry(e Entry) (Entry, error) {
	e.FoodName = strings.TrimSpace(e.FoodName)
	e.Time = strings.TrimSpace(e.Time)
	if err := Validate(e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func NewWaterLog(l WaterLog) (WaterLog, error) {
	l.ID = strings.TrimSpace(l.ID)
	l.PersonID = strings.TrimSpace(l.PersonID)
	if err := Validate(l); err != nil {
		return WaterLog{}, err
	}
	return l, nil
}

func NewExerciseLog(l ExerciseLog) (ExerciseLog, error) {
	l.ID = strings.TrimSpace(l.ID)
	l.PersonID = strings.TrimSpace(l.PersonID)
	if err := Validate(l); err != nil {
		return ExerciseLog{}, err
	}
	return l, nil
}

// NewFastingLog checks a fast. A closed fast must end after it starts.
func NewFastingLog(f FastingLog) (FastingLog, error) {
	f.ID = strings.TrimSpace(f.ID)
	f.PersonID = strings.TrimSpace(f.PersonID)
	if err := Validate(f); err != nil {
		return FastingLog{}, err
	}
	if f.EndAt != nil && !f.EndAt.After(f.StartAt) {
		return FastingLog{}, invalid("endAt", "after", "startAt")
	}
	return f, nil
}

func NewMealTemplate(t MealTemplate) (MealTemplate, error) {
	t.Name = strings.TrimSpace(t.Name)
	items := make([]TemplateItem, 0, len(t.Items))
	for _, it := range t.Items {
		it.FoodKey = strings.TrimSpace(it.FoodKey)
		it.Label = strings.TrimSpace(it.Label)
		items = append(items, it)
	}
	t.Items = items
	if err := Validate(t); err != nil {
		return MealTemplate{}, err
	}
	return t, nil
}

func NewRecipe(r Recipe) (Recipe, error) {
	r.Name = strings.TrimSpace(r.Name)
	items := make([]RecipeItem, 0, len(r.Items))
	for _, it := range r.Items {
		it.FoodKey = strings.TrimSpace(it.FoodKey)
		it.Label = strings.TrimSpace(it.Label)
		items = append(items, it)
	}
	r.Items = items
	if err := Validate(r); err != nil {
		return Recipe{}, err
	}
	r.Derive()
	if r.TotalGrams <= 0 {
		return Recipe{}, invalid("totalGrams", "gt", "0")
	}
	return r, nil
}

func NewGoalPeriod(g GoalPeriod) (GoalPeriod, error) {
	g.Name = strings.TrimSpace(g.Name)
	goals := make(map[string]WeekdayGoal, len(Weekdays))
	for key, goal := range g.WeekdayGoals {
		goals[strings.ToLower(strings.TrimSpace(key))] = goal
	}
	for _, day := range Weekdays {
		if _, ok := goals[day]; !ok {
			goals[day] = WeekdayGoal{}
		}
	}
	g.WeekdayGoals = goals
	if err := Validate(g); err != nil {
		return GoalPeriod{}, err
	}
	for _, day := range Weekdays {
		if err := Validate(goals[day]); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				ve.Field = "weekdayGoals[" + day + "]." + ve.Field
			}
			return GoalPeriod{}, err
		}
	}
	if g.EndDate < g.StartDate {
		return GoalPeriod{}, invalid("endDate", "onOrAfter", "startDate")
	}
	return g, nil
}

// Derive recomputes the aggregate fields from the recipe items.
func (r *Recipe) Derive() {
	var grams float64
	var totals Macros
	for _, it := range r.Items {
		grams += it.Grams
		ratio := it.Grams / 100
		totals.Kcal += it.Per100g.Kcal * ratio
		totals.P += it.Per100g.P * ratio
		totals.C += it.Per100g.C * ratio
		totals.F += it.Per100g.F * ratio
	}
	r.TotalGrams = RoundTo(grams, 1)
	r.Totals = totals.Round(1)
	r.Per100g = Macros{}
	if grams > 0 {
		r.Per100g = totals.Scale(100 / grams).Round(1)
	}
	r.PerServing = Macros{}
	if r.ServingsDefault > 0 {
		r.PerServing = totals.Scale(1 / r.ServingsDefault).Round(1)
	}
}

// StaticGoal is the goal a person falls back to outside any goal period.
func StaticGoal(p Person) ResolvedGoal {
	return ResolvedGoal{KcalGoal: float64(p.KcalGoal), MacroTargets: p.MacroTargets}
}

// Resolve applies the period's weekday goal for date, falling back to the
// person's static goal for every null field.
func (g GoalPeriod) Resolve(p Person, date string) (ResolvedGoal, error) {
	day, err := WeekdayKey(date)
	if err != nil {
		return ResolvedGoal{}, err
	}
	out := StaticGoal(p)
	out.PeriodID = g.ID
	out.PeriodName = g.Name
	out.Weekday = day
	goal := g.WeekdayGoals[day]
	if goal.Kcal != nil {
		out.KcalGoal = *goal.Kcal
	}
	if goal.Protein != nil {
		out.MacroTargets.P = goal.Protein
	}
	if goal.Carbs != nil {
		out.MacroTargets.C = goal.Carbs
	}
	if goal.Fat != nil {
		out.MacroTargets.F = goal.Fat
	}
	return out, nil
}

func (g GoalPeriod) Covers(date string) bool {
	return g.StartDate <= date && date <= g.EndDate
}

var Weekdays = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

var weekdayIndex = map[string]int{"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6}

// WeekdayKey returns the calendar weekday of an ISO date, independent of
// locale and time zone.
func WeekdayKey(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", invalid("date", "isodate", "")
	}
	return Weekdays[(int(t.Weekday())+6)%7], nil
}

func LastPortionKey(personID, foodID string) string {
	return fmt.Sprintf("%s:%s", personID, foodID)
}
