package analytics

import (
	"sort"
)

const MaxLoggingStreak = 365

// LoggingStreak counts consecutive logged days ending on selected.
func LoggingStreak(loggedDates []string, selected string) int {
	end, ok := DayIndex(selected)
	if !ok {
		return 0
	}
	logged := make(map[int]bool, len(loggedDates))
	for _, d := range loggedDates {
		if day, ok := DayIndex(d); ok {
			logged[day] = true
		}
	}
	streak := 0
	for day := end; logged[day] && streak < MaxLoggingStreak; day-- {
		streak++
	}
	return streak
}

// FastingStreak counts consecutive date keys with a completed fast, starting
// from the most recent one.
func FastingStreak(dateKeys []string) int {
	seen := map[int]bool{}
	days := make([]int, 0, len(dateKeys))
	for _, key := range dateKeys {
		day, ok := DayIndex(key)
		if !ok || seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	if len(days) == 0 {
		return 0
	}
	sort.Sort(sort.Reverse(sort.IntSlice(days)))
	streak := 1
	for i := 1; i < len(days); i++ {
		if days[i-1]-days[i] != 1 {
			break
		}
		streak++
	}
	return streak
}

// BooleanStreak reports the trailing run and the longest run of days that
// satisfy predicate.
func BooleanStreak[T any](days []T, predicate func(T) bool) (current, longest int) {
	run := 0
	for i := range days {
		if predicate(days[i]) {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	for i := len(days) - 1; i >= 0; i-- {
		if predicate(days[i]) {
			current++
			continue
		}
		break
	}
	return current, longest
}
