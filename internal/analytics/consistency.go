package analytics

import "math"

const ConsistencyWindowDays = 7

type DayStatus struct {
	Date           string `json:"date"`
	Logged         bool   `json:"logged"`
	ProteinGoalMet bool   `json:"proteinGoalMet"`
}

type Consistency struct {
	Score              int      `json:"score"`
	LoggedDays         int      `json:"loggedDays"`
	ProteinGoalMetDays int      `json:"proteinGoalMetDays"`
	StreakDays         int      `json:"streakDays"`
	Badges             []string `json:"badges"`
}

const (
	BadgeWeekStreak  = "7-day streak"
	BadgeEveryDay    = "Logged every day"
	BadgeProteinPro  = "Protein on point"
	BadgeGettingGoin = "Getting going"
)

// ConsistencyScore scores the last seven days: logging carries 70 points and
// meeting the protein goal carries 30.
func ConsistencyScore(days []DayStatus, streakDays int) Consistency {
	if len(days) > ConsistencyWindowDays {
		days = days[len(days)-ConsistencyWindowDays:]
	}
	out := Consistency{StreakDays: streakDays, Badges: []string{}}
	for _, d := range days {
		if d.Logged {
			out.LoggedDays++
		}
		if d.ProteinGoalMet {
			out.ProteinGoalMetDays++
		}
	}
	logged := float64(out.LoggedDays) / ConsistencyWindowDays
	protein := float64(out.ProteinGoalMetDays) / ConsistencyWindowDays
	out.Score = int(math.Round(logged*70 + protein*30))

	if streakDays >= 7 {
		out.Badges = append(out.Badges, BadgeWeekStreak)
	}
	if out.LoggedDays == ConsistencyWindowDays {
		out.Badges = append(out.Badges, BadgeEveryDay)
	}
	if out.ProteinGoalMetDays >= 5 {
		out.Badges = append(out.Badges, BadgeProteinPro)
	}
	if len(out.Badges) == 0 && out.LoggedDays >= 3 {
		out.Badges = append(out.Badges, BadgeGettingGoin)
	}
	return out
}
