package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
	"github.com/redboxergaming-hash/trackerv8/internal/store"
)

var (
	habitDate  string
	weightFrom string
	weightTo   string
	weightJSON bool
)

var weightCmd = &cobra.Command{
	Use:   "weight",
	Short: "Track scale weight and its trend",
}

var weightAddCmd = &cobra.Command{
	Use:   "add <kg>",
	Short: "Record the scale weight for a day (replaces that day's value)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kg, err := parseFloatArg("weight", args[0])
		if err != nil {
			return err
		}
		date, err := parseDateFlag(habitDate)
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			l, err := st.AddWeightLog(ctx, p.ID, date, kg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %.1f kg for %s on %s (trend %s)\n", l.ScaleWeight, p.Name, l.Date, formatOptional(l.TrendWeight))
			return nil
		})
	},
}

var weightListCmd = &cobra.Command{
	Use:   "list",
	Short: "List weight logs with trend values",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			var logs []model.WeightLog
			if weightFrom != "" || weightTo != "" {
				from, err := parseDateFlag(weightFrom)
				if err != nil {
					return err
				}
				to, err := parseDateFlag(weightTo)
				if err != nil {
					return err
				}
				logs, err = st.WeightLogsInRange(ctx, p.ID, from, to)
				if err != nil {
					return err
				}
			} else if logs, err = st.WeightLogsByPerson(ctx, p.ID); err != nil {
				return err
			}
			if weightJSON {
				return printJSON(cmd, logs)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "DATE\tSCALE\tTREND")
			for _, l := range logs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.1f\t%s\n", l.Date, l.ScaleWeight, formatOptional(l.TrendWeight))
			}
			return nil
		})
	},
}

var waterCmd = &cobra.Command{
	Use:   "water",
	Short: "Track water intake",
}

var waterAddCmd = &cobra.Command{
	Use:   "add <ml>",
	Short: "Add water intake for a day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ml, err := parseFloatArg("water", args[0])
		if err != nil {
			return err
		}
		date, err := parseDateFlag(habitDate)
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			if _, err := st.AddWaterLog(ctx, p.ID, date, ml); err != nil {
				return err
			}
			total, err := st.WaterTotal(ctx, p.ID, date)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Water on %s: %.0f / %d ml\n", date, total, p.WaterGoalMl)
			return nil
		})
	},
}

var exerciseCmd = &cobra.Command{
	Use:   "exercise",
	Short: "Track exercise minutes",
}

var exerciseAddCmd = &cobra.Command{
	Use:   "add <minutes>",
	Short: "Add exercise minutes for a day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, err := parseFloatArg("minutes", args[0])
		if err != nil {
			return err
		}
		date, err := parseDateFlag(habitDate)
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			if _, err := st.AddExerciseLog(ctx, p.ID, date, minutes); err != nil {
				return err
			}
			total, err := st.ExerciseTotal(ctx, p.ID, date)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exercise on %s: %.0f / %d min\n", date, total, p.ExerciseGoalMin)
			return nil
		})
	},
}

var fastCmd = &cobra.Command{
	Use:   "fast",
	Short: "Start, end, and inspect fasts",
}

var fastAt string

var fastStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a fast (at most one can be active)",
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := parseFastTime(fastAt)
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			f, err := st.StartFast(ctx, p.ID, at)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started fast for %s at %s\n", p.Name, f.StartAt.Local().Format("2006-01-02 15:04"))
			return nil
		})
	},
}

var fastEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End the active fast",
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := parseFastTime(fastAt)
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			f, err := st.EndActiveFast(ctx, p.ID, at)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ended fast for %s after %s\n", p.Name, formatDuration(f.Duration(at)))
			return nil
		})
	},
}

var fastStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active fast, the last completed one, and the streak",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			active, err := st.ActiveFast(ctx, p.ID)
			if err != nil {
				return err
			}
			latest, err := st.LatestCompletedFast(ctx, p.ID)
			if err != nil {
				return err
			}
			streak, err := st.FastingStreak(ctx, p.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			now := time.Now()
			if active != nil {
				fmt.Fprintf(out, "active\t%s\t%s\n", active.StartAt.Local().Format("2006-01-02 15:04"), formatDuration(active.Duration(now)))
			} else {
				fmt.Fprintln(out, "active\t-")
			}
			if latest != nil {
				fmt.Fprintf(out, "last\t%s\t%s\n", latest.DateKey, formatDuration(latest.Duration(now)))
			}
			fmt.Fprintf(out, "streak\t%d\n", streak)
			return nil
		})
	},
}

// parseFastTime accepts RFC 3339, "YYYY-MM-DD HH:MM" in local time, or
// empty for now.
func parseFastTime(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (expected RFC 3339 or YYYY-MM-DD HH:MM)", value)
	}
	return t, nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	for _, c := range []*cobra.Command{weightAddCmd, waterAddCmd, exerciseAddCmd} {
		c.Flags().StringVar(&habitDate, "date", "", "Date (default today)")
	}
	weightListCmd.Flags().StringVar(&weightFrom, "from", "", "Range start date")
	weightListCmd.Flags().StringVar(&weightTo, "to", "", "Range end date")
	weightListCmd.Flags().BoolVar(&weightJSON, "json", false, "Output JSON")
	weightCmd.AddCommand(weightAddCmd, weightListCmd)
	waterCmd.AddCommand(waterAddCmd)
	exerciseCmd.AddCommand(exerciseAddCmd)

	fastStartCmd.Flags().StringVar(&fastAt, "at", "", "Start time (default now)")
	fastEndCmd.Flags().StringVar(&fastAt, "at", "", "End time (default now)")
	fastCmd.AddCommand(fastStartCmd, fastEndCmd, fastStatusCmd)

	rootCmd.AddCommand(weightCmd, waterCmd, exerciseCmd, fastCmd)
}
