package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
	"github.com/redboxergaming-hash/trackerv8/internal/store"
)

var (
	periodID       string
	periodName     string
	periodStart    string
	periodEnd      string
	periodWeekdays []string
	periodDate     string
	periodJSON     bool
)

var goalPeriodCmd = &cobra.Command{
	Use:   "goal-period",
	Short: "Manage dated goal periods with per-weekday targets",
}

var goalPeriodAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create or replace a goal period",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := parseDateFlag(periodStart)
		if err != nil {
			return err
		}
		end, err := parseDateFlag(periodEnd)
		if err != nil {
			return err
		}
		goals := map[string]model.WeekdayGoal{}
		for _, spec := range periodWeekdays {
			day, goal, err := parseWeekdayGoal(spec)
			if err != nil {
				return err
			}
			goals[day] = goal
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			saved, err := st.UpsertGoalPeriod(ctx, model.GoalPeriod{
				ID:           periodID,
				PersonID:     p.ID,
				Name:         periodName,
				StartDate:    start,
				EndDate:      end,
				WeekdayGoals: goals,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved goal period %s (%s) %s..%s\n", saved.Name, saved.ID, saved.StartDate, saved.EndDate)
			return nil
		})
	},
}

var goalPeriodListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goal periods for the person",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			periods, err := st.GoalPeriods(ctx, p.ID)
			if err != nil {
				return err
			}
			if periodJSON {
				return printJSON(cmd, periods)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ID\tNAME\tSTART\tEND\tDAYS")
			for _, g := range periods {
				days := make([]string, 0, len(g.WeekdayGoals))
				for _, d := range model.Weekdays {
					if _, ok := g.WeekdayGoals[d]; ok {
						days = append(days, d)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%s\n", g.ID, g.Name, g.StartDate, g.EndDate, strings.Join(days, ","))
			}
			return nil
		})
	},
}

var goalPeriodDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a goal period",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			if err := st.DeleteGoalPeriod(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted goal period %s\n", args[0])
			return nil
		})
	},
}

var goalPeriodResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show the goal in effect for a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDateFlag(periodDate)
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			goal, err := st.EffectiveGoal(ctx, p.ID, date)
			if err != nil {
				return err
			}
			if periodJSON {
				return printJSON(cmd, goal)
			}
			source := "static"
			if goal.PeriodID != "" {
				source = fmt.Sprintf("%s (%s)", goal.PeriodName, goal.Weekday)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "date\t%s\n", date)
			fmt.Fprintf(out, "source\t%s\n", source)
			fmt.Fprintf(out, "kcal\t%g\n", goal.KcalGoal)
			fmt.Fprintf(out, "protein\t%s\n", formatOptional(goal.MacroTargets.P))
			fmt.Fprintf(out, "carbs\t%s\n", formatOptional(goal.MacroTargets.C))
			fmt.Fprintf(out, "fat\t%s\n", formatOptional(goal.MacroTargets.F))
			return nil
		})
	},
}

// parseWeekdayGoal reads "mon:kcal=1900,protein=170". Omitted macros stay
// unset and fall back to the person's static goal.
func parseWeekdayGoal(spec string) (string, model.WeekdayGoal, error) {
	day, rest, ok := strings.Cut(spec, ":")
	if !ok {
		return "", model.WeekdayGoal{}, fmt.Errorf("invalid weekday goal %q (expected day:key=value,...)", spec)
	}
	day = strings.ToLower(strings.TrimSpace(day))
	fields, err := parseItemSpec(rest)
	if err != nil {
		return "", model.WeekdayGoal{}, err
	}
	var goal model.WeekdayGoal
	for name, dst := range map[string]**float64{"kcal": &goal.Kcal, "protein": &goal.Protein, "carbs": &goal.Carbs, "fat": &goal.Fat} {
		if _, set := fields[name]; !set {
			continue
		}
		v, err := specFloat(fields, name)
		if err != nil {
			return "", model.WeekdayGoal{}, err
		}
		*dst = &v
	}
	return day, goal, nil
}

func init() {
	goalPeriodAddCmd.Flags().StringVar(&periodID, "id", "", "Existing id to replace")
	goalPeriodAddCmd.Flags().StringVar(&periodName, "name", "", "Period name")
	goalPeriodAddCmd.Flags().StringVar(&periodStart, "start", "", "First day (inclusive)")
	goalPeriodAddCmd.Flags().StringVar(&periodEnd, "end", "", "Last day (inclusive)")
	goalPeriodAddCmd.Flags().StringArrayVar(&periodWeekdays, "weekday", nil, `Weekday goal as "mon:kcal=1900,protein=170" (repeatable)`)
	goalPeriodListCmd.Flags().BoolVar(&periodJSON, "json", false, "Output JSON")
	goalPeriodResolveCmd.Flags().StringVar(&periodDate, "date", "", "Date (default today)")
	goalPeriodResolveCmd.Flags().BoolVar(&periodJSON, "json", false, "Output JSON")

	goalPeriodCmd.AddCommand(goalPeriodAddCmd, goalPeriodListCmd, goalPeriodDeleteCmd, goalPeriodResolveCmd)
	rootCmd.AddCommand(goalPeriodCmd)
}
