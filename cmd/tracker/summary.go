package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redboxergaming-hash/trackerv8/internal/analytics"
	"github.com/redboxergaming-hash/trackerv8/internal/model"
	"github.com/redboxergaming-hash/trackerv8/internal/store"
)

var (
	summaryDate string
	summaryJSON bool
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show the day's totals against the goal, plus its entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDateFlag(summaryDate)
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			sum, err := st.DaySummary(ctx, p.ID, date)
			if err != nil {
				return err
			}
			entries, err := st.EntriesForPersonDate(ctx, p.ID, date)
			if err != nil {
				return err
			}
			if summaryJSON {
				return printJSON(cmd, struct {
					Summary store.DaySummary `json:"summary"`
					Entries []model.Entry    `json:"entries"`
				}{sum, entries})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\t%s\n", p.Name, date)
			fmt.Fprintf(out, "kcal\t%.1f / %g\t(%.1f left)\n", sum.Totals.Kcal, sum.Goal.KcalGoal, sum.RemainingKcal)
			fmt.Fprintf(out, "protein\t%.1f / %s\n", sum.Totals.P, formatOptional(sum.Goal.MacroTargets.P))
			fmt.Fprintf(out, "carbs\t%.1f / %s\n", sum.Totals.C, formatOptional(sum.Goal.MacroTargets.C))
			fmt.Fprintf(out, "fat\t%.1f / %s\n", sum.Totals.F, formatOptional(sum.Goal.MacroTargets.F))
			fmt.Fprintf(out, "water\t%.0f / %d ml\n", sum.WaterMl, sum.WaterGoalMl)
			fmt.Fprintf(out, "exercise\t%.0f / %d min\n", sum.ExerciseMin, sum.ExerciseGoalMin)
			for _, e := range entries {
				fmt.Fprintf(out, "%s\t%s\t%.1f kcal\t%s\n", e.Time, e.FoodName, e.Kcal, e.ID)
			}
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show logging streak, weekly consistency, and weight trend",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDateFlag(summaryDate)
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			streak, err := st.LoggingStreak(ctx, p.ID, date)
			if err != nil {
				return err
			}
			consistency, err := st.Consistency(ctx, p.ID, date)
			if err != nil {
				return err
			}
			longest, err := st.LongestLoggingStreak(ctx, p.ID, date)
			if err != nil {
				return err
			}
			intake, err := st.RollingIntake(ctx, p.ID, date)
			if err != nil {
				return err
			}
			points, deltas, err := st.WeeklyWeight(ctx, p.ID, date)
			if err != nil {
				return err
			}
			if summaryJSON {
				return printJSON(cmd, struct {
					Streak        int                    `json:"streak"`
					LongestStreak int                    `json:"longestStreak"`
					Consistency   analytics.Consistency  `json:"consistency"`
					Intake        store.IntakeAverages   `json:"intake"`
					Weight        []analytics.Point      `json:"weight"`
					Deltas        analytics.WeightDeltas `json:"deltas"`
				}{streak, longest, consistency, intake, points, deltas})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "streak\t%d day(s)\tlongest %d\n", streak, longest)
			last := len(intake.Kcal) - 1
			fmt.Fprintf(out, "avg%dd\tkcal %s\tprotein %s\n", store.RollingIntakeDays, formatOptional(intake.Kcal[last].Value), formatOptional(intake.Protein[last].Value))
			fmt.Fprintf(out, "consistency\t%d\t(logged %d/7, protein %d/7)\n", consistency.Score, consistency.LoggedDays, consistency.ProteinGoalMetDays)
			if len(consistency.Badges) > 0 {
				fmt.Fprintf(out, "badges\t%s\n", strings.Join(consistency.Badges, ", "))
			}
			for _, pt := range points {
				fmt.Fprintf(out, "weight\t%s\t%s\n", pt.Date, formatOptional(pt.Value))
			}
			fmt.Fprintf(out, "trend\t%s\t3d %s\t7d %s\n", formatOptional(deltas.LatestTrend), formatOptional(deltas.Delta3d), formatOptional(deltas.Delta7d))
			return nil
		})
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show or change the dashboard section layout",
}

var dashboardShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the section order and visibility",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			layout, err := st.DashboardLayout(ctx, p.ID)
			if err != nil {
				return err
			}
			return printLayout(cmd, layout)
		})
	},
}

var (
	dashOrder []string
	dashHide  []string
	dashShow  []string
	dashReset bool
)

var dashboardSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Reorder, hide, or show dashboard sections",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			layout := model.DefaultDashboardLayout()
			if !dashReset {
				if layout, err = st.DashboardLayout(ctx, p.ID); err != nil {
					return err
				}
			}
			if len(dashOrder) > 0 {
				layout.Order = dashOrder
			}
			for _, key := range dashHide {
				layout.Hidden[key] = true
			}
			for _, key := range dashShow {
				layout.Hidden[key] = false
			}
			saved, err := st.SetDashboardLayout(ctx, p.ID, layout)
			if err != nil {
				return err
			}
			return printLayout(cmd, saved)
		})
	},
}

func printLayout(cmd *cobra.Command, layout model.DashboardLayout) error {
	if summaryJSON {
		return printJSON(cmd, layout)
	}
	for i, key := range layout.Order {
		state := "shown"
		if layout.Hidden[key] {
			state = "hidden"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", i+1, key, state)
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{todayCmd, statsCmd} {
		c.Flags().StringVar(&summaryDate, "date", "", "Date (default today)")
	}
	for _, c := range []*cobra.Command{todayCmd, statsCmd, dashboardShowCmd, dashboardSetCmd} {
		c.Flags().BoolVar(&summaryJSON, "json", false, "Output JSON")
	}
	dashboardSetCmd.Flags().StringSliceVar(&dashOrder, "order", nil, "Section order, comma separated")
	dashboardSetCmd.Flags().StringSliceVar(&dashHide, "hide", nil, "Sections to hide")
	dashboardSetCmd.Flags().StringSliceVar(&dashShow, "show", nil, "Sections to show")
	dashboardSetCmd.Flags().BoolVar(&dashReset, "reset", false, "Start from the default layout")

	dashboardCmd.AddCommand(dashboardShowCmd, dashboardSetCmd)
	rootCmd.AddCommand(todayCmd, statsCmd, dashboardCmd)
}
