package tracker

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
	"github.com/redboxergaming-hash/trackerv8/internal/store"
)

var personCmd = &cobra.Command{
	Use:   "person",
	Short: "Manage the people being tracked",
}

var (
	personID       string
	personName     string
	personKcal     int
	personProtein  float64
	personCarbs    float64
	personFat      float64
	personWater    int
	personExercise int
	personJSON     bool
	personYes      bool
)

var personAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a person, or edit one with --id",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p := model.Person{
				ID:       personID,
				Name:     personName,
				KcalGoal: personKcal,
				MacroTargets: model.MacroTargets{
					P: optionalFloat(cmd, "protein", personProtein),
					C: optionalFloat(cmd, "carbs", personCarbs),
					F: optionalFloat(cmd, "fat", personFat),
				},
				WaterGoalMl:     personWater,
				ExerciseGoalMin: personExercise,
			}
			if personID != "" {
				existing, err := st.Person(ctx, personID)
				if err != nil {
					return err
				}
				p.CreatedAt = existing.CreatedAt
				p.MicroTargets = existing.MicroTargets
			}
			saved, err := st.UpsertPerson(ctx, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved person %s (%s)\n", saved.Name, saved.ID)
			return nil
		})
	},
}

var personListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persons",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			persons, err := st.Persons(ctx)
			if err != nil {
				return err
			}
			if personJSON {
				return printJSON(cmd, persons)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ID\tNAME\tKCAL\tP\tC\tF\tWATER_ML\tEXERCISE_MIN")
			for _, p := range persons {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\t%s\t%s\t%s\t%d\t%d\n", p.ID, p.Name, p.KcalGoal,
					formatOptional(p.MacroTargets.P), formatOptional(p.MacroTargets.C), formatOptional(p.MacroTargets.F),
					p.WaterGoalMl, p.ExerciseGoalMin)
			}
			return nil
		})
	},
}

var personShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one person",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := st.Person(ctx, args[0])
			if err != nil {
				return err
			}
			if personJSON {
				return printJSON(cmd, p)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID: %s\n", p.ID)
			fmt.Fprintf(out, "Name: %s\n", p.Name)
			fmt.Fprintf(out, "Calorie goal: %d\n", p.KcalGoal)
			fmt.Fprintf(out, "Protein: %s\nCarbs: %s\nFat: %s\n", formatOptional(p.MacroTargets.P), formatOptional(p.MacroTargets.C), formatOptional(p.MacroTargets.F))
			fmt.Fprintf(out, "Water goal: %d ml\nExercise goal: %d min\n", p.WaterGoalMl, p.ExerciseGoalMin)
			fmt.Fprintf(out, "Updated: %s\n", p.UpdatedAt.Local().Format("2006-01-02 15:04"))
			return nil
		})
	},
}

var personDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a person and everything logged for them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := st.Person(ctx, args[0])
			if err != nil {
				return err
			}
			if err := confirm(fmt.Sprintf("Delete %s and all of their entries, logs and goals?", p.Name), personYes); err != nil {
				return err
			}
			orch, err := newOrchestrator(st)
			if err != nil {
				return err
			}
			if orch != nil {
				err = orch.DeletePerson(ctx, p.ID)
			} else {
				err = st.DeletePersonCascade(ctx, p.ID)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted person %s\n", p.Name)
			return nil
		})
	},
}

func init() {
	personAddCmd.Flags().StringVar(&personID, "id", "", "Existing person id to edit")
	personAddCmd.Flags().StringVar(&personName, "name", "", "Display name")
	personAddCmd.Flags().IntVar(&personKcal, "kcal", 2000, "Daily calorie goal")
	personAddCmd.Flags().Float64Var(&personProtein, "protein", 0, "Daily protein target (g)")
	personAddCmd.Flags().Float64Var(&personCarbs, "carbs", 0, "Daily carbs target (g)")
	personAddCmd.Flags().Float64Var(&personFat, "fat", 0, "Daily fat target (g)")
	personAddCmd.Flags().IntVar(&personWater, "water", model.DefaultWaterGoalMl, "Daily water goal (ml)")
	personAddCmd.Flags().IntVar(&personExercise, "exercise", model.DefaultExerciseGoalMin, "Daily exercise goal (minutes)")
	_ = personAddCmd.MarkFlagRequired("name")
	personListCmd.Flags().BoolVar(&personJSON, "json", false, "Output JSON")
	personShowCmd.Flags().BoolVar(&personJSON, "json", false, "Output JSON")
	personDeleteCmd.Flags().BoolVarP(&personYes, "yes", "y", false, "Skip the confirmation prompt")

	personCmd.AddCommand(personAddCmd, personListCmd, personShowCmd, personDeleteCmd)
	rootCmd.AddCommand(personCmd)
}
