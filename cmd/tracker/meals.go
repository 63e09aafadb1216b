package tracker

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
	"github.com/redboxergaming-hash/trackerv8/internal/store"
)

var (
	mealID       string
	mealName     string
	mealItems    []string
	mealServings float64
	mealDate     string
	mealTime     string
	mealJSON     bool
)

const itemHelp = `Item as "label=Oats,grams=60,kcal=389,p=16.9,c=66.3,f=6.9" (repeatable; kcal/p/c/f are per 100g)`

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage meal templates",
}

var templateAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create or replace a meal template",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := model.MealTemplate{ID: mealID, Name: mealName}
		for _, spec := range mealItems {
			key, label, grams, per100, err := parseFoodItem(spec)
			if err != nil {
				return err
			}
			t.Items = append(t.Items, model.TemplateItem{FoodKey: key, Label: label, Per100g: per100, GramsDefault: grams})
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			saved, err := st.UpsertMealTemplate(ctx, t)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved template %s (%s) with %d item(s)\n", saved.Name, saved.ID, len(saved.Items))
			return nil
		})
	},
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List meal templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			templates, err := st.MealTemplates(ctx)
			if err != nil {
				return err
			}
			if mealJSON {
				return printJSON(cmd, templates)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ID\tNAME\tITEMS\tKCAL")
			for _, t := range templates {
				var kcal float64
				for _, it := range t.Items {
					kcal += model.ScalePer100g(it.Per100g, it.GramsDefault).Kcal
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\t%.1f\n", t.ID, t.Name, len(t.Items), model.RoundTo(kcal, 1))
			}
			return nil
		})
	},
}

var templateLogCmd = &cobra.Command{
	Use:   "log <id>",
	Short: "Log every item of a template as entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDateFlag(mealDate)
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			summary, err := st.LogMealTemplate(ctx, args[0], p.ID, date, mealTime)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %d item(s) for %s: %.1f kcal\n", summary.Count, p.Name, summary.TotalKcal)
			return nil
		})
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a meal template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			if err := st.DeleteMealTemplate(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted template %s\n", args[0])
			return nil
		})
	},
}

var recipeCmd = &cobra.Command{
	Use:   "recipe",
	Short: "Manage recipes",
}

var recipeAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create or replace a recipe",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := model.Recipe{ID: mealID, Name: mealName, ServingsDefault: mealServings}
		for _, spec := range mealItems {
			key, label, grams, per100, err := parseFoodItem(spec)
			if err != nil {
				return err
			}
			r.Items = append(r.Items, model.RecipeItem{FoodKey: key, Label: label, Per100g: per100, Grams: grams})
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			saved, err := st.UpsertRecipe(ctx, r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved recipe %s (%s): %.1f kcal per serving\n", saved.Name, saved.ID, saved.PerServing.Kcal)
			return nil
		})
	},
}

var recipeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recipes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			recipes, err := st.Recipes(ctx)
			if err != nil {
				return err
			}
			if mealJSON {
				return printJSON(cmd, recipes)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ID\tNAME\tSERVINGS\tGRAMS\tKCAL/SERVING")
			for _, r := range recipes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%g\t%.0f\t%.1f\n", r.ID, r.Name, r.ServingsDefault, r.TotalGrams, r.PerServing.Kcal)
			}
			return nil
		})
	},
}

var recipeLogCmd = &cobra.Command{
	Use:   "log <id>",
	Short: "Log servings of a recipe as one entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDateFlag(mealDate)
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			e, err := st.LogRecipe(ctx, args[0], p.ID, date, mealTime, mealServings)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %s for %s: %.1f kcal (%s)\n", e.FoodName, p.Name, e.Kcal, e.ID)
			return nil
		})
	},
}

var recipeDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a recipe",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			if err := st.DeleteRecipe(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted recipe %s\n", args[0])
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{templateAddCmd, recipeAddCmd} {
		c.Flags().StringVar(&mealID, "id", "", "Existing id to replace")
		c.Flags().StringVar(&mealName, "name", "", "Name")
		c.Flags().StringArrayVar(&mealItems, "item", nil, itemHelp)
	}
	recipeAddCmd.Flags().Float64Var(&mealServings, "servings", 1, "Servings the recipe makes")
	recipeLogCmd.Flags().Float64Var(&mealServings, "servings", 1, "Servings eaten")
	for _, c := range []*cobra.Command{templateLogCmd, recipeLogCmd} {
		c.Flags().StringVar(&mealDate, "date", "", "Date (default today)")
		c.Flags().StringVar(&mealTime, "time", "", "Time HH:MM")
	}
	templateListCmd.Flags().BoolVar(&mealJSON, "json", false, "Output JSON")
	recipeListCmd.Flags().BoolVar(&mealJSON, "json", false, "Output JSON")

	templateCmd.AddCommand(templateAddCmd, templateListCmd, templateLogCmd, templateDeleteCmd)
	recipeCmd.AddCommand(recipeAddCmd, recipeListCmd, recipeLogCmd, recipeDeleteCmd)
	rootCmd.AddCommand(templateCmd, recipeCmd)
}
