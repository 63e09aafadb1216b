package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
	"github.com/redboxergaming-hash/trackerv8/internal/store"
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Manage food entries",
}

var (
	entryDate    string
	entryTime    string
	entryName    string
	entryFoodID  string
	entryGrams   float64
	entryKcal    float64
	entryProtein float64
	entryCarbs   float64
	entryFat     float64
	entryKcal100 float64
	entryP100    float64
	entryC100    float64
	entryF100    float64
	entryBarcode string
)

var entryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Log a food entry",
	Long: `Log a food entry from absolute macros (--kcal/--protein/--carbs/--fat),
from per-100g values (--kcal100 ... with --grams), or from a barcode.
Per-100g and barcode entries update recents and remember the portion size.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDateFlag(entryDate)
		if err != nil {
			return err
		}
		at := strings.TrimSpace(entryTime)
		if at == "" {
			at = time.Now().Format("15:04")
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			e := model.Entry{PersonID: p.ID, Date: date, Time: at, FoodName: entryName, FoodID: entryFoodID, Source: "manual"}

			var item *model.RecentItem
			switch {
			case entryBarcode != "":
				res, err := newNutritionService(st).Lookup(ctx, entryBarcode)
				if err != nil {
					return err
				}
				if res.FromCache {
					fmt.Fprintln(cmd.ErrOrStderr(), "Lookup failed; using cached product.")
				}
				item = &model.RecentItem{FoodID: res.Product.Barcode, Label: res.Product.ProductName, Nutrition: res.Product.Nutrition.Per100g, SourceType: "barcode", ImageURL: res.Product.ImageURL}
				e.Source = "barcode"
			case cmd.Flags().Changed("kcal100"):
				foodID := entryFoodID
				if foodID == "" {
					foodID = strings.ToLower(strings.TrimSpace(entryName))
				}
				item = &model.RecentItem{FoodID: foodID, Label: entryName, Nutrition: model.Per100g{Kcal: entryKcal100, P: entryP100, C: entryC100, F: entryF100}, SourceType: "custom"}
				e.Source = "custom"
			default:
				e.AmountGrams = entryGrams
				e.Kcal, e.P, e.C, e.F = entryKcal, entryProtein, entryCarbs, entryFat
			}

			if item != nil {
				grams := entryGrams
				if !cmd.Flags().Changed("grams") {
					last, ok, err := st.LastPortion(ctx, p.ID, item.FoodID)
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("--grams is required the first time %q is logged", item.Label)
					}
					grams = last
				}
				m := model.ScalePer100g(item.Nutrition, grams)
				e.FoodID = item.FoodID
				if e.FoodName == "" {
					e.FoodName = item.Label
				}
				e.AmountGrams = grams
				e.Kcal, e.P, e.C, e.F = m.Kcal, m.P, m.C, m.F
				e.Recent = item
				e.LastPortionKey = model.LastPortionKey(p.ID, item.FoodID)
			}

			saved, err := st.AddEntry(ctx, e)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %s for %s: %.1f kcal (%s)\n", saved.FoodName, p.Name, saved.Kcal, saved.ID)
			return nil
		})
	},
}

var (
	listDate string
	listFrom string
	listTo   string
	listJSON bool
)

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries for a day or date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			var entries []model.Entry
			if listFrom != "" || listTo != "" {
				from, err := parseDateFlag(listFrom)
				if err != nil {
					return err
				}
				to, err := parseDateFlag(listTo)
				if err != nil {
					return err
				}
				for e, err := range st.IterEntries(ctx, p.ID, store.EntryWindow{From: from, To: to}) {
					if err != nil {
						return err
					}
					entries = append(entries, e)
				}
			} else {
				date, err := parseDateFlag(listDate)
				if err != nil {
					return err
				}
				if entries, err = st.EntriesForPersonDate(ctx, p.ID, date); err != nil {
					return err
				}
			}
			if listJSON {
				return printJSON(cmd, entries)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ID\tDATE\tTIME\tNAME\tGRAMS\tKCAL\tP\tC\tF\tSOURCE")
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%.0f\t%.1f\t%.1f\t%.1f\t%.1f\t%s\n", e.ID, e.Date, e.Time, e.FoodName, e.AmountGrams, e.Kcal, e.P, e.C, e.F, e.Source)
			}
			return nil
		})
	},
}

var entryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry (and its cloud copy when signed in)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			orch, err := newOrchestrator(st)
			if err != nil {
				return err
			}
			if orch != nil {
				err = orch.DeleteEntry(ctx, args[0])
			} else {
				err = st.DeleteEntry(ctx, args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %s\n", args[0])
			return nil
		})
	},
}

func init() {
	entryAddCmd.Flags().StringVar(&entryDate, "date", "", "Date (YYYY-MM-DD or e.g. \"yesterday\"; default today)")
	entryAddCmd.Flags().StringVar(&entryTime, "time", "", "Time HH:MM (default now)")
	entryAddCmd.Flags().StringVar(&entryName, "name", "", "Food name")
	entryAddCmd.Flags().StringVar(&entryFoodID, "food-id", "", "Stable food key for recents and portions")
	entryAddCmd.Flags().Float64Var(&entryGrams, "grams", 0, "Amount eaten in grams")
	entryAddCmd.Flags().Float64Var(&entryKcal, "kcal", 0, "Calories")
	entryAddCmd.Flags().Float64Var(&entryProtein, "protein", 0, "Protein (g)")
	entryAddCmd.Flags().Float64Var(&entryCarbs, "carbs", 0, "Carbs (g)")
	entryAddCmd.Flags().Float64Var(&entryFat, "fat", 0, "Fat (g)")
	entryAddCmd.Flags().Float64Var(&entryKcal100, "kcal100", 0, "Calories per 100g")
	entryAddCmd.Flags().Float64Var(&entryP100, "p100", 0, "Protein per 100g")
	entryAddCmd.Flags().Float64Var(&entryC100, "c100", 0, "Carbs per 100g")
	entryAddCmd.Flags().Float64Var(&entryF100, "f100", 0, "Fat per 100g")
	entryAddCmd.Flags().StringVar(&entryBarcode, "barcode", "", "Look the food up by barcode")

	entryListCmd.Flags().StringVar(&listDate, "date", "", "Day to list (default today)")
	entryListCmd.Flags().StringVar(&listFrom, "from", "", "Range start date")
	entryListCmd.Flags().StringVar(&listTo, "to", "", "Range end date")
	entryListCmd.Flags().BoolVar(&listJSON, "json", false, "Output JSON")

	entryCmd.AddCommand(entryAddCmd, entryListCmd, entryDeleteCmd)
	rootCmd.AddCommand(entryCmd)
}
