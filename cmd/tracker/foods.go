package tracker

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
	"github.com/redboxergaming-hash/trackerv8/internal/store"
)

var (
	foodsJSON    bool
	recentsLimit int
)

var favoriteCmd = &cobra.Command{
	Use:   "favorite",
	Short: "Manage favorite foods",
}

var favoriteToggleCmd = &cobra.Command{
	Use:   "toggle <food-id>",
	Short: "Star or unstar a food from recents or favorites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			item, err := knownFood(ctx, st, p.ID, args[0])
			if err != nil {
				return err
			}
			added, err := st.ToggleFavorite(ctx, p.ID, item)
			if err != nil {
				return err
			}
			if added {
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s to favorites\n", item.Label)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from favorites\n", item.Label)
			}
			return nil
		})
	},
}

var favoriteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List favorite foods",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			favs, err := st.Favorites(ctx, p.ID)
			if err != nil {
				return err
			}
			if foodsJSON {
				return printJSON(cmd, favs)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "FOOD\tLABEL\tKCAL/100G\tSOURCE")
			for _, f := range favs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%g\t%s\n", f.FoodID, f.Label, f.Nutrition.Kcal, f.SourceType)
			}
			return nil
		})
	},
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Inspect recently logged foods",
}

var recentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recently logged foods, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			recents, err := st.Recents(ctx, p.ID, recentsLimit)
			if err != nil {
				return err
			}
			if foodsJSON {
				return printJSON(cmd, recents)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "FOOD\tLABEL\tKCAL/100G\tUSED")
			for _, r := range recents {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%g\t%s\n", r.FoodID, r.Label, r.Nutrition.Kcal, r.UsedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}

// knownFood finds a food the person has logged or starred before.
func knownFood(ctx context.Context, st *store.Store, personID, foodID string) (model.RecentItem, error) {
	favs, err := st.Favorites(ctx, personID)
	if err != nil {
		return model.RecentItem{}, err
	}
	for _, f := range favs {
		if f.FoodID == foodID {
			return model.RecentItem{FoodID: f.FoodID, Label: f.Label, Nutrition: f.Nutrition, SourceType: f.SourceType, PieceGramHint: f.PieceGramHint, ImageURL: f.ImageURL}, nil
		}
	}
	recents, err := st.Recents(ctx, personID, 0)
	if err != nil {
		return model.RecentItem{}, err
	}
	for _, r := range recents {
		if r.FoodID == foodID {
			return model.RecentItem{FoodID: r.FoodID, Label: r.Label, Nutrition: r.Nutrition, SourceType: r.SourceType, PieceGramHint: r.PieceGramHint, ImageURL: r.ImageURL}, nil
		}
	}
	return model.RecentItem{}, model.NotFound("food", foodID)
}

func init() {
	favoriteListCmd.Flags().BoolVar(&foodsJSON, "json", false, "Output JSON")
	recentListCmd.Flags().BoolVar(&foodsJSON, "json", false, "Output JSON")
	recentListCmd.Flags().IntVar(&recentsLimit, "limit", 20, "Maximum foods to list")

	favoriteCmd.AddCommand(favoriteToggleCmd, favoriteListCmd)
	recentCmd.AddCommand(recentListCmd)
	rootCmd.AddCommand(favoriteCmd, recentCmd)
}
