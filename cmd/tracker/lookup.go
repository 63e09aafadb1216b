package tracker

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/redboxergaming-hash/trackerv8/internal/labelscan"
	"github.com/redboxergaming-hash/trackerv8/internal/model"
	"github.com/redboxergaming-hash/trackerv8/internal/nutrition"
	"github.com/redboxergaming-hash/trackerv8/internal/store"
)

var (
	lookupJSON  bool
	lookupLimit int
	labelFile   string
	labelName   string
	labelGrams  float64
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look foods up by barcode, name, or label text",
}

var lookupBarcodeCmd = &cobra.Command{
	Use:   "barcode <code>",
	Short: "Fetch a product by barcode (falls back to the local cache)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			res, err := newNutritionService(st).Lookup(ctx, args[0])
			if err != nil {
				return err
			}
			if lookupJSON {
				return printJSON(cmd, res.Product)
			}
			if res.FromCache {
				fmt.Fprintln(cmd.ErrOrStderr(), "Lookup failed; showing cached product.")
			}
			printProduct(cmd.OutOrStdout(), res.Product)
			return nil
		})
	},
}

var lookupSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search products by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		searcher := &nutrition.Searcher{Provider: newFoodProvider()}
		products, err := searcher.Search(ctx, args[0], lookupLimit)
		if err != nil {
			return err
		}
		if lookupJSON {
			return printJSON(cmd, products)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "BARCODE\tNAME\tBRANDS\tKCAL/100G")
		for _, p := range products {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%g\n", p.Barcode, p.ProductName, p.Brands, p.Nutrition.Kcal)
		}
		return nil
	},
}

var lookupLabelCmd = &cobra.Command{
	Use:   "label",
	Short: "Extract per-100g values from nutrition label text",
	Long:  "Reads label text (for example OCR output) from --file or stdin.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if labelFile != "" && labelFile != "-" {
			f, err := os.Open(labelFile)
			if err != nil {
				return fmt.Errorf("open label file: %w", err)
			}
			defer f.Close()
			r = f
		}
		text, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("read label text: %w", err)
		}
		res := labelscan.ParseText(string(text))
		for _, w := range res.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
		}
		if labelName != "" {
			return logLabel(cmd, res)
		}
		if lookupJSON {
			return printJSON(cmd, res)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "kcal100g\t%s\n", formatOptional(res.Macros.Kcal100g))
		fmt.Fprintf(out, "p100g\t%s\n", formatOptional(res.Macros.P100g))
		fmt.Fprintf(out, "c100g\t%s\n", formatOptional(res.Macros.C100g))
		fmt.Fprintf(out, "f100g\t%s\n", formatOptional(res.Macros.F100g))
		fmt.Fprintf(out, "sugar_g\t%s\n", formatOptional(res.Micros.SugarG))
		fmt.Fprintf(out, "fiber_g\t%s\n", formatOptional(res.Micros.FiberG))
		fmt.Fprintf(out, "sodium_mg\t%s\n", formatOptional(res.Micros.SodiumMg))
		fmt.Fprintf(out, "salt_g\t%s\n", formatOptional(res.Micros.SaltG))
		return nil
	},
}

// logLabel logs --grams of the scanned food as a custom entry.
func logLabel(cmd *cobra.Command, res labelscan.Result) error {
	per100, err := res.Per100g()
	if err != nil {
		return err
	}
	if labelGrams <= 0 {
		return fmt.Errorf("--grams is required with --name")
	}
	date, err := parseDateFlag("")
	if err != nil {
		return err
	}
	return withStore(cmd, func(ctx context.Context, st *store.Store) error {
		p, err := resolvePerson(ctx, st)
		if err != nil {
			return err
		}
		item := model.RecentItem{FoodID: "label:" + strings.ToLower(strings.TrimSpace(labelName)), Label: labelName, Nutrition: per100, SourceType: "label"}
		m := model.ScalePer100g(per100, labelGrams)
		e := model.Entry{
			PersonID: p.ID, Date: date, Time: time.Now().Format("15:04"),
			FoodID: item.FoodID, FoodName: labelName, AmountGrams: labelGrams,
			Kcal: m.Kcal, P: m.P, C: m.C, F: m.F, Source: "label",
			Micros: labelMicros(res, labelGrams),
			Recent: &item, LastPortionKey: model.LastPortionKey(p.ID, item.FoodID),
		}
		saved, err := st.AddEntry(ctx, e)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged %s for %s: %.1f kcal (%s)\n", saved.FoodName, p.Name, saved.Kcal, saved.ID)
		return nil
	})
}

func labelMicros(res labelscan.Result, grams float64) map[string]float64 {
	out := map[string]float64{}
	for key, v := range map[string]*float64{"sugar": res.Micros.SugarG, "fiber": res.Micros.FiberG, "sodiumMg": res.Micros.SodiumMg} {
		if v != nil {
			out[key] = model.RoundTo(*v*grams/100, 2)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func printProduct(w io.Writer, p model.Product) {
	n := p.Nutrition
	fmt.Fprintf(w, "barcode\t%s\n", p.Barcode)
	fmt.Fprintf(w, "name\t%s\n", p.ProductName)
	if p.Brands != "" {
		fmt.Fprintf(w, "brands\t%s\n", p.Brands)
	}
	fmt.Fprintf(w, "per100g\tkcal %g\tp %g\tc %g\tf %g\n", n.Kcal, n.P, n.C, n.F)
	fmt.Fprintf(w, "fiber\t%s\n", formatOptional(n.Fiber))
	fmt.Fprintf(w, "sugar\t%s\n", formatOptional(n.Sugar))
	fmt.Fprintf(w, "sodium_mg\t%s\n", formatOptional(n.SodiumMg))
	fmt.Fprintf(w, "source\t%s\n", p.Source)
}

func init() {
	for _, c := range []*cobra.Command{lookupBarcodeCmd, lookupSearchCmd, lookupLabelCmd} {
		c.Flags().BoolVar(&lookupJSON, "json", false, "Output JSON")
	}
	lookupSearchCmd.Flags().IntVar(&lookupLimit, "limit", 10, "Maximum results")
	lookupLabelCmd.Flags().StringVar(&labelFile, "file", "", "Label text file (default stdin)")
	lookupLabelCmd.Flags().StringVar(&labelName, "name", "", "Log the scanned food under this name")
	lookupLabelCmd.Flags().Float64Var(&labelGrams, "grams", 0, "Grams to log with --name")

	lookupCmd.AddCommand(lookupBarcodeCmd, lookupSearchCmd, lookupLabelCmd)
	rootCmd.AddCommand(lookupCmd)
}
