package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/redboxergaming-hash/trackerv8/internal/app"
	"github.com/redboxergaming-hash/trackerv8/internal/cloudsync"
	"github.com/redboxergaming-hash/trackerv8/internal/db"
	"github.com/redboxergaming-hash/trackerv8/internal/model"
	"github.com/redboxergaming-hash/trackerv8/internal/nutrition"
	"github.com/redboxergaming-hash/trackerv8/internal/provider/openfoodfacts"
	"github.com/redboxergaming-hash/trackerv8/internal/provider/usda"
	"github.com/redboxergaming-hash/trackerv8/internal/remote"
	"github.com/redboxergaming-hash/trackerv8/internal/store"
)

const mirrorDrainTimeout = 5 * time.Second

var errConfirmationRequired = errors.New("refusing to continue without confirmation (pass --yes)")

// withStore opens the migrated local store. When a remote is configured,
// committed entries and cached products are mirrored to it before return.
func withStore(cmd *cobra.Command, run func(ctx context.Context, st *store.Store) error) error {
	if err := app.EnsureDBDir(cfg.DBPath); err != nil {
		return err
	}
	sqldb, err := db.OpenMigrated(cfg.DBPath)
	if err != nil {
		return err
	}
	defer sqldb.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st := store.New(sqldb, store.WithLogger(logger))

	orch, err := newOrchestrator(st)
	if err != nil {
		return err
	}
	if orch == nil {
		return run(ctx, st)
	}
	events, unsubscribe := st.Events().Subscribe(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		orch.Mirror(context.WithoutCancel(ctx), events)
	}()
	runErr := run(ctx, st)
	unsubscribe()
	select {
	case <-done:
	case <-time.After(mirrorDrainTimeout):
		logger.Warn("timed out mirroring writes to cloud")
	}
	return runErr
}

// newOrchestrator returns nil when no remote is configured.
func newOrchestrator(st *store.Store) (*cloudsync.Orchestrator, error) {
	if cfg.Remote.URL == "" {
		return nil, nil
	}
	session, err := app.NewSession(cfg.Remote)
	if err != nil {
		return nil, err
	}
	if !session.SignedIn() {
		return nil, nil
	}
	return &cloudsync.Orchestrator{
		Store:   st,
		Backend: remote.NewClient(cfg.Remote.URL, session.Token, cfg.Remote.Timeout),
		UserID:  session.UserID,
		Logger:  logger.Named("cloudsync"),
	}, nil
}

// resolvePerson finds the person named by --person or the config, matching
// id first and then name. With neither set, a store holding exactly one
// person resolves to it.
func resolvePerson(ctx context.Context, st *store.Store) (model.Person, error) {
	want := strings.TrimSpace(cfg.Person)
	if want != "" {
		if p, err := st.Person(ctx, want); err == nil {
			return p, nil
		} else if !errors.Is(err, model.ErrNotFound) {
			return model.Person{}, err
		}
	}
	persons, err := st.Persons(ctx)
	if err != nil {
		return model.Person{}, err
	}
	if want == "" {
		switch len(persons) {
		case 0:
			return model.Person{}, fmt.Errorf("no persons yet; add one with `tracker person add`")
		case 1:
			return persons[0], nil
		default:
			return model.Person{}, fmt.Errorf("several persons exist; choose one with --person")
		}
	}
	for _, p := range persons {
		if strings.EqualFold(p.Name, want) {
			return p, nil
		}
	}
	return model.Person{}, model.NotFound("person", want)
}

func parseDateFlag(value string) (string, error) {
	return app.ParseDate(value, time.Now())
}

func confirm(title string, assumeYes bool) error {
	if assumeYes {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errConfirmationRequired
	}
	ok := false
	if err := huh.NewConfirm().Title(title).Affirmative("Yes").Negative("No").Value(&ok).Run(); err != nil {
		return fmt.Errorf("confirmation prompt: %w", err)
	}
	if !ok {
		return errors.New("cancelled")
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

func optionalFloat(cmd *cobra.Command, flag string, v float64) *float64 {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &v
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// parseItemSpec reads "key=value" pairs separated by commas, as used by
// --item on templates and recipes.
func parseItemSpec(spec string) (map[string]string, error) {
	out := map[string]string{}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid item field %q (expected key=value)", part)
		}
		out[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out, nil
}

func specFloat(fields map[string]string, key string) (float64, error) {
	raw, ok := fields[key]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}

// parseFoodItem reads label, key, grams and per-100g kcal/p/c/f from an
// item spec. The food key defaults to the lower-cased label.
func parseFoodItem(spec string) (key, label string, grams float64, per100 model.Per100g, err error) {
	fields, err := parseItemSpec(spec)
	if err != nil {
		return "", "", 0, model.Per100g{}, err
	}
	label = fields["label"]
	key = fields["key"]
	if key == "" {
		key = strings.ToLower(label)
	}
	if grams, err = specFloat(fields, "grams"); err != nil {
		return "", "", 0, model.Per100g{}, err
	}
	for name, dst := range map[string]*float64{"kcal": &per100.Kcal, "p": &per100.P, "c": &per100.C, "f": &per100.F} {
		if *dst, err = specFloat(fields, name); err != nil {
			return "", "", 0, model.Per100g{}, err
		}
	}
	return key, label, grams, per100, nil
}

func newNutritionService(st *store.Store) *nutrition.Service {
	return &nutrition.Service{
		Provider: newFoodProvider(),
		Cache:    st,
		Log:      logger.Named("lookup"),
		Timeout:  cfg.Lookup.Timeout,
	}
}

// newFoodProvider queries Open Food Facts, then USDA FoodData Central when
// an API key is configured.
func newFoodProvider() nutrition.Provider {
	httpClient := &http.Client{Timeout: cfg.Lookup.Timeout}
	off := &openfoodfacts.Client{BaseURL: cfg.Lookup.BaseURL, HTTPClient: httpClient}
	if cfg.Lookup.USDAAPIKey == "" {
		return off
	}
	return nutrition.Chain{off, &usda.Client{APIKey: cfg.Lookup.USDAAPIKey, HTTPClient: httpClient}}
}

func parseFloatArg(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}
