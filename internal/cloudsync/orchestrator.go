// Package cloudsync moves persons and entries between the local store and
// a remote backend. Conflicts resolve last-writer-wins on UpdatedAt.
package cloudsync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
	"github.com/redboxergaming-hash/trackerv8/internal/remote"
	"github.com/redboxergaming-hash/trackerv8/internal/store"
)

const (
	// WindowDays is how many days, ending at the selected date, an entry
	// push or pull covers.
	WindowDays     = 30
	EntryPullLimit = 1000
)

// ErrNotSignedIn is returned when no backend or user is configured.
var ErrNotSignedIn = errors.New("sign in with cloud auth to sync")

type Orchestrator struct {
	Store   *store.Store
	Backend remote.Backend
	UserID  string
	Logger  *zap.Logger
}

func (o *Orchestrator) log() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o *Orchestrator) ready() error {
	if o.Backend == nil || o.UserID == "" {
		return ErrNotSignedIn
	}
	return nil
}

// PushPersons upserts every local person and stops at the first failure.
func (o *Orchestrator) PushPersons(ctx context.Context) (PushReport, error) {
	report := PushReport{Kind: KindPersons}
	if err := o.ready(); err != nil {
		return report, err
	}
	persons, err := o.Store.Persons(ctx)
	if err != nil {
		return report, err
	}
	for _, p := range persons {
		if _, err := o.Backend.UpsertPerson(ctx, remote.PersonToWire(o.UserID, p)); err != nil {
			report.Err = err
			o.log().Error("push persons failed", zap.String("person_id", p.ID), zap.Int("pushed", report.Pushed), zap.Error(err))
			return report, err
		}
		report.Pushed++
	}
	o.log().Info("pushed persons", zap.Int("count", report.Pushed))
	return report, nil
}

// PullPersons applies remote persons that are newer than their local copy.
func (o *Orchestrator) PullPersons(ctx context.Context) (PersonPullReport, error) {
	var report PersonPullReport
	if err := o.ready(); err != nil {
		return report, err
	}
	rows, err := o.Backend.ListPersons(ctx)
	if err != nil {
		return report, err
	}
	report.Fetched = len(rows)
	for _, row := range rows {
		incoming := remote.PersonFromWire(row)
		local, err := o.Store.Person(ctx, incoming.ID)
		switch {
		case err == nil:
			if !local.UpdatedAt.Before(incoming.UpdatedAt) {
				report.Skipped++
				continue
			}
			// Micro targets are not synced; keep the device's.
			incoming.MicroTargets = local.MicroTargets
			incoming.CreatedAt = local.CreatedAt
		case !errors.Is(err, model.ErrNotFound):
			return report, err
		}
		if _, err := o.Store.ApplyRemotePerson(ctx, incoming); err != nil {
			if model.IsValidation(err) {
				o.log().Warn("skipping invalid cloud person", zap.String("person_id", row.ID), zap.Error(err))
				report.Skipped++
				continue
			}
			return report, err
		}
		report.Imported++
	}
	o.log().Info("pulled persons", zap.Int("fetched", report.Fetched), zap.Int("imported", report.Imported), zap.Int("skipped", report.Skipped))
	return report, nil
}

// PullPersonsIfEmpty pulls persons only when the device has none, the
// behaviour wanted right after signing in.
func (o *Orchestrator) PullPersonsIfEmpty(ctx context.Context) (PersonPullReport, error) {
	if err := o.ready(); err != nil {
		return PersonPullReport{}, err
	}
	local, err := o.Store.Persons(ctx)
	if err != nil {
		return PersonPullReport{}, err
	}
	if len(local) > 0 {
		o.log().Info("local persons present, skipping cloud pull", zap.Int("local", len(local)))
		return PersonPullReport{LocalNotEmpty: true}, nil
	}
	return o.PullPersons(ctx)
}

func (o *Orchestrator) window(endDate string) (string, string, error) {
	if endDate == "" {
		endDate = o.Store.Today()
	}
	if err := model.RequireDate("endDate", endDate); err != nil {
		return "", "", err
	}
	start, err := model.ShiftDate(endDate, -(WindowDays - 1))
	if err != nil {
		return "", "", fmt.Errorf("compute sync window: %w", err)
	}
	return start, endDate, nil
}

// PushEntries upserts the person's entries in the window ending at endDate
// and stops at the first failure.
func (o *Orchestrator) PushEntries(ctx context.Context, personID, endDate string) (PushReport, error) {
	report := PushReport{Kind: KindEntries}
	if err := o.ready(); err != nil {
		return report, err
	}
	if err := model.RequireID("personId", personID); err != nil {
		return report, err
	}
	start, end, err := o.window(endDate)
	if err != nil {
		return report, err
	}
	entries, err := o.Store.EntriesInRange(ctx, personID, start, end)
	if err != nil {
		return report, err
	}
	for _, e := range entries {
		row, err := remote.EntryToWire(o.UserID, e)
		if err == nil {
			_, err = o.Backend.UpsertEntry(ctx, row)
		}
		if err != nil {
			report.Err = err
			o.log().Error("push entries failed", zap.String("entry_id", e.ID), zap.Int("pushed", report.Pushed), zap.Error(err))
			return report, err
		}
		report.Pushed++
	}
	o.log().Info("pushed entries", zap.String("person_id", personID), zap.String("start", start), zap.String("end", end), zap.Int("count", report.Pushed))
	return report, nil
}

// PullEntries applies remote entries in the window ending at endDate unless
// the local copy is at least as new.
func (o *Orchestrator) PullEntries(ctx context.Context, personID, endDate string) (EntryPullReport, error) {
	var report EntryPullReport
	if err := o.ready(); err != nil {
		return report, err
	}
	if err := model.RequireID("personId", personID); err != nil {
		return report, err
	}
	start, end, err := o.window(endDate)
	if err != nil {
		return report, err
	}
	rows, err := o.Backend.ListEntries(ctx, remote.EntryFilter{PersonID: personID, StartDate: start, EndDate: end, Limit: EntryPullLimit})
	if err != nil {
		return report, err
	}
	for _, row := range rows {
		incoming, err := remote.EntryFromWire(row)
		if err != nil {
			o.log().Warn("skipping undecodable cloud entry", zap.String("entry_id", row.ID), zap.Error(err))
			report.Skipped++
			continue
		}
		local, err := o.Store.Entry(ctx, incoming.ID)
		switch {
		case err == nil:
			if !local.UpdatedAt.Before(incoming.UpdatedAt) {
				report.Skipped++
				continue
			}
		case !errors.Is(err, model.ErrNotFound):
			return report, err
		}
		if _, err := o.Store.ApplyRemoteEntry(ctx, incoming); err != nil {
			if model.IsValidation(err) {
				o.log().Warn("skipping invalid cloud entry", zap.String("entry_id", row.ID), zap.Error(err))
				report.Skipped++
				continue
			}
			return report, err
		}
		report.Imported++
	}
	o.log().Info("pulled entries", zap.String("person_id", personID), zap.Int("imported", report.Imported), zap.Int("skipped", report.Skipped))
	return report, nil
}

// DeleteEntry removes an entry remotely and then locally. The local row is
// kept when the remote delete fails.
func (o *Orchestrator) DeleteEntry(ctx context.Context, id string) error {
	if err := o.ready(); err != nil {
		return err
	}
	if err := o.Backend.DeleteEntry(ctx, id); err != nil {
		return err
	}
	if err := o.Store.DeleteEntry(ctx, id); err != nil && !errors.Is(err, model.ErrNotFound) {
		return err
	}
	return nil
}

// DeletePerson removes a person remotely and then deletes them and
// everything filed under them locally.
func (o *Orchestrator) DeletePerson(ctx context.Context, id string) error {
	if err := o.ready(); err != nil {
		return err
	}
	if err := o.Backend.DeletePerson(ctx, id); err != nil {
		return err
	}
	return o.Store.DeletePersonCascade(ctx, id)
}

// Mirror forwards committed local writes to the backend until ctx is done
// or events is closed. Failures are logged and never reach the writer.
func (o *Orchestrator) Mirror(ctx context.Context, events <-chan store.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			o.mirror(ctx, ev)
		}
	}
}

func (o *Orchestrator) mirror(ctx context.Context, ev store.Event) {
	if o.ready() != nil {
		return
	}
	switch {
	case ev.Kind == store.EventEntrySaved && ev.Entry != nil:
		row, err := remote.EntryToWire(o.UserID, *ev.Entry)
		if err == nil {
			_, err = o.Backend.UpsertEntry(ctx, row)
		}
		if err != nil {
			o.log().Error("mirror entry failed", zap.String("entry_id", ev.Entry.ID), zap.Error(err))
			return
		}
		o.log().Debug("mirrored entry", zap.String("entry_id", ev.Entry.ID))
	case ev.Kind == store.EventProductCached && ev.Product != nil:
		if _, err := o.Backend.UpsertProductPointer(ctx, remote.ProductToWire(o.UserID, *ev.Product)); err != nil {
			o.log().Error("mirror product pointer failed", zap.String("barcode", ev.Product.Barcode), zap.Error(err))
			return
		}
		o.log().Debug("mirrored product pointer", zap.String("barcode", ev.Product.Barcode))
	}
}
