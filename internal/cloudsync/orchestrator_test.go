package cloudsync_test

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redboxergaming-hash/trackerv8/internal/cloudsync"
	"github.com/redboxergaming-hash/trackerv8/internal/db"
	"github.com/redboxergaming-hash/trackerv8/internal/model"
	"github.com/redboxergaming-hash/trackerv8/internal/remote"
	"github.com/redboxergaming-hash/trackerv8/internal/store"
)

type fakeBackend struct {
	mu       sync.Mutex
	persons  map[string]remote.PersonRow
	entries  map[string]remote.EntryRow
	products map[string]remote.ProductPointerRow
	failOn   int
	calls    int
	lastList remote.EntryFilter
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		persons:  map[string]remote.PersonRow{},
		entries:  map[string]remote.EntryRow{},
		products: map[string]remote.ProductPointerRow{},
	}
}

func (f *fakeBackend) fail() error {
	f.calls++
	if f.failOn > 0 && f.calls == f.failOn {
		return &remote.TransportError{Op: "upsert", Status: 503, Err: errors.New("boom")}
	}
	return nil
}

func (f *fakeBackend) UpsertPerson(_ context.Context, row remote.PersonRow) (remote.PersonRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return remote.PersonRow{}, err
	}
	f.persons[row.ID] = row
	return row, nil
}

func (f *fakeBackend) ListPersons(context.Context) ([]remote.PersonRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]remote.PersonRow, 0, len(f.persons))
	for _, row := range f.persons {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBackend) DeletePerson(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.persons, id)
	return nil
}

func (f *fakeBackend) UpsertEntry(_ context.Context, row remote.EntryRow) (remote.EntryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return remote.EntryRow{}, err
	}
	f.entries[row.ID] = row
	return row, nil
}

func (f *fakeBackend) ListEntries(_ context.Context, filter remote.EntryFilter) ([]remote.EntryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = filter
	var out []remote.EntryRow
	for _, row := range f.entries {
		if row.PersonID == filter.PersonID && row.Date >= filter.StartDate && row.Date <= filter.EndDate {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBackend) DeleteEntry(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, id)
	return nil
}

func (f *fakeBackend) UpsertProductPointer(_ context.Context, row remote.ProductPointerRow) (remote.ProductPointerRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[row.Barcode] = row
	return row, nil
}

func (f *fakeBackend) entryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	sqldb, err := db.OpenMigrated(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	var mu sync.Mutex
	now := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
	return store.New(sqldb, store.WithClock(clock), store.WithLocation(time.UTC))
}

func addPerson(t *testing.T, s *store.Store, name string) model.Person {
	t.Helper()
	p, err := s.UpsertPerson(context.Background(), model.Person{Name: name, KcalGoal: 2000})
	require.NoError(t, err)
	return p
}

func addEntry(t *testing.T, s *store.Store, personID, date string) model.Entry {
	t.Helper()
	e, err := s.AddEntry(context.Background(), model.Entry{PersonID: personID, Date: date, FoodName: "Rice", AmountGrams: 100, Kcal: 130})
	require.NoError(t, err)
	return e
}

func TestPushEntriesCoversThirtyDayWindow(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	p := addPerson(t, s, "Alex")
	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-31", "2024-02-01"} {
		addEntry(t, s, p.ID, d)
	}
	backend := newFakeBackend()
	o := &cloudsync.Orchestrator{Store: s, Backend: backend, UserID: "u1"}

	report, err := o.PushEntries(context.Background(), p.ID, "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Pushed)
	assert.Equal(t, "Pushed 2 entries to cloud.", report.String())
	for _, row := range backend.entries {
		assert.Equal(t, "u1", row.UserID)
		assert.NotEqual(t, "2024-01-01", row.Date)
	}
}

func TestPushAbortsOnFirstFailure(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	for _, name := range []string{"Alex", "Sam", "Kim"} {
		addPerson(t, s, name)
	}
	backend := newFakeBackend()
	backend.failOn = 2
	o := &cloudsync.Orchestrator{Store: s, Backend: backend, UserID: "u1"}

	report, err := o.PushPersons(context.Background())
	require.Error(t, err)
	var te *remote.TransportError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, 1, report.Pushed)
	assert.Len(t, backend.persons, 1)
	assert.Equal(t, "Cloud push failed: remote upsert: status 503: boom", report.String())
}

func TestPullEntriesLastWriterWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	p := addPerson(t, s, "Alex")
	older := addEntry(t, s, p.ID, "2024-01-30")
	newer := addEntry(t, s, p.ID, "2024-01-30")

	backend := newFakeBackend()
	put := func(e model.Entry) {
		row, err := remote.EntryToWire("u1", e)
		require.NoError(t, err)
		backend.entries[row.ID] = row
	}
	staleCopy := older
	staleCopy.FoodName = "Stale"
	staleCopy.UpdatedAt = older.UpdatedAt.Add(-time.Minute)
	put(staleCopy)

	freshCopy := newer
	freshCopy.FoodName = "Fresh"
	freshCopy.UpdatedAt = newer.UpdatedAt.Add(time.Minute)
	put(freshCopy)

	sameCopy := model.Entry{ID: "tie", PersonID: p.ID, Date: "2024-01-29", FoodName: "Remote only", Kcal: 50, UpdatedAt: newer.UpdatedAt}
	put(sameCopy)

	o := &cloudsync.Orchestrator{Store: s, Backend: backend, UserID: "u1"}
	report, err := o.PullEntries(ctx, p.ID, "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, "Pulled entries: imported 2, skipped 1.", report.String())
	assert.Equal(t, remote.EntryFilter{PersonID: p.ID, StartDate: "2024-01-02", EndDate: "2024-01-31", Limit: cloudsync.EntryPullLimit}, backend.lastList)

	got, err := s.Entry(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rice", got.FoodName, "local copy is newer")

	got, err = s.Entry(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fresh", got.FoodName)
	assert.True(t, got.UpdatedAt.Equal(freshCopy.UpdatedAt))

	_, err = s.Entry(ctx, "tie")
	require.NoError(t, err)

	again, err := o.PullEntries(ctx, p.ID, "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Imported, "an equal timestamp is not re-applied")
}

func TestPullPersonsIfEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	backend := newFakeBackend()
	backend.persons["p1"] = remote.PersonToWire("u1", model.Person{ID: "p1", Name: "Alex", KcalGoal: 2100, UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	o := &cloudsync.Orchestrator{Store: s, Backend: backend, UserID: "u1"}

	report, err := o.PullPersonsIfEmpty(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Pulled 1 person(s) from cloud.", report.String())
	p, err := s.Person(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2100, p.KcalGoal)
	assert.Equal(t, model.DefaultWaterGoalMl, p.WaterGoalMl)

	report, err = o.PullPersonsIfEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, report.LocalNotEmpty)

	// The local copy was written with the remote timestamp, so a full pull
	// finds nothing newer.
	full, err := o.PullPersons(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, full.Skipped)

	empty := &cloudsync.Orchestrator{Store: newTestStore(t), Backend: newFakeBackend(), UserID: "u1"}
	report, err = empty.PullPersonsIfEmpty(ctx)
	require.NoError(t, err)
	assert.Equal(t, "No cloud persons found.", report.String())
}

func TestMirrorForwardsCommittedWrites(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestStore(t)
	p := addPerson(t, s, "Alex")
	backend := newFakeBackend()
	o := &cloudsync.Orchestrator{Store: s, Backend: backend, UserID: "u1"}

	events, unsubscribe := s.Events().Subscribe(8)
	defer unsubscribe()
	done := make(chan struct{})
	go func() {
		o.Mirror(ctx, events)
		close(done)
	}()

	e := addEntry(t, s, p.ID, "2024-01-31")
	_, err := s.UpsertCachedProduct(ctx, model.Product{Barcode: "737628064502", ProductName: "Noodles", Source: "Open Food Facts"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		_, ok := backend.entries[e.ID]
		_, pok := backend.products["737628064502"]
		return ok && pok
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestDeleteEntryAndSignedOut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	p := addPerson(t, s, "Alex")
	e := addEntry(t, s, p.ID, "2024-01-31")
	backend := newFakeBackend()
	o := &cloudsync.Orchestrator{Store: s, Backend: backend, UserID: "u1"}
	_, err := o.PushEntries(ctx, p.ID, "")
	require.NoError(t, err)
	require.Equal(t, 1, backend.entryCount())

	require.NoError(t, o.DeleteEntry(ctx, e.ID))
	assert.Equal(t, 0, backend.entryCount())
	_, err = s.Entry(ctx, e.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	signedOut := &cloudsync.Orchestrator{Store: s, Backend: backend}
	_, err = signedOut.PushPersons(ctx)
	assert.ErrorIs(t, err, cloudsync.ErrNotSignedIn)
}

func TestDeletePersonRemovesRemoteThenLocal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	p := addPerson(t, s, "Alex")
	backend := newFakeBackend()
	o := &cloudsync.Orchestrator{Store: s, Backend: backend, UserID: "u1"}
	_, err := o.PushPersons(ctx)
	require.NoError(t, err)
	require.Len(t, backend.persons, 1)

	require.NoError(t, o.DeletePerson(ctx, p.ID))
	assert.Empty(t, backend.persons)
	_, err = s.Person(ctx, p.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
