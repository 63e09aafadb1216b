package store_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/redboxergaming-hash/trackerv8/internal/db"
	"github.com/redboxergaming-hash/trackerv8/internal/model"
	"github.com/redboxergaming-hash/trackerv8/internal/store"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances one second per call so successive writes get distinct stamps.
func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	sqldb, err := db.OpenMigrated(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = sqldb.Close() })
	clock := &stepClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	return store.New(sqldb, store.WithClock(clock.Now), store.WithLocation(time.UTC))
}

func mustPerson(t *testing.T, s *store.Store, name string, kcal int) model.Person {
	t.Helper()
	p, err := s.UpsertPerson(context.Background(), model.Person{Name: name, KcalGoal: kcal})
	if err != nil {
		t.Fatalf("upsert person %s: %v", name, err)
	}
	return p
}

func mustEntry(t *testing.T, s *store.Store, e model.Entry) model.Entry {
	t.Helper()
	saved, err := s.AddEntry(context.Background(), e)
	if err != nil {
		t.Fatalf("add entry %s: %v", e.FoodName, err)
	}
	return saved
}

func ptr(v float64) *float64 { return &v }
