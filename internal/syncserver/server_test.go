package syncserver_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redboxergaming-hash/trackerv8/internal/db"
	"github.com/redboxergaming-hash/trackerv8/internal/model"
	"github.com/redboxergaming-hash/trackerv8/internal/remote"
	"github.com/redboxergaming-hash/trackerv8/internal/syncserver"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sqldb, err := db.Open(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	storage, err := syncserver.NewStorage(context.Background(), sqldb)
	require.NoError(t, err)
	ts := httptest.NewServer(syncserver.New(storage, testSecret, nil).Router())
	t.Cleanup(ts.Close)
	return ts
}

func clientFor(t *testing.T, ts *httptest.Server, userID string) *remote.Client {
	t.Helper()
	token, err := syncserver.IssueToken(testSecret, userID, time.Hour)
	require.NoError(t, err)
	return &remote.Client{BaseURL: ts.URL, Token: token, HTTPClient: ts.Client()}
}

func TestPersonsAreScopedPerUser(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	alice := clientFor(t, ts, "alice")
	bob := clientFor(t, ts, "bob")

	stamp := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	p := model.Person{ID: "p1", Name: "Alex", KcalGoal: 2200, WaterGoalMl: 2000, ExerciseGoalMin: 30, UpdatedAt: stamp}
	saved, err := alice.UpsertPerson(ctx, remote.PersonToWire("ignored", p))
	require.NoError(t, err)
	assert.Equal(t, "alice", saved.UserID)
	assert.True(t, saved.UpdatedAt.Equal(stamp))

	rows, err := alice.ListPersons(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alex", rows[0].Name)

	rows, err = bob.ListPersons(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, alice.DeletePerson(ctx, "p1"))
	rows, err = alice.ListPersons(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEntriesFilterAndOrder(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	c := clientFor(t, ts, "alice")

	base := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	for i, date := range []string{"2024-01-01", "2024-01-05", "2024-01-09", "2024-01-20"} {
		e := model.Entry{ID: "e" + date, PersonID: "p1", Date: date, FoodName: "Rice", Kcal: 100, UpdatedAt: base.Add(time.Duration(i) * time.Minute)}
		row, err := remote.EntryToWire("", e)
		require.NoError(t, err)
		_, err = c.UpsertEntry(ctx, row)
		require.NoError(t, err)
	}
	other, err := remote.EntryToWire("", model.Entry{ID: "x", PersonID: "p2", Date: "2024-01-05", FoodName: "Egg"})
	require.NoError(t, err)
	_, err = c.UpsertEntry(ctx, other)
	require.NoError(t, err)

	rows, err := c.ListEntries(ctx, remote.EntryFilter{PersonID: "p1", StartDate: "2024-01-05", EndDate: "2024-01-10"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01-09", rows[0].Date, "newest update first")
	assert.Equal(t, "2024-01-05", rows[1].Date)

	rows, err = c.ListEntries(ctx, remote.EntryFilter{PersonID: "p1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-01-20", rows[0].Date)

	require.NoError(t, c.DeleteEntry(ctx, "e2024-01-20"))
	rows, err = c.ListEntries(ctx, remote.EntryFilter{PersonID: "p1"})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestRejectsBadRequests(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	anonymous := &remote.Client{BaseURL: ts.URL, HTTPClient: ts.Client()}
	_, err := anonymous.ListPersons(ctx)
	var te *remote.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusUnauthorized, te.Status)

	forged, err := syncserver.IssueToken("other-secret", "alice", time.Hour)
	require.NoError(t, err)
	_, err = (&remote.Client{BaseURL: ts.URL, Token: forged, HTTPClient: ts.Client()}).ListPersons(ctx)
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusUnauthorized, te.Status)

	c := clientFor(t, ts, "alice")
	_, err = c.UpsertPerson(ctx, remote.PersonRow{ID: "p1"})
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusBadRequest, te.Status)

	_, err = c.ListEntries(ctx, remote.EntryFilter{Limit: 999999})
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusBadRequest, te.Status)

	_, err = c.UpsertProductPointer(ctx, remote.ProductPointerRow{Barcode: "123", ProductName: "Bar"})
	assert.NoError(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()
	token, err := syncserver.IssueToken(testSecret, "alice", time.Minute)
	require.NoError(t, err)
	sub, err := syncserver.ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)

	noExpiry, err := syncserver.IssueToken(testSecret, "alice", -time.Minute)
	require.NoError(t, err)
	_, err = syncserver.ParseToken(testSecret, noExpiry)
	assert.NoError(t, err, "non-positive ttl issues a token without expiry")

	_, err = syncserver.ParseToken(testSecret, "garbage")
	assert.ErrorIs(t, err, syncserver.ErrInvalidToken)
}
