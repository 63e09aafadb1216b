package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

func TestListEntriesSendsFilterAndToken(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/entries", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "p1", q.Get("person_id"))
		assert.Equal(t, "2024-01-01", q.Get("start_date"))
		assert.Equal(t, "2024-01-30", q.Get("end_date"))
		assert.Equal(t, "500", q.Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"e1","person_id":"p1","date":"2024-01-02","time":"08:00","payload_json":{"foodName":"Oats","kcal":150},"updated_at":"2024-01-02T08:00:00Z"}]}`))
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL, Token: "secret", HTTPClient: ts.Client()}
	rows, err := c.ListEntries(context.Background(), EntryFilter{PersonID: "p1", StartDate: "2024-01-01", EndDate: "2024-01-30"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	e, err := EntryFromWire(rows[0])
	require.NoError(t, err)
	assert.Equal(t, "Oats", e.FoodName)
	assert.Equal(t, 150.0, e.Kcal)
	assert.Equal(t, "p1", e.PersonID)
	assert.True(t, e.UpdatedAt.Equal(time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)))
}

func TestUpsertPersonRoundTrip(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/persons/p1", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		var row PersonRow
		assert.NoError(t, json.Unmarshal(raw, &row))
		row.UserID = "u1"
		_ = json.NewEncoder(w).Encode(map[string]any{"data": row})
	}))
	defer ts.Close()

	p := model.Person{ID: "p1", Name: "Alex", KcalGoal: 2200, WaterGoalMl: 2500, ExerciseGoalMin: 45}
	c := &Client{BaseURL: ts.URL, HTTPClient: ts.Client()}
	row, err := c.UpsertPerson(context.Background(), PersonToWire("", p))
	require.NoError(t, err)
	assert.Equal(t, "u1", row.UserID)

	back := PersonFromWire(row)
	assert.Equal(t, 2500, back.WaterGoalMl)
	assert.Equal(t, 45, back.ExerciseGoalMin)
}

func TestTransportErrors(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/entries/bad":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"id mismatch"}}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer ts.Close()
	c := &Client{BaseURL: ts.URL, HTTPClient: ts.Client()}

	err := c.DeleteEntry(context.Background(), "bad")
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusBadRequest, te.Status)
	assert.False(t, te.Retryable())
	assert.Contains(t, err.Error(), "id mismatch")

	_, err = c.ListPersons(context.Background())
	require.True(t, errors.As(err, &te))
	assert.True(t, te.Retryable())

	_, err = (&Client{}).ListPersons(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestEntryFromWireFallsBackToPayloadTimestamp(t *testing.T) {
	t.Parallel()

	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	row, err := EntryToWire("u1", model.Entry{ID: "e1", PersonID: "p1", Date: "2024-03-01", FoodName: "Rice", UpdatedAt: stamp})
	require.NoError(t, err)
	row.UpdatedAt = time.Time{}

	e, err := EntryFromWire(row)
	require.NoError(t, err)
	assert.True(t, e.UpdatedAt.Equal(stamp))

	_, err = EntryFromWire(EntryRow{ID: "e2", Payload: json.RawMessage(`"nope"`)})
	assert.Error(t, err)
}
