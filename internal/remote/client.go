package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultListLimit = 500
)

// Backend is the remote row store the sync orchestrator talks to.
type Backend interface {
	UpsertPerson(ctx context.Context, row PersonRow) (PersonRow, error)
	ListPersons(ctx context.Context) ([]PersonRow, error)
	DeletePerson(ctx context.Context, id string) error
	UpsertEntry(ctx context.Context, row EntryRow) (EntryRow, error)
	ListEntries(ctx context.Context, f EntryFilter) ([]EntryRow, error)
	DeleteEntry(ctx context.Context, id string) error
	UpsertProductPointer(ctx context.Context, row ProductPointerRow) (ProductPointerRow, error)
}

// EntryFilter narrows ListEntries. Empty fields are not sent; dates are
// inclusive.
type EntryFilter struct {
	PersonID  string
	StartDate string
	EndDate   string
	Limit     int
}

func (f EntryFilter) query() url.Values {
	q := url.Values{}
	if f.PersonID != "" {
		q.Set("person_id", f.PersonID)
	}
	if f.StartDate != "" {
		q.Set("start_date", f.StartDate)
	}
	if f.EndDate != "" {
		q.Set("end_date", f.EndDate)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	q.Set("limit", strconv.Itoa(limit))
	return q
}

// Envelope is the body of every backend response.
type Envelope struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Meta  map[string]any  `json:"meta,omitempty"`
	Error *APIError       `json:"error,omitempty"`
}

// Client talks to a sync server over HTTP with a bearer token.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

var _ Backend = (*Client)(nil)

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) UpsertPerson(ctx context.Context, row PersonRow) (PersonRow, error) {
	var out PersonRow
	err := c.do(ctx, "upsert person", http.MethodPut, "/v1/persons/"+url.PathEscape(row.ID), nil, row, &out)
	return out, err
}

func (c *Client) ListPersons(ctx context.Context) ([]PersonRow, error) {
	var out []PersonRow
	if err := c.do(ctx, "list persons", http.MethodGet, "/v1/persons", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeletePerson(ctx context.Context, id string) error {
	return c.do(ctx, "delete person", http.MethodDelete, "/v1/persons/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) UpsertEntry(ctx context.Context, row EntryRow) (EntryRow, error) {
	var out EntryRow
	err := c.do(ctx, "upsert entry", http.MethodPut, "/v1/entries/"+url.PathEscape(row.ID), nil, row, &out)
	return out, err
}

func (c *Client) ListEntries(ctx context.Context, f EntryFilter) ([]EntryRow, error) {
	var out []EntryRow
	if err := c.do(ctx, "list entries", http.MethodGet, "/v1/entries", f.query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	return c.do(ctx, "delete entry", http.MethodDelete, "/v1/entries/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) UpsertProductPointer(ctx context.Context, row ProductPointerRow) (ProductPointerRow, error) {
	var out ProductPointerRow
	err := c.do(ctx, "upsert product", http.MethodPut, "/v1/products/"+url.PathEscape(row.Barcode), nil, row, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return ErrNotConfigured
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	var env Envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("decode %s response: %w", op, err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var cause error = errors.New(http.StatusText(resp.StatusCode))
		if env.Error != nil && env.Error.Message != "" {
			cause = env.Error
		}
		return &TransportError{Op: op, Status: resp.StatusCode, Err: cause}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", op, err)
	}
	return nil
}
