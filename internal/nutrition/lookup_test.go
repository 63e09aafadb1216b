package nutrition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

type fakeProvider struct {
	product model.Product
	err     error
	search  func(ctx context.Context, query string) ([]model.Product, error)
}

func (f *fakeProvider) LookupBarcode(context.Context, string) (model.Product, error) {
	return f.product, f.err
}

func (f *fakeProvider) SearchProducts(ctx context.Context, query string, _ int) ([]model.Product, error) {
	return f.search(ctx, query)
}

type memoryCache map[string]model.Product

func (m memoryCache) CachedProduct(_ context.Context, barcode string) (model.Product, error) {
	p, ok := m[barcode]
	if !ok {
		return model.Product{}, model.NotFound("product", barcode)
	}
	return p, nil
}

func (m memoryCache) UpsertCachedProduct(_ context.Context, p model.Product) (model.Product, error) {
	m[p.Barcode] = p
	return p, nil
}

func TestLookupCachesAndFallsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cache := memoryCache{}
	provider := &fakeProvider{product: model.Product{Barcode: "12345678", ProductName: "Oat bar"}}
	svc := &Service{Provider: provider, Cache: cache}

	res, err := svc.Lookup(ctx, "12345678")
	if err != nil || res.FromCache || res.Product.ProductName != "Oat bar" {
		t.Fatalf("unexpected first lookup %+v %v", res, err)
	}
	if _, ok := cache["12345678"]; !ok {
		t.Fatalf("expected product cached")
	}

	provider.err = errors.New("network down")
	res, err = svc.Lookup(ctx, "12345678")
	if err != nil || !res.FromCache {
		t.Fatalf("expected cached fallback, got %+v %v", res, err)
	}

	if _, err := svc.Lookup(ctx, "87654321"); err == nil {
		t.Fatalf("expected error without cached copy")
	}
	if _, err := svc.Lookup(ctx, "12ab"); !model.IsValidation(err) {
		t.Fatalf("expected validation error for malformed barcode, got %v", err)
	}
}

func TestSearcherDropsSupersededResults(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	started := make(chan struct{})
	provider := &fakeProvider{search: func(ctx context.Context, query string) ([]model.Product, error) {
		if query == "ban" {
			close(started)
			<-release
		}
		return []model.Product{{ProductName: query}}, nil
	}}
	s := &Searcher{Provider: provider}

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Search(context.Background(), "ban", 5)
		errCh <- err
	}()
	<-started

	items, err := s.Search(context.Background(), "banana", 5)
	if err != nil || len(items) != 1 || items[0].ProductName != "banana" {
		t.Fatalf("expected latest query to win, got %+v %v", items, err)
	}
	close(release)

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrStale) {
			t.Fatalf("expected stale error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("superseded search did not return")
	}
}

func TestChainFallsThrough(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	down := &fakeProvider{err: errors.New("timeout"), search: func(context.Context, string) ([]model.Product, error) {
		return nil, errors.New("timeout")
	}}
	missing := &fakeProvider{err: model.NotFound("product", "12345678"), search: func(context.Context, string) ([]model.Product, error) {
		return nil, nil
	}}
	found := &fakeProvider{product: model.Product{Barcode: "12345678", ProductName: "Skyr"}, search: func(context.Context, string) ([]model.Product, error) {
		return []model.Product{{ProductName: "Skyr"}}, nil
	}}

	p, err := Chain{down, missing, found}.LookupBarcode(ctx, "12345678")
	if err != nil || p.ProductName != "Skyr" {
		t.Fatalf("expected third provider to answer, got %+v %v", p, err)
	}
	if _, err := (Chain{missing, down}).LookupBarcode(ctx, "12345678"); err == nil || errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected hard failure to win over not found, got %v", err)
	}
	if _, err := (Chain{missing}).LookupBarcode(ctx, "12345678"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	items, err := Chain{down, missing, found}.SearchProducts(ctx, "skyr", 5)
	if err != nil || len(items) != 1 {
		t.Fatalf("expected search results from third provider, got %v %v", items, err)
	}
}
