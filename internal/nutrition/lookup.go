// Package nutrition looks foods up through a remote provider and keeps the
// local product cache warm.
package nutrition

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

const defaultLookupTimeout = 15 * time.Second

var barcodePattern = regexp.MustCompile(`^[0-9]{8,14}$`)

// ErrStale is returned for a search that a newer query has superseded.
var ErrStale = errors.New("search superseded by a newer query")

type Provider interface {
	LookupBarcode(ctx context.Context, barcode string) (model.Product, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]model.Product, error)
}

type ProductCache interface {
	CachedProduct(ctx context.Context, barcode string) (model.Product, error)
	UpsertCachedProduct(ctx context.Context, p model.Product) (model.Product, error)
}

type Result struct {
	Product   model.Product
	FromCache bool
}

type Service struct {
	Provider Provider
	Cache    ProductCache
	Log      *zap.Logger
	Timeout  time.Duration
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// Lookup asks the provider first and caches what it returns. When the
// provider fails, a previously cached copy is served instead.
func (s *Service) Lookup(ctx context.Context, barcode string) (Result, error) {
	barcode = strings.TrimSpace(barcode)
	if !barcodePattern.MatchString(barcode) {
		return Result{}, &model.ValidationError{Field: "barcode", Constraint: "barcode", Param: "8-14 digits"}
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p, err := s.Provider.LookupBarcode(lookupCtx, barcode)
	if err == nil {
		if s.Cache != nil {
			saved, cacheErr := s.Cache.UpsertCachedProduct(ctx, p)
			if cacheErr != nil {
				s.log().Warn("cache product failed", zap.String("barcode", barcode), zap.Error(cacheErr))
			} else {
				p = saved
			}
		}
		return Result{Product: p}, nil
	}

	if s.Cache != nil {
		cached, cacheErr := s.Cache.CachedProduct(ctx, barcode)
		if cacheErr == nil {
			s.log().Info("serving cached product after lookup failure", zap.String("barcode", barcode), zap.Error(err))
			return Result{Product: cached, FromCache: true}, nil
		}
		if !errors.Is(cacheErr, model.ErrNotFound) {
			s.log().Warn("read cached product failed", zap.String("barcode", barcode), zap.Error(cacheErr))
		}
	}
	return Result{}, fmt.Errorf("lookup barcode %s: %w", barcode, err)
}

// Searcher runs free-text searches where only the latest query's answer
// matters, as when searching while typing.
type Searcher struct {
	Provider Provider
	seq      atomic.Uint64
}

// Search tags the query with the next sequence number and returns ErrStale
// if another Search started before this one finished.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]model.Product, error) {
	n := s.seq.Add(1)
	items, err := s.Provider.SearchProducts(ctx, query, limit)
	if s.seq.Load() != n {
		return nil, ErrStale
	}
	return items, err
}
