package nutrition

import (
	"context"
	"errors"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

// Chain asks each provider in turn. A lookup falls through on any error;
// when every provider misses, the first hard failure wins over not-found.
type Chain []Provider

func (c Chain) LookupBarcode(ctx context.Context, barcode string) (model.Product, error) {
	var failure error
	for _, p := range c {
		product, err := p.LookupBarcode(ctx, barcode)
		if err == nil {
			return product, nil
		}
		if failure == nil && !errors.Is(err, model.ErrNotFound) {
			failure = err
		}
	}
	if failure != nil {
		return model.Product{}, failure
	}
	return model.Product{}, model.NotFound("product", barcode)
}

// SearchProducts returns the first non-empty result set.
func (c Chain) SearchProducts(ctx context.Context, query string, limit int) ([]model.Product, error) {
	var failure error
	for _, p := range c {
		items, err := p.SearchProducts(ctx, query, limit)
		if err != nil {
			if failure == nil {
				failure = err
			}
			continue
		}
		if len(items) > 0 {
			return items, nil
		}
	}
	return nil, failure
}
