package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

const productColumns = `barcode, product_name, brands, image_url, nutrition_json, source, fetched_at`

// CachedProduct returns the last fetched copy of a product.
func (s *Store) CachedProduct(ctx context.Context, barcode string) (model.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products_cache WHERE barcode = ?`, strings.TrimSpace(barcode)))
	if err == sql.ErrNoRows {
		return model.Product{}, model.NotFound("product", barcode)
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("get cached product %q: %w", barcode, err)
	}
	return p, nil
}

// UpsertCachedProduct stores a fetched product and publishes
// EventProductCached after the write.
func (s *Store) UpsertCachedProduct(ctx context.Context, p model.Product) (model.Product, error) {
	p.Barcode = strings.TrimSpace(p.Barcode)
	if err := model.RequireID("barcode", p.Barcode); err != nil {
		return model.Product{}, err
	}
	if p.FetchedAt.IsZero() {
		p.FetchedAt = s.stamp()
	}
	if err := writeProduct(ctx, s.db, p); err != nil {
		return model.Product{}, err
	}
	cached := p
	s.events.Publish(Event{Kind: EventProductCached, Product: &cached})
	return p, nil
}

func writeProduct(ctx context.Context, exec sqlExecutor, p model.Product) error {
	nutrition, err := encodeJSON(p.Nutrition)
	if err != nil {
		return err
	}
	_, err = exec.ExecContext(ctx, `INSERT OR REPLACE INTO products_cache(`+productColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		p.Barcode, p.ProductName, p.Brands, p.ImageURL, nutrition, p.Source, toMillis(p.FetchedAt))
	if err != nil {
		return fmt.Errorf("cache product %q: %w", p.Barcode, err)
	}
	return nil
}

func scanProduct(r rowScanner) (model.Product, error) {
	var p model.Product
	var nutrition string
	var fetched int64
	if err := r.Scan(&p.Barcode, &p.ProductName, &p.Brands, &p.ImageURL, &nutrition, &p.Source, &fetched); err != nil {
		return model.Product{}, err
	}
	if err := decodeJSON(nutrition, &p.Nutrition); err != nil {
		return model.Product{}, fmt.Errorf("product %q nutrition: %w", p.Barcode, err)
	}
	p.FetchedAt = fromMillis(fetched)
	return p, nil
}
