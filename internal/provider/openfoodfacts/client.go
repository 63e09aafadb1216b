package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

const (
	defaultBaseURL = "https://world.openfoodfacts.org"
	userAgent      = "trackerv8/1.0 (+https://github.com/redboxergaming-hash/trackerv8)"

	// Source is stamped on every product this client returns.
	Source = "Open Food Facts"

	kjPerKcal = 4.184
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Now        func() time.Time
}

func (c *Client) base() string {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return defaultBaseURL
	}
	return base
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return &http.Client{Timeout: 12 * time.Second}
	}
	return c.HTTPClient
}

func (c *Client) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// LookupBarcode fetches one product normalized to per-100g values. An
// unknown barcode yields a *model.NotFoundError.
func (c *Client) LookupBarcode(ctx context.Context, barcode string) (model.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return model.Product{}, &model.ValidationError{Field: "barcode", Constraint: "required"}
	}
	u := fmt.Sprintf("%s/api/v2/product/%s.json", c.base(), url.PathEscape(barcode))
	body, status, err := c.get(ctx, u)
	if err != nil {
		return model.Product{}, err
	}
	if status == http.StatusNotFound {
		return model.Product{}, model.NotFound("product", barcode)
	}
	if status < 200 || status >= 300 {
		return model.Product{}, fmt.Errorf("openfoodfacts request failed with status %d", status)
	}

	var parsed offResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return model.Product{}, fmt.Errorf("decode openfoodfacts response: %w", err)
	}
	if parsed.Status != 1 || parsed.Product == nil {
		return model.Product{}, model.NotFound("product", barcode)
	}
	return c.normalize(*parsed.Product, barcode), nil
}

func (c *Client) SearchProducts(ctx context.Context, query string, limit int) ([]model.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &model.ValidationError{Field: "query", Constraint: "required"}
	}
	if limit <= 0 {
		limit = 10
	}
	u := fmt.Sprintf("%s/cgi/search.pl?search_terms=%s&search_simple=1&action=process&json=1&page_size=%d",
		c.base(),
		url.QueryEscape(query),
		limit,
	)
	body, status, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("openfoodfacts search request failed with status %d", status)
	}
	var parsed offSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode openfoodfacts search response: %w", err)
	}
	out := make([]model.Product, 0, len(parsed.Products))
	for _, p := range parsed.Products {
		if strings.TrimSpace(p.ProductName) == "" || strings.TrimSpace(p.Code) == "" {
			continue
		}
		out = append(out, c.normalize(p, strings.TrimSpace(p.Code)))
	}
	if len(out) == 0 {
		return nil, model.NotFound("product", query)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create openfoodfacts request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("execute openfoodfacts request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read openfoodfacts response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) normalize(p offProduct, barcode string) model.Product {
	n := p.Nutriments
	kcal, ok := firstNumber(n, "energy-kcal_100g", "energy-kcal")
	if !ok {
		if kj, ok := firstNumber(n, "energy-kj_100g", "energy-kj"); ok {
			kcal = kj / kjPerKcal
		}
	}
	protein, _ := firstNumber(n, "proteins_100g", "proteins")
	carbs, _ := firstNumber(n, "carbohydrates_100g", "carbohydrates")
	fat, _ := firstNumber(n, "fat_100g", "fat")

	name := strings.TrimSpace(p.ProductName)
	if name == "" {
		name = "Unknown product"
	}
	image := strings.TrimSpace(p.ImageFrontSmallURL)
	if image == "" {
		image = strings.TrimSpace(p.ImageFrontURL)
	}

	return model.Product{
		Barcode:     barcode,
		ProductName: name,
		Brands:      strings.TrimSpace(p.Brands),
		ImageURL:    image,
		Nutrition: model.ProductNutrition{
			Per100g: model.Per100g{
				Kcal: model.RoundTo(kcal, 1),
				P:    protein,
				C:    carbs,
				F:    fat,
			},
			SaturatedFat:       optional(n, "saturated-fat_100g", 1),
			MonounsaturatedFat: optional(n, "monounsaturated-fat_100g", 1),
			PolyunsaturatedFat: optional(n, "polyunsaturated-fat_100g", 1),
			Omega3:             optional(n, "omega-3-fat_100g", 1),
			Omega6:             optional(n, "omega-6-fat_100g", 1),
			TransFat:           optional(n, "trans-fat_100g", 1),
			Fiber:              optional(n, "fiber_100g", 1),
			Sugar:              optional(n, "sugars_100g", 1),
			// Open Food Facts reports minerals and vitamins in grams.
			SodiumMg:    optional(n, "sodium_100g", 1000),
			PotassiumMg: optional(n, "potassium_100g", 1000),
			CalciumMg:   optional(n, "calcium_100g", 1000),
			IronMg:      optional(n, "iron_100g", 1000),
			VitaminCMg:  optional(n, "vitamin-c_100g", 1000),
		},
		Source:    Source,
		FetchedAt: c.now(),
	}
}

func firstNumber(n map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := parseFloatAny(n[key]); ok && v >= 0 {
			return v, true
		}
	}
	return 0, false
}

func optional(n map[string]any, key string, scale float64) *float64 {
	v, ok := firstNumber(n, key)
	if !ok {
		return nil
	}
	v = model.RoundTo(v*scale, 3)
	return &v
}

func parseFloatAny(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

type offResponse struct {
	Status  int         `json:"status"`
	Product *offProduct `json:"product"`
}

type offProduct struct {
	Code               string         `json:"code"`
	ProductName        string         `json:"product_name"`
	Brands             string         `json:"brands"`
	ImageFrontSmallURL string         `json:"image_front_small_url"`
	ImageFrontURL      string         `json:"image_front_url"`
	Nutriments         map[string]any `json:"nutriments"`
}

type offSearchResponse struct {
	Products []offProduct `json:"products"`
}
