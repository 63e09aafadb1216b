// Package usda reads branded foods from the USDA FoodData Central API.
package usda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

const (
	defaultBaseURL = "https://api.nal.usda.gov"

	// Source is stamped on every product this client returns.
	Source = "USDA FoodData Central"
)

// Client looks products up by GTIN/UPC. Branded food nutrients are reported
// per 100g, so values map straight onto model.Per100g.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Now        func() time.Time
}

func (c *Client) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Client) LookupBarcode(ctx context.Context, barcode string) (model.Product, error) {
	barcode = strings.TrimSpace(barcode)
	foods, err := c.search(ctx, barcode, 20)
	if err != nil {
		return model.Product{}, err
	}
	for _, f := range foods {
		if strings.TrimSpace(f.GTINUPC) == barcode {
			return c.toProduct(f, barcode), nil
		}
	}
	return model.Product{}, model.NotFound("product", barcode)
}

func (c *Client) SearchProducts(ctx context.Context, query string, limit int) ([]model.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &model.ValidationError{Field: "query", Constraint: "required"}
	}
	if limit <= 0 {
		limit = 10
	}
	foods, err := c.search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Product, 0, len(foods))
	for _, f := range foods {
		if strings.TrimSpace(f.Description) == "" {
			continue
		}
		out = append(out, c.toProduct(f, strings.TrimSpace(f.GTINUPC)))
	}
	return out, nil
}

func (c *Client) search(ctx context.Context, query string, pageSize int) ([]usdaFood, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("missing USDA API key")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}

	payload, err := json.Marshal(map[string]any{
		"query":    query,
		"dataType": []string{"Branded"},
		"pageSize": pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal USDA search payload: %w", err)
	}
	u := fmt.Sprintf("%s/fdc/v1/foods/search?api_key=%s", baseURL, url.QueryEscape(c.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create USDA request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute USDA request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read USDA response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("USDA request failed with status %d", resp.StatusCode)
	}
	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode USDA response: %w", err)
	}
	return parsed.Foods, nil
}

func (c *Client) toProduct(f usdaFood, barcode string) model.Product {
	p := model.Product{
		Barcode:     barcode,
		ProductName: strings.TrimSpace(f.Description),
		Brands:      strings.TrimSpace(f.BrandOwner),
		Source:      Source,
		FetchedAt:   c.now().UTC(),
	}
	n := &p.Nutrition
	var kj float64
	for _, nut := range f.FoodNutrients {
		v := nut.Value
		switch strings.ToLower(strings.TrimSpace(nut.NutrientName)) {
		case "energy":
			if strings.EqualFold(nut.UnitName, "kJ") {
				kj = v
			} else {
				n.Kcal = v
			}
		case "protein":
			n.P = v
		case "carbohydrate, by difference":
			n.C = v
		case "total lipid (fat)":
			n.F = v
		case "fatty acids, total saturated":
			n.SaturatedFat = &v
		case "fatty acids, total monounsaturated":
			n.MonounsaturatedFat = &v
		case "fatty acids, total polyunsaturated":
			n.PolyunsaturatedFat = &v
		case "fatty acids, total trans":
			n.TransFat = &v
		case "fiber, total dietary":
			n.Fiber = &v
		case "sugars, total including nlea", "sugars, total":
			n.Sugar = &v
		case "sodium, na":
			n.SodiumMg = &v
		case "potassium, k":
			n.PotassiumMg = &v
		case "calcium, ca":
			n.CalciumMg = &v
		case "iron, fe":
			n.IronMg = &v
		case "vitamin c, total ascorbic acid":
			n.VitaminCMg = &v
		}
	}
	if n.Kcal == 0 && kj > 0 {
		n.Kcal = model.RoundTo(kj/4.184, 1)
	}
	return p
}

type searchResponse struct {
	Foods []usdaFood `json:"foods"`
}

type usdaFood struct {
	FDCID         int64          `json:"fdcId"`
	Description   string         `json:"description"`
	BrandOwner    string         `json:"brandOwner"`
	GTINUPC       string         `json:"gtinUpc"`
	FoodNutrients []usdaNutrient `json:"foodNutrients"`
}

type usdaNutrient struct {
	NutrientName string  `json:"nutrientName"`
	UnitName     string  `json:"unitName"`
	Value        float64 `json:"value"`
}
