package usda

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

const yogurtResponse = `{
  "foods": [
    {
      "fdcId": 999,
      "description": "Other Yogurt",
      "brandOwner": "Elsewhere",
      "gtinUpc": "000000000000",
      "foodNutrients": []
    },
    {
      "fdcId": 12345,
      "description": "Greek Yogurt",
      "brandOwner": "Test Brand",
      "gtinUpc": "012345678905",
      "foodNutrients": [
        {"nutrientName": "Energy", "unitName": "KCAL", "value": 59},
        {"nutrientName": "Protein", "unitName": "G", "value": 10},
        {"nutrientName": "Carbohydrate, by difference", "unitName": "G", "value": 3.6},
        {"nutrientName": "Total lipid (fat)", "unitName": "G", "value": 0.4},
        {"nutrientName": "Sodium, Na", "unitName": "MG", "value": 36}
      ]
    }
  ]
}`

func TestLookupBarcodeMatchesGTIN(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Query().Get("api_key") != "demo" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(yogurtResponse))
	}))
	defer ts.Close()

	c := &Client{APIKey: "demo", BaseURL: ts.URL, HTTPClient: ts.Client()}

	p, err := c.LookupBarcode(context.Background(), "012345678905")
	if err != nil {
		t.Fatalf("lookup barcode: %v", err)
	}
	if p.ProductName != "Greek Yogurt" || p.Source != Source {
		t.Fatalf("unexpected product %+v", p)
	}
	n := p.Nutrition
	if n.Kcal != 59 || n.P != 10 || n.C != 3.6 || n.F != 0.4 || n.SodiumMg == nil || *n.SodiumMg != 36 {
		t.Fatalf("unexpected nutrients: %+v", n)
	}

	if _, err := c.LookupBarcode(context.Background(), "11111111"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found for unmatched gtin, got %v", err)
	}
}

func TestMissingAPIKey(t *testing.T) {
	t.Parallel()
	c := &Client{}
	if _, err := c.LookupBarcode(context.Background(), "012345678905"); err == nil {
		t.Fatalf("expected missing key error")
	}
}
