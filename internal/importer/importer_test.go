package importer

import (
	"context"
	"strings"
	"testing"

	"storefront/internal/domain"
)

type stubProductRepo struct {
	items []domain.Product
}

func (s *stubProductRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	s.items = append(s.items, p)
	return &p, nil
}

func TestCatalogImporter_Run(t *testing.T) {
	csvData := `title,description,price,currency,image_url,active
Brass Lamp,Hand-finished,1200,,https://example.com/lamp.jpg,
,,,,,
Mug,Stoneware,349.50,usd,,true
Doormat,,450,INR,,false`

	repo := &stubProductRepo{}
	count, err := NewCatalogImporter(strings.NewReader(csvData), repo, "INR").Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 products imported, got %d", count)
	}

	lamp := repo.items[0]
	if lamp.Title != "Brass Lamp" || lamp.Currency != "INR" || !lamp.IsActive || lamp.ImageURL != "https://example.com/lamp.jpg" {
		t.Fatalf("unexpected first product: %+v", lamp)
	}
	if lamp.Price.String() != "1200" {
		t.Fatalf("unexpected price %s", lamp.Price)
	}
	if repo.items[1].Currency != "USD" || repo.items[1].Price.String() != "349.5" {
		t.Fatalf("unexpected mug: %+v", repo.items[1])
	}
	if repo.items[2].IsActive {
		t.Fatalf("expected doormat to be inactive")
	}
}

func TestCatalogImporter_RejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"missing price column": "title,description\nLamp,desc",
		"bad price":            "title,price\nLamp,twelve",
		"negative price":       "title,price\nLamp,-1",
		"missing title":        "title,price\n,100",
		"bad active flag":      "title,price,active\nLamp,100,maybe",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			repo := &stubProductRepo{}
			if _, err := NewCatalogImporter(strings.NewReader(data), repo, "INR").Run(context.Background()); err == nil {
				t.Fatalf("expected error")
			}
			if len(repo.items) != 0 {
				t.Fatalf("expected no writes, got %d", len(repo.items))
			}
		})
	}
}
