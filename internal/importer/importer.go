package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CatalogImporter reads a product catalog CSV and upserts each row by title.
//
// Recognised columns: title, description, price, currency, image_url, active.
// Only title and price are required; currency falls back to the importer
// default and active defaults to true.
type CatalogImporter struct {
	reader   *csv.Reader
	products ProductWriter
	currency string
}

func NewCatalogImporter(r io.Reader, repo ProductWriter, defaultCurrency string) *CatalogImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1
	csvr.TrimLeadingSpace = true
	return &CatalogImporter{
		reader:   csvr,
		products: repo,
		currency: defaultCurrency,
	}
}

// Run imports every non-blank row and returns the number of products written.
// It stops at the first invalid row.
func (i *CatalogImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["title"]; !ok {
		return 0, errors.New("catalog is missing the title column")
	}
	if _, ok := index["price"]; !ok {
		return 0, errors.New("catalog is missing the price column")
	}

	imported := 0
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("read line %d: %w", line, err)
		}

		p, ok, err := i.parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		if !ok {
			continue
		}
		if _, err := i.products.Upsert(ctx, p); err != nil {
			return imported, fmt.Errorf("upsert product %q: %w", p.Title, err)
		}
		imported++
	}

	return imported, nil
}

func (i *CatalogImporter) parseRow(record []string, index map[string]int) (domain.Product, bool, error) {
	title := pick(record, index, "title")
	priceStr := pick(record, index, "price")
	if title == "" && priceStr == "" {
		return domain.Product{}, false, nil
	}
	if title == "" {
		return domain.Product{}, false, errors.New("title is required")
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return domain.Product{}, false, fmt.Errorf("invalid price %q for %q", priceStr, title)
	}
	if price.IsNegative() {
		return domain.Product{}, false, fmt.Errorf("negative price for %q", title)
	}

	active := true
	if v := pick(record, index, "active"); v != "" {
		active, err = strconv.ParseBool(v)
		if err != nil {
			return domain.Product{}, false, fmt.Errorf("invalid active flag %q for %q", v, title)
		}
	}

	currency := strings.ToUpper(pick(record, index, "currency"))
	if currency == "" {
		currency = i.currency
	}

	return domain.Product{
		Title:       title,
		Description: pick(record, index, "description"),
		Price:       price,
		Currency:    currency,
		ImageURL:    pick(record, index, "image_url"),
		IsActive:    active,
	}, true, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
