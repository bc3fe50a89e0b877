package domain

import "github.com/shopspring/decimal"

// MaxItemQuantity caps the quantity of a single cart line.
const MaxItemQuantity = 999

// CartItem is one line of a cart. ProductID is unique within a cart.
type CartItem struct {
	ProductID int64           `json:"productId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	Quantity  int             `json:"quantity"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ClampQuantity bounds q to [0, MaxItemQuantity].
func ClampQuantity(q int) int {
	if q < 0 {
		return 0
	}
	if q > MaxItemQuantity {
		return MaxItemQuantity
	}
	return q
}

// CloneItems returns a copy of items that shares no backing array.
func CloneItems(items []CartItem) []CartItem {
	if len(items) == 0 {
		return []CartItem{}
	}
	out := make([]CartItem, len(items))
	copy(out, items)
	return out
}

// TotalItems sums quantities.
func TotalItems(items []CartItem) int {
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	return total
}

// TotalPrice sums quantity x unit price.
func TotalPrice(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}
