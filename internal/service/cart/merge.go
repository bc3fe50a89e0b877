package cart

import "storefront/internal/domain"

// Merge combines the guest cart with the owner's remote cart at sign-in.
// For a product present remotely the remote quantity wins; the guest quantity
// is discarded, never added. Guest-only products are adopted. The result
// lists remote lines in remote order followed by guest-only lines in guest
// order.
func Merge(guest, remote []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(guest)+len(remote))
	guestByID := make(map[int64]domain.CartItem, len(guest))
	for _, it := range guest {
		guestByID[it.ProductID] = it
	}

	seen := make(map[int64]struct{}, len(remote))
	for _, it := range remote {
		if _, dup := seen[it.ProductID]; dup {
			continue
		}
		seen[it.ProductID] = struct{}{}
		if g, ok := guestByID[it.ProductID]; ok {
			it = fillMetadata(it, g)
		}
		it.Quantity = domain.ClampQuantity(it.Quantity)
		if it.Quantity < 1 {
			continue
		}
		out = append(out, it)
	}
	for _, it := range guest {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		out = append(out, it)
	}
	return out
}

// AdoptRemote takes the server's lines and quantities as they are, reusing
// title, price and image from the current in-memory lines for products that
// are already known.
func AdoptRemote(remote, current []domain.CartItem) []domain.CartItem {
	known := make(map[int64]domain.CartItem, len(current))
	for _, it := range current {
		known[it.ProductID] = it
	}
	out := make([]domain.CartItem, 0, len(remote))
	for _, it := range remote {
		if c, ok := known[it.ProductID]; ok {
			it.Title, it.UnitPrice, it.ImageURL = c.Title, c.UnitPrice, c.ImageURL
		}
		out = append(out, it)
	}
	return out
}

func fillMetadata(dst, src domain.CartItem) domain.CartItem {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.UnitPrice.IsZero() {
		dst.UnitPrice = src.UnitPrice
	}
	if dst.ImageURL == "" {
		dst.ImageURL = src.ImageURL
	}
	return dst
}
