package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PriceMode string

const (
	// PriceSnapshot keeps the price captured when the item was added.
	PriceSnapshot PriceMode = "snapshot"
	// PriceLive re-resolves the price from the catalog on every read.
	PriceLive PriceMode = "live"
)

func (m PriceMode) Valid() bool {
	return m == PriceSnapshot || m == PriceLive
}

// MaxQuantity bounds the quantity of one cart line, so that a line total
// stays within int64 for any price below 9*10^13.
const MaxQuantity = 100_000

// CartKey identifies a stored cart. The same owner may hold one snapshot
// cart and one live cart, and the two never share items.
type CartKey struct {
	Mode    PriceMode
	OwnerID string
}

func (k CartKey) Validate() error {
	if k.OwnerID == "" {
		return fmt.Errorf("ownerID is empty")
	}
	if !k.Mode.Valid() {
		return fmt.Errorf("price mode %q is not valid", k.Mode)
	}
	return nil
}

func (k CartKey) String() string {
	return string(k.Mode) + "/" + k.OwnerID
}

type Cart struct {
	OwnerID string
	Mode    PriceMode
	Items   []CartItem
}

type CartItem struct {
	ProductID uuid.UUID
	Quantity  int
	Price     Money

	CreatedAt time.Time
}

func (i CartItem) LineTotal() Money {
	return i.Price.Mul(i.Quantity)
}

// IsEmpty reports whether the cart holds no items.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Count is the number of units across all items.
func (c Cart) Count() int {
	var n int
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c Cart) Key() CartKey {
	return CartKey{Mode: c.Mode, OwnerID: c.OwnerID}
}

// Find returns the index of the item for productID, or -1.
func (c Cart) Find(productID uuid.UUID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy; the items slice is never shared.
func (c Cart) Clone() Cart {
	return Cart{
		OwnerID: c.OwnerID,
		Mode:    c.Mode,
		Items:   CloneItems(c.Items),
	}
}

// Validate checks that product IDs are unique and every quantity is
// between one and MaxQuantity.
func (c Cart) Validate() error {
	seen := make(map[uuid.UUID]struct{}, len(c.Items))
	for _, item := range c.Items {
		if item.Quantity < 1 || item.Quantity > MaxQuantity {
			return fmt.Errorf("item[%s] quantity %d: %w", item.ProductID, item.Quantity, ErrInvalidQuantity)
		}
		if _, ok := seen[item.ProductID]; ok {
			return fmt.Errorf("item[%s] is duplicated", item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}

// SameLines reports whether a and b hold the same products in the same
// order with equal quantities. Prices are not compared: a reviewed
// snapshot keeps the prices it was reviewed at.
func SameLines(a, b []CartItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ProductID != b[i].ProductID || a[i].Quantity != b[i].Quantity {
			return false
		}
	}
	return true
}

func CloneItems(items []CartItem) []CartItem {
	if items == nil {
		return nil
	}
	out := make([]CartItem, len(items))
	copy(out, items)
	return out
}
