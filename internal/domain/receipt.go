package domain

import (
	"fmt"
	"strings"
	"time"
)

// ReceiptID identifies a completed transaction. Always prefixed with "NE-",
// which keeps it apart from session and cart identifiers.
type ReceiptID string

const receiptPrefix = "NE-"

func NewReceiptID(suffix string) ReceiptID {
	return ReceiptID(receiptPrefix + strings.ToUpper(suffix))
}

func ParseReceiptID(s string) (ReceiptID, error) {
	if !strings.HasPrefix(s, receiptPrefix) || len(s) == len(receiptPrefix) {
		return "", fmt.Errorf("receipt id %q is malformed", s)
	}
	return ReceiptID(s), nil
}

type Receipt struct {
	ID            ReceiptID
	SessionID     SessionID
	OwnerID       string
	Items         []CartItem
	Breakdown     PriceBreakdown
	PaymentMethod PaymentMethod
	IssuedAt      time.Time
}

// ItemsTotal sums the line totals of the receipt items.
func (r Receipt) ItemsTotal() Money {
	total := Money{Currency: r.Breakdown.Subtotal.Currency}
	for _, item := range r.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}
