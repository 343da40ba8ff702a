package domain

import (
	"github.com/google/uuid"
)

// Product is owned by the catalog; the cart only reads it.
// Stock is advisory and never blocks an add.
type Product struct {
	ID       uuid.UUID
	Name     string
	Category string
	Price    Money
	Stock    int
}
