package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
)

// CatalogLookup resolves products. It returns domain.ErrProductNotFound
// for unknown identifiers.
type CatalogLookup interface {
	Resolve(ctx context.Context, productID uuid.UUID) (domain.Product, error)
}
