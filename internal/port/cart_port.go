package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
)

// CartRepository stores carts by domain.CartKey, so a snapshot cart and a
// live cart of the same owner are kept apart.
type CartRepository interface {
	GetCart(ctx context.Context, key domain.CartKey) (domain.Cart, error)
	// SaveCart replaces the stored cart with the given one, keeping item order.
	SaveCart(ctx context.Context, cart domain.Cart) error
	// AddItem appends item or overwrites the quantity and price of the
	// stored item for the same product.
	AddItem(ctx context.Context, key domain.CartKey, item domain.CartItem) error
	DeleteItem(ctx context.Context, key domain.CartKey, productID uuid.UUID) (bool, error)
}
