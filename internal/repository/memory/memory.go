// Package memory provides in-memory implementations of the repository
// ports, for tests and the CLI demo.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
)

type Repository struct {
	mu       sync.RWMutex
	carts    map[domain.CartKey]domain.Cart
	receipts map[domain.ReceiptID]domain.Receipt
}

func New() *Repository {
	return &Repository{
		carts:    make(map[domain.CartKey]domain.Cart),
		receipts: make(map[domain.ReceiptID]domain.Receipt),
	}
}

func (r *Repository) GetCart(_ context.Context, key domain.CartKey) (domain.Cart, error) {
	if err := key.Validate(); err != nil {
		return domain.Cart{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[key]
	if !ok {
		return domain.Cart{OwnerID: key.OwnerID, Mode: key.Mode}, nil
	}
	return cart.Clone(), nil
}

func (r *Repository) SaveCart(_ context.Context, cart domain.Cart) error {
	if err := cart.Key().Validate(); err != nil {
		return err
	}
	if err := cart.Validate(); err != nil {
		return fmt.Errorf("cart.Validate: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[cart.Key()] = cart.Clone()
	return nil
}

func (r *Repository) AddItem(_ context.Context, key domain.CartKey, item domain.CartItem) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if item.Quantity < 1 || item.Quantity > domain.MaxQuantity {
		return fmt.Errorf("quantity %d: %w", item.Quantity, domain.ErrInvalidQuantity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cart := r.carts[key].Clone()
	cart.OwnerID, cart.Mode = key.OwnerID, key.Mode
	if i := cart.Find(item.ProductID); i >= 0 {
		item.CreatedAt = cart.Items[i].CreatedAt
		cart.Items[i] = item
	} else {
		cart.Items = append(cart.Items, item)
	}
	r.carts[key] = cart
	return nil
}

func (r *Repository) DeleteItem(_ context.Context, key domain.CartKey, productID uuid.UUID) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[key]
	if !ok {
		return false, nil
	}
	i := cart.Find(productID)
	if i < 0 {
		return false, nil
	}

	cart = cart.Clone()
	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	r.carts[key] = cart
	return true, nil
}

func (r *Repository) SaveReceipt(_ context.Context, receipt domain.Receipt) error {
	if receipt.ID == "" {
		return fmt.Errorf("receipt id is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.receipts[receipt.ID]; ok {
		return fmt.Errorf("receipt[%s] already exists", receipt.ID)
	}
	receipt.Items = domain.CloneItems(receipt.Items)
	r.receipts[receipt.ID] = receipt
	return nil
}

func (r *Repository) GetReceipt(_ context.Context, id domain.ReceiptID) (domain.Receipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	receipt, ok := r.receipts[id]
	if !ok {
		return domain.Receipt{}, fmt.Errorf("receipt[%s]: %w", id, domain.ErrReceiptNotFound)
	}
	receipt.Items = domain.CloneItems(receipt.Items)
	return receipt, nil
}

func (r *Repository) ReceiptCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.receipts)
}
