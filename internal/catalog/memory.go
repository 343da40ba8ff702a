// Package catalog provides the in-memory product catalog the cart resolves
// prices against.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
)

type Memory struct {
	mu       sync.RWMutex
	products map[uuid.UUID]domain.Product
	order    []uuid.UUID
}

func NewMemory(products ...domain.Product) *Memory {
	m := &Memory{
		products: make(map[uuid.UUID]domain.Product, len(products)),
	}
	for _, p := range products {
		m.putLocked(p)
	}
	return m
}

func (m *Memory) Resolve(_ context.Context, productID uuid.UUID) (domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[productID]
	if !ok {
		return domain.Product{}, fmt.Errorf("product[%s]: %w", productID, domain.ErrProductNotFound)
	}
	return p, nil
}

// Lookup is Resolve without the error, for display paths.
func (m *Memory) Lookup(productID uuid.UUID) (domain.Product, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[productID]
	return p, ok
}

// Put inserts or replaces a product.
func (m *Memory) Put(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(p)
}

func (m *Memory) putLocked(p domain.Product) {
	if _, ok := m.products[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.products[p.ID] = p
}

// UpdatePrice changes the shelf price. Snapshot carts keep their agreed
// price; live carts see the new one on the next read.
func (m *Memory) UpdatePrice(productID uuid.UUID, price domain.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok {
		return fmt.Errorf("product[%s]: %w", productID, domain.ErrProductNotFound)
	}
	p.Price = price
	m.products[productID] = p
	return nil
}

// Remove deletes a product; unknown IDs are ignored.
func (m *Memory) Remove(productID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[productID]; !ok {
		return
	}
	delete(m.products, productID)
	for i, id := range m.order {
		if id == productID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// List returns products in insertion order, optionally filtered by category.
func (m *Memory) List(category string) []domain.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Product, 0, len(m.order))
	for _, id := range m.order {
		p := m.products[id]
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	return out
}
