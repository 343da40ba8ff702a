// Package repository stores carts and receipts in Postgres through the
// sqlc queries in internal/db.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/storefront-cart/internal/db"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/port"
	"golang.org/x/text/currency"
)

type cartRepository struct {
	q    *db.Queries
	pool *pgxpool.Pool
}

func NewCart(pool *pgxpool.Pool) (port.CartRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	return &cartRepository{
		q:    db.New(pool),
		pool: pool,
	}, nil
}

func NewCartWithTx(tx pgx.Tx) port.CartRepository {
	return &cartRepository{
		q:    db.New(tx),
		pool: nil, // use provided transaction instead
	}
}

func (r *cartRepository) GetCart(ctx context.Context, key domain.CartKey) (domain.Cart, error) {
	if err := key.Validate(); err != nil {
		return domain.Cart{}, err
	}

	dbCartItems, err := r.q.GetCart(ctx, db.GetCartParams{
		OwnerID:   key.OwnerID,
		PriceMode: string(key.Mode),
	})
	if err != nil {
		return domain.Cart{}, fmt.Errorf("q.GetCart: %w", err)
	}

	items, err := mapGetCartRowsToDomain(dbCartItems)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("mapGetCartRowsToDomain: %w", err)
	}

	return domain.Cart{
		OwnerID: key.OwnerID,
		Mode:    key.Mode,
		Items:   items,
	}, nil
}

// SaveCart replaces the stored items in one transaction, keeping their order.
func (r *cartRepository) SaveCart(ctx context.Context, cart domain.Cart) error {
	if err := cart.Key().Validate(); err != nil {
		return err
	}
	if err := cart.Validate(); err != nil {
		return fmt.Errorf("cart.Validate: %w", err)
	}

	_, err := withTx(ctx, r.pool, r.q, func(q *db.Queries) (struct{}, error) {
		err := q.UpsertCart(ctx, db.UpsertCartParams{
			OwnerID:   cart.OwnerID,
			PriceMode: string(cart.Mode),
		})
		if err != nil {
			return struct{}{}, fmt.Errorf("q.UpsertCart: %w", err)
		}

		err = q.ClearCart(ctx, db.ClearCartParams{
			OwnerID:   cart.OwnerID,
			PriceMode: string(cart.Mode),
		})
		if err != nil {
			return struct{}{}, fmt.Errorf("q.ClearCart: %w", err)
		}

		for i, item := range cart.Items {
			err := q.InsertItem(ctx, db.InsertItemParams{
				OwnerID:       cart.OwnerID,
				PriceMode:     string(cart.Mode),
				ProductID:     item.ProductID,
				Quantity:      int32(item.Quantity),
				PriceAmount:   item.Price.Amount,
				PriceCurrency: item.Price.Currency.String(),
				Position:      int32(i),
				CreatedAt:     createdAt(item),
			})
			if err != nil {
				return struct{}{}, fmt.Errorf("q.InsertItem: %w", err)
			}
		}

		return struct{}{}, nil
	})
	return err
}

// AddItem inserts the item at the end of the cart or overwrites the stored
// quantity and price of an existing one. The cart row is created on demand.
func (r *cartRepository) AddItem(ctx context.Context, key domain.CartKey, item domain.CartItem) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if item.Quantity < 1 || item.Quantity > domain.MaxQuantity {
		return fmt.Errorf("quantity %d: %w", item.Quantity, domain.ErrInvalidQuantity)
	}

	_, err := withTx(ctx, r.pool, r.q, func(q *db.Queries) (struct{}, error) {
		err := q.UpsertCart(ctx, db.UpsertCartParams{
			OwnerID:   key.OwnerID,
			PriceMode: string(key.Mode),
		})
		if err != nil {
			return struct{}{}, fmt.Errorf("q.UpsertCart: %w", err)
		}

		err = q.AddItem(ctx, db.AddItemParams{
			OwnerID:       key.OwnerID,
			PriceMode:     string(key.Mode),
			ProductID:     item.ProductID,
			Quantity:      int32(item.Quantity),
			PriceAmount:   item.Price.Amount,
			PriceCurrency: item.Price.Currency.String(),
			CreatedAt:     createdAt(item),
		})
		if err != nil {
			return struct{}{}, fmt.Errorf("q.AddItem: %w", err)
		}

		return struct{}{}, nil
	})
	return err
}

func (r *cartRepository) DeleteItem(ctx context.Context, key domain.CartKey, productID uuid.UUID) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}

	rowsAffected, err := r.q.DeleteItem(ctx, db.DeleteItemParams{
		OwnerID:   key.OwnerID,
		PriceMode: string(key.Mode),
		ProductID: productID,
	})
	if err != nil {
		return false, fmt.Errorf("q.DeleteItem: %w", err)
	}

	return rowsAffected > 0, nil
}

func createdAt(item domain.CartItem) time.Time {
	if item.CreatedAt.IsZero() {
		return time.Now()
	}
	return item.CreatedAt
}

func mapGetCartRowToDomain(row db.GetCartRow) (domain.CartItem, error) {
	price, err := mapMoney(row.PriceAmount, row.PriceCurrency)
	if err != nil {
		return domain.CartItem{}, err
	}

	return domain.CartItem{
		ProductID: row.ProductID,
		Quantity:  int(row.Quantity),
		Price:     price,
		CreatedAt: row.CreatedAt,
	}, nil
}

func mapGetCartRowsToDomain(rows []db.GetCartRow) ([]domain.CartItem, error) {
	var items []domain.CartItem

	for _, row := range rows {
		item, err := mapGetCartRowToDomain(row)
		if err != nil {
			return nil, fmt.Errorf("mapGetCartRowToDomain: %w", err)
		}

		items = append(items, item)
	}

	return items, nil
}

func mapMoney(amount int64, code string) (domain.Money, error) {
	parsedCurrency, err := currency.ParseISO(code)
	if err != nil {
		return domain.Money{}, fmt.Errorf("currency[%s] is not valid: %w", code, err)
	}

	return domain.NewMoney(amount, parsedCurrency), nil
}
