// Package sqlite stores carts and receipts in a local SQLite file, for the
// single-terminal deployments that have no Postgres at hand.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"golang.org/x/text/currency"
)

//go:embed schema.sql
var schema string

type Repository struct {
	db *sql.DB
}

// New opens path and creates the schema. Use ":memory:" for a throwaway database.
func New(path string) (*Repository, error) {
	if path == "" {
		return nil, fmt.Errorf("path is empty")
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	// one writer at a time, and ":memory:" is per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Join(fmt.Errorf("db.Exec schema: %w", err), db.Close())
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) GetCart(ctx context.Context, key domain.CartKey) (domain.Cart, error) {
	if err := key.Validate(); err != nil {
		return domain.Cart{}, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, quantity, price_amount, price_currency, created_at
		FROM cart_items
		WHERE owner_id = ? AND price_mode = ?
		ORDER BY position`, key.OwnerID, string(key.Mode))
	if err != nil {
		return domain.Cart{}, fmt.Errorf("select cart items: %w", err)
	}

	items, err := scanItems(rows)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("scanItems: %w", err)
	}

	return domain.Cart{
		OwnerID: key.OwnerID,
		Mode:    key.Mode,
		Items:   items,
	}, nil
}

func (r *Repository) SaveCart(ctx context.Context, cart domain.Cart) error {
	if err := cart.Key().Validate(); err != nil {
		return err
	}
	if err := cart.Validate(); err != nil {
		return fmt.Errorf("cart.Validate: %w", err)
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsertCart(ctx, tx, cart.Key()); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE owner_id = ? AND price_mode = ?`,
			cart.OwnerID, string(cart.Mode))
		if err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		for i, item := range cart.Items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO cart_items (owner_id, price_mode, product_id, quantity, price_amount, price_currency, position, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				cart.OwnerID, string(cart.Mode), item.ProductID.String(), item.Quantity, item.Price.Amount,
				item.Price.Currency.String(), i, formatTime(createdAt(item)))
			if err != nil {
				return fmt.Errorf("insert item: %w", err)
			}
		}
		return nil
	})
}

// AddItem appends item or overwrites the quantity and price of the stored
// item for the same product. The cart row is created on demand.
func (r *Repository) AddItem(ctx context.Context, key domain.CartKey, item domain.CartItem) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if item.Quantity < 1 || item.Quantity > domain.MaxQuantity {
		return fmt.Errorf("quantity %d: %w", item.Quantity, domain.ErrInvalidQuantity)
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsertCart(ctx, tx, key); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO cart_items (owner_id, price_mode, product_id, quantity, price_amount, price_currency, position, created_at)
			VALUES (?1, ?2, ?3, ?4, ?5, ?6,
			        (SELECT COALESCE(MAX(position) + 1, 0) FROM cart_items WHERE owner_id = ?1 AND price_mode = ?2), ?7)
			ON CONFLICT (owner_id, price_mode, product_id) DO UPDATE
			    SET quantity = excluded.quantity,
			        price_amount = excluded.price_amount,
			        price_currency = excluded.price_currency`,
			key.OwnerID, string(key.Mode), item.ProductID.String(), item.Quantity, item.Price.Amount,
			item.Price.Currency.String(), formatTime(createdAt(item)))
		if err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
		return nil
	})
}

func (r *Repository) DeleteItem(ctx context.Context, key domain.CartKey, productID uuid.UUID) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE owner_id = ? AND price_mode = ? AND product_id = ?`,
		key.OwnerID, string(key.Mode), productID.String())
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("res.RowsAffected: %w", err)
	}
	return n > 0, nil
}

func upsertCart(ctx context.Context, tx *sql.Tx, key domain.CartKey) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO carts (owner_id, price_mode, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (owner_id, price_mode) DO UPDATE SET updated_at = excluded.updated_at`,
		key.OwnerID, string(key.Mode), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}
	return nil
}

func (r *Repository) SaveReceipt(ctx context.Context, receipt domain.Receipt) error {
	if receipt.ID == "" {
		return fmt.Errorf("receipt id is empty")
	}

	b := receipt.Breakdown
	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO receipts (id, session_id, owner_id, payment_method, currency,
			                      subtotal, tax, shipping_fee, total, issued_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(receipt.ID), string(receipt.SessionID), receipt.OwnerID, string(receipt.PaymentMethod),
			b.Total.Currency.String(), b.Subtotal.Amount, b.Tax.Amount, b.ShippingFee.Amount, b.Total.Amount,
			formatTime(receipt.IssuedAt))
		if err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
				return fmt.Errorf("receipt[%s] already exists", receipt.ID)
			}
			return fmt.Errorf("insert receipt: %w", err)
		}

		for i, item := range receipt.Items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO receipt_items (receipt_id, position, product_id, quantity, price_amount, price_currency, added_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				string(receipt.ID), i, item.ProductID.String(), item.Quantity, item.Price.Amount,
				item.Price.Currency.String(), formatTime(createdAt(item)))
			if err != nil {
				return fmt.Errorf("insert receipt item: %w", err)
			}
		}
		return nil
	})
}

func (r *Repository) GetReceipt(ctx context.Context, id domain.ReceiptID) (domain.Receipt, error) {
	var (
		receipt                           domain.Receipt
		sessionID, method, code, issuedAt string
		subtotal, tax, shippingFee, total int64
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT session_id, owner_id, payment_method, currency, subtotal, tax, shipping_fee, total, issued_at
		FROM receipts WHERE id = ?`, string(id)).
		Scan(&sessionID, &receipt.OwnerID, &method, &code, &subtotal, &tax, &shippingFee, &total, &issuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Receipt{}, fmt.Errorf("receipt[%s]: %w", id, domain.ErrReceiptNotFound)
		}
		return domain.Receipt{}, fmt.Errorf("select receipt: %w", err)
	}

	unit, err := currency.ParseISO(code)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("currency[%s] is not valid: %w", code, err)
	}
	receipt.IssuedAt, err = parseTime(issuedAt)
	if err != nil {
		return domain.Receipt{}, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, quantity, price_amount, price_currency, added_at
		FROM receipt_items
		WHERE receipt_id = ?
		ORDER BY position`, string(id))
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("select receipt items: %w", err)
	}
	receipt.Items, err = scanItems(rows)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("scanItems: %w", err)
	}

	receipt.ID = id
	receipt.SessionID = domain.SessionID(sessionID)
	receipt.PaymentMethod = domain.PaymentMethod(method)
	receipt.Breakdown = domain.PriceBreakdown{
		Subtotal:    domain.NewMoney(subtotal, unit),
		Tax:         domain.NewMoney(tax, unit),
		ShippingFee: domain.NewMoney(shippingFee, unit),
		Total:       domain.NewMoney(total, unit),
	}
	return receipt, nil
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (txErr error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.BeginTx: %w", err)
	}

	defer func() {
		if txErr != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				txErr = errors.Join(txErr, fmt.Errorf("tx.Rollback: %w", rollbackErr))
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit: %w", err)
	}
	return nil
}

// scanItems reads product_id, quantity, price_amount, price_currency and a
// timestamp column, then closes rows.
func scanItems(rows *sql.Rows) ([]domain.CartItem, error) {
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var (
			productID, code, ts string
			quantity            int
			amount              int64
		)
		if err := rows.Scan(&productID, &quantity, &amount, &code, &ts); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		id, err := uuid.Parse(productID)
		if err != nil {
			return nil, fmt.Errorf("product id[%s] is not valid: %w", productID, err)
		}
		unit, err := currency.ParseISO(code)
		if err != nil {
			return nil, fmt.Errorf("currency[%s] is not valid: %w", code, err)
		}
		created, err := parseTime(ts)
		if err != nil {
			return nil, err
		}

		items = append(items, domain.CartItem{
			ProductID: id,
			Quantity:  quantity,
			Price:     domain.NewMoney(amount, unit),
			CreatedAt: created,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}
	return items, nil
}

func createdAt(item domain.CartItem) time.Time {
	if item.CreatedAt.IsZero() {
		return time.Now()
	}
	return item.CreatedAt
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp[%s] is not valid: %w", s, err)
	}
	return t, nil
}
