package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/storefront-cart/internal/db"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/port"
)

const uniqueViolation = "23505"

type receiptRepository struct {
	q    *db.Queries
	pool *pgxpool.Pool
}

func NewReceipt(pool *pgxpool.Pool) (port.ReceiptRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	return &receiptRepository{
		q:    db.New(pool),
		pool: pool,
	}, nil
}

func (r *receiptRepository) SaveReceipt(ctx context.Context, receipt domain.Receipt) error {
	if receipt.ID == "" {
		return fmt.Errorf("receipt id is empty")
	}

	b := receipt.Breakdown
	_, err := withTx(ctx, r.pool, r.q, func(q *db.Queries) (struct{}, error) {
		err := q.InsertReceipt(ctx, db.InsertReceiptParams{
			ID:            string(receipt.ID),
			SessionID:     string(receipt.SessionID),
			OwnerID:       receipt.OwnerID,
			PaymentMethod: string(receipt.PaymentMethod),
			Currency:      b.Total.Currency.String(),
			Subtotal:      b.Subtotal.Amount,
			Tax:           b.Tax.Amount,
			ShippingFee:   b.ShippingFee.Amount,
			Total:         b.Total.Amount,
			IssuedAt:      receipt.IssuedAt,
		})
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return struct{}{}, fmt.Errorf("receipt[%s] already exists", receipt.ID)
			}
			return struct{}{}, fmt.Errorf("q.InsertReceipt: %w", err)
		}

		for i, item := range receipt.Items {
			err := q.InsertReceiptItem(ctx, db.InsertReceiptItemParams{
				ReceiptID:     string(receipt.ID),
				Position:      int32(i),
				ProductID:     item.ProductID,
				Quantity:      int32(item.Quantity),
				PriceAmount:   item.Price.Amount,
				PriceCurrency: item.Price.Currency.String(),
				AddedAt:       item.CreatedAt,
			})
			if err != nil {
				return struct{}{}, fmt.Errorf("q.InsertReceiptItem: %w", err)
			}
		}

		return struct{}{}, nil
	})
	return err
}

func (r *receiptRepository) GetReceipt(ctx context.Context, id domain.ReceiptID) (domain.Receipt, error) {
	row, err := r.q.GetReceipt(ctx, string(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Receipt{}, fmt.Errorf("receipt[%s]: %w", id, domain.ErrReceiptNotFound)
		}
		return domain.Receipt{}, fmt.Errorf("q.GetReceipt: %w", err)
	}

	itemRows, err := r.q.GetReceiptItems(ctx, string(id))
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("q.GetReceiptItems: %w", err)
	}

	receipt, err := mapReceiptToDomain(row, itemRows)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("mapReceiptToDomain: %w", err)
	}
	return receipt, nil
}

func mapReceiptToDomain(row db.Receipt, itemRows []db.GetReceiptItemsRow) (domain.Receipt, error) {
	total, err := mapMoney(row.Total, row.Currency)
	if err != nil {
		return domain.Receipt{}, err
	}
	unit := total.Currency

	items := make([]domain.CartItem, 0, len(itemRows))
	for _, ir := range itemRows {
		price, err := mapMoney(ir.PriceAmount, ir.PriceCurrency)
		if err != nil {
			return domain.Receipt{}, err
		}
		items = append(items, domain.CartItem{
			ProductID: ir.ProductID,
			Quantity:  int(ir.Quantity),
			Price:     price,
			CreatedAt: ir.AddedAt,
		})
	}

	return domain.Receipt{
		ID:        domain.ReceiptID(row.ID),
		SessionID: domain.SessionID(row.SessionID),
		OwnerID:   row.OwnerID,
		Items:     items,
		Breakdown: domain.PriceBreakdown{
			Subtotal:    domain.NewMoney(row.Subtotal, unit),
			Tax:         domain.NewMoney(row.Tax, unit),
			ShippingFee: domain.NewMoney(row.ShippingFee, unit),
			Total:       total,
		},
		PaymentMethod: domain.PaymentMethod(row.PaymentMethod),
		IssuedAt:      row.IssuedAt,
	}, nil
}
