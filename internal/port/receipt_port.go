package port

import (
	"context"

	"github.com/nikolayk812/storefront-cart/internal/domain"
)

type ReceiptRepository interface {
	SaveReceipt(ctx context.Context, receipt domain.Receipt) error
	GetReceipt(ctx context.Context, id domain.ReceiptID) (domain.Receipt, error)
}
