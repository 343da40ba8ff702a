package api

import (
	"time"

	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/receipt"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type MoneyDTO struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Formatted string `json:"formatted"`
}

type ProductDTO struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Price    MoneyDTO `json:"price"`
	Stock    int      `json:"stock"`
}

type CartItemDTO struct {
	ProductID string   `json:"product_id"`
	Name      string   `json:"name,omitempty"`
	Quantity  int      `json:"quantity"`
	Price     MoneyDTO `json:"price"`
	LineTotal MoneyDTO `json:"line_total"`
}

type BreakdownDTO struct {
	Subtotal    MoneyDTO `json:"subtotal"`
	Tax         MoneyDTO `json:"tax"`
	ShippingFee MoneyDTO `json:"shipping_fee"`
	Total       MoneyDTO `json:"total"`
}

type CartDTO struct {
	OwnerID   string        `json:"owner_id"`
	Mode      string        `json:"mode"`
	Count     int           `json:"count"`
	Locked    bool          `json:"locked"`
	Items     []CartItemDTO `json:"items"`
	Breakdown BreakdownDTO  `json:"breakdown"`
}

type AddressDTO struct {
	Recipient string `json:"recipient"`
	Phone     string `json:"phone"`
	Street    string `json:"street"`
	City      string `json:"city"`
	Postcode  string `json:"postcode"`
}

type SessionDTO struct {
	ID                   string        `json:"id,omitempty"`
	State                string        `json:"state"`
	PaymentMethod        string        `json:"payment_method,omitempty"`
	ShippingAddress      *AddressDTO   `json:"shipping_address,omitempty"`
	Items                []CartItemDTO `json:"items,omitempty"`
	Breakdown            *BreakdownDTO `json:"breakdown,omitempty"`
	FailureReason        string        `json:"failure_reason,omitempty"`
	AwaitingConfirmation bool          `json:"awaiting_confirmation"`
	ReceiptID            string        `json:"receipt_id,omitempty"`
}

type ReceiptDTO struct {
	ID            string        `json:"id"`
	SessionID     string        `json:"session_id"`
	OwnerID       string        `json:"owner_id"`
	PaymentMethod string        `json:"payment_method"`
	Items         []CartItemDTO `json:"items"`
	Breakdown     BreakdownDTO  `json:"breakdown"`
	IssuedAt      time.Time     `json:"issued_at"`
}

type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type PaymentMethodRequest struct {
	Method string `json:"method"`
}

type DenyRequest struct {
	Reason string `json:"reason"`
}

func toMoneyDTO(m domain.Money) MoneyDTO {
	return MoneyDTO{
		Amount:    m.Amount,
		Currency:  m.Currency.String(),
		Formatted: receipt.FormatMoney(m),
	}
}

func toProductDTO(p domain.Product) ProductDTO {
	return ProductDTO{
		ID:       p.ID.String(),
		Name:     p.Name,
		Category: p.Category,
		Price:    toMoneyDTO(p.Price),
		Stock:    p.Stock,
	}
}

func toBreakdownDTO(b domain.PriceBreakdown) BreakdownDTO {
	return BreakdownDTO{
		Subtotal:    toMoneyDTO(b.Subtotal),
		Tax:         toMoneyDTO(b.Tax),
		ShippingFee: toMoneyDTO(b.ShippingFee),
		Total:       toMoneyDTO(b.Total),
	}
}

func (h *Handler) toItemDTOs(items []domain.CartItem) []CartItemDTO {
	dtos := make([]CartItemDTO, 0, len(items))
	for _, item := range items {
		dto := CartItemDTO{
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			Price:     toMoneyDTO(item.Price),
			LineTotal: toMoneyDTO(item.LineTotal()),
		}
		if p, ok := h.catalog.Lookup(item.ProductID); ok {
			dto.Name = p.Name
		}
		dtos = append(dtos, dto)
	}
	return dtos
}

func (h *Handler) toSessionDTO(s domain.CheckoutSession, awaiting bool, r *domain.Receipt) SessionDTO {
	dto := SessionDTO{
		ID:                   string(s.ID),
		State:                s.State.String(),
		PaymentMethod:        string(s.PaymentMethod),
		FailureReason:        s.FailureReason,
		AwaitingConfirmation: awaiting,
	}
	if s.State == domain.StateIdle {
		return dto
	}

	dto.Items = h.toItemDTOs(s.Snapshot)
	b := toBreakdownDTO(s.Breakdown)
	dto.Breakdown = &b
	if a := s.ShippingAddress; a != nil {
		dto.ShippingAddress = &AddressDTO{
			Recipient: a.Recipient,
			Phone:     a.Phone,
			Street:    a.Street,
			City:      a.City,
			Postcode:  a.Postcode,
		}
	}
	if r != nil {
		dto.ReceiptID = string(r.ID)
	}
	return dto
}

func (h *Handler) toReceiptDTO(r domain.Receipt) ReceiptDTO {
	return ReceiptDTO{
		ID:            string(r.ID),
		SessionID:     string(r.SessionID),
		OwnerID:       r.OwnerID,
		PaymentMethod: string(r.PaymentMethod),
		Items:         h.toItemDTOs(r.Items),
		Breakdown:     toBreakdownDTO(r.Breakdown),
		IssuedAt:      r.IssuedAt,
	}
}
