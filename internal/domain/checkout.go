package domain

import (
	"strings"

	"github.com/google/uuid"
)

type CheckoutState string

const (
	StateIdle                  CheckoutState = "IDLE"
	StateCartReview            CheckoutState = "CART_REVIEW"
	StateDetailsEntry          CheckoutState = "DETAILS_ENTRY"
	StateAwaitingPaymentMethod CheckoutState = "AWAITING_PAYMENT_METHOD"
	StateProcessing            CheckoutState = "PROCESSING"
	StateSuccess               CheckoutState = "SUCCESS"
	StateFailed                CheckoutState = "FAILED"
)

func (s CheckoutState) IsTerminal() bool {
	return s == StateSuccess || s == StateFailed
}

func (s CheckoutState) String() string {
	return string(s)
}

type PaymentMethod string

const (
	PaymentQRIS     PaymentMethod = "qris"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentEWallet  PaymentMethod = "ewallet"
	PaymentCash     PaymentMethod = "cash"
)

// RequiresConfirmation reports whether the method needs an explicit
// "payment confirmed" signal after the processing delay.
func (m PaymentMethod) RequiresConfirmation() bool {
	return m == PaymentQRIS
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentQRIS, PaymentTransfer, PaymentEWallet, PaymentCash:
		return true
	}
	return false
}

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	return m, m.Valid()
}

// SessionID identifies a checkout session. Always prefixed with "chk_".
type SessionID string

const sessionPrefix = "chk_"

func NewSessionID() SessionID {
	return SessionID(sessionPrefix + uuid.NewString())
}

func (id SessionID) Valid() bool {
	return strings.HasPrefix(string(id), sessionPrefix)
}

type Address struct {
	Recipient string
	Phone     string
	Street    string
	City      string
	Postcode  string
}

func (a Address) IsZero() bool {
	return a == Address{}
}

type CheckoutSession struct {
	ID              SessionID
	CartOwnerID     string
	State           CheckoutState
	PaymentMethod   PaymentMethod
	ShippingAddress *Address
	// Snapshot is the priced cart captured when CartReview was entered.
	Snapshot  []CartItem
	Breakdown PriceBreakdown
	// FailureReason is set when the session ends in StateFailed.
	FailureReason string
}

func (s CheckoutSession) Clone() CheckoutSession {
	out := s
	out.Snapshot = CloneItems(s.Snapshot)
	if s.ShippingAddress != nil {
		addr := *s.ShippingAddress
		out.ShippingAddress = &addr
	}
	return out
}
