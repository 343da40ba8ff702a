// Package receipt builds the immutable record of a completed checkout and
// renders it for the confirmation screen.
package receipt

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
)

// Meta carries the session fields copied onto a receipt.
type Meta struct {
	SessionID     domain.SessionID
	OwnerID       string
	PaymentMethod domain.PaymentMethod
}

type Generator struct {
	now   func() time.Time
	newID func() string

	mu   sync.Mutex
	last time.Time
}

type Option func(*Generator)

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithIDSource replaces the random suffix of generated receipt IDs.
func WithIDSource(newID func() string) Option {
	return func(g *Generator) { g.newID = newID }
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		now:   time.Now,
		newID: randomSuffix,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate copies items and freezes breakdown into a new receipt. Only the
// ID and timestamp differ between calls with equal inputs; timestamps from
// one generator strictly increase.
func (g *Generator) Generate(items []domain.CartItem, breakdown domain.PriceBreakdown, meta Meta) domain.Receipt {
	return domain.Receipt{
		ID:            domain.NewReceiptID(g.newID()),
		SessionID:     meta.SessionID,
		OwnerID:       meta.OwnerID,
		Items:         domain.CloneItems(items),
		Breakdown:     breakdown,
		PaymentMethod: meta.PaymentMethod,
		IssuedAt:      g.timestamp(),
	}
}

func (g *Generator) timestamp() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UTC()
	if !now.After(g.last) {
		now = g.last.Add(time.Nanosecond)
	}
	g.last = now
	return now
}

func randomSuffix() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return strings.ReplaceAll(id.String(), "-", "")
}
