// Package cart holds the Cart Store: the single source of truth for what
// is being purchased in one storefront or point-of-sale session.
//
// A Store is safe for concurrent use. Every mutation runs to completion
// under the store mutex and is followed by a synchronous notification of
// subscribers. While a checkout is processing the store is locked and all
// mutations fail with domain.ErrCartLocked.
package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/port"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultResolveLimit = 8

type Store struct {
	ownerID string
	mode    domain.PriceMode
	catalog port.CatalogLookup

	repo         port.CartRepository
	logger       *zap.Logger
	now          func() time.Time
	resolveLimit int

	mu      sync.RWMutex
	items   []domain.CartItem
	locked  bool
	session string

	obsMu     sync.Mutex
	observers []observer
	nextObsID int
}

type observer struct {
	id int
	fn func(Event)
}

type Option func(*Store)

// WithRepository persists the cart after every mutation. A failed save
// rolls the mutation back.
func WithRepository(repo port.CartRepository) Option {
	return func(s *Store) { s.repo = repo }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithResolveLimit bounds concurrent catalog lookups when pricing a live cart.
func WithResolveLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.resolveLimit = n
		}
	}
}

func New(ownerID string, mode domain.PriceMode, catalog port.CatalogLookup, opts ...Option) (*Store, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("ownerID is empty")
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("price mode %q is not valid", mode)
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog is nil")
	}

	s := &Store{
		ownerID:      ownerID,
		mode:         mode,
		catalog:      catalog,
		logger:       zap.NewNop(),
		now:          time.Now,
		resolveLimit: defaultResolveLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) OwnerID() string {
	return s.ownerID
}

func (s *Store) Mode() domain.PriceMode {
	return s.mode
}

// AddItem resolves productID and adds delta units. An existing item is
// incremented; a new one is appended with the current price captured for
// snapshot carts or a zero price marker for live carts. A line never
// grows past domain.MaxQuantity.
func (s *Store) AddItem(ctx context.Context, productID uuid.UUID, delta int) error {
	if delta < 1 || delta > domain.MaxQuantity {
		return fmt.Errorf("delta %d: %w", delta, domain.ErrInvalidQuantity)
	}
	if s.IsLocked() {
		return domain.ErrCartLocked
	}

	product, err := s.catalog.Resolve(ctx, productID)
	if err != nil {
		return fmt.Errorf("catalog.Resolve: %w", err)
	}

	var touched domain.CartItem
	err = s.mutate(ctx, func(items []domain.CartItem) ([]domain.CartItem, error) {
		for i := range items {
			if items[i].ProductID == productID {
				if items[i].Quantity > domain.MaxQuantity-delta {
					return nil, fmt.Errorf("quantity %d+%d: %w", items[i].Quantity, delta, domain.ErrInvalidQuantity)
				}
				items[i].Quantity += delta
				touched = items[i]
				return items, nil
			}
		}

		price := product.Price
		if s.mode == domain.PriceLive {
			price = domain.Money{Currency: product.Price.Currency}
		}
		touched = domain.CartItem{
			ProductID: productID,
			Quantity:  delta,
			Price:     price,
			CreatedAt: s.now().UTC(),
		}
		return append(items, touched), nil
	}, func(ctx context.Context) error {
		if err := s.repo.AddItem(ctx, s.key(), touched); err != nil {
			return fmt.Errorf("repo.AddItem: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("cart item added",
		zap.String("owner_id", s.ownerID),
		zap.Stringer("product_id", productID),
		zap.Int("delta", delta))
	s.notify(EventItemAdded, productID)
	return nil
}

// SetQuantity overwrites the quantity of an item. A quantity of zero or
// less removes it. Unknown products are ignored so that stale callbacks
// for already removed items are harmless.
func (s *Store) SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID)
	}
	if quantity > domain.MaxQuantity {
		return fmt.Errorf("quantity %d: %w", quantity, domain.ErrInvalidQuantity)
	}

	changed := false
	var touched domain.CartItem
	err := s.mutate(ctx, func(items []domain.CartItem) ([]domain.CartItem, error) {
		for i := range items {
			if items[i].ProductID == productID {
				changed = items[i].Quantity != quantity
				items[i].Quantity = quantity
				touched = items[i]
				break
			}
		}
		return items, nil
	}, func(ctx context.Context) error {
		if !changed {
			return nil
		}
		if err := s.repo.AddItem(ctx, s.key(), touched); err != nil {
			return fmt.Errorf("repo.AddItem: %w", err)
		}
		return nil
	})
	if err != nil || !changed {
		return err
	}

	s.notify(EventQuantitySet, productID)
	return nil
}

// RemoveItem deletes the item for productID. Removing an absent item is a no-op.
func (s *Store) RemoveItem(ctx context.Context, productID uuid.UUID) error {
	removed := false
	err := s.mutate(ctx, func(items []domain.CartItem) ([]domain.CartItem, error) {
		for i := range items {
			if items[i].ProductID == productID {
				removed = true
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return items, nil
	}, func(ctx context.Context) error {
		if !removed {
			return nil
		}
		if _, err := s.repo.DeleteItem(ctx, s.key(), productID); err != nil {
			return fmt.Errorf("repo.DeleteItem: %w", err)
		}
		return nil
	})
	if err != nil || !removed {
		return err
	}

	s.notify(EventItemRemoved, productID)
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	err := s.mutate(ctx, func([]domain.CartItem) ([]domain.CartItem, error) {
		return nil, nil
	}, func(ctx context.Context) error {
		return s.saveEmpty(ctx)
	})
	if err != nil {
		return err
	}

	s.notify(EventCleared, uuid.Nil)
	return nil
}

// mutate applies fn to a private copy of the items, runs persist when a
// repository is configured and installs the result only if both succeed.
func (s *Store) mutate(
	ctx context.Context,
	fn func([]domain.CartItem) ([]domain.CartItem, error),
	persist func(context.Context) error,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked {
		return domain.ErrCartLocked
	}

	next, err := fn(domain.CloneItems(s.items))
	if err != nil {
		return err
	}
	if s.repo != nil {
		if err := persist(ctx); err != nil {
			return err
		}
	}
	s.items = next
	return nil
}

func (s *Store) key() domain.CartKey {
	return domain.CartKey{Mode: s.mode, OwnerID: s.ownerID}
}

func (s *Store) saveEmpty(ctx context.Context) error {
	if err := s.repo.SaveCart(ctx, domain.Cart{OwnerID: s.ownerID, Mode: s.mode}); err != nil {
		return fmt.Errorf("repo.SaveCart: %w", err)
	}
	return nil
}

// Items returns a copy of the stored items. Live carts carry zero prices;
// use Snapshot for a priced view.
func (s *Store) Items() []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.CloneItems(s.items)
}

// Cart returns a copy of the stored cart.
func (s *Store) Cart() domain.Cart {
	return domain.Cart{OwnerID: s.ownerID, Mode: s.mode, Items: s.Items()}
}

// Count is the number of units in the cart, as shown on the cart badge.
func (s *Store) Count() int {
	return s.Cart().Count()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

// Snapshot returns a priced copy of the cart. Snapshot carts use the
// captured prices; live carts resolve every price from the catalog now.
func (s *Store) Snapshot(ctx context.Context) (domain.Cart, error) {
	cart := s.Cart()
	if s.mode != domain.PriceLive || len(cart.Items) == 0 {
		return cart, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.resolveLimit)

	for i := range cart.Items {
		g.Go(func() error {
			product, err := s.catalog.Resolve(ctx, cart.Items[i].ProductID)
			if err != nil {
				return fmt.Errorf("catalog.Resolve: %w", err)
			}
			cart.Items[i].Price = product.Price
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

// Load replaces the in-memory items with the stored cart. Without a
// repository it is a no-op.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	stored, err := s.repo.GetCart(ctx, s.key())
	if err != nil {
		return fmt.Errorf("repo.GetCart: %w", err)
	}
	if stored.Mode != s.mode {
		return fmt.Errorf("stored cart[%s] has price mode %q", s.key(), stored.Mode)
	}
	if err := stored.Validate(); err != nil {
		return fmt.Errorf("stored cart: %w", err)
	}

	items := domain.CloneItems(stored.Items)
	if s.mode == domain.PriceLive {
		for i := range items {
			items[i].Price = domain.Money{Currency: items[i].Price.Currency}
		}
	}

	s.mu.Lock()
	if s.locked {
		s.mu.Unlock()
		return domain.ErrCartLocked
	}
	s.items = items
	s.mu.Unlock()

	s.notify(EventLoaded, uuid.Nil)
	return nil
}

// Lock freezes the cart for a checkout in progress.
func (s *Store) Lock() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked {
		return domain.ErrCartLocked
	}
	s.locked = true
	return nil
}

// Release unlocks the cart. With clear set, the items are emptied in the
// same critical section, so no mutation can slip in between. The
// in-memory cart is cleared even when persisting the empty cart fails.
func (s *Store) Release(ctx context.Context, clear bool) error {
	s.mu.Lock()
	s.locked = false
	var err error
	if clear {
		s.items = nil
		if s.repo != nil {
			err = s.saveEmpty(ctx)
		}
	}
	s.mu.Unlock()

	if clear {
		s.notify(EventCleared, uuid.Nil)
	}
	return err
}

// BindSession claims the cart for one checkout session. A different
// session already bound yields domain.ErrSessionActive.
func (s *Store) BindSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != "" && s.session != sessionID {
		return fmt.Errorf("session[%s]: %w", s.session, domain.ErrSessionActive)
	}
	s.session = sessionID
	return nil
}

// UnbindSession releases the claim taken by BindSession. Other sessions'
// claims are left alone.
func (s *Store) UnbindSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == sessionID {
		s.session = ""
	}
}

func (s *Store) IsLocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.locked
}
