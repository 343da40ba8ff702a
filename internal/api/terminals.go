package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/nikolayk812/storefront-cart/internal/cart"
	"github.com/nikolayk812/storefront-cart/internal/checkout"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/port"
	"go.uber.org/zap"
)

// Terminal is one cart with its checkout workflow. The storefront keeps
// one terminal per shopper, the point of sale one per till.
type Terminal struct {
	Variant  checkout.Variant
	Config   checkout.Config
	Store    *cart.Store
	Checkout *checkout.Workflow
}

type terminalKey struct {
	variant checkout.Variant
	ownerID string
}

// Terminals creates terminals on first use and keeps them for the life of
// the process. Carts are loaded from the repository when created.
type Terminals struct {
	catalog  port.CatalogLookup
	carts    port.CartRepository
	receipts port.ReceiptRepository
	configs  map[checkout.Variant]checkout.Config
	logger   *zap.Logger
	opts     []checkout.Option

	mu        sync.Mutex
	terminals map[terminalKey]*Terminal
}

func NewTerminals(
	catalog port.CatalogLookup,
	carts port.CartRepository,
	receipts port.ReceiptRepository,
	configs []checkout.Config,
	logger *zap.Logger,
	opts ...checkout.Option,
) (*Terminals, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	byVariant := make(map[checkout.Variant]checkout.Config, len(configs))
	for _, cfg := range configs {
		if !cfg.Variant.Valid() {
			return nil, fmt.Errorf("variant %q is not valid", cfg.Variant)
		}
		byVariant[cfg.Variant] = cfg
	}

	return &Terminals{
		catalog:   catalog,
		carts:     carts,
		receipts:  receipts,
		configs:   byVariant,
		logger:    logger,
		opts:      opts,
		terminals: make(map[terminalKey]*Terminal),
	}, nil
}

func (t *Terminals) Get(ctx context.Context, variant checkout.Variant, ownerID string) (*Terminal, error) {
	cfg, ok := t.configs[variant]
	if !ok {
		return nil, fmt.Errorf("variant %q: %w", variant, errUnknownVariant)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := terminalKey{variant: variant, ownerID: ownerID}
	if term, ok := t.terminals[key]; ok {
		return term, nil
	}

	mode := domain.PriceSnapshot
	if variant == checkout.PointOfSale {
		mode = domain.PriceLive
	}

	storeOpts := []cart.Option{cart.WithLogger(t.logger)}
	if t.carts != nil {
		storeOpts = append(storeOpts, cart.WithRepository(t.carts))
	}

	store, err := cart.New(ownerID, mode, t.catalog, storeOpts...)
	if err != nil {
		return nil, badRequest{fmt.Errorf("cart.New: %w", err)}
	}
	if err := store.Load(ctx); err != nil {
		return nil, fmt.Errorf("store.Load: %w", err)
	}

	wfOpts := []checkout.Option{checkout.WithLogger(t.logger.With(zap.String("owner_id", ownerID)))}
	if t.receipts != nil {
		wfOpts = append(wfOpts, checkout.WithReceiptRepository(t.receipts))
	}
	wfOpts = append(wfOpts, t.opts...)

	wf, err := checkout.New(store, cfg, wfOpts...)
	if err != nil {
		return nil, fmt.Errorf("checkout.New: %w", err)
	}

	term := &Terminal{Variant: variant, Config: cfg, Store: store, Checkout: wf}
	t.terminals[key] = term
	return term, nil
}

// Shutdown fails every payment still processing and waits for the
// processing goroutines to exit.
func (t *Terminals) Shutdown(ctx context.Context) {
	t.mu.Lock()
	terms := make([]*Terminal, 0, len(t.terminals))
	for _, term := range t.terminals {
		terms = append(terms, term)
	}
	t.mu.Unlock()

	for _, term := range terms {
		if term.Checkout.State() == domain.StateProcessing {
			if err := term.Checkout.Cancel(ctx); err != nil {
				t.logger.Warn("cancel on shutdown", zap.String("owner_id", term.Store.OwnerID()), zap.Error(err))
			}
		}
		term.Checkout.Drain()
	}
}
