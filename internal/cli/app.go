package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/storefront-cart/internal/catalog"
	"github.com/nikolayk812/storefront-cart/internal/checkout"
	"github.com/nikolayk812/storefront-cart/internal/config"
	"github.com/nikolayk812/storefront-cart/internal/port"
	"github.com/nikolayk812/storefront-cart/internal/repository"
	"github.com/nikolayk812/storefront-cart/internal/repository/memory"
	"github.com/nikolayk812/storefront-cart/internal/repository/sqlite"
)

// stores is the persistence selected by config.Database.
type stores struct {
	carts    port.CartRepository
	receipts port.ReceiptRepository
	close    func()
}

func openStores(ctx context.Context, cfg config.Database) (stores, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		repo := memory.New()
		return stores{carts: repo, receipts: repo, close: func() {}}, nil

	case config.DriverSQLite:
		repo, err := sqlite.New(cfg.Path)
		if err != nil {
			return stores{}, fmt.Errorf("sqlite.New: %w", err)
		}
		return stores{carts: repo, receipts: repo, close: func() { _ = repo.Close() }}, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return stores{}, fmt.Errorf("pgxpool.New: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return stores{}, fmt.Errorf("pool.Ping: %w", err)
		}

		carts, err := repository.NewCart(pool)
		if err != nil {
			pool.Close()
			return stores{}, fmt.Errorf("repository.NewCart: %w", err)
		}
		receipts, err := repository.NewReceipt(pool)
		if err != nil {
			pool.Close()
			return stores{}, fmt.Errorf("repository.NewReceipt: %w", err)
		}
		return stores{carts: carts, receipts: receipts, close: pool.Close}, nil
	}

	return stores{}, fmt.Errorf("database driver %q is not supported", cfg.Driver)
}

func newCatalog(cfg config.Config) *catalog.Memory {
	return catalog.NewMemory(catalog.Generate(cfg.Catalog.Size, cfg.Catalog.Seed)...)
}

func checkoutConfigs(cfg config.Config) ([]checkout.Config, error) {
	storefront, err := cfg.StorefrontPricing()
	if err != nil {
		return nil, err
	}
	pos, err := cfg.POSPricing()
	if err != nil {
		return nil, err
	}

	return []checkout.Config{
		{Variant: checkout.Storefront, Pricing: storefront, ProcessingDelay: cfg.Checkout.ProcessingDelay},
		{Variant: checkout.PointOfSale, Pricing: pos, ProcessingDelay: cfg.Checkout.ProcessingDelay},
	}, nil
}
