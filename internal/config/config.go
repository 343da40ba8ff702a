// Package config loads the storefront settings from an optional YAML file
// and STOREFRONT_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"gopkg.in/yaml.v3"
)

const envPrefix = "STOREFRONT_"

// DefaultCatalogSeed keeps product IDs stable across restarts so persisted
// carts still resolve against the regenerated catalog.
const DefaultCatalogSeed uint64 = 20240601

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	Currency string `yaml:"currency"`

	Storefront Storefront `yaml:"storefront"`
	POS        POS        `yaml:"pos"`
	Checkout   Checkout   `yaml:"checkout"`
	Catalog    Catalog    `yaml:"catalog"`
	HTTP       HTTP       `yaml:"http"`
	Database   Database   `yaml:"database"`
}

type Storefront struct {
	ShippingFee int64 `yaml:"shipping_fee"`
}

type POS struct {
	// TaxRate is a decimal fraction, e.g. "0.10".
	TaxRate string `yaml:"tax_rate"`
}

type Checkout struct {
	ProcessingDelay time.Duration `yaml:"processing_delay"`
}

type Catalog struct {
	Size int    `yaml:"size"`
	Seed uint64 `yaml:"seed"`
}

type HTTP struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type Database struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

func Default() Config {
	return Config{
		Env:        "prod",
		LogLevel:   "info",
		Currency:   "IDR",
		Storefront: Storefront{ShippingFee: domain.DefaultShippingFee},
		POS:        POS{TaxRate: domain.DefaultPOSTaxRate.String()},
		Checkout:   Checkout{ProcessingDelay: 2 * time.Second},
		Catalog:    Catalog{Size: 24, Seed: DefaultCatalogSeed},
		HTTP:       HTTP{Addr: ":8080", CORSOrigins: []string{"*"}},
		Database:   Database{Driver: DriverSQLite, Path: "storefront.db"},
	}
}

// Load starts from Default, overlays the YAML file at path when path is
// not empty, then applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("os.ReadFile: %w", err)
		}

		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("yaml.Decode: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, fmt.Errorf("cfg.applyEnv: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("cfg.Validate: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ENV":          &c.Env,
		"LOG_LEVEL":    &c.LogLevel,
		"CURRENCY":     &c.Currency,
		"POS_TAX_RATE": &c.POS.TaxRate,
		"HTTP_ADDR":    &c.HTTP.Addr,
		"DB_DRIVER":    &c.Database.Driver,
		"DB_PATH":      &c.Database.Path,
		"DB_DSN":       &c.Database.DSN,
	}
	for key, dst := range strs {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}

	if v, ok := lookup(envPrefix + "SHIPPING_FEE"); ok {
		fee, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSHIPPING_FEE: %w", envPrefix, err)
		}
		c.Storefront.ShippingFee = fee
	}

	if v, ok := lookup(envPrefix + "PROCESSING_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sPROCESSING_DELAY: %w", envPrefix, err)
		}
		c.Checkout.ProcessingDelay = d
	}

	if v, ok := lookup(envPrefix + "CATALOG_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sCATALOG_SIZE: %w", envPrefix, err)
		}
		c.Catalog.Size = n
	}

	if v, ok := lookup(envPrefix + "CATALOG_SEED"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sCATALOG_SEED: %w", envPrefix, err)
		}
		c.Catalog.Seed = n
	}

	return nil
}

func (c Config) Validate() error {
	if _, err := c.Unit(); err != nil {
		return err
	}
	if _, err := c.StorefrontPricing(); err != nil {
		return err
	}
	if _, err := c.POSPricing(); err != nil {
		return err
	}
	if c.Checkout.ProcessingDelay < 0 {
		return fmt.Errorf("processing delay %s is negative", c.Checkout.ProcessingDelay)
	}
	if c.Catalog.Size < 1 {
		return fmt.Errorf("catalog size %d is less than 1", c.Catalog.Size)
	}

	if c.Catalog.Seed == 0 && c.Database.Driver != DriverMemory {
		return fmt.Errorf("catalog seed is zero with persistent driver %q", c.Database.Driver)
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is empty")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn is empty")
		}
	default:
		return fmt.Errorf("database driver %q is not supported", c.Database.Driver)
	}
	return nil
}

func (c Config) Unit() (currency.Unit, error) {
	unit, err := currency.ParseISO(c.Currency)
	if err != nil {
		return currency.Unit{}, fmt.Errorf("currency[%s] is not valid: %w", c.Currency, err)
	}
	return unit, nil
}

func (c Config) StorefrontPricing() (domain.PricingConfig, error) {
	unit, err := c.Unit()
	if err != nil {
		return domain.PricingConfig{}, err
	}

	p := domain.StorefrontPricing(unit, c.Storefront.ShippingFee)
	if err := p.Validate(); err != nil {
		return domain.PricingConfig{}, fmt.Errorf("storefront: %w", err)
	}
	return p, nil
}

func (c Config) POSPricing() (domain.PricingConfig, error) {
	unit, err := c.Unit()
	if err != nil {
		return domain.PricingConfig{}, err
	}

	rate, err := decimal.NewFromString(c.POS.TaxRate)
	if err != nil {
		return domain.PricingConfig{}, fmt.Errorf("pos tax rate[%s] is not valid: %w", c.POS.TaxRate, err)
	}

	p := domain.POSPricing(unit, rate)
	if err := p.Validate(); err != nil {
		return domain.PricingConfig{}, fmt.Errorf("pos: %w", err)
	}
	return p, nil
}
