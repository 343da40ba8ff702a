package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/api"
	"github.com/nikolayk812/storefront-cart/internal/checkout"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/receipt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type DemoOptions struct {
	*RootOptions
	Variant string
	Method  string
	Items   int
	Owner   string
	Delay   time.Duration
}

func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run one scripted checkout and print the receipt",
		Long: `Fill a cart with products from the catalog, walk it through checkout
and print the payment confirmation.

Example:
  storefront demo --variant pos --method cash --delay 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Variant, "variant", string(checkout.Storefront), "checkout variant (storefront|pos)")
	cmd.Flags().StringVar(&opts.Method, "method", string(domain.PaymentTransfer), "payment method (qris|transfer|ewallet|cash)")
	cmd.Flags().IntVar(&opts.Items, "items", 3, "number of distinct products to add")
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "cart owner (default random)")
	cmd.Flags().DurationVar(&opts.Delay, "delay", -1, "payment processing delay (default from config)")

	return cmd
}

func runDemo(ctx context.Context, w io.Writer, opts *DemoOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	variant := checkout.Variant(opts.Variant)
	if !variant.Valid() {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid variant %q", opts.Variant), nil)
	}
	method, ok := domain.ParsePaymentMethod(opts.Method)
	if !ok {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid payment method %q", opts.Method), nil)
	}
	if opts.Items < 1 {
		return WrapExitError(ExitCommandError, fmt.Sprintf("items %d is less than 1", opts.Items), nil)
	}

	cfg, logger := opts.Config, opts.Logger
	if opts.Delay >= 0 {
		cfg.Checkout.ProcessingDelay = opts.Delay
	}

	st, err := openStores(ctx, cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.close()

	configs, err := checkoutConfigs(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid pricing", err)
	}

	cat := newCatalog(cfg)
	terminals, err := api.NewTerminals(cat, st.carts, st.receipts, configs, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build terminals", err)
	}
	defer terminals.Shutdown(context.WithoutCancel(ctx))

	owner := opts.Owner
	if owner == "" {
		owner = "demo-" + uuid.NewString()[:8]
	}

	term, err := terminals.Get(ctx, variant, owner)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open cart", err)
	}

	issued, err := checkoutOnce(ctx, term, cat.List(""), opts.Items, method, logger)
	if err != nil {
		return WrapExitError(ExitFailure, "checkout failed", err)
	}

	names := make(map[uuid.UUID]string, len(issued.Items))
	for _, item := range issued.Items {
		if p, ok := cat.Lookup(item.ProductID); ok {
			names[item.ProductID] = p.Name
		}
	}
	return receipt.Render(w, issued, names)
}

func checkoutOnce(
	ctx context.Context,
	term *api.Terminal,
	products []domain.Product,
	n int,
	method domain.PaymentMethod,
	logger *zap.Logger,
) (domain.Receipt, error) {
	for i, p := range products {
		if i == n {
			break
		}
		if err := term.Store.AddItem(ctx, p.ID, i+1); err != nil {
			return domain.Receipt{}, fmt.Errorf("store.AddItem: %w", err)
		}
	}

	wf := term.Checkout
	if err := wf.Begin(ctx); err != nil {
		return domain.Receipt{}, fmt.Errorf("wf.Begin: %w", err)
	}
	if err := wf.Proceed(); err != nil {
		return domain.Receipt{}, fmt.Errorf("wf.Proceed: %w", err)
	}
	if term.Variant == checkout.Storefront {
		err := wf.SetShippingAddress(domain.Address{
			Recipient: "Demo Shopper",
			Phone:     "081200000000",
			Street:    "Jl. Merdeka 1",
			City:      "Jakarta",
			Postcode:  "10110",
		})
		if err != nil {
			return domain.Receipt{}, fmt.Errorf("wf.SetShippingAddress: %w", err)
		}
		if err := wf.Proceed(); err != nil {
			return domain.Receipt{}, fmt.Errorf("wf.Proceed: %w", err)
		}
	}
	if err := wf.SelectPaymentMethod(method); err != nil {
		return domain.Receipt{}, fmt.Errorf("wf.SelectPaymentMethod: %w", err)
	}
	if err := wf.Submit(ctx); err != nil {
		return domain.Receipt{}, fmt.Errorf("wf.Submit: %w", err)
	}

	// The demo plays the customer scanning the code right away.
	if method.RequiresConfirmation() {
		if err := wf.Confirm(ctx); err != nil {
			return domain.Receipt{}, fmt.Errorf("wf.Confirm: %w", err)
		}
	}

	session, err := wf.Wait(ctx)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("wf.Wait: %w", err)
	}
	if session.State != domain.StateSuccess {
		return domain.Receipt{}, fmt.Errorf("payment ended in %s: %s", session.State, session.FailureReason)
	}

	issued, ok := wf.Receipt()
	if !ok {
		return domain.Receipt{}, fmt.Errorf("no receipt issued")
	}
	logger.Info("demo checkout completed",
		zap.String("receipt_id", string(issued.ID)),
		zap.Int64("total", issued.Breakdown.Total.Amount))

	if err := wf.Close(); err != nil {
		return domain.Receipt{}, fmt.Errorf("wf.Close: %w", err)
	}
	return issued, nil
}
