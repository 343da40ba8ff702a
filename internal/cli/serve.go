package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikolayk812/storefront-cart/internal/api"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type ServeOptions struct {
	*RootOptions
	Addr string
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cart and checkout JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger := opts.Config, opts.Logger
	addr := cfg.HTTP.Addr
	if opts.Addr != "" {
		addr = opts.Addr
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

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(api.NewHandler(cat, terminals, st.receipts, logger), cfg.HTTP.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server started",
			zap.String("addr", addr),
			zap.String("db_driver", cfg.Database.Driver),
			zap.Int("products", cfg.Catalog.Size))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		terminals.Shutdown(shutdownCtx)
		return err
	})

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	return nil
}
