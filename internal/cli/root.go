// Package cli holds the storefront command tree.
package cli

import (
	"errors"
	"fmt"

	"github.com/nikolayk812/storefront-cart/internal/config"
	"github.com/nikolayk812/storefront-cart/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitCommandError = 2
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns ExitFailure for errors that are not an *ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// RootOptions holds global flags and what PersistentPreRunE builds from them.
type RootOptions struct {
	ConfigPath string
	Verbose    bool

	Config config.Config
	Logger *zap.Logger
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront and point-of-sale cart service",
		Long: `Cart, pricing and checkout engine for the storefront and the
point-of-sale till, with a JSON API and a scripted demo.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			if opts.Verbose {
				cfg.LogLevel = "debug"
			}

			logger, err := logging.New(cfg.LogLevel, cfg.Env)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to build logger", err)
			}

			opts.Config = cfg
			opts.Logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Logger != nil {
				_ = opts.Logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewDemoCommand(opts))

	return cmd
}
