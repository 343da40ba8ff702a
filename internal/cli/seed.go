package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/nikolayk812/storefront-cart/internal/catalog"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/receipt"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type SeedOptions struct {
	*RootOptions
	Count  int
	Seed   uint64
	Format string
}

// seedProduct is the printed shape of a generated product.
type seedProduct struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category" yaml:"category"`
	Price    int64  `json:"price" yaml:"price"`
	Currency string `json:"currency" yaml:"currency"`
	Stock    int    `json:"stock" yaml:"stock"`
}

func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Print a generated product catalog",
		Long: `Print the synthetic catalog the server would start with.

Example:
  storefront seed --count 5 --seed 42 --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", 0, "number of products (default from config)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (default from config)")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	return cmd
}

func runSeed(w io.Writer, opts *SeedOptions) error {
	count := opts.Count
	if count == 0 {
		count = opts.Config.Catalog.Size
	}
	seed := opts.Seed
	if seed == 0 {
		seed = opts.Config.Catalog.Seed
	}

	products := catalog.Generate(count, seed)
	out := make([]seedProduct, 0, len(products))
	for _, p := range products {
		out = append(out, seedProduct{
			ID:       p.ID.String(),
			Name:     p.Name,
			Category: p.Category,
			Price:    p.Price.Amount,
			Currency: p.Price.Currency.String(),
			Stock:    p.Stock,
		})
	}

	switch opts.Format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("yaml.Encode: %w", err)
		}
		return enc.Close()
	case "text":
		return printProducts(w, products)
	}
	return WrapExitError(ExitCommandError, fmt.Sprintf("invalid format %q", opts.Format), nil)
}

func printProducts(w io.Writer, products []domain.Product) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Category, receipt.FormatMoney(p.Price), p.Stock)
	}
	return tw.Flush()
}
