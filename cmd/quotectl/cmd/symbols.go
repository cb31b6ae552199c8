package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"quote_backend/internal/app/di"
	"quote_backend/internal/feature/symbols/domain/entity"
	symbolusecase "quote_backend/internal/feature/symbols/usecase"
)

func newSymbolsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "Manage tracked symbols",
	}
	cmd.AddCommand(
		newSymbolsListCmd(opts),
		newSymbolsAddCmd(opts),
		newSymbolsSetActiveCmd(opts, "activate", true),
		newSymbolsSetActiveCmd(opts, "deactivate", false),
	)
	return cmd
}

func newSymbolsListCmd(opts *options) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd.Context(), func(c *di.Container) error {
				list := c.Symbols.ListActiveSymbols
				if all {
					list = c.Symbols.ListAll
				}
				symbols, err := list(cmd.Context())
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "CODE\tCATEGORY\tEXCHANGE\tCCY\tACTIVE\tNAME")
				for _, s := range symbols {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
						s.Code, s.Category, s.Group(), s.QuoteCurrency, s.IsActive, s.Name)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include deactivated symbols")
	return cmd
}

func newSymbolsAddCmd(opts *options) *cobra.Command {
	var name, category, exchange, currency string
	cmd := &cobra.Command{
		Use:   "add <code>",
		Short: "Register a symbol",
		Long: `Register a symbol. Without --category the code is classified the same way
as TRACKED_SYMBOLS (USDBRL is fx, bitcoin is crypto, PETR4.SA is an equity on B3).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := symbolFromFlags(args[0], name, category, exchange, currency)
			if err != nil {
				return err
			}
			return opts.withContainer(cmd.Context(), func(c *di.Container) error {
				created, err := c.Symbols.Register(cmd.Context(), s)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s, %s)\n", created.Code, created.Category, created.Group())
				return err
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&category, "category", "", "equity, fx or crypto")
	cmd.Flags().StringVar(&exchange, "exchange", "", "exchange shown on the dashboard")
	cmd.Flags().StringVar(&currency, "quote-currency", "", "quote currency for crypto (default usd)")
	return cmd
}

// symbolFromFlags は明示されたフラグを TRACKED_SYMBOLS と同じ分類結果に上書きします。
func symbolFromFlags(code, name, category, exchange, currency string) (entity.Symbol, error) {
	if category != "" {
		cat, ok := entity.ParseCategory(category)
		if !ok {
			return entity.Symbol{}, fmt.Errorf("%w: unknown category %q", symbolusecase.ErrInvalidSymbol, category)
		}
		return entity.Symbol{
			Code:          code,
			Name:          name,
			Category:      cat,
			Exchange:      exchange,
			QuoteCurrency: strings.ToLower(currency),
		}, nil
	}

	s, err := symbolusecase.ParseTrackedSymbol(code)
	if err != nil {
		return entity.Symbol{}, err
	}
	if name != "" {
		s.Name = name
	}
	if exchange != "" {
		s.Exchange = exchange
	}
	if currency != "" && s.Category == entity.CategoryCrypto {
		s.QuoteCurrency = strings.ToLower(currency)
	}
	return s, nil
}

func newSymbolsSetActiveCmd(opts *options, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <code>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a symbol (history is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd.Context(), func(c *di.Container) error {
				set := c.Symbols.Deactivate
				if active {
					set = c.Symbols.Activate
				}
				s, err := set(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s active=%t\n", s.Code, s.IsActive)
				return err
			})
		},
	}
}
