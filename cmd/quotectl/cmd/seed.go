package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"quote_backend/internal/app/di"
)

func newSeedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Register TRACKED_SYMBOLS and SYMBOLS_FILE (existing codes are kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd.Context(), func(c *di.Container) error {
				n, err := c.SeedSymbols(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d new symbol(s)\n", n)
				return err
			})
		},
	}
}
