package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"quote_backend/internal/app/di"
	"quote_backend/internal/feature/refresh/domain/entity"
	refreshhandler "quote_backend/internal/feature/refresh/transport/handler"
)

func newRefreshCmd(opts *options) *cobra.Command {
	var (
		seed   bool
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh cycle and print the result",
		Long: `Run one refresh cycle through the same guard as the server.
If another replica holds the cycle lock, the command fails without fetching.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd.Context(), func(c *di.Container) error {
				if seed {
					if _, err := c.SeedSymbols(cmd.Context()); err != nil {
						return err
					}
				}
				cycle, err := c.Scheduler.TriggerNow(cmd.Context(), entity.TriggerCLI)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), refreshhandler.ToCycleResponse(cycle)); err != nil {
					return err
				}
				if _, failed := cycle.Counts(); strict && failed > 0 {
					return fmt.Errorf("%d symbol(s) failed", failed)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "register tracked symbols before the cycle")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero if any symbol failed")
	return cmd
}
