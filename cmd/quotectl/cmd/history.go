package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"quote_backend/internal/app/di"
)

func newHistoryCmd(opts *options) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "history <code>",
		Short: "Print stored samples of a symbol, oldest first (default: last 24h)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFlagTime("from", from)
			if err != nil {
				return err
			}
			t, err := parseFlagTime("to", to)
			if err != nil {
				return err
			}
			return opts.withContainer(cmd.Context(), func(c *di.Container) error {
				samples, err := c.Quotes.History(cmd.Context(), args[0], f, t)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "TIMESTAMP\tPRICE")
				for _, s := range samples {
					_, _ = fmt.Fprintf(tw, "%s\t%s\n", s.CapturedAt.UTC().Format(time.RFC3339), s.Price.String())
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start (RFC3339)")
	cmd.Flags().StringVar(&to, "to", "", "end (RFC3339)")
	return cmd
}

func parseFlagTime(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be RFC3339: %w", name, err)
	}
	return t, nil
}
