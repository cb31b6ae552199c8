package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"quote_backend/internal/platform/config"
	jwtmw "quote_backend/internal/platform/jwt"
)

func newTokenCmd(opts *options) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin JWT signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.JWTSecret == "" {
				return errors.New(config.EnvKeyJWTSecret + " is not set")
			}
			tok, err := jwtmw.NewGenerator(opts.cfg.JWTSecret, ttl).GenerateToken(subject, role)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "quotectl", "sub claim")
	cmd.Flags().StringVar(&role, "role", jwtmw.RoleAdmin, "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
