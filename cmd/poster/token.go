package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/simongrossi/maptoposter-web/internal/service/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd(c *cli) *cobra.Command {
	var (
		subject  string
		lifetime time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for POST /generate",
		Long: `Mint a bearer token signed with auth.jwt_secret.

The API server only checks tokens when auth.jwt_secret is set, so the same
secret must be configured here.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured")
			}
			svc, err := auth.NewJWTService(c.cfg.Auth.JWTSecret)
			if err != nil {
				return err
			}
			token, err := svc.GenerateToken(cmd.Context(), subject, lifetime)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "client the token is issued to (required)")
	cmd.Flags().DurationVar(&lifetime, "ttl", auth.DefaultTokenLifetime, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
