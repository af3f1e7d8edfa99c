package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"telegram-file-vault/internal/config"
	httpapi "telegram-file-vault/internal/infra/http"
)

func tokenCmd(flags *rootFlags) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the admin HTTP API",

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath, flags.dev)
			if err != nil {
				return err
			}
			if cfg.HTTP.AdminAPISecret == "" {
				return errors.New("ADMIN_API_SECRET is not configured")
			}
			tok, err := httpapi.NewAuthManager(cfg.HTTP.AdminAPISecret, ttl).Mint(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "ops", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
