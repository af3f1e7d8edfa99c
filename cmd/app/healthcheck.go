package main

import (
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"telegram-file-vault/internal/config"
	httpapi "telegram-file-vault/internal/infra/http"
)

func healthcheckCmd(flags *rootFlags) *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the readiness endpoint of a running bot",
		Long: heredoc.Doc(`
			Calls /readyz on the local HTTP server and exits with status 1 unless
			it answers 200. Used as the container HEALTHCHECK.`),

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if url == "" {
				cfg, err := config.Load(flags.configPath, flags.dev)
				if err != nil {
					return err
				}
				url = httpapi.ReadyURL(cfg.HTTP.Port)
			}
			if err := httpapi.Probe(cmd.Context(), url, timeout); err != nil {
				return err
			}
			cmd.Println("OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "readiness URL; defaults to the configured local port")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "probe timeout")
	return cmd
}
