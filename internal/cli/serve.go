package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vitalvas/sigauth/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an endpoint that authenticates signed requests",
		Long: `serve listens for HTTP requests, verifies their signatures against the
configured clients and answers with the authenticated identity as JSON.
GET /healthz is served without authentication.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			if listen != "" {
				cfg.Server.Listen = listen
			}

			verifier, closer, err := cfg.Verifier(&a.logger)
			if err != nil {
				return err
			}
			defer closer.Close()

			handler, err := server.NewHandler(server.Config{
				Verifier:     verifier,
				Realm:        cfg.Realm,
				MaxBodyBytes: cfg.Server.MaxBodyBytes,
				Logger:       a.logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.Run(ctx, cfg.Server.Listen, handler, cfg.Server.ReadTimeout, cfg.Server.ShutdownTimeout, a.logger)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address, overrides server.listen")

	return cmd
}
