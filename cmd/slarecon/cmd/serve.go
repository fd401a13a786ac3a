package cmd

import (
	"github.com/spf13/cobra"

	"logistics-sla-reconciler/internal/api"
	"logistics-sla-reconciler/pkg/logger"
)

func newServeCmd(a *app) *cobra.Command {
	defaults := api.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reconciliation engine over HTTP",
		Long: `Serve exposes the engine as a JSON API:

  GET  /healthz       liveness probe
  POST /v1/reconcile  body {"internal": [...], "carrier": [...], "sla": [...], "now": "..."}

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}

	f := cmd.Flags()
	f.String("addr", defaults.Addr, "listen address")
	f.Int("max-body-mb", defaults.MaxBodyMB, "largest accepted request body in MB")
	f.Int("max-rows", defaults.MaxRows, "largest accepted row count per collection")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	service, err := a.newService()
	if err != nil {
		return err
	}

	server, err := api.NewAPI(service, &a.cfg.Serve)
	if err != nil {
		return err
	}

	a.logger.WithFields(logger.Fields{
		"addr":        a.cfg.Serve.Addr,
		"max_body_mb": a.cfg.Serve.MaxBodyMB,
		"timezone":    a.cfg.Timezone,
	}).Info("Starting HTTP server")

	return server.ListenAndServe(cmd.Context())
}
