// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/recog-engine/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the recognition workflows as a JSON HTTP API",
	Long: `Serve starts the HTTP API:

  GET  /api/health
  POST /api/modules/extract       {text}
  POST /api/modules/suggestions   {text, institution, limit}
  POST /api/recognition/find      {text, institution}
  POST /api/recognition/select    {selected_module, external_module}
  GET  /metrics

The server stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appConfig, true)
	if err != nil {
		return err
	}
	defer a.Close()

	srvCfg := appConfig.Server
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		srvCfg.Addr = addr
	}

	srv := api.NewServer(a.extractor, a.ranker, a.service, appConfig.Recognition, a.metrics, a.logger.Named("api"))
	return api.Serve(ctx, srvCfg, api.NewRouter(srv), a.logger)
}
