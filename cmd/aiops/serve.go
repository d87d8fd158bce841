package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rahul/aiops/internal/gateway"
	"github.com/rahul/aiops/internal/observability"
	"github.com/rahul/aiops/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the task API over HTTP",
	Long: `Start the HTTP API:

  POST /task     run a task: {"task": "Weather in Delhi and top MERN repos"}
  GET  /health   health check
  GET  /metrics  Prometheus metrics
  GET  /         service description

When gateways.telegram.enabled is set, chat messages are run as tasks too.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		observability.PrintBanner(cmd.OutOrStdout(), version)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		return serve(ctx, cfg, a)
	},
}

// newTelegramGateway is replaced in tests.
var newTelegramGateway = gateway.NewTelegramGateway

// serve runs the HTTP server, and the Telegram gateway when enabled, until
// ctx is done or one of them stops.
func serve(ctx context.Context, cfg *config.Config, a *app) error {
	log := a.logger.Zap()

	var tg *gateway.TelegramGateway
	if cfg.Gateways.Telegram.Enabled {
		var err error
		tg, err = newTelegramGateway(cfg.Gateways.Telegram.Token.Value(), a.orchestrator, log, cfg.Server.RequestTimeout)
		if err != nil {
			return fmt.Errorf("failed to start telegram gateway: %w", err)
		}
	}

	server := gateway.NewServer(a.orchestrator, a.metrics, log, gateway.ServerConfig{
		Addr:           cfg.Server.Addr,
		Name:           cfg.App.Name,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	errCh := make(chan error, 2)
	go func() {
		errCh <- server.Start()
	}()
	if tg != nil {
		go func() {
			errCh <- tg.Start(ctx)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil {
			log.Error("gateway stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if tg != nil {
		_ = tg.Stop()
	}
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn("http shutdown", zap.Error(shutdownErr))
	}
	return err
}
