package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"execdoc/internal/core/config"
	"execdoc/internal/core/errors"
	"execdoc/internal/shared/observability"
	"execdoc/internal/shared/version"
	"execdoc/internal/transport"

	"github.com/spf13/cobra"
)

func newServeCmd(o *options) *cobra.Command {
	var transportName, address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve compile and execute requests over JSON-RPC",
		Long:  `Serves JSON-RPC 2.0 either as varint length-prefixed frames on stdin and stdout, or over HTTP. All requests share one execution scope.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := o.cfg
			if cmd.Flags().Changed("transport") {
				cfg.Server.Transport = strings.ToLower(strings.TrimSpace(transportName))
			}
			if cmd.Flags().Changed("address") {
				cfg.Server.Address = address
			}
			if cfg.Server.Transport != "stdio" && cfg.Server.Transport != "http" {
				return errors.New(errors.CodeValidationError, fmt.Sprintf("unknown transport %q", cfg.Server.Transport))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return o.serve(ctx, cmd)
		},
	}
	cmd.Flags().StringVar(&transportName, "transport", "", "Transport to serve on: stdio or http")
	cmd.Flags().StringVar(&address, "address", "", "Listen address for the http transport")
	return cmd
}

func (o *options) serve(ctx context.Context, cmd *cobra.Command) error {
	cfg := o.cfg

	if cfg.Observability.Enabled && cfg.Observability.EnableTracing {
		shutdown, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, version.Version)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				o.logger.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	interpreter, err := o.newApp()
	if err != nil {
		return err
	}
	defer interpreter.Close(context.Background())

	// The http transport exposes /metrics and /health itself.
	if cfg.Observability.Enabled && cfg.Observability.EnableMetrics && cfg.Server.Transport == "stdio" {
		obs := NewObservabilityServer(fmt.Sprintf("127.0.0.1:%d", cfg.Observability.Port), interpreter)
		obs.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Stop(shutdownCtx)
		}()
	}

	o.watchConfig(ctx, nil)

	o.logger.Info("serving", "transport", cfg.Server.Transport, "session", interpreter.Session(), "version", version.Version)
	switch cfg.Server.Transport {
	case "http":
		server := transport.NewHTTP(cfg.Server.Address, interpreter, cfg.Server.RateLimit, o.logger)
		if err := server.Start(ctx); err != nil && !stderrors.Is(err, context.Canceled) {
			return err
		}
		return nil
	default:
		stream := transport.NewStream(transport.NewDispatcher(interpreter, o.logger), cfg.Server.RateLimit, o.logger)
		if err := stream.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil && !stderrors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

// watchConfig follows the config file and applies logging level changes,
// then calls onReload if set. Other settings need a restart.
func (o *options) watchConfig(ctx context.Context, onReload func(*config.Config)) {
	if _, err := os.Stat(o.configPath); err != nil {
		return
	}
	w := config.NewWatcher(o.configPath, o.cfg, func(cfg *config.Config) {
		if err := o.applyLevel(cfg); err != nil {
			o.logger.Warn("config reload ignored", "error", err)
			return
		}
		o.logger.Info("config reloaded", "level", o.level.Level())
		if onReload != nil {
			onReload(cfg)
		}
	})
	if err := w.Start(ctx); err != nil {
		o.logger.Warn("config watcher failed", "error", err)
		return
	}
	go func() {
		<-ctx.Done()
		w.Stop()
	}()
}
