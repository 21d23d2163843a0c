// Command caremeshd runs the hospital workflow service: the HTTP API over an
// assembled CareMesh with configuration from file and environment.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	caremesh "github.com/caremesh/caremesh"
	auditredis "github.com/caremesh/caremesh/audit/redis"
	"github.com/caremesh/caremesh/config"
	"github.com/caremesh/caremesh/core"
	"github.com/caremesh/caremesh/extract"
	extractanthropic "github.com/caremesh/caremesh/extract/anthropic"
	extractopenai "github.com/caremesh/caremesh/extract/openai"
	"github.com/caremesh/caremesh/httpapi"
	"github.com/caremesh/caremesh/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "caremeshd",
		Short: "Hospital encounter workflow service",
		Long: "caremeshd runs the patient-encounter orchestrator and the smart-device\n" +
			"emergency detection subsystem behind an HTTP API.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the configuration file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address override")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.NewSlogLogger(parseLevel(cfg.Log.Level), cfg.Log.Format, false)

	var sink core.AuditSink
	if cfg.Redis.Enable {
		redisSink, err := auditredis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, func(o *auditredis.Options) {
			o.TTL = cfg.Redis.TTL
		})
		if err != nil {
			return fmt.Errorf("failed to connect audit sink: %w", err)
		}
		defer redisSink.Close()
		sink = redisSink
		logger.Info("redis audit sink connected addr=%s", cfg.Redis.Addr)
	}

	mesh := caremesh.New(func(o *caremesh.Options) {
		o.Logger = logger
		o.AuditSink = sink
		o.Extractor = buildExtractor(cfg)
	})

	if cfg.Sessions.ReapInterval > 0 {
		go reapLoop(ctx, mesh, cfg.Sessions.ReapInterval, cfg.Sessions.MaxIdle)
	}

	server := httpapi.NewServer(mesh, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(cfg.Server.Addr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received %s, shutting down", sig)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return mesh.Shutdown(shutdownCtx)
}

func buildExtractor(cfg *config.Config) core.PatientExtractor {
	switch cfg.Extractor.Provider {
	case "openai":
		return extractopenai.New(func(o *extractopenai.Options) {
			if cfg.Extractor.Model != "" {
				o.Model = cfg.Extractor.Model
			}
		})
	case "anthropic":
		return extractanthropic.New(func(o *extractanthropic.Options) {
			o.APIKey = cfg.Extractor.APIKey
		})
	case "none":
		return nil
	default:
		return extract.NewStaticExtractor()
	}
}

func reapLoop(ctx context.Context, mesh *caremesh.CareMesh, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mesh.ReapIdleSessions(ctx, maxIdle)
		}
	}
}

func parseLevel(level string) logging.LogLevel {
	switch level {
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}
