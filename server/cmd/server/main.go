package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/chirpwall/chirpwall/server/internal/api"
	"github.com/chirpwall/chirpwall/server/internal/config"
	"github.com/chirpwall/chirpwall/server/internal/dispatch"
	"github.com/chirpwall/chirpwall/server/internal/metrics"
	"github.com/chirpwall/chirpwall/server/internal/notify"
	"github.com/chirpwall/chirpwall/server/internal/receiver"
	"github.com/chirpwall/chirpwall/server/internal/store"
	"github.com/chirpwall/chirpwall/server/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("chirpwall-server starting", "config", *configPath)

	cfg, err := config.LoadOrDefault(*configPath, explicit)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Server.Level())

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"grpc_port", cfg.Server.GRPCPort,
		"path", cfg.Server.Path,
		"allowed_origin", cfg.Server.AllowedOrigin,
		"webhooks", len(cfg.Server.Webhooks),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st := store.New()
	m := metrics.New()

	hub := ws.New(st, ws.WithSendBuffer(cfg.Server.SendBuffer), ws.WithObserver(m))
	go hub.Run(ctx)

	// Webhook notifier; delivery runs on its own goroutine.
	notifier := notify.New(cfg.Server.Webhooks)
	go notifier.Run(ctx)

	d := dispatch.New(st, hub, m, notifier)
	d.SetObserver(m)

	if cfg.Server.SeedWelcome {
		if _, err := d.Create(ctx, "Welcome to chirpwall!", "System"); err != nil {
			slog.Error("failed to seed welcome message", "err", err)
			os.Exit(1)
		}
	}

	// Hot reload: only the log level and webhook targets change at runtime.
	go func() {
		err := config.Watch(ctx, *configPath, func(c *config.Config) {
			level.Set(c.Server.Level())
			notifier.SetWebhooks(c.Server.Webhooks)
			slog.Info("config reloaded", "log_level", c.Server.LogLevel, "webhooks", len(c.Server.Webhooks))
		})
		if err != nil {
			slog.Warn("config watch disabled", "err", err)
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.Server.GRPCPort != 0 {
		grpcSrv = grpc.NewServer(grpc.UnaryInterceptor(receiver.LoggingInterceptor()))
		receiver.RegisterBoardServer(grpcSrv, receiver.New(d))

		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			slog.Error("failed to listen on gRPC port",
				"port", cfg.Server.GRPCPort, "err", err)
			os.Exit(1)
		}

		go func() {
			slog.Info("gRPC board listening", "port", cfg.Server.GRPCPort)
			if err := grpcSrv.Serve(lis); err != nil {
				slog.Error("gRPC server stopped", "err", err)
			}
		}()
	}

	gw := api.New(api.Config{
		Path:          cfg.Server.Path,
		AllowedOrigin: cfg.Server.AllowedOrigin,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
	}, d, hub, st, m)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.HTTPPort))
	if err != nil {
		slog.Error("failed to listen on HTTP port",
			"port", cfg.Server.HTTPPort, "err", err)
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Handler:           gw,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort, "path", cfg.Server.Path)
		if err := httpSrv.Serve(lis); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("chirpwall-server shutting down")

	hub.Close()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
