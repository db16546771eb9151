package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quandify2mqtt/quandify2mqtt/internal/common"
	"github.com/quandify2mqtt/quandify2mqtt/internal/config"
	"github.com/quandify2mqtt/quandify2mqtt/internal/hass"
	"github.com/quandify2mqtt/quandify2mqtt/internal/log"
	"github.com/quandify2mqtt/quandify2mqtt/internal/poller"
	"github.com/quandify2mqtt/quandify2mqtt/internal/quandify"
	"github.com/quandify2mqtt/quandify2mqtt/internal/server"
)

const startupTimeout = 30 * time.Second

func main() {
	// load .env if present so lflag can pick the values up from the env
	_ = godotenv.Load()

	cfg := config.Configured()

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cfg.Validate(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid configuration", "error", err)
		os.Exit(1)
	}

	client, err := quandify.NewClient(cfg.Quandify())
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to build quandify client", "error", err)
		os.Exit(1)
	}

	// Bad credentials will never fix themselves, so fail fast on those.
	// Connectivity problems are left to the poller's retries.
	validateCtx, validateCancel := context.WithTimeout(ctx, startupTimeout)
	err = client.Validate(validateCtx)
	validateCancel()
	if err != nil {
		if quandify.IsAuthError(err) {
			log.Ctx(ctx).ErrorContext(ctx, "quandify rejected the credentials", "error", err)
			os.Exit(1)
		}
		log.Ctx(ctx).WarnContext(ctx, "could not reach quandify, continuing anyway", "error", err)
	}

	p := poller.New(client, poller.Config{Interval: cfg.PollInterval})

	registry := prometheus.NewRegistry()
	registry.MustRegister(poller.NewMetricsCollector(p, cfg.OrganizationID))
	registry.MustRegister(quandify.MetricsCollectors()...)
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "quandify2mqtt_build_info",
		Help:        "Build information",
		ConstLabels: prometheus.Labels{"version": common.Version()},
	}, func() float64 { return 1 }))

	if !cfg.MQTTDisabled {
		publisher, err := hass.Connect(ctx, cfg.MQTT())
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to connect to mqtt broker", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		p.AddListener(publisher.HandleSnapshot)
	} else {
		log.Ctx(ctx).InfoContext(ctx, "mqtt publishing disabled, serving metrics only")
	}

	go p.Run(ctx)

	srv := server.New(cfg.HTTPListen, p, registry, cfg.OrganizationID)
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
