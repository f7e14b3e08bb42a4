// Command server runs the HyprCAT gateway: catalog, identity, wallet,
// payments, federation, and provenance behind the HTTP surface in
// internal/api.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyprcat/hyprcat/internal/api"
	"github.com/hyprcat/hyprcat/internal/catalog"
	"github.com/hyprcat/hyprcat/internal/config"
	"github.com/hyprcat/hyprcat/internal/events"
	"github.com/hyprcat/hyprcat/internal/federation"
	"github.com/hyprcat/hyprcat/internal/governance"
	"github.com/hyprcat/hyprcat/internal/identity"
	"github.com/hyprcat/hyprcat/internal/jsonld"
	"github.com/hyprcat/hyprcat/internal/middleware"
	"github.com/hyprcat/hyprcat/internal/obslog"
	"github.com/hyprcat/hyprcat/internal/provenance"
	"github.com/hyprcat/hyprcat/internal/redisx"
	"github.com/hyprcat/hyprcat/internal/store"
	"github.com/hyprcat/hyprcat/internal/wallet"
)

func main() {
	cfg := config.Get()
	obslog.Setup(obslog.Options{Level: cfg.Logging.Level, JSONFormat: cfg.Logging.Format == "json"})

	slog.Info("starting hyprcat gateway", "env", cfg.Server.Env, "base_url", cfg.Server.BaseURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := store.Open(ctx, cfg.Storage.Backend, cfg.Storage.Dir, cfg.Storage.PostgresDSN)
	if err != nil {
		slog.Error("failed to open store backend", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	catalogSvc := catalog.NewService(backend, cfg.Server.BaseURL)
	if err := catalogSvc.SeedMesh(ctx); err != nil {
		slog.Error("failed to seed catalog mesh", "error", err)
		os.Exit(1)
	}

	walletStore := wallet.NewStore()
	payments := governance.NewPaymentPipeline(walletStore, cfg.Security.PaymentSecret, time.Duration(cfg.Security.ChallengeTTLSec)*time.Second)
	tokenGate := governance.NewTokenGate(walletStore)

	identitySvc := identity.NewService(
		time.Duration(cfg.Security.ChallengeTTLSec)*time.Second,
		time.Duration(cfg.Security.SessionTTLSec)*time.Second,
		cfg.Security.JWTSecret,
		cfg.Security.RequireProduction || cfg.IsProduction(),
	)

	var cache *redisx.Adapter
	if cfg.Redis.Enabled {
		cache = redisx.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := cache.Ping(ctx); err != nil {
			slog.Warn("redis cache unreachable, continuing without it", "error", err)
			cache = nil
		}
	}

	registry := federation.NewRegistry(federation.DefaultSources()...)
	dispatcher := federation.NewDispatcher(cfg.Federation.WorkerCount, time.Duration(cfg.Federation.SourceTimeoutSec)*time.Second)
	fedEngine := federation.NewEngine(registry, dispatcher, cache, 30*time.Second)

	provSvc := provenance.NewService()

	bus := events.NewEventBus()
	var emitter events.EventEmitter = bus
	if cfg.PubSub.Enabled {
		pubsubBus, err := events.NewPubSubEventBus(cfg.PubSub.ProjectID, cfg.PubSub.TopicID)
		if err != nil {
			slog.Warn("pubsub event bus unavailable, falling back to in-process bus", "error", err)
		} else {
			emitter = pubsubBus
			defer pubsubBus.Close()
		}
	}

	validator := jsonld.NewValidator(jsonld.DefaultNamespaces())
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		MaxCallsPerMinute: cfg.RateLimit.Max,
		BurstSize:         cfg.RateLimit.Burst,
	})

	app := api.NewApp(catalogSvc, identitySvc, walletStore, payments, tokenGate, fedEngine, provSvc, emitter, bus, validator, rateLimiter, cfg.Server.BaseURL)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}

	go sweepChallenges(ctx, identitySvc)
	go sweepInvoices(ctx, payments)

	go func() {
		slog.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	slog.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	cancel()
	slog.Info("hyprcat gateway stopped")
}

func sweepChallenges(ctx context.Context, svc *identity.Service) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := svc.SweepExpiredChallenges(); n > 0 {
				slog.Debug("swept expired challenges", "count", n)
			}
		}
	}
}

func sweepInvoices(ctx context.Context, payments *governance.PaymentPipeline) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if expired := payments.SweepExpiredInvoices(); len(expired) > 0 {
				slog.Debug("swept expired invoices", "count", len(expired))
			}
		}
	}
}
