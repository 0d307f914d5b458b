// Package main is the entrypoint for the quoting portal API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/handler"
	mw "github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/middleware"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/response"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/cache"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/catalog"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/config"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/crm"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/quote"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/storage"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "insurers", cfg.Quote.Insurers, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create upstream clients
	catalogClient := catalog.NewHTTPClient(cfg.Catalog)
	crmClient := crm.NewHTTPClient(cfg.CRM)
	crmSession := crm.Session{
		AccessToken: cfg.CRM.WebhookToken,
		Domain:      cfg.CRM.Domain,
	}

	// 6. Create store and quote service
	pgStore := store.NewPostgresStore(pool)
	quoteSvc := quote.NewService(catalogClient, pgStore, redisCache,
		cfg.Quote.Insurers, cfg.Quote.FanOutTimeout, cfg.Quote.CacheTTL)

	// 7. Optional export uploads
	var uploader storage.Uploader
	if cfg.Storage.Bucket != "" {
		s3Uploader, err := storage.NewS3Uploader(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("create s3 uploader: %w", err)
		}
		uploader = s3Uploader
		slog.Info("export uploads enabled", "bucket", cfg.Storage.Bucket)
	}

	// 8. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(redisCache, 60)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler: healthHandler(pgStore, redisCache),

		PersonLookupHandler:  handler.NewPersonLookupHandler(catalogClient),
		VehicleLookupHandler: handler.NewVehicleLookupHandler(catalogClient),
		FanOutHandler:        handler.NewFanOutHandler(quoteSvc),

		CreateCotizacionHandler: handler.NewCreateCotizacionHandler(quoteSvc),
		GetCotizacionHandler:    handler.NewGetCotizacionHandler(quoteSvc),
		PatchCotizacionHandler:  handler.NewPatchCotizacionHandler(quoteSvc),
		ListCotizacionesHandler: handler.NewListCotizacionesHandler(quoteSvc),

		AppendComparisonHandler: handler.NewAppendComparisonHandler(quoteSvc),
		SelectPlanHandler:       handler.NewSelectPlanHandler(quoteSvc, crmClient, crmSession),
		DealComparisonHandler:   handler.NewDealComparisonHandler(quoteSvc),
		ExportHandler:           handler.NewExportHandler(quoteSvc, uploader),
		CreateDealHandler:       handler.NewCreateDealHandler(crmClient, quoteSvc, crmSession),

		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
