package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/darkodi/shortlink/internal/cache"
	"github.com/darkodi/shortlink/internal/config"
	"github.com/darkodi/shortlink/internal/handler"
	"github.com/darkodi/shortlink/internal/logger"
	"github.com/darkodi/shortlink/internal/middleware"
	"github.com/darkodi/shortlink/internal/repository"
	"github.com/darkodi/shortlink/internal/service"
)

// resolutionCache is what the service needs plus shutdown
type resolutionCache interface {
	service.Cache
	io.Closer
}

func main() {
	// ============================================================
	// LOAD CONFIGURATION
	// ============================================================
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Environment: cfg.Log.Environment,
	})

	log.Info("starting shortlink",
		"environment", cfg.App.Environment,
		"port", cfg.Server.Port,
		"base_url", cfg.App.BaseURL,
		"db_driver", cfg.Database.Driver,
		"cache_driver", cfg.Cache.Driver,
	)

	// ============================================================
	// INITIALIZE LAYERS
	// ============================================================
	repo, err := repository.NewURLRepository(&cfg.Database)
	if err != nil {
		log.Error("failed to initialize database", "error", err.Error())
		os.Exit(1)
	}

	urlCache, err := newCache(cfg)
	if err != nil {
		log.Error("failed to initialize cache", "driver", cfg.Cache.Driver, "error", err.Error())
		os.Exit(1)
	}
	log.Info("cache ready", "driver", cfg.Cache.Driver)

	svc := service.NewURLService(repo, urlCache, service.Options{
		BaseURL:             cfg.App.BaseURL,
		CodeLength:          cfg.Shortener.CodeLength,
		MaxURLLength:        cfg.Shortener.MaxURLLength,
		MaxGenerateAttempts: cfg.Shortener.MaxGenerateAttempts,
		DefaultExpiry:       cfg.Shortener.DefaultExpiry,
		ClickWorkers:        cfg.Shortener.ClickWorkers,
		ClickQueueSize:      cfg.Shortener.ClickQueueSize,
		Logger:              log,
	})

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	if cfg.Shortener.SweepInterval > 0 {
		if err := svc.StartSweeper(sweepCtx, cfg.Shortener.SweepInterval); err != nil {
			log.Error("failed to start expiry sweeper", "error", err.Error())
			os.Exit(1)
		}
		log.Info("expiry sweeper enabled", "interval", cfg.Shortener.SweepInterval)
	}

	h := handler.NewURLHandler(svc, log, cfg.Metrics.Enabled)
	router := h.SetupRoutes()

	// ============================================================
	// BUILD MIDDLEWARE CHAIN
	// ============================================================
	wrappedRouter := middleware.Chain(router,
		middleware.RequestID,
		middleware.RecoveryWithLogger(log),
		middleware.LoggingWithLogger(log),
	)

	// ============================================================
	// CREATE SERVER WITH CONFIG TIMEOUTS
	// ============================================================
	addr := ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      wrappedRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)

	go func() {
		if cfg.IsDevelopment() {
			fmt.Printf("Server starting on http://localhost%s\n", addr)
			fmt.Println("Endpoints:")
			fmt.Println("  POST   /api/urls/shorten - Create short URL (X-User-ID)")
			fmt.Println("  GET    /api/urls/my-urls - List your short URLs (X-User-ID)")
			fmt.Println("  DELETE /api/urls/{code}  - Delete a short URL (X-User-ID)")
			fmt.Println("  GET    /{code}           - Redirect to original")
			fmt.Println("  GET    /{code}/stats     - View statistics")
			fmt.Println("  GET    /health           - Health check")
		}
		log.Info("server starting", "addr", addr)
		serverErr <- server.ListenAndServe()
	}()

	// ============================================================
	// WAIT FOR SHUTDOWN OR ERROR
	// ============================================================
	select {
	case err := <-serverErr:
		log.Error("server error", "error", err.Error())
		os.Exit(1)

	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "error", err.Error())
			if err := server.Close(); err != nil {
				log.Error("forced shutdown failed", "error", err.Error())
			}
		}

		stopSweeper()

		// drain background click increments before the store goes away
		if err := svc.Close(ctx); err != nil {
			log.Error("click drain incomplete", "error", err.Error())
		}

		if err := urlCache.Close(); err != nil {
			log.Error("failed to close cache", "error", err.Error())
		}
		if err := repo.Close(); err != nil {
			log.Error("failed to close database", "error", err.Error())
		}

		log.Info("server stopped")
	}
}

func newCache(cfg *config.Config) (resolutionCache, error) {
	switch cfg.Cache.Driver {
	case "memory":
		return cache.NewMemoryCache(cfg.Cache.CleanupInterval), nil
	default:
		c, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
