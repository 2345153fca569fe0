package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/example/court-rotation/internal/application"
	"github.com/example/court-rotation/internal/config"
	"github.com/example/court-rotation/internal/events"
	httptransport "github.com/example/court-rotation/internal/http"
	"github.com/example/court-rotation/internal/logging"
	"github.com/example/court-rotation/internal/matchmaking"
	"github.com/example/court-rotation/internal/persistence"
	"github.com/example/court-rotation/internal/persistence/jsonfile"
	"github.com/example/court-rotation/internal/persistence/memory"
	"github.com/example/court-rotation/internal/persistence/sqlite"
	"github.com/example/court-rotation/internal/persistence/sqlite/migration"
	"github.com/example/court-rotation/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stdout, slog.LevelInfo).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closer, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "store", cfg.Store, "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := closer.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app := newApp(cfg, repo, registry, logger)
	defer app.close()

	if err := app.engine.Restore(ctx); err != nil {
		logger.Warn("continuing with empty state", "error", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		app.hub.Close()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("rotation API listening",
		"addr", server.Addr,
		"store", cfg.Store,
		"courts", len(app.engine.Config().CourtIDs),
		"selection", cfg.Selection,
		"strategy", cfg.Strategy,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// app holds the wired service graph.
type app struct {
	engine  *application.Engine
	bus     *events.Bus
	hub     *httptransport.Hub
	metrics *telemetry.Metrics
	handler http.Handler
	detach  []func()
}

func newApp(cfg config.Config, repo persistence.SnapshotRepository, registry *prometheus.Registry, logger *slog.Logger) *app {
	bus := events.NewBus(logger)
	metrics := telemetry.NewMetrics(registry)
	hub := httptransport.NewHub(originChecker(cfg.CORSOrigins), logger)

	engine := application.NewEngineWithLogger(
		engineConfig(cfg),
		application.NewSnapshotStore(repo),
		bus,
		newIDGenerator(),
		time.Now,
		logger,
	)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Players:         httptransport.NewPlayerHandler(engine, logger),
		Courts:          httptransport.NewCourtHandler(engine, time.Now, logger),
		State:           httptransport.NewStateHandler(engine, logger),
		Events:          hub,
		Metrics:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		RouteMiddleware: []func(http.Handler) http.Handler{metrics.Middleware(httptransport.RouteTemplate)},
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Recoverer(logger),
		},
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	})

	return &app{
		engine:  engine,
		bus:     bus,
		hub:     hub,
		metrics: metrics,
		handler: corsHandler.Handler(router),
		detach:  []func(){metrics.Attach(bus), hub.Attach(bus)},
	}
}

func (a *app) close() {
	for _, detach := range a.detach {
		detach()
	}
}

func engineConfig(cfg config.Config) application.EngineConfig {
	courtIDs := cfg.CourtIDs
	if len(courtIDs) == 0 {
		courtIDs = application.DefaultCourtIDs(cfg.CourtCount)
	}
	seed := uint64(time.Now().UnixNano())
	if cfg.RandomSeed != nil {
		seed = *cfg.RandomSeed
	}
	return application.EngineConfig{
		CourtIDs:     courtIDs,
		HistoryLimit: cfg.HistoryLimit,
		Weights:      cfg.Weights,
		Selection:    application.SelectionMode(cfg.Selection),
		Strategy:     application.GroupStrategy(cfg.Strategy),
		Variety:      cfg.Variety,
		Rand:         matchmaking.NewRand(seed),
	}
}

func newIDGenerator() func() string {
	return func() string { return uuid.NewString() }
}

// openStore returns the snapshot repository selected by cfg.Store.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.SnapshotRepository, io.Closer, error) {
	switch cfg.Store {
	case config.StoreMemory:
		store := memory.Open()
		return store, store, nil
	case config.StoreFile:
		store, err := jsonfile.Open(cfg.StateFile)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.StoreSQLite:
		store, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLiteDSN), logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// originChecker accepts websocket upgrades from the configured CORS origins.
func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}
