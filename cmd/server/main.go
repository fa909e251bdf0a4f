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

	"github.com/gorilla/mux"

	"github.com/inamate/canvas/internal/agent"
	"github.com/inamate/canvas/internal/api"
	"github.com/inamate/canvas/internal/asset"
	"github.com/inamate/canvas/internal/auth"
	"github.com/inamate/canvas/internal/collab"
	"github.com/inamate/canvas/internal/config"
	"github.com/inamate/canvas/internal/design"
	"github.com/inamate/canvas/internal/geom"
	"github.com/inamate/canvas/internal/history"
	"github.com/inamate/canvas/internal/logging"
	"github.com/inamate/canvas/internal/metrics"
	mw "github.com/inamate/canvas/internal/middleware"
	"github.com/inamate/canvas/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logCloser := logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})

	if err := run(cfg); err != nil {
		slog.Error("server error", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
	logCloser.Close()
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	presets, err := config.LoadPresets(cfg.PresetsFile)
	if err != nil {
		return fmt.Errorf("load presets: %w", err)
	}

	dsn := cfg.DatabaseURL
	if cfg.StoreDriver == "sqlite" {
		dsn = cfg.SQLitePath
	}
	st, err := store.Open(ctx, cfg.StoreDriver, dsn)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	slog.Info("store ready", "driver", cfg.StoreDriver)

	m := metrics.New()

	workspace := design.NewWorkspace(st, presets.Defaults, design.Options{
		History:       history.Config{MaxDepth: cfg.HistoryDepth, MaxBytes: int(cfg.HistoryBytes)},
		SnapThreshold: cfg.SnapThreshold,
		Logger:        slog.Default(),
	})

	router := agent.NewRouter(workspace.Active, slog.Default())
	router.Observe(m.ObserveCommand)

	hub := collab.NewHub(router, slog.Default())
	go hub.Run(ctx)

	authService := auth.NewService(cfg.JWTSecret, cfg.AdminUser, cfg.AdminPassHash)
	authHandler := auth.NewHandler(authService)

	importer := func(ctx context.Context, designID string, data []byte) (string, error) {
		d, err := workspace.Open(ctx, designID)
		if err != nil {
			return "", err
		}
		res := <-d.AddImage(ctx, data, geom.Rect{})
		return res.LayerID, res.Err
	}
	assetHandler := asset.NewHandler(cfg.AssetDir, importer, slog.Default())

	apiHandler := api.NewHandler(workspace, api.Options{
		Store:   st,
		Router:  router,
		Hub:     hub,
		Metrics: m,
		Presets: presets.Sizes,
		Origins: collab.OriginPatterns(cfg.Origins()),
		Logger:  slog.Default(),
	})

	limiter := mw.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	go limiter.Cleanup(ctx)
	go workspace.Autosave(ctx, cfg.AutosaveInterval)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))
	r.Use(m.Middleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", m.Handler()).Methods("GET")

	// Auth routes (public, rate limited)
	authRoutes := r.PathPrefix("/auth").Subrouter()
	authRoutes.Use(limiter.Middleware)
	authRoutes.HandleFunc("/login", authHandler.Login).Methods("POST")
	authRoutes.HandleFunc("/guest", authHandler.Guest).Methods("POST")

	// Stored assets are public; uploads need a token.
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	apiRoutes := r.PathPrefix("/api").Subrouter()
	apiRoutes.Use(limiter.Middleware)
	apiRoutes.Use(authService.AuthMiddleware)
	apiRoutes.HandleFunc("/me", authHandler.Me).Methods("GET")
	apiRoutes.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	apiHandler.Routes(apiRoutes)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-errCh:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop the live rooms before the HTTP server so websocket handlers return.
	cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}

	slog.Info("saving all designs")
	if err := workspace.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("save designs: %w", err)
	}
	return nil
}
