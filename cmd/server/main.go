package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"github.com/adgenesis/adgenesis/engine-go/internal/asset"
	"github.com/adgenesis/adgenesis/engine-go/internal/auth"
	"github.com/adgenesis/adgenesis/engine-go/internal/blueprint"
	"github.com/adgenesis/adgenesis/engine-go/internal/config"
	"github.com/adgenesis/adgenesis/engine-go/internal/design"
	"github.com/adgenesis/adgenesis/engine-go/internal/editor"
	"github.com/adgenesis/adgenesis/engine-go/internal/export"
	mw "github.com/adgenesis/adgenesis/engine-go/internal/middleware"
	"github.com/adgenesis/adgenesis/engine-go/internal/session"
	"github.com/adgenesis/adgenesis/engine-go/internal/snap"
	"github.com/adgenesis/adgenesis/engine-go/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	assets, err := asset.NewStore(cfg.AssetDir)
	if err != nil {
		slog.Error("open asset store", "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(cfg.JWTSecret, auth.WithDisabled(cfg.AuthDisabled))
	authHandler := auth.NewHandler(authService)

	resolver := blueprint.NewResolver(blueprint.WithLogger(logger))
	designService := design.NewService(st, resolver, logger)
	designHandler := design.NewHandler(designService)

	editorOpts := editor.Options{
		Snap:         snap.Options{Threshold: cfg.SnapThreshold, GridSpacing: cfg.GridSpacing},
		HistoryLimit: cfg.HistoryLimit,
		Resolver:     resolver,
		Logger:       logger,
	}
	hub := session.NewHub(designService, editorOpts)
	designService.UseSessions(hub)
	go hub.Run()

	renderer := export.NewRenderer(
		export.WithFontDir(cfg.FontDir),
		export.WithImages(assets),
		export.WithLogger(logger),
	)
	exportHandler := export.NewHandler(designService, renderer, cfg.MaxExportScale)
	assetHandler := asset.NewHandler(assets)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Asset files are public so exported and shared designs can reference them
	r.PathPrefix(asset.URLPrefix).Handler(assetHandler.Serve()).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods("POST")
	api.HandleFunc("/auth/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	api.HandleFunc("/assets/{assetId}", assetHandler.Delete).Methods("DELETE")
	api.HandleFunc("/designs/{designId}/export", exportHandler.Export).Methods("GET", "POST")
	designHandler.Routes(api)

	// WebSocket endpoint
	r.HandleFunc("/ws/designs/{designId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, cfg.Origins())
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mw.CORS(cfg.Origins())(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first to save all dirty documents
		slog.Info("saving all documents...")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "store", storeKind(cfg.DatabaseURL), "authDisabled", cfg.AuthDisabled)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, authSvc *auth.Service, origins []string) {
	designID := mux.Vars(r)["designId"]

	// Browsers cannot set headers on websocket requests, so the token may come as ?token=
	userID, err := authSvc.Authenticate(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	hub.Handle(w, r, designID, userID, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(origins),
	})
}

// originPatterns strips schemes; websocket origin patterns match hosts.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		out = append(out, o)
	}
	return out
}

func storeKind(url string) string {
	if i := strings.Index(url, "://"); i > 0 {
		return url[:i]
	}
	return "sqlite"
}
