package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/prepsense/cache"
	"github.com/danielhkuo/prepsense/clients"
	"github.com/danielhkuo/prepsense/cliparse"
	"github.com/danielhkuo/prepsense/db"
	"github.com/danielhkuo/prepsense/middleware"
	"github.com/danielhkuo/prepsense/router"
	"github.com/danielhkuo/prepsense/units"
)

func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	level, err := cliparse.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Error("invalid log level", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cliparse.NewLogger(os.Stderr, level))

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg cliparse.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL
	dbConn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		return err
	}
	slog.Info("Database schema ready")

	conv := units.NewConverter()
	if cfg.UnitOverridesPath != "" {
		f, err := os.Open(cfg.UnitOverridesPath)
		if err != nil {
			return err
		}
		err = conv.LoadOverrides(f)
		f.Close()
		if err != nil {
			return err
		}
		slog.Info("unit overrides loaded", "path", cfg.UnitOverridesPath)
	}

	cacheManager, closeCache, err := cache.New(ctx, cfg.CacheConfig)
	if err != nil {
		return err
	}
	defer closeCache()
	cacheManager.Start(ctx)
	defer cacheManager.Close()

	deps := router.Deps{Cache: cacheManager, Converter: conv}
	if cfg.SpoonacularAPIKey != "" {
		deps.Spoonacular = clients.NewSpoonacularClient(cfg.SpoonacularAPIKey, cfg.SpoonacularBaseURL)
	} else {
		slog.Warn("SPOONACULAR_API_KEY not set, external recommendations disabled")
	}
	if cfg.OpenAIAPIKey != "" {
		deps.OpenAI, err = clients.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
		if err != nil {
			return err
		}
	} else {
		slog.Warn("OPENAI_API_KEY not set, AI suggestions disabled")
	}
	if cfg.AdminKey == "" {
		slog.Warn("ADMIN_KEY not set, admin endpoints will reject every request")
	}

	// Create router
	mux := router.NewRouter(dbConn, cfg, deps)

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return err
	}
	slog.Info("Listening", "port", cfg.Port)
	if err := serve(ctx, &server, ln); err != nil {
		return err
	}
	slog.Info("Server closed")
	return nil
}

// serve runs server on ln until ctx is done, then returns once in-flight
// requests have drained or the shutdown timeout forced them closed.
func serve(ctx context.Context, server *http.Server, ln net.Listener) error {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		// Wait for Ctrl-C or SIGTERM
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	err := server.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-drained
	return nil
}
