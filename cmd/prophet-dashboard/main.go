package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/client"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/config"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/dashboard"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/db"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/handlers"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/live"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/render"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/retry"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/session"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
)

func main() {
	fmt.Println("=== Prophet Dashboard v0 ===")

	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the Prophet data source
	source, closeSource, err := connectSource(ctx, cfg)
	if err != nil {
		fmt.Printf("❌ Failed to connect to Prophet: %v\n", err)
		os.Exit(1)
	}
	defer closeSource()

	// Session store: Redis when configured, memory otherwise
	store, closeStore, err := connectStore(ctx, cfg)
	if err != nil {
		fmt.Printf("❌ Failed to connect to Redis: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	renderer, err := render.New()
	if err != nil {
		fmt.Printf("❌ Failed to load templates: %v\n", err)
		os.Exit(1)
	}

	// Initialize components
	service := dashboard.NewService(source, cfg.Dashboard.StartingBankroll)
	sessions := dashboard.NewSessions(service, store)
	handler := handlers.NewHandler(service, sessions, renderer)

	h := live.NewHub(cfg.Live.RefreshInterval)
	go h.Run(ctx)
	liveHandler := live.NewHandler(ctx, h, service, cfg.Server.CORSOrigins)

	// Setup router
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// The websocket route must not sit behind the request timeout
	r.Get("/ws", liveHandler.HandleWebSocket)
	r.Get("/metrics", liveHandler.HandleMetrics)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(30 * time.Second))
		handler.RegisterRoutes(r)
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	serverErrors := make(chan error, 1)
	go func() {
		fmt.Printf("✓ Prophet Dashboard listening on %s (source: %s)\n", cfg.Server.Addr, cfg.Prophet.SourceKind)
		fmt.Println("  Endpoints:")
		fmt.Println("    GET  /")
		fmt.Println("    GET  /health")
		fmt.Println("    GET  /metrics")
		fmt.Println("    GET  /ws")
		fmt.Println("    GET  /api/v1/weeks/current")
		fmt.Println("    GET  /api/v1/weeks/{week}/summary")
		fmt.Println("    GET  /api/v1/performance")
		fmt.Println("    GET  /api/v1/dashboard")
		fmt.Println("    POST /api/v1/sessions")
		fmt.Println("    GET  /api/v1/sessions/{id}")
		fmt.Println("    POST /api/v1/sessions/{id}/navigate")

		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		fmt.Printf("❌ Server error: %v\n", err)
		os.Exit(1)

	case sig := <-shutdown:
		fmt.Printf("\n⚠️  Received signal: %v\n", sig)

		// Stop the hub and websocket pumps
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("⚠️  Graceful shutdown failed: %v\n", err)
			if err := srv.Close(); err != nil {
				fmt.Printf("❌ Could not stop server: %v\n", err)
			}
		}
	}

	fmt.Println("✓ Shutdown complete")
}

// connectSource opens the configured Prophet source
func connectSource(ctx context.Context, cfg *config.Config) (dashboard.Source, func(), error) {
	switch cfg.Prophet.SourceKind {
	case config.SourcePostgres:
		prophetDB, err := db.NewProphetPostgres(cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := prophetDB.Ping(pingCtx); err != nil {
			prophetDB.Close()
			return nil, nil, err
		}
		fmt.Println("✓ Connected to Prophet DB")

		if cfg.Postgres.Migrate {
			if err := prophetDB.Migrate(ctx); err != nil {
				prophetDB.Close()
				return nil, nil, err
			}
			fmt.Println("✓ Prophet schema applied")
		}

		return prophetDB, func() { prophetDB.Close() }, nil

	default:
		policy := retry.NewPolicy(cfg.Retry.MaxAttempts, cfg.Retry.InitialDelay, client.IsRetryable)
		prophetClient := client.NewProphetClient(cfg.Prophet.APIURL, &http.Client{Timeout: cfg.Prophet.HTTPTimeout}, policy)

		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := prophetClient.CheckHealth(healthCtx); err != nil {
			// The API may come up later; requests retry on their own
			fmt.Printf("⚠️  Prophet API not reachable at %s: %v\n", cfg.Prophet.APIURL, err)
		} else {
			fmt.Printf("✓ Connected to Prophet API at %s\n", cfg.Prophet.APIURL)
		}

		return prophetClient, func() {}, nil
	}
}

// connectStore opens the session store
func connectStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	if cfg.Redis.URL == "" {
		fmt.Println("⚠️  REDIS_URL not set, sessions are kept in memory")
		return session.NewMemoryStore(cfg.Redis.SessionTTL), func() {}, nil
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)

	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, err
	}
	fmt.Println("✓ Connected to Redis")

	return session.NewRedisStore(redisClient, cfg.Redis.SessionTTL), func() { redisClient.Close() }, nil
}
