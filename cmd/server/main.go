package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"

	"github.com/girrex/suivi/internal/adapter/auth"
	"github.com/girrex/suivi/internal/adapter/cache"
	"github.com/girrex/suivi/internal/adapter/eventbus"
	httpadapter "github.com/girrex/suivi/internal/adapter/http"
	"github.com/girrex/suivi/internal/adapter/memory"
	"github.com/girrex/suivi/internal/adapter/persistence"
	"github.com/girrex/suivi/internal/config"
	"github.com/girrex/suivi/internal/logger"
	"github.com/girrex/suivi/internal/ports"
	"github.com/girrex/suivi/internal/registry"
	"github.com/girrex/suivi/internal/usecase"
)

func main() {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	structuredLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "suivi",
	})
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env":   cfg.Server.Environment,
		"store": cfg.Database.Store,
	})

	roles := registry.Default()
	if cfg.Domain.RoleRegistryFile != "" {
		roles, err = registry.LoadFile(cfg.Domain.RoleRegistryFile)
		if err != nil {
			log.Fatalf("Failed to load role registry: %v", err)
		}
		structuredLogger.Info(ctx, "Role registry loaded", map[string]interface{}{"file": cfg.Domain.RoleRegistryFile})
	}

	checks := make(map[string]httpadapter.HealthCheck)

	// Storage and directory
	var (
		store     ports.UnitOfWork
		directory ports.Directory
	)
	switch cfg.Database.Store {
	case config.StorePostgres:
		db, err := openDatabase(ctx, cfg.Database)
		if err != nil {
			structuredLogger.Error(ctx, "Failed to connect to database", err, nil)
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		structuredLogger.Info(ctx, "Database connection established", nil)

		store = persistence.NewPostgresStore(db)
		directory = persistence.NewPostgresDirectory(db)
		checks["postgres"] = db.PingContext
	case config.StoreMemory:
		memDirectory := memory.NewDirectory()
		if cfg.Domain.DirectoryFile != "" {
			snap, err := memory.LoadDirectorySnapshot(cfg.Domain.DirectoryFile)
			if err != nil {
				log.Fatalf("Failed to load directory: %v", err)
			}
			memDirectory.Load(snap)
		}
		store = memory.NewStore()
		directory = memDirectory
		structuredLogger.Warn(ctx, "Using the in-memory store, data is lost on restart", nil)
	}

	// Redis: directory cache and rate limiting
	var limiter httpadapter.Limiter
	if cfg.Redis.URL != "" {
		redisClient, err := cache.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			structuredLogger.Error(ctx, "Failed to connect to Redis, continuing without cache", err, nil)
		} else {
			defer redisClient.Close()
			directory = cache.NewDirectory(directory, redisClient, cfg.Redis.DirectoryTTL, structuredLogger)
			if cfg.Security.RateLimitEnabled {
				limiter = cache.NewRateLimiter(redisClient, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow)
			}
			checks["redis"] = redisCheck(redisClient)
			structuredLogger.Info(ctx, "Redis connection established", map[string]interface{}{
				"rate_limit": limiter != nil,
			})
		}
	}

	hub := httpadapter.NewHub(directory, cfg.Security.CORSOrigins, structuredLogger)
	go hub.Run(ctx)

	// Events: NATS when configured, otherwise straight to the websocket clients
	var publisher ports.EventPublisher = hub
	if cfg.NATS.URL != "" {
		nc, err := eventbus.Connect(cfg.NATS.URL, cfg.NATS.ClientName)
		if err != nil {
			structuredLogger.Error(ctx, "Failed to connect to NATS, publishing locally only", err, nil)
		} else {
			natsPublisher := eventbus.NewPublisher(nc, structuredLogger)
			defer natsPublisher.Close()
			checks["nats"] = natsCheck(natsPublisher)

			if cfg.NATS.Relay {
				subscriber := eventbus.NewSubscriber(nc, hub, structuredLogger)
				if err := subscriber.Start(); err != nil {
					log.Fatalf("Failed to subscribe to events: %v", err)
				}
				defer subscriber.Stop()
				publisher = natsPublisher
			} else {
				publisher = eventbus.Fanout{natsPublisher, hub}
			}
			structuredLogger.Info(ctx, "NATS connection established", map[string]interface{}{"relay": cfg.NATS.Relay})
		}
	}

	tokenService, err := auth.NewTokenService(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.JWTExpiration)
	if err != nil {
		log.Fatalf("Failed to initialize token service: %v", err)
	}

	// Use cases
	numbering := usecase.NewNumberingService(nil)
	actionUseCase := usecase.NewActionUseCase(store, numbering, publisher, structuredLogger)
	diffusionUseCase := usecase.NewDiffusionUseCase(store, directory, roles, numbering, publisher, structuredLogger)

	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		AllowedOrigins: cfg.Security.CORSOrigins,
	}, httpadapter.Dependencies{
		Actions:    actionUseCase,
		Diffusions: diffusionUseCase,
		Auth:       httpadapter.NewAuthMiddleware(tokenService, directory, structuredLogger),
		RateLimit:  httpadapter.NewRateLimitMiddleware(limiter, structuredLogger),
		Hub:        hub,
		Checks:     checks,
	}, structuredLogger)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			structuredLogger.Error(ctx, "Server failed to start", err, map[string]interface{}{"port": cfg.Server.Port})
			stop()
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Server forced to shutdown", err, nil)
	}
	stop()
	structuredLogger.Info(shutdownCtx, "Server exited", nil)
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections / 2)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func redisCheck(client *redis.Client) httpadapter.HealthCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func natsCheck(p *eventbus.Publisher) httpadapter.HealthCheck {
	return func(ctx context.Context) error {
		if !p.IsConnected() {
			return nats.ErrConnectionClosed
		}
		return nil
	}
}
