package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lysyi3m/market-comb/app/api"
	"github.com/lysyi3m/market-comb/app/cache"
	"github.com/lysyi3m/market-comb/app/cfg"
	"github.com/lysyi3m/market-comb/app/database"
	"github.com/lysyi3m/market-comb/app/lock"
	"github.com/lysyi3m/market-comb/app/market"
	"github.com/lysyi3m/market-comb/app/reddit"
	"github.com/lysyi3m/market-comb/app/source"
	"github.com/lysyi3m/market-comb/app/tasks"
)

// moderatorCacheSize covers the built-in registry with room for overrides.
const moderatorCacheSize = 64

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting Market Comb", "version", appCfg.Version, "community", appCfg.TargetSub)

	db, err := openDatabase(appCfg)
	if err != nil {
		slog.Error("Failed to connect to database", "driver", appCfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "driver", db.Dialect.Name, "schema_version", version, "dirty", dirty)

	registry, err := source.Load(appCfg.SourcesFile)
	if err != nil {
		slog.Error("Failed to load source registry", "file", appCfg.SourcesFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded source registry", "sources", registry.Count())

	remote := newRemote(appCfg)

	var redisClient *redis.Client
	if appCfg.RedisURL != "" {
		redisClient, err = connectRedis(appCfg.RedisURL)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	deps := tasks.Deps{
		Registry: registry,
		Remote:   remote,
		Store:    db,
		Filterer: market.NewFilterer(appCfg.FreshnessWindow),
		Locker:   lock.NewMemoryLocker(),
	}
	if redisClient != nil {
		deps.Locker = lock.NewRedisLocker(redisClient)
	}
	if appCfg.ModeratorCacheTTL > 0 {
		if redisClient != nil {
			deps.Moderators = cache.NewRedisCache(redisClient, appCfg.ModeratorCacheTTL)
		} else {
			deps.Moderators = cache.NewMemoryCache(moderatorCacheSize, appCfg.ModeratorCacheTTL)
		}
	}

	scheduler := tasks.NewScheduler(deps)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Scheduler started",
		"workers", appCfg.WorkerCount,
		"discovery_interval", appCfg.DiscoveryInterval,
		"maintenance_interval", appCfg.MaintenanceInterval)

	handler := api.NewHandler(db, registry, scheduler, appCfg.TargetSub)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "api_enabled", appCfg.APIAccessKey != "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}

func openDatabase(c *cfg.Cfg) (*database.DB, error) {
	if c.DBDriver == "mysql" {
		return database.NewMySQL(c.MySQLDSN())
	}
	if err := os.MkdirAll(filepath.Dir(c.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	return database.NewSQLite(c.DBPath)
}

func newRemote(c *cfg.Cfg) tasks.RemoteClient {
	client := reddit.NewClient(reddit.Config{
		ClientID:          c.RedditClientID,
		ClientSecret:      c.RedditClientSecret,
		Username:          c.RedditUsername,
		Password:          c.RedditPassword,
		UserAgent:         c.UserAgent,
		RequestsPerMinute: c.RequestsPerMinute,
	})
	if c.IngestMode != "atom" {
		return client
	}

	slog.Info("Listing sources through public Atom feeds")
	feed := reddit.NewFeedLister(reddit.NewHTTPClient(30*time.Second), "", c.UserAgent, c.RequestsPerMinute)
	return reddit.NewFeedClient(client, feed)
}

func connectRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
