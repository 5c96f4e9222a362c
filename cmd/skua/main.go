package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"skua/internal/app"
	"skua/internal/blacklist"
	"skua/internal/cache"
	"skua/internal/checker"
	"skua/internal/config"
	"skua/internal/database"
	"skua/internal/fetch"
	"skua/internal/geo"
	"skua/internal/metrics"
)

func main() {
	cfg := config.GetConfig()

	metrics.StartServer(cfg.Metrics.Port)

	if dialector := database.DialectorFor(cfg.Database.DSN, cfg.Database.SQLitePath); dialector != nil {
		if _, err := database.SetupDB(database.WithDialector(dialector)); err != nil {
			log.Fatal("failed to set up history database", "error", err)
		}
	}

	resolver, err := geo.Open(cfg.Geo.MMDBPath)
	if err != nil {
		log.Fatal("failed to open geoip database", "path", cfg.Geo.MMDBPath, "error", err)
	}
	defer func() { _ = resolver.Close() }()

	var countryResolver checker.CountryResolver
	if resolver != nil {
		countryResolver = resolver
	}

	runner := app.NewRunner(cfg, snapshotStore(cfg), countryResolver).
		WithBlacklist(buildBlacklist(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Start(ctx); err != nil {
		log.Fatal("failed to start", "error", err)
	}

	if urls := os.Args[1:]; len(urls) > 0 {
		fetchAndPrint(ctx, runner, urls)
		runner.Stop(context.Background())
		return
	}

	<-ctx.Done()
	log.Info("shutting down")
	runner.Stop(context.Background())
}

// fetchAndPrint races each URL through the pool and writes the winning
// body to stdout.
func fetchAndPrint(ctx context.Context, runner *app.Runner, urls []string) {
	for _, url := range urls {
		body, err := runner.Fetch(ctx, url)
		if err != nil {
			var exhausted *fetch.ExhaustedError
			if errors.As(err, &exhausted) {
				log.Error("no proxy could serve the request", "url", url, "attempts", exhausted.Attempts)
			} else {
				log.Error("fetch failed", "url", url, "error", err)
			}
			continue
		}
		_, _ = os.Stdout.Write(body)
	}
}

// buildBlacklist combines the statically configured endpoints with the
// shared Redis set when a Redis backend is configured.
func buildBlacklist(cfg *config.Config) *blacklist.Blacklist {
	list := blacklist.New(cfg.Blacklist.Static...)

	if cfg.Cache.RedisAddr != "" && cfg.Blacklist.RedisKey != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer func() { _ = client.Close() }()

		if err := list.LoadFromRedis(context.Background(), client, cfg.Blacklist.RedisKey); err != nil {
			log.Warn("failed to load shared blacklist", "key", cfg.Blacklist.RedisKey, "error", err)
		}
	}

	return list
}

// snapshotStore picks the snapshot backend: disabled, redis when an
// address is configured, otherwise the JSON file.
func snapshotStore(cfg *config.Config) cache.Store {
	if !cfg.Cache.Enabled {
		return nil
	}

	if cfg.Cache.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		return cache.NewRedisStore(client, cfg.Cache.RedisKey)
	}

	return cache.NewFileStore(cfg.Cache.File)
}
