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

	"go.uber.org/zap"

	"github.com/medtext/radprep/internal/cache"
	"github.com/medtext/radprep/internal/config"
	"github.com/medtext/radprep/internal/logger"
	"github.com/medtext/radprep/internal/pattern"
	"github.com/medtext/radprep/internal/preprocess"
	"github.com/medtext/radprep/internal/rules"
	"github.com/medtext/radprep/internal/rulestore"
	"github.com/medtext/radprep/internal/server"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("radprep %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if *healthCheck {
		performHealthCheck()
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}

	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled:  cfg.Logging.File.Enabled,
			Path:     cfg.Logging.File.Path,
			MaxSize:  cfg.Logging.File.MaxSize,
			MaxAge:   cfg.Logging.File.MaxAge,
			Compress: cfg.Logging.File.Compress,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting radprep",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	// Build the rule source
	source, store, err := buildSource(cfg, log)
	if err != nil {
		log.Fatal("Failed to create rule source", zap.Error(err))
	}
	if store != nil {
		defer store.Close()
	}

	// Build the preprocessing engine
	registry := pattern.NewRegistry()
	engine, err := preprocess.New(preprocess.Config{
		CacheEnabled:      cfg.Cache.Enabled,
		CacheSize:         cfg.Cache.Size,
		SentencePattern:   cfg.Sentence.BoundaryPattern,
		StopPattern:       cfg.Sentence.StopPattern,
		SpineWordsPattern: cfg.Spine.WordsPattern,
	}, source, registry, log.WithComponent("engine").Logger)
	if err != nil {
		log.Fatal("Failed to create engine", zap.Error(err))
	}

	// Optional distributed result cache
	var results *cache.ResultCache
	if cfg.Cache.Redis.Enabled {
		results, err = cache.NewResultCache(&cfg.Cache.Redis, log.WithComponent("cache").Logger)
		if err != nil {
			log.Fatal("Failed to create result cache", zap.Error(err))
		}
		defer results.Close()
	}

	srv := server.New(cfg, log, engine, results)

	// Reload rules and purge caches when the config file changes
	if err := config.Watch(cfg, func(newCfg *config.Config) {
		log.Info("Configuration changed, reloading rules")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := engine.Reload(ctx); err != nil {
			log.Error("Rule reload failed", zap.Error(err))
			return
		}
		if results != nil {
			if err := results.Clear(ctx); err != nil {
				log.Error("Result cache clear failed", zap.Error(err))
			}
		}
	}); err != nil {
		log.Warn("Config watch unavailable", zap.Error(err))
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// buildSource creates the configured rule provider. The store is returned
// separately so main can close it on exit.
func buildSource(cfg *config.Config, log *logger.Logger) (rules.Source, *rulestore.Store, error) {
	switch cfg.Rules.Provider {
	case "postgres":
		store, err := rulestore.NewStore(&cfg.Rules.Database, log.WithComponent("rulestore").Logger)
		if err != nil {
			return nil, nil, err
		}
		return rulestore.NewStoreSource(store), store, nil
	default:
		source, err := rules.NewFileSource(cfg.Rules.Dir, log.WithComponent("rules").Logger)
		if err != nil {
			return nil, nil, err
		}
		return source, nil, nil
	}
}

// performHealthCheck performs a health check against the running server
func performHealthCheck() {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
