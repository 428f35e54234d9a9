package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/medtext/radprep/internal/config"
	"github.com/medtext/radprep/internal/etl"
	"github.com/medtext/radprep/internal/logger"
	"github.com/medtext/radprep/internal/pattern"
	"github.com/medtext/radprep/internal/rulestore"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Configuration file path")
		inputFile    = flag.String("input", "", "Input rule dataset (CSV, Parquet, or JSON)")
		batchSize    = flag.Int("batch-size", 500, "Batch size for processing")
		workers      = flag.Int("workers", 4, "Number of worker goroutines")
		validateOnly = flag.Bool("validate-only", false, "Only validate data, don't write")
		dryRun       = flag.Bool("dry-run", false, "Dry run - don't write to database")
		exportDir    = flag.String("export", "", "Export stored rules as YAML files into this directory")
		showStats    = flag.Bool("stats", false, "Show rule table statistics and exit")
	)
	flag.Parse()

	if *inputFile == "" && *exportDir == "" && !*showStats {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input rules.csv --batch-size 200\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input rules.parquet --workers 8\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input rules.json --validate-only\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --export data/rules\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --stats\n", os.Args[0])
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting radprep rule tool",
		zap.String("version", "0.1.0"),
		zap.String("config", *configPath))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling operations...")
		cancel()
	}()

	if cfg.Rules.Database.URL == "" {
		log.Fatal("Rule tool requires rules.database.url to be configured")
	}

	store, err := rulestore.NewStore(&cfg.Rules.Database, log.WithComponent("rulestore").Logger)
	if err != nil {
		log.Fatal("Failed to initialize rule store", zap.Error(err))
	}
	defer store.Close()

	pipeline := etl.NewPipeline(store, pattern.NewRegistry(), &etl.Config{
		BatchSize:      *batchSize,
		WorkerCount:    *workers,
		SkipDuplicates: true,
		ValidateData:   true,
		DryRun:         *dryRun,
		ValidateOnly:   *validateOnly,
		ProgressReport: 1000,
	}, log.Logger)

	switch {
	case *showStats:
		if err := showStoreStats(ctx, store); err != nil {
			log.Fatal("Failed to show stats", zap.Error(err))
		}
	case *exportDir != "":
		if err := pipeline.ExportYAML(ctx, *exportDir); err != nil {
			log.Fatal("Export failed", zap.Error(err))
		}
		log.Info("Export completed", zap.String("dir", *exportDir))
	default:
		if err := importDataset(ctx, pipeline, *inputFile, log); err != nil {
			log.Fatal("Import failed", zap.Error(err))
		}
	}

	log.Info("Rule tool completed successfully")
}

// importDataset imports the input rule dataset file
func importDataset(ctx context.Context, pipeline *etl.Pipeline, inputFile string, log *logger.Logger) error {
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputFile)
	}

	result, err := pipeline.ProcessFile(ctx, inputFile)
	if err != nil {
		return fmt.Errorf("pipeline processing failed: %w", err)
	}

	log.Info("Rule import completed",
		zap.String("file", inputFile),
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("processed_ok", result.ProcessedOK),
		zap.Int64("processed_failed", result.ProcessedFailed),
		zap.Int64("duplicates", result.Duplicates),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("database_time", result.DatabaseTime))

	if len(result.Errors) > 0 {
		log.Warn("Import completed with errors", zap.Strings("errors", result.Errors))
	}

	return nil
}

// showStoreStats displays current rule table statistics
func showStoreStats(ctx context.Context, store *rulestore.Store) error {
	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get rule stats: %w", err)
	}

	fmt.Printf("\n=== radprep Rule Table Statistics ===\n")
	fmt.Printf("Total Rules:   %d\n", stats.TotalRules)
	fmt.Printf("Regex Rules:   %d\n", stats.RegexRules)
	fmt.Printf("Last Updated:  %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05"))
	for version, count := range stats.ByVersion {
		fmt.Printf("  %-12s %d\n", version+":", count)
	}

	return nil
}
