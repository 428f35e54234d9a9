package etl

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/medtext/radprep/internal/pattern"
	"github.com/medtext/radprep/internal/rules"
	"github.com/medtext/radprep/internal/rulestore"
)

// punctuationVersion marks scope-free punctuation rows in import files;
// they bypass the report/heading/requisition scope check.
const punctuationVersion = "punctuation"

// Pipeline imports rule datasets into the rule store
type Pipeline struct {
	store    *rulestore.Store
	registry *pattern.Registry
	config   *Config
	logger   *zap.Logger
	stats    *ProcessingStats
	seen     map[string]struct{}
	mu       sync.RWMutex
}

// NewPipeline creates a new rule import pipeline
func NewPipeline(
	store *rulestore.Store,
	registry *pattern.Registry,
	config *Config,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		store:    store,
		registry: registry,
		config:   config,
		logger:   logger,
		stats: &ProcessingStats{
			StartTime: time.Now(),
		},
	}
}

// ProcessFile imports a rule dataset file (CSV, Parquet, or JSON)
func (p *Pipeline) ProcessFile(ctx context.Context, filePath string) (*ProcessingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	p.logger.Info("Starting rule import",
		zap.String("file", filePath),
		zap.Int("batch_size", p.config.BatchSize),
		zap.Int("workers", p.config.WorkerCount),
		zap.Bool("dry_run", p.config.DryRun),
		zap.Bool("validate_only", p.config.ValidateOnly))

	start := time.Now()
	result := &ProcessingResult{}

	format := DetectFileFormat(filePath)
	p.logger.Info("Detected file format", zap.String("format", string(format)))

	p.resetStats()

	var err error
	switch format {
	case FormatCSV:
		err = p.processCSV(ctx, filePath, result)
	case FormatParquet:
		err = p.processParquet(ctx, filePath, result)
	case FormatJSON:
		err = p.processJSON(ctx, filePath, result)
	default:
		return result, fmt.Errorf("unsupported file format: %s", format)
	}
	if err != nil {
		return result, fmt.Errorf("%s processing failed: %w", format, err)
	}

	result.Duration = time.Since(start)

	p.logger.Info("Rule import completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("processed_ok", result.ProcessedOK),
		zap.Int64("processed_failed", result.ProcessedFailed),
		zap.Int64("duplicates", result.Duplicates),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("database_time", result.DatabaseTime))

	return result, nil
}

// processCSV reads rule rows from a CSV file with the header
// original,replacement,is_regex,version,modality
func (p *Pipeline) processCSV(ctx context.Context, filePath string, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 5 // original, replacement, is_regex, version, modality

	// Read header
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	p.logger.Info("CSV header detected", zap.Strings("columns", header))

	return p.processBatches(ctx, func() ([]*RuleRecord, error) {
		var batch []*RuleRecord

		for len(batch) < p.config.BatchSize {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read CSV record", zap.Error(err))
				result.ProcessedFailed++
				continue
			}

			if len(record) != 5 {
				p.logger.Warn("Invalid CSV record length", zap.Int("length", len(record)))
				result.ProcessedFailed++
				continue
			}

			rule := &RuleRecord{
				Original:    strings.TrimSpace(record[0]),
				Replacement: strings.TrimSpace(record[1]),
				IsRegex:     record[2] == "1" || strings.EqualFold(record[2], "true"),
				Version:     strings.TrimSpace(record[3]),
				Modality:    strings.TrimSpace(record[4]),
			}

			if p.acceptRecord(rule, result) {
				batch = append(batch, rule)
			}
		}

		return batch, nil
	}, result)
}

// processParquet reads rule rows from a Parquet file
func (p *Pipeline) processParquet(ctx context.Context, filePath string, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer file.Close()

	reader := parquet.NewReader(file)
	defer reader.Close()

	return p.processBatches(ctx, func() ([]*RuleRecord, error) {
		var batch []*RuleRecord

		for len(batch) < p.config.BatchSize {
			var record RuleRecord
			err := reader.Read(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read Parquet record", zap.Error(err))
				result.ProcessedFailed++
				continue
			}

			if p.acceptRecord(&record, result) {
				batch = append(batch, &record)
			}
		}

		return batch, nil
	}, result)
}

// processJSON reads rule rows from a JSON file (stream of objects)
func (p *Pipeline) processJSON(ctx context.Context, filePath string, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)

	return p.processBatches(ctx, func() ([]*RuleRecord, error) {
		var batch []*RuleRecord

		for len(batch) < p.config.BatchSize {
			var record RuleRecord
			err := decoder.Decode(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read JSON record", zap.Error(err))
				result.ProcessedFailed++
				continue
			}

			if p.acceptRecord(&record, result) {
				batch = append(batch, &record)
			}
		}

		return batch, nil
	}, result)
}

// processBatches drains the reader and writes accepted batches through a
// small worker pool
func (p *Pipeline) processBatches(ctx context.Context, readBatch func() ([]*RuleRecord, error), result *ProcessingResult) error {
	workers := p.config.WorkerCount
	if workers <= 0 {
		workers = 1
	}

	batches := make(chan []*RuleRecord, workers)
	writeErrs := make(chan error, workers)

	var wg sync.WaitGroup
	var dbTime time.Duration
	var dbUpserts int64
	var dbMu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batches {
				if p.config.DryRun || p.config.ValidateOnly {
					continue
				}

				stored := make([]*rulestore.StoredRule, len(batch))
				for i, r := range batch {
					stored[i] = &rulestore.StoredRule{
						Original:    r.Original,
						Replacement: r.Replacement,
						IsRegex:     r.IsRegex,
						Version:     r.Version,
						Modality:    r.Modality,
					}
				}

				start := time.Now()
				batchResult, err := p.store.UpsertBatch(ctx, stored)
				dbMu.Lock()
				dbTime += time.Since(start)
				if batchResult != nil {
					dbUpserts += batchResult.Upserted
				}
				dbMu.Unlock()

				if err != nil {
					select {
					case writeErrs <- err:
					default:
					}
				}
			}
		}()
	}

	var readErr error
	for {
		select {
		case <-ctx.Done():
			readErr = ctx.Err()
		case err := <-writeErrs:
			readErr = err
		default:
		}
		if readErr != nil {
			break
		}

		batch, err := readBatch()
		if err != nil {
			readErr = fmt.Errorf("failed to read batch: %w", err)
			break
		}

		if len(batch) == 0 {
			break // End of file
		}

		result.TotalRecords += int64(len(batch))
		result.ProcessedOK += int64(len(batch))

		batches <- batch

		if p.config.ProgressReport > 0 && result.TotalRecords%int64(p.config.ProgressReport) == 0 {
			p.reportProgress(result)
		}
	}

	close(batches)
	wg.Wait()

	result.DatabaseTime = dbTime

	p.mu.Lock()
	p.stats.DatabaseWrites = dbUpserts
	p.mu.Unlock()

	if readErr != nil {
		result.Errors = append(result.Errors, readErr.Error())
		return readErr
	}

	// Surface any write failure that raced the final read
	select {
	case err := <-writeErrs:
		result.Errors = append(result.Errors, err.Error())
		return err
	default:
	}

	return nil
}

// acceptRecord validates one row and tracks duplicates. Invalid and
// duplicate rows are counted, never fatal.
func (p *Pipeline) acceptRecord(record *RuleRecord, result *ProcessingResult) bool {
	p.mu.Lock()
	p.stats.RecordsRead++
	p.mu.Unlock()

	if p.config.ValidateData && !p.validateRecord(record) {
		result.ProcessedFailed++
		p.mu.Lock()
		p.stats.RecordsInvalid++
		p.mu.Unlock()
		return false
	}

	key := record.Version + "\x00" + record.Modality + "\x00" + strings.ToUpper(record.Original)
	if _, dup := p.seen[key]; dup {
		result.Duplicates++
		if p.config.SkipDuplicates {
			return false
		}
	} else {
		p.seen[key] = struct{}{}
	}

	p.mu.Lock()
	p.stats.RecordsValid++
	p.mu.Unlock()

	return true
}

// validateRecord validates a rule record
func (p *Pipeline) validateRecord(record *RuleRecord) bool {
	if strings.TrimSpace(record.Original) == "" {
		p.logger.Debug("Invalid record: empty original")
		return false
	}

	if len(record.Original) > 10000 {
		p.logger.Debug("Invalid record: original too long", zap.Int("length", len(record.Original)))
		return false
	}

	// Scope check; punctuation rows live outside the version/modality grid
	if strings.EqualFold(record.Version, punctuationVersion) {
		record.Version = punctuationVersion
		record.Modality = string(rules.ModalityGeneral)
	} else {
		scope, err := rules.ParseScope(record.Version, record.Modality)
		if err != nil {
			p.logger.Debug("Invalid record: bad scope",
				zap.String("version", record.Version),
				zap.String("modality", record.Modality),
				zap.Error(err))
			return false
		}
		// Normalize aliases to canonical tokens before storage
		record.Version = string(scope.Version)
		record.Modality = string(scope.Modality)
	}

	if record.IsRegex {
		if _, err := p.registry.Compile(record.Original); err != nil {
			p.logger.Debug("Invalid record: regex does not compile",
				zap.String("original", record.Original),
				zap.Error(err))
			return false
		}
	}

	return true
}

// reportProgress reports current import progress
func (p *Pipeline) reportProgress(result *ProcessingResult) {
	elapsed := time.Since(p.stats.StartTime)
	rate := float64(result.TotalRecords) / elapsed.Seconds()

	p.logger.Info("Import progress",
		zap.Int64("records_processed", result.TotalRecords),
		zap.Int64("records_ok", result.ProcessedOK),
		zap.Int64("records_failed", result.ProcessedFailed),
		zap.Int64("duplicates", result.Duplicates),
		zap.Float64("rate_per_sec", rate),
		zap.Duration("elapsed", elapsed))
}

// resetStats resets import statistics
func (p *Pipeline) resetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats = &ProcessingStats{
		StartTime: time.Now(),
	}
	p.seen = make(map[string]struct{})
}

// GetStats returns current import statistics
func (p *Pipeline) GetStats() *ProcessingStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := *p.stats
	return &stats
}
