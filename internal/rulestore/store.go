package rulestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/medtext/radprep/internal/config"
)

// punctuationVersion is the reserved version under which the scope-free
// punctuation-correction rows live in the table.
const punctuationVersion = "punctuation"

const schema = `
CREATE TABLE IF NOT EXISTS replacement_rules (
	id          BIGSERIAL PRIMARY KEY,
	original    TEXT NOT NULL,
	replacement TEXT NOT NULL DEFAULT '',
	is_regex    BOOLEAN NOT NULL DEFAULT FALSE,
	version     TEXT NOT NULL,
	modality    TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (version, modality, original)
);
CREATE INDEX IF NOT EXISTS idx_replacement_rules_scope
	ON replacement_rules (version, modality, id);
`

// Store persists replacement rules in PostgreSQL
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewStore connects to the database and bootstraps the schema
func NewStore(cfg *config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	store := &Store{
		db:     db,
		logger: logger,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("Rule store initialized successfully",
		zap.String("database_url", maskDatabaseURL(cfg.URL)),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))

	return store, nil
}

// initialize checks the connection and creates the rule table when missing
func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("schema bootstrap failed: %w", err)
	}

	return nil
}

// UpsertBatch writes a batch of rules, replacing existing rows on the
// (version, modality, original) key
func (s *Store) UpsertBatch(ctx context.Context, rules []*StoredRule) (*BatchUpsertResult, error) {
	if len(rules) == 0 {
		return &BatchUpsertResult{}, nil
	}

	start := time.Now()
	result := &BatchUpsertResult{}

	valueStrings := make([]string, 0, len(rules))
	valueArgs := make([]interface{}, 0, len(rules)*5)

	for i, rule := range rules {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", i*5+1, i*5+2, i*5+3, i*5+4, i*5+5))
		valueArgs = append(valueArgs,
			rule.Original,
			rule.Replacement,
			rule.IsRegex,
			rule.Version,
			rule.Modality,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO replacement_rules (original, replacement, is_regex, version, modality)
		VALUES %s
		ON CONFLICT (version, modality, original)
		DO UPDATE SET
			replacement = EXCLUDED.replacement,
			is_regex = EXCLUDED.is_regex,
			updated_at = NOW()`,
		strings.Join(valueStrings, ","))

	res, err := s.db.ExecContext(ctx, query, valueArgs...)
	if err != nil {
		result.Failed = int64(len(rules))
		result.Errors = []error{err}
		s.logger.Error("Batch upsert failed", zap.Error(err))
		return result, fmt.Errorf("batch upsert failed: %w", err)
	}

	upserted, err := res.RowsAffected()
	if err != nil {
		s.logger.Warn("Could not get rows affected", zap.Error(err))
		upserted = int64(len(rules))
	}

	result.Upserted = upserted
	result.Failed = int64(len(rules)) - upserted
	result.Duration = time.Since(start)

	s.logger.Info("Batch upsert completed",
		zap.Int64("upserted", result.Upserted),
		zap.Int64("failed", result.Failed),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// LoadRules returns the rows for one (version, modality), ordered by id so
// later rows win the last-value-first-position dedup downstream
func (s *Store) LoadRules(ctx context.Context, version, modality string) ([]*StoredRule, error) {
	query := `
		SELECT id, original, replacement, is_regex, version, modality, created_at, updated_at
		FROM replacement_rules
		WHERE version = $1 AND modality = $2
		ORDER BY id`

	var rows []*StoredRule
	if err := s.db.SelectContext(ctx, &rows, query, version, modality); err != nil {
		s.logger.Error("Failed to load rules",
			zap.Error(err),
			zap.String("version", version),
			zap.String("modality", modality))
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	return rows, nil
}

// LoadGeneral returns the general rows for a version
func (s *Store) LoadGeneral(ctx context.Context, version string) ([]*StoredRule, error) {
	return s.LoadRules(ctx, version, "general")
}

// LoadPunctuation returns the scope-free punctuation-correction rows
func (s *Store) LoadPunctuation(ctx context.Context) ([]*StoredRule, error) {
	return s.LoadRules(ctx, punctuationVersion, "general")
}

// Count returns the total number of stored rules
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM replacement_rules"); err != nil {
		return 0, fmt.Errorf("failed to count rules: %w", err)
	}
	return count, nil
}

// GetStats returns rule table statistics
func (s *Store) GetStats(ctx context.Context) (*StoreStats, error) {
	stats := &StoreStats{ByVersion: make(map[string]int64)}

	query := `
		SELECT
			COUNT(*) as total,
			COUNT(CASE WHEN is_regex THEN 1 END) as regex_rules,
			COALESCE(MAX(updated_at), 'epoch'::timestamptz) as last_updated
		FROM replacement_rules`

	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalRules,
		&stats.RegexRules,
		&stats.LastUpdated,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get rule stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT version, COUNT(*) FROM replacement_rules GROUP BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to get per-version stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var version string
		var count int64
		if err := rows.Scan(&version, &count); err != nil {
			s.logger.Error("Failed to scan version count", zap.Error(err))
			continue
		}
		stats.ByVersion[version] = count
	}
	if err := rows.Err(); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to read per-version stats: %w", err)
	}

	return stats, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDatabaseURL masks sensitive information in database URL for logging
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
