package etl

import (
	"time"
)

// RuleRecord represents a single rule row from the input dataset
type RuleRecord struct {
	Original    string `csv:"original" parquet:"original" json:"original"`
	Replacement string `csv:"replacement" parquet:"replacement" json:"replacement"`
	IsRegex     bool   `csv:"is_regex" parquet:"is_regex" json:"is_regex"`
	Version     string `csv:"version" parquet:"version" json:"version"`
	Modality    string `csv:"modality" parquet:"modality" json:"modality"`
}

// ProcessingResult represents the result of importing a dataset
type ProcessingResult struct {
	TotalRecords    int64         `json:"total_records"`
	ProcessedOK     int64         `json:"processed_ok"`
	ProcessedFailed int64         `json:"processed_failed"`
	Duplicates      int64         `json:"duplicates"`
	Duration        time.Duration `json:"duration"`
	DatabaseTime    time.Duration `json:"database_time"`
	Errors          []string      `json:"errors,omitempty"`
}

// Config contains rule importer configuration
type Config struct {
	BatchSize      int  `yaml:"batch_size" mapstructure:"batch_size"`           // 500
	WorkerCount    int  `yaml:"worker_count" mapstructure:"worker_count"`       // 4
	SkipDuplicates bool `yaml:"skip_duplicates" mapstructure:"skip_duplicates"` // true
	ValidateData   bool `yaml:"validate_data" mapstructure:"validate_data"`     // true
	DryRun         bool `yaml:"dry_run" mapstructure:"dry_run"`                 // false
	ValidateOnly   bool `yaml:"validate_only" mapstructure:"validate_only"`     // false
	ProgressReport int  `yaml:"progress_report" mapstructure:"progress_report"` // 1000
}

// ValidationError represents a data validation error
type ValidationError struct {
	Row     int64  `json:"row"`
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// ProcessingStats tracks real-time import statistics
type ProcessingStats struct {
	StartTime      time.Time `json:"start_time"`
	RecordsRead    int64     `json:"records_read"`
	RecordsValid   int64     `json:"records_valid"`
	RecordsInvalid int64     `json:"records_invalid"`
	DatabaseWrites int64     `json:"database_writes"`
	CurrentBatch   int64     `json:"current_batch"`
	ProcessingRate float64   `json:"processing_rate"` // records per second
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
)

// DetectFileFormat detects file format from extension
func DetectFileFormat(filename string) FileFormat {
	switch {
	case len(filename) >= 4 && filename[len(filename)-4:] == ".csv":
		return FormatCSV
	case len(filename) >= 8 && filename[len(filename)-8:] == ".parquet":
		return FormatParquet
	case len(filename) >= 5 && filename[len(filename)-5:] == ".json":
		return FormatJSON
	default:
		return FormatCSV // Default to CSV
	}
}
