package rulestore

import "time"

// StoredRule is one row of the replacement_rules table
type StoredRule struct {
	ID          int64     `db:"id" json:"id"`
	Original    string    `db:"original" json:"original"`
	Replacement string    `db:"replacement" json:"replacement"`
	IsRegex     bool      `db:"is_regex" json:"is_regex"`
	Version     string    `db:"version" json:"version"`
	Modality    string    `db:"modality" json:"modality"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// BatchUpsertResult summarizes one batch write
type BatchUpsertResult struct {
	Upserted int64         `json:"upserted"`
	Failed   int64         `json:"failed"`
	Duration time.Duration `json:"duration"`
	Errors   []error       `json:"-"`
}

// StoreStats reports rule table counts per scope
type StoreStats struct {
	TotalRules  int64            `json:"total_rules"`
	RegexRules  int64            `json:"regex_rules"`
	ByVersion   map[string]int64 `json:"by_version"`
	LastUpdated time.Time        `json:"last_updated"`
}
