package cache

import (
	"time"

	"github.com/medtext/radprep/internal/preprocess"
)

// CachedResult is the value stored per (scope, text) key
type CachedResult struct {
	Pairs    []preprocess.Pair `json:"pairs"`
	CachedAt time.Time         `json:"cached_at"`
	TTL      int64             `json:"ttl_seconds"`
}

// Stats reports result cache performance
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
	TotalKeys   int64   `json:"total_keys"`
	MemoryUsage int64   `json:"memory_usage_bytes"`
}
