package preprocess

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dlclark/regexp2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/medtext/radprep/internal/expand"
	"github.com/medtext/radprep/internal/pattern"
	"github.com/medtext/radprep/internal/replace"
	"github.com/medtext/radprep/internal/rules"
	"github.com/medtext/radprep/internal/sentence"
)

// DefaultCacheSize bounds the memoization cache when no capacity is given.
const DefaultCacheSize = 1000

// Config carries the engine's tunables.
type Config struct {
	CacheEnabled      bool   `yaml:"cache_enabled" mapstructure:"cache_enabled"`
	CacheSize         int    `yaml:"cache_size" mapstructure:"cache_size"`
	SentencePattern   string `yaml:"sentence_pattern" mapstructure:"sentence_pattern"`
	StopPattern       string `yaml:"stop_pattern" mapstructure:"stop_pattern"`
	SpineWordsPattern string `yaml:"spine_words_pattern" mapstructure:"spine_words_pattern"`
}

// cacheKey memoizes full results per (text, version, modality).
type cacheKey struct {
	text  string
	scope rules.Scope
}

// ScopeStats describes one built scope for Stats.
type ScopeStats struct {
	Scope        string `json:"scope"`
	TotalRules   int    `json:"total_rules"`
	LiteralRules int    `json:"literal_rules"`
	RegexRules   int    `json:"regex_rules"`
	LoadErrors   int    `json:"load_errors"`
}

// Stats is the engine's observable state.
type Stats struct {
	CacheEnabled  bool         `json:"cache_enabled"`
	CacheHits     int64        `json:"cache_hits"`
	CacheMisses   int64        `json:"cache_misses"`
	CacheSize     int          `json:"cache_size"`
	CacheCapacity int          `json:"cache_capacity"`
	Scopes        []ScopeStats `json:"scopes"`
}

// Engine is the dependency-injected orchestrator and the module's entry
// point. Per-scope pipelines are built lazily and retained; results are
// memoized in a bounded LRU when caching is enabled.
type Engine struct {
	cfg      Config
	source   rules.Source
	registry *pattern.Registry
	log      *zap.Logger

	splitter   *sentence.Splitter
	expander   *expand.Expander
	spineWords *regexp2.Regexp
	punct      *replace.Replacer

	mu        sync.RWMutex
	pipelines map[rules.Scope]*Pipeline
	loadErrs  map[rules.Scope]int

	cache  *lru.Cache[cacheKey, []Pair]
	hits   atomic.Int64
	misses atomic.Int64
}

// New builds an engine: it compiles the sentence patterns, the optional
// spine-words pattern, and the punctuation-correction rule set (loaded once;
// rebuilt only with the engine). Rule rows that fail to compile are counted
// and logged, never fatal.
func New(cfg Config, source rules.Source, registry *pattern.Registry, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	splitter, err := sentence.New(cfg.SentencePattern, cfg.StopPattern)
	if err != nil {
		return nil, err
	}

	var spineWords *regexp2.Regexp
	if cfg.SpineWordsPattern != "" {
		spineWords, err = registry.Compile(cfg.SpineWordsPattern)
		if err != nil {
			return nil, fmt.Errorf("spine words pattern: %w", err)
		}
	}

	e := &Engine{
		cfg:       cfg,
		source:    source,
		registry:  registry,
		log:       log,
		splitter:  splitter,
		expander:  expand.New(registry, log.Named("expand")),
		pipelines: make(map[rules.Scope]*Pipeline),
		loadErrs:  make(map[rules.Scope]int),
	}
	e.spineWords = spineWords

	punctRows, err := source.Punctuation(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load punctuation rules: %w", err)
	}
	if len(punctRows) > 0 {
		rs, errs := rules.Compile(rules.DefaultScope, punctRows, registry, log.Named("punctuation"))
		e.punct = replace.New(rs, registry, log.Named("punctuation"))
		log.Info("punctuation correction enabled",
			zap.Int("rules", rs.Len()), zap.Int("load_errors", len(errs)))
	}

	if cfg.CacheEnabled {
		size := cfg.CacheSize
		if size <= 0 {
			size = DefaultCacheSize
		}
		cache, err := lru.New[cacheKey, []Pair](size)
		if err != nil {
			return nil, fmt.Errorf("create result cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// Process validates the scope, runs the pipeline for it, and memoizes the
// result when caching is enabled. Empty input yields an empty result, never
// an error.
func (e *Engine) Process(ctx context.Context, text string, scope rules.Scope) ([]Pair, error) {
	if err := rules.Validate(scope.Version, scope.Modality); err != nil {
		return nil, err
	}
	if text == "" {
		return []Pair{}, nil
	}

	key := cacheKey{text: text, scope: scope}
	if e.cache != nil {
		if pairs, ok := e.cache.Get(key); ok {
			e.hits.Add(1)
			return pairs, nil
		}
	}

	p, err := e.pipeline(ctx, scope)
	if err != nil {
		return nil, err
	}
	pairs := p.Run(text)
	if pairs == nil {
		pairs = []Pair{}
	}

	// Count the miss only once a result was produced, so hits+misses
	// reconciles with served responses when a scope's rule load fails.
	if e.cache != nil {
		e.misses.Add(1)
		e.cache.Add(key, pairs)
	}
	return pairs, nil
}

// pipeline returns the scope's pipeline, building it on first use under a
// double-checked lock.
func (e *Engine) pipeline(ctx context.Context, scope rules.Scope) (*Pipeline, error) {
	e.mu.RLock()
	p, ok := e.pipelines[scope]
	e.mu.RUnlock()
	if ok {
		return p, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.pipelines[scope]; ok {
		return p, nil
	}

	rep, errCount, err := e.buildReplacer(ctx, scope)
	if err != nil {
		return nil, err
	}
	p = newPipeline(scope, rep, e.punct, e.expander, e.splitter, e.spineWords, e.log.Named("pipeline"))
	e.pipelines[scope] = p
	e.loadErrs[scope] = errCount
	e.log.Info("pipeline built",
		zap.String("scope", scope.String()),
		zap.Int("rules", rep.RuleSet().Len()),
		zap.Int("load_errors", errCount))
	return p, nil
}

func (e *Engine) buildReplacer(ctx context.Context, scope rules.Scope) (*replace.Replacer, int, error) {
	rows, err := e.source.Load(ctx, scope.Version, scope.Modality, true)
	if err != nil {
		return nil, 0, fmt.Errorf("load rules for %s: %w", scope, err)
	}
	rs, errs := rules.Compile(scope, rows, e.registry, e.log.Named("rules"))
	return replace.New(rs, e.registry, e.log.Named("replace")), len(errs), nil
}

// Reload freshly loads every built scope's rules, swaps the new sets in
// atomically, and purges the memoization cache wholesale.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for scope, p := range e.pipelines {
		rep, errCount, err := e.buildReplacer(ctx, scope)
		if err != nil {
			return fmt.Errorf("reload %s: %w", scope, err)
		}
		p.swap(rep)
		e.loadErrs[scope] = errCount
		e.log.Info("rules reloaded",
			zap.String("scope", scope.String()),
			zap.Int("rules", rep.RuleSet().Len()),
			zap.Int("load_errors", errCount))
	}
	if e.cache != nil {
		e.cache.Purge()
	}
	return nil
}

// RuleInfo reports rule counts for a scope, building its pipeline if needed.
func (e *Engine) RuleInfo(ctx context.Context, scope rules.Scope) (replace.RuleInfo, error) {
	if err := rules.Validate(scope.Version, scope.Modality); err != nil {
		return replace.RuleInfo{}, err
	}
	p, err := e.pipeline(ctx, scope)
	if err != nil {
		return replace.RuleInfo{}, err
	}
	return p.replacer().Info(), nil
}

// Stats exposes cache counters and per-scope rule counts.
func (e *Engine) Stats() Stats {
	s := Stats{
		CacheEnabled: e.cache != nil,
		CacheHits:    e.hits.Load(),
		CacheMisses:  e.misses.Load(),
	}
	if e.cache != nil {
		s.CacheSize = e.cache.Len()
		s.CacheCapacity = e.cfg.CacheSize
		if s.CacheCapacity <= 0 {
			s.CacheCapacity = DefaultCacheSize
		}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	for scope, p := range e.pipelines {
		info := p.replacer().Info()
		s.Scopes = append(s.Scopes, ScopeStats{
			Scope:        scope.String(),
			TotalRules:   info.TotalRules,
			LiteralRules: info.LiteralRules,
			RegexRules:   info.RegexRules,
			LoadErrors:   e.loadErrs[scope],
		})
	}
	return s
}

// RuleCounts returns total rule counts per built scope, for reload events.
func (e *Engine) RuleCounts() map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	counts := make(map[string]int, len(e.pipelines))
	for scope, p := range e.pipelines {
		counts[scope.String()] = p.replacer().RuleSet().Len()
	}
	return counts
}
