package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/medtext/radprep/internal/events"
	"github.com/medtext/radprep/internal/preprocess"
	"github.com/medtext/radprep/internal/rules"
)

// PreprocessRequest is the body of POST /v1/preprocess
type PreprocessRequest struct {
	Text     string `json:"text"`
	Version  string `json:"version,omitempty"`
	Modality string `json:"modality,omitempty"`
}

// PreprocessResponse carries the ordered sentence pairs for one request
type PreprocessResponse struct {
	Version      string            `json:"version"`
	Modality     string            `json:"modality"`
	Pairs        []preprocess.Pair `json:"pairs"`
	Count        int               `json:"count"`
	CacheHit     bool              `json:"cache_hit"`
	ProcessingMS float64           `json:"processing_ms"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handlePreprocess normalizes one report text
func (s *Server) handlePreprocess(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := getRequestID(r.Context())

	var req PreprocessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	scope, err := rules.ParseScope(req.Version, req.Modality)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Distributed cache first, then the engine (which has its own
	// in-process memoization)
	cacheHit := false
	var pairs []preprocess.Pair
	if s.results != nil && req.Text != "" {
		if cached, _ := s.results.Get(r.Context(), req.Text, scope); cached != nil {
			pairs = cached
			cacheHit = true
		}
	}

	if !cacheHit {
		pairs, err = s.engine.Process(r.Context(), req.Text, scope)
		if err != nil {
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if s.results != nil && req.Text != "" {
			if err := s.results.Set(r.Context(), req.Text, scope, pairs); err != nil {
				s.logger.WithRequestID(requestID).Warn("Result cache write failed", zap.Error(err))
			}
		}
	}

	if pairs == nil {
		pairs = []preprocess.Pair{}
	}

	processingMS := float64(time.Since(start).Nanoseconds()) / 1e6

	s.hub.BroadcastEvent(events.Event{
		Type:      events.EventTypePreprocess,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: events.PreprocessEvent{
			RequestID:     requestID,
			Version:       string(scope.Version),
			Modality:      string(scope.Modality),
			ClientIP:      getClientIP(r),
			InputLength:   len(req.Text),
			SentenceCount: len(pairs),
			CacheHit:      cacheHit,
			ProcessingMS:  processingMS,
		},
	})

	s.writeJSON(w, http.StatusOK, PreprocessResponse{
		Version:      string(scope.Version),
		Modality:     string(scope.Modality),
		Pairs:        pairs,
		Count:        len(pairs),
		CacheHit:     cacheHit,
		ProcessingMS: processingMS,
	})
}

// handleRuleInfo reports the compiled rule table for a scope
func (s *Server) handleRuleInfo(w http.ResponseWriter, r *http.Request) {
	scope, err := rules.ParseScope(r.URL.Query().Get("version"), r.URL.Query().Get("modality"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.engine.RuleInfo(r.Context(), scope)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, info)
}

// handleReload rebuilds every built scope from the rule source and purges
// both cache tiers
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := getRequestID(r.Context())

	if err := s.engine.Reload(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("reload failed: %v", err))
		return
	}

	if s.results != nil {
		if err := s.results.Clear(r.Context()); err != nil {
			s.logger.WithRequestID(requestID).Warn("Result cache clear failed", zap.Error(err))
		}
	}

	counts := s.engine.RuleCounts()
	scopes := make([]string, 0, len(counts))
	loadErrors := 0
	for scope := range counts {
		scopes = append(scopes, scope)
	}
	for _, sc := range s.engine.Stats().Scopes {
		loadErrors += sc.LoadErrors
	}

	durationMS := float64(time.Since(start).Nanoseconds()) / 1e6

	s.hub.BroadcastEvent(events.Event{
		Type:      events.EventTypeRulesReload,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: events.ReloadEvent{
			RequestID:  requestID,
			Scopes:     scopes,
			RuleCounts: counts,
			LoadErrors: loadErrors,
			DurationMS: durationMS,
		},
	})

	s.logger.WithRequestID(requestID).Info("Rules reloaded",
		zap.Int("scopes", len(scopes)),
		zap.Float64("duration_ms", durationMS))

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "reloaded",
		"scopes":      scopes,
		"rule_counts": counts,
		"duration_ms": durationMS,
	})
}

// StatsResponse aggregates engine, hub, and cache statistics
type StatsResponse struct {
	Engine    preprocess.Stats `json:"engine"`
	Uptime    string           `json:"uptime"`
	Clients   int64            `json:"connected_clients"`
	Broadcast int64            `json:"broadcast_events"`
	Cache     interface{}      `json:"result_cache,omitempty"`
	Memory    string           `json:"memory_usage"`
}

// handleStats reports engine, hub, and result cache statistics
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	hubStats := s.hub.GetStats()

	resp := StatsResponse{
		Engine:    s.engine.Stats(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Clients:   hubStats.ActiveConnections,
		Broadcast: hubStats.TotalBroadcasts,
		Memory:    memoryUsage(),
	}

	if s.results != nil {
		if cacheStats, err := s.results.GetStats(r.Context()); err == nil {
			resp.Cache = cacheStats
		} else {
			s.logger.Warn("Result cache stats failed", zap.Error(err))
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// memoryUsage formats the current heap allocation
func memoryUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return fmt.Sprintf("%.1f MB", float64(m.Alloc)/1024/1024)
}
