// Package server provides the HTTP front-end over the rule engine.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"snitchgen/internal/cache"
	"snitchgen/internal/category"
	"snitchgen/internal/lsrules"
	"snitchgen/internal/pattern"
	"snitchgen/internal/ruleset"
)

// Server serves the category index and generated rulesets. The store
// it reads is an immutable snapshot; Swap replaces it atomically when
// the category directory is reloaded.
type Server struct {
	mu          sync.RWMutex
	store       *category.Store
	resultCache *cache.ResultCache
	logger      *log.Logger
}

// New creates a Server over an already-loaded store.
func New(store *category.Store, rc *cache.ResultCache, logger *log.Logger) *Server {
	return &Server{
		store:       store,
		resultCache: rc,
		logger:      logger,
	}
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/categories", s.handleCategories)
	mux.HandleFunc("/rules", s.handleRules)
}

// Swap replaces the store snapshot. In-flight requests keep the
// snapshot they started with.
func (s *Server) Swap(store *category.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = store
}

func (s *Server) currentStore() *category.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/categories", http.StatusFound)
}

// categoryInfo is the index entry exposed for UI consumption.
type categoryInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Impact      string `json:"impact"`
	RuleCount   int    `json:"rule_count"`
}

// handleCategories returns the JSON index of loaded categories.
func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	store := s.currentStore()

	index := make([]categoryInfo, 0, store.Len())
	for _, cat := range store.Categories() {
		index = append(index, categoryInfo{
			ID:          cat.ID,
			Name:        cat.Name,
			Description: cat.Description,
			Severity:    cat.Severity.String(),
			Impact:      cat.Impact,
			RuleCount:   len(cat.Rules),
		})
	}

	body, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to build index: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=1800")
	_, _ = w.Write(body)
}

// handleRules generates a .lsrules document from query parameters:
// mode, severity, include, exclude, all, name. Include and exclude
// accept repeated parameters or comma-separated values.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mode, err := ruleset.ParseMode(valueOr(q.Get("mode"), "block"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	severity, err := category.ParseSeverity(valueOr(q.Get("severity"), "recommended"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params := ruleset.Params{
		Mode:     mode,
		Severity: severity,
		Include:  splitPatterns(q["include"]),
		Exclude:  splitPatterns(q["exclude"]),
		All:      q.Get("all") == "1" || q.Get("all") == "true",
	}
	name := q.Get("name")

	store := s.currentStore()
	fingerprint := store.Fingerprint()
	key := cacheKey(params, name)

	if body, ok := s.resultCache.Get(key, fingerprint); ok {
		s.logger.Debug("cache hit", "key", key, "fingerprint", fingerprint)
		writeRuleset(w, body)
		return
	}

	selected, warnings, err := ruleset.Select(store, params)
	if err != nil {
		var badPattern *pattern.BadPatternError
		if errors.As(err, &badPattern) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to select categories: %v", err), http.StatusInternalServerError)
		return
	}
	for _, warning := range warnings {
		s.logger.Warn(warning)
	}

	directives := ruleset.Assemble(selected, params.Mode)
	output := lsrules.Render(directives, lsrules.Params{
		Name:     name,
		Mode:     params.Mode,
		Severity: params.Severity,
		Selected: ruleset.SelectedIDs(selected),
	})

	body, err := output.JSON()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to render ruleset: %v", err), http.StatusInternalServerError)
		return
	}

	s.resultCache.Set(key, body, fingerprint)
	s.logger.Info("generated ruleset",
		"mode", params.Mode, "severity", params.Severity,
		"categories", len(selected), "rules", len(output.Rules))

	writeRuleset(w, body)
}

func writeRuleset(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=1800")
	_, _ = w.Write(body)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func splitPatterns(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func cacheKey(params ruleset.Params, name string) string {
	return strings.Join([]string{
		params.Mode.String(),
		params.Severity.String(),
		fmt.Sprintf("all=%t", params.All),
		"inc=" + strings.Join(params.Include, ","),
		"exc=" + strings.Join(params.Exclude, ","),
		"name=" + name,
	}, ";")
}

// LoggingMiddleware logs all HTTP requests.
func LoggingMiddleware(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
