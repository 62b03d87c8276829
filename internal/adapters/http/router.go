package httpadapter

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/harborline/catalog-assistant/internal/config"
	"github.com/harborline/catalog-assistant/internal/core/domain"
	"github.com/harborline/catalog-assistant/internal/core/ports"
	"github.com/harborline/catalog-assistant/internal/observability/metrics"
)

type Router struct {
	chat     ports.ChatService
	searcher ports.ProductSearcher
	stats    ports.StatsProvider
	cfg      config.Config
	metrics  *metrics.HTTPServerMetrics
	log      *slog.Logger
}

func NewRouter(
	chat ports.ChatService,
	searcher ports.ProductSearcher,
	stats ports.StatsProvider,
	cfg config.Config,
	m *metrics.HTTPServerMetrics,
	log *slog.Logger,
) *Router {
	return &Router{
		chat:     chat,
		searcher: searcher,
		stats:    stats,
		cfg:      cfg,
		metrics:  m,
		log:      log,
	}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/api/chat/stream", rt.chatStream)
	api.HandleFunc("/api/search", rt.search)
	api.HandleFunc("/api/stats", rt.catalogStats)
	api.HandleFunc("/api/verify-password", rt.verifyPassword)
	api.HandleFunc("/api/config", rt.clientConfig)

	var handler http.Handler = api
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxConcurrent, time.Duration(rt.cfg.APIEnqueueWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)

	root := http.NewServeMux()
	root.Handle("/api/", handler)
	root.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		root.Handle("/metrics", rt.metrics.Handler())
	}
	return root
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query      string                    `json:"query"`
		History    []domain.ConversationTurn `json:"history"`
		MatchCount int                       `json:"match_count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}
	matchCount := req.MatchCount
	if matchCount <= 0 {
		matchCount = rt.cfg.MatchCount
	}

	results, err := rt.searcher.SearchProducts(r.Context(), req.Query, req.History, matchCount)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

func (rt *Router) catalogStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	stats, err := rt.stats.Stats(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) verifyPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(rt.cfg.SharedPassword)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]bool{"valid": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// clientConfig exposes the non-secret settings the browser client needs.
func (rt *Router) clientConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chat_model":         rt.cfg.ChatModel,
		"match_count":        rt.cfg.MatchCount,
		"datasheet_base_url": rt.cfg.DatasheetBaseURL,
		"request_deadline_s": rt.cfg.RequestDeadlineSeconds,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
