// Package api exposes the advisor over HTTP and MCP.
package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/okofler/jobpilot/internal/catalog"
	"github.com/okofler/jobpilot/internal/extract"
	"github.com/okofler/jobpilot/internal/logger"
	"github.com/okofler/jobpilot/internal/recommend"
	"github.com/okofler/jobpilot/internal/storage"
)

const maxRequestBodySize = 10 << 20 // 10MB, PDF uploads included

// AppDeps carries everything the HTTP handlers need.
type AppDeps struct {
	Advisor *recommend.Advisor
	Catalog *catalog.Cache
	Store   *storage.Store
	Token   string
	Logger  *zap.Logger
}

// NewHandler builds the REST API router. /health stays unauthenticated; when
// Token is empty, auth is disabled entirely.
func NewHandler(deps AppDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Post("/analyze", handleAnalyze(deps))
		r.Get("/catalog/artifacts", handleCatalogArtifacts(deps))
		r.Post("/catalog/refresh", handleCatalogRefresh(deps))
		r.Get("/catalog/sources", handleCatalogSources(deps))
		r.Get("/analyses", handleListAnalyses(deps))
		r.Get("/analyses/{id}", handleGetAnalysis(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// AnalyzeRequest is the POST /analyze body. Exactly one of text or pdfBase64
// carries the posting.
type AnalyzeRequest struct {
	JobTitle            string `json:"jobTitle"`
	Text                string `json:"text"`
	PDFBase64           string `json:"pdfBase64"`
	MaxResults          int    `json:"maxResults"`
	MinScore            int    `json:"minScore"`
	PreferredComplexity string `json:"preferredComplexity"`
}

func handleAnalyze(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		text := req.Text
		if text == "" && req.PDFBase64 != "" {
			raw, err := base64.StdEncoding.DecodeString(req.PDFBase64)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 pdf content")
				return
			}
			text, err = extract.FromPDFBytes(raw)
			if err != nil {
				httpError(w, http.StatusUnprocessableEntity, "invalid_request_error", "failed to read pdf: %v", err)
				return
			}
		}
		if strings.TrimSpace(text) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "one of text or pdfBase64 is required")
			return
		}

		deps.Logger.Debug("analyze request",
			zap.String("jobTitle", req.JobTitle),
			zap.String("posting", logger.TruncateForLog(text, 200)))

		analysis := deps.Advisor.Analyze(r.Context(), recommend.Request{
			JobTitle:            req.JobTitle,
			Text:                text,
			MaxResults:          req.MaxResults,
			MinScore:            req.MinScore,
			PreferredComplexity: catalog.Tier(req.PreferredComplexity),
		})

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(analysis)
	}
}

func handleCatalogArtifacts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		params := catalog.SearchParams{
			Query:      q.Get("q"),
			Source:     q.Get("source"),
			Trigger:    catalog.Trigger(q.Get("trigger")),
			Complexity: catalog.Tier(q.Get("complexity")),
			Category:   q.Get("category"),
			Limit:      parseIntParam(r, "limit", 20, 100),
			Offset:     parseIntParam(r, "offset", 0, 0),
		}
		if raw := q.Get("integrations"); raw != "" {
			for _, s := range strings.Split(raw, ",") {
				if s = strings.TrimSpace(s); s != "" {
					params.Integrations = append(params.Integrations, s)
				}
			}
		}
		if raw := q.Get("active"); raw != "" {
			active, err := strconv.ParseBool(raw)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid active flag: %q", raw)
				return
			}
			params.Active = &active
		}

		result := deps.Catalog.Search(r.Context(), params)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func handleCatalogRefresh(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var results []catalog.RefreshResult
		if source := r.URL.Query().Get("source"); source != "" {
			results = []catalog.RefreshResult{deps.Catalog.Refresh(r.Context(), source)}
		} else {
			results = deps.Catalog.RefreshAll(r.Context())
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}
}

func handleCatalogSources(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"sources": deps.Catalog.Sources()})
	}
}

// analysisSummary is the list-view projection of an analysis record; the
// payload is only served by the detail endpoint.
type analysisSummary struct {
	ID        string  `json:"id"`
	CreatedAt string  `json:"createdAt"`
	JobTitle  string  `json:"jobTitle,omitempty"`
	TaskCount int     `json:"taskCount"`
	AvgScore  float64 `json:"avgScore"`
}

func handleListAnalyses(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		records, err := deps.Store.ListAnalyses(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list analyses: %v", err)
			return
		}

		summaries := make([]analysisSummary, 0, len(records))
		for _, rec := range records {
			summaries = append(summaries, analysisSummary{
				ID:        rec.ID,
				CreatedAt: rec.CreatedAt.Format(time.RFC3339),
				JobTitle:  rec.JobTitle,
				TaskCount: rec.TaskCount,
				AvgScore:  rec.AvgScore,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summaries)
	}
}

func handleGetAnalysis(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		rec, err := deps.Store.GetAnalysis(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "analysis not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get analysis: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(rec.PayloadJSON))
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
