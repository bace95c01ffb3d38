// Package api exposes the compatibility engine over HTTP. The catalog
// service and the admin remediation UI are the expected callers.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rigforge/compat-cli/internal/audit"
	"github.com/rigforge/compat-cli/internal/catalog"
	"github.com/rigforge/compat-cli/internal/model"
	"github.com/rigforge/compat-cli/internal/monitoring"
	"github.com/rigforge/compat-cli/internal/pipeline"
	"github.com/rigforge/compat-cli/internal/resolver"
	"github.com/rigforge/compat-cli/internal/store"
)

// Server bundles the engine components behind the HTTP surface.
type Server struct {
	store     store.Store
	auditor   *audit.Auditor
	resolver  *resolver.Resolver
	pipeline  *pipeline.Pipeline
	collector *monitoring.Collector
}

func NewServer(st store.Store, auditor *audit.Auditor, res *resolver.Resolver, pl *pipeline.Pipeline, col *monitoring.Collector) *Server {
	return &Server{
		store:     st,
		auditor:   auditor,
		resolver:  res,
		pipeline:  pl,
		collector: col,
	}
}

// Router builds the chi router with the full API surface.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/compat", func(r chi.Router) {
		r.Get("/missing/count", s.handleMissingCount)
		r.Get("/missing", s.handleMissingList)
		r.Get("/{productID}", s.handleGetRecord)
		r.Patch("/{productID}", s.handlePatchRecord)
		r.Delete("/{productID}", s.handleDeleteRecord)
	})

	r.Get("/compatible", s.handleResolve)
	r.Post("/extract/{productID}", s.handleExtractOne)
	r.Get("/runs", s.handleListRuns)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.CountByKind(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap, err := s.collector.Collect(r.Context(), queryInt(r, "lookback_runs", 0))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleMissingCount(w http.ResponseWriter, r *http.Request) {
	summary, err := s.auditor.Count(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"cpu":         summary.ByKind[model.KindCPU],
		"motherboard": summary.ByKind[model.KindMotherboard],
		"ram":         summary.ByKind[model.KindRAM],
		"total":       summary.Total,
	})
}

func (s *Server) handleMissingList(w http.ResponseWriter, r *http.Request) {
	kind := model.ComponentKind(r.URL.Query().Get("component_type"))
	if kind != "" && !kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown component type")
		return
	}
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := queryInt(r, "page_size", 50)
	if pageSize < 1 {
		pageSize = 50
	}
	records, err := s.auditor.ListIncomplete(r.Context(), kind, pageSize, (page-1)*pageSize)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page":      page,
		"page_size": pageSize,
		"records":   records,
	})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetRecord(r.Context(), chi.URLParam(r, "productID"))
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no compatibility record")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePatchRecord(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "no fields to apply")
		return
	}

	rec, err := s.store.ApplyManualOverride(r.Context(), chi.URLParam(r, "productID"), fields)
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no compatibility record")
		return
	}
	if eris.Is(err, model.ErrInvalidPatch) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteRecord(r.Context(), chi.URLParam(r, "productID"))
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no compatibility record")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	pivotID := r.URL.Query().Get("cpu_id")
	if pivotID == "" {
		pivotID = r.URL.Query().Get("motherboard_id")
	}
	if pivotID == "" {
		writeError(w, http.StatusBadRequest, "cpu_id or motherboard_id is required")
		return
	}

	mode, err := resolver.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.resolver.Resolve(r.Context(), pivotID, mode)
	if eris.Is(err, resolver.ErrCannotResolve) {
		// Distinct from an empty result: the pivot itself lacks the data
		// to anchor a resolution.
		writeError(w, http.StatusNotFound, "pivot has no usable record")
		return
	}
	if eris.Is(err, resolver.ErrUnsupportedPivot) {
		writeError(w, http.StatusBadRequest, "pivot kind cannot anchor a resolution")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExtractOne(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	force := r.URL.Query().Get("force") == "true"

	rec, applied, err := s.pipeline.RunProduct(r.Context(), productID, force)
	if eris.Is(err, catalog.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, "catalog has no such product")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applied": applied,
		"record":  rec,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
