// Package api serves the merged dataset to the dashboard front-end.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/placement-timeline/internal/domain"
	"github.com/rpattn/placement-timeline/internal/export"
	"github.com/rpattn/placement-timeline/internal/ingestion"
	"github.com/rpattn/placement-timeline/internal/merge"
	"github.com/rpattn/placement-timeline/internal/metrics"
	"github.com/rpattn/placement-timeline/internal/middleware"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// RunLister pages through the merge run log.
type RunLister interface {
	ListRuns(ctx context.Context, limit, offset int) ([]domain.MergeRun, error)
}

// Dependencies wires the router.
type Dependencies struct {
	Dataset        *merge.Dataset
	Runs           RunLister
	Ingest         *ingestion.Service
	Metrics        *metrics.Recorder
	JSON           export.JSONOptions
	AllowedOrigins []string
	Logger         *logrus.Logger
}

// NewRouter builds the HTTP handler for serve mode.
func NewRouter(deps Dependencies) http.Handler {
	mux := http.NewServeMux()
	h := &handlers{dataset: deps.Dataset, runs: deps.Runs, json: deps.JSON}

	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /companies", h.listCompanies)
	mux.HandleFunc("GET /companies/{name}/timeline", h.companyTimeline)
	if deps.Runs != nil {
		mux.HandleFunc("GET /runs", h.listRuns)
	}
	mux.Handle("POST /events", ingestion.NewHTTPHandler(deps.Ingest, deps.Dataset))

	exports := export.NewHTTPHandler(deps.Dataset, deps.JSON)
	mux.Handle("GET /export.xlsx", exports)
	mux.Handle("GET /export.json", exports)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
	})

	return corsHandler.Handler(middleware.LoggingMiddleware(deps.Logger)(mux))
}

type handlers struct {
	dataset *merge.Dataset
	runs    RunLister
	json    export.JSONOptions
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"updated_at": h.dataset.UpdatedAt().Format(time.RFC3339),
	})
}

func (h *handlers) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies := h.dataset.Snapshot()
	if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q"))); q != "" {
		filtered := companies[:0]
		for _, c := range companies {
			if strings.Contains(strings.ToLower(c.Name), q) {
				filtered = append(filtered, c)
			}
		}
		companies = filtered
	}

	payload, err := export.EncodeCompanies(companies, h.json)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

// listRuns serves the run log; limit and offset default to 50 and 0.
func (h *handlers) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	runs, err := h.runs.ListRuns(r.Context(), limit, offset)
	switch {
	case errors.Is(err, merge.ErrNoStore):
		http.Error(w, "run log requires a database", http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func queryInt(r *http.Request, key string) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, value)
	}
	return n, nil
}

// companyTimeline merges the timelines of every profile of one company, newest first.
// Profiles sharing a name usually hold the same events, so entries are deduplicated by id.
func (h *handlers) companyTimeline(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	profiles := h.dataset.Profiles(name)
	if len(profiles) == 0 {
		http.Error(w, "company not found", http.StatusNotFound)
		return
	}

	seen := make(map[int64]struct{})
	events := []domain.TimelineEvent{}
	roles := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if role := p.FieldString("profile"); role != "" {
			roles = append(roles, role)
		}
		for _, ev := range p.Timeline {
			if !ev.HasID() {
				events = append(events, ev)
				continue
			}
			if _, ok := seen[ev.ID]; ok {
				continue
			}
			seen[ev.ID] = struct{}{}
			events = append(events, ev)
		}
	}
	domain.SortTimelineDesc(events, domain.SortModeParsed)

	writeJSON(w, http.StatusOK, timelineResponse{
		CompanyName: profiles[0].Name,
		Profiles:    roles,
		Events:      events,
	})
}

type timelineResponse struct {
	CompanyName string                 `json:"company_name"`
	Profiles    []string               `json:"profiles"`
	Events      []domain.TimelineEvent `json:"timeline_events"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
