package export

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/rpattn/placement-timeline/internal/domain"
)

// Snapshotter provides a consistent copy of the served dataset.
type Snapshotter interface {
	Snapshot() []domain.Company
}

type Handler struct {
	source Snapshotter
	json   JSONOptions
}

func NewHTTPHandler(source Snapshotter, opts JSONOptions) http.Handler {
	return &Handler{source: source, json: opts}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch {
	case strings.HasSuffix(r.URL.Path, ".xlsx"):
		h.handleWorkbook(w)
	case strings.HasSuffix(r.URL.Path, ".json"):
		h.handleJSON(w)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) handleWorkbook(w http.ResponseWriter) {
	var buf bytes.Buffer
	if err := WriteTimelineWorkbook(&buf, h.source.Snapshot()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="timeline.xlsx"`)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleJSON(w http.ResponseWriter) {
	payload, err := EncodeCompanies(h.source.Snapshot(), h.json)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="merged_company_data.json"`)
	_, _ = w.Write(payload)
}
