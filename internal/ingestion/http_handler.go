package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/rpattn/placement-timeline/internal/domain"
)

// EventApplier merges an uploaded event batch into the served dataset.
type EventApplier interface {
	ApplyEvents(ctx context.Context, source string, events []domain.RawEvent) (domain.MergeSummary, error)
}

// Handler exposes event batch uploads as an HTTP endpoint.
type Handler struct {
	service *Service
	applier EventApplier
}

// NewHTTPHandler wraps the service with a POST endpoint.
func NewHTTPHandler(service *Service, applier EventApplier) http.Handler {
	return &Handler{service: service, applier: applier}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fileName, data, err := readUpload(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	events, err := h.service.ReadEvents(fileName, bytes.NewReader(data))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := h.applier.ApplyEvents(r.Context(), fileName, events)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// readUpload accepts either a multipart form with a "file" part or a raw JSON/YAML body.
func readUpload(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return "", nil, fmt.Errorf("invalid form data: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("file required: %v", err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read file: %v", err)
		}
		return header.Filename, data, nil
	}

	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, 32<<20))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read body: %v", err)
	}
	name := "upload.json"
	if strings.Contains(mediaType, "yaml") {
		name = "upload.yaml"
	}
	return name, data, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
