package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kenralotamd/spending-tracker/internal/importer"
	"github.com/kenralotamd/spending-tracker/internal/learn"
	"github.com/kenralotamd/spending-tracker/internal/middleware"
	"github.com/kenralotamd/spending-tracker/internal/parsers"
	"github.com/kenralotamd/spending-tracker/internal/registry"
	"github.com/kenralotamd/spending-tracker/internal/store"
	"github.com/kenralotamd/spending-tracker/internal/streaming"
)

const maxUploadBytes = 100 << 20 // 100MB across all statement files

// ImportHandlers handles statement upload and live progress streaming.
type ImportHandlers struct {
	store    store.Store
	registry *registry.Registry
	hub      *streaming.StreamHub
}

// NewImportHandlers creates a new import handlers instance
func NewImportHandlers(st store.Store, hub *streaming.StreamHub) *ImportHandlers {
	return &ImportHandlers{
		store:    st,
		registry: registry.New(),
		hub:      hub,
	}
}

// StartImport handles POST /api/import. Files are read into memory up
// front so the background import never races the request lifecycle.
func (h *ImportHandlers) StartImport(w http.ResponseWriter, r *http.Request) {
	authInfo, ok := middleware.GetAuth(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		http.Error(w, "No files uploaded", http.StatusBadRequest)
		return
	}

	person := r.FormValue("person")

	type upload struct {
		name    string
		content []byte
	}
	uploads := make([]upload, 0, len(files))
	for _, fileHeader := range files {
		content, err := readUpload(fileHeader)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to read %s", fileHeader.Filename), http.StatusBadRequest)
			return
		}
		uploads = append(uploads, upload{name: fileHeader.Filename, content: content})
	}

	sessionID := uuid.New().String()

	go func() {
		ctx := context.Background()

		learner, err := learn.New(ctx, h.store, authInfo.HouseholdID)
		if err != nil {
			log.Printf("WARN: rules unavailable for import session %s: %v", sessionID, err)
		}

		combined := &importer.Report{}
		for _, u := range uploads {
			report, err := h.importOne(ctx, sessionID, authInfo.HouseholdID, person, u.name, u.content, learner)
			if err != nil {
				log.Printf("ERROR: import of %s failed: %v", u.name, err)
				h.hub.Broadcast(sessionID, streaming.NewErrorEvent(err.Error(), u.name))
				continue
			}
			combined.Total += report.Total
			combined.Added += report.Added
			combined.Duplicates += report.Duplicates
			combined.Skipped += report.Skipped
			combined.Failed += report.Failed
		}

		h.hub.Broadcast(sessionID, streaming.NewEvent(streaming.EventTypeReport, combined))
		h.hub.Broadcast(sessionID, streaming.NewEvent(streaming.EventTypeComplete, map[string]string{"status": "completed"}))
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	fmt.Fprintf(w, `{"sessionId":%q}`, sessionID)
}

func (h *ImportHandlers) importOne(ctx context.Context, sessionID, householdID, person, name string,
	content []byte, learner *learn.Learner) (*importer.Report, error) {

	header := content
	if len(header) > 512 {
		header = header[:512]
	}
	parser, err := h.registry.FindParserFor(name, header)
	if err != nil {
		return nil, err
	}

	meta, err := parsers.NewMetadata(name, time.Now())
	if err != nil {
		return nil, err
	}
	rows, err := parser.Parse(ctx, bytes.NewReader(content), meta)
	if err != nil {
		return nil, err
	}

	opts := importer.Options{
		HouseholdID: householdID,
		Person:      person,
		Progress: func(processed, total int) {
			h.hub.Broadcast(sessionID, streaming.NewProgressEvent(streaming.ProgressEvent{
				FileName:  name,
				Processed: processed,
				Total:     total,
			}))
		},
	}
	if learner != nil {
		opts.Suggest = learner.Suggest
	}

	return importer.New(h.store).Reconcile(ctx, rows, opts)
}

func readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// StreamImport handles GET /api/import/{id}/stream as Server-Sent Events.
func (h *ImportHandlers) StreamImport(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetAuth(r); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	sessionID := r.PathValue("id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := h.hub.Register(r.Context(), sessionID)
	defer h.hub.Unregister(sessionID, client)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, ok := <-client.Events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("ERROR: failed to encode SSE event: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()

			if event.Type == streaming.EventTypeComplete || event.Type == streaming.EventTypeError {
				return
			}
		}
	}
}
