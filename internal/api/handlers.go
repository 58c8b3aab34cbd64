package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jobboard/dashboard/internal/catalog"
	"github.com/jobboard/dashboard/internal/config"
	"github.com/jobboard/dashboard/internal/export"
	"github.com/jobboard/dashboard/internal/status"
	"github.com/jobboard/dashboard/internal/ws"
)

const version = "0.1.0"

var startTime = time.Now()

// LoaderFunc builds a catalog loader for the root URL of the site.
type LoaderFunc func(siteURL string) *catalog.Loader

type Handlers struct {
	cfg       *config.Config
	kv        status.KV
	sessions  *ws.Registry
	newLoader LoaderFunc
}

func NewHandlers(cfg *config.Config, kv status.KV, sessions *ws.Registry, newLoader LoaderFunc) *Handlers {
	return &Handlers{cfg: cfg, kv: kv, sessions: sessions, newLoader: newLoader}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"node_id":        h.cfg.NodeID,
		"version":        version,
		"uptime_seconds": int(time.Since(startTime).Seconds()),
	})
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	store := status.NewStore(h.kv)
	_, err := store.Load()

	writeJSON(w, http.StatusOK, map[string]any{
		"node_id":        h.cfg.NodeID,
		"uptime_seconds": int(time.Since(startTime).Seconds()),
		"sessions": map[string]int{
			"connected": h.sessions.Stats().Connected,
		},
		"annotations": map[string]any{
			"stored":  store.Len(),
			"engaged": store.EngagedCount(),
			"corrupt": errors.Is(err, status.ErrCorruptStore),
		},
	})
}

// GetStatus returns the persisted annotation map. A corrupt value is handed
// back verbatim so it can be repaired by hand.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	store := status.NewStore(h.kv)
	annotations, err := store.Load()
	if err != nil {
		raw, _ := h.kv.Get(status.StorageKey)
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": err.Error(),
			"raw":   string(raw),
		})
		return
	}
	writeJSON(w, http.StatusOK, annotations)
}

type StatusRequest struct {
	Status string `json:"status"`
}

// PutStatus applies one transition of the per-job state machine.
func (h *Handlers) PutStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	to, err := status.Parse(req.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	store := status.NewStore(h.kv)
	if _, err := store.Load(); err != nil {
		log.Printf("Status store: %v, starting from empty annotations", err)
	}

	from := store.Get(jobID)
	if !status.CanTransition(from, to) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "invalid status transition",
			"from":  string(from),
			"to":    string(to),
		})
		return
	}

	if err := store.Set(jobID, to); err != nil {
		log.Printf("Failed to save status for %s: %v", jobID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save status"})
		return
	}

	a, _ := store.Annotation(jobID)
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":    jobID,
		"status":    a.Status,
		"updatedAt": a.UpdatedAt,
	})
}

// ExportCSV fetches the catalog the way a dashboard session does and returns
// the export document as an attachment.
func (h *Handlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.newLoader(ws.SiteURL(r)).Fetch(r.Context())
	if err != nil {
		log.Printf("Failed to load catalog for export: %v", err)
		msg := catalog.ErrCatalogUnavailable.Error()
		if errors.Is(err, catalog.ErrCatalogMalformed) {
			msg = catalog.ErrCatalogMalformed.Error()
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": msg})
		return
	}

	store := status.NewStore(h.kv)
	if _, err := store.Load(); err != nil {
		log.Printf("Status store: %v, exporting without annotations", err)
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(export.Document(jobs, store))
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}
