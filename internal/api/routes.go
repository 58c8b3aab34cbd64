package api

import (
	"embed"
	"io/fs"
	"log"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/jobboard/dashboard/internal/catalog"
	"github.com/jobboard/dashboard/internal/config"
	"github.com/jobboard/dashboard/internal/dashboard"
	"github.com/jobboard/dashboard/internal/status"
	"github.com/jobboard/dashboard/internal/storage"
	"github.com/jobboard/dashboard/internal/ws"
)

//go:embed web
var webFS embed.FS

// NewRouter wires the dashboard page, its websocket sessions, the catalog
// documents and the annotation API.
func NewRouter(cfg *config.Config, kv status.KV, docs *storage.Store) http.Handler {
	newLoader := func(siteURL string) *catalog.Loader {
		target, err := catalog.ResolveURL(siteURL, cfg.CatalogURL)
		if err != nil {
			log.Printf("Failed to resolve catalog url %q: %v", cfg.CatalogURL, err)
			target = cfg.CatalogURL
		}
		return catalog.NewLoader(target, nil)
	}

	wsServer := ws.NewServer(kv, func(siteURL string) dashboard.Fetcher {
		return newLoader(siteURL)
	}, dashboard.Options{
		Location:       cfg.Location(),
		DateLayout:     cfg.DateLayout,
		DateTimeLayout: cfg.DateTimeLayout,
		KnownSources:   cfg.KnownSources,
	})
	wsServer.SetOriginPatterns(originPatterns(cfg.AllowedOrigins))

	h := NewHandlers(cfg, kv, wsServer.Registry(), newLoader)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health & Info
	r.Get("/health", h.Health)
	r.Get("/info", h.Info)
	r.Get("/stats", h.Stats)

	r.Group(func(r chi.Router) {
		// Cross-origin access is off unless origins are configured.
		if len(cfg.AllowedOrigins) > 0 {
			r.Use(corsHandler(cfg.AllowedOrigins))

			// Preflight requests are answered by the cors middleware.
			r.Options("/api/*", noContent)
			r.Options("/data/*", noContent)
		}

		// Annotations API
		r.Get("/api/status", h.GetStatus)
		r.Put("/api/status/{jobID}", h.PutStatus)
		r.Get("/api/export.csv", h.ExportCSV)

		// Catalog documents
		if docs != nil {
			storageHandlers := storage.NewHandlers(docs)
			r.Get("/data/", storageHandlers.List)
			r.Get("/data/*", storageHandlers.Download)
		}
	})

	// WebSocket
	r.Get("/ws/dashboard", wsServer.HandleDashboard)

	// Page shell
	shell, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(shell))))
	r.Get("/", serveIndex(shell))

	return r
}

func serveIndex(shell fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := fs.ReadFile(shell, "index.html")
		if err != nil {
			http.Error(w, "page unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
	}
}

func noContent(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler
}

// originPatterns maps allowed origins to the host patterns the websocket
// handshake checks.
func originPatterns(origins []string) []string {
	var patterns []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}
