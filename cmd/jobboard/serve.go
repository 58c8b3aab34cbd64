package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jobboard/dashboard/internal/api"
	"github.com/jobboard/dashboard/internal/config"
	"github.com/jobboard/dashboard/internal/db"
	"github.com/jobboard/dashboard/internal/storage"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start an HTTP server that serves the dashboard page, its websocket
sessions, the catalog documents under /data and the annotation API.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides HTTP_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.HTTPPort = servePort
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log.Printf("Starting dashboard node: %s", cfg.NodeID)
	log.Printf("HTTP port: %d", cfg.HTTPPort)

	kv, err := openState(cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	docs, err := storage.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open data dir: %w", err)
	}
	log.Printf("Serving catalog documents from %s", docs.Dir())
	if !docs.Exists(storage.CatalogFile) {
		log.Printf("No %s in %s yet, dashboards will show no jobs until it is published", storage.CatalogFile, docs.Dir())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(cfg, kv, docs),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// Dashboard sessions hold their connection open, so there is no
		// read or write timeout. They end when gCtx is cancelled.
		BaseContext: func(net.Listener) context.Context { return gCtx },
	}

	g.Go(func() error {
		log.Printf("Server listening on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Println("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		log.Println("Server stopped")
		return nil
	})

	return g.Wait()
}

// openState opens the annotation store the config asks for.
func openState(cfg *config.Config) (*db.Store, error) {
	if cfg.InMemory() {
		log.Println("Annotations are kept in memory only")
		return db.NewMemoryStore()
	}
	kv, err := db.NewStore(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("open state dir: %w", err)
	}
	log.Printf("Annotations stored in %s", cfg.StateDir)
	return kv, nil
}
