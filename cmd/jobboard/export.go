package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/jobboard/dashboard/internal/catalog"
	"github.com/jobboard/dashboard/internal/config"
	"github.com/jobboard/dashboard/internal/export"
	"github.com/jobboard/dashboard/internal/status"
	"github.com/jobboard/dashboard/internal/storage"
)

var (
	exportCatalog string
	exportOut     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the annotated catalog as CSV",
	Long: `Read the catalog and the stored annotations and write the same CSV
document the dashboard's Export button downloads. Use --out - for stdout.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportCatalog, "catalog", "", "Catalog path or URL (default <data_dir>/"+storage.CatalogFile+")")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", export.Filename, "Output file")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	jobs, err := loadCatalog(cmd.Context(), cfg, exportCatalog)
	if err != nil {
		return err
	}

	kv, err := openState(cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	store := status.NewStore(kv)
	if _, err := store.Load(); err != nil {
		log.Printf("Status store: %v, exporting without annotations", err)
	}

	doc := export.Document(jobs, store)
	if exportOut == "-" {
		_, err = cmd.OutOrStdout().Write(doc)
		return err
	}
	if err := os.WriteFile(exportOut, doc, 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	log.Printf("Exported %d jobs to %s", len(jobs), exportOut)
	return nil
}

// loadCatalog reads the catalog from source, a path or URL, or from the data
// directory when source is empty.
func loadCatalog(ctx context.Context, cfg *config.Config, source string) ([]catalog.Job, error) {
	if source != "" {
		return catalog.NewFileLoader(source).Fetch(ctx)
	}

	docs, err := storage.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open data dir: %w", err)
	}
	body, err := docs.Get(storage.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	jobs, err := catalog.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrCatalogMalformed, err)
	}
	return jobs, nil
}
