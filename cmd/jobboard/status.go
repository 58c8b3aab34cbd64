package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/jobboard/dashboard/internal/config"
	"github.com/jobboard/dashboard/internal/status"
)

var pruneCatalog string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Maintain the stored application statuses",
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop statuses of jobs that are no longer in the catalog",
	Long: `Drop the stored status of every job missing from the catalog. Pruned
jobs stop counting toward the Applied total.`,
	RunE: runPrune,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every stored status",
	Long: `Delete the stored status map, including one that no longer parses.
Use GET /api/status on a running server to save a copy first.`,
	RunE: runReset,
}

func init() {
	pruneCmd.Flags().StringVar(&pruneCatalog, "catalog", "", "Catalog path or URL (default <data_dir>/jobs_all.json)")
	statusCmd.AddCommand(pruneCmd, resetCmd)
	rootCmd.AddCommand(statusCmd)
}

func runPrune(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	jobs, err := loadCatalog(cmd.Context(), cfg, pruneCatalog)
	if err != nil {
		return err
	}
	ids := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		ids[j.ID] = true
	}

	store, closeStore, err := openStatusStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if _, err := store.Load(); err != nil {
		return fmt.Errorf("%w (run \"jobboard status reset\" to start over)", err)
	}

	n, err := store.Prune(func(id string) bool { return ids[id] })
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d statuses, %d kept\n", n, store.Len())
	return nil
}

func runReset(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, closeStore, err := openStatusStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Reset(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Statuses cleared")
	return nil
}

func openStatusStore(cfg *config.Config) (*status.Store, func(), error) {
	kv, err := openState(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := kv.Close(); err != nil {
			log.Printf("Failed to close state: %v", err)
		}
	}
	return status.NewStore(kv), closeStore, nil
}
