// Package cli wires the harvester binary: configuration, logging, metrics,
// the store, and the cobra command tree.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/geoandes/seismic-harvest/internal/config"
	"github.com/geoandes/seismic-harvest/internal/observability"
	"github.com/geoandes/seismic-harvest/internal/store"
)

// app carries the shared dependencies, built lazily so commands that never
// touch the database (genreport) do not create one.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	store   *store.Store
}

// setup loads config and opens the store. Idempotent.
func (a *app) setup() error {
	if a.store != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	a.logger = observability.NewLogger(cfg)
	a.metrics = observability.NewMetrics()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = st
	return nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close() //nolint:errcheck
	}
}

// NewRootCmd builds the harvester command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "harvester",
		Short:         "Seismic catalog harvesting and strong-motion record acquisition",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}

	root.AddCommand(
		newHarvestCmd(a),
		newHarvestCSVCmd(a),
		newDownloadCmd(a),
		newReparseCmd(a),
		newGenReportCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
