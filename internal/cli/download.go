package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geoandes/seismic-harvest/internal/adapter/strongmotion"
	"github.com/geoandes/seismic-harvest/internal/pipeline"
)

func newDownloadCmd(a *app) *cobra.Command {
	var catalog string
	var limit int

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download and persist station records for pending events",
		Long: "Selects catalog events that have no acceleration record yet, asks the\n" +
			"strong-motion network which stations recorded each one, and downloads,\n" +
			"parses, and persists every station's report.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}

			network := strongmotion.NewClient(
				a.cfg.StationsAPIURL, a.cfg.FileBaseURL, a.cfg.HTTPTimeout, a.logger)
			p := pipeline.New(a.store, network, a.metrics, a.logger,
				a.cfg.DataDir, a.cfg.EventTimeout)

			events, err := p.EventsToProcess(cmd.Context(), catalog, limit)
			if err != nil {
				return fmt.Errorf("select pending events: %w", err)
			}
			if len(events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending events")
				return nil
			}

			run, err := p.Run(cmd.Context(), catalog, events,
				a.cfg.EventWorkers, a.cfg.StationWorkers)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"run=%s status=%s events=%d saved=%d failed=%d records=%d samples=%d\n",
				run.RunID, run.Status, run.EventsProcessed, run.EventsSaved,
				run.EventsFailed, run.RecordsSaved, run.SamplesStored)
			for _, msg := range run.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), "error:", msg)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&catalog, "catalog", "IGP", "catalog whose events to process")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum events per run")
	return cmd
}
