package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geoandes/seismic-harvest/internal/accel"
	"github.com/geoandes/seismic-harvest/internal/domain"
	"github.com/geoandes/seismic-harvest/internal/store"
)

func newReparseCmd(a *app) *cobra.Command {
	var catalog string

	cmd := &cobra.Command{
		Use:   "reparse",
		Short: "Re-parse saved report files and refresh stored records",
		Long: "Walks the saved <event>_<station>.txt report files for one catalog and\n" +
			"re-runs the parser against them, updating records and samples in place.\n" +
			"Useful after parser fixes; no network access.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}

			dir := filepath.Join(a.cfg.DataDir, catalog)
			paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
			if err != nil {
				return fmt.Errorf("list report files: %w", err)
			}
			if len(paths) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no report files under %s\n", dir)
				return nil
			}

			ctx := cmd.Context()
			var updated, skipped int
			for _, path := range paths {
				eventID, code, ok := splitReportName(filepath.Base(path))
				if !ok {
					a.logger.Warn("skipping unrecognized report file name", "path", path)
					skipped++
					continue
				}

				content, err := os.ReadFile(path)
				if err != nil {
					a.logger.Warn("skipping unreadable report file", "path", path, "error", err)
					skipped++
					continue
				}

				report, err := accel.Parse(string(content))
				if err != nil {
					a.logger.Warn("report still unparseable", "path", path, "error", err)
					skipped++
					continue
				}

				stationID, err := a.store.StationIDByCode(ctx, code)
				if errors.Is(err, store.ErrNotFound) {
					a.logger.Warn("station unknown, run download first", "station", code, "path", path)
					skipped++
					continue
				}
				if err != nil {
					return err
				}

				recordID, err := a.store.UpsertAccelerationRecord(ctx, domain.AccelerationRecord{
					EventID:            eventID,
					StationID:          stationID,
					NumSamples:         report.SampleCount(),
					SamplingFrequency:  report.SamplingFrequency,
					PGAVertical:        report.PGAVertical,
					PGANorth:           report.PGANorth,
					PGAEast:            report.PGAEast,
					BaselineCorrection: true,
					FilePath:           path,
				})
				if err != nil {
					return fmt.Errorf("refresh record for %s: %w", path, err)
				}
				if err := a.store.ReplaceSamples(ctx, recordID, report.Samples); err != nil {
					return fmt.Errorf("refresh samples for %s: %w", path, err)
				}
				updated++
			}

			fmt.Fprintf(cmd.OutOrStdout(), "files=%d updated=%d skipped=%d\n",
				len(paths), updated, skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&catalog, "catalog", "IGP", "catalog whose saved reports to re-parse")
	return cmd
}

// splitReportName splits "<eventID>_<stationCode>.txt". Event ids may
// contain underscores, so the station code is everything after the last one.
func splitReportName(name string) (eventID, code string, ok bool) {
	base := strings.TrimSuffix(name, ".txt")
	if base == name {
		return "", "", false
	}
	i := strings.LastIndex(base, "_")
	if i <= 0 || i == len(base)-1 {
		return "", "", false
	}
	return base[:i], base[i+1:], true
}
