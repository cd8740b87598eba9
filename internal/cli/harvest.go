package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geoandes/seismic-harvest/internal/adapter/csvcatalog"
	"github.com/geoandes/seismic-harvest/internal/adapter/igp"
	"github.com/geoandes/seismic-harvest/internal/adapter/isc"
	"github.com/geoandes/seismic-harvest/internal/adapter/usgs"
	"github.com/geoandes/seismic-harvest/internal/harvester"
)

// newHarvester builds the harvester with every API source registered. The
// registry is the only place catalog names map to client implementations.
func (a *app) newHarvester() *harvester.Harvester {
	fetchers := map[string]harvester.Fetcher{
		"USGS": usgs.NewClient(a.cfg.USGSBaseURL, a.cfg.HTTPTimeout, a.logger),
		"ISC":  isc.NewClient(a.cfg.ISCBaseURL, a.cfg.HTTPTimeout, a.logger),
		"IGP":  igp.NewClient(a.cfg.IGPCatalogURL, a.cfg.HTTPTimeout, a.logger),
	}
	return harvester.New(fetchers, a.store,
		csvcatalog.New(a.cfg.CSVDelimiter, a.logger),
		a.metrics, a.logger, a.cfg.HarvestWorkers)
}

func newHarvestCmd(a *app) *cobra.Command {
	var catalogs []string
	var years []int

	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Harvest event catalogs from the API sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			if len(years) == 0 {
				return fmt.Errorf("at least one --year is required")
			}

			h := a.newHarvester()
			if len(catalogs) == 0 {
				catalogs = h.Catalogs()
			}

			sum := h.HarvestMany(cmd.Context(), catalogs, years, a.cfg.BBox)
			fmt.Fprintf(cmd.OutOrStdout(),
				"tasks=%d failed=%d processed=%d inserted=%d updated=%d\n",
				sum.Tasks, sum.Failed, sum.Processed, sum.Inserted, sum.Updated)

			if sum.Failed == sum.Tasks && sum.Tasks > 0 {
				return fmt.Errorf("all %d harvest tasks failed", sum.Tasks)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&catalogs, "catalog", nil, "catalogs to harvest (default all registered)")
	cmd.Flags().IntSliceVar(&years, "year", nil, "years to harvest (repeatable)")
	return cmd
}

func newHarvestCSVCmd(a *app) *cobra.Command {
	var catalogs []string
	var file, catalog, baseDir string
	var minYear int
	var applyBBox bool

	cmd := &cobra.Command{
		Use:   "harvest-csv",
		Short: "Ingest bulk catalog CSV archives",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}

			filter := csvcatalog.Filter{MinYear: minYear}
			if applyBBox {
				filter.BBox = a.cfg.BBox
			}
			h := a.newHarvester()

			// Single-file mode bypasses directory enumeration.
			if file != "" {
				if catalog == "" {
					return fmt.Errorf("--file-catalog is required with --file")
				}
				res := h.HarvestCSV(cmd.Context(), catalog, file, filter)
				if res.Err != nil {
					return res.Err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "processed=%d inserted=%d updated=%d\n",
					res.Processed, res.Inserted, res.Updated)
				return nil
			}

			if len(catalogs) == 0 {
				return fmt.Errorf("at least one --catalog is required")
			}
			if baseDir == "" {
				baseDir = a.cfg.CSVBaseDir
			}
			sum, err := h.HarvestCSVDir(cmd.Context(), catalogs, baseDir, filter)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"files=%d failed=%d processed=%d inserted=%d updated=%d\n",
				sum.Tasks, sum.Failed, sum.Processed, sum.Inserted, sum.Updated)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&catalogs, "catalog", nil, "catalog names (subdirectories of the archive dir)")
	cmd.Flags().StringVar(&file, "file", "", "ingest a single archive file")
	cmd.Flags().StringVar(&catalog, "file-catalog", "", "catalog name for --file mode")
	cmd.Flags().StringVar(&baseDir, "dir", "", "archive base directory (default from CSV_BASE_DIR)")
	cmd.Flags().IntVar(&minYear, "min-year", 0, "skip rows before this year")
	cmd.Flags().BoolVar(&applyBBox, "bbox", false, "apply the configured bounding box filter")
	return cmd
}
