package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geolocate/internal/ocid"
	"github.com/sells-group/geolocate/internal/resilience"
	"github.com/sells-group/geolocate/internal/store"
	"github.com/sells-group/geolocate/pkg/geocode"
)

var (
	importFile    string
	importURL     string
	importDataset string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a cell export into the telemetry store",
	Long:  "Loads an OpenCellID style CSV export, plain or gzip compressed, from a file or URL and rebuilds the cell areas it touches.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}
		location, err := importLocation(importFile, importURL)
		if err != nil {
			return err
		}
		ds, err := store.ParseDataset(importDataset)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		geocoder, err := geocode.New()
		if err != nil {
			return eris.Wrap(err, "init geocoder")
		}

		opener := ocid.NewOpener(nil, resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs))
		rc, err := opener.Open(ctx, location)
		if err != nil {
			return err
		}
		defer rc.Close() //nolint:errcheck

		importer := ocid.NewImporter(st, ds,
			ocid.WithBatchSize(cfg.Import.BatchSize),
			ocid.WithRegions(geocoder.RegionCode),
		)
		stats, err := importer.Import(ctx, rc)
		if err != nil {
			return eris.Wrap(err, "import cells")
		}

		zap.L().Info("import complete",
			zap.String("source", location),
			zap.String("dataset", string(ds)),
			zap.Int("imported", stats.Imported),
		)
		return writeJSON(cmd.OutOrStdout(), stats)
	},
}

func importLocation(file, url string) (string, error) {
	switch {
	case file != "" && url != "":
		return "", eris.New("--file and --url are mutually exclusive")
	case file != "":
		return file, nil
	case url != "":
		return url, nil
	}
	return "", eris.New("one of --file or --url is required")
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to a CSV export")
	importCmd.Flags().StringVar(&importURL, "url", "", "URL of a CSV export")
	importCmd.Flags().StringVar(&importDataset, "dataset", string(store.OCID), "target dataset: internal or ocid")
	rootCmd.AddCommand(importCmd)
}
