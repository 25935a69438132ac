package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qmetl/internal/mapping"
	"qmetl/internal/metrics"
	"qmetl/internal/metrics/datadog"
	"qmetl/internal/pipeline"
	"qmetl/internal/storage"

	// register all publication backends with the storage factory;
	// --publish selects which one runs.
	_ "qmetl/internal/storage/all"
)

var (
	flagMapping        string
	flagPrimary        string
	flagSub            string
	flagOut            string
	flagStrictDefaults bool
	flagCheckMapping   bool
	flagValidYears     []int

	flagPublish string
	flagDSN     string

	flagMetricsBackend string
	flagMetricsTags    string
)

func init() {
	importCmd.Flags().StringVar(&flagMapping, "mapping", "", "column mapping JSON file (required)")
	importCmd.Flags().StringVar(&flagPrimary, "primary", "", "primary CSV export (required)")
	importCmd.Flags().StringVar(&flagSub, "sub", "", "sub-record CSV export (required when the mapping declares one)")
	importCmd.Flags().StringVar(&flagOut, "out", "", "output JSON artifact (required)")
	importCmd.Flags().BoolVar(&flagStrictDefaults, "strict-defaults", false,
		"apply mapping defaults only to empty cells instead of any falsy value")
	importCmd.Flags().BoolVar(&flagCheckMapping, "check-mapping", false, "validate the mapping file and exit")
	importCmd.Flags().IntSliceVar(&flagValidYears, "valid-years", nil,
		"years the normalizer converts to integers (default: year-1..year+1)")

	importCmd.Flags().StringVar(&flagPublish, "publish", "none", "publication backend (none, sqlite, postgres)")
	importCmd.Flags().StringVar(&flagDSN, "dsn", "", "publication DSN")

	importCmd.Flags().StringVar(&flagMetricsBackend, "metrics-backend", "none", "metrics backend (none, datadog)")
	importCmd.Flags().StringVar(&flagMetricsTags, "metrics-tags", "", "extra metric tags as k:v,k:v")

	importCmd.MarkFlagRequired("mapping")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Build, validate and write a record collection from CSV exports",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagCheckMapping {
			m, err := mapping.Load(flagMapping)
			if err != nil {
				return err
			}
			fmt.Printf("mapping ok: record_type=%s id_field=%s fields=%d flags=%d\n",
				m.RecordType, m.IDField, len(m.Fields), len(m.Flags))
			return nil
		}

		if flagPrimary == "" || flagOut == "" {
			return fmt.Errorf("--primary and --out are required")
		}

		ctx := cmd.Context()

		switch flagMetricsBackend {
		case "", "none":
		case "datadog":
			be, err := datadog.NewBackend(ctx, datadog.Options{
				JobName: "qmetl-import",
				Tags:    datadog.ParseTagsCSV(flagMetricsTags),
			})
			if err != nil {
				return fmt.Errorf("init datadog backend: %w", err)
			}
			metrics.SetBackend(be)
			defer func() {
				if err := be.Close(); err != nil {
					log.Warn().Err(err).Msg("metrics flush failed")
				}
			}()
		default:
			return fmt.Errorf("unknown metrics backend %q", flagMetricsBackend)
		}

		cfg := pipeline.Config{
			PrimaryPath:     flagPrimary,
			SubRecordPath:   flagSub,
			MappingPath:     flagMapping,
			SchemaDir:       schemaDir(),
			OutPath:         flagOut,
			PerformanceYear: year(),
			ValidYears:      flagValidYears,
			StrictDefaults:  flagStrictDefaults,
			Log:             log,
		}
		if flagPublish != "" && flagPublish != "none" {
			cfg.Publish = &storage.Config{Kind: flagPublish, DSN: flagDSN}
		}

		sum, err := pipeline.Run(ctx, cfg)
		if err != nil {
			return err
		}

		log.Info().
			Str("record_type", sum.RecordType).
			Int("records", sum.Records).
			Int64("published", sum.Published).
			Msg("import complete")
		return nil
	},
}
