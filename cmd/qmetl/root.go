package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	flagSchemaDir string
	flagYear      int
	flagVerbose   bool

	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "qmetl",
	Short: "qmetl turns measure spreadsheet exports into validated JSON record collections",
	Long: `qmetl reads CSV exports of quality-measure spreadsheets, builds normalized
JSON records from a declarative column mapping, validates the collection
against the performance year's schema document, and writes or publishes
the result.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if flagVerbose {
			level = zerolog.DebugLevel
		}
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Logger()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagSchemaDir, "schema-dir", "schemas", "root directory of versioned schema documents")
	rootCmd.PersistentFlags().IntVar(&flagYear, "year", time.Now().Year(), "performance year")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logs")

	viper.SetEnvPrefix("QMETL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindPFlag("schema-dir", rootCmd.PersistentFlags().Lookup("schema-dir"))
	viper.BindPFlag("year", rootCmd.PersistentFlags().Lookup("year"))
}

// schemaDir and year go through viper so QMETL_SCHEMA_DIR / QMETL_YEAR work
// without flags in scheduled jobs.
func schemaDir() string { return viper.GetString("schema-dir") }
func year() int         { return viper.GetInt("year") }
