// Package pipeline wires one import run end to end: read the spreadsheet
// exports, build the record collection, validate it against the year's
// schema document, then write (and optionally publish) the result.
//
// Ordering is deliberate: validation happens before any output exists, so
// an invalid collection leaves nothing behind on disk or downstream.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"qmetl/internal/builder"
	"qmetl/internal/mapping"
	"qmetl/internal/metrics"
	"qmetl/internal/normalize"
	"qmetl/internal/parser/csv"
	"qmetl/internal/schema"
	"qmetl/internal/storage"
)

// Config carries everything one run needs. There is no hidden state: two
// runs with equal Config and equal input files produce byte-identical
// output.
type Config struct {
	// PrimaryPath is the primary CSV export.
	PrimaryPath string

	// SubRecordPath is the secondary export whose rows attach to primary
	// records by foreign key. Required when the mapping declares a
	// sub_records source, ignored otherwise.
	SubRecordPath string

	// MappingPath is the JSON mapping document.
	MappingPath string

	// SchemaDir is the root of the versioned schema documents.
	SchemaDir string

	// OutPath is the JSON artifact to write.
	OutPath string

	// PerformanceYear selects the schema document and tags publication.
	PerformanceYear int

	// ValidYears is the whitelist of values the normalizer converts to
	// integers. Typically a window around PerformanceYear.
	ValidYears []int

	// StrictDefaults substitutes mapping defaults only for empty cells
	// instead of any falsy value.
	StrictDefaults bool

	// Publish, when non-nil, selects a downstream store to upsert the
	// collection into after the artifact is written.
	Publish *storage.Config

	Log zerolog.Logger
}

// Summary describes a completed run.
type Summary struct {
	RecordType string
	Records    int
	Validation *schema.Result

	// Published is the number of rows upserted downstream; zero when
	// publication was not configured.
	Published int64
}

// Run executes one import. On schema failure it returns a
// *schema.ValidationError and writes nothing.
func Run(ctx context.Context, cfg Config) (*Summary, error) {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.ObserveHistogram(metrics.RunDurationSeconds,
			time.Since(start).Seconds(), metrics.Labels{"status": status})
	}()

	m, err := mapping.Load(cfg.MappingPath)
	if err != nil {
		return nil, err
	}
	log := cfg.Log.With().Str("record_type", m.RecordType).Int("year", cfg.PerformanceYear).Logger()

	primary, err := csv.ReadFile(cfg.PrimaryPath, csv.Options{
		HeaderRows: m.HeaderRows,
		TrimSpace:  true,
		LazyQuotes: true,
	})
	if err != nil {
		return nil, err
	}
	metrics.IncCounter(metrics.RowsTotal, float64(len(primary)), metrics.Labels{"source": "primary"})
	log.Debug().Int("rows", len(primary)).Str("path", cfg.PrimaryPath).Msg("read primary export")

	var sub [][]string
	if m.SubRecords != nil {
		if cfg.SubRecordPath == "" {
			return nil, fmt.Errorf("mapping %s declares a sub-record source but no sub-record file was given", cfg.MappingPath)
		}
		sub, err = csv.ReadFile(cfg.SubRecordPath, csv.Options{
			HeaderRows: m.SubRecords.HeaderRows,
			TrimSpace:  true,
			LazyQuotes: true,
		})
		if err != nil {
			return nil, err
		}
		metrics.IncCounter(metrics.RowsTotal, float64(len(sub)), metrics.Labels{"source": "sub"})
		log.Debug().Int("rows", len(sub)).Str("path", cfg.SubRecordPath).Msg("read sub-record export")
	} else if cfg.SubRecordPath != "" {
		log.Warn().Str("path", cfg.SubRecordPath).Msg("sub-record file given but mapping declares no sub-record source; ignoring")
	}

	b := builder.New(m, cfg.normalizer(), cfg.StrictDefaults)
	recs, err := b.Build(primary, sub)
	if err != nil {
		return nil, err
	}
	metrics.IncCounter(metrics.RecordsTotal, float64(len(recs)), metrics.Labels{"record_type": m.RecordType})

	doc, err := schema.NewRegistry(cfg.SchemaDir).Load(m.RecordType, cfg.PerformanceYear)
	if err != nil {
		return nil, err
	}
	res, err := doc.Validate(recs)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		metrics.IncCounter(metrics.SchemaViolationsTotal, float64(len(res.Errors)),
			metrics.Labels{"record_type": m.RecordType})
		for _, v := range res.Errors {
			log.Error().Str("path", v.Path).Str("constraint", v.Constraint).Msg(v.Expected)
		}
		return nil, &schema.ValidationError{
			RecordType: m.RecordType,
			Year:       cfg.PerformanceYear,
			Result:     res,
		}
	}

	if err := writeArtifact(cfg.OutPath, recs); err != nil {
		return nil, err
	}
	log.Info().Int("records", len(recs)).Str("out", cfg.OutPath).Msg("wrote artifact")

	sum := &Summary{RecordType: m.RecordType, Records: len(recs), Validation: res}

	if cfg.Publish != nil {
		n, err := publish(ctx, *cfg.Publish, m, cfg.PerformanceYear, recs)
		if err != nil {
			return nil, err
		}
		sum.Published = n
		log.Info().Int64("rows", n).Str("kind", cfg.Publish.Kind).Msg("published collection")
	}

	status = "ok"
	return sum, nil
}

func (cfg *Config) normalizer() *normalize.Normalizer {
	years := cfg.ValidYears
	if len(years) == 0 && cfg.PerformanceYear != 0 {
		// Exports reference the year before and after the performance year
		// in benchmark fields.
		years = []int{cfg.PerformanceYear - 1, cfg.PerformanceYear, cfg.PerformanceYear + 1}
	}
	return normalize.New(years)
}

// writeArtifact writes the collection atomically: marshal first, write to a
// temp file in the destination directory, then rename into place. A failed
// run can never leave a truncated artifact.
func writeArtifact(path string, recs []builder.Record) error {
	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal collection: %w", err)
	}
	b = append(b, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename artifact into place: %w", err)
	}
	return nil
}

func publish(ctx context.Context, pc storage.Config, m *mapping.File, year int, recs []builder.Record) (int64, error) {
	repo, err := storage.New(ctx, pc)
	if err != nil {
		return 0, err
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		return 0, err
	}

	ids := make([]string, len(recs))
	payloads := make([][]byte, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID(m.IDField)
		b, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("marshal record %q: %w", ids[i], err)
		}
		payloads[i] = b
	}

	return repo.UpsertRecords(ctx, m.RecordType, year, ids, payloads)
}
