package datadog

import (
	"context"
	"net/http"
	"testing"
	"time"

	"qmetl/internal/metrics"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

type fakeSubmitter struct {
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(_ context.Context, body datadogV2.MetricPayload, _ ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func newTestBackend(t *testing.T) (*Backend, *fakeSubmitter) {
	t.Helper()
	sub := &fakeSubmitter{}
	b, err := NewBackend(context.Background(), Options{
		JobName:    "qmetl-test",
		FlushEvery: time.Hour, // periodic flush irrelevant in tests
		now:        func() time.Time { return time.Unix(1700000000, 0) },
		submitter:  sub,
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	return b, sub
}

func TestFlush_SubmitsBufferedSeries(t *testing.T) {
	b, sub := newTestBackend(t)
	defer b.Close()

	b.IncCounter(metrics.RecordsTotal, 2, metrics.Labels{"record_type": "quality-measures"})
	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"record_type": "quality-measures"})
	b.ObserveHistogram(metrics.RunDurationSeconds, 0.8, metrics.Labels{"status": "ok"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(sub.payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(sub.payloads))
	}

	series := sub.payloads[0].Series
	if len(series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(series))
	}

	// Sorted by metric name: records before run_duration.
	if series[0].Metric != metrics.RecordsTotal {
		t.Fatalf("unexpected first series: %s", series[0].Metric)
	}
	if got := *series[0].Points[0].Value; got != 3 {
		t.Fatalf("counter deltas not accumulated: %v", got)
	}
	if *series[0].Type != datadogV2.METRICINTAKETYPE_COUNT {
		t.Fatalf("counter submitted as %v", *series[0].Type)
	}
	if *series[1].Type != datadogV2.METRICINTAKETYPE_GAUGE {
		t.Fatalf("histogram submitted as %v", *series[1].Type)
	}
}

func TestFlush_TagsCarryJobAndLabels(t *testing.T) {
	b, sub := newTestBackend(t)
	defer b.Close()

	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"source": "primary"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	tags := sub.payloads[0].Series[0].Tags
	var haveJob, haveSource bool
	for _, tag := range tags {
		switch tag {
		case "job:qmetl-test":
			haveJob = true
		case "source:primary":
			haveSource = true
		}
	}
	if !haveJob || !haveSource {
		t.Fatalf("missing expected tags: %v", tags)
	}
}

func TestFlush_EmptyBufferSubmitsNothing(t *testing.T) {
	b, sub := newTestBackend(t)
	defer b.Close()

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(sub.payloads) != 0 {
		t.Fatalf("empty flush must not submit, got %d payloads", len(sub.payloads))
	}
}

func TestFlush_ResetsEvenOnError(t *testing.T) {
	b, sub := newTestBackend(t)
	defer b.Close()
	sub.err = context.DeadlineExceeded

	b.IncCounter(metrics.RowsTotal, 1, nil)
	if err := b.Flush(); err == nil {
		t.Fatal("expected submit error")
	}

	sub.err = nil
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	// Second flush had nothing buffered: still only the failed payload.
	if len(sub.payloads) != 1 {
		t.Fatalf("buffers not reset after failed flush: %d payloads", len(sub.payloads))
	}
}

func TestIgnoresNonPositiveAndNegative(t *testing.T) {
	b, sub := newTestBackend(t)
	defer b.Close()

	b.IncCounter(metrics.RowsTotal, 0, nil)
	b.IncCounter(metrics.RowsTotal, -5, nil)
	b.ObserveHistogram(metrics.RunDurationSeconds, -1, nil)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(sub.payloads) != 0 {
		t.Fatalf("rejected samples must not buffer: %d payloads", len(sub.payloads))
	}
}

func TestParseTagsCSV(t *testing.T) {
	got := ParseTagsCSV(" env:prod , service:qmetl ,")
	if len(got) != 2 || got[0] != "env:prod" || got[1] != "service:qmetl" {
		t.Fatalf("unexpected tags: %v", got)
	}
	if ParseTagsCSV("  ") != nil {
		t.Fatal("blank input must return nil")
	}
}
