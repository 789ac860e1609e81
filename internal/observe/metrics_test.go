package observe_test

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/pulpa-work/pulpa/internal/observe"
)

func TestNewMetricsRecords(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	ctx := context.Background()
	m.TranscribeDuration.Record(ctx, 0.42)
	m.RecordTurn(ctx, "completed")
	m.RecordProviderError(ctx, "openai-whisper", "stt")
	m.EmptyTranscripts.Add(ctx, 1)
	m.ActiveRecordings.Add(ctx, 1)
	m.ActiveRecordings.Add(ctx, -1)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("Collect() returned no scope metrics")
	}

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, inst := range sm.Metrics {
			names[inst.Name] = true
		}
	}
	for _, want := range []string{
		"pulpa.transcribe.duration",
		"pulpa.turns.completed",
		"pulpa.provider.errors",
		"pulpa.turns.empty_transcripts",
		"pulpa.active_recordings",
	} {
		if !names[want] {
			t.Errorf("metric %q was not recorded; got %v", want, names)
		}
	}
}
