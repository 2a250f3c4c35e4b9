package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	first := MessagesReceived
	Init()
	if MessagesReceived != first {
		t.Error("second Init replaced registered collectors")
	}
	if MessagesReceived == nil || IRCReconnects == nil || LiveChannelsGauge == nil {
		t.Error("Init left collectors nil")
	}
}

func TestCountersBeforeInitDoNotPanic(t *testing.T) {
	// Helpers guard against nil so library code can count without
	// caring whether main wired up metrics.
	inc(nil)
	SetChannelsJoined(3)
	SetLiveChannels(1)
}

func TestSnapshotReflectsIncrements(t *testing.T) {
	Init()

	before := Snapshot()["messages_received"]
	IncMessagesReceived()
	IncMessagesReceived()
	after := Snapshot()["messages_received"]

	if got := after - before; got != 2 {
		t.Errorf("snapshot delta = %v, want 2", got)
	}

	SetLiveChannels(4)
	if got := Snapshot()["live_channels"]; got != 4 {
		t.Errorf("live_channels = %v, want 4", got)
	}
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	Init()

	testHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "Test duration",
		Buckets: prometheus.DefBuckets,
	})
	prometheus.MustRegister(testHistogram)
	defer prometheus.Unregister(testHistogram)

	executed := false
	duration := TimeFunc(testHistogram, func() {
		time.Sleep(10 * time.Millisecond)
		executed = true
	})

	if !executed {
		t.Error("TimeFunc did not execute provided function")
	}
	if duration < 10*time.Millisecond {
		t.Errorf("TimeFunc duration = %v, want >= 10ms", duration)
	}

	metric := &dto.Metric{}
	if err := testHistogram.Write(metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if metric.Histogram == nil || *metric.Histogram.SampleCount == 0 {
		t.Error("TimeFunc did not record observation in histogram")
	}
}
