// Package telemetry provides Prometheus metrics for the chat client and
// an optional HTTP endpoint to scrape them. The same counters back the
// in-app debug window via Snapshot.
package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var (
	once sync.Once

	// Counters
	MessagesReceived prometheus.Counter
	MessagesSent     prometheus.Counter
	MessagesFiltered prometheus.Counter
	EventsDropped    prometheus.Counter
	IRCReconnects    prometheus.Counter
	HelixRequests    prometheus.Counter
	HelixErrors      prometheus.Counter

	// Gauges
	ChannelsJoinedGauge prometheus.Gauge
	LiveChannelsGauge   prometheus.Gauge

	// Histograms (seconds)
	HelixRequestDuration prometheus.Histogram
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "twt_messages_received_total", Help: "Chat messages received over IRC"})
		MessagesSent = promauto.NewCounter(prometheus.CounterOpts{Name: "twt_messages_sent_total", Help: "Chat messages sent"})
		MessagesFiltered = promauto.NewCounter(prometheus.CounterOpts{Name: "twt_messages_filtered_total", Help: "Chat messages suppressed by filters"})
		EventsDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "twt_events_dropped_total", Help: "Bridge events dropped because the UI fell behind"})
		IRCReconnects = promauto.NewCounter(prometheus.CounterOpts{Name: "twt_irc_reconnects_total", Help: "IRC reconnect attempts"})
		HelixRequests = promauto.NewCounter(prometheus.CounterOpts{Name: "twt_helix_requests_total", Help: "Helix API requests attempted"})
		HelixErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "twt_helix_errors_total", Help: "Helix API requests that ultimately failed"})
		ChannelsJoinedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "twt_channels_joined", Help: "Channels currently joined"})
		LiveChannelsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "twt_live_channels", Help: "Joined channels currently live"})
		HelixRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "twt_helix_request_duration_seconds", Help: "Helix request duration seconds", Buckets: prometheus.DefBuckets})
	})
}

func IncMessagesReceived() { inc(MessagesReceived) }
func IncMessagesSent()     { inc(MessagesSent) }
func IncMessagesFiltered() { inc(MessagesFiltered) }
func IncEventsDropped()    { inc(EventsDropped) }
func IncIRCReconnects()    { inc(IRCReconnects) }
func IncHelixRequests()    { inc(HelixRequests) }
func IncHelixErrors()      { inc(HelixErrors) }

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// SetChannelsJoined records the current channel membership count.
func SetChannelsJoined(n int) {
	if ChannelsJoinedGauge != nil {
		ChannelsJoinedGauge.Set(float64(n))
	}
}

// SetLiveChannels records how many joined channels are live.
func SetLiveChannels(n int) {
	if LiveChannelsGauge != nil {
		LiveChannelsGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in obs if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Snapshot returns current metric values keyed by short name, for the
// in-app debug window. Histograms report their sample count. Returns an
// empty map before Init.
func Snapshot() map[string]float64 {
	out := make(map[string]float64)
	read := func(name string, m prometheus.Metric) {
		if m == nil {
			return
		}
		pb := &dto.Metric{}
		if err := m.Write(pb); err != nil {
			return
		}
		switch {
		case pb.Counter != nil:
			out[name] = pb.Counter.GetValue()
		case pb.Gauge != nil:
			out[name] = pb.Gauge.GetValue()
		case pb.Histogram != nil:
			out[name] = float64(pb.Histogram.GetSampleCount())
		}
	}
	read("messages_received", MessagesReceived)
	read("messages_sent", MessagesSent)
	read("messages_filtered", MessagesFiltered)
	read("events_dropped", EventsDropped)
	read("irc_reconnects", IRCReconnects)
	read("helix_requests", HelixRequests)
	read("helix_errors", HelixErrors)
	read("channels_joined", ChannelsJoinedGauge)
	read("live_channels", LiveChannelsGauge)
	read("helix_request_seconds", HelixRequestDuration)
	return out
}
