// Package observability provides Prometheus metrics and logger construction.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Stream metrics
	StreamMessages       *prometheus.CounterVec
	StreamDecodeErrors   prometheus.Counter
	StreamReconnects     prometheus.Counter
	WatcherState         *prometheus.GaugeVec
	LastStreamMessage    prometheus.Gauge
	HighestLedgerSeen    prometheus.Gauge
	MessageHandleLatency prometheus.Histogram

	// Buy metrics
	BuysDetected       prometheus.Counter
	BuysBelowThreshold prometheus.Counter
	AlertsDelivered    *prometheus.CounterVec

	// Price oracle metrics
	PriceLookups       *prometheus.CounterVec
	PriceLookupLatency prometheus.Histogram

	// Chat metrics
	ChatRequests      *prometheus.CounterVec
	CompletionLatency prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "xrpl_buy_bot"
	}

	return &Metrics{
		// Stream metrics
		StreamMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "messages_total",
			Help:      "Total number of ledger stream messages received by type",
		}, []string{"type"}),
		StreamDecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "decode_errors_total",
			Help:      "Total number of stream messages that could not be decoded",
		}),
		StreamReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of reconnect cycles after a stream error",
		}),
		WatcherState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "watcher_state",
			Help:      "1 for the watcher's current state, 0 otherwise",
		}, []string{"state"}),
		LastStreamMessage: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "last_message_timestamp",
			Help:      "Unix timestamp of the last stream message",
		}),
		HighestLedgerSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "highest_ledger_seen",
			Help:      "Highest ledger index seen on the stream",
		}),
		MessageHandleLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "message_handle_latency_seconds",
			Help:      "Transaction message handling latency in seconds, including alert delivery",
			Buckets:   prometheus.DefBuckets,
		}),

		// Buy metrics
		BuysDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "buys",
			Name:      "detected_total",
			Help:      "Total number of qualifying buys detected",
		}),
		BuysBelowThreshold: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "buys",
			Name:      "below_threshold_total",
			Help:      "Total number of balance increases dropped for spending less than the minimum",
		}),
		AlertsDelivered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "delivered_total",
			Help:      "Total number of alert deliveries by status",
		}, []string{"status"}),

		// Price oracle metrics
		PriceLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "lookups_total",
			Help:      "Total number of price lookups by result",
		}, []string{"result"}),
		PriceLookupLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "lookup_latency_seconds",
			Help:      "Price lookup latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Chat metrics
		ChatRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of chat requests by command and outcome",
		}, []string{"command", "outcome"}),
		CompletionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "completion_latency_seconds",
			Help:      "Completion API latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordStreamMessage counts a received stream message.
func RecordStreamMessage(msgType string, ledgerIndex uint32) {
	DefaultMetrics.StreamMessages.WithLabelValues(msgType).Inc()
	DefaultMetrics.LastStreamMessage.Set(float64(time.Now().Unix()))
	if ledgerIndex > 0 {
		DefaultMetrics.HighestLedgerSeen.Set(float64(ledgerIndex))
	}
}

// RecordDecodeError counts an undecodable stream message.
func RecordDecodeError() {
	DefaultMetrics.StreamDecodeErrors.Inc()
}

// RecordReconnect counts a reconnect cycle.
func RecordReconnect() {
	DefaultMetrics.StreamReconnects.Inc()
}

// SetWatcherState marks state as current among all known states.
func SetWatcherState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		DefaultMetrics.WatcherState.WithLabelValues(s).Set(v)
	}
}

// RecordMessageHandled records transaction message handling latency.
func RecordMessageHandled(seconds float64) {
	DefaultMetrics.MessageHandleLatency.Observe(seconds)
}

// RecordBuyDetected counts a qualifying buy.
func RecordBuyDetected() {
	DefaultMetrics.BuysDetected.Inc()
}

// RecordBuyBelowThreshold counts a dropped balance increase.
func RecordBuyBelowThreshold() {
	DefaultMetrics.BuysBelowThreshold.Inc()
}

// RecordAlertDelivery records an alert delivery attempt.
func RecordAlertDelivery(err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	DefaultMetrics.AlertsDelivered.WithLabelValues(status).Inc()
}

// RecordPriceLookup records a price lookup result and latency.
func RecordPriceLookup(result string, seconds float64) {
	DefaultMetrics.PriceLookups.WithLabelValues(result).Inc()
	DefaultMetrics.PriceLookupLatency.Observe(seconds)
}

// RecordChatRequest records a handled chat command.
func RecordChatRequest(command, outcome string) {
	DefaultMetrics.ChatRequests.WithLabelValues(command, outcome).Inc()
}

// RecordCompletionLatency records completion API latency.
func RecordCompletionLatency(seconds float64) {
	DefaultMetrics.CompletionLatency.Observe(seconds)
}
