package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Tool metrics
	ToolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finreact_tool_executions_total",
			Help: "Total number of tool executions",
		},
		[]string{"tool", "status"}, // status: success|error
	)

	ToolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finreact_tool_latency_seconds",
			Help:    "Tool execution latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"tool"},
	)

	// Session metrics
	Sessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finreact_sessions_total",
			Help: "Total number of chat sessions run",
		},
		[]string{"status"},
	)

	SessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finreact_session_duration_seconds",
			Help:    "Wall-clock time of a chat session",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	ModelTurns = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finreact_model_turns",
			Help:    "Model invocations per session",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
	)

	// Digest metrics
	DigestEmails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finreact_digest_emails_total",
			Help: "Digest emails by outcome",
		},
		[]string{"status"}, // status: sent|failed
	)

	DigestLastRun = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "finreact_digest_last_run_timestamp",
			Help: "Unix timestamp of the last digest run",
		},
	)
)

var registerOnce sync.Once

// Register adds all collectors to the default registry. Safe to call twice.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ToolExecutions)
		prometheus.MustRegister(ToolLatency)
		prometheus.MustRegister(Sessions)
		prometheus.MustRegister(SessionDuration)
		prometheus.MustRegister(ModelTurns)
		prometheus.MustRegister(DigestEmails)
		prometheus.MustRegister(DigestLastRun)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordToolExecution records a single tool call
func RecordToolExecution(tool string, latency time.Duration, err error) {
	ToolExecutions.WithLabelValues(tool, status(err)).Inc()
	ToolLatency.WithLabelValues(tool).Observe(latency.Seconds())
}

// RecordSession records a finished chat session
func RecordSession(duration time.Duration, turns int, err error) {
	Sessions.WithLabelValues(status(err)).Inc()
	SessionDuration.Observe(duration.Seconds())
	ModelTurns.Observe(float64(turns))
}

// RecordDigestEmail records one digest delivery attempt
func RecordDigestEmail(sent bool) {
	if sent {
		DigestEmails.WithLabelValues("sent").Inc()
		return
	}
	DigestEmails.WithLabelValues("failed").Inc()
}

func RecordDigestRun() {
	DigestLastRun.SetToCurrentTime()
}
