package host

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomeNotFound = "not_found"
	outcomeDenied   = "denied"
)

type metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appkit_tool_calls_total",
			Help: "Tool calls by app, tool and outcome.",
		}, []string{"app", "tool", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "appkit_tool_call_duration_seconds",
			Help:    "Duration of dispatched tool calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"app", "tool"}),
	}
	for _, c := range []prometheus.Collector{m.calls, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// observe records one call. Calls stopped by policy never reach the app and
// carry no duration.
func (m *metrics) observe(appID, tool, outcome string, elapsed time.Duration) {
	m.calls.WithLabelValues(appID, tool, outcome).Inc()
	if outcome != outcomeDenied {
		m.duration.WithLabelValues(appID, tool).Observe(elapsed.Seconds())
	}
}
