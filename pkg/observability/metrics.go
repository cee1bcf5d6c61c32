package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/execution"
	"github.com/aretw0/webflow/pkg/flow"
)

// Metrics holds the Prometheus collectors fed by its Listener.
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted *prometheus.CounterVec
	sessionsEnded   *prometheus.CounterVec
	stateEntries    *prometheus.CounterVec
	events          *prometheus.CounterVec
	paused          *prometheus.CounterVec
	requestDuration prometheus.Histogram

	// in-flight request start times, keyed by request context
	started sync.Map
}

// NewMetrics creates the collectors and registers them on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webflow_sessions_started_total",
			Help: "Flow sessions started, by flow.",
		}, []string{"flow"}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webflow_sessions_ended_total",
			Help: "Flow sessions ended, by flow and end state.",
		}, []string{"flow", "state"}),
		stateEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webflow_state_entries_total",
			Help: "State entries, by flow and state.",
		}, []string{"flow", "state"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webflow_events_signaled_total",
			Help: "External events signaled, by event id.",
		}, []string{"event"}),
		paused: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webflow_executions_paused_total",
			Help: "Requests that ended with the execution waiting on a view, by flow and state.",
		}, []string{"flow", "state"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "webflow_request_duration_seconds",
			Help:    "Time spent processing one external request.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.sessionsStarted,
		m.sessionsEnded,
		m.stateEntries,
		m.events,
		m.paused,
		m.requestDuration,
	)
	return m
}

// Registry returns the registry holding the collectors, e.g. to add process metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the collected metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Listener returns the execution listener feeding the collectors.
func (m *Metrics) Listener() *execution.Listener {
	return &execution.Listener{
		OnRequestSubmitted: func(ctx flow.RequestContext) {
			m.started.Store(ctx, time.Now())
		},
		OnRequestProcessed: func(ctx flow.RequestContext) {
			if start, ok := m.started.LoadAndDelete(ctx); ok {
				m.requestDuration.Observe(time.Since(start.(time.Time)).Seconds())
			}
		},
		OnSessionStarted: func(_ flow.RequestContext, s flow.Session) {
			m.sessionsStarted.WithLabelValues(s.Flow().ID()).Inc()
		},
		OnSessionEnded: func(_ flow.RequestContext, s flow.Session, _ map[string]any) {
			m.sessionsEnded.WithLabelValues(s.Flow().ID(), stateID(s.State())).Inc()
		},
		OnStateEntered: func(_ flow.RequestContext, _, current flow.State) {
			m.stateEntries.WithLabelValues(current.Flow().ID(), current.ID()).Inc()
		},
		OnEventSignaled: func(_ flow.RequestContext, ev *domain.Event) {
			m.events.WithLabelValues(ev.ID()).Inc()
		},
		OnPaused: func(ctx flow.RequestContext, _ *domain.ViewSelection) {
			if st := ctx.CurrentState(); st != nil {
				m.paused.WithLabelValues(st.Flow().ID(), st.ID()).Inc()
			}
		},
	}
}

func stateID(s flow.State) string {
	if s == nil {
		return ""
	}
	return s.ID()
}
