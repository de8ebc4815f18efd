package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"uk.co.dudmesh.authgate/internal/envelope"
)

const namespace = "authgate"

type SessionEvent string

const (
	SessionCreated SessionEvent = "created"
	SessionRenewed SessionEvent = "renewed"
	SessionExpired SessionEvent = "expired"
	SessionRevoked SessionEvent = "revoked"
)

type Metrics struct {
	outcomes *prometheus.CounterVec
	sessions *prometheus.CounterVec
}

// New registers the counters with reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_outcomes_total",
			Help:      "Auth flow responses by flow and status code.",
		}, []string{"flow", "status"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events.",
		}, []string{"event"}),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes, m.sessions)
	}
	return m
}

func (m *Metrics) Outcome(status envelope.Status) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(status.Flow(), envelope.Label(status)).Inc()
}

func (m *Metrics) Session(event SessionEvent) {
	m.SessionEvents(event, 1)
}

// SessionEvents records n events at once, as when every session of a user
// is deleted.
func (m *Metrics) SessionEvents(event SessionEvent, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sessions.WithLabelValues(string(event)).Add(float64(n))
}
