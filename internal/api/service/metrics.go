package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service-level counters. A nil *Metrics is valid and
// records nothing, which keeps tests free of registry plumbing.
type Metrics struct {
	logins       *prometheus.CounterVec
	rotations    *prometheus.CounterVec
	revocations  *prometheus.CounterVec
	cvVersions   *prometheus.CounterVec
	housekeeping *prometheus.CounterVec
}

// NewMetrics registers the counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jobassist",
			Name:      "logins_total",
			Help:      "Login attempts by method and outcome.",
		}, []string{"method", "outcome"}),
		rotations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jobassist",
			Name:      "refresh_rotations_total",
			Help:      "Refresh token rotations by outcome.",
		}, []string{"outcome"}),
		revocations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jobassist",
			Name:      "session_revocations_total",
			Help:      "Revoked refresh sessions by reason.",
		}, []string{"reason"}),
		cvVersions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jobassist",
			Name:      "cv_versions_total",
			Help:      "Stored CV versions by source.",
		}, []string{"source"}),
		housekeeping: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jobassist",
			Name:      "housekeeping_deleted_total",
			Help:      "Rows removed or cleared by the housekeeping sweep.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) login(method, outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) rotation(outcome string) {
	if m == nil {
		return
	}
	m.rotations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) revoked(reason string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.revocations.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) cvStored(source string) {
	if m == nil {
		return
	}
	m.cvVersions.WithLabelValues(source).Inc()
}

func (m *Metrics) swept(kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.housekeeping.WithLabelValues(kind).Add(float64(n))
}
