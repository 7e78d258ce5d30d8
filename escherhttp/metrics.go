package escherhttp

import (
	"errors"
	"time"

	"github.com/forestrie/go-escher/escher"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricNamespace = "escher"

	resultAccepted = "accepted"
	resultRejected = "rejected"
	resultError    = "error"
	resultSigned   = "signed"
)

// Metrics counts authentication and signing outcomes. A nil *Metrics
// records nothing.
type Metrics struct {
	authentications        *prometheus.CounterVec
	authenticationDuration *prometheus.HistogramVec
	signings               *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authentications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: "authenticator",
			Name:      "requests_total",
			Help:      "Total number of authenticated requests by result and rejection reason",
		}, []string{"result", "reason"}),
		authenticationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Subsystem: "authenticator",
			Name:      "duration_seconds",
			Help:      "Duration of request authentication",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		}, []string{"result"}),
		signings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: "signer",
			Name:      "requests_total",
			Help:      "Total number of outgoing requests passed to the signer by result",
		}, []string{"result"}),
	}
	reg.MustRegister(m.authentications, m.authenticationDuration, m.signings)
	return m
}

// reason returns the escher error code name, or "internal" for any other
// error.
func reason(err error) (string, string) {
	var escherErr *escher.Error
	if errors.As(err, &escherErr) {
		return resultRejected, escherErr.Code.String()
	}
	return resultError, "internal"
}

func (m *Metrics) observeAuthentication(start time.Time, err error) {
	if m == nil {
		return
	}
	result, why := resultAccepted, ""
	if err != nil {
		result, why = reason(err)
	}
	m.authentications.WithLabelValues(result, why).Inc()
	m.authenticationDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeSigning(err error) {
	if m == nil {
		return
	}
	result := resultSigned
	if err != nil {
		result = resultError
	}
	m.signings.WithLabelValues(result).Inc()
}
