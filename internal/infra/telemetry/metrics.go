package telemetry

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ndk123-web/backend-structure/internal/core/port"
)

const defaultNamespace = "videotube"

// Register registers collector, reusing an identical collector that is
// already registered so constructors stay safe to call twice.
func Register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return collector, fmt.Errorf("register collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return existing, nil
	}
	return collector, nil
}

// AuthMetrics implements port.AuthMetrics with Prometheus collectors.
type AuthMetrics struct {
	Logins          *prometheus.CounterVec
	Refreshes       *prometheus.CounterVec
	Authentications *prometheus.CounterVec
	HashDuration    *prometheus.HistogramVec
}

var _ port.AuthMetrics = (*AuthMetrics)(nil)

// NewAuthMetrics builds and registers the authentication collectors.
func NewAuthMetrics(reg prometheus.Registerer) (*AuthMetrics, error) {
	logins, err := Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: defaultNamespace,
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Login attempts partitioned by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	refreshes, err := Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: defaultNamespace,
		Subsystem: "auth",
		Name:      "refreshes_total",
		Help:      "Refresh token exchanges partitioned by source and outcome.",
	}, []string{"source", "outcome"}))
	if err != nil {
		return nil, err
	}

	authentications, err := Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: defaultNamespace,
		Subsystem: "auth",
		Name:      "authentications_total",
		Help:      "Request authentications partitioned by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	hashDuration, err := Register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: defaultNamespace,
		Subsystem: "auth",
		Name:      "password_hash_duration_seconds",
		Help:      "Latency of password hash and verify operations.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"operation"}))
	if err != nil {
		return nil, err
	}

	return &AuthMetrics{
		Logins:          logins,
		Refreshes:       refreshes,
		Authentications: authentications,
		HashDuration:    hashDuration,
	}, nil
}

func (m *AuthMetrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) ObserveRefresh(source, outcome string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(source, outcome).Inc()
}

func (m *AuthMetrics) ObserveAuthentication(outcome string) {
	if m == nil {
		return
	}
	m.Authentications.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) ObservePasswordHash(operation string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HashDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
