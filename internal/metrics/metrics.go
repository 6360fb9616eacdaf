package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tenantauth"

// Recorder owns the engine's collectors.
type Recorder struct {
	operations   *prometheus.CounterVec
	rateLimited  *prometheus.CounterVec
	auditDropped prometheus.Counter
	mailDropped  prometheus.Counter
}

// New registers the collectors on reg. A nil reg yields a nil Recorder.
// Collectors already registered by an earlier Recorder are reused.
func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		return nil, nil
	}

	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Authentication operations by outcome.",
		}, []string{"operation", "outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-endpoint rate limiter.",
		}, []string{"endpoint"}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_dropped_total",
			Help:      "Audit events discarded because the buffer was full.",
		}),
		mailDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_dropped_total",
			Help:      "Outgoing emails discarded because the queue was full.",
		}),
	}

	var err error
	if r.operations, err = register(reg, r.operations); err != nil {
		return nil, err
	}
	if r.rateLimited, err = register(reg, r.rateLimited); err != nil {
		return nil, err
	}
	if r.auditDropped, err = register(reg, r.auditDropped); err != nil {
		return nil, err
	}
	if r.mailDropped, err = register(reg, r.mailDropped); err != nil {
		return nil, err
	}
	return r, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Operation counts one completed operation.
func (r *Recorder) Operation(operation, outcome string) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(operation, outcome).Inc()
}

// RateLimited counts one rejected request for endpoint.
func (r *Recorder) RateLimited(endpoint string) {
	if r == nil {
		return
	}
	r.rateLimited.WithLabelValues(endpoint).Inc()
}

func (r *Recorder) AuditDropped() {
	if r == nil {
		return
	}
	r.auditDropped.Inc()
}

func (r *Recorder) MailDropped() {
	if r == nil {
		return
	}
	r.mailDropped.Inc()
}
