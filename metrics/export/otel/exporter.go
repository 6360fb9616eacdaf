package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	tenantAuth "github.com/MrEthical07/tenantAuth"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is the read side of an Engine that the exporter polls.
type Source interface {
	MetricsSnapshot() tenantAuth.MetricsSnapshot
}

type Exporter struct {
	source       Source
	registration metric.Registration

	operations   metric.Int64ObservableCounter
	rateLimited  metric.Int64ObservableCounter
	auditDropped metric.Int64ObservableCounter
	mailDropped  metric.Int64ObservableCounter
}

func NewExporter(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{source: source}

	var err error
	if exporter.operations, err = meter.Int64ObservableCounter(
		"tenantauth.operations",
		metric.WithDescription("Engine operations by outcome."),
	); err != nil {
		return nil, fmt.Errorf("create operations counter: %w", err)
	}
	if exporter.rateLimited, err = meter.Int64ObservableCounter(
		"tenantauth.rate_limited",
		metric.WithDescription("Requests rejected by the rate limiter."),
	); err != nil {
		return nil, fmt.Errorf("create rate limited counter: %w", err)
	}
	if exporter.auditDropped, err = meter.Int64ObservableCounter(
		"tenantauth.audit.dropped",
		metric.WithDescription("Audit events dropped due to dispatcher backpressure."),
	); err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	if exporter.mailDropped, err = meter.Int64ObservableCounter(
		"tenantauth.mail.dropped",
		metric.WithDescription("Notifications dropped because the mail queue was full."),
	); err != nil {
		return nil, fmt.Errorf("create mail dropped counter: %w", err)
	}

	registration, err := meter.RegisterCallback(exporter.observe,
		exporter.operations,
		exporter.rateLimited,
		exporter.auditDropped,
		exporter.mailDropped,
	)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

func (e *Exporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for key, n := range snapshot.Operations {
		observer.ObserveInt64(e.operations, int64(n), metric.WithAttributes(
			attribute.String("operation", key.Operation),
			attribute.String("outcome", key.Outcome),
		))
	}
	for endpoint, n := range snapshot.RateLimited {
		observer.ObserveInt64(e.rateLimited, int64(n), metric.WithAttributes(
			attribute.String("endpoint", endpoint),
		))
	}
	observer.ObserveInt64(e.auditDropped, int64(snapshot.AuditDropped))
	observer.ObserveInt64(e.mailDropped, int64(snapshot.MailDropped))
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
