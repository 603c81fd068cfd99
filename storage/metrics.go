package storage

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation labels recorded by an instrumented backend.
const (
	opRead   = "read"
	opWrite  = "write"
	opExists = "exists"
	opDelete = "delete"
	opList   = "list"
)

// backendMetrics holds Prometheus metrics for backend operations.
type backendMetrics struct {
	ops      *prometheus.CounterVec   // By operation
	errors   *prometheus.CounterVec   // By operation; not-found reads excluded
	latency  *prometheus.HistogramVec // By operation
	absences prometheus.Counter       // Reads that found no record
}

func newBackendMetrics(reg prometheus.Registerer, kind string) (*backendMetrics, error) {
	labels := prometheus.Labels{"backend": kind}

	m := &backendMetrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "persist",
			Subsystem:   "storage",
			Name:        "operations_total",
			Help:        "Total number of backend operations",
			ConstLabels: labels,
		}, []string{"operation"}),

		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "persist",
			Subsystem:   "storage",
			Name:        "operation_errors_total",
			Help:        "Total number of failed backend operations",
			ConstLabels: labels,
		}, []string{"operation"}),

		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "persist",
			Subsystem:   "storage",
			Name:        "operation_duration_seconds",
			Help:        "Backend operation duration in seconds",
			ConstLabels: labels,
			Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0},
		}, []string{"operation"}),

		absences: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "persist",
			Subsystem:   "storage",
			Name:        "not_found_total",
			Help:        "Total number of reads of absent records",
			ConstLabels: labels,
		}),
	}

	var err error
	if m.ops, err = register(reg, m.ops); err != nil {
		return nil, err
	}
	if m.errors, err = register(reg, m.errors); err != nil {
		return nil, err
	}
	if m.latency, err = register(reg, m.latency); err != nil {
		return nil, err
	}
	if m.absences, err = register(reg, m.absences); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, reusing an identical collector that is already
// registered.
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

func (m *backendMetrics) observe(op string, start time.Time, err error) {
	m.ops.WithLabelValues(op).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		m.absences.Inc()
	default:
		m.errors.WithLabelValues(op).Inc()
	}
}

type instrumentedBackend struct {
	next    Backend
	metrics *backendMetrics
}

// Instrument wraps b so every operation is counted and timed in reg under
// the given backend label. A nil registerer returns b unchanged.
func Instrument(b Backend, reg prometheus.Registerer, kind string) (Backend, error) {
	if reg == nil {
		return b, nil
	}
	m, err := newBackendMetrics(reg, kind)
	if err != nil {
		return nil, err
	}
	return &instrumentedBackend{next: b, metrics: m}, nil
}

func (b *instrumentedBackend) ReadText(ctx context.Context, path string) (string, error) {
	start := time.Now()
	s, err := b.next.ReadText(ctx, path)
	b.metrics.observe(opRead, start, err)
	return s, err
}

func (b *instrumentedBackend) WriteText(ctx context.Context, path, content string) error {
	start := time.Now()
	err := b.next.WriteText(ctx, path, content)
	b.metrics.observe(opWrite, start, err)
	return err
}

func (b *instrumentedBackend) ReadJSON(ctx context.Context, path string, v any) error {
	start := time.Now()
	err := b.next.ReadJSON(ctx, path, v)
	b.metrics.observe(opRead, start, err)
	return err
}

func (b *instrumentedBackend) WriteJSON(ctx context.Context, path string, v any) error {
	start := time.Now()
	err := b.next.WriteJSON(ctx, path, v)
	b.metrics.observe(opWrite, start, err)
	return err
}

func (b *instrumentedBackend) ReadBytes(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	data, err := b.next.ReadBytes(ctx, path)
	b.metrics.observe(opRead, start, err)
	return data, err
}

func (b *instrumentedBackend) WriteBytes(ctx context.Context, path string, data []byte) error {
	start := time.Now()
	err := b.next.WriteBytes(ctx, path, data)
	b.metrics.observe(opWrite, start, err)
	return err
}

func (b *instrumentedBackend) Exists(ctx context.Context, path string) bool {
	start := time.Now()
	ok := b.next.Exists(ctx, path)
	b.metrics.observe(opExists, start, nil)
	return ok
}

func (b *instrumentedBackend) Delete(ctx context.Context, path string) error {
	start := time.Now()
	err := b.next.Delete(ctx, path)
	b.metrics.observe(opDelete, start, err)
	return err
}

func (b *instrumentedBackend) ListDir(ctx context.Context, path string) ([]string, error) {
	start := time.Now()
	names, err := b.next.ListDir(ctx, path)
	b.metrics.observe(opList, start, err)
	return names, err
}
