// Package manager maps agent-domain entities onto canonical record paths and
// persists them through a storage.Backend.
//
// A Manager is normally created once at startup and passed to every consumer:
//
//	mgr, err := manager.Open(ctx, &cfg.Storage, manager.WithObserver(obs))
//	state, found, err := mgr.LoadAgentState(ctx, userID)
//
// Load operations report absence through a found flag rather than an error,
// so callers can tell "never saved" apart from "saved but unreadable".
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tailored-agentic-units/persist/observability"
	"github.com/tailored-agentic-units/persist/storage"
)

// Option configures a Manager during construction.
type Option func(*Manager)

// WithObserver overrides the default NoOpObserver.
func WithObserver(o observability.Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithMetrics instruments the backend with Prometheus metrics registered in
// reg, labelled with the backend kind.
func WithMetrics(reg prometheus.Registerer, kind string) Option {
	return func(m *Manager) {
		m.registerer = reg
		m.kind = kind
	}
}

// Manager is the domain façade over one backend. It is safe for concurrent
// use; operations on distinct keys touch disjoint records.
type Manager struct {
	id         string
	backend    storage.Backend
	observer   observability.Observer
	registerer prometheus.Registerer
	kind       string
}

// New creates a Manager over backend. Each Manager is assigned a unique
// UUIDv7 that tags its events.
func New(backend storage.Backend, opts ...Option) (*Manager, error) {
	if backend == nil {
		return nil, errors.New("manager: nil backend")
	}

	m := &Manager{
		id:       uuid.Must(uuid.NewV7()).String(),
		backend:  backend,
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.registerer != nil {
		instrumented, err := storage.Instrument(m.backend, m.registerer, m.kind)
		if err != nil {
			return nil, fmt.Errorf("failed to instrument backend: %w", err)
		}
		m.backend = instrumented
	}
	return m, nil
}

var (
	shared   *Manager
	sharedMu sync.Mutex
)

// Open returns the process-wide Manager. The first successful call builds
// the backend from cfg; every later call returns that same Manager and
// ignores its arguments. A failed call leaves nothing memoized.
func Open(ctx context.Context, cfg *storage.Config, opts ...Option) (*Manager, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared != nil {
		return shared, nil
	}

	backend, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}

	m, err := New(backend, opts...)
	if err != nil {
		return nil, err
	}
	shared = m
	return shared, nil
}

// ID returns the Manager's instance identifier.
func (m *Manager) ID() string {
	return m.id
}

// Backend returns the backend the Manager writes through, for collaborators
// that need raw record access.
func (m *Manager) Backend() storage.Backend {
	return m.backend
}

func (m *Manager) emit(ctx context.Context, typ observability.EventType, level observability.Level, source string, data map[string]any) {
	if data == nil {
		data = make(map[string]any, 1)
	}
	data["manager_id"] = m.id
	observability.Emit(ctx, m.observer, typ, level, source, data)
}

// loadJSON decodes the record at path into v, reporting absence as false.
func (m *Manager) loadJSON(ctx context.Context, path string, v any) (bool, error) {
	if err := m.backend.ReadJSON(ctx, path, v); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// loadText reads the record at path, reporting absence as false.
func (m *Manager) loadText(ctx context.Context, path string) (string, bool, error) {
	s, err := m.backend.ReadText(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return s, true, nil
}
