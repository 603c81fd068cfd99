package observability

import (
	"fmt"
	"log/slog"
	"sync"
)

var (
	observers = map[string]func(*slog.Logger) Observer{
		"noop": func(*slog.Logger) Observer { return NoOpObserver{} },
		"slog": func(l *slog.Logger) Observer { return NewSlogObserver(l) },
	}
	mutex sync.RWMutex
)

// GetObserver builds the observer registered under name, bound to logger.
// Pre-registered names: "noop" and "slog".
func GetObserver(name string, logger *slog.Logger) (Observer, error) {
	mutex.RLock()
	defer mutex.RUnlock()

	factory, exists := observers[name]
	if !exists {
		return nil, fmt.Errorf("unknown observer: %s", name)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return factory(logger), nil
}

// RegisterObserver adds or replaces a named observer factory.
func RegisterObserver(name string, factory func(*slog.Logger) Observer) {
	mutex.Lock()
	defer mutex.Unlock()

	observers[name] = factory
}
