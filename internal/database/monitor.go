package database

import (
	"log/slog"
	"sync/atomic"
)

// Monitor caches the primary store's reachability. Reads are cheap and
// non-blocking; the flag is updated only by the connection manager's event
// callbacks, never by request handlers.
type Monitor struct {
	available atomic.Bool
	logger    *slog.Logger
}

// NewMonitor creates a monitor that starts in the unavailable state. The
// connection manager marks it up once the first ping succeeds.
func NewMonitor(logger *slog.Logger) *Monitor {
	return &Monitor{logger: logger}
}

// Available reports whether the primary store is currently reachable.
func (m *Monitor) Available() bool {
	return m.available.Load()
}

// MarkUp records a connected or reconnected transition.
func (m *Monitor) MarkUp() {
	if !m.available.Swap(true) {
		m.logger.Info("primary store connected")
	}
}

// MarkDown records a disconnected transition.
func (m *Monitor) MarkDown() {
	if m.available.Swap(false) {
		m.logger.Warn("primary store disconnected, serving from fallback store")
	}
}
