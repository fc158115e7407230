package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dmarkhas/tinylink/internal/database"
)

const (
	defaultHeartbeat   = 10 * time.Second
	defaultRetryDelay  = 2 * time.Second
	defaultMaxRetries  = 5
	defaultPingTimeout = 5 * time.Second
)

// Manager owns the database connection state. It pings on a heartbeat,
// updates the availability monitor on transitions, and retries lost
// connections with linear backoff up to a retry ceiling before falling back
// to the regular heartbeat. It is the only writer of the monitor's flag.
type Manager struct {
	db      *sqlx.DB
	monitor *database.Monitor
	logger  *slog.Logger

	heartbeat   time.Duration
	retryDelay  time.Duration
	maxRetries  int
	pingTimeout time.Duration
}

func NewManager(db *sqlx.DB, monitor *database.Monitor, logger *slog.Logger) *Manager {
	return &Manager{
		db:          db,
		monitor:     monitor,
		logger:      logger,
		heartbeat:   defaultHeartbeat,
		retryDelay:  defaultRetryDelay,
		maxRetries:  defaultMaxRetries,
		pingTimeout: defaultPingTimeout,
	}
}

// Run drives the heartbeat loop until ctx is cancelled. An initial ping runs
// immediately so the monitor reflects reality before the first request.
func (m *Manager) Run(ctx context.Context) error {
	m.check(ctx)

	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Manager) check(ctx context.Context) {
	if m.ping(ctx) {
		m.monitor.MarkUp()
		return
	}
	m.monitor.MarkDown()
	m.reconnect(ctx)
}

// reconnect retries with linear backoff: retryDelay * attempt, up to
// maxRetries. Giving up here is not fatal; the heartbeat keeps probing.
func (m *Manager) reconnect(ctx context.Context) {
	for attempt := 1; attempt <= m.maxRetries; attempt++ {
		delay := m.retryDelay * time.Duration(attempt)
		m.logger.Info("retrying primary store connection",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", m.maxRetries),
			slog.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if m.ping(ctx) {
			m.monitor.MarkUp()
			return
		}
	}

	m.logger.Error("primary store unreachable after all retries")
}

func (m *Manager) ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.pingTimeout)
	defer cancel()

	if err := m.db.PingContext(ctx); err != nil {
		m.logger.Debug("primary store ping failed", slog.Any("err", err))
		return false
	}
	return true
}
