// Package database defines the record store contract shared by the primary
// (Postgres) and fallback (file snapshot) implementations, along with the
// availability monitor and the per-request store selector.
package database

import (
	"context"

	"github.com/dmarkhas/tinylink/internal/models"
)

// Store is the durable association from short codes to URL records, grouped
// by owner. Both backends implement the same contract so callers can switch
// between them per request without branching on storage details.
type Store interface {
	// CreateOwner inserts a new owner.
	// Returns ErrDuplicateOwner if a non-anonymous owner with the same email exists.
	CreateOwner(ctx context.Context, attrs models.OwnerAttrs) (*models.Owner, error)

	// OwnerByEmail retrieves an owner by email.
	// Returns ErrOwnerNotFound if no owner matches.
	OwnerByEmail(ctx context.Context, email string) (*models.Owner, error)

	// OwnerByID retrieves an owner by its identifier.
	// Returns ErrOwnerNotFound if no owner matches.
	OwnerByID(ctx context.Context, id int64) (*models.Owner, error)

	// FindByShortCode looks a short code up across all owners.
	// Returns ErrRecordNotFound if no record matches.
	FindByShortCode(ctx context.Context, shortCode string) (*models.Owner, *models.URLRecord, error)

	// ShortCodeExists reports whether a short code is already taken.
	// On storage error it returns (false, err): callers that ignore the error
	// treat unknown as "does not exist" so generation can proceed in degraded
	// conditions.
	ShortCodeExists(ctx context.Context, shortCode string) (bool, error)

	// AppendRecord appends a record to the owner's collection.
	// Returns ErrDuplicateShortCode if the uniqueness constraint rejects the
	// write, and ErrOwnerNotFound if the owner does not exist.
	AppendRecord(ctx context.Context, ownerID int64, rec *models.URLRecord) (*models.URLRecord, error)

	// IncrementStats bumps the click count and last-accessed timestamp for a
	// short code. An absent code is a silent no-op, not an error.
	IncrementStats(ctx context.Context, shortCode string) error

	// ListRecords returns the owner's records in insertion order.
	ListRecords(ctx context.Context, ownerID int64) ([]models.URLRecord, error)

	// CollisionStats reports total records against distinct short codes.
	CollisionStats(ctx context.Context) (*models.CollisionStats, error)
}

// Selector picks the store serving a given request: the primary while the
// monitor reports it reachable, the fallback otherwise. Selection happens
// once per request at the service boundary.
type Selector struct {
	primary  Store
	fallback Store
	monitor  *Monitor
}

func NewSelector(primary, fallback Store, monitor *Monitor) *Selector {
	return &Selector{
		primary:  primary,
		fallback: fallback,
		monitor:  monitor,
	}
}

// Active returns the store that should serve the current request.
func (s *Selector) Active() Store {
	if s.monitor.Available() {
		return s.primary
	}
	return s.fallback
}

// FallbackActive reports whether requests are currently served by the
// fallback store. Used by health reporting.
func (s *Selector) FallbackActive() bool {
	return !s.monitor.Available()
}
