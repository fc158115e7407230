// Package file implements the fallback record store as a single JSON
// snapshot on local disk. Every mutation is a full read-modify-write of the
// snapshot behind a process-wide mutex, which makes it a single-writer store:
// safe for single-process degraded operation, still subject to lost updates
// if multiple processes share the same file.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmarkhas/tinylink/internal/database"
	"github.com/dmarkhas/tinylink/internal/models"
)

type recordSnapshot struct {
	ID           int64      `json:"id"`
	ShortCode    string     `json:"shortCode"`
	OriginalURL  string     `json:"originalUrl"`
	ShortURL     string     `json:"shortUrl"`
	ClickCount   int64      `json:"clickCount"`
	LastAccessed *time.Time `json:"lastAccessed"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type ownerSnapshot struct {
	ID        int64            `json:"id"`
	FirstName string           `json:"firstName"`
	LastName  string           `json:"lastName"`
	Email     string           `json:"email"`
	Anonymous bool             `json:"anonymous"`
	CreatedAt time.Time        `json:"createdAt"`
	URLs      []recordSnapshot `json:"urls"`
}

func (o *ownerSnapshot) toOwner() *models.Owner {
	return &models.Owner{
		ID:        o.ID,
		FirstName: o.FirstName,
		LastName:  o.LastName,
		Email:     o.Email,
		Anonymous: o.Anonymous,
		CreatedAt: o.CreatedAt,
	}
}

func (r *recordSnapshot) toRecord() *models.URLRecord {
	return &models.URLRecord{
		ID:           r.ID,
		ShortCode:    r.ShortCode,
		OriginalURL:  r.OriginalURL,
		ShortURL:     r.ShortURL,
		ClickCount:   r.ClickCount,
		LastAccessed: r.LastAccessed,
		CreatedAt:    r.CreatedAt,
	}
}

// Store implements database.Store on a local JSON snapshot.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a file store writing its snapshot at path. The parent
// directory is created if missing.
func NewStore(path string) (*Store, error) {
	const op = "database.file.NewStore"

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%s: failed to create data directory: %w", op, err)
	}

	return &Store{path: path}, nil
}

func (s *Store) load() ([]ownerSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var owners []ownerSnapshot
	if err := json.Unmarshal(data, &owners); err != nil {
		// A corrupt snapshot is treated as empty rather than wedging the
		// degraded path entirely.
		return nil, nil
	}

	return owners, nil
}

func (s *Store) save(owners []ownerSnapshot) error {
	data, err := json.MarshalIndent(owners, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, s.path)
}

func (s *Store) CreateOwner(ctx context.Context, attrs models.OwnerAttrs) (*models.Owner, error) {
	const op = "database.file.Store.CreateOwner"

	s.mu.Lock()
	defer s.mu.Unlock()

	owners, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load snapshot: %w", op, err)
	}

	for i := range owners {
		if owners[i].Email == attrs.Email {
			return nil, fmt.Errorf("%s: %w", op, database.ErrDuplicateOwner)
		}
	}

	owner := ownerSnapshot{
		ID:        time.Now().UnixMilli() + rand.Int63n(1000),
		FirstName: attrs.FirstName,
		LastName:  attrs.LastName,
		Email:     attrs.Email,
		Anonymous: attrs.Anonymous,
		CreatedAt: time.Now().UTC(),
	}
	owners = append(owners, owner)

	if err := s.save(owners); err != nil {
		return nil, fmt.Errorf("%s: failed to save snapshot: %w", op, err)
	}

	return owner.toOwner(), nil
}

func (s *Store) OwnerByEmail(ctx context.Context, email string) (*models.Owner, error) {
	const op = "database.file.Store.OwnerByEmail"

	s.mu.Lock()
	defer s.mu.Unlock()

	owners, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load snapshot: %w", op, err)
	}

	for i := range owners {
		if owners[i].Email == email {
			return owners[i].toOwner(), nil
		}
	}

	return nil, fmt.Errorf("%s: %w", op, database.ErrOwnerNotFound)
}

func (s *Store) OwnerByID(ctx context.Context, id int64) (*models.Owner, error) {
	const op = "database.file.Store.OwnerByID"

	s.mu.Lock()
	defer s.mu.Unlock()

	owners, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load snapshot: %w", op, err)
	}

	for i := range owners {
		if owners[i].ID == id {
			return owners[i].toOwner(), nil
		}
	}

	return nil, fmt.Errorf("%s: %w", op, database.ErrOwnerNotFound)
}

func (s *Store) FindByShortCode(ctx context.Context, shortCode string) (*models.Owner, *models.URLRecord, error) {
	const op = "database.file.Store.FindByShortCode"

	s.mu.Lock()
	defer s.mu.Unlock()

	owners, err := s.load()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to load snapshot: %w", op, err)
	}

	for i := range owners {
		for j := range owners[i].URLs {
			if owners[i].URLs[j].ShortCode == shortCode {
				return owners[i].toOwner(), owners[i].URLs[j].toRecord(), nil
			}
		}
	}

	return nil, nil, fmt.Errorf("%s: %w", op, database.ErrRecordNotFound)
}

func (s *Store) ShortCodeExists(ctx context.Context, shortCode string) (bool, error) {
	_, _, err := s.FindByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, database.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) AppendRecord(ctx context.Context, ownerID int64, rec *models.URLRecord) (*models.URLRecord, error) {
	const op = "database.file.Store.AppendRecord"

	s.mu.Lock()
	defer s.mu.Unlock()

	owners, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load snapshot: %w", op, err)
	}

	// The snapshot has no database constraint behind it, so the uniqueness
	// check happens here, inside the same critical section as the write.
	var nextID int64 = 1
	for i := range owners {
		for j := range owners[i].URLs {
			if owners[i].URLs[j].ShortCode == rec.ShortCode {
				return nil, fmt.Errorf("%s: %w", op, database.ErrDuplicateShortCode)
			}
			if owners[i].URLs[j].ID >= nextID {
				nextID = owners[i].URLs[j].ID + 1
			}
		}
	}

	idx := -1
	for i := range owners {
		if owners[i].ID == ownerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("%s: %w", op, database.ErrOwnerNotFound)
	}

	snap := recordSnapshot{
		ID:          nextID,
		ShortCode:   rec.ShortCode,
		OriginalURL: rec.OriginalURL,
		ShortURL:    rec.ShortURL,
		CreatedAt:   time.Now().UTC(),
	}
	owners[idx].URLs = append(owners[idx].URLs, snap)

	if err := s.save(owners); err != nil {
		return nil, fmt.Errorf("%s: failed to save snapshot: %w", op, err)
	}

	return snap.toRecord(), nil
}

func (s *Store) IncrementStats(ctx context.Context, shortCode string) error {
	const op = "database.file.Store.IncrementStats"

	s.mu.Lock()
	defer s.mu.Unlock()

	owners, err := s.load()
	if err != nil {
		return fmt.Errorf("%s: failed to load snapshot: %w", op, err)
	}

	for i := range owners {
		for j := range owners[i].URLs {
			if owners[i].URLs[j].ShortCode == shortCode {
				now := time.Now().UTC()
				owners[i].URLs[j].ClickCount++
				owners[i].URLs[j].LastAccessed = &now

				if err := s.save(owners); err != nil {
					return fmt.Errorf("%s: failed to save snapshot: %w", op, err)
				}
				return nil
			}
		}
	}

	// Absent code is a no-op per the store contract.
	return nil
}

func (s *Store) ListRecords(ctx context.Context, ownerID int64) ([]models.URLRecord, error) {
	const op = "database.file.Store.ListRecords"

	s.mu.Lock()
	defer s.mu.Unlock()

	owners, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load snapshot: %w", op, err)
	}

	for i := range owners {
		if owners[i].ID != ownerID {
			continue
		}

		records := make([]models.URLRecord, 0, len(owners[i].URLs))
		for j := range owners[i].URLs {
			records = append(records, *owners[i].URLs[j].toRecord())
		}
		return records, nil
	}

	return nil, fmt.Errorf("%s: %w", op, database.ErrOwnerNotFound)
}

func (s *Store) CollisionStats(ctx context.Context) (*models.CollisionStats, error) {
	const op = "database.file.Store.CollisionStats"

	s.mu.Lock()
	defer s.mu.Unlock()

	owners, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load snapshot: %w", op, err)
	}

	var total int64
	codes := make(map[string]struct{})
	for i := range owners {
		for j := range owners[i].URLs {
			total++
			codes[owners[i].URLs[j].ShortCode] = struct{}{}
		}
	}

	return &models.CollisionStats{
		TotalRecords:  total,
		DistinctCodes: int64(len(codes)),
	}, nil
}
