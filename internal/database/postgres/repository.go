package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dmarkhas/tinylink/internal/database"
	"github.com/dmarkhas/tinylink/internal/models"
)

type ownerRow struct {
	ID        int64     `db:"id"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	Email     string    `db:"email"`
	Anonymous bool      `db:"anonymous"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *ownerRow) toOwner() *models.Owner {
	return &models.Owner{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Anonymous: r.Anonymous,
		CreatedAt: r.CreatedAt,
	}
}

type urlRow struct {
	ID           int64      `db:"id"`
	OwnerID      int64      `db:"owner_id"`
	ShortCode    string     `db:"short_code"`
	OriginalURL  string     `db:"original_url"`
	ShortURL     string     `db:"short_url"`
	ClickCount   int64      `db:"click_count"`
	LastAccessed *time.Time `db:"last_accessed"`
	CreatedAt    time.Time  `db:"created_at"`
}

func (r *urlRow) toRecord() *models.URLRecord {
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

// Store implements database.Store on PostgreSQL. Every operation runs under a
// bounded timeout so a degraded database cannot stall a request indefinitely.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewStore(db *sqlx.DB, timeout time.Duration) *Store {
	return &Store{
		db:      db,
		timeout: timeout,
	}
}

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) CreateOwner(ctx context.Context, attrs models.OwnerAttrs) (*models.Owner, error) {
	const op = "database.postgres.Store.CreateOwner"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := new(ownerRow)
	query := `INSERT INTO owners(first_name, last_name, email, anonymous)
		VALUES ($1, $2, $3, $4)
		RETURNING *`

	err := s.db.GetContext(ctx, row, query, attrs.FirstName, attrs.LastName, attrs.Email, attrs.Anonymous)
	if err != nil {
		if isUniqueViolation(err, ownerEmailConstraint) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrDuplicateOwner)
		}

		return nil, fmt.Errorf("%s: failed to create owner: %w", op, err)
	}

	return row.toOwner(), nil
}

func (s *Store) OwnerByEmail(ctx context.Context, email string) (*models.Owner, error) {
	const op = "database.postgres.Store.OwnerByEmail"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := new(ownerRow)
	query := `SELECT * FROM owners WHERE email = $1`

	err := s.db.GetContext(ctx, row, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrOwnerNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get owner: %w", op, err)
	}

	return row.toOwner(), nil
}

func (s *Store) OwnerByID(ctx context.Context, id int64) (*models.Owner, error) {
	const op = "database.postgres.Store.OwnerByID"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := new(ownerRow)
	query := `SELECT * FROM owners WHERE id = $1`

	err := s.db.GetContext(ctx, row, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrOwnerNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get owner: %w", op, err)
	}

	return row.toOwner(), nil
}

// FindByShortCode queries across all owners. This is the uniqueness-enforcing
// read path: a short code matches at most one record regardless of owner.
func (s *Store) FindByShortCode(ctx context.Context, shortCode string) (*models.Owner, *models.URLRecord, error) {
	const op = "database.postgres.Store.FindByShortCode"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var row struct {
		ownerRow
		URL urlRow `db:"url"`
	}
	query := `SELECT o.id, o.first_name, o.last_name, o.email, o.anonymous, o.created_at,
			u.id AS "url.id", u.owner_id AS "url.owner_id", u.short_code AS "url.short_code",
			u.original_url AS "url.original_url", u.short_url AS "url.short_url",
			u.click_count AS "url.click_count", u.last_accessed AS "url.last_accessed",
			u.created_at AS "url.created_at"
		FROM urls u
		JOIN owners o ON o.id = u.owner_id
		WHERE u.short_code = $1`

	err := s.db.GetContext(ctx, &row, query, shortCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, fmt.Errorf("%s: %w", op, database.ErrRecordNotFound)
		}

		return nil, nil, fmt.Errorf("%s: failed to find record: %w", op, err)
	}

	return row.ownerRow.toOwner(), row.URL.toRecord(), nil
}

func (s *Store) ShortCodeExists(ctx context.Context, shortCode string) (bool, error) {
	const op = "database.postgres.Store.ShortCodeExists"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM urls WHERE short_code = $1)`

	err := s.db.GetContext(ctx, &exists, query, shortCode)
	if err != nil {
		return false, fmt.Errorf("%s: failed to check short code: %w", op, err)
	}

	return exists, nil
}

func (s *Store) AppendRecord(ctx context.Context, ownerID int64, rec *models.URLRecord) (*models.URLRecord, error) {
	const op = "database.postgres.Store.AppendRecord"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := new(urlRow)
	query := `INSERT INTO urls(owner_id, short_code, original_url, short_url)
		VALUES ($1, $2, $3, $4)
		RETURNING *`

	err := s.db.GetContext(ctx, row, query, ownerID, rec.ShortCode, rec.OriginalURL, rec.ShortURL)
	if err != nil {
		if isUniqueViolation(err, shortCodeConstraint) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrDuplicateShortCode)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrOwnerNotFound)
		}

		return nil, fmt.Errorf("%s: failed to append record: %w", op, err)
	}

	return row.toRecord(), nil
}

// IncrementStats atomically bumps click_count and last_accessed. The update
// is a single statement so concurrent resolutions never lose increments.
func (s *Store) IncrementStats(ctx context.Context, shortCode string) error {
	const op = "database.postgres.Store.IncrementStats"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `UPDATE urls
		SET click_count = click_count + 1, last_accessed = now()
		WHERE short_code = $1`

	if _, err := s.db.ExecContext(ctx, query, shortCode); err != nil {
		return fmt.Errorf("%s: failed to increment stats: %w", op, err)
	}

	return nil
}

func (s *Store) ListRecords(ctx context.Context, ownerID int64) ([]models.URLRecord, error) {
	const op = "database.postgres.Store.ListRecords"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var rows []urlRow
	query := `SELECT * FROM urls WHERE owner_id = $1 ORDER BY id`

	if err := s.db.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, fmt.Errorf("%s: failed to list records: %w", op, err)
	}

	records := make([]models.URLRecord, 0, len(rows))
	for i := range rows {
		records = append(records, *rows[i].toRecord())
	}

	return records, nil
}

func (s *Store) CollisionStats(ctx context.Context) (*models.CollisionStats, error) {
	const op = "database.postgres.Store.CollisionStats"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var row struct {
		Total    int64 `db:"total"`
		Distinct int64 `db:"distinct"`
	}
	query := `SELECT count(*) AS total, count(DISTINCT short_code) AS "distinct" FROM urls`

	if err := s.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("%s: failed to get collision stats: %w", op, err)
	}

	return &models.CollisionStats{
		TotalRecords:  row.Total,
		DistinctCodes: row.Distinct,
	}, nil
}
