package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/crucial707/detector/internal/db"
	"github.com/crucial707/detector/internal/models"
)

// createLockKey serializes resource creation (duplicate check, identifier check, insert).
const createLockKey int64 = 0x7265736f75726365

const resourceColumns = `id, identifier, created, updated, deleted, next_scan, status, state, name, url`

// ========================
// REPOSITORY STRUCT
// ========================

type ResourceRepo struct {
	DB *sql.DB
}

func NewResourceRepo(db *sql.DB) *ResourceRepo {
	return &ResourceRepo{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*models.Resource, error) {
	var (
		r        models.Resource
		deleted  sql.NullTime
		nextScan sql.NullTime
		status   sql.NullString
		state    string
	)
	if err := row.Scan(&r.ID, &r.Identifier, &r.Created, &r.Updated, &deleted, &nextScan, &status, &state, &r.Name, &r.URL); err != nil {
		return nil, err
	}
	if deleted.Valid {
		t := deleted.Time
		r.Deleted = &t
	}
	if nextScan.Valid {
		t := nextScan.Time
		r.NextScan = &t
	}
	if status.Valid {
		s := status.String
		r.Status = &s
	}
	r.State = models.ParseActiveState(state)
	return &r, nil
}

func (r *ResourceRepo) findOne(ctx context.Context, where string, args ...any) (*models.Resource, error) {
	return r.queryOne(ctx, `SELECT `+resourceColumns+` FROM resources WHERE deleted IS NULL AND `+where+` LIMIT 1`, args...)
}

func (r *ResourceRepo) queryOne(ctx context.Context, query string, args ...any) (*models.Resource, error) {
	row := db.Executor(ctx, r.DB).QueryRowContext(ctx, query, args...)
	res, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ========================
// LOOKUPS (non-deleted only)
// ========================

// FindLive returns the non-deleted resource with the given public identifier, or nil.
func (r *ResourceRepo) FindLive(ctx context.Context, identifier string) (*models.Resource, error) {
	return r.findOne(ctx, `identifier = $1`, identifier)
}

// FindLiveForUpdate is FindLive with a row lock held until the surrounding
// transaction ends. Concurrent mutations of the same resource queue behind it.
func (r *ResourceRepo) FindLiveForUpdate(ctx context.Context, identifier string) (*models.Resource, error) {
	return r.queryOne(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE deleted IS NULL AND identifier = $1 LIMIT 1 FOR UPDATE`,
		identifier,
	)
}

// FindLiveByNameURL returns the non-deleted resource with exactly this name and url, or nil.
func (r *ResourceRepo) FindLiveByNameURL(ctx context.Context, name, url string) (*models.Resource, error) {
	return r.findOne(ctx, `name = $1 AND url = $2`, name, url)
}

// FindLiveByURL returns a non-deleted resource with this url, or nil.
func (r *ResourceRepo) FindLiveByURL(ctx context.Context, url string) (*models.Resource, error) {
	return r.findOne(ctx, `url = $1`, url)
}

// IdentifierExists checks deleted and non-deleted rows alike.
func (r *ResourceRepo) IdentifierExists(ctx context.Context, identifier string) (bool, error) {
	var exists bool
	err := db.Executor(ctx, r.DB).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM resources WHERE identifier = $1)`,
		identifier,
	).Scan(&exists)
	return exists, err
}

// ========================
// LOCK CREATE
// ========================

// LockCreate takes a transaction-scoped advisory lock. Must run inside a transaction.
func (r *ResourceRepo) LockCreate(ctx context.Context) error {
	_, err := db.Executor(ctx, r.DB).ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, createLockKey)
	if err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

// ========================
// INSERT RESOURCE
// ========================

// Insert persists res and sets its internal id.
func (r *ResourceRepo) Insert(ctx context.Context, res *models.Resource) error {
	return db.Executor(ctx, r.DB).QueryRowContext(ctx,
		`INSERT INTO resources (identifier, created, updated, next_scan, status, state, name, url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		res.Identifier, res.Created, res.Updated, res.NextScan, res.Status, string(res.State), res.Name, res.URL,
	).Scan(&res.ID)
}

// ========================
// SAVE RESOURCE
// ========================

// Save writes the mutable columns of res back by internal id.
func (r *ResourceRepo) Save(ctx context.Context, res *models.Resource) error {
	result, err := db.Executor(ctx, r.DB).ExecContext(ctx,
		`UPDATE resources
		 SET updated = $1, deleted = $2, state = $3, name = $4, url = $5
		 WHERE id = $6`,
		res.Updated, res.Deleted, string(res.State), res.Name, res.URL, res.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("resource %d: %w", res.ID, sql.ErrNoRows)
	}
	return nil
}

// ========================
// LIST RESOURCES
// ========================

// List returns all non-deleted resources ordered by name.
func (r *ResourceRepo) List(ctx context.Context) ([]models.Resource, error) {
	rows, err := db.Executor(ctx, r.DB).QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE deleted IS NULL ORDER BY name, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []models.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, *res)
	}
	return resources, rows.Err()
}

// CountLive returns the number of non-deleted resources.
func (r *ResourceRepo) CountLive(ctx context.Context) (int, error) {
	var n int
	err := db.Executor(ctx, r.DB).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM resources WHERE deleted IS NULL`,
	).Scan(&n)
	return n, err
}
