package repo

import (
	"context"
	"database/sql"

	"github.com/crucial707/detector/internal/db"
	"github.com/crucial707/detector/internal/models"
)

// ==========================
// IssueRepo
// ==========================
type IssueRepo struct {
	DB *sql.DB
}

func NewIssueRepo(db *sql.DB) *IssueRepo {
	return &IssueRepo{DB: db}
}

// List returns issues newest first, limited to one resource when resourceID is set.
func (r *IssueRepo) List(ctx context.Context, resourceID *int64) ([]models.Issue, error) {
	query := `SELECT id, created, updated, resolved, resource_id, url, issue_type, message FROM issues`
	var args []any
	if resourceID != nil {
		query += ` WHERE resource_id = $1`
		args = append(args, *resourceID)
	}
	query += ` ORDER BY created DESC, id DESC`

	rows, err := db.Executor(ctx, r.DB).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	issues := []models.Issue{}
	for rows.Next() {
		var (
			i        models.Issue
			resolved sql.NullTime
		)
		if err := rows.Scan(&i.ID, &i.Created, &i.Updated, &resolved, &i.ResourceID, &i.URL, &i.IssueType, &i.Message); err != nil {
			return nil, err
		}
		if resolved.Valid {
			t := resolved.Time
			i.Resolved = &t
		}
		issues = append(issues, i)
	}
	return issues, rows.Err()
}

// DeleteByResource hard-deletes every issue of a resource and returns how many were removed.
func (r *IssueRepo) DeleteByResource(ctx context.Context, resourceID int64) (int64, error) {
	result, err := db.Executor(ctx, r.DB).ExecContext(ctx, `DELETE FROM issues WHERE resource_id = $1`, resourceID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountOpen returns the number of unresolved issues.
func (r *IssueRepo) CountOpen(ctx context.Context) (int, error) {
	var n int
	err := db.Executor(ctx, r.DB).QueryRowContext(ctx, `SELECT COUNT(*) FROM issues WHERE resolved IS NULL`).Scan(&n)
	return n, err
}
