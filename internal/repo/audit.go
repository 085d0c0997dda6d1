package repo

import (
	"context"
	"database/sql"

	"github.com/crucial707/detector/internal/db"
	"github.com/crucial707/detector/internal/models"
)

// AuditRepo persists audit log entries.
type AuditRepo struct {
	DB *sql.DB
}

// NewAuditRepo returns a new AuditRepo.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{DB: db}
}

// Log appends an entry. It joins the caller's transaction when ctx carries one.
func (r *AuditRepo) Log(ctx context.Context, entry models.AuditEntry) error {
	_, err := db.Executor(ctx, r.DB).ExecContext(ctx,
		`INSERT INTO logs (created, severity, message, user_id, reference_type, reference_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.Created, string(entry.Severity), entry.Message, entry.UserID, entry.ReferenceType, entry.ReferenceID,
	)
	return err
}

// NoLimit makes ListByReference return every entry.
const NoLimit = -1

// ListByReference returns entries for one referenced row, newest first. A negative limit means no limit;
// zero returns nothing.
func (r *AuditRepo) ListByReference(ctx context.Context, referenceType string, referenceID int64, limit int) ([]models.AuditEntry, error) {
	query := `SELECT id, created, severity, message, user_id, reference_type, reference_id
		FROM logs
		WHERE reference_type = $1 AND reference_id = $2
		ORDER BY created DESC, id DESC`
	args := []any{referenceType, referenceID}
	if limit >= 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := db.Executor(ctx, r.DB).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var (
			e        models.AuditEntry
			severity string
			userID   sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Created, &severity, &e.Message, &userID, &e.ReferenceType, &e.ReferenceID); err != nil {
			return nil, err
		}
		e.Severity = models.Severity(severity)
		if userID.Valid {
			id := userID.Int64
			e.UserID = &id
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
