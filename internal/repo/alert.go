package repo

import (
	"context"
	"database/sql"

	"github.com/crucial707/detector/internal/db"
	"github.com/crucial707/detector/internal/models"
)

// ==========================
// AlertRepo
// ==========================
type AlertRepo struct {
	DB *sql.DB
}

func NewAlertRepo(db *sql.DB) *AlertRepo {
	return &AlertRepo{DB: db}
}

// List returns alerts newest first, limited to one resource when resourceID is set.
func (r *AlertRepo) List(ctx context.Context, resourceID *int64) ([]models.Alert, error) {
	query := `SELECT id, created, updated, resource_id, scan_result_id, type, url, message FROM alerts`
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

	alerts := []models.Alert{}
	for rows.Next() {
		var (
			a            models.Alert
			scanResultID sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.Created, &a.Updated, &a.ResourceID, &scanResultID, &a.Type, &a.URL, &a.Message); err != nil {
			return nil, err
		}
		if scanResultID.Valid {
			id := scanResultID.Int64
			a.ScanResultID = &id
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// DeleteByResource hard-deletes every alert of a resource and returns how many were removed.
func (r *AlertRepo) DeleteByResource(ctx context.Context, resourceID int64) (int64, error) {
	result, err := db.Executor(ctx, r.DB).ExecContext(ctx, `DELETE FROM alerts WHERE resource_id = $1`, resourceID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
