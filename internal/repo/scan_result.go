package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/crucial707/detector/internal/db"
	"github.com/crucial707/detector/internal/models"
)

// ==========================
// ScanResultRepo
// ==========================
type ScanResultRepo struct {
	DB *sql.DB
}

func NewScanResultRepo(db *sql.DB) *ScanResultRepo {
	return &ScanResultRepo{DB: db}
}

// ListByResource returns a resource's scan results, newest first.
func (r *ScanResultRepo) ListByResource(ctx context.Context, resourceID int64) ([]models.ScanResult, error) {
	rows, err := db.Executor(ctx, r.DB).QueryContext(ctx,
		`SELECT id, created, updated, resource_id, url, status_code, ssl_error_code, ssl_error_message, connecting_ip, exception_message
		 FROM scan_results
		 WHERE resource_id = $1
		 ORDER BY created DESC, id DESC`,
		resourceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []models.ScanResult{}
	for rows.Next() {
		var (
			s          models.ScanResult
			statusCode sql.NullInt64
			sslCode    sql.NullString
			sslMessage sql.NullString
			ip         sql.NullString
			exception  sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Created, &s.Updated, &s.ResourceID, &s.URL, &statusCode, &sslCode, &sslMessage, &ip, &exception); err != nil {
			return nil, err
		}
		if statusCode.Valid {
			code := int(statusCode.Int64)
			s.StatusCode = &code
		}
		s.SSLErrorCode = nullString(sslCode)
		s.SSLErrorMessage = nullString(sslMessage)
		s.ConnectingIP = nullString(ip)
		s.ExceptionMessage = nullString(exception)
		results = append(results, s)
	}
	return results, rows.Err()
}

// DeleteByResource removes a resource's scan history. Alerts pointing at the rows are detached.
func (r *ScanResultRepo) DeleteByResource(ctx context.Context, resourceID int64) (int64, error) {
	result, err := db.Executor(ctx, r.DB).ExecContext(ctx, `DELETE FROM scan_results WHERE resource_id = $1`, resourceID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ==========================
// GraphRepo
// ==========================
type GraphRepo struct {
	DB *sql.DB
}

func NewGraphRepo(db *sql.DB) *GraphRepo {
	return &GraphRepo{DB: db}
}

// Points returns the stored graph points of a resource; an empty list when nothing is stored.
func (r *GraphRepo) Points(ctx context.Context, resourceID int64) ([]json.RawMessage, error) {
	var raw []byte
	err := db.Executor(ctx, r.DB).QueryRowContext(ctx,
		`SELECT graph_json FROM graph_data WHERE resource_id = $1 LIMIT 1`,
		resourceID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}

	points := []json.RawMessage{}
	if len(raw) == 0 {
		return points, nil
	}
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil, fmt.Errorf("decode graph data for resource %d: %w", resourceID, err)
	}
	return points, nil
}

// DeleteByResource removes the graph data of a resource.
func (r *GraphRepo) DeleteByResource(ctx context.Context, resourceID int64) (int64, error) {
	result, err := db.Executor(ctx, r.DB).ExecContext(ctx, `DELETE FROM graph_data WHERE resource_id = $1`, resourceID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
