package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/crucial707/detector/internal/db"
	"github.com/crucial707/detector/internal/models"
)

const userColumns = `id, created, updated, email, name, picture_url`

// ==========================
// UserRepo
// ==========================
type UserRepo struct {
	DB *sql.DB
}

// ==========================
// Constructor
// ==========================
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	if err := row.Scan(&u.ID, &u.Created, &u.Updated, &u.Email, &u.Name, &u.PictureURL); err != nil {
		return nil, err
	}
	return u, nil
}

// ==========================
// Get By ID
// ==========================
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(db.Executor(ctx, r.DB).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// ==========================
// Get By Email
// ==========================

// GetByEmail looks up a user by lower-cased email. Returns nil, nil when absent.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(db.Executor(ctx, r.DB).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// ==========================
// Upsert By Email
// ==========================

// Upsert creates the user for email, or refreshes name and picture of the existing one.
// A concurrent insert of the same email is resolved by reading the winner back.
func (r *UserRepo) Upsert(ctx context.Context, email, name, pictureURL string, now time.Time) (*models.User, error) {
	email = strings.ToLower(email)

	existing, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		u, err := scanUser(db.Executor(ctx, r.DB).QueryRowContext(ctx,
			`INSERT INTO users (created, updated, email, name, picture_url)
			 VALUES ($1, $1, $2, $3, $4)
			 RETURNING `+userColumns,
			now, email, name, pictureURL))
		if err == nil {
			return u, nil
		}
		var pqErr *pq.Error
		if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
			return nil, err
		}
		if existing, err = r.GetByEmail(ctx, email); err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("user %s: %w", email, sql.ErrNoRows)
		}
	}

	return scanUser(db.Executor(ctx, r.DB).QueryRowContext(ctx,
		`UPDATE users SET updated = $1, name = $2, picture_url = $3
		 WHERE id = $4
		 RETURNING `+userColumns,
		now, name, pictureURL, existing.ID))
}

// ==========================
// List Users
// ==========================
func (r *UserRepo) List(ctx context.Context) ([]models.User, error) {
	rows, err := db.Executor(ctx, r.DB).QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
