package service

import (
	"context"
	"time"

	"github.com/crucial707/detector/internal/models"
)

// ResourceStore is the persistence surface the lifecycle operations need.
// Lookups return nil, nil when nothing matches.
type ResourceStore interface {
	FindLive(ctx context.Context, identifier string) (*models.Resource, error)
	// FindLiveForUpdate locks the row for the rest of the transaction.
	FindLiveForUpdate(ctx context.Context, identifier string) (*models.Resource, error)
	FindLiveByNameURL(ctx context.Context, name, url string) (*models.Resource, error)
	FindLiveByURL(ctx context.Context, url string) (*models.Resource, error)
	IdentifierExists(ctx context.Context, identifier string) (bool, error)
	LockCreate(ctx context.Context) error
	Insert(ctx context.Context, res *models.Resource) error
	Save(ctx context.Context, res *models.Resource) error
	List(ctx context.Context) ([]models.Resource, error)
}

// DependentStore removes rows that reference a resource.
type DependentStore interface {
	DeleteByResource(ctx context.Context, resourceID int64) (int64, error)
}

// AuditWriter appends audit log entries.
type AuditWriter interface {
	Log(ctx context.Context, entry models.AuditEntry) error
}

// Transactor runs fn in one transaction bound to the context passed to it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserStore is what the authorization resolver needs from the user table.
type UserStore interface {
	List(ctx context.Context) ([]models.User, error)
	Upsert(ctx context.Context, email, name, pictureURL string, now time.Time) (*models.User, error)
}

// Recorder receives operation outcomes for metrics.
type Recorder interface {
	ResourceOperation(operation, outcome string)
	AuditEntry(severity models.Severity)
}

type nopRecorder struct{}

func (nopRecorder) ResourceOperation(string, string) {}
func (nopRecorder) AuditEntry(models.Severity)       {}
