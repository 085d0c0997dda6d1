package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/crucial707/detector/internal/apperr"
	"github.com/crucial707/detector/internal/change"
	"github.com/crucial707/detector/internal/models"
)

const (
	MaxNameLength = 64
	MaxURLLength  = 1024

	MsgBlankNameOrURL   = "Name and/or URL cannot be blank"
	MsgDuplicate        = "A resource with the same name and URL already exists"
	MsgResourceNotFound = "resource not found"
	MsgUnauthenticated  = "authentication required"

	msgCreated = "Resource created."
	msgUpdated = "Resource updated."
	msgDeleted = "Resource deleted."
)

// ResourcePatch is a partial update. Nil (or blank) fields are left untouched.
type ResourcePatch struct {
	Name   *string
	URL    *string
	Active *bool
}

// BulkCreateResult partitions the URLs of a bulk create.
type BulkCreateResult struct {
	Added         []string `json:"added"`
	AlreadyExists []string `json:"alreadyExists"`
	Failed        []string `json:"failed"`
}

// BulkDeleteResult partitions the identifiers of a bulk delete.
type BulkDeleteResult struct {
	Deleted  []string `json:"deleted"`
	NotFound []string `json:"notFound"`
	Failed   []string `json:"failed"`
}

// BulkToggleResult partitions the identifiers of a bulk toggle.
type BulkToggleResult struct {
	Updated  []string `json:"updated"`
	NotFound []string `json:"notFound"`
	Failed   []string `json:"failed"`
}

// ResourceDeps wires a ResourceService.
type ResourceDeps struct {
	Resources ResourceStore
	Issues    DependentStore
	Alerts    DependentStore
	// ScanResults and Graphs join the delete cascade only when CascadeScanHistory is set.
	ScanResults        DependentStore
	Graphs             DependentStore
	CascadeScanHistory bool

	Audit       AuditWriter
	Tx          Transactor
	Identifiers *IdentifierGenerator
	Logger      *zap.Logger
	Metrics     Recorder
	Now         func() time.Time
}

// ResourceService implements the resource lifecycle: create, update, soft delete and active toggle.
// Every mutation (and every item of a bulk mutation) runs in its own transaction together with its audit entry.
type ResourceService struct {
	resources ResourceStore
	cascade   []DependentStore
	audit     AuditWriter
	tx        Transactor
	ids       *IdentifierGenerator
	logger    *zap.Logger
	metrics   Recorder
	now       func() time.Time
}

func NewResourceService(d ResourceDeps) *ResourceService {
	s := &ResourceService{
		resources: d.Resources,
		audit:     d.Audit,
		tx:        d.Tx,
		ids:       d.Identifiers,
		logger:    d.Logger,
		metrics:   d.Metrics,
		now:       d.Now,
	}
	for _, dep := range []DependentStore{d.Issues, d.Alerts} {
		if dep != nil {
			s.cascade = append(s.cascade, dep)
		}
	}
	if d.CascadeScanHistory {
		for _, dep := range []DependentStore{d.ScanResults, d.Graphs} {
			if dep != nil {
				s.cascade = append(s.cascade, dep)
			}
		}
	}
	if s.ids == nil {
		s.ids = NewIdentifierGenerator()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ========================
// READS
// ========================

// Get returns the non-deleted resource with the given public identifier.
func (s *ResourceService) Get(ctx context.Context, identifier string) (*models.Resource, error) {
	res, err := s.resources.FindLive(ctx, identifier)
	if err != nil {
		return nil, apperr.Internal(err, "load resource")
	}
	if res == nil {
		return nil, apperr.NotFound(MsgResourceNotFound)
	}
	return res, nil
}

// List returns all non-deleted resources ordered by name.
func (s *ResourceService) List(ctx context.Context) ([]models.Resource, error) {
	list, err := s.resources.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list resources")
	}
	return list, nil
}

// ========================
// CREATE
// ========================

// Create adds a resource named name monitoring url.
func (s *ResourceService) Create(ctx context.Context, actor *models.User, name, url string) (res *models.Resource, err error) {
	defer func() { s.observe("create", err) }()

	if actor == nil {
		return nil, apperr.Unauthorized(MsgUnauthenticated)
	}
	name, url = strings.TrimSpace(name), strings.TrimSpace(url)
	if name == "" || url == "" {
		return nil, apperr.Validation(MsgBlankNameOrURL)
	}
	if err := validateLengths(name, url); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.resources.LockCreate(ctx); err != nil {
			return err
		}
		dup, err := s.resources.FindLiveByNameURL(ctx, name, url)
		if err != nil {
			return fmt.Errorf("duplicate check: %w", err)
		}
		if dup != nil {
			return apperr.Validation(MsgDuplicate)
		}

		res, err = s.insert(ctx, actor, name, url)
		return err
	})
	if err != nil {
		return nil, s.boundary(err, "create resource")
	}

	s.logger.Info("resource created",
		zap.String("resource_id", res.Identifier),
		zap.Int64("user_id", actor.ID))
	return res, nil
}

// CreateBulk adds one resource per URL, named after the URL. Each URL is handled in its own
// transaction; a URL already monitored by a non-deleted resource is reported, not added.
func (s *ResourceService) CreateBulk(ctx context.Context, actor *models.User, urls []string) (BulkCreateResult, error) {
	result := BulkCreateResult{Added: []string{}, AlreadyExists: []string{}, Failed: []string{}}
	if actor == nil {
		s.observe("create_bulk", apperr.Unauthorized(MsgUnauthenticated))
		return result, apperr.Unauthorized(MsgUnauthenticated)
	}

	for _, raw := range urls {
		url := normalizeURL(raw)
		if url == "" {
			continue
		}

		var exists bool
		err := s.tx.WithTx(ctx, func(ctx context.Context) error {
			if utf8.RuneCountInString(url) > MaxURLLength {
				return apperr.Validation(fmt.Sprintf("URL must be at most %d characters", MaxURLLength))
			}
			if err := s.resources.LockCreate(ctx); err != nil {
				return err
			}
			dup, err := s.resources.FindLiveByURL(ctx, url)
			if err != nil {
				return fmt.Errorf("duplicate check: %w", err)
			}
			if dup != nil {
				exists = true
				return nil
			}
			name := url
			if utf8.RuneCountInString(name) > MaxNameLength {
				name = string([]rune(name)[:MaxNameLength])
			}
			_, err = s.insert(ctx, actor, name, url)
			return err
		})

		switch {
		case err != nil:
			s.logger.Warn("bulk create item failed", zap.String("url", url), zap.Error(err))
			result.Failed = append(result.Failed, url)
		case exists:
			result.AlreadyExists = append(result.AlreadyExists, url)
		default:
			result.Added = append(result.Added, url)
		}
		s.observe("create", err)
	}
	return result, nil
}

func (s *ResourceService) insert(ctx context.Context, actor *models.User, name, url string) (*models.Resource, error) {
	identifier, err := s.ids.Next(ctx, s.resources.IdentifierExists)
	if err != nil {
		if errors.Is(err, ErrIdentifierExhausted) {
			s.logger.Error("identifier generation exhausted", zap.Int("max_attempts", s.ids.MaxAttempts), zap.Error(err))
		}
		return nil, err
	}

	now := s.now()
	res := &models.Resource{
		Identifier: identifier,
		Created:    now,
		Updated:    now,
		State:      models.StateActive,
		Name:       name,
		URL:        url,
	}
	if err := s.resources.Insert(ctx, res); err != nil {
		return nil, fmt.Errorf("insert resource: %w", err)
	}
	if err := s.writeAudit(ctx, actor, res, models.SeverityInformation, msgCreated); err != nil {
		return nil, err
	}
	return res, nil
}

// ========================
// UPDATE
// ========================

// Update applies a partial patch. Every differing field is recorded as a change entry
// before it is applied; updated only advances when something changed.
func (s *ResourceService) Update(ctx context.Context, actor *models.User, identifier string, patch ResourcePatch) (res *models.Resource, err error) {
	defer func() { s.observe("update", err) }()

	if actor == nil {
		return nil, apperr.Unauthorized(MsgUnauthenticated)
	}

	var newName, newURL string
	if patch.Name != nil {
		newName = strings.TrimSpace(*patch.Name)
	}
	if patch.URL != nil {
		newURL = strings.TrimSpace(*patch.URL)
	}
	if err := validateLengths(newName, newURL); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		res, err = s.resources.FindLiveForUpdate(ctx, identifier)
		if err != nil {
			return fmt.Errorf("load resource: %w", err)
		}
		if res == nil {
			return apperr.NotFound(MsgResourceNotFound)
		}

		var changes change.Set
		if newName != "" && changes.Track("Name", res.Name, newName) {
			res.Name = newName
		}
		if newURL != "" && changes.Track("URL", res.URL, newURL) {
			res.URL = newURL
		}
		if patch.Active != nil {
			next := models.StateFromBool(*patch.Active)
			if changes.Track("Active", res.State.String(), next.String()) {
				res.State = next
			}
		}

		if nameOrURLChanged(changes.Entries()) {
			if err := s.resources.LockCreate(ctx); err != nil {
				return err
			}
			dup, err := s.resources.FindLiveByNameURL(ctx, res.Name, res.URL)
			if err != nil {
				return fmt.Errorf("duplicate check: %w", err)
			}
			if dup != nil && dup.ID != res.ID {
				return apperr.Validation(MsgDuplicate)
			}
		}

		if !changes.Empty() {
			res.Updated = s.now()
			if err := s.resources.Save(ctx, res); err != nil {
				return fmt.Errorf("save resource: %w", err)
			}
		}
		return s.writeAudit(ctx, actor, res, models.SeverityInformation, changes.Message(msgUpdated))
	})
	if err != nil {
		return nil, s.boundary(err, "update resource")
	}
	return res, nil
}

func nameOrURLChanged(entries []change.Entry) bool {
	for _, e := range entries {
		if e.Property == "Name" || e.Property == "URL" {
			return true
		}
	}
	return false
}

// ========================
// DELETE
// ========================

// Delete soft-deletes a resource and hard-deletes its dependents.
func (s *ResourceService) Delete(ctx context.Context, actor *models.User, identifier string) (err error) {
	defer func() { s.observe("delete", err) }()

	if actor == nil {
		return apperr.Unauthorized(MsgUnauthenticated)
	}
	if err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.deleteOne(ctx, actor, identifier)
	}); err != nil {
		return s.boundary(err, "delete resource")
	}
	return nil
}

// DeleteBulk deletes each identifier of a comma-separated list independently.
func (s *ResourceService) DeleteBulk(ctx context.Context, actor *models.User, idList string) (BulkDeleteResult, error) {
	result := BulkDeleteResult{Deleted: []string{}, NotFound: []string{}, Failed: []string{}}
	if actor == nil {
		s.observe("delete_bulk", apperr.Unauthorized(MsgUnauthenticated))
		return result, apperr.Unauthorized(MsgUnauthenticated)
	}

	for _, id := range SplitIDList(idList) {
		err := s.tx.WithTx(ctx, func(ctx context.Context) error {
			return s.deleteOne(ctx, actor, id)
		})
		switch {
		case err == nil:
			result.Deleted = append(result.Deleted, id)
		case apperr.Is(err, apperr.KindNotFound):
			result.NotFound = append(result.NotFound, id)
		default:
			s.logger.Warn("bulk delete item failed", zap.String("resource_id", id), zap.Error(err))
			result.Failed = append(result.Failed, id)
		}
		s.observe("delete", err)
	}
	return result, nil
}

func (s *ResourceService) deleteOne(ctx context.Context, actor *models.User, identifier string) error {
	res, err := s.resources.FindLiveForUpdate(ctx, identifier)
	if err != nil {
		return fmt.Errorf("load resource: %w", err)
	}
	if res == nil {
		return apperr.NotFound(MsgResourceNotFound)
	}

	now := s.now()
	res.Deleted = &now
	res.Updated = now
	if err := s.resources.Save(ctx, res); err != nil {
		return fmt.Errorf("save resource: %w", err)
	}

	for _, dep := range s.cascade {
		if _, err := dep.DeleteByResource(ctx, res.ID); err != nil {
			return fmt.Errorf("cascade delete: %w", err)
		}
	}
	return s.writeAudit(ctx, actor, res, models.SeverityWarning, msgDeleted)
}

// ========================
// TOGGLE ACTIVE
// ========================

// ToggleActive flips active/paused on each identifier of a comma-separated list independently.
func (s *ResourceService) ToggleActive(ctx context.Context, actor *models.User, idList string) (BulkToggleResult, error) {
	result := BulkToggleResult{Updated: []string{}, NotFound: []string{}, Failed: []string{}}
	if actor == nil {
		s.observe("toggle", apperr.Unauthorized(MsgUnauthenticated))
		return result, apperr.Unauthorized(MsgUnauthenticated)
	}

	for _, id := range SplitIDList(idList) {
		err := s.tx.WithTx(ctx, func(ctx context.Context) error {
			res, err := s.resources.FindLiveForUpdate(ctx, id)
			if err != nil {
				return fmt.Errorf("load resource: %w", err)
			}
			if res == nil {
				return apperr.NotFound(MsgResourceNotFound)
			}

			old := res.State
			res.State = old.Toggle()
			res.Updated = s.now()
			if err := s.resources.Save(ctx, res); err != nil {
				return fmt.Errorf("save resource: %w", err)
			}

			msg := change.Message(msgUpdated, []change.Entry{{Property: "Active", Old: old.String(), New: res.State.String()}})
			return s.writeAudit(ctx, actor, res, models.SeverityInformation, msg)
		})
		switch {
		case err == nil:
			result.Updated = append(result.Updated, id)
		case apperr.Is(err, apperr.KindNotFound):
			result.NotFound = append(result.NotFound, id)
		default:
			s.logger.Warn("toggle item failed", zap.String("resource_id", id), zap.Error(err))
			result.Failed = append(result.Failed, id)
		}
		s.observe("toggle", err)
	}
	return result, nil
}

// ========================
// HELPERS
// ========================

func (s *ResourceService) writeAudit(ctx context.Context, actor *models.User, res *models.Resource, severity models.Severity, message string) error {
	userID := actor.ID
	err := s.audit.Log(ctx, models.AuditEntry{
		Created:       s.now(),
		Severity:      severity,
		Message:       message,
		UserID:        &userID,
		ReferenceType: models.ReferenceResource,
		ReferenceID:   res.ID,
	})
	if err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	s.metrics.AuditEntry(severity)
	return nil
}

// boundary converts anything that is not already a kinded error into Internal.
func (s *ResourceService) boundary(err error, op string) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	s.logger.Error(op+" failed", zap.Error(err))
	return apperr.Internal(err, op)
}

func (s *ResourceService) observe(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	s.metrics.ResourceOperation(operation, outcome)
}

func validateLengths(name, url string) error {
	if utf8.RuneCountInString(name) > MaxNameLength {
		return apperr.Validation(fmt.Sprintf("Name must be at most %d characters", MaxNameLength))
	}
	if utf8.RuneCountInString(url) > MaxURLLength {
		return apperr.Validation(fmt.Sprintf("URL must be at most %d characters", MaxURLLength))
	}
	return nil
}

// normalizeURL strips embedded line breaks and surrounding whitespace from a bulk entry.
func normalizeURL(raw string) string {
	raw = strings.ReplaceAll(raw, "\r", "")
	raw = strings.ReplaceAll(raw, "\n", "")
	return strings.TrimSpace(raw)
}

// SplitIDList splits a comma-separated identifier list, dropping blank entries.
func SplitIDList(idList string) []string {
	var ids []string
	for _, id := range strings.Split(idList, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
