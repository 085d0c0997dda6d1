package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/crucial707/detector/internal/apperr"
	"github.com/crucial707/detector/internal/models"
)

// MsgResourceIDRequired is returned when a history query omits its resource.
const MsgResourceIDRequired = "The query-parameter 'resourceId' is required"

// ResourceLookup resolves a public identifier to a non-deleted resource.
type ResourceLookup interface {
	Get(ctx context.Context, identifier string) (*models.Resource, error)
}

type IssueLister interface {
	List(ctx context.Context, resourceID *int64) ([]models.Issue, error)
}

type AlertLister interface {
	List(ctx context.Context, resourceID *int64) ([]models.Alert, error)
}

type ScanResultLister interface {
	ListByResource(ctx context.Context, resourceID int64) ([]models.ScanResult, error)
}

type AuditLister interface {
	// A negative limit returns every entry.
	ListByReference(ctx context.Context, referenceType string, referenceID int64, limit int) ([]models.AuditEntry, error)
}

type GraphReader interface {
	Points(ctx context.Context, resourceID int64) ([]json.RawMessage, error)
}

// HistoryHandler serves the read-only views of what the scanner and the audit log recorded.
type HistoryHandler struct {
	Resources ResourceLookup
	Issues    IssueLister
	Alerts    AlertLister
	Results   ScanResultLister
	Logs      AuditLister
	Graphs    GraphReader
	Logger    *zap.Logger
}

// resolve returns the internal id for the resourceId query parameter; nil when it is absent.
func (h *HistoryHandler) resolve(r *http.Request, identifier string) (*int64, error) {
	if identifier == "" {
		return nil, nil
	}
	res, err := h.Resources.Get(r.Context(), identifier)
	if err != nil {
		return nil, err
	}
	return &res.ID, nil
}

// ==========================
// Issues / Alerts
// ==========================

// ListIssues returns all issues, or those of one resource when resourceId is given.
func (h *HistoryHandler) ListIssues(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolve(r, r.URL.Query().Get("resourceId"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	issues, err := h.Issues.List(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, apperr.Internal(err, "list issues"))
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

// ListAlerts returns all alerts, or those of one resource when resourceId is given.
func (h *HistoryHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolve(r, r.URL.Query().Get("resourceId"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	alerts, err := h.Alerts.List(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, apperr.Internal(err, "list alerts"))
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// ==========================
// Results / Logs / Graph
// ==========================

func (h *HistoryHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("resourceId")
	if identifier == "" {
		JSONError(w, MsgResourceIDRequired, http.StatusBadRequest)
		return
	}
	id, err := h.resolve(r, identifier)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	results, err := h.Results.ListByResource(r.Context(), *id)
	if err != nil {
		writeError(w, h.Logger, apperr.Internal(err, "list scan results"))
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// ListLogs returns the audit entries of one resource, newest first. Query: resourceId (required), limit (optional).
func (h *HistoryHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	identifier := q.Get("resourceId")
	if identifier == "" {
		JSONError(w, MsgResourceIDRequired, http.StatusBadRequest)
		return
	}
	limit := -1
	if l := q.Get("limit"); l != "" {
		val, err := strconv.Atoi(l)
		if err != nil || val < 0 {
			JSONValidationError(w, "validation failed", map[string]string{"limit": "must be a non-negative integer"}, http.StatusBadRequest)
			return
		}
		limit = val
	}

	id, err := h.resolve(r, identifier)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	entries, err := h.Logs.ListByReference(r.Context(), models.ReferenceResource, *id, limit)
	if err != nil {
		writeError(w, h.Logger, apperr.Internal(err, "list audit entries"))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *HistoryHandler) Graph(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolve(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if id == nil {
		JSONError(w, "resource not found", http.StatusNotFound)
		return
	}
	points, err := h.Graphs.Points(r.Context(), *id)
	if err != nil {
		writeError(w, h.Logger, apperr.Internal(err, "load graph"))
		return
	}
	writeJSON(w, http.StatusOK, points)
}
