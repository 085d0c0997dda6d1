package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crucial707/detector/internal/middleware"
	"github.com/crucial707/detector/internal/models"
	"github.com/crucial707/detector/internal/service"
)

// ResourceAPI is the resource lifecycle surface the handler drives.
type ResourceAPI interface {
	Get(ctx context.Context, identifier string) (*models.Resource, error)
	List(ctx context.Context) ([]models.Resource, error)
	Create(ctx context.Context, actor *models.User, name, url string) (*models.Resource, error)
	CreateBulk(ctx context.Context, actor *models.User, urls []string) (service.BulkCreateResult, error)
	Update(ctx context.Context, actor *models.User, identifier string, patch service.ResourcePatch) (*models.Resource, error)
	Delete(ctx context.Context, actor *models.User, identifier string) error
	DeleteBulk(ctx context.Context, actor *models.User, idList string) (service.BulkDeleteResult, error)
	ToggleActive(ctx context.Context, actor *models.User, idList string) (service.BulkToggleResult, error)
}

type ResourceHandler struct {
	Service  ResourceAPI
	Logger   *zap.Logger
	validate *validator.Validate
}

func NewResourceHandler(svc ResourceAPI, logger *zap.Logger) *ResourceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResourceHandler{Service: svc, Logger: logger, validate: newValidator()}
}

type createResourceInput struct {
	Name string `json:"name" validate:"max=64"`
	URL  string `json:"url" validate:"max=1024"`
}

type updateResourceInput struct {
	Name   *string `json:"name" validate:"omitempty,max=64"`
	URL    *string `json:"url" validate:"omitempty,max=1024"`
	Active *bool   `json:"active"`
}

//
// ==========================
// List / Get
// ==========================
//

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.List(r.Context())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	views := make([]models.ResourceView, 0, len(list))
	for _, res := range list {
		views = append(views, res.View())
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res.View())
}

//
// ==========================
// Create
// ==========================
//

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input createResourceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		JSONValidationError(w, "validation failed", validationFields(err), http.StatusBadRequest)
		return
	}

	res, err := h.Service.Create(r.Context(), middleware.UserFromContext(r.Context()), input.Name, input.URL)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res.View())
}

func (h *ResourceHandler) CreateBulk(w http.ResponseWriter, r *http.Request) {
	var urls []string
	if err := json.NewDecoder(r.Body).Decode(&urls); err != nil {
		JSONError(w, "expected a JSON array of URLs", http.StatusBadRequest)
		return
	}

	result, err := h.Service.CreateBulk(r.Context(), middleware.UserFromContext(r.Context()), urls)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

//
// ==========================
// Update
// ==========================
//

func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input updateResourceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		JSONValidationError(w, "validation failed", validationFields(err), http.StatusBadRequest)
		return
	}

	patch := service.ResourcePatch{Name: input.Name, URL: input.URL, Active: input.Active}
	res, err := h.Service.Update(r.Context(), middleware.UserFromContext(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res.View())
}

//
// ==========================
// Delete
// ==========================
//

func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), middleware.UserFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ResourceHandler) DeleteBulk(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.DeleteBulk(r.Context(), middleware.UserFromContext(r.Context()), chi.URLParam(r, "idList"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

//
// ==========================
// Toggle
// ==========================
//

func (h *ResourceHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.ToggleActive(r.Context(), middleware.UserFromContext(r.Context()), chi.URLParam(r, "idList"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
