package handler

import (
	"net/http"

	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/ksp/warehouse/internal/warehouse/service"
	"github.com/ksp/warehouse/pkg/httputil"
	"github.com/ksp/warehouse/pkg/logger"
)

// CategoryHandler handles category endpoints
type CategoryHandler struct {
	service *service.WarehouseService
	logger  *logger.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(svc *service.WarehouseService, log *logger.Logger) *CategoryHandler {
	return &CategoryHandler{
		service: svc,
		logger:  log,
	}
}

type categoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// categoryResponse adds the advisory delete pre-check.
type categoryResponse struct {
	*repository.Category
	HasItems bool `json:"has_items"`
}

func newCategoryResponse(c *repository.Category) categoryResponse {
	return categoryResponse{Category: c, HasItems: c.HasItems()}
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	out := make([]categoryResponse, len(categories))
	for i, c := range categories {
		out[i] = newCategoryResponse(c)
	}
	httputil.JSON(w, http.StatusOK, out)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decode(w, r, &req) {
		return
	}
	category, err := h.service.CreateCategory(r.Context(), req.Name)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.Created(w, newCategoryResponse(category))
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	category, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, newCategoryResponse(category))
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	var req categoryRequest
	if !decode(w, r, &req) {
		return
	}
	category, err := h.service.RenameCategory(r.Context(), id, req.Name)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, newCategoryResponse(category))
}

// Delete removes a category. Categories still used by items are refused.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.NoContent(w)
}
