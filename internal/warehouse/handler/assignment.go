package handler

import (
	"net/http"

	"github.com/ksp/warehouse/internal/warehouse/service"
	"github.com/ksp/warehouse/pkg/httputil"
	"github.com/ksp/warehouse/pkg/logger"
)

// AssignmentHandler handles removal endpoints keyed by assignment id
type AssignmentHandler struct {
	service *service.WarehouseService
	logger  *logger.Logger
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(svc *service.WarehouseService, log *logger.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: svc,
		logger:  log,
	}
}

// Remove closes a single assignment.
func (h *AssignmentHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	detail, err := h.service.RemoveAssignment(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, detail)
}

// BulkRemove removes units of the cohort of the assignment in the path.
func (h *AssignmentHandler) BulkRemove(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	var req service.RemoveRequest
	if !decode(w, r, &req) {
		return
	}
	req.AssignmentID = id
	res, err := h.service.BulkRemove(r.Context(), req)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, res)
}

// RemoveChunk runs one chunk of a bulk remove.
func (h *AssignmentHandler) RemoveChunk(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	var req service.ChunkRemoveRequest
	if !decode(w, r, &req) {
		return
	}
	req.AssignmentID = id
	res, err := h.service.RemoveChunk(r.Context(), req)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, res)
}
