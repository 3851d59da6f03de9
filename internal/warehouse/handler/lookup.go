package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ksp/warehouse/internal/warehouse/service"
	"github.com/ksp/warehouse/pkg/errors"
	"github.com/ksp/warehouse/pkg/httputil"
	"github.com/ksp/warehouse/pkg/logger"
)

// LookupHandler serves the dependent pickers and autocomplete
type LookupHandler struct {
	service *service.WarehouseService
	logger  *logger.Logger
}

// NewLookupHandler creates a new lookup handler
func NewLookupHandler(svc *service.WarehouseService, log *logger.Logger) *LookupHandler {
	return &LookupHandler{
		service: svc,
		logger:  log,
	}
}

// Racks lists the racks of ?room_id=.
func (h *LookupHandler) Racks(w http.ResponseWriter, r *http.Request) {
	roomID, err := requiredQueryID(r, "room_id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	racks, err := h.service.ListRacks(r.Context(), roomID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, racks)
}

// Shelves lists the shelves of ?rack_id=.
func (h *LookupHandler) Shelves(w http.ResponseWriter, r *http.Request) {
	rackID, err := requiredQueryID(r, "rack_id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	shelves, err := h.service.ListShelves(r.Context(), rackID, nil)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, shelves)
}

// ShelfItems lists the active units of ?shelf_id=.
func (h *LookupHandler) ShelfItems(w http.ResponseWriter, r *http.Request) {
	shelfID, err := requiredQueryID(r, "shelf_id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	units, err := h.service.ShelfUnits(r.Context(), *shelfID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, units)
}

// Autocomplete suggests values for {kind} matching ?term=.
func (h *LookupHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.service.Autocomplete(r.Context(), chi.URLParam(r, "kind"), r.URL.Query().Get("term"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, suggestions)
}

func requiredQueryID(r *http.Request, name string) (*int64, error) {
	id, err := httputil.QueryID(r, name)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, errors.Field(name, "this field is required")
	}
	return id, nil
}
