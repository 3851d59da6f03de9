package handler

import (
	"net/http"

	"github.com/ksp/warehouse/internal/warehouse/service"
	"github.com/ksp/warehouse/pkg/httputil"
	"github.com/ksp/warehouse/pkg/logger"
)

// ItemHandler handles item listing, bulk add and move endpoints
type ItemHandler struct {
	service *service.WarehouseService
	logger  *logger.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(svc *service.WarehouseService, log *logger.Logger) *ItemHandler {
	return &ItemHandler{
		service: svc,
		logger:  log,
	}
}

type moveItemRequest struct {
	FromShelfID int64 `json:"from_shelf_id" validate:"required,gt=0"`
	ToShelfID   int64 `json:"to_shelf_id" validate:"required,gt=0"`
}

// List lists active units. Repeated or comma separated ?filter= values
// select expired and expiring_soon units.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := queryIDs(r, "room_id", "rack_id", "shelf_id", "category_id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	page, err := h.service.ListItems(r.Context(), service.ItemQuery{
		RoomID:     ids[0],
		RackID:     ids[1],
		ShelfID:    ids[2],
		CategoryID: ids[3],
		Search:     r.URL.Query().Get("search"),
		HasNote:    httputil.QueryBool(r, "has_note"),
		Filters:    queryFilters(r),
		Page:       httputil.QueryPage(r),
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, page.Items, httputil.NewMeta(page.Page, page.PageSize, page.Total))
}

// LowStock lists categories below the stock threshold.
func (h *ItemHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	low, err := h.service.LowStock(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, low)
}

// Get returns one item record.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, item)
}

// BulkAdd adds up to the interactive limit of units in one request.
func (h *ItemHandler) BulkAdd(w http.ResponseWriter, r *http.Request) {
	var req service.AddRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.service.BulkAdd(r.Context(), req)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.Created(w, res)
}

// AddChunk runs one chunk of a bulk add.
func (h *ItemHandler) AddChunk(w http.ResponseWriter, r *http.Request) {
	var req service.ChunkAddRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.service.AddChunk(r.Context(), req)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, res)
}

// Move moves one item between shelves.
func (h *ItemHandler) Move(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	var req moveItemRequest
	if !decode(w, r, &req) {
		return
	}
	assignment, err := h.service.MoveItem(r.Context(), id, req.FromShelfID, req.ToShelfID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, assignment)
}

// MoveBatch moves a list of items between two shelves.
func (h *ItemHandler) MoveBatch(w http.ResponseWriter, r *http.Request) {
	var req service.MoveRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.service.MoveItems(r.Context(), req)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, res)
}

// MoveGroup moves units of one cohort.
func (h *ItemHandler) MoveGroup(w http.ResponseWriter, r *http.Request) {
	var req service.GroupMoveRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.service.MoveGroup(r.Context(), req)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, res)
}
