package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/ksp/warehouse/internal/warehouse/service"
	"github.com/ksp/warehouse/pkg/httputil"
	"github.com/ksp/warehouse/pkg/logger"
)

// LocationHandler handles room, rack and shelf endpoints
type LocationHandler struct {
	service *service.WarehouseService
	logger  *logger.Logger
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(svc *service.WarehouseService, log *logger.Logger) *LocationHandler {
	return &LocationHandler{
		service: svc,
		logger:  log,
	}
}

type roomRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type rackRequest struct {
	RoomID int64  `json:"room_id" validate:"required,gt=0"`
	Name   string `json:"name" validate:"required,rackname"`
}

type rackRenameRequest struct {
	Name string `json:"name" validate:"required,rackname"`
}

type shelfRequest struct {
	RackID int64 `json:"rack_id" validate:"required,gt=0"`
	Number int   `json:"number" validate:"required,gt=0"`
}

type shelfRenumberRequest struct {
	Number int `json:"number" validate:"required,gt=0"`
}

// Location responses carry the QR label URL next to the row.
type roomResponse struct {
	*repository.Room
	URL string `json:"url"`
}

type rackResponse struct {
	*repository.Rack
	URL string `json:"url"`
}

type shelfResponse struct {
	*repository.Shelf
	URL string `json:"url"`
}

// Rooms

func (h *LocationHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.ListRooms(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rooms)
}

func (h *LocationHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if !decode(w, r, &req) {
		return
	}
	room, err := h.service.CreateRoom(r.Context(), req.Name)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.Created(w, roomResponse{Room: room, URL: h.service.LocationURL(domain.KindRoom, room.QRToken)})
}

func (h *LocationHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	room, err := h.service.GetRoom(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, roomResponse{Room: room, URL: h.service.LocationURL(domain.KindRoom, room.QRToken)})
}

func (h *LocationHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	var req roomRequest
	if !decode(w, r, &req) {
		return
	}
	room, err := h.service.RenameRoom(r.Context(), id, req.Name)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, room)
}

func (h *LocationHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.service.DeleteRoom)
}

// Racks

func (h *LocationHandler) ListRacks(w http.ResponseWriter, r *http.Request) {
	roomID, err := httputil.QueryID(r, "room_id")
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

func (h *LocationHandler) CreateRack(w http.ResponseWriter, r *http.Request) {
	var req rackRequest
	if !decode(w, r, &req) {
		return
	}
	rack, err := h.service.CreateRack(r.Context(), req.RoomID, req.Name)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.Created(w, rackResponse{Rack: rack, URL: h.service.LocationURL(domain.KindRack, rack.QRToken)})
}

func (h *LocationHandler) GetRack(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	rack, err := h.service.GetRack(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rackResponse{Rack: rack, URL: h.service.LocationURL(domain.KindRack, rack.QRToken)})
}

func (h *LocationHandler) UpdateRack(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	var req rackRenameRequest
	if !decode(w, r, &req) {
		return
	}
	rack, err := h.service.RenameRack(r.Context(), id, req.Name)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rack)
}

func (h *LocationHandler) DeleteRack(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.service.DeleteRack)
}

// Shelves

func (h *LocationHandler) ListShelves(w http.ResponseWriter, r *http.Request) {
	rackID, err := httputil.QueryID(r, "rack_id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	roomID, err := httputil.QueryID(r, "room_id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	shelves, err := h.service.ListShelves(r.Context(), rackID, roomID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, shelves)
}

func (h *LocationHandler) CreateShelf(w http.ResponseWriter, r *http.Request) {
	var req shelfRequest
	if !decode(w, r, &req) {
		return
	}
	shelf, err := h.service.CreateShelf(r.Context(), req.RackID, req.Number)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.Created(w, shelfResponse{Shelf: shelf, URL: h.service.LocationURL(domain.KindShelf, shelf.QRToken)})
}

// GetShelf returns the shelf detail view with its cohorts.
func (h *LocationHandler) GetShelf(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	detail, err := h.service.ShelfDetail(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, detail)
}

func (h *LocationHandler) UpdateShelf(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	var req shelfRenumberRequest
	if !decode(w, r, &req) {
		return
	}
	shelf, err := h.service.RenumberShelf(r.Context(), id, req.Number)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, shelf)
}

func (h *LocationHandler) DeleteShelf(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.service.DeleteShelf)
}

// Clean returns a handler that relocates everything beneath a location of
// kind to the fallback shelf.
func (h *LocationHandler) Clean(kind domain.LocationKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httputil.PathID(r, "id")
		if err != nil {
			httputil.Error(w, r, err)
			return
		}
		res, err := h.service.Clean(r.Context(), kind, id)
		if err != nil {
			httputil.Error(w, r, err)
			return
		}
		httputil.JSON(w, http.StatusOK, res)
	}
}

// Resolve looks up the location behind a scanned QR token.
func (h *LocationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	loc, err := h.service.ResolveToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, loc)
}

func (h *LocationHandler) delete(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, id int64) error) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := del(r.Context(), id); err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.NoContent(w)
}
