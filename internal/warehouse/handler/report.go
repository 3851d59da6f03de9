package handler

import (
	"net/http"

	"github.com/ksp/warehouse/internal/warehouse/service"
	"github.com/ksp/warehouse/pkg/httputil"
	"github.com/ksp/warehouse/pkg/logger"
)

// ReportHandler handles the dashboard, history and export endpoints
type ReportHandler struct {
	service *service.WarehouseService
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *service.WarehouseService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		logger:  log,
	}
}

func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.Dashboard(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rooms)
}

// History lists assignment history, newest operation first.
func (h *ReportHandler) History(w http.ResponseWriter, r *http.Request) {
	ids, err := queryIDs(r, "room_id", "rack_id", "shelf_id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	from, err := queryDate(r, "date_from")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	to, err := queryDate(r, "date_to")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	q := r.URL.Query()
	page, err := h.service.History(r.Context(), service.HistoryQuery{
		RoomID:   ids[0],
		RackID:   ids[1],
		ShelfID:  ids[2],
		Actor:    q.Get("user"),
		Search:   q.Get("search"),
		DateFrom: from,
		DateTo:   to,
		Action:   q.Get("action_type"),
		Page:     httputil.QueryPage(r),
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, page.Items, httputil.NewMeta(page.Page, page.PageSize, page.Total))
}

// Export streams the inventory workbook. It accepts the item listing
// filters plus include_expired and include_removed.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	ids, err := queryIDs(r, "room_id", "rack_id", "shelf_id", "category_id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	file, err := h.service.Export(r.Context(), service.ExportQuery{
		RoomID:         ids[0],
		RackID:         ids[1],
		ShelfID:        ids[2],
		CategoryID:     ids[3],
		Search:         r.URL.Query().Get("search"),
		HasNote:        httputil.QueryBool(r, "has_note"),
		Filters:        queryFilters(r),
		IncludeExpired: httputil.QueryBool(r, "include_expired"),
		IncludeRemoved: httputil.QueryBool(r, "include_removed"),
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.Attachment(w, file.Filename, service.XLSXContentType, file.Content)
}
