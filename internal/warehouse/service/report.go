package service

import (
	"context"
	"strings"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/ksp/warehouse/pkg/errors"
)

// Listing filter values.
const (
	FilterExpired      = "expired"
	FilterExpiringSoon = "expiring_soon"
)

// Autocomplete kinds.
const (
	AutocompleteItems         = "items"
	AutocompleteManufacturers = "manufacturers"
	AutocompleteCategories    = "categories"
	AutocompleteUsers         = "users"
)

// ItemQuery is the item listing request.
type ItemQuery struct {
	RoomID     *int64
	RackID     *int64
	ShelfID    *int64
	CategoryID *int64
	Search     string
	HasNote    bool
	Filters    []string
	Page       int
}

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func newPage[T any](items []T, total int64, page, size int) *Page[T] {
	pages := int((total + int64(size) - 1) / int64(size))
	return &Page[T]{Items: items, Total: total, Page: page, PageSize: size, TotalPages: pages}
}

// HistoryQuery is the history listing request.
type HistoryQuery struct {
	RoomID   *int64
	RackID   *int64
	ShelfID  *int64
	Actor    string
	Search   string
	DateFrom *domain.Date
	DateTo   *domain.Date
	Action   string
	Page     int
}

// ShelfDetail is a shelf with its cohorts and expiry counts.
type ShelfDetail struct {
	*repository.Shelf
	FullLocation       string                    `json:"full_location"`
	URL                string                    `json:"url"`
	Cohorts            []*repository.CohortCount `json:"cohorts"`
	ItemCount          int                       `json:"item_count"`
	ExpiredCount       int                       `json:"expired_count"`
	NearlyExpiredCount int                       `json:"nearly_expired_count"`
}

// Dashboard returns the per-room summary.
func (s *WarehouseService) Dashboard(ctx context.Context) ([]*repository.RoomSummary, error) {
	return s.repos.Reports.RoomSummaries(ctx)
}

// ListItems returns one page of active units. Unknown filter values are
// ignored.
func (s *WarehouseService) ListItems(ctx context.Context, q ItemQuery) (*Page[*repository.ItemRow], error) {
	page := max(q.Page, 1)
	f := repository.ItemFilter{
		RoomID:     q.RoomID,
		RackID:     q.RackID,
		ShelfID:    q.ShelfID,
		CategoryID: q.CategoryID,
		Search:     q.Search,
		HasNote:    q.HasNote,
		Today:      s.today(),
		SoonDays:   s.opts.ExpiringSoonDays,
		Page:       page,
		PageSize:   s.opts.PageSize,
	}
	for _, v := range q.Filters {
		switch strings.TrimSpace(v) {
		case FilterExpired:
			f.Expired = true
		case FilterExpiringSoon:
			f.ExpiringSoon = true
		}
	}

	rows, total, err := s.repos.Reports.ListItems(ctx, f)
	if err != nil {
		return nil, err
	}
	return newPage(rows, total, page, s.opts.PageSize), nil
}

// LowStock lists categories below the configured threshold.
func (s *WarehouseService) LowStock(ctx context.Context) ([]*repository.LowStockCategory, error) {
	return s.repos.Reports.LowStock(ctx, s.opts.LowStockThreshold)
}

// ShelfDetail returns a shelf with its active cohorts.
func (s *WarehouseService) ShelfDetail(ctx context.Context, id int64) (*ShelfDetail, error) {
	shelf, err := s.repos.Locations.GetShelf(ctx, id)
	if err != nil {
		return nil, err
	}
	cohorts, err := s.repos.Reports.ShelfCohorts(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.repos.Reports.ShelfExpiry(ctx, id, s.today(), s.opts.ExpiringSoonDays)
	if err != nil {
		return nil, err
	}
	return &ShelfDetail{
		Shelf:              shelf,
		FullLocation:       shelf.FullLocation(),
		URL:                s.LocationURL(domain.KindShelf, shelf.QRToken),
		Cohorts:            cohorts,
		ItemCount:          counts.Total,
		ExpiredCount:       counts.Expired,
		NearlyExpiredCount: counts.ExpiringSoon,
	}, nil
}

// History returns one page of the assignment log, newest operation first.
func (s *WarehouseService) History(ctx context.Context, q HistoryQuery) (*Page[*repository.HistoryEntry], error) {
	switch q.Action {
	case "", repository.ActionAdd, repository.ActionRemove:
	default:
		return nil, errors.Field("action_type", "must be add or remove")
	}

	page := max(q.Page, 1)
	entries, total, err := s.repos.History.List(ctx, repository.HistoryFilter{
		RoomID:   q.RoomID,
		RackID:   q.RackID,
		ShelfID:  q.ShelfID,
		Actor:    q.Actor,
		Search:   q.Search,
		DateFrom: q.DateFrom,
		DateTo:   q.DateTo,
		Action:   q.Action,
		Loc:      s.opts.Location,
		Page:     page,
		PageSize: s.opts.HistoryPageSize,
	})
	if err != nil {
		return nil, err
	}
	return newPage(entries, total, page, s.opts.HistoryPageSize), nil
}

// ShelfUnits lists the active units of a shelf for pickers.
func (s *WarehouseService) ShelfUnits(ctx context.Context, shelfID int64) ([]*repository.ShelfUnit, error) {
	return s.repos.Lookups.ShelfUnits(ctx, shelfID)
}

// Autocomplete suggests up to ten distinct values of kind containing term.
func (s *WarehouseService) Autocomplete(ctx context.Context, kind, term string) ([]*repository.Suggestion, error) {
	switch kind {
	case AutocompleteItems:
		return s.repos.Lookups.ItemNames(ctx, term)
	case AutocompleteManufacturers:
		return s.repos.Lookups.Manufacturers(ctx, term)
	case AutocompleteCategories:
		return s.repos.Lookups.Categories(ctx, term)
	case AutocompleteUsers:
		return s.repos.Lookups.Users(ctx, term)
	default:
		return nil, errors.Field("kind", "must be one of items, manufacturers, categories, users")
	}
}
