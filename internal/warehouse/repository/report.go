package repository

import (
	"context"
	"strings"
	"time"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/pkg/database"
	"github.com/lib/pq"
)

// RoomSummary is one line of the dashboard.
type RoomSummary struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	QRToken     string `db:"qr_token" json:"qr_token"`
	RackCount   int    `db:"rack_count" json:"rack_count"`
	ShelfCount  int    `db:"shelf_count" json:"shelf_count"`
	ActiveCount int    `db:"active_count" json:"active_count"`
}

// ItemFilter narrows the active-assignment listing. Location and category
// filters combine with AND; Expired and ExpiringSoon combine with OR.
type ItemFilter struct {
	RoomID       *int64
	RackID       *int64
	ShelfID      *int64
	CategoryID   *int64
	Search       string
	HasNote      bool
	Expired      bool
	ExpiringSoon bool

	Today    domain.Date
	SoonDays int
	Page     int
	PageSize int
}

// ItemRow is one active assignment in the listing.
type ItemRow struct {
	AssignmentID   int64        `db:"assignment_id" json:"assignment_id"`
	ItemID         int64        `db:"item_id" json:"item_id"`
	Name           string       `db:"name" json:"name"`
	CategoryID     int64        `db:"category_id" json:"category_id"`
	CategoryName   string       `db:"category_name" json:"category_name"`
	Manufacturer   *string      `db:"manufacturer" json:"manufacturer"`
	ExpirationDate *domain.Date `db:"expiration_date" json:"expiration_date"`
	Note           *string      `db:"note" json:"note"`
	IsGifted       bool         `db:"is_gifted" json:"is_gifted"`
	ShelfID        int64        `db:"shelf_id" json:"shelf_id"`
	FullLocation   string       `db:"full_location" json:"full_location"`
	AddedBy        *string      `db:"added_by" json:"added_by"`
	AddedAt        time.Time    `db:"added_at" json:"added_at"`
}

// LowStockCategory is a category below the stock threshold.
type LowStockCategory struct {
	ID          int64          `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	ActiveCount int            `db:"active_count" json:"active_count"`
	Locations   pq.StringArray `db:"locations" json:"locations"`
}

// ExportFilter selects the assignments written to the workbook. The most
// specific location filter wins. Search, HasNote, Expired and ExpiringSoon
// behave as in ItemFilter.
type ExportFilter struct {
	RoomID         *int64
	RackID         *int64
	ShelfID        *int64
	CategoryID     *int64
	Search         string
	HasNote        bool
	Expired        bool
	ExpiringSoon   bool
	IncludeExpired bool
	IncludeRemoved bool
	Today          domain.Date
	SoonDays       int
}

// ExportRow is one assignment, active or removed, feeding the workbook.
type ExportRow struct {
	AssignmentID   int64        `db:"assignment_id"`
	Name           string       `db:"name"`
	CategoryID     int64        `db:"category_id"`
	CategoryName   string       `db:"category_name"`
	Manufacturer   *string      `db:"manufacturer"`
	ExpirationDate *domain.Date `db:"expiration_date"`
	Note           *string      `db:"note"`
	ShelfID        int64        `db:"shelf_id"`
	FullLocation   string       `db:"full_location"`
	RemovedAt      *time.Time   `db:"removed_at"`
}

// Key returns the cohort of the row's item.
func (r *ExportRow) Key() domain.CohortKey {
	return domain.CohortKey{
		Name:           r.Name,
		CategoryID:     r.CategoryID,
		Manufacturer:   r.Manufacturer,
		ExpirationDate: r.ExpirationDate,
		Note:           r.Note,
	}
}

// CohortCount is a cohort with its number of active units on one shelf.
type CohortCount struct {
	AssignmentID   int64        `db:"assignment_id" json:"assignment_id"`
	Name           string       `db:"name" json:"name"`
	CategoryID     int64        `db:"category_id" json:"category_id"`
	CategoryName   string       `db:"category_name" json:"category_name"`
	Manufacturer   *string      `db:"manufacturer" json:"manufacturer"`
	ExpirationDate *domain.Date `db:"expiration_date" json:"expiration_date"`
	Note           *string      `db:"note" json:"note"`
	Count          int          `db:"count" json:"count"`
}

// ExpiryCounts are the expired and expiring-soon unit counts of a shelf.
type ExpiryCounts struct {
	Total        int `db:"total" json:"total"`
	Expired      int `db:"expired" json:"expired"`
	ExpiringSoon int `db:"expiring_soon" json:"expiring_soon"`
}

// ExpiringItem is an active unit inside the notification window.
type ExpiringItem struct {
	Name           string      `db:"name"`
	ExpirationDate domain.Date `db:"expiration_date"`
	Manufacturer   *string     `db:"manufacturer"`
	Note           *string     `db:"note"`
	FullLocation   string      `db:"full_location"`
}

const activeFrom = `
	FROM item_shelf_assignments a
	JOIN items i ON i.id = a.item_id
	JOIN categories c ON c.id = i.category_id
	JOIN shelves s ON s.id = a.shelf_id
	JOIN racks k ON k.id = s.rack_id
	JOIN rooms m ON m.id = k.room_id`

const fullLocationExpr = `m.name || '.' || k.name || '.' || s.number`

// ReportRepository runs the read-only aggregate queries.
type ReportRepository struct {
	db *database.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *database.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// RoomSummaries counts racks, shelves and active units per room.
func (r *ReportRepository) RoomSummaries(ctx context.Context) ([]*RoomSummary, error) {
	rows := []*RoomSummary{}
	query := `
		SELECT m.id, m.name, m.qr_token,
			(SELECT COUNT(*) FROM racks k WHERE k.room_id = m.id) AS rack_count,
			(SELECT COUNT(*) FROM shelves s JOIN racks k ON k.id = s.rack_id
				WHERE k.room_id = m.id) AS shelf_count,
			(SELECT COUNT(*) FROM item_shelf_assignments a
				JOIN shelves s ON s.id = a.shelf_id
				JOIN racks k ON k.id = s.rack_id
				WHERE k.room_id = m.id AND a.removed_at IS NULL) AS active_count
		FROM rooms m
		ORDER BY m.name
	`
	if err := r.db.Conn(ctx).SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListItems returns one page of active assignments and the total match count.
func (r *ReportRepository) ListItems(ctx context.Context, f ItemFilter) ([]*ItemRow, int64, error) {
	where, args := itemWhere(f)

	var total int64
	countQuery := r.db.Rebind(`SELECT COUNT(*) ` + activeFrom + ` WHERE ` + where)
	if err := r.db.Conn(ctx).GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 100
	}

	rows := []*ItemRow{}
	query := r.db.Rebind(`
		SELECT a.id AS assignment_id, i.id AS item_id, i.name, i.category_id, c.name AS category_name,
			i.manufacturer, i.expiration_date, i.note, i.is_gifted,
			a.shelf_id, ` + fullLocationExpr + ` AS full_location, a.added_by, a.added_at
		` + activeFrom + `
		WHERE ` + where + `
		ORDER BY i.name, m.name, k.name, s.number, a.id
		LIMIT ? OFFSET ?`)
	args = append(args, size, (page-1)*size)
	if err := r.db.Conn(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func itemWhere(f ItemFilter) (string, []interface{}) {
	conds := []string{"a.removed_at IS NULL"}
	var args []interface{}

	if f.RoomID != nil {
		conds = append(conds, "k.room_id = ?")
		args = append(args, *f.RoomID)
	}
	if f.RackID != nil {
		conds = append(conds, "s.rack_id = ?")
		args = append(args, *f.RackID)
	}
	if f.ShelfID != nil {
		conds = append(conds, "a.shelf_id = ?")
		args = append(args, *f.ShelfID)
	}
	if f.CategoryID != nil {
		conds = append(conds, "i.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	c, a := contentConds(f.Search, f.HasNote, f.Expired, f.ExpiringSoon, f.Today, f.SoonDays)
	conds = append(conds, c...)
	args = append(args, a...)

	return strings.Join(conds, " AND "), args
}

// contentConds builds the name, note and expiry predicates shared by the
// listing and the export. The expiry predicates combine with OR.
func contentConds(search string, hasNote, expired, soon bool, today domain.Date, soonDays int) ([]string, []interface{}) {
	var conds []string
	var args []interface{}

	if s := strings.TrimSpace(search); s != "" {
		conds = append(conds, "i.name ILIKE ?")
		args = append(args, "%"+escapeLike(s)+"%")
	}
	if hasNote {
		conds = append(conds, "i.note IS NOT NULL AND i.note <> ''")
	}

	var dates []string
	if soon {
		dates = append(dates, "(i.expiration_date >= ?::date AND i.expiration_date <= ?::date)")
		args = append(args, today, today.AddDays(soonDays))
	}
	if expired {
		dates = append(dates, "i.expiration_date < ?::date")
		args = append(args, today)
	}
	if len(dates) > 0 {
		conds = append(conds, "("+strings.Join(dates, " OR ")+")")
	}
	return conds, args
}

// LowStock lists categories with fewer than threshold active units,
// including empty ones, with the sorted distinct locations still holding any.
func (r *ReportRepository) LowStock(ctx context.Context, threshold int) ([]*LowStockCategory, error) {
	rows := []*LowStockCategory{}
	query := `
		SELECT c.id, c.name, COUNT(a.id) AS active_count,
			COALESCE(
				array_agg(DISTINCT ` + fullLocationExpr + `) FILTER (WHERE a.id IS NOT NULL),
				'{}'
			) AS locations
		FROM categories c
		LEFT JOIN items i ON i.category_id = c.id
		LEFT JOIN item_shelf_assignments a ON a.item_id = i.id AND a.removed_at IS NULL
		LEFT JOIN shelves s ON s.id = a.shelf_id
		LEFT JOIN racks k ON k.id = s.rack_id
		LEFT JOIN rooms m ON m.id = k.room_id
		GROUP BY c.id, c.name
		HAVING COUNT(a.id) < $1
		ORDER BY c.name
	`
	if err := r.db.Conn(ctx).SelectContext(ctx, &rows, query, threshold); err != nil {
		return nil, err
	}
	return rows, nil
}

// ExportRows returns the assignments matching f, ordered by item name,
// shelf and removal state.
func (r *ReportRepository) ExportRows(ctx context.Context, f ExportFilter) ([]*ExportRow, error) {
	where, args := exportWhere(f)

	rows := []*ExportRow{}
	query := r.db.Rebind(`
		SELECT a.id AS assignment_id, i.name, i.category_id, c.name AS category_name,
			i.manufacturer, i.expiration_date, i.note,
			a.shelf_id, ` + fullLocationExpr + ` AS full_location, a.removed_at
		` + activeFrom + `
		` + where + `
		ORDER BY i.name, a.shelf_id, (a.removed_at IS NOT NULL), a.id`)
	if err := r.db.Conn(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func exportWhere(f ExportFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if !f.IncludeRemoved {
		conds = append(conds, "a.removed_at IS NULL")
	}
	switch {
	case f.ShelfID != nil:
		conds = append(conds, "a.shelf_id = ?")
		args = append(args, *f.ShelfID)
	case f.RackID != nil:
		conds = append(conds, "s.rack_id = ?")
		args = append(args, *f.RackID)
	case f.RoomID != nil:
		conds = append(conds, "k.room_id = ?")
		args = append(args, *f.RoomID)
	}
	if f.CategoryID != nil {
		conds = append(conds, "i.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	c, a := contentConds(f.Search, f.HasNote, f.Expired, f.ExpiringSoon, f.Today, f.SoonDays)
	conds = append(conds, c...)
	args = append(args, a...)
	// An explicit expiry filter replaces the default exclusion.
	if !f.IncludeExpired && !f.Expired && !f.ExpiringSoon {
		conds = append(conds, "(i.expiration_date IS NULL OR i.expiration_date > ?::date)")
		args = append(args, f.Today)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// ShelfCohorts groups the active units of a shelf by cohort. AssignmentID
// is the oldest assignment of the cohort, usable as a bulk-remove seed.
func (r *ReportRepository) ShelfCohorts(ctx context.Context, shelfID int64) ([]*CohortCount, error) {
	rows := []*CohortCount{}
	query := `
		SELECT MIN(a.id) AS assignment_id, i.name, i.category_id, c.name AS category_name,
			i.manufacturer, i.expiration_date, i.note, COUNT(*) AS count
		FROM item_shelf_assignments a
		JOIN items i ON i.id = a.item_id
		JOIN categories c ON c.id = i.category_id
		WHERE a.shelf_id = $1 AND a.removed_at IS NULL
		GROUP BY i.name, i.category_id, c.name, i.manufacturer, i.expiration_date, i.note
		ORDER BY i.name, i.expiration_date NULLS LAST, MIN(a.id)
	`
	if err := r.db.Conn(ctx).SelectContext(ctx, &rows, query, shelfID); err != nil {
		return nil, err
	}
	return rows, nil
}

// ShelfExpiry counts the active, expired and expiring-soon units of a shelf.
func (r *ReportRepository) ShelfExpiry(ctx context.Context, shelfID int64, today domain.Date, soonDays int) (*ExpiryCounts, error) {
	var counts ExpiryCounts
	query := `
		SELECT COUNT(*) AS total,
			COUNT(*) FILTER (WHERE i.expiration_date < $2::date) AS expired,
			COUNT(*) FILTER (WHERE i.expiration_date >= $2::date AND i.expiration_date <= $3::date) AS expiring_soon
		FROM item_shelf_assignments a
		JOIN items i ON i.id = a.item_id
		WHERE a.shelf_id = $1 AND a.removed_at IS NULL
	`
	if err := r.db.Conn(ctx).GetContext(ctx, &counts, query, shelfID, today, today.AddDays(soonDays)); err != nil {
		return nil, err
	}
	return &counts, nil
}

// ExpiringBetween returns the active units expiring in [from, to].
func (r *ReportRepository) ExpiringBetween(ctx context.Context, from, to domain.Date) ([]*ExpiringItem, error) {
	rows := []*ExpiringItem{}
	query := `
		SELECT i.name, i.expiration_date, i.manufacturer, i.note, ` + fullLocationExpr + ` AS full_location
		` + activeFrom + `
		WHERE a.removed_at IS NULL
		  AND i.expiration_date >= $1::date AND i.expiration_date <= $2::date
		ORDER BY i.expiration_date, i.name, a.id
	`
	if err := r.db.Conn(ctx).SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, err
	}
	return rows, nil
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
