package repository

import (
	"context"
	"strings"
	"time"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/pkg/database"
)

// History action types.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
)

// HistoryFilter narrows the assignment log.
type HistoryFilter struct {
	RoomID   *int64
	RackID   *int64
	ShelfID  *int64
	// Actor is a substring of the id, cached name or email of the adder
	// or remover.
	Actor    string
	Search   string
	DateFrom *domain.Date
	DateTo   *domain.Date
	Action   string

	// Loc interprets DateFrom and DateTo as local calendar days.
	Loc      *time.Location
	Page     int
	PageSize int
}

// HistoryEntry is one assignment with both its add and remove sides.
type HistoryEntry struct {
	ID             int64        `db:"id" json:"id"`
	ItemID         int64        `db:"item_id" json:"item_id"`
	ItemName       string       `db:"item_name" json:"item_name"`
	CategoryName   string       `db:"category_name" json:"category_name"`
	Manufacturer   *string      `db:"manufacturer" json:"manufacturer"`
	ExpirationDate *domain.Date `db:"expiration_date" json:"expiration_date"`
	Note           *string      `db:"note" json:"note"`
	ShelfID        int64        `db:"shelf_id" json:"shelf_id"`
	FullLocation   string       `db:"full_location" json:"full_location"`
	AddedBy        *string      `db:"added_by" json:"added_by"`
	AddedByName    *string      `db:"added_by_name" json:"added_by_name"`
	AddedAt        time.Time    `db:"added_at" json:"added_at"`
	RemovedBy      *string      `db:"removed_by" json:"removed_by"`
	RemovedByName  *string      `db:"removed_by_name" json:"removed_by_name"`
	RemovedAt      *time.Time   `db:"removed_at" json:"removed_at"`
}

// Action returns the latest operation recorded on the entry.
func (e *HistoryEntry) Action() string {
	if e.RemovedAt != nil {
		return ActionRemove
	}
	return ActionAdd
}

// HistoryRepository reads the assignment log.
type HistoryRepository struct {
	db *database.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *database.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// List returns one page of the log and the total number of matches.
func (r *HistoryRepository) List(ctx context.Context, f HistoryFilter) ([]*HistoryEntry, int64, error) {
	where, args := historyWhere(f)
	from := `
		FROM item_shelf_assignments a
		JOIN items i ON i.id = a.item_id
		JOIN categories c ON c.id = i.category_id
		JOIN shelves s ON s.id = a.shelf_id
		JOIN racks k ON k.id = s.rack_id
		JOIN rooms m ON m.id = k.room_id
		LEFT JOIN user_cache ua ON ua.user_id = a.added_by
		LEFT JOIN user_cache ur ON ur.user_id = a.removed_by
		` + where

	var total int64
	if err := r.db.Conn(ctx).GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) `+from), args...); err != nil {
		return nil, 0, err
	}

	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 50
	}

	entries := []*HistoryEntry{}
	query := r.db.Rebind(`
		SELECT a.id, a.item_id, i.name AS item_name, c.name AS category_name, i.manufacturer,
			i.expiration_date, i.note, a.shelf_id, ` + fullLocationExpr + ` AS full_location,
			a.added_by, ` + displayName("ua") + ` AS added_by_name, a.added_at,
			a.removed_by, ` + displayName("ur") + ` AS removed_by_name, a.removed_at
		` + from + `
		ORDER BY ` + historyOrder(f.Action) + `
		LIMIT ? OFFSET ?`)
	args = append(args, size, (page-1)*size)
	if err := r.db.Conn(ctx).SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// displayName renders the cached name of the user joined as alias.
func displayName(alias string) string {
	return `COALESCE(NULLIF(TRIM(` + alias + `.first_name || ' ' || ` + alias + `.last_name), ''), ` + alias + `.email)`
}

func historyOrder(action string) string {
	switch action {
	case ActionAdd:
		return "a.added_at DESC, a.id DESC"
	case ActionRemove:
		return "a.removed_at DESC, a.id DESC"
	default:
		return "COALESCE(a.removed_at, a.added_at) DESC, a.id DESC"
	}
}

var actorColumns = []string{
	"a.added_by", "(ua.first_name || ' ' || ua.last_name)", "ua.email",
	"a.removed_by", "(ur.first_name || ' ' || ur.last_name)", "ur.email",
}

func historyWhere(f HistoryFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

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

	// The actor matches ids and cached names or emails on either side.
	if actor := strings.TrimSpace(f.Actor); actor != "" {
		pattern := "%" + escapeLike(actor) + "%"
		var ors []string
		for _, col := range actorColumns {
			ors = append(ors, col+" ILIKE ?")
			args = append(args, pattern)
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		conds = append(conds, "i.name ILIKE ?")
		args = append(args, "%"+escapeLike(s)+"%")
	}

	loc := f.Loc
	if loc == nil {
		loc = time.UTC
	}
	if f.DateFrom != nil {
		start := dayStart(*f.DateFrom, loc)
		conds = append(conds, "(a.added_at >= ? OR a.removed_at >= ?)")
		args = append(args, start, start)
	}
	if f.DateTo != nil {
		end := dayStart(f.DateTo.AddDays(1), loc)
		conds = append(conds, "a.added_at < ? AND (a.removed_at IS NULL OR a.removed_at < ?)")
		args = append(args, end, end)
	}

	switch f.Action {
	case ActionAdd:
		conds = append(conds, "a.removed_at IS NULL")
	case ActionRemove:
		conds = append(conds, "a.removed_at IS NOT NULL")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func dayStart(d domain.Date, loc *time.Location) time.Time {
	t := d.Time()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
