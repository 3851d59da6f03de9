package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/pkg/database"
	"github.com/ksp/warehouse/pkg/errors"
	"github.com/lib/pq"
)

// Assignment places one item on one shelf for a period of time. It is
// active while RemovedAt is nil and is closed exactly once.
type Assignment struct {
	ID        int64      `db:"id" json:"id"`
	ItemID    int64      `db:"item_id" json:"item_id"`
	ShelfID   int64      `db:"shelf_id" json:"shelf_id"`
	AddedBy   *string    `db:"added_by" json:"added_by"`
	AddedAt   time.Time  `db:"added_at" json:"added_at"`
	RemovedBy *string    `db:"removed_by" json:"removed_by"`
	RemovedAt *time.Time `db:"removed_at" json:"removed_at"`
}

// Active reports whether the assignment is still open.
func (a *Assignment) Active() bool {
	return a.RemovedAt == nil
}

// AssignmentDetail is an assignment joined with its item and shelf.
type AssignmentDetail struct {
	Assignment
	ItemName       string       `db:"item_name" json:"item_name"`
	CategoryID     int64        `db:"category_id" json:"category_id"`
	CategoryName   string       `db:"category_name" json:"category_name"`
	Manufacturer   *string      `db:"manufacturer" json:"manufacturer"`
	ExpirationDate *domain.Date `db:"expiration_date" json:"expiration_date"`
	Note           *string      `db:"note" json:"note"`
	IsGifted       bool         `db:"is_gifted" json:"is_gifted"`
	FullLocation   string       `db:"full_location" json:"full_location"`
}

// Key returns the cohort of the assigned item.
func (d *AssignmentDetail) Key() domain.CohortKey {
	return domain.CohortKey{
		Name:           d.ItemName,
		CategoryID:     d.CategoryID,
		Manufacturer:   d.Manufacturer,
		ExpirationDate: d.ExpirationDate,
		Note:           d.Note,
	}
}

// ShelfItem is an active placement found by a location sweep.
type ShelfItem struct {
	ShelfID int64 `db:"shelf_id"`
	ItemID  int64 `db:"item_id"`
}

// AssignmentRepository writes and queries the assignment ledger.
type AssignmentRepository struct {
	db *database.DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *database.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) Get(ctx context.Context, id int64) (*AssignmentDetail, error) {
	var d AssignmentDetail
	query := `
		SELECT a.id, a.item_id, a.shelf_id, a.added_by, a.added_at, a.removed_by, a.removed_at,
			i.name AS item_name, i.category_id, c.name AS category_name, i.manufacturer,
			i.expiration_date, i.note, i.is_gifted,
			m.name || '.' || k.name || '.' || s.number AS full_location
		FROM item_shelf_assignments a
		JOIN items i ON i.id = a.item_id
		JOIN categories c ON c.id = i.category_id
		JOIN shelves s ON s.id = a.shelf_id
		JOIN racks k ON k.id = s.rack_id
		JOIN rooms m ON m.id = k.room_id
		WHERE a.id = $1
	`
	if err := r.db.Conn(ctx).GetContext(ctx, &d, query, id); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("assignment")
		}
		return nil, err
	}
	return &d, nil
}

// Open creates an active assignment.
func (r *AssignmentRepository) Open(ctx context.Context, itemID, shelfID int64, actorID string, at time.Time) (*Assignment, error) {
	a := &Assignment{ItemID: itemID, ShelfID: shelfID, AddedBy: &actorID, AddedAt: at}
	query := `
		INSERT INTO item_shelf_assignments (item_id, shelf_id, added_by, added_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if err := r.db.Conn(ctx).QueryRowxContext(ctx, query, itemID, shelfID, actorID, at).Scan(&a.ID); err != nil {
		return nil, database.Translate(err)
	}
	return a, nil
}

// OpenMany creates one active assignment on shelfID per item.
func (r *AssignmentRepository) OpenMany(ctx context.Context, itemIDs []int64, shelfID int64, actorID string, at time.Time) (int, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	query := `
		INSERT INTO item_shelf_assignments (item_id, shelf_id, added_by, added_at)
		SELECT unnest($1::bigint[]), $2, $3, $4
	`
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, pq.Array(itemIDs), shelfID, actorID, at)
	if err != nil {
		return 0, database.Translate(err)
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}

// Close removes an active assignment. A row that is already closed, or
// was closed by a concurrent caller, reports NotFound.
func (r *AssignmentRepository) Close(ctx context.Context, id int64, actorID string, at time.Time) error {
	query := `
		UPDATE item_shelf_assignments SET removed_at = $2, removed_by = $3
		WHERE id = $1 AND removed_at IS NULL
	`
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, id, at, actorID)
	if err != nil {
		return database.Translate(err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("active_assignment")
	}
	return nil
}

// ActiveOnShelfForUpdate locks the active assignment of itemID on shelfID.
func (r *AssignmentRepository) ActiveOnShelfForUpdate(ctx context.Context, itemID, shelfID int64) (*Assignment, error) {
	var a Assignment
	query := `
		SELECT id, item_id, shelf_id, added_by, added_at, removed_by, removed_at
		FROM item_shelf_assignments
		WHERE item_id = $1 AND shelf_id = $2 AND removed_at IS NULL
		FOR UPDATE
	`
	if err := r.db.Conn(ctx).GetContext(ctx, &a, query, itemID, shelfID); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("source_assignment")
		}
		return nil, err
	}
	return &a, nil
}

// CloseOnShelf closes the active assignments of itemIDs on shelfID and
// returns the ids of the items it closed. Items not active on the shelf are
// left out of the result.
func (r *AssignmentRepository) CloseOnShelf(ctx context.Context, shelfID int64, itemIDs []int64, actorID string, at time.Time) ([]int64, error) {
	closed := []int64{}
	if len(itemIDs) == 0 {
		return closed, nil
	}
	query := `
		UPDATE item_shelf_assignments SET removed_at = $1, removed_by = $2
		WHERE shelf_id = $3 AND removed_at IS NULL AND item_id = ANY($4::bigint[])
		RETURNING item_id
	`
	if err := r.db.Conn(ctx).SelectContext(ctx, &closed, query, at, actorID, shelfID, pq.Array(itemIDs)); err != nil {
		return nil, database.Translate(err)
	}
	return closed, nil
}

// CohortSize counts the active units of key on shelfID.
func (r *AssignmentRepository) CohortSize(ctx context.Context, shelfID int64, key domain.CohortKey) (int, error) {
	var n int
	query := `
		SELECT COUNT(*)
		FROM item_shelf_assignments a
		JOIN items i ON i.id = a.item_id
		WHERE a.shelf_id = $1 AND a.removed_at IS NULL AND ` + cohortClause(2)
	args := append([]interface{}{shelfID}, cohortArgs(key)...)
	if err := r.db.Conn(ctx).GetContext(ctx, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}

// CohortItemIDs returns up to limit item ids of key active on shelfID,
// oldest assignment first.
func (r *AssignmentRepository) CohortItemIDs(ctx context.Context, shelfID int64, key domain.CohortKey, limit int) ([]int64, error) {
	ids := []int64{}
	query := `
		SELECT a.item_id
		FROM item_shelf_assignments a
		JOIN items i ON i.id = a.item_id
		WHERE a.shelf_id = $1 AND a.removed_at IS NULL AND ` + cohortClause(2) + `
		ORDER BY a.id
		LIMIT $7
	`
	args := append([]interface{}{shelfID}, cohortArgs(key)...)
	args = append(args, limit)
	if err := r.db.Conn(ctx).SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, err
	}
	return ids, nil
}

// CloseCohort closes up to limit active units of key on shelfID, oldest
// first, and returns how many it closed.
func (r *AssignmentRepository) CloseCohort(ctx context.Context, shelfID int64, key domain.CohortKey, limit int, actorID string, at time.Time) (int, error) {
	query := `
		UPDATE item_shelf_assignments SET removed_at = $8, removed_by = $9
		WHERE removed_at IS NULL AND id IN (
			SELECT a.id
			FROM item_shelf_assignments a
			JOIN items i ON i.id = a.item_id
			WHERE a.shelf_id = $1 AND a.removed_at IS NULL AND ` + cohortClause(2) + `
			ORDER BY a.id
			LIMIT $7
			FOR UPDATE OF a
		)
	`
	args := append([]interface{}{shelfID}, cohortArgs(key)...)
	args = append(args, limit, at, actorID)
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, database.Translate(err)
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}

// ActiveUnder locks and returns every active placement beneath a location,
// ordered by shelf, skipping excludeShelfID.
func (r *AssignmentRepository) ActiveUnder(ctx context.Context, kind domain.LocationKind, id, excludeShelfID int64) ([]ShelfItem, error) {
	rows := []ShelfItem{}
	query := `
		SELECT a.shelf_id, a.item_id
		FROM item_shelf_assignments a
		JOIN shelves s ON s.id = a.shelf_id
		JOIN racks k ON k.id = s.rack_id
		WHERE a.removed_at IS NULL AND a.shelf_id <> $2 AND ` + scopeClause(kind, "$1") + `
		ORDER BY a.shelf_id, a.id
		FOR UPDATE OF a
	`
	if err := r.db.Conn(ctx).SelectContext(ctx, &rows, query, id, excludeShelfID); err != nil {
		return nil, err
	}
	return rows, nil
}

// cohortClause matches items i against a cohort key bound to five
// consecutive placeholders starting at $first.
func cohortClause(first int) string {
	p := func(n int) string { return "$" + strconv.Itoa(first+n) }
	return `i.name = ` + p(0) +
		` AND i.category_id = ` + p(1) +
		` AND i.manufacturer IS NOT DISTINCT FROM ` + p(2) + `::varchar` +
		` AND i.expiration_date IS NOT DISTINCT FROM ` + p(3) + `::date` +
		` AND i.note IS NOT DISTINCT FROM ` + p(4) + `::text`
}

func cohortArgs(key domain.CohortKey) []interface{} {
	return []interface{}{key.Name, key.CategoryID, key.Manufacturer, key.ExpirationDate, key.Note}
}
