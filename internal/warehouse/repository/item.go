package repository

import (
	"context"
	"time"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/pkg/database"
	"github.com/ksp/warehouse/pkg/errors"
)

// Item is one physical unit. Identical units are separate rows.
type Item struct {
	ID             int64        `db:"id" json:"id"`
	Name           string       `db:"name" json:"name"`
	CategoryID     int64        `db:"category_id" json:"category_id"`
	CategoryName   string       `db:"category_name" json:"category_name"`
	Manufacturer   *string      `db:"manufacturer" json:"manufacturer"`
	ExpirationDate *domain.Date `db:"expiration_date" json:"expiration_date"`
	Note           *string      `db:"note" json:"note"`
	IsGifted       bool         `db:"is_gifted" json:"is_gifted"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`

	// Current placement, if any.
	AssignmentID *int64  `db:"assignment_id" json:"assignment_id,omitempty"`
	ShelfID      *int64  `db:"shelf_id" json:"shelf_id,omitempty"`
	FullLocation *string `db:"full_location" json:"full_location,omitempty"`
}

// ItemTemplate holds the attributes shared by every unit of a bulk add.
type ItemTemplate struct {
	Name           string
	CategoryID     int64
	Manufacturer   *string
	ExpirationDate *domain.Date
	Note           *string
	IsGifted       bool
}

// Key returns the cohort the template's units belong to.
func (t ItemTemplate) Key() domain.CohortKey {
	return domain.CohortKey{
		Name:           t.Name,
		CategoryID:     t.CategoryID,
		Manufacturer:   t.Manufacturer,
		ExpirationDate: t.ExpirationDate,
		Note:           t.Note,
	}
}

// ItemRepository handles item persistence
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) Get(ctx context.Context, id int64) (*Item, error) {
	var item Item
	query := `
		SELECT i.id, i.name, i.category_id, c.name AS category_name, i.manufacturer,
			i.expiration_date, i.note, i.is_gifted, i.created_at,
			a.id AS assignment_id, a.shelf_id,
			CASE WHEN a.id IS NULL THEN NULL
				ELSE m.name || '.' || k.name || '.' || s.number END AS full_location
		FROM items i
		JOIN categories c ON c.id = i.category_id
		LEFT JOIN item_shelf_assignments a ON a.item_id = i.id AND a.removed_at IS NULL
		LEFT JOIN shelves s ON s.id = a.shelf_id
		LEFT JOIN racks k ON k.id = s.rack_id
		LEFT JOIN rooms m ON m.id = k.room_id
		WHERE i.id = $1
	`
	if err := r.db.Conn(ctx).GetContext(ctx, &item, query, id); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("item")
		}
		return nil, err
	}
	return &item, nil
}

// CreateOnShelf inserts n units of tmpl and one active assignment for each
// on shelfID in a single statement. Every row shares the timestamp at.
func (r *ItemRepository) CreateOnShelf(ctx context.Context, tmpl ItemTemplate, n int, shelfID int64, actorID string, at time.Time) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	query := `
		WITH new_items AS (
			INSERT INTO items (name, category_id, manufacturer, expiration_date, note, is_gifted, created_at)
			SELECT $1, $2, $3, $4::date, $5, $6, $7
			FROM generate_series(1, $8)
			RETURNING id
		)
		INSERT INTO item_shelf_assignments (item_id, shelf_id, added_by, added_at)
		SELECT id, $9, $10, $7 FROM new_items
	`
	result, err := r.db.Conn(ctx).ExecContext(ctx, query,
		tmpl.Name, tmpl.CategoryID, tmpl.Manufacturer, tmpl.ExpirationDate, tmpl.Note, tmpl.IsGifted,
		at, n, shelfID, actorID,
	)
	if err != nil {
		return 0, database.Translate(err)
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}
