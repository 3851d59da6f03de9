package repository

import (
	"context"
	"strings"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/pkg/database"
)

// AutocompleteLimit caps every suggestion list.
const AutocompleteLimit = 10

// Suggestion is one autocomplete entry. ID is set for categories.
type Suggestion struct {
	ID   *int64 `db:"id" json:"id,omitempty"`
	Text string `db:"text" json:"text"`
}

// LookupRepository serves the pickers of the UI.
type LookupRepository struct {
	db *database.DB
}

// NewLookupRepository creates a new lookup repository
func NewLookupRepository(db *database.DB) *LookupRepository {
	return &LookupRepository{db: db}
}

// ItemNames suggests distinct item names containing term.
func (r *LookupRepository) ItemNames(ctx context.Context, term string) ([]*Suggestion, error) {
	return r.suggest(ctx, `
		SELECT DISTINCT name AS text FROM items
		WHERE name ILIKE $1
		ORDER BY text
		LIMIT $2`, term)
}

// Manufacturers suggests distinct manufacturers containing term.
func (r *LookupRepository) Manufacturers(ctx context.Context, term string) ([]*Suggestion, error) {
	return r.suggest(ctx, `
		SELECT DISTINCT manufacturer AS text FROM items
		WHERE manufacturer IS NOT NULL AND manufacturer ILIKE $1
		ORDER BY text
		LIMIT $2`, term)
}

// Categories suggests categories whose name contains term.
func (r *LookupRepository) Categories(ctx context.Context, term string) ([]*Suggestion, error) {
	return r.suggest(ctx, `
		SELECT id, name AS text FROM categories
		WHERE name ILIKE $1
		ORDER BY name
		LIMIT $2`, term)
}

// Users suggests cached user ids and names containing term.
func (r *LookupRepository) Users(ctx context.Context, term string) ([]*Suggestion, error) {
	return r.suggest(ctx, `
		SELECT user_id || ' (' || TRIM(first_name || ' ' || last_name) || ')' AS text
		FROM user_cache
		WHERE user_id ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1
		ORDER BY last_name, first_name, user_id
		LIMIT $2`, term)
}

func (r *LookupRepository) suggest(ctx context.Context, query, term string) ([]*Suggestion, error) {
	out := []*Suggestion{}
	term = strings.TrimSpace(term)
	if term == "" {
		return out, nil
	}
	if err := r.db.Conn(ctx).SelectContext(ctx, &out, query, "%"+escapeLike(term)+"%", AutocompleteLimit); err != nil {
		return nil, err
	}
	return out, nil
}

// ShelfUnit is one active unit offered by the shelf picker.
type ShelfUnit struct {
	ID             int64        `db:"id" json:"id"`
	Name           string       `db:"name" json:"name"`
	Category       string       `db:"category" json:"category"`
	Manufacturer   *string      `db:"manufacturer" json:"manufacturer"`
	ExpirationDate *domain.Date `db:"expiration_date" json:"expiration_date"`
	AssignmentID   int64        `db:"assignment_id" json:"assignment_id"`
}

// ShelfUnits lists the active units on a shelf ordered by name.
func (r *LookupRepository) ShelfUnits(ctx context.Context, shelfID int64) ([]*ShelfUnit, error) {
	units := []*ShelfUnit{}
	query := `
		SELECT i.id, i.name, c.name AS category, i.manufacturer, i.expiration_date, a.id AS assignment_id
		FROM item_shelf_assignments a
		JOIN items i ON i.id = a.item_id
		JOIN categories c ON c.id = i.category_id
		WHERE a.shelf_id = $1 AND a.removed_at IS NULL
		ORDER BY i.name, i.expiration_date NULLS LAST, a.id
	`
	if err := r.db.Conn(ctx).SelectContext(ctx, &units, query, shelfID); err != nil {
		return nil, err
	}
	return units, nil
}
