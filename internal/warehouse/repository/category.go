package repository

import (
	"context"
	"time"

	"github.com/ksp/warehouse/pkg/database"
	"github.com/ksp/warehouse/pkg/errors"
)

// Category classifies items. It cannot be deleted while items reference it.
type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	ItemCount   int       `db:"item_count" json:"item_count"`
	ActiveCount int       `db:"active_count" json:"active_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// HasItems is the advisory pre-check shown to UIs before deletion.
func (c *Category) HasItems() bool {
	return c.ItemCount > 0
}

const categorySelect = `
	SELECT c.id, c.name, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM items i WHERE i.category_id = c.id) AS item_count,
		(SELECT COUNT(*) FROM items i
			JOIN item_shelf_assignments a ON a.item_id = i.id AND a.removed_at IS NULL
			WHERE i.category_id = c.id) AS active_count
	FROM categories c`

// CategoryRepository handles category persistence
type CategoryRepository struct {
	db *database.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *database.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, c *Category) error {
	query := `INSERT INTO categories (name) VALUES ($1) RETURNING id, created_at, updated_at`
	err := r.db.Conn(ctx).QueryRowxContext(ctx, query, c.Name).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return database.Translate(err)
}

func (r *CategoryRepository) Get(ctx context.Context, id int64) (*Category, error) {
	var c Category
	if err := r.db.Conn(ctx).GetContext(ctx, &c, categorySelect+` WHERE c.id = $1`, id); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("category")
		}
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]*Category, error) {
	categories := []*Category{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &categories, categorySelect+` ORDER BY c.name`); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *CategoryRepository) Update(ctx context.Context, c *Category) error {
	query := `
		UPDATE categories SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := r.db.Conn(ctx).QueryRowxContext(ctx, query, c.ID, c.Name).Scan(&c.CreatedAt, &c.UpdatedAt)
	if database.IsNoRows(err) {
		return errors.NotFound("category")
	}
	return database.Translate(err)
}

// Delete removes a category. The items foreign key rejects the statement
// while any item, active or historical, still references it.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Conn(ctx).ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return database.Translate(err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("category")
	}
	return nil
}
