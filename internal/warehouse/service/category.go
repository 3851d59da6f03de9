package service

import (
	"context"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/ksp/warehouse/pkg/errors"
)

func (s *WarehouseService) CreateCategory(ctx context.Context, name string) (*repository.Category, error) {
	c := &repository.Category{Name: domain.NormalizeName(name)}
	if c.Name == "" {
		return nil, errors.Field("name", "is required")
	}
	if err := s.repos.Categories.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *WarehouseService) GetCategory(ctx context.Context, id int64) (*repository.Category, error) {
	return s.repos.Categories.Get(ctx, id)
}

func (s *WarehouseService) ListCategories(ctx context.Context) ([]*repository.Category, error) {
	return s.repos.Categories.List(ctx)
}

func (s *WarehouseService) RenameCategory(ctx context.Context, id int64, name string) (*repository.Category, error) {
	c := &repository.Category{ID: id, Name: domain.NormalizeName(name)}
	if c.Name == "" {
		return nil, errors.Field("name", "is required")
	}
	if err := s.repos.Categories.Update(ctx, c); err != nil {
		return nil, err
	}
	return s.repos.Categories.Get(ctx, id)
}

// DeleteCategory removes an unreferenced category. The foreign key from
// items is the authority; a referenced category yields a Conflict.
func (s *WarehouseService) DeleteCategory(ctx context.Context, id int64) error {
	return s.repos.Categories.Delete(ctx, id)
}

// GetItem returns one unit with its current placement.
func (s *WarehouseService) GetItem(ctx context.Context, id int64) (*repository.Item, error) {
	return s.repos.Items.Get(ctx, id)
}
