package service

import (
	"context"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/ksp/warehouse/pkg/actor"
	"github.com/ksp/warehouse/pkg/errors"
)

// RemoveAssignment closes one active assignment. A row that is already
// closed reports NotFound "active assignment".
func (s *WarehouseService) RemoveAssignment(ctx context.Context, id int64) (*repository.AssignmentDetail, error) {
	who := actor.OrSystem(ctx)
	now := s.now()

	var detail *repository.AssignmentDetail
	err := s.db.InTx(ctx, func(ctx context.Context) error {
		var err error
		detail, err = s.repos.Assignments.Get(ctx, id)
		if err != nil {
			return err
		}
		return s.repos.Assignments.Close(ctx, id, who.ID, now)
	})
	if err != nil {
		return nil, err
	}

	detail.RemovedAt = &now
	detail.RemovedBy = &who.ID
	s.publisher.ItemsRemoved(ctx, detail.ShelfID, detail.Key(), 1, who.ID)
	return detail, nil
}

// MoveItem moves one item from fromShelfID to toShelfID by closing its
// active assignment on the source and opening a new one on the target.
func (s *WarehouseService) MoveItem(ctx context.Context, itemID, fromShelfID, toShelfID int64) (*repository.Assignment, error) {
	if fromShelfID == toShelfID {
		return nil, sameShelfError()
	}
	who := actor.OrSystem(ctx)
	now := s.now()

	var opened *repository.Assignment
	err := s.db.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.repos.Locations.GetShelf(ctx, toShelfID); err != nil {
			return err
		}
		current, err := s.repos.Assignments.ActiveOnShelfForUpdate(ctx, itemID, fromShelfID)
		if err != nil {
			return err
		}
		if err := s.repos.Assignments.Close(ctx, current.ID, who.ID, now); err != nil {
			return err
		}
		opened, err = s.repos.Assignments.Open(ctx, itemID, toShelfID, who.ID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publisher.ItemsMoved(ctx, fromShelfID, toShelfID, 1, 0, who.ID)
	return opened, nil
}

func sameShelfError() error {
	return errors.Field("to_shelf_id", "must differ from the source shelf").
		WithKey("errors.same_shelf", nil)
}

// fallbackShelf returns the shelf clean relocates to, creating it on demand.
func (s *WarehouseService) fallbackShelf(ctx context.Context) (*repository.Shelf, error) {
	return s.repos.Locations.EnsureShelf(ctx, domain.FallbackRoom, domain.FallbackRack, domain.FallbackShelf)
}
