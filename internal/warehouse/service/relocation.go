package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/ksp/warehouse/pkg/actor"
	"github.com/ksp/warehouse/pkg/errors"
)

// MoveRequest moves a set of items between two shelves.
type MoveRequest struct {
	ItemIDs     []int64 `json:"item_ids" validate:"required,min=1"`
	FromShelfID int64   `json:"from_shelf_id" validate:"required,gt=0"`
	ToShelfID   int64   `json:"to_shelf_id" validate:"required,gt=0"`
}

// GroupMoveRequest moves Count units of the seed assignment's cohort from
// the seed's shelf to ToShelfID.
type GroupMoveRequest struct {
	AssignmentID int64 `json:"assignment_id" validate:"required,gt=0"`
	ToShelfID    int64 `json:"to_shelf_id" validate:"required,gt=0"`
	Count        int   `json:"count" validate:"required,gt=0"`
}

// MoveResult reports a committed move.
type MoveResult struct {
	Moved    int      `json:"moved"`
	Skipped  []int64  `json:"skipped"`
	Warnings []string `json:"warnings"`
	From     string   `json:"from"`
	To       string   `json:"to"`
}

// CleanResult reports a committed clean.
type CleanResult struct {
	Kind   domain.LocationKind `json:"kind"`
	ID     int64               `json:"id"`
	Moved  int                 `json:"moved"`
	Target string              `json:"target"`
}

// MoveItems moves every listed item that is active on the source shelf in
// one transaction. Items not on the source are skipped with a warning; if
// nothing could be moved the call fails and still reports the warnings.
func (s *WarehouseService) MoveItems(ctx context.Context, req MoveRequest) (*MoveResult, error) {
	if req.FromShelfID == req.ToShelfID {
		return nil, sameShelfError()
	}
	ids := uniqueIDs(req.ItemIDs)
	if len(ids) == 0 {
		return nil, errors.Field("item_ids", "is required")
	}

	who := actor.OrSystem(ctx)
	var res *MoveResult
	err := s.db.InTx(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.moveItems(ctx, ids, req.FromShelfID, req.ToShelfID, who.ID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publisher.ItemsMoved(ctx, req.FromShelfID, req.ToShelfID, res.Moved, len(res.Skipped), who.ID)
	return res, nil
}

// MoveGroup moves Count units of a cohort. When fewer units are left the
// available ones are moved and the shortfall is reported as a warning.
func (s *WarehouseService) MoveGroup(ctx context.Context, req GroupMoveRequest) (*MoveResult, error) {
	if req.Count < 1 {
		return nil, errors.Field("count", "must be at least 1")
	}

	who := actor.OrSystem(ctx)
	var (
		res  *MoveResult
		from int64
	)
	err := s.db.InTx(ctx, func(ctx context.Context) error {
		seed, err := s.repos.Assignments.Get(ctx, req.AssignmentID)
		if err != nil {
			return err
		}
		from = seed.ShelfID
		if from == req.ToShelfID {
			return sameShelfError()
		}
		ids, err := s.repos.Assignments.CohortItemIDs(ctx, from, seed.Key(), req.Count)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return cohortEmptyError()
		}
		res, err = s.moveItems(ctx, ids, from, req.ToShelfID, who.ID, s.now())
		if err != nil {
			return err
		}
		if len(ids) < req.Count {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("Only %d of %d requested units were available", len(ids), req.Count))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.ItemsMoved(ctx, from, req.ToShelfID, res.Moved, len(res.Skipped), who.ID)
	return res, nil
}

// Clean relocates every active assignment beneath a room, rack or shelf
// to the fallback location. Items already on the fallback shelf stay.
func (s *WarehouseService) Clean(ctx context.Context, kind domain.LocationKind, id int64) (*CleanResult, error) {
	if !kind.Valid() {
		return nil, errors.Field("kind", "must be room, rack or shelf")
	}

	who := actor.OrSystem(ctx)
	res := &CleanResult{Kind: kind, ID: id}
	err := s.db.InTx(ctx, func(ctx context.Context) error {
		if err := s.locationExists(ctx, kind, id); err != nil {
			return err
		}
		target, err := s.fallbackShelf(ctx)
		if err != nil {
			return err
		}
		res.Target = target.FullLocation()

		placements, err := s.repos.Assignments.ActiveUnder(ctx, kind, id, target.ID)
		if err != nil {
			return err
		}

		now := s.now()
		for _, group := range groupByShelf(placements) {
			moved, err := s.moveItems(ctx, group.itemIDs, group.shelfID, target.ID, who.ID, now)
			if err != nil {
				return err
			}
			res.Moved += moved.Moved
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("kind", string(kind)).
		Int64("id", id).
		Int("moved", res.Moved).
		Msg("location cleaned")
	s.publisher.LocationCleaned(ctx, kind, id, res.Moved, who.ID)
	return res, nil
}

// moveItems runs one batch move inside the caller's transaction.
func (s *WarehouseService) moveItems(ctx context.Context, ids []int64, fromShelfID, toShelfID int64, actorID string, at time.Time) (*MoveResult, error) {
	from, err := s.repos.Locations.GetShelf(ctx, fromShelfID)
	if err != nil {
		return nil, err
	}
	to, err := s.repos.Locations.GetShelf(ctx, toShelfID)
	if err != nil {
		return nil, err
	}

	closed, err := s.repos.Assignments.CloseOnShelf(ctx, fromShelfID, ids, actorID, at)
	if err != nil {
		return nil, err
	}

	res := &MoveResult{
		Moved:    len(closed),
		Skipped:  missing(ids, closed),
		Warnings: []string{},
		From:     from.FullLocation(),
		To:       to.FullLocation(),
	}
	for _, id := range res.Skipped {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Item %d has no active assignment on %s", id, res.From))
	}

	if len(closed) == 0 {
		return nil, errors.NotFound("source_assignment").
			WithKey("errors.no_items_moved", nil).
			WithDetails(map[string]string{
				"warnings": strings.Join(res.Warnings, "\n"),
				"skipped":  joinIDs(res.Skipped),
			})
	}

	if _, err := s.repos.Assignments.OpenMany(ctx, closed, toShelfID, actorID, at); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *WarehouseService) locationExists(ctx context.Context, kind domain.LocationKind, id int64) error {
	var err error
	switch kind {
	case domain.KindRoom:
		_, err = s.repos.Locations.GetRoom(ctx, id)
	case domain.KindRack:
		_, err = s.repos.Locations.GetRack(ctx, id)
	default:
		_, err = s.repos.Locations.GetShelf(ctx, id)
	}
	return err
}

type shelfGroup struct {
	shelfID int64
	itemIDs []int64
}

// groupByShelf splits placements ordered by shelf into one group per shelf.
func groupByShelf(placements []repository.ShelfItem) []shelfGroup {
	var groups []shelfGroup
	for _, p := range placements {
		if n := len(groups); n > 0 && groups[n-1].shelfID == p.ShelfID {
			groups[n-1].itemIDs = append(groups[n-1].itemIDs, p.ItemID)
			continue
		}
		groups = append(groups, shelfGroup{shelfID: p.ShelfID, itemIDs: []int64{p.ItemID}})
	}
	return groups
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id <= 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// missing returns the ids of want that are absent from got, in want order.
func missing(want, got []int64) []int64 {
	present := make(map[int64]struct{}, len(got))
	for _, id := range got {
		present[id] = struct{}{}
	}
	out := []int64{}
	for _, id := range want {
		if _, ok := present[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
