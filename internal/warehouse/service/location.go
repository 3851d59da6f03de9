package service

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/ksp/warehouse/pkg/errors"
)

// ResolvedLocation is what a scanned QR token points to.
type ResolvedLocation struct {
	Kind  domain.LocationKind `json:"kind"`
	ID    int64               `json:"id"`
	URL   string              `json:"url"`
	Room  *repository.Room    `json:"room,omitempty"`
	Rack  *repository.Rack    `json:"rack,omitempty"`
	Shelf *repository.Shelf   `json:"shelf,omitempty"`
}

// LocationURL builds the label URL for a token.
func (s *WarehouseService) LocationURL(kind domain.LocationKind, token string) string {
	return domain.LocationURL(s.opts.PublicBaseURL, kind, token)
}

// Rooms

func (s *WarehouseService) CreateRoom(ctx context.Context, name string) (*repository.Room, error) {
	room := &repository.Room{Name: domain.NormalizeName(name)}
	if room.Name == "" {
		return nil, errors.Field("name", "is required")
	}
	if err := s.repos.Locations.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *WarehouseService) GetRoom(ctx context.Context, id int64) (*repository.Room, error) {
	return s.repos.Locations.GetRoom(ctx, id)
}

func (s *WarehouseService) ListRooms(ctx context.Context) ([]*repository.Room, error) {
	return s.repos.Locations.ListRooms(ctx)
}

func (s *WarehouseService) RenameRoom(ctx context.Context, id int64, name string) (*repository.Room, error) {
	room := &repository.Room{ID: id, Name: domain.NormalizeName(name)}
	if room.Name == "" {
		return nil, errors.Field("name", "is required")
	}
	if err := s.repos.Locations.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// DeleteRoom removes an empty room together with its racks and shelves.
func (s *WarehouseService) DeleteRoom(ctx context.Context, id int64) error {
	return s.db.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.repos.Locations.GetRoom(ctx, id); err != nil {
			return err
		}
		if err := s.ensureEmpty(ctx, domain.KindRoom, id); err != nil {
			return err
		}
		return s.repos.Locations.DeleteRoom(ctx, id)
	})
}

// Racks

func (s *WarehouseService) CreateRack(ctx context.Context, roomID int64, name string) (*repository.Rack, error) {
	normalized, ok := domain.NormalizeRackName(name)
	if !ok {
		return nil, errors.Field("name", "must be a single letter or digit")
	}
	room, err := s.repos.Locations.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	rack := &repository.Rack{RoomID: room.ID, RoomName: room.Name, Name: normalized}
	if err := s.repos.Locations.CreateRack(ctx, rack); err != nil {
		return nil, err
	}
	return rack, nil
}

func (s *WarehouseService) GetRack(ctx context.Context, id int64) (*repository.Rack, error) {
	return s.repos.Locations.GetRack(ctx, id)
}

// ListRacks lists racks ordered by room and name, optionally for one room.
func (s *WarehouseService) ListRacks(ctx context.Context, roomID *int64) ([]*repository.Rack, error) {
	return s.repos.Locations.ListRacks(ctx, roomID)
}

func (s *WarehouseService) RenameRack(ctx context.Context, id int64, name string) (*repository.Rack, error) {
	normalized, ok := domain.NormalizeRackName(name)
	if !ok {
		return nil, errors.Field("name", "must be a single letter or digit")
	}
	rack := &repository.Rack{ID: id, Name: normalized}
	if err := s.repos.Locations.UpdateRack(ctx, rack); err != nil {
		return nil, err
	}
	return s.repos.Locations.GetRack(ctx, id)
}

func (s *WarehouseService) DeleteRack(ctx context.Context, id int64) error {
	return s.db.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.repos.Locations.GetRack(ctx, id); err != nil {
			return err
		}
		if err := s.ensureEmpty(ctx, domain.KindRack, id); err != nil {
			return err
		}
		return s.repos.Locations.DeleteRack(ctx, id)
	})
}

// Shelves

func (s *WarehouseService) CreateShelf(ctx context.Context, rackID int64, number int) (*repository.Shelf, error) {
	if number < 1 {
		return nil, errors.Field("number", "must be a positive number")
	}
	if _, err := s.repos.Locations.GetRack(ctx, rackID); err != nil {
		return nil, err
	}
	shelf := &repository.Shelf{RackID: rackID, Number: number}
	if err := s.repos.Locations.CreateShelf(ctx, shelf); err != nil {
		return nil, err
	}
	return s.repos.Locations.GetShelf(ctx, shelf.ID)
}

func (s *WarehouseService) GetShelf(ctx context.Context, id int64) (*repository.Shelf, error) {
	return s.repos.Locations.GetShelf(ctx, id)
}

// ListShelves lists shelves in location order. rackID wins over roomID.
func (s *WarehouseService) ListShelves(ctx context.Context, rackID, roomID *int64) ([]*repository.Shelf, error) {
	return s.repos.Locations.ListShelves(ctx, rackID, roomID)
}

func (s *WarehouseService) RenumberShelf(ctx context.Context, id int64, number int) (*repository.Shelf, error) {
	if number < 1 {
		return nil, errors.Field("number", "must be a positive number")
	}
	if err := s.repos.Locations.UpdateShelf(ctx, &repository.Shelf{ID: id, Number: number}); err != nil {
		return nil, err
	}
	return s.repos.Locations.GetShelf(ctx, id)
}

func (s *WarehouseService) DeleteShelf(ctx context.Context, id int64) error {
	return s.db.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.repos.Locations.GetShelf(ctx, id); err != nil {
			return err
		}
		if err := s.ensureEmpty(ctx, domain.KindShelf, id); err != nil {
			return err
		}
		return s.repos.Locations.DeleteShelf(ctx, id)
	})
}

// ResolveToken finds the location a QR token belongs to.
func (s *WarehouseService) ResolveToken(ctx context.Context, token string) (*ResolvedLocation, error) {
	parsed, err := uuid.Parse(token)
	if err != nil {
		return nil, errors.NotFound("location")
	}
	token = parsed.String()

	ref, err := s.repos.Locations.ResolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	res := &ResolvedLocation{Kind: ref.Kind, ID: ref.ID, URL: s.LocationURL(ref.Kind, token)}
	switch ref.Kind {
	case domain.KindRoom:
		res.Room, err = s.repos.Locations.GetRoom(ctx, ref.ID)
	case domain.KindRack:
		res.Rack, err = s.repos.Locations.GetRack(ctx, ref.ID)
	default:
		res.Shelf, err = s.repos.Locations.GetShelf(ctx, ref.ID)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *WarehouseService) ensureEmpty(ctx context.Context, kind domain.LocationKind, id int64) error {
	n, err := s.repos.Locations.CountActiveUnder(ctx, kind, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return errors.Conflict(string(kind)+" still holds active items").
			WithKey("errors.location_not_empty", map[string]string{
				"resource": string(kind),
				"count":    strconv.Itoa(n),
			})
	}
	return nil
}
