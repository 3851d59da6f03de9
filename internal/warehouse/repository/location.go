package repository

import (
	"context"
	"time"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/pkg/database"
	"github.com/ksp/warehouse/pkg/errors"
)

// Room is the top level of the location hierarchy.
type Room struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	QRToken   string    `db:"qr_token" json:"qr_token"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Rack belongs to one room and is named by a single character.
type Rack struct {
	ID        int64     `db:"id" json:"id"`
	RoomID    int64     `db:"room_id" json:"room_id"`
	RoomName  string    `db:"room_name" json:"room_name"`
	Name      string    `db:"name" json:"name"`
	QRToken   string    `db:"qr_token" json:"qr_token"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Shelf belongs to one rack and is numbered from 1.
type Shelf struct {
	ID        int64     `db:"id" json:"id"`
	RackID    int64     `db:"rack_id" json:"rack_id"`
	RackName  string    `db:"rack_name" json:"rack_name"`
	RoomID    int64     `db:"room_id" json:"room_id"`
	RoomName  string    `db:"room_name" json:"room_name"`
	Number    int       `db:"number" json:"number"`
	QRToken   string    `db:"qr_token" json:"qr_token"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FullLocation returns "room.rack.number".
func (s *Shelf) FullLocation() string {
	return domain.FullLocation(s.RoomName, s.RackName, s.Number)
}

// LocationRef is what a QR token resolves to.
type LocationRef struct {
	Kind domain.LocationKind `db:"kind" json:"kind"`
	ID   int64               `db:"id" json:"id"`
}

const (
	rackColumns = `k.id, k.room_id, m.name AS room_name, k.name, k.qr_token, k.created_at, k.updated_at`
	rackFrom    = `FROM racks k JOIN rooms m ON m.id = k.room_id`

	shelfColumns = `s.id, s.rack_id, k.name AS rack_name, k.room_id, m.name AS room_name,
		s.number, s.qr_token, s.created_at, s.updated_at`
	shelfFrom = `FROM shelves s JOIN racks k ON k.id = s.rack_id JOIN rooms m ON m.id = k.room_id`
)

// LocationRepository handles rooms, racks and shelves.
type LocationRepository struct {
	db *database.DB
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *database.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// Room operations

func (r *LocationRepository) CreateRoom(ctx context.Context, room *Room) error {
	query := `
		INSERT INTO rooms (name) VALUES ($1)
		RETURNING id, qr_token, created_at, updated_at
	`
	err := r.db.Conn(ctx).QueryRowxContext(ctx, query, room.Name).
		Scan(&room.ID, &room.QRToken, &room.CreatedAt, &room.UpdatedAt)
	return database.Translate(err)
}

func (r *LocationRepository) GetRoom(ctx context.Context, id int64) (*Room, error) {
	var room Room
	query := `SELECT id, name, qr_token, created_at, updated_at FROM rooms WHERE id = $1`
	if err := r.db.Conn(ctx).GetContext(ctx, &room, query, id); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("room")
		}
		return nil, err
	}
	return &room, nil
}

func (r *LocationRepository) ListRooms(ctx context.Context) ([]*Room, error) {
	rooms := []*Room{}
	query := `SELECT id, name, qr_token, created_at, updated_at FROM rooms ORDER BY name`
	if err := r.db.Conn(ctx).SelectContext(ctx, &rooms, query); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *LocationRepository) UpdateRoom(ctx context.Context, room *Room) error {
	query := `
		UPDATE rooms SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING qr_token, created_at, updated_at
	`
	err := r.db.Conn(ctx).QueryRowxContext(ctx, query, room.ID, room.Name).
		Scan(&room.QRToken, &room.CreatedAt, &room.UpdatedAt)
	if database.IsNoRows(err) {
		return errors.NotFound("room")
	}
	return database.Translate(err)
}

// DeleteRoom removes the room with its racks, shelves and their assignment
// history. Callers check for active assignments first.
func (r *LocationRepository) DeleteRoom(ctx context.Context, id int64) error {
	return r.delete(ctx, `DELETE FROM rooms WHERE id = $1`, id, "room")
}

// Rack operations

func (r *LocationRepository) CreateRack(ctx context.Context, rack *Rack) error {
	query := `
		INSERT INTO racks (room_id, name) VALUES ($1, $2)
		RETURNING id, qr_token, created_at, updated_at
	`
	err := r.db.Conn(ctx).QueryRowxContext(ctx, query, rack.RoomID, rack.Name).
		Scan(&rack.ID, &rack.QRToken, &rack.CreatedAt, &rack.UpdatedAt)
	return database.Translate(err)
}

func (r *LocationRepository) GetRack(ctx context.Context, id int64) (*Rack, error) {
	var rack Rack
	query := `SELECT ` + rackColumns + ` ` + rackFrom + ` WHERE k.id = $1`
	if err := r.db.Conn(ctx).GetContext(ctx, &rack, query, id); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("rack")
		}
		return nil, err
	}
	return &rack, nil
}

// ListRacks returns racks ordered by room name then rack name, optionally
// restricted to one room.
func (r *LocationRepository) ListRacks(ctx context.Context, roomID *int64) ([]*Rack, error) {
	racks := []*Rack{}
	query := `SELECT ` + rackColumns + ` ` + rackFrom + `
		WHERE ($1::bigint IS NULL OR k.room_id = $1)
		ORDER BY m.name, k.name`
	if err := r.db.Conn(ctx).SelectContext(ctx, &racks, query, roomID); err != nil {
		return nil, err
	}
	return racks, nil
}

func (r *LocationRepository) UpdateRack(ctx context.Context, rack *Rack) error {
	query := `
		UPDATE racks SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING room_id, qr_token, created_at, updated_at
	`
	err := r.db.Conn(ctx).QueryRowxContext(ctx, query, rack.ID, rack.Name).
		Scan(&rack.RoomID, &rack.QRToken, &rack.CreatedAt, &rack.UpdatedAt)
	if database.IsNoRows(err) {
		return errors.NotFound("rack")
	}
	return database.Translate(err)
}

func (r *LocationRepository) DeleteRack(ctx context.Context, id int64) error {
	return r.delete(ctx, `DELETE FROM racks WHERE id = $1`, id, "rack")
}

// Shelf operations

func (r *LocationRepository) CreateShelf(ctx context.Context, shelf *Shelf) error {
	query := `
		INSERT INTO shelves (rack_id, number) VALUES ($1, $2)
		RETURNING id, qr_token, created_at, updated_at
	`
	err := r.db.Conn(ctx).QueryRowxContext(ctx, query, shelf.RackID, shelf.Number).
		Scan(&shelf.ID, &shelf.QRToken, &shelf.CreatedAt, &shelf.UpdatedAt)
	return database.Translate(err)
}

func (r *LocationRepository) GetShelf(ctx context.Context, id int64) (*Shelf, error) {
	var shelf Shelf
	query := `SELECT ` + shelfColumns + ` ` + shelfFrom + ` WHERE s.id = $1`
	if err := r.db.Conn(ctx).GetContext(ctx, &shelf, query, id); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("shelf")
		}
		return nil, err
	}
	return &shelf, nil
}

// ListShelves returns shelves in location order. rackID wins over roomID
// when both are given.
func (r *LocationRepository) ListShelves(ctx context.Context, rackID, roomID *int64) ([]*Shelf, error) {
	shelves := []*Shelf{}
	if rackID != nil {
		roomID = nil
	}
	query := `SELECT ` + shelfColumns + ` ` + shelfFrom + `
		WHERE ($1::bigint IS NULL OR s.rack_id = $1)
		  AND ($2::bigint IS NULL OR k.room_id = $2)
		ORDER BY m.name, k.name, s.number`
	if err := r.db.Conn(ctx).SelectContext(ctx, &shelves, query, rackID, roomID); err != nil {
		return nil, err
	}
	return shelves, nil
}

func (r *LocationRepository) UpdateShelf(ctx context.Context, shelf *Shelf) error {
	query := `
		UPDATE shelves SET number = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING rack_id, qr_token, created_at, updated_at
	`
	err := r.db.Conn(ctx).QueryRowxContext(ctx, query, shelf.ID, shelf.Number).
		Scan(&shelf.RackID, &shelf.QRToken, &shelf.CreatedAt, &shelf.UpdatedAt)
	if database.IsNoRows(err) {
		return errors.NotFound("shelf")
	}
	return database.Translate(err)
}

func (r *LocationRepository) DeleteShelf(ctx context.Context, id int64) error {
	return r.delete(ctx, `DELETE FROM shelves WHERE id = $1`, id, "shelf")
}

// EnsureShelf returns the shelf room.rack.number, creating any missing level.
func (r *LocationRepository) EnsureShelf(ctx context.Context, room, rack string, number int) (*Shelf, error) {
	q := r.db.Conn(ctx)

	var roomID, rackID, shelfID int64
	err := q.QueryRowxContext(ctx, `
		INSERT INTO rooms (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, room).Scan(&roomID)
	if err != nil {
		return nil, database.Translate(err)
	}
	err = q.QueryRowxContext(ctx, `
		INSERT INTO racks (room_id, name) VALUES ($1, $2)
		ON CONFLICT (room_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, roomID, rack).Scan(&rackID)
	if err != nil {
		return nil, database.Translate(err)
	}
	err = q.QueryRowxContext(ctx, `
		INSERT INTO shelves (rack_id, number) VALUES ($1, $2)
		ON CONFLICT (rack_id, number) DO UPDATE SET number = EXCLUDED.number
		RETURNING id`, rackID, number).Scan(&shelfID)
	if err != nil {
		return nil, database.Translate(err)
	}
	return r.GetShelf(ctx, shelfID)
}

// ResolveToken finds the room, rack or shelf carrying token.
func (r *LocationRepository) ResolveToken(ctx context.Context, token string) (*LocationRef, error) {
	var ref LocationRef
	query := `
		SELECT 'room' AS kind, id FROM rooms WHERE qr_token = $1::uuid
		UNION ALL
		SELECT 'rack', id FROM racks WHERE qr_token = $1::uuid
		UNION ALL
		SELECT 'shelf', id FROM shelves WHERE qr_token = $1::uuid
		LIMIT 1
	`
	if err := r.db.Conn(ctx).GetContext(ctx, &ref, query, token); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("location")
		}
		return nil, err
	}
	return &ref, nil
}

// CountActiveUnder counts active assignments on every shelf beneath the
// given location.
func (r *LocationRepository) CountActiveUnder(ctx context.Context, kind domain.LocationKind, id int64) (int, error) {
	var n int
	query := `
		SELECT COUNT(*)
		FROM item_shelf_assignments a
		JOIN shelves s ON s.id = a.shelf_id
		JOIN racks k ON k.id = s.rack_id
		WHERE a.removed_at IS NULL AND ` + scopeClause(kind, "$1")
	if err := r.db.Conn(ctx).GetContext(ctx, &n, query, id); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *LocationRepository) delete(ctx context.Context, query string, id int64, resource string) error {
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return database.Translate(err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound(resource)
	}
	return nil
}

// scopeClause restricts a query joining shelves s and racks k to one
// location. param is the placeholder carrying the location id.
func scopeClause(kind domain.LocationKind, param string) string {
	switch kind {
	case domain.KindRoom:
		return "k.room_id = " + param
	case domain.KindRack:
		return "s.rack_id = " + param
	default:
		return "s.id = " + param
	}
}
