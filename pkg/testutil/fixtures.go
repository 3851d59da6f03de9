package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/ksp/warehouse/pkg/database"
)

// Fixtures inserts rows directly, bypassing normalization and validation.
type Fixtures struct {
	db *database.DB
}

// NewFixtures creates fixtures writing to db.
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// ItemSpec describes the item rows created by Items.
type ItemSpec struct {
	Name           string
	CategoryID     int64
	Manufacturer   *string
	ExpirationDate *time.Time
	Note           *string
	IsGifted       bool
}

// Room inserts a room and returns its id.
func (f *Fixtures) Room(t *testing.T, name string) int64 {
	t.Helper()
	return f.insert(t, `INSERT INTO rooms (name) VALUES ($1) RETURNING id`, name)
}

// Rack inserts a rack and returns its id.
func (f *Fixtures) Rack(t *testing.T, roomID int64, name string) int64 {
	t.Helper()
	return f.insert(t, `INSERT INTO racks (room_id, name) VALUES ($1, $2) RETURNING id`, roomID, name)
}

// Shelf inserts a shelf and returns its id.
func (f *Fixtures) Shelf(t *testing.T, rackID int64, number int) int64 {
	t.Helper()
	return f.insert(t, `INSERT INTO shelves (rack_id, number) VALUES ($1, $2) RETURNING id`, rackID, number)
}

// Location creates room, rack and shelf in one call, reusing existing rows
// with the same names, and returns the shelf id.
func (f *Fixtures) Location(t *testing.T, room, rack string, number int) int64 {
	t.Helper()
	roomID := f.insert(t, `
		INSERT INTO rooms (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, room)
	rackID := f.insert(t, `
		INSERT INTO racks (room_id, name) VALUES ($1, $2)
		ON CONFLICT (room_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, roomID, rack)
	return f.insert(t, `
		INSERT INTO shelves (rack_id, number) VALUES ($1, $2)
		ON CONFLICT (rack_id, number) DO UPDATE SET number = EXCLUDED.number
		RETURNING id`, rackID, number)
}

// Category inserts a category and returns its id.
func (f *Fixtures) Category(t *testing.T, name string) int64 {
	t.Helper()
	return f.insert(t, `INSERT INTO categories (name) VALUES ($1) RETURNING id`, name)
}

// Items inserts n identical items, each with an active assignment on
// shelfID, and returns the assignment ids in insertion order.
func (f *Fixtures) Items(t *testing.T, tmpl ItemSpec, shelfID int64, n int) []int64 {
	t.Helper()
	ctx := context.Background()

	var ids []int64
	for i := 0; i < n; i++ {
		var itemID, assignmentID int64
		err := f.db.GetContext(ctx, &itemID, `
			INSERT INTO items (name, category_id, manufacturer, expiration_date, note, is_gifted)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			tmpl.Name, tmpl.CategoryID, tmpl.Manufacturer, tmpl.ExpirationDate, tmpl.Note, tmpl.IsGifted)
		if err != nil {
			t.Fatalf("failed to insert item: %v", err)
		}
		err = f.db.GetContext(ctx, &assignmentID, `
			INSERT INTO item_shelf_assignments (item_id, shelf_id, added_by)
			VALUES ($1, $2, 'fixture') RETURNING id`, itemID, shelfID)
		if err != nil {
			t.Fatalf("failed to insert assignment: %v", err)
		}
		ids = append(ids, assignmentID)
	}
	return ids
}

// ActiveCount returns the number of active assignments on shelfID.
func (f *Fixtures) ActiveCount(t *testing.T, shelfID int64) int {
	t.Helper()
	var n int
	err := f.db.GetContext(context.Background(), &n,
		`SELECT COUNT(*) FROM item_shelf_assignments WHERE shelf_id = $1 AND removed_at IS NULL`, shelfID)
	if err != nil {
		t.Fatalf("failed to count assignments: %v", err)
	}
	return n
}

// ItemIDs returns the item ids of the given assignments.
func (f *Fixtures) ItemIDs(t *testing.T, assignmentIDs []int64) []int64 {
	t.Helper()
	out := make([]int64, 0, len(assignmentIDs))
	for _, id := range assignmentIDs {
		var itemID int64
		if err := f.db.GetContext(context.Background(), &itemID,
			`SELECT item_id FROM item_shelf_assignments WHERE id = $1`, id); err != nil {
			t.Fatalf("failed to load assignment %d: %v", id, err)
		}
		out = append(out, itemID)
	}
	return out
}

func (f *Fixtures) insert(t *testing.T, query string, args ...interface{}) int64 {
	t.Helper()
	var id int64
	if err := f.db.GetContext(context.Background(), &id, query, args...); err != nil {
		t.Fatalf("fixture insert failed: %v", err)
	}
	return id
}
