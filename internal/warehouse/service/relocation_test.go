package service_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/ksp/warehouse/internal/warehouse/service"
	"github.com/ksp/warehouse/pkg/messaging"
	"github.com/ksp/warehouse/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveItem(t *testing.T) {
	env := newTestService(t)
	f := env.suite.Fixtures
	from := f.Location(t, "Apteka", "A", 1)
	to := f.Location(t, "Apteka", "B", 1)
	catID := f.Category(t, "Leki")
	itemID := f.ItemIDs(t, f.Items(t, testutil.ItemSpec{Name: "Apap", CategoryID: catID}, from, 1))[0]

	opened, err := env.svc.MoveItem(env.ctx, itemID, from, to)
	require.NoError(t, err)
	assert.Equal(t, to, opened.ShelfID)
	assert.Equal(t, 0, f.ActiveCount(t, from))
	assert.Equal(t, 1, f.ActiveCount(t, to))

	var closed struct {
		RemovedAt *time.Time `db:"removed_at"`
		RemovedBy *string    `db:"removed_by"`
	}
	require.NoError(t, env.suite.DB.GetContext(env.ctx, &closed,
		`SELECT removed_at, removed_by FROM item_shelf_assignments WHERE item_id = $1 AND shelf_id = $2`, itemID, from))
	assert.NotNil(t, closed.RemovedAt)
	require.NotNil(t, closed.RemovedBy)
	assert.Equal(t, "u-1", *closed.RemovedBy)

	var activeOnTo int
	require.NoError(t, env.suite.DB.GetContext(env.ctx, &activeOnTo,
		`SELECT COUNT(*) FROM item_shelf_assignments WHERE item_id = $1 AND shelf_id = $2 AND removed_at IS NULL`, itemID, to))
	assert.Equal(t, 1, activeOnTo)

	// The item is no longer on the source shelf.
	_, err = env.svc.MoveItem(env.ctx, itemID, from, to)
	requireAppError(t, err, http.StatusNotFound)

	_, err = env.svc.MoveItem(env.ctx, itemID, to, to)
	appErr := requireAppError(t, err, http.StatusBadRequest)
	assert.Equal(t, "errors.same_shelf", appErr.MessageKey)

	events := env.sink.Events(messaging.EventItemsMoved)
	require.Len(t, events, 1)
}

func TestLedgerRefusesSecondActiveAssignment(t *testing.T) {
	env := newTestService(t)
	f := env.suite.Fixtures
	shelfA := f.Location(t, "Apteka", "A", 1)
	shelfB := f.Location(t, "Apteka", "B", 1)
	catID := f.Category(t, "Leki")
	itemID := f.ItemIDs(t, f.Items(t, testutil.ItemSpec{Name: "Apap", CategoryID: catID}, shelfA, 1))[0]

	repos := repository.New(env.suite.DB)
	_, err := repos.Assignments.Open(env.ctx, itemID, shelfB, "u-1", time.Now())
	appErr := requireAppError(t, err, http.StatusConflict)
	assert.Equal(t, "errors.double_active_assignment", appErr.MessageKey)

	assert.Equal(t, 1, f.ActiveCount(t, shelfA))
	assert.Equal(t, 0, f.ActiveCount(t, shelfB))
}

func TestMoveItemsSkipsForeignItems(t *testing.T) {
	env := newTestService(t)
	f := env.suite.Fixtures
	from := f.Location(t, "Apteka", "A", 1)
	other := f.Location(t, "Apteka", "A", 2)
	to := f.Location(t, "Apteka", "B", 1)
	catID := f.Category(t, "Leki")

	here := f.ItemIDs(t, f.Items(t, testutil.ItemSpec{Name: "Apap", CategoryID: catID}, from, 3))
	elsewhere := f.ItemIDs(t, f.Items(t, testutil.ItemSpec{Name: "Apap", CategoryID: catID}, other, 1))

	res, err := env.svc.MoveItems(env.ctx, service.MoveRequest{
		ItemIDs:     append(append([]int64{}, here...), elsewhere[0], here[0]),
		FromShelfID: from,
		ToShelfID:   to,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Moved)
	assert.Equal(t, []int64{elsewhere[0]}, res.Skipped)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Apteka.A.1")
	assert.Equal(t, "Apteka.A.1", res.From)
	assert.Equal(t, "Apteka.B.1", res.To)

	assert.Equal(t, 0, f.ActiveCount(t, from))
	assert.Equal(t, 1, f.ActiveCount(t, other))
	assert.Equal(t, 3, f.ActiveCount(t, to))
}

func TestMoveItemsNothingToMove(t *testing.T) {
	env := newTestService(t)
	f := env.suite.Fixtures
	from := f.Location(t, "Apteka", "A", 1)
	to := f.Location(t, "Apteka", "B", 1)

	_, err := env.svc.MoveItems(env.ctx, service.MoveRequest{ItemIDs: []int64{41, 42}, FromShelfID: from, ToShelfID: to})
	appErr := requireAppError(t, err, http.StatusNotFound)
	assert.Equal(t, "errors.no_items_moved", appErr.MessageKey)
	assert.Equal(t, "41,42", appErr.Details["skipped"])
	assert.Empty(t, env.sink.Events(messaging.EventItemsMoved))
}

func TestMoveGroupReportsShortfall(t *testing.T) {
	env := newTestService(t)
	f := env.suite.Fixtures
	from := f.Location(t, "Apteka", "A", 1)
	to := f.Location(t, "Apteka", "B", 1)
	catID := f.Category(t, "Leki")
	seed := f.Items(t, testutil.ItemSpec{Name: "Apap", CategoryID: catID, Manufacturer: testutil.PtrString("Polpharma")}, from, 4)
	f.Items(t, testutil.ItemSpec{Name: "Apap", CategoryID: catID}, from, 2)

	res, err := env.svc.MoveGroup(env.ctx, service.GroupMoveRequest{AssignmentID: seed[0], ToShelfID: to, Count: 6})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Moved)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[len(res.Warnings)-1], "Only 4 of 6")

	assert.Equal(t, 2, f.ActiveCount(t, from))
	assert.Equal(t, 4, f.ActiveCount(t, to))
}

func TestCleanMovesToFallback(t *testing.T) {
	env := newTestService(t)
	f := env.suite.Fixtures
	s1 := f.Location(t, "Apteka", "A", 1)
	s2 := f.Location(t, "Apteka", "B", 3)
	keep := f.Location(t, "Magazyn", "A", 1)
	catID := f.Category(t, "Leki")
	f.Items(t, testutil.ItemSpec{Name: "Apap", CategoryID: catID}, s1, 2)
	f.Items(t, testutil.ItemSpec{Name: "Ibuprom", CategoryID: catID}, s2, 3)
	f.Items(t, testutil.ItemSpec{Name: "Apap", CategoryID: catID}, keep, 1)

	var roomID int64
	require.NoError(t, env.suite.DB.Get(&roomID, `SELECT id FROM rooms WHERE name = 'Apteka'`))

	res, err := env.svc.Clean(env.ctx, domain.KindRoom, roomID)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Moved)
	assert.Equal(t, "Unassigned.A.1", res.Target)

	fallback := f.Location(t, domain.FallbackRoom, domain.FallbackRack, domain.FallbackShelf)
	assert.Equal(t, 5, f.ActiveCount(t, fallback))
	assert.Equal(t, 1, f.ActiveCount(t, keep))

	events := env.sink.Events(messaging.EventLocationCleaned)
	require.Len(t, events, 1)

	// The emptied room can now be deleted.
	require.NoError(t, env.svc.DeleteRoom(env.ctx, roomID))
}

func TestCleanFallbackShelfIsNoop(t *testing.T) {
	env := newTestService(t)
	f := env.suite.Fixtures
	fallback := f.Location(t, domain.FallbackRoom, domain.FallbackRack, domain.FallbackShelf)
	catID := f.Category(t, "Leki")
	f.Items(t, testutil.ItemSpec{Name: "Apap", CategoryID: catID}, fallback, 2)

	res, err := env.svc.Clean(env.ctx, domain.KindShelf, fallback)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Moved)
	assert.Equal(t, 2, f.ActiveCount(t, fallback))
}

func TestCleanUnknownLocation(t *testing.T) {
	env := newTestService(t)

	_, err := env.svc.Clean(env.ctx, domain.KindRack, 12345)
	requireAppError(t, err, http.StatusNotFound)

	_, err = env.svc.Clean(env.ctx, domain.LocationKind("floor"), 1)
	requireAppError(t, err, http.StatusBadRequest)
}
