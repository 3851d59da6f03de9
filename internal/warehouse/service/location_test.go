package service_test

import (
	"net/http"
	"testing"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoomNormalizesName(t *testing.T) {
	env := newTestService(t)

	room, err := env.svc.CreateRoom(env.ctx, "  magazyn   główny ")
	require.NoError(t, err)
	assert.Equal(t, "Magazyn Główny", room.Name)
	assert.NotEmpty(t, room.QRToken)

	_, err = env.svc.CreateRoom(env.ctx, "MAGAZYN GŁÓWNY")
	appErr := requireAppError(t, err, http.StatusConflict)
	assert.Equal(t, "errors.duplicate_room", appErr.MessageKey)
}

func TestCreateRackValidatesName(t *testing.T) {
	env := newTestService(t)
	room, err := env.svc.CreateRoom(env.ctx, "Apteka")
	require.NoError(t, err)

	rack, err := env.svc.CreateRack(env.ctx, room.ID, " b ")
	require.NoError(t, err)
	assert.Equal(t, "B", rack.Name)

	_, err = env.svc.CreateRack(env.ctx, room.ID, "AB")
	requireAppError(t, err, http.StatusBadRequest)

	_, err = env.svc.CreateRack(env.ctx, room.ID+100, "C")
	requireAppError(t, err, http.StatusNotFound)
}

func TestCreateShelfRejectsNonPositiveNumber(t *testing.T) {
	env := newTestService(t)
	roomID := env.suite.Fixtures.Room(t, "Apteka")
	rackID := env.suite.Fixtures.Rack(t, roomID, "A")

	_, err := env.svc.CreateShelf(env.ctx, rackID, 0)
	requireAppError(t, err, http.StatusBadRequest)

	shelf, err := env.svc.CreateShelf(env.ctx, rackID, 3)
	require.NoError(t, err)
	assert.Equal(t, "Apteka.A.3", shelf.FullLocation())
}

func TestDeleteRoomGuardedByActiveItems(t *testing.T) {
	env := newTestService(t)
	f := env.suite.Fixtures
	shelfID := f.Location(t, "Apteka", "A", 1)
	catID := f.Category(t, "Leki")
	f.Items(t, testutil.ItemSpec{Name: "Apap", CategoryID: catID}, shelfID, 2)

	shelf, err := env.svc.GetShelf(env.ctx, shelfID)
	require.NoError(t, err)

	err = env.svc.DeleteRoom(env.ctx, shelf.RoomID)
	appErr := requireAppError(t, err, http.StatusConflict)
	assert.Equal(t, "errors.location_not_empty", appErr.MessageKey)
	assert.Equal(t, "2", appErr.Params["count"])

	_, err = env.svc.Clean(env.ctx, domain.KindRoom, shelf.RoomID)
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteRoom(env.ctx, shelf.RoomID))
	_, err = env.svc.GetRoom(env.ctx, shelf.RoomID)
	requireAppError(t, err, http.StatusNotFound)
}

func TestResolveToken(t *testing.T) {
	env := newTestService(t)
	shelfID := env.suite.Fixtures.Location(t, "Apteka", "A", 1)
	shelf, err := env.svc.GetShelf(env.ctx, shelfID)
	require.NoError(t, err)

	res, err := env.svc.ResolveToken(env.ctx, shelf.QRToken)
	require.NoError(t, err)
	assert.Equal(t, domain.KindShelf, res.Kind)
	assert.Equal(t, shelfID, res.ID)
	assert.Equal(t, "https://ksp.example/locations/shelf/"+shelf.QRToken, res.URL)
	require.NotNil(t, res.Shelf)

	_, err = env.svc.ResolveToken(env.ctx, "not-a-uuid")
	requireAppError(t, err, http.StatusNotFound)

	_, err = env.svc.ResolveToken(env.ctx, "00000000-0000-0000-0000-000000000000")
	requireAppError(t, err, http.StatusNotFound)
}

func TestDeleteReferencedCategoryConflicts(t *testing.T) {
	env := newTestService(t)
	f := env.suite.Fixtures
	shelfID := f.Location(t, "Apteka", "A", 1)
	catID := f.Category(t, "Leki")
	assignments := f.Items(t, testutil.ItemSpec{Name: "Apap", CategoryID: catID}, shelfID, 1)

	cat, err := env.svc.GetCategory(env.ctx, catID)
	require.NoError(t, err)
	assert.True(t, cat.HasItems())

	// A removed unit still references the category.
	_, err = env.svc.RemoveAssignment(env.ctx, assignments[0])
	require.NoError(t, err)

	err = env.svc.DeleteCategory(env.ctx, catID)
	appErr := requireAppError(t, err, http.StatusConflict)
	assert.Equal(t, "errors.category_in_use", appErr.MessageKey)

	empty, err := env.svc.CreateCategory(env.ctx, "opatrunki")
	require.NoError(t, err)
	assert.Equal(t, "Opatrunki", empty.Name)
	require.NoError(t, env.svc.DeleteCategory(env.ctx, empty.ID))
}
