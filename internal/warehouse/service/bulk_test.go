package service_test

import (
	"net/http"
	"testing"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/internal/warehouse/service"
	"github.com/ksp/warehouse/pkg/messaging"
	"github.com/ksp/warehouse/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddChunkProcessesInBatches(t *testing.T) {
	env := newTestService(t)
	shelfID := env.suite.Fixtures.Location(t, "Apteka", "A", 1)
	catID := env.suite.Fixtures.Category(t, "Leki")

	req := service.ChunkAddRequest{
		AddRequest: service.AddRequest{
			ShelfID:    shelfID,
			Name:       "  paracetamol  forte ",
			CategoryID: catID,
			Quantity:   50,
		},
		ChunkControl: service.ChunkControl{BatchSize: 20},
	}

	var sizes []int
	for i := 0; i < 5; i++ {
		res, err := env.svc.AddChunk(env.ctx, req)
		require.NoError(t, err)
		sizes = append(sizes, res.Processed)
		if res.Complete {
			assert.Equal(t, 50, res.TotalProcessed)
			assert.Equal(t, 0, res.Remaining)
			assert.Equal(t, float64(100), res.Progress)
			break
		}
		req.Token = res.Token
	}

	assert.Equal(t, []int{20, 20, 10}, sizes)
	assert.Equal(t, 50, env.suite.Fixtures.ActiveCount(t, shelfID))
	assert.Len(t, env.sink.Events(messaging.EventItemsAdded), 3)

	page, err := env.svc.ListItems(env.ctx, service.ItemQuery{ShelfID: &shelfID})
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	assert.Equal(t, "Paracetamol Forte", page.Items[0].Name)
	require.NotNil(t, page.Items[0].AddedBy)
	assert.Equal(t, "u-1", *page.Items[0].AddedBy)
}

func TestAddChunkTokenWinsOverOffset(t *testing.T) {
	env := newTestService(t)
	shelfID := env.suite.Fixtures.Location(t, "Apteka", "A", 1)
	catID := env.suite.Fixtures.Category(t, "Leki")

	req := service.ChunkAddRequest{
		AddRequest:   service.AddRequest{ShelfID: shelfID, Name: "Apap", CategoryID: catID, Quantity: 10},
		ChunkControl: service.ChunkControl{BatchSize: 5, Offset: 0, Token: domain.ChunkToken{Offset: 8, Total: 10}.Encode()},
	}
	res, err := env.svc.AddChunk(env.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.True(t, res.Complete)
}

func TestAddChunkRejectsMismatchedToken(t *testing.T) {
	env := newTestService(t)
	shelfID := env.suite.Fixtures.Location(t, "Apteka", "A", 1)
	catID := env.suite.Fixtures.Category(t, "Leki")

	req := service.ChunkAddRequest{
		AddRequest:   service.AddRequest{ShelfID: shelfID, Name: "Apap", CategoryID: catID, Quantity: 10},
		ChunkControl: service.ChunkControl{Token: domain.ChunkToken{Offset: 5, Total: 12}.Encode()},
	}
	_, err := env.svc.AddChunk(env.ctx, req)
	appErr := requireAppError(t, err, http.StatusBadRequest)
	assert.Equal(t, "errors.invalid_token", appErr.MessageKey)

	req.Token = "!!!"
	_, err = env.svc.AddChunk(env.ctx, req)
	requireAppError(t, err, http.StatusBadRequest)
	assert.Equal(t, 0, env.suite.Fixtures.ActiveCount(t, shelfID))
}

func TestAddChunkPastEndCompletesImmediately(t *testing.T) {
	env := newTestService(t)

	// Nothing is loaded, so the missing shelf is never looked up.
	res, err := env.svc.AddChunk(env.ctx, service.ChunkAddRequest{
		AddRequest:   service.AddRequest{ShelfID: 999, Name: "Apap", CategoryID: 1, Quantity: 7},
		ChunkControl: service.ChunkControl{Offset: 7},
	})
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, 7, res.TotalProcessed)
	assert.Equal(t, 0, res.Processed)
}

func TestAddChunkUnknownShelf(t *testing.T) {
	env := newTestService(t)
	catID := env.suite.Fixtures.Category(t, "Leki")

	_, err := env.svc.AddChunk(env.ctx, service.ChunkAddRequest{
		AddRequest: service.AddRequest{ShelfID: 999, Name: "Apap", CategoryID: catID, Quantity: 3},
	})
	requireAppError(t, err, http.StatusNotFound)
}

func TestBulkAddRespectsInteractiveLimit(t *testing.T) {
	env := newTestService(t)
	_, err := env.svc.BulkAdd(env.ctx, service.AddRequest{ShelfID: 1, Name: "Apap", CategoryID: 1, Quantity: 10001})
	appErr := requireAppError(t, err, http.StatusBadRequest)
	assert.Equal(t, "errors.interactive_limit", appErr.MessageKey)
}

func TestBulkAddSharesTimestamp(t *testing.T) {
	env := newTestService(t)
	shelfID := env.suite.Fixtures.Location(t, "Apteka", "A", 1)
	catID := env.suite.Fixtures.Category(t, "Leki")
	exp := domain.DateOf(*daysFromNow(90))

	res, err := env.svc.BulkAdd(env.ctx, service.AddRequest{
		ShelfID: shelfID, Name: "Bandaż", CategoryID: catID, Quantity: 1200,
		Manufacturer: testutil.PtrString(" hartmann "), ExpirationDate: &exp, Note: testutil.PtrString("  "),
	})
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, 1200, res.TotalProcessed)

	var stamps int
	require.NoError(t, env.suite.DB.Get(&stamps,
		`SELECT COUNT(DISTINCT added_at) FROM item_shelf_assignments WHERE shelf_id = $1`, shelfID))
	assert.Equal(t, 1, stamps)

	var notes, manufacturers int
	require.NoError(t, env.suite.DB.Get(&notes, `SELECT COUNT(*) FROM items WHERE note IS NULL`))
	require.NoError(t, env.suite.DB.Get(&manufacturers, `SELECT COUNT(*) FROM items WHERE manufacturer = 'Hartmann'`))
	assert.Equal(t, 1200, notes)
	assert.Equal(t, 1200, manufacturers)
}

func TestBulkRemoveMatchesCohortWithNulls(t *testing.T) {
	env := newTestService(t)
	f := env.suite.Fixtures
	shelfID := f.Location(t, "Apteka", "A", 1)
	otherShelf := f.Location(t, "Apteka", "A", 2)
	catID := f.Category(t, "Leki")

	seed := f.Items(t, testutil.ItemSpec{Name: "Apap", CategoryID: catID}, shelfID, 5)
	f.Items(t, testutil.ItemSpec{Name: "Apap", CategoryID: catID, Note: testutil.PtrString("otwarte")}, shelfID, 3)
	f.Items(t, testutil.ItemSpec{Name: "Apap", CategoryID: catID}, otherShelf, 4)

	res, err := env.svc.BulkRemove(env.ctx, service.RemoveRequest{AssignmentID: seed[0], Quantity: 100})
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalProcessed)

	assert.Equal(t, 3, f.ActiveCount(t, shelfID))
	assert.Equal(t, 4, f.ActiveCount(t, otherShelf))

	_, err = env.svc.BulkRemove(env.ctx, service.RemoveRequest{AssignmentID: seed[0], Quantity: 1})
	appErr := requireAppError(t, err, http.StatusNotFound)
	assert.Equal(t, "errors.cohort_empty", appErr.MessageKey)
}

func TestRemoveChunkCapsAtCohortSize(t *testing.T) {
	env := newTestService(t)
	f := env.suite.Fixtures
	shelfID := f.Location(t, "Apteka", "A", 1)
	catID := f.Category(t, "Leki")
	seed := f.Items(t, testutil.ItemSpec{Name: "Apap", CategoryID: catID}, shelfID, 7)

	req := service.ChunkRemoveRequest{
		RemoveRequest: service.RemoveRequest{AssignmentID: seed[0], Quantity: 20},
		ChunkControl:  service.ChunkControl{BatchSize: 5},
	}
	first, err := env.svc.RemoveChunk(env.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 5, first.Processed)
	assert.Equal(t, 2, first.Remaining)
	assert.False(t, first.Complete)

	req.Token = first.Token
	second, err := env.svc.RemoveChunk(env.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Processed)
	assert.True(t, second.Complete)
	assert.Equal(t, 0, f.ActiveCount(t, shelfID))
}

func TestRemoveChunkCompletesWhenCohortRunsOut(t *testing.T) {
	env := newTestService(t)
	f := env.suite.Fixtures
	shelfID := f.Location(t, "Apteka", "A", 1)
	catID := f.Category(t, "Leki")
	seed := f.Items(t, testutil.ItemSpec{Name: "Apap", CategoryID: catID}, shelfID, 6)

	req := service.ChunkRemoveRequest{
		RemoveRequest: service.RemoveRequest{AssignmentID: seed[0], Quantity: 6},
		ChunkControl:  service.ChunkControl{BatchSize: 3},
	}
	first, err := env.svc.RemoveChunk(env.ctx, req)
	require.NoError(t, err)
	require.False(t, first.Complete)

	// Someone else takes two units between chunks.
	_, err = env.svc.RemoveAssignment(env.ctx, seed[4])
	require.NoError(t, err)
	_, err = env.svc.RemoveAssignment(env.ctx, seed[5])
	require.NoError(t, err)

	req.Token = first.Token
	second, err := env.svc.RemoveChunk(env.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Processed)
	assert.True(t, second.Complete)
	assert.Equal(t, 4, second.TotalProcessed)
}

func TestRemoveAssignmentTwice(t *testing.T) {
	env := newTestService(t)
	f := env.suite.Fixtures
	shelfID := f.Location(t, "Apteka", "A", 1)
	catID := f.Category(t, "Leki")
	ids := f.Items(t, testutil.ItemSpec{Name: "Apap", CategoryID: catID}, shelfID, 1)

	removed, err := env.svc.RemoveAssignment(env.ctx, ids[0])
	require.NoError(t, err)
	require.NotNil(t, removed.RemovedBy)
	assert.Equal(t, "u-1", *removed.RemovedBy)

	_, err = env.svc.RemoveAssignment(env.ctx, ids[0])
	requireAppError(t, err, http.StatusNotFound)
	assert.Len(t, env.sink.Events(messaging.EventItemsRemoved), 1)
}
