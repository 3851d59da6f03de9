package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/ksp/warehouse/pkg/errors"
	"github.com/ksp/warehouse/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLowStock(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewReportRepository(mockDB.DB)

	mockDB.ExpectQuery("HAVING COUNT(a.id) < $1").
		WithArgs(10).
		WillReturnRows(testutil.MockRows("id", "name", "active_count", "locations").
			AddRow(2, "Opatrunki", 3, "{Apteka.A.1,Magazyn.B.2}").
			AddRow(3, "Sprzęt", 0, "{}"))

	low, err := repo.LowStock(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, []string{"Apteka.A.1", "Magazyn.B.2"}, []string(low[0].Locations))
	assert.Empty(t, low[1].Locations)
}

func TestListItemsPaginates(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewReportRepository(mockDB.DB)
	shelfID := int64(4)

	mockDB.ExpectQuery("SELECT COUNT(*)").
		WithArgs(shelfID, "%apap%").
		WillReturnRows(testutil.MockRows("count").AddRow(120))
	mockDB.ExpectQuery("ORDER BY i.name").
		WithArgs(shelfID, "%apap%", 50, 50).
		WillReturnRows(testutil.MockRows("assignment_id", "item_id", "name", "category_id", "category_name",
			"manufacturer", "expiration_date", "note", "is_gifted", "shelf_id", "full_location", "added_by", "added_at").
			AddRow(9, 7, "Apap", 1, "Leki", nil, "2026-04-01", nil, false, shelfID, "Apteka.A.1", "u-1", time.Now()))

	rows, total, err := repo.ListItems(context.Background(), repository.ItemFilter{
		ShelfID:  &shelfID,
		Search:   " apap ",
		Page:     2,
		PageSize: 50,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 120, total)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].ExpirationDate)
	assert.Equal(t, "2026-04-01", rows[0].ExpirationDate.String())
}

func TestExpiringBetween(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewReportRepository(mockDB.DB)

	from := domain.NewDate(2026, 3, 10)
	mockDB.ExpectQuery("i.expiration_date >= $1::date").
		WillReturnRows(testutil.MockRows("name", "expiration_date", "manufacturer", "note", "full_location").
			AddRow("Apap", "2026-03-12", "Polpharma", nil, "Apteka.A.1"))

	items, err := repo.ExpiringBetween(context.Background(), from, from.AddDays(7))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Polpharma", *items[0].Manufacturer)
}

func TestUserCacheGetNotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewUserCacheRepository(mockDB.DB)

	mockDB.ExpectQuery("FROM user_cache WHERE user_id = $1").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "ghost")
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.Equal(t, "user", appErr.Params["resource"])
}

func TestAssignmentCloseAlreadyClosed(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewAssignmentRepository(mockDB.DB)

	mockDB.ExpectExec("WHERE id = $1 AND removed_at IS NULL").
		WithArgs(int64(5), testutil.AnyTime{}, "u-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Close(context.Background(), 5, "u-1", time.Now())
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "active_assignment", appErr.Params["resource"])
}

func TestSuggestEmptyTermSkipsQuery(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewLookupRepository(mockDB.DB)

	out, err := repo.ItemNames(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, out)
}
