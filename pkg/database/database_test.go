package database_test

import (
	"context"
	"database/sql"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ksp/warehouse/pkg/database"
	"github.com/ksp/warehouse/pkg/errors"
	"github.com/ksp/warehouse/pkg/testutil"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPQError(t *testing.T) {
	tests := []struct {
		name       string
		err        *pq.Error
		wantStatus int
		wantKey    string
		wantDetail string
	}{
		{
			name:       "duplicate room",
			err:        &pq.Error{Code: "23505", Constraint: "rooms_name_key"},
			wantStatus: http.StatusConflict,
			wantKey:    "errors.duplicate_room",
		},
		{
			name:       "duplicate shelf number",
			err:        &pq.Error{Code: "23505", Constraint: "shelves_rack_number_key"},
			wantStatus: http.StatusConflict,
			wantKey:    "errors.duplicate_shelf",
		},
		{
			name:       "second active assignment",
			err:        &pq.Error{Code: "23505", Constraint: "assignments_one_active_per_item"},
			wantStatus: http.StatusConflict,
			wantKey:    "errors.double_active_assignment",
		},
		{
			name: "category still referenced",
			err: &pq.Error{
				Code:       "23503",
				Constraint: "items_category_id_fkey",
				Message:    `update or delete on table "categories" violates foreign key constraint "items_category_id_fkey" on table "items"`,
			},
			wantStatus: http.StatusConflict,
			wantKey:    "errors.category_in_use",
		},
		{
			name: "insert with missing parent",
			err: &pq.Error{
				Code:    "23503",
				Message: `insert or update on table "racks" violates foreign key constraint "racks_room_id_fkey"`,
			},
			wantStatus: http.StatusBadRequest,
			wantKey:    "errors.bad_request",
		},
		{
			name:       "rack name check",
			err:        &pq.Error{Code: "23514", Constraint: "racks_name_single_char"},
			wantStatus: http.StatusBadRequest,
			wantKey:    "errors.validation_failed",
			wantDetail: "name",
		},
		{
			name:       "closed assignment is immutable",
			err:        &pq.Error{Code: "23514", Constraint: "assignments_immutable"},
			wantStatus: http.StatusNotFound,
			wantKey:    "errors.not_found",
		},
		{
			name:       "not null",
			err:        &pq.Error{Code: "23502", Column: "item_name"},
			wantStatus: http.StatusBadRequest,
			wantKey:    "errors.validation_failed",
			wantDetail: "item_name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := database.MapPQError(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
			assert.Equal(t, tt.wantKey, appErr.MessageKey)
			if tt.wantDetail != "" {
				assert.Contains(t, appErr.Details, tt.wantDetail)
			}
		})
	}
}

func TestTranslatePassesThroughOtherErrors(t *testing.T) {
	assert.NoError(t, database.Translate(nil))

	plain := stderrors.New("connection reset")
	assert.Same(t, plain, database.Translate(plain))

	assert.Nil(t, database.MapPQError(&pq.Error{Code: "40001"}))
	assert.True(t, database.IsNoRows(sql.ErrNoRows))
}

func TestInTxCommits(t *testing.T) {
	mock := testutil.NewMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE rooms SET name = $1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := mock.DB.InTx(context.Background(), func(ctx context.Context) error {
		assert.True(t, mock.DB.InTransaction(ctx))
		_, err := mock.DB.Conn(ctx).ExecContext(ctx, "UPDATE rooms SET name = $1", "Magazyn")
		return err
	})
	require.NoError(t, err)
}

func TestInTxRollsBackOnError(t *testing.T) {
	mock := testutil.NewMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	failure := errors.NotFound("shelf")
	err := mock.DB.InTx(context.Background(), func(ctx context.Context) error {
		return failure
	})
	assert.Same(t, failure, err)
}

func TestInTxNestedReusesOuterTransaction(t *testing.T) {
	mock := testutil.NewMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := mock.DB.InTx(context.Background(), func(ctx context.Context) error {
		return mock.DB.InTx(ctx, func(ctx context.Context) error {
			calls++
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, mock.DB.InTransaction(context.Background()))
}

func TestInTxRollsBackOnPanic(t *testing.T) {
	mock := testutil.NewMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = mock.DB.InTx(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})
}
