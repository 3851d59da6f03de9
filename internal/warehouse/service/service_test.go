package service_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ksp/warehouse/internal/warehouse/events"
	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/ksp/warehouse/internal/warehouse/service"
	"github.com/ksp/warehouse/pkg/actor"
	"github.com/ksp/warehouse/pkg/errors"
	"github.com/ksp/warehouse/pkg/logger"
	"github.com/ksp/warehouse/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	code := m.Run()
	testutil.TerminateContainer(context.Background())
	os.Exit(code)
}

type testEnv struct {
	suite *testutil.IntegrationSuite
	svc   *service.WarehouseService
	sink  *testutil.MockPublisher
	ctx   context.Context
}

func newTestService(t *testing.T) *testEnv {
	t.Helper()
	suite := testutil.NewIntegrationSuite(t)
	sink := testutil.NewMockPublisher()
	svc := service.NewWarehouseService(
		suite.DB,
		repository.New(suite.DB),
		events.NewWithSink(sink, logger.Nop()),
		service.Options{PublicBaseURL: "https://ksp.example/locations", Location: time.UTC},
		logger.Nop(),
	)
	ctx := actor.WithActor(context.Background(), &actor.Actor{ID: "u-1", Name: "Anna Nowak"})
	return &testEnv{suite: suite, svc: svc, sink: sink, ctx: ctx}
}

func today() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysFromNow(n int) *time.Time {
	t := today().AddDate(0, 0, n)
	return &t
}

func requireAppError(t *testing.T, err error, status int) *errors.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	require.Equal(t, status, appErr.StatusCode, appErr.Error())
	return appErr
}
