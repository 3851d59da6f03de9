package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ksp/warehouse/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRun(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"later today", time.Date(2026, 5, 4, 6, 30, 0, 0, warsaw), time.Date(2026, 5, 4, 8, 0, 0, 0, warsaw)},
		{"exactly now rolls over", time.Date(2026, 5, 4, 8, 0, 0, 0, warsaw), time.Date(2026, 5, 5, 8, 0, 0, 0, warsaw)},
		{"after trigger", time.Date(2026, 5, 4, 21, 0, 0, 0, warsaw), time.Date(2026, 5, 5, 8, 0, 0, 0, warsaw)},
		{"month end", time.Date(2026, 5, 31, 9, 0, 0, 0, warsaw), time.Date(2026, 6, 1, 8, 0, 0, 0, warsaw)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextRun(tt.now, 8, 0))
		})
	}
}

func TestExpirySchedulerRunsJobAndStops(t *testing.T) {
	var runs atomic.Int32
	ran := make(chan struct{}, 4)
	job := func(ctx context.Context) error {
		runs.Add(1)
		ran <- struct{}{}
		return nil
	}

	s := NewExpiryScheduler(8, 0, true, time.UTC, job, logger.Nop())
	fire := make(chan time.Time)
	var waited atomic.Int64
	s.now = func() time.Time { return time.Date(2026, 5, 4, 7, 0, 0, 0, time.UTC) }
	s.after = func(d time.Duration) <-chan time.Time {
		waited.Store(int64(d))
		return fire
	}

	s.Start(context.Background())
	s.Start(context.Background())

	fire <- time.Now()
	<-ran
	fire <- time.Now()
	<-ran

	s.Stop()
	s.Stop()

	assert.Equal(t, int32(2), runs.Load())
	assert.Equal(t, int64(time.Hour), waited.Load())
}

func TestExpirySchedulerDisabled(t *testing.T) {
	called := false
	s := NewExpiryScheduler(8, 0, false, nil, func(context.Context) error {
		called = true
		return nil
	}, logger.Nop())

	s.Start(context.Background())
	s.Stop()
	assert.False(t, called)
}
