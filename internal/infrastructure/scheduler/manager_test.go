package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherboy/candlepin/internal/shared/logger"
)

func TestSchedulerManager_RunsJobsImmediately(t *testing.T) {
	m, err := NewSchedulerManager(logger.NewDiscardLogger())
	require.NoError(t, err)

	var expiries, reconciles atomic.Int32
	require.NoError(t, m.RegisterSubscriptionJobs(BatchJobFunc(func(ctx context.Context) (int, error) {
		expiries.Add(1)
		return 2, nil
	}), time.Hour))
	require.NoError(t, m.RegisterReconcileJobs(BatchJobFunc(func(ctx context.Context) (int, error) {
		reconciles.Add(1)
		return 0, errors.New("owner store unavailable")
	}), time.Hour))
	assert.Len(t, m.Jobs(), 2)

	m.Start()
	m.Start()
	assert.True(t, m.IsStarted())

	require.Eventually(t, func() bool {
		return expiries.Load() >= 1 && reconciles.Load() >= 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Stop())
	assert.False(t, m.IsStarted())
	require.NoError(t, m.Stop())
}

func TestSchedulerManager_RejectsInvalidInterval(t *testing.T) {
	m, err := NewSchedulerManager(logger.NewDiscardLogger())
	require.NoError(t, err)

	err = m.RegisterReconcileJobs(BatchJobFunc(func(ctx context.Context) (int, error) { return 0, nil }), 0)
	assert.Error(t, err)
}
