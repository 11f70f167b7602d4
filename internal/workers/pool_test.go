package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verisona-ai/analysis-service/internal/utils"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	pool := NewPool(2, 8, utils.NewDevelopmentLogger())

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		err := pool.Submit(func(ctx context.Context) {
			defer wg.Done()
			count.Add(1)
		})
		require.NoError(t, err)
	}
	wg.Wait()

	assert.Equal(t, int32(5), count.Load())
	require.NoError(t, pool.Shutdown(context.Background()))
}

func TestPoolRejectsWhenQueueFull(t *testing.T) {
	pool := NewPool(1, 1, utils.NewDevelopmentLogger())
	defer pool.Shutdown(context.Background())

	block := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, pool.Submit(func(ctx context.Context) {
		close(started)
		<-block
	}))
	<-started

	// Fill the single queue slot, then overflow it.
	require.NoError(t, pool.Submit(func(ctx context.Context) {}))
	err := pool.Submit(func(ctx context.Context) {})
	assert.ErrorIs(t, err, ErrQueueFull)

	close(block)
}

func TestPoolRejectsAfterShutdown(t *testing.T) {
	pool := NewPool(1, 4, utils.NewDevelopmentLogger())
	require.NoError(t, pool.Shutdown(context.Background()))

	err := pool.Submit(func(ctx context.Context) {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPoolShutdownCancelsTaskContext(t *testing.T) {
	pool := NewPool(1, 4, utils.NewDevelopmentLogger())

	canceled := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(canceled)
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("task context was not canceled on shutdown")
	}
}

func TestPoolRecoversFromPanic(t *testing.T) {
	pool := NewPool(1, 4, utils.NewDevelopmentLogger())
	defer pool.Shutdown(context.Background())

	done := make(chan struct{})
	require.NoError(t, pool.Submit(func(ctx context.Context) {
		defer close(done)
		panic("boom")
	}))
	<-done

	// The worker survives and keeps processing.
	var ran atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, pool.Submit(func(ctx context.Context) {
		defer wg.Done()
		ran.Store(true)
	}))
	wg.Wait()
	assert.True(t, ran.Load())
}
