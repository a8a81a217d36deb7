package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestQueueRunsJob(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := newOpQueue()
	ran := false
	err := q.Do(context.Background(), "/p", func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestQueuePropagatesJobError(t *testing.T) {
	q := newOpQueue()
	boom := errors.New("boom")
	err := q.Do(context.Background(), "/p", func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestQueueSamePathFIFO(t *testing.T) {
	q := newOpQueue()

	release := make(chan struct{})
	var wg sync.WaitGroup

	// Occupy the lane so subsequent submissions pile up behind it.
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = q.Do(context.Background(), "/same", func() error {
			<-release
			return nil
		})
	}()
	require.Eventually(t, func() bool { return q.laneCount() == 1 },
		time.Second, time.Millisecond)

	const n = 20
	var mu sync.Mutex
	var order []int
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Do(context.Background(), "/same", func() error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
		// Confirm enqueue before submitting the next job so submission
		// order is externally known.
		require.Eventually(t, func() bool { return q.laneDepth("/same") == i+1 },
			time.Second, time.Millisecond)
	}

	close(release)
	wg.Wait()

	require.Len(t, order, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, i, order[i], "jobs for one path execute in submission order")
	}
}

func TestQueueDistinctPathsRunConcurrently(t *testing.T) {
	q := newOpQueue()

	aEntered := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = q.Do(context.Background(), "/a", func() error {
			close(aEntered)
			<-release
			return nil
		})
	}()
	go func() {
		defer wg.Done()
		<-aEntered
		// Must complete while /a is still blocked.
		err := q.Do(context.Background(), "/b", func() error { return nil })
		assert.NoError(t, err)
		close(release)
	}()

	waitDone := make(chan struct{})
	go func() { wg.Wait(); close(waitDone) }()
	select {
	case <-waitDone:
	case <-time.After(2 * time.Second):
		t.Fatal("operations on distinct paths blocked each other")
	}
}

func TestQueueLanesReclaimedWhenDrained(t *testing.T) {
	q := newOpQueue()

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Do(context.Background(), "/p", func() error { return nil }))
	}

	assert.Eventually(t, func() bool { return q.laneCount() == 0 },
		time.Second, 5*time.Millisecond, "drained lanes must be deleted")
}

func TestQueueContextCancelledWhileQueued(t *testing.T) {
	q := newOpQueue()

	blocker := make(chan struct{})
	go func() {
		_ = q.Do(context.Background(), "/p", func() error {
			<-blocker
			return nil
		})
	}()

	// Give the blocking job time to occupy the lane.
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := q.Do(ctx, "/p", func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	close(blocker)
	assert.Eventually(t, func() bool { return q.laneCount() == 0 },
		time.Second, 5*time.Millisecond)
}
