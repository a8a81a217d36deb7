package store

import (
	"context"
	"sync"

	"localstore/internal/logging"
)

// opQueue serializes operations per file path. Jobs submitted for the same
// path run strictly in submission order with at most one in flight; jobs
// for distinct paths run concurrently. Lanes are created on first use and
// deleted once drained so key cardinality does not pin memory.
type opQueue struct {
	mu    sync.Mutex
	lanes map[string]*opLane
}

type opLane struct {
	jobs []queuedJob
	busy bool
}

type queuedJob struct {
	run  func() error
	done chan error
}

func newOpQueue() *opQueue {
	return &opQueue{lanes: make(map[string]*opLane)}
}

// Do submits fn to the lane for path and waits for it to finish. If ctx is
// cancelled first, Do returns ctx.Err(); the job itself still runs in its
// turn so the lane's ordering guarantee holds, its result is discarded.
func (q *opQueue) Do(ctx context.Context, path string, fn func() error) error {
	job := queuedJob{run: fn, done: make(chan error, 1)}

	q.mu.Lock()
	lane := q.lanes[path]
	if lane == nil {
		lane = &opLane{}
		q.lanes[path] = lane
	}
	lane.jobs = append(lane.jobs, job)
	if !lane.busy {
		lane.busy = true
		go q.drain(path, lane)
	}
	q.mu.Unlock()

	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain runs the lane until no jobs remain, then removes it.
func (q *opQueue) drain(path string, lane *opLane) {
	for {
		q.mu.Lock()
		if len(lane.jobs) == 0 {
			lane.busy = false
			delete(q.lanes, path)
			q.mu.Unlock()
			logging.Queue("lane drained: %s", path)
			return
		}
		job := lane.jobs[0]
		lane.jobs = lane.jobs[1:]
		q.mu.Unlock()

		job.done <- job.run()
	}
}

// laneCount reports the number of live lanes. Test hook for the
// drained-lane reclamation guarantee.
func (q *opQueue) laneCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lanes)
}

// laneDepth reports how many jobs are waiting (not yet started) on the
// lane for path. Test hook.
func (q *opQueue) laneDepth(path string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if lane := q.lanes[path]; lane != nil {
		return len(lane.jobs)
	}
	return 0
}
