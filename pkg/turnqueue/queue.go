// Package turnqueue serializes turn processing per session. Each session id
// owns a lane that runs one task at a time in FIFO order, so two turns for
// the same conversation can never interleave while different sessions run
// concurrently.
package turnqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Task is a unit of work executed on a session's lane.
type Task func(ctx context.Context) (any, error)

type taskRecord struct {
	id     string
	task   Task
	ctx    context.Context
	result chan taskResult
}

type taskResult struct {
	value any
	err   error
}

type laneState struct {
	queue   []*taskRecord
	running bool
	mu      sync.Mutex
}

// Queue provides per-session FIFO task serialization.
type Queue struct {
	lanes     map[string]*laneState
	taskIDSeq int
	mu        sync.RWMutex
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates an empty queue.
func New() *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		lanes:  make(map[string]*laneState),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Enqueue adds a task to the session's lane and blocks until it completes.
// Tasks enqueued for the same session run strictly in arrival order.
func (q *Queue) Enqueue(ctx context.Context, sessionID string, task Task) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ls := q.ensureLane(sessionID)

	q.mu.Lock()
	q.taskIDSeq++
	taskID := fmt.Sprintf("%s-%d", sessionID, q.taskIDSeq)
	q.mu.Unlock()

	record := &taskRecord{
		id:     taskID,
		task:   task,
		ctx:    ctx,
		result: make(chan taskResult, 1),
	}

	ls.mu.Lock()
	ls.queue = append(ls.queue, record)
	queueSize := len(ls.queue)
	ls.mu.Unlock()

	log.Debug().
		Str("session_id", sessionID).
		Str("task_id", taskID).
		Int("queue_size", queueSize).
		Msg("Turn enqueued")

	go q.processLane(sessionID, ls)

	result := <-record.result
	return result.value, result.err
}

func (q *Queue) ensureLane(sessionID string) *laneState {
	q.mu.RLock()
	ls, exists := q.lanes[sessionID]
	q.mu.RUnlock()
	if exists {
		return ls
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if ls, exists = q.lanes[sessionID]; exists {
		return ls
	}
	ls = &laneState{}
	q.lanes[sessionID] = ls
	return ls
}

func (q *Queue) processLane(sessionID string, ls *laneState) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.running || len(ls.queue) == 0 {
		return
	}

	record := ls.queue[0]
	ls.queue = ls.queue[1:]
	ls.running = true

	q.wg.Add(1)
	go q.executeTask(sessionID, ls, record)
}

func (q *Queue) executeTask(sessionID string, ls *laneState, record *taskRecord) {
	defer q.wg.Done()

	runCtx, cancel := context.WithCancel(record.ctx)
	stopCancel := context.AfterFunc(q.ctx, cancel)
	defer func() {
		stopCancel()
		cancel()
	}()

	startTime := time.Now()
	value, err := record.task(runCtx)
	duration := time.Since(startTime)

	ls.mu.Lock()
	ls.running = false
	ls.mu.Unlock()

	record.result <- taskResult{value: value, err: err}
	close(record.result)

	if err != nil {
		log.Error().
			Str("session_id", sessionID).
			Str("task_id", record.id).
			Dur("duration", duration).
			Err(err).
			Msg("Turn failed")
	} else {
		log.Debug().
			Str("session_id", sessionID).
			Str("task_id", record.id).
			Dur("duration", duration).
			Msg("Turn completed")
	}

	go q.processLane(sessionID, ls)
}

// QueueSize returns the number of waiting tasks for a session.
func (q *Queue) QueueSize(sessionID string) int {
	q.mu.RLock()
	ls, exists := q.lanes[sessionID]
	q.mu.RUnlock()
	if !exists {
		return 0
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	return len(ls.queue)
}

// Close cancels the queue context and waits for running tasks to finish.
func (q *Queue) Close() error {
	q.cancel()
	q.wg.Wait()
	return nil
}
