package indexer

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/steemit/hnspool/pkg/logging"
)

type job struct {
	runID string
	limit int
}

// Dispatcher queues runs requested by the HTTP trigger and executes them
// one at a time on a single worker.
type Dispatcher struct {
	runner Runner
	queue  chan job
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher holding at most size pending runs
func NewDispatcher(runner Runner, size int) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		runner: runner,
		queue:  make(chan job, size),
		logger: logging.WithComponent("dispatcher"),
	}
}

// Start launches the worker. Runs are cancelled when ctx is done or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	d.wg.Add(1)
	go d.worker(ctx)
}

// Submit enqueues a run and returns its ID without waiting for it
func (d *Dispatcher) Submit(limit int) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return "", &DispatchError{Limit: limit, Err: ErrDispatcherClosed}
	}

	j := job{runID: NewRunID(), limit: limit}
	select {
	case d.queue <- j:
		d.logger.Info("Run queued", zap.String("run_id", j.runID), zap.Int("limit", limit))
		return j.runID, nil
	default:
		return "", &DispatchError{Limit: limit, Err: ErrQueueFull}
	}
}

// Stop rejects new submissions, cancels the in-flight run and waits for the worker
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for j := range d.queue {
		if ctx.Err() != nil {
			d.logger.Warn("Dropping queued run", zap.String("run_id", j.runID))
			continue
		}

		report, err := d.runner.RunWithID(ctx, j.runID, j.limit)
		if err != nil {
			d.logger.Error("Dispatched run failed", zap.String("run_id", j.runID), zap.Error(err))
			continue
		}
		d.logger.Info("Dispatched run completed",
			zap.String("run_id", j.runID),
			zap.Int("persisted", report.Persisted))
	}
}
