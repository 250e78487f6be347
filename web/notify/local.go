package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/dicoevent/dicoevent/logger"
	"github.com/dicoevent/dicoevent/util/common"
	"go.uber.org/atomic"
)

// ErrQueueFull is returned when the in-process queue cannot take more tasks.
var ErrQueueFull = errors.New("notify: queue full")

var ErrClosed = errors.New("notify: dispatcher closed")

// LocalDispatcher runs tasks on a fixed pool of goroutines inside the API
// process. It is used when no broker is configured.
type LocalDispatcher struct {
	handler *Handler
	tasks   chan Task
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	enqueued  atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
}

func NewLocalDispatcher(handler *Handler, workers, queueSize int) *LocalDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	d := &LocalDispatcher{handler: handler, tasks: make(chan Task, queueSize)}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

func (d *LocalDispatcher) run() {
	defer d.wg.Done()
	for task := range d.tasks {
		d.deliver(task)
	}
}

func (d *LocalDispatcher) deliver(task Task) {
	defer common.Recover("mail worker")
	if err := d.handler.Handle(context.Background(), task); err != nil {
		d.failed.Inc()
		logger.Errorf("Failed to deliver %s for registration %s: %v", task.Kind, task.RegistrationId, err)
		return
	}
	d.delivered.Inc()
}

func (d *LocalDispatcher) Enqueue(ctx context.Context, task Task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.tasks <- task:
		d.enqueued.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (d *LocalDispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.tasks)
	d.mu.Unlock()
	d.wg.Wait()
	return nil
}

// Stats reports enqueued, delivered and failed task counts.
func (d *LocalDispatcher) Stats() (enqueued, delivered, failed int64) {
	return d.enqueued.Load(), d.delivered.Load(), d.failed.Load()
}
