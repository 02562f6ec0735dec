package export

import (
	"context"
	"sync"

	"github.com/handiism/post-exporter/internal/model"
)

// Handle is the caller's token for a running job.
//
// The job never waits on the caller: events are queued and forwarded to
// Events by a separate goroutine, so Done closes and the export slot is
// released even if nobody reads Events.
type Handle struct {
	JobID string

	events  chan Event
	done    chan struct{}
	abandon chan struct{}
	once    sync.Once

	result *Result
	err    error
}

// Events streams the job's progress. The channel is closed once the job has
// ended and every queued event was delivered, or when Wait is called.
func (h *Handle) Events() <-chan Event {
	return h.events
}

// Done is closed once the job has finished and its slot is free.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the job ends and returns its result. Events not yet
// read are discarded, so callers that read Events should drain it first.
// Wait also stops event delivery; callers that only watch Done should
// still call it.
func (h *Handle) Wait() (*Result, error) {
	<-h.done
	h.once.Do(func() { close(h.abandon) })
	return h.result, h.err
}

// Start launches job in the background and returns its handle.
func (o *Orchestrator) Start(ctx context.Context, job *model.ExportJob) (*Handle, error) {
	if err := validateJob(job); err != nil {
		return nil, err
	}
	if !o.slot.TryAcquire(1) {
		return nil, ErrExportInProgress
	}

	h := &Handle{
		JobID:   job.ID,
		events:  make(chan Event),
		done:    make(chan struct{}),
		abandon: make(chan struct{}),
	}
	q := newEventQueue()
	go h.forward(q)
	go func() {
		res, err := o.run(ctx, job, q.push)
		h.result, h.err = res, err
		o.slot.Release(1)
		q.close()
		close(h.done)
	}()
	return h, nil
}

// forward moves queued events to the Events channel until the queue is
// closed and empty or the handle is abandoned.
func (h *Handle) forward(q *eventQueue) {
	defer close(h.events)
	for {
		batch, open := q.take()
		if !open {
			return
		}
		for _, e := range batch {
			select {
			case h.events <- e:
			case <-h.abandon:
				return
			}
		}
		if len(batch) > 0 {
			continue
		}
		select {
		case <-q.notify:
		case <-h.abandon:
			return
		}
	}
}

// eventQueue is an unbounded FIFO of events.
type eventQueue struct {
	mu     sync.Mutex
	items  []Event
	closed bool
	notify chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{notify: make(chan struct{}, 1)}
}

func (q *eventQueue) push(e Event) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
	q.signal()
}

func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *eventQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// take removes and returns every queued event. It reports false once the
// queue is closed and nothing is left.
func (q *eventQueue) take() ([]Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items, len(items) > 0 || !q.closed
}
