package chat

import (
	"context"
	"sync"

	"github.com/soyeahso/agentchat/internal/hooks"
)

type emission struct {
	event string
	data  map[string]any
	ack   chan struct{}
}

// eventQueue dispatches hook events on one goroutine in the order they were
// queued. Queuing never blocks, so it is safe under the controller lock, and
// handlers may call back into the controller.
type eventQueue struct {
	hooks *hooks.Manager
	ctx   context.Context

	mu      sync.Mutex
	cond    *sync.Cond
	pending []emission
	closed  bool
	done    chan struct{}
}

func newEventQueue(ctx context.Context, h *hooks.Manager) *eventQueue {
	q := &eventQueue{hooks: h, ctx: ctx, done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

func (q *eventQueue) push(out ...emission) {
	if len(out) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.pending = append(q.pending, out...)
	q.cond.Signal()
}

// flush blocks until everything queued before the call has been dispatched.
func (q *eventQueue) flush() {
	ack := make(chan struct{})
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, emission{ack: ack})
	q.cond.Signal()
	q.mu.Unlock()

	select {
	case <-ack:
	case <-q.done:
	}
}

func (q *eventQueue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		for _, e := range batch {
			if e.ack != nil {
				close(e.ack)
				continue
			}
			q.hooks.Emit(q.ctx, e.event, e.data)
		}
	}
}

// close dispatches what is already queued and stops the goroutine.
func (q *eventQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.done
}
