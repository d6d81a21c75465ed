package stream

import (
	"sync"

	"github.com/voxtype/voxtype/internal/connection"
	"github.com/voxtype/voxtype/internal/decode"
	"github.com/voxtype/voxtype/internal/shared"
)

// notification is one queued item for the dispatch goroutine. Exactly one
// field is set.
type notification struct {
	event *decode.TranscriptEvent
	state *connection.State
	err   error
	level *float64
}

// notifier fans notifications out to subscribers. Producers enqueue under
// a short-lived lock and never block on consumers; a single dispatch
// goroutine drains the queue in FIFO order, so every subscriber sees every
// notification exactly once, in arrival order.
type notifier struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []notification
	subs   map[string]Listener
	closed bool
}

func newNotifier() *notifier {
	n := &notifier{subs: make(map[string]Listener)}
	n.cond = sync.NewCond(&n.mu)
	go n.run()
	return n
}

func (n *notifier) subscribe(l Listener) string {
	id := shared.NewID("sub_")
	n.mu.Lock()
	n.subs[id] = l
	n.mu.Unlock()
	return id
}

func (n *notifier) unsubscribe(id string) {
	n.mu.Lock()
	delete(n.subs, id)
	n.mu.Unlock()
}

func (n *notifier) enqueue(item notification) {
	n.mu.Lock()
	if !n.closed {
		n.queue = append(n.queue, item)
		n.cond.Signal()
	}
	n.mu.Unlock()
}

// close stops the dispatch goroutine after the queue drains.
func (n *notifier) close() {
	n.mu.Lock()
	n.closed = true
	n.cond.Signal()
	n.mu.Unlock()
}

func (n *notifier) run() {
	for {
		n.mu.Lock()
		for len(n.queue) == 0 && !n.closed {
			n.cond.Wait()
		}
		if len(n.queue) == 0 && n.closed {
			n.mu.Unlock()
			return
		}
		item := n.queue[0]
		n.queue = n.queue[1:]
		subs := make([]Listener, 0, len(n.subs))
		for _, l := range n.subs {
			subs = append(subs, l)
		}
		n.mu.Unlock()

		for _, l := range subs {
			switch {
			case item.event != nil:
				if l.OnTranscript != nil {
					l.OnTranscript(*item.event)
				}
			case item.state != nil:
				if l.OnState != nil {
					l.OnState(*item.state)
				}
			case item.err != nil:
				if l.OnError != nil {
					l.OnError(item.err)
				}
			case item.level != nil:
				if l.OnLevel != nil {
					l.OnLevel(*item.level)
				}
			}
		}
	}
}
