package store

import (
	"log/slog"
	"sync"

	"github.com/roach88/guildgrid/internal/model"
)

// feed fans committed change events out to subscribers.
type feed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscription
	closed bool
}

type subscription struct {
	id    int
	queue *eventQueue
	fn    func(model.ChangeEvent)
	done  chan struct{}
}

func newFeed() *feed {
	return &feed{subs: make(map[int]*subscription)}
}

// SubscribeCellChanges registers fn for every insert, update and delete on
// the cell table, across all grids and all writers.
//
// fn is called from a dedicated goroutine, one event at a time, in commit
// order. The returned function unsubscribes; it is idempotent, does not
// wait for an in-flight callback, and may be called from inside fn.
func (s *Store) SubscribeCellChanges(fn func(model.ChangeEvent)) (unsubscribe func()) {
	return s.feed.subscribe(fn)
}

func (f *feed) subscribe(fn func(model.ChangeEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub := &subscription{
		id:    f.nextID,
		queue: newEventQueue(),
		fn:    fn,
		done:  make(chan struct{}),
	}
	f.nextID++

	if f.closed {
		sub.queue.Close()
		close(sub.done)
		return func() {}
	}

	f.subs[sub.id] = sub
	go sub.run()

	slog.Debug("cell feed subscribed", "subscription", sub.id)

	return func() { f.unsubscribe(sub.id) }
}

func (f *feed) unsubscribe(id int) {
	f.mu.Lock()
	sub, ok := f.subs[id]
	delete(f.subs, id)
	f.mu.Unlock()

	if ok {
		sub.queue.Close()
		slog.Debug("cell feed unsubscribed", "subscription", id)
	}
}

func (f *feed) publish(events []model.ChangeEvent) {
	if len(events) == 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sub := range f.subs {
		for _, ev := range events {
			sub.queue.Enqueue(ev)
		}
	}
}

func (f *feed) subscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *feed) close() {
	f.mu.Lock()
	subs := f.subs
	f.subs = make(map[int]*subscription)
	f.closed = true
	f.mu.Unlock()

	for _, sub := range subs {
		sub.queue.Close()
	}
}

func (sub *subscription) run() {
	defer close(sub.done)

	for {
		ev, ok := sub.queue.TryDequeue()
		if ok {
			sub.fn(ev)
			continue
		}

		<-sub.queue.Wait()
		if sub.queue.Closed() {
			return
		}
	}
}
