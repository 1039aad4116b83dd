// Package notify carries queue-length and progress observers and the
// user-facing toast sinks of the sync engine.
package notify

import (
	"log"
	"sync"
)

// Progress is one progress event of a sync run.
type Progress struct {
	Processed int
	Total     int
}

// Done reports whether every item of the run has been processed.
func (p Progress) Done() bool {
	return p.Processed >= p.Total
}

type subscription[T any] struct {
	id int
	fn func(T)
}

// listeners is a copy-on-notify list of callbacks.
type listeners[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription[T]
}

func (l *listeners[T]) add(fn func(T)) func() {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.subs = append(l.subs, subscription[T]{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, s := range l.subs {
				if s.id == id {
					l.subs = append(l.subs[:i:i], l.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (l *listeners[T]) snapshot() []func(T) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fns := make([]func(T), len(l.subs))
	for i, s := range l.subs {
		fns[i] = s.fn
	}
	return fns
}

// Hub fans out queue-length and progress events to subscribers.
// Listeners run synchronously on the publishing goroutine; a panicking
// listener is recovered and logged so it cannot break the publisher.
type Hub struct {
	length   listeners[int]
	progress listeners[Progress]
	logger   *log.Logger
}

// NewHub creates a Hub. logger may be nil.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{logger: logger}
}

// SubscribeLength registers fn for queue-length changes. The returned
// function unsubscribes; calling it more than once is a no-op.
func (h *Hub) SubscribeLength(fn func(length int)) (unsubscribe func()) {
	return h.length.add(fn)
}

// SubscribeProgress registers fn for sync progress events.
func (h *Hub) SubscribeProgress(fn func(Progress)) (unsubscribe func()) {
	return h.progress.add(fn)
}

// PublishLength notifies every length listener.
func (h *Hub) PublishLength(length int) {
	for _, fn := range h.length.snapshot() {
		h.call(func() { fn(length) })
	}
}

// PublishProgress notifies every progress listener.
func (h *Hub) PublishProgress(processed, total int) {
	p := Progress{Processed: processed, Total: total}
	for _, fn := range h.progress.snapshot() {
		h.call(func() { fn(p) })
	}
}

func (h *Hub) call(fn func()) {
	defer func() {
		if r := recover(); r != nil && h.logger != nil {
			h.logger.Printf("listener panic: %v", r)
		}
	}()
	fn()
}
