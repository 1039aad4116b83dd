package notify

import (
	"log"
	"sync"
)

// Kind classifies a toast.
type Kind string

const (
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
)

// Toast is a user-visible message.
type Toast struct {
	Kind    Kind
	Title   string
	Message string
}

// Sink receives user-visible toasts.
type Sink interface {
	Notify(t Toast)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Toast)

// Notify calls f(t).
func (f SinkFunc) Notify(t Toast) { f(t) }

// Discard drops every toast.
var Discard Sink = SinkFunc(func(Toast) {})

// LogSink writes toasts to a logger, for daemons without a terminal.
type LogSink struct {
	Logger *log.Logger
}

// Notify logs the toast.
func (s LogSink) Notify(t Toast) {
	if s.Logger == nil {
		return
	}
	s.Logger.Printf("[%s] %s: %s", t.Kind, t.Title, t.Message)
}

// Multi forwards every toast to each sink in order.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(t Toast) {
		for _, s := range sinks {
			if s != nil {
				s.Notify(t)
			}
		}
	})
}

// Recorder keeps every toast it receives. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

// Notify records t.
func (r *Recorder) Notify(t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

// Toasts returns a copy of the recorded toasts.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	copy(out, r.toasts)
	return out
}

// Count returns how many toasts of kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.toasts {
		if t.Kind == kind {
			n++
		}
	}
	return n
}
