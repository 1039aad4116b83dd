// Package connectivity watches network reachability and triggers a sync
// when the device comes back online.
package connectivity

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// Status is one reachability reading.
type Status struct {
	Connected bool
	Reason    string
	At        time.Time
}

func (s Status) String() string {
	state := "offline"
	if s.Connected {
		state = "online"
	}
	if s.Reason == "" {
		return state
	}
	return fmt.Sprintf("%s (%s)", state, s.Reason)
}

// Source produces reachability readings. Watch sends readings until ctx is
// done and then closes the channel.
type Source interface {
	Watch(ctx context.Context) (<-chan Status, error)
}

// Monitor turns a stream of readings into transitions. The first reading
// is the baseline; only later changes count. A transition to connected
// calls the trigger.
type Monitor struct {
	source       Source
	trigger      func(ctx context.Context)
	onChange     func(Status)
	drainOnStart bool
	logger       *log.Logger

	mu          sync.RWMutex
	known       bool
	last        Status
	transitions int
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithDrainOnStart makes a connected baseline reading call the trigger.
// By default a queue filled before the monitor started waits for the next
// offline to online transition.
func WithDrainOnStart(enabled bool) Option {
	return func(m *Monitor) { m.drainOnStart = enabled }
}

// WithChangeHandler registers fn for the baseline and every transition.
func WithChangeHandler(fn func(Status)) Option {
	return func(m *Monitor) { m.onChange = fn }
}

// WithLogger sets the monitor logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// NewMonitor creates a monitor over source calling trigger on reconnect.
func NewMonitor(source Source, trigger func(ctx context.Context), opts ...Option) *Monitor {
	m := &Monitor{
		source:  source,
		trigger: trigger,
		logger:  log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run consumes readings until ctx is done or the source closes its
// channel.
func (m *Monitor) Run(ctx context.Context) error {
	readings, err := m.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch connectivity: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st, ok := <-readings:
			if !ok {
				return ctx.Err()
			}
			m.observe(ctx, st)
		}
	}
}

func (m *Monitor) observe(ctx context.Context, st Status) {
	if st.At.IsZero() {
		st.At = time.Now()
	}

	m.mu.Lock()
	baseline := !m.known
	changed := !baseline && m.last.Connected != st.Connected
	m.known = true
	m.last = st
	if changed {
		m.transitions++
	}
	m.mu.Unlock()

	if !baseline && !changed {
		return
	}

	if baseline {
		m.logger.Printf("Connectivity baseline: %s", st)
	} else {
		m.logger.Printf("Connectivity changed: %s", st)
	}
	if m.onChange != nil {
		m.onChange(st)
	}

	if st.Connected && m.trigger != nil && (changed || m.drainOnStart) {
		m.trigger(ctx)
	}
}

// Status returns the last reading and whether any reading arrived yet.
func (m *Monitor) Status() (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.known
}

// Connected reports the last known reachability.
func (m *Monitor) Connected() bool {
	st, _ := m.Status()
	return st.Connected
}

// Transitions returns how many changes followed the baseline.
func (m *Monitor) Transitions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transitions
}
