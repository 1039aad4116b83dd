package connectivity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// triggerRecorder counts trigger calls.
type triggerRecorder struct {
	mu    sync.Mutex
	calls int
	ch    chan struct{}
}

func newTriggerRecorder() *triggerRecorder {
	return &triggerRecorder{ch: make(chan struct{}, 16)}
}

func (r *triggerRecorder) trigger(context.Context) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *triggerRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestMonitor_ReactsOnlyToTransitions(t *testing.T) {
	tests := []struct {
		name         string
		readings     []bool
		drainOnStart bool
		wantTriggers int
		wantTrans    int
	}{
		{"connected baseline is ignored", []bool{true, true}, false, 0, 0},
		{"offline to online triggers", []bool{false, true}, false, 1, 1},
		{"steady online does not retrigger", []bool{false, true, true, true}, false, 1, 1},
		{"flapping triggers each reconnect", []bool{true, false, true, false, true}, false, 2, 4},
		{"drain on start", []bool{true, true}, true, 1, 0},
		{"drain on start offline baseline", []bool{false, false}, true, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTriggerRecorder()
			m := NewMonitor(NewManualSource(), rec.trigger, WithDrainOnStart(tt.drainOnStart))

			for _, connected := range tt.readings {
				m.observe(context.Background(), Status{Connected: connected})
			}

			if got := rec.count(); got != tt.wantTriggers {
				t.Errorf("triggers = %d, want %d", got, tt.wantTriggers)
			}
			if got := m.Transitions(); got != tt.wantTrans {
				t.Errorf("Transitions() = %d, want %d", got, tt.wantTrans)
			}
			if m.Connected() != tt.readings[len(tt.readings)-1] {
				t.Errorf("Connected() = %v, want last reading", m.Connected())
			}
		})
	}
}

func TestMonitor_RunWithManualSource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := NewManualSource()
	rec := newTriggerRecorder()

	var changes []Status
	var mu sync.Mutex
	m := NewMonitor(source, rec.trigger, WithChangeHandler(func(st Status) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, st)
	}))

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	source.Set(false)
	source.Set(false)
	source.Set(true)

	select {
	case <-rec.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect did not trigger")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 2 || changes[0].Connected || !changes[1].Connected {
		t.Errorf("changes = %v, want baseline offline then online", changes)
	}
	if rec.count() != 1 {
		t.Errorf("triggers = %d, want 1", rec.count())
	}
}

type failingSource struct{}

func (failingSource) Watch(context.Context) (<-chan Status, error) {
	return nil, errors.New("no network stack")
}

func TestMonitor_RunSourceError(t *testing.T) {
	m := NewMonitor(failingSource{}, nil)
	if err := m.Run(context.Background()); err == nil {
		t.Error("Run() should fail when the source cannot watch")
	}
	if _, known := m.Status(); known {
		t.Error("Status() should be unknown before any reading")
	}
}

func TestStatus_String(t *testing.T) {
	if got := (Status{Connected: true}).String(); got != "online" {
		t.Errorf("String() = %q", got)
	}
	if got := (Status{Reason: "dial tcp: refused"}).String(); got != "offline (dial tcp: refused)" {
		t.Errorf("String() = %q", got)
	}
}
