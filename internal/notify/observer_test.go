package notify

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestHub_LengthSubscribeAndUnsubscribe(t *testing.T) {
	hub := NewHub(nil)

	var got []int
	unsubscribe := hub.SubscribeLength(func(n int) { got = append(got, n) })

	hub.PublishLength(1)
	hub.PublishLength(2)
	unsubscribe()
	hub.PublishLength(3)

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("length events = %v, want [1 2]", got)
	}
}

func TestHub_UnsubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(nil)

	var a, b int
	unsubA := hub.SubscribeLength(func(int) { a++ })
	hub.SubscribeLength(func(int) { b++ })

	unsubA()
	unsubA()
	unsubA()

	hub.PublishLength(5)

	if a != 0 {
		t.Errorf("unsubscribed listener called %d times", a)
	}
	if b != 1 {
		t.Errorf("remaining listener called %d times, want 1 (a repeated unsubscribe must not remove it)", b)
	}
}

func TestHub_Progress(t *testing.T) {
	var hub Hub

	var got []Progress
	hub.SubscribeProgress(func(p Progress) { got = append(got, p) })

	hub.PublishProgress(0, 2)
	hub.PublishProgress(1, 2)
	hub.PublishProgress(2, 2)

	want := []Progress{{0, 2}, {1, 2}, {2, 2}}
	if len(got) != len(want) {
		t.Fatalf("progress events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if !got[2].Done() || got[1].Done() {
		t.Error("Done() should be true only when processed reaches total")
	}
}

func TestHub_ListenerPanicIsRecovered(t *testing.T) {
	var buf bytes.Buffer
	hub := NewHub(log.New(&buf, "", 0))

	called := false
	hub.SubscribeLength(func(int) { panic("boom") })
	hub.SubscribeLength(func(int) { called = true })

	hub.PublishLength(1)

	if !called {
		t.Error("listener after a panicking one should still run")
	}
	if !strings.Contains(buf.String(), "listener panic: boom") {
		t.Errorf("panic not logged, got %q", buf.String())
	}
}

func TestHub_UnsubscribeDuringPublish(t *testing.T) {
	hub := NewHub(nil)

	calls := 0
	var unsubscribe func()
	unsubscribe = hub.SubscribeLength(func(int) {
		calls++
		unsubscribe()
	})

	hub.PublishLength(1)
	hub.PublishLength(2)

	if calls != 1 {
		t.Errorf("self-unsubscribing listener called %d times, want 1", calls)
	}
}
