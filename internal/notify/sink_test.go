package notify

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Notify(Toast{Kind: KindFailure, Title: "Sync failed", Message: "x"})
	r.Notify(Toast{Kind: KindSuccess, Title: "Synced", Message: "y"})
	r.Notify(Toast{Kind: KindFailure, Title: "Sync failed", Message: "z"})

	if got := r.Count(KindFailure); got != 2 {
		t.Errorf("Count(failure) = %d, want 2", got)
	}
	if got := r.Count(KindSuccess); got != 1 {
		t.Errorf("Count(success) = %d, want 1", got)
	}

	toasts := r.Toasts()
	toasts[0].Title = "mutated"
	if r.Toasts()[0].Title != "Sync failed" {
		t.Error("Toasts() should return a copy")
	}
}

func TestMultiAndLogSink(t *testing.T) {
	var buf bytes.Buffer
	var rec Recorder

	sink := Multi(&rec, nil, LogSink{Logger: log.New(&buf, "", 0)}, Discard)
	sink.Notify(Toast{Kind: KindSuccess, Title: "Synced", Message: "All changes saved"})

	if rec.Count(KindSuccess) != 1 {
		t.Error("recorder did not receive the toast")
	}
	if !strings.Contains(buf.String(), "[success] Synced: All changes saved") {
		t.Errorf("log output = %q", buf.String())
	}

	LogSink{}.Notify(Toast{Kind: KindFailure})
}

func TestTerminalSink(t *testing.T) {
	tests := []struct {
		name     string
		style    Style
		toast    Toast
		contains []string
		empty    bool
	}{
		{
			name:     "plain success",
			style:    StylePlain,
			toast:    Toast{Kind: KindSuccess, Title: "Synced", Message: "All changes saved"},
			contains: []string{"[ok] Synced: All changes saved"},
		},
		{
			name:     "plain failure",
			style:    StylePlain,
			toast:    Toast{Kind: KindFailure, Title: "Sync failed", Message: "discarded"},
			contains: []string{"[x] Sync failed: discarded"},
		},
		{
			name:     "auto on a buffer is plain",
			style:    StyleAuto,
			toast:    Toast{Kind: KindSuccess, Title: "Synced", Message: "ok"},
			contains: []string{"[ok] Synced: ok"},
		},
		{
			name:     "fancy",
			style:    StyleFancy,
			toast:    Toast{Kind: KindFailure, Title: "Sync failed", Message: "discarded"},
			contains: []string{"Sync failed", "discarded", "✗"},
		},
		{
			name:  "quiet",
			style: StyleQuiet,
			toast: Toast{Kind: KindFailure, Title: "Sync failed", Message: "discarded"},
			empty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewTerminalSink(&buf, tt.style).Notify(tt.toast)

			if tt.empty {
				if buf.Len() != 0 {
					t.Errorf("quiet sink wrote %q", buf.String())
				}
				return
			}
			for _, want := range tt.contains {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output %q missing %q", buf.String(), want)
				}
			}
		})
	}
}
