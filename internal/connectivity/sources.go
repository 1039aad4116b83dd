package connectivity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// manualBuffer is how many readings a ManualSource keeps before Watch
// drains them.
const manualBuffer = 64

// ManualSource reports whatever Set last received. Readings set before
// Watch are buffered; once the buffer is full the oldest one is dropped.
type ManualSource struct {
	updates chan Status
}

// NewManualSource creates a ManualSource.
func NewManualSource() *ManualSource {
	return &ManualSource{updates: make(chan Status, manualBuffer)}
}

// Set publishes a reading. It never blocks.
func (s *ManualSource) Set(connected bool) {
	st := Status{Connected: connected, Reason: "manual", At: time.Now()}
	for {
		select {
		case s.updates <- st:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

func (s *ManualSource) Watch(ctx context.Context) (<-chan Status, error) {
	out := make(chan Status)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case st := <-s.updates:
				select {
				case out <- st:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// DefaultProbeInterval is used when ProbeSource.Interval is zero.
const DefaultProbeInterval = 15 * time.Second

// ProbeSource polls a URL. Any HTTP response counts as connected; a
// transport error counts as disconnected.
type ProbeSource struct {
	URL      string
	Interval time.Duration
	Client   *http.Client
}

// NewProbeSource creates a probe of url every interval.
func NewProbeSource(url string, interval time.Duration) *ProbeSource {
	return &ProbeSource{
		URL:      url,
		Interval: interval,
		Client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *ProbeSource) Watch(ctx context.Context) (<-chan Status, error) {
	if s.URL == "" {
		return nil, errors.New("probe URL is empty")
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultProbeInterval
	}

	out := make(chan Status)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case out <- s.Probe(ctx):
			case <-ctx.Done():
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Probe performs one reachability check.
func (s *ProbeSource) Probe(ctx context.Context) Status {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	status, err := s.request(ctx, client, http.MethodHead)
	if err == nil && status == http.StatusMethodNotAllowed {
		status, err = s.request(ctx, client, http.MethodGet)
	}
	if err != nil {
		return Status{Connected: false, Reason: err.Error(), At: time.Now()}
	}
	return Status{Connected: true, Reason: fmt.Sprintf("HTTP %d", status), At: time.Now()}
}

func (s *ProbeSource) request(ctx context.Context, client *http.Client, method string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.URL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

// FileSource reads reachability from a status file written by a network
// dispatcher hook. The contents online, connected, up, 1 and true mean
// connected; anything else, or a missing file, means disconnected.
type FileSource struct {
	Path string
	// Logger receives watcher errors. Nil discards them.
	Logger *log.Logger
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Watch(ctx context.Context) (<-chan Status, error) {
	path := filepath.Clean(s.Path)
	dir := filepath.Dir(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	// The directory is watched so the file may be created, replaced or
	// removed while watching.
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	out := make(chan Status)
	go func() {
		defer close(out)
		defer watcher.Close()
		s.forward(ctx, path, watcher.Events, watcher.Errors, out)
	}()
	return out, nil
}

// forward sends the initial reading and one reading per change of path
// until ctx is done or the watcher closes. Watcher errors say nothing
// about reachability, so they are only logged.
func (s *FileSource) forward(ctx context.Context, path string, events <-chan fsnotify.Event, errs <-chan error, out chan<- Status) {
	send := func(st Status) bool {
		select {
		case out <- st:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !send(s.Read()) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !send(s.Read()) {
				return
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			if s.Logger != nil {
				s.Logger.Printf("Status file watch error: %v", err)
			}
		}
	}
}

// Read returns the reading the status file currently encodes.
func (s *FileSource) Read() Status {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Status{Connected: false, Reason: "status file missing", At: time.Now()}
		}
		return Status{Connected: false, Reason: err.Error(), At: time.Now()}
	}
	value := strings.ToLower(strings.TrimSpace(string(data)))
	return Status{Connected: ParseState(value), Reason: "status file: " + value, At: time.Now()}
}

// ParseState reports whether value names a connected state.
func ParseState(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "online", "connected", "up", "1", "true":
		return true
	}
	return false
}
