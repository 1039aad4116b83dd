package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"cuppasync/internal/notify"
	"cuppasync/internal/utils"
)

// Store is the durable, ordered list of pending mutations. Every
// read-modify-write of the persisted list goes through Storage.Update, so
// it is atomic across processes sharing the storage, and each mutation is
// followed by a length notification on the store's hub.
type Store struct {
	storage    Storage
	serializer Serializer
	key        string
	hub        *notify.Hub
	logger     *log.Logger
	now        func() time.Time
	newID      func() string
}

// Option configures a Store.
type Option func(*Store)

// WithSerializer replaces the default JSON serializer.
func WithSerializer(s Serializer) Option {
	return func(st *Store) { st.serializer = s }
}

// WithKey stores the queue under key instead of DefaultKey.
func WithKey(key string) Option {
	return func(st *Store) { st.key = key }
}

// WithLogger sets the logger used for corruption warnings.
func WithLogger(l *log.Logger) Option {
	return func(st *Store) { st.logger = l }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(st *Store) { st.now = now }
}

// WithIDGenerator overrides the UUID generator, for tests.
func WithIDGenerator(gen func() string) Option {
	return func(st *Store) { st.newID = gen }
}

// NewStore creates a Store over storage publishing length changes to hub.
// A nil hub gets a private one.
func NewStore(storage Storage, hub *notify.Hub, opts ...Option) *Store {
	if hub == nil {
		hub = notify.NewHub(nil)
	}
	s := &Store{
		storage:    storage,
		serializer: JSONSerializer{},
		key:        DefaultKey,
		hub:        hub,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hub returns the hub the store publishes length changes on.
func (s *Store) Hub() *notify.Hub {
	return s.hub
}

// SubscribeLength registers fn for queue-length changes.
func (s *Store) SubscribeLength(fn func(length int)) (unsubscribe func()) {
	return s.hub.SubscribeLength(fn)
}

// Enqueue appends a new pending mutation and returns it.
func (s *Store) Enqueue(ctx context.Context, operation string, payload any, userID string) (Item, error) {
	if operation == "" {
		return Item{}, fmt.Errorf("operation cannot be empty")
	}

	item := Item{
		ID:        s.newID(),
		Operation: operation,
		Payload:   payload,
		Retries:   0,
		Status:    StatusPending,
		UserID:    ResolveUserID(userID, payload),
		CreatedAt: s.now().UTC(),
	}

	items, err := s.update(ctx, func(items []Item) []Item {
		return append(items, item)
	})
	if err != nil {
		return Item{}, fmt.Errorf("failed to enqueue %s: %w", operation, err)
	}

	s.hub.PublishLength(len(items))
	return item, nil
}

// GetQueue returns the persisted queue. Corrupt data is logged and read as
// an empty queue; only storage I/O failures are returned.
func (s *Store) GetQueue(ctx context.Context) ([]Item, error) {
	data, err := s.storage.Load(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.decode(data), nil
}

// SetQueue replaces the persisted queue with items.
func (s *Store) SetQueue(ctx context.Context, items []Item) error {
	items, err := s.update(ctx, func([]Item) []Item { return items })
	if err != nil {
		return err
	}

	s.hub.PublishLength(len(items))
	return nil
}

// Update applies fn to the persisted queue and persists the result. Other
// Store calls, in this process or another one on the same storage, never
// interleave with it.
func (s *Store) Update(ctx context.Context, fn func(items []Item) []Item) error {
	items, err := s.update(ctx, fn)
	if err != nil {
		return err
	}

	s.hub.PublishLength(len(items))
	return nil
}

// TryLockRun takes the store-wide sync lock. ok is false while another
// holder, possibly in another process, has it.
func (s *Store) TryLockRun() (unlock func(), ok bool, err error) {
	return s.storage.TryLock(s.key + ".sync")
}

// Remove deletes the item with id, if present.
func (s *Store) Remove(ctx context.Context, id string) error {
	return s.Update(ctx, func(items []Item) []Item {
		return without(items, id)
	})
}

// Replace overwrites the stored item that has item.ID. Missing items are
// not re-added.
func (s *Store) Replace(ctx context.Context, item Item) error {
	return s.Update(ctx, func(items []Item) []Item {
		for i := range items {
			if items[i].ID == item.ID {
				items[i] = item
			}
		}
		return items
	})
}

// Len returns the number of persisted items.
func (s *Store) Len(ctx context.Context) (int, error) {
	items, err := s.GetQueue(ctx)
	return len(items), err
}

// Clear removes every item.
func (s *Store) Clear(ctx context.Context) error {
	return s.SetQueue(ctx, nil)
}

// update runs fn over the stored queue inside one Storage.Update and
// returns the list it persisted.
func (s *Store) update(ctx context.Context, fn func(items []Item) []Item) ([]Item, error) {
	var saved []Item
	err := s.storage.Update(ctx, s.key, func(current []byte) ([]byte, error) {
		items := fn(s.decode(current))
		data, err := s.serializer.Marshal(items)
		if err != nil {
			return nil, err
		}
		saved = items
		return data, nil
	})
	return saved, err
}

// decode reads an empty or missing value as an empty queue and logs
// corrupt data before dropping it.
func (s *Store) decode(data []byte) []Item {
	if len(data) == 0 {
		return nil
	}
	items, err := s.serializer.Unmarshal(data)
	if err != nil {
		var corrupt *CorruptError
		if !errors.As(err, &corrupt) {
			corrupt = &CorruptError{Err: err}
		}
		s.warnf("ignoring persisted queue: %v", corrupt)
		return nil
	}
	return items
}

func (s *Store) warnf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf("[WARN] "+format, args...)
		return
	}
	utils.Warnf(format, args...)
}

func without(items []Item, id string) []Item {
	out := items[:0:0]
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}

// Index returns the position of id in items, or -1.
func Index(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
