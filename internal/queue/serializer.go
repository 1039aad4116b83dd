package queue

import (
	"encoding/json"
	"fmt"
)

// Serializer converts the queue to and from its persisted form.
//
// Unmarshal must return a *CorruptError for data it cannot decode; the
// Store recovers that case as an empty queue.
type Serializer interface {
	Marshal(items []Item) ([]byte, error)
	Unmarshal(data []byte) ([]Item, error)
}

// CorruptError reports persisted queue data that could not be decoded.
type CorruptError struct {
	Err error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt queue data: %v", e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// JSONSerializer stores the queue as a JSON array.
type JSONSerializer struct{}

// Marshal encodes items as a JSON array ("[]" for an empty queue).
func (JSONSerializer) Marshal(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal queue: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a JSON array of items. Empty input is an empty queue.
// Items with an id missing or an unknown status are treated as corruption.
func (JSONSerializer) Unmarshal(data []byte) ([]Item, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &CorruptError{Err: err}
	}
	for i, item := range items {
		if item.ID == "" {
			return nil, &CorruptError{Err: fmt.Errorf("item %d has no id", i)}
		}
		if item.Retries < 0 {
			return nil, &CorruptError{Err: fmt.Errorf("item %s has negative retries", item.ID)}
		}
		if item.Status == "" {
			items[i].Status = StatusPending
		} else if !item.Status.Valid() {
			return nil, &CorruptError{Err: fmt.Errorf("item %s has unknown status %q", item.ID, item.Status)}
		}
	}
	return items, nil
}
