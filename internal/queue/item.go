// Package queue is the durable, ordered store of mutations captured while
// the device is offline.
package queue

import (
	"strconv"
	"time"
)

// Status is the lifecycle state of a queued mutation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusConflict Status = "conflict"
	StatusResolved Status = "resolved"
	StatusFailed   Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConflict, StatusResolved, StatusFailed:
		return true
	}
	return false
}

// Item is one pending mutation.
type Item struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Payload   any       `json:"payload"`
	Retries   int       `json:"retries"`
	Status    Status    `json:"status"`
	UserID    string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	LastError string    `json:"lastError,omitempty"`
}

// ResolveUserID picks the user id for a mutation: explicit first, then
// payload.userId, payload.user_id and payload.user.id.
func ResolveUserID(explicit string, payload any) string {
	if explicit != "" {
		return explicit
	}

	fields, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	if id := idString(fields["userId"]); id != "" {
		return id
	}
	if id := idString(fields["user_id"]); id != "" {
		return id
	}
	if user, ok := fields["user"].(map[string]any); ok {
		return idString(user["id"])
	}
	return ""
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	}
	return ""
}
