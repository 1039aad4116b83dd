// Package remote talks to the server-side mutation log, a PostgREST-style
// table of submitted mutation records.
package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record statuses as stored by the mutation log.
const (
	StatusPending  = "pending"
	StatusConflict = "conflict"
	StatusResolved = "resolved"
	StatusFailed   = "failed"
)

// ID is a record id. The log may serialize ids as strings (uuid columns)
// or numbers (bigint columns); both decode to the same string form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid record id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// Record is one row of the mutation log.
type Record struct {
	ID        ID     `json:"id,omitempty"`
	UserID    string `json:"user_id"`
	Operation string `json:"operation"`
	Payload   any    `json:"payload"`
	Retries   int    `json:"retries"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Patch is a partial update of a record. Nil fields are left untouched.
type Patch struct {
	Payload *any    `json:"payload,omitempty"`
	Status  *string `json:"status,omitempty"`
	Retries *int    `json:"retries,omitempty"`
}

// ResolvedPatch sets payload, status=resolved and retries in one update.
func ResolvedPatch(payload any, retries int) Patch {
	status := StatusResolved
	return Patch{Payload: &payload, Status: &status, Retries: &retries}
}

// StatusPatch only changes the status.
func StatusPatch(status string) Patch {
	return Patch{Status: &status}
}
