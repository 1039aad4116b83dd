// Package conflict merges divergent local and remote mutation payloads.
package conflict

import (
	"encoding/json"
	"strings"
	"time"
)

// TimestampFields are the payload keys checked, in order, for a
// comparable modification time.
var TimestampFields = []string{"updatedAt", "updated_at", "timestamp", "modifiedAt", "modified_at"}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// MergePayloads picks or combines local and remote payloads.
//
// When both carry a timestamp the later one wins and ties go to local.
// When only one does, it wins. Otherwise two objects are shallow-merged
// with local keys overriding remote keys, and anything else resolves to
// local unless local is empty.
func MergePayloads(local, remote any) any {
	localTS, localOK := ExtractTimestamp(local)
	remoteTS, remoteOK := ExtractTimestamp(remote)

	switch {
	case localOK && remoteOK:
		if !localTS.Before(remoteTS) {
			return local
		}
		return remote
	case localOK:
		return local
	case remoteOK:
		return remote
	}

	localMap, lok := local.(map[string]any)
	remoteMap, rok := remote.(map[string]any)
	if lok && rok {
		merged := make(map[string]any, len(localMap)+len(remoteMap))
		for k, v := range remoteMap {
			merged[k] = v
		}
		for k, v := range localMap {
			merged[k] = v
		}
		return merged
	}

	if !isEmpty(local) {
		return local
	}
	return remote
}

// ExtractTimestamp returns the first parseable timestamp of payload found
// under TimestampFields. Numbers are epoch milliseconds.
func ExtractTimestamp(payload any) (time.Time, bool) {
	fields, ok := payload.(map[string]any)
	if !ok {
		return time.Time{}, false
	}
	for _, key := range TimestampFields {
		v, present := fields[key]
		if !present {
			continue
		}
		if ts, ok := parseTimestamp(v); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseTimestamp(v any) (time.Time, bool) {
	switch ts := v.(type) {
	case float64:
		return time.UnixMilli(int64(ts)), true
	case int:
		return time.UnixMilli(int64(ts)), true
	case int64:
		return time.UnixMilli(ts), true
	case json.Number:
		if n, err := ts.Int64(); err == nil {
			return time.UnixMilli(n), true
		}
		if f, err := ts.Float64(); err == nil {
			return time.UnixMilli(int64(f)), true
		}
	case time.Time:
		return ts, !ts.IsZero()
	case string:
		s := strings.TrimSpace(ts)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	}
	return false
}
