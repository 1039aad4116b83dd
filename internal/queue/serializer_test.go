package queue

import (
	"errors"
	"testing"
)

func TestJSONSerializer_EmptyQueue(t *testing.T) {
	var s JSONSerializer

	data, err := s.Marshal(nil)
	if err != nil {
		t.Fatalf("Marshal(nil) error = %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("Marshal(nil) = %s, want []", data)
	}

	items, err := s.Unmarshal(nil)
	if err != nil || len(items) != 0 {
		t.Errorf("Unmarshal(nil) = %v, %v; want empty, nil", items, err)
	}
}

func TestJSONSerializer_Unmarshal(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantLen     int
		wantCorrupt bool
	}{
		{"valid", `[{"id":"a","operation":"op","retries":1,"status":"conflict"}]`, 1, false},
		{"missing status defaults", `[{"id":"a","operation":"op"}]`, 1, false},
		{"not json", `{{`, 0, true},
		{"object instead of array", `{"id":"a"}`, 0, true},
		{"missing id", `[{"operation":"op"}]`, 0, true},
		{"negative retries", `[{"id":"a","retries":-1}]`, 0, true},
		{"unknown status", `[{"id":"a","status":"weird"}]`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := JSONSerializer{}.Unmarshal([]byte(tt.data))

			var corrupt *CorruptError
			if tt.wantCorrupt {
				if !errors.As(err, &corrupt) {
					t.Fatalf("Unmarshal() error = %v, want *CorruptError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if len(items) != tt.wantLen {
				t.Fatalf("len(items) = %d, want %d", len(items), tt.wantLen)
			}
			if !items[0].Status.Valid() {
				t.Errorf("Status = %q, want a valid status", items[0].Status)
			}
		})
	}
}
