package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var operationPattern = regexp.MustCompile(`^[a-z][a-z0-9_.:-]*$`)

// ValidateOperation checks that an operation tag is a lowercase identifier
// such as "rate_coffee" or "quest:complete".
func ValidateOperation(operation string) error {
	if strings.TrimSpace(operation) == "" {
		return fmt.Errorf("operation cannot be empty")
	}
	if !operationPattern.MatchString(operation) {
		return fmt.Errorf("invalid operation %q: use lowercase letters, digits and _ . : -", operation)
	}
	return nil
}

// ParsePayloadFlag decodes a JSON payload given on the command line.
// An empty string yields a nil payload.
func ParsePayloadFlag(raw string) (interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var payload interface{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, ErrInvalidPayload(raw, err)
	}
	return payload, nil
}
