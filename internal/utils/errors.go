package utils

import (
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a helpful suggestion for the user
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap allows errors.Is and errors.As to work
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// ErrRemoteNotConfigured is returned when the mutation log endpoint is missing
func ErrRemoteNotConfigured() error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("remote mutation log is not configured"),
		Suggestion: "Set 'remote.base_url' in ~/.config/cuppasync/config.yaml",
	}
}

// ErrCredentialsNotFound creates an error when no API key can be resolved
func ErrCredentialsNotFound(profile string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("no API key found for profile %q", profile),
		Suggestion: fmt.Sprintf("Store one with 'cuppasync credentials set %s api_key --prompt' or export CUPPASYNC_%s_API_KEY", profile, strings.ToUpper(strings.ReplaceAll(profile, "-", "_"))),
	}
}

// ErrInvalidPayload creates an error for a payload that is not valid JSON
func ErrInvalidPayload(raw string, cause error) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid payload %q: %v", raw, cause),
		Suggestion: `Pass a JSON value, e.g. --payload '{"coffeeId":"abc","rating":5}'`,
	}
}

// ErrSyncInProgress creates an error when a sync pass is already running
func ErrSyncInProgress() error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("a sync pass is already running"),
		Suggestion: "Wait for it to finish; new changes are picked up by the next pass",
	}
}

// ErrConfigFileNotFound creates an error when config file is not found
func ErrConfigFileNotFound(path string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("config file not found at %s", path),
		Suggestion: "Run 'cuppasync status' once to create a default configuration file",
	}
}

// ErrInvalidConfig creates an error for invalid configuration
func ErrInvalidConfig(field string, reason string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid configuration for '%s': %s", field, reason),
		Suggestion: fmt.Sprintf("Check ~/.config/cuppasync/config.yaml and fix the '%s' field", field),
	}
}

// WrapWithSuggestion wraps an existing error with a suggestion
func WrapWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}
