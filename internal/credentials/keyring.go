package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringServicePrefix is the prefix for all cuppasync keyring entries
	KeyringServicePrefix = "cuppasync"
)

// Secret names stored per profile.
const (
	FieldAPIKey      = "api_key"
	FieldAccessToken = "access_token"
)

// ErrNotFound is returned when the keyring has no entry for a secret.
var ErrNotFound = errors.New("secret not found in keyring")

// Fields lists the secret names a profile may hold.
func Fields() []string {
	return []string{FieldAPIKey, FieldAccessToken}
}

// ValidateField checks that field names a known secret.
func ValidateField(field string) error {
	for _, f := range Fields() {
		if f == field {
			return nil
		}
	}
	return fmt.Errorf("unknown secret %q (want %s or %s)", field, FieldAPIKey, FieldAccessToken)
}

// getServiceName returns the keyring service name for a profile
func getServiceName(profile string) string {
	return fmt.Sprintf("%s-%s", KeyringServicePrefix, profile)
}

func validate(profile, field string) error {
	if profile == "" {
		return fmt.Errorf("profile cannot be empty")
	}
	return ValidateField(field)
}

// Set stores a secret in the OS keyring
func Set(profile, field, secret string) error {
	if err := validate(profile, field); err != nil {
		return err
	}
	if secret == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}

	if err := keyring.Set(getServiceName(profile), field, secret); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", field, err)
	}
	return nil
}

// Get retrieves a secret from the OS keyring
func Get(profile, field string) (string, error) {
	if err := validate(profile, field); err != nil {
		return "", err
	}

	secret, err := keyring.Get(getServiceName(profile), field)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: %s for profile %q", ErrNotFound, field, profile)
		}
		return "", fmt.Errorf("failed to retrieve %s from keyring: %w", field, err)
	}
	return secret, nil
}

// Delete removes a secret from the OS keyring
func Delete(profile, field string) error {
	if err := validate(profile, field); err != nil {
		return err
	}

	if err := keyring.Delete(getServiceName(profile), field); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%w: %s for profile %q", ErrNotFound, field, profile)
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", field, err)
	}
	return nil
}

// IsAvailable checks if the keyring is accessible
func IsAvailable() bool {
	// A missing probe entry still proves the keyring answers.
	_, err := keyring.Get("cuppasync-keyring-test", "test")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
