package credentials

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestGetServiceName(t *testing.T) {
	tests := []struct {
		profile  string
		expected string
	}{
		{"default", "cuppasync-default"},
		{"beta-tester", "cuppasync-beta-tester"},
		{"staging", "cuppasync-staging"},
	}

	for _, tt := range tests {
		t.Run(tt.profile, func(t *testing.T) {
			if got := getServiceName(tt.profile); got != tt.expected {
				t.Errorf("getServiceName(%q) = %q, want %q", tt.profile, got, tt.expected)
			}
		})
	}
}

func TestSet_Validation(t *testing.T) {
	keyring.MockInit()

	tests := []struct {
		name    string
		profile string
		field   string
		secret  string
	}{
		{"empty profile", "", FieldAPIKey, "k"},
		{"unknown field", "default", "password", "k"},
		{"empty secret", "default", FieldAPIKey, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Set(tt.profile, tt.field, tt.secret); err == nil {
				t.Errorf("Set(%q, %q, %q) error = nil, want error", tt.profile, tt.field, tt.secret)
			}
		})
	}
}

func TestKeyringRoundTrip(t *testing.T) {
	keyring.MockInit()

	if err := Set("default", FieldAPIKey, "anon-key"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := Get("default", FieldAPIKey)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "anon-key" {
		t.Errorf("Get() = %q, want %q", got, "anon-key")
	}

	if _, err := Get("default", FieldAccessToken); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := Delete("default", FieldAPIKey); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := Delete("default", FieldAPIKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestKeyringUnavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("no secret service"))
	defer keyring.MockInit()

	if IsAvailable() {
		t.Error("IsAvailable() = true with a failing keyring")
	}
	if _, err := Get("default", FieldAPIKey); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want an access error", err)
	}
}

func TestValidateField(t *testing.T) {
	for _, f := range Fields() {
		if err := ValidateField(f); err != nil {
			t.Errorf("ValidateField(%q) error = %v", f, err)
		}
	}
	if err := ValidateField("username"); err == nil {
		t.Error("ValidateField(username) should fail")
	}
}
