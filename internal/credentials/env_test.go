package credentials

import "testing"

func TestNormalizeProfile(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"default", "DEFAULT"},
		{"beta-tester", "BETA_TESTER"},
		{"Staging", "STAGING"},
		{"multi-word-name", "MULTI_WORD_NAME"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := normalizeProfile(tt.input); got != tt.expected {
				t.Errorf("normalizeProfile(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGetEnvVarName(t *testing.T) {
	tests := []struct {
		profile  string
		field    string
		expected string
	}{
		{"default", FieldAPIKey, "CUPPASYNC_DEFAULT_API_KEY"},
		{"beta-tester", FieldAccessToken, "CUPPASYNC_BETA_TESTER_ACCESS_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := getEnvVarName(tt.profile, tt.field); got != tt.expected {
				t.Errorf("getEnvVarName(%q, %q) = %q, want %q", tt.profile, tt.field, got, tt.expected)
			}
		})
	}
}

func TestGetAPIKeyAndToken(t *testing.T) {
	t.Setenv("CUPPASYNC_TESTENV_API_KEY", "env-key")
	t.Setenv("CUPPASYNC_TESTENV_ACCESS_TOKEN", "env-token")

	if got := GetAPIKey("testenv"); got != "env-key" {
		t.Errorf("GetAPIKey() = %q", got)
	}
	if got := GetAccessToken("testenv"); got != "env-token" {
		t.Errorf("GetAccessToken() = %q", got)
	}
	if GetAPIKey("") != "" || GetAccessToken("") != "" {
		t.Error("empty profile should yield empty values")
	}
	if !HasCredentials("testenv") {
		t.Error("HasCredentials() = false, want true")
	}
	if HasCredentials("nobody") {
		t.Error("HasCredentials(nobody) = true, want false")
	}
}
