package credentials

import (
	"os"
	"strings"
)

// normalizeProfile converts a profile name to the format used in environment variables
// Example: "beta-tester" becomes "BETA_TESTER"
func normalizeProfile(profile string) string {
	normalized := strings.ToUpper(profile)
	normalized = strings.ReplaceAll(normalized, "-", "_")
	return normalized
}

// getEnvVarName returns the environment variable name for a profile secret
func getEnvVarName(profile, field string) string {
	return "CUPPASYNC_" + normalizeProfile(profile) + "_" + strings.ToUpper(field)
}

// GetAPIKey retrieves the API key from environment variables
// Looks for: CUPPASYNC_{PROFILE}_API_KEY
func GetAPIKey(profile string) string {
	if profile == "" {
		return ""
	}
	return os.Getenv(getEnvVarName(profile, FieldAPIKey))
}

// GetAccessToken retrieves the access token from environment variables
// Looks for: CUPPASYNC_{PROFILE}_ACCESS_TOKEN
func GetAccessToken(profile string) string {
	if profile == "" {
		return ""
	}
	return os.Getenv(getEnvVarName(profile, FieldAccessToken))
}

// HasCredentials checks if an API key exists in environment variables
func HasCredentials(profile string) bool {
	return GetAPIKey(profile) != ""
}
