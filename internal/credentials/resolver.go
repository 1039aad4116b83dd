package credentials

import (
	"fmt"

	"cuppasync/internal/utils"
)

// Source indicates where credentials were found
type Source string

const (
	SourceKeyring Source = "keyring"
	SourceEnv     Source = "env"
	SourceConfig  Source = "config"
	SourceNone    Source = "none"
)

// Credentials are the secrets used against the remote mutation log
type Credentials struct {
	APIKey      string
	AccessToken string
	// Source is where the API key came from
	Source      Source
	TokenSource Source
}

// Resolver handles credential resolution from multiple sources with priority order
type Resolver struct {
	// Priority order: Keyring > Environment Variables > Config file
	useKeyring bool
}

// NewResolver creates a new credential resolver
func NewResolver() *Resolver {
	return &Resolver{useKeyring: true}
}

// NewEnvResolver creates a resolver that never touches the keyring, for
// headless environments.
func NewEnvResolver() *Resolver {
	return &Resolver{useKeyring: false}
}

// Resolve finds the API key and access token of profile. Each secret is
// looked up independently in the keyring, then the environment, then the
// config values passed in. The access token is optional; a missing API
// key is an error.
func (r *Resolver) Resolve(profile, configAPIKey, configAccessToken string) (*Credentials, error) {
	if profile == "" {
		return nil, fmt.Errorf("profile is required for credential resolution")
	}

	keyringOK := r.useKeyring && IsAvailable()
	creds := &Credentials{Source: SourceNone, TokenSource: SourceNone}

	creds.APIKey, creds.Source = r.lookup(keyringOK, profile, FieldAPIKey, GetAPIKey(profile), configAPIKey)
	creds.AccessToken, creds.TokenSource = r.lookup(keyringOK, profile, FieldAccessToken, GetAccessToken(profile), configAccessToken)

	if creds.APIKey == "" {
		return creds, utils.ErrCredentialsNotFound(profile)
	}
	return creds, nil
}

func (r *Resolver) lookup(keyringOK bool, profile, field, envValue, configValue string) (string, Source) {
	if keyringOK {
		if secret, err := Get(profile, field); err == nil && secret != "" {
			return secret, SourceKeyring
		}
	}
	if envValue != "" {
		return envValue, SourceEnv
	}
	if configValue != "" {
		return configValue, SourceConfig
	}
	return "", SourceNone
}
