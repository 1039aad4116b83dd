package app

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"

	"cuppasync/internal/config"
	"cuppasync/internal/credentials"
	"cuppasync/internal/remote/remotetest"
)

func setupTestConfig(t *testing.T, yamlCfg string) *config.Config {
	t.Helper()
	keyring.MockInit()

	cfg, err := config.ParseConfig([]byte(yamlCfg), "test.yaml")
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	return cfg
}

func TestOpenStorage(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		cfg     config.StorageConfig
		wantErr bool
	}{
		{"memory", config.StorageConfig{Backend: "memory"}, false},
		{"file", config.StorageConfig{Backend: "file", Path: filepath.Join(dir, "queue")}, false},
		{"sqlite", config.StorageConfig{Backend: "sqlite", Path: filepath.Join(dir, "queue.db")}, false},
		{"unknown", config.StorageConfig{Backend: "redis"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, err := OpenStorage(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("OpenStorage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if storage != nil {
				storage.Close()
			}
		})
	}
}

func TestNewApp_CredentialSources(t *testing.T) {
	tests := []struct {
		name           string
		yaml           string
		envKey         string
		wantSource     credentials.Source
		wantConfigured bool
	}{
		{
			name:           "config key",
			yaml:           "remote:\n  base_url: http://localhost:1\n  api_key: cfg\nstorage:\n  backend: memory\n",
			wantSource:     credentials.SourceConfig,
			wantConfigured: true,
		},
		{
			name:           "env key wins",
			yaml:           "remote:\n  base_url: http://localhost:1\n  api_key: cfg\nstorage:\n  backend: memory\n",
			envKey:         "env",
			wantSource:     credentials.SourceEnv,
			wantConfigured: true,
		},
		{
			name:           "no key",
			yaml:           "remote:\n  base_url: http://localhost:1\nstorage:\n  backend: memory\n",
			wantSource:     credentials.SourceNone,
			wantConfigured: false,
		},
		{
			name:           "no endpoint",
			yaml:           "remote:\n  api_key: cfg\nstorage:\n  backend: memory\n",
			wantSource:     credentials.SourceConfig,
			wantConfigured: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CUPPASYNC_DEFAULT_API_KEY", tt.envKey)
			cfg := setupTestConfig(t, tt.yaml)

			a, err := NewApp(cfg, &bytes.Buffer{}, credentials.NewResolver())
			if err != nil {
				t.Fatalf("NewApp() error = %v", err)
			}
			defer a.Close()

			if got := a.Credentials().Source; got != tt.wantSource {
				t.Errorf("Source = %s, want %s", got, tt.wantSource)
			}
			if got := a.Client().Configured(); got != tt.wantConfigured {
				t.Errorf("Configured() = %v, want %v", got, tt.wantConfigured)
			}
		})
	}
}

func TestApp_CoordinatorSharesQueue(t *testing.T) {
	srv := remotetest.NewServer(remotetest.Options{APIKey: "cfg"})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	cfg := setupTestConfig(t, "remote:\n  base_url: "+ts.URL+"\n  api_key: cfg\nstorage:\n  backend: memory\nnotifications:\n  style: plain\n")
	out := &bytes.Buffer{}
	a, err := NewApp(cfg, out, credentials.NewResolver())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	ctx := context.Background()
	if _, err := a.Store().Enqueue(ctx, "rate_coffee", map[string]any{"rating": 5}, "u1"); err != nil {
		t.Fatal(err)
	}

	coord, err := a.Coordinator()
	if err != nil {
		t.Fatalf("Coordinator() error = %v", err)
	}
	report, err := coord.ProcessQueue(ctx)
	if err != nil {
		t.Fatalf("ProcessQueue() error = %v", err)
	}
	if report.Completed != 1 {
		t.Errorf("Completed = %d, want 1", report.Completed)
	}
	if n, _ := a.Store().Len(ctx); n != 0 {
		t.Errorf("queue length = %d, want 0", n)
	}
	if out.Len() == 0 {
		t.Error("success toast should be written to the app output")
	}
}

func TestApp_ConfigAccessors(t *testing.T) {
	cfg := setupTestConfig(t, "storage:\n  backend: memory\nsync:\n  max_retries: 5\n")
	a, err := NewApp(cfg, &bytes.Buffer{}, credentials.NewEnvResolver())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if a.Config().Sync.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", a.Config().Sync.MaxRetries)
	}
	if a.Sink() == nil || a.Resolver() == nil || a.Store() == nil {
		t.Error("accessors should return initialized components")
	}
}

func TestNewApp_ConflictStrategies(t *testing.T) {
	cfg := setupTestConfig(t, "storage:\n  backend: memory\nconflict:\n  strategies:\n    rate_coffee: prefer_local\n")
	a, err := NewApp(cfg, &bytes.Buffer{}, credentials.NewEnvResolver())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if ops := a.Resolver().Operations(); len(ops) != 1 || ops[0] != "rate_coffee" {
		t.Fatalf("Operations() = %v, want [rate_coffee]", ops)
	}
	local := map[string]any{"rating": 5.0}
	if got := a.Resolver().Merge("rate_coffee", local, map[string]any{"rating": 1.0, "updatedAt": "2026-03-01"}); got == nil || got.(map[string]any)["rating"] != 5.0 {
		t.Errorf("Merge() = %v, want the local payload", got)
	}
}
