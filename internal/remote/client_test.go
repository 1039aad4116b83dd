package remote_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cuppasync/internal/remote"
	"cuppasync/internal/remote/remotetest"
)

func newTestClient(t *testing.T, opts remotetest.Options, cfg remote.Config) (*remote.Client, *remotetest.Server) {
	t.Helper()
	srv := remotetest.NewServer(opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cfg.BaseURL = ts.URL
	if cfg.APIKey == "" {
		cfg.APIKey = opts.APIKey
	}
	return remote.NewClient(cfg), srv
}

func TestClient_Configured(t *testing.T) {
	tests := []struct {
		name string
		cfg  remote.Config
		want bool
	}{
		{"complete", remote.Config{BaseURL: "https://x.example/rest/v1", APIKey: "k"}, true},
		{"no url", remote.Config{APIKey: "k"}, false},
		{"no key", remote.Config{BaseURL: "https://x.example/rest/v1", AccessToken: "t"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := remote.NewClient(tt.cfg).Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}

	var nilClient *remote.Client
	if nilClient.Configured() {
		t.Error("nil client should not be configured")
	}
}

func TestClient_SubmitHeaders(t *testing.T) {
	client, srv := newTestClient(t,
		remotetest.Options{APIKey: "anon-key"},
		remote.Config{AccessToken: "user-jwt"},
	)

	rec, err := client.Submit(context.Background(), remote.Record{
		UserID:    "u1",
		Operation: "rate_coffee",
		Payload:   map[string]any{"coffeeId": "abc", "rating": 5},
		Status:    remote.StatusPending,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if rec == nil || rec.ID == "" || rec.CreatedAt == "" {
		t.Fatalf("Submit() = %+v, want stored representation", rec)
	}
	if rec.Status != remote.StatusPending {
		t.Errorf("Status = %q, want pending", rec.Status)
	}

	reqs := srv.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	h := reqs[0].Header
	wantHeaders := map[string]string{
		"Content-Type":  "application/json",
		"Accept":        "application/json",
		"Apikey":        "anon-key",
		"Authorization": "Bearer user-jwt",
		"Prefer":        "return=representation",
	}
	for k, v := range wantHeaders {
		if got := h.Get(k); got != v {
			t.Errorf("header %s = %q, want %q", k, got, v)
		}
	}
}

func TestClient_BearerFallsBackToAPIKey(t *testing.T) {
	client, srv := newTestClient(t, remotetest.Options{APIKey: "anon-key"}, remote.Config{})

	if _, err := client.Submit(context.Background(), remote.Record{UserID: "u1", Operation: "op"}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got := srv.Requests()[0].Header.Get("Authorization"); got != "Bearer anon-key" {
		t.Errorf("Authorization = %q, want Bearer anon-key", got)
	}
}

func TestClient_SubmitConflictStatus(t *testing.T) {
	client, _ := newTestClient(t,
		remotetest.Options{APIKey: "k", ConflictOperations: []string{"rate_coffee"}},
		remote.Config{},
	)

	rec, err := client.Submit(context.Background(), remote.Record{UserID: "u1", Operation: "rate_coffee"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if rec.Status != remote.StatusConflict {
		t.Errorf("Status = %q, want conflict", rec.Status)
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		wantConflict bool
		wantServer   bool
	}{
		{"conflict", http.StatusConflict, true, false},
		{"unprocessable", http.StatusUnprocessableEntity, true, false},
		{"server error", http.StatusServiceUnavailable, false, true},
		{"bad request", http.StatusBadRequest, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, srv := newTestClient(t, remotetest.Options{APIKey: "k"}, remote.Config{})
			srv.Script(http.MethodPost, tt.status)

			_, err := client.Submit(context.Background(), remote.Record{UserID: "u1", Operation: "op"})
			var apiErr *remote.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Submit() error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.IsConflict() != tt.wantConflict {
				t.Errorf("IsConflict() = %v, want %v", apiErr.IsConflict(), tt.wantConflict)
			}
			if apiErr.IsServerError() != tt.wantServer {
				t.Errorf("IsServerError() = %v, want %v", apiErr.IsServerError(), tt.wantServer)
			}
			if apiErr.Message != http.StatusText(tt.status) {
				t.Errorf("Message = %q, want %q", apiErr.Message, http.StatusText(tt.status))
			}
		})
	}
}

func TestClient_UnauthorizedMessage(t *testing.T) {
	client, _ := newTestClient(t, remotetest.Options{APIKey: "right"}, remote.Config{APIKey: "wrong"})

	_, err := client.Submit(context.Background(), remote.Record{UserID: "u1", Operation: "op"})
	var apiErr *remote.APIError
	if !errors.As(err, &apiErr) || !apiErr.IsUnauthorized() {
		t.Fatalf("Submit() error = %v, want unauthorized APIError", err)
	}
	if apiErr.Message != "Invalid API key" {
		t.Errorf("Message = %q, want body message", apiErr.Message)
	}
}

func TestClient_UndecodableSuccessBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusCreated)
		}
		_, _ = w.Write([]byte("Created"))
	}))
	defer ts.Close()

	ctx := context.Background()
	client := remote.NewClient(remote.Config{BaseURL: ts.URL, APIKey: "k"})

	rec, err := client.Submit(ctx, remote.Record{UserID: "u1", Operation: "op"})
	if err != nil || rec != nil {
		t.Errorf("Submit() = %v, %v, want accepted with no record", rec, err)
	}

	if err := client.UpdateRecord(ctx, "1", remote.StatusPatch(remote.StatusFailed)); err != nil {
		t.Errorf("UpdateRecord() error = %v, want nil", err)
	}

	_, err = client.FindLatest(ctx, "u1", "op", "")
	var decodeErr *remote.DecodeError
	if !errors.As(err, &decodeErr) || decodeErr.Operation != "FindLatest" {
		t.Errorf("FindLatest() error = %v, want *DecodeError", err)
	}
}

func TestClient_TransportError(t *testing.T) {
	client, srv := newTestClient(t, remotetest.Options{APIKey: "k"}, remote.Config{})
	srv.Script(http.MethodPost, remotetest.Drop)

	_, err := client.Submit(context.Background(), remote.Record{UserID: "u1", Operation: "op"})
	var transportErr *remote.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Submit() error = %v, want *TransportError", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	client := remote.NewClient(remote.Config{BaseURL: slow.URL, APIKey: "k", Timeout: 50 * time.Millisecond})
	_, err := client.Submit(context.Background(), remote.Record{UserID: "u1", Operation: "op"})
	var transportErr *remote.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Submit() error = %v, want *TransportError", err)
	}
}

func TestClient_FindLatest(t *testing.T) {
	ctx := context.Background()
	client, srv := newTestClient(t, remotetest.Options{APIKey: "k"}, remote.Config{})

	srv.Seed(remote.Record{UserID: "u1", Operation: "rate", Status: remote.StatusConflict, Payload: map[string]any{"rating": 1.0}, CreatedAt: "2026-03-01T10:00:00.000000Z"})
	srv.Seed(remote.Record{UserID: "u1", Operation: "rate", Status: remote.StatusConflict, Payload: map[string]any{"rating": 2.0}, CreatedAt: "2026-03-01T11:00:00.000000Z"})
	srv.Seed(remote.Record{UserID: "u1", Operation: "rate", Status: remote.StatusPending, Payload: map[string]any{"rating": 3.0}, CreatedAt: "2026-03-01T12:00:00.000000Z"})
	srv.Seed(remote.Record{UserID: "u2", Operation: "rate", Status: remote.StatusConflict, CreatedAt: "2026-03-01T13:00:00.000000Z"})

	rec, err := client.FindLatest(ctx, "u1", "rate", remote.StatusConflict)
	if err != nil {
		t.Fatalf("FindLatest() error = %v", err)
	}
	if rec == nil || rec.Payload.(map[string]any)["rating"] != 2.0 {
		t.Fatalf("FindLatest(conflict) = %+v, want newest conflict record", rec)
	}

	q := srv.Requests()[0].Query
	wantQuery := map[string]string{
		"select":    "*",
		"status":    "eq.conflict",
		"operation": "eq.rate",
		"user_id":   "eq.u1",
		"order":     "created_at.desc",
		"limit":     "1",
	}
	for k, v := range wantQuery {
		if got := q.Get(k); got != v {
			t.Errorf("query %s = %q, want %q", k, got, v)
		}
	}

	rec, err = client.FindLatest(ctx, "u1", "rate", "")
	if err != nil {
		t.Fatalf("FindLatest() error = %v", err)
	}
	if rec == nil || rec.Status != remote.StatusPending {
		t.Errorf("FindLatest(any) = %+v, want newest record of any status", rec)
	}

	rec, err = client.FindLatest(ctx, "u3", "rate", remote.StatusConflict)
	if err != nil || rec != nil {
		t.Errorf("FindLatest(no match) = %+v, %v; want nil, nil", rec, err)
	}
}

func TestClient_UpdateRecord(t *testing.T) {
	ctx := context.Background()
	client, srv := newTestClient(t, remotetest.Options{APIKey: "k"}, remote.Config{})

	seeded := srv.Seed(remote.Record{UserID: "u1", Operation: "rate", Status: remote.StatusConflict})
	other := srv.Seed(remote.Record{UserID: "u1", Operation: "rate", Status: remote.StatusConflict})

	merged := map[string]any{"rating": 4.0}
	if err := client.UpdateRecord(ctx, seeded.ID, remote.ResolvedPatch(merged, 2)); err != nil {
		t.Fatalf("UpdateRecord() error = %v", err)
	}

	for _, rec := range srv.Records() {
		switch rec.ID {
		case seeded.ID:
			if rec.Status != remote.StatusResolved || rec.Retries != 2 {
				t.Errorf("updated record = %+v", rec)
			}
			if rec.Payload.(map[string]any)["rating"] != 4.0 {
				t.Errorf("payload = %v, want merged", rec.Payload)
			}
		case other.ID:
			if rec.Status != remote.StatusConflict {
				t.Errorf("unrelated record changed: %+v", rec)
			}
		}
	}

	if err := client.UpdateRecord(ctx, other.ID, remote.StatusPatch(remote.StatusFailed)); err != nil {
		t.Fatalf("UpdateRecord() error = %v", err)
	}
	if got := srv.Requests()[len(srv.Requests())-1].Query.Get("id"); got != "eq."+string(other.ID) {
		t.Errorf("PATCH filter = %q", got)
	}
}
