package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTable is the mutation log table name.
	DefaultTable = "offline_mutations"

	// DefaultAPIKeyHeader is the header carrying the API key.
	DefaultAPIKeyHeader = "apikey"
)

// Config describes how to reach the mutation log.
type Config struct {
	BaseURL      string
	Table        string
	APIKey       string
	AccessToken  string
	APIKeyHeader string
	// Timeout bounds each request. Zero means no timeout beyond the
	// caller's context.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client handles HTTP communication with the mutation log.
type Client struct {
	baseURL      string
	table        string
	apiKey       string
	accessToken  string
	apiKeyHeader string
	httpClient   *http.Client
}

// NewClient creates a mutation log client.
func NewClient(cfg Config) *Client {
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	header := cfg.APIKeyHeader
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		table:        table,
		apiKey:       cfg.APIKey,
		accessToken:  cfg.AccessToken,
		apiKeyHeader: header,
		httpClient:   httpClient,
	}
}

// Configured reports whether an endpoint and an API key are set.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.apiKey != ""
}

// Endpoint returns the mutation log URL.
func (c *Client) Endpoint() string {
	return c.baseURL + "/" + c.table
}

// Submit posts a new mutation record and returns the stored representation.
// A 2xx response without a decodable body returns a nil record: the
// record was stored even though its representation is unusable.
func (c *Client) Submit(ctx context.Context, rec Record) (*Record, error) {
	body := map[string]any{
		"user_id":   rec.UserID,
		"operation": rec.Operation,
		"payload":   rec.Payload,
		"retries":   rec.Retries,
		"status":    rec.Status,
	}

	records, err := c.do(ctx, "Submit", http.MethodPost, nil, body)
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// FindLatest returns the newest record for userID and operation, or nil if
// there is none. An empty status matches any status.
func (c *Client) FindLatest(ctx context.Context, userID, operation, status string) (*Record, error) {
	query := url.Values{}
	query.Set("select", "*")
	if status != "" {
		query.Set("status", "eq."+status)
	}
	query.Set("operation", "eq."+operation)
	query.Set("user_id", "eq."+userID)
	query.Set("order", "created_at.desc")
	query.Set("limit", "1")

	records, err := c.do(ctx, "FindLatest", http.MethodGet, query, nil)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// UpdateRecord applies patch to the record with id. The response body is
// not needed, so a 2xx with an undecodable body still succeeds.
func (c *Client) UpdateRecord(ctx context.Context, id ID, patch Patch) error {
	query := url.Values{}
	query.Set("id", "eq."+string(id))

	_, err := c.do(ctx, "UpdateRecord", http.MethodPatch, query, patch)
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return nil
	}
	return err
}

// do performs an authenticated request and decodes a record list (or a
// single record) from a 2xx response.
func (c *Client) do(ctx context.Context, operation, method string, query url.Values, body any) ([]Record, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	endpoint := c.Endpoint()
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	bearer := c.accessToken
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(c.apiKeyHeader, c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Operation: operation, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Operation: operation, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(operation, resp.StatusCode, data)
	}

	records, err := decodeRecords(data)
	if err != nil {
		return nil, &DecodeError{Operation: operation, Err: err}
	}
	return records, nil
}

func decodeRecords(data []byte) ([]Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	if data[0] == '[' {
		var records []Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
		return records, nil
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return []Record{record}, nil
}
