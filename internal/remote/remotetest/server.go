// Package remotetest is an in-memory mutation log speaking the subset of
// PostgREST the remote client uses. It backs the package tests and the
// dev-server command.
package remotetest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"cuppasync/internal/remote"
)

// Scripted statuses with special meaning.
const (
	// Pass lets the request through to normal handling.
	Pass = 0
	// Drop closes the connection without a response, surfacing as a
	// transport error on the client.
	Drop = -1
)

// Options configures a Server.
type Options struct {
	Table        string
	APIKey       string // when set, requests must carry it
	APIKeyHeader string
	// ConflictOperations are operations whose submissions are stored and
	// returned with status "conflict".
	ConflictOperations []string
}

// Request is one request observed by the server.
type Request struct {
	Method string
	Query  url.Values
	Header http.Header
	Body   string
}

// Server is an in-memory mutation log.
type Server struct {
	opts   Options
	router *mux.Router

	mu        sync.Mutex
	records   []remote.Record
	nextID    int
	lastTime  time.Time
	scripts   map[string][]int
	requests  []Request
	conflicts map[string]bool
}

// NewServer creates an empty mutation log.
func NewServer(opts Options) *Server {
	if opts.Table == "" {
		opts.Table = remote.DefaultTable
	}
	if opts.APIKeyHeader == "" {
		opts.APIKeyHeader = remote.DefaultAPIKeyHeader
	}

	s := &Server{
		opts:      opts,
		scripts:   make(map[string][]int),
		conflicts: make(map[string]bool),
	}
	for _, op := range opts.ConflictOperations {
		s.conflicts[op] = true
	}

	r := mux.NewRouter()
	r.Use(s.recordRequest, s.authenticate)
	r.HandleFunc("/"+opts.Table, s.handleInsert).Methods(http.MethodPost)
	r.HandleFunc("/"+opts.Table, s.handleSelect).Methods(http.MethodGet)
	r.HandleFunc("/"+opts.Table, s.handleUpdate).Methods(http.MethodPatch)
	s.router = r
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Script queues statuses returned by the next requests of method, one per
// request, before normal handling resumes. Use Drop to cut the connection.
func (s *Server) Script(method string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[method] = append(s.scripts[method], statuses...)
}

// SetConflict makes submissions of operation come back as conflicts.
func (s *Server) SetConflict(operation string, conflict bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts[operation] = conflict
}

// Seed stores rec as if it had been submitted, assigning id and
// created_at when empty. It returns the stored record.
func (s *Server) Seed(rec remote.Record) remote.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(rec)
}

// Records returns a copy of all stored records in insertion order.
func (s *Server) Records() []remote.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]remote.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Requests returns the requests observed so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// CountRequests returns how many requests used method.
func (s *Server) CountRequests(method string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method {
			n++
		}
	}
	return n
}

func (s *Server) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   string(body),
		})
		status, scripted := s.popScriptLocked(r.Method)
		s.mu.Unlock()

		if !scripted || status == Pass {
			next.ServeHTTP(w, r)
			return
		}
		if status == Drop {
			dropConnection(w)
			return
		}
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIKey != "" && r.Header.Get(s.opts.APIKeyHeader) != s.opts.APIKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var rec remote.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body: " + err.Error()})
		return
	}
	if rec.Operation == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "operation is required"})
		return
	}

	s.mu.Lock()
	rec.ID = ""
	rec.CreatedAt = ""
	if s.conflicts[rec.Operation] {
		rec.Status = remote.StatusConflict
	}
	stored := s.insertLocked(rec)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, []remote.Record{stored})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	s.mu.Lock()
	matched := s.matchLocked(query)
	s.mu.Unlock()

	if order := query.Get("order"); order != "" {
		desc := strings.HasSuffix(order, ".desc")
		sort.SliceStable(matched, func(i, j int) bool {
			if desc {
				return matched[i].CreatedAt > matched[j].CreatedAt
			}
			return matched[i].CreatedAt < matched[j].CreatedAt
		})
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit >= 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	writeJSON(w, http.StatusOK, matched)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body: " + err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := []remote.Record{}
	for i := range s.records {
		if !matches(s.records[i], r.URL.Query()) {
			continue
		}
		rec := &s.records[i]
		if raw, ok := patch["payload"]; ok {
			var payload any
			_ = json.Unmarshal(raw, &payload)
			rec.Payload = payload
		}
		if raw, ok := patch["status"]; ok {
			_ = json.Unmarshal(raw, &rec.Status)
		}
		if raw, ok := patch["retries"]; ok {
			_ = json.Unmarshal(raw, &rec.Retries)
		}
		updated = append(updated, *rec)
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) popScriptLocked(method string) (int, bool) {
	queue := s.scripts[method]
	if len(queue) == 0 {
		return 0, false
	}
	s.scripts[method] = queue[1:]
	return queue[0], true
}

func (s *Server) insertLocked(rec remote.Record) remote.Record {
	if rec.ID == "" {
		s.nextID++
		rec.ID = remote.ID(strconv.Itoa(s.nextID))
	}
	if rec.CreatedAt == "" {
		now := time.Now().UTC()
		if !now.After(s.lastTime) {
			now = s.lastTime.Add(time.Microsecond)
		}
		s.lastTime = now
		rec.CreatedAt = now.Format("2006-01-02T15:04:05.000000Z07:00")
	}
	if rec.Status == "" {
		rec.Status = remote.StatusPending
	}
	s.records = append(s.records, rec)
	return rec
}

func (s *Server) matchLocked(query url.Values) []remote.Record {
	out := []remote.Record{}
	for _, rec := range s.records {
		if matches(rec, query) {
			out = append(out, rec)
		}
	}
	return out
}

// matches applies the eq. filters of query to rec.
func matches(rec remote.Record, query url.Values) bool {
	columns := map[string]string{
		"id":        string(rec.ID),
		"user_id":   rec.UserID,
		"operation": rec.Operation,
		"status":    rec.Status,
	}
	for column, value := range columns {
		filter := query.Get(column)
		if filter == "" {
			continue
		}
		want, ok := strings.CutPrefix(filter, "eq.")
		if !ok || want != value {
			return false
		}
	}
	return true
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	_ = conn.Close()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
