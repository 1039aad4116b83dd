// Package sync replays queued offline mutations against the remote
// mutation log and applies the retry and failure policy.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"cuppasync/internal/conflict"
	"cuppasync/internal/notify"
	"cuppasync/internal/queue"
	"cuppasync/internal/remote"
)

// MaxRetries is the default number of retryable failures after which an
// item is discarded.
const MaxRetries = 3

// FallbackFailureMessage is shown when a permanent failure carries no
// message of its own.
const FallbackFailureMessage = "Some changes could not be synced and were discarded."

// Toast titles raised by the coordinator.
const (
	SuccessTitle   = "Sync complete"
	SuccessMessage = "All offline changes have been synced."
	FailureTitle   = "Sync failed"
)

// RemoteClient is the subset of the mutation log client the coordinator
// needs.
type RemoteClient interface {
	Configured() bool
	Submit(ctx context.Context, rec remote.Record) (*remote.Record, error)
	FindLatest(ctx context.Context, userID, operation, status string) (*remote.Record, error)
	UpdateRecord(ctx context.Context, id remote.ID, patch remote.Patch) error
}

// Coordinator drives sync runs over a queue store. At most one run
// executes at a time.
type Coordinator struct {
	store      *queue.Store
	client     RemoteClient
	resolver   *conflict.Resolver
	sink       notify.Sink
	hub        *notify.Hub
	logger     *log.Logger
	maxRetries int
	now        func() time.Time
	onReport   func(Report)

	// Goroutine management for Trigger
	wg sync.WaitGroup

	running  atomic.Bool
	shutdown atomic.Bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithResolver sets the conflict resolver. The default merges every
// operation with conflict.MergePayloads.
func WithResolver(r *conflict.Resolver) Option {
	return func(c *Coordinator) { c.resolver = r }
}

// WithSink sets where user-facing toasts go.
func WithSink(s notify.Sink) Option {
	return func(c *Coordinator) { c.sink = s }
}

// WithLogger sets the coordinator logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithMaxRetries overrides MaxRetries.
func WithMaxRetries(n int) Option {
	return func(c *Coordinator) { c.maxRetries = n }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithReportHandler registers fn to receive the report of every run that
// actually executed.
func WithReportHandler(fn func(Report)) Option {
	return func(c *Coordinator) { c.onReport = fn }
}

// NewCoordinator creates a coordinator over store and client. Progress is
// published on the store's hub.
func NewCoordinator(store *queue.Store, client RemoteClient, opts ...Option) (*Coordinator, error) {
	if store == nil || client == nil {
		return nil, fmt.Errorf("queue store and remote client are required")
	}

	c := &Coordinator{
		store:      store,
		client:     client,
		resolver:   conflict.NewResolver(),
		sink:       notify.Discard,
		hub:        store.Hub(),
		logger:     log.New(os.Stderr, "[Sync] ", log.LstdFlags),
		maxRetries: MaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxRetries < 1 {
		return nil, fmt.Errorf("max retries must be at least 1, got %d", c.maxRetries)
	}
	if c.sink == nil {
		c.sink = notify.Discard
	}
	return c, nil
}

// Running reports whether a run is in flight.
func (c *Coordinator) Running() bool {
	return c.running.Load()
}

// ProcessQueue runs one synchronization pass over a snapshot of the queue.
// It returns ErrAlreadyRunning without doing anything when another pass is
// in flight, here or in another process sharing the queue storage. Items
// enqueued during the pass are left for the next one.
func (c *Coordinator) ProcessQueue(ctx context.Context) (report Report, err error) {
	if !c.running.CompareAndSwap(false, true) {
		return Report{}, ErrAlreadyRunning
	}
	defer c.running.Store(false)

	unlock, ok, err := c.store.TryLockRun()
	if err != nil {
		return Report{}, fmt.Errorf("failed to take sync lock: %w", err)
	}
	if !ok {
		return Report{}, ErrAlreadyRunning
	}
	defer unlock()

	report.StartedAt = c.now()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Printf("Panic in sync run: %v", r)
			err = fmt.Errorf("sync run panicked: %v", r)
		}
		report.Duration = c.now().Sub(report.StartedAt)
		if err != nil {
			report.Error = err.Error()
		}
		if c.onReport != nil {
			c.onReport(report)
		}
	}()

	snapshot, err := c.store.GetQueue(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load queue: %w", err)
	}

	total := len(snapshot)
	report.Total = total
	c.hub.PublishProgress(0, total)
	if total == 0 {
		return report, nil
	}

	for _, item := range snapshot {
		if err := ctx.Err(); err != nil {
			return c.finish(ctx, report), err
		}

		current, err := c.store.GetQueue(ctx)
		if err != nil {
			return c.finish(ctx, report), fmt.Errorf("failed to load queue: %w", err)
		}
		idx := queue.Index(current, item.ID)

		switch {
		case idx < 0:
			report.Skipped++

		case current[idx].Retries >= c.maxRetries:
			if err := c.handlePermanentFailure(ctx, current[idx], ""); err != nil {
				return c.finish(ctx, report), err
			}
			report.Failed++

		default:
			item = current[idx]
			outcome := c.processQueueItem(ctx, item)
			if ctx.Err() != nil && outcome.Kind != OutcomeComplete {
				// Aborted mid-request: leave the item untouched.
				return c.finish(ctx, report), ctx.Err()
			}
			if err := c.apply(ctx, item, outcome, &report); err != nil {
				return c.finish(ctx, report), err
			}
		}

		report.Processed++
		c.hub.PublishProgress(report.Processed, total)
	}

	report = c.finish(ctx, report)
	if report.Remaining == 0 {
		c.sink.Notify(notify.Toast{Kind: notify.KindSuccess, Title: SuccessTitle, Message: SuccessMessage})
	}

	c.logger.Printf("Sync run finished: %d/%d processed, %d completed, %d retried, %d failed",
		report.Processed, report.Total, report.Completed, report.Retried, report.Failed)
	return report, nil
}

// finish records how many items are still queued.
func (c *Coordinator) finish(ctx context.Context, report Report) Report {
	n, err := c.store.Len(context.WithoutCancel(ctx))
	if err != nil {
		c.logger.Printf("Failed to read queue length: %v", err)
		n = -1
	}
	report.Remaining = n
	return report
}

// apply writes the outcome of one attempt back to the store.
func (c *Coordinator) apply(ctx context.Context, item queue.Item, outcome Outcome, report *Report) error {
	storeCtx := context.WithoutCancel(ctx)

	switch outcome.Kind {
	case OutcomeComplete:
		report.Completed++
		if err := c.store.Remove(storeCtx, item.ID); err != nil {
			return fmt.Errorf("failed to remove synced item %s: %w", item.ID, err)
		}
		return nil

	case OutcomeRetry:
		item.Retries++
		item.LastError = outcome.Reason
		c.logger.Printf("Retry %d/%d for %s (%s): %v", item.Retries, c.maxRetries, item.ID, item.Operation, outcome.Err)
		if item.Retries >= c.maxRetries {
			report.Failed++
			return c.handlePermanentFailure(ctx, item, "")
		}
		report.Retried++
		if err := c.store.Replace(storeCtx, item); err != nil {
			return fmt.Errorf("failed to update item %s: %w", item.ID, err)
		}
		return nil

	default:
		report.Failed++
		c.logger.Printf("Giving up on %s (%s): %v", item.ID, item.Operation, outcome.Err)
		return c.handlePermanentFailure(ctx, item, outcome.Reason)
	}
}

// processQueueItem makes one delivery attempt and classifies the result.
func (c *Coordinator) processQueueItem(ctx context.Context, item queue.Item) Outcome {
	if !c.client.Configured() {
		err := &ConfigurationError{Reason: "remote endpoint or API key missing"}
		return Failed("Sync is not configured; changes could not be uploaded.", err)
	}

	userID := queue.ResolveUserID(item.UserID, item.Payload)
	if userID == "" {
		err := &IdentityError{ItemID: item.ID, Operation: item.Operation}
		return Failed("A change without a signed-in user could not be synced.", err)
	}

	status := item.Status
	if status == "" {
		status = queue.StatusPending
	}

	rec, err := c.client.Submit(ctx, remote.Record{
		UserID:    userID,
		Operation: item.Operation,
		Payload:   item.Payload,
		Retries:   item.Retries,
		Status:    string(status),
	})
	if err != nil {
		return c.classify(ctx, item, userID, err)
	}

	if rec != nil && rec.Status == remote.StatusConflict {
		if err := c.resolveConflictRecord(ctx, *rec, item); err != nil {
			return Retry("conflict could not be resolved",
				&ConflictError{Operation: item.Operation, RecordID: string(rec.ID), Err: err})
		}
	}
	return Complete()
}

// classify maps a failed submission to an outcome.
func (c *Coordinator) classify(ctx context.Context, item queue.Item, userID string, err error) Outcome {
	var apiErr *remote.APIError
	if !errors.As(err, &apiErr) {
		return Retry("could not reach server", &TransientNetworkError{Err: err})
	}

	switch {
	case apiErr.IsConflict():
		rec, findErr := c.findConflictRecord(ctx, item, userID)
		if findErr != nil {
			return Retry("conflict record lookup failed",
				&ConflictError{Operation: item.Operation, Err: findErr})
		}
		if rec == nil {
			return Retry("conflict record not found",
				&ConflictError{Operation: item.Operation, Err: apiErr})
		}
		if err := c.resolveConflictRecord(ctx, *rec, item); err != nil {
			return Retry("conflict could not be resolved",
				&ConflictError{Operation: item.Operation, RecordID: string(rec.ID), Err: err})
		}
		return Complete()

	case apiErr.IsServerError():
		return Retry("server temporarily unavailable", &TransientNetworkError{Err: apiErr})

	default:
		if apiErr.IsUnauthorized() {
			c.logger.Printf("Mutation log credentials rejected (status %d); check the API key and access token", apiErr.StatusCode)
		}
		return Failed(apiErr.Message, &PermanentSyncError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			Err:        apiErr,
		})
	}
}

// resolveConflictRecord merges the local payload into rec and marks it
// resolved.
func (c *Coordinator) resolveConflictRecord(ctx context.Context, rec remote.Record, item queue.Item) error {
	if rec.ID == "" {
		return fmt.Errorf("conflict record has no id")
	}
	merged := c.resolver.Merge(item.Operation, item.Payload, rec.Payload)
	return c.client.UpdateRecord(ctx, rec.ID, remote.ResolvedPatch(merged, item.Retries))
}

// findConflictRecord returns the newest conflicting record for the item's
// user and operation, or nil.
func (c *Coordinator) findConflictRecord(ctx context.Context, item queue.Item, userID string) (*remote.Record, error) {
	return c.client.FindLatest(ctx, userID, item.Operation, remote.StatusConflict)
}

// handlePermanentFailure marks the latest remote record failed on a best
// effort basis, removes the item and raises a failure toast. Only the
// local removal can fail the call.
func (c *Coordinator) handlePermanentFailure(ctx context.Context, item queue.Item, message string) error {
	userID := queue.ResolveUserID(item.UserID, item.Payload)
	if userID != "" && c.client.Configured() {
		rec, err := c.client.FindLatest(ctx, userID, item.Operation, "")
		switch {
		case err != nil:
			c.logger.Printf("Failed to look up remote record for %s: %v", item.ID, err)
		case rec != nil && rec.ID != "":
			if err := c.client.UpdateRecord(ctx, rec.ID, remote.StatusPatch(remote.StatusFailed)); err != nil {
				c.logger.Printf("Failed to mark remote record %s failed: %v", rec.ID, err)
			}
		}
	}

	removeErr := c.store.Remove(context.WithoutCancel(ctx), item.ID)

	if message == "" {
		message = FallbackFailureMessage
	}
	c.sink.Notify(notify.Toast{Kind: notify.KindFailure, Title: FailureTitle, Message: message})

	if removeErr != nil {
		return fmt.Errorf("failed to remove failed item %s: %w", item.ID, removeErr)
	}
	return nil
}

// Trigger starts a run in the background and returns immediately. It
// does nothing while a run is in flight or after Shutdown.
func (c *Coordinator) Trigger(ctx context.Context) {
	if c.shutdown.Load() || c.running.Load() {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		report, err := c.ProcessQueue(ctx)
		switch {
		case errors.Is(err, ErrAlreadyRunning):
		case err != nil:
			c.logger.Printf("Background sync error: %v", err)
		case report.Total > 0:
			c.logger.Printf("Background sync completed: %d of %d items synced", report.Completed, report.Total)
		}
	}()
}

// Shutdown stops accepting triggers and waits up to timeout for a
// triggered run to finish.
func (c *Coordinator) Shutdown(timeout time.Duration) {
	c.shutdown.Store(true)

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		c.logger.Printf("Warning: pending sync did not complete within %v", timeout)
	}
}
