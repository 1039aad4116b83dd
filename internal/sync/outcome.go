package sync

import "fmt"

// OutcomeKind tags the result of one synchronization attempt.
type OutcomeKind int

const (
	// OutcomeComplete means the mutation reached the remote log.
	OutcomeComplete OutcomeKind = iota
	// OutcomeRetry means the attempt failed transiently and the item
	// stays queued.
	OutcomeRetry
	// OutcomeFailed means the item can never succeed and is discarded.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeComplete:
		return "complete"
	case OutcomeRetry:
		return "retry"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// Outcome is the classified result of processing one queue item.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Err    error
}

// Complete returns a successful outcome.
func Complete() Outcome {
	return Outcome{Kind: OutcomeComplete}
}

// Retry returns a retryable outcome.
func Retry(reason string, err error) Outcome {
	return Outcome{Kind: OutcomeRetry, Reason: reason, Err: err}
}

// Failed returns a non-retryable outcome.
func Failed(reason string, err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason, Err: err}
}

func (o Outcome) String() string {
	if o.Reason == "" {
		return o.Kind.String()
	}
	return fmt.Sprintf("%s: %s", o.Kind, o.Reason)
}
