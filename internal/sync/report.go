package sync

import "time"

// Report summarizes one ProcessQueue run.
type Report struct {
	Total     int           `json:"total" yaml:"total"`
	Processed int           `json:"processed" yaml:"processed"`
	Completed int           `json:"completed" yaml:"completed"`
	Retried   int           `json:"retried" yaml:"retried"`
	Failed    int           `json:"failed" yaml:"failed"`
	Skipped   int           `json:"skipped" yaml:"skipped"`
	Remaining int           `json:"remaining" yaml:"remaining"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Clean reports whether every item of the run was delivered.
func (r Report) Clean() bool {
	return r.Processed == r.Total && r.Retried == 0 && r.Failed == 0 && r.Error == ""
}
