package runner

import (
	"time"
)

const (
	defaultAttempts     = 1
	defaultInitialRetry = 10 * time.Millisecond
	defaultMaxRetry     = time.Second
)

// RetryPolicy describes how many times and how often a task should be retried.
// Zero values are treated as "use runner defaults".
type RetryPolicy struct {
	// Attempts is the maximum number of tries for a task.
	Attempts int

	// Initial is the first backoff duration.
	Initial time.Duration

	// Max is the cap for backoff duration.
	Max time.Duration
}

// GetDefaultRP returns a pointer to the default retry policy used by the runner.
func GetDefaultRP() *RetryPolicy {
	rp := RetryPolicy{
		Attempts: defaultAttempts,
		Initial:  defaultInitialRetry,
		Max:      defaultMaxRetry,
	}
	return &rp
}

func (p *RetryPolicy) fillDefaults() {
	if p.Attempts <= 0 {
		p.Attempts = defaultAttempts
	}
	if p.Initial <= 0 {
		p.Initial = defaultInitialRetry
	}
	if p.Max <= 0 {
		p.Max = defaultMaxRetry
	}
}

// merge overrides non-zero per-task values.
func (p RetryPolicy) merge(o *RetryPolicy) RetryPolicy {
	if o == nil {
		return p
	}
	if o.Attempts > 0 {
		p.Attempts = o.Attempts
	}
	if o.Initial > 0 {
		p.Initial = o.Initial
	}
	if o.Max > 0 {
		p.Max = o.Max
	}
	return p
}
