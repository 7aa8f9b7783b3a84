package runner

import "go.uber.org/multierr"

// reportInternalError reports an internal runner error.
//
// Internal errors are non-task failures such as worker setup issues.
// If no handler is registered, the error is silently ignored.
func (r *Runner) reportInternalError(err error) {
	if r.opts.OnInternalError != nil {
		r.opts.OnInternalError(err)
	}
}

// reportTaskError records an error returned by a task or produced by panic
// recovery, and passes it to the handler if one is set.
//
// Task errors do not stop the run.
func (r *Runner) reportTaskError(err error) {
	r.errMu.Lock()
	r.errs = multierr.Append(r.errs, err)
	r.errMu.Unlock()

	if r.opts.OnTaskError != nil {
		r.opts.OnTaskError(err)
	}
}
