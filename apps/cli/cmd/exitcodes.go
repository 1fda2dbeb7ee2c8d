package cmd

import "errors"

// Exit codes for qxhr CLI
const (
	// ExitSuccess indicates the request completed with a 2xx status
	ExitSuccess = 0

	// ExitHTTPError indicates a non-2xx status or a rejected response
	ExitHTTPError = 1

	// ExitNetworkError indicates the exchange failed without a status
	ExitNetworkError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitTimeout indicates the request timed out
	ExitTimeout = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code for err.
type exitError struct {
	code int
	err  error
	// reported is set once err has been printed by a formatter.
	reported bool
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func reportedError(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err, reported: true}
}

// exitCodeOf maps err to a process exit code. Errors without one are usage
// errors, which is what cobra reports for bad flags and arguments.
func exitCodeOf(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitUsageError
}

func isReported(err error) bool {
	var ee *exitError
	return errors.As(err, &ee) && ee.reported
}
