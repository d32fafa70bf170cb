// pkg/envault_err/wrap.go

package envault_err

import (
	"errors"

	cerr "github.com/cockroachdb/errors"
)

// UserError marks a failure the user can fix themselves (bad flag, missing
// schema file, invalid manifest). The CLI prints these without a stack trace.
type UserError struct {
	cause error
}

func (e *UserError) Error() string { return e.cause.Error() }
func (e *UserError) Unwrap() error { return e.cause }

// NewExpectedError wraps an error for softer UX handling.
func NewExpectedError(err error) error {
	if err == nil {
		return nil
	}
	return &UserError{cause: err}
}

// IsExpectedUserError checks if the error is marked as expected.
func IsExpectedUserError(err error) bool {
	var e *UserError
	return errors.As(err, &e)
}

// WrapConfigError annotates a configuration-resolution failure.
func WrapConfigError(err error) error {
	if err == nil {
		return nil
	}
	return cerr.WithHint(cerr.WithStack(err), "configuration resolution failed")
}

// WrapRemoteError annotates a remote secret-store failure.
func WrapRemoteError(err error) error {
	if err == nil {
		return nil
	}
	return cerr.WithHint(cerr.WithStack(err), "remote secret fetch failed")
}
