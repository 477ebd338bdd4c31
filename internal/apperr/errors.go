// Package apperr defines the error kinds surfaced to users.
package apperr

import "errors"

var (
	ErrNoProvider   = errors.New("no wallet provider")
	ErrUserRejected = errors.New("rejected by user")
	ErrRemote       = errors.New("ledger call failed")
	ErrPinning      = errors.New("pinning failed")
	ErrValidation   = errors.New("invalid request")
	ErrTimeout      = errors.New("timed out")
	ErrBusy         = errors.New("operation already in progress")
)

var kinds = []error{
	ErrNoProvider,
	ErrUserRejected,
	ErrTimeout,
	ErrValidation,
	ErrPinning,
	ErrRemote,
	ErrBusy,
}

type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string   { return e.err.Error() }
func (e *kindError) Unwrap() []error { return []error{e.kind, e.err} }

// Wrap tags err with kind so that errors.Is matches both the kind and the
// original cause. A nil err stays nil.
func Wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return &kindError{kind: kind, err: err}
}

// Validation returns an ErrValidation carrying msg as its text.
func Validation(msg string) error {
	return &kindError{kind: ErrValidation, err: errors.New(msg)}
}

// Kind reports the first known kind err carries, or nil.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Retryable reports whether re-issuing the same intent can succeed without
// the user changing their environment.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrNoProvider)
}
