package contracts

import (
	"errors"
	"fmt"
)

// ErrDuplicateSkip marks a dedup hit. Not a failure: the record already
// exists and must never be overwritten.
var ErrDuplicateSkip = errors.New("duplicate post skipped")

// ConfigurationError is fatal and never retried (e.g. unknown trigger kind)
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// CollaboratorError wraps a failure from an external collaborator.
// Transient failures (timeout, 5xx, 429) are retried with backoff;
// permanent ones (auth failure, malformed response) are surfaced as-is.
// ⭐ SSOT: 외부 호출 오류 분류는 이 타입으로만
type CollaboratorError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *CollaboratorError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s: %s collaborator error: %v", e.Op, kind, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// NewTransient wraps err as a retryable collaborator failure
func NewTransient(op string, err error) *CollaboratorError {
	return &CollaboratorError{Op: op, Transient: true, Err: err}
}

// NewPermanent wraps err as a non-retryable collaborator failure
func NewPermanent(op string, err error) *CollaboratorError {
	return &CollaboratorError{Op: op, Transient: false, Err: err}
}

// IsTransient reports whether err is a retryable collaborator failure
func IsTransient(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce) && ce.Transient
}

// IsPermanent reports whether err is a non-retryable collaborator failure
func IsPermanent(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce) && !ce.Transient
}

// WindowMissedError marks a horizon whose tolerance window elapsed before
// a successful collection. The horizon is terminal; the record is not.
type WindowMissedError struct {
	PostID  string
	Horizon Horizon
}

func (e *WindowMissedError) Error() string {
	return fmt.Sprintf("post %s: %s collection window missed", e.PostID, e.Horizon)
}
