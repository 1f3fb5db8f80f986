package domain

import "errors"

var (
	// ErrSourceUnavailable is returned by an adapter when the remote site
	// cannot be reached or answers with a server error. Retryable.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSourceRateLimited is returned when the remote site throttles us.
	// Retryable with backoff.
	ErrSourceRateLimited = errors.New("source rate limited")

	// ErrSourceParse is returned when the remote response no longer matches
	// the expected shape. Never retried: the adapter needs maintenance.
	ErrSourceParse = errors.New("source response format changed")

	// ErrMissingField is returned by normalization when a posting lacks a
	// required field (title or application URL).
	ErrMissingField = errors.New("posting missing required field")

	// ErrJobNotFound is returned when a catalog row cannot be found.
	ErrJobNotFound = errors.New("job not found")

	// ErrPreferenceNotFound is returned when a subscriber has no preference
	// record.
	ErrPreferenceNotFound = errors.New("preference not found")

	// ErrSubscriberNotFound is returned when a subscriber does not exist.
	ErrSubscriberNotFound = errors.New("subscriber not found")

	// ErrAlreadyNotified is returned when a notification reservation for a
	// (subscriber, job) pair already exists.
	ErrAlreadyNotified = errors.New("notification already recorded for this subscriber and job")
)

// TransientError wraps a delivery or probe failure that is expected to
// resolve on its own. The caller may retry with backoff.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// NewTransient wraps err as a TransientError.
func NewTransient(err error) error { return &TransientError{Err: err} }

// PermanentError wraps a delivery failure that retrying cannot fix.
// Attempted records whether the message may have reached the subscriber: a
// reservation is retracted only when Attempted is false.
type PermanentError struct {
	Reason    string
	Attempted bool
	Err       error
}

func (e *PermanentError) Error() string {
	if e.Err != nil {
		return "permanent (" + e.Reason + "): " + e.Err.Error()
	}
	return "permanent: " + e.Reason
}

func (e *PermanentError) Unwrap() error { return e.Err }

// AmbiguousError wraps a delivery whose outcome is unknown, such as a
// connection dropped mid-request. The reservation is kept: at-most-once wins
// over at-least-once here.
type AmbiguousError struct {
	Err error
}

func (e *AmbiguousError) Error() string { return "ambiguous outcome: " + e.Err.Error() }
func (e *AmbiguousError) Unwrap() error { return e.Err }

// IsSourceRetryable reports whether a source failure is worth retrying.
func IsSourceRetryable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrSourceRateLimited)
}
