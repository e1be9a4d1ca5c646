package market

import "errors"

var (
	// ErrRemoteUnavailable marks a failed call to the remote platform. It is
	// isolated per source or per candidate.
	ErrRemoteUnavailable = errors.New("remote unavailable")
	// ErrStoreUnavailable marks a failed store operation. It aborts the cycle.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotificationFailed marks an undelivered author notification. State
	// already committed is kept.
	ErrNotificationFailed = errors.New("notification failed")
)
