package session

import "errors"

var (
	// ErrBusy is returned when a commit cannot acquire the session lock
	// within the configured lock timeout.
	ErrBusy = errors.New("session is busy")
)
