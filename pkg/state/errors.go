package state

import "errors"

var (
	// ErrMissingTaskID is returned when a task entry in a diff has no task_id
	ErrMissingTaskID = errors.New("task diff missing task_id")

	// ErrInvalidStatus is returned when a diff carries an unknown task status
	ErrInvalidStatus = errors.New("invalid task status")
)
