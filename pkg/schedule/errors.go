package schedule

import "errors"

var (
	// ErrNoTasks is returned when Start is called with nothing registered.
	ErrNoTasks = errors.New("no tasks registered")

	// ErrTaskAlreadyRegistered is returned when a task name is reused.
	ErrTaskAlreadyRegistered = errors.New("task already registered")

	// ErrInvalidTask is returned for tasks missing a name, schedule, or run
	// function.
	ErrInvalidTask = errors.New("invalid task")
)
