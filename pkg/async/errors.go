package async

import "errors"

var (
	// ErrTimeout is returned by AwaitWithTimeout when the computation does not finish in time.
	ErrTimeout = errors.New("async: await timed out")
)
