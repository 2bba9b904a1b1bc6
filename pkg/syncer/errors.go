package syncer

import "errors"

var (
	// ErrInvalidOperation is returned for operations missing required fields.
	ErrInvalidOperation = errors.New("invalid sync operation")

	// ErrEmptyBatch is returned when a batch contains no operations.
	ErrEmptyBatch = errors.New("sync batch is empty")

	// ErrLedgerUnavailable wraps ledger backend failures.
	ErrLedgerUnavailable = errors.New("dedup ledger unavailable")
)
