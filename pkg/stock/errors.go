package stock

import "errors"

var (
	// ErrStockNotFound is returned for unknown (item, location) pairs.
	ErrStockNotFound = errors.New("stock level not found")
)
