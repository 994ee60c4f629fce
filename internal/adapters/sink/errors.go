package sink

import "errors"

// Sink errors. Implementations wrap the backend error with one of these.
var (
	ErrInsert      = errors.New("insert failed")
	ErrPing        = errors.New("connection test failed")
	ErrRead        = errors.New("read failed")
	ErrUnsupported = errors.New("operation not supported by sink")
)
