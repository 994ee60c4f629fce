package normalize

import "errors"

// ErrDataFormat reports that a batch as a whole is not one of the supported
// shapes. It is always wrapped with detail; test with errors.Is.
var ErrDataFormat = errors.New("unsupported data format")
