package ingest

import "errors"

// Sentinel errors for ingest.
var (
	ErrDecode          = errors.New("decode observations")
	ErrUnsupportedFile = errors.New("unsupported file type")
)
