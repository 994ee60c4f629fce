package collector

import "errors"

var (
	// ErrNoSyncer is returned by Flush when the collector was built without a SyncFunc.
	ErrNoSyncer = errors.New("collector has no sync function")
	// ErrNothingValid is wrapped by a SyncFunc when no buffered entry survived
	// normalization. Flush discards the buffer in that case.
	ErrNothingValid = errors.New("no valid entries buffered")
)
