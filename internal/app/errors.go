package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrNoRecords    = errors.New("no valid records to sync")
	ErrNoSink       = errors.New("no sink configured")
	ErrNotStarted   = errors.New("service not started")
	ErrBackpressure = errors.New("sync queue is full")
)
