package config

import (
	"errors"
)

// Sentinel error kinds for this package. Callers match them with errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
