package config

import (
	"errors"
)

// Sentinel error kinds for this package. Validate wraps every failed check
// in ErrInvalidConfig; Load wraps provider and decode failures in
// ErrLoadConfig.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
