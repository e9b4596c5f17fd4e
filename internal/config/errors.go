package config

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// NewKind tags a sentinel kind with a description.
func NewKind(msg string, kind error) error {
	return fmt.Errorf("%w: %s", kind, msg)
}
