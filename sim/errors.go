package sim

import (
	"errors"
	"fmt"
)

// Sentinel errors. Configuration failures are wrapped in *ConfigurationError;
// use errors.Is to match the underlying cause.
var (
	ErrUnknownType       = errors.New("unknown molecule type")
	ErrCapacityExceeded  = errors.New("requested occupancy exceeds grid capacity")
	ErrOutOfBounds       = errors.New("coordinate outside grid")
	ErrCellOccupied      = errors.New("cell already occupied")
	ErrInstanceNotFound  = errors.New("instance not placed on grid")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrDuplicateAnchor   = errors.New("anchor cell assigned twice")
	ErrAnchorCountExceed = errors.New("more anchors than instances")
)

// ConfigurationError reports invalid input detected before any MC step runs.
type ConfigurationError struct {
	Field string // dotted path of the offending setting, e.g. "binding[0].host"
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// configErrorf builds a ConfigurationError whose cause wraps sentinel.
func configErrorf(field string, sentinel error, format string, args ...any) error {
	return &ConfigurationError{
		Field: field,
		Err:   fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel),
	}
}
