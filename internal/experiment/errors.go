package experiment

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownExperiment is returned when a name has no experiment record.
	ErrUnknownExperiment = errors.New("unknown experiment")

	// ErrUnknownProbe is returned for a pressure probe that belongs to no transducer family.
	ErrUnknownProbe = errors.New("pressure probe has no transducer family")
)

// ConfigError is a custom error type for configuration errors
type ConfigError struct {
	msg string
}

func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return e.msg
}
