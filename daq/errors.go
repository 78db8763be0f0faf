package daq

import (
	"errors"
	"fmt"
)

var (
	// ErrVoltageTooLow is generated when a too low output value is commanded
	ErrVoltageTooLow = errors.New("commanded output below lower limit of DAC range")

	// ErrVoltageTooHigh is generated when a too high output value is commanded
	ErrVoltageTooHigh = errors.New("commanded output above upper limit of DAC range")

	// ErrAlreadyScanning is generated when a scan is started while one is in progress
	ErrAlreadyScanning = errors.New("a scan is already in progress")

	// ErrNotScanning is generated when scan status or collection is requested with no scan in progress
	ErrNotScanning = errors.New("no scan in progress")

	// ErrClosed is generated when an operation is attempted on a closed session
	ErrClosed = errors.New("session is closed")
)

// ConfigError is a configuration field that failed validation.  It prevents
// a session from ever being constructed; it is never a runtime fault.
type ConfigError struct {
	// Field is the configuration key at fault
	Field string

	// Value is the offending value
	Value interface{}

	// Err is the underlying cause
	Err error
}

// Error satisfies the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config field %s = %v: %v", e.Field, e.Value, e.Err)
}

// Unwrap returns the underlying cause
func (e *ConfigError) Unwrap() error {
	return e.Err
}
