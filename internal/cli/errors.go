// Package cli provides shared configuration and utilities for the tsql CLI.
package cli

import (
	"errors"
	"fmt"

	"github.com/gopsql/logger"
	"github.com/gopsql/tsql/schema"
)

// Exit codes of the tsql command.
const (
	ExitSuccess     = 0
	ExitGeneral     = 1
	ExitConfig      = 2
	ExitSchemaParse = 3
	ExitDBConnect   = 4
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ConfigError creates an ExitError with ExitConfig code.
func ConfigError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitConfig, Message: msg, Err: err}
}

// SchemaParseError creates an ExitError with ExitSchemaParse code.
func SchemaParseError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitSchemaParse, Message: msg, Err: err}
}

// DBConnectError creates an ExitError with ExitDBConnect code.
func DBConnectError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitDBConnect, Message: msg, Err: err}
}

// GeneralError creates an ExitError with ExitGeneral code.
func GeneralError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitGeneral, Message: msg, Err: err}
}

// OpenError classifies an error of schema.Open: unrecognized urls are
// configuration errors, unsupported backends are general errors and the
// rest are connection errors.
func OpenError(err error) *ExitError {
	switch {
	case errors.Is(err, schema.ErrUnrecognizedURL), errors.Is(err, schema.ErrUnknownDriver):
		return ConfigError("invalid database url", err)
	case errors.Is(err, schema.ErrUnsupportedBackend):
		return GeneralError("cannot generate schema", err)
	}
	return DBConnectError("connecting to database", err)
}

// ExitCode returns the exit code of an error, ExitGeneral if it is not an
// ExitError.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitGeneral
}

// LogError logs the error and returns its exit code.
func LogError(l logger.Logger, err error) int {
	l.Error("Command execution failed:", err)
	return ExitCode(err)
}
