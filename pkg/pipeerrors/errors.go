package pipeerrors

import (
	"errors"
	"fmt"
)

// Pipeline precondition and state errors

var (
	// ErrConnectivity indicates no network path to an upstream provider
	ErrConnectivity = errors.New("upstream provider unreachable, check network connectivity")

	// ErrNoKeywords indicates every supplied search keyword was blank
	ErrNoKeywords = errors.New("no valid keywords provided")

	// ErrNoResults indicates zero posts survived window and keyword filtering
	ErrNoResults = errors.New("no posts matched the requested window and keywords")

	// ErrEmptyInput indicates a stage received a zero-row table
	ErrEmptyInput = errors.New("input table has no rows")

	// ErrNotInitialized indicates a stage was invoked before model setup
	ErrNotInitialized = errors.New("stage invoked before initialization")

	// ErrNotFinalized indicates output was queried before finalization ran
	ErrNotFinalized = errors.New("output queried before finalization")

	// ErrInactiveAsset indicates the provider returned an unusable price series
	ErrInactiveAsset = errors.New("asset returned no usable price data, it may no longer be active")
)

// UpstreamError indicates a provider was reachable but rejected the request
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s API error %d: %s", e.Provider, e.Status, e.Body)
	}
	return fmt.Sprintf("%s API error %d", e.Provider, e.Status)
}

// NewUpstreamError creates a new upstream error
func NewUpstreamError(provider string, status int, body string) *UpstreamError {
	return &UpstreamError{Provider: provider, Status: status, Body: body}
}

// ExportError wraps the root cause of a merge or export failure
type ExportError struct {
	Step string
	Err  error
}

// Error implements the error interface
func (e *ExportError) Error() string {
	return fmt.Sprintf("export failed at %s: %v", e.Step, e.Err)
}

// Unwrap returns the wrapped error
func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewExportError creates a new export error
func NewExportError(step string, err error) *ExportError {
	return &ExportError{Step: step, Err: err}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
