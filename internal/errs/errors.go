package errs

import "fmt"

// ConfigurationError represents an invalid or unsupported configuration:
// unknown strategy names, missing rule keys, unsupported indicator sources.
// It is always raised before any computation starts.
type ConfigurationError struct {
	Message string
}

// Error returns the error message string.
func (e *ConfigurationError) Error() string {
	return e.Message
}

// NewConfigurationError creates a new ConfigurationError with a specific message.
func NewConfigurationError(message string) error {
	return &ConfigurationError{Message: message}
}

// NewConfigurationErrorf creates a new ConfigurationError with a formatted message.
func NewConfigurationErrorf(format string, args ...interface{}) error {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// DataError represents invalid input data: missing required columns,
// non-monotonic timestamps, or an empty dataset.
type DataError struct {
	Message string
}

// Error returns the error message string.
func (e *DataError) Error() string {
	return e.Message
}

// NewDataError creates a new DataError with a specific message.
func NewDataError(message string) error {
	return &DataError{Message: message}
}

// NewDataErrorf creates a new DataError with a formatted message.
func NewDataErrorf(format string, args ...interface{}) error {
	return &DataError{Message: fmt.Sprintf(format, args...)}
}

// AnalysisError represents a failure inside the analysis pipeline. Stage
// and Zone carry the failing stage name and zone id so callers can tell
// exactly where a run stopped.
type AnalysisError struct {
	Stage   string
	Zone    string
	Message string
	Err     error
}

// Error returns the error message string with stage and zone context.
func (e *AnalysisError) Error() string {
	msg := e.Message
	if e.Zone != "" {
		msg = fmt.Sprintf("zone %s: %s", e.Zone, msg)
	}
	if e.Stage != "" {
		msg = fmt.Sprintf("stage %s: %s", e.Stage, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the wrapped error, if any.
func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewAnalysisError creates an AnalysisError for a stage, wrapping an
// underlying error.
func NewAnalysisError(stage, message string, err error) error {
	return &AnalysisError{Stage: stage, Message: message, Err: err}
}

// NewZoneAnalysisError creates an AnalysisError carrying both the stage
// name and the id of the zone being processed when the failure occurred.
func NewZoneAnalysisError(stage, zone, message string, err error) error {
	return &AnalysisError{Stage: stage, Zone: zone, Message: message, Err: err}
}
