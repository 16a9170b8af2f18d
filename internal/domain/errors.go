package domain

import "fmt"

// ErrorCode categorizes per-tower evaluation failures. Codes are stable
// strings carried on AlertRecord so downstream consumers can filter on them.
type ErrorCode string

const (
	ErrCodeUnknownThreatLevel ErrorCode = "unknown_threat_level"
	ErrCodeInvalidAttribute   ErrorCode = "invalid_attribute"
	ErrCodeSourceUnavailable  ErrorCode = "source_unavailable"
)

// EvalError is a per-tower evaluation failure. It never aborts a cycle:
// the engine captures it on the tower's AlertRecord and moves on.
type EvalError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *EvalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EvalError) Unwrap() error { return e.Err }

func errUnknownThreat(label string) *EvalError {
	return &EvalError{
		Code:    ErrCodeUnknownThreatLevel,
		Message: fmt.Sprintf("threat level %q is not one of the five SGC categories", label),
	}
}

func errInvalidAttribute(attribute string, value float64) *EvalError {
	return &EvalError{
		Code:    ErrCodeInvalidAttribute,
		Message: fmt.Sprintf("attribute %s=%g is outside its declared domain", attribute, value),
	}
}

// DataStatus qualifies the precipitation input behind an AlertRecord, so
// consumers can distinguish "no rain" from "no data".
type DataStatus string

const (
	// DataOK means the accumulation was computed from in-window samples.
	DataOK DataStatus = "ok"
	// DataInsufficient means zero samples fell inside the window;
	// classification proceeded with 0.0 mm.
	DataInsufficient DataStatus = "insufficient_data"
	// DataSourceUnavailable means the precipitation collaborator failed or
	// timed out; classification proceeded with 0.0 mm.
	DataSourceUnavailable DataStatus = "source_unavailable"
)
