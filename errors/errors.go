// Package errors provides error handling for bz-triage.
//
// This package re-exports github.com/cockroachdb/errors and adds the error
// kinds a triage run can fail with. Origin sites wrap the underlying cause
// with context (stage, bug ID, CSV line) and then Mark it with one of the
// sentinels below, so callers can classify a failure with Is while the
// original cause and stack trace stay intact.
//
// Usage:
//
//	resp, err := client.Do(req)
//	if err != nil {
//	    return errors.Mark(errors.Wrapf(err, "fetch comments for bug %d", id), errors.ErrNetwork)
//	}
//
//	if errors.IsNetworkError(err) {
//	    // transport or HTTP status failure
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Error kinds for a triage run. Use these with errors.Is() or the Is*Error
// helpers; attach them to a wrapped cause with errors.Mark().
var (
	// ErrNetwork indicates a transport failure or unexpected HTTP status on
	// either the export or the comment endpoint
	ErrNetwork = New("network error")

	// ErrMalformedInput indicates the export is unusable as a whole, e.g. the
	// header is missing required columns
	ErrMalformedInput = New("malformed input")

	// ErrRecordParse indicates a single export row could not be converted
	// into an issue record
	ErrRecordParse = New("record parse error")

	// ErrResponseParse indicates the comment endpoint returned JSON without
	// the expected shape
	ErrResponseParse = New("response parse error")
)

// IsNetworkError checks if an error is or is marked as ErrNetwork
func IsNetworkError(err error) bool {
	return err != nil && Is(err, ErrNetwork)
}

// IsMalformedInputError checks if an error is or is marked as ErrMalformedInput
func IsMalformedInputError(err error) bool {
	return err != nil && Is(err, ErrMalformedInput)
}

// IsRecordParseError checks if an error is or is marked as ErrRecordParse
func IsRecordParseError(err error) bool {
	return err != nil && Is(err, ErrRecordParse)
}

// IsResponseParseError checks if an error is or is marked as ErrResponseParse
func IsResponseParseError(err error) bool {
	return err != nil && Is(err, ErrResponseParse)
}

// Kind returns a short label for the error kind, or "unknown" when err
// carries none of the triage sentinels. Used for the error_type log field.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNetworkError(err):
		return "network"
	case IsMalformedInputError(err):
		return "malformed_input"
	case IsRecordParseError(err):
		return "record_parse"
	case IsResponseParseError(err):
		return "response_parse"
	default:
		return "unknown"
	}
}

// NewMalformedInputError creates a malformed-input error with a formatted message
func NewMalformedInputError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrMalformedInput)
}

// NewRecordParseError creates a record-parse error with a formatted message
func NewRecordParseError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrRecordParse)
}

// NewResponseParseError creates a response-parse error with a formatted message
func NewResponseParseError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrResponseParse)
}

// MarkNetwork wraps err with context and marks it as a network error.
// Returns nil if err is nil.
func MarkNetwork(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Mark(Wrapf(err, format, args...), ErrNetwork)
}
