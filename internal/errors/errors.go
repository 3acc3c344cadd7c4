package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ToolchainUnavailable indicates the test runner could not be started
	ToolchainUnavailable ErrorCode = "TOOLCHAIN_UNAVAILABLE"
	// CoverageMapMissing indicates no coverage map artifact was found
	CoverageMapMissing ErrorCode = "COVERAGE_MAP_MISSING"
	// CoverageMapStale indicates the coverage map no longer matches the comparison base
	CoverageMapStale ErrorCode = "COVERAGE_MAP_STALE"
	// NoTraces indicates a coverage run produced zero per-test traces
	NoTraces ErrorCode = "NO_TRACES"
	// GitUnavailable indicates git history is not reachable for diffing
	GitUnavailable ErrorCode = "GIT_UNAVAILABLE"
	// ReportWriteFailed indicates a report or artifact could not be written
	ReportWriteFailed ErrorCode = "REPORT_WRITE_FAILED"
	// TestFailed indicates one or more executed tests failed
	TestFailed ErrorCode = "TEST_FAILED"
	// Timeout indicates an operation exceeded its deadline
	Timeout ErrorCode = "TIMEOUT"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// TiaError represents an engine error with code, message, and suggestions
type TiaError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new TiaError
func New(code ErrorCode, message string, cause error) *TiaError {
	return &TiaError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *TiaError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TiaError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *TiaError) WithDetails(details interface{}) *TiaError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from an error chain.
// Returns InternalError for errors that are not TiaErrors.
func CodeOf(err error) ErrorCode {
	var te *TiaError
	if errors.As(err, &te) {
		return te.Code
	}
	return InternalError
}

// IsRecoverable reports whether the Selection Policy can absorb this error
// by falling back to a full-suite run instead of failing the pipeline.
func IsRecoverable(err error) bool {
	switch CodeOf(err) {
	case CoverageMapMissing, CoverageMapStale, GitUnavailable:
		return true
	}
	return false
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	CoverageMapMissing: {
		{
			Type:        RunCommand,
			Command:     "tia analyze",
			Safe:        true,
			Description: "Build the coverage map from a full-suite run",
		},
	},
	CoverageMapStale: {
		{
			Type:        RunCommand,
			Command:     "tia analyze",
			Safe:        true,
			Description: "Rebuild the coverage map against the current base",
		},
	},
	ToolchainUnavailable: {
		{
			Type:        RunCommand,
			Command:     "go version",
			Safe:        true,
			Description: "Verify the test toolchain is installed and on PATH",
		},
	},
	GitUnavailable: {
		{
			Type:        RunCommand,
			Command:     "git status",
			Safe:        true,
			Description: "Verify you're in a git repository with reachable history",
		},
	},
	NoTraces: {
		{
			Type:        RunCommand,
			Command:     "tia analyze --output-dir .tia-coverage",
			Safe:        true,
			Description: "Re-run coverage collection; check that tests were discovered",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
