// pkg/envault_err/classification.go
//
// Error classification for configuration, remote-store, validation and
// cache failures, with exit-code mapping for the CLI.

package envault_err

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies one failure class in the resolution pipeline.
type Kind int

const (
	KindUnknown Kind = iota

	// Configuration resolution
	KindConfigNotFound // monorepo root marker not found
	KindConfigParse    // root mapping file unparsable
	KindConfigSchema   // structural or business-rule violation

	// Remote secret store
	KindRemoteAuth
	KindRemoteNotFound
	KindRemoteNetwork
	KindRemoteUnknown

	// Local fallback files
	KindLocalFileMissing
	KindLocalFileParse

	// Validation
	KindValidationMissing
	KindValidationTypeMismatch
	KindValidationFormat
	KindValidationInvalid
	KindValidationCustomRule

	// Secret cache
	KindCacheCapacity
)

var kindNames = map[Kind]string{
	KindUnknown:                "unknown",
	KindConfigNotFound:         "config_not_found",
	KindConfigParse:            "config_parse_error",
	KindConfigSchema:           "config_schema_error",
	KindRemoteAuth:             "remote_auth_error",
	KindRemoteNotFound:         "remote_not_found",
	KindRemoteNetwork:          "remote_network_error",
	KindRemoteUnknown:          "remote_unknown_error",
	KindLocalFileMissing:       "local_file_missing",
	KindLocalFileParse:         "local_file_parse_error",
	KindValidationMissing:      "missing",
	KindValidationTypeMismatch: "type_mismatch",
	KindValidationFormat:       "format_error",
	KindValidationInvalid:      "invalid",
	KindValidationCustomRule:   "custom_rule",
	KindCacheCapacity:          "cache_capacity_error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Retryable reports whether a failure of this kind may be retried.
// Only network/timeout failures qualify; auth and not-found are permanent
// for the attempt.
func (k Kind) Retryable() bool {
	return k == KindRemoteNetwork
}

// ClassifiedError wraps an error with a Kind and remediation info.
type ClassifiedError struct {
	Kind       Kind
	Message    string
	Cause      error
	Suggestion string
}

func (e *ClassifiedError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Cause != nil && e.Cause.Error() != e.Message {
		sb.WriteString(fmt.Sprintf(": %v", e.Cause))
	}
	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf(" (suggestion: %s)", e.Suggestion))
	}
	return sb.String()
}

func (e *ClassifiedError) Unwrap() error { return e.Cause }

// ExitCode returns the CLI exit code for this error.
// Validation failures and operational failures both exit 1; internal
// assertion failures exit 3 so scripts can tell them apart.
func (e *ClassifiedError) ExitCode() int {
	if e.Kind == KindUnknown {
		return 3
	}
	return 1
}

// New creates a classified error with no underlying cause.
func New(kind Kind, format string, args ...interface{}) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithSuggestion attaches a human-actionable suggestion and returns the error.
func (e *ClassifiedError) WithSuggestion(s string) *ClassifiedError {
	e.Suggestion = s
	return e
}

// KindOf extracts the Kind from any error, KindUnknown if unclassified.
func KindOf(err error) Kind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IsKind reports whether err (or anything it wraps) carries the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *ClassifiedError
	return errors.As(err, &ce) && ce.Kind == kind
}

// GetExitCode extracts an exit code from any error. Nil means success.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.ExitCode()
	}
	if IsExpectedUserError(err) {
		return 1
	}
	return 1
}
