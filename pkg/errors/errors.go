package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode categorizes application errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "RPD1001"
	ErrCodeConnectionTimeout    ErrorCode = "RPD1002"
	ErrCodeAuthenticationFailed ErrorCode = "RPD1003"
	ErrCodeUnsupportedDialect   ErrorCode = "RPD1004"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound   ErrorCode = "RPD2001"
	ErrCodeConfigInvalid    ErrorCode = "RPD2002"
	ErrCodeConfigMissing    ErrorCode = "RPD2003"
	ErrCodeConfigPermission ErrorCode = "RPD2004"

	// Source read errors (3xxx)
	ErrCodeSourceRead    ErrorCode = "RPD3001"
	ErrCodeSourceScan    ErrorCode = "RPD3002"
	ErrCodeSourceMissing ErrorCode = "RPD3003"

	// SQL and destination errors (4xxx)
	ErrCodeSQLSyntax        ErrorCode = "RPD4001"
	ErrCodeSQLPermission    ErrorCode = "RPD4002"
	ErrCodeSQLTimeout       ErrorCode = "RPD4003"
	ErrCodeSQLTransaction   ErrorCode = "RPD4004"
	ErrCodeSQLExecution     ErrorCode = "RPD4006"
	ErrCodeDestinationWrite ErrorCode = "RPD4010"

	// Pipeline errors (5xxx)
	ErrCodePipelineStage ErrorCode = "RPD5001"
	ErrCodeDataShape     ErrorCode = "RPD5002"

	// Validation errors (6xxx)
	ErrCodeValidationFailed ErrorCode = "RPD6001"
	ErrCodeInvalidInput     ErrorCode = "RPD6002"
	ErrCodeRequiredField    ErrorCode = "RPD6003"

	// Lock and security errors (7xxx)
	ErrCodeLockHeld         ErrorCode = "RPD7001"
	ErrCodeLockFailed       ErrorCode = "RPD7002"
	ErrCodeEncryptionFailed ErrorCode = "RPD7003"

	// System errors (9xxx)
	ErrCodeInternal ErrorCode = "RPD9001"
	ErrCodeTimeout  ErrorCode = "RPD9002"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // Run aborted, destination may be empty
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", e.Code, e.Severity, e.Message)

	if e.Cause != nil {
		fmt.Fprintf(&b, "\nCaused by: %v", e.Cause)
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, suggestion)
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError by code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  SeverityError,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with AppError. Wrapping nil returns nil.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	var inner *AppError
	if errors.As(err, &inner) {
		for k, v := range inner.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

func wrapOrNew(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return New(code, message)
	}
	return Wrap(err, code, message)
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			fmt.Fprintf(&b, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		}
		if !more {
			break
		}
	}
	return b.String()
}

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error) *AppError {
	return wrapOrNew(cause, ErrCodeConnectionFailed, message).
		WithSuggestions(
			"Check your network connection",
			"Verify the warehouse account or host is reachable",
			"Check the credentials in config.yaml or the OS keyring",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'repdata init' to reconfigure",
		)
}

// SourceError creates a source read error. Source failures abort the run
// before anything is written.
func SourceError(message string, table string, cause error) *AppError {
	return wrapOrNew(cause, ErrCodeSourceRead, message).
		WithContext("table", table).
		WithSeverity(SeverityCritical).
		WithSuggestions(
			fmt.Sprintf("Verify that table %s exists and is readable", table),
			"Check source.quotes_table and source.outbounds_table in config.yaml",
		)
}

// SQLError creates an SQL execution error
func SQLError(message string, query string, cause error) *AppError {
	err := wrapOrNew(cause, ErrCodeSQLExecution, message).
		WithContext("query", truncateString(query, 200))

	lower := strings.ToLower(message + " " + fmt.Sprint(cause))
	switch {
	case strings.Contains(lower, "permission") || strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "insufficient privileges"):
		err.Code = ErrCodeSQLPermission
		_ = err.WithSuggestions(
			"Check the role has CREATE, TRUNCATE and INSERT on the destination schema",
			"Verify the configured role or user",
		)
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		err.Code = ErrCodeSQLTimeout
		_ = err.WithSuggestions(
			"Increase the per-run timeout setting",
			"Check warehouse size and load",
		)
	case strings.Contains(lower, "syntax"):
		err.Code = ErrCodeSQLSyntax
	}

	return err
}

// ValidationError creates a validation error
func ValidationError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("Validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value).
		WithSeverity(SeverityWarning).
		AsRecoverable()
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
