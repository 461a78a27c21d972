package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeRateLimited    = "RATE_LIMIT_EXCEEDED"
	ErrCodeBlocked        = "NAVIGATION_BLOCKED"
	ErrCodeSelector       = "SELECTOR_NOT_FOUND"
	ErrCodeAuthRequired   = "AUTH_REQUIRED"
	ErrCodeEmptyContent   = "EMPTY_CONTENT"
	ErrCodeProxyFailure   = "PROXY_FAILURE"
	ErrCodeQuotaExceeded  = "QUOTA_EXCEEDED"
	ErrCodeTransient      = "UNKNOWN_TRANSIENT"
	ErrCodeTimeout        = "NAVIGATION_TIMEOUT"
	ErrCodeBrowserCrash   = "BROWSER_CRASH"
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeAllEnginesDown = "ALL_ENGINES_FAILED"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// CodeOf extracts the error code from any error. Non-ScrapeError values
// map to ErrCodeInternal.
func CodeOf(err error) string {
	if se, ok := err.(*ScrapeError); ok {
		return se.Code
	}
	return ErrCodeInternal
}
