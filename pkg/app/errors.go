package app

import (
	"errors"
	"fmt"
)

// ErrNotImplemented is returned by base-contract operations an app did not override.
var ErrNotImplemented = errors.New("must be implemented")

// ToolNotFoundError reports a dispatch request for a tool the app does not enumerate.
type ToolNotFoundError struct {
	Tool string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("Tool %s not found", e.Tool)
}

// UpstreamError is a transport or upstream failure during tool execution. It
// keeps the upstream status code and the original cause.
type UpstreamError struct {
	Tool    string
	Code    int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("tool %s failed", e.Tool)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) HTTPStatusCode() int {
	return e.Code
}

// NewUpstreamError wraps err with tool context. The message is prefix followed
// by the cause's message, and the cause's status code is preserved.
func NewUpstreamError(tool, prefix string, err error) *UpstreamError {
	msg := ""
	if err != nil {
		msg = prefix + err.Error()
	}
	return &UpstreamError{
		Tool:    tool,
		Code:    StatusCodeOf(err),
		Message: msg,
		Err:     err,
	}
}

// StatusCodeOf extracts an upstream status code from anywhere in err's chain.
func StatusCodeOf(err error) int {
	var coded interface{ HTTPStatusCode() int }
	if errors.As(err, &coded) {
		return coded.HTTPStatusCode()
	}
	return 0
}

func IsToolNotFound(err error) bool {
	var notFound *ToolNotFoundError
	return errors.As(err, &notFound)
}

func IsUpstream(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream)
}
