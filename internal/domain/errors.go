package domain

import "errors"

// Error classes map to HTTP status codes at the server boundary:
// ClientError -> 4xx, ResourceError and PlatformError -> 5xx.

// ClientError marks malformed or conflicting input.
type ClientError struct {
	Msg string
}

func (e *ClientError) Error() string { return e.Msg }

// ResourceError marks scratch-directory or file I/O failures.
type ResourceError struct {
	Msg string
	Err error
}

func (e *ResourceError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ResourceError) Unwrap() error { return e.Err }

// PlatformError marks render/show/registration failures in the external
// notification platform.
type PlatformError struct {
	Msg string
	Err error
}

func (e *PlatformError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *PlatformError) Unwrap() error { return e.Err }

// IsClientError reports whether err classifies as bad input.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}
