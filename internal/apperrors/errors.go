package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel values for errors.Is checks against the typed errors below.
var (
	ErrRemoteLookup  = &RemoteLookupFailure{}
	ErrRemoteWrite   = &RemoteWriteFailure{}
	ErrMalformedDate = &MalformedDateError{}
	ErrNotFound      = &NotFoundError{}
	ErrMissingItemID = errors.New("media server item ID is required")
)

// NotFoundError represents an error when a requested resource is not found.
type NotFoundError struct {
	Resource string
	ID       interface{}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s with ID %v not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is allows for error checking with errors.Is().
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource string, id interface{}) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// RemoteLookupFailure is returned when a read from the archive service fails,
// either at the transport level or because the resource does not exist.
type RemoteLookupFailure struct {
	Service  string
	Resource string
	Err      error
}

// Error implements the error interface.
func (e *RemoteLookupFailure) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s lookup of %s failed", e.Service, e.Resource)
	}
	return fmt.Sprintf("%s lookup of %s failed: %v", e.Service, e.Resource, e.Err)
}

// Unwrap returns the underlying cause.
func (e *RemoteLookupFailure) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *RemoteLookupFailure) Is(target error) bool {
	_, ok := target.(*RemoteLookupFailure)
	return ok
}

// NewRemoteLookupFailure creates a new RemoteLookupFailure.
func NewRemoteLookupFailure(service, resource string, err error) *RemoteLookupFailure {
	return &RemoteLookupFailure{
		Service:  service,
		Resource: resource,
		Err:      err,
	}
}

// RemoteWriteFailure is returned when the media server rejects or cannot
// complete a write. StatusCode is zero for transport errors.
type RemoteWriteFailure struct {
	Service    string
	Path       string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *RemoteWriteFailure) Error() string {
	msg := fmt.Sprintf("%s write to %s failed", e.Service, e.Path)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s with status %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RemoteWriteFailure) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *RemoteWriteFailure) Is(target error) bool {
	_, ok := target.(*RemoteWriteFailure)
	return ok
}

// NewRemoteWriteFailure creates a new RemoteWriteFailure.
func NewRemoteWriteFailure(service, path string, statusCode int, err error) *RemoteWriteFailure {
	return &RemoteWriteFailure{
		Service:    service,
		Path:       path,
		StatusCode: statusCode,
		Err:        err,
	}
}

// MalformedDateError is returned when a published date cannot be parsed.
type MalformedDateError struct {
	Value string
	Err   error
}

// Error implements the error interface.
func (e *MalformedDateError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("malformed date %q", e.Value)
	}
	return fmt.Sprintf("malformed date %q: %v", e.Value, e.Err)
}

// Unwrap returns the underlying cause.
func (e *MalformedDateError) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *MalformedDateError) Is(target error) bool {
	_, ok := target.(*MalformedDateError)
	return ok
}
