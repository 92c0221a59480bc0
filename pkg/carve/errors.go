package carve

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for request validation.
var (
	// ErrUnknownType indicates a requested type tag has no catalog entry.
	ErrUnknownType = errors.New("unknown file type")

	// ErrNoTypes indicates a run was requested without any type tags.
	ErrNoTypes = errors.New("no file types selected")

	// ErrInvalidChunkSize indicates a negative chunk size.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidDestination indicates the destination is missing, not a
	// directory, or not writable.
	ErrInvalidDestination = errors.New("invalid destination directory")

	// ErrInvalidSignature indicates a catalog entry failed validation.
	ErrInvalidSignature = errors.New("invalid file signature")

	// ErrNilSource indicates Run was called without a source.
	ErrNilSource = errors.New("source cannot be nil")
)

// Sentinel errors for carving.
var (
	// ErrSourceUnavailable indicates the byte source could not be opened.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrDestinationWrite indicates an output file could not be created or written.
	ErrDestinationWrite = errors.New("destination write failed")
)

// SourceError wraps failures on the byte source.
type SourceError struct {
	// Source is the source name.
	Source string
	// Op is the operation that failed ("open", "read").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %s: %v", e.Source, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is reports open failures as ErrSourceUnavailable.
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable && e.Op == "open"
}

// DestinationError wraps failures creating or writing an output file.
type DestinationError struct {
	// Path is the output file path.
	Path string
	// Op is the operation that failed ("create", "write", "close").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *DestinationError) Error() string {
	return fmt.Sprintf("destination %s: %s: %v", e.Path, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *DestinationError) Unwrap() error {
	return e.Err
}

// Is makes every DestinationError match ErrDestinationWrite.
func (e *DestinationError) Is(target error) bool {
	return target == ErrDestinationWrite
}

// UnknownTypeError lists the requested type tags missing from the catalog.
type UnknownTypeError struct {
	Types []string
}

// Error implements the error interface.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("%v: %s", ErrUnknownType, strings.Join(e.Types, ", "))
}

// Unwrap returns ErrUnknownType for errors.Is support.
func (e *UnknownTypeError) Unwrap() error {
	return ErrUnknownType
}

// SessionError wraps an error with the session that produced it.
type SessionError struct {
	// Type is the file type tag of the session.
	Type string
	// State is the session state when the error occurred.
	State State
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s (%s): %v", e.Type, e.State, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised inside a session.
type PanicError struct {
	// Type is the file type tag of the session that panicked.
	Type string
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("session %s panicked: %v", e.Type, e.Value)
}
