// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package watcher

import (
	"fmt"
)

// ErrorCode identifies a kind of error.  ErrorCode satisfies the error
// interface so it can be used as the target of errors.Is.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrDecode indicates a filter item was neither a valid encoded
	// address for the active network nor a hex string.
	ErrDecode ErrorCode = iota

	// ErrInvalidArgument indicates a filter was requested with sizing
	// parameters that can not produce a usable filter.
	ErrInvalidArgument

	// ErrChannelClosed indicates a required upstream or downstream
	// channel is gone.  When detected on the network event channel it ends
	// the coordinator.
	ErrChannelClosed

	// ErrUpstreamCommandFailed indicates the network engine rejected a
	// command.
	ErrUpstreamCommandFailed

	// ErrShuttingDown indicates a command was issued to a coordinator that
	// is not running.
	ErrShuttingDown

	// numErrorCodes is the maximum error code number used in tests.
	numErrorCodes
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDecode:                "ErrDecode",
	ErrInvalidArgument:       "ErrInvalidArgument",
	ErrChannelClosed:         "ErrChannelClosed",
	ErrUpstreamCommandFailed: "ErrUpstreamCommandFailed",
	ErrShuttingDown:          "ErrShuttingDown",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error satisfies the error interface and prints the name of the code.
func (e ErrorCode) Error() string {
	return e.String()
}

// Error identifies a failure of a watcher operation.  The caller can use
// errors.Is with one of the ErrorCode constants to determine the kind of
// failure, and errors.Unwrap to reach the underlying cause, if any.
type Error struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying cause, may be nil
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying cause of the error.
func (e Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the ErrorCode of the error.
func (e Error) Is(target error) bool {
	code, ok := target.(ErrorCode)
	return ok && code == e.ErrorCode
}

// watcherError creates an Error given a set of arguments.
func watcherError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}
