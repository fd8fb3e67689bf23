// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package errors

import (
	"errors"
	"fmt"
)

// Status is the code reported back to the guest by the loader syscalls. The
// numeric values are part of the simulator ABI and must not change.
type Status int32

// Statuses the loader can report.
const (
	Success              Status = 0
	OutOfMemory          Status = -23
	DynamicLoadingFailed Status = -24
	MalformedImage       Status = -25
	SymbolNotFound       Status = -26
	InvalidHandle        Status = -27
	InvalidArgument      Status = -28
)

// Error returns the string representation of the Status.
func (s Status) Error() string {
	switch s {
	case Success:
		return "success"
	case OutOfMemory:
		return "guest memory region too small"
	case DynamicLoadingFailed:
		return "dynamic loading failed"
	case MalformedImage:
		return "malformed ELF image"
	case SymbolNotFound:
		return "symbol not found"
	case InvalidHandle:
		return "invalid library handle"
	case InvalidArgument:
		return "invalid argument"
	default:
		return fmt.Sprintf("unknown loader status %d", int32(s))
	}
}

// StatusOf returns the Status carried by err, Success for a nil error, and
// DynamicLoadingFailed for errors that carry no Status.
func StatusOf(err error) Status {
	if err == nil {
		return Success
	}
	var status Status
	if errors.As(err, &status) {
		return status
	}
	return DynamicLoadingFailed
}

// DynamicLoadingError is returned when the host dynamic loader refused to open
// a library. Diagnostic holds the host loader's own message and Err the error
// it was reported with.
type DynamicLoadingError struct {
	Path       string
	Diagnostic string
	Err        error
}

func (e *DynamicLoadingError) Error() string {
	return fmt.Sprintf("cannot open native library %q: %s", e.Path, e.Diagnostic)
}

// Unwrap returns DynamicLoadingFailed and the host loader error, if any.
func (e *DynamicLoadingError) Unwrap() []error {
	return withCause(DynamicLoadingFailed, e.Err)
}

// MalformedImageError reports a structurally invalid guest ELF image.
type MalformedImageError struct {
	Reason string
	Err    error
}

func (e *MalformedImageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed ELF image: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed ELF image: %s", e.Reason)
}

// Unwrap returns both MalformedImage and the underlying parse error, if any.
func (e *MalformedImageError) Unwrap() []error {
	return withCause(MalformedImage, e.Err)
}

// SymbolError reports a symbol the host loader could not find in a library.
type SymbolError struct {
	Symbol     string
	Diagnostic string
	Err        error
}

func (e *SymbolError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("symbol %q not found", e.Symbol)
	}
	return fmt.Sprintf("symbol %q not found: %s", e.Symbol, e.Diagnostic)
}

// Unwrap returns SymbolNotFound and the host loader error, if any.
func (e *SymbolError) Unwrap() []error {
	return withCause(SymbolNotFound, e.Err)
}

func withCause(status Status, err error) []error {
	if err == nil {
		return []error{status}
	}
	return []error{status, err}
}

// UnsupportedTargetError is a wrapper error type helping to handle the error
// case of trying to load native libraries on an unsupported target.
type UnsupportedTargetError struct {
	error
}

// NewUnsupportedTargetError wraps err into an UnsupportedTargetError.
func NewUnsupportedTargetError(err error) UnsupportedTargetError {
	return UnsupportedTargetError{err}
}

// Unwrap the error and return it.
// Required by errors.Is and errors.As functions.
func (e UnsupportedTargetError) Unwrap() error {
	return e.error
}
