// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package guestdl

// NativeLoader is the host dynamic loader. Handles are host loader handles and
// never reach the guest.
type NativeLoader interface {
	// Open loads the shared library at path and returns its handle. The error
	// text carries the host loader's diagnostic.
	Open(path string) (uintptr, error)
	// Symbol returns the host address of name in the library behind handle.
	Symbol(handle uintptr, name string) (uintptr, error)
	// Close releases a handle returned by Open.
	Close(handle uintptr) error
}
