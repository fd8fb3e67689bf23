// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package guestdl

import (
	"fmt"

	"github.com/pkg/errors"
)

// PanicError wraps a panic raised by a NativeLoader. The host loader state is
// unknown afterwards: callers finding one in an error chain should stop
// loading native libraries in this process.
type PanicError struct {
	// Call is the host loader operation that panicked: dlopen, dlsym or
	// dlclose.
	Call string
	// Err is the recovered value, with the stack it was recovered at.
	Err error
}

func (e *PanicError) Unwrap() error {
	return e.Err
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("host %s panicked: %+v", e.Call, e.Err)
}

// IsPanic reports whether err was caused by a panicking host loader.
func IsPanic(err error) bool {
	var target *PanicError
	return errors.As(err, &target)
}

// guard runs the host loader operation f named call, turning a panic into a
// *PanicError.
func guard(call string, f func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			// panic(nil) lands here too.
			return
		}

		var cause error
		switch actual := r.(type) {
		case error:
			cause = errors.WithStack(actual)
		case string:
			cause = errors.New(actual)
		default:
			cause = errors.Errorf("%v", r)
		}
		err = &PanicError{Call: call, Err: cause}
	}()
	return f()
}
