// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package guestdl lets a RISC-V simulator load a native shared library on
// behalf of a guest process. A load first checks that the page rounded image
// fits in the guest memory region the guest offered, then places the image's
// loadable segments in that region, and only then opens the native
// counterpart of the library with the host dynamic loader. Symbols are
// resolved from the host library.
//
// Libraries are tracked in a [Table] owned by each simulated guest process;
// the guest only ever sees table [Handle]s.
package guestdl

import "github.com/nativesim/go-guestdl/internal/support"

// Usable returns true if the host dynamic loader can be used on the current
// target, false and the reasons why it cannot otherwise. A Loader built with
// WithNativeLoader does not need the host loader.
func Usable() (bool, error) {
	if err := support.Errors(); err != nil {
		return false, err
	}
	return true, nil
}
