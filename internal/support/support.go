// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package support

import "errors"

// Store all the errors related to why native library loading is unavailable
// for the current target at runtime.
var supportErrors []error

// Errors returns all the errors related to why native library loading is
// unavailable for the current target at runtime, or nil when it is available.
func Errors() error {
	return errors.Join(supportErrors...)
}
