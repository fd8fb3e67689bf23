// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

//go:build !linux && !darwin

package guestdl

import (
	"fmt"
	"math"
)

func allocBacking(size uint64) ([]byte, func([]byte) error, error) {
	if size > math.MaxInt {
		return nil, nil, fmt.Errorf("guest memory of %d bytes cannot be addressed on this host", size)
	}
	return make([]byte, size), nil, nil
}
