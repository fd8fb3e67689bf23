// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package guestdl

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// PageSize is the RISC-V guest page size.
const PageSize uint64 = 4096

// RoundUp returns the smallest multiple of align greater than or equal to n.
// align must be a power of two. ok is false when the result does not fit in I.
func RoundUp[I constraints.Unsigned](n, align I) (rounded I, ok bool) {
	mask := align - 1
	sum := n + mask
	if sum < n {
		return 0, false
	}
	return sum &^ mask, true
}

// RoundDown returns the largest multiple of align lower than or equal to n.
func RoundDown[I constraints.Unsigned](n, align I) I {
	return n &^ (align - 1)
}

func isPowerOfTwo(n uint64) bool {
	return n != 0 && bits.OnesCount64(n) == 1
}
