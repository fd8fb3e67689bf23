// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package guestdl

import "fmt"

// Region is a window of guest memory earmarked by the caller for a library.
type Region struct {
	Base uint64
	Size uint64
}

// End returns the first address past the region, and false on overflow.
func (r Region) End() (uint64, bool) {
	end := r.Base + r.Size
	return end, end >= r.Base
}

// Contains reports whether [addr, addr+size) lies within the region.
func (r Region) Contains(addr, size uint64) bool {
	if addr < r.Base {
		return false
	}
	off := addr - r.Base
	return off <= r.Size && size <= r.Size-off
}

func (r Region) String() string {
	return fmt.Sprintf("[%#x, +%#x)", r.Base, r.Size)
}
