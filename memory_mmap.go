// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

//go:build linux || darwin

package guestdl

import (
	"math"

	"golang.org/x/sys/unix"
)

// allocBacking maps anonymous private memory so that large guest windows are
// only committed as pages get touched.
func allocBacking(size uint64) ([]byte, func([]byte) error, error) {
	if size > math.MaxInt {
		return nil, nil, unix.ENOMEM
	}
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, nil, err
	}
	return data, unix.Munmap, nil
}
