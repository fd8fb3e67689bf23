// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package guestdl

import (
	"math"
	"testing"

	"github.com/nativesim/go-guestdl/errors"
	"github.com/stretchr/testify/require"
)

func newTestMemory(t *testing.T, base, size uint64) *Memory {
	t.Helper()
	mem, err := NewMemory(base, size)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, mem.Close()) })
	return mem
}

func TestMemory(t *testing.T) {
	mem := newTestMemory(t, 0x10000, 2*PageSize)
	require.Equal(t, Region{Base: 0x10000, Size: 2 * PageSize}, mem.Window())

	t.Run("starts-zeroed", func(t *testing.T) {
		data, err := mem.Load(0x10000, 16)
		require.NoError(t, err)
		require.Equal(t, make([]byte, 16), data)
	})

	t.Run("store-load", func(t *testing.T) {
		require.NoError(t, mem.Store(0x10ffe, []byte{1, 2, 3, 4}))
		data, err := mem.Load(0x10ffe, 4)
		require.NoError(t, err)
		require.Equal(t, []byte{1, 2, 3, 4}, data)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, mem.Clear(0x10fff, 2))
		data, err := mem.Load(0x10ffe, 4)
		require.NoError(t, err)
		require.Equal(t, []byte{1, 0, 0, 4}, data)
	})

	t.Run("faults", func(t *testing.T) {
		var fault *MemoryFault
		require.ErrorAs(t, mem.Store(0xffff, []byte{1}), &fault)
		require.Equal(t, uint64(0xffff), fault.Addr)
		require.ErrorAs(t, mem.Store(0x11fff, []byte{1, 2}), &fault)
		require.ErrorAs(t, mem.Clear(0x10000, 2*PageSize+1), &fault)
		_, err := mem.Load(0x12000, 1)
		require.ErrorAs(t, err, &fault)
		require.ErrorIs(t, err, errors.InvalidArgument)
		require.Equal(t, errors.InvalidArgument, errors.StatusOf(err))
	})
}

func TestNewMemory(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		mem := newTestMemory(t, 0x1000, 0)
		require.NoError(t, mem.Store(0x1000, nil))
		require.Error(t, mem.Store(0x1000, []byte{1}))
	})

	t.Run("overflowing-window", func(t *testing.T) {
		_, err := NewMemory(math.MaxUint64-PageSize+1, 2*PageSize)
		require.Error(t, err)
	})
}
