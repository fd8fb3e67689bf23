// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package guestdl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRoundUp(t *testing.T) {
	for _, tc := range []struct {
		n, want uint64
	}{
		{0, 0},
		{1, 4096},
		{4095, 4096},
		{4096, 4096},
		{4097, 8192},
		{8192, 8192},
	} {
		got, ok := RoundUp(tc.n, PageSize)
		require.True(t, ok)
		require.Equal(t, tc.want, got, "RoundUp(%d)", tc.n)
	}

	t.Run("overflow", func(t *testing.T) {
		_, ok := RoundUp(uint64(math.MaxUint64), PageSize)
		require.False(t, ok)

		got, ok := RoundUp(uint64(math.MaxUint64)&^(PageSize-1), PageSize)
		require.True(t, ok)
		require.Equal(t, uint64(math.MaxUint64)&^(PageSize-1), got)
	})

	t.Run("smaller-types", func(t *testing.T) {
		got, ok := RoundUp[uint16](100, 64)
		require.True(t, ok)
		require.Equal(t, uint16(128), got)

		_, ok = RoundUp[uint8](250, 16)
		require.False(t, ok)
	})
}

func TestRoundUpProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		shift := rapid.IntRange(0, 20).Draw(t, "shift")
		align := uint64(1) << shift
		n := rapid.Uint64Max(math.MaxUint64 - align).Draw(t, "n")

		got, ok := RoundUp(n, align)
		if !ok {
			t.Fatalf("RoundUp(%d, %d) overflowed", n, align)
		}
		if got%align != 0 {
			t.Fatalf("RoundUp(%d, %d) = %d is not aligned", n, align, got)
		}
		if got < n {
			t.Fatalf("RoundUp(%d, %d) = %d is below n", n, align, got)
		}
		if got-n >= align {
			t.Fatalf("RoundUp(%d, %d) = %d is not the smallest multiple", n, align, got)
		}
	})
}

func TestRoundDown(t *testing.T) {
	require.Equal(t, uint64(0), RoundDown(uint64(4095), PageSize))
	require.Equal(t, uint64(4096), RoundDown(uint64(4096), PageSize))
	require.Equal(t, uint64(0x10000), RoundDown(uint64(0x10abc), PageSize))
}

func TestRegion(t *testing.T) {
	r := Region{Base: 0x1000, Size: 0x2000}
	require.True(t, r.Contains(0x1000, 0x2000))
	require.True(t, r.Contains(0x2fff, 1))
	require.True(t, r.Contains(0x3000, 0))
	require.False(t, r.Contains(0x2fff, 2))
	require.False(t, r.Contains(0xfff, 1))
	require.False(t, r.Contains(0x1000, math.MaxUint64))

	end, ok := r.End()
	require.True(t, ok)
	require.Equal(t, uint64(0x3000), end)

	_, ok = Region{Base: math.MaxUint64, Size: 2}.End()
	require.False(t, ok)
	require.Equal(t, "[0x1000, +0x2000)", r.String())
}
