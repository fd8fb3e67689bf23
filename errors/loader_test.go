// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package errors

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusValues(t *testing.T) {
	// These values are read by guest code and must stay stable.
	require.EqualValues(t, 0, Success)
	require.EqualValues(t, -23, OutOfMemory)
	require.EqualValues(t, -24, DynamicLoadingFailed)
}

func TestStatusOf(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
		want Status
	}{
		{name: "nil", err: nil, want: Success},
		{name: "bare", err: OutOfMemory, want: OutOfMemory},
		{name: "wrapped", err: fmt.Errorf("loading: %w", SymbolNotFound), want: SymbolNotFound},
		{name: "dynamic-loading", err: &DynamicLoadingError{Path: "libfoo.so", Diagnostic: "no such file"}, want: DynamicLoadingFailed},
		{name: "malformed", err: &MalformedImageError{Reason: "bad magic", Err: io.ErrUnexpectedEOF}, want: MalformedImage},
		{name: "symbol", err: &SymbolError{Symbol: "foo"}, want: SymbolNotFound},
		{name: "foreign", err: io.EOF, want: DynamicLoadingFailed},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, StatusOf(tc.err))
		})
	}
}

func TestMalformedImageErrorUnwrap(t *testing.T) {
	err := &MalformedImageError{Reason: "truncated", Err: io.ErrUnexpectedEOF}
	require.ErrorIs(t, err, MalformedImage)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Contains(t, err.Error(), "truncated")
}

func TestHostErrorsKeepTheirCause(t *testing.T) {
	cause := errors.New("libfoo.so: cannot open shared object file")

	open := &DynamicLoadingError{Path: "libfoo.so", Diagnostic: cause.Error(), Err: cause}
	require.ErrorIs(t, open, DynamicLoadingFailed)
	require.ErrorIs(t, open, cause)
	require.Equal(t, DynamicLoadingFailed, StatusOf(open))

	sym := &SymbolError{Symbol: "foo", Diagnostic: "undefined symbol: foo", Err: cause}
	require.ErrorIs(t, sym, SymbolNotFound)
	require.ErrorIs(t, sym, cause)
	require.Equal(t, SymbolNotFound, StatusOf(sym))

	require.NotErrorIs(t, &SymbolError{Symbol: "foo"}, cause)
}

func TestUnsupportedTargetError(t *testing.T) {
	cause := errors.New("the target operating-system plan9 is not supported")
	err := NewUnsupportedTargetError(cause)
	require.ErrorIs(t, err, cause)
	require.EqualError(t, err, cause.Error())
}

func TestUnknownStatusString(t *testing.T) {
	require.Equal(t, "unknown loader status -99", Status(-99).Error())
}
