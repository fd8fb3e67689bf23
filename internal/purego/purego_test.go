// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

//go:build (linux || darwin) && (amd64 || arm64)

package purego

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func libcPath() string {
	if runtime.GOOS == "darwin" {
		return "/usr/lib/libSystem.B.dylib"
	}
	return "libc.so.6"
}

func TestHostRoundTrip(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	host := Host{Log: zap.New(core)}

	handle, err := host.Dlopen(libcPath(), RTLD_NOW|RTLD_LOCAL)
	require.NoError(t, err)
	require.NotZero(t, handle)

	addr, err := host.Dlsym(handle, "strlen")
	require.NoError(t, err)
	require.NotZero(t, addr)

	_, err = host.Dlsym(handle, "definitely_not_a_libc_symbol")
	require.Error(t, err)

	require.NoError(t, host.Dlclose(handle))
	require.Equal(t, 8, logs.FilterMessageSnippet("dl").Len())
}

func TestHostOpenMissing(t *testing.T) {
	_, err := Host{}.Dlopen("/nonexistent/libmissing.so", RTLD_NOW)
	require.Error(t, err)
	require.NotEmpty(t, err.Error())
}
