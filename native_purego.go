// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Purego only works on linux/macOS with amd64 and arm64 from now
//go:build (linux || darwin) && (amd64 || arm64)

package guestdl

import (
	"fmt"

	"github.com/nativesim/go-guestdl/internal/purego"
	"go.uber.org/zap"
)

// hostLoader wraps all interactions with the purego library.
type hostLoader struct {
	host purego.Host
}

// NewHostLoader returns the NativeLoader backed by the host's dlopen(3).
// Libraries are opened with RTLD_NOW|RTLD_LOCAL so that every native library
// keeps its own symbol namespace.
func NewHostLoader(logger *zap.Logger) (NativeLoader, error) {
	return &hostLoader{host: purego.Host{Log: logger}}, nil
}

func (l *hostLoader) Open(path string) (uintptr, error) {
	handle, err := l.host.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err == nil && handle == 0 {
		err = fmt.Errorf("dlopen returned a NULL handle")
	}
	return handle, err
}

func (l *hostLoader) Symbol(handle uintptr, name string) (uintptr, error) {
	addr, err := l.host.Dlsym(handle, name)
	if err == nil && addr == 0 {
		err = fmt.Errorf("dlsym returned NULL")
	}
	return addr, err
}

func (l *hostLoader) Close(handle uintptr) error {
	return l.host.Dlclose(handle)
}
