// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Purego only works on linux/macOS with amd64 and arm64 from now
//go:build (linux || darwin) && (amd64 || arm64)

// Package purego traces and serializes the calls made to the host dynamic
// loader through github.com/ebitengine/purego.
package purego

import (
	"sync"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"
)

const (
	RTLD_NOW    = purego.RTLD_NOW
	RTLD_LOCAL  = purego.RTLD_LOCAL
	RTLD_GLOBAL = purego.RTLD_GLOBAL
)

// The host loader keeps a single process-wide table (and a single dlerror
// slot per thread), so every call goes through this mutex.
var mu sync.Mutex

// Host performs dlopen/dlsym/dlclose on the host, logging every call at debug
// level on Log.
type Host struct {
	Log *zap.Logger
}

func (h Host) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func (h Host) Dlopen(path string, flags int) (uintptr, error) {
	mu.Lock()
	defer mu.Unlock()

	log := h.logger()
	log.Debug("dlopen", zap.String("path", path), zap.Int("flags", flags))
	handle, err := purego.Dlopen(path, flags)
	log.Debug("dlopen done", zap.String("path", path), zap.Uintptr("handle", handle), zap.Error(err))
	return handle, err
}

func (h Host) Dlsym(handle uintptr, name string) (uintptr, error) {
	mu.Lock()
	defer mu.Unlock()

	log := h.logger()
	log.Debug("dlsym", zap.Uintptr("handle", handle), zap.String("symbol", name))
	ptr, err := purego.Dlsym(handle, name)
	log.Debug("dlsym done", zap.Uintptr("handle", handle), zap.String("symbol", name), zap.Uintptr("addr", ptr), zap.Error(err))
	return ptr, err
}

func (h Host) Dlclose(handle uintptr) error {
	mu.Lock()
	defer mu.Unlock()

	log := h.logger()
	log.Debug("dlclose", zap.Uintptr("handle", handle))
	err := purego.Dlclose(handle)
	log.Debug("dlclose done", zap.Uintptr("handle", handle), zap.Error(err))
	return err
}
