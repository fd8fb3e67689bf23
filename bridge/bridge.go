// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package bridge exposes the loader to a guest through the dlopen syscalls of
// the simulator ABI: plain status codes, handles and addresses.
package bridge

import (
	guestdl "github.com/nativesim/go-guestdl"
	"github.com/nativesim/go-guestdl/errors"
	"github.com/nativesim/go-guestdl/setup"
	"go.uber.org/zap"
)

// CellSource gives access to the cell deps of the simulated transaction.
type CellSource interface {
	// CellDepData returns the data of the cell dep matching codeHash. Hash
	// type 1 matches on the cell's type script hash, any other on its data
	// hash.
	CellDepData(codeHash [32]byte, hashType uint8) ([]byte, bool)
}

// Cells is a CellSource keyed by setup.DlopenKey.
type Cells map[string][]byte

func (c Cells) CellDepData(codeHash [32]byte, hashType uint8) ([]byte, bool) {
	data, ok := c[setup.DlopenKey(codeHash, hashType)]
	return data, ok
}

// Syscalls serves the dlopen syscalls of one guest process.
type Syscalls struct {
	Loader *guestdl.Loader
	// Table is the guest process's own module table.
	Table *guestdl.Table
	Setup *setup.Setup
	Cells CellSource
	// Memory is the guest memory images get mapped into.
	Memory guestdl.GuestMemory
	Logger *zap.Logger
}

func (s *Syscalls) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Syscalls) nativeLibrary(codeHash [32]byte, hashType uint8) (string, bool) {
	if s.Setup == nil {
		return "", false
	}
	return s.Setup.NativeLibrary(codeHash, hashType)
}

func (s *Syscalls) cellDepData(codeHash [32]byte, hashType uint8) ([]byte, bool) {
	if s.Cells == nil {
		return nil, false
	}
	return s.Cells.CellDepData(codeHash, hashType)
}

// Dlopen2 loads the native library registered for the cell dep identified by
// depCellHash into the guest region [alignedAddr, alignedAddr+alignedSize).
// It returns the status the guest sees, the handle and the number of bytes
// of the region consumed. handle and consumed are 0 unless status is 0.
func (s *Syscalls) Dlopen2(depCellHash [32]byte, hashType uint8, alignedAddr, alignedSize uint64) (status int32, handle uint64, consumed uint64) {
	log := s.logger().With(zap.String("key", setup.DlopenKey(depCellHash, hashType)))

	path, ok := s.nativeLibrary(depCellHash, hashType)
	if !ok {
		log.Warn("no native binary registered for cell dep")
		return int32(errors.DynamicLoadingFailed), 0, 0
	}
	code, ok := s.cellDepData(depCellHash, hashType)
	if !ok {
		log.Warn("cannot locate cell dep", zap.String("path", path))
		return int32(errors.DynamicLoadingFailed), 0, 0
	}

	result, err := s.Loader.Load(s.Table, guestdl.LoadRequest{
		Path:   path,
		Code:   code,
		Length: uint64(len(code)),
		Region: guestdl.Region{Base: alignedAddr, Size: alignedSize},
		Memory: s.Memory,
	})
	if err != nil {
		log.Info("dlopen failed", zap.String("path", path), zap.Int32("status", int32(result.Status)), zap.Error(err))
		return int32(result.Status), 0, 0
	}
	return int32(result.Status), uint64(result.Handle), result.ConsumedSize
}

// Dlsym returns the host address of symbol in the library behind handle, or
// 0 when it cannot be resolved.
func (s *Syscalls) Dlsym(handle uint64, symbol string) uintptr {
	addr, err := s.Loader.Resolve(s.Table, guestdl.Handle(handle), symbol)
	if err != nil {
		s.logger().Debug("dlsym failed", zap.Uint64("handle", handle), zap.String("symbol", symbol), zap.Error(err))
		return 0
	}
	return addr
}

// Exit unloads every library of the guest process.
func (s *Syscalls) Exit() error {
	return s.Loader.UnloadAll(s.Table)
}
