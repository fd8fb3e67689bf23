// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package guestdl

import (
	"fmt"

	"github.com/nativesim/go-guestdl/errors"
)

// GuestMemory is the part of the simulator's memory model the segment mapper
// writes through. Addresses are guest addresses.
type GuestMemory interface {
	// Store copies data to guest memory starting at addr.
	Store(addr uint64, data []byte) error
	// Clear zeroes size bytes of guest memory starting at addr.
	Clear(addr, size uint64) error
}

// MemoryFault is returned for accesses outside of a Memory window. It matches
// errors.InvalidArgument: the guest handed over addresses it does not own.
type MemoryFault struct {
	Addr, Size uint64
	Window     Region
}

func (e *MemoryFault) Error() string {
	return fmt.Sprintf("guest memory access [%#x, +%#x) outside of %s", e.Addr, e.Size, e.Window)
}

func (e *MemoryFault) Unwrap() error {
	return errors.InvalidArgument
}

// Memory is a flat window of guest RAM. It must be released with Close.
type Memory struct {
	window  Region
	data    []byte
	release func([]byte) error
}

var _ GuestMemory = (*Memory)(nil)

// NewMemory allocates size bytes of zeroed guest RAM mapped at base.
func NewMemory(base, size uint64) (*Memory, error) {
	window := Region{Base: base, Size: size}
	if _, ok := window.End(); !ok {
		return nil, fmt.Errorf("guest memory window %s overflows the address space", window)
	}
	if size == 0 {
		return &Memory{window: window}, nil
	}

	data, release, err := allocBacking(size)
	if err != nil {
		return nil, fmt.Errorf("allocating %d bytes of guest memory: %w", size, err)
	}
	return &Memory{window: window, data: data, release: release}, nil
}

// Window returns the guest addresses covered by m.
func (m *Memory) Window() Region {
	return m.window
}

func (m *Memory) slice(addr, size uint64) ([]byte, error) {
	if !m.window.Contains(addr, size) {
		return nil, &MemoryFault{Addr: addr, Size: size, Window: m.window}
	}
	off := addr - m.window.Base
	return m.data[off : off+size], nil
}

func (m *Memory) Store(addr uint64, data []byte) error {
	dst, err := m.slice(addr, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

func (m *Memory) Clear(addr, size uint64) error {
	dst, err := m.slice(addr, size)
	if err != nil {
		return err
	}
	clear(dst)
	return nil
}

// Load copies size bytes starting at addr out of guest memory.
func (m *Memory) Load(addr, size uint64) ([]byte, error) {
	src, err := m.slice(addr, size)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), src...), nil
}

// Close releases the backing storage. m must not be used afterwards.
func (m *Memory) Close() error {
	data := m.data
	m.data = nil
	m.window.Size = 0
	if data == nil || m.release == nil {
		return nil
	}
	return m.release(data)
}
