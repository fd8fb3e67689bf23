// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package guestdl

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
)

// Handle identifies a loaded library within a Table. It is what the guest
// holds; host loader handles never leave the table.
type Handle uint64

// NullHandle is never issued by a Table.
const NullHandle Handle = 0

// Module is a native library registered in a Table.
type Module struct {
	// Lock-less reference counter. The table holds one reference for as long
	// as the module is registered, and every in-flight symbol lookup holds
	// another one, so that an Unload racing with a Resolve only closes the
	// host handle once the lookup is done.
	refCounter atomic.Int32

	handle   Handle
	path     string
	native   uintptr
	mapping  Mapping
	consumed uint64
}

func newModule(path string, native uintptr, mapping Mapping, consumed uint64) *Module {
	module := &Module{path: path, native: native, mapping: mapping, consumed: consumed}
	module.refCounter.Store(1) // The table's reference
	return module
}

// Handle returns the handle the module is registered under.
func (m *Module) Handle() Handle { return m.handle }

// Path returns the native library path the module was opened from.
func (m *Module) Path() string { return m.path }

// Mapping returns where the guest image was placed.
func (m *Module) Mapping() Mapping { return m.mapping }

// ConsumedSize returns the number of bytes of the guest region claimed by
// the module.
func (m *Module) ConsumedSize() uint64 { return m.consumed }

// retain increments the reference counter of this [Module]. Returns true if
// the [Module] is still valid, false if it is no longer usable.
func (m *Module) retain() bool {
	return m.addRefCounter(1) > 0
}

// drop decrements the reference counter and reports whether this call released
// the last reference.
func (m *Module) drop() bool {
	return m.addRefCounter(-1) == 0
}

// addRefCounter adds x to Module.refCounter:
//
// * result > 0    => the Module is still usable
// * result == 0   => the Module is no longer usable, ref counter reached 0 as part of this call
// * result == -1  => the Module is no longer usable, ref counter was already 0 previously
func (m *Module) addRefCounter(x int32) int32 {
	// We use a CAS loop to avoid setting the refCounter to a negative value.
	for {
		current := m.refCounter.Load()
		if current <= 0 {
			// The object had already been released
			return -1
		}

		next := current + x
		if swapped := m.refCounter.CompareAndSwap(current, next); swapped {
			if next < 0 {
				return 0
			}
			return next
		}
	}
}

// Table is the set of native libraries loaded by one guest process. Each
// simulated process owns its own Table; handles of one table mean nothing to
// another.
type Table struct {
	mu      sync.Mutex
	last    Handle
	modules map[Handle]*Module
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{modules: make(map[Handle]*Module)}
}

// register stores module under a new handle. Handles are never reused.
func (t *Table) register(module *Module) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last++
	module.handle = t.last
	t.modules[module.handle] = module
	return module.handle
}

// Lookup returns the module registered under handle.
func (t *Table) Lookup(handle Handle) (*Module, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	module, ok := t.modules[handle]
	return module, ok
}

// acquire returns the module registered under handle with an extra reference
// the caller must drop.
func (t *Table) acquire(handle Handle) (*Module, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	module, ok := t.modules[handle]
	if !ok || !module.retain() {
		return nil, false
	}
	return module, true
}

// remove unregisters handle and hands the table's reference over to the
// caller.
func (t *Table) remove(handle Handle) (*Module, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	module, ok := t.modules[handle]
	if ok {
		delete(t.modules, handle)
	}
	return module, ok
}

// removeAll unregisters every module, in handle order.
func (t *Table) removeAll() []*Module {
	t.mu.Lock()
	defer t.mu.Unlock()

	modules := make([]*Module, 0, len(t.modules))
	for _, module := range t.modules {
		modules = append(modules, module)
	}
	clear(t.modules)
	slices.SortFunc(modules, func(a, b *Module) int {
		return cmp.Compare(a.handle, b.handle)
	})
	return modules
}

// Len returns the number of registered modules.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.modules)
}

// Handles returns the registered handles in increasing order.
func (t *Table) Handles() []Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	handles := make([]Handle, 0, len(t.modules))
	for handle := range t.modules {
		handles = append(handles, handle)
	}
	slices.Sort(handles)
	return handles
}
