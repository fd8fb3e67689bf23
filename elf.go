// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package guestdl

import (
	"bytes"
	"debug/elf"
	"fmt"

	"github.com/nativesim/go-guestdl/errors"
)

// ELFMapper places the PT_LOAD segments of a RISC-V shared object into guest
// memory, keeping the relative layout of their virtual addresses. The lowest
// page of the first segment lands at the base of the region.
type ELFMapper struct {
	// PageSize used for alignment checks and rounding. Defaults to PageSize.
	PageSize uint64
	// Machine the image must be built for. Defaults to elf.EM_RISCV.
	Machine elf.Machine
}

var _ SegmentMapper = ELFMapper{}

func (m ELFMapper) pageSize() uint64 {
	if m.PageSize == 0 {
		return PageSize
	}
	return m.PageSize
}

func (m ELFMapper) machine() elf.Machine {
	if m.Machine == elf.EM_NONE {
		return elf.EM_RISCV
	}
	return m.Machine
}

func malformed(format string, args ...any) error {
	return &errors.MalformedImageError{Reason: fmt.Sprintf(format, args...)}
}

// layout is the validated placement plan of an image.
type layout struct {
	loads      []*elf.Prog
	start, end uint64
	entry      uint64
}

func (m ELFMapper) plan(image []byte) (layout, error) {
	page := m.pageSize()

	f, err := elf.NewFile(bytes.NewReader(image))
	if err != nil {
		return layout{}, &errors.MalformedImageError{Reason: "cannot parse ELF header", Err: err}
	}
	defer f.Close()

	if f.Machine != m.machine() {
		return layout{}, malformed("machine is %v, want %v", f.Machine, m.machine())
	}
	if f.Type != elf.ET_DYN {
		return layout{}, malformed("type is %v, want %v", f.Type, elf.ET_DYN)
	}

	var plan layout
	var end uint64
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		if p.Filesz > p.Memsz {
			return layout{}, malformed("PT_LOAD at %#x has filesz %#x > memsz %#x", p.Vaddr, p.Filesz, p.Memsz)
		}
		if p.Memsz == 0 {
			continue
		}
		if fileEnd := p.Off + p.Filesz; fileEnd < p.Off || fileEnd > uint64(len(image)) {
			return layout{}, malformed("PT_LOAD at %#x reads [%#x, +%#x) past the %d bytes image", p.Vaddr, p.Off, p.Filesz, len(image))
		}
		if p.Off%page != p.Vaddr%page {
			return layout{}, malformed("PT_LOAD at %#x is not congruent with its file offset %#x", p.Vaddr, p.Off)
		}
		if len(plan.loads) > 0 && p.Vaddr < end {
			return layout{}, malformed("PT_LOAD headers out-of-order. %#x < %#x", p.Vaddr, end)
		}
		segEnd := p.Vaddr + p.Memsz
		if segEnd < p.Vaddr {
			return layout{}, malformed("PT_LOAD header size overflows. %#x + %#x", p.Vaddr, p.Memsz)
		}
		if len(plan.loads) == 0 {
			plan.start = RoundDown(p.Vaddr, page)
		}
		end = segEnd
		plan.loads = append(plan.loads, p)
	}
	if len(plan.loads) == 0 {
		return layout{}, malformed("no loadable segment")
	}

	var ok bool
	if plan.end, ok = RoundUp(end, page); !ok {
		return layout{}, malformed("PT_LOAD segments too big")
	}

	if f.Entry != 0 {
		if f.Entry < plan.start || f.Entry >= end {
			return layout{}, malformed("entry point %#x outside of the loadable segments", f.Entry)
		}
		plan.entry = f.Entry
	}
	return plan, nil
}

func progProt(flags elf.ProgFlag) Prot {
	var prot Prot
	if flags&elf.PF_R != 0 {
		prot |= ProtRead
	}
	if flags&elf.PF_W != 0 {
		prot |= ProtWrite
	}
	if flags&elf.PF_X != 0 {
		prot |= ProtExec
	}
	return prot
}

// Map validates image and copies its loadable segments into mem.
//
// Errors wrap errors.MalformedImage for invalid images, errors.OutOfMemory when
// the segments span more than region, and errors.InvalidArgument when region
// is not page aligned. Nothing is written to mem on error, except for
// failures reported by mem itself.
func (m ELFMapper) Map(image []byte, region Region, mem GuestMemory) (Mapping, error) {
	page := m.pageSize()
	if region.Base%page != 0 {
		return Mapping{}, fmt.Errorf("%w: region base %#x is not aligned on %#x", errors.InvalidArgument, region.Base, page)
	}
	if mem == nil {
		return Mapping{}, fmt.Errorf("%w: no guest memory to map the image into", errors.InvalidArgument)
	}

	plan, err := m.plan(image)
	if err != nil {
		return Mapping{}, err
	}

	size := plan.end - plan.start
	if size > region.Size {
		return Mapping{}, fmt.Errorf("%w: segments span %#x bytes, region %s", errors.OutOfMemory, size, region)
	}

	if err := mem.Clear(region.Base, size); err != nil {
		return Mapping{}, err
	}

	mapping := Mapping{
		Base:     region.Base,
		Size:     size,
		Segments: make([]Segment, 0, len(plan.loads)),
	}
	for _, p := range plan.loads {
		seg := Segment{
			Addr:     region.Base + (p.Vaddr - plan.start),
			MemSize:  p.Memsz,
			FileSize: p.Filesz,
			Offset:   p.Off,
			Prot:     progProt(p.Flags),
		}
		// The tail up to MemSize is already zero.
		if err := mem.Store(seg.Addr, image[p.Off:p.Off+p.Filesz]); err != nil {
			return Mapping{}, err
		}
		mapping.Segments = append(mapping.Segments, seg)
	}
	if plan.entry != 0 {
		mapping.Entry = region.Base + (plan.entry - plan.start)
	}
	return mapping, nil
}
