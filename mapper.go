// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package guestdl

import "strings"

// Prot is the access a segment asks for in guest memory.
type Prot uint8

const (
	ProtRead Prot = 1 << iota
	ProtWrite
	ProtExec
)

func (p Prot) String() string {
	var b strings.Builder
	for _, f := range []struct {
		bit  Prot
		char byte
	}{{ProtRead, 'r'}, {ProtWrite, 'w'}, {ProtExec, 'x'}} {
		if p&f.bit != 0 {
			b.WriteByte(f.char)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// Segment is a loadable segment once placed in guest memory.
type Segment struct {
	// Guest address of the first byte of the segment.
	Addr uint64
	// Bytes occupied in guest memory, including the zero-filled tail.
	MemSize uint64
	// Bytes copied from the image.
	FileSize uint64
	// Offset of the segment contents within the image.
	Offset uint64
	Prot   Prot
}

// Mapping describes where a SegmentMapper placed an image.
type Mapping struct {
	// Base is the guest address the image was placed at.
	Base uint64
	// Size is the number of bytes of the region the segments span, rounded up
	// to the page size. Zero when nothing was placed.
	Size uint64
	// Entry is the guest address of the image entry point, 0 if it has none.
	Entry    uint64
	Segments []Segment
}

// SegmentMapper places the loadable parts of a guest image into the guest
// memory region the caller offered. Implementations must validate the whole
// image before writing anything, and must not write outside of region.
type SegmentMapper interface {
	Map(image []byte, region Region, mem GuestMemory) (Mapping, error)
}

// SegmentMapperFunc adapts a function into a SegmentMapper.
type SegmentMapperFunc func(image []byte, region Region, mem GuestMemory) (Mapping, error)

func (f SegmentMapperFunc) Map(image []byte, region Region, mem GuestMemory) (Mapping, error) {
	return f(image, region, mem)
}

// ReserveOnly only accounts for the region: it places nothing in guest memory
// and never inspects the image.
var ReserveOnly SegmentMapper = SegmentMapperFunc(func(_ []byte, region Region, _ GuestMemory) (Mapping, error) {
	return Mapping{Base: region.Base}, nil
})
