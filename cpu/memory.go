// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// The Bus interface presents the CPU's view of the address space. All
// memory accesses go through it.
//
// Both methods must be total over the 16-bit address space. An address
// that no device answers is a configuration error of the implementation,
// which should panic rather than invent a value.
type Bus interface {
	// Read loads a single byte from the address and returns it.
	Read(addr uint16) byte

	// Write stores a byte to the address and returns the byte that was
	// there before.
	Write(addr uint16, v byte) byte
}

// A Peeker is a bus that can also read a byte without the side effects a
// CPU read would have.
type Peeker interface {
	Peek(addr uint16) byte
}

type peekReader struct {
	Bus
	p Peeker
}

func (r peekReader) Read(addr uint16) byte {
	return r.p.Peek(addr)
}

// Return a view of b whose reads go through Peek when b offers it.
func quietBus(b Bus) Bus {
	if p, ok := b.(Peeker); ok {
		return peekReader{Bus: b, p: p}
	}
	return b
}

// FlatMemory represents an entire 16-bit address space as a singular
// 64K buffer.
type FlatMemory struct {
	b [64 * 1024]byte
}

// NewFlatMemory creates a new 16-bit memory space.
func NewFlatMemory() *FlatMemory {
	return &FlatMemory{}
}

// Read loads a single byte from the address and returns it.
func (m *FlatMemory) Read(addr uint16) byte {
	return m.b[addr]
}

// Write stores a byte at the requested address and returns the previous
// value.
func (m *FlatMemory) Write(addr uint16, v byte) byte {
	old := m.b[addr]
	m.b[addr] = v
	return old
}

// StoreBytes copies b into memory starting at addr. Writes past $FFFF wrap
// around to $0000.
func (m *FlatMemory) StoreBytes(addr uint16, b []byte) {
	for i, v := range b {
		m.b[addr+uint16(i)] = v
	}
}

// StoreWord stores a little-endian 16-bit value at addr.
func (m *FlatMemory) StoreWord(addr uint16, v uint16) {
	m.b[addr] = byte(v)
	m.b[addr+1] = byte(v >> 8)
}

// readWord loads a little-endian 16-bit value from addr and addr+1.
func readWord(b Bus, addr uint16) uint16 {
	lo := b.Read(addr)
	hi := b.Read(addr + 1)
	return uint16(lo) | uint16(hi)<<8
}

// readWordBug loads a 16-bit value the way the NMOS 6502 does for indirect
// pointers: the high byte is fetched from the same page as the low byte.
// For example, a pointer at $12FF reads its low byte from $12FF and its
// high byte from $1200.
func readWordBug(b Bus, addr uint16) uint16 {
	lo := b.Read(addr)
	hi := b.Read((addr & 0xff00) | uint16(byte(addr)+1))
	return uint16(lo) | uint16(hi)<<8
}

// Return the offset address 'addr' + 'offset'. If the offset
// crossed a page boundary, return 'pageCrossed' as true.
func offsetAddress(addr uint16, offset byte) (newAddr uint16, pageCrossed bool) {
	newAddr = addr + uint16(offset)
	pageCrossed = (newAddr & 0xff00) != (addr & 0xff00)
	return newAddr, pageCrossed
}

// Offset a zero-page address 'addr' by 'offset', wrapping inside page
// zero.
func offsetZeroPage(addr byte, offset byte) uint16 {
	return uint16(addr + offset)
}

// Given a 1-byte stack pointer register, return the stack
// corresponding memory address.
func stackAddress(offset byte) uint16 {
	return uint16(0x100) + uint16(offset)
}
