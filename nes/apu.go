// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nes

// The APU holds the APU register file at $4000-$4013, $4015 and $4017.
// No sound is generated.
type APU struct {
	regs    [0x18]byte
	enabled byte // channel enable bits written to $4015
}

// NewAPU creates an APU with all channels disabled.
func NewAPU() *APU {
	return &APU{}
}

// Read loads an APU register. Only $4015 is readable; it reports the
// enabled channels.
func (a *APU) Read(addr uint16) byte {
	if addr == apuStatus {
		return a.enabled
	}
	return 0
}

// Write stores an APU register and returns its previous value.
func (a *APU) Write(addr uint16, v byte) byte {
	i := addr - ioBase
	old := a.regs[i]
	a.regs[i] = v
	if addr == apuStatus {
		a.enabled = v & 0x1f
	}
	return old
}

// Register returns the last value written to an APU register.
func (a *APU) Register(addr uint16) byte {
	return a.regs[addr-ioBase]
}
