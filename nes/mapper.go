// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nes

import (
	"errors"
	"fmt"
	"io"

	"github.com/golang/glog"
)

// Errors
var (
	ErrPRGSize = errors.New("nes: PRG image must be 16KB or 32KB")
)

// A Mapper is the cartridge hardware answering CPU accesses to
// $4020-$FFFF.
type Mapper interface {
	// Read loads a byte from cartridge space.
	Read(addr uint16) byte

	// Write stores a byte into cartridge space and returns the previous
	// value. Writes to ROM are ignored.
	Write(addr uint16, v byte) byte

	fmt.Stringer
}

const (
	prgBankSize = 0x4000
	prgRAMBase  = 0x6000
	prgRAMSize  = 0x2000
	prgROMBase  = 0x8000
)

// NROM is mapper 0: 16KB or 32KB of PRG ROM at $8000 with no bank
// switching. A 16KB image is mirrored at $C000. The 8KB at $6000-$7FFF is
// PRG RAM.
type NROM struct {
	prg []byte
	ram [prgRAMSize]byte
}

// NewNROM creates an NROM cartridge from a raw PRG image.
func NewNROM(prg []byte) (*NROM, error) {
	if len(prg) != prgBankSize && len(prg) != 2*prgBankSize {
		return nil, fmt.Errorf("%w (got %d bytes)", ErrPRGSize, len(prg))
	}
	m := &NROM{prg: make([]byte, len(prg))}
	copy(m.prg, prg)
	return m, nil
}

// LoadNROM reads a raw PRG image from r and creates an NROM cartridge
// from it.
func LoadNROM(r io.Reader) (*NROM, error) {
	prg, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return NewNROM(prg)
}

func (m *NROM) String() string {
	return fmt.Sprintf("NROM, %dKB PRG", len(m.prg)/1024)
}

// Read loads a byte from cartridge space. The unused $4020-$5FFF range
// reads as 0.
func (m *NROM) Read(addr uint16) byte {
	switch {
	case addr >= prgROMBase:
		return m.prg[int(addr-prgROMBase)%len(m.prg)]
	case addr >= prgRAMBase:
		return m.ram[addr-prgRAMBase]
	}
	return 0
}

// Write stores a byte into PRG RAM. Writes anywhere else are dropped.
func (m *NROM) Write(addr uint16, v byte) byte {
	switch {
	case addr >= prgROMBase:
		glog.V(2).Infof("nes: ignored write of $%02X to ROM at $%04X", v, addr)
		return m.Read(addr)
	case addr >= prgRAMBase:
		old := m.ram[addr-prgRAMBase]
		m.ram[addr-prgRAMBase] = v
		return old
	}
	glog.V(2).Infof("nes: ignored write of $%02X to unmapped $%04X", v, addr)
	return 0
}
