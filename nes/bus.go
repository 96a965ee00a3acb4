// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nes composes the CPU-visible address space of the NES and the
// master clock that drives the CPU and PPU.
package nes

import (
	"errors"

	"github.com/golang/glog"
)

// Errors
var (
	ErrNoCartridge = errors.New("nes: no cartridge inserted")
)

// CPU memory map
//
//	$0000-$07FF  2KB internal RAM
//	$0800-$1FFF  mirrors of $0000-$07FF
//	$2000-$2007  PPU registers
//	$2008-$3FFF  mirrors of $2000-$2007 (every 8 bytes)
//	$4000-$4013  APU registers
//	$4014        OAM DMA
//	$4015        APU status
//	$4016        controller strobe (write), controller 1 (read)
//	$4017        APU frame counter (write), controller 2 (read)
//	$4018-$401F  disabled test-mode registers
//	$4020-$FFFF  cartridge
const (
	ramSize    = 0x0800
	ppuBase    = 0x2000
	ioBase     = 0x4000
	oamDMA     = 0x4014
	apuStatus  = 0x4015
	joypad1    = 0x4016
	joypad2    = 0x4017
	testBase   = 0x4018
	cartBase   = 0x4020
	ramMirrors = ppuBase
)

// A Bus routes CPU reads and writes to the internal RAM, the PPU and APU
// register files, the controller ports and the cartridge. It implements
// cpu.Bus.
type Bus struct {
	ram  [ramSize]byte
	PPU  *PPU
	APU  *APU
	Pad1 *Controller
	Pad2 *Controller
	dma  byte // last value written to $4014
	cart Mapper
}

// NewBus creates a bus with empty RAM and no cartridge.
func NewBus() *Bus {
	return &Bus{
		PPU:  NewPPU(),
		APU:  NewAPU(),
		Pad1: new(Controller),
		Pad2: new(Controller),
	}
}

// Insert plugs a cartridge into the bus, replacing any previous one.
func (b *Bus) Insert(m Mapper) {
	b.cart = m
	glog.Infof("nes: cartridge inserted (%s)", m)
}

// Cartridge returns the inserted cartridge, or nil.
func (b *Bus) Cartridge() Mapper {
	return b.cart
}

// Read loads a byte from the address. Reading cartridge space with no
// cartridge inserted panics with ErrNoCartridge.
func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < ramMirrors:
		return b.ram[addr%ramSize]
	case addr < ioBase:
		return b.PPU.ReadRegister(addr)
	case addr == joypad1:
		return b.Pad1.Read()
	case addr == joypad2:
		return b.Pad2.Read()
	case addr < testBase:
		return b.APU.Read(addr)
	case addr < cartBase:
		return 0
	}
	return b.cartridge().Read(addr)
}

// Write stores a byte to the address and returns the value previously
// held by the RAM cell, register or cartridge location.
func (b *Bus) Write(addr uint16, v byte) byte {
	switch {
	case addr < ramMirrors:
		i := addr % ramSize
		old := b.ram[i]
		b.ram[i] = v
		return old
	case addr < ioBase:
		return b.PPU.WriteRegister(addr, v)
	case addr == oamDMA:
		old := b.dma
		b.dma = v
		glog.V(3).Infof("nes: OAM DMA page $%02X requested", v)
		return old
	case addr == joypad1:
		old := b.Pad1.Write(v)
		b.Pad2.Write(v)
		return old
	case addr < testBase:
		return b.APU.Write(addr, v)
	case addr < cartBase:
		return 0
	}
	return b.cartridge().Write(addr, v)
}

// Peek returns the byte at addr without the side effects of a CPU read.
// Register ranges and an empty cartridge slot read as 0.
func (b *Bus) Peek(addr uint16) byte {
	switch {
	case addr < ramMirrors:
		return b.ram[addr%ramSize]
	case addr < cartBase || b.cart == nil:
		return 0
	}
	return b.cart.Read(addr)
}

func (b *Bus) cartridge() Mapper {
	if b.cart == nil {
		panic(ErrNoCartridge)
	}
	return b.cart
}
