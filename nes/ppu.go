// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nes

// PPU timing, in PPU dots.
const (
	DotsPerScanline   = 341
	ScanlinesPerFrame = 262
	vblankScanline    = 241
	preRenderScanline = 261
)

// PPU register numbers (address & 7)
const (
	PPUCTRL = iota
	PPUMASK
	PPUSTATUS
	OAMADDR
	OAMDATA
	PPUSCROLL
	PPUADDR
	PPUDATA
)

// PPUSTATUS bits
const (
	StatusSpriteOverflow = 1 << 5
	StatusSprite0Hit     = 1 << 6
	StatusVBlank         = 1 << 7
)

const ctrlIncrement32 = 1 << 2

// The PPU models the eight CPU-visible PPU registers and the dot/scanline
// timing that drives the vertical blank flag. Nothing is rendered.
type PPU struct {
	regs     [8]byte // last value written to each register
	status   byte
	latch    bool // shared first/second write toggle of PPUSCROLL and PPUADDR
	open     byte // last value driven onto the register bus
	oamAddr  byte
	oam      [256]byte
	vramAddr uint16
	vram     [0x4000]byte
	readBuf  byte // PPUDATA read buffer
	scroll   [2]byte
	Dot      int    // 0-340
	Scanline int    // 0-261
	Frame    uint64 // completed frames
}

// NewPPU creates a PPU at the start of the pre-render scanline.
func NewPPU() *PPU {
	p := &PPU{}
	p.Reset()
	return p
}

// Reset puts the PPU at the start of the pre-render scanline with all
// registers cleared.
func (p *PPU) Reset() {
	*p = PPU{Scanline: preRenderScanline}
}

// VBlank reports whether the vertical blank flag is set.
func (p *PPU) VBlank() bool {
	return p.status&StatusVBlank != 0
}

// Scroll returns the X and Y scroll values written through PPUSCROLL.
func (p *PPU) Scroll() (x, y byte) {
	return p.scroll[0], p.scroll[1]
}

// Tick advances the PPU by one dot. The vertical blank flag is raised on
// dot 1 of scanline 241 and cleared on dot 1 of the pre-render scanline.
func (p *PPU) Tick() {
	p.Dot++
	if p.Dot == DotsPerScanline {
		p.Dot = 0
		p.Scanline++
		if p.Scanline == ScanlinesPerFrame {
			p.Scanline = 0
			p.Frame++
		}
	}

	if p.Dot == 1 {
		switch p.Scanline {
		case vblankScanline:
			p.status |= StatusVBlank
		case preRenderScanline:
			p.status &^= StatusVBlank | StatusSprite0Hit | StatusSpriteOverflow
		}
	}
}

// ReadRegister reads the PPU register selected by the low three bits of
// addr. Reading PPUSTATUS clears the vertical blank flag and the write
// toggle. Write-only registers return the last value written to any
// register.
func (p *PPU) ReadRegister(addr uint16) byte {
	switch addr & 7 {
	case PPUSTATUS:
		v := p.status | p.open&0x1f
		p.status &^= StatusVBlank
		p.latch = false
		p.open = v
		return v
	case OAMDATA:
		p.open = p.oam[p.oamAddr]
		return p.open
	case PPUDATA:
		// Palette reads are immediate, everything else goes through the
		// read buffer.
		addr := p.vramAddr & 0x3fff
		v := p.readBuf
		p.readBuf = p.vram[addr]
		if addr >= 0x3f00 {
			v = p.readBuf
		}
		p.incrementAddr()
		p.open = v
		return v
	}
	return p.open
}

// WriteRegister writes the PPU register selected by the low three bits
// of addr and returns the value previously written to it.
func (p *PPU) WriteRegister(addr uint16, v byte) byte {
	reg := addr & 7
	old := p.regs[reg]
	p.regs[reg] = v
	p.open = v

	switch reg {
	case OAMADDR:
		p.oamAddr = v
	case OAMDATA:
		p.oam[p.oamAddr] = v
		p.oamAddr++
	case PPUSCROLL:
		p.scroll[boolToInt(p.latch)] = v
		p.latch = !p.latch
	case PPUADDR:
		if !p.latch {
			p.vramAddr = uint16(v&0x3f)<<8 | p.vramAddr&0x00ff
		} else {
			p.vramAddr = p.vramAddr&0xff00 | uint16(v)
		}
		p.latch = !p.latch
	case PPUDATA:
		p.vram[p.vramAddr&0x3fff] = v
		p.incrementAddr()
	}
	return old
}

func (p *PPU) incrementAddr() {
	if p.regs[PPUCTRL]&ctrlIncrement32 != 0 {
		p.vramAddr += 32
	} else {
		p.vramAddr++
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
