// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nes

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/beevik/go2a03/asm"
)

func newTestNROM(t *testing.T, size int) *NROM {
	t.Helper()
	prg := make([]byte, size)
	for i := range prg {
		prg[i] = byte(i >> 8)
	}
	m, err := NewNROM(prg)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// Assemble a program at $8000 and build a 16KB NROM image whose reset
// vector points at it.
func assembleNROM(t *testing.T, src string) *NROM {
	t.Helper()
	assembly, err := asm.Assemble(strings.NewReader(src), "test.asm", 0x8000)
	if err != nil {
		t.Fatal(err)
	}
	prg := make([]byte, prgBankSize)
	copy(prg[int(assembly.Origin)-prgROMBase:], assembly.Code)
	prg[0x3ffc] = byte(assembly.Origin)
	prg[0x3ffd] = byte(assembly.Origin >> 8)
	m, err := LoadNROM(bytes.NewReader(prg))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func expectByte(t *testing.T, what string, got, exp byte) {
	t.Helper()
	if got != exp {
		t.Errorf("%s incorrect. exp: $%02X, got: $%02X", what, exp, got)
	}
}

func TestRAMMirroring(t *testing.T) {
	b := NewBus()
	b.Write(0x0012, 0x34)
	for _, addr := range []uint16{0x0812, 0x1012, 0x1812} {
		expectByte(t, "mirrored RAM", b.Read(addr), 0x34)
	}

	old := b.Write(0x1fff, 0x56)
	expectByte(t, "old value", old, 0x00)
	expectByte(t, "RAM $07FF", b.Read(0x07ff), 0x56)
	expectByte(t, "old value", b.Write(0x07ff, 0x57), 0x56)
}

func TestPPURegisterMirroring(t *testing.T) {
	b := NewBus()
	b.Write(0x2003, 0x10) // OAMADDR
	b.Write(0x3ffc, 0xaa) // OAMDATA via mirror
	b.Write(0x200b, 0x10) // OAMADDR via mirror
	expectByte(t, "OAMDATA", b.Read(0x2004), 0xaa)

	expectByte(t, "previous OAMADDR", b.Write(0x2003, 0x20), 0x10)
}

func TestPPUData(t *testing.T) {
	p := NewPPU()
	p.WriteRegister(0x2006, 0x21)
	p.WriteRegister(0x2006, 0x08)
	p.WriteRegister(0x2007, 0x11)
	p.WriteRegister(0x2007, 0x22)

	p.ReadRegister(0x2002) // reset the write toggle
	p.WriteRegister(0x2006, 0x21)
	p.WriteRegister(0x2006, 0x08)
	p.ReadRegister(0x2007) // fills the read buffer
	expectByte(t, "PPUDATA", p.ReadRegister(0x2007), 0x11)
	expectByte(t, "PPUDATA", p.ReadRegister(0x2007), 0x22)

	p.WriteRegister(0x2000, ctrlIncrement32)
	p.WriteRegister(0x2006, 0x20)
	p.WriteRegister(0x2006, 0x00)
	p.WriteRegister(0x2007, 0x01)
	p.WriteRegister(0x2007, 0x02)
	expectByte(t, "stride 32", p.vram[0x2020], 0x02)

	p.WriteRegister(0x2005, 0x12)
	p.WriteRegister(0x2005, 0x34)
	if x, y := p.Scroll(); x != 0x12 || y != 0x34 {
		t.Errorf("scroll incorrect. exp: $12,$34, got: $%02X,$%02X", x, y)
	}
}

func TestVBlank(t *testing.T) {
	p := NewPPU()
	ticks := 0
	for !p.VBlank() {
		p.Tick()
		ticks++
		if ticks > DotsPerScanline*ScanlinesPerFrame {
			t.Fatal("vblank never raised")
		}
	}
	if p.Scanline != 241 || p.Dot != 1 {
		t.Errorf("vblank raised at %d/%d", p.Scanline, p.Dot)
	}
	if ticks != 242*DotsPerScanline+1 {
		t.Errorf("vblank timing incorrect. exp: %d, got: %d", 242*DotsPerScanline+1, ticks)
	}

	b := NewBus()
	b.PPU = p
	v := b.Read(0x2002)
	if v&StatusVBlank == 0 {
		t.Error("PPUSTATUS should report vblank")
	}
	if p.VBlank() {
		t.Error("reading PPUSTATUS should clear vblank")
	}

	for p.Scanline != preRenderScanline || p.Dot != 1 {
		p.Tick()
	}
	if p.Frame != 1 {
		t.Errorf("frame count incorrect. exp: 1, got: %d", p.Frame)
	}
}

func TestAPURegisters(t *testing.T) {
	b := NewBus()
	b.Write(0x4000, 0x3f)
	expectByte(t, "old $4000", b.Write(0x4000, 0x30), 0x3f)
	expectByte(t, "write-only read", b.Read(0x4000), 0x00)

	b.Write(0x4015, 0xff)
	expectByte(t, "APU status", b.Read(0x4015), 0x1f)

	b.Write(0x4017, 0x40)
	expectByte(t, "frame counter", b.APU.Register(0x4017), 0x40)

	expectByte(t, "test-mode register", b.Read(0x401a), 0x00)
	expectByte(t, "test-mode write", b.Write(0x401a, 0x12), 0x00)
}

func TestController(t *testing.T) {
	b := NewBus()
	b.Pad1.SetButtons(ButtonA | ButtonStart | ButtonRight)
	b.Pad2.SetButtons(ButtonB)

	b.Write(0x4016, 1)
	expectByte(t, "strobed read", b.Read(0x4016), 1)
	expectByte(t, "strobed read", b.Read(0x4016), 1)
	b.Write(0x4016, 0)

	exp := []byte{1, 0, 0, 1, 0, 0, 0, 1, 1, 1}
	for i, e := range exp {
		if v := b.Read(0x4016); v != e {
			t.Errorf("pad 1 read %d incorrect. exp: %d, got: %d", i, e, v)
		}
	}

	expectByte(t, "pad 2 A", b.Read(0x4017), 0)
	expectByte(t, "pad 2 B", b.Read(0x4017), 1)

	if s := (ButtonA | ButtonStart).String(); s != "A+Start" {
		t.Errorf("button string incorrect: %s", s)
	}
}

func TestNROM(t *testing.T) {
	m := newTestNROM(t, prgBankSize)
	b := NewBus()
	b.Insert(m)

	expectByte(t, "$8100", b.Read(0x8100), 0x01)
	expectByte(t, "mirrored $C100", b.Read(0xc100), 0x01)
	expectByte(t, "$FFFF", b.Read(0xffff), 0x3f)

	expectByte(t, "ROM write", b.Write(0x8100, 0x99), 0x01)
	expectByte(t, "ROM after write", b.Read(0x8100), 0x01)

	b.Write(0x6000, 0x42)
	expectByte(t, "PRG RAM", b.Read(0x6000), 0x42)
	expectByte(t, "unmapped", b.Read(0x5000), 0x00)

	m32 := newTestNROM(t, 2*prgBankSize)
	b.Insert(m32)
	expectByte(t, "32K $C100", b.Read(0xc100), 0x41)

	if _, err := NewNROM(make([]byte, 100)); !errors.Is(err, ErrPRGSize) {
		t.Errorf("expected ErrPRGSize, got %v", err)
	}
}

func TestNoCartridge(t *testing.T) {
	b := NewBus()
	defer func() {
		if r := recover(); r != ErrNoCartridge {
			t.Errorf("expected ErrNoCartridge panic, got %v", r)
		}
	}()
	b.Read(0x8000)
}

func TestClockRatio(t *testing.T) {
	c := NewClock()
	var order []string
	cpuTicks, ppuTicks := 0, 0
	c.Add(TickerFunc(func() { cpuTicks++; order = append(order, "cpu") }), CPUPeriod)
	c.Add(TickerFunc(func() { ppuTicks++; order = append(order, "ppu") }), PPUPeriod)

	if err := c.Run(context.Background(), 12*100); err != nil {
		t.Fatal(err)
	}
	if cpuTicks != 100 || ppuTicks != 300 {
		t.Errorf("tick ratio incorrect. exp: 100/300, got: %d/%d", cpuTicks, ppuTicks)
	}
	// On tick 12 both are due; the CPU goes first.
	if order[2] != "cpu" || order[3] != "ppu" {
		t.Errorf("tick order incorrect: %v", order[:4])
	}
}

func TestClockCancel(t *testing.T) {
	c := NewClock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Run(ctx, 1000); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if c.Ticks != 0 {
		t.Errorf("cancelled clock ran %d ticks", c.Ticks)
	}
}

func TestClockHalt(t *testing.T) {
	c := NewClock()
	c.Add(TickerFunc(func() {
		if c.Ticks == 7 {
			c.Halt()
		}
	}), 1)

	if err := c.Run(context.Background(), 100); !errors.Is(err, ErrHalted) {
		t.Errorf("expected ErrHalted, got %v", err)
	}
	if c.Ticks != 7 {
		t.Errorf("halted clock ticks incorrect. exp: 7, got: %d", c.Ticks)
	}

	// A halt requested outside Run does not stop the next one.
	c.Halt()
	if err := c.Run(context.Background(), 3); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if c.Ticks != 10 {
		t.Errorf("clock ticks incorrect. exp: 10, got: %d", c.Ticks)
	}
}

func TestClockThrottle(t *testing.T) {
	const (
		frequency = 100000
		ticks     = 5000
	)

	c := NewClock()
	c.Throttle = true
	c.Frequency = frequency

	start := time.Now()
	if err := c.Run(context.Background(), ticks); err != nil {
		t.Fatal(err)
	}
	elapsed := time.Since(start)

	want := time.Duration(ticks) * time.Second / frequency
	if elapsed < want {
		t.Errorf("throttled run too fast. exp: >= %v, got: %v", want, elapsed)
	}
	if c.Ticks != ticks {
		t.Errorf("clock ticks incorrect. exp: %d, got: %d", ticks, c.Ticks)
	}
}

func TestConsole(t *testing.T) {
	src := `
	.ORG $8000
reset:
	SEI
	LDX #$FF
	TXS
wait:
	BIT $2002
	BPL wait
	LDA #$01
	STA $0300
loop:
	JMP loop`

	c := NewConsole(assembleNROM(t, src))
	c.Reset()
	if c.CPU.Reg.PC != 0x8000 {
		t.Fatalf("reset PC incorrect. exp: $8000, got: $%04X", c.CPU.Reg.PC)
	}

	if n := c.Step(); n != 2 {
		t.Errorf("SEI cycles incorrect. exp: 2, got: %d", n)
	}
	if c.PPU.Dot != 6 {
		t.Errorf("PPU should run 3 dots per CPU cycle, got dot %d", c.PPU.Dot)
	}

	if err := c.Run(context.Background(), 40000); err != nil {
		t.Fatal(err)
	}
	expectByte(t, "$0300", c.Bus.Read(0x0300), 0x01)
}

func TestConsoleWithoutCartridge(t *testing.T) {
	c := NewConsole(nil)
	defer func() {
		if r := recover(); r != ErrNoCartridge {
			t.Errorf("expected ErrNoCartridge panic, got %v", r)
		}
	}()
	c.Reset()
}

func TestPeek(t *testing.T) {
	b := NewBus()
	b.PPU.status = StatusVBlank
	b.Write(0x0005, 0x77)

	expectByte(t, "peek RAM", b.Peek(0x0805), 0x77)
	expectByte(t, "peek PPUSTATUS", b.Peek(0x2002), 0x00)
	if !b.PPU.VBlank() {
		t.Error("peek should not clear vblank")
	}
	expectByte(t, "peek empty slot", b.Peek(0x8000), 0x00)

	b.Insert(newTestNROM(t, prgBankSize))
	expectByte(t, "peek cartridge", b.Peek(0x8200), 0x02)
}

func TestConsoleCancelFinishesInstruction(t *testing.T) {
	src := `
	.ORG $8000
loop:
	INC $0200
	NOP
	JMP loop`

	c := NewConsole(assembleNROM(t, src))
	c.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Clock.Add(TickerFunc(cancel), 1)

	if err := c.Run(ctx, 1000000); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if c.Clock.Ticks < runSlice {
		t.Errorf("run stopped before the end of a slice: %d ticks", c.Clock.Ticks)
	}
	if !c.CPU.Pipeline().Idle() {
		t.Error("cancelled run left an instruction in flight")
	}
}

func TestConsoleHalt(t *testing.T) {
	src := `
	.ORG $8000
	LDX #$00
loop:
	INX
	CPX #$03
	BNE loop
	STX $0200
	JMP loop`

	c := NewConsole(assembleNROM(t, src))
	c.Reset()
	c.Clock.Add(TickerFunc(func() {
		if c.Bus.Peek(0x0200) == 3 {
			c.Halt()
		}
	}), CPUPeriod)

	if err := c.Run(context.Background(), 1000000); !errors.Is(err, ErrHalted) {
		t.Fatalf("expected ErrHalted, got %v", err)
	}
	if c.CPU.Reg.X != 3 {
		t.Errorf("X incorrect. exp: 3, got: %d", c.CPU.Reg.X)
	}
	if c.CPU.Cycles > 100 {
		t.Errorf("halt was late: %d cycles", c.CPU.Cycles)
	}
}
