// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"context"

	"github.com/beevik/go2a03/cpu"
	"github.com/beevik/go2a03/nes"
)

// A machine is the system the host drives: a CPU and the bus it is
// attached to.
type machine interface {
	// CPU returns the machine's processor.
	CPU() *cpu.CPU

	// Bus returns the CPU's view of memory. Reads and writes through it
	// have the same side effects they have for the CPU.
	Bus() cpu.Bus

	// Peek reads memory for display without side effects.
	Peek(addr uint16) byte

	// Step retires one instruction and returns the CPU cycles it took.
	Step() int

	// Reset runs the reset sequence.
	Reset()

	String() string
}

// A flatMachine is a CPU wired to 64K of RAM.
type flatMachine struct {
	mem *cpu.FlatMemory
	cpu *cpu.CPU
}

func newFlatMachine() *flatMachine {
	mem := cpu.NewFlatMemory()
	return &flatMachine{mem: mem, cpu: cpu.NewCPU(mem)}
}

func (m *flatMachine) CPU() *cpu.CPU         { return m.cpu }
func (m *flatMachine) Bus() cpu.Bus          { return m.mem }
func (m *flatMachine) Peek(addr uint16) byte { return m.mem.Read(addr) }
func (m *flatMachine) Step() int             { return m.cpu.Step() }
func (m *flatMachine) Reset()                { m.cpu.Reset() }
func (m *flatMachine) String() string        { return "64K flat memory" }

// A runner is a machine that can run freely under its own clock instead
// of one instruction at a time.
type runner interface {
	// Run runs until ctx is cancelled or Halt is called.
	Run(ctx context.Context) error

	// Halt stops Run at the next instruction boundary. It is called from
	// debugger handlers on the running goroutine.
	Halt()

	// SetThrottle turns wall-clock pacing on or off.
	SetThrottle(on bool)
}

// An nesMachine is an NES console with a cartridge inserted. Stepping it
// advances the PPU along with the CPU.
type nesMachine struct {
	console *nes.Console
}

func newNESMachine(m nes.Mapper) *nesMachine {
	return &nesMachine{console: nes.NewConsole(m)}
}

func (m *nesMachine) CPU() *cpu.CPU         { return m.console.CPU }
func (m *nesMachine) Bus() cpu.Bus          { return m.console.Bus }
func (m *nesMachine) Peek(addr uint16) byte { return m.console.Bus.Peek(addr) }
func (m *nesMachine) Step() int             { return m.console.Step() }
func (m *nesMachine) Reset()                { m.console.Reset() }

// CPU cycles per console Run call: one NTSC frame.
const frameCycles = nes.CPUFrequency / 60

func (m *nesMachine) Run(ctx context.Context) error {
	for {
		if err := m.console.Run(ctx, frameCycles); err != nil {
			return err
		}
	}
}

func (m *nesMachine) Halt()               { m.console.Halt() }
func (m *nesMachine) SetThrottle(on bool) { m.console.Clock.Throttle = on }

func (m *nesMachine) String() string {
	if cart := m.console.Bus.Cartridge(); cart != nil {
		return "NES, " + cart.String()
	}
	return "NES, no cartridge"
}

// peekBus adapts a machine's side-effect-free reads to cpu.Bus for the
// disassembler.
type peekBus struct {
	m machine
}

func (b peekBus) Read(addr uint16) byte {
	return b.m.Peek(addr)
}

func (b peekBus) Write(addr uint16, v byte) byte {
	return b.m.Bus().Write(addr, v)
}
