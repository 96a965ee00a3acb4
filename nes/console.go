// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nes

import (
	"context"

	"github.com/beevik/go2a03/cpu"
	"github.com/golang/glog"
)

// A Console wires a CPU and PPU to a shared bus and master clock.
type Console struct {
	Bus     *Bus
	CPU     *cpu.CPU
	PPU     *PPU
	Clock   *Clock
	retired bool
}

// NewConsole creates a console with the cartridge inserted. Pass a nil
// mapper to start with an empty cartridge slot.
func NewConsole(m Mapper) *Console {
	bus := NewBus()
	if m != nil {
		bus.Insert(m)
	}

	c := &Console{
		Bus:   bus,
		CPU:   cpu.NewCPU(bus),
		PPU:   bus.PPU,
		Clock: NewClock(),
	}
	c.Clock.Add(TickerFunc(c.tickCPU), CPUPeriod)
	c.Clock.Add(c.PPU, PPUPeriod)
	return c
}

func (c *Console) tickCPU() {
	if c.CPU.Cycle() {
		c.retired = true
	}
}

// Reset runs the CPU reset sequence and returns the PPU to the start of
// a frame.
func (c *Console) Reset() {
	c.PPU.Reset()
	c.CPU.Reset()
	glog.Infof("nes: reset, PC=$%04X", c.CPU.Reg.PC)
}

// Step runs the clock until the CPU retires one instruction, ticking the
// PPU in lock-step. It returns the number of CPU cycles taken.
func (c *Console) Step() int {
	start := c.CPU.Cycles
	c.retired = false
	for !c.retired {
		c.Clock.Tick()
	}
	return int(c.CPU.Cycles - start)
}

// Run runs the console for the given number of CPU cycles, until ctx is
// cancelled or until Halt is called. A cancelled run finishes the
// instruction in flight so the CPU always stops between instructions.
func (c *Console) Run(ctx context.Context, cycles uint64) error {
	err := c.Clock.Run(ctx, cycles*CPUPeriod)
	if err != nil && err != ErrHalted {
		for !c.CPU.Pipeline().Idle() {
			c.Clock.Tick()
		}
	}
	return err
}

// Halt stops a Run once the current master tick completes. Debugger
// handlers call it to stop on a breakpoint.
func (c *Console) Halt() {
	c.Clock.Halt()
}
