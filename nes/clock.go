// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nes

import (
	"context"
	"errors"
	"time"
)

// ErrHalted is returned by Run when Halt stopped the clock.
var ErrHalted = errors.New("nes: clock halted")

// NTSC timing. Component periods are measured in master clock ticks.
const (
	MasterFrequency = 21477272
	CPUPeriod       = 12
	PPUPeriod       = 4
	CPUFrequency    = MasterFrequency / CPUPeriod
)

// A Ticker is a component driven by the clock.
type Ticker interface {
	Tick()
}

// TickerFunc adapts a function to the Ticker interface.
type TickerFunc func()

// Tick calls f.
func (f TickerFunc) Tick() {
	f()
}

type clocked struct {
	t      Ticker
	period uint64
}

// A Clock is the master oscillator. Each component ticks once every
// 'period' master ticks, in the order the components were added.
type Clock struct {
	components []clocked
	Ticks      uint64 // elapsed master ticks
	Throttle   bool   // keep pace with Frequency in Run
	Frequency  int    // master ticks per second when throttled
	halted     bool
}

// Number of master ticks run between context and throttle checks.
const runSlice = 1 << 14

// NewClock creates an NTSC master clock with no components.
func NewClock() *Clock {
	return &Clock{Frequency: MasterFrequency}
}

// Add registers a component that ticks every 'period' master ticks.
func (c *Clock) Add(t Ticker, period int) {
	if period < 1 {
		period = 1
	}
	c.components = append(c.components, clocked{t: t, period: uint64(period)})
}

// Tick advances the clock by one master tick and ticks every component
// that is due.
func (c *Clock) Tick() {
	c.Ticks++
	for _, comp := range c.components {
		if c.Ticks%comp.period == 0 {
			comp.t.Tick()
		}
	}
}

// Halt stops a Run in progress once the current master tick completes.
// It must be called from a component's Tick, not from another goroutine;
// cancel the Run's context for that.
func (c *Clock) Halt() {
	c.halted = true
}

// Run advances the clock by 'ticks' master ticks. It stops early and
// returns the context's error if ctx is cancelled, or ErrHalted if a
// component called Halt. The context is checked between slices of
// runSlice ticks. With Throttle set, Run sleeps as needed so the clock
// runs no faster than Frequency.
func (c *Clock) Run(ctx context.Context, ticks uint64) error {
	c.halted = false
	start := time.Now()
	var done uint64
	for done < ticks {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := min(ticks-done, runSlice)
		for i := uint64(0); i < n; i++ {
			c.Tick()
			if c.halted {
				c.halted = false
				return ErrHalted
			}
		}
		done += n

		if c.Throttle && c.Frequency > 0 {
			due := start.Add(time.Duration(done) * time.Second / time.Duration(c.Frequency))
			if d := time.Until(due); d > 0 {
				time.Sleep(d)
			}
		}
	}
	return nil
}
