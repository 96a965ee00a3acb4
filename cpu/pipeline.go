// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// A Pipeline holds the instruction currently in flight and the number of
// clock ticks left before it retires. It lets a multi-cycle instruction
// occupy one tick per call while its effects are applied on the last one.
//
// The zero value is an idle pipeline.
type Pipeline struct {
	opcode    byte
	remaining int
	inFlight  bool
}

// Idle returns true if no instruction is in flight.
func (p *Pipeline) Idle() bool {
	return !p.inFlight
}

// Remaining returns the number of ticks left before the in-flight
// instruction retires, or 0 when idle.
func (p *Pipeline) Remaining() int {
	return p.remaining
}

// Push loads an opcode that will take 'cycles' ticks to complete. Pushing
// onto a busy pipeline is a scheduling bug and panics with
// ErrPipelineBusy.
func (p *Pipeline) Push(opcode byte, cycles int) {
	if p.inFlight {
		panic(ErrPipelineBusy)
	}
	if cycles < 1 {
		cycles = 1
	}
	p.opcode = opcode
	p.remaining = cycles
	p.inFlight = true
}

// Next advances the pipeline by one tick. It returns the opcode and true
// on the tick that completes the instruction, after which the pipeline is
// idle again. All other ticks return false.
func (p *Pipeline) Next() (opcode byte, ok bool) {
	if !p.inFlight {
		return 0, false
	}

	p.remaining--
	if p.remaining > 0 {
		return 0, false
	}

	opcode = p.opcode
	p.Reset()
	return opcode, true
}

// Reset drops any in-flight instruction.
func (p *Pipeline) Reset() {
	*p = Pipeline{}
}
