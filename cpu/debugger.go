// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "sort"

// A Debugger watches a CPU for execution and data breakpoints. Attach it
// with CPU.AttachDebugger.
type Debugger struct {
	Handler         DebuggerHandler
	breakpoints     map[uint16]*Breakpoint
	dataBreakpoints map[uint16]*DataBreakpoint
}

// The DebuggerHandler interface should be implemented by any object that
// wishes to receive debugger notifications. Both methods are called from
// inside CPU.Cycle, after the triggering instruction has retired or while
// its store is in progress.
type DebuggerHandler interface {
	OnBreakpoint(c *CPU, b *Breakpoint)
	OnDataBreakpoint(c *CPU, b *DataBreakpoint)
}

// A Breakpoint is an address that triggers the handler when the program
// counter reaches it.
type Breakpoint struct {
	Address  uint16 // address of execution breakpoint
	Disabled bool   // this breakpoint is currently disabled
	Hits     int    // number of times the breakpoint has triggered
}

// A DataBreakpoint is an address that triggers the handler when a byte is
// stored to it.
type DataBreakpoint struct {
	Address     uint16 // breakpoint triggered by stores to this address
	Disabled    bool   // this breakpoint is currently disabled
	Conditional bool   // only trigger when Value is stored
	Value       byte   // the value that must be stored if Conditional
	Hits        int    // number of times the breakpoint has triggered
}

// NewDebugger creates a new CPU debugger.
func NewDebugger(handler DebuggerHandler) *Debugger {
	return &Debugger{
		Handler:         handler,
		breakpoints:     make(map[uint16]*Breakpoint),
		dataBreakpoints: make(map[uint16]*DataBreakpoint),
	}
}

// GetBreakpoint looks up a breakpoint by address and returns it if found.
// Otherwise it returns nil.
func (d *Debugger) GetBreakpoint(addr uint16) *Breakpoint {
	return d.breakpoints[addr]
}

// GetBreakpoints returns all breakpoints, sorted by address.
func (d *Debugger) GetBreakpoints() []*Breakpoint {
	bps := make([]*Breakpoint, 0, len(d.breakpoints))
	for _, b := range d.breakpoints {
		bps = append(bps, b)
	}
	sort.Slice(bps, func(i, j int) bool { return bps[i].Address < bps[j].Address })
	return bps
}

// AddBreakpoint adds a breakpoint at addr. An existing breakpoint at the
// same address is replaced.
func (d *Debugger) AddBreakpoint(addr uint16) *Breakpoint {
	b := &Breakpoint{Address: addr}
	d.breakpoints[addr] = b
	return b
}

// RemoveBreakpoint removes the breakpoint at addr, if any.
func (d *Debugger) RemoveBreakpoint(addr uint16) {
	delete(d.breakpoints, addr)
}

// GetDataBreakpoint looks up a data breakpoint by address and returns it
// if found. Otherwise it returns nil.
func (d *Debugger) GetDataBreakpoint(addr uint16) *DataBreakpoint {
	return d.dataBreakpoints[addr]
}

// GetDataBreakpoints returns all data breakpoints, sorted by address.
func (d *Debugger) GetDataBreakpoints() []*DataBreakpoint {
	bps := make([]*DataBreakpoint, 0, len(d.dataBreakpoints))
	for _, b := range d.dataBreakpoints {
		bps = append(bps, b)
	}
	sort.Slice(bps, func(i, j int) bool { return bps[i].Address < bps[j].Address })
	return bps
}

// AddDataBreakpoint adds an unconditional data breakpoint at addr.
func (d *Debugger) AddDataBreakpoint(addr uint16) *DataBreakpoint {
	b := &DataBreakpoint{Address: addr}
	d.dataBreakpoints[addr] = b
	return b
}

// AddConditionalDataBreakpoint adds a data breakpoint at addr that only
// triggers when value is stored.
func (d *Debugger) AddConditionalDataBreakpoint(addr uint16, value byte) *DataBreakpoint {
	b := &DataBreakpoint{Address: addr, Conditional: true, Value: value}
	d.dataBreakpoints[addr] = b
	return b
}

// RemoveDataBreakpoint removes the data breakpoint at addr, if any.
func (d *Debugger) RemoveDataBreakpoint(addr uint16) {
	delete(d.dataBreakpoints, addr)
}

func (d *Debugger) onUpdatePC(c *CPU, addr uint16) {
	b, ok := d.breakpoints[addr]
	if !ok || b.Disabled {
		return
	}
	b.Hits++
	if d.Handler != nil {
		d.Handler.OnBreakpoint(c, b)
	}
}

func (d *Debugger) onDataStore(c *CPU, addr uint16, v byte) {
	b, ok := d.dataBreakpoints[addr]
	if !ok || b.Disabled || (b.Conditional && b.Value != v) {
		return
	}
	b.Hits++
	if d.Handler != nil {
		d.Handler.OnDataBreakpoint(c, b)
	}
}
