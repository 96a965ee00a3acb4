// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host allows you to create a "host" that emulates a system built
// around the NES 2A03 CPU, either with 64K of flat memory or as an NES
// console with an NROM cartridge, along with a built-in assembler, a
// built-in debugger, and other useful tools.
//
// Within the host it is possible to assemble and load machine code into
// memory, debug and step through machine code, measure the number of CPU
// cycles elapsed, set address and data breakpoints, dump the contents of
// memory, disassemble the contents of memory, manipulate CPU registers and
// memory, and evaluate arbitrary expressions.
package host

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/beevik/cmd"
	"github.com/beevik/go2a03/asm"
	"github.com/beevik/go2a03/cpu"
	"github.com/beevik/go2a03/disasm"
	"github.com/beevik/go2a03/nes"
	"github.com/fatih/color"
	"github.com/golang/glog"
)

// Origin used by the assemble command when none is given.
const defaultOrigin = 0x1000

var errQuit = errors.New("exiting program")

type displayFlags uint8

const (
	displayRegisters displayFlags = 1 << iota
	displayCycles
	displayAnnotations

	displayAll = displayRegisters | displayCycles | displayAnnotations
)

type state int32

const (
	stateProcessingCommands state = iota
	stateRunning
	stateBreakpoint
	stateInterrupted
	stateFatal
)

type palette struct {
	err    *color.Color
	notice *color.Color
	pc     *color.Color
}

// A Host represents an emulated 2A03 system, a built-in assembler, a
// built-in debugger, and other useful tools.
type Host struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	machine     machine
	debugger    *cpu.Debugger
	lastCmd     *cmd.Selection
	state       atomic.Int32
	cancelMu    sync.Mutex
	cancelRun   context.CancelFunc
	exprParser  *exprParser
	settings    *settings
	labels      map[string]uint16
	binOrigins  map[string]uint16
	annotations map[uint16]string
	colors      palette
}

// New creates a new host with a CPU attached to 64K of flat memory.
func New() *Host {
	h := &Host{
		exprParser:  newExprParser(),
		settings:    newSettings(),
		labels:      make(map[string]uint16),
		binOrigins:  make(map[string]uint16),
		annotations: make(map[uint16]string),
		colors: palette{
			err:    color.New(color.FgRed),
			notice: color.New(color.FgYellow),
			pc:     color.New(color.FgCyan),
		},
	}
	h.output = bufio.NewWriter(os.Stdout)
	h.debugger = cpu.NewDebugger(newDebugHandler(h))
	h.setMachine(newFlatMachine())
	h.onSettingsUpdate()
	return h
}

func (h *Host) setMachine(m machine) {
	if h.machine != nil {
		h.machine.CPU().DetachDebugger()
	}
	h.machine = m
	m.CPU().AttachDebugger(h.debugger)
	if r, ok := m.(runner); ok {
		r.SetThrottle(h.settings.Throttle)
	}
	glog.Infof("host: machine is %s", m)
}

func (h *Host) cpu() *cpu.CPU {
	return h.machine.CPU()
}

func (h *Host) getState() state {
	return state(h.state.Load())
}

func (h *Host) setState(s state) {
	h.state.Store(int32(s))
}

// RunCommands accepts host commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the next command to be entered. It returns when the
// input is exhausted or the quit command runs.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	h.input = bufio.NewScanner(r)
	h.output = bufio.NewWriter(w)
	h.interactive = interactive

	if interactive {
		h.println()
	}

	h.displayPC()

	for {
		h.prompt()

		line, err := h.getLine()
		if err != nil {
			break
		}

		var c cmd.Selection
		if line = strings.TrimSpace(line); line != "" {
			c, err = cmds.Lookup(line)
			switch {
			case err == cmd.ErrNotFound:
				h.errorf("Command not found.\n")
				continue
			case err == cmd.ErrAmbiguous:
				h.errorf("Command is ambiguous.\n")
				continue
			case err != nil:
				h.errorf("ERROR: %v.\n", err)
				continue
			}
		} else if h.lastCmd != nil {
			c = *h.lastCmd
		}

		if c.Command == nil {
			if f := strings.Fields(line); len(f) == 1 {
				if g, ok := findGroup(f[0]); ok {
					h.displayCommands(g)
				}
			}
			continue
		}
		h.lastCmd = &c

		fn := c.Command.Data.(*command).handler
		if err = fn(h, c); err != nil {
			break
		}
	}
	h.flush()
}

// Break interrupts a running CPU. It is safe to call from another
// goroutine.
func (h *Host) Break() {
	if !h.state.CompareAndSwap(int32(stateRunning), int32(stateInterrupted)) {
		return
	}
	h.cancelMu.Lock()
	if h.cancelRun != nil {
		h.cancelRun()
	}
	h.cancelMu.Unlock()
}

func (h *Host) setCancelRun(cancel context.CancelFunc) {
	h.cancelMu.Lock()
	h.cancelRun = cancel
	h.cancelMu.Unlock()
}

// AssembleFile assembles a file on disk and saves the machine code next
// to it with a .bin extension.
func (h *Host) AssembleFile(filename string) error {
	_, err := h.assemble(filename, defaultOrigin)
	return err
}

// LoadCartridge switches the host to NES mode, inserts an NROM cartridge
// built from the raw PRG image in filename, and resets the console.
func (h *Host) LoadCartridge(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	m, err := nes.LoadNROM(f)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(filename), err)
	}

	h.setMachine(newNESMachine(m))
	h.reset()
	return nil
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) errorf(format string, args ...any) {
	h.colors.err.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) noticef(format string, args ...any) {
	h.colors.notice.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return h.input.Text(), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt() {
	if h.interactive {
		h.printf("* ")
	}
}

func (h *Host) displayPC() {
	if h.interactive {
		d, _ := h.disassemble(h.cpu().Reg.PC, displayAll)
		h.colors.pc.Fprintln(h.output, d)
		h.flush()
	}
}

func (h *Host) cmdAnnotate(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.errorf("%v\n", err)
		return nil
	}

	annotation := strings.Join(c.Args[1:], " ")
	if annotation == "" {
		delete(h.annotations, addr)
		h.printf("Annotation removed at $%04X.\n", addr)
	} else {
		h.annotations[addr] = annotation
		h.printf("Annotation added at $%04X.\n", addr)
	}
	return nil
}

func (h *Host) cmdAssemble(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}

	origin := uint16(defaultOrigin)
	if len(c.Args) > 1 {
		var err error
		if origin, err = h.parseExpr(c.Args[1]); err != nil {
			h.errorf("%v\n", err)
			return nil
		}
	}

	h.assemble(c.Args[0], origin)
	return nil
}

func (h *Host) assemble(filename string, origin uint16) (*asm.Assembly, error) {
	if filepath.Ext(filename) == "" {
		filename += ".asm"
	}

	assembly, binPath, err := asm.AssembleFile(filename, origin)
	if err != nil {
		h.errorf("Failed to assemble '%s':\n%v\n", filepath.Base(filename), err)
		return nil, err
	}

	h.labels = assembly.Labels
	if abs, err := filepath.Abs(binPath); err == nil {
		h.binOrigins[abs] = assembly.Origin
	}
	glog.Infof("host: assembled %s to %s", filename, binPath)
	h.printf("Assembled '%s' to '%s' ($%04X..$%04X).\n",
		filepath.Base(filename), filepath.Base(binPath),
		assembly.Origin, int(assembly.Origin)+len(assembly.Code)-1)
	return assembly, nil
}

func (h *Host) cmdBreakpointList(c cmd.Selection) error {
	h.println("Addr  Enabled  Hits")
	h.println("----- -------  ----")
	for _, b := range h.debugger.GetBreakpoints() {
		h.printf("$%04X %-5v    %d\n", b.Address, !b.Disabled, b.Hits)
	}
	return nil
}

func (h *Host) cmdBreakpointAdd(c cmd.Selection) error {
	addr, ok := h.addressArg(c)
	if !ok {
		return nil
	}
	h.debugger.AddBreakpoint(addr)
	h.printf("Breakpoint added at $%04X.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointRemove(c cmd.Selection) error {
	b, ok := h.breakpointArg(c)
	if !ok {
		return nil
	}
	h.debugger.RemoveBreakpoint(b.Address)
	h.printf("Breakpoint at $%04X removed.\n", b.Address)
	return nil
}

func (h *Host) cmdBreakpointEnable(c cmd.Selection) error {
	b, ok := h.breakpointArg(c)
	if !ok {
		return nil
	}
	b.Disabled = false
	h.printf("Breakpoint at $%04X enabled.\n", b.Address)
	return nil
}

func (h *Host) cmdBreakpointDisable(c cmd.Selection) error {
	b, ok := h.breakpointArg(c)
	if !ok {
		return nil
	}
	b.Disabled = true
	h.printf("Breakpoint at $%04X disabled.\n", b.Address)
	return nil
}

func (h *Host) cmdCartridge(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}
	if err := h.LoadCartridge(c.Args[0]); err != nil {
		h.errorf("Failed to insert cartridge: %v\n", err)
		return nil
	}
	h.printf("Inserted '%s' (%s).\n", filepath.Base(c.Args[0]), h.machine)
	return nil
}

func (h *Host) cmdDataBreakpointList(c cmd.Selection) error {
	h.println("Addr  Enabled  Value  Hits")
	h.println("----- -------  -----  ----")
	for _, b := range h.debugger.GetDataBreakpoints() {
		value := "<none>"
		if b.Conditional {
			value = fmt.Sprintf("$%02X", b.Value)
		}
		h.printf("$%04X %-5v    %-6s %d\n", b.Address, !b.Disabled, value, b.Hits)
	}
	return nil
}

func (h *Host) cmdDataBreakpointAdd(c cmd.Selection) error {
	addr, ok := h.addressArg(c)
	if !ok {
		return nil
	}

	if len(c.Args) > 1 {
		value, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.errorf("%v\n", err)
			return nil
		}
		h.debugger.AddConditionalDataBreakpoint(addr, byte(value))
		h.printf("Conditional data breakpoint added at $%04X for value $%02X.\n", addr, byte(value))
	} else {
		h.debugger.AddDataBreakpoint(addr)
		h.printf("Data breakpoint added at $%04X.\n", addr)
	}
	return nil
}

func (h *Host) cmdDataBreakpointRemove(c cmd.Selection) error {
	b, ok := h.dataBreakpointArg(c)
	if !ok {
		return nil
	}
	h.debugger.RemoveDataBreakpoint(b.Address)
	h.printf("Data breakpoint at $%04X removed.\n", b.Address)
	return nil
}

func (h *Host) cmdDataBreakpointEnable(c cmd.Selection) error {
	b, ok := h.dataBreakpointArg(c)
	if !ok {
		return nil
	}
	b.Disabled = false
	h.printf("Data breakpoint at $%04X enabled.\n", b.Address)
	return nil
}

func (h *Host) cmdDataBreakpointDisable(c cmd.Selection) error {
	b, ok := h.dataBreakpointArg(c)
	if !ok {
		return nil
	}
	b.Disabled = true
	h.printf("Data breakpoint at $%04X disabled.\n", b.Address)
	return nil
}

func (h *Host) cmdDisassemble(c cmd.Selection) error {
	addr := h.settings.NextDisasmAddr
	if len(c.Args) == 0 || c.Args[0] == "$" {
		if addr == 0 {
			addr = h.cpu().Reg.PC
		}
	} else {
		a, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.errorf("%v\n", err)
			return nil
		}
		addr = a
	}

	lines := h.settings.DisasmLines
	if len(c.Args) > 1 {
		l, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.errorf("%v\n", err)
			return nil
		}
		lines = int(l)
	}

	for i := 0; i < lines; i++ {
		d, next := h.disassemble(addr, displayAnnotations)
		h.println(d)
		addr = next
	}

	h.settings.NextDisasmAddr = addr
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", lines)}
	return nil
}

func (h *Host) cmdEvaluate(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}

	v, err := h.exprParser.Parse(strings.Join(c.Args, " "), h)
	if err != nil {
		h.errorf("%v\n", err)
		return nil
	}

	switch {
	case v >= 0 && v <= 0xffff:
		h.printf("$%04X (%d)\n", v, v)
	default:
		h.printf("%d\n", v)
	}
	return nil
}

func (h *Host) cmdHelp(c cmd.Selection) error {
	if len(c.Args) == 0 {
		h.displayCommands(root)
		return nil
	}

	if len(c.Args) == 1 {
		if g, ok := findGroup(c.Args[0]); ok {
			h.displayCommands(g)
			return nil
		}
	}

	s, err := cmds.Lookup(strings.Join(c.Args, " "))
	if err != nil || s.Command == nil {
		h.errorf("No help available for '%s'.\n", strings.Join(c.Args, " "))
		return nil
	}

	cm := s.Command.Data.(*command)
	if cm.usage != "" {
		h.printf("Syntax: %s\n\n", cm.usage)
	}
	switch {
	case cm.description != "":
		h.printf("Description:\n%s\n\n", indentWrap(3, cm.description))
	case cm.brief != "":
		h.printf("Description:\n%s.\n\n", indentWrap(3, cm.brief))
	}
	return nil
}

func (h *Host) cmdLabels(c cmd.Selection) error {
	if len(h.labels) == 0 {
		h.println("No labels defined.")
		return nil
	}

	names := make([]string, 0, len(h.labels))
	for name := range h.labels {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := h.labels[names[i]], h.labels[names[j]]
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		h.printf("%-16s $%04X\n", name, h.labels[name])
	}
	return nil
}

func (h *Host) cmdLoad(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}

	filename := c.Args[0]
	if filepath.Ext(filename) == "" {
		filename += ".bin"
	}

	loadAddr := -1
	if len(c.Args) >= 2 {
		addr, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.errorf("%v\n", err)
			return nil
		}
		loadAddr = int(addr)
	}

	h.load(filename, loadAddr)
	return nil
}

func (h *Host) load(filename string, addr int) {
	filename, err := filepath.Abs(filename)
	if err != nil {
		h.errorf("Failed to open '%s': %v\n", filepath.Base(filename), err)
		return
	}

	if addr == -1 {
		origin, ok := h.binOrigins[filename]
		if !ok {
			h.errorf("File '%s' was not assembled here and requires an address.\n", filepath.Base(filename))
			return
		}
		addr = int(origin)
	}

	code, err := os.ReadFile(filename)
	if err != nil {
		h.errorf("Failed to read '%s': %v\n", filepath.Base(filename), err)
		return
	}

	origin := uint16(addr)
	bus := h.machine.Bus()
	for i, v := range code {
		bus.Write(origin+uint16(i), v)
	}

	glog.Infof("host: loaded %s at $%04X", filename, origin)
	h.printf("Loaded '%s' to $%04X..$%04X.\n", filepath.Base(filename), origin, int(origin)+len(code)-1)

	h.cpu().SetPC(origin)
	h.settings.NextDisasmAddr = origin
}

func (h *Host) cmdMemoryDump(c cmd.Selection) error {
	addr := h.settings.NextMemDumpAddr
	if len(c.Args) > 0 && c.Args[0] != "$" {
		a, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.errorf("%v\n", err)
			return nil
		}
		addr = a
	}

	bytes := h.settings.MemDumpBytes
	if len(c.Args) >= 2 {
		n, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.errorf("%v\n", err)
			return nil
		}
		bytes = int(n)
	}
	if bytes <= 0 {
		return nil
	}

	h.dumpMemory(addr, bytes)

	h.settings.NextMemDumpAddr = addr + uint16(bytes)
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", bytes)}
	return nil
}

func (h *Host) cmdMemorySet(c cmd.Selection) error {
	if len(c.Args) < 2 {
		h.displayUsage(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.errorf("%v\n", err)
		return nil
	}

	values := make([]byte, 0, len(c.Args)-1)
	for _, arg := range c.Args[1:] {
		v, err := h.parseExpr(arg)
		if err != nil {
			h.errorf("%v\n", err)
			return nil
		}
		values = append(values, byte(v))
	}

	bus := h.machine.Bus()
	for i, v := range values {
		bus.Write(addr+uint16(i), v)
	}
	h.printf("Stored %d byte(s) at $%04X.\n", len(values), addr)
	return nil
}

func (h *Host) cmdMemoryCopy(c cmd.Selection) error {
	if len(c.Args) < 3 {
		h.displayUsage(c)
		return nil
	}

	var addr [3]uint16
	for i := range addr {
		a, err := h.parseExpr(c.Args[i])
		if err != nil {
			h.errorf("%v\n", err)
			return nil
		}
		addr[i] = a
	}

	dst, begin, end := addr[0], addr[1], addr[2]
	if end < begin {
		h.errorf("Source range $%04X..$%04X is empty.\n", begin, end)
		return nil
	}

	n := int(end-begin) + 1
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = h.machine.Peek(begin + uint16(i))
	}
	bus := h.machine.Bus()
	for i, v := range buf {
		bus.Write(dst+uint16(i), v)
	}
	h.printf("Copied $%04X..$%04X to $%04X.\n", begin, end, dst)
	return nil
}

func (h *Host) cmdQuit(c cmd.Selection) error {
	return errQuit
}

func (h *Host) cmdRegister(c cmd.Selection) error {
	if len(c.Args) == 0 {
		d, _ := h.disassemble(h.cpu().Reg.PC, displayAll)
		h.println(d)
		return nil
	}
	if len(c.Args) < 2 {
		h.displayUsage(c)
		return nil
	}

	v, err := h.exprParser.Parse(strings.Join(c.Args[1:], " "), h)
	if err != nil {
		h.errorf("%v\n", err)
		return nil
	}

	reg := &h.cpu().Reg
	key := strings.ToUpper(c.Args[0])
	switch key {
	case "A":
		reg.A = byte(v)
	case "X":
		reg.X = byte(v)
	case "Y":
		reg.Y = byte(v)
	case "SP":
		reg.SP = byte(v)
	case "PC", ".":
		key = "PC"
		reg.PC = uint16(v)
		h.settings.NextDisasmAddr = reg.PC
	default:
		flag, ok := flagNames[key]
		if !ok {
			h.errorf("Unknown register '%s'.\n", c.Args[0])
			return nil
		}
		reg.P.Set(flag, v != 0)
		h.printf("Flag %s set to %v.\n", key, v != 0)
		return nil
	}

	h.printf("Register %s set to $%0*X.\n", key, width(key), v&0xffff)
	return nil
}

var flagNames = map[string]cpu.Status{
	"N": cpu.Negative, "NEGATIVE": cpu.Negative,
	"V": cpu.Overflow, "OVERFLOW": cpu.Overflow,
	"D": cpu.Decimal, "DECIMAL": cpu.Decimal,
	"I": cpu.InterruptDisable, "INTERRUPTDISABLE": cpu.InterruptDisable,
	"Z": cpu.Zero, "ZERO": cpu.Zero,
	"C": cpu.Carry, "CARRY": cpu.Carry,
}

func width(reg string) int {
	if reg == "PC" {
		return 4
	}
	return 2
}

func (h *Host) cmdReset(c cmd.Selection) error {
	h.reset()
	h.displayPC()
	return nil
}

func (h *Host) reset() {
	h.protect(h.machine.Reset)
	h.settings.NextDisasmAddr = h.cpu().Reg.PC
}

func (h *Host) cmdRun(c cmd.Selection) error {
	if len(c.Args) > 0 {
		pc, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.errorf("%v\n", err)
			return nil
		}
		h.cpu().SetPC(pc)
	}

	h.printf("Running from $%04X. Press ctrl-C to break.\n", h.cpu().Reg.PC)

	h.setState(stateRunning)
	if r, ok := h.machine.(runner); ok && !h.settings.Trace && !glog.V(2) {
		h.runFree(r)
	} else {
		for h.getState() == stateRunning {
			h.step()
		}
	}
	h.finishRun()
	return nil
}

// Run a machine under its own clock until a breakpoint, a fatal error or
// Break stops it.
func (h *Host) runFree(r runner) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.setCancelRun(cancel)
	defer h.setCancelRun(nil)
	if h.getState() != stateRunning {
		return
	}

	h.protect(func() {
		err := r.Run(ctx)
		glog.V(1).Infof("host: free run stopped: %v", err)
	})
}

func (h *Host) cmdSet(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
		h.flush()

	case 1:
		h.displayUsage(c)

	default:
		key, value := c.Args[0], strings.Join(c.Args[1:], " ")

		var err error
		switch h.settings.Kind(key) {
		case reflect.Invalid:
			err = fmt.Errorf("setting '%s' not found", key)
		case reflect.Bool:
			var b bool
			if b, err = stringToBool(value); err == nil {
				err = h.settings.Set(key, b)
			}
		default:
			var v int64
			if v, err = h.exprParser.Parse(value, h); err == nil {
				err = h.settings.Set(key, v)
			}
		}

		if err != nil {
			h.errorf("%v\n", err)
			return nil
		}
		h.printf("Setting %s updated.\n", h.settings.Name(key))
		h.onSettingsUpdate()
	}
	return nil
}

func (h *Host) cmdStepIn(c cmd.Selection) error {
	h.stepN(c, h.step)
	return nil
}

func (h *Host) cmdStepOver(c cmd.Selection) error {
	h.stepN(c, h.stepOver)
	return nil
}

func (h *Host) cmdStepOut(c cmd.Selection) error {
	h.setState(stateRunning)
	h.stepOut()
	h.displayPC()
	h.finishRun()
	return nil
}

// Step the CPU with fn as many times as the selection's optional count
// argument requests, displaying the last MaxStepLines instructions.
func (h *Host) stepN(c cmd.Selection, fn func()) {
	count := 1
	if len(c.Args) > 0 {
		n, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.errorf("%v\n", err)
			return
		}
		count = int(n)
	}

	h.setState(stateRunning)
	for i := count - 1; i >= 0 && h.getState() == stateRunning; i-- {
		fn()
		switch {
		case i == h.settings.MaxStepLines:
			h.println("...")
		case i < h.settings.MaxStepLines && h.getState() == stateRunning:
			h.displayPC()
		}
	}
	h.finishRun()
}

func (h *Host) finishRun() {
	if h.getState() == stateInterrupted {
		h.println()
		h.noticef("Interrupted at $%04X.\n", h.cpu().Reg.PC)
		h.displayPC()
	}
	h.setState(stateProcessingCommands)
	h.settings.NextDisasmAddr = h.cpu().Reg.PC
}

// Execute one instruction. A fatal emulation error stops the run.
func (h *Host) step() {
	if h.settings.Trace {
		d, _ := h.disassemble(h.cpu().Reg.PC, displayRegisters|displayCycles)
		h.println(d)
	}
	if glog.V(2) {
		line, _ := disasm.Disassemble(peekBus{h.machine}, h.cpu().Reg.PC)
		glog.Infof("host: $%04X %-14s %s", h.cpu().Reg.PC, line, h.cpu().Reg)
	}
	h.protect(func() { h.machine.Step() })
}

// Run fn, converting a panic carrying an error into a reported fatal
// stop.
func (h *Host) protect(fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err, ok := r.(error)
		if !ok {
			panic(r)
		}
		glog.Errorf("host: fatal emulation error: %v", err)
		h.errorf("Fatal: %v.\n", err)
		h.setState(stateFatal)
	}()
	fn()
}

// Step over a subroutine call by running until the instruction after the
// JSR is reached with the stack unwound.
func (h *Host) stepOver() {
	c := h.cpu()
	inst, ok := cpu.Find(h.machine.Peek(c.Reg.PC))
	if !ok || inst.Name != "JSR" {
		h.step()
		return
	}

	next := c.Reg.PC + uint16(inst.Length)
	sp := c.Reg.SP
	h.step()
	for h.getState() == stateRunning && (c.Reg.PC != next || c.Reg.SP != sp) {
		h.step()
	}
}

// Step until the current subroutine returns.
func (h *Host) stepOut() {
	c := h.cpu()
	depth := 0
	for h.getState() == stateRunning {
		inst, ok := cpu.Find(h.machine.Peek(c.Reg.PC))
		h.step()
		if !ok {
			continue
		}
		switch inst.Name {
		case "JSR":
			depth++
		case "RTS", "RTI":
			if depth == 0 {
				return
			}
			depth--
		}
	}
}

func (h *Host) onSettingsUpdate() {
	h.exprParser.hexMode = h.settings.HexMode
	if r, ok := h.machine.(runner); ok {
		r.SetThrottle(h.settings.Throttle)
	}
	for _, c := range []*color.Color{h.colors.err, h.colors.notice, h.colors.pc} {
		if h.settings.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

func (h *Host) parseExpr(expr string) (uint16, error) {
	v, err := h.exprParser.Parse(expr, h)
	if err != nil {
		return 0, err
	}
	if v < -0x8000 || v > 0xffff {
		return 0, fmt.Errorf("value %d out of range", v)
	}
	return uint16(v), nil
}

func (h *Host) addressArg(c cmd.Selection) (uint16, bool) {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return 0, false
	}
	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.errorf("%v\n", err)
		return 0, false
	}
	return addr, true
}

func (h *Host) breakpointArg(c cmd.Selection) (*cpu.Breakpoint, bool) {
	addr, ok := h.addressArg(c)
	if !ok {
		return nil, false
	}
	b := h.debugger.GetBreakpoint(addr)
	if b == nil {
		h.errorf("No breakpoint was set on $%04X.\n", addr)
		return nil, false
	}
	return b, true
}

func (h *Host) dataBreakpointArg(c cmd.Selection) (*cpu.DataBreakpoint, bool) {
	addr, ok := h.addressArg(c)
	if !ok {
		return nil, false
	}
	b := h.debugger.GetDataBreakpoint(addr)
	if b == nil {
		h.errorf("No data breakpoint was set on $%04X.\n", addr)
		return nil, false
	}
	return b, true
}

func (h *Host) disassemble(addr uint16, flags displayFlags) (str string, next uint16) {
	var line string
	line, next = disasm.Listing(peekBus{h.machine}, addr)
	str = fmt.Sprintf("%-33s", line)

	if flags&displayRegisters != 0 {
		str += " " + h.cpu().Reg.String()
	}

	if flags&displayCycles != 0 {
		str += fmt.Sprintf(" C=%d", h.cpu().Cycles)
	}

	if flags&displayAnnotations != 0 {
		if anno, ok := h.annotations[addr]; ok {
			str += " ; " + anno
		}
	}

	return str, next
}

func (h *Host) dumpMemory(addr0 uint16, bytes int) {
	addr1 := int(addr0) + bytes - 1
	if addr1 > 0xffff {
		addr1 = 0xffff
	}

	buf := []byte("    -" + strings.Repeat(" ", 35))

	// Don't align display for short dumps.
	if addr1-int(addr0) < 8 {
		addrToBuf(addr0, buf[0:4])
		for a, c1, c2 := int(addr0), 6, 32; a <= addr1; a, c1, c2 = a+1, c1+3, c2+1 {
			m := h.machine.Peek(uint16(a))
			byteToBuf(m, buf[c1:c1+2])
			buf[c2] = toPrintableChar(m)
		}
		h.println(string(buf))
		return
	}

	// Align to 8-byte boundaries.
	start := int(addr0) &^ 7
	stop := min((addr1+8)&^7, 0x10000)

	for r := start; r < stop; r += 8 {
		addrToBuf(uint16(r), buf[0:4])
		for i, c1, c2 := 0, 6, 32; i < 8; i, c1, c2 = i+1, c1+3, c2+1 {
			a := r + i
			if a >= int(addr0) && a <= addr1 {
				m := h.machine.Peek(uint16(a))
				byteToBuf(m, buf[c1:c1+2])
				buf[c2] = toPrintableChar(m)
			} else {
				buf[c1], buf[c1+1], buf[c2] = ' ', ' ', ' '
			}
		}
		h.println(string(buf))
	}
}

func (h *Host) displayUsage(c cmd.Selection) {
	if cm, ok := c.Command.Data.(*command); ok && cm.usage != "" {
		h.printf("Syntax: %s\n", cm.usage)
	} else {
		h.println("<no help text>")
	}
}

func (h *Host) displayCommands(g *group) {
	h.printf("%s commands:\n", g.name)
	for _, c := range g.commands {
		if c.brief != "" {
			h.printf("    %-15s  %s\n", c.name, c.brief)
		}
	}
	for _, sub := range g.groups {
		h.printf("    %-15s  %s\n", sub.name, sub.brief)
	}
}

func (h *Host) resolveIdentifier(s string) (int64, error) {
	reg := h.cpu().Reg
	switch strings.ToLower(s) {
	case "a":
		return int64(reg.A), nil
	case "x":
		return int64(reg.X), nil
	case "y":
		return int64(reg.Y), nil
	case "sp":
		return int64(reg.SP) | 0x0100, nil
	case ".", "pc":
		return int64(reg.PC), nil
	case "p":
		return int64(reg.P), nil
	}

	if v, ok := h.labels[s]; ok {
		return int64(v), nil
	}
	for name, v := range h.labels {
		if strings.EqualFold(name, s) {
			return int64(v), nil
		}
	}
	return 0, fmt.Errorf("identifier '%s' not found", s)
}

func (h *Host) onBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	h.setState(stateBreakpoint)
	h.halt()
	h.noticef("Breakpoint hit at $%04X.\n", b.Address)
	h.displayPC()
}

func (h *Host) onDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	h.setState(stateBreakpoint)
	h.halt()
	h.noticef("Data breakpoint hit on address $%04X.\n", b.Address)

	if c.LastPC != c.Reg.PC {
		d, _ := h.disassemble(c.LastPC, displayAll)
		h.println(d)
	}
	h.displayPC()
}

func (h *Host) halt() {
	if r, ok := h.machine.(runner); ok {
		r.Halt()
	}
}
