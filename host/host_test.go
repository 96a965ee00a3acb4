// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/beevik/go2a03/asm"
)

// Write assembly source to a temporary file and return its path.
func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.asm")
	if err := os.WriteFile(path, []byte(src), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func binPath(asmPath string) string {
	return strings.TrimSuffix(asmPath, ".asm") + ".bin"
}

func runScript(t *testing.T, h *Host, lines ...string) string {
	t.Helper()
	script := "set color false\n" + strings.Join(lines, "\n") + "\n"
	var out bytes.Buffer
	h.RunCommands(strings.NewReader(script), &out, false)
	return out.String()
}

func expectOutput(t *testing.T, out string, expected ...string) {
	t.Helper()
	for _, e := range expected {
		if !strings.Contains(out, e) {
			t.Errorf("output missing %q\noutput:\n%s", e, out)
		}
	}
}

func TestAssembleLoadRun(t *testing.T) {
	path := writeSource(t, `
	.ORG $1000
start:
	LDA #$42
	STA $0200
	.DB $FF`)

	h := New()
	out := runScript(t, h,
		"assemble "+path,
		"load "+binPath(path),
		"run",
		"memory dump $0200 1",
		"register",
		"labels",
	)

	expectOutput(t, out,
		"Assembled 'prog.asm' to 'prog.bin' ($1000..$1005).",
		"Loaded 'prog.bin' to $1000..$1005.",
		"Running from $1000.",
		"Fatal: cpu: unimplemented opcode $FF at $1005.",
		"0200- 42",
		"A=42",
		"start            $1000",
	)
}

func TestAssembleErrors(t *testing.T) {
	path := writeSource(t, "\tLDA undefined\n")
	h := New()
	out := runScript(t, h, "assemble "+path)
	expectOutput(t, out, "Failed to assemble 'prog.asm'", "undefined label 'undefined'")

	if err := h.AssembleFile(path); err == nil {
		t.Error("expected an assembly error")
	}
}

func TestLoadRequiresAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.bin")
	if err := os.WriteFile(path, []byte{0xa2, 0x09, 0xff}, 0600); err != nil {
		t.Fatal(err)
	}

	h := New()
	out := runScript(t, h,
		"load "+path,
		"load "+path+" $2000",
		"run",
		"register",
	)
	expectOutput(t, out,
		"requires an address",
		"Loaded 'raw.bin' to $2000..$2002.",
		"X=09",
	)
}

func TestBreakpoints(t *testing.T) {
	path := writeSource(t, `
	.ORG $1000
	LDX #0
loop:
	INX
	CPX #5
	BNE loop
done:
	NOP
	.DB $FF`)

	h := New()
	out := runScript(t, h,
		"assemble "+path,
		"load "+binPath(path),
		"breakpoint add done",
		"run",
		"register",
		"breakpoint list",
		"breakpoint disable done",
		"breakpoint remove $3000",
	)

	expectOutput(t, out,
		"Breakpoint added at $1007.",
		"Breakpoint hit at $1007.",
		"X=05 Y=00 PC=1007",
		"$1007 true     1",
		"Breakpoint at $1007 disabled.",
		"No breakpoint was set on $3000.",
	)
}

func TestDataBreakpoints(t *testing.T) {
	path := writeSource(t, `
	.ORG $1000
	LDA #$41
	STA $0200
	LDA #$42
	STA $0200
	.DB $FF`)

	h := New()
	out := runScript(t, h,
		"assemble "+path,
		"load "+binPath(path),
		"databreakpoint add $0200 $42",
		"run",
		"register",
		"databreakpoint list",
	)

	expectOutput(t, out,
		"Conditional data breakpoint added at $0200 for value $42.",
		"Data breakpoint hit on address $0200.",
		"A=42",
		"$0200 true     $42    1",
	)
}

func TestStepping(t *testing.T) {
	path := writeSource(t, `
	.ORG $1000
	JSR sub
	LDA #1
	.DB $FF
sub:
	LDX #7
	JSR leaf
	RTS
leaf:
	INY
	RTS`)

	h := New()
	out := runScript(t, h,
		"assemble "+path,
		"load "+binPath(path),
		"step over",
		"register",
	)
	expectOutput(t, out, "X=07 Y=01 PC=1003")

	out = runScript(t, h,
		"register pc $1000",
		"step in",
		"register",
		"step out",
		"register",
	)
	expectOutput(t, out,
		"Register PC set to $1000.",
		"PC=1006",
		"Y=02 PC=1003",
	)
}

func TestRegisters(t *testing.T) {
	h := New()
	out := runScript(t, h,
		"register a $12",
		"register sp $80",
		"register c 1",
		"register q 1",
		"register",
	)
	expectOutput(t, out,
		"Register A set to $12.",
		"Register SP set to $80.",
		"Flag C set to true.",
		"Unknown register 'q'.",
		"A=12 X=00 Y=00 PC=0000 SP=80 P=nvUBdIzC",
	)
}

func TestMemory(t *testing.T) {
	h := New()
	out := runScript(t, h,
		"memory set $0300 1 2 'A'",
		"memory copy $0310 $0300 $0302",
		"memory dump $0310 3",
		"memory dump $0400 16",
	)
	expectOutput(t, out,
		"Stored 3 byte(s) at $0300.",
		"Copied $0300..$0302 to $0310.",
		"0310- 01 02 41",
		"0400- 00 00 00 00 00 00 00 00",
		"0408- 00",
	)
}

func TestEvaluate(t *testing.T) {
	h := New()
	out := runScript(t, h,
		"evaluate $10+2*3",
		"evaluate (1 + 2) * 3",
		"evaluate <$1234",
		"evaluate >$1234",
		"evaluate 1/0",
		"set hexmode true",
		"evaluate 10+a",
	)
	expectOutput(t, out,
		"$0016 (22)",
		"$0009 (9)",
		"$0034 (52)",
		"$0012 (18)",
		"division by zero",
		"Setting HexMode updated.",
		"$001A (26)",
	)
}

func TestSettings(t *testing.T) {
	h := New()
	out := runScript(t, h,
		"set mem 16",
		"set bogus 1",
		"set trace yes",
		"set",
	)
	expectOutput(t, out,
		"Setting MemDumpBytes updated.",
		"setting 'bogus' not found",
		"invalid bool value 'yes'",
		"MemDumpBytes     16",
	)
	if h.settings.MemDumpBytes != 16 {
		t.Errorf("MemDumpBytes not updated: %d", h.settings.MemDumpBytes)
	}
}

func TestTrace(t *testing.T) {
	h := New()
	out := runScript(t, h,
		"memory set $1000 $a9 $42 $ff",
		"set trace true",
		"run $1000",
	)
	expectOutput(t, out, "1000-   A9 42       LDA #$42", "1002-   FF")
}

func TestHelpAndErrors(t *testing.T) {
	h := New()
	out := runScript(t, h,
		"help",
		"help breakpoint",
		"help memory dump",
		"frobnicate",
		"quit",
		"evaluate 1",
	)
	expectOutput(t, out,
		"go2a03 commands:",
		"breakpoint commands:",
		"Syntax: memory dump [<address>] [<bytes>]",
		"Command not found.",
	)
	if strings.Contains(out, "$0001 (1)") {
		t.Error("commands ran after quit")
	}
}

// Assemble src at $8000 into a 16KB PRG image with the reset vector
// pointing at $8000, and return the image's path.
func writeCartridge(t *testing.T, src string) string {
	t.Helper()
	assembly, err := asm.Assemble(strings.NewReader(src), "cart.asm", 0x8000)
	if err != nil {
		t.Fatal(err)
	}
	prg := make([]byte, 0x4000)
	copy(prg, assembly.Code)
	prg[0x3ffc], prg[0x3ffd] = 0x00, 0x80

	path := filepath.Join(t.TempDir(), "cart.prg")
	if err := os.WriteFile(path, prg, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCartridge(t *testing.T) {
	path := writeCartridge(t, `
	.ORG $8000
reset:
	LDA #$07
	STA $0010
	.DB $FF`)

	bad := filepath.Join(t.TempDir(), "bad.prg")
	if err := os.WriteFile(bad, make([]byte, 100), 0600); err != nil {
		t.Fatal(err)
	}

	h := New()
	out := runScript(t, h,
		"cartridge "+bad,
		"cartridge "+path,
		"register",
		"run",
		"memory dump $0010 1",
		"disassemble $8000 2",
	)
	expectOutput(t, out,
		"Failed to insert cartridge",
		"16KB or 32KB",
		"Inserted 'cart.prg' (NES, NROM, 16KB PRG).",
		"PC=8000",
		"Fatal: cpu: unimplemented opcode $FF at $8005.",
		"0010- 07",
		"8000-   A9 07       LDA #$07",
		"8002-   8D 10 00    STA $0010",
	)
}

func TestBreak(t *testing.T) {
	h := New()
	h.Break()
	if h.getState() != stateProcessingCommands {
		t.Error("Break changed state while idle")
	}

	h.setState(stateRunning)
	h.Break()
	if h.getState() != stateInterrupted {
		t.Error("Break did not interrupt a running CPU")
	}
}

func TestCartridgeBreakpoints(t *testing.T) {
	path := writeCartridge(t, `
	.ORG $8000
	LDX #0
loop:
	INX
	CPX #3
	BNE loop
	STX $0200
	.DB $FF`)

	h := New()
	out := runScript(t, h,
		"cartridge "+path,
		"breakpoint add $8007",
		"databreakpoint add $0200",
		"run",
		"register",
		"run",
		"memory dump $0200 1",
		"run",
	)
	expectOutput(t, out,
		"Breakpoint hit at $8007.",
		"X=03 Y=00 PC=8007",
		"Data breakpoint hit on address $0200.",
		"0200- 03",
		"Fatal: cpu: unimplemented opcode $FF at $800A.",
	)
}

func TestCartridgeBreak(t *testing.T) {
	path := writeCartridge(t, `
	.ORG $8000
loop:
	INC $0200
	JMP loop`)

	h := New()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(10 * time.Millisecond):
				h.Break()
			}
		}
	}()

	out := runScript(t, h,
		"cartridge "+path,
		"run",
		"register",
	)
	close(done)

	expectOutput(t, out, "Interrupted at $80")
	if !h.cpu().Pipeline().Idle() {
		t.Error("interrupted run left an instruction in flight")
	}
	if !h.machine.(*nesMachine).console.Clock.Throttle {
		t.Error("NES run is not throttled")
	}
}
