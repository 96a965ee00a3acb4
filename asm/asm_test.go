// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func assemble(code string) (*Assembly, error) {
	return Assemble(strings.NewReader(code), "test", 0x1000)
}

func checkASM(t *testing.T, asm string, expected string) {
	t.Helper()
	assembly, err := assemble(asm)
	if err != nil {
		t.Error(err)
		return
	}

	s := fmt.Sprintf("%X", assembly.Code)
	if s != expected {
		t.Error("code doesn't match expected")
		t.Errorf("got: %s\n", s)
		t.Errorf("exp: %s\n", expected)
	}
}

func checkASMError(t *testing.T, asm string, errString string) {
	t.Helper()
	_, err := assemble(asm)
	if err == nil {
		t.Errorf("Expected error on %s, didn't get one\n", asm)
		return
	}
	if !strings.Contains(err.Error(), errString) {
		t.Errorf("Expected '%s', got '%v'\n", errString, err)
	}
}

func TestAddressingIMM(t *testing.T) {
	asm := `
	LDA #$20
	LDX #$20
	LDY #$20
	ADC #$20
	SBC #$20
	CMP #$20
	CPX #$20
	CPY #$20
	AND #$20
	ORA #$20
	EOR #$20`

	checkASM(t, asm, "A920A220A0206920E920C920E020C020292009204920")
}

func TestAddressingABS(t *testing.T) {
	asm := `
	LDA $2000
	LDX $2000
	LDY $2000
	STA $2000
	STX $2000
	STY $2000
	JMP $2000
	JSR $2000`

	checkASM(t, asm, "AD0020AE0020AC00208D00208E00208C00204C0020200020")
}

func TestAddressingZPG(t *testing.T) {
	asm := `
	LDA $20
	LDX $20
	LDY $20
	STA $20
	INC $20
	ASL $20`

	checkASM(t, asm, "A520A620A4208520E6200620")
}

func TestWideHexForcesAbsolute(t *testing.T) {
	checkASM(t, "\tLDA $0020", "AD2000")
}

func TestAddressingIndexed(t *testing.T) {
	asm := `
	LDA $20,X
	LDX $20,Y
	STX $20,Y
	LDA $2000,X
	LDA $2000,Y
	LDA $20,Y`

	checkASM(t, asm, "B520B6209620BD0020B90020B92000")
}

func TestAddressingIndirect(t *testing.T) {
	asm := `
	LDA ($20,X)
	LDA ($20),Y
	STA ($20),y
	JMP ($30FF)`

	checkASM(t, asm, "A120B12091206CFF30")
}

func TestAddressingImpliedAndAccumulator(t *testing.T) {
	asm := `
	CLC
	ASL
	ROL A
	LSR a
	RTS`

	checkASM(t, asm, "180A2A4A60")
}

func TestBranches(t *testing.T) {
	asm := `
	.ORG $1000
loop:
	DEX
	BNE loop
	BEQ done
	NOP
done:
	RTS`

	checkASM(t, asm, "CAD0FDF001EA60")
}

func TestForwardReferenceIsAbsolute(t *testing.T) {
	asm := `
	LDA value
value:
	.DB 5`

	checkASM(t, asm, "AD031005")
}

func TestBackwardReferenceIsZeroPage(t *testing.T) {
	asm := `
	.ORG $0010
value:
	.DB 5
	LDA value`

	checkASM(t, asm, "05A510")
}

func TestData(t *testing.T) {
	asm := `
	.DB $01, 2, %00000011, 'A'
	.DW $1234, table
	.DB "hi", 0
table:`

	checkASM(t, asm, "0102034134120B10686900")
}

func TestExpressions(t *testing.T) {
	asm := `
	.ORG $2000
start:
	LDA #<start
	LDX #>start
	LDY #start-$1FFE
	JMP *+3
	.DW start+1, -1`

	checkASM(t, asm, "A900A220A0024C09200120FFFF")
}

func TestEquates(t *testing.T) {
	asm := `
PPUCTRL = $2000
ZP      .EQ $10
	STA PPUCTRL
	STA ZP`

	checkASM(t, asm, "8D00208510")
}

func TestOriginPadding(t *testing.T) {
	asm := `
	.ORG $1000
	NOP
	.ORG $1003
	NOP`

	checkASM(t, asm, "EA0000EA")
}

func TestOriginAndLabels(t *testing.T) {
	asm := `
	.ORG $C000
reset:
	SEI
	CLD
nmi	RTI`

	assembly, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}
	if assembly.Origin != 0xc000 {
		t.Errorf("origin incorrect. exp: $C000, got: $%04X", assembly.Origin)
	}
	if assembly.Labels["reset"] != 0xc000 || assembly.Labels["nmi"] != 0xc002 {
		t.Errorf("labels incorrect: %v", assembly.Labels)
	}
	if name, ok := assembly.Label(0xc002); !ok || name != "nmi" {
		t.Errorf("label lookup incorrect. exp: nmi, got: %q", name)
	}
	if len(assembly.Lines) != 3 || assembly.Lines[2].Address != 0xc002 || assembly.Lines[2].Line != 6 {
		t.Errorf("source lines incorrect: %v", assembly.Lines)
	}
}

func TestComments(t *testing.T) {
	asm := `
; full line comment
	LDA #';'   ; trailing comment
	.DB ";"    ; string containing a semicolon`

	checkASM(t, asm, "A93B3B")
}

func TestErrors(t *testing.T) {
	checkASMError(t, "\tFOO $20", "test:1:2: unknown instruction 'FOO'")
	checkASMError(t, "\tLDA undefined", "undefined label 'undefined'")
	checkASMError(t, "\tSTA #$20", "invalid addressing mode for STA")
	checkASMError(t, "\tLDA #$100", "immediate value 256 out of range")
	checkASMError(t, "x:\nx:", "label 'x' defined more than once")
	checkASMError(t, "\t.ORG $2000\n\tNOP\n\t.ORG $1000", "is behind the current address")
	checkASMError(t, "\tLDA ($20", "missing ')'")
	checkASMError(t, "\tLDA #$2G", "unexpected 'G' in expression")
}

func TestBranchOutOfRange(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("\tBNE far\n")
	for i := 0; i < 130; i++ {
		sb.WriteString("\tNOP\n")
	}
	sb.WriteString("far:\n")
	checkASMError(t, sb.String(), "branch target $1084 out of range")
}

func TestErrorsAreJoined(t *testing.T) {
	_, err := assemble("\tFOO\n\tBAR")
	if err == nil {
		t.Fatal("expected errors")
	}
	var e *Error
	if !errors.As(err, &e) || e.Line != 1 {
		t.Errorf("first error should point at line 1, got %v", err)
	}
	if !strings.Contains(err.Error(), "test:2:2") {
		t.Errorf("second error missing from %v", err)
	}
}
