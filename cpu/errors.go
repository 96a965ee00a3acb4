// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrPipelineBusy = errors.New("cpu: instruction pushed while another is in flight")
)

// UnimplementedOpcodeError is the panic value raised when the CPU fetches
// an opcode that is not part of the official instruction set. It means the
// program is incompatible with this CPU (or was never a program at all).
// Continuing would desynchronize the program counter, so it is never
// recovered inside this package.
type UnimplementedOpcodeError struct {
	Opcode byte
	PC     uint16 // address of the opcode, if known
	HasPC  bool
}

func (e *UnimplementedOpcodeError) Error() string {
	if e.HasPC {
		return fmt.Sprintf("cpu: unimplemented opcode $%02X at $%04X", e.Opcode, e.PC)
	}
	return fmt.Sprintf("cpu: unimplemented opcode $%02X", e.Opcode)
}
