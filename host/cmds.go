// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"strings"

	"github.com/beevik/cmd"
	"github.com/beevik/prefixtree/v2"
)

type handler func(*Host, cmd.Selection) error

// A command is the help text and handler registered for one entry in the
// command tree. It is stored as the tree entry's Data.
type command struct {
	name        string
	brief       string
	description string
	usage       string
	handler     handler
}

// A group is a named set of commands, either the root set or one subtree.
type group struct {
	name     string
	brief    string
	commands []*command
	groups   []*group
}

var (
	cmds   *cmd.Tree
	groups = prefixtree.New[*group]()
	root   = &group{name: "go2a03"}
)

func addCommand(t *cmd.Tree, g *group, c *command) {
	g.commands = append(g.commands, c)
	t.AddCommand(cmd.CommandDescriptor{
		Name:        c.name,
		Brief:       c.brief,
		Description: c.description,
		Usage:       c.usage,
		Data:        c,
	})
}

func addGroup(t *cmd.Tree, name, brief string, commands ...*command) {
	g := &group{name: name, brief: brief}
	root.groups = append(root.groups, g)
	groups.Add(name, g)

	sub := t.AddSubtree(cmd.TreeDescriptor{Name: name, Brief: brief})
	for _, c := range commands {
		addCommand(sub, g, c)
	}
}

func init() {
	t := cmd.NewTree(cmd.TreeDescriptor{Name: root.name})

	addCommand(t, root, &command{
		name:        "help",
		description: "Display help for a command.",
		usage:       "help [<command>]",
		handler:     (*Host).cmdHelp,
	})
	addCommand(t, root, &command{
		name:  "annotate",
		brief: "Annotate an address",
		description: "Provide a code annotation at a memory address." +
			" When disassembling code at this address, the annotation will" +
			" be displayed. Omit the string to remove an annotation.",
		usage:   "annotate <address> [<string>]",
		handler: (*Host).cmdAnnotate,
	})
	addCommand(t, root, &command{
		name:  "assemble",
		brief: "Assemble a file and save the binary",
		description: "Run the cross-assembler on the specified file," +
			" producing a .bin file next to it if successful. Code starts at" +
			" the origin address, $1000 by default, unless the source begins" +
			" with an .ORG directive. The labels it defines become available" +
			" in expressions.",
		usage:   "assemble <filename> [<origin>]",
		handler: (*Host).cmdAssemble,
	})

	addGroup(t, "breakpoint", "Breakpoint commands",
		&command{
			name:        "list",
			brief:       "List breakpoints",
			description: "List all current breakpoints.",
			usage:       "breakpoint list",
			handler:     (*Host).cmdBreakpointList,
		},
		&command{
			name:  "add",
			brief: "Add a breakpoint",
			description: "Add a breakpoint at the specified address." +
				" The breakpoint starts enabled.",
			usage:   "breakpoint add <address>",
			handler: (*Host).cmdBreakpointAdd,
		},
		&command{
			name:        "remove",
			brief:       "Remove a breakpoint",
			description: "Remove a breakpoint at the specified address.",
			usage:       "breakpoint remove <address>",
			handler:     (*Host).cmdBreakpointRemove,
		},
		&command{
			name:        "enable",
			brief:       "Enable a breakpoint",
			description: "Enable a previously added breakpoint.",
			usage:       "breakpoint enable <address>",
			handler:     (*Host).cmdBreakpointEnable,
		},
		&command{
			name:  "disable",
			brief: "Disable a breakpoint",
			description: "Disable a previously added breakpoint. This" +
				" prevents the breakpoint from being hit when running the" +
				" CPU.",
			usage:   "breakpoint disable <address>",
			handler: (*Host).cmdBreakpointDisable,
		},
	)

	addCommand(t, root, &command{
		name:  "cartridge",
		brief: "Insert an NES cartridge",
		description: "Switch to NES mode and insert a cartridge built from a" +
			" raw 16KB or 32KB PRG image. The console is reset, so the CPU" +
			" starts at the cartridge's reset vector.",
		usage:   "cartridge <filename>",
		handler: (*Host).cmdCartridge,
	})

	addGroup(t, "databreakpoint", "Data breakpoint commands",
		&command{
			name:        "list",
			brief:       "List data breakpoints",
			description: "List all current data breakpoints.",
			usage:       "databreakpoint list",
			handler:     (*Host).cmdDataBreakpointList,
		},
		&command{
			name:  "add",
			brief: "Add a data breakpoint",
			description: "Add a new data breakpoint at the specified" +
				" memory address. When the CPU stores data at this address," +
				" the breakpoint will stop the CPU. Optionally, a byte" +
				" value may be specified, and the CPU will stop only" +
				" when this value is stored. The data breakpoint starts" +
				" enabled.",
			usage:   "databreakpoint add <address> [<value>]",
			handler: (*Host).cmdDataBreakpointAdd,
		},
		&command{
			name:  "remove",
			brief: "Remove a data breakpoint",
			description: "Remove a previously added data breakpoint at" +
				" the specified memory address.",
			usage:   "databreakpoint remove <address>",
			handler: (*Host).cmdDataBreakpointRemove,
		},
		&command{
			name:        "enable",
			brief:       "Enable a data breakpoint",
			description: "Enable a previously added data breakpoint.",
			usage:       "databreakpoint enable <address>",
			handler:     (*Host).cmdDataBreakpointEnable,
		},
		&command{
			name:        "disable",
			brief:       "Disable a data breakpoint",
			description: "Disable a previously added data breakpoint.",
			usage:       "databreakpoint disable <address>",
			handler:     (*Host).cmdDataBreakpointDisable,
		},
	)

	addCommand(t, root, &command{
		name:  "disassemble",
		brief: "Disassemble code",
		description: "Disassemble machine code starting at the requested" +
			" address. The number of instruction lines to disassemble may be" +
			" specified as an option. If no address is specified, the" +
			" disassembly continues from where the last disassembly left off.",
		usage:   "disassemble [<address>] [<lines>]",
		handler: (*Host).cmdDisassemble,
	})
	addCommand(t, root, &command{
		name:        "evaluate",
		brief:       "Evaluate an expression",
		description: "Evaluate a mathematical expression.",
		usage:       "evaluate <expression>",
		handler:     (*Host).cmdEvaluate,
	})
	addCommand(t, root, &command{
		name:  "labels",
		brief: "List assembled labels",
		description: "Display the labels defined by the most recently" +
			" assembled file, sorted by address.",
		usage:   "labels",
		handler: (*Host).cmdLabels,
	})
	addCommand(t, root, &command{
		name:  "load",
		brief: "Load a binary file",
		description: "Load the contents of a binary file into the emulated" +
			" system's memory and point the program counter at it. The load" +
			" address may be omitted for a file produced by the assemble" +
			" command.",
		usage:   "load <filename> [<address>]",
		handler: (*Host).cmdLoad,
	})

	addGroup(t, "memory", "Memory commands",
		&command{
			name:  "dump",
			brief: "Dump memory at address",
			description: "Dump the contents of memory starting from the" +
				" specified address. The number of bytes to dump may be" +
				" specified as an option. If no address is specified, the" +
				" memory dump continues from where the last dump left off.",
			usage:   "memory dump [<address>] [<bytes>]",
			handler: (*Host).cmdMemoryDump,
		},
		&command{
			name:  "set",
			brief: "Set memory at address",
			description: "Set the contents of memory starting from the" +
				" specified address. The values to assign should be a series" +
				" of space-separated byte values. You may use an expression" +
				" for each byte value.",
			usage:   "memory set <address> <byte> [<byte> ...]",
			handler: (*Host).cmdMemorySet,
		},
		&command{
			name:  "copy",
			brief: "Copy memory",
			description: "Copy memory from one range of addresses to" +
				" another. You must specify the destination address, the" +
				" first byte of the source address, and the last byte of the" +
				" source address.",
			usage:   "memory copy <dst addr> <src addr begin> <src addr end>",
			handler: (*Host).cmdMemoryCopy,
		},
	)

	addCommand(t, root, &command{
		name:        "quit",
		brief:       "Quit the program",
		description: "Quit the program.",
		usage:       "quit",
		handler:     (*Host).cmdQuit,
	})
	addCommand(t, root, &command{
		name:  "register",
		brief: "View or change register values",
		description: "When used without arguments, this command displays the" +
			" current contents of the CPU registers. When used with arguments," +
			" it changes the value of a register or one of the CPU's status" +
			" flags. Allowed register names include A, X, Y, PC and SP." +
			" Allowed status flag names include N (Negative), V (Overflow)," +
			" D (Decimal), I (InterruptDisable), Z (Zero) and C (Carry).",
		usage:   "register [<name> <value>]",
		handler: (*Host).cmdRegister,
	})
	addCommand(t, root, &command{
		name:  "reset",
		brief: "Reset the machine",
		description: "Run the CPU reset sequence. The program counter is" +
			" loaded from the reset vector at $FFFC.",
		usage:   "reset",
		handler: (*Host).cmdReset,
	})
	addCommand(t, root, &command{
		name:  "run",
		brief: "Run the CPU",
		description: "Run the CPU until a breakpoint is hit, a fatal error" +
			" occurs, or the user types Ctrl-C. If an address is given, the" +
			" program counter is set to it first.",
		usage:   "run [<address>]",
		handler: (*Host).cmdRun,
	})
	addCommand(t, root, &command{
		name:  "set",
		brief: "Set a configuration variable",
		description: "Set the value of a configuration variable. To see the" +
			" current values of all configuration variables, type set" +
			" without any arguments.",
		usage:   "set [<var> <value>]",
		handler: (*Host).cmdSet,
	})

	addGroup(t, "step", "Step the debugger",
		&command{
			name:  "in",
			brief: "Step into next instruction",
			description: "Step the CPU by a single instruction. If the" +
				" instruction is a subroutine call, step into the subroutine." +
				" The number of steps may be specified as an option.",
			usage:   "step in [<count>]",
			handler: (*Host).cmdStepIn,
		},
		&command{
			name:  "over",
			brief: "Step over next instruction",
			description: "Step the CPU by a single instruction. If the" +
				" instruction is a subroutine call, step over the subroutine." +
				" The number of steps may be specified as an option.",
			usage:   "step over [<count>]",
			handler: (*Host).cmdStepOver,
		},
		&command{
			name:  "out",
			brief: "Step out of the current subroutine",
			description: "Step the CPU until it returns from the currently" +
				" running subroutine with an RTS or RTI instruction.",
			usage:   "step out",
			handler: (*Host).cmdStepOut,
		},
	)

	// Command shortcuts
	t.AddShortcut("a", "assemble")
	t.AddShortcut("b", "breakpoint")
	t.AddShortcut("bp", "breakpoint")
	t.AddShortcut("ba", "breakpoint add")
	t.AddShortcut("br", "breakpoint remove")
	t.AddShortcut("bl", "breakpoint list")
	t.AddShortcut("be", "breakpoint enable")
	t.AddShortcut("bd", "breakpoint disable")
	t.AddShortcut("d", "disassemble")
	t.AddShortcut("db", "databreakpoint")
	t.AddShortcut("dbp", "databreakpoint")
	t.AddShortcut("dbl", "databreakpoint list")
	t.AddShortcut("dba", "databreakpoint add")
	t.AddShortcut("dbr", "databreakpoint remove")
	t.AddShortcut("dbe", "databreakpoint enable")
	t.AddShortcut("dbd", "databreakpoint disable")
	t.AddShortcut("e", "evaluate")
	t.AddShortcut("m", "memory dump")
	t.AddShortcut("mc", "memory copy")
	t.AddShortcut("ms", "memory set")
	t.AddShortcut("r", "register")
	t.AddShortcut("s", "step over")
	t.AddShortcut("si", "step in")
	t.AddShortcut("so", "step out")
	t.AddShortcut("?", "help")
	t.AddShortcut(".", "register")

	cmds = t
}

// Find the command group whose name starts with s.
func findGroup(s string) (*group, bool) {
	g, err := groups.FindValue(strings.ToLower(s))
	return g, err == nil
}
