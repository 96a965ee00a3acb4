// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/beevik/go2a03/host"
	"github.com/beevik/term"
	"github.com/golang/glog"
)

var (
	assemble string
	prg      string
)

func init() {
	flag.StringVar(&assemble, "a", "", "assemble file and exit")
	flag.StringVar(&prg, "prg", "", "run in NES mode with a raw PRG image as an NROM cartridge")
	flag.CommandLine.Usage = func() {
		fmt.Println("Usage: go2a03 [options] [script] ..\nOptions:")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	defer glog.Flush()

	h := host.New()

	// Do command-line assemble if requested.
	if assemble != "" {
		if err := h.AssembleFile(assemble); err != nil {
			glog.Flush()
			os.Exit(1)
		}
		return
	}

	if prg != "" {
		if err := h.LoadCartridge(prg); err != nil {
			exitOnError(err)
		}
	}

	// Run commands contained in command-line files.
	for _, filename := range flag.Args() {
		file, err := os.Open(filename)
		if err != nil {
			exitOnError(err)
		}
		h.RunCommands(file, os.Stdout, false)
		file.Close()
	}

	// Break on Ctrl-C.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go handleInterrupt(h, c)

	// Run the remaining commands from standard input, prompting only when
	// it is a terminal.
	h.RunCommands(os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))
}

func handleInterrupt(h *host.Host, c chan os.Signal) {
	for range c {
		h.Break()
	}
}

func exitOnError(err error) {
	glog.Errorf("go2a03: %v", err)
	glog.Flush()
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
