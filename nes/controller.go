// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nes

import "strings"

// Button is a bit set of standard controller buttons, in the order the
// controller reports them.
type Button byte

// Standard controller buttons
const (
	ButtonA Button = 1 << iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

var buttonNames = []string{"A", "B", "Select", "Start", "Up", "Down", "Left", "Right"}

func (b Button) String() string {
	var names []string
	for i, n := range buttonNames {
		if b&(1<<i) != 0 {
			names = append(names, n)
		}
	}
	return strings.Join(names, "+")
}

// A Controller is a standard joypad connected to $4016 or $4017. While
// the strobe bit is set the shift register continuously reloads, so reads
// return the A button. Once strobe is cleared, each read shifts out the
// next button; after all eight, reads return 1.
type Controller struct {
	buttons Button
	shift   byte
	strobe  byte
}

// SetButtons replaces the set of held buttons.
func (c *Controller) SetButtons(b Button) {
	c.buttons = b
	if c.strobe&1 != 0 {
		c.shift = byte(b)
	}
}

// Buttons returns the set of held buttons.
func (c *Controller) Buttons() Button {
	return c.buttons
}

// Write sets the strobe latch and returns its previous value.
func (c *Controller) Write(v byte) byte {
	old := c.strobe
	c.strobe = v & 1
	if c.strobe != 0 {
		c.shift = byte(c.buttons)
	}
	return old
}

// Read returns the next button bit.
func (c *Controller) Read() byte {
	if c.strobe != 0 {
		return byte(c.buttons) & 1
	}
	v := c.shift & 1
	c.shift = c.shift>>1 | 0x80
	return v
}
