// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"fmt"
	"testing"
)

type testResolver map[string]int64

func (r testResolver) resolveIdentifier(s string) (int64, error) {
	if v, ok := r[s]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("identifier '%s' not found", s)
}

func TestExprParser(t *testing.T) {
	r := testResolver{"pc": 0x1234, "start": 0xc000}

	tests := []struct {
		expr string
		hex  bool
		v    int64
	}{
		{"42", false, 42},
		{"$ff", false, 0xff},
		{"0x10", false, 16},
		{"%1010", false, 10},
		{"0b11", false, 3},
		{"0d99", true, 99},
		{"'A'", false, 65},
		{"1+2*3", false, 7},
		{"(1+2)*3", false, 9},
		{"10-4-3", false, 3},
		{"-5+1", false, -4},
		{"~0 & $ff", false, 0xff},
		{"1<<4 | 1", false, 17},
		{"$100>>4", false, 16},
		{"7%4", false, 3},
		{"6^3", false, 5},
		{"<pc", false, 0x34},
		{">pc", false, 0x12},
		{"start+3", false, 0xc003},
		{"10", true, 16},
		{"ff+1", true, 0x100},
		{"start", true, 0xc000},
	}

	p := newExprParser()
	for _, test := range tests {
		p.hexMode = test.hex
		v, err := p.Parse(test.expr, r)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", test.expr, err)
			continue
		}
		if v != test.v {
			t.Errorf("%q incorrect. exp: %d, got: %d", test.expr, test.v, v)
		}
	}
}

func TestExprParserErrors(t *testing.T) {
	r := testResolver{}
	p := newExprParser()

	for _, expr := range []string{"", "1+", "(1+2", "1+2)", "$", "'A", "bogus", "4/0", "1 2"} {
		if _, err := p.Parse(expr, r); err == nil {
			t.Errorf("%q: expected an error", expr)
		}
	}
}
