// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"regexp"
	"strings"

	"github.com/beevik/mini6502/translate"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

var f = translate.From

var (
	errExpression = errors.New(f("invalid expression"))
	errRange      = errors.New(f("value out of range"))
)

// $hh and $hhhh are the assembler's hexadecimal literals.
var hexLiteral = regexp.MustCompile(`\$([0-9a-fA-F]+)`)

// Evaluate an integer expression. CPU registers and every known label
// are predeclared as variables.
func (h *Host) eval(expr string) (int64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, errExpression
	}
	expr = hexLiteral.ReplaceAllString(expr, "0x$1")

	pred := starlark.StringDict{}
	for label, addr := range h.labels {
		pred[label] = starlark.MakeInt(int(addr))
	}
	reg := &h.cpu.Reg
	for _, name := range []string{"a", "A"} {
		pred[name] = starlark.MakeInt(int(reg.A))
	}
	for _, name := range []string{"x", "X"} {
		pred[name] = starlark.MakeInt(int(reg.X))
	}
	for _, name := range []string{"y", "Y"} {
		pred[name] = starlark.MakeInt(int(reg.Y))
	}
	for _, name := range []string{"sp", "SP"} {
		pred[name] = starlark.MakeInt(0x0100 | int(reg.SP))
	}
	for _, name := range []string{"pc", "PC"} {
		pred[name] = starlark.MakeInt(int(reg.PC))
	}

	thread := starlark.Thread{Name: "eval"}
	opts := syntax.FileOptions{}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return 0, errors.New(f("%v: %s", errExpression, expr))
	}

	switch rc := dict["rc"].(type) {
	case starlark.Int:
		v, ok := rc.Int64()
		if !ok {
			return 0, errRange
		}
		return v, nil
	case starlark.Bool:
		if rc {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, errors.New(f("%v: %s", errExpression, expr))
	}
}

// Evaluate an expression as a 16-bit address. Negative values wrap.
func (h *Host) evalAddr(expr string) (uint16, error) {
	v, err := h.eval(expr)
	if err != nil {
		return 0, err
	}
	if v < -0x8000 || v > 0xffff {
		return 0, errors.New(f("%v: $%X", errRange, v))
	}
	return uint16(v), nil
}

// Evaluate an expression as a byte. Negative values wrap.
func (h *Host) evalByte(expr string) (byte, error) {
	v, err := h.eval(expr)
	if err != nil {
		return 0, err
	}
	if v < -0x80 || v > 0xff {
		return 0, errors.New(f("%v: $%X", errRange, v))
	}
	return byte(v), nil
}
