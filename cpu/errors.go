// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"errors"

	"github.com/beevik/mini6502/translate"
)

var f = translate.From

// Errors
var (
	ErrLoadOverflow  = errors.New(f("program does not fit in memory"))
	ErrUnknownOpcode = errors.New(f("unknown opcode"))
)

// A LoadError is returned when a program cannot be loaded at the requested
// address.
type LoadError struct {
	Addr   int // requested load address
	Length int // program length in bytes
}

func (e *LoadError) Error() string {
	return f("cannot load %d bytes at $%04X: %v", e.Length, e.Addr, ErrLoadOverflow)
}

func (e *LoadError) Unwrap() error {
	return ErrLoadOverflow
}

// An UnknownOpcodeError is returned by Step when the CPU fetches an opcode
// with no implementation and its policy is to fault.
type UnknownOpcodeError struct {
	Opcode byte   // the offending opcode
	Addr   uint16 // address the opcode was fetched from
}

func (e *UnknownOpcodeError) Error() string {
	return f("unknown opcode $%02X at $%04X", e.Opcode, e.Addr)
}

func (e *UnknownOpcodeError) Unwrap() error {
	return ErrUnknownOpcode
}
