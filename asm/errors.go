// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"

	"github.com/beevik/mini6502/translate"
)

var f = translate.From

// Error kinds. Every *Error unwraps to one of these.
var (
	ErrParseGap            = errors.New(f("unexpected token"))
	ErrUnsupportedEncoding = errors.New(f("unsupported encoding"))
	ErrOperandRange        = errors.New(f("operand out of range"))
	ErrBranchRange         = errors.New(f("branch target out of range"))
	ErrUnknownLabel        = errors.New(f("unknown label"))
	ErrDuplicateLabel      = errors.New(f("label duplicated"))
	ErrAddressOverflow     = errors.New(f("code exceeds the address space"))
)

// An Error describes a problem at a location in the assembly source.
type Error struct {
	Kind error  // one of the Err* kinds
	File string // source file name, if known
	Line int    // 1-based line number
	Col  int    // 1-based column
	Msg  string // detail message
}

func (e *Error) Error() string {
	if e.File == "" {
		return f("line %d, col %d: %s", e.Line, e.Col, e.Msg)
	}
	return f("'%s' line %d, col %d: %s", e.File, e.Line, e.Col, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// An ErrorList collects every error found while assembling.
type ErrorList []*Error

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return f("no errors")
	case 1:
		return l[0].Error()
	default:
		return f("%s (and %d more errors)", l[0].Error(), len(l)-1)
	}
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (l ErrorList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

func newError(kind error, t Token, format string, args ...any) *Error {
	return &Error{
		Kind: kind,
		Line: t.Line,
		Col:  t.Col,
		Msg:  f(format, args...),
	}
}
