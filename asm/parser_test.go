// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"testing"

	"github.com/beevik/mini6502/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(src string) *Program {
	return Parse(Lex([]byte(src), true))
}

func TestParseModes(t *testing.T) {
	tests := []struct {
		src     string
		mode    cpu.Mode
		operand uint32
		target  string
	}{
		{"LDA #$FF", cpu.IMM, 0xff, ""},
		{"LDA #12", cpu.IMM, 12, ""},
		{"LDA $10", cpu.ZPG, 0x10, ""},
		{"LDA $010", cpu.ABS, 0x10, ""},
		{"LDA $0200", cpu.ABS, 0x200, ""},
		{"LDA $10,X", cpu.ZPX, 0x10, ""},
		{"LDA $10,x", cpu.ZPX, 0x10, ""},
		{"LDA 255", cpu.ZPG, 255, ""},
		{"LDA 256", cpu.ABS, 256, ""},
		{"LDA 16,X", cpu.ZPX, 16, ""},
		{"JMP start", cpu.ABS, 0, "start"},
		{"RTS", cpu.IMP, 0, ""},
		{"NOP ; comment", cpu.IMP, 0, ""},
	}

	for _, test := range tests {
		prog := parse(test.src)
		require.Empty(t, prog.Diagnostics, test.src)
		require.Len(t, prog.Instructions, 1, test.src)

		in := prog.Instructions[0]
		assert.Equal(t, test.mode, in.Mode, test.src)
		assert.Equal(t, test.operand, in.Operand, test.src)
		assert.Equal(t, test.target, in.Target, test.src)
	}
}

func TestParseLabels(t *testing.T) {
	prog := parse("start:\n\n  LDA #$01\nloop: INX\nBNE loop\nend:")
	require.Empty(t, prog.Diagnostics)
	require.Len(t, prog.Instructions, 3)

	assert.Equal(t, "start", prog.Instructions[0].Label)
	assert.True(t, prog.Instructions[0].HasLabel)
	assert.Equal(t, "loop", prog.Instructions[1].Label)
	assert.False(t, prog.Instructions[2].HasLabel)
	assert.Equal(t, "loop", prog.Instructions[2].Target)

	assert.Equal(t, []LabelDef{
		{Name: "start", Index: 0, Line: 1, Col: 1},
		{Name: "loop", Index: 1, Line: 4, Col: 1},
		{Name: "end", Index: 3, Line: 6, Col: 1},
	}, prog.Labels)
}

func TestParseGap(t *testing.T) {
	prog := parse("# LDA #$01\nLDA #$01 , X")
	require.Len(t, prog.Diagnostics, 2)
	assert.ErrorIs(t, prog.Diagnostics[0], ErrParseGap)
	assert.ErrorIs(t, prog.Diagnostics[1], ErrParseGap)

	// The statement after the stray tokens on line 1 still parses.
	require.Len(t, prog.Instructions, 1)
	assert.Equal(t, "LDA", prog.Instructions[0].Mnemonic)
	assert.Equal(t, 1, prog.Instructions[0].Line)
}

func TestParseGapAtEndOfInput(t *testing.T) {
	prog := parse("LDA $")
	require.Len(t, prog.Diagnostics, 1)
	assert.Equal(t, 1, prog.Diagnostics[0].Line)
	assert.Equal(t, 6, prog.Diagnostics[0].Col)
	assert.Contains(t, prog.Diagnostics[0].Error(), "line 1, col 6:")

	prog = parse("LDA #")
	require.Len(t, prog.Diagnostics, 1)
	assert.Equal(t, 6, prog.Diagnostics[0].Col)
}
