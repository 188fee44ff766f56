// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strconv"
	"strings"

	"github.com/beevik/mini6502/cpu"
)

// An Instruction is a single parsed assembly statement.
type Instruction struct {
	Mnemonic string   // instruction name as written
	Mode     cpu.Mode // addressing mode implied by the operand syntax
	Operand  uint32   // literal operand value
	Label    string   // first label attached to the statement
	HasLabel bool     // true if a label preceded the statement
	Target   string   // label referenced by the operand, if any
	Line     int      // 1-based source line
	Col      int      // 1-based source column of the mnemonic

	Addr uint16           // address assigned during code generation
	Inst *cpu.Instruction // encoding selected during code generation
}

// A LabelDef records the definition of a label. It names the address of
// the instruction at Index, or the end of the program when Index equals
// the number of instructions.
type LabelDef struct {
	Name  string
	Index int
	Line  int
	Col   int
}

// A Program is the output of the parser.
type Program struct {
	Instructions []Instruction
	Labels       []LabelDef
	Diagnostics  ErrorList // statements that could not be parsed
}

type parser struct {
	tokens  []Token
	pos     int
	prog    *Program
	pending []LabelDef
}

// Parse groups tokens into instructions. Statements that do not parse are
// reported in the program's Diagnostics and skipped.
func Parse(tokens []Token) *Program {
	p := &parser{prog: &Program{}}
	for _, t := range tokens {
		if t.Type != Comment {
			p.tokens = append(p.tokens, t)
		}
	}

	for !p.done() {
		t := p.peek()
		switch {
		case t.Type == Newline:
			p.pos++

		case t.Type == Identifier && p.peekAt(1).Type == Colon:
			p.pending = append(p.pending, LabelDef{
				Name: string(t.Text),
				Line: t.Line,
				Col:  t.Col,
			})
			p.pos += 2

		case t.Type == Identifier:
			p.parseStatement()

		default:
			p.gap(t, f("expected instruction, found %v", t))
			p.pos++
		}
	}

	// Labels at the end of the source name the address after the last
	// instruction.
	p.bindLabels()
	return p.prog
}

func (p *parser) done() bool {
	return p.pos >= len(p.tokens)
}

func (p *parser) peek() Token {
	return p.peekAt(0)
}

// Return the token n positions ahead, or a Newline positioned just past
// the last token at the end of input.
func (p *parser) peekAt(n int) Token {
	if p.pos+n < len(p.tokens) {
		return p.tokens[p.pos+n]
	}
	end := Token{Type: Newline, Line: 1, Col: 1}
	if len(p.tokens) > 0 {
		last := p.tokens[len(p.tokens)-1]
		end.Line, end.Col = last.Line, last.Col+len(last.Text)
	}
	return end
}

func (p *parser) accept(typ TokenType) (Token, bool) {
	t := p.peek()
	if t.Type != typ {
		return t, false
	}
	p.pos++
	return t, true
}

func (p *parser) gap(t Token, msg string) {
	p.prog.Diagnostics = append(p.prog.Diagnostics, newError(ErrParseGap, t, "%s", msg))
}

// Skip the remainder of the current statement.
func (p *parser) skipLine() {
	for !p.done() && p.peek().Type != Newline {
		p.pos++
	}
}

// Attach pending labels to the next instruction index.
func (p *parser) bindLabels() {
	for _, l := range p.pending {
		l.Index = len(p.prog.Instructions)
		p.prog.Labels = append(p.prog.Labels, l)
	}
	p.pending = p.pending[:0]
}

func (p *parser) parseStatement() {
	mnemonic, _ := p.accept(Identifier)
	inst := Instruction{
		Mnemonic: string(mnemonic.Text),
		Mode:     cpu.IMP,
		Line:     mnemonic.Line,
		Col:      mnemonic.Col,
	}

	if err := p.parseOperand(&inst); err != nil {
		p.prog.Diagnostics = append(p.prog.Diagnostics, err)
		p.skipLine()
		return
	}

	if t := p.peek(); t.Type != Newline {
		p.gap(t, f("unexpected %v after operand", t))
		p.skipLine()
		return
	}

	if len(p.pending) > 0 {
		inst.Label = p.pending[0].Name
		inst.HasLabel = true
	}
	p.bindLabels()
	p.prog.Instructions = append(p.prog.Instructions, inst)
}

func (p *parser) parseOperand(inst *Instruction) *Error {
	switch t := p.peek(); t.Type {
	case Hash:
		p.pos++
		inst.Mode = cpu.IMM
		v, _, err := p.parseValue()
		if err != nil {
			return err
		}
		inst.Operand = v
		return nil

	case Dollar, Number:
		v, digits, err := p.parseValue()
		if err != nil {
			return err
		}
		inst.Operand = v
		switch {
		case t.Type == Dollar && digits <= 2:
			inst.Mode = cpu.ZPG
		case t.Type == Number && v <= 0xff:
			inst.Mode = cpu.ZPG
		default:
			inst.Mode = cpu.ABS
		}
		return p.parseIndex(inst)

	case Identifier:
		p.pos++
		inst.Mode = cpu.ABS
		inst.Target = string(t.Text)
		return p.parseIndex(inst)

	default:
		return nil
	}
}

// Parse a '$hex' or decimal literal. Returns the value and the number of
// digits written.
func (p *parser) parseValue() (value uint32, digits int, err *Error) {
	base := 10
	if _, ok := p.accept(Dollar); ok {
		base = 16
	}

	t, ok := p.accept(Number)
	if !ok {
		return 0, 0, newError(ErrParseGap, t, "expected number, found %v", t)
	}

	v, perr := strconv.ParseUint(string(t.Text), base, 32)
	if perr != nil {
		if ne, ok := perr.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return 0, 0, newError(ErrOperandRange, t, "number %s is too large", t.Text)
		}
		return 0, 0, newError(ErrParseGap, t, "invalid number %s", t.Text)
	}
	return uint32(v), len(t.Text), nil
}

// Parse an optional ',X' index suffix.
func (p *parser) parseIndex(inst *Instruction) *Error {
	if _, ok := p.accept(Comma); !ok {
		return nil
	}

	t, ok := p.accept(Identifier)
	switch {
	case !ok:
		return newError(ErrParseGap, t, "expected index register, found %v", t)
	case strings.EqualFold(string(t.Text), "X") && inst.Mode == cpu.ZPG:
		inst.Mode = cpu.ZPX
		return nil
	case strings.EqualFold(string(t.Text), "X"), strings.EqualFold(string(t.Text), "Y"):
		return newError(ErrUnsupportedEncoding, t, "addressing mode %s,%s is not supported", inst.Mode, strings.ToUpper(string(t.Text)))
	default:
		return newError(ErrParseGap, t, "invalid index register %s", t.Text)
	}
}
