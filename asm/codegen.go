// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"github.com/beevik/mini6502/cpu"
)

// Generate encodes a parsed program into machine code starting at
// 'origin'.
func Generate(prog *Program, origin uint16) (*Assembly, error) {
	a := newAssembler("", origin, nil, 0)
	a.prog = prog
	return a.run(
		(*assembler).assignAddresses,
		(*assembler).resolveLabels,
		(*assembler).generateCode,
	)
}

// Select an encoding for every instruction and assign addresses.
func (a *assembler) assignAddresses() {
	a.logSection("Assigning addresses")

	pc := a.origin
	for i := range a.prog.Instructions {
		in := &a.prog.Instructions[i]
		if pc > 0xffff {
			a.addError(ErrAddressOverflow, in, "instruction at $%X is outside the address space", pc)
			return
		}
		in.Addr = uint16(pc)

		in.Inst = a.findMatchingInstruction(in)
		if in.Inst == nil {
			if len(a.instSet.GetInstructions(in.Mnemonic)) == 0 {
				a.addError(ErrUnsupportedEncoding, in, "unknown instruction %s", in.Mnemonic)
			} else {
				a.addError(ErrUnsupportedEncoding, in, "%s does not support %s addressing", in.Mnemonic, in.Mode)
			}
			continue
		}

		a.logLine(in, "%04X  %s %s", pc, in.Inst.Name, in.Inst.Mode)
		pc += int(in.Inst.Length)
	}
	if n := len(a.prog.Instructions); n > 0 && pc > cpu.MemorySize {
		in := &a.prog.Instructions[n-1]
		a.addError(ErrAddressOverflow, in, "code ends at $%X, past the end of the address space", pc)
	}
	a.pc = pc
}

// Build the label table from the assigned addresses.
func (a *assembler) resolveLabels() {
	a.logSection("Resolving labels")

	for _, l := range a.prog.Labels {
		addr := a.pc
		if l.Index < len(a.prog.Instructions) {
			addr = int(a.prog.Instructions[l.Index].Addr)
		}
		if _, ok := a.labels[l.Name]; ok {
			a.errors = append(a.errors, &Error{
				Kind: ErrDuplicateLabel,
				Line: l.Line,
				Col:  l.Col,
				Msg:  f("label %s defined more than once", l.Name),
			})
			continue
		}
		a.labels[l.Name] = uint16(addr)
		a.log("%-16s $%04X", l.Name, addr)
	}
}

// Emit opcode and operand bytes for every instruction.
func (a *assembler) generateCode() {
	a.logSection("Generating code")

	for i := range a.prog.Instructions {
		in := &a.prog.Instructions[i]
		value := in.Operand
		if in.Target != "" {
			addr, ok := a.labels[in.Target]
			if !ok {
				a.addError(ErrUnknownLabel, in, "label %s is not defined", in.Target)
				continue
			}
			value = uint32(addr)
		}

		var operand []byte
		switch in.Inst.Mode {
		case cpu.IMM, cpu.ZPG, cpu.ZPX:
			if value > 0xff {
				a.addError(ErrOperandRange, in, "operand $%X does not fit in a byte", value)
				continue
			}
			operand = []byte{byte(value)}

		case cpu.ABS:
			if value > 0xffff {
				a.addError(ErrOperandRange, in, "operand $%X does not fit in a word", value)
				continue
			}
			operand = []byte{byte(value), byte(value >> 8)}

		case cpu.REL:
			offset, ok := a.branchOffset(in, value)
			if !ok {
				continue
			}
			operand = []byte{offset}
		}

		start := len(a.code)
		a.code = append(a.code, in.Inst.Opcode)
		a.code = append(a.code, operand...)

		a.sourceLines = append(a.sourceLines, SourceLine{
			Address: int(in.Addr),
			Line:    in.Line,
		})
		a.logBytes(int(in.Addr), a.code[start:])
	}
}

// Compute the operand byte of a branch. A zero-page literal is the offset
// itself; an absolute literal or a label is the branch target.
func (a *assembler) branchOffset(in *Instruction, value uint32) (byte, bool) {
	if in.Mode == cpu.ZPG && in.Target == "" {
		return byte(value), true
	}

	next := int(in.Addr) + int(in.Inst.Length)
	offset, err := relOffset(int(value), next)
	if err != nil {
		a.addError(ErrBranchRange, in, "branch target $%04X is %d bytes away", value, int(value)-next)
		return 0, false
	}
	return offset, true
}

// Compute the relative offset of two addresses as a
// two's-complement byte value. If the offset can't
// fit into a byte, return an error.
func relOffset(addr1, addr2 int) (byte, error) {
	diff := addr1 - addr2
	switch {
	case diff < -128 || diff > 127:
		return 0, ErrBranchRange
	case diff >= 0:
		return byte(diff), nil
	default:
		return byte(256 + diff), nil
	}
}

// Given a parsed instruction, select the matching encoding from the
// instruction set. Branches take the relative encoding for any address
// operand, and zero-page operands fall back to absolute encodings.
func (a *assembler) findMatchingInstruction(in *Instruction) *cpu.Instruction {
	if rel := a.instSet.Find(in.Mnemonic, cpu.REL); rel != nil {
		if in.Mode == cpu.ZPG || in.Mode == cpu.ABS {
			return rel
		}
		return nil
	}

	if inst := a.instSet.Find(in.Mnemonic, in.Mode); inst != nil {
		return inst
	}
	if in.Mode == cpu.ZPG {
		return a.instSet.Find(in.Mnemonic, cpu.ABS)
	}
	return nil
}
