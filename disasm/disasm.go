// Copyright 2014 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements a 6502 instruction set
// disassembler.
package disasm

import (
	"fmt"

	"github.com/beevik/mini6502/cpu"
)

// Disassembler formatting for addressing modes
var modeFormat = []string{
	cpu.IMM: "#$%s",
	cpu.IMP: "%s",
	cpu.REL: "$%s",
	cpu.ZPG: "$%s",
	cpu.ZPX: "$%s,X",
	cpu.ABS: "$%s",
}

var hex = "0123456789ABCDEF"

// Return a hexadecimal string representation of the byte slice, most
// significant byte first.
func hexString(b []byte) string {
	hexlen := len(b) * 2
	hexbuf := make([]byte, hexlen)
	j := hexlen - 1
	for _, n := range b {
		hexbuf[j] = hex[n&0xf]
		hexbuf[j-1] = hex[n>>4]
		j -= 2
	}
	return string(hexbuf)
}

// Disassemble the machine code in memory 'm' at address 'addr'. Return a
// 'line' string representing the disassembled instruction and a 'next'
// address that starts the following line of machine code. Bytes that are
// not a defined opcode disassemble as "???".
func Disassemble(m cpu.Memory, addr uint16) (line string, next uint16) {
	opcode := m.LoadByte(addr)
	inst := cpu.GetInstructionSet().Lookup(opcode)
	operand := make([]byte, inst.Length-1)
	m.LoadBytes(addr+1, operand)
	next = addr + uint16(inst.Length)

	if inst.Mode == cpu.REL {
		// Convert relative offset to absolute address.
		target := next + uint16(operand[0])
		if operand[0] > 0x7f {
			target -= 0x100
		}
		operand = []byte{byte(target), byte(target >> 8)}
	}

	if len(operand) == 0 {
		return inst.Name, next
	}
	line = fmt.Sprintf("%s "+modeFormat[inst.Mode], inst.Name, hexString(operand))
	return line, next
}

// Bytes returns the machine code bytes of the instruction at 'addr'.
func Bytes(m cpu.Memory, addr uint16) []byte {
	inst := cpu.GetInstructionSet().Lookup(m.LoadByte(addr))
	b := make([]byte, inst.Length)
	m.LoadBytes(addr, b)
	return b
}
