// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"slices"
	"strings"
	"sync"
)

// An opsym is an internal symbol used to associate an opcode's data
// with its instructions.
type opsym byte

const (
	symADC opsym = iota
	symAND
	symASL
	symBCC
	symBCS
	symBEQ
	symBIT
	symBMI
	symBNE
	symBPL
	symBRK
	symBVC
	symBVS
	symCLC
	symCLD
	symCLI
	symCLV
	symCMP
	symCPX
	symCPY
	symDEC
	symDEX
	symDEY
	symEOR
	symINC
	symINX
	symINY
	symJMP
	symJSR
	symLDA
	symLDX
	symLDY
	symLSR
	symNOP
	symORA
	symPHA
	symPHP
	symPLA
	symPLP
	symROL
	symROR
	symRTS
	symSBC
	symSEC
	symSED
	symSEI
	symSTA
	symSTX
	symSTY
	symTAX
	symTAY
	symTSX
	symTXA
	symTXS
	symTYA
)

type instfunc func(c *CPU, inst *Instruction, operand []byte)

// Emulator implementation for each opcode
type opcodeImpl struct {
	sym  opsym
	name string
	fn   instfunc
}

var impl = []opcodeImpl{
	{symADC, "ADC", (*CPU).adc},
	{symAND, "AND", (*CPU).and},
	{symASL, "ASL", (*CPU).asl},
	{symBCC, "BCC", (*CPU).bcc},
	{symBCS, "BCS", (*CPU).bcs},
	{symBEQ, "BEQ", (*CPU).beq},
	{symBIT, "BIT", (*CPU).bit},
	{symBMI, "BMI", (*CPU).bmi},
	{symBNE, "BNE", (*CPU).bne},
	{symBPL, "BPL", (*CPU).bpl},
	{symBRK, "BRK", (*CPU).brk},
	{symBVC, "BVC", (*CPU).bvc},
	{symBVS, "BVS", (*CPU).bvs},
	{symCLC, "CLC", (*CPU).clc},
	{symCLD, "CLD", (*CPU).cld},
	{symCLI, "CLI", (*CPU).cli},
	{symCLV, "CLV", (*CPU).clv},
	{symCMP, "CMP", (*CPU).cmp},
	{symCPX, "CPX", (*CPU).cpx},
	{symCPY, "CPY", (*CPU).cpy},
	{symDEC, "DEC", (*CPU).dec},
	{symDEX, "DEX", (*CPU).dex},
	{symDEY, "DEY", (*CPU).dey},
	{symEOR, "EOR", (*CPU).eor},
	{symINC, "INC", (*CPU).inc},
	{symINX, "INX", (*CPU).inx},
	{symINY, "INY", (*CPU).iny},
	{symJMP, "JMP", (*CPU).jmp},
	{symJSR, "JSR", (*CPU).jsr},
	{symLDA, "LDA", (*CPU).lda},
	{symLDX, "LDX", (*CPU).ldx},
	{symLDY, "LDY", (*CPU).ldy},
	{symLSR, "LSR", (*CPU).lsr},
	{symNOP, "NOP", (*CPU).nop},
	{symORA, "ORA", (*CPU).ora},
	{symPHA, "PHA", (*CPU).pha},
	{symPHP, "PHP", (*CPU).php},
	{symPLA, "PLA", (*CPU).pla},
	{symPLP, "PLP", (*CPU).plp},
	{symROL, "ROL", (*CPU).rol},
	{symROR, "ROR", (*CPU).ror},
	{symRTS, "RTS", (*CPU).rts},
	{symSBC, "SBC", (*CPU).sbc},
	{symSEC, "SEC", (*CPU).sec},
	{symSED, "SED", (*CPU).sed},
	{symSEI, "SEI", (*CPU).sei},
	{symSTA, "STA", (*CPU).sta},
	{symSTX, "STX", (*CPU).stx},
	{symSTY, "STY", (*CPU).sty},
	{symTAX, "TAX", (*CPU).tax},
	{symTAY, "TAY", (*CPU).tay},
	{symTSX, "TSX", (*CPU).tsx},
	{symTXA, "TXA", (*CPU).txa},
	{symTXS, "TXS", (*CPU).txs},
	{symTYA, "TYA", (*CPU).tya},
}

// Mode describes a memory addressing mode.
type Mode byte

// All supported memory addressing modes
const (
	IMM Mode = iota // Immediate
	IMP             // Implied (no operand)
	REL             // Relative
	ZPG             // Zero Page
	ZPX             // Zero Page,X
	ABS             // Absolute
)

var modeNames = [...]string{
	IMM: "Immediate",
	IMP: "Implied",
	REL: "Relative",
	ZPG: "ZeroPage",
	ZPX: "ZeroPageX",
	ABS: "Absolute",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "Unknown"
}

// OperandLength returns the number of operand bytes that follow the opcode
// for the addressing mode.
func (m Mode) OperandLength() int {
	switch m {
	case IMP:
		return 0
	case ABS:
		return 2
	default:
		return 1
	}
}

// Opcode data for an (opcode, mode) pair
type opcodeData struct {
	sym    opsym // internal opcode symbol
	mode   Mode  // addressing mode
	opcode byte  // opcode hex value
}

// All valid (opcode, mode) pairs
var data = []opcodeData{
	{symLDA, IMM, 0xa9},
	{symLDA, ZPG, 0xa5},
	{symLDA, ZPX, 0xb5},
	{symLDA, ABS, 0xad},

	{symLDX, IMM, 0xa2},
	{symLDX, ZPG, 0xa6},
	{symLDX, ABS, 0xae},

	{symLDY, IMM, 0xa0},
	{symLDY, ZPG, 0xa4},
	{symLDY, ZPX, 0xb4},
	{symLDY, ABS, 0xac},

	{symSTA, ZPG, 0x85},
	{symSTA, ZPX, 0x95},
	{symSTA, ABS, 0x8d},

	{symSTX, ZPG, 0x86},
	{symSTX, ABS, 0x8e},

	{symSTY, ZPG, 0x84},
	{symSTY, ZPX, 0x94},
	{symSTY, ABS, 0x8c},

	{symADC, IMM, 0x69},
	{symADC, ZPG, 0x65},
	{symADC, ZPX, 0x75},
	{symADC, ABS, 0x6d},

	{symSBC, IMM, 0xe9},
	{symSBC, ZPG, 0xe5},
	{symSBC, ZPX, 0xf5},
	{symSBC, ABS, 0xed},

	{symAND, IMM, 0x29},
	{symAND, ZPG, 0x25},
	{symAND, ZPX, 0x35},
	{symAND, ABS, 0x2d},

	{symORA, IMM, 0x09},
	{symORA, ZPG, 0x05},
	{symORA, ZPX, 0x15},
	{symORA, ABS, 0x0d},

	{symEOR, IMM, 0x49},
	{symEOR, ZPG, 0x45},
	{symEOR, ZPX, 0x55},
	{symEOR, ABS, 0x4d},

	{symCMP, IMM, 0xc9},
	{symCMP, ZPG, 0xc5},
	{symCMP, ZPX, 0xd5},
	{symCMP, ABS, 0xcd},

	{symCPX, IMM, 0xe0},
	{symCPX, ZPG, 0xe4},
	{symCPX, ABS, 0xec},

	{symCPY, IMM, 0xc0},
	{symCPY, ZPG, 0xc4},
	{symCPY, ABS, 0xcc},

	{symBIT, ZPG, 0x24},
	{symBIT, ABS, 0x2c},

	{symINC, ZPG, 0xe6},
	{symINC, ZPX, 0xf6},
	{symINC, ABS, 0xee},

	{symDEC, ZPG, 0xc6},
	{symDEC, ZPX, 0xd6},
	{symDEC, ABS, 0xce},

	{symASL, ZPG, 0x06},
	{symASL, ZPX, 0x16},
	{symASL, ABS, 0x0e},

	{symLSR, ZPG, 0x46},
	{symLSR, ZPX, 0x56},
	{symLSR, ABS, 0x4e},

	{symROL, ZPG, 0x26},
	{symROL, ZPX, 0x36},
	{symROL, ABS, 0x2e},

	{symROR, ZPG, 0x66},
	{symROR, ZPX, 0x76},
	{symROR, ABS, 0x6e},

	{symINX, IMP, 0xe8},
	{symINY, IMP, 0xc8},
	{symDEX, IMP, 0xca},
	{symDEY, IMP, 0x88},

	{symTAX, IMP, 0xaa},
	{symTAY, IMP, 0xa8},
	{symTXA, IMP, 0x8a},
	{symTYA, IMP, 0x98},
	{symTSX, IMP, 0xba},
	{symTXS, IMP, 0x9a},

	{symPHA, IMP, 0x48},
	{symPHP, IMP, 0x08},
	{symPLA, IMP, 0x68},
	{symPLP, IMP, 0x28},

	{symCLC, IMP, 0x18},
	{symSEC, IMP, 0x38},
	{symCLI, IMP, 0x58},
	{symSEI, IMP, 0x78},
	{symCLV, IMP, 0xb8},
	{symCLD, IMP, 0xd8},
	{symSED, IMP, 0xf8},

	{symBPL, REL, 0x10},
	{symBMI, REL, 0x30},
	{symBVC, REL, 0x50},
	{symBVS, REL, 0x70},
	{symBCC, REL, 0x90},
	{symBCS, REL, 0xb0},
	{symBNE, REL, 0xd0},
	{symBEQ, REL, 0xf0},

	{symJMP, ABS, 0x4c},
	{symJSR, ABS, 0x20},
	{symRTS, IMP, 0x60},
	{symNOP, IMP, 0xea},
	{symBRK, IMP, 0x00},
}

// An Instruction describes a CPU instruction, including its name,
// its addressing mode, its opcode value and its size.
type Instruction struct {
	Name   string   // all-caps name of the instruction
	Mode   Mode     // addressing mode
	Opcode byte     // hexadecimal opcode value
	Length byte     // combined size of opcode and operand, in bytes
	fn     instfunc // emulator implementation of the function
}

// Defined returns true if the instruction has an emulator implementation.
func (inst *Instruction) Defined() bool {
	return inst.fn != nil
}

// UnusedName is the name given to opcodes with no implementation.
const UnusedName = "???"

// An InstructionSet defines the set of all possible instructions that
// can run on the emulated CPU. The emulator decodes against it by opcode
// and the assembler encodes against it by name and mode.
type InstructionSet struct {
	instructions [256]Instruction          // all instructions by opcode
	variants     map[string][]*Instruction // variants of each instruction
}

// Lookup retrieves a CPU instruction corresponding to the requested opcode.
func (s *InstructionSet) Lookup(opcode byte) *Instruction {
	return &s.instructions[opcode]
}

// GetInstructions returns all CPU instructions whose name matches the
// provided string.
func (s *InstructionSet) GetInstructions(name string) []*Instruction {
	return s.variants[strings.ToUpper(name)]
}

// Find returns the instruction matching the name and addressing mode, or
// nil if the pair has no encoding.
func (s *InstructionSet) Find(name string, mode Mode) *Instruction {
	for _, inst := range s.GetInstructions(name) {
		if inst.Mode == mode {
			return inst
		}
	}
	return nil
}

// Names returns the sorted names of all defined instructions.
func (s *InstructionSet) Names() []string {
	names := make([]string, 0, len(s.variants))
	for name := range s.variants {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Create the instruction set.
func newInstructionSet() *InstructionSet {
	set := &InstructionSet{
		variants: make(map[string][]*Instruction),
	}

	// Create a map from symbol to implementation for fast lookups.
	symToImpl := make(map[opsym]*opcodeImpl, len(impl))
	for i := range impl {
		symToImpl[impl[i].sym] = &impl[i]
	}

	for _, d := range data {
		impl := symToImpl[d.sym]
		inst := &set.instructions[d.opcode]
		if inst.fn != nil {
			panic("duplicate opcode")
		}

		inst.Name = impl.name
		inst.Mode = d.mode
		inst.Opcode = d.opcode
		inst.Length = byte(1 + d.mode.OperandLength())
		inst.fn = impl.fn

		set.variants[inst.Name] = append(set.variants[inst.Name], inst)
	}

	// Every remaining opcode decodes as a 1-byte unused instruction.
	for i := range set.instructions {
		inst := &set.instructions[i]
		if inst.fn == nil {
			inst.Name = UnusedName
			inst.Mode = IMP
			inst.Opcode = byte(i)
			inst.Length = 1
		}
	}
	return set
}

var (
	instructionSet     *InstructionSet
	instructionSetOnce sync.Once
)

// GetInstructionSet returns the instruction set shared by the emulator,
// the assembler and the disassembler.
func GetInstructionSet() *InstructionSet {
	instructionSetOnce.Do(func() {
		instructionSet = newInstructionSet()
	})
	return instructionSet
}
