// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu_test

import (
	"context"
	"errors"
	"testing"

	"github.com/beevik/mini6502/asm"
	"github.com/beevik/mini6502/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadCPU(t *testing.T, asmString string) *cpu.CPU {
	t.Helper()
	assembly, err := asm.AssembleString(asmString, cpu.ResetPC)
	require.NoError(t, err)

	c := cpu.NewCPU(cpu.NewFlatMemory())
	require.NoError(t, c.LoadProgram(assembly.Code, int(assembly.Origin)))
	return c
}

func stepCPU(t *testing.T, c *cpu.CPU, steps int) {
	t.Helper()
	for i := 0; i < steps; i++ {
		require.NoError(t, c.Step())
	}
}

func runCPU(t *testing.T, asmString string, steps int) *cpu.CPU {
	t.Helper()
	c := loadCPU(t, asmString)
	stepCPU(t, c, steps)
	return c
}

func expectPC(t *testing.T, c *cpu.CPU, pc uint16) {
	t.Helper()
	if c.Reg.PC != pc {
		t.Errorf("PC incorrect. exp: $%04X, got: $%04X", pc, c.Reg.PC)
	}
}

func expectCycles(t *testing.T, c *cpu.CPU, cycles uint64) {
	t.Helper()
	if c.Cycles != cycles {
		t.Errorf("Cycles incorrect. exp: %d, got: %d", cycles, c.Cycles)
	}
}

func expectACC(t *testing.T, c *cpu.CPU, acc byte) {
	t.Helper()
	if c.Reg.A != acc {
		t.Errorf("Accumulator incorrect. exp: $%02X, got: $%02X", acc, c.Reg.A)
	}
}

func expectSP(t *testing.T, c *cpu.CPU, sp byte) {
	t.Helper()
	if c.Reg.SP != sp {
		t.Errorf("stack pointer incorrect. exp: %02X, got $%02X", sp, c.Reg.SP)
	}
}

func expectMem(t *testing.T, c *cpu.CPU, addr uint16, v byte) {
	t.Helper()
	got := c.ReadByte(addr)
	if got != v {
		t.Errorf("Memory at $%04X incorrect. exp: $%02X, got: $%02X", addr, v, got)
	}
}

func expectFlags(t *testing.T, c *cpu.CPU, flags string) {
	t.Helper()
	if got := c.Reg.FlagString(); got != flags {
		t.Errorf("Flags incorrect. exp: %s, got: %s", flags, got)
	}
}

func TestReset(t *testing.T) {
	c := cpu.NewCPU(cpu.NewFlatMemory())
	expectPC(t, c, 0x0600)
	expectSP(t, c, 0xff)
	assert.Equal(t, byte(0x20), c.Reg.PS)
	assert.False(t, c.Halted)

	c.Reg.A = 5
	c.Halted = true
	c.Cycles = 10
	c.WriteByte(0x1234, 0x56)
	c.Reset()
	expectACC(t, c, 0)
	expectCycles(t, c, 0)
	expectMem(t, c, 0x1234, 0)
	assert.False(t, c.Halted)
}

func TestAccumulator(t *testing.T) {
	asm := `
	LDA #$5E
	STA $15
	STA $1500`

	c := runCPU(t, asm, 3)
	expectPC(t, c, 0x0607)
	expectCycles(t, c, 3)
	expectACC(t, c, 0x5e)
	expectMem(t, c, 0x15, 0x5e)
	expectMem(t, c, 0x1500, 0x5e)
}

func TestLoadFlags(t *testing.T) {
	c := runCPU(t, "LDA #$00", 1)
	assert.True(t, c.Reg.Flag(cpu.ZeroBit))
	assert.False(t, c.Reg.Flag(cpu.NegativeBit))

	c = runCPU(t, "LDA #$80", 1)
	assert.False(t, c.Reg.Flag(cpu.ZeroBit))
	assert.True(t, c.Reg.Flag(cpu.NegativeBit))
}

func TestZeroPageX(t *testing.T) {
	asm := `
	LDX #$F0
	LDA #$42
	STA $20,X
	LDA #$00
	LDA $20,X`

	c := runCPU(t, asm, 5)
	// $20 + $F0 wraps within the zero page.
	expectMem(t, c, 0x10, 0x42)
	expectMem(t, c, 0x110, 0x00)
	expectACC(t, c, 0x42)
}

func TestStack(t *testing.T) {
	asm := `
	LDA #$11
	PHA
	LDA #$12
	PHA
	LDA #$13
	PHA

	PLA
	STA $2000
	PLA
	STA $2001
	PLA
	STA $2002`

	c := loadCPU(t, asm)
	stepCPU(t, c, 6)

	expectSP(t, c, 0xfc)
	expectACC(t, c, 0x13)
	expectMem(t, c, 0x1ff, 0x11)
	expectMem(t, c, 0x1fe, 0x12)
	expectMem(t, c, 0x1fd, 0x13)

	stepCPU(t, c, 6)
	expectACC(t, c, 0x11)
	expectSP(t, c, 0xff)
	expectMem(t, c, 0x2000, 0x13)
	expectMem(t, c, 0x2001, 0x12)
	expectMem(t, c, 0x2002, 0x11)
}

func TestStatusPushPull(t *testing.T) {
	asm := `
	SEC
	SED
	PHP
	CLC
	CLD
	PLP`

	c := loadCPU(t, asm)
	stepCPU(t, c, 3)
	expectMem(t, c, 0x1ff, cpu.CarryBit|cpu.DecimalBit|cpu.BreakBit|cpu.ReservedBit)

	stepCPU(t, c, 2)
	expectFlags(t, c, "nv-bdizc")

	stepCPU(t, c, 1)
	expectFlags(t, c, "nv-bDizC")
}

func TestAdd(t *testing.T) {
	tests := []struct {
		a, m  byte
		carry bool
		want  byte
		flags string
	}{
		{0x01, 0x02, false, 0x03, "nv-bdizc"},
		{0x01, 0x02, true, 0x04, "nv-bdizc"},
		{0xff, 0x01, false, 0x00, "nv-bdiZC"},
		{0x7f, 0x01, false, 0x80, "Nv-bdizc"},
		{0xf0, 0x20, true, 0x11, "nv-bdizC"},
	}

	for _, test := range tests {
		c := loadCPU(t, "ADC $10")
		c.Reg.A = test.a
		c.Reg.SetFlag(cpu.CarryBit, test.carry)
		c.WriteByte(0x10, test.m)
		stepCPU(t, c, 1)
		expectACC(t, c, test.want)
		expectFlags(t, c, test.flags)
	}
}

func TestSubtract(t *testing.T) {
	tests := []struct {
		a, m  byte
		carry bool
		want  byte
		flags string
	}{
		{0x05, 0x03, true, 0x02, "nv-bdizC"},
		{0x05, 0x03, false, 0x01, "nv-bdizC"},
		{0x05, 0x05, true, 0x00, "nv-bdiZC"},
		{0x03, 0x05, true, 0xfe, "Nv-bdizc"},
		{0x00, 0x00, false, 0xff, "Nv-bdizc"},
	}

	for _, test := range tests {
		c := loadCPU(t, "SBC $10")
		c.Reg.A = test.a
		c.Reg.SetFlag(cpu.CarryBit, test.carry)
		c.WriteByte(0x10, test.m)
		stepCPU(t, c, 1)
		expectACC(t, c, test.want)
		expectFlags(t, c, test.flags)
	}
}

func TestCompare(t *testing.T) {
	c := runCPU(t, "LDA #$05\nCMP #$05", 2)
	assert.True(t, c.Reg.Flag(cpu.CarryBit))
	assert.True(t, c.Reg.Flag(cpu.ZeroBit))
	assert.False(t, c.Reg.Flag(cpu.NegativeBit))

	c = runCPU(t, "LDA #$04\nCMP #$05", 2)
	assert.False(t, c.Reg.Flag(cpu.CarryBit))
	assert.False(t, c.Reg.Flag(cpu.ZeroBit))
	assert.True(t, c.Reg.Flag(cpu.NegativeBit))

	c = runCPU(t, "LDX #$10\nCPX #$01\nLDY #$01\nCPY #$02", 4)
	assert.False(t, c.Reg.Flag(cpu.CarryBit))
	assert.True(t, c.Reg.Flag(cpu.NegativeBit))
	assert.Equal(t, byte(0x10), c.Reg.X)
}

func TestIncrementWrap(t *testing.T) {
	asm := `
	LDX #$FF
	INX
	LDY #$00
	DEY
	INC $10
	DEC $11`

	c := loadCPU(t, asm)
	c.WriteByte(0x10, 0xff)
	stepCPU(t, c, 2)
	assert.Equal(t, byte(0x00), c.Reg.X)
	assert.True(t, c.Reg.Flag(cpu.ZeroBit))

	stepCPU(t, c, 2)
	assert.Equal(t, byte(0xff), c.Reg.Y)
	assert.True(t, c.Reg.Flag(cpu.NegativeBit))

	stepCPU(t, c, 1)
	expectMem(t, c, 0x10, 0x00)
	assert.True(t, c.Reg.Flag(cpu.ZeroBit))

	stepCPU(t, c, 1)
	expectMem(t, c, 0x11, 0xff)
	assert.True(t, c.Reg.Flag(cpu.NegativeBit))
}

func TestLogic(t *testing.T) {
	c := runCPU(t, "LDA #$F0\nAND #$3C\nORA #$01\nEOR #$FF", 4)
	expectACC(t, c, 0xce)

	c = loadCPU(t, "LDA #$01\nBIT $10")
	c.WriteByte(0x10, 0xc0)
	stepCPU(t, c, 2)
	expectFlags(t, c, "NV-bdiZc")
}

func TestShiftRotate(t *testing.T) {
	asm := `
	LDA #$81
	STA $10
	ASL $10
	ROL $10
	LSR $10
	ROR $10
	LDX #$01
	LDA #$80
	STA $2000
	ASL $2000
	ROL $0F,X`

	c := runCPU(t, asm, 3)
	expectMem(t, c, 0x10, 0x02)
	expectFlags(t, c, "nv-bdizC")

	stepCPU(t, c, 1)
	expectMem(t, c, 0x10, 0x05)
	expectFlags(t, c, "nv-bdizc")

	stepCPU(t, c, 1)
	expectMem(t, c, 0x10, 0x02)
	expectFlags(t, c, "nv-bdizC")

	stepCPU(t, c, 1)
	expectMem(t, c, 0x10, 0x81)
	expectFlags(t, c, "Nv-bdizc")

	stepCPU(t, c, 4)
	expectMem(t, c, 0x2000, 0x00)
	expectFlags(t, c, "nv-bdiZC")

	stepCPU(t, c, 1)
	expectMem(t, c, 0x10, 0x03)
	expectFlags(t, c, "nv-bdizC")
	expectACC(t, c, 0x80)
}

func TestNextAddr(t *testing.T) {
	c := loadCPU(t, "JSR $1234\nLDA #$01\nTAX\nBRK")
	assert.Equal(t, uint16(0x0603), c.NextAddr(0x0600))
	assert.Equal(t, uint16(0x0605), c.NextAddr(0x0603))
	assert.Equal(t, uint16(0x0606), c.NextAddr(0x0605))
}

func TestTransfer(t *testing.T) {
	asm := `
	LDA #$80
	TAX
	TAY
	LDA #$00
	TXA
	LDX #$40
	TXS
	TSX
	TYA`

	c := runCPU(t, asm, 9)
	expectACC(t, c, 0x80)
	expectSP(t, c, 0x40)
	assert.Equal(t, byte(0x40), c.Reg.X)
	assert.Equal(t, byte(0x80), c.Reg.Y)
}

func TestBranchOffsets(t *testing.T) {
	// Offset byte 10 moves forward 10 bytes past the branch.
	c := loadCPU(t, "BNE $0A")
	stepCPU(t, c, 1)
	expectPC(t, c, 0x0602+10)

	// Offset byte 200 moves back 56 bytes.
	c = loadCPU(t, "BNE 200")
	stepCPU(t, c, 1)
	expectPC(t, c, 0x0602-56)

	// Branch not taken.
	c = loadCPU(t, "BEQ $0A")
	stepCPU(t, c, 1)
	expectPC(t, c, 0x0602)
}

func TestBranchFlags(t *testing.T) {
	tests := []struct {
		op    string
		flag  byte
		taken bool
	}{
		{"BCC", cpu.CarryBit, false},
		{"BCS", cpu.CarryBit, true},
		{"BEQ", cpu.ZeroBit, true},
		{"BNE", cpu.ZeroBit, false},
		{"BMI", cpu.NegativeBit, true},
		{"BPL", cpu.NegativeBit, false},
		{"BVS", cpu.OverflowBit, true},
		{"BVC", cpu.OverflowBit, false},
	}

	for _, test := range tests {
		c := loadCPU(t, test.op+" $04")
		c.Reg.SetFlag(test.flag, true)
		stepCPU(t, c, 1)
		if test.taken {
			expectPC(t, c, 0x0606)
		} else {
			expectPC(t, c, 0x0602)
		}
	}
}

func TestLoop(t *testing.T) {
	asm := `
	LDX #$05
	LDA #$00
loop:
	ADC #$02
	DEX
	BNE loop
	STA $0200
	BRK`

	c := loadCPU(t, asm)
	require.NoError(t, c.Run(1000))
	assert.True(t, c.Halted)
	expectMem(t, c, 0x0200, 10)
	expectCycles(t, c, 2+5*3+2)
}

func TestSubroutine(t *testing.T) {
	c := loadCPU(t, "JSR $0610")
	c.WriteByte(0x0610, 0x60) // RTS

	stepCPU(t, c, 1)
	expectPC(t, c, 0x0610)
	expectSP(t, c, 0xfd)
	expectMem(t, c, 0x1ff, 0x06)
	expectMem(t, c, 0x1fe, 0x02)

	stepCPU(t, c, 1)
	expectPC(t, c, 0x0603)
	expectSP(t, c, 0xff)
}

func TestSubroutineLabels(t *testing.T) {
	asm := `
	JSR double
	JSR double
	BRK
double:
	ADC $10
	STA $10
	RTS`

	c := loadCPU(t, asm)
	c.WriteByte(0x10, 3)
	c.Reg.A = 3
	require.NoError(t, c.Run(100))
	expectMem(t, c, 0x10, 12)
	expectSP(t, c, 0xff)
}

func TestJump(t *testing.T) {
	c := runCPU(t, "JMP $1234", 1)
	expectPC(t, c, 0x1234)
}

func TestHalt(t *testing.T) {
	c := runCPU(t, "NOP\nBRK\nNOP", 2)
	assert.True(t, c.Halted)
	expectPC(t, c, 0x0602)
	expectCycles(t, c, 2)

	// Stepping a halted CPU does nothing.
	stepCPU(t, c, 3)
	expectPC(t, c, 0x0602)
	expectCycles(t, c, 2)
}

func TestRunCycles(t *testing.T) {
	c := loadCPU(t, "loop:\nNOP\nJMP loop")
	require.NoError(t, c.Run(101))
	expectCycles(t, c, 101)
	assert.False(t, c.Halted)

	// Every step counts once regardless of operand width.
	steps := 0
	c = loadCPU(t, "LDA #$01\nSTA $0200\nINX\nBRK")
	for !c.Halted {
		require.NoError(t, c.Step())
		steps++
	}
	expectCycles(t, c, uint64(steps))
}

func TestRunContext(t *testing.T) {
	c := loadCPU(t, "loop:\nJMP loop")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.RunContext(ctx, 1000)
	assert.ErrorIs(t, err, context.Canceled)
	expectCycles(t, c, 0)
}

func TestUnknownOpcode(t *testing.T) {
	c := cpu.NewCPU(cpu.NewFlatMemory())
	require.NoError(t, c.LoadProgram([]byte{0xea, 0x02, 0xe8, 0x00}, 0x0600))

	err := c.Run(10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cpu.ErrUnknownOpcode))

	var opErr *cpu.UnknownOpcodeError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, byte(0x02), opErr.Opcode)
	assert.Equal(t, uint16(0x0601), opErr.Addr)
	expectPC(t, c, 0x0602)
	expectCycles(t, c, 2)

	c.Reset()
	c.UnknownOpcodes = cpu.Ignore
	require.NoError(t, c.LoadProgram([]byte{0xea, 0x02, 0xe8, 0x00}, 0x0600))
	require.NoError(t, c.Run(10))
	assert.True(t, c.Halted)
	assert.Equal(t, byte(1), c.Reg.X)
	expectCycles(t, c, 4)
}

func TestLoadProgram(t *testing.T) {
	c := cpu.NewCPU(cpu.NewFlatMemory())

	require.NoError(t, c.LoadProgram([]byte{1, 2}, 0xfffe))
	expectMem(t, c, 0xffff, 2)

	err := c.LoadProgram([]byte{9, 9, 9}, 0xfffe)
	assert.ErrorIs(t, err, cpu.ErrLoadOverflow)
	expectMem(t, c, 0xfffe, 1)
	expectMem(t, c, 0xffff, 2)

	var loadErr *cpu.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, 3, loadErr.Length)

	assert.ErrorIs(t, c.LoadProgram([]byte{1}, -1), cpu.ErrLoadOverflow)
}

func TestGetMemory(t *testing.T) {
	c := cpu.NewCPU(cpu.NewFlatMemory())
	c.WriteByte(0xffff, 0x77)
	c.WriteByte(0x0000, 0x66)

	assert.Equal(t, byte(0), c.GetMemory(-1))
	assert.Equal(t, byte(0), c.GetMemory(70000))
	assert.Equal(t, byte(0), c.GetMemory(cpu.MemorySize))
	assert.Equal(t, byte(0x77), c.GetMemory(0xffff))
	assert.Equal(t, byte(0x66), c.GetMemory(0))
}

func TestGetScreenPixel(t *testing.T) {
	c := cpu.NewCPU(cpu.NewFlatMemory())
	c.WriteByte(cpu.ScreenBase, 1)
	c.WriteByte(cpu.ScreenBase+cpu.ScreenWidth*2+3, 5)
	c.WriteByte(cpu.ScreenBase+cpu.ScreenSize-1, 7)
	c.WriteByte(cpu.ScreenBase+cpu.ScreenSize, 9)

	assert.Equal(t, byte(1), c.GetScreenPixel(0, 0))
	assert.Equal(t, byte(5), c.GetScreenPixel(3, 2))
	assert.Equal(t, byte(7), c.GetScreenPixel(31, 31))
	assert.Equal(t, byte(0), c.GetScreenPixel(32, 0))
	assert.Equal(t, byte(0), c.GetScreenPixel(0, 32))
	assert.Equal(t, byte(0), c.GetScreenPixel(-1, 0))
	assert.Equal(t, byte(0), c.GetScreenPixel(0, -1))
}
