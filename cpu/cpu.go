// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu implements a small 6502 CPU instruction
// set and emulator.
package cpu

import "context"

// OpcodePolicy selects how the CPU treats opcodes that have no
// implementation.
type OpcodePolicy byte

const (
	// Fault stops execution with an UnknownOpcodeError.
	Fault OpcodePolicy = iota

	// Ignore executes unknown opcodes as NOP.
	Ignore
)

// CPU represents a single 6502 CPU. It contains a pointer to the
// memory associated with the CPU.
type CPU struct {
	Reg            Registers       // CPU registers
	Mem            Memory          // assigned memory
	Cycles         uint64          // total executed instructions
	Halted         bool            // set by BRK; Step is a no-op once set
	LastPC         uint16          // Previous program counter
	InstSet        *InstructionSet // Instruction set used by the CPU
	UnknownOpcodes OpcodePolicy    // treatment of unimplemented opcodes
	debugger       *Debugger
	storeByte      func(cpu *CPU, addr uint16, v byte)
}

// NewCPU creates an emulated 6502 CPU bound to the specified memory.
func NewCPU(m Memory) *CPU {
	cpu := &CPU{
		Mem:       m,
		InstSet:   GetInstructionSet(),
		storeByte: (*CPU).storeByteNormal,
	}

	cpu.Reg.Init()
	return cpu
}

// Reset returns the registers to their initial state, clears the halt
// latch and the cycle counter, and zeroes memory if it is a FlatMemory.
func (cpu *CPU) Reset() {
	cpu.Reg.Init()
	cpu.Cycles = 0
	cpu.Halted = false
	cpu.LastPC = 0
	if m, ok := cpu.Mem.(*FlatMemory); ok {
		m.Clear()
	}
}

// SetPC updates the CPU program counter to 'addr'.
func (cpu *CPU) SetPC(addr uint16) {
	cpu.Reg.PC = addr
}

// LoadProgram copies 'code' into memory starting at 'addr'. Memory is left
// untouched if the program would not fit entirely in the address space.
func (cpu *CPU) LoadProgram(code []byte, addr int) error {
	if addr < 0 || addr+len(code) > MemorySize {
		return &LoadError{Addr: addr, Length: len(code)}
	}
	cpu.Mem.StoreBytes(uint16(addr), code)
	return nil
}

// ReadByte returns the byte stored at 'addr'.
func (cpu *CPU) ReadByte(addr uint16) byte {
	return cpu.Mem.LoadByte(addr)
}

// WriteByte stores 'v' at 'addr', notifying an attached debugger.
func (cpu *CPU) WriteByte(addr uint16, v byte) {
	cpu.storeByte(cpu, addr, v)
}

// GetInstruction returns the instruction opcode at the requested address.
func (cpu *CPU) GetInstruction(addr uint16) *Instruction {
	opcode := cpu.Mem.LoadByte(addr)
	return cpu.InstSet.Lookup(opcode)
}

// NextAddr returns the address of the next instruction following the
// instruction at addr.
func (cpu *CPU) NextAddr(addr uint16) uint16 {
	inst := cpu.GetInstruction(addr)
	return addr + uint16(inst.Length)
}

// Step the cpu by one instruction. Stepping a halted CPU does nothing.
func (cpu *CPU) Step() error {
	if cpu.Halted {
		return nil
	}

	// Grab the next opcode at the current PC and count it.
	cpu.LastPC = cpu.Reg.PC
	inst := cpu.GetInstruction(cpu.Reg.PC)
	cpu.Cycles++

	if inst.fn == nil {
		cpu.Reg.PC++
		if cpu.UnknownOpcodes == Fault {
			return &UnknownOpcodeError{Opcode: inst.Opcode, Addr: cpu.LastPC}
		}
		cpu.notifyDebugger()
		return nil
	}

	// Fetch the operand (if any) and advance the PC past it.
	var buf [2]byte
	operand := buf[:inst.Length-1]
	cpu.Mem.LoadBytes(cpu.Reg.PC+1, operand)
	cpu.Reg.PC += uint16(inst.Length)

	inst.fn(cpu, inst, operand)

	cpu.notifyDebugger()
	return nil
}

// Update the debugger so it can handle breakpoints.
func (cpu *CPU) notifyDebugger() {
	if cpu.debugger != nil {
		cpu.debugger.onUpdatePC(cpu, cpu.Reg.PC)
	}
}

// Run steps the CPU until it halts, the cycle counter reaches
// 'maxCycles', or a step fails.
func (cpu *CPU) Run(maxCycles uint64) error {
	return cpu.RunContext(context.Background(), maxCycles)
}

// RunContext behaves like Run but also stops, returning the context's
// error, when ctx is cancelled.
func (cpu *CPU) RunContext(ctx context.Context, maxCycles uint64) error {
	for !cpu.Halted && cpu.Cycles < maxCycles {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cpu.Step(); err != nil {
			return err
		}
	}
	return nil
}

// AttachDebugger attaches a debugger to the CPU. The debugger receives
// notifications whenever the CPU executes an instruction or stores a byte
// to memory.
func (cpu *CPU) AttachDebugger(debugger *Debugger) {
	cpu.debugger = debugger
	cpu.storeByte = (*CPU).storeByteDebugger
}

// DetachDebugger detaches the currently attached debugger from the CPU.
func (cpu *CPU) DetachDebugger() {
	cpu.debugger = nil
	cpu.storeByte = (*CPU).storeByteNormal
}

// Return the effective address of a memory operand.
func (cpu *CPU) address(mode Mode, operand []byte) uint16 {
	switch mode {
	case ZPG, ABS:
		return operandToAddress(operand)
	case ZPX:
		return offsetZeroPage(operandToAddress(operand), cpu.Reg.X)
	default:
		panic("Invalid addressing mode")
	}
}

// Load a byte value using the requested addressing mode
// and the operand to determine where to load it from.
func (cpu *CPU) load(mode Mode, operand []byte) byte {
	if mode == IMM {
		return operand[0]
	}
	return cpu.Mem.LoadByte(cpu.address(mode, operand))
}

// Store a byte value using the specified addressing mode and the
// variable-sized instruction operand to determine where to store it.
func (cpu *CPU) store(mode Mode, operand []byte, v byte) {
	cpu.storeByte(cpu, cpu.address(mode, operand), v)
}

// Execute a branch using the instruction operand. The offset is relative
// to the address following the branch instruction.
func (cpu *CPU) branch(operand []byte) {
	offset := operand[0]
	if offset < 0x80 {
		cpu.Reg.PC += uint16(offset)
	} else {
		cpu.Reg.PC -= uint16(0x100 - uint16(offset))
	}
}

// Store the byte value 'v' at the address 'addr'.
func (cpu *CPU) storeByteNormal(addr uint16, v byte) {
	cpu.Mem.StoreByte(addr, v)
}

// Store the byte value 'v' at the address 'addr'.
func (cpu *CPU) storeByteDebugger(addr uint16, v byte) {
	cpu.debugger.onDataStore(cpu, addr, v)
	cpu.Mem.StoreByte(addr, v)
}

// Push a value 'v' onto the stack.
func (cpu *CPU) push(v byte) {
	cpu.storeByte(cpu, stackAddress(cpu.Reg.SP), v)
	cpu.Reg.SP--
}

// Push the address 'addr' onto the stack, high byte first.
func (cpu *CPU) pushAddress(addr uint16) {
	cpu.push(byte(addr >> 8))
	cpu.push(byte(addr))
}

// Pop a value from the stack and return it.
func (cpu *CPU) pop() byte {
	cpu.Reg.SP++
	return cpu.Mem.LoadByte(stackAddress(cpu.Reg.SP))
}

// Pop a 16-bit address off the stack.
func (cpu *CPU) popAddress() uint16 {
	lo := cpu.pop()
	hi := cpu.pop()
	return uint16(lo) | (uint16(hi) << 8)
}

// Compare a register with a value and update the flags.
func (cpu *CPU) compare(reg, v byte) {
	cpu.Reg.SetFlag(CarryBit, reg >= v)
	cpu.Reg.SetZN(reg - v)
}

// Add with carry. There is no decimal mode and no overflow.
func (cpu *CPU) adc(inst *Instruction, operand []byte) {
	sum := uint32(cpu.Reg.A) + uint32(cpu.load(inst.Mode, operand)) + uint32(cpu.Reg.carry())
	cpu.Reg.SetFlag(CarryBit, sum > 0xff)
	cpu.Reg.A = byte(sum)
	cpu.Reg.SetZN(cpu.Reg.A)
}

// Boolean AND
func (cpu *CPU) and(inst *Instruction, operand []byte) {
	cpu.Reg.A &= cpu.load(inst.Mode, operand)
	cpu.Reg.SetZN(cpu.Reg.A)
}

// Arithmetic Shift Left
func (cpu *CPU) asl(inst *Instruction, operand []byte) {
	v := cpu.load(inst.Mode, operand)
	cpu.Reg.SetFlag(CarryBit, v&0x80 != 0)
	v <<= 1
	cpu.Reg.SetZN(v)
	cpu.store(inst.Mode, operand, v)
}

// Branch if Carry Clear
func (cpu *CPU) bcc(inst *Instruction, operand []byte) {
	if !cpu.Reg.Flag(CarryBit) {
		cpu.branch(operand)
	}
}

// Branch if Carry Set
func (cpu *CPU) bcs(inst *Instruction, operand []byte) {
	if cpu.Reg.Flag(CarryBit) {
		cpu.branch(operand)
	}
}

// Branch if EQual (to zero)
func (cpu *CPU) beq(inst *Instruction, operand []byte) {
	if cpu.Reg.Flag(ZeroBit) {
		cpu.branch(operand)
	}
}

// Bit Test
func (cpu *CPU) bit(inst *Instruction, operand []byte) {
	v := cpu.load(inst.Mode, operand)
	cpu.Reg.SetFlag(ZeroBit, v&cpu.Reg.A == 0)
	cpu.Reg.SetFlag(NegativeBit, v&0x80 != 0)
	cpu.Reg.SetFlag(OverflowBit, v&0x40 != 0)
}

// Branch if MInus (negative)
func (cpu *CPU) bmi(inst *Instruction, operand []byte) {
	if cpu.Reg.Flag(NegativeBit) {
		cpu.branch(operand)
	}
}

// Branch if Not Equal (not zero)
func (cpu *CPU) bne(inst *Instruction, operand []byte) {
	if !cpu.Reg.Flag(ZeroBit) {
		cpu.branch(operand)
	}
}

// Branch if PLus (positive)
func (cpu *CPU) bpl(inst *Instruction, operand []byte) {
	if !cpu.Reg.Flag(NegativeBit) {
		cpu.branch(operand)
	}
}

// Break. Halts the CPU; no interrupt is taken.
func (cpu *CPU) brk(inst *Instruction, operand []byte) {
	cpu.Halted = true
}

// Branch if oVerflow Clear
func (cpu *CPU) bvc(inst *Instruction, operand []byte) {
	if !cpu.Reg.Flag(OverflowBit) {
		cpu.branch(operand)
	}
}

// Branch if oVerflow Set
func (cpu *CPU) bvs(inst *Instruction, operand []byte) {
	if cpu.Reg.Flag(OverflowBit) {
		cpu.branch(operand)
	}
}

// Clear Carry flag
func (cpu *CPU) clc(inst *Instruction, operand []byte) {
	cpu.Reg.SetFlag(CarryBit, false)
}

// Clear Decimal flag
func (cpu *CPU) cld(inst *Instruction, operand []byte) {
	cpu.Reg.SetFlag(DecimalBit, false)
}

// Clear InterruptDisable flag
func (cpu *CPU) cli(inst *Instruction, operand []byte) {
	cpu.Reg.SetFlag(InterruptDisableBit, false)
}

// Clear oVerflow flag
func (cpu *CPU) clv(inst *Instruction, operand []byte) {
	cpu.Reg.SetFlag(OverflowBit, false)
}

// Compare to accumulator
func (cpu *CPU) cmp(inst *Instruction, operand []byte) {
	cpu.compare(cpu.Reg.A, cpu.load(inst.Mode, operand))
}

// Compare to X register
func (cpu *CPU) cpx(inst *Instruction, operand []byte) {
	cpu.compare(cpu.Reg.X, cpu.load(inst.Mode, operand))
}

// Compare to Y register
func (cpu *CPU) cpy(inst *Instruction, operand []byte) {
	cpu.compare(cpu.Reg.Y, cpu.load(inst.Mode, operand))
}

// Decrement memory value
func (cpu *CPU) dec(inst *Instruction, operand []byte) {
	v := cpu.load(inst.Mode, operand) - 1
	cpu.Reg.SetZN(v)
	cpu.store(inst.Mode, operand, v)
}

// Decrement X register
func (cpu *CPU) dex(inst *Instruction, operand []byte) {
	cpu.Reg.X--
	cpu.Reg.SetZN(cpu.Reg.X)
}

// Decrement Y register
func (cpu *CPU) dey(inst *Instruction, operand []byte) {
	cpu.Reg.Y--
	cpu.Reg.SetZN(cpu.Reg.Y)
}

// Boolean XOR
func (cpu *CPU) eor(inst *Instruction, operand []byte) {
	cpu.Reg.A ^= cpu.load(inst.Mode, operand)
	cpu.Reg.SetZN(cpu.Reg.A)
}

// Increment memory value
func (cpu *CPU) inc(inst *Instruction, operand []byte) {
	v := cpu.load(inst.Mode, operand) + 1
	cpu.Reg.SetZN(v)
	cpu.store(inst.Mode, operand, v)
}

// Increment X register
func (cpu *CPU) inx(inst *Instruction, operand []byte) {
	cpu.Reg.X++
	cpu.Reg.SetZN(cpu.Reg.X)
}

// Increment Y register
func (cpu *CPU) iny(inst *Instruction, operand []byte) {
	cpu.Reg.Y++
	cpu.Reg.SetZN(cpu.Reg.Y)
}

// Jump to memory address
func (cpu *CPU) jmp(inst *Instruction, operand []byte) {
	cpu.Reg.PC = operandToAddress(operand)
}

// Jump to subroutine
func (cpu *CPU) jsr(inst *Instruction, operand []byte) {
	cpu.pushAddress(cpu.Reg.PC - 1)
	cpu.Reg.PC = operandToAddress(operand)
}

// load Accumulator
func (cpu *CPU) lda(inst *Instruction, operand []byte) {
	cpu.Reg.A = cpu.load(inst.Mode, operand)
	cpu.Reg.SetZN(cpu.Reg.A)
}

// load the X register
func (cpu *CPU) ldx(inst *Instruction, operand []byte) {
	cpu.Reg.X = cpu.load(inst.Mode, operand)
	cpu.Reg.SetZN(cpu.Reg.X)
}

// load the Y register
func (cpu *CPU) ldy(inst *Instruction, operand []byte) {
	cpu.Reg.Y = cpu.load(inst.Mode, operand)
	cpu.Reg.SetZN(cpu.Reg.Y)
}

// Logical Shift Right
func (cpu *CPU) lsr(inst *Instruction, operand []byte) {
	v := cpu.load(inst.Mode, operand)
	cpu.Reg.SetFlag(CarryBit, v&1 != 0)
	v >>= 1
	cpu.Reg.SetZN(v)
	cpu.store(inst.Mode, operand, v)
}

// No-operation
func (cpu *CPU) nop(inst *Instruction, operand []byte) {
	// Do nothing
}

// Boolean OR
func (cpu *CPU) ora(inst *Instruction, operand []byte) {
	cpu.Reg.A |= cpu.load(inst.Mode, operand)
	cpu.Reg.SetZN(cpu.Reg.A)
}

// Push Accumulator
func (cpu *CPU) pha(inst *Instruction, operand []byte) {
	cpu.push(cpu.Reg.A)
}

// Push Processor flags
func (cpu *CPU) php(inst *Instruction, operand []byte) {
	cpu.push(cpu.Reg.PS | BreakBit | ReservedBit)
}

// Pull (pop) Accumulator
func (cpu *CPU) pla(inst *Instruction, operand []byte) {
	cpu.Reg.A = cpu.pop()
	cpu.Reg.SetZN(cpu.Reg.A)
}

// Pull (pop) Processor flags
func (cpu *CPU) plp(inst *Instruction, operand []byte) {
	cpu.Reg.PS = cpu.pop()&^BreakBit | ReservedBit
}

// Rotate Left through the carry flag
func (cpu *CPU) rol(inst *Instruction, operand []byte) {
	v := cpu.load(inst.Mode, operand)
	c := cpu.Reg.carry()
	cpu.Reg.SetFlag(CarryBit, v&0x80 != 0)
	v = v<<1 | c
	cpu.Reg.SetZN(v)
	cpu.store(inst.Mode, operand, v)
}

// Rotate Right through the carry flag
func (cpu *CPU) ror(inst *Instruction, operand []byte) {
	v := cpu.load(inst.Mode, operand)
	c := cpu.Reg.carry()
	cpu.Reg.SetFlag(CarryBit, v&1 != 0)
	v = v>>1 | c<<7
	cpu.Reg.SetZN(v)
	cpu.store(inst.Mode, operand, v)
}

// Return from Subroutine
func (cpu *CPU) rts(inst *Instruction, operand []byte) {
	addr := cpu.popAddress()
	cpu.Reg.PC = addr + 1
}

// Subtract with Carry. The carry flag is set when no borrow occurs.
func (cpu *CPU) sbc(inst *Instruction, operand []byte) {
	v := int(cpu.Reg.A) - int(cpu.load(inst.Mode, operand)) - (1 - int(cpu.Reg.carry()))
	cpu.Reg.SetFlag(CarryBit, v >= 0)
	cpu.Reg.A = byte(v)
	cpu.Reg.SetZN(cpu.Reg.A)
}

// Set Carry flag
func (cpu *CPU) sec(inst *Instruction, operand []byte) {
	cpu.Reg.SetFlag(CarryBit, true)
}

// Set Decimal flag. Arithmetic ignores it.
func (cpu *CPU) sed(inst *Instruction, operand []byte) {
	cpu.Reg.SetFlag(DecimalBit, true)
}

// Set InterruptDisable flag
func (cpu *CPU) sei(inst *Instruction, operand []byte) {
	cpu.Reg.SetFlag(InterruptDisableBit, true)
}

// Store Accumulator
func (cpu *CPU) sta(inst *Instruction, operand []byte) {
	cpu.store(inst.Mode, operand, cpu.Reg.A)
}

// Store X register
func (cpu *CPU) stx(inst *Instruction, operand []byte) {
	cpu.store(inst.Mode, operand, cpu.Reg.X)
}

// Store Y register
func (cpu *CPU) sty(inst *Instruction, operand []byte) {
	cpu.store(inst.Mode, operand, cpu.Reg.Y)
}

// Transfer Accumulator to X register
func (cpu *CPU) tax(inst *Instruction, operand []byte) {
	cpu.Reg.X = cpu.Reg.A
	cpu.Reg.SetZN(cpu.Reg.X)
}

// Transfer Accumulator to Y register
func (cpu *CPU) tay(inst *Instruction, operand []byte) {
	cpu.Reg.Y = cpu.Reg.A
	cpu.Reg.SetZN(cpu.Reg.Y)
}

// Transfer Stack pointer to X register
func (cpu *CPU) tsx(inst *Instruction, operand []byte) {
	cpu.Reg.X = cpu.Reg.SP
	cpu.Reg.SetZN(cpu.Reg.X)
}

// Transfer X register to Accumulator
func (cpu *CPU) txa(inst *Instruction, operand []byte) {
	cpu.Reg.A = cpu.Reg.X
	cpu.Reg.SetZN(cpu.Reg.A)
}

// Transfer X register to the Stack pointer
func (cpu *CPU) txs(inst *Instruction, operand []byte) {
	cpu.Reg.SP = cpu.Reg.X
}

// Transfer Y register to the Accumulator
func (cpu *CPU) tya(inst *Instruction, operand []byte) {
	cpu.Reg.A = cpu.Reg.Y
	cpu.Reg.SetZN(cpu.Reg.A)
}
