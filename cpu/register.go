// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Registers contains the state of all 6502 registers.
type Registers struct {
	A  byte   // accumulator
	X  byte   // X indexing register
	Y  byte   // Y indexing register
	SP byte   // stack pointer ($100 + SP = stack memory location)
	PC uint16 // program counter
	PS byte   // processor status flags
}

// Bits assigned to the processor status byte
const (
	CarryBit            = 1 << 0
	ZeroBit             = 1 << 1
	InterruptDisableBit = 1 << 2
	DecimalBit          = 1 << 3
	BreakBit            = 1 << 4
	ReservedBit         = 1 << 5
	OverflowBit         = 1 << 6
	NegativeBit         = 1 << 7
)

// ResetPC is the program counter value after a reset. Programs are
// conventionally loaded here.
const ResetPC = 0x0600

// Flag returns true if every bit in 'bits' is set in the status register.
func (r *Registers) Flag(bits byte) bool {
	return r.PS&bits == bits
}

// SetFlag sets or clears the status bits in 'bits'.
func (r *Registers) SetFlag(bits byte, on bool) {
	if on {
		r.PS |= bits
	} else {
		r.PS &^= bits
	}
}

// SetZN updates the Zero and Negative flags based on the value of 'v'.
func (r *Registers) SetZN(v byte) {
	r.SetFlag(ZeroBit, v == 0)
	r.SetFlag(NegativeBit, v&0x80 != 0)
}

func (r *Registers) carry() byte {
	return r.PS & CarryBit
}

// Init initializes all registers. A, X, Y = 0. SP = 0xff. PC = $0600.
// PS has only the reserved bit set.
func (r *Registers) Init() {
	r.A = 0
	r.X = 0
	r.Y = 0
	r.SP = 0xff
	r.PC = ResetPC
	r.PS = ReservedBit
}

// flagNames lists status flag letters from bit 7 down to bit 0.
const flagNames = "NV-BDIZC"

// FlagString returns the status register as a string of flag letters,
// with cleared flags shown in lower case.
func (r *Registers) FlagString() string {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		c := flagNames[i]
		if c != '-' && r.PS&(0x80>>i) == 0 {
			c += 'a' - 'A'
		}
		buf[i] = c
	}
	return string(buf[:])
}
