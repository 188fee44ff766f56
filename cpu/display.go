// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// The screen is a window of memory with one byte per pixel, stored row by
// row starting at ScreenBase.
const (
	ScreenBase   = 0x0200
	ScreenWidth  = 32
	ScreenHeight = 32
	ScreenSize   = ScreenWidth * ScreenHeight
)

// GetMemory returns the byte at 'addr', or 0 if 'addr' lies outside the
// address space. It never writes to memory.
func (cpu *CPU) GetMemory(addr int) byte {
	if addr < 0 || addr >= MemorySize {
		return 0
	}
	return cpu.Mem.LoadByte(uint16(addr))
}

// GetScreenPixel returns the screen byte at column 'x' and row 'y', or 0
// if the coordinates lie outside the screen.
func (cpu *CPU) GetScreenPixel(x, y int) byte {
	if x < 0 || x >= ScreenWidth || y < 0 || y >= ScreenHeight {
		return 0
	}
	return cpu.GetMemory(ScreenBase + y*ScreenWidth + x)
}
