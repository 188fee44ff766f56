// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package screen draws the CPU's screen memory as text.
package screen

import (
	"bufio"
	"io"

	"github.com/beevik/mini6502/cpu"
)

// A Viewer is the read-only view of machine memory that a display may
// depend on. Both reads return 0 outside their valid range.
type Viewer interface {
	GetMemory(addr int) byte
	GetScreenPixel(x, y int) byte
}

var _ Viewer = (*cpu.CPU)(nil)

// Palette maps the low nibble of a screen byte to a character. Zero is
// drawn as '.'.
const Palette = ".123456789ABCDEF"

// Render writes the screen as cpu.ScreenHeight rows of cpu.ScreenWidth
// characters.
func Render(w io.Writer, v Viewer) error {
	bw := bufio.NewWriter(w)
	var row [cpu.ScreenWidth + 1]byte
	row[cpu.ScreenWidth] = '\n'
	for y := 0; y < cpu.ScreenHeight; y++ {
		for x := 0; x < cpu.ScreenWidth; x++ {
			row[x] = Palette[v.GetScreenPixel(x, y)&0x0f]
		}
		if _, err := bw.Write(row[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Count returns the number of non-zero pixels on the screen.
func Count(v Viewer) int {
	n := 0
	for y := 0; y < cpu.ScreenHeight; y++ {
		for x := 0; x < cpu.ScreenWidth; x++ {
			if v.GetScreenPixel(x, y) != 0 {
				n++
			}
		}
	}
	return n
}
