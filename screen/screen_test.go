// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package screen

import (
	"bytes"
	"strings"
	"testing"

	"github.com/beevik/mini6502/asm"
	"github.com/beevik/mini6502/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	src := `
	LDA #$01
	STA $0200
	LDA #$0E
	STA $0221
	LDA #$15
	STA $05FF
	BRK`

	assembly, err := asm.AssembleString(src, cpu.ResetPC)
	require.NoError(t, err)

	c := cpu.NewCPU(cpu.NewFlatMemory())
	require.NoError(t, c.LoadProgram(assembly.Code, int(assembly.Origin)))
	require.NoError(t, c.Run(100))

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, c))

	rows := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, rows, cpu.ScreenHeight)
	assert.Equal(t, "1"+strings.Repeat(".", 31), rows[0])
	assert.Equal(t, ".E"+strings.Repeat(".", 30), rows[1])
	assert.Equal(t, strings.Repeat(".", 31)+"5", rows[31])
	assert.Equal(t, 3, Count(c))
}
