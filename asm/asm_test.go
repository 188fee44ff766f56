// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assemble(code string) ([]byte, error) {
	assembly, err := AssembleString(code, 0x1000)
	if err != nil {
		return []byte{}, err
	}
	return assembly.Code, nil
}

func checkASM(t *testing.T, asm string, expected string) {
	t.Helper()
	code, err := assemble(asm)
	if err != nil {
		t.Error(err)
		return
	}

	s := strings.ReplaceAll(byteString(code), " ", "")
	if s != expected {
		t.Error("code doesn't match expected")
		t.Errorf("got: %s\n", s)
		t.Errorf("exp: %s\n", expected)
	}
}

func checkASMError(t *testing.T, asm string, kind error) {
	t.Helper()
	_, err := assemble(asm)
	if err == nil {
		t.Errorf("Expected error on %s, didn't get one\n", asm)
		return
	}
	if !errors.Is(err, kind) {
		t.Errorf("Expected '%v', got '%v'\n", kind, err)
	}
}

func TestRoundTrip(t *testing.T) {
	code, err := assemble("LDA #$05\nSTA $10\nBRK")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xa9, 0x05, 0x85, 0x10, 0x00}, code)
}

func TestAddressingIMM(t *testing.T) {
	asm := `
	LDA #$20
	LDX #$20
	LDY #$20
	ADC #$20
	SBC #$20
	CMP #$20
	CPX #$20
	CPY #$20
	AND #$20
	ORA #$20
	EOR #$20`

	checkASM(t, asm, "A920A220A0206920E920C920E020C020292009204920")
}

func TestAddressingDecimalIMM(t *testing.T) {
	checkASM(t, "LDA #10\nLDX #255", "A90AA2FF")
}

func TestAddressingABS(t *testing.T) {
	asm := `
	LDA $2000
	LDX $2000
	LDY $2000
	STA $2000
	STX $2000
	STY $2000
	ADC $2000
	SBC $2000
	CMP $2000
	CPX $2000
	CPY $2000
	BIT $2000
	AND $2000
	ORA $2000
	EOR $2000
	INC $2000
	DEC $2000
	JMP $2000
	JSR $2000`

	checkASM(t, asm, "AD0020AE0020AC00208D00208E00208C00206D0020ED0020CD0020EC0020CC00202C00202D00200D00204D0020EE0020CE00204C0020200020")
}

func TestAddressingZPG(t *testing.T) {
	asm := `
	LDA $20
	LDX $20
	LDY $20
	STA $20
	STX $20
	STY $20
	ADC $20
	SBC $20
	CMP $20
	CPX $20
	CPY $20
	BIT $20
	AND $20
	ORA $20
	EOR $20
	INC $20
	DEC $20`

	checkASM(t, asm, "A520A620A4208520862084206520E520C520E420C4202420252005204520E620C620")
}

func TestAddressingZPX(t *testing.T) {
	asm := `
	LDA $20,X
	LDY $20,x
	STA $20,X
	STY $20,X
	ADC $20,X
	SBC $20,X
	CMP $20,X
	AND $20,X
	ORA $20,X
	EOR $20,X
	INC $20,X
	DEC $20,X`

	checkASM(t, asm, "B520B420952094207520F520D520352015205520F620D620")
}

func TestShiftRotate(t *testing.T) {
	asm := `
	ASL $20
	ASL $20,X
	ASL $2000
	LSR $20
	LSR $20,X
	LSR $2000
	ROL $20
	ROL $20,X
	ROL $2000
	ROR $20
	ROR $20,X
	ROR $2000`

	checkASM(t, asm, "062016200E0020462056204E0020262036202E0020662076206E0020")
	checkASMError(t, "ASL #$20", ErrUnsupportedEncoding)
	checkASMError(t, "ROR", ErrUnsupportedEncoding)
}

func TestAddressingIMP(t *testing.T) {
	asm := `
	BRK
	CLC
	CLD
	CLI
	CLV
	DEX
	DEY
	INX
	INY
	NOP
	PHA
	PHP
	PLA
	PLP
	RTS
	SEC
	SED
	SEI
	TAX
	TAY
	TSX
	TXA
	TXS
	TYA`

	checkASM(t, asm, "0018D858B8CA88E8C8EA480868286038F878AAA8BA8A9A98")
}

func TestDecimalOperand(t *testing.T) {
	// 16 fits in zero page; 512 needs an absolute operand.
	checkASM(t, "STA 16\nSTA 512", "85108D0002")
}

func TestZeroPagePromotion(t *testing.T) {
	checkASM(t, "JMP $10\nSTX $10\nJSR 32", "4C10008610202000")
}

func TestCaseInsensitive(t *testing.T) {
	checkASM(t, "lda #$01\nsta $02,x\nLdY $0304", "A9019502AC0403")
}

func TestBranchLiteralOffset(t *testing.T) {
	checkASM(t, "BNE $FB\nBEQ $05\nBCC $00\nBCS $80", "D0FBF0059000B080")
}

func TestBranchLabels(t *testing.T) {
	asm := `
	LDX #$08
loop:
	DEX
	BNE loop
	BEQ done
	NOP
done:
	BRK`

	checkASM(t, asm, "A208CAD0FDF001EA00")
}

func TestBranchAbsoluteTarget(t *testing.T) {
	// Origin is $1000, so the branch at $1000 targets $1010 at +14.
	checkASM(t, "BPL $1010", "100E")
}

func TestBranchOutOfRange(t *testing.T) {
	checkASMError(t, "BNE $1100", ErrBranchRange)
}

func TestJumpLabels(t *testing.T) {
	asm := `
start:
	JSR sub
	JMP start
sub:
	RTS`

	checkASM(t, asm, "2006104C001060")
}

func TestLabelTable(t *testing.T) {
	asm := `
first: second:
	NOP

	; comment only
third:
	INX
end:`

	assembly, err := AssembleString(asm, 0x0600)
	require.NoError(t, err)
	assert.Equal(t, map[string]uint16{
		"first":  0x0600,
		"second": 0x0600,
		"third":  0x0601,
		"end":    0x0602,
	}, assembly.Labels)

	require.Len(t, assembly.Instructions, 2)
	assert.Equal(t, "first", assembly.Instructions[0].Label)
	assert.True(t, assembly.Instructions[0].HasLabel)
	assert.Equal(t, "third", assembly.Instructions[1].Label)
	assert.Equal(t, uint16(0x0601), assembly.Instructions[1].Addr)
}

func TestAssembleLines(t *testing.T) {
	assembly, err := AssembleLines([]string{"LDA #$01", "STA $0200", "BRK"}, DefaultOrigin)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0600), assembly.Origin)
	assert.Equal(t, []byte{0xa9, 0x01, 0x8d, 0x00, 0x02, 0x00}, assembly.Code)
}

func TestErrors(t *testing.T) {
	checkASMError(t, "FOO #$10", ErrUnsupportedEncoding)
	checkASMError(t, "LDX $10,X", ErrUnsupportedEncoding)
	checkASMError(t, "LDA $1000,X", ErrUnsupportedEncoding)
	checkASMError(t, "LDA $10,Y", ErrUnsupportedEncoding)
	checkASMError(t, "STA #$10", ErrUnsupportedEncoding)
	checkASMError(t, "INX #$10", ErrUnsupportedEncoding)
	checkASMError(t, "LDA #$100", ErrOperandRange)
	checkASMError(t, "LDA $10000", ErrOperandRange)
	checkASMError(t, "LDA #1F", ErrParseGap)
	checkASMError(t, "LDA #", ErrParseGap)
	checkASMError(t, "LDA $10 $20", ErrParseGap)
	checkASMError(t, ", LDA #$10", ErrParseGap)
	checkASMError(t, "JMP nowhere", ErrUnknownLabel)
	checkASMError(t, "a:\nNOP\na:\nNOP", ErrDuplicateLabel)
}

func TestErrorLocation(t *testing.T) {
	_, err := AssembleString("NOP\n  LDA $10,Y", 0)
	require.Error(t, err)

	var list ErrorList
	require.True(t, errors.As(err, &list))
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Line)
	assert.ErrorIs(t, list[0], ErrUnsupportedEncoding)
}

func TestErrorsCollected(t *testing.T) {
	_, err := AssembleString("LDA #\n, \nNOP\nLDA $10 $20", 0)

	var list ErrorList
	require.True(t, errors.As(err, &list))
	assert.Len(t, list, 3)
	for _, e := range list {
		assert.ErrorIs(t, e, ErrParseGap)
	}
}

func TestRangeErrorEmitsNoBytes(t *testing.T) {
	a, err := AssembleString("NOP\nLDA #$100\nNOP", 0x0600)
	assert.ErrorIs(t, err, ErrOperandRange)
	assert.Equal(t, []byte{0xea, 0xea}, a.Code)

	a, err = AssembleString("NOP\nBNE $0700", 0x0600)
	assert.ErrorIs(t, err, ErrBranchRange)
	assert.Equal(t, []byte{0xea}, a.Code)
}

func TestGenerate(t *testing.T) {
	prog := Parse(Lex([]byte("loop: DEX\nBNE loop\nJMP loop"), false))
	require.Empty(t, prog.Diagnostics)

	a, err := Generate(prog, 0x0600)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xca, 0xd0, 0xfd, 0x4c, 0x00, 0x06}, a.Code)
	assert.Equal(t, uint16(0x0600), a.Labels["loop"])
}

func TestAddressOverflow(t *testing.T) {
	_, err := AssembleString("NOP\nLDA $1234", 0xfffe)
	assert.ErrorIs(t, err, ErrAddressOverflow)
}

func TestVerboseOutput(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Assemble(strings.NewReader("LDA #$05\nBRK"), "test.asm", 0x0600, &out, Verbose)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "-- Generating code --")
	assert.Contains(t, out.String(), "0600-  A9 05")
}

func TestSourceMap(t *testing.T) {
	src := "start:\n  LDA #$05\n\n  STA $10\nend:\n  BRK\n"
	assembly, sm, err := Assemble(strings.NewReader(src), "test.asm", 0x0600, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, uint16(0x0600), sm.Origin)
	assert.Equal(t, uint32(len(assembly.Code)), sm.Size)
	assert.Equal(t, []Symbol{{"start", 0x0600}, {"end", 0x0604}}, sm.Symbols)

	file, line := sm.Search(0x0602)
	assert.Equal(t, "test.asm", file)
	assert.Equal(t, 4, line)

	_, line = sm.Search(0x0601)
	assert.Equal(t, -1, line)

	addr, ok := sm.Lookup("end")
	assert.True(t, ok)
	assert.Equal(t, uint16(0x0604), addr)

	var buf bytes.Buffer
	_, err = sm.WriteTo(&buf)
	require.NoError(t, err)

	var sm2 SourceMap
	_, err = sm2.ReadFrom(&buf)
	require.NoError(t, err)
	assert.Equal(t, *sm, sm2)
}

func TestAssembleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.asm")
	require.NoError(t, os.WriteFile(path, []byte("LDA #$05\nSTA $10\nBRK\n"), 0600))

	var out bytes.Buffer
	require.NoError(t, AssembleFile(path, 0x0600, 0, &out))
	assert.Contains(t, out.String(), "prog.bin")

	code, err := os.ReadFile(filepath.Join(dir, "prog.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xa9, 0x05, 0x85, 0x10, 0x00}, code)

	f, err := os.Open(filepath.Join(dir, "prog.map"))
	require.NoError(t, err)
	defer f.Close()

	var sm SourceMap
	_, err = sm.ReadFrom(f)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0600), sm.Origin)
}

func TestAssemblyReadWrite(t *testing.T) {
	a := &Assembly{Code: []byte{1, 2, 3}}
	var buf bytes.Buffer
	_, err := a.WriteTo(&buf)
	require.NoError(t, err)

	var b Assembly
	n, err := b.ReadFrom(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, a.Code, b.Code)
}
