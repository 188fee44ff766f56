// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements a 6502 assembler. Source text is lexed into
// tokens, parsed into instructions and encoded against the instruction
// set shared with the cpu package.
package asm

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/mini6502/cpu"
)

// DefaultOrigin is the address code is assembled for unless the caller
// requests another.
const DefaultOrigin = cpu.ResetPC

// Assembly contains the assembled machine code and other data associated with
// the machine code.
type Assembly struct {
	Origin       uint16            // address of the first byte of Code
	Code         []byte            // Assembled machine code
	Instructions []Instruction     // parsed instructions with addresses
	Labels       map[string]uint16 // label -> address
}

// ReadFrom reads machine code from a binary input source.
func (a *Assembly) ReadFrom(r io.Reader) (n int64, err error) {
	a.Code, err = io.ReadAll(r)
	n = int64(len(a.Code))
	if err == nil && n > cpu.MemorySize {
		err = cpu.ErrLoadOverflow
	}
	return n, err
}

// WriteTo saves machine code as binary data into an output writer.
func (a *Assembly) WriteTo(w io.Writer) (n int64, err error) {
	nn, err := w.Write(a.Code)
	return int64(nn), err
}

// Option type used by the Assemble function.
type Option uint

// Options for the Assemble function.
const (
	Verbose Option = 1 << iota // verbose output during assembly
)

// The assembler is a state object used during the assembly of
// machine code from assembly code.
type assembler struct {
	instSet     *cpu.InstructionSet // instruction set shared with the cpu
	filename    string              // name of the source, for errors
	origin      int                 // requested origin
	pc          int                 // address after the last instruction
	src         []byte              // source text
	tokens      []Token             // lexer output
	prog        *Program            // parser output
	labels      map[string]uint16   // label -> address
	code        []byte              // generated machine code
	sourceLines []SourceLine        // source code line mappings
	out         io.Writer           // output used for verbose output
	verbose     bool                // verbose output
	errors      ErrorList           // errors encountered during assembly
}

func newAssembler(filename string, origin uint16, out io.Writer, options Option) *assembler {
	if out == nil {
		out = io.Discard
	}
	return &assembler{
		instSet:  cpu.GetInstructionSet(),
		filename: filename,
		origin:   int(origin),
		labels:   make(map[string]uint16),
		out:      out,
		verbose:  (options & Verbose) != 0,
	}
}

// Execute assembler steps, stopping after the first step that reports
// errors.
func (a *assembler) run(steps ...func(a *assembler)) (*Assembly, error) {
	for _, step := range steps {
		step(a)
		if len(a.errors) > 0 {
			break
		}
	}

	assembly := &Assembly{
		Origin: uint16(a.origin),
		Code:   a.code,
		Labels: a.labels,
	}
	if a.prog != nil {
		assembly.Instructions = a.prog.Instructions
	}

	if len(a.errors) > 0 {
		for _, e := range a.errors {
			e.File = a.filename
		}
		return assembly, a.errors
	}
	return assembly, nil
}

// AssembleString assembles source text into machine code at 'origin'.
func AssembleString(src string, origin uint16) (*Assembly, error) {
	a := newAssembler("", origin, nil, 0)
	a.src = []byte(src)
	return a.assemble()
}

// AssembleLines assembles source lines into machine code at 'origin'.
func AssembleLines(lines []string, origin uint16) (*Assembly, error) {
	return AssembleString(strings.Join(lines, "\n"), origin)
}

// Assemble reads data from the provided stream and attempts to assemble it
// into 6502 byte code. Verbose output is written to 'out'.
func Assemble(r io.Reader, filename string, origin uint16, out io.Writer, options Option) (*Assembly, *SourceMap, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}

	a := newAssembler(filename, origin, out, options)
	a.src = src
	assembly, err := a.assemble()

	sourceMap := &SourceMap{
		Origin:  uint16(a.origin),
		Size:    uint32(len(a.code)),
		CRC:     crc32.ChecksumIEEE(a.code),
		Files:   []string{filename},
		Lines:   a.sourceLines,
		Symbols: sortSymbols(a.labels),
	}
	return assembly, sourceMap, err
}

func (a *assembler) assemble() (*Assembly, error) {
	return a.run(
		(*assembler).lex,
		(*assembler).parse,
		(*assembler).assignAddresses,
		(*assembler).resolveLabels,
		(*assembler).generateCode,
	)
}

func (a *assembler) lex() {
	a.logSection("Scanning tokens")
	a.tokens = Lex(a.src, false)
	a.log("%d tokens", len(a.tokens))
}

func (a *assembler) parse() {
	a.logSection("Parsing assembly code")
	a.prog = Parse(a.tokens)
	for _, in := range a.prog.Instructions {
		a.logLine(&in, "%s %s", strings.ToUpper(in.Mnemonic), in.Mode)
	}
	for _, e := range a.prog.Diagnostics {
		a.logError(e)
	}
	a.errors = append(a.errors, a.prog.Diagnostics...)
}

// AssembleFile reads a file containing 6502 assembly code, assembles it,
// and produces a binary output file and a source map file.
func AssembleFile(path string, origin uint16, options Option, out io.Writer) error {
	inFile, err := os.Open(path)
	if err != nil {
		return err
	}
	defer inFile.Close()

	assembly, sourceMap, err := Assemble(inFile, path, origin, out, options)
	if err != nil {
		var list ErrorList
		if errors.As(err, &list) {
			for _, e := range list {
				fmt.Fprintln(out, e)
			}
		}
		return err
	}

	ext := filepath.Ext(path)
	prefix := path[:len(path)-len(ext)]
	binPath := prefix + ".bin"
	binFile, err := os.OpenFile(binPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer binFile.Close()

	_, err = assembly.WriteTo(binFile)
	if err != nil {
		return err
	}

	mapPath := prefix + ".map"
	mapFile, err := os.OpenFile(mapPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer mapFile.Close()

	_, err = sourceMap.WriteTo(mapFile)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Assembled '%s' to produce '%s' and '%s'.\n",
		filepath.Base(path),
		filepath.Base(binPath),
		filepath.Base(mapPath))
	return nil
}

func (a *assembler) addError(kind error, in *Instruction, format string, args ...any) {
	e := &Error{
		Kind: kind,
		Line: in.Line,
		Col:  in.Col,
		Msg:  f(format, args...),
	}
	a.errors = append(a.errors, e)
	a.logError(e)
}

// In verbose mode, log an error with a marker under its column.
func (a *assembler) logError(e *Error) {
	if !a.verbose {
		return
	}
	fmt.Fprintf(a.out, "Error in '%s' line %d, col %d: %s\n", a.filename, e.Line, e.Col, e.Msg)
	if line, ok := sourceLine(a.src, e.Line); ok {
		fmt.Fprintln(a.out, line)
		fmt.Fprintln(a.out, strings.Repeat("-", max(e.Col-1, 0))+"^")
	}
}

// In verbose mode, log a string to the output.
func (a *assembler) log(format string, args ...any) {
	if a.verbose {
		fmt.Fprintf(a.out, format, args...)
		fmt.Fprintf(a.out, "\n")
	}
}

// In verbose mode, log a string and its associated line
// of assembly code.
func (a *assembler) logLine(in *Instruction, format string, args ...any) {
	if a.verbose {
		detail := fmt.Sprintf(format, args...)
		line, _ := sourceLine(a.src, in.Line)
		fmt.Fprintf(a.out, "%-3d %-3d | %-20s | %s\n", in.Line, in.Col, detail, strings.TrimSpace(line))
	}
}

// In verbose mode, log a series of bytes with starting address.
func (a *assembler) logBytes(addr int, b []byte) {
	if a.verbose {
		a.log("%04X-  %s", addr, byteString(b))
	}
}

// In verbose mode, log a section header to the output.
func (a *assembler) logSection(name string) {
	if a.verbose {
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
		fmt.Fprintf(a.out, "-- %s --\n", name)
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
	}
}
