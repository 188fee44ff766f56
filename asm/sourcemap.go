// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"cmp"
	"encoding/json"
	"io"
	"slices"
	"sort"
)

// A SourceMap describes the mapping between source code line numbers and
// assembly code addresses.
type SourceMap struct {
	Origin  uint16       // address of the first byte of code
	Size    uint32       // size of the code in bytes
	CRC     uint32       // CRC-32 (IEEE) of the code
	Files   []string     // source files
	Lines   []SourceLine // address -> line mappings, sorted by address
	Symbols []Symbol     // labels, sorted by address
}

// A SourceLine represents a mapping between a machine code address and
// the source code file and line number used to generate it.
type SourceLine struct {
	Address   int // Machine code address
	FileIndex int // Source code file index
	Line      int // Source code line number
}

// A Symbol is a label and the address it names.
type Symbol struct {
	Label   string
	Address uint16
}

func sortSymbols(labels map[string]uint16) []Symbol {
	symbols := make([]Symbol, 0, len(labels))
	for label, addr := range labels {
		symbols = append(symbols, Symbol{label, addr})
	}
	slices.SortFunc(symbols, func(a, b Symbol) int {
		if c := cmp.Compare(a.Address, b.Address); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return symbols
}

// Search searches the source map for a mapping with the requested address.
func (s *SourceMap) Search(addr int) (filename string, line int) {
	i := sort.Search(len(s.Lines), func(i int) bool {
		return s.Lines[i].Address >= addr
	})
	if i < len(s.Lines) && s.Lines[i].Address == addr {
		return s.Files[s.Lines[i].FileIndex], s.Lines[i].Line
	}
	return "", -1
}

// Lookup returns the address of a label.
func (s *SourceMap) Lookup(label string) (uint16, bool) {
	for _, sym := range s.Symbols {
		if sym.Label == label {
			return sym.Address, true
		}
	}
	return 0, false
}

// ReadFrom reads the contents of an exported source map file.
func (s *SourceMap) ReadFrom(r io.Reader) (n int64, err error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	err = json.Unmarshal(b, s)
	if err != nil {
		return 0, err
	}
	return int64(len(b)), nil
}

// WriteTo writes the contents of the source map to an output stream.
func (s *SourceMap) WriteTo(w io.Writer) (n int64, err error) {
	b, err := json.Marshal(*s)
	if err != nil {
		return 0, err
	}

	nn, err := w.Write(b)
	return int64(nn), err
}
