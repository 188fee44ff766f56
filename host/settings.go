// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/beevik/prefixtree/v2"
)

type settings struct {
	IgnoreUnknown   bool   `doc:"execute unknown opcodes as NOP"`
	VerboseAssembly bool   `doc:"verbose output from assemble commands"`
	MemDumpBytes    int    `doc:"default number of memory bytes to dump"`
	DisasmLines     int    `doc:"default number of lines to disassemble"`
	MaxStepLines    int    `doc:"max lines to disassemble when stepping"`
	RunCycles       int    `doc:"instructions per run, 0 for no limit"`
	NextDisasmAddr  uint16 `doc:"address of next disassembly"`
	NextMemDumpAddr uint16 `doc:"address of next memory dump"`
}

func newSettings() *settings {
	return &settings{
		MemDumpBytes: 64,
		DisasmLines:  10,
		MaxStepLines: 20,
	}
}

type settingsField struct {
	name  string
	index int
	kind  reflect.Kind
	typ   reflect.Type
	doc   string
}

var (
	settingsTree   = prefixtree.New[*settingsField]()
	settingsFields []settingsField
)

func init() {
	settingsType := reflect.TypeOf(settings{})
	settingsFields = make([]settingsField, settingsType.NumField())
	for i := range settingsFields {
		sf := settingsType.Field(i)
		doc, _ := sf.Tag.Lookup("doc")
		settingsFields[i] = settingsField{
			name:  sf.Name,
			index: i,
			kind:  sf.Type.Kind(),
			typ:   sf.Type,
			doc:   doc,
		}
		settingsTree.Add(strings.ToLower(sf.Name), &settingsFields[i])
	}
}

func (s *settings) Display(w io.Writer) {
	value := reflect.ValueOf(s).Elem()
	for i, field := range settingsFields {
		v := value.Field(i)
		var s string
		switch field.kind {
		case reflect.Uint8:
			s = fmt.Sprintf("    %-16s $%02X", field.name, uint8(v.Uint()))
		case reflect.Uint16:
			s = fmt.Sprintf("    %-16s $%04X", field.name, uint16(v.Uint()))
		default:
			s = fmt.Sprintf("    %-16s %v", field.name, v)
		}
		fmt.Fprintf(w, "%-28s (%s)\n", s, field.doc)
	}
}

// Name returns the full name of the setting matching the key prefix.
func (s *settings) Name(key string) (string, error) {
	field, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return "", err
	}
	return field.name, nil
}

func (s *settings) Kind(key string) reflect.Kind {
	field, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return reflect.Invalid
	}
	return field.kind
}

func (s *settings) Set(key string, value any) error {
	field, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return err
	}

	vIn := reflect.ValueOf(value)
	if (field.kind == reflect.Bool) != (vIn.Kind() == reflect.Bool) ||
		!vIn.Type().ConvertibleTo(field.typ) {
		return errors.New(f("invalid type for setting %s", field.name))
	}
	if vIn.CanInt() && vIn.Int() < 0 {
		return errRange
	}

	vOut := reflect.ValueOf(s).Elem().Field(field.index)
	vOut.Set(vIn.Convert(field.typ))
	return nil
}
