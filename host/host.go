// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host allows you to create a "host" that emulates a computer system
// with a 6502 CPU, 64K of memory, a 32x32 memory-mapped screen, a built-in
// assembler, a built-in debugger, and other useful tools.
//
// Within the host it is possible to assemble and load machine code into
// memory, debug and step through machine code, count executed
// instructions, set address and data breakpoints, dump the contents of
// memory, disassemble the contents of memory, draw the screen, manipulate
// CPU registers and memory, and evaluate arbitrary expressions.
package host

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"maps"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/beevik/cmd"
	"github.com/beevik/mini6502/asm"
	"github.com/beevik/mini6502/cpu"
	"github.com/beevik/mini6502/disasm"
	"github.com/beevik/mini6502/screen"
)

type state byte

const (
	stateProcessingCommands state = iota
	stateRunning
	stateBreakpoint
	stateStepOverBreakpoint
)

type displayFlags uint8

const (
	displayRegisters displayFlags = 1 << iota
	displayCycles
	displayLabels

	displayAll = displayRegisters | displayCycles | displayLabels
)

var errQuit = errors.New("exiting program")

// A Host represents a fully emulated 6502 system, 64K of memory, a built-in
// assembler, a built-in debugger, and other useful tools.
type Host struct {
	input        *bufio.Scanner
	output       *bufio.Writer
	interactive  bool
	mem          *cpu.FlatMemory
	cpu          *cpu.CPU
	debugger     *cpu.Debugger
	lastCmd      *cmd.Command
	lastArgs     []string
	state        state
	labels       map[string]uint16
	settings     *settings
	stepOverAddr int
	stopRun      context.CancelFunc

	mu     sync.Mutex // guards cancel
	cancel context.CancelFunc
}

// New creates a new 6502 host environment.
func New() *Host {
	h := &Host{
		state:        stateProcessingCommands,
		labels:       make(map[string]uint16),
		settings:     newSettings(),
		stepOverAddr: -1,
	}

	// Create the emulated CPU and memory.
	h.mem = cpu.NewFlatMemory()
	h.cpu = cpu.NewCPU(h.mem)

	// Create a CPU debugger and attach it to the CPU.
	h.debugger = cpu.NewDebugger(newDebugHandler(h))
	h.cpu.AttachDebugger(h.debugger)

	h.onSettingsUpdate()
	return h
}

// RunCommands accepts host commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the the next command to be entered.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	h.input = bufio.NewScanner(r)
	h.output = bufio.NewWriter(w)
	h.interactive = interactive
	defer h.flush()

	if interactive {
		h.println()
	}

	h.displayPC()

	for {
		h.prompt()

		line, err := h.getLine()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)

		var n cmd.Node
		var args []string
		if line != "" {
			n, args, err = cmds.Lookup(line)
			switch {
			case errors.Is(err, cmd.ErrNotFound):
				h.println("Command not found.")
				continue
			case errors.Is(err, cmd.ErrAmbiguous):
				h.println("Command is ambiguous.")
				continue
			case err != nil:
				h.printf("ERROR: %v.\n", err)
				continue
			}
		} else if h.interactive && h.lastCmd != nil {
			n, args = h.lastCmd, h.lastArgs
		}

		var c *cmd.Command
		switch nn := n.(type) {
		case *cmd.Command:
			c = nn
		case *cmd.Tree:
			// Selecting a command group displays the group's commands.
			h.displayCommands(nn)
			continue
		default:
			continue
		}

		handler, ok := c.Data.(func(*Host, *cmd.Command, []string) error)
		if !ok {
			continue
		}
		h.lastCmd, h.lastArgs = c, args

		if err := handler(h, c, args); err != nil {
			break
		}
	}
}

// Break interrupts a running CPU.
func (h *Host) Break() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
	}
}

// Start a CPU operation that Break may interrupt.
func (h *Host) begin() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()
	h.state = stateRunning
	return ctx
}

func (h *Host) end() {
	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.mu.Unlock()
	h.state = stateProcessingCommands
	h.settings.NextDisasmAddr = h.cpu.Reg.PC
}

// Run the CPU until 'limit' total instructions have executed, a
// breakpoint stops it, or ctx is cancelled.
func (h *Host) run(ctx context.Context, limit uint64) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.stopRun = cancel
	err := h.cpu.RunContext(ctx, limit)
	h.stopRun = nil

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return h.input.Text(), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt() {
	if h.interactive {
		h.printf("* ")
	}
}

func (h *Host) displayPC() {
	if h.interactive {
		d, _ := h.disassemble(h.cpu.Reg.PC, displayAll)
		h.println(d)
	}
}

// Display the syntax of the selected command.
func (h *Host) displayUsage(c *cmd.Command) {
	if c.Usage != "" {
		h.printf("Syntax: %s\n", c.Usage)
	} else {
		h.println("<no help text>")
	}
}

// Evaluate the first argument as an address, displaying the command
// syntax if it is missing.
func (h *Host) addrArg(c *cmd.Command, args []string) (uint16, bool) {
	if len(args) < 1 {
		h.displayUsage(c)
		return 0, false
	}
	addr, err := h.evalAddr(args[0])
	if err != nil {
		h.printf("%v\n", err)
		return 0, false
	}
	return addr, true
}

// Evaluate an optional count argument.
func (h *Host) countArg(c *cmd.Command, args []string, def int) (int, bool) {
	if len(args) == 0 {
		return def, true
	}
	v, err := h.eval(strings.Join(args, " "))
	if err != nil {
		h.printf("%v\n", err)
		return 0, false
	}
	if v < 0 || v > math.MaxInt32 {
		h.printf("%v\n", errRange)
		return 0, false
	}
	return int(v), true
}

func (h *Host) cmdAssembleFile(c *cmd.Command, args []string) error {
	if len(args) < 1 {
		h.displayUsage(c)
		return nil
	}

	filename := args[0]
	if filepath.Ext(filename) == "" {
		filename += ".asm"
	}

	origin := uint16(asm.DefaultOrigin)
	if len(args) >= 2 {
		addr, err := h.evalAddr(args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		origin = addr
	}

	verbose := h.settings.VerboseAssembly
	if len(args) >= 3 {
		v, err := stringToBool(args[2])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		verbose = v
	}

	var options asm.Option
	if verbose {
		options |= asm.Verbose
	}

	err := asm.AssembleFile(filename, origin, options, h.output)
	var list asm.ErrorList
	switch {
	case errors.As(err, &list):
		h.printf("Failed to assemble '%s'.\n", filepath.Base(filename))
	case err != nil:
		h.printf("Failed to assemble '%s': %v\n", filepath.Base(filename), err)
	}
	h.flush()
	return nil
}

func (h *Host) cmdAssembleInteractive(c *cmd.Command, args []string) error {
	origin := uint16(asm.DefaultOrigin)
	if len(args) > 0 {
		addr, err := h.evalAddr(strings.Join(args, " "))
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		origin = addr
	}

	h.println("Enter assembly language instructions.")
	h.println("Type END to finish.")

	var lines []string
	for {
		if h.interactive {
			h.printf("asm> ")
		}
		line, err := h.getLine()
		if err != nil || strings.EqualFold(strings.TrimSpace(line), "end") {
			break
		}
		lines = append(lines, line)
	}

	a, err := asm.AssembleLines(lines, origin)
	if err != nil {
		var list asm.ErrorList
		if errors.As(err, &list) {
			for _, e := range list {
				h.printf("%v\n", e)
			}
		} else {
			h.printf("%v\n", err)
		}
		h.println("Assembly failed.")
		return nil
	}

	if err := h.cpu.LoadProgram(a.Code, int(origin)); err != nil {
		h.printf("%v\n", err)
		return nil
	}
	maps.Copy(h.labels, a.Labels)

	h.printf("Assembled %d bytes at $%04X.\n", len(a.Code), origin)
	h.settings.NextDisasmAddr = origin
	return nil
}

func (h *Host) cmdBreakpointList(c *cmd.Command, args []string) error {
	h.println("Addr  Enabled")
	h.println("----- -------")
	for _, b := range h.debugger.GetBreakpoints() {
		h.printf("$%04X %v\n", b.Address, !b.Disabled)
	}
	return nil
}

func (h *Host) cmdBreakpointAdd(c *cmd.Command, args []string) error {
	addr, ok := h.addrArg(c, args)
	if !ok {
		return nil
	}

	h.debugger.AddBreakpoint(addr)
	h.printf("Breakpoint added at $%04X.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointRemove(c *cmd.Command, args []string) error {
	addr, ok := h.addrArg(c, args)
	if !ok {
		return nil
	}

	if h.debugger.GetBreakpoint(addr) == nil {
		h.printf("No breakpoint was set on $%04X.\n", addr)
		return nil
	}

	h.debugger.RemoveBreakpoint(addr)
	h.printf("Breakpoint at $%04X removed.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointEnable(c *cmd.Command, args []string) error {
	return h.enableBreakpoint(c, args, true)
}

func (h *Host) cmdBreakpointDisable(c *cmd.Command, args []string) error {
	return h.enableBreakpoint(c, args, false)
}

func (h *Host) enableBreakpoint(c *cmd.Command, args []string, enable bool) error {
	addr, ok := h.addrArg(c, args)
	if !ok {
		return nil
	}

	b := h.debugger.GetBreakpoint(addr)
	if b == nil {
		h.printf("No breakpoint was set on $%04X.\n", addr)
		return nil
	}

	b.Disabled = !enable
	h.printf("Breakpoint at $%04X %s.\n", addr, enabledString(enable))
	return nil
}

func (h *Host) cmdDataBreakpointList(c *cmd.Command, args []string) error {
	h.println("Addr  Enabled  Value")
	h.println("----- -------  -----")
	for _, b := range h.debugger.GetDataBreakpoints() {
		if b.Conditional {
			h.printf("$%04X %-5v    $%02X\n", b.Address, !b.Disabled, b.Value)
		} else {
			h.printf("$%04X %-5v    <none>\n", b.Address, !b.Disabled)
		}
	}
	return nil
}

func (h *Host) cmdDataBreakpointAdd(c *cmd.Command, args []string) error {
	addr, ok := h.addrArg(c, args)
	if !ok {
		return nil
	}

	if len(args) > 1 {
		value, err := h.evalByte(args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.debugger.AddConditionalDataBreakpoint(addr, value)
		h.printf("Conditional data breakpoint added at $%04X for value $%02X.\n", addr, value)
	} else {
		h.debugger.AddDataBreakpoint(addr)
		h.printf("Data breakpoint added at $%04X.\n", addr)
	}
	return nil
}

func (h *Host) cmdDataBreakpointRemove(c *cmd.Command, args []string) error {
	addr, ok := h.addrArg(c, args)
	if !ok {
		return nil
	}

	if h.debugger.GetDataBreakpoint(addr) == nil {
		h.printf("No data breakpoint was set on $%04X.\n", addr)
		return nil
	}

	h.debugger.RemoveDataBreakpoint(addr)
	h.printf("Data breakpoint at $%04X removed.\n", addr)
	return nil
}

func (h *Host) cmdDataBreakpointEnable(c *cmd.Command, args []string) error {
	return h.enableDataBreakpoint(c, args, true)
}

func (h *Host) cmdDataBreakpointDisable(c *cmd.Command, args []string) error {
	return h.enableDataBreakpoint(c, args, false)
}

func (h *Host) enableDataBreakpoint(c *cmd.Command, args []string, enable bool) error {
	addr, ok := h.addrArg(c, args)
	if !ok {
		return nil
	}

	b := h.debugger.GetDataBreakpoint(addr)
	if b == nil {
		h.printf("No data breakpoint was set on $%04X.\n", addr)
		return nil
	}

	b.Disabled = !enable
	h.printf("Data breakpoint at $%04X %s.\n", addr, enabledString(enable))
	return nil
}

func (h *Host) cmdDisassemble(c *cmd.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"$"}
	}

	var addr uint16
	switch args[0] {
	case "$":
		addr = h.settings.NextDisasmAddr
		if addr == 0 {
			addr = h.cpu.Reg.PC
		}

	case ".":
		addr = h.cpu.Reg.PC

	default:
		a, err := h.evalAddr(args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	lines := h.settings.DisasmLines
	if len(args) > 1 {
		l, ok := h.countArg(args[1:], lines)
		if !ok {
			return nil
		}
		lines = l
	}

	for range lines {
		d, next := h.disassemble(addr, displayLabels)
		h.println(d)
		addr = next
	}

	h.settings.NextDisasmAddr = addr
	h.lastArgs = []string{"$", fmt.Sprintf("%d", lines)}
	return nil
}

func (h *Host) cmdEvaluate(c *cmd.Command, args []string) error {
	if len(args) < 1 {
		h.displayUsage(c)
		return nil
	}

	v, err := h.eval(strings.Join(args, " "))
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	if v < 0 {
		h.printf("%d\n", v)
	} else {
		h.printf("$%04X %d\n", v, v)
	}
	return nil
}

func (h *Host) cmdHelp(c *cmd.Command, args []string) error {
	if len(args) == 0 {
		h.displayCommands(cmds)
		return nil
	}

	n, _, err := cmds.Lookup(strings.Join(args, " "))
	if err != nil {
		h.printf("%v.\n", err)
		return nil
	}
	switch nn := n.(type) {
	case *cmd.Tree:
		h.displayCommands(nn)
	case *cmd.Command:
		h.displayHelp(nn)
	}
	return nil
}

func (h *Host) cmdLabels(c *cmd.Command, args []string) error {
	if len(h.labels) == 0 {
		h.println("No labels defined.")
		return nil
	}
	names := slices.SortedFunc(maps.Keys(h.labels), func(a, b string) int {
		if h.labels[a] != h.labels[b] {
			return int(h.labels[a]) - int(h.labels[b])
		}
		return strings.Compare(a, b)
	})
	for _, name := range names {
		h.printf("%-16s $%04X\n", name, h.labels[name])
	}
	return nil
}

func (h *Host) cmdLoad(c *cmd.Command, args []string) error {
	if len(args) < 1 {
		h.displayUsage(c)
		return nil
	}

	filename := args[0]
	if filepath.Ext(filename) == "" {
		filename += ".bin"
	}

	loadAddr := -1
	if len(args) >= 2 {
		addr, err := h.evalAddr(args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		loadAddr = int(addr)
	}

	h.load(filename, loadAddr)
	return nil
}

func (h *Host) cmdMemoryDump(c *cmd.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"$"}
	}

	var addr uint16
	switch args[0] {
	case "$":
		addr = h.settings.NextMemDumpAddr
		if addr == 0 {
			addr = h.cpu.Reg.PC
		}

	case ".":
		addr = h.cpu.Reg.PC

	default:
		a, err := h.evalAddr(args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	bytes := h.settings.MemDumpBytes
	if len(args) >= 2 {
		n, ok := h.countArg(args[1:], bytes)
		if !ok {
			return nil
		}
		bytes = min(n, cpu.MemorySize)
	}

	h.dumpMemory(addr, bytes)

	h.settings.NextMemDumpAddr = addr + uint16(bytes)
	h.lastArgs = []string{"$", fmt.Sprintf("%d", bytes)}
	return nil
}

func (h *Host) cmdMemorySet(c *cmd.Command, args []string) error {
	if len(args) < 2 {
		h.displayUsage(c)
		return nil
	}

	addr, ok := h.addrArg(c, args)
	if !ok {
		return nil
	}

	values := make([]byte, 0, len(args)-1)
	for _, arg := range args[1:] {
		v, err := h.evalByte(arg)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		values = append(values, v)
	}

	for i, v := range values {
		h.cpu.Mem.StoreByte(addr+uint16(i), v)
	}
	h.printf("Stored %d bytes at $%04X.\n", len(values), addr)
	return nil
}

func (h *Host) cmdNext(c *cmd.Command, args []string) error {
	return h.stepCommand(c, args, (*Host).stepOver)
}

func (h *Host) cmdQuit(c *cmd.Command, args []string) error {
	return errQuit
}

// Status flag bits indexed by register command name.
var flagBits = map[string]byte{
	"n": cpu.NegativeBit,
	"v": cpu.OverflowBit,
	"d": cpu.DecimalBit,
	"i": cpu.InterruptDisableBit,
	"z": cpu.ZeroBit,
	"c": cpu.CarryBit,
}

func (h *Host) cmdRegister(c *cmd.Command, args []string) error {
	if len(args) == 0 {
		d, _ := h.disassemble(h.cpu.Reg.PC, displayAll)
		h.println(d)
		return nil
	}
	if len(args) < 2 {
		h.displayUsage(c)
		return nil
	}

	reg := &h.cpu.Reg
	key, value := strings.ToLower(args[0]), strings.Join(args[1:], " ")

	var r *byte
	switch key {
	case "a":
		r = &reg.A
	case "x":
		r = &reg.X
	case "y":
		r = &reg.Y
	case "sp":
		r = &reg.SP
	case "ps":
		r = &reg.PS
	case "pc", ".":
		v, err := h.evalAddr(value)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.cpu.SetPC(v)
		h.settings.NextDisasmAddr = v
		h.printf("Register PC set to $%04X.\n", v)
		return nil
	}

	if r != nil {
		v, err := h.evalByte(value)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		*r = v
		if key == "ps" {
			reg.PS |= cpu.ReservedBit
		}
		h.printf("Register %s set to $%02X.\n", strings.ToUpper(key), *r)
		return nil
	}

	bit, ok := flagBits[key]
	if !ok {
		h.printf("Register '%s' not found.\n", args[0])
		return nil
	}
	v, err := h.eval(value)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	reg.SetFlag(bit, v != 0)
	h.printf("Flag %s set to %v.\n", strings.ToUpper(key), v != 0)
	return nil
}

func (h *Host) cmdReset(c *cmd.Command, args []string) error {
	h.cpu.Reset()
	clear(h.labels)
	h.settings.NextDisasmAddr = 0
	h.settings.NextMemDumpAddr = 0
	h.println("CPU reset.")
	return nil
}

func (h *Host) cmdRun(c *cmd.Command, args []string) error {
	count, ok := h.countArg(args, h.settings.RunCycles)
	if !ok {
		return nil
	}

	if h.cpu.Halted {
		h.println("CPU is halted. Use reset to restart it.")
		return nil
	}

	limit := uint64(math.MaxUint64)
	if count > 0 {
		limit = h.cpu.Cycles + uint64(count)
	}

	if h.interactive {
		h.printf("Running from $%04X. Press ctrl-C to break.\n", h.cpu.Reg.PC)
	}

	ctx := h.begin()
	defer h.end()

	err := h.run(ctx, limit)
	switch {
	case err != nil:
		h.printf("%v\n", err)
	case h.state == stateBreakpoint:
	case h.cpu.Halted:
		h.printf("CPU halted at $%04X after %d instructions.\n", h.cpu.LastPC, h.cpu.Cycles)
	case ctx.Err() != nil:
		h.println("Interrupted.")
		h.displayPC()
	default:
		h.printf("Stopped at $%04X after %d instructions.\n", h.cpu.Reg.PC, h.cpu.Cycles)
	}
	return nil
}

func (h *Host) cmdScreen(c *cmd.Command, args []string) error {
	if err := screen.Render(h.output, h.cpu); err != nil {
		return err
	}
	h.printf("%d pixels lit.\n", screen.Count(h.cpu))
	return nil
}

func (h *Host) cmdSet(c *cmd.Command, args []string) error {
	switch len(args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
		h.flush()

	case 1:
		h.displayUsage(c)

	default:
		key, value := args[0], strings.Join(args[1:], " ")
		name, err := h.settings.Name(key)
		if err != nil {
			h.printf("Setting '%s' not found.\n", key)
			return nil
		}

		var v any
		switch h.settings.Kind(key) {
		case reflect.Bool:
			v, err = stringToBool(value)
		default:
			v, err = h.eval(value)
		}
		if err == nil {
			err = h.settings.Set(key, v)
		}

		if err == nil {
			h.printf("Setting %s updated.\n", name)
		} else {
			h.printf("%v\n", err)
		}

		h.onSettingsUpdate()
	}

	return nil
}

func (h *Host) cmdStep(c *cmd.Command, args []string) error {
	return h.stepCommand(c, args, func(h *Host, _ context.Context) error {
		return h.cpu.Step()
	})
}

// Step the CPU a requested number of times, displaying each instruction
// stepped to.
func (h *Host) stepCommand(c *cmd.Command, args []string, step func(*Host, context.Context) error) error {
	count, ok := h.countArg(args, 1)
	if !ok {
		return nil
	}

	ctx := h.begin()
	defer h.end()

	for i := count - 1; i >= 0 && h.state == stateRunning && ctx.Err() == nil; i-- {
		if h.cpu.Halted {
			h.printf("CPU halted at $%04X.\n", h.cpu.LastPC)
			break
		}
		if err := step(h, ctx); err != nil {
			h.printf("%v\n", err)
			break
		}
		if h.state != stateRunning {
			break
		}
		switch {
		case i == h.settings.MaxStepLines:
			h.println("...")
		case i < h.settings.MaxStepLines:
			d, _ := h.disassemble(h.cpu.Reg.PC, displayAll)
			h.println(d)
		}
	}
	return nil
}

// Step over the next instruction. A subroutine call runs until the
// instruction following it is reached.
func (h *Host) stepOver(ctx context.Context) error {
	inst := h.cpu.GetInstruction(h.cpu.Reg.PC)
	if inst.Name != "JSR" {
		return h.cpu.Step()
	}

	// Place a step-over breakpoint on the instruction following the JSR.
	// Either reuse an already existing breakpoint on that instruction, or
	// create a temporary one.
	next := h.cpu.NextAddr(h.cpu.Reg.PC)
	b := h.debugger.GetBreakpoint(next)
	tmp := b == nil
	if tmp {
		b = h.debugger.AddBreakpoint(next)
	}
	disabled := b.Disabled
	b.Disabled = false
	h.stepOverAddr = int(next)

	err := h.run(ctx, math.MaxUint64)

	h.stepOverAddr = -1
	b.Disabled = disabled
	if tmp {
		h.debugger.RemoveBreakpoint(next)
	}

	// Reaching the step-over breakpoint is a normal step.
	if h.state == stateStepOverBreakpoint {
		h.state = stateRunning
	}
	return err
}

// Load a binary file and its source map, if any.
func (h *Host) load(filename string, addr int) {
	file, err := os.Open(filename)
	if err != nil {
		h.printf("Failed to open '%s': %v\n", filepath.Base(filename), err)
		return
	}
	defer file.Close()

	a := &asm.Assembly{}
	if _, err := a.ReadFrom(file); err != nil {
		h.printf("Failed to read '%s': %v\n", filepath.Base(filename), err)
		return
	}

	ext := filepath.Ext(filename)
	mapName := filename[:len(filename)-len(ext)] + ".map"

	var sourceMap *asm.SourceMap
	if mapFile, err := os.Open(mapName); err == nil {
		sm := &asm.SourceMap{}
		_, err = sm.ReadFrom(mapFile)
		mapFile.Close()
		switch {
		case err != nil:
			h.printf("Failed to read '%s': %v\n", filepath.Base(mapName), err)
		case sm.CRC != crc32.ChecksumIEEE(a.Code):
			h.printf("Source map '%s' does not match '%s'.\n", filepath.Base(mapName), filepath.Base(filename))
		default:
			sourceMap = sm
		}
	}

	var origin uint16
	switch {
	case addr >= 0:
		origin = uint16(addr)
	case sourceMap != nil:
		origin = sourceMap.Origin
	default:
		h.printf("File '%s' has no source map and requires an address.\n", filepath.Base(filename))
		return
	}

	if err := h.cpu.LoadProgram(a.Code, int(origin)); err != nil {
		h.printf("%v\n", err)
		return
	}
	h.printf("Loaded '%s' to $%04X (%d bytes).\n", filepath.Base(filename), origin, len(a.Code))

	if sourceMap != nil && sourceMap.Origin == origin {
		for _, s := range sourceMap.Symbols {
			h.labels[s.Label] = s.Address
		}
		h.printf("Loaded source map '%s'.\n", filepath.Base(mapName))
	}

	h.cpu.SetPC(origin)
	h.settings.NextDisasmAddr = origin
}

func (h *Host) onSettingsUpdate() {
	if h.settings.IgnoreUnknown {
		h.cpu.UnknownOpcodes = cpu.Ignore
	} else {
		h.cpu.UnknownOpcodes = cpu.Fault
	}
}

func (h *Host) registerString() string {
	r := &h.cpu.Reg
	return fmt.Sprintf("A=%02X X=%02X Y=%02X PS=[%s] SP=%02X PC=%04X",
		r.A, r.X, r.Y, r.FlagString(), r.SP, r.PC)
}

func (h *Host) disassemble(addr uint16, flags displayFlags) (str string, next uint16) {
	line, next := disasm.Disassemble(h.cpu.Mem, addr)
	b := disasm.Bytes(h.cpu.Mem, addr)

	str = fmt.Sprintf("%04X-   %-8s    %-15s", addr, codeString(b), line)

	if (flags & displayRegisters) != 0 {
		str += " " + h.registerString()
	}

	if (flags & displayCycles) != 0 {
		str += fmt.Sprintf(" C=%d", h.cpu.Cycles)
	}

	if (flags & displayLabels) != 0 {
		if label, ok := h.labelAt(addr); ok {
			str += " ; " + label
		}
	}

	return str, next
}

// Return the first label, alphabetically, bound to 'addr'.
func (h *Host) labelAt(addr uint16) (string, bool) {
	var found string
	for name, a := range h.labels {
		if a == addr && (found == "" || name < found) {
			found = name
		}
	}
	return found, found != ""
}

func (h *Host) dumpMemory(addr0 uint16, bytes int) {
	if bytes <= 0 {
		return
	}

	addr1 := addr0 + uint16(bytes-1)
	if int(addr0)+bytes-1 > 0xffff {
		addr1 = 0xffff
	}

	buf := []byte("    -" + strings.Repeat(" ", 35))

	// Don't align display for short dumps.
	if addr1-addr0 < 8 {
		addrToBuf(addr0, buf[0:4])
		for a, c1, c2 := int(addr0), 6, 32; a <= int(addr1); a, c1, c2 = a+1, c1+3, c2+1 {
			m := h.cpu.Mem.LoadByte(uint16(a))
			byteToBuf(m, buf[c1:c1+2])
			buf[c2] = toPrintableChar(m)
		}
		h.println(strings.TrimRight(string(buf), " "))
		return
	}

	// Align addr0 and addr1 to 8-byte boundaries.
	start := uint32(addr0) & 0xfff8
	stop := min((uint32(addr1)+8)&0xffff8, 0x10000)

	a := start
	for r := start; r < stop; r += 8 {
		addrToBuf(uint16(a), buf[0:4])
		for c1, c2 := 6, 32; c1 < 29; c1, c2, a = c1+3, c2+1, a+1 {
			if a >= uint32(addr0) && a <= uint32(addr1) {
				m := h.cpu.Mem.LoadByte(uint16(a))
				byteToBuf(m, buf[c1:c1+2])
				buf[c2] = toPrintableChar(m)
			} else {
				buf[c1] = ' '
				buf[c1+1] = ' '
				buf[c2] = ' '
			}
		}
		h.println(strings.TrimRight(string(buf), " "))
	}
}

// Display the syntax and description of a command.
func (h *Host) displayHelp(c *cmd.Command) {
	if c.Usage != "" {
		h.printf("Syntax: %s\n\n", c.Usage)
	}
	switch {
	case c.Description != "":
		h.printf("Description:\n%s\n\n", indentWrap(3, c.Description))
	case c.Brief != "":
		h.printf("Description:\n%s.\n\n", indentWrap(3, c.Brief))
	}
	if sc := c.Shortcuts(); len(sc) > 0 {
		h.printf("Shortcuts: %s\n\n", strings.Join(sc, ", "))
	}
}

// Display the commands and command groups of a tree, sorted by name.
func (h *Host) displayCommands(t *cmd.Tree) {
	type entry struct{ name, brief string }
	var entries []entry
	for _, c := range t.Commands() {
		entries = append(entries, entry{c.Name, c.Brief})
	}
	for _, st := range t.Subtrees() {
		entries = append(entries, entry{st.Name, st.Brief})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		return strings.Compare(a.name, b.name)
	})

	h.printf("%s commands:\n", t.Name)
	for _, e := range entries {
		h.printf("    %-15s  %s\n", e.name, e.brief)
	}
	h.println()
}

func (h *Host) onBreakpoint(cpu *cpu.CPU, b *cpu.Breakpoint) {
	if int(b.Address) == h.stepOverAddr {
		h.state = stateStepOverBreakpoint
	} else {
		h.state = stateBreakpoint
		h.printf("Breakpoint hit at $%04X.\n", b.Address)
		h.displayPC()
	}
	if h.stopRun != nil {
		h.stopRun()
	}
}

func (h *Host) onDataBreakpoint(cpu *cpu.CPU, b *cpu.DataBreakpoint) {
	h.printf("Data breakpoint hit on address $%04X.\n", b.Address)

	h.state = stateBreakpoint
	if h.stopRun != nil {
		h.stopRun()
	}

	if cpu.LastPC != cpu.Reg.PC {
		d, _ := h.disassemble(cpu.LastPC, displayAll)
		h.println(d)
	}

	h.displayPC()
}
