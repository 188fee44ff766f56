// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/beevik/mini6502/asm"
	"github.com/beevik/mini6502/host"
	"github.com/beevik/term"
)

var (
	assemble string
	origin   string
	verbose  bool
)

func init() {
	flag.StringVar(&assemble, "a", "", "assemble file")
	flag.StringVar(&origin, "o", "$0600", "origin address for -a")
	flag.BoolVar(&verbose, "v", false, "verbose assembler output")
	flag.CommandLine.Usage = func() {
		fmt.Println("Usage: mini6502 [script] ..\nOptions:")
		flag.PrintDefaults()
	}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("mini6502: ")
	flag.Parse()

	// Do command-line assemble if requested.
	if assemble != "" {
		addr, err := parseOrigin(origin)
		if err != nil {
			log.Fatalf("invalid origin '%s': %v", origin, err)
		}
		var options asm.Option
		if verbose {
			options |= asm.Verbose
		}
		if err := asm.AssembleFile(assemble, addr, options, os.Stdout); err != nil {
			log.Fatalf("failed to assemble file '%s'", assemble)
		}
		os.Exit(0)
	}

	h := host.New()

	// Run commands contained in command-line files.
	for _, filename := range flag.Args() {
		file, err := os.Open(filename)
		if err != nil {
			log.Fatal(err)
		}
		h.RunCommands(file, os.Stdout, false)
		file.Close()
	}

	// Break on Ctrl-C.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go handleInterrupt(h, c)

	// Run commands interactively.
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	h.RunCommands(os.Stdin, os.Stdout, interactive)
}

func handleInterrupt(h *host.Host, c chan os.Signal) {
	for {
		<-c
		h.Break()
	}
}

// Parse an origin given as $hhhh, 0xhhhh or decimal.
func parseOrigin(s string) (uint16, error) {
	if len(s) > 1 && s[0] == '$' {
		s = "0x" + s[1:]
	}
	v, err := strconv.ParseUint(s, 0, 16)
	return uint16(v), err
}
