/*
   AVR8 - Console command parser.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rcornwell/AVR8/emu/avr"
	"github.com/rcornwell/AVR8/emu/core"
	"github.com/rcornwell/AVR8/emu/master"
)

type command struct {
	name string
	help string
	fn   func(core *core.Core, ch chan master.Packet, args []string) (bool, error)
}

var commands []command

func init() {
	commands = []command{
		{"run", "run the MCU freely", cmdRun},
		{"stop", "halt the MCU", cmdStop},
		{"step", "step [n]: execute n instructions (default 1)", cmdStep},
		{"reset", "return the MCU to its power on state", cmdReset},
		{"reg", "show the processor registers", cmdRegisters},
		{"examine", "examine dm|pm <addr> [count]: display memory", cmdExamine},
		{"deposit", "deposit <addr> <value>...: set data memory", cmdDeposit},
		{"help", "show this text", cmdHelp},
		{"quit", "leave the simulator", cmdQuit},
	}
}

// ProcessCommand runs one console command. The boolean result requests
// the console loop to exit.
func ProcessCommand(line string, cpu *core.Core, ch chan master.Packet) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name := strings.ToLower(fields[0])
	for i := range commands {
		if strings.HasPrefix(commands[i].name, name) {
			return commands[i].fn(cpu, ch, fields[1:])
		}
	}
	return false, errors.New("unknown command: " + fields[0])
}

// CompleteCmd offers command name completions to the console reader.
func CompleteCmd(line string) []string {
	var matches []string
	lower := strings.ToLower(line)
	for i := range commands {
		if strings.HasPrefix(commands[i].name, lower) {
			matches = append(matches, commands[i].name)
		}
	}
	return matches
}

func cmdRun(_ *core.Core, ch chan master.Packet, _ []string) (bool, error) {
	ch <- master.Packet{Msg: master.Start}
	return false, nil
}

func cmdStop(_ *core.Core, ch chan master.Packet, _ []string) (bool, error) {
	ch <- master.Packet{Msg: master.Stop}
	return false, nil
}

func cmdStep(_ *core.Core, ch chan master.Packet, args []string) (bool, error) {
	count := uint64(1)
	if len(args) > 0 {
		value, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return false, errors.New("step count must be a number: " + args[0])
		}
		count = value
	}
	ch <- master.Packet{Msg: master.Step, Count: count}
	return false, nil
}

func cmdReset(_ *core.Core, ch chan master.Packet, _ []string) (bool, error) {
	ch <- master.Packet{Msg: master.Reset}
	return false, nil
}

var stateNames = map[avr.State]string{
	avr.Running:  "running",
	avr.Stopped:  "stopped",
	avr.Sleeping: "sleeping",
	avr.Step:     "step",
	avr.Stop:     "finished",
	avr.TestFail: "test failed",
}

func cmdRegisters(cpu *core.Core, _ chan master.Packet, _ []string) (bool, error) {
	mcu := cpu.MCU()
	sp := (uint16(mcu.DM[mcu.Sph]) << 8) | uint16(mcu.DM[mcu.Spl])
	fmt.Printf("PC=%06x SP=%04x SREG=%08b state=%s cycles=%d\n",
		mcu.PC, sp, mcu.DM[mcu.Sreg], stateNames[mcu.State], cpu.Ticks())
	for i := 0; i < 32; i += 8 {
		for j := i; j < i+8; j++ {
			fmt.Printf("R%-2d=%02x ", j, mcu.DM[j])
		}
		fmt.Println()
	}
	return false, nil
}

func cmdExamine(cpu *core.Core, _ chan master.Packet, args []string) (bool, error) {
	if len(args) < 2 {
		return false, errors.New("examine needs a memory space and an address")
	}
	var mem []uint8
	switch strings.ToLower(args[0]) {
	case "dm":
		mem = cpu.MCU().DM
	case "pm":
		mem = cpu.MCU().PM
	default:
		return false, errors.New("memory space must be dm or pm")
	}
	addr, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return false, errors.New("address must be a number: " + args[1])
	}
	count := uint64(16)
	if len(args) > 2 {
		count, err = strconv.ParseUint(args[2], 0, 32)
		if err != nil {
			return false, errors.New("count must be a number: " + args[2])
		}
	}
	for i := uint64(0); i < count; i++ {
		if addr+i >= uint64(len(mem)) {
			break
		}
		if i%16 == 0 {
			if i != 0 {
				fmt.Println()
			}
			fmt.Printf("%06x:", addr+i)
		}
		fmt.Printf(" %02x", mem[addr+i])
	}
	fmt.Println()
	return false, nil
}

func cmdDeposit(cpu *core.Core, _ chan master.Packet, args []string) (bool, error) {
	if len(args) < 2 {
		return false, errors.New("deposit needs an address and a value")
	}
	addr, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return false, errors.New("address must be a number: " + args[0])
	}
	mcu := cpu.MCU()
	for i, arg := range args[1:] {
		value, err := strconv.ParseUint(arg, 0, 8)
		if err != nil {
			return false, errors.New("value must be a byte: " + arg)
		}
		if addr+uint64(i) >= uint64(len(mcu.DM)) {
			return false, errors.New("address out of range")
		}
		mcu.DM[addr+uint64(i)] = uint8(value)
	}
	return false, nil
}

func cmdHelp(_ *core.Core, _ chan master.Packet, _ []string) (bool, error) {
	for i := range commands {
		fmt.Printf("%-8s %s\n", commands[i].name, commands[i].help)
	}
	return false, nil
}

func cmdQuit(_ *core.Core, _ chan master.Packet, _ []string) (bool, error) {
	return true, nil
}
