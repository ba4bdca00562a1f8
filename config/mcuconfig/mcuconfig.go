/*
   AVR8 - MCU configuration assembly.

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

package mcuconfig

import (
	"errors"
	"fmt"
	"strings"

	config "github.com/rcornwell/AVR8/config/configparser"
	"github.com/rcornwell/AVR8/emu/avr"
	"github.com/rcornwell/AVR8/emu/device"
	"github.com/rcornwell/AVR8/emu/loader"
	"github.com/rcornwell/AVR8/emu/vcd"
)

// Settings collected from the configuration file. Build assembles them
// into a ready to run MCU once the whole file has been read.
type settings struct {
	model    string
	firmware string
	freq     uint64
	fuses    []fuseValue
	lock     *uint8
	trapISR  bool

	vcdFile string
	dump    []vcd.Reg

	scripts []string
}

type fuseValue struct {
	number uint32
	value  uint8
}

var current settings

// Register the configuration options handled here.
func init() {
	config.RegisterOption("mcu", 1, setModel)
	config.RegisterFile("firmware", setFirmware)
	config.RegisterOption("freq", 1, setFreq)
	config.RegisterOption("fuse", 2, setFuse)
	config.RegisterOption("lock", 1, setLock)
	config.RegisterSwitch("trapisr", setTrapISR)
	config.RegisterFile("vcd", setVCDFile)
	config.RegisterOption("dump", 2, addDump)
	config.RegisterFile("script", addScript)
}

func setModel(args []string) error {
	if current.model != "" {
		return errors.New("mcu given more than once")
	}
	current.model = args[0]
	return nil
}

func setFirmware(fileName string) error {
	current.firmware = fileName
	return nil
}

func setFreq(args []string) error {
	value, err := config.ParseNumber(args[0])
	if err != nil {
		return err
	}
	current.freq = value
	return nil
}

func setFuse(args []string) error {
	number, err := config.ParseNumber(args[0])
	if err != nil {
		return err
	}
	value, err := config.ParseNumber(args[1])
	if err != nil {
		return err
	}
	if value > 0xff {
		return fmt.Errorf("fuse value out of range: %s", args[1])
	}
	current.fuses = append(current.fuses, fuseValue{number: uint32(number), value: uint8(value)})
	return nil
}

func setLock(args []string) error {
	value, err := config.ParseNumber(args[0])
	if err != nil {
		return err
	}
	if value > 0xff {
		return fmt.Errorf("lock value out of range: %s", args[0])
	}
	lock := uint8(value)
	current.lock = &lock
	return nil
}

func setTrapISR() error {
	current.trapISR = true
	return nil
}

func setVCDFile(fileName string) error {
	current.vcdFile = fileName
	return nil
}

// dump <name> <addr> [<lowaddr>] [bit <n>]
// addresses are data memory indices.
func addDump(args []string) error {
	reg := vcd.Reg{Name: args[0], Low: -1, Bit: -1}
	addr, err := config.ParseNumber(args[1])
	if err != nil {
		return err
	}
	reg.Index = int(addr)

	rest := args[2:]
	for len(rest) > 0 {
		if strings.EqualFold(rest[0], "bit") {
			if len(rest) < 2 {
				return errors.New("dump: bit needs a number")
			}
			bit, err := config.ParseNumber(rest[1])
			if err != nil {
				return err
			}
			if bit > 7 {
				return fmt.Errorf("dump: bit out of range: %s", rest[1])
			}
			reg.Bit = int(bit)
			rest = rest[2:]
			continue
		}
		low, err := config.ParseNumber(rest[0])
		if err != nil {
			return err
		}
		reg.Low = int(low)
		rest = rest[1:]
	}
	if reg.Bit >= 0 && reg.Low >= 0 {
		return errors.New("dump: a register pair has no bit selection")
	}
	current.dump = append(current.dump, reg)
	return nil
}

func addScript(fileName string) error {
	current.scripts = append(current.scripts, fileName)
	return nil
}

// Machine is the assembled simulation target.
type Machine struct {
	MCU     *avr.MCU
	Model   device.Model
	VCDFile string
	Dump    []vcd.Reg
	Scripts []string
}

// Build creates the MCU described by the loaded configuration: looks up
// the device model, applies fuses and lock bits, loads the firmware and
// resets the processor. A reserved fuse combination refuses to start.
func Build() (*Machine, error) {
	if current.model == "" {
		return nil, errors.New("configuration selects no mcu")
	}
	model, err := device.Lookup(current.model)
	if err != nil {
		return nil, err
	}
	mcu := model.Create()

	for _, fuse := range current.fuses {
		if err = model.SetFuse(mcu, fuse.number, fuse.value); err != nil {
			return nil, err
		}
	}
	if current.lock != nil {
		if err = model.SetLock(mcu, *current.lock); err != nil {
			return nil, err
		}
	}
	if current.freq != 0 {
		mcu.Freq = current.freq
	}
	mcu.Intr.TrapAtISR = current.trapISR

	if current.firmware == "" {
		return nil, errors.New("configuration names no firmware image")
	}
	pm, err := loader.Load(current.firmware, uint32(len(mcu.PM)))
	if err != nil {
		return nil, err
	}
	loader.Apply(mcu, pm)

	mcu.Reset()
	mcu.State = avr.Stopped

	return &Machine{
		MCU:     mcu,
		Model:   model,
		VCDFile: current.vcdFile,
		Dump:    current.dump,
		Scripts: current.scripts,
	}, nil
}

// Clear resets the collected settings. Used by tests.
func Clear() {
	current = settings{}
}
