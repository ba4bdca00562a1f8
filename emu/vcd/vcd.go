/*
   AVR8 - Value change dump observer.

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

package vcd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rcornwell/AVR8/emu/avr"
)

// Reg selects one register, register pair or register bit of data
// memory for dumping.
type Reg struct {
	Name  string // Signal name in the dump.
	Index int    // DM index; high byte of a pair.
	Low   int    // DM index of the low byte, -1 for a single register.
	Bit   int    // Bit number, -1 for the whole register.

	old uint16
}

// Observer samples a selection of registers once per simulated cycle
// and writes a value change dump. All of its state, including the
// previous sample, lives in the instance.
type Observer struct {
	mcu  *avr.MCU
	regs []Reg
	out  *bufio.Writer
	file *os.File
}

// Width of one selected register in bits.
func (reg *Reg) width() int {
	switch {
	case reg.Bit >= 0:
		return 1
	case reg.Low >= 0:
		return 16
	}
	return 8
}

// Current sampled value of one selected register.
func (reg *Reg) sample(mcu *avr.MCU) uint16 {
	value := uint16(mcu.DM[reg.Index])
	if reg.Low >= 0 {
		value = (value << 8) | uint16(mcu.DM[reg.Low])
	}
	if reg.Bit >= 0 {
		value = (value >> reg.Bit) & 1
	}
	return value
}

// MSB-first binary image of a sampled value.
func (reg *Reg) binary(value uint16) string {
	width := reg.width()
	buf := make([]byte, width)
	for i := 0; i < width; i++ {
		buf[i] = '0' + byte((value>>(width-1-i))&1)
	}
	return string(buf)
}

// Open creates a dump file and writes the declaration header and the
// initial values. The timescale is one MCU clock period in picoseconds.
func Open(mcu *avr.MCU, fileName string, regs []Reg) (*Observer, error) {
	file, err := os.Create(fileName)
	if err != nil {
		return nil, err
	}
	observ := &Observer{
		mcu:  mcu,
		regs: regs,
		out:  bufio.NewWriter(file),
		file: file,
	}
	if err = observ.header(); err != nil {
		file.Close()
		return nil, err
	}
	return observ, nil
}

// NewObserver wraps an arbitrary writer, for embedders which own the
// output file themselves.
func NewObserver(mcu *avr.MCU, w io.Writer, regs []Reg) (*Observer, error) {
	observ := &Observer{
		mcu:  mcu,
		regs: regs,
		out:  bufio.NewWriter(w),
	}
	if err := observ.header(); err != nil {
		return nil, err
	}
	return observ, nil
}

func (observ *Observer) header() error {
	mcu := observ.mcu
	fmt.Fprintf(observ.out, "$date\n\t%s\n$end\n", time.Now().Format("2006-01-02T15:04:05"))
	fmt.Fprintf(observ.out, "$version\n\tAVR8 simulator\n$end\n")
	fmt.Fprintf(observ.out, "$comment\n\tDump of a simulated %s\n$end\n", mcu.Name)
	fmt.Fprintf(observ.out, "$timescale\n\t%d ps\n$end\n", uint64(1e12/float64(mcu.Freq)))
	fmt.Fprintf(observ.out, "$scope\n\tmodule %s\n$end\n", mcu.Name)
	for i := range observ.regs {
		reg := &observ.regs[i]
		fmt.Fprintf(observ.out, "$var reg %d %s %s $end\n", reg.width(), reg.Name, reg.Name)
	}
	fmt.Fprintf(observ.out, "$upscope $end\n")
	fmt.Fprintf(observ.out, "$enddefinitions $end\n")

	// Initial values.
	fmt.Fprintf(observ.out, "$dumpvars\n")
	for i := range observ.regs {
		reg := &observ.regs[i]
		reg.old = reg.sample(mcu)
		fmt.Fprintf(observ.out, "b%s %s\n", reg.binary(reg.old), reg.Name)
	}
	fmt.Fprintf(observ.out, "$end\n")
	return observ.out.Flush()
}

// Sample emits one frame when any selected register changed since the
// previous tick. Ticks without changes produce no output.
func (observ *Observer) Sample(tick uint64) error {
	changed := false
	for i := range observ.regs {
		if observ.regs[i].sample(observ.mcu) != observ.regs[i].old {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}

	fmt.Fprintf(observ.out, "#%d\n", tick)
	for i := range observ.regs {
		reg := &observ.regs[i]
		value := reg.sample(observ.mcu)
		if value == reg.old {
			continue
		}
		reg.old = value
		fmt.Fprintf(observ.out, "b%s %s\n", reg.binary(value), reg.Name)
	}
	return observ.out.Flush()
}

// Close flushes and closes the dump file.
func (observ *Observer) Close() error {
	err := observ.out.Flush()
	if observ.file != nil {
		if cerr := observ.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
