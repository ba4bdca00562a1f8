/*
 * AVR8 value change dump test cases.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package vcd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rcornwell/AVR8/emu/avr"
)

func newVCDMCU() *avr.MCU {
	return &avr.MCU{
		Name:   "ATmega328P",
		Freq:   1000000,
		Sreg:   0x5f,
		Sph:    0x5e,
		Spl:    0x5d,
		SfrOff: 0x20,
		DM:     make([]uint8, 0x900),
	}
}

// The header declares the timescale, scope and one variable per
// selected register, then the initial values.
func TestHeader(t *testing.T) {
	mcu := newVCDMCU()
	mcu.DM[0x25] = 0xa5
	var buf bytes.Buffer
	regs := []Reg{
		{Name: "PORTB", Index: 0x25, Low: -1, Bit: -1},
		{Name: "SP", Index: 0x5e, Low: 0x5d, Bit: -1},
		{Name: "TOV0", Index: 0x35, Low: -1, Bit: 0},
	}
	if _, err := NewObserver(mcu, &buf, regs); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"$timescale\n\t1000000 ps\n$end",
		"$scope\n\tmodule ATmega328P\n$end",
		"$var reg 8 PORTB PORTB $end",
		"$var reg 16 SP SP $end",
		"$var reg 1 TOV0 TOV0 $end",
		"$enddefinitions $end",
		"$dumpvars",
		"b10100101 PORTB",
		"b0000000000000000 SP",
		"b0 TOV0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("header lacks %q", want)
		}
	}
}

// Frames appear only on ticks where a selected register changed.
func TestSampleOnChange(t *testing.T) {
	mcu := newVCDMCU()
	var buf bytes.Buffer
	regs := []Reg{{Name: "PORTB", Index: 0x25, Low: -1, Bit: -1}}
	observ, err := NewObserver(mcu, &buf, regs)
	if err != nil {
		t.Fatal(err)
	}
	head := buf.Len()

	if err = observ.Sample(1); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != head {
		t.Error("frame emitted without a change")
	}

	mcu.DM[0x25] = 0x0f
	if err = observ.Sample(2); err != nil {
		t.Fatal(err)
	}
	out := buf.String()[head:]
	if !strings.Contains(out, "#2\n") || !strings.Contains(out, "b00001111 PORTB") {
		t.Errorf("change frame wrong: %q", out)
	}

	// Unchanged again.
	head = buf.Len()
	if err = observ.Sample(3); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != head {
		t.Error("frame emitted for an unchanged register")
	}
}

// A bit selection only reacts to its own bit.
func TestSampleBit(t *testing.T) {
	mcu := newVCDMCU()
	var buf bytes.Buffer
	regs := []Reg{{Name: "TOV0", Index: 0x35, Low: -1, Bit: 0}}
	observ, err := NewObserver(mcu, &buf, regs)
	if err != nil {
		t.Fatal(err)
	}
	head := buf.Len()

	mcu.DM[0x35] = 0x02 // other bit
	if err = observ.Sample(1); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != head {
		t.Error("bit frame emitted for a different bit")
	}

	mcu.DM[0x35] = 0x03
	if err = observ.Sample(2); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String()[head:], "b1 TOV0") {
		t.Error("bit change not dumped")
	}
}
