/*
 * AVR8 Lua peripheral test cases.
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

package luaperiph

import (
	"testing"

	"github.com/rcornwell/AVR8/emu/avr"
)

func newLuaMCU() *avr.MCU {
	return &avr.MCU{
		Name:   "test",
		Freq:   1000000,
		Sreg:   0x5f,
		Sph:    0x5e,
		Spl:    0x5d,
		SfrOff: 0x20,
		DM:     make([]uint8, 0x900),
		State:  avr.Running,
	}
}

// A script without a tick entry is rejected.
func TestNoTick(t *testing.T) {
	mcu := newLuaMCU()
	if _, err := LoadString(mcu, "bad", "x = 1"); err == nil {
		t.Error("script without tick accepted")
	}
}

// A peripheral toggling an I/O pin every cycle.
func TestToggle(t *testing.T) {
	mcu := newLuaMCU()
	script, err := LoadString(mcu, "toggle", `
function tick()
	local v = AVR_ReadIO(0x05)
	if v == 0 then
		AVR_WriteIO(0x05, 1)
	else
		AVR_WriteIO(0x05, 0)
	end
end`)
	if err != nil {
		t.Fatal(err)
	}
	defer script.Close()

	script.Tick(mcu)
	if mcu.DM[0x25] != 1 {
		t.Errorf("pin got %02x expected 01", mcu.DM[0x25])
	}
	script.Tick(mcu)
	if mcu.DM[0x25] != 0 {
		t.Errorf("pin got %02x expected 00", mcu.DM[0x25])
	}
}

// Register and bit access from a script.
func TestRegisterAccess(t *testing.T) {
	mcu := newLuaMCU()
	mcu.DM[16] = 0x80
	script, err := LoadString(mcu, "regs", `
function tick()
	if AVR_RegBit(16, 7) == 1 then
		AVR_WriteReg(17, 0x55)
		AVR_SetIOBit(0x12, 3, 1)
	end
end`)
	if err != nil {
		t.Fatal(err)
	}
	defer script.Close()

	script.Tick(mcu)
	if mcu.DM[17] != 0x55 {
		t.Errorf("register write got %02x expected 55", mcu.DM[17])
	}
	if mcu.DM[0x32]&0x08 == 0 {
		t.Error("I/O bit not set")
	}
}

// A script can end the simulation with a test failure.
func TestSetState(t *testing.T) {
	mcu := newLuaMCU()
	script, err := LoadString(mcu, "fail", `
ticks = 0
function tick()
	ticks = ticks + 1
	if ticks == 3 then
		AVR_TestFail()
	end
end`)
	if err != nil {
		t.Fatal(err)
	}
	defer script.Close()

	for i := 0; i < 3; i++ {
		script.Tick(mcu)
	}
	if mcu.State != avr.TestFail {
		t.Error("script did not fail the simulation")
	}
}

// A script runtime error also fails the simulation.
func TestScriptError(t *testing.T) {
	mcu := newLuaMCU()
	script, err := LoadString(mcu, "broken", `
function tick()
	error("boom")
end`)
	if err != nil {
		t.Fatal(err)
	}
	defer script.Close()

	script.Tick(mcu)
	if mcu.State != avr.TestFail {
		t.Error("script error did not fail the simulation")
	}
}

// The frequency is visible to scripts.
func TestFreq(t *testing.T) {
	mcu := newLuaMCU()
	script, err := LoadString(mcu, "freq", `
function tick()
	AVR_WriteReg(0, AVR_Freq() / 1000000)
end`)
	if err != nil {
		t.Fatal(err)
	}
	defer script.Close()

	script.Tick(mcu)
	if mcu.DM[0] != 1 {
		t.Errorf("freq got %d expected 1", mcu.DM[0])
	}
}
