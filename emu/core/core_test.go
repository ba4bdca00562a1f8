/*
 * AVR8 core loop test cases.
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

package core

import (
	"testing"

	"github.com/rcornwell/AVR8/emu/avr"
	"github.com/rcornwell/AVR8/emu/device"
	"github.com/rcornwell/AVR8/emu/luaperiph"
	"github.com/rcornwell/AVR8/emu/master"

	_ "github.com/rcornwell/AVR8/emu/models"
)

func newTestCore(t *testing.T) (*Core, *avr.MCU) {
	t.Helper()
	model, err := device.Lookup("ATmega328P")
	if err != nil {
		t.Fatal(err)
	}
	mcu := model.Create()
	mcu.Reset()
	return NewCore(mcu, model, make(chan master.Packet, 4)), mcu
}

// Store opcode words little endian into program memory.
func putCode(mcu *avr.MCU, addr uint32, words ...uint16) {
	for i, word := range words {
		mcu.PM[addr+uint32(2*i)] = uint8(word & 0xff)
		mcu.PM[addr+uint32(2*i)+1] = uint8(word >> 8)
	}
}

// One tick advances the cycle counter; StepInst retires a whole
// instruction.
func TestTickAndStep(t *testing.T) {
	cpu, mcu := newTestCore(t)
	putCode(mcu, 0x0000, 0xe015, 0x940e, 0x0004, 0x9508) // LDI R17,5; CALL 8; RET

	cpu.Tick()
	if cpu.Ticks() != 1 {
		t.Error("tick counter wrong")
	}
	if mcu.DM[17] != 5 {
		t.Error("LDI did not execute")
	}

	cpu.StepInst() // the four cycle CALL
	if mcu.PC != 0x0008 {
		t.Errorf("CALL PC got %04x expected 0008", mcu.PC)
	}
	if cpu.Ticks() != 5 {
		t.Errorf("ticks got %d expected 5", cpu.Ticks())
	}
}

// Lua peripherals run each tick and can stop the run.
func TestScriptTick(t *testing.T) {
	cpu, mcu := newTestCore(t)
	putCode(mcu, 0x0000, 0xcfff) // RJMP .-2
	script, err := luaperiph.LoadString(mcu, "counter", `
ticks = 0
function tick()
	ticks = ticks + 1
	if ticks == 5 then
		AVR_Stop()
	end
end`)
	if err != nil {
		t.Fatal(err)
	}
	defer script.Close()
	cpu.AddScript(script)

	for i := 0; i < 5; i++ {
		cpu.Tick()
	}
	if mcu.State != avr.Stop {
		t.Error("script did not stop the run")
	}
	if cpu.ExitCode() != 0 {
		t.Error("Stop state must exit zero")
	}
	mcu.State = avr.TestFail
	if cpu.ExitCode() == 0 {
		t.Error("TestFail state must exit nonzero")
	}
}
