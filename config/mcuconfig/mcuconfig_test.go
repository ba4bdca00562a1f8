/*
 * AVR8 MCU configuration test cases.
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

package mcuconfig

import (
	"os"
	"path/filepath"
	"testing"

	config "github.com/rcornwell/AVR8/config/configparser"
	"github.com/rcornwell/AVR8/emu/avr"

	_ "github.com/rcornwell/AVR8/emu/models"
)

func loadConfig(t *testing.T, content string) error {
	t.Helper()
	Clear()
	dir := t.TempDir()
	firmware := filepath.Join(dir, "fw.bin")
	if err := os.WriteFile(firmware, []byte{0xff, 0xcf}, 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "test.cfg")
	if err := os.WriteFile(path, []byte("firmware \""+firmware+"\"\n"+content), 0o644); err != nil {
		t.Fatal(err)
	}
	return config.LoadConfigFile(path)
}

// A full configuration builds a halted, reset machine.
func TestBuild(t *testing.T) {
	err := loadConfig(t, `
mcu ATmega328P
freq 16000000
fuse 0 0x62
fuse 1 0xd9
lock 0x3f
trapisr
dump PORTB 0x25
dump SP 0x5e 0x5d
dump TOV0 0x35 bit 0
`)
	if err != nil {
		t.Fatal(err)
	}
	machine, err := Build()
	if err != nil {
		t.Fatal(err)
	}
	mcu := machine.MCU
	if mcu.Name != "ATmega328P" {
		t.Error("wrong device")
	}
	if mcu.Freq != 16000000 {
		t.Errorf("freq got %d expected 16000000", mcu.Freq)
	}
	if mcu.LockBits != 0x3f {
		t.Error("lock byte not applied")
	}
	if !mcu.Intr.TrapAtISR {
		t.Error("trapisr not applied")
	}
	if mcu.State != avr.Stopped {
		t.Error("machine not halted after build")
	}
	if mcu.PM[0] != 0xff || mcu.PM[1] != 0xcf {
		t.Error("firmware not loaded")
	}
	if mcu.PM[2] != 0xff {
		t.Error("flash not erased behind the image")
	}
	if len(machine.Dump) != 3 {
		t.Fatal("dump selections lost")
	}
	if machine.Dump[1].Low != 0x5d || machine.Dump[2].Bit != 0 {
		t.Error("dump selections parsed wrong")
	}
}

// A reserved fuse keeps the machine from starting.
func TestBuildReservedFuse(t *testing.T) {
	err := loadConfig(t, "mcu ATmega328P\nfuse 0 0x01\n")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = Build(); err == nil {
		t.Error("reserved fuse accepted")
	}
}

// A configuration without an MCU or firmware is incomplete.
func TestBuildIncomplete(t *testing.T) {
	Clear()
	if _, err := Build(); err == nil {
		t.Error("empty configuration accepted")
	}

	if err := loadConfig(t, ""); err != nil {
		t.Fatal(err)
	}
	// Firmware alone, no device.
	if _, err := Build(); err == nil {
		t.Error("configuration without mcu accepted")
	}
}
