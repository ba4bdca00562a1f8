/*
 * AVR8 timer test cases.
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

package timer

import (
	"testing"

	"github.com/rcornwell/AVR8/emu/avr"
)

const (
	tDDRB   = 0x24
	tPIND   = 0x29
	tPORTD  = 0x2b
	tTIFR0  = 0x35
	tTCCR0A = 0x44
	tTCCR0B = 0x45
	tTCNT0  = 0x46
	tOCR0A  = 0x47
	tOCR0B  = 0x48
	tTIMSK0 = 0x6e
)

func testConfig() Config {
	return Config{
		TCCR0A: tTCCR0A,
		TCCR0B: tTCCR0B,
		TCNT0:  tTCNT0,
		OCR0A:  tOCR0A,
		OCR0B:  tOCR0B,
		TIFR0:  tTIFR0,
		TIMSK0: tTIMSK0,

		PORTD: tPORTD,
		PIND:  tPIND,
		DDRB:  tDDRB,

		T0Pin:   4,
		OC0APin: 6,
		OC0BPin: 5,

		VectOvf:   16,
		VectCompA: 14,
		VectCompB: 15,
	}
}

func newTimerMCU() *avr.MCU {
	return &avr.MCU{
		Name:   "test",
		Freq:   1000000,
		PCBits: 16,
		Sreg:   0x5f,
		Sph:    0x5e,
		Spl:    0x5d,
		SfrOff: 0x20,
		DM:     make([]uint8, 0x900),
		PM:     make([]uint8, 0x8000),
		MPM:    make([]uint8, 0x8000),
		PMP:    make([]uint8, 0x8000),
	}
}

// A stopped clock never counts.
func TestTimerStopped(t *testing.T) {
	mcu := newTimerMCU()
	tc := New(testConfig())
	for i := 0; i < 100; i++ {
		tc.Tick(mcu)
	}
	if mcu.DM[tTCNT0] != 0 {
		t.Error("stopped timer counted")
	}
}

// No prescaling counts every cycle; 0xff wraps with an overflow flag.
func TestTimerOverflow(t *testing.T) {
	mcu := newTimerMCU()
	mcu.DM[tTCCR0B] = 0x01
	mcu.DM[tTCNT0] = 0xff
	tc := New(testConfig())

	tc.Tick(mcu)

	if mcu.DM[tTCNT0] != 0x00 {
		t.Errorf("TCNT0 got %02x expected 00", mcu.DM[tTCNT0])
	}
	if mcu.DM[tTIFR0]&(1<<TOV0) == 0 {
		t.Error("overflow did not set TOV0")
	}
}

// The /8 prescaler counts once every eight cycles.
func TestTimerPrescale8(t *testing.T) {
	mcu := newTimerMCU()
	mcu.DM[tTCCR0B] = 0x02
	tc := New(testConfig())

	for i := 0; i < 16; i++ {
		tc.Tick(mcu)
	}
	if mcu.DM[tTCNT0] != 2 {
		t.Errorf("TCNT0 got %d expected 2 after 16 cycles at /8", mcu.DM[tTCNT0])
	}
}

// Compare match A raises OCF0A and drives the OC0A pin when the
// direction bit allows it.
func TestTimerCompareMatch(t *testing.T) {
	mcu := newTimerMCU()
	mcu.DM[tTCCR0B] = 0x01
	mcu.DM[tOCR0A] = 0x03
	mcu.DM[tTCCR0A] = 0x40 // COM0A = toggle
	mcu.DM[tDDRB] = 1 << 6
	tc := New(testConfig())

	for i := 0; i < 4; i++ {
		tc.Tick(mcu)
	}
	if mcu.DM[tTIFR0]&(1<<OCF0A) == 0 {
		t.Error("compare match did not set OCF0A")
	}
	if mcu.DM[tPORTD]&(1<<6) == 0 {
		t.Error("compare match did not toggle OC0A")
	}
}

// Without the direction bit the OC pin is never driven.
func TestTimerComparePinGated(t *testing.T) {
	mcu := newTimerMCU()
	mcu.DM[tTCCR0B] = 0x01
	mcu.DM[tOCR0A] = 0x03
	mcu.DM[tTCCR0A] = 0x40
	tc := New(testConfig())

	for i := 0; i < 4; i++ {
		tc.Tick(mcu)
	}
	if mcu.DM[tPORTD] != 0 {
		t.Error("OC0A driven with DDR bit clear")
	}
}

// CTC clears the counter at the compare value.
func TestTimerCTC(t *testing.T) {
	mcu := newTimerMCU()
	mcu.DM[tTCCR0B] = 0x01
	mcu.DM[tTCCR0A] = 0x02 // WGM = CTC
	mcu.DM[tOCR0A] = 0x02
	tc := New(testConfig())

	for i := 0; i < 3; i++ {
		tc.Tick(mcu)
	}
	if mcu.DM[tTCNT0] != 0 {
		t.Errorf("CTC TCNT0 got %d expected 0", mcu.DM[tTCNT0])
	}
	if mcu.DM[tTIFR0]&(1<<OCF0A) == 0 {
		t.Error("CTC did not set OCF0A")
	}
}

// External clock counts falling edges of T0.
func TestTimerExternalFalling(t *testing.T) {
	mcu := newTimerMCU()
	mcu.DM[tTCCR0B] = 0x06
	mcu.DM[tPIND] = 1 << 4
	tc := New(testConfig())

	tc.Tick(mcu) // capture high level
	mcu.DM[tPIND] = 0
	tc.Tick(mcu) // falling edge
	tc.Tick(mcu) // no edge

	if mcu.DM[tTCNT0] != 1 {
		t.Errorf("external clock counted %d expected 1", mcu.DM[tTCNT0])
	}
}

// External clock counts rising edges of T0.
func TestTimerExternalRising(t *testing.T) {
	mcu := newTimerMCU()
	mcu.DM[tTCCR0B] = 0x07
	tc := New(testConfig())

	tc.Tick(mcu)
	mcu.DM[tPIND] = 1 << 4
	tc.Tick(mcu) // rising edge
	tc.Tick(mcu)

	if mcu.DM[tTCNT0] != 1 {
		t.Errorf("external clock counted %d expected 1", mcu.DM[tTCNT0])
	}
}

// Starting the timer above OCR0A records a missed compare match which
// fires when the counter wraps around.
func TestTimerMissedCompare(t *testing.T) {
	mcu := newTimerMCU()
	mcu.DM[tTCCR0B] = 0x01
	mcu.DM[tTCNT0] = 0x80
	mcu.DM[tOCR0A] = 0x10
	tc := New(testConfig())

	// Count up to the wrap; no compare match on the way.
	for i := 0; i < 0x7f; i++ {
		tc.Tick(mcu)
		if mcu.DM[tTIFR0]&(1<<OCF0A) != 0 {
			t.Fatal("missed compare fired before the wrap")
		}
	}
	tc.Tick(mcu) // 0xff -> 0x00
	if mcu.DM[tTIFR0]&(1<<OCF0A) == 0 {
		t.Error("missed compare did not fire on wrap around")
	}
	if mcu.DM[tTIFR0]&(1<<TOV0) == 0 {
		t.Error("wrap around did not set TOV0")
	}
}

// Fast PWM reloads OCR0A only at the bottom of the period.
func TestTimerFastPWMReload(t *testing.T) {
	mcu := newTimerMCU()
	mcu.DM[tTCCR0B] = 0x01
	mcu.DM[tTCCR0A] = 0x03 // WGM = fast PWM
	mcu.DM[tOCR0A] = 0x05
	tc := New(testConfig())

	tc.Tick(mcu) // counter 0 -> 1, buffers loaded with 5
	mcu.DM[tOCR0A] = 0x02

	// The new value must not match during this period.
	for i := 0; i < 4; i++ {
		tc.Tick(mcu)
	}
	if mcu.DM[tTIFR0]&(1<<OCF0A) != 0 {
		t.Error("fast PWM used an unbuffered OCR0A")
	}
	// The old value still matches.
	tc.Tick(mcu) // counter == 5
	if mcu.DM[tTIFR0]&(1<<OCF0A) == 0 {
		t.Error("fast PWM missed the buffered compare value")
	}
}

// Enabled interrupt flags move onto the request lines and clear.
func TestTimerProvideIRQs(t *testing.T) {
	mcu := newTimerMCU()
	mcu.DM[tTIFR0] = (1 << TOV0) | (1 << OCF0B)
	mcu.DM[tTIMSK0] = 1 << TOV0
	tc := New(testConfig())

	tc.ProvideIRQs(mcu)

	if mcu.Intr.Irq[16] != 1 {
		t.Error("TOV0 request not raised")
	}
	if mcu.DM[tTIFR0]&(1<<TOV0) != 0 {
		t.Error("TOV0 flag not cleared")
	}
	// OCF0B is not enabled and must stay latched in TIFR0.
	if mcu.Intr.Irq[15] != 0 {
		t.Error("disabled OCF0B raised a request")
	}
	if mcu.DM[tTIFR0]&(1<<OCF0B) == 0 {
		t.Error("disabled OCF0B flag cleared")
	}
}
