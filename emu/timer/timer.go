/*
   AVR8 - 8-bit Timer/Counter with output compare and waveform
   generation.

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

package timer

import (
	"fmt"
	"log/slog"

	"github.com/rcornwell/AVR8/emu/avr"
)

// Waveform generation modes of the 8-bit timer.
const (
	wgmNormal  = 0
	wgmPCPWM   = 1
	wgmCTC     = 2
	wgmFastPWM = 3
)

// Output compare pin actions, COM0x bits.
const (
	comDisconnect = 0
	comToggle     = 1
	comClear      = 2
	comSet        = 3
)

// Flag bits in TIFR0 and enable bits in TIMSK0.
const (
	TOV0  = 0
	OCF0A = 1
	OCF0B = 2
)

// Control register bits.
const (
	wgm00 = 0
	wgm01 = 1
	wgm02 = 3
)

// Config holds the data memory addresses and interrupt vectors wiring
// one timer instance into a device.
type Config struct {
	TCCR0A uint32 // Control register A.
	TCCR0B uint32 // Control register B.
	TCNT0  uint32 // Counter register.
	OCR0A  uint32 // Output compare A.
	OCR0B  uint32 // Output compare B.
	TIFR0  uint32 // Interrupt flag register.
	TIMSK0 uint32 // Interrupt mask register.

	PORTD uint32 // Port holding T0 and the OC pins.
	PIND  uint32 // Input register of the same port.
	DDRB  uint32 // Data direction register gating the OC drivers.

	T0Pin   uint8 // External clock pin.
	OC0APin uint8 // Output compare A pin.
	OC0BPin uint8 // Output compare B pin.

	VectOvf   int // Overflow vector index.
	VectCompA int // Compare match A vector index.
	VectCompB int // Compare match B vector index.
}

// Timer is one 8-bit Timer/Counter. All accumulators live in the
// instance so that a device owns its peripheral state completely.
type Timer struct {
	cfg Config

	presc uint32 // Selected prescaler divisor.
	ticks uint32 // Clock cycles into the current prescaler period.

	prevPortD uint8 // Port values captured at the previous tick,
	prevPinD  uint8 // used for external clock edge detection.

	ocrABuf uint8 // Double buffered compare values for the
	ocrBBuf uint8 // PWM modes.

	missedA bool // Compare match A was missed; fire it on wrap.
	down    bool // Phase correct PWM is counting down.

	prevWGM uint8 // Last reported unsupported mode.
}

// New creates a timer wired to the given registers.
func New(cfg Config) *Timer {
	return &Timer{cfg: cfg}
}

// Prescaler divisors selected by CS0[2:0]. Zero stops the clock, 6 and
// 7 select the external pin.
var prescTable = [8]uint32{0, 1, 8, 64, 256, 1024, 0, 0}

// Tick advances the timer by one system clock cycle.
func (t *Timer) Tick(mcu *avr.MCU) {
	dm := mcu.DM
	cs := dm[t.cfg.TCCR0B] & 0x7
	wgm := (dm[t.cfg.TCCR0A] & 0x3) | ((dm[t.cfg.TCCR0B] >> 1) & 0x4)

	switch cs {
	case 0: // Clock stopped.
		t.presc = 0
		t.ticks = 0
		t.capturePorts(dm)
		return
	case 6: // External clock, falling edge on T0.
		if t.fell(dm, t.cfg.T0Pin) {
			t.count(mcu, wgm)
		}
		t.presc = 0
		t.ticks = 0
		t.capturePorts(dm)
		return
	case 7: // External clock, rising edge on T0.
		if t.rose(dm, t.cfg.T0Pin) {
			t.count(mcu, wgm)
		}
		t.presc = 0
		t.ticks = 0
		t.capturePorts(dm)
		return
	}

	presc := prescTable[cs]
	if presc != t.presc {
		// The timer was stopped or reconfigured. Starting above
		// the compare value misses the match until the counter
		// wraps.
		if t.presc == 0 && dm[t.cfg.TCNT0] > dm[t.cfg.OCR0A] {
			t.missedA = true
		}
		t.presc = presc
		t.ticks = 0
		t.ocrABuf = dm[t.cfg.OCR0A]
		t.ocrBBuf = dm[t.cfg.OCR0B]
	}

	if t.ticks < t.presc-1 {
		t.ticks++
		t.capturePorts(dm)
		return
	}
	t.ticks = 0
	t.count(mcu, wgm)
	t.capturePorts(dm)
}

func (t *Timer) capturePorts(dm []uint8) {
	t.prevPortD = dm[t.cfg.PORTD]
	t.prevPinD = dm[t.cfg.PIND]
}

func (t *Timer) fell(dm []uint8, pin uint8) bool {
	return ((t.prevPortD>>pin)&1 == 1 && (dm[t.cfg.PORTD]>>pin)&1 == 0) ||
		((t.prevPinD>>pin)&1 == 1 && (dm[t.cfg.PIND]>>pin)&1 == 0)
}

func (t *Timer) rose(dm []uint8, pin uint8) bool {
	return ((t.prevPortD>>pin)&1 == 0 && (dm[t.cfg.PORTD]>>pin)&1 == 1) ||
		((t.prevPinD>>pin)&1 == 0 && (dm[t.cfg.PIND]>>pin)&1 == 1)
}

// count advances TCNT0 once in the selected waveform mode.
func (t *Timer) count(mcu *avr.MCU, wgm uint8) {
	switch wgm {
	case wgmNormal:
		t.countNormal(mcu)
	case wgmCTC:
		t.countCTC(mcu)
	case wgmFastPWM:
		t.countFastPWM(mcu)
	case wgmPCPWM:
		t.countPCPWM(mcu)
	default:
		if wgm != t.prevWGM {
			slog.Warn(fmt.Sprintf("timer: waveform mode %d is not supported", wgm))
			t.prevWGM = wgm
		}
		t.presc = 0
		t.ticks = 0
	}
}

// Compare output modes out of TCCR0A.
func (t *Timer) comA(dm []uint8) uint8 { return (dm[t.cfg.TCCR0A] >> 6) & 0x3 }
func (t *Timer) comB(dm []uint8) uint8 { return (dm[t.cfg.TCCR0A] >> 4) & 0x3 }

// Normal mode: count up, overflow at MAX, compare values are unbuffered.
func (t *Timer) countNormal(mcu *avr.MCU) {
	dm := mcu.DM
	tcnt := dm[t.cfg.TCNT0]
	switch {
	case tcnt == 0xff:
		dm[t.cfg.TCNT0] = 0
		dm[t.cfg.TIFR0] |= 1 << TOV0
		if t.missedA {
			t.missedA = false
			dm[t.cfg.TIFR0] |= 1 << OCF0A
			t.drivePin(mcu, t.comA(dm), t.cfg.OC0APin)
		}
	case tcnt == dm[t.cfg.OCR0A] && !t.missedA:
		dm[t.cfg.TIFR0] |= 1 << OCF0A
		t.drivePin(mcu, t.comA(dm), t.cfg.OC0APin)
		dm[t.cfg.TCNT0]++
	case tcnt == dm[t.cfg.OCR0B]:
		dm[t.cfg.TIFR0] |= 1 << OCF0B
		t.drivePin(mcu, t.comB(dm), t.cfg.OC0BPin)
		dm[t.cfg.TCNT0]++
	default:
		dm[t.cfg.TCNT0]++
	}
}

// CTC: clear the counter on compare match A, which is TOP.
func (t *Timer) countCTC(mcu *avr.MCU) {
	dm := mcu.DM
	tcnt := dm[t.cfg.TCNT0]
	switch {
	case tcnt == dm[t.cfg.OCR0A] && !t.missedA:
		dm[t.cfg.TIFR0] |= 1 << OCF0A
		t.drivePin(mcu, t.comA(dm), t.cfg.OC0APin)
		dm[t.cfg.TCNT0] = 0
	case tcnt == 0xff:
		dm[t.cfg.TCNT0] = 0
		dm[t.cfg.TIFR0] |= 1 << TOV0
		t.missedA = false
	default:
		if tcnt == dm[t.cfg.OCR0B] {
			dm[t.cfg.TIFR0] |= 1 << OCF0B
			t.drivePin(mcu, t.comB(dm), t.cfg.OC0BPin)
		}
		dm[t.cfg.TCNT0]++
	}
}

// Fast PWM: count 0..MAX; TOV at TOP, OCR reload at BOTTOM.
func (t *Timer) countFastPWM(mcu *avr.MCU) {
	dm := mcu.DM
	tcnt := dm[t.cfg.TCNT0]
	if tcnt == 0xff {
		dm[t.cfg.TCNT0] = 0
		dm[t.cfg.TIFR0] |= 1 << TOV0
		// BOTTOM: reload the buffered compare values and set or
		// clear the outputs for the new period.
		t.ocrABuf = dm[t.cfg.OCR0A]
		t.ocrBBuf = dm[t.cfg.OCR0B]
		t.missedA = false
		t.atBottom(mcu, t.comA(dm), t.cfg.OC0APin)
		t.atBottom(mcu, t.comB(dm), t.cfg.OC0BPin)
		return
	}
	if tcnt == t.ocrABuf {
		dm[t.cfg.TIFR0] |= 1 << OCF0A
		t.drivePWM(mcu, t.comA(dm), t.cfg.OC0APin)
	}
	if tcnt == t.ocrBBuf {
		dm[t.cfg.TIFR0] |= 1 << OCF0B
		t.drivePWM(mcu, t.comB(dm), t.cfg.OC0BPin)
	}
	dm[t.cfg.TCNT0]++
}

// Phase correct PWM: count up to TOP then back down; TOV at BOTTOM,
// OCR reload at TOP.
func (t *Timer) countPCPWM(mcu *avr.MCU) {
	dm := mcu.DM
	tcnt := dm[t.cfg.TCNT0]

	if !t.down {
		if tcnt == 0xff {
			// TOP: reload buffers and turn around.
			t.ocrABuf = dm[t.cfg.OCR0A]
			t.ocrBBuf = dm[t.cfg.OCR0B]
			t.down = true
			dm[t.cfg.TCNT0]--
			return
		}
		if tcnt == t.ocrABuf {
			dm[t.cfg.TIFR0] |= 1 << OCF0A
			t.drivePWM(mcu, t.comA(dm), t.cfg.OC0APin)
		}
		if tcnt == t.ocrBBuf {
			dm[t.cfg.TIFR0] |= 1 << OCF0B
			t.drivePWM(mcu, t.comB(dm), t.cfg.OC0BPin)
		}
		dm[t.cfg.TCNT0]++
		return
	}
	if tcnt == 0 {
		dm[t.cfg.TIFR0] |= 1 << TOV0
		t.down = false
		dm[t.cfg.TCNT0]++
		return
	}
	if tcnt == t.ocrABuf {
		dm[t.cfg.TIFR0] |= 1 << OCF0A
		t.atBottom(mcu, t.comA(dm), t.cfg.OC0APin)
	}
	if tcnt == t.ocrBBuf {
		dm[t.cfg.TIFR0] |= 1 << OCF0B
		t.atBottom(mcu, t.comB(dm), t.cfg.OC0BPin)
	}
	dm[t.cfg.TCNT0]--
}

// outputEnabled checks the data direction bit gating the pin driver.
func (t *Timer) outputEnabled(dm []uint8, pin uint8) bool {
	return (dm[t.cfg.DDRB]>>pin)&1 != 0
}

// drivePin applies the non-PWM compare output action to an OC pin.
func (t *Timer) drivePin(mcu *avr.MCU, com uint8, pin uint8) {
	dm := mcu.DM
	if !t.outputEnabled(dm, pin) {
		return
	}
	switch com {
	case comToggle:
		dm[t.cfg.PORTD] ^= 1 << pin
	case comClear:
		dm[t.cfg.PORTD] &^= 1 << pin
	case comSet:
		dm[t.cfg.PORTD] |= 1 << pin
	case comDisconnect:
		// Pin disconnected from the waveform generator.
	}
}

// drivePWM applies the compare match action of the PWM modes: clear on
// match for the non-inverting mode, set for the inverting one.
func (t *Timer) drivePWM(mcu *avr.MCU, com uint8, pin uint8) {
	dm := mcu.DM
	if !t.outputEnabled(dm, pin) {
		return
	}
	switch com {
	case comToggle:
		dm[t.cfg.PORTD] ^= 1 << pin
	case comClear:
		dm[t.cfg.PORTD] &^= 1 << pin
	case comSet:
		dm[t.cfg.PORTD] |= 1 << pin
	}
}

// atBottom applies the period start action of the PWM modes, the
// inverse of the compare match action.
func (t *Timer) atBottom(mcu *avr.MCU, com uint8, pin uint8) {
	dm := mcu.DM
	if !t.outputEnabled(dm, pin) {
		return
	}
	switch com {
	case comClear:
		dm[t.cfg.PORTD] |= 1 << pin
	case comSet:
		dm[t.cfg.PORTD] &^= 1 << pin
	}
}

// ProvideIRQs latches enabled interrupt flags onto the MCU request
// lines. Each flag is cleared as soon as its request is raised; the
// request then stays pending in the MCU until its vector is taken.
func (t *Timer) ProvideIRQs(mcu *avr.MCU) {
	dm := mcu.DM
	flags := dm[t.cfg.TIFR0]
	mask := dm[t.cfg.TIMSK0]

	if flags&(1<<TOV0) != 0 && mask&(1<<TOV0) != 0 {
		dm[t.cfg.TIFR0] &^= 1 << TOV0
		mcu.RaiseIRQ(t.cfg.VectOvf)
	}
	if flags&(1<<OCF0A) != 0 && mask&(1<<OCF0A) != 0 {
		dm[t.cfg.TIFR0] &^= 1 << OCF0A
		mcu.RaiseIRQ(t.cfg.VectCompA)
	}
	if flags&(1<<OCF0B) != 0 && mask&(1<<OCF0B) != 0 {
		dm[t.cfg.TIFR0] &^= 1 << OCF0B
		mcu.RaiseIRQ(t.cfg.VectCompB)
	}
}
