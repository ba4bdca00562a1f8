/*
   AVR8 - ATmega328P device model.

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

package models

import (
	"fmt"

	"github.com/rcornwell/AVR8/emu/avr"
	"github.com/rcornwell/AVR8/emu/device"
	"github.com/rcornwell/AVR8/emu/timer"
)

// Data memory addresses of the ATmega328P registers used by the model.
const (
	m328pDDRB   = 0x24
	m328pPIND   = 0x29
	m328pPORTD  = 0x2b
	m328pTIFR0  = 0x35
	m328pTCCR0A = 0x44
	m328pTCCR0B = 0x45
	m328pTCNT0  = 0x46
	m328pOCR0A  = 0x47
	m328pOCR0B  = 0x48
	m328pSPMCSR = 0x57
	m328pSPL    = 0x5d
	m328pSPH    = 0x5e
	m328pSREG   = 0x5f
	m328pTIMSK0 = 0x6e
)

// Timer/Counter0 interrupt vector indices.
const (
	m328pVectCompA = 14
	m328pVectCompB = 15
	m328pVectOvf   = 16
)

// Fuse byte indices.
const (
	fuseLow = iota
	fuseHigh
	fuseExt
)

type m328p struct {
	tc0 *timer.Timer
}

func init() {
	device.Register("ATmega328P", func() device.Model {
		return &m328p{}
	})
}

func (m *m328p) Name() string {
	return "ATmega328P"
}

// Create allocates an MCU with the ATmega328P memory map: 32K of flash,
// 32 registers, 224 I/O registers and 2K of SRAM, 16-bit program
// counter, no extended pointer registers.
func (m *m328p) Create() *avr.MCU {
	mcu := &avr.MCU{
		Name:      "ATmega328P",
		Signature: [3]uint8{0x1e, 0x95, 0x0f},

		FlashStart: 0x0000,
		FlashEnd:   0x7fff,
		RAMStart:   0x0100,
		RAMEnd:     0x08ff,
		E2Start:    0x0000,
		E2End:      0x03ff,
		E2PageSize: 4,
		SPMPage:    128,

		Freq:   1000000,
		PCBits: 16,

		Sreg:   m328pSREG,
		Sph:    m328pSPH,
		Spl:    m328pSPL,
		Spmcsr: m328pSPMCSR,
		Eind:   avr.NoReg,
		Rampz:  avr.NoReg,
		Rampy:  avr.NoReg,
		Rampx:  avr.NoReg,
		Rampd:  avr.NoReg,

		SfrOff: 0x20,
		Regs:   32,
		IORegs: 224,

		PM:  make([]uint8, 0x8000),
		PMP: make([]uint8, 0x8000),
		MPM: make([]uint8, 0x8000),
		DM:  make([]uint8, 0x900),

		State: avr.Stopped,
	}
	mcu.Fuse = [6]uint8{0x62, 0xd9, 0xff, 0, 0, 0}
	mcu.Intr.IVT = 0x0000
	mcu.Intr.Vector = 2
	mcu.Intr.ResetPC = 0x0000

	m.tc0 = timer.New(timer.Config{
		TCCR0A: m328pTCCR0A,
		TCCR0B: m328pTCCR0B,
		TCNT0:  m328pTCNT0,
		OCR0A:  m328pOCR0A,
		OCR0B:  m328pOCR0B,
		TIFR0:  m328pTIFR0,
		TIMSK0: m328pTIMSK0,

		PORTD: m328pPORTD,
		PIND:  m328pPIND,
		DDRB:  m328pDDRB,

		T0Pin:   4,
		OC0APin: 6,
		OC0BPin: 5,

		VectOvf:   m328pVectOvf,
		VectCompA: m328pVectCompA,
		VectCompB: m328pVectCompB,
	})
	return mcu
}

// SetFuse applies one fuse byte. The low fuse selects the clock source
// and the maximum frequency, the high fuse sizes the bootloader section
// and picks the reset vector. Reserved combinations refuse to start.
func (m *m328p) SetFuse(mcu *avr.MCU, fuse uint32, value uint8) error {
	if fuse > fuseExt {
		return fmt.Errorf("fuse %d is not supported on %s", fuse, mcu.Name)
	}
	mcu.Fuse[fuse] = value

	switch fuse {
	case fuseLow:
		cksel := value & 0x0f
		switch {
		case cksel == 0:
			mcu.ClkSource = avr.ClkExternal
		case cksel == 1:
			return fmt.Errorf("CKSEL3:0 = %d is reserved on %s", cksel, mcu.Name)
		case cksel == 2:
			mcu.ClkSource = avr.ClkIntCalRC
			mcu.Freq = 8000000
		case cksel == 3:
			mcu.ClkSource = avr.ClkInt128kRC
			mcu.Freq = 128000
		case cksel == 4:
			mcu.ClkSource = avr.ClkExtLowFreqCrystal
			mcu.Freq = 1000000
		case cksel == 5:
			mcu.ClkSource = avr.ClkExtLowFreqCrystal
			mcu.Freq = 32768
		case cksel == 6 || cksel == 7:
			mcu.ClkSource = avr.ClkFullSwingCrystal
			mcu.Freq = 20000000
		default:
			mcu.ClkSource = avr.ClkLowPowerCrystal
			// CKSEL0 only adjusts startup time; CKSEL3:1
			// selects the frequency range.
			switch cksel & 0x0e {
			case 8:
				mcu.Freq = 900000
			case 10:
				mcu.Freq = 3000000
			case 12:
				mcu.Freq = 8000000
			case 14:
				mcu.Freq = 16000000
			}
		}

	case fuseHigh:
		switch (value >> 1) & 0x3 {
		case 3:
			mcu.Boot = avr.Bootloader{Start: 0x7e00, End: 0x7fff, Size: 512}
		case 2:
			mcu.Boot = avr.Bootloader{Start: 0x7c00, End: 0x7fff, Size: 1024}
		case 1:
			mcu.Boot = avr.Bootloader{Start: 0x7800, End: 0x7fff, Size: 2048}
		case 0:
			mcu.Boot = avr.Bootloader{Start: 0x7000, End: 0x7fff, Size: 4096}
		}
		// BOOTRST selects the reset vector.
		if value&1 != 0 {
			mcu.Intr.ResetPC = 0x0000
		} else {
			mcu.Intr.ResetPC = mcu.Boot.Start
		}
		mcu.PC = mcu.Intr.ResetPC

	case fuseExt:
		// Brown-out detection only, nothing the simulation models.
	}
	return nil
}

func (m *m328p) SetLock(mcu *avr.MCU, value uint8) error {
	mcu.LockBits = value
	return nil
}

func (m *m328p) TickTimers(mcu *avr.MCU) {
	m.tc0.Tick(mcu)
}

func (m *m328p) ProvideIRQs(mcu *avr.MCU) {
	m.tc0.ProvideIRQs(mcu)
}
