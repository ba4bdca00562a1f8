/*
   AVR8 - MCU state helpers: status register, stack, pointer registers
   and the multi-cycle instruction gate.

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

package avr

// ReadFlag returns a single SREG flag as 0 or 1. SREG is memory mapped;
// the flag helpers operate on the DM byte the Sreg index points at.
func (mcu *MCU) ReadFlag(flag uint8) uint8 {
	return (mcu.DM[mcu.Sreg] >> flag) & 1
}

// UpdateFlag sets one SREG flag when value is nonzero and clears it
// otherwise.
func (mcu *MCU) UpdateFlag(flag uint8, value int) {
	if value != 0 {
		mcu.DM[mcu.Sreg] |= uint8(1) << flag
	} else {
		mcu.DM[mcu.Sreg] &^= uint8(1) << flag
	}
}

// Current stack pointer, SPH:SPL.
func (mcu *MCU) sp() uint16 {
	return (uint16(mcu.DM[mcu.Sph]) << 8) | uint16(mcu.DM[mcu.Spl])
}

func (mcu *MCU) setSP(sp uint16) {
	mcu.DM[mcu.Sph] = uint8(sp >> 8)
	mcu.DM[mcu.Spl] = uint8(sp & 0xff)
}

// StackPush stores one byte at SP and decrements SP.
func (mcu *MCU) StackPush(value uint8) {
	sp := mcu.sp()
	mcu.DM[sp] = value
	mcu.setSP(sp - 1)
}

// StackPop increments SP and returns the byte it points at.
func (mcu *MCU) StackPop() uint8 {
	sp := mcu.sp() + 1
	mcu.setSP(sp)
	return mcu.DM[sp]
}

// Push a return address, low byte first, so the high byte ends up at the
// lower address. 2 or 3 bytes depending on the width of the program counter.
func (mcu *MCU) pushPC(pc uint32) {
	mcu.StackPush(uint8(pc & 0xff))
	mcu.StackPush(uint8((pc >> 8) & 0xff))
	if mcu.PCBits > 16 {
		mcu.StackPush(uint8((pc >> 16) & 0xff))
	}
}

// Pop a return address pushed by pushPC.
func (mcu *MCU) popPC() uint32 {
	var pc uint32
	if mcu.PCBits > 16 {
		pc = uint32(mcu.StackPop()) << 16
	}
	pc |= uint32(mcu.StackPop()) << 8
	pc |= uint32(mcu.StackPop())
	return pc
}

// Pointer register pairs, (high<<8)|low out of the register file.
func (mcu *MCU) regX() uint16 {
	return (uint16(mcu.DM[regXH]) << 8) | uint16(mcu.DM[regXL])
}

func (mcu *MCU) regY() uint16 {
	return (uint16(mcu.DM[regYH]) << 8) | uint16(mcu.DM[regYL])
}

func (mcu *MCU) regZ() uint16 {
	return (uint16(mcu.DM[regZH]) << 8) | uint16(mcu.DM[regZL])
}

// Is32 reports whether an opcode word is the first word of a 32-bit
// instruction. Used to compute skip distances and skip cycle counts.
func Is32(inst uint16) bool {
	i := inst & 0xfc0f
	return i == 0x9200 || // STS
		i == 0x9000 || // LDS
		i == 0x940c || i == 0x940d || // JMP
		i == 0x940e || i == 0x940f // CALL
}

// Phase of a multi-cycle instruction returned by the stall gate.
type stallPhase int

const (
	stallFirst stallPhase = iota // First cycle, no visible effects yet.
	stallWait                    // Intermediate cycle, no visible effects.
	stallDone                    // Last cycle, perform the side effects.
)

// stall is the multi-cycle instruction gate. Executors of instructions
// which occupy more than one clock cycle call it before touching any
// state and return without visible effects unless it reports stallDone.
// extra is the cycle count of the instruction minus one. When cond is
// false the instruction runs in a single cycle.
func (mcu *MCU) stall(cond bool, extra uint8) stallPhase {
	if !mcu.InMC && cond {
		mcu.InMC = true
		mcu.ICLeft = extra
		return stallFirst
	}
	if mcu.InMC && mcu.ICLeft > 0 {
		mcu.ICLeft--
		if mcu.ICLeft > 0 {
			return stallWait
		}
	}
	mcu.InMC = false
	return stallDone
}

// Reset returns the MCU to its power on state: PC at the reset vector,
// stack pointer at the end of SRAM, flags cleared and no interrupt
// pending. Memory contents are preserved.
func (mcu *MCU) Reset() {
	mcu.PC = mcu.Intr.ResetPC
	mcu.setSP(uint16(mcu.RAMEnd))
	mcu.DM[mcu.Sreg] = 0
	mcu.InMC = false
	mcu.ICLeft = 0
	mcu.ReadFromMPM = false
	mcu.Intr.ExecMain = false
	for i := range mcu.Intr.Irq {
		mcu.Intr.Irq[i] = 0
	}
	mcu.State = Running
}

// ReadReg returns the value of a general purpose register.
func (mcu *MCU) ReadReg(reg uint16) uint8 {
	return mcu.DM[reg]
}

// WriteReg sets a general purpose register.
func (mcu *MCU) WriteReg(reg uint16, value uint8) {
	mcu.DM[reg] = value
}

// ReadIO returns an I/O register by its I/O space offset.
func (mcu *MCU) ReadIO(io uint16) uint8 {
	return mcu.DM[uint32(io)+mcu.SfrOff]
}

// WriteIO sets an I/O register by its I/O space offset.
func (mcu *MCU) WriteIO(io uint16, value uint8) {
	mcu.DM[uint32(io)+mcu.SfrOff] = value
}

// RegBit returns one bit of a general purpose register.
func (mcu *MCU) RegBit(reg uint16, bit uint8) uint8 {
	return (mcu.DM[reg] >> bit) & 1
}

// SetRegBit sets or clears one bit of a general purpose register.
func (mcu *MCU) SetRegBit(reg uint16, bit uint8, value uint8) {
	if value != 0 {
		mcu.DM[reg] |= uint8(1) << bit
	} else {
		mcu.DM[reg] &^= uint8(1) << bit
	}
}

// IOBit returns one bit of an I/O register.
func (mcu *MCU) IOBit(io uint16, bit uint8) uint8 {
	return (mcu.DM[uint32(io)+mcu.SfrOff] >> bit) & 1
}

// SetIOBit sets or clears one bit of an I/O register.
func (mcu *MCU) SetIOBit(io uint16, bit uint8, value uint8) {
	if value != 0 {
		mcu.DM[uint32(io)+mcu.SfrOff] |= uint8(1) << bit
	} else {
		mcu.DM[uint32(io)+mcu.SfrOff] &^= uint8(1) << bit
	}
}
