/*
   AVR8 - Data movement instruction executors.

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

import "log/slog"

// MOV - Copy register.
func (mcu *MCU) opMov(inst uint16) {
	mcu.DM[dstReg(inst)] = mcu.DM[srcReg(inst)]
	mcu.PC += 2
}

// MOVW - Copy register pair.
func (mcu *MCU) opMovw(inst uint16) {
	regd := ((inst >> 4) & 0x0f) << 1
	regr := (inst & 0x0f) << 1
	mcu.DM[regd+1] = mcu.DM[regr+1]
	mcu.DM[regd] = mcu.DM[regr]
	mcu.PC += 2
}

// LDI - Load immediate into R16..R31. SREG is untouched.
func (mcu *MCU) opLdi(inst uint16) {
	mcu.DM[dstRegImm(inst)] = uint8(imm8(inst))
	mcu.PC += 2
}

// SER - Set all bits in register.
func (mcu *MCU) opSer(inst uint16) {
	mcu.DM[dstRegImm(inst)] = 0xff
	mcu.PC += 2
}

// IN and OUT - Move between a register and an I/O location.
func (mcu *MCU) opInOut(inst uint16) {
	reg := dstReg(inst)
	io := uint32((inst&0x0f)|((inst&0x0600)>>5)) + mcu.SfrOff
	if inst&0x0800 == 0 {
		mcu.DM[reg] = mcu.DM[io]
	} else {
		mcu.DM[io] = mcu.DM[reg]
	}
	mcu.PC += 2
}

// Indirect load through a pointer register pair. mode is the low two
// opcode bits: unchanged, post-increment or pre-decrement.
func (mcu *MCU) loadIndirect(inst uint16, low, high uint16) {
	addr := (uint32(mcu.DM[high]) << 8) | uint32(mcu.DM[low])
	regd := dstReg(inst)

	switch inst & 0x03 {
	case 0x00: // Rd <- (ptr)
		if mcu.XMega && addr >= mcu.RAMStart && addr <= mcu.RAMEnd {
			if mcu.stall(true, 1) != stallDone {
				return
			}
		}
		mcu.DM[regd] = mcu.DM[addr]
	case 0x01: // Rd <- (ptr), ptr++
		if !mcu.XMega || (addr >= mcu.RAMStart && addr <= mcu.RAMEnd) {
			if mcu.stall(true, 1) != stallDone {
				return
			}
		}
		mcu.DM[regd] = mcu.DM[addr]
		addr++
		mcu.DM[low] = uint8(addr & 0xff)
		mcu.DM[high] = uint8((addr >> 8) & 0xff)
	case 0x02: // ptr--, Rd <- (ptr)
		if !mcu.XMega || (addr >= mcu.RAMStart && addr <= mcu.RAMEnd) {
			if mcu.stall(true, 2) != stallDone {
				return
			}
		} else if mcu.stall(true, 1) != stallDone {
			return
		}
		addr--
		mcu.DM[low] = uint8(addr & 0xff)
		mcu.DM[high] = uint8((addr >> 8) & 0xff)
		mcu.DM[regd] = mcu.DM[addr]
	}
	mcu.PC += 2
}

// Indirect store through a pointer register pair.
func (mcu *MCU) storeIndirect(inst uint16, low, high uint16) {
	addr := (uint32(mcu.DM[high]) << 8) | uint32(mcu.DM[low])
	regr := dstReg(inst)

	switch inst & 0x03 {
	case 0x00: // (ptr) <- Rr
		if !mcu.XMega && !mcu.ReducedCore {
			if mcu.stall(true, 1) != stallDone {
				return
			}
		}
		mcu.DM[addr] = mcu.DM[regr]
	case 0x01: // (ptr) <- Rr, ptr++
		if !mcu.XMega && !mcu.ReducedCore {
			if mcu.stall(true, 1) != stallDone {
				return
			}
		}
		mcu.DM[addr] = mcu.DM[regr]
		addr++
		mcu.DM[low] = uint8(addr & 0xff)
		mcu.DM[high] = uint8((addr >> 8) & 0xff)
	case 0x02: // ptr--, (ptr) <- Rr
		if mcu.stall(true, 1) != stallDone {
			return
		}
		addr--
		mcu.DM[low] = uint8(addr & 0xff)
		mcu.DM[high] = uint8((addr >> 8) & 0xff)
		mcu.DM[addr] = mcu.DM[regr]
	}
	mcu.PC += 2
}

// LD through X, Y and Z without displacement.
func (mcu *MCU) opLdX(inst uint16) { mcu.loadIndirect(inst, regXL, regXH) }
func (mcu *MCU) opLdY(inst uint16) { mcu.loadIndirect(inst, regYL, regYH) }
func (mcu *MCU) opLdZ(inst uint16) { mcu.loadIndirect(inst, regZL, regZH) }

// ST through X, Y and Z without displacement.
func (mcu *MCU) opStX(inst uint16) { mcu.storeIndirect(inst, regXL, regXH) }
func (mcu *MCU) opStY(inst uint16) { mcu.storeIndirect(inst, regYL, regYH) }
func (mcu *MCU) opStZ(inst uint16) { mcu.storeIndirect(inst, regZL, regZH) }

// Displacement of the LDD/STD forms.
func disp(inst uint16) uint32 {
	return uint32((inst & 0x07) | ((inst & 0x0c00) >> 7) | ((inst & 0x2000) >> 8))
}

// LDD - Load indirect with displacement. q = 0 is plain LD.
func (mcu *MCU) loadDisp(inst uint16, low, high uint16) {
	addr := (uint32(mcu.DM[high]) << 8) | uint32(mcu.DM[low])
	if !mcu.XMega {
		if mcu.stall(true, 1) != stallDone {
			return
		}
	} else if addr >= mcu.RAMStart && addr <= mcu.RAMEnd {
		if mcu.stall(true, 2) != stallDone {
			return
		}
	}
	mcu.DM[dstReg(inst)] = mcu.DM[addr+disp(inst)]
	mcu.PC += 2
}

// STD - Store indirect with displacement. q = 0 is plain ST.
func (mcu *MCU) storeDisp(inst uint16, low, high uint16) {
	if mcu.stall(true, 1) != stallDone {
		return
	}
	addr := (uint32(mcu.DM[high]) << 8) | uint32(mcu.DM[low])
	mcu.DM[addr+disp(inst)] = mcu.DM[dstReg(inst)]
	mcu.PC += 2
}

func (mcu *MCU) opLddY(inst uint16) { mcu.loadDisp(inst, regYL, regYH) }
func (mcu *MCU) opLddZ(inst uint16) { mcu.loadDisp(inst, regZL, regZH) }
func (mcu *MCU) opStdY(inst uint16) { mcu.storeDisp(inst, regYL, regYH) }
func (mcu *MCU) opStdZ(inst uint16) { mcu.storeDisp(inst, regZL, regZH) }

// LDS - Load direct from data space, 32-bit form.
func (mcu *MCU) opLds(inst uint16) {
	addr := uint32(mcu.word(2))
	if !mcu.XMega {
		if mcu.stall(true, 1) != stallDone {
			return
		}
	} else if addr >= mcu.RAMStart && addr <= mcu.RAMEnd {
		if mcu.stall(true, 2) != stallDone {
			return
		}
	} else if mcu.stall(true, 1) != stallDone {
		return
	}
	mcu.DM[dstReg(inst)] = mcu.DM[addr]
	mcu.PC += 4
}

// LDS - 16-bit form of the reduced core. The address bits are scattered
// and bit 7 inverted.
func (mcu *MCU) opLds16(inst uint16) {
	addr := ((^inst >> 1) & 0x80) | ((inst >> 2) & 0x40) |
		((inst >> 5) & 0x30) | (inst & 0x0f)
	mcu.DM[dstRegImm(inst)] = mcu.DM[addr]
	mcu.PC += 2
}

// STS - Store direct to data space, 32-bit form.
func (mcu *MCU) opSts(inst uint16) {
	if mcu.stall(true, 1) != stallDone {
		return
	}
	addr := uint32(mcu.word(2))
	mcu.DM[addr] = mcu.DM[dstReg(inst)]
	mcu.PC += 4
}

// LPM - Load program memory. Type I into R0, type II into Rd, type III
// into Rd with Z post-incremented. Takes three cycles.
func (mcu *MCU) opLpm(inst uint16) {
	if mcu.stall(true, 2) != stallDone {
		return
	}
	z := mcu.regZ()
	switch {
	case inst == 0x95c8:
		mcu.DM[0] = mcu.PM[z]
	case inst&0xfe0f == 0x9004:
		mcu.DM[dstReg(inst)] = mcu.PM[z]
	case inst&0xfe0f == 0x9005:
		mcu.DM[dstReg(inst)] = mcu.PM[z]
		z++
		mcu.DM[regZH] = uint8(z >> 8)
		mcu.DM[regZL] = uint8(z & 0xff)
	}
	mcu.PC += 2
}

// ELPM - Extended load program memory through RAMPZ:Z. Not every device
// has RAMPZ; executing ELPM there fails the simulation.
func (mcu *MCU) opElpm(inst uint16) {
	if mcu.Rampz == NoReg {
		slog.Error("ELPM is not supported on devices without RAMPZ")
		mcu.State = TestFail
		return
	}
	if mcu.stall(true, 2) != stallDone {
		return
	}
	z := (uint32(mcu.DM[mcu.Rampz]) << 16) | uint32(mcu.regZ())
	switch {
	case inst == 0x95d8:
		mcu.DM[0] = mcu.PM[z]
	case inst&0xfe0f == 0x9006:
		mcu.DM[dstReg(inst)] = mcu.PM[z]
	case inst&0xfe0f == 0x9007:
		mcu.DM[dstReg(inst)] = mcu.PM[z]
		z++
		mcu.DM[mcu.Rampz] = uint8((z >> 16) & 0xff)
		mcu.DM[regZH] = uint8((z >> 8) & 0xff)
		mcu.DM[regZL] = uint8(z & 0xff)
	}
	mcu.PC += 2
}

// SPM - Store program memory. The low SPMCSR bits select page erase,
// buffer fill or page write; the 0x95f8 encoding post-increments Z by
// one word. Requires SPMCSR on the device.
func (mcu *MCU) opSpm(inst uint16) {
	if mcu.Spmcsr == NoReg {
		slog.Error("SPM is not supported on devices without SPMCSR")
		mcu.State = TestFail
		return
	}
	var ez uint32
	if mcu.Rampz != NoReg {
		ez = uint32(mcu.DM[mcu.Rampz]) << 16
	}
	z := ez | uint32(mcu.regZ())

	switch mcu.DM[mcu.Spmcsr] & 0x07 {
	case 0x3: // Erase the page.
		for i := uint32(0); i < mcu.SPMPage; i++ {
			mcu.PM[z+i] = 0xff
		}
	case 0x1: // Fill one word of the page buffer from R1:R0.
		mcu.PMP[z] = mcu.DM[0]
		mcu.PMP[z+1] = mcu.DM[1]
	case 0x5: // Write the buffered page.
		copy(mcu.PM[z:z+mcu.SPMPage], mcu.PMP[z:z+mcu.SPMPage])
	}
	mcu.PC += 2

	if inst == 0x95f8 {
		z += 2
		if mcu.Rampz != NoReg {
			mcu.DM[mcu.Rampz] = uint8((z >> 16) & 0xff)
		}
		mcu.DM[regZH] = uint8((z >> 8) & 0xff)
		mcu.DM[regZL] = uint8(z & 0xff)
	}
}

// PUSH - Push a register. Two cycles except on XMEGA.
func (mcu *MCU) opPush(inst uint16) {
	if !mcu.XMega {
		if mcu.stall(true, 1) != stallDone {
			return
		}
	}
	mcu.StackPush(mcu.DM[dstReg(inst)])
	mcu.PC += 2
}

// POP - Pop a register. Two cycles.
func (mcu *MCU) opPop(inst uint16) {
	if mcu.stall(true, 1) != stallDone {
		return
	}
	mcu.DM[dstReg(inst)] = mcu.StackPop()
	mcu.PC += 2
}

// XCH - Exchange a register with (Z).
func (mcu *MCU) opXch(inst uint16) {
	if mcu.stall(true, 1) != stallDone {
		return
	}
	z := mcu.regZ()
	rda := dstReg(inst)
	v := mcu.DM[z]
	mcu.DM[z] = mcu.DM[rda]
	mcu.DM[rda] = v
	mcu.PC += 2
}

// LAS - Load (Z) and set the memory bits from the register.
func (mcu *MCU) opLas(inst uint16) {
	if mcu.stall(true, 1) != stallDone {
		return
	}
	z := mcu.regZ()
	rda := dstReg(inst)
	rd := mcu.DM[rda]
	mcu.DM[rda] = mcu.DM[z]
	mcu.DM[z] |= rd
	mcu.PC += 2
}

// LAC - Load (Z) and clear the memory bits from the register.
func (mcu *MCU) opLac(inst uint16) {
	if mcu.stall(true, 1) != stallDone {
		return
	}
	z := mcu.regZ()
	rda := dstReg(inst)
	rd := mcu.DM[rda]
	mcu.DM[rda] = mcu.DM[z]
	mcu.DM[z] &^= rd
	mcu.PC += 2
}

// LAT - Load (Z) and toggle the memory bits from the register.
func (mcu *MCU) opLat(inst uint16) {
	if mcu.stall(true, 1) != stallDone {
		return
	}
	z := mcu.regZ()
	rda := dstReg(inst)
	rd := mcu.DM[rda]
	mcu.DM[rda] = mcu.DM[z]
	mcu.DM[z] ^= rd
	mcu.PC += 2
}

// SBI - Set a bit in a low I/O register. Two cycles on the classic core.
func (mcu *MCU) opSbi(inst uint16) {
	if !mcu.XMega && !mcu.ReducedCore {
		if mcu.stall(true, 1) != stallDone {
			return
		}
	}
	io := uint32((inst&0x00f8)>>3) + mcu.SfrOff
	mcu.DM[io] |= uint8(1) << (inst & 0x07)
	mcu.PC += 2
}

// CBI - Clear a bit in a low I/O register. Two cycles on the classic core.
func (mcu *MCU) opCbi(inst uint16) {
	if !mcu.XMega && !mcu.ReducedCore {
		if mcu.stall(true, 1) != stallDone {
			return
		}
	}
	io := uint32((inst&0x00f8)>>3) + mcu.SfrOff
	mcu.DM[io] &^= uint8(1) << (inst & 0x07)
	mcu.PC += 2
}
