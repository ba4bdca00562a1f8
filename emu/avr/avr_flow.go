/*
   AVR8 - Control flow instruction executors.

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

// NOP - No operation.
func (mcu *MCU) opNop(_ uint16) {
	mcu.PC += 2
}

// Sign extended 12-bit offset of RJMP and RCALL.
func rel12(inst uint16) int {
	c := int(inst & 0x0fff)
	if c >= 2048 {
		c -= 4096
	}
	return c
}

// Sign extended 7-bit offset of the conditional branches.
func rel7(inst uint16) int {
	c := int((inst >> 3) & 0x7f)
	if c > 63 {
		c -= 128
	}
	return c
}

// RJMP - Relative jump. Two cycles.
func (mcu *MCU) opRjmp(inst uint16) {
	if mcu.stall(true, 1) != stallDone {
		return
	}
	mcu.PC = uint32(int64(mcu.PC) + int64(rel12(inst)+1)*2)
}

// RCALL - Relative call to subroutine.
func (mcu *MCU) opRcall(inst uint16) {
	var extra uint8
	switch {
	case mcu.ReducedCore:
		extra = 3
	case mcu.XMega:
		extra = 1
	default:
		extra = 2
	}
	if !mcu.ReducedCore && mcu.PCBits > 16 {
		extra++
	}
	if mcu.stall(true, extra) != stallDone {
		return
	}
	mcu.pushPC(mcu.PC + 2)
	mcu.PC = uint32(int64(mcu.PC) + int64(rel12(inst)+1)*2)
}

// JMP - Absolute jump, 32-bit instruction, word addressed target. Three
// cycles.
func (mcu *MCU) opJmp(inst uint16) {
	if mcu.stall(true, 2) != stallDone {
		return
	}
	c := uint32(mcu.word(2)) | (uint32(((inst>>3)&0x3e)|(inst&0x01)) << 16)
	mcu.PC = c << 1
}

// CALL - Long call, 32-bit instruction, word addressed target.
func (mcu *MCU) opCall(inst uint16) {
	var extra uint8
	if mcu.XMega {
		extra = 2
	} else {
		extra = 3
	}
	if mcu.PCBits > 16 {
		extra++
	}
	if mcu.stall(true, extra) != stallDone {
		return
	}
	c := uint32(mcu.word(2)) | (uint32(((inst>>3)&0x3e)|(inst&0x01)) << 16)
	mcu.pushPC(mcu.PC + 4)
	mcu.PC = c << 1
}

// IJMP - Indirect jump to Z. Two cycles.
func (mcu *MCU) opIjmp(_ uint16) {
	if mcu.stall(true, 1) != stallDone {
		return
	}
	mcu.PC = uint32(mcu.regZ())
}

// ICALL - Indirect call to Z.
func (mcu *MCU) opIcall(_ uint16) {
	var extra uint8
	if mcu.XMega {
		extra = 1
	} else {
		extra = 2
	}
	if mcu.PCBits > 16 {
		extra++
	}
	if mcu.stall(true, extra) != stallDone {
		return
	}
	mcu.pushPC(mcu.PC + 2)
	mcu.PC = uint32(mcu.regZ())
}

// EIJMP - Extended indirect jump through EIND:Z. Fails the simulation on
// devices without EIND.
func (mcu *MCU) opEijmp(_ uint16) {
	if mcu.Eind == NoReg {
		slog.Error("EIJMP is not supported on devices without EIND")
		mcu.State = TestFail
		return
	}
	if mcu.stall(true, 1) != stallDone {
		return
	}
	mcu.PC = (uint32(mcu.DM[mcu.Eind]) << 16) | uint32(mcu.regZ())
}

// EICALL - Extended indirect call through EIND:Z. Needs EIND and a
// 22-bit program counter.
func (mcu *MCU) opEicall(_ uint16) {
	if mcu.Eind == NoReg {
		slog.Error("EICALL is not supported on devices without EIND")
		mcu.State = TestFail
		return
	}
	if mcu.PCBits < 22 {
		slog.Error("EICALL is implemented on devices with a 22-bit PC only")
		mcu.State = TestFail
		return
	}
	var extra uint8
	if mcu.XMega {
		extra = 2
	} else {
		extra = 3
	}
	if mcu.stall(true, extra) != stallDone {
		return
	}
	mcu.pushPC(mcu.PC + 2)
	mcu.PC = (uint32(mcu.DM[mcu.Eind]) << 16) | uint32(mcu.regZ())
}

// RET - Return from subroutine.
func (mcu *MCU) opRet(_ uint16) {
	var extra uint8 = 3
	if mcu.PCBits > 16 {
		extra = 4
	}
	if mcu.stall(true, extra) != stallDone {
		return
	}
	mcu.PC = mcu.popPC()
}

// RETI - Return from interrupt. Sets I on the classic core and grants
// one main program instruction before interrupts are sampled again.
func (mcu *MCU) opReti(_ uint16) {
	var extra uint8 = 3
	if mcu.PCBits > 16 {
		extra = 4
	}
	if mcu.stall(true, extra) != stallDone {
		return
	}
	mcu.PC = mcu.popPC()
	if !mcu.XMega {
		mcu.UpdateFlag(FlagI, 1)
	}
	mcu.Intr.ExecMain = true
}

// BREAK - Stop the MCU. The following fetch is redirected to the
// breakpoint shadow memory so that a resume executes the original
// instruction.
func (mcu *MCU) opBreak(_ uint16) {
	mcu.State = Stopped
	mcu.ReadFromMPM = true
}

// Skip distance and extra cycle count when a skip condition holds.
func (mcu *MCU) skipNext(cond bool, xtra uint8) {
	is32 := Is32(mcu.word(2))
	if cond {
		extra := uint8(1)
		if is32 {
			extra = 2
		}
		if mcu.stall(true, extra+xtra) != stallDone {
			return
		}
		if is32 {
			mcu.PC += 6
		} else {
			mcu.PC += 4
		}
		return
	}
	if xtra != 0 {
		if mcu.stall(true, xtra) != stallDone {
			return
		}
	}
	mcu.PC += 2
}

// CPSE - Compare and skip if equal.
func (mcu *MCU) opCpse(inst uint16) {
	mcu.skipNext(mcu.DM[dstReg(inst)] == mcu.DM[srcReg(inst)], 0)
}

// SBRC - Skip if register bit cleared.
func (mcu *MCU) opSbrc(inst uint16) {
	bit := inst & 0x07
	mcu.skipNext((mcu.DM[dstReg(inst)]>>bit)&1 == 0, 0)
}

// SBRS - Skip if register bit set.
func (mcu *MCU) opSbrs(inst uint16) {
	bit := inst & 0x07
	mcu.skipNext((mcu.DM[dstReg(inst)]>>bit)&1 != 0, 0)
}

// SBIC - Skip if I/O bit cleared. XMEGA pays one extra cycle.
func (mcu *MCU) opSbic(inst uint16) {
	io := uint32((inst&0x00f8)>>3) + mcu.SfrOff
	bit := inst & 0x07
	var xtra uint8
	if mcu.XMega {
		xtra = 1
	}
	mcu.skipNext((mcu.DM[io]>>bit)&1 == 0, xtra)
}

// SBIS - Skip if I/O bit set. XMEGA pays one extra cycle.
func (mcu *MCU) opSbis(inst uint16) {
	io := uint32((inst&0x00f8)>>3) + mcu.SfrOff
	bit := inst & 0x07
	var xtra uint8
	if mcu.XMega {
		xtra = 1
	}
	mcu.skipNext((mcu.DM[io]>>bit)&1 != 0, xtra)
}

// Conditional branch on one SREG bit. Two cycles taken, one not taken.
func (mcu *MCU) branch(inst uint16, cond bool) {
	if mcu.stall(cond, 1) != stallDone {
		return
	}
	if cond {
		mcu.PC = uint32(int64(mcu.PC) + int64(rel7(inst)+1)*2)
	} else {
		mcu.PC += 2
	}
}

// BRBS - Branch if SREG bit set. Covers BREQ, BRCS/BRLO, BRMI, BRVS,
// BRLT, BRHS, BRTS and BRIE.
func (mcu *MCU) opBrbs(inst uint16) {
	mcu.branch(inst, mcu.ReadFlag(uint8(inst&0x07)) != 0)
}

// BRBC - Branch if SREG bit cleared. Covers BRNE, BRCC/BRSH, BRPL, BRVC,
// BRGE, BRHC, BRTC and BRID.
func (mcu *MCU) opBrbc(inst uint16) {
	mcu.branch(inst, mcu.ReadFlag(uint8(inst&0x07)) == 0)
}
