/*
   AVR8 - Arithmetic and logic instruction executors.

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

// Destination register of the five bit register forms.
func dstReg(inst uint16) uint16 {
	return (inst >> 4) & 0x1f
}

// Source register of the five bit register forms.
func srcReg(inst uint16) uint16 {
	return ((inst >> 5) & 0x10) | (inst & 0x0f)
}

// Destination register of the immediate forms, R16..R31.
func dstRegImm(inst uint16) uint16 {
	return ((inst >> 4) & 0x0f) + 16
}

// Immediate constant of the immediate forms.
func imm8(inst uint16) int {
	return int(((inst >> 4) & 0xf0) | (inst & 0x0f))
}

// Set S out of the freshly written N and V.
func (mcu *MCU) updateSign() {
	mcu.UpdateFlag(FlagS, int(mcu.ReadFlag(FlagN)^mcu.ReadFlag(FlagV)))
}

// Flags common to the add family: rd, rr operands and the result r.
func (mcu *MCU) addFlags(rd, rr, r int) {
	buf := (rd & rr) | (rr & ^r) | (^r & rd)
	mcu.UpdateFlag(FlagC, (buf>>7)&1)
	mcu.UpdateFlag(FlagZ, b2i(r&0xff == 0))
	mcu.UpdateFlag(FlagN, (r>>7)&1)
	mcu.UpdateFlag(FlagV, (((rd&rr&^r)|(^rd & ^rr&r))>>7)&1)
	mcu.updateSign()
	mcu.UpdateFlag(FlagH, (buf>>3)&1)
}

// Flags common to the subtract and compare family. The zero flag is
// handled by the callers: plain subtracts and compares set it from the
// result, the with-carry forms only ever clear it so that chained
// 16 and 32-bit compares work.
func (mcu *MCU) subFlags(rd, rr, r int) {
	buf := (^rd & rr) | (rr & r) | (r & ^rd)
	mcu.UpdateFlag(FlagC, (buf>>7)&1)
	mcu.UpdateFlag(FlagH, (buf>>3)&1)
	mcu.UpdateFlag(FlagN, (r>>7)&1)
	mcu.UpdateFlag(FlagV, (((rd & ^rr & ^r)|(^rd&rr&r))>>7)&1)
	mcu.updateSign()
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ADD - Add without carry. LSL is ADD Rd,Rd.
func (mcu *MCU) opAdd(inst uint16) {
	rda := dstReg(inst)
	rra := srcReg(inst)
	rd := int(mcu.DM[rda])
	rr := int(mcu.DM[rra])
	r := (rd + rr) & 0xff
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.addFlags(rd, rr, r)
}

// ADC - Add with carry. ROL is ADC Rd,Rd.
func (mcu *MCU) opAdc(inst uint16) {
	rda := dstReg(inst)
	rra := srcReg(inst)
	rd := int(mcu.DM[rda])
	rr := int(mcu.DM[rra])
	r := (rd + rr + int(mcu.ReadFlag(FlagC))) & 0xff
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.addFlags(rd, rr, r)
}

// SUB - Subtract without carry.
func (mcu *MCU) opSub(inst uint16) {
	rda := dstReg(inst)
	rra := srcReg(inst)
	rd := int(mcu.DM[rda])
	rr := int(mcu.DM[rra])
	r := (rd - rr) & 0xff
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.subFlags(rd, rr, r)
	mcu.UpdateFlag(FlagZ, b2i(r == 0))
}

// SUBI - Subtract immediate.
func (mcu *MCU) opSubi(inst uint16) {
	rda := dstRegImm(inst)
	c := imm8(inst)
	rd := int(mcu.DM[rda])
	r := (rd - c) & 0xff
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.subFlags(rd, c, r)
	mcu.UpdateFlag(FlagZ, b2i(r == 0))
}

// SBC - Subtract with carry. Z is only ever cleared.
func (mcu *MCU) opSbc(inst uint16) {
	rda := dstReg(inst)
	rra := srcReg(inst)
	rd := int(mcu.DM[rda])
	rr := int(mcu.DM[rra])
	r := (rd - rr - int(mcu.ReadFlag(FlagC))) & 0xff
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.subFlags(rd, rr, r)
	if r != 0 {
		mcu.UpdateFlag(FlagZ, 0)
	}
}

// SBCI - Subtract immediate with carry. Z is only ever cleared.
func (mcu *MCU) opSbci(inst uint16) {
	rda := dstRegImm(inst)
	c := imm8(inst)
	rd := int(mcu.DM[rda])
	r := (rd - c - int(mcu.ReadFlag(FlagC))) & 0xff
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.subFlags(rd, c, r)
	if r != 0 {
		mcu.UpdateFlag(FlagZ, 0)
	}
}

// CP - Compare. Flags as SUB, registers untouched.
func (mcu *MCU) opCp(inst uint16) {
	rd := int(mcu.DM[dstReg(inst)])
	rr := int(mcu.DM[srcReg(inst)])
	r := (rd - rr) & 0xff
	mcu.PC += 2
	mcu.subFlags(rd, rr, r)
	mcu.UpdateFlag(FlagZ, b2i(r == 0))
}

// CPI - Compare with immediate.
func (mcu *MCU) opCpi(inst uint16) {
	rd := int(mcu.DM[dstRegImm(inst)])
	c := imm8(inst)
	r := (rd - c) & 0xff
	mcu.PC += 2
	mcu.subFlags(rd, c, r)
	mcu.UpdateFlag(FlagZ, b2i(r == 0))
}

// CPC - Compare with carry. Z is only ever cleared.
func (mcu *MCU) opCpc(inst uint16) {
	rd := int(mcu.DM[dstReg(inst)])
	rr := int(mcu.DM[srcReg(inst)])
	r := (rd - rr - int(mcu.ReadFlag(FlagC))) & 0xff
	mcu.PC += 2
	mcu.subFlags(rd, rr, r)
	if r != 0 {
		mcu.UpdateFlag(FlagZ, 0)
	}
}

// Flags common to the logic family.
func (mcu *MCU) logicFlags(r int) {
	mcu.UpdateFlag(FlagN, (r>>7)&1)
	mcu.UpdateFlag(FlagV, 0)
	mcu.updateSign()
	mcu.UpdateFlag(FlagZ, b2i(r == 0))
}

// AND - Logical AND.
func (mcu *MCU) opAnd(inst uint16) {
	rda := dstReg(inst)
	r := int(mcu.DM[rda] & mcu.DM[srcReg(inst)])
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.logicFlags(r)
}

// ANDI - Logical AND with immediate. CBR is ANDI with the mask
// complemented by the assembler.
func (mcu *MCU) opAndi(inst uint16) {
	rda := dstRegImm(inst)
	r := int(mcu.DM[rda]) & imm8(inst)
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.logicFlags(r)
}

// OR - Logical OR.
func (mcu *MCU) opOr(inst uint16) {
	rda := dstReg(inst)
	r := int(mcu.DM[rda] | mcu.DM[srcReg(inst)])
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.logicFlags(r)
}

// ORI - Logical OR with immediate. SBR is an alias.
func (mcu *MCU) opOri(inst uint16) {
	rda := dstRegImm(inst)
	r := int(mcu.DM[rda]) | imm8(inst)
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.logicFlags(r)
}

// EOR - Exclusive OR. CLR is EOR Rd,Rd.
func (mcu *MCU) opEor(inst uint16) {
	rda := dstReg(inst)
	r := int(mcu.DM[rda] ^ mcu.DM[srcReg(inst)])
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.logicFlags(r)
}

// COM - One's complement.
func (mcu *MCU) opCom(inst uint16) {
	rda := dstReg(inst)
	r := int(^mcu.DM[rda])
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.UpdateFlag(FlagC, 1)
	mcu.UpdateFlag(FlagZ, b2i(r == 0))
	mcu.UpdateFlag(FlagN, (r>>7)&1)
	mcu.UpdateFlag(FlagV, 0)
	mcu.updateSign()
}

// NEG - Two's complement.
func (mcu *MCU) opNeg(inst uint16) {
	rda := dstReg(inst)
	rd := int(mcu.DM[rda])
	r := (-rd) & 0xff
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.UpdateFlag(FlagC, b2i(r != 0))
	mcu.UpdateFlag(FlagZ, b2i(r == 0))
	mcu.UpdateFlag(FlagN, (r>>7)&1)
	mcu.UpdateFlag(FlagV, b2i(r == 0x80))
	mcu.updateSign()
	mcu.UpdateFlag(FlagH, ((r>>3)&1)|((rd>>3)&1))
}

// INC - Increment. Carry is untouched.
func (mcu *MCU) opInc(inst uint16) {
	rda := dstReg(inst)
	rd := int(mcu.DM[rda])
	r := (rd + 1) & 0xff
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.UpdateFlag(FlagZ, b2i(r == 0))
	mcu.UpdateFlag(FlagN, (r>>7)&1)
	mcu.UpdateFlag(FlagV, b2i(rd == 0x7f))
	mcu.updateSign()
}

// DEC - Decrement. Carry is untouched. The value of Rd before the
// decrement decides V.
func (mcu *MCU) opDec(inst uint16) {
	rda := dstReg(inst)
	rd := int(mcu.DM[rda])
	r := (rd - 1) & 0xff
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.UpdateFlag(FlagZ, b2i(r == 0))
	mcu.UpdateFlag(FlagN, (r>>7)&1)
	mcu.UpdateFlag(FlagV, b2i(rd == 0x80))
	mcu.updateSign()
}

// ASR - Arithmetic shift right. The sign bit is preserved.
func (mcu *MCU) opAsr(inst uint16) {
	rda := dstReg(inst)
	rd := int(mcu.DM[rda])
	msb := (rd >> 7) & 1
	r := (rd >> 1) | (msb << 7)
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.UpdateFlag(FlagC, rd&1)
	mcu.UpdateFlag(FlagZ, b2i(r == 0))
	mcu.UpdateFlag(FlagN, msb)
	mcu.UpdateFlag(FlagV, int(mcu.ReadFlag(FlagN)^mcu.ReadFlag(FlagC)))
	mcu.updateSign()
}

// LSR - Logical shift right.
func (mcu *MCU) opLsr(inst uint16) {
	rda := dstReg(inst)
	rd := int(mcu.DM[rda])
	r := rd >> 1
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.UpdateFlag(FlagC, rd&1)
	mcu.UpdateFlag(FlagZ, b2i(r == 0))
	mcu.UpdateFlag(FlagN, 0)
	mcu.UpdateFlag(FlagV, int(mcu.ReadFlag(FlagN)^mcu.ReadFlag(FlagC)))
	mcu.updateSign()
}

// ROR - Rotate right through carry.
func (mcu *MCU) opRor(inst uint16) {
	rda := dstReg(inst)
	c := int(mcu.ReadFlag(FlagC))
	rd := int(mcu.DM[rda])
	r := (rd >> 1) | (c << 7)
	mcu.DM[rda] = uint8(r)
	mcu.PC += 2
	mcu.UpdateFlag(FlagC, rd&1)
	mcu.UpdateFlag(FlagZ, b2i(r == 0))
	mcu.UpdateFlag(FlagN, (r>>7)&1)
	mcu.UpdateFlag(FlagV, int(mcu.ReadFlag(FlagN)^mcu.ReadFlag(FlagC)))
	mcu.updateSign()
	mcu.UpdateFlag(FlagH, (rd>>3)&1)
}

// SWAP - Swap nibbles.
func (mcu *MCU) opSwap(inst uint16) {
	rda := dstReg(inst)
	rd := mcu.DM[rda]
	mcu.DM[rda] = (rd << 4) | (rd >> 4)
	mcu.PC += 2
}

// Register pairs addressed by ADIW and SBIW.
var wordRegs = [4]uint16{24, 26, 28, 30}

// ADIW - Add immediate to word. Takes two cycles.
func (mcu *MCU) opAdiw(inst uint16) {
	if mcu.stall(true, 1) != stallDone {
		return
	}
	rdl := wordRegs[(inst>>4)&3]
	rdh := rdl + 1
	c := int(((inst >> 2) & 0x30) | (inst & 0x0f))
	rd := (int(mcu.DM[rdh]) << 8) | int(mcu.DM[rdl])
	r := (rd + c) & 0xffff
	mcu.UpdateFlag(FlagC, ((^r&rd)>>15)&1)
	mcu.UpdateFlag(FlagN, (r>>15)&1)
	mcu.UpdateFlag(FlagV, ((r & ^rd)>>15)&1)
	mcu.updateSign()
	mcu.UpdateFlag(FlagZ, b2i(r == 0))
	mcu.DM[rdh] = uint8(r >> 8)
	mcu.DM[rdl] = uint8(r & 0xff)
	mcu.PC += 2
}

// SBIW - Subtract immediate from word. Takes two cycles.
func (mcu *MCU) opSbiw(inst uint16) {
	if mcu.stall(true, 1) != stallDone {
		return
	}
	rdl := wordRegs[(inst>>4)&3]
	rdh := rdl + 1
	c := int(((inst >> 2) & 0x30) | (inst & 0x0f))
	rd := (int(mcu.DM[rdh]) << 8) | int(mcu.DM[rdl])
	r := (rd - c) & 0xffff
	buf := r & ^rd
	mcu.UpdateFlag(FlagC, (buf>>15)&1)
	mcu.UpdateFlag(FlagN, (r>>15)&1)
	mcu.UpdateFlag(FlagV, (buf>>15)&1)
	mcu.updateSign()
	mcu.UpdateFlag(FlagZ, b2i(r == 0))
	mcu.DM[rdh] = uint8(r >> 8)
	mcu.DM[rdl] = uint8(r & 0xff)
	mcu.PC += 2
}

// MUL - Multiply unsigned into R1:R0. Takes two cycles.
func (mcu *MCU) opMul(inst uint16) {
	if mcu.stall(true, 1) != stallDone {
		return
	}
	r := int(mcu.DM[dstReg(inst)]) * int(mcu.DM[srcReg(inst)])
	mcu.DM[0] = uint8(r & 0xff)
	mcu.DM[1] = uint8((r >> 8) & 0xff)
	mcu.PC += 2
	mcu.UpdateFlag(FlagC, (r>>15)&1)
	mcu.UpdateFlag(FlagZ, b2i(r == 0))
}

// MULS - Multiply signed into R1:R0. Takes two cycles.
func (mcu *MCU) opMuls(inst uint16) {
	if mcu.stall(true, 1) != stallDone {
		return
	}
	rda := ((inst >> 4) & 0x0f) + 16
	rra := (inst & 0x0f) + 16
	r := int(int8(mcu.DM[rda])) * int(int8(mcu.DM[rra]))
	mcu.DM[0] = uint8(r & 0xff)
	mcu.DM[1] = uint8((r >> 8) & 0xff)
	mcu.PC += 2
	mcu.UpdateFlag(FlagC, (r>>15)&1)
	mcu.UpdateFlag(FlagZ, b2i(r&0xffff == 0))
}

// MULSU - Multiply signed with unsigned into R1:R0. Takes two cycles.
func (mcu *MCU) opMulsu(inst uint16) {
	if mcu.stall(true, 1) != stallDone {
		return
	}
	rda := ((inst >> 4) & 0x07) + 16
	rra := (inst & 0x07) + 16
	r := int(int8(mcu.DM[rda])) * int(mcu.DM[rra])
	mcu.DM[0] = uint8(r & 0xff)
	mcu.DM[1] = uint8((r >> 8) & 0xff)
	mcu.PC += 2
	mcu.UpdateFlag(FlagC, (r>>15)&1)
	mcu.UpdateFlag(FlagZ, b2i(r&0xffff == 0))
}

// Fractional multiply: the 16-bit product shifted left once, carry out
// of the product's top bit.
func (mcu *MCU) fracMul(r int) {
	res := (r << 1) & 0xffff
	mcu.DM[0] = uint8(res & 0xff)
	mcu.DM[1] = uint8((res >> 8) & 0xff)
	mcu.PC += 2
	mcu.UpdateFlag(FlagC, (r>>15)&1)
	mcu.UpdateFlag(FlagZ, b2i(res == 0))
}

// FMUL - Fractional multiply unsigned. Takes two cycles.
func (mcu *MCU) opFmul(inst uint16) {
	if mcu.stall(true, 1) != stallDone {
		return
	}
	rda := ((inst >> 4) & 0x07) + 16
	rra := (inst & 0x07) + 16
	mcu.fracMul(int(mcu.DM[rda]) * int(mcu.DM[rra]))
}

// FMULS - Fractional multiply signed. Takes two cycles.
func (mcu *MCU) opFmuls(inst uint16) {
	if mcu.stall(true, 1) != stallDone {
		return
	}
	rda := ((inst >> 4) & 0x07) + 16
	rra := (inst & 0x07) + 16
	mcu.fracMul(int(int8(mcu.DM[rda])) * int(int8(mcu.DM[rra])))
}

// FMULSU - Fractional multiply signed with unsigned. Takes two cycles.
func (mcu *MCU) opFmulsu(inst uint16) {
	if mcu.stall(true, 1) != stallDone {
		return
	}
	rda := ((inst >> 4) & 0x07) + 16
	rra := (inst & 0x07) + 16
	mcu.fracMul(int(int8(mcu.DM[rda])) * int(mcu.DM[rra]))
}

// BSET - Set a bit in SREG. Covers SEC, SEZ, SEN, SEV, SES, SEH, SET
// and SEI.
func (mcu *MCU) opBset(inst uint16) {
	bit := (inst >> 4) & 0x07
	mcu.DM[mcu.Sreg] |= uint8(1) << bit
	mcu.PC += 2
}

// BCLR - Clear a bit in SREG. Covers CLC, CLZ, CLN, CLV, CLS, CLH, CLT
// and CLI.
func (mcu *MCU) opBclr(inst uint16) {
	bit := (inst >> 4) & 0x07
	mcu.DM[mcu.Sreg] &^= uint8(1) << bit
	mcu.PC += 2
}

// BST - Store a register bit in T.
func (mcu *MCU) opBst(inst uint16) {
	bit := inst & 0x07
	mcu.UpdateFlag(FlagT, int((mcu.DM[dstReg(inst)]>>bit)&1))
	mcu.PC += 2
}

// BLD - Load a register bit from T.
func (mcu *MCU) opBld(inst uint16) {
	rda := dstReg(inst)
	bit := inst & 0x07
	if mcu.ReadFlag(FlagT) != 0 {
		mcu.DM[rda] |= uint8(1) << bit
	} else {
		mcu.DM[rda] &^= uint8(1) << bit
	}
	mcu.PC += 2
}
