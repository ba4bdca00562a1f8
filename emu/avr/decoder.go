/*
   AVR8 - Instruction decoder.

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

import (
	"fmt"
	"log/slog"
)

// One row of the decode table. The first row whose mask selects the
// opcode value wins, so more specific encodings are declared before the
// wider register forms they carve holes out of.
type instDef struct {
	mask  uint16
	value uint16
	exec  func(*MCU, uint16)
}

// Decode table for the AVR instruction set. Rows are matched in declared
// order. The SREG branch encodings BRBS/BRBC cover every named branch
// mnemonic (BREQ, BRNE, BRCS/BRLO, BRCC/BRSH, BRMI, BRPL, BRVS, BRVC,
// BRLT, BRGE, BRHS, BRHC, BRTS, BRTC, BRIE, BRID); likewise BSET/BCLR
// cover SEC..SEI and CLC..CLI.
var opTable = []instDef{
	{0xffff, 0x0000, (*MCU).opNop},
	{0xff00, 0x0100, (*MCU).opMovw},
	{0xff00, 0x0200, (*MCU).opMuls},
	{0xff88, 0x0300, (*MCU).opMulsu},
	{0xff88, 0x0308, (*MCU).opFmul},
	{0xff88, 0x0380, (*MCU).opFmuls},
	{0xff88, 0x0388, (*MCU).opFmulsu},
	{0xfc00, 0x0400, (*MCU).opCpc},
	{0xfc00, 0x0800, (*MCU).opSbc},
	{0xfc00, 0x0c00, (*MCU).opAdd},
	{0xfc00, 0x1000, (*MCU).opCpse},
	{0xfc00, 0x1400, (*MCU).opCp},
	{0xfc00, 0x1800, (*MCU).opSub},
	{0xfc00, 0x1c00, (*MCU).opAdc},
	{0xfc00, 0x2000, (*MCU).opAnd},
	{0xfc00, 0x2400, (*MCU).opEor},
	{0xfc00, 0x2800, (*MCU).opOr},
	{0xfc00, 0x2c00, (*MCU).opMov},
	{0xf000, 0x3000, (*MCU).opCpi},
	{0xf000, 0x4000, (*MCU).opSbci},
	{0xf000, 0x5000, (*MCU).opSubi},
	{0xf000, 0x6000, (*MCU).opOri},
	{0xf000, 0x7000, (*MCU).opAndi},

	// 16-bit LDS of the reduced core overlaps the upper displacement
	// range of LDD/STD; it is matched first, as the hardware does.
	{0xf800, 0xa000, (*MCU).opLds16},

	// LDD/STD through Y and Z with displacement. The masks span both
	// the 0x8000 and 0xa000 opcode pages; q = 0 gives the plain
	// LD/ST Y and Z forms.
	{0xd208, 0x8000, (*MCU).opLddZ},
	{0xd208, 0x8008, (*MCU).opLddY},
	{0xd208, 0x8200, (*MCU).opStdZ},
	{0xd208, 0x8208, (*MCU).opStdY},

	{0xff00, 0x9600, (*MCU).opAdiw},
	{0xff8f, 0x9488, (*MCU).opBclr},
	{0xff8f, 0x9408, (*MCU).opBset},
	{0xfe0e, 0x940c, (*MCU).opJmp},
	{0xfe0e, 0x940e, (*MCU).opCall},
	{0xfc00, 0x9c00, (*MCU).opMul},

	{0xffff, 0x9409, (*MCU).opIjmp},
	{0xffff, 0x9419, (*MCU).opEijmp},
	{0xffff, 0x9508, (*MCU).opRet},
	{0xffff, 0x9509, (*MCU).opIcall},
	{0xffff, 0x9518, (*MCU).opReti},
	{0xffff, 0x9519, (*MCU).opEicall},
	{0xffff, 0x9598, (*MCU).opBreak},
	{0xffff, 0x95c8, (*MCU).opLpm},
	{0xffff, 0x95d8, (*MCU).opElpm},
	{0xffff, 0x95e8, (*MCU).opSpm},
	{0xffff, 0x95f8, (*MCU).opSpm},

	{0xfe0f, 0x9000, (*MCU).opLds},
	{0xfe0f, 0x9001, (*MCU).opLdZ},
	{0xfe0f, 0x9002, (*MCU).opLdZ},
	{0xfe0f, 0x9004, (*MCU).opLpm},
	{0xfe0f, 0x9005, (*MCU).opLpm},
	{0xfe0f, 0x9006, (*MCU).opElpm},
	{0xfe0f, 0x9007, (*MCU).opElpm},
	{0xfe0f, 0x9009, (*MCU).opLdY},
	{0xfe0f, 0x900a, (*MCU).opLdY},
	{0xfe0f, 0x900c, (*MCU).opLdX},
	{0xfe0f, 0x900d, (*MCU).opLdX},
	{0xfe0f, 0x900e, (*MCU).opLdX},
	{0xfe0f, 0x900f, (*MCU).opPop},
	{0xfe0f, 0x9200, (*MCU).opSts},
	{0xfe0f, 0x9201, (*MCU).opStZ},
	{0xfe0f, 0x9202, (*MCU).opStZ},
	{0xfe0f, 0x9204, (*MCU).opXch},
	{0xfe0f, 0x9205, (*MCU).opLas},
	{0xfe0f, 0x9206, (*MCU).opLac},
	{0xfe0f, 0x9207, (*MCU).opLat},
	{0xfe0f, 0x9209, (*MCU).opStY},
	{0xfe0f, 0x920a, (*MCU).opStY},
	{0xfe0f, 0x920c, (*MCU).opStX},
	{0xfe0f, 0x920d, (*MCU).opStX},
	{0xfe0f, 0x920e, (*MCU).opStX},
	{0xfe0f, 0x920f, (*MCU).opPush},
	{0xfe0f, 0x9400, (*MCU).opCom},
	{0xfe0f, 0x9401, (*MCU).opNeg},
	{0xfe0f, 0x9402, (*MCU).opSwap},
	{0xfe0f, 0x9403, (*MCU).opInc},
	{0xfe0f, 0x9405, (*MCU).opAsr},
	{0xfe0f, 0x9406, (*MCU).opLsr},
	{0xfe0f, 0x9407, (*MCU).opRor},
	{0xfe0f, 0x940a, (*MCU).opDec},

	{0xff00, 0x9700, (*MCU).opSbiw},
	{0xff00, 0x9800, (*MCU).opCbi},
	{0xff00, 0x9900, (*MCU).opSbic},
	{0xff00, 0x9a00, (*MCU).opSbi},
	{0xff00, 0x9b00, (*MCU).opSbis},

	{0xf000, 0xb000, (*MCU).opInOut},
	{0xf000, 0xc000, (*MCU).opRjmp},
	{0xf000, 0xd000, (*MCU).opRcall},
	{0xff0f, 0xef0f, (*MCU).opSer},
	{0xf000, 0xe000, (*MCU).opLdi},

	{0xfe08, 0xf800, (*MCU).opBld},
	{0xfe08, 0xfa00, (*MCU).opBst},
	{0xfe08, 0xfc00, (*MCU).opSbrc},
	{0xfe08, 0xfe00, (*MCU).opSbrs},
	{0xfc00, 0xf000, (*MCU).opBrbs},
	{0xfc00, 0xf400, (*MCU).opBrbc},
}

// fetch returns the opcode word at PC. The fetch comes from the
// breakpoint shadow memory for exactly one instruction after a BREAK.
func (mcu *MCU) fetch() uint16 {
	if mcu.ReadFromMPM {
		mcu.ReadFromMPM = false
		return uint16(mcu.MPM[mcu.PC]) | (uint16(mcu.MPM[mcu.PC+1]) << 8)
	}
	return uint16(mcu.PM[mcu.PC]) | (uint16(mcu.PM[mcu.PC+1]) << 8)
}

// word returns the second word of a 32-bit instruction.
func (mcu *MCU) word(offset uint32) uint16 {
	return uint16(mcu.PM[mcu.PC+offset]) | (uint16(mcu.PM[mcu.PC+offset+1]) << 8)
}

// Cycle executes one clock cycle of the current instruction. A
// single-cycle instruction retires immediately; an instruction in its
// intermediate cycles only counts the gate down and leaves DM, SREG and
// PC untouched. An opcode which matches no table row stops the
// simulation with a diagnostic.
func (mcu *MCU) Cycle() {
	inst := mcu.fetch()
	for i := range opTable {
		if inst&opTable[i].mask == opTable[i].value {
			opTable[i].exec(mcu, inst)
			return
		}
	}
	slog.Error(fmt.Sprintf("unknown instruction %04x at %06x", inst, mcu.PC))
	mcu.State = Stop
}
