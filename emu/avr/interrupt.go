/*
   AVR8 - Interrupt controller.

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

// RaiseIRQ latches one interrupt request. Peripherals call it with their
// vector index after checking the matching enable bit.
func (mcu *MCU) RaiseIRQ(vector int) {
	mcu.Intr.Irq[vector] = 1
}

// HandleInterrupts runs the interrupt controller. It is called once per
// cycle after the current instruction retired. The lowest pending vector
// wins; taking it pushes PC, clears the global enable flag and jumps to
// the vector table entry. One main program instruction is executed after
// RETI before requests are sampled again.
func (mcu *MCU) HandleInterrupts() {
	if mcu.InMC {
		return
	}
	if mcu.Intr.ExecMain {
		mcu.Intr.ExecMain = false
		return
	}
	if mcu.ReadFlag(FlagI) == 0 {
		return
	}
	for vector := range mcu.Intr.Irq {
		if mcu.Intr.Irq[vector] == 0 {
			continue
		}
		mcu.Intr.Irq[vector] = 0
		mcu.pushPC(mcu.PC)
		mcu.UpdateFlag(FlagI, 0)
		mcu.PC = mcu.Intr.IVT + uint32(vector)*mcu.Intr.Vector
		if mcu.Intr.TrapAtISR {
			mcu.State = Stopped
		}
		return
	}
}
