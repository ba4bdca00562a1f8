/*
   AVR8 - Simulated microcontroller definitions.

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

// Execution state of a simulated MCU. Running, Stopped, Sleeping and Step
// are AVR-native states, Stop and TestFail are used by the simulator to
// terminate a run.
type State int

const (
	Running State = iota
	Stopped
	Sleeping
	Step
	Stop     // Terminate simulation and exit.
	TestFail // Terminate simulation because of test failure.
)

// Clock source selected by the fuse bytes.
type ClkSource int

const (
	ClkExternal ClkSource = iota
	ClkLowPowerCrystal
	ClkFullSwingCrystal
	ClkExtLowFreqCrystal
	ClkIntCalRC
	ClkInt128kRC
)

// SREG flag bit positions.
const (
	FlagC uint8 = iota // Carry
	FlagZ              // Zero
	FlagN              // Negative
	FlagV              // Two's complement overflow
	FlagS              // Sign, N xor V
	FlagH              // Half carry
	FlagT              // Transfer bit
	FlagI              // Global interrupt enable
)

// X, Y and Z pointer register addresses in the register file.
const (
	regXL = 26
	regXH = 27
	regYL = 28
	regYH = 29
	regZL = 30
	regZH = 31
)

// NoReg marks a register index that is not present on the device.
const NoReg = -1

// Maximum number of interrupt vectors on any AVR.
const IRQNum = 64

// Bootloader section of program memory. AVR program memory is little
// endian; start is the address of the LSB of the first bootloader
// instruction, end the MSB of the last one. All values in bytes.
type Bootloader struct {
	Start uint32
	End   uint32
	Size  uint32
}

// Interrupt state of a simulated MCU.
type Interrupts struct {
	ResetPC   uint32        // Reset address.
	IVT       uint32        // Interrupt vector table base, in bytes.
	Vector    uint32        // Bytes per vector table entry.
	Irq       [IRQNum]uint8 // Pending interrupt requests.
	ExecMain  bool          // One main program instruction after RETI.
	TrapAtISR bool          // Enter stopped mode on any ISR.
}

// MCU is one simulated AVR microcontroller instance. It owns all of the
// simulator state for the device: program and data memory, the program
// counter, the multi-cycle instruction gate and the interrupt controller
// state. Special registers are indices into DM rather than pointers, with
// NoReg marking registers a device does not have.
type MCU struct {
	Name        string
	Signature   [3]uint8
	XMega       bool
	ReducedCore bool

	FlashStart uint32
	FlashEnd   uint32
	RAMStart   uint32
	RAMEnd     uint32
	E2Start    uint32
	E2End      uint32
	E2PageSize uint32
	SPMPage    uint32 // Flash page size for SPM, in bytes.

	LockBits uint8
	Fuse     [6]uint8

	Boot Bootloader
	Intr Interrupts

	State     State
	ClkSource ClkSource
	Freq      uint64 // Current MCU frequency, Hz.

	PCBits uint8  // 16-bit or 22-bit program counter.
	PC     uint32 // Current program counter, in bytes.

	InMC   bool  // Inside a multi-cycle instruction.
	ICLeft uint8 // Intermediate cycles left to finish it.

	// Register indices into DM, NoReg when absent on the device.
	Sreg   int
	Sph    int
	Spl    int
	Eind   int
	Rampz  int
	Rampy  int
	Rampx  int
	Rampd  int
	Spmcsr int

	PM  []uint8 // Program memory.
	PMP []uint8 // Page buffer of PM for self-programming.
	DM  []uint8 // GP registers, I/O registers and SRAM.
	MPM []uint8 // Shadow memory holding instructions at breakpoints.

	ReadFromMPM bool // Next fetch comes from the breakpoint shadow.

	SfrOff uint32 // Offset of the special function registers in DM.
	Regs   uint32 // Number of GP registers.
	IORegs uint32 // Number of I/O registers.
}
