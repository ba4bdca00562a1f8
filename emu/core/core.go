/*
   Core AVR8 simulation loop.

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

package core

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rcornwell/AVR8/emu/avr"
	"github.com/rcornwell/AVR8/emu/device"
	"github.com/rcornwell/AVR8/emu/luaperiph"
	"github.com/rcornwell/AVR8/emu/master"
	"github.com/rcornwell/AVR8/emu/vcd"
)

// Peripheral is a tick driven add-on observing and mutating the MCU at
// the peripheral point of the cycle. Lua scripts satisfy it.
type Peripheral interface {
	Tick(mcu *avr.MCU)
}

// Core drives one simulated MCU. One logical tick advances the model by
// one system clock cycle in fixed order: peripherals first, then one
// cycle of the current instruction, then the interrupt controller, then
// the waveform observer. All MCU state is owned by this loop; external
// observers see consistent state between ticks only.
type Core struct {
	mcu     *avr.MCU
	model   device.Model
	observ  *vcd.Observer
	periphs []Peripheral

	wg      sync.WaitGroup
	done    chan struct{}
	running bool
	steps   uint64 // Instructions left in a step request.
	master  chan master.Packet

	ticks uint64 // Simulated clock cycles since reset.
}

// NewCore creates a simulation core around a configured MCU.
func NewCore(mcu *avr.MCU, model device.Model, masterChannel chan master.Packet) *Core {
	return &Core{
		mcu:    mcu,
		model:  model,
		master: masterChannel,
		done:   make(chan struct{}),
	}
}

// SetObserver attaches a value change dump observer.
func (core *Core) SetObserver(observ *vcd.Observer) {
	core.observ = observ
}

// AddScript attaches a Lua peripheral.
func (core *Core) AddScript(script *luaperiph.Script) {
	core.periphs = append(core.periphs, script)
}

// MCU exposes the simulated device to the command parser. The parser
// must only touch it while the simulation is halted.
func (core *Core) MCU() *avr.MCU {
	return core.mcu
}

// Ticks returns the simulated cycle count.
func (core *Core) Ticks() uint64 {
	return core.ticks
}

// Tick advances the simulation by one clock cycle.
func (core *Core) Tick() {
	core.model.TickTimers(core.mcu)
	for _, p := range core.periphs {
		p.Tick(core.mcu)
	}
	core.mcu.Cycle()
	core.model.ProvideIRQs(core.mcu)
	core.mcu.HandleInterrupts()
	core.ticks++
	if core.observ != nil {
		if err := core.observ.Sample(core.ticks); err != nil {
			slog.Error("vcd: " + err.Error())
			core.observ = nil
		}
	}
}

// StepInst runs cycles until the current instruction retires.
func (core *Core) StepInst() {
	for {
		core.Tick()
		if !core.mcu.InMC || core.terminal() {
			return
		}
	}
}

func (core *Core) terminal() bool {
	return core.mcu.State == avr.Stop || core.mcu.State == avr.TestFail
}

// ExitCode maps the final MCU state to a host exit code.
func (core *Core) ExitCode() int {
	if core.mcu.State == avr.TestFail {
		return 1
	}
	return 0
}

// Start runs the simulation until a terminal state is reached or the
// core is shut down. Control packets from the front end are polled
// between cycles.
func (core *Core) Start() {
	core.wg.Add(1)
	defer core.wg.Done()
	for {
		if core.running {
			core.Tick()
			if core.steps != 0 && !core.mcu.InMC {
				core.steps--
				if core.steps == 0 {
					core.running = false
					core.mcu.State = avr.Stopped
				}
			}
			switch core.mcu.State {
			case avr.Stopped:
				core.running = false
			case avr.Stop, avr.TestFail:
				slog.Info("Simulation finished")
				core.running = false
				return
			default:
			}
		}
		select {
		case <-core.done:
			slog.Info("Shutdown simulation core")
			return
		case packet := <-core.master:
			core.processPacket(packet)
		default:
		}
	}
}

// Stop a running core and wait for it to finish.
func (core *Core) Stop() {
	close(core.done)
	done := make(chan struct{})
	go func() {
		core.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(time.Second):
		slog.Warn("Timed out waiting for simulation to finish.")
		return
	}
}

// Process a packet sent to the simulation.
func (core *Core) processPacket(packet master.Packet) {
	switch packet.Msg {
	case master.Start:
		core.mcu.State = avr.Running
		core.steps = 0
		core.running = true
	case master.Stop:
		core.running = false
		if core.mcu.State == avr.Running {
			core.mcu.State = avr.Stopped
		}
	case master.Step:
		core.mcu.State = avr.Step
		core.steps = packet.Count
		if core.steps == 0 {
			core.steps = 1
		}
		core.running = true
	case master.Reset:
		core.mcu.Reset()
		core.ticks = 0
		core.running = false
	}
}
