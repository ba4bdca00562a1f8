/*
   AVR8 - Device variant interface.

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

package device

import (
	"errors"
	"sort"
	"strings"

	"github.com/rcornwell/AVR8/emu/avr"
)

// Model is the capability interface satisfied by each simulated device
// variant. A variant owns its peripheral state; the core calls the tick
// hooks once per simulated clock cycle in fixed order.
type Model interface {
	Name() string // Device name, e.g. ATmega328P.

	// Create allocates an MCU instance with the device memory map,
	// register layout and interrupt table.
	Create() *avr.MCU

	// SetFuse applies one fuse byte; a reserved combination is a
	// configuration error and the MCU must not start.
	SetFuse(mcu *avr.MCU, fuse uint32, value uint8) error

	// SetLock applies the lock byte.
	SetLock(mcu *avr.MCU, value uint8) error

	// TickTimers advances the device peripherals by one clock cycle.
	TickTimers(mcu *avr.MCU)

	// ProvideIRQs moves latched peripheral flags, gated by their
	// enable bits, onto the interrupt request lines.
	ProvideIRQs(mcu *avr.MCU)
}

var models = map[string]func() Model{}

// Register a device variant. Called from init functions of the model
// packages.
func Register(name string, create func() Model) {
	models[strings.ToUpper(name)] = create
}

// Lookup creates a fresh instance of a registered device variant.
func Lookup(name string) (Model, error) {
	create, ok := models[strings.ToUpper(name)]
	if !ok {
		return nil, errors.New("unknown device model: " + name)
	}
	return create(), nil
}

// Names lists the registered device variants.
func Names() []string {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
