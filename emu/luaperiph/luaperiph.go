/*
   AVR8 - Lua scripted peripherals.

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

package luaperiph

import (
	"errors"
	"log/slog"

	lua "github.com/yuin/gopher-lua"

	"github.com/rcornwell/AVR8/emu/avr"
)

// Script is one user defined peripheral. Each script gets its own Lua
// state bound to one MCU and a tick entry point called once per
// simulated clock cycle, at the same point in the cycle as the built in
// peripherals.
type Script struct {
	name string
	mcu  *avr.MCU
	ls   *lua.LState
	tick lua.LValue
}

// Load compiles a peripheral script and binds the access primitives to
// it. The script must define a global function tick().
func Load(mcu *avr.MCU, fileName string) (*Script, error) {
	script := &Script{
		name: fileName,
		mcu:  mcu,
		ls:   lua.NewState(),
	}
	script.register()
	if err := script.ls.DoFile(fileName); err != nil {
		script.ls.Close()
		return nil, err
	}
	script.tick = script.ls.GetGlobal("tick")
	if script.tick == lua.LNil {
		script.ls.Close()
		return nil, errors.New(fileName + ": script defines no tick() function")
	}
	return script, nil
}

// LoadString compiles a peripheral from source text. Used by tests.
func LoadString(mcu *avr.MCU, name, source string) (*Script, error) {
	script := &Script{
		name: name,
		mcu:  mcu,
		ls:   lua.NewState(),
	}
	script.register()
	if err := script.ls.DoString(source); err != nil {
		script.ls.Close()
		return nil, err
	}
	script.tick = script.ls.GetGlobal("tick")
	if script.tick == lua.LNil {
		script.ls.Close()
		return nil, errors.New(name + ": script defines no tick() function")
	}
	return script, nil
}

// Tick runs the script for one simulated clock cycle. A script error
// fails the simulation the same way an illegal instruction does.
func (script *Script) Tick(_ *avr.MCU) {
	err := script.ls.CallByParam(lua.P{Fn: script.tick, NRet: 0, Protect: true})
	if err != nil {
		slog.Error(script.name + ": " + err.Error())
		script.mcu.State = avr.TestFail
	}
}

// Close releases the Lua state.
func (script *Script) Close() {
	script.ls.Close()
}

// The access primitives exposed to scripts. Registers are addressed by
// register file index, I/O registers by their I/O space offset.
func (script *Script) register() {
	ls := script.ls
	mcu := script.mcu

	ls.SetGlobal("AVR_ReadReg", ls.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(mcu.ReadReg(uint16(L.CheckInt(1)))))
		return 1
	}))
	ls.SetGlobal("AVR_WriteReg", ls.NewFunction(func(L *lua.LState) int {
		mcu.WriteReg(uint16(L.CheckInt(1)), uint8(L.CheckInt(2)))
		return 0
	}))
	ls.SetGlobal("AVR_ReadIO", ls.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(mcu.ReadIO(uint16(L.CheckInt(1)))))
		return 1
	}))
	ls.SetGlobal("AVR_WriteIO", ls.NewFunction(func(L *lua.LState) int {
		mcu.WriteIO(uint16(L.CheckInt(1)), uint8(L.CheckInt(2)))
		return 0
	}))
	ls.SetGlobal("AVR_RegBit", ls.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(mcu.RegBit(uint16(L.CheckInt(1)), uint8(L.CheckInt(2)))))
		return 1
	}))
	ls.SetGlobal("AVR_SetRegBit", ls.NewFunction(func(L *lua.LState) int {
		mcu.SetRegBit(uint16(L.CheckInt(1)), uint8(L.CheckInt(2)), uint8(L.CheckInt(3)))
		return 0
	}))
	ls.SetGlobal("AVR_IOBit", ls.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(mcu.IOBit(uint16(L.CheckInt(1)), uint8(L.CheckInt(2)))))
		return 1
	}))
	ls.SetGlobal("AVR_SetIOBit", ls.NewFunction(func(L *lua.LState) int {
		mcu.SetIOBit(uint16(L.CheckInt(1)), uint8(L.CheckInt(2)), uint8(L.CheckInt(3)))
		return 0
	}))
	ls.SetGlobal("AVR_Freq", ls.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(mcu.Freq))
		return 1
	}))
	ls.SetGlobal("AVR_Stop", ls.NewFunction(func(L *lua.LState) int {
		mcu.State = avr.Stop
		return 0
	}))
	ls.SetGlobal("AVR_TestFail", ls.NewFunction(func(L *lua.LState) int {
		mcu.State = avr.TestFail
		return 0
	}))
	ls.SetGlobal("AVR_Log", ls.NewFunction(func(L *lua.LState) int {
		slog.Info(script.name + ": " + L.CheckString(1))
		return 0
	}))
}
