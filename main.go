/*
 * AVR8 - Main process.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/AVR8/command/reader"
	config "github.com/rcornwell/AVR8/config/configparser"
	"github.com/rcornwell/AVR8/config/mcuconfig"
	core "github.com/rcornwell/AVR8/emu/core"
	"github.com/rcornwell/AVR8/emu/luaperiph"
	"github.com/rcornwell/AVR8/emu/master"
	"github.com/rcornwell/AVR8/emu/vcd"
	logger "github.com/rcornwell/AVR8/util/logger"

	_ "github.com/rcornwell/AVR8/emu/models"
)

var Logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "AVR8.cfg", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Show debug messages on stderr")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	handler := logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false})
	handler.SetDebug(*optDebug)
	Logger = slog.New(handler)
	slog.SetDefault(Logger)

	Logger.Info("AVR8 Started")

	// The configuration can name a log file; the command line flag
	// wins when both are given.
	config.RegisterFile("logfile", func(fileName string) error {
		if *optLogFile != "" {
			return nil
		}
		logFile, err := os.Create(fileName)
		if err != nil {
			return err
		}
		handler.SetOutput(logFile)
		return nil
	})

	_, err := os.Stat(*optConfig)
	if os.IsNotExist(err) {
		Logger.Error("Configuration file " + *optConfig + " can't be found")
		os.Exit(1)
	}

	if err = config.LoadConfigFile(*optConfig); err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	machine, err := mcuconfig.Build()
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	masterChannel := make(chan master.Packet, 10)
	cpu := core.NewCore(machine.MCU, machine.Model, masterChannel)

	if machine.VCDFile != "" {
		observ, err := vcd.Open(machine.MCU, machine.VCDFile, machine.Dump)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		defer observ.Close()
		cpu.SetObserver(observ)
	}

	for _, name := range machine.Scripts {
		script, err := luaperiph.Load(machine.MCU, name)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		defer script.Close()
		cpu.AddScript(script)
	}

	go cpu.Start()
	reader.ConsoleReader(cpu, masterChannel)
	cpu.Stop()
	os.Exit(cpu.ExitCode())
}
