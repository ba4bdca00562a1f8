/*
 * AVR8 configuration parser test cases.
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

package configparser

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.cfg")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Lines dispatch to their handlers in file order with comments and
// blank lines skipped.
func TestLoadConfigFile(t *testing.T) {
	var got [][]string
	RegisterOption("thing", 1, func(args []string) error {
		got = append(got, args)
		return nil
	})

	path := writeConfig(t, `
# comment line
thing one
thing two three   # trailing comment
thing "with spaces" four
`)
	if err := LoadConfigFile(path); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d lines expected 3", len(got))
	}
	if got[0][0] != "one" {
		t.Error("first line wrong")
	}
	if len(got[1]) != 2 || got[1][1] != "three" {
		t.Error("second line wrong")
	}
	if got[2][0] != "with spaces" {
		t.Error("quoted argument wrong")
	}
}

// Unknown options and missing arguments are reported with the line.
func TestLoadConfigErrors(t *testing.T) {
	RegisterOption("needs2", 2, func(args []string) error { return nil })

	path := writeConfig(t, "nosuchoption a b\n")
	if err := LoadConfigFile(path); err == nil {
		t.Error("unknown option accepted")
	}

	path = writeConfig(t, "needs2 onlyone\n")
	if err := LoadConfigFile(path); err == nil {
		t.Error("missing argument accepted")
	}

	path = writeConfig(t, "needs2 \"unterminated\n")
	if err := LoadConfigFile(path); err == nil {
		t.Error("unterminated quote accepted")
	}
}

// A switch takes no arguments and a file option exactly one.
func TestSwitchAndFile(t *testing.T) {
	flag := false
	var file string
	RegisterSwitch("flagopt", func() error {
		flag = true
		return nil
	})
	RegisterFile("fileopt", func(fileName string) error {
		file = fileName
		return nil
	})

	path := writeConfig(t, "flagopt\nfileopt \"some file\"\n")
	if err := LoadConfigFile(path); err != nil {
		t.Fatal(err)
	}
	if !flag {
		t.Error("switch not set")
	}
	if file != "some file" {
		t.Errorf("file option got %q", file)
	}

	path = writeConfig(t, "flagopt extra\n")
	if err := LoadConfigFile(path); err == nil {
		t.Error("switch with an argument accepted")
	}

	path = writeConfig(t, "fileopt one two\n")
	if err := LoadConfigFile(path); err == nil {
		t.Error("file option with two arguments accepted")
	}

	path = writeConfig(t, "fileopt\n")
	if err := LoadConfigFile(path); err == nil {
		t.Error("file option without a name accepted")
	}
}

// Option keywords are case insensitive.
func TestCaseInsensitive(t *testing.T) {
	called := false
	RegisterOption("Mixed", 0, func(args []string) error {
		called = true
		return nil
	})
	path := writeConfig(t, "mIxEd\n")
	if err := LoadConfigFile(path); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("mixed case option not dispatched")
	}
}

// Number parsing accepts decimal and hex.
func TestParseNumber(t *testing.T) {
	if v, err := ParseNumber("123"); err != nil || v != 123 {
		t.Error("decimal parse failed")
	}
	if v, err := ParseNumber("0x1f"); err != nil || v != 0x1f {
		t.Error("hex parse failed")
	}
	if _, err := ParseNumber("zzz"); err == nil {
		t.Error("garbage accepted")
	}
}
