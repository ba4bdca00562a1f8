/*
 * AVR8 firmware loader test cases.
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

package loader

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// A raw binary image loads at address zero with 0xff fill behind it.
func TestLoadRaw(t *testing.T) {
	path := writeFile(t, "fw.bin", "\x01\x02\x03")
	pm, err := Load(path, 16)
	if err != nil {
		t.Fatal(err)
	}
	if pm[0] != 1 || pm[1] != 2 || pm[2] != 3 {
		t.Error("raw image bytes wrong")
	}
	for i := 3; i < 16; i++ {
		if pm[i] != 0xff {
			t.Errorf("fill byte at %d is %02x", i, pm[i])
		}
	}
}

// A raw image larger than flash refuses to load.
func TestLoadRawTooBig(t *testing.T) {
	path := writeFile(t, "fw.bin", "12345")
	if _, err := Load(path, 4); err == nil {
		t.Error("oversized image accepted")
	}
}

// A small Intel HEX image with two data records.
func TestLoadHex(t *testing.T) {
	hex := ":020000000C945E\n" +
		":0200040095085D\n" +
		":00000001FF\n"
	path := writeFile(t, "fw.hex", hex)
	pm, err := Load(path, 32)
	if err != nil {
		t.Fatal(err)
	}
	if pm[0] != 0x0c || pm[1] != 0x94 {
		t.Errorf("hex record 1 got %02x %02x", pm[0], pm[1])
	}
	if pm[4] != 0x95 || pm[5] != 0x08 {
		t.Errorf("hex record 2 got %02x %02x", pm[4], pm[5])
	}
	if pm[2] != 0xff || pm[31] != 0xff {
		t.Error("gap not filled with ff")
	}
}

// A corrupted checksum is rejected.
func TestLoadHexBadChecksum(t *testing.T) {
	hex := ":020000000C945F\n:00000001FF\n"
	path := writeFile(t, "fw.hex", hex)
	if _, err := Load(path, 32); err == nil {
		t.Error("bad checksum accepted")
	}
}

// A missing end of file record is rejected.
func TestLoadHexNoEOF(t *testing.T) {
	hex := ":020000000C945E\n"
	path := writeFile(t, "fw.hex", hex)
	if _, err := Load(path, 32); err == nil {
		t.Error("missing EOF record accepted")
	}
}

// The extended segment address record relocates following data.
func TestLoadHexExtended(t *testing.T) {
	// Base 0x10000 is out of a 32 byte flash; use segment base 0x10.
	hex := ":020000020001FB\n" + // segment base 0x0010
		":01000000AA55\n" +
		":00000001FF\n"
	path := writeFile(t, "fw.hex", hex)
	pm, err := Load(path, 32)
	if err != nil {
		t.Fatal(err)
	}
	if pm[0x10] != 0xaa {
		t.Errorf("extended record got %02x at 10", pm[0x10])
	}
}
