/*
   AVR8 - Firmware image loader.

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

package loader

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rcornwell/AVR8/emu/avr"
)

// Load reads a firmware image and returns a program memory array of the
// requested size. Files starting with ':' are treated as Intel HEX,
// anything else as a raw binary image. Bytes past the image are filled
// with 0xff, the erased state of flash.
func Load(fileName string, size uint32) ([]uint8, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	pm := make([]uint8, size)
	for i := range pm {
		pm[i] = 0xff
	}

	if len(data) > 0 && data[0] == ':' {
		err = loadHex(pm, data, fileName)
	} else {
		if uint32(len(data)) > size {
			return nil, fmt.Errorf("%s: image of %d bytes exceeds %d bytes of flash",
				fileName, len(data), size)
		}
		copy(pm, data)
	}
	if err != nil {
		return nil, err
	}
	return pm, nil
}

// Apply installs a program image into the MCU. The breakpoint shadow
// memory gets the same image so that a resume after BREAK executes the
// original instruction.
func Apply(mcu *avr.MCU, pm []uint8) {
	copy(mcu.PM, pm)
	copy(mcu.MPM, pm)
}

// Parse an Intel HEX image into pm. Record types 00 (data),
// 01 (end of file), 02 and 04 (extended addresses) are honored.
func loadHex(pm []uint8, data []byte, fileName string) error {
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	var base uint32
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] != ':' {
			return fmt.Errorf("%s:%d: record does not start with ':'", fileName, lineNumber)
		}

		record, err := hexBytes(line[1:])
		if err != nil {
			return fmt.Errorf("%s:%d: %w", fileName, lineNumber, err)
		}
		if len(record) < 5 {
			return fmt.Errorf("%s:%d: record too short", fileName, lineNumber)
		}

		count := int(record[0])
		if len(record) != count+5 {
			return fmt.Errorf("%s:%d: record length mismatch", fileName, lineNumber)
		}

		var sum uint8
		for _, b := range record {
			sum += b
		}
		if sum != 0 {
			return fmt.Errorf("%s:%d: checksum error", fileName, lineNumber)
		}

		offset := (uint32(record[1]) << 8) | uint32(record[2])
		payload := record[4 : 4+count]

		switch record[3] {
		case 0x00: // Data.
			addr := base + offset
			if addr+uint32(count) > uint32(len(pm)) {
				return fmt.Errorf("%s:%d: data beyond end of flash", fileName, lineNumber)
			}
			copy(pm[addr:], payload)
		case 0x01: // End of file.
			return nil
		case 0x02: // Extended segment address.
			if count != 2 {
				return fmt.Errorf("%s:%d: bad extended segment record", fileName, lineNumber)
			}
			base = ((uint32(payload[0]) << 8) | uint32(payload[1])) << 4
		case 0x04: // Extended linear address.
			if count != 2 {
				return fmt.Errorf("%s:%d: bad extended linear record", fileName, lineNumber)
			}
			base = ((uint32(payload[0]) << 8) | uint32(payload[1])) << 16
		case 0x03, 0x05: // Start addresses, nothing to load.
		default:
			return fmt.Errorf("%s:%d: unknown record type %02x", fileName, lineNumber, record[3])
		}
	}
	return errors.New(fileName + ": missing end of file record")
}

// Decode a string of hex digit pairs.
func hexBytes(s string) ([]uint8, error) {
	if len(s)%2 != 0 {
		return nil, errors.New("odd number of hex digits")
	}
	out := make([]uint8, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		hi, ok1 := hexDigit(s[i])
		lo, ok2 := hexDigit(s[i+1])
		if !ok1 || !ok2 {
			return nil, errors.New("invalid hex digit")
		}
		out[i/2] = (hi << 4) | lo
	}
	return out, nil
}

func hexDigit(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
