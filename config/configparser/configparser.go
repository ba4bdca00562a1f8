/*
   AVR8 - Configuration file parser.

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

package configparser

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

/* Configuration file format:
 *
 * '#' starts a comment, the rest of the line is ignored.
 * <line>   ::= <option> *(<whitespace> <arg>)
 * <option> ::= <string>
 * <arg>    ::= <string> | '"' *(<letter> | <whitespace>) '"'
 *
 * Options are registered by the packages interested in them and
 * processed in file order.
 */

// Handler processes one configuration line. args holds the arguments
// following the option keyword, with quotes stripped.
type Handler func(args []string) error

// Option kinds.
const (
	TypeOption = 1 + iota // Takes a list of arguments.
	TypeSwitch            // Boolean flag, no arguments.
	TypeFile              // Single file name argument.
)

type optionDef struct {
	ty      int
	handler Handler
	minArgs int
}

var options = map[string]optionDef{}

// RegisterOption should be called from init functions of the packages
// that consume configuration lines.
func RegisterOption(name string, minArgs int, handler Handler) {
	options[strings.ToUpper(name)] = optionDef{ty: TypeOption, handler: handler, minArgs: minArgs}
}

// RegisterSwitch should be called from init functions. A switch takes
// no arguments; naming it turns the flag on.
func RegisterSwitch(name string, handler func() error) {
	options[strings.ToUpper(name)] = optionDef{
		ty: TypeSwitch,
		handler: func(_ []string) error {
			return handler()
		},
	}
}

// RegisterFile should be called from init functions. A file option
// takes exactly one file name.
func RegisterFile(name string, handler func(fileName string) error) {
	options[strings.ToUpper(name)] = optionDef{
		ty:      TypeFile,
		minArgs: 1,
		handler: func(args []string) error {
			return handler(args[0])
		},
	}
}

// LoadConfigFile parses a configuration file and dispatches each line
// to its registered handler in file order.
func LoadConfigFile(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields, err := tokenize(line)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", fileName, lineNumber, err)
		}
		if len(fields) == 0 {
			continue
		}

		option, ok := options[strings.ToUpper(fields[0])]
		if !ok {
			return fmt.Errorf("%s:%d: unknown option: %s", fileName, lineNumber, fields[0])
		}
		switch option.ty {
		case TypeSwitch:
			if len(fields) != 1 {
				return fmt.Errorf("%s:%d: %s takes no arguments",
					fileName, lineNumber, fields[0])
			}
		case TypeFile:
			if len(fields) != 2 {
				return fmt.Errorf("%s:%d: %s needs one file name",
					fileName, lineNumber, fields[0])
			}
		default:
			if len(fields)-1 < option.minArgs {
				return fmt.Errorf("%s:%d: %s needs at least %d arguments",
					fileName, lineNumber, fields[0], option.minArgs)
			}
		}
		if err := option.handler(fields[1:]); err != nil {
			return fmt.Errorf("%s:%d: %w", fileName, lineNumber, err)
		}
	}
	return scanner.Err()
}

// Split a line into fields honoring double quoted strings.
func tokenize(line string) ([]string, error) {
	var fields []string
	var field strings.Builder
	inQuote := false
	inField := false

	for _, c := range line {
		switch {
		case c == '"':
			inQuote = !inQuote
			inField = true
		case !inQuote && (c == ' ' || c == '\t'):
			if inField {
				fields = append(fields, field.String())
				field.Reset()
				inField = false
			}
		default:
			field.WriteRune(c)
			inField = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inField {
		fields = append(fields, field.String())
	}
	return fields, nil
}

// ParseNumber accepts decimal, 0x hex and 0 octal values.
func ParseNumber(s string) (uint64, error) {
	value, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %s", s)
	}
	return value, nil
}
