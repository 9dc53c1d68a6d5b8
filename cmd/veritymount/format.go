/*
 * format.go - Helpers for formatting flags and wrapping text to the terminal
 *
 * Copyright 2019 The veritymount Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not
 * use this file except in compliance with the License. You may obtain a copy of
 * the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
 * WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
 * License for the specific language governing permissions and limitations under
 * the License.
 */

package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/urfave/cli"
	"golang.org/x/term"

	"github.com/util-linux/veritymount/util"
)

var (
	// lineLength is the maximum width of the formatted output. It is
	// usually the width of the terminal.
	lineLength         int
	fallbackLineLength = 80
	maxLineLength      = 120
	// indentLength is the number of spaces to indent by.
	indentLength = 2
	indent       = strings.Repeat(" ", indentLength)
	// length of the longest shortDisplay for a flag
	maxShortDisplay int
	// how much a flag's usage text needs to be moved over
	flagPaddingLength int
)

// The longest short display length is computed up front, so the flag
// descriptions always start in the same column.
func init() {
	for _, flag := range allFlags {
		displayLength := utf8.RuneCountInString(shortDisplay(flag))
		if displayLength > maxShortDisplay {
			maxShortDisplay = displayLength
		}
	}
	flagPaddingLength = maxShortDisplay + 2*indentLength

	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		lineLength = fallbackLineLength
	} else {
		lineLength = util.MinInt(width, maxLineLength)
	}
}

// Flags that conform to this interface can be used with a urfave/cli
// application and can be printed in the correct format.
type prettyFlag interface {
	cli.Flag
	GetArgName() string
	GetUsage() string
}

// How a flag should appear on the command line, either "--name" or
// "--name=ARG_NAME" when the flag takes an argument.
func shortDisplay(f prettyFlag) string {
	if argName := f.GetArgName(); argName != "" {
		return fmt.Sprintf("--%s=%s", f.GetName(), argName)
	}
	return fmt.Sprintf("--%s", f.GetName())
}

// How a flag appears in usage output: the padded short display followed by
// the wrapped usage text, with the default appended when one was given.
func longDisplay(f prettyFlag, defaultString ...string) string {
	usage := f.GetUsage()
	if len(defaultString) > 0 {
		usage += fmt.Sprintf(" (default: %v)", defaultString[0])
	}

	shortDisp := shortDisplay(f)
	length := utf8.RuneCountInString(shortDisp)
	shortDisp += strings.Repeat(" ", maxShortDisplay-length)

	return indent + shortDisp + indent + wrapText(usage, flagPaddingLength)
}

// wrapText wraps text so that each line after the first begins with padding
// spaces and no line exceeds lineLength. A word too long for a line gets its
// own line. Empty lines are kept as paragraph separators.
func wrapText(text string, padding int) string {
	var buffer bytes.Buffer
	filled := 0
	delimiter := strings.Repeat(" ", padding)

	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			if filled != 0 {
				buffer.WriteString("\n")
			}
			buffer.WriteString("\n")
			filled = 0
			continue
		}
		for _, word := range words {
			wordLen := utf8.RuneCountInString(word)
			if filled != 0 && filled+1+wordLen > lineLength {
				buffer.WriteString("\n")
				filled = 0
			}
			if filled == 0 {
				if buffer.Len() != 0 {
					buffer.WriteString(delimiter)
				}
				filled += padding
			} else {
				buffer.WriteByte(' ')
				filled++
			}
			buffer.WriteString(word)
			filled += wordLen
		}
	}
	return buffer.String()
}
