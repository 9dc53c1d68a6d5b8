/*
 * flags.go - File which contains all the flags used by the application. This
 * includes both global flags and command specific flags. When applicable, it
 * also includes the default values.
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
	"flag"
	"strconv"

	"github.com/urfave/cli"
)

// We define the types boolFlag, stringFlag, and int64Flag here instead of
// using those present in urfave/cli because we need them to conform to the
// prettyFlag interface (in format.go). The Getters just get the corresponding
// variables, String() just uses longDisplay, and Apply just sets the
// corresponding type of flag.
type boolFlag struct {
	Name    string
	Usage   string
	Default bool
	Value   bool
}

func (b *boolFlag) GetName() string    { return b.Name }
func (b *boolFlag) GetArgName() string { return "" }
func (b *boolFlag) GetUsage() string   { return b.Usage }

func (b *boolFlag) String() string {
	if !b.Default {
		return longDisplay(b)
	}
	return longDisplay(b, strconv.FormatBool(b.Default))
}

func (b *boolFlag) Apply(set *flag.FlagSet) {
	set.BoolVar(&b.Value, b.Name, b.Default, b.Usage)
}

type stringFlag struct {
	Name    string
	ArgName string
	Usage   string
	Default string
	Value   string
}

func (s *stringFlag) GetName() string    { return s.Name }
func (s *stringFlag) GetArgName() string { return s.ArgName }
func (s *stringFlag) GetUsage() string   { return s.Usage }

func (s *stringFlag) String() string {
	if s.Default == "" {
		return longDisplay(s)
	}
	return longDisplay(s, strconv.Quote(s.Default))
}

func (s *stringFlag) Apply(set *flag.FlagSet) {
	set.StringVar(&s.Value, s.Name, s.Default, s.Usage)
}

type int64Flag struct {
	Name    string
	ArgName string
	Usage   string
	Default int64
	Value   int64
}

func (i *int64Flag) GetName() string    { return i.Name }
func (i *int64Flag) GetArgName() string { return i.ArgName }
func (i *int64Flag) GetUsage() string   { return i.Usage }

func (i *int64Flag) String() string {
	if i.Default == 0 {
		return longDisplay(i)
	}
	return longDisplay(i, strconv.FormatInt(i.Default, 10))
}

func (i *int64Flag) Apply(set *flag.FlagSet) {
	set.Int64Var(&i.Value, i.Name, i.Default, i.Usage)
}

var (
	// allFlags contains every defined flag (used for formatting).
	// UPDATE THIS ARRAY WHEN ADDING NEW FLAGS!!!
	allFlags = []prettyFlag{verboseFlag, quietFlag, fstypeFlag,
		optionsFlag, onCorruptionFlag, fecRootsFlag, forceFlag}

	verboseFlag = &boolFlag{
		Name:  "verbose",
		Usage: "Print debug output to standard error.",
	}
	quietFlag = &boolFlag{
		Name:  "quiet",
		Usage: "Print nothing except errors.",
	}
	fstypeFlag = &stringFlag{
		Name:    "types",
		ArgName: "TYPE",
		Usage:   "Mount the filesystem as the specified TYPE.",
		Default: "ext4",
	}
	optionsFlag = &stringFlag{
		Name:    "options",
		ArgName: "OPTS",
		Usage: `Use the comma-separated mount options OPTS. The
			verity.* options select the hash device, root hash and
			related settings; everything else is passed to the
			kernel as for mount(8).`,
	}
	onCorruptionFlag = &stringFlag{
		Name:    "on-corruption",
		ArgName: "ACTION",
		Usage: `Write ACTION ("ignore", "restart" or "panic") to the
			config file as the default reaction to corrupted
			blocks.`,
	}
	fecRootsFlag = &int64Flag{
		Name:    "fec-roots",
		ArgName: "N",
		Usage: `Write N to the config file as the default number of
			forward error correction parity bytes.`,
	}
	forceFlag = &boolFlag{
		Name:  "force",
		Usage: "Overwrite an existing config file.",
	}
)

// universalFlags prepends the flags every command understands.
func universalFlags(flags []cli.Flag) []cli.Flag {
	return append([]cli.Flag{verboseFlag, quietFlag}, flags...)
}
