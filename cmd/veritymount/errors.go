/*
 * errors.go - Error reporting for the top level user interface
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
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/util-linux/veritymount/mount"
	"github.com/util-linux/veritymount/veritydev"
)

// failureExitCode is the value veritymount will return on failure.
const failureExitCode = 1

// ErrConfigFileExists indicates "config" would overwrite an existing file.
var ErrConfigFileExists = errors.Errorf(
	"config file %s already exists, use %s to overwrite it",
	mount.ConfigFileLocation, "--force")

// usageError indicates the command was invoked incorrectly; its message is
// followed by a pointer at the command's help output.
type usageError struct {
	c   *cli.Context
	msg string
}

func (e *usageError) Error() string {
	return fmt.Sprintf("%s\n\nSee %q for more information.",
		e.msg, getFullName(e.c)+" --help")
}

// getFullName returns the full name of the application or command being used.
func getFullName(c *cli.Context) string {
	if c.Command.HelpName != "" {
		return c.Command.HelpName
	}
	return c.App.HelpName
}

func expectArgs(c *cli.Context, num int) error {
	if c.NArg() == num {
		return nil
	}
	return &usageError{c: c, msg: fmt.Sprintf(
		"expected %d arguments, got %d", num, c.NArg())}
}

// onUsageError is the handler urfave/cli invokes on bad flags.
func onUsageError(c *cli.Context, err error, isSubcommand bool) error {
	return &usageError{c: c, msg: err.Error()}
}

// suggestion returns a hint appended to errors the user can likely fix
// themselves.
func suggestion(err error) string {
	switch {
	case errors.Is(err, veritydev.ErrBackendUnavailable):
		return "Verity mounts need libcryptsetup; check that the library is installed."
	case errors.Is(err, veritydev.ErrAlreadyExists):
		return "A stale device may be left over; inspect it with dmsetup(8)."
	case errors.Is(err, mount.ErrMountNotFound):
		return "The path must be an active mountpoint, as listed in /proc/self/mountinfo."
	default:
		return ""
	}
}

// formatError turns an error into the message printed on exit, wrapped to
// the terminal width.
func formatError(err error) string {
	msg := "veritymount: " + err.Error()
	if hint := suggestion(err); hint != "" {
		msg += "\n\n" + hint
	}
	return wrapText(msg, 0)
}

func reportError(err error) {
	fmt.Fprintln(os.Stderr, formatError(err))
}
