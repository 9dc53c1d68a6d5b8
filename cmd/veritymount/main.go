/*
 * main.go - File which starts up and runs the application. Initializes
 * information about the application like the name, version, author, etc...
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

/*
veritymount is a command line tool for mounting filesystems protected by
dm-verity. It activates the verity mapping described by verity.* mount
options, mounts the resulting device, and removes the mapping again on
unmount.
*/
package main

import (
	"io"
	"log"
	"os"

	"github.com/urfave/cli"

	"github.com/util-linux/veritymount/mount"
)

// version is overridden at build time via -ldflags.
var version = "(unknown version)"

func main() {
	app := cli.NewApp()
	app.Name = "veritymount"
	app.HelpName = "veritymount"
	app.Usage = "mount filesystems verified with dm-verity"
	app.Version = version
	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Commands = []cli.Command{mountCommand, umountCommand, statusCommand, configCommand}
	app.Flags = universalFlags(nil)

	// Logging is off by default; --verbose or the config file turns it
	// back on. This must run before any command action.
	app.Before = func(c *cli.Context) error {
		log.SetOutput(io.Discard)
		config, err := mount.LoadConfigFile()
		if err != nil {
			return err
		}
		globalConfig = config
		if verboseFlag.Value || config.Verbose {
			log.SetOutput(os.Stderr)
		}
		return nil
	}

	app.OnUsageError = onUsageError

	if err := app.Run(os.Args); err != nil {
		reportError(err)
		os.Exit(failureExitCode)
	}
}

// globalConfig holds the parsed /etc/veritymount.conf for command actions.
var globalConfig = &mount.Config{}
