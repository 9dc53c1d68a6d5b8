/*
 * commands.go - The application's commands: mount, umount, status and config
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

	"github.com/urfave/cli"

	"github.com/util-linux/veritymount/mount"
	"github.com/util-linux/veritymount/veritydev"
)

var mountCommand = cli.Command{
	Name:      "mount",
	ArgsUsage: "SOURCE TARGET",
	Usage:     "mount a filesystem, activating its verity device first",
	Description: "Mounts SOURCE on TARGET. When the options given with " +
		shortDisplay(optionsFlag) + " include verity.* settings, the " +
		"dm-verity device is activated first and the filesystem is " +
		"mounted read-only from the mapped device. The device is marked " +
		"for deferred removal, so a plain umount tears everything down.",
	Flags:        universalFlags([]cli.Flag{fstypeFlag, optionsFlag}),
	Action:       mountAction,
	OnUsageError: onUsageError,
}

func mountAction(c *cli.Context) error {
	if err := expectArgs(c, 2); err != nil {
		return err
	}

	cxt := mount.NewContext(c.Args().Get(0), c.Args().Get(1),
		fstypeFlag.Value, optionsFlag.Value)
	globalConfig.ApplyDefaults(cxt)

	if err := cxt.Mount(); err != nil {
		return err
	}
	if !quietFlag.Value {
		fmt.Fprintf(c.App.Writer, "mounted %s on %s\n", cxt.Source(), cxt.Target())
	}
	return nil
}

var umountCommand = cli.Command{
	Name:      "umount",
	ArgsUsage: "TARGET",
	Usage:     "unmount a filesystem and remove its verity device",
	Flags:     universalFlags(nil),
	Action: func(c *cli.Context) error {
		if err := expectArgs(c, 1); err != nil {
			return err
		}

		cxt, err := mount.NewUnmountContext(c.Args().Get(0))
		if err != nil {
			return err
		}
		if err := cxt.Unmount(); err != nil {
			return err
		}
		if !quietFlag.Value {
			fmt.Fprintf(c.App.Writer, "unmounted %s\n", cxt.Target())
		}
		return nil
	},
	OnUsageError: onUsageError,
}

var statusCommand = cli.Command{
	Name:         "status",
	ArgsUsage:    "TARGET",
	Usage:        "show whether a mountpoint is backed by a verity device",
	Flags:        universalFlags(nil),
	Action:       statusAction,
	OnUsageError: onUsageError,
}

func statusAction(c *cli.Context) error {
	if err := expectArgs(c, 1); err != nil {
		return err
	}

	info, err := mount.FindMount(c.Args().Get(0))
	if err != nil {
		return err
	}

	verity := "no"
	cxt := mount.NewContext(info.Source, info.Target, info.FilesystemType, info.Options)
	if ok, _ := veritydev.IsVerityDevice(cxt); ok {
		verity = "yes"
	}

	fmt.Fprintf(c.App.Writer, "target:     %s\n", info.Target)
	fmt.Fprintf(c.App.Writer, "source:     %s\n", info.Source)
	fmt.Fprintf(c.App.Writer, "filesystem: %s\n", info.FilesystemType)
	fmt.Fprintf(c.App.Writer, "options:    %s\n", info.Options)
	fmt.Fprintf(c.App.Writer, "verity:     %s\n", verity)
	return nil
}

var configCommand = cli.Command{
	Name:  "config",
	Usage: "write the global config file with verity defaults",
	Description: "Creates " + mount.ConfigFileLocation + " holding the " +
		"defaults applied to every verity mount. Use " +
		shortDisplay(forceFlag) + " to overwrite an existing file.",
	Flags:        universalFlags([]cli.Flag{onCorruptionFlag, fecRootsFlag, forceFlag}),
	Action:       configAction,
	OnUsageError: onUsageError,
}

func configAction(c *cli.Context) error {
	if err := expectArgs(c, 0); err != nil {
		return err
	}

	config := &mount.Config{
		OnCorruption: onCorruptionFlag.Value,
		FecRoots:     fecRootsFlag.Value,
	}
	switch config.OnCorruption {
	case "", "ignore", "restart", "panic":
	default:
		return &usageError{c: c, msg: fmt.Sprintf(
			"invalid value %q for %s", config.OnCorruption,
			shortDisplay(onCorruptionFlag))}
	}

	createFlags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !forceFlag.Value {
		createFlags = os.O_CREATE | os.O_WRONLY | os.O_EXCL
	}
	file, err := os.OpenFile(mount.ConfigFileLocation, createFlags, 0o644)
	if os.IsExist(err) {
		return ErrConfigFileExists
	}
	if err != nil {
		return err
	}
	defer file.Close()

	if err := mount.WriteConfig(config, file); err != nil {
		return err
	}
	if !quietFlag.Value {
		fmt.Fprintf(c.App.Writer, "wrote %s\n", mount.ConfigFileLocation)
	}
	return nil
}
