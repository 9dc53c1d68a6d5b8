/*
 * context.go - Mount context holding source, target, options and state
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

// Package mount carries a mount operation from option string to mount(2) and
// back. A Context holds the source, target and options of one mount; the
// veritydev package consumes it to provision dm-verity devices before the
// filesystem is mounted.
package mount

import (
	"log"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ErrNoSource indicates an attempt to clear the mount source.
var ErrNoSource = errors.New("mount source must not be empty")

// classicFlags maps flag-style option names to mount(2) flag bits. "rw" and
// the other clearing names intentionally map to zero; they only exist so the
// option parser recognizes them.
var classicFlags = map[string]uintptr{
	"ro":          unix.MS_RDONLY,
	"nosuid":      unix.MS_NOSUID,
	"nodev":       unix.MS_NODEV,
	"noexec":      unix.MS_NOEXEC,
	"sync":        unix.MS_SYNCHRONOUS,
	"noatime":     unix.MS_NOATIME,
	"nodiratime":  unix.MS_NODIRATIME,
	"relatime":    unix.MS_RELATIME,
	"strictatime": unix.MS_STRICTATIME,
	"lazytime":    unix.MS_LAZYTIME,
}

// Context describes one mount operation. It implements veritydev.Context, so
// verity setup can read its options, force flags and retarget its source.
type Context struct {
	source  string
	target  string
	fstype  string
	options Options

	mountFlags  uintptr
	succeeded   bool
	verityReady bool
}

// NewContext builds a mount context from the usual mount(8) arguments. Flag
// names in the option string (ro, nosuid, ...) are translated into mount
// flags immediately; the remaining options stay available for lookup.
func NewContext(source, target, fstype, optstring string) *Context {
	cxt := &Context{
		source:  source,
		target:  target,
		fstype:  fstype,
		options: ParseOptions(optstring),
	}
	for _, opt := range cxt.options {
		if flag, ok := classicFlags[opt.Name]; ok {
			cxt.mountFlags |= flag
		}
	}
	return cxt
}

// OptionValue looks up a mount option by name.
func (cxt *Context) OptionValue(name string) (string, bool) {
	return cxt.options.Get(name)
}

// AppendFlags adds bits to the mount(2) flags.
func (cxt *Context) AppendFlags(flags uintptr) {
	cxt.mountFlags |= flags
}

// MountFlags returns the accumulated mount(2) flags.
func (cxt *Context) MountFlags() uintptr {
	return cxt.mountFlags
}

// Source returns the current mount source. After verity setup this is the
// mapped device, not the original backing file.
func (cxt *Context) Source() string {
	return cxt.source
}

// SetSource replaces the mount source.
func (cxt *Context) SetSource(source string) error {
	if source == "" {
		return ErrNoSource
	}
	cxt.Debugf("source: %s -> %s", cxt.source, source)
	cxt.source = source
	return nil
}

// Target returns the mountpoint.
func (cxt *Context) Target() string {
	return cxt.target
}

// MountSucceeded reports whether the mount or unmount carried by this context
// completed successfully.
func (cxt *Context) MountSucceeded() bool {
	return cxt.succeeded
}

// VerityReady reports whether this context holds an activated verity device.
func (cxt *Context) VerityReady() bool {
	return cxt.verityReady
}

// SetVerityReady records whether this context holds an activated verity
// device.
func (cxt *Context) SetVerityReady(ready bool) {
	cxt.verityReady = ready
}

// Debugf writes to the standard logger, which the command line tool discards
// unless verbose output was requested.
func (cxt *Context) Debugf(format string, args ...interface{}) {
	log.Printf(format, args...)
}

// usesVerityMapping reports whether the source sits in the mapper namespace
// this tool manages.
func usesVerityMapping(source string) bool {
	return strings.HasPrefix(source, "/dev/mapper/libmnt_")
}
