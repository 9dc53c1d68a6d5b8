/*
 * veritydev.go - Setup and teardown of dm-verity devices for mounting
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

// Package veritydev provisions dm-verity mapped devices from verity.* mount
// options. Setup reads the options off a mount context, activates (or reuses)
// a mapped device named after the backing file, and rewrites the context's
// source to point at /dev/mapper. DeferredDelete tears the device down again
// once the filesystem is unmounted.
//
// The package talks to libcryptsetup through a small backend interface with
// three implementations selected by build tags: a directly linked cgo
// backend, a dlopen-based backend (build tag verity_dlopen), and a stub for
// builds without cgo.
package veritydev

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// mapperNamePrefix marks device-mapper targets created by this package, so
// teardown never touches verity devices activated by other tools.
const mapperNamePrefix = "libmnt_"

// devMapperDir is where device-mapper exposes active targets.
const devMapperDir = "/dev/mapper"

// Context is the slice of a mount context that verity setup needs. The
// concrete implementation lives in the mount package; tests substitute a
// fake.
type Context interface {
	// OptionValue looks up a mount option by name. The bool reports
	// whether the option is present at all; a present option may still
	// have an empty value.
	OptionValue(name string) (string, bool)

	// AppendFlags adds to the mount flags that will be passed to the
	// kernel. Setup uses it to force a read-only mount.
	AppendFlags(flags uintptr)

	// Source returns the current mount source.
	Source() string

	// SetSource replaces the mount source. Setup points it at the mapped
	// device after a successful activation.
	SetSource(source string) error

	// MountSucceeded reports whether the mount using this context was
	// completed. It decides between deferred and immediate deactivation.
	MountSucceeded() bool

	// VerityReady reports whether Setup already ran to completion on this
	// context. SetVerityReady records that state.
	VerityReady() bool
	SetVerityReady(ready bool)

	// Debugf logs a diagnostic line. The mount package routes this to the
	// standard logger when verbose output is enabled.
	Debugf(format string, args ...interface{})
}

// MapperName derives the device-mapper target name for a backing device, the
// prefix plus the last path component. "/images/root.img" maps to
// "libmnt_root.img".
func MapperName(backing string) string {
	return mapperNamePrefix + filepath.Base(backing)
}

// mapperPath is the /dev/mapper node for a target name.
func mapperPath(name string) string {
	return filepath.Join(devMapperDir, name)
}

// verityOptionNames are the options whose presence makes a mount a verity
// mount. The remaining verity.* options only refine the configuration.
var verityOptionNames = []string{
	"verity.hashdevice",
	"verity.roothash",
	"verity.roothashfile",
	"verity.hashoffset",
}

// IsVerityDevice reports whether the context describes a verity-protected
// mount, either by carrying verity.* options or by already pointing at a
// mapped device we created. If verity options are present but the build has
// no crypto backend, it reports true together with ErrBackendUnavailable so
// the caller fails loudly instead of mounting the raw backing device.
func IsVerityDevice(cxt Context) (bool, error) {
	for _, name := range verityOptionNames {
		if _, ok := cxt.OptionValue(name); ok {
			if !backendSupported {
				return true, errors.Wrap(ErrBackendUnavailable,
					"verity options specified")
			}
			return true, nil
		}
	}
	if strings.HasPrefix(cxt.Source(), devMapperDir+"/"+mapperNamePrefix) {
		return true, nil
	}
	return false, nil
}

// Setup activates the dm-verity device described by the context's verity.*
// options and retargets the context's source at the resulting /dev/mapper
// node. A verity volume is read-only by construction, so the mount flags are
// forced to include MS_RDONLY. If a device with the derived name already
// exists, it is reused when its root hash and signature state match the
// request, and rejected otherwise.
//
// On success the context is marked verity-ready; DeferredDelete consults
// that mark, so Setup and DeferredDelete must be paired on the same context.
func Setup(cxt Context) error {
	backing := cxt.Source()
	if backing == "" {
		return errors.Wrap(ErrInvalidArgument, "no mount source")
	}

	opts, err := ExtractOptions(cxt)
	if err != nil {
		return err
	}

	// dm-verity is verification only. Writing through the mapping is
	// impossible, so the mount must be read-only.
	cxt.AppendFlags(unix.MS_RDONLY)

	b, err := bindBackend(cxt)
	if err != nil {
		return err
	}
	defer b.Close()

	return activate(cxt, b, backing, opts)
}

// DeferredDelete deactivates the mapped device that Setup created. When the
// mount succeeded, the deactivation is deferred: device-mapper removes the
// target once the filesystem releases it on unmount. When the mount failed,
// nothing holds the device and it is removed immediately.
//
// Contexts that never completed Setup, and sources outside our /dev/mapper
// namespace, are left alone.
func DeferredDelete(cxt Context) error {
	if !cxt.VerityReady() {
		return nil
	}

	src := cxt.Source()
	if !strings.HasPrefix(src, devMapperDir+"/"+mapperNamePrefix) {
		cxt.Debugf("source %s is not a verity mapping we created, not deleting", src)
		return nil
	}

	b, err := bindBackend(cxt)
	if err != nil {
		return err
	}
	defer b.Close()

	dev, err := b.OpenByName(src)
	if err != nil {
		return errors.Wrapf(ErrDeviceOpen, "cannot initialize %s: %v", src, err)
	}
	defer dev.Free()

	deferred := cxt.MountSucceeded()
	if err := dev.Deactivate(src, deferred); err != nil {
		return errors.Wrapf(err, "cannot deactivate %s", src)
	}

	cxt.Debugf("deactivated %s (deferred=%v)", src, deferred)
	cxt.SetVerityReady(false)
	return nil
}
