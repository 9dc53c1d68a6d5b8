/*
 * mount.go - Mounting and unmounting with verity provisioning
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

package mount

import (
	"log"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/util-linux/veritymount/veritydev"
)

// Mount performs the mount described by the context. When verity options are
// present, the dm-verity device is activated first and the filesystem is
// mounted from the mapped device. A mount failure tears the freshly created
// device back down, so a failed mount leaves no state behind.
func (cxt *Context) Mount() error {
	isVerity, err := veritydev.IsVerityDevice(cxt)
	if err != nil {
		return err
	}
	if isVerity {
		if err := veritydev.Setup(cxt); err != nil {
			return err
		}
	}

	data := cxt.options.KernelString()
	if err := unix.Mount(cxt.source, cxt.target, cxt.fstype, cxt.mountFlags, data); err != nil {
		mountErr := errors.Wrapf(err, "cannot mount %s on %s", cxt.source, cxt.target)
		if cleanupErr := veritydev.DeferredDelete(cxt); cleanupErr != nil {
			log.Printf("cleaning up verity device: %v", cleanupErr)
		}
		return mountErr
	}

	cxt.succeeded = true
	if cxt.verityReady {
		// The device must outlive this process; unmounting releases it
		// and the deferred removal completes.
		if err := veritydev.DeferredDelete(cxt); err != nil {
			log.Printf("scheduling verity device removal: %v", err)
		}
	}
	return nil
}

// NewUnmountContext builds a context for unmounting target by looking the
// mount up in /proc/self/mountinfo. If the mount's source is a verity device
// we created, the context is primed so Unmount tears it down.
func NewUnmountContext(target string) (*Context, error) {
	info, err := FindMount(target)
	if err != nil {
		return nil, err
	}

	cxt := &Context{
		source:  info.Source,
		target:  info.Target,
		fstype:  info.FilesystemType,
		options: ParseOptions(info.Options),
	}
	if usesVerityMapping(cxt.source) {
		cxt.verityReady = true
	}
	return cxt, nil
}

// Unmount unmounts the context's target and removes the verity device backing
// it, if any. The removal is deferred, so a device still referenced elsewhere
// stays until its last user is gone.
func (cxt *Context) Unmount() error {
	if err := unix.Unmount(cxt.target, 0); err != nil {
		return errors.Wrapf(err, "cannot unmount %s", cxt.target)
	}
	cxt.succeeded = true

	// A device activated by us was already marked for deferred removal at
	// mount time, so it may be gone by the time we look. That is success,
	// not an error.
	if err := veritydev.DeferredDelete(cxt); err != nil {
		if errors.Is(err, veritydev.ErrDeviceOpen) {
			log.Printf("verity device already removed: %v", err)
			return nil
		}
		return err
	}
	return nil
}
