/*
 * device.go - Activation and reuse of dm-verity mappings
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

package veritydev

import (
	"encoding/hex"
	"os"

	"github.com/pkg/errors"

	"github.com/util-linux/veritymount/crypto"
)

// activate creates the dm-verity mapping for backing and points the context
// at it. When a mapping with our name already exists, it is reconciled
// against the requested configuration instead of failing outright.
func activate(cxt Context, b backend, backing string, opts *Options) error {
	name := MapperName(backing)
	cxt.Debugf("preparing verity device %s for %s", name, backing)

	dev, err := b.OpenDataDevice(opts.HashDevice, backing)
	if err != nil {
		return errors.Wrapf(ErrDeviceOpen, "cannot initialize %s with hash device %s: %v",
			backing, opts.HashDevice, err)
	}
	defer func() {
		if dev != nil {
			dev.Free()
		}
	}()

	params := &VerityParams{
		HashAreaOffset: opts.HashOffset,
		FecAreaOffset:  opts.FecOffset,
		FecRoots:       opts.FecRoots,
		FecDevice:      opts.FecDevice,
	}
	if err := dev.LoadVerityParams(params); err != nil {
		return errors.Wrapf(ErrParamsInvalid, "cannot load verity superblock of %s: %v",
			opts.HashDevice, err)
	}

	keySize := dev.VolumeKeySize()
	if hex.DecodedLen(len(opts.RootHash)) != keySize {
		return errors.Wrapf(ErrInvalidArgument, "root hash %s is not of length %d",
			opts.RootHash, keySize)
	}
	key, err := crypto.NewKeyFromHexString(opts.RootHash)
	if err != nil {
		return errors.Wrapf(ErrInvalidArgument, "cannot decode root hash: %v", err)
	}
	defer key.Wipe()

	flags := activationFlags(cxt, b, opts)

	if len(opts.HashSig) > 0 {
		if !b.SupportsSignedActivation() {
			cxt.Debugf("verity.roothashsig requires activation by signed key, not supported by crypto backend")
			return errors.Wrap(ErrInvalidArgument,
				"root hash signatures are not supported by the crypto backend")
		}
		err = dev.ActivateBySignedKey(name, key, opts.HashSig, flags)
	} else {
		err = dev.ActivateByVolumeKey(name, key, flags)
	}

	if err != nil {
		if !errors.Is(err, os.ErrExist) {
			return errors.Wrapf(err, "cannot activate %s", name)
		}
		// Someone already mapped this backing file, most likely an
		// earlier mount of the same image. Reuse the device if it was
		// activated with the same root hash, fail otherwise.
		dev.Free()
		dev = nil
		if err := reconcile(cxt, b, name, key, len(opts.HashSig) > 0); err != nil {
			return err
		}
	}

	cxt.SetVerityReady(true)
	return cxt.SetSource(mapperPath(name))
}

// reconcile checks an existing mapping named name against the requested root
// hash and signature state. Any failure to inspect the device is reported as
// ErrAlreadyExists since the device cannot be proven safe to reuse.
func reconcile(cxt Context, b backend, name string, key *crypto.Key, wantSig bool) error {
	existing, err := b.OpenByName(name)
	if err != nil {
		return errors.Wrapf(ErrAlreadyExists, "cannot initialize existing device %s: %v",
			name, err)
	}
	defer existing.Free()

	info, err := existing.VerityInfo()
	if err != nil {
		return errors.Wrapf(ErrAlreadyExists, "cannot query existing device %s: %v",
			name, err)
	}

	existingKey, err := existing.VolumeKey(key.Len())
	if err != nil {
		return errors.Wrapf(ErrAlreadyExists, "cannot read root hash of existing device %s: %v",
			name, err)
	}
	defer existingKey.Wipe()

	if !key.Equals(existingKey) {
		cxt.Debugf("existing device %s was activated with a different root hash", name)
		return errors.Wrapf(ErrInvalidArgument,
			"existing device %s's hash does not match", name)
	}
	if info.UsesSignature != wantSig {
		cxt.Debugf("existing device %s differs in root hash signature usage", name)
		return errors.Wrapf(ErrInvalidArgument,
			"existing device %s's signature usage does not match", name)
	}

	cxt.Debugf("root hash of %s matches %s, reusing device", name, key.HexString())
	return nil
}
