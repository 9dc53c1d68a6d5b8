/*
 * backend.go - Crypto backend interface for verity activation
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
	"github.com/util-linux/veritymount/crypto"
)

// ActivateFlags are passed to device activation. The values mirror the
// libcryptsetup CRYPT_ACTIVATE_* constants so the cgo backends can hand them
// straight through.
type ActivateFlags uint32

const (
	// ActivateReadonly maps the device read-only.
	ActivateReadonly ActivateFlags = 1 << 0
	// ActivateIgnoreCorruption makes reads of bad blocks succeed.
	ActivateIgnoreCorruption ActivateFlags = 1 << 8
	// ActivateRestartOnCorruption reboots on the first bad block.
	ActivateRestartOnCorruption ActivateFlags = 1 << 9
	// ActivatePanicOnCorruption panics the kernel on the first bad block.
	ActivatePanicOnCorruption ActivateFlags = 1 << 18
)

// VerityParams carries the caller-supplied parts of the verity superblock
// configuration. Everything else (hash algorithm, block sizes, salt) is read
// from the superblock on the hash device.
type VerityParams struct {
	HashAreaOffset uint64
	FecAreaOffset  uint64
	FecRoots       uint64
	FecDevice      string
}

// VerityInfo describes an already-active verity mapping.
type VerityInfo struct {
	// UsesSignature reports whether the mapping was activated with a
	// signed root hash.
	UsesSignature bool
}

// backend is one loaded cryptsetup library. Backends are bound per call and
// must be closed; they are not safe for concurrent use.
type backend interface {
	// OpenDataDevice initializes a device handle for activation, with the
	// hash tree on hashDevice and the payload on dataDevice.
	OpenDataDevice(hashDevice, dataDevice string) (blockDevice, error)

	// OpenByName initializes a handle for an already-active mapping,
	// given its /dev/mapper path or target name.
	OpenByName(name string) (blockDevice, error)

	// SupportsSignedActivation reports whether the library can activate
	// with a signed root hash.
	SupportsSignedActivation() bool

	// SupportsPanicOnCorruption reports whether the library knows the
	// panic-on-corruption activation flag.
	SupportsPanicOnCorruption() bool

	// Close releases the library binding.
	Close() error
}

// blockDevice is one cryptsetup device handle.
type blockDevice interface {
	// LoadVerityParams reads the verity superblock and applies the
	// caller's offsets and FEC settings.
	LoadVerityParams(params *VerityParams) error

	// VolumeKeySize is the expected root hash length in bytes, valid
	// after LoadVerityParams.
	VolumeKeySize() int

	// ActivateByVolumeKey creates the mapping under name using the
	// decoded root hash as the volume key.
	ActivateByVolumeKey(name string, key *crypto.Key, flags ActivateFlags) error

	// ActivateBySignedKey is like ActivateByVolumeKey but also passes a
	// PKCS#7 signature for kernel keyring verification.
	ActivateBySignedKey(name string, key *crypto.Key, signature []byte, flags ActivateFlags) error

	// VerityInfo describes the active mapping behind an OpenByName
	// handle.
	VerityInfo() (*VerityInfo, error)

	// VolumeKey reads back the root hash of an active mapping into a
	// fresh key buffer of the given size.
	VolumeKey(size int) (*crypto.Key, error)

	// Deactivate removes the mapping. With deferred set, removal waits
	// until the last user closes the device.
	Deactivate(name string, deferred bool) error

	// Free releases the handle.
	Free()
}

// bindBackend opens the cryptsetup backend. It is a variable so tests can
// substitute a fake.
var bindBackend = openBackend
