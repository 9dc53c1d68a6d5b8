/*
 * key.go - Key material management for veritymount. Ensures that sensitive
 * material (decoded root hashes, extracted volume keys) is properly handled
 * throughout the program.
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

// Package crypto manages buffers of key material. A dm-verity root hash is
// not secret in the way a passphrase is, but an extracted volume key read
// back from the kernel gets the same treatment: locked in memory while in
// use, zeroed and unmapped afterwards.
package crypto

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log"
	"runtime"

	"golang.org/x/sys/unix"
)

// Errors for bad key material handling.
var (
	ErrNegativeLength = errors.New("key length must not be negative")
	ErrKeyAlloc       = errors.New("could not allocate memory for key")
	ErrKeyFree        = errors.New("could not free memory of key")
)

/*
UseMlock determines whether we should use the mlock/munlock syscalls to
prevent sensitive data like keys from being paged to disk. UseMlock defaults
to true, but can be set to false if the application calling into this library
has insufficient privileges to lock memory.
*/
var UseMlock = true

/*
Key protects some arbitrary buffer of key material. Its methods ensure that
the Key's data is locked in memory before being used (if UseMlock is set to
true), and is wiped and unlocked after use (via the Wipe() method). If a key
is successfully created, the Wipe() method should be called after its use.
For example:

	key, err := NewKeyFromHexString(hexHash)
	if err != nil {
		return err
	}
	defer key.Wipe()

The Wipe() method will also be called when a key is garbage collected;
however, it is best practice to clear the key as soon as possible, so it
spends a minimal amount of time in memory.

Note that Key is not thread safe, as a key could be wiped while another
thread is using it.
*/
type Key struct {
	data []byte
}

const (
	// Keys need to be readable and writable, but hidden from other processes.
	keyProtection = unix.PROT_READ | unix.PROT_WRITE
	keyMmapFlags  = unix.MAP_PRIVATE | unix.MAP_ANONYMOUS
)

// NewBlankKey constructs a blank key of a specified length and returns an
// error if we are unable to allocate or lock the necessary memory.
func NewBlankKey(length int) (*Key, error) {
	if length == 0 {
		return &Key{data: nil}, nil
	} else if length < 0 {
		log.Printf("key length of %d is invalid", length)
		return nil, ErrNegativeLength
	}

	flags := keyMmapFlags
	if UseMlock {
		flags |= unix.MAP_LOCKED
	}

	// See MAP_ANONYMOUS in http://man7.org/linux/man-pages/man2/mmap.2.html
	data, err := unix.Mmap(-1, 0, length, keyProtection, flags)
	if err != nil {
		log.Printf("unix.Mmap() with length=%d failed: %v", length, err)
		return nil, ErrKeyAlloc
	}

	key := &Key{data: data}

	// Backup finalizer in case user forgets to "defer key.Wipe()"
	runtime.SetFinalizer(key, (*Key).Wipe)
	return key, nil
}

// NewKeyFromHexString constructs a key by strictly decoding a hex string: the
// input length must be even and every character must be a hex digit. Odd
// lengths and stray characters are rejected, never truncated.
func NewKeyFromHexString(hexStr string) (*Key, error) {
	key, err := NewBlankKey(hex.DecodedLen(len(hexStr)))
	if err != nil {
		return nil, err
	}
	if _, err := hex.Decode(key.data, []byte(hexStr)); err != nil {
		key.Wipe()
		return nil, err
	}
	return key, nil
}

// Wipe destroys a Key by zeroing and freeing the memory. The data is zeroed
// even if Wipe returns an error, which occurs if we are unable to unlock or
// free the key memory. Calling Wipe() multiple times on a key has no effect.
func (key *Key) Wipe() error {
	if key.data != nil {
		data := key.data
		key.data = nil

		for i := range data {
			data[i] = 0
		}

		if err := unix.Munmap(data); err != nil {
			log.Printf("unix.Munmap() failed: %v", err)
			return ErrKeyFree
		}
	}
	return nil
}

// Len is the underlying data buffer's length.
func (key *Key) Len() int {
	return len(key.data)
}

// UnsafeData exposes the underlying protected slice. This is unsafe because
// the data can be paged to disk if the buffer is copied, or the slice may be
// wiped while being used.
func (key *Key) UnsafeData() []byte {
	return key.data
}

// HexString encodes the key's data as a lowercase hex string.
func (key *Key) HexString() string {
	return hex.EncodeToString(key.data)
}

// Equals compares the contents of two keys, returning true if they have the
// same key data. This function runs in constant time.
func (key *Key) Equals(key2 *Key) bool {
	return subtle.ConstantTimeCompare(key.data, key2.data) == 1
}
