/*
 * backend_linked.go - Crypto backend linked directly against libcryptsetup
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

//go:build linux && cgo && !verity_dlopen

package veritydev

/*
#cgo LDFLAGS: -lcryptsetup

#include <stdlib.h>
#include <libcryptsetup.h>

extern void veritymountLogCallback(int level, char *msg);

static void veritymount_log_gateway(int level, const char *msg, void *usrptr) {
	veritymountLogCallback(level, (char *)msg);
}

static void veritymount_install_log(struct crypt_device *cd) {
	crypt_set_log_callback(cd, veritymount_log_gateway, NULL);
}

static int veritymount_load_verity(struct crypt_device *cd,
				   struct crypt_params_verity *params) {
	return crypt_load(cd, CRYPT_VERITY, params);
}
*/
import "C"

import (
	"syscall"
	"unsafe"

	"github.com/util-linux/veritymount/crypto"
	"github.com/util-linux/veritymount/util"
)

const backendSupported = true

// cryptError converts a negative libcryptsetup return code into an errno
// error. syscall.Errno classifies EEXIST as os.ErrExist, which the
// activation path relies on.
func cryptError(rc C.int) error {
	return syscall.Errno(-rc)
}

type linkedBackend struct{}

// openBackend binds the directly linked libcryptsetup. There is nothing to
// load at runtime, so this only routes the library's log output to the
// context. The debug level is always raised; the messages land on the
// standard logger, which is discarded unless verbose output is on.
func openBackend(cxt Context) (backend, error) {
	setDebugSink(cxt)
	C.crypt_set_debug_level(C.CRYPT_DEBUG_ALL)
	return &linkedBackend{}, nil
}

func (b *linkedBackend) Close() error {
	clearDebugSink()
	return nil
}

// The linked build requires libcryptsetup 2.3+ headers, which carry both
// signed activation and the panic-on-corruption flag.
func (b *linkedBackend) SupportsSignedActivation() bool  { return true }
func (b *linkedBackend) SupportsPanicOnCorruption() bool { return true }

func (b *linkedBackend) OpenDataDevice(hashDevice, dataDevice string) (blockDevice, error) {
	cHash := C.CString(hashDevice)
	defer C.free(unsafe.Pointer(cHash))
	cData := C.CString(dataDevice)
	defer C.free(unsafe.Pointer(cData))

	var cd *C.struct_crypt_device
	if rc := C.crypt_init_data_device(&cd, cHash, cData); rc < 0 {
		return nil, cryptError(rc)
	}
	C.veritymount_install_log(cd)
	return &linkedDevice{cd: cd}, nil
}

func (b *linkedBackend) OpenByName(name string) (blockDevice, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	var cd *C.struct_crypt_device
	if rc := C.crypt_init_by_name(&cd, cName); rc < 0 {
		return nil, cryptError(rc)
	}
	C.veritymount_install_log(cd)
	return &linkedDevice{cd: cd}, nil
}

type linkedDevice struct {
	cd *C.struct_crypt_device
}

func (d *linkedDevice) LoadVerityParams(params *VerityParams) error {
	var cParams C.struct_crypt_params_verity
	cParams.hash_area_offset = C.uint64_t(params.HashAreaOffset)
	cParams.fec_area_offset = C.uint64_t(params.FecAreaOffset)
	cParams.fec_roots = C.uint32_t(params.FecRoots)
	if params.FecDevice != "" {
		cFec := C.CString(params.FecDevice)
		defer C.free(unsafe.Pointer(cFec))
		cParams.fec_device = cFec
	}

	if rc := C.veritymount_load_verity(d.cd, &cParams); rc < 0 {
		return cryptError(rc)
	}
	return nil
}

func (d *linkedDevice) VolumeKeySize() int {
	return int(C.crypt_get_volume_key_size(d.cd))
}

func (d *linkedDevice) ActivateByVolumeKey(name string, key *crypto.Key, flags ActivateFlags) error {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	rc := C.crypt_activate_by_volume_key(d.cd, cName,
		(*C.char)(util.Ptr(key.UnsafeData())), C.size_t(key.Len()),
		C.uint32_t(flags))
	if rc < 0 {
		return cryptError(rc)
	}
	return nil
}

func (d *linkedDevice) ActivateBySignedKey(name string, key *crypto.Key, signature []byte, flags ActivateFlags) error {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	rc := C.crypt_activate_by_signed_key(d.cd, cName,
		(*C.char)(util.Ptr(key.UnsafeData())), C.size_t(key.Len()),
		(*C.char)(util.Ptr(signature)), C.size_t(len(signature)),
		C.uint32_t(flags))
	if rc < 0 {
		return cryptError(rc)
	}
	return nil
}

func (d *linkedDevice) VerityInfo() (*VerityInfo, error) {
	var cParams C.struct_crypt_params_verity
	if rc := C.crypt_get_verity_info(d.cd, &cParams); rc < 0 {
		return nil, cryptError(rc)
	}
	return &VerityInfo{
		UsesSignature: cParams.flags&C.CRYPT_VERITY_ROOT_HASH_SIGNATURE != 0,
	}, nil
}

func (d *linkedDevice) VolumeKey(size int) (*crypto.Key, error) {
	key, err := crypto.NewBlankKey(size)
	if err != nil {
		return nil, err
	}

	cSize := C.size_t(size)
	rc := C.crypt_volume_key_get(d.cd, C.CRYPT_ANY_SLOT,
		(*C.char)(util.Ptr(key.UnsafeData())), &cSize, nil, 0)
	if rc < 0 {
		key.Wipe()
		return nil, cryptError(rc)
	}
	if int(cSize) != size {
		key.Wipe()
		return nil, util.InvalidLengthError("volume key", size, int(cSize))
	}
	return key, nil
}

func (d *linkedDevice) Deactivate(name string, deferred bool) error {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	var flags C.uint32_t
	if deferred {
		flags |= C.CRYPT_DEACTIVATE_DEFERRED
	}
	if rc := C.crypt_deactivate_by_name(d.cd, cName, flags); rc < 0 {
		return cryptError(rc)
	}
	return nil
}

func (d *linkedDevice) Free() {
	if d.cd != nil {
		C.crypt_free(d.cd)
		d.cd = nil
	}
}
