/*
 * backend_dlopen.go - Crypto backend loading libcryptsetup at runtime
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

//go:build linux && cgo && verity_dlopen

// The dlopen backend keeps libcryptsetup out of the binary's link-time
// dependencies. Mounts without verity options then work on systems that do
// not ship the library at all; only mounts that actually ask for verity need
// it present.

package veritydev

/*
#cgo LDFLAGS: -ldl

#include <dlfcn.h>
#include <stddef.h>
#include <stdint.h>
#include <stdlib.h>

// Minimal declarations mirroring libcryptsetup.h. The header is deliberately
// not included; this backend must build without the development package. The
// struct layout matches every libcryptsetup 2.x release.
struct crypt_device;

struct crypt_params_verity {
	const char *hash_name;
	const char *data_device;
	const char *hash_device;
	const char *fec_device;
	const char *salt;
	uint32_t salt_size;
	uint32_t hash_type;
	uint32_t data_block_size;
	uint32_t hash_block_size;
	uint64_t data_size;
	uint64_t hash_area_offset;
	uint64_t fec_area_offset;
	uint32_t fec_roots;
	uint32_t flags;
};

static void *veritymount_dlopen_cryptsetup(const char *soname) {
	int flags = RTLD_LAZY | RTLD_LOCAL;
	// The library registers atexit handlers; never let it be unmapped.
#ifdef RTLD_NODELETE
	flags |= RTLD_NODELETE;
#endif
	// Prefer the library's own symbols over anything in the main binary.
#ifdef RTLD_DEEPBIND
	flags |= RTLD_DEEPBIND;
#endif
	return dlopen(soname, flags);
}

extern void veritymountLogCallback(int level, char *msg);

static void veritymount_log_gateway(int level, const char *msg, void *usrptr) {
	veritymountLogCallback(level, (char *)msg);
}

typedef int (*fn_init_data_device)(struct crypt_device **, const char *, const char *);
typedef int (*fn_init_by_name)(struct crypt_device **, const char *);
typedef int (*fn_load)(struct crypt_device *, const char *, void *);
typedef int (*fn_get_volume_key_size)(struct crypt_device *);
typedef int (*fn_activate_by_volume_key)(struct crypt_device *, const char *,
					 const char *, size_t, uint32_t);
typedef int (*fn_activate_by_signed_key)(struct crypt_device *, const char *,
					 const char *, size_t, const char *,
					 size_t, uint32_t);
typedef int (*fn_get_verity_info)(struct crypt_device *, struct crypt_params_verity *);
typedef int (*fn_volume_key_get)(struct crypt_device *, int, char *, size_t *,
				 const char *, size_t);
typedef int (*fn_deactivate_by_name)(struct crypt_device *, const char *, uint32_t);
typedef void (*fn_free)(struct crypt_device *);
typedef void (*fn_set_log_callback)(struct crypt_device *,
				    void (*)(int, const char *, void *), void *);

static int call_init_data_device(void *fn, struct crypt_device **cd,
				 const char *device, const char *data_device) {
	return ((fn_init_data_device)fn)(cd, device, data_device);
}

static int call_init_by_name(void *fn, struct crypt_device **cd, const char *name) {
	return ((fn_init_by_name)fn)(cd, name);
}

static int call_load_verity(void *fn, struct crypt_device *cd,
			    struct crypt_params_verity *params) {
	return ((fn_load)fn)(cd, "VERITY", params);
}

static int call_get_volume_key_size(void *fn, struct crypt_device *cd) {
	return ((fn_get_volume_key_size)fn)(cd);
}

static int call_activate_by_volume_key(void *fn, struct crypt_device *cd,
				       const char *name, const char *key,
				       size_t key_size, uint32_t flags) {
	return ((fn_activate_by_volume_key)fn)(cd, name, key, key_size, flags);
}

static int call_activate_by_signed_key(void *fn, struct crypt_device *cd,
				       const char *name, const char *key,
				       size_t key_size, const char *signature,
				       size_t signature_size, uint32_t flags) {
	return ((fn_activate_by_signed_key)fn)(cd, name, key, key_size,
					       signature, signature_size, flags);
}

static int call_get_verity_info(void *fn, struct crypt_device *cd,
				struct crypt_params_verity *params) {
	return ((fn_get_verity_info)fn)(cd, params);
}

static int call_volume_key_get(void *fn, struct crypt_device *cd, int keyslot,
			       char *volume_key, size_t *volume_key_size) {
	return ((fn_volume_key_get)fn)(cd, keyslot, volume_key, volume_key_size,
				       NULL, 0);
}

static int call_deactivate_by_name(void *fn, struct crypt_device *cd,
				   const char *name, uint32_t flags) {
	return ((fn_deactivate_by_name)fn)(cd, name, flags);
}

static void call_free(void *fn, struct crypt_device *cd) {
	((fn_free)fn)(cd);
}

static void call_install_log(void *fn, struct crypt_device *cd) {
	((fn_set_log_callback)fn)(cd, veritymount_log_gateway, NULL);
}

typedef void (*fn_set_debug_level)(int);

static void call_set_debug_level(void *fn, int level) {
	((fn_set_debug_level)fn)(level);
}
*/
import "C"

import (
	"syscall"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/util-linux/veritymount/crypto"
	"github.com/util-linux/veritymount/util"
)

const backendSupported = true

// cryptsetupSoname is the versioned shared object we load. Pinning the
// soname instead of libcryptsetup.so avoids depending on the development
// symlink.
const cryptsetupSoname = "libcryptsetup.so.12"

// Values lifted from libcryptsetup.h, which this backend does not include.
const (
	cryptAnySlot                 = C.int(-1)
	cryptVerityRootHashSignature = C.uint32_t(1 << 3)
	cryptDeactivateDeferred      = C.uint32_t(1 << 0)
	cryptDebugAll                = C.int(-1)
)

// cryptError converts a negative libcryptsetup return code into an errno
// error. syscall.Errno classifies EEXIST as os.ErrExist, which the
// activation path relies on.
func cryptError(rc C.int) error {
	return syscall.Errno(-rc)
}

type dlopenBackend struct {
	handle unsafe.Pointer

	initDataDevice      unsafe.Pointer
	initByName          unsafe.Pointer
	load                unsafe.Pointer
	getVolumeKeySize    unsafe.Pointer
	activateByVolumeKey unsafe.Pointer
	getVerityInfo       unsafe.Pointer
	volumeKeyGet        unsafe.Pointer
	deactivateByName    unsafe.Pointer
	free                unsafe.Pointer
	setLogCallback      unsafe.Pointer

	// activateBySignedKey stays nil on libraries older than 2.3.0.
	activateBySignedKey unsafe.Pointer
}

func dlError() string {
	if msg := C.dlerror(); msg != nil {
		return C.GoString(msg)
	}
	return "unknown dlopen error"
}

func (b *dlopenBackend) dlsym(name string) unsafe.Pointer {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	return C.dlsym(b.handle, cName)
}

// openBackend loads libcryptsetup and resolves the symbols verity setup
// needs. A missing library or missing required symbol makes the whole
// backend unavailable; only signed activation is optional.
func openBackend(cxt Context) (backend, error) {
	cSoname := C.CString(cryptsetupSoname)
	defer C.free(unsafe.Pointer(cSoname))

	handle := C.veritymount_dlopen_cryptsetup(cSoname)
	if handle == nil {
		cxt.Debugf("cannot load %s: %s", cryptsetupSoname, dlError())
		return nil, errors.Wrapf(ErrBackendUnavailable, "cannot load %s", cryptsetupSoname)
	}

	b := &dlopenBackend{handle: handle}
	required := []struct {
		name string
		dst  *unsafe.Pointer
	}{
		{"crypt_init_data_device", &b.initDataDevice},
		{"crypt_init_by_name", &b.initByName},
		{"crypt_load", &b.load},
		{"crypt_get_volume_key_size", &b.getVolumeKeySize},
		{"crypt_activate_by_volume_key", &b.activateByVolumeKey},
		{"crypt_get_verity_info", &b.getVerityInfo},
		{"crypt_volume_key_get", &b.volumeKeyGet},
		{"crypt_deactivate_by_name", &b.deactivateByName},
		{"crypt_free", &b.free},
		{"crypt_set_log_callback", &b.setLogCallback},
	}
	for _, sym := range required {
		if *sym.dst = b.dlsym(sym.name); *sym.dst == nil {
			cxt.Debugf("cannot resolve symbol %s in %s", sym.name, cryptsetupSoname)
			C.dlclose(handle)
			return nil, errors.Wrapf(ErrBackendUnavailable,
				"cannot resolve symbol %s in %s", sym.name, cryptsetupSoname)
		}
	}
	b.activateBySignedKey = b.dlsym("crypt_activate_by_signed_key")

	setDebugSink(cxt)
	// Raise the library's debug level; its output goes through the log
	// bridge to the standard logger, discarded unless verbose is on.
	if setDebugLevel := b.dlsym("crypt_set_debug_level"); setDebugLevel != nil {
		C.call_set_debug_level(setDebugLevel, cryptDebugAll)
	}
	return b, nil
}

func (b *dlopenBackend) Close() error {
	clearDebugSink()
	if b.handle != nil {
		C.dlclose(b.handle)
		b.handle = nil
	}
	return nil
}

func (b *dlopenBackend) SupportsSignedActivation() bool {
	return b.activateBySignedKey != nil
}

// SupportsPanicOnCorruption uses the signed-key symbol as a version probe.
// Both features arrived in the libcryptsetup 2.3 series, and an older
// library would reject the unknown flag instead of honoring it.
func (b *dlopenBackend) SupportsPanicOnCorruption() bool {
	return b.activateBySignedKey != nil
}

func (b *dlopenBackend) OpenDataDevice(hashDevice, dataDevice string) (blockDevice, error) {
	cHash := C.CString(hashDevice)
	defer C.free(unsafe.Pointer(cHash))
	cData := C.CString(dataDevice)
	defer C.free(unsafe.Pointer(cData))

	var cd *C.struct_crypt_device
	if rc := C.call_init_data_device(b.initDataDevice, &cd, cHash, cData); rc < 0 {
		return nil, cryptError(rc)
	}
	C.call_install_log(b.setLogCallback, cd)
	return &dlopenDevice{b: b, cd: cd}, nil
}

func (b *dlopenBackend) OpenByName(name string) (blockDevice, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	var cd *C.struct_crypt_device
	if rc := C.call_init_by_name(b.initByName, &cd, cName); rc < 0 {
		return nil, cryptError(rc)
	}
	C.call_install_log(b.setLogCallback, cd)
	return &dlopenDevice{b: b, cd: cd}, nil
}

type dlopenDevice struct {
	b  *dlopenBackend
	cd *C.struct_crypt_device
}

func (d *dlopenDevice) LoadVerityParams(params *VerityParams) error {
	var cParams C.struct_crypt_params_verity
	cParams.hash_area_offset = C.uint64_t(params.HashAreaOffset)
	cParams.fec_area_offset = C.uint64_t(params.FecAreaOffset)
	cParams.fec_roots = C.uint32_t(params.FecRoots)
	if params.FecDevice != "" {
		cFec := C.CString(params.FecDevice)
		defer C.free(unsafe.Pointer(cFec))
		cParams.fec_device = cFec
	}

	if rc := C.call_load_verity(d.b.load, d.cd, &cParams); rc < 0 {
		return cryptError(rc)
	}
	return nil
}

func (d *dlopenDevice) VolumeKeySize() int {
	return int(C.call_get_volume_key_size(d.b.getVolumeKeySize, d.cd))
}

func (d *dlopenDevice) ActivateByVolumeKey(name string, key *crypto.Key, flags ActivateFlags) error {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	rc := C.call_activate_by_volume_key(d.b.activateByVolumeKey, d.cd, cName,
		(*C.char)(util.Ptr(key.UnsafeData())), C.size_t(key.Len()),
		C.uint32_t(flags))
	if rc < 0 {
		return cryptError(rc)
	}
	return nil
}

func (d *dlopenDevice) ActivateBySignedKey(name string, key *crypto.Key, signature []byte, flags ActivateFlags) error {
	if d.b.activateBySignedKey == nil {
		return errors.Wrap(ErrBackendUnavailable,
			"crypt_activate_by_signed_key is not available")
	}
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	rc := C.call_activate_by_signed_key(d.b.activateBySignedKey, d.cd, cName,
		(*C.char)(util.Ptr(key.UnsafeData())), C.size_t(key.Len()),
		(*C.char)(util.Ptr(signature)), C.size_t(len(signature)),
		C.uint32_t(flags))
	if rc < 0 {
		return cryptError(rc)
	}
	return nil
}

func (d *dlopenDevice) VerityInfo() (*VerityInfo, error) {
	var cParams C.struct_crypt_params_verity
	if rc := C.call_get_verity_info(d.b.getVerityInfo, d.cd, &cParams); rc < 0 {
		return nil, cryptError(rc)
	}
	return &VerityInfo{
		UsesSignature: cParams.flags&cryptVerityRootHashSignature != 0,
	}, nil
}

func (d *dlopenDevice) VolumeKey(size int) (*crypto.Key, error) {
	key, err := crypto.NewBlankKey(size)
	if err != nil {
		return nil, err
	}

	cSize := C.size_t(size)
	rc := C.call_volume_key_get(d.b.volumeKeyGet, d.cd, cryptAnySlot,
		(*C.char)(util.Ptr(key.UnsafeData())), &cSize)
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

func (d *dlopenDevice) Deactivate(name string, deferred bool) error {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	var flags C.uint32_t
	if deferred {
		flags |= cryptDeactivateDeferred
	}
	if rc := C.call_deactivate_by_name(d.b.deactivateByName, d.cd, cName, flags); rc < 0 {
		return cryptError(rc)
	}
	return nil
}

func (d *dlopenDevice) Free() {
	if d.cd != nil {
		C.call_free(d.b.free, d.cd)
		d.cd = nil
	}
}
