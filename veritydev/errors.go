/*
 * errors.go - Error types for verity device setup
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
	"github.com/pkg/errors"
)

// Errors returned by Setup and DeferredDelete. Failures coming out of the
// crypto backend are wrapped around one of these sentinels, so callers can
// classify them with errors.Is while still seeing the backend detail.
var (
	// ErrInvalidArgument indicates unusable verity options: a malformed
	// root hash, a hash of the wrong length, a signature without backend
	// support, or a mapped device that does not match what was requested.
	ErrInvalidArgument = errors.New("invalid verity configuration")

	// ErrBackendUnavailable indicates the cryptsetup library could not be
	// loaded, or the build has no verity support at all.
	ErrBackendUnavailable = errors.New("verity support is not available")

	// ErrDeviceOpen indicates the backing device could not be opened or
	// initialized by the crypto backend.
	ErrDeviceOpen = errors.New("cannot open verity device")

	// ErrParamsInvalid indicates the verity superblock or the caller's
	// offsets were rejected when loading the device parameters.
	ErrParamsInvalid = errors.New("cannot load verity parameters")

	// ErrAlreadyExists indicates a mapped device with our name exists but
	// could not be verified to match the requested configuration.
	ErrAlreadyExists = errors.New("verity device already exists and cannot be reused")
)

// BadOptionError indicates a verity.* mount option whose value could not be
// parsed or whose referenced file could not be read.
type BadOptionError struct {
	// Option is the full option name, e.g. "verity.hashoffset".
	Option string
	// Err is the underlying parse or I/O failure.
	Err error
}

func (e *BadOptionError) Error() string {
	return "bad option " + e.Option + ": " + e.Err.Error()
}

func (e *BadOptionError) Unwrap() error {
	return e.Err
}
