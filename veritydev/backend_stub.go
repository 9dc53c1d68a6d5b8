/*
 * backend_stub.go - Placeholder backend for builds without cgo
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

//go:build linux && !cgo

package veritydev

import (
	"github.com/pkg/errors"
)

const backendSupported = false

// openBackend always fails without cgo. IsVerityDevice still detects verity
// options in this configuration, so such mounts error out instead of
// silently mounting the unverified backing device.
func openBackend(cxt Context) (backend, error) {
	cxt.Debugf("built without libcryptsetup support")
	return nil, errors.Wrap(ErrBackendUnavailable, "built without libcryptsetup support")
}
