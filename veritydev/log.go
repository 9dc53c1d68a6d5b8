/*
 * log.go - Bridge from libcryptsetup log messages to the mount context
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

//go:build linux && cgo

package veritydev

// This file may only declare C symbols, not define them; cgo requires that
// for files containing //export directives. The gateway function handing
// messages to veritymountLogCallback lives in the backend preambles.
import "C"

// debugSink receives libcryptsetup's log lines while a backend is bound.
// Backends are bound per call and never shared across goroutines, so a plain
// package variable is enough.
var debugSink Context

func setDebugSink(cxt Context) {
	debugSink = cxt
}

func clearDebugSink() {
	debugSink = nil
}

//export veritymountLogCallback
func veritymountLogCallback(level C.int, msg *C.char) {
	if debugSink == nil {
		return
	}
	debugSink.Debugf("cryptsetup: %s", C.GoString(msg))
}
