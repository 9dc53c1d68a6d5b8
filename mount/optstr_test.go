/*
 * optstr_test.go - Tests for mount option string handling
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
	"testing"
)

func TestParseOptions(t *testing.T) {
	opts := ParseOptions("ro,verity.hashdevice=/img/root.hash,errors=remount-ro,discard")
	if len(opts) != 4 {
		t.Fatalf("parsed %d options: %v", len(opts), opts)
	}

	if value, ok := opts.Get("verity.hashdevice"); !ok || value != "/img/root.hash" {
		t.Errorf("verity.hashdevice = %q, %v", value, ok)
	}
	if value, ok := opts.Get("ro"); !ok || value != "" {
		t.Errorf("ro = %q, %v", value, ok)
	}
	if opts.Has("rw") {
		t.Error("absent option reported present")
	}
}

func TestParseOptionsEdgeCases(t *testing.T) {
	if opts := ParseOptions(""); len(opts) != 0 {
		t.Errorf("empty string parsed as %v", opts)
	}
	// Stray commas are dropped, empty values preserved.
	opts := ParseOptions(",ro,,data=")
	if len(opts) != 2 {
		t.Fatalf("parsed %v", opts)
	}
	if value, ok := opts.Get("data"); !ok || value != "" {
		t.Errorf("data = %q, %v", value, ok)
	}
	if opts.String() != "ro,data=" {
		t.Errorf("String() = %q", opts.String())
	}
}

func TestOptionsRoundTrip(t *testing.T) {
	for _, optstring := range []string{
		"ro",
		"ro,noexec",
		"verity.roothash=abcd,errors=remount-ro",
	} {
		if got := ParseOptions(optstring).String(); got != optstring {
			t.Errorf("round trip of %q gave %q", optstring, got)
		}
	}
}

func TestKernelString(t *testing.T) {
	cases := map[string]string{
		// verity.*, x-* and flag names never reach the kernel.
		"ro,verity.hashdevice=/h,verity.roothash=ab,errors=remount-ro": "errors=remount-ro",
		"defaults,verity.roothashfile=/r,x-systemd.automount,loop":     "",
		"noatime,discard,data=ordered":                                 "discard,data=ordered",
		"verity.oncorruption=panic":                                    "",
	}
	for optstring, expected := range cases {
		if got := ParseOptions(optstring).KernelString(); got != expected {
			t.Errorf("KernelString(%q) = %q, expected %q", optstring, got, expected)
		}
	}
}
