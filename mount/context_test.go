/*
 * context_test.go - Tests for the mount context
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

	"golang.org/x/sys/unix"

	"github.com/util-linux/veritymount/veritydev"
)

func TestNewContextFlags(t *testing.T) {
	cxt := NewContext("/dev/sda1", "/mnt", "ext4", "ro,noexec,nosuid,discard")
	expected := uintptr(unix.MS_RDONLY | unix.MS_NOEXEC | unix.MS_NOSUID)
	if cxt.MountFlags() != expected {
		t.Errorf("flags = %#x, expected %#x", cxt.MountFlags(), expected)
	}

	// Flag names are consumed as flags but still visible as options.
	if !cxt.options.Has("ro") {
		t.Error("ro option lost during flag translation")
	}
	if value, ok := cxt.OptionValue("discard"); !ok || value != "" {
		t.Errorf("discard = %q, %v", value, ok)
	}
}

func TestContextSetSource(t *testing.T) {
	cxt := NewContext("/images/root.img", "/mnt", "ext4", "")
	if err := cxt.SetSource("/dev/mapper/libmnt_root.img"); err != nil {
		t.Fatal(err)
	}
	if cxt.Source() != "/dev/mapper/libmnt_root.img" {
		t.Errorf("source = %q", cxt.Source())
	}
	if err := cxt.SetSource(""); err != ErrNoSource {
		t.Errorf("SetSource(\"\") = %v, expected ErrNoSource", err)
	}
}

// The mount context must satisfy the verity setup interface.
var _ veritydev.Context = (*Context)(nil)

func TestContextIsVerityDevice(t *testing.T) {
	cxt := NewContext("/images/root.img", "/mnt", "ext4",
		"ro,verity.hashdevice=/images/root.hash,verity.roothash=abcd")
	if ok, _ := veritydev.IsVerityDevice(cxt); !ok {
		t.Error("context with verity options not detected")
	}

	cxt = NewContext("/dev/sda1", "/mnt", "ext4", "ro")
	if ok, err := veritydev.IsVerityDevice(cxt); ok || err != nil {
		t.Errorf("plain context detected as verity (ok=%v, err=%v)", ok, err)
	}
}
