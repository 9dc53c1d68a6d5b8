/*
 * mountinfo_test.go - Tests for mount table parsing
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
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

const mountinfoFixture = `21 26 0:19 / /sys rw,nosuid,nodev,noexec,relatime shared:2 - sysfs sysfs rw
26 0 8:1 / / rw,relatime shared:1 - ext4 /dev/sda1 rw,errors=remount-ro
92 26 253:3 / /mnt/image ro,relatime shared:50 - ext4 /dev/mapper/libmnt_root.img ro
97 26 8:16 / /mnt/with\040space rw,relatime shared:55 master:1 - xfs /dev/sdb rw
98 26 253:4 / /mnt/image ro,relatime shared:60 - squashfs /dev/mapper/libmnt_app.sq ro
`

func withMountinfoFixture(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mountinfo")
	if err := os.WriteFile(path, []byte(mountinfoFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	old := mountinfoPath
	mountinfoPath = path
	t.Cleanup(func() { mountinfoPath = old })
}

func TestFindMount(t *testing.T) {
	withMountinfoFixture(t)

	info, err := FindMount("/")
	if err != nil {
		t.Fatal(err)
	}
	if info.Source != "/dev/sda1" || info.FilesystemType != "ext4" {
		t.Errorf("root mount = %+v", info)
	}
	if info.Options != "rw,relatime" {
		t.Errorf("root options = %q", info.Options)
	}
}

func TestFindMountLastWins(t *testing.T) {
	withMountinfoFixture(t)

	// /mnt/image is mounted over; the later entry is the visible one.
	info, err := FindMount("/mnt/image")
	if err != nil {
		t.Fatal(err)
	}
	if info.Source != "/dev/mapper/libmnt_app.sq" || info.FilesystemType != "squashfs" {
		t.Errorf("overmounted target = %+v", info)
	}
}

func TestFindMountEscapedPath(t *testing.T) {
	withMountinfoFixture(t)

	info, err := FindMount("/mnt/with space")
	if err != nil {
		t.Fatal(err)
	}
	if info.Source != "/dev/sdb" {
		t.Errorf("escaped target = %+v", info)
	}
}

func TestFindMountMissing(t *testing.T) {
	withMountinfoFixture(t)

	if _, err := FindMount("/not/mounted"); !errors.Is(err, ErrMountNotFound) {
		t.Errorf("got %v, expected ErrMountNotFound", err)
	}
}

func TestNewUnmountContext(t *testing.T) {
	withMountinfoFixture(t)

	cxt, err := NewUnmountContext("/mnt/image")
	if err != nil {
		t.Fatal(err)
	}
	if cxt.Source() != "/dev/mapper/libmnt_app.sq" {
		t.Errorf("source = %q", cxt.Source())
	}
	if !cxt.VerityReady() {
		t.Error("verity mapping not primed for teardown")
	}

	cxt, err = NewUnmountContext("/sys")
	if err != nil {
		t.Fatal(err)
	}
	if cxt.VerityReady() {
		t.Error("non-verity mount primed for teardown")
	}
}
