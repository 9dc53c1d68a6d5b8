/*
 * mountinfo.go - Lookup of existing mounts via /proc/self/mountinfo
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
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// mountinfoPath is the per-process mount table. A variable so tests can point
// it at a fixture.
var mountinfoPath = "/proc/self/mountinfo"

// ErrMountNotFound indicates the target path is not a mountpoint.
var ErrMountNotFound = errors.New("mountpoint not found")

// MountInfo is one entry of the mount table.
type MountInfo struct {
	Source         string
	Target         string
	FilesystemType string
	// Options are the per-mount options (the mountinfo field after the
	// mountpoint, not the superblock options).
	Options string
}

// FindMount returns the mount table entry whose mountpoint is target. When
// the same path is mounted over multiple times, the last entry wins since the
// table is in mount order.
func FindMount(target string) (*MountInfo, error) {
	target, err := filepath.Abs(target)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(mountinfoPath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", mountinfoPath)
	}
	defer file.Close()

	var found *MountInfo
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		info, err := parseMountinfoLine(scanner.Text())
		if err != nil {
			// Skip lines we cannot parse rather than failing the
			// whole lookup; the kernel may grow new fields.
			continue
		}
		if info.Target == target {
			found = info
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", mountinfoPath)
	}
	if found == nil {
		return nil, errors.Wrapf(ErrMountNotFound, "%s", target)
	}
	return found, nil
}

// parseMountinfoLine parses one line in the proc_pid_mountinfo(5) format:
//
//	36 35 98:0 /mnt1 /mnt2 rw,noatime master:1 - ext3 /dev/root rw,errors=continue
//
// The fields between the per-mount options and the " - " separator are
// optional and variable in number.
func parseMountinfoLine(line string) (*MountInfo, error) {
	fields := strings.Fields(line)
	if len(fields) < 10 {
		return nil, errors.Errorf("short mountinfo line: %q", line)
	}

	sep := -1
	for i := 6; i < len(fields); i++ {
		if fields[i] == "-" {
			sep = i
			break
		}
	}
	if sep < 0 || sep+2 >= len(fields) {
		return nil, errors.Errorf("no separator in mountinfo line: %q", line)
	}

	return &MountInfo{
		Target:         unescapeOctal(fields[4]),
		Options:        fields[5],
		FilesystemType: fields[sep+1],
		Source:         unescapeOctal(fields[sep+2]),
	}, nil
}

// unescapeOctal undoes the kernel's \ooo escaping of spaces, tabs, newlines
// and backslashes in mountinfo paths.
func unescapeOctal(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if n, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(n))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
