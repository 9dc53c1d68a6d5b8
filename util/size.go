/*
 * size.go - Parsing of size strings used in mount options. Offsets and
 * similar numeric options accept the usual suffix multipliers (KiB, M, GB,
 * ...), matching what mount(8) users expect from fstab.
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

package util

import (
	"strconv"
	"strings"

	"github.com/docker/go-units"
)

// ParseSize converts a size string with an optional suffix multiplier ("512",
// "4K", "1MiB", ...) into a byte count. Suffixes are binary multipliers, as
// for other mount options. Negative values and empty strings are rejected.
func ParseSize(str string) (uint64, error) {
	if str == "" {
		return 0, InvalidInputF("empty size string")
	}
	if strings.HasPrefix(str, "-") {
		return 0, InvalidInputF("size %q cannot be negative", str)
	}

	// Fast path for plain numbers, which is what most callers pass. This
	// also accepts values go-units would reject as too large for int64.
	if n, err := strconv.ParseUint(str, 10, 64); err == nil {
		return n, nil
	}

	n, err := units.RAMInBytes(str)
	if err != nil || n < 0 {
		return 0, InvalidInputF("cannot parse size %q", str)
	}
	return uint64(n), nil
}
