/*
 * size_test.go - Tests parsing of size strings with suffix multipliers
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
	"testing"
)

func TestParseSize(t *testing.T) {
	good := map[string]uint64{
		"0":      0,
		"2":      2,
		"512":    512,
		"4096":   4096,
		"1K":     1024,
		"4k":     4096,
		"1M":     1024 * 1024,
		"2MiB":   2 * 1024 * 1024,
		"1G":     1024 * 1024 * 1024,
		"409600": 409600,
	}
	for str, expected := range good {
		n, err := ParseSize(str)
		if err != nil {
			t.Errorf("ParseSize(%q) failed: %v", str, err)
			continue
		}
		if n != expected {
			t.Errorf("ParseSize(%q) = %d, expected %d", str, n, expected)
		}
	}

	bad := []string{"", "-1", "-4K", "12Q", "hello", "4096 four", "0x10"}
	for _, str := range bad {
		if n, err := ParseSize(str); err == nil {
			t.Errorf("ParseSize(%q) = %d, expected failure", str, n)
		}
	}
}
