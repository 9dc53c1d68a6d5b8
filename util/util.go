/*
 * util.go - Various helpers used throughout veritymount
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

// Package util contains useful components for simplifying Go code.
//
// The package contains common error types (errors.go), parsing of size
// strings with suffix multipliers (size.go), and functions for converting
// byte slices to pointers.
package util

import (
	"unsafe"
)

// Ptr converts a Go byte slice to a pointer to the start of the slice.
func Ptr(slice []byte) unsafe.Pointer {
	return unsafe.Pointer(&slice[0])
}

// MinInt returns the lesser of a and b.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
