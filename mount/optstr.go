/*
 * optstr.go - Parsing and filtering of comma-separated mount option strings
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
	"strings"
)

// Option is one mount option, with an optional value after '='. An option
// without '=' has an empty Value; "opt=" and "opt" are distinguished by
// HasValue.
type Option struct {
	Name     string
	Value    string
	HasValue bool
}

// Options is an option string split into its parts, in original order.
type Options []Option

// ParseOptions splits a comma-separated option string. Empty elements from
// stray commas are dropped. Values are taken verbatim up to the next comma;
// none of the options this tool consumes allow embedded commas.
func ParseOptions(optstring string) Options {
	var opts Options
	for _, field := range strings.Split(optstring, ",") {
		if field == "" {
			continue
		}
		name, value, hasValue := strings.Cut(field, "=")
		opts = append(opts, Option{Name: name, Value: value, HasValue: hasValue})
	}
	return opts
}

// Get returns the value of the named option and whether it is present. For a
// repeated option the first occurrence wins, matching the kernel's behavior
// for most filesystems.
func (opts Options) Get(name string) (string, bool) {
	for _, opt := range opts {
		if opt.Name == name {
			return opt.Value, true
		}
	}
	return "", false
}

// Has reports whether the named option is present.
func (opts Options) Has(name string) bool {
	_, ok := opts.Get(name)
	return ok
}

// String reassembles the options into a comma-separated string.
func (opts Options) String() string {
	var b strings.Builder
	for i, opt := range opts {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(opt.Name)
		if opt.HasValue {
			b.WriteByte('=')
			b.WriteString(opt.Value)
		}
	}
	return b.String()
}

// mountFlagNames are options that translate to mount(2) flags instead of
// filesystem data. They must not reach the kernel's data string.
var mountFlagNames = map[string]bool{
	"defaults":    true,
	"ro":          true,
	"rw":          true,
	"nosuid":      true,
	"suid":        true,
	"nodev":       true,
	"dev":         true,
	"noexec":      true,
	"exec":        true,
	"sync":        true,
	"async":       true,
	"noatime":     true,
	"atime":       true,
	"nodiratime":  true,
	"diratime":    true,
	"relatime":    true,
	"norelatime":  true,
	"strictatime": true,
	"lazytime":    true,
	"nolazytime":  true,
}

// userspaceOption reports whether an option is consumed in userspace and must
// be stripped before mounting. This covers all verity.* options, x-* comment
// options, and the loop option.
func userspaceOption(name string) bool {
	return strings.HasPrefix(name, "verity.") ||
		strings.HasPrefix(name, "x-") ||
		name == "loop"
}

// KernelString returns the option string to pass as mount(2) data: the
// original options minus flag names and userspace-only options.
func (opts Options) KernelString() string {
	var kernel Options
	for _, opt := range opts {
		if mountFlagNames[opt.Name] || userspaceOption(opt.Name) {
			continue
		}
		kernel = append(kernel, opt)
	}
	return kernel.String()
}
