/*
 * options.go - Extraction of verity.* mount options
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

package veritydev

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/util-linux/veritymount/util"
)

// OnCorruption selects the kernel's reaction to a block failing hash
// verification.
type OnCorruption int

const (
	// CorruptionError is the default: reads of bad blocks fail with EIO.
	CorruptionError OnCorruption = iota
	// CorruptionIgnore lets reads of bad blocks succeed. Useful only for
	// inspecting damaged volumes.
	CorruptionIgnore
	// CorruptionRestart reboots the machine on the first bad block.
	CorruptionRestart
	// CorruptionPanic panics the kernel on the first bad block.
	CorruptionPanic
)

func (c OnCorruption) String() string {
	switch c {
	case CorruptionIgnore:
		return "ignore"
	case CorruptionRestart:
		return "restart"
	case CorruptionPanic:
		return "panic"
	default:
		return "error"
	}
}

// defaultFecRoots matches the veritysetup default of 2 parity bytes per
// codeword.
const defaultFecRoots = 2

// Options is the verity configuration extracted from a mount context.
type Options struct {
	// HashDevice is the device or file holding the hash tree. Mandatory.
	HashDevice string
	// RootHash is the hex-encoded root hash. Either this or a root hash
	// file is mandatory, never both.
	RootHash string
	// HashOffset is the byte offset of the hash area on HashDevice.
	HashOffset uint64
	// FecDevice optionally holds forward error correction data.
	FecDevice string
	// FecOffset is the byte offset of the FEC area on FecDevice.
	FecOffset uint64
	// FecRoots is the number of FEC parity bytes, defaulting to 2.
	FecRoots uint64
	// HashSig is the raw contents of the root hash signature file, or nil
	// when no signature was given.
	HashSig []byte
	// OnCorruption is the kernel's reaction to verification failures.
	OnCorruption OnCorruption
}

// ExtractOptions reads the verity.* options off the context and validates
// them as a set. It enforces that a hash device and exactly one root hash
// source are present, parses the numeric offsets with size suffixes allowed,
// and reads the root hash and signature files eagerly so activation cannot
// fail halfway through on bad input.
func ExtractOptions(cxt Context) (*Options, error) {
	opts := &Options{FecRoots: defaultFecRoots}

	opts.HashDevice, _ = cxt.OptionValue("verity.hashdevice")
	opts.RootHash, _ = cxt.OptionValue("verity.roothash")
	rootHashFile, _ := cxt.OptionValue("verity.roothashfile")

	if opts.RootHash != "" && rootHashFile != "" {
		cxt.Debugf("verity.roothash and verity.roothashfile are mutually exclusive")
		return nil, errors.Wrap(ErrInvalidArgument,
			"verity.roothash and verity.roothashfile are mutually exclusive")
	}
	if opts.HashDevice == "" || (opts.RootHash == "" && rootHashFile == "") {
		cxt.Debugf("verity.hashdevice and one of verity.roothash or verity.roothashfile are mandatory")
		return nil, errors.Wrap(ErrInvalidArgument,
			"verity.hashdevice and one of verity.roothash or verity.roothashfile are mandatory")
	}

	if rootHashFile != "" {
		hash, err := readRootHashFile(rootHashFile)
		if err != nil {
			cxt.Debugf("failed to read verity.roothashfile=%s: %v", rootHashFile, err)
			return nil, &BadOptionError{Option: "verity.roothashfile", Err: err}
		}
		opts.RootHash = hash
	}

	var err error
	if value, ok := cxt.OptionValue("verity.hashoffset"); ok {
		if opts.HashOffset, err = util.ParseSize(value); err != nil {
			cxt.Debugf("failed to parse verity.hashoffset=%s", value)
			return nil, &BadOptionError{Option: "verity.hashoffset", Err: err}
		}
	}

	opts.FecDevice, _ = cxt.OptionValue("verity.fecdevice")
	if value, ok := cxt.OptionValue("verity.fecoffset"); ok {
		if opts.FecOffset, err = util.ParseSize(value); err != nil {
			cxt.Debugf("failed to parse verity.fecoffset=%s", value)
			return nil, &BadOptionError{Option: "verity.fecoffset", Err: err}
		}
	}
	if value, ok := cxt.OptionValue("verity.fecroots"); ok {
		if opts.FecRoots, err = util.ParseSize(value); err != nil {
			cxt.Debugf("failed to parse verity.fecroots=%s", value)
			return nil, &BadOptionError{Option: "verity.fecroots", Err: err}
		}
	}

	if sigFile, ok := cxt.OptionValue("verity.roothashsig"); ok {
		opts.HashSig, err = readSignatureFile(sigFile)
		if err != nil {
			cxt.Debugf("failed to read verity.roothashsig=%s: %v", sigFile, err)
			return nil, &BadOptionError{Option: "verity.roothashsig", Err: err}
		}
	}

	if value, ok := cxt.OptionValue("verity.oncorruption"); ok {
		switch value {
		case "ignore":
			opts.OnCorruption = CorruptionIgnore
		case "restart":
			opts.OnCorruption = CorruptionRestart
		case "panic":
			opts.OnCorruption = CorruptionPanic
		default:
			cxt.Debugf("unsupported verity.oncorruption mount option: %s", value)
			return nil, &BadOptionError{
				Option: "verity.oncorruption",
				Err:    util.InvalidInputF("unsupported value %q", value),
			}
		}
	}

	return opts, nil
}

// readRootHashFile returns the first line of the file with surrounding
// whitespace trimmed. veritysetup writes the hash followed by a newline;
// trailing garbage after the first line is ignored the same way the kernel
// command line tooling does.
func readRootHashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", util.InvalidInputF("root hash file %q is empty", path)
	}
	hash := strings.TrimSpace(scanner.Text())
	if hash == "" {
		return "", util.InvalidInputF("root hash file %q is empty", path)
	}
	return hash, nil
}

// maxSignatureSize bounds how much we are willing to read from a signature
// file. PKCS#7 signatures are a few kilobytes at most.
const maxSignatureSize = 1024 * 1024

// readSignatureFile reads a root hash signature in full. The file must be a
// regular, non-empty file; device nodes and pipes are rejected before any
// read happens.
func readSignatureFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, util.InvalidInputF("signature file %q is not a regular file", path)
	}
	if info.Size() == 0 {
		return nil, util.InvalidInputF("signature file %q is empty", path)
	}
	if info.Size() > maxSignatureSize {
		return nil, util.InvalidInputF("signature file %q is too large", path)
	}
	return os.ReadFile(path)
}

// activationFlags translates the corruption policy into backend activation
// flags. Verity mappings are always activated read-only. A panic policy on a
// backend too old to know the flag is downgraded to the default EIO behavior
// rather than failing the mount.
func activationFlags(cxt Context, b backend, opts *Options) ActivateFlags {
	flags := ActivateReadonly
	switch opts.OnCorruption {
	case CorruptionIgnore:
		flags |= ActivateIgnoreCorruption
	case CorruptionRestart:
		flags |= ActivateRestartOnCorruption
	case CorruptionPanic:
		if b.SupportsPanicOnCorruption() {
			flags |= ActivatePanicOnCorruption
		} else {
			cxt.Debugf("verity.oncorruption=panic not supported by crypto backend, ignoring")
		}
	}
	return flags
}
