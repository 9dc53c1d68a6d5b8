/*
 * options_test.go - Tests for verity.* option extraction
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
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

const testHash = "8e0e49a1e64a48c8f67a79e09e12db4a3c3c4c5d6e7f8091a2b3c4d5e6f70819"

func baseOptions() map[string]string {
	return map[string]string{
		"verity.hashdevice": "/images/root.hash",
		"verity.roothash":   testHash,
	}
}

func TestExtractOptionsMinimal(t *testing.T) {
	cxt := &fakeContext{options: baseOptions()}
	opts, err := ExtractOptions(cxt)
	if err != nil {
		t.Fatal(err)
	}
	if opts.HashDevice != "/images/root.hash" {
		t.Errorf("hash device = %q", opts.HashDevice)
	}
	if opts.RootHash != testHash {
		t.Errorf("root hash = %q", opts.RootHash)
	}
	if opts.FecRoots != 2 {
		t.Errorf("default fec roots = %d, expected 2", opts.FecRoots)
	}
	if opts.OnCorruption != CorruptionError {
		t.Errorf("default corruption policy = %v, expected error", opts.OnCorruption)
	}
	if opts.HashSig != nil {
		t.Error("signature present without verity.roothashsig")
	}
}

func TestExtractOptionsFull(t *testing.T) {
	options := baseOptions()
	options["verity.hashoffset"] = "1M"
	options["verity.fecdevice"] = "/images/root.fec"
	options["verity.fecoffset"] = "4096"
	options["verity.fecroots"] = "8"
	options["verity.oncorruption"] = "restart"

	cxt := &fakeContext{options: options}
	opts, err := ExtractOptions(cxt)
	if err != nil {
		t.Fatal(err)
	}
	if opts.HashOffset != 1024*1024 {
		t.Errorf("hash offset = %d", opts.HashOffset)
	}
	if opts.FecDevice != "/images/root.fec" || opts.FecOffset != 4096 || opts.FecRoots != 8 {
		t.Errorf("fec settings = %q/%d/%d", opts.FecDevice, opts.FecOffset, opts.FecRoots)
	}
	if opts.OnCorruption != CorruptionRestart {
		t.Errorf("corruption policy = %v", opts.OnCorruption)
	}
}

func TestExtractOptionsMandatory(t *testing.T) {
	missing := []map[string]string{
		{},
		{"verity.hashdevice": "/images/root.hash"},
		{"verity.roothash": testHash},
		{"verity.hashoffset": "4096"},
	}
	for _, options := range missing {
		cxt := &fakeContext{options: options}
		if _, err := ExtractOptions(cxt); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("options %v gave %v, expected ErrInvalidArgument", options, err)
		}
	}
}

func TestExtractOptionsExclusiveHashSources(t *testing.T) {
	options := baseOptions()
	options["verity.roothashfile"] = "/images/root.roothash"
	cxt := &fakeContext{options: options}
	if _, err := ExtractOptions(cxt); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("got %v, expected ErrInvalidArgument", err)
	}
	if !cxt.loggedSubstring("mutually exclusive") {
		t.Error("missing diagnostic about exclusive hash sources")
	}
}

func TestExtractOptionsRootHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "root.roothash")
	if err := os.WriteFile(path, []byte(testHash+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cxt := &fakeContext{options: map[string]string{
		"verity.hashdevice":   "/images/root.hash",
		"verity.roothashfile": path,
	}}
	opts, err := ExtractOptions(cxt)
	if err != nil {
		t.Fatal(err)
	}
	if opts.RootHash != testHash {
		t.Errorf("root hash from file = %q", opts.RootHash)
	}
}

func TestExtractOptionsEmptyRootHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "root.roothash")
	if err := os.WriteFile(path, []byte("\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cxt := &fakeContext{options: map[string]string{
		"verity.hashdevice":   "/images/root.hash",
		"verity.roothashfile": path,
	}}
	var badOpt *BadOptionError
	if _, err := ExtractOptions(cxt); !errors.As(err, &badOpt) {
		t.Fatalf("got %v, expected BadOptionError", err)
	} else if badOpt.Option != "verity.roothashfile" {
		t.Errorf("error names option %q", badOpt.Option)
	}
}

func TestExtractOptionsBadNumbers(t *testing.T) {
	for _, option := range []string{"verity.hashoffset", "verity.fecoffset", "verity.fecroots"} {
		options := baseOptions()
		options[option] = "12Q"
		cxt := &fakeContext{options: options}

		var badOpt *BadOptionError
		if _, err := ExtractOptions(cxt); !errors.As(err, &badOpt) {
			t.Errorf("%s=12Q gave %v, expected BadOptionError", option, err)
		} else if badOpt.Option != option {
			t.Errorf("error names option %q, expected %q", badOpt.Option, option)
		}
	}
}

func TestExtractOptionsSignatureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "root.sig")
	sig := []byte{0x30, 0x82, 0x01, 0x02}
	if err := os.WriteFile(path, sig, 0o644); err != nil {
		t.Fatal(err)
	}

	options := baseOptions()
	options["verity.roothashsig"] = path
	cxt := &fakeContext{options: options}
	opts, err := ExtractOptions(cxt)
	if err != nil {
		t.Fatal(err)
	}
	if string(opts.HashSig) != string(sig) {
		t.Errorf("signature = %x", opts.HashSig)
	}
}

func TestExtractOptionsBadSignatureFile(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.sig")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	bad := []string{
		empty,
		filepath.Join(dir, "does-not-exist.sig"),
		dir, // not a regular file
	}
	for _, path := range bad {
		options := baseOptions()
		options["verity.roothashsig"] = path
		cxt := &fakeContext{options: options}
		if _, err := ExtractOptions(cxt); err == nil {
			t.Errorf("signature file %q accepted", path)
		}
	}
}

func TestExtractOptionsOnCorruption(t *testing.T) {
	policies := map[string]OnCorruption{
		"ignore":  CorruptionIgnore,
		"restart": CorruptionRestart,
		"panic":   CorruptionPanic,
	}
	for value, expected := range policies {
		options := baseOptions()
		options["verity.oncorruption"] = value
		cxt := &fakeContext{options: options}
		opts, err := ExtractOptions(cxt)
		if err != nil {
			t.Fatalf("oncorruption=%s: %v", value, err)
		}
		if opts.OnCorruption != expected {
			t.Errorf("oncorruption=%s parsed as %v", value, opts.OnCorruption)
		}
	}

	options := baseOptions()
	options["verity.oncorruption"] = "shrug"
	cxt := &fakeContext{options: options}
	var badOpt *BadOptionError
	if _, err := ExtractOptions(cxt); !errors.As(err, &badOpt) {
		t.Fatalf("oncorruption=shrug gave %v, expected BadOptionError", err)
	}
}
