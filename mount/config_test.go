/*
 * config_test.go - Tests for the global config file
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
	"bytes"
	"strings"
	"testing"
)

func TestConfigRoundTrip(t *testing.T) {
	config := &Config{OnCorruption: "restart", FecRoots: 8, Verbose: true}

	var buf bytes.Buffer
	if err := WriteConfig(config, &buf); err != nil {
		t.Fatal(err)
	}
	parsed, err := ReadConfig(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if *parsed != *config {
		t.Errorf("round trip gave %+v, expected %+v", parsed, config)
	}
}

func TestReadConfigPartial(t *testing.T) {
	config, err := ReadConfig(strings.NewReader(`on_corruption = "ignore"`))
	if err != nil {
		t.Fatal(err)
	}
	if config.OnCorruption != "ignore" || config.FecRoots != 0 || config.Verbose {
		t.Errorf("parsed %+v", config)
	}
}

func TestReadConfigInvalid(t *testing.T) {
	if _, err := ReadConfig(strings.NewReader("on_corruption = [")); err == nil {
		t.Error("malformed config accepted")
	}
}

func TestApplyDefaults(t *testing.T) {
	config := &Config{OnCorruption: "restart", FecRoots: 8}

	cxt := NewContext("/images/root.img", "/mnt", "ext4",
		"verity.hashdevice=/h,verity.roothash=ab,verity.fecdevice=/f")
	config.ApplyDefaults(cxt)
	if value, ok := cxt.OptionValue("verity.oncorruption"); !ok || value != "restart" {
		t.Errorf("oncorruption default = %q, %v", value, ok)
	}
	if value, ok := cxt.OptionValue("verity.fecroots"); !ok || value != "8" {
		t.Errorf("fecroots default = %q, %v", value, ok)
	}
}

func TestApplyDefaultsDoesNotOverride(t *testing.T) {
	config := &Config{OnCorruption: "restart", FecRoots: 8}

	cxt := NewContext("/images/root.img", "/mnt", "ext4",
		"verity.hashdevice=/h,verity.roothash=ab,verity.oncorruption=ignore")
	config.ApplyDefaults(cxt)
	if value, _ := cxt.OptionValue("verity.oncorruption"); value != "ignore" {
		t.Errorf("explicit option overridden with %q", value)
	}
	// No FEC device, so no fecroots default either.
	if cxt.options.Has("verity.fecroots") {
		t.Error("fecroots defaulted without a FEC device")
	}
}
