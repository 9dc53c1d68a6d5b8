/*
 * config.go - Global configuration file with verity option defaults
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
	"io"
	"os"
	"strconv"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// ConfigFileLocation is where administrators set system-wide defaults for
// verity mounts. This can be overridden by the user of this package.
var ConfigFileLocation = "/etc/veritymount.conf"

// Config holds the system-wide defaults. Every field is optional; the zero
// value changes nothing.
type Config struct {
	// OnCorruption is used when a mount carries no verity.oncorruption
	// option. One of "ignore", "restart" or "panic".
	OnCorruption string `toml:"on_corruption"`
	// FecRoots is used when a mount specifies a FEC device without
	// verity.fecroots.
	FecRoots int64 `toml:"fec_roots"`
	// Verbose enables debug logging as if --verbose was always given.
	Verbose bool `toml:"verbose"`
}

// ReadConfig parses a TOML config from the reader.
func ReadConfig(r io.Reader) (*Config, error) {
	var config Config
	if err := toml.NewDecoder(r).Decode(&config); err != nil {
		return nil, errors.Wrap(err, "cannot parse config")
	}
	return &config, nil
}

// WriteConfig serializes the config as TOML to the writer.
func WriteConfig(config *Config, w io.Writer) error {
	return toml.NewEncoder(w).Encode(config)
}

// LoadConfigFile reads the global config file. A missing file is not an
// error; it yields an empty config.
func LoadConfigFile() (*Config, error) {
	file, err := os.Open(ConfigFileLocation)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadConfig(file)
}

// ApplyDefaults fills in options the mount did not specify from the config.
// Explicit mount options always win.
func (config *Config) ApplyDefaults(cxt *Context) {
	if config.OnCorruption != "" && !cxt.options.Has("verity.oncorruption") {
		cxt.options = append(cxt.options, Option{
			Name: "verity.oncorruption", Value: config.OnCorruption, HasValue: true,
		})
	}
	if config.FecRoots > 0 && cxt.options.Has("verity.fecdevice") &&
		!cxt.options.Has("verity.fecroots") {
		cxt.options = append(cxt.options, Option{
			Name:     "verity.fecroots",
			Value:    strconv.FormatInt(config.FecRoots, 10),
			HasValue: true,
		})
	}
}
