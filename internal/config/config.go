/*
	Copyright 2023 Google Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

		https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

// Package config manages the configuration for the runetrie command.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/go-runetrie/pkg/bulkload"
	"github.com/google/go-runetrie/runetrie"
	"golang.org/x/text/unicode/norm"
)

// FileName is the name of the configuration file looked for by default.
var FileName = "runetrie.toml"

// Load modes.
const (
	ModeSerial     = "serial"
	ModeConcurrent = "concurrent"
	ModeMeasure    = "measure"
)

// Config is the complete configuration of the runetrie command.
type Config struct {
	Trie  TrieConfig  `toml:"trie"`
	Load  LoadConfig  `toml:"load"`
	Serve ServeConfig `toml:"serve"`
	// The path this config was loaded from, empty for the defaults.
	LoadPath string `toml:"-"`
}

// TrieConfig selects the options every trie is built with.
type TrieConfig struct {
	// One of "", "NFC", "NFD", "NFKC" or "NFKD".
	Normalize  string `toml:"normalize"`
	AllowEmpty bool   `toml:"allow_empty"`
}

// LoadConfig selects how word lists are loaded into a trie.
type LoadConfig struct {
	Mode        string `toml:"mode"`
	BatchSize   uint   `toml:"batch_size"`
	Concurrency uint   `toml:"concurrency"`
	BufferSize  uint   `toml:"buffer_size"`
}

// ServeConfig configures the HTTP server.
type ServeConfig struct {
	Address string `toml:"address"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Trie: TrieConfig{AllowEmpty: true},
		Load: LoadConfig{
			Mode:        ModeConcurrent,
			BatchSize:   5000,
			Concurrency: 2,
			BufferSize:  1,
		},
		Serve: ServeConfig{Address: "localhost:8080"},
	}
}

// Load reads the configuration at path, filling unset values from Default.
// An empty path yields the defaults.
func Load(path string) (Config, error) {
	config := Default()
	if path == "" {
		return config, nil
	}
	md, err := toml.DecodeFile(path, &config)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return Config{}, fmt.Errorf("config %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	config.LoadPath = path
	return config, nil
}

// Validate returns an error describing every invalid value in the receiver.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.Trie.form(); err != nil {
		errs = append(errs, err)
	}
	switch c.Load.Mode {
	case ModeSerial, ModeConcurrent, ModeMeasure:
	default:
		errs = append(errs, fmt.Errorf("unsupported load mode %q - must be one of: %s, %s, %s", c.Load.Mode, ModeSerial, ModeConcurrent, ModeMeasure))
	}
	if c.Load.BatchSize == 0 {
		errs = append(errs, errors.New("load.batch_size must be at least 1"))
	} else if c.Load.BatchSize > math.MaxInt {
		errs = append(errs, fmt.Errorf("load.batch_size must be at most %d", math.MaxInt))
	}
	if c.Load.Concurrency == 0 {
		errs = append(errs, errors.New("load.concurrency must be at least 1"))
	}
	if c.Load.BufferSize == 0 {
		errs = append(errs, errors.New("load.buffer_size must be at least 1"))
	}
	if c.Serve.Address == "" {
		errs = append(errs, errors.New("serve.address must not be empty"))
	}
	return errors.Join(errs...)
}

// form returns the normalization form named by the receiver, or nil if none
// is.
func (t TrieConfig) form() (*norm.Form, error) {
	var form norm.Form
	switch strings.ToUpper(t.Normalize) {
	case "":
		return nil, nil
	case "NFC":
		form = norm.NFC
	case "NFD":
		form = norm.NFD
	case "NFKC":
		form = norm.NFKC
	case "NFKD":
		form = norm.NFKD
	default:
		return nil, fmt.Errorf("unsupported normalization form %q - must be one of: NFC, NFD, NFKC, NFKD", t.Normalize)
	}
	return &form, nil
}

// TrieOptions returns the runetrie options the receiver describes.
func (c Config) TrieOptions() []runetrie.Option {
	var ret []runetrie.Option
	if !c.Trie.AllowEmpty {
		ret = append(ret, runetrie.DisallowEmpty())
	}
	if form, err := c.Trie.form(); err == nil && form != nil {
		ret = append(ret, runetrie.Normalize(*form))
	}
	return ret
}

// LoadOptions returns the bulkload options the receiver describes.
func (c Config) LoadOptions() []bulkload.Option {
	return []bulkload.Option{
		bulkload.BatchSize(c.Load.BatchSize),
		bulkload.Concurrency(c.Load.Concurrency),
		bulkload.InputBufferSize(c.Load.BufferSize),
		bulkload.TrieOptions(c.TrieOptions()...),
	}
}
