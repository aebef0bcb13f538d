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

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/go-runetrie/internal/cmdlogger"
	"github.com/google/go-runetrie/internal/config"
	"github.com/google/go-runetrie/internal/dictionary"
	"github.com/google/go-runetrie/pkg/bulkload"
	"github.com/google/go-runetrie/runetrie"
	"github.com/urfave/cli/v3"
)

// loadFlags returns the flags shared by every subcommand, selecting the word
// lists to load and how to load them.
func loadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:      "dict",
			Aliases:   []string{"d"},
			Usage:     "load words from this file, one per line; may be repeated",
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:  "mode",
			Usage: fmt.Sprintf("how to load the words; value can be: %s, %s, %s", config.ModeSerial, config.ModeConcurrent, config.ModeMeasure),
		},
		&cli.UintFlag{
			Name:  "batch-size",
			Usage: "the number of words in each batch",
		},
		&cli.UintFlag{
			Name:  "concurrency",
			Usage: "the number of goroutines inserting batches",
		},
	}
}

// readConfig returns the configuration named by --config, or found in the
// working directory, with any load flags set on cmd applied over it.
func readConfig(cmd *cli.Command) (config.Config, error) {
	path := cmd.String("config")
	if path == "" {
		if _, err := os.Stat(config.FileName); err == nil {
			path = config.FileName
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if path != "" {
		cmdlogger.Debugf("Loaded config from %s", cfg.LoadPath)
	}
	if cmd.IsSet("mode") {
		cfg.Load.Mode = cmd.String("mode")
	}
	if cmd.IsSet("batch-size") {
		cfg.Load.BatchSize = cmd.Uint("batch-size")
	}
	if cmd.IsSet("concurrency") {
		cfg.Load.Concurrency = cmd.Uint("concurrency")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// loaded is a trie built from the word lists named on the command line.
type loaded struct {
	cfg   config.Config
	trie  *runetrie.Trie
	words int
	dicts int
}

func loadTrie(ctx context.Context, cmd *cli.Command) (*loaded, error) {
	cfg, err := readConfig(cmd)
	if err != nil {
		return nil, err
	}
	dicts := cmd.StringSlice("dict")
	words, err := dictionary.ReadFiles(dicts...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var trie *runetrie.Trie
	switch cfg.Load.Mode {
	case config.ModeSerial:
		trie, err = bulkload.SequentialLoad(ctx, words, cfg.LoadOptions()...)
	case config.ModeConcurrent:
		trie, err = bulkload.Load(ctx, words, cfg.LoadOptions()...)
	case config.ModeMeasure:
		var metrics *bulkload.Metrics
		trie, metrics, err = bulkload.Measure(ctx, words, cfg.LoadOptions()...)
		if metrics != nil {
			cmdlogger.Infof("%s", metrics)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dictionaries: %w", err)
	}
	cmdlogger.Debugf("Loaded %d words in %s (%s mode)", len(words), time.Since(start), cfg.Load.Mode)

	return &loaded{cfg: cfg, trie: trie, words: len(words), dicts: len(dicts)}, nil
}
