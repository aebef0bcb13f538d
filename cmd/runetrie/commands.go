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
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/go-runetrie/internal/cmdlogger"
	"github.com/google/go-runetrie/internal/server"
	"github.com/urfave/cli/v3"
)

func buildCommand(_ io.Writer, _ *cmdlogger.Handler) *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "loads the word lists and reports the size of the resulting trie",
		Flags: loadFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			l, err := loadTrie(ctx, cmd)
			if err != nil {
				return err
			}
			cmdlogger.Infof("Loaded %d words from %d dictionaries: %d strings, %d nodes",
				l.words, l.dicts, l.trie.Len(), l.trie.NodeCount())
			return nil
		},
	}
}

func findCommand(stdout io.Writer, logger *cmdlogger.Handler) *cli.Command {
	return &cli.Command{
		Name:      "find",
		Usage:     "reports whether each word is stored in the trie",
		ArgsUsage: "WORD...",
		Flags:     loadFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger.SendEverythingToStderr()
			words := cmd.Args().Slice()
			if len(words) == 0 {
				return errors.New("find requires at least one word")
			}
			l, err := loadTrie(ctx, cmd)
			if err != nil {
				return err
			}
			for _, word := range words {
				fmt.Fprintf(stdout, "%s: %t\n", word, l.trie.Find(word))
			}
			return nil
		},
	}
}

func prefixCommand(stdout io.Writer, logger *cmdlogger.Handler) *cli.Command {
	return &cli.Command{
		Name:      "prefix",
		Usage:     "lists the stored strings each prefix starts with or is a prefix of",
		ArgsUsage: "PREFIX...",
		Flags: append(loadFlags(),
			&cli.BoolFlag{
				Name:  "completions",
				Usage: "only list stored strings starting with the prefix",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger.SendEverythingToStderr()
			prefixes := cmd.Args().Slice()
			if len(prefixes) == 0 {
				return errors.New("prefix requires at least one prefix")
			}
			l, err := loadTrie(ctx, cmd)
			if err != nil {
				return err
			}
			all := l.trie.PrefixStrings
			if cmd.Bool("completions") {
				all = l.trie.Completions
			}
			for _, prefix := range prefixes {
				if len(prefixes) > 1 {
					fmt.Fprintf(stdout, "%s:\n", prefix)
				}
				for s := range all(prefix) {
					fmt.Fprintln(stdout, s)
				}
			}
			return nil
		},
	}
}

func dumpCommand(stdout io.Writer, logger *cmdlogger.Handler) *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "prints the structure of the trie, one node per line",
		Flags: loadFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger.SendEverythingToStderr()
			l, err := loadTrie(ctx, cmd)
			if err != nil {
				return err
			}
			return l.trie.Dump(stdout)
		},
	}
}

func serveCommand(_ io.Writer, _ *cmdlogger.Handler) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serves the trie over HTTP until interrupted",
		Flags: append(loadFlags(),
			&cli.StringFlag{
				Name:  "address",
				Usage: "listen on this address instead of the configured one",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			l, err := loadTrie(ctx, cmd)
			if err != nil {
				return err
			}
			addr := l.cfg.Serve.Address
			if cmd.IsSet("address") {
				addr = cmd.String("address")
			}
			cmdlogger.Infof("Serving %d strings", l.trie.Len())
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(l.trie).ListenAndServe(ctx, addr)
		},
	}
}
