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

// The runetrie command builds a trie from word lists and queries or serves
// it.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/go-runetrie/internal/cmdlogger"
	"github.com/google/go-runetrie/internal/config"
	"github.com/urfave/cli/v3"
)

type commandBuilder = func(stdout io.Writer, logger *cmdlogger.Handler) *cli.Command

func run(args []string, stdout, stderr io.Writer) int {
	logger := cmdlogger.New(stdout, stderr)
	slog.SetDefault(slog.New(logger))

	builders := []commandBuilder{
		buildCommand,
		findCommand,
		prefixCommand,
		dumpCommand,
		serveCommand,
	}
	cmds := make([]*cli.Command, 0, len(builders))
	for _, build := range builders {
		cmds = append(cmds, build(stdout, logger))
	}

	app := &cli.Command{
		Name:      "runetrie",
		Usage:     "builds a trie of Unicode strings from word lists, and queries or serves it",
		Suggest:   true,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      "config",
				Usage:     "read configuration from this file instead of ./" + config.FileName,
				TakesFile: true,
			},
			&cli.StringFlag{
				Name:  "verbosity",
				Usage: "specify the level of information that should be provided during runtime; value can be: " + strings.Join(cmdlogger.Levels(), ", "),
				Value: "info",
				Action: func(_ context.Context, _ *cli.Command, s string) error {
					lvl, err := cmdlogger.ParseLevel(s)
					if err != nil {
						return err
					}
					logger.SetLevel(lvl)
					return nil
				},
			},
		},
		Commands: cmds,
	}
	// Errors are reported below; the default handler would exit the process
	// for any error that happens to carry an exit code.
	app.ExitErrHandler = func(_ context.Context, _ *cli.Command, _ error) {}

	if err := app.Run(context.Background(), args); err != nil {
		cmdlogger.Errorf("%v", err)
	}
	if logger.HasErrored() {
		return 127
	}
	return 0
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}
