// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"log"
	"os"

	"github.com/poiesic/skillmatch"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the CLI. extra options are applied to every Matcher the
// commands open.
func newApp(extra ...skillmatch.MatcherOption) *cli.App {
	cmds := &commands{extra: extra}
	return &cli.App{
		Name:  "skillmatch",
		Usage: "Match résumés against a skill query",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
				EnvVars: []string{"SKILLMATCH_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log output format (text, json, zap, zap-dev)",
				Value: "text",
			},
		},
		Before: cmds.setupLogger,
		After:  cmds.syncLogger,
		Commands: []*cli.Command{
			{
				Name:      "match",
				Usage:     "Extract candidate records matching a query",
				ArgsUsage: "[file...]",
				Action:    cmds.match,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Directory of résumés; ignored when files are given",
					},
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Comma-separated skills to match",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Ignore cached results and rebuild the index",
					},
					&cli.BoolFlag{
						Name:  "no-filter",
						Usage: "Send every document to extraction",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Documents per extraction request (0 keeps the configured value)",
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Write the result JSON to a file instead of stdout",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: cmds.serve,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides server.addr)",
					},
				},
			},
			{
				Name:  "cache",
				Usage: "Manage the cache tiers",
				Subcommands: []*cli.Command{
					{
						Name:   "clear",
						Usage:  "Remove cached entries",
						Action: cmds.clearCache,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "tier",
								Usage: "Tier to clear (index, result); empty clears both",
							},
							&cli.StringFlag{
								Name:  "key",
								Usage: "Single entry to remove; empty clears the tier",
							},
						},
					},
				},
			},
		},
	}
}
