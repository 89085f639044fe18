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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "scout",
		Usage: "Discover, rank and validate professional events",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"SCOUT_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Set logging format (text, json)",
				Value:   "text",
				EnvVars: []string{"SCOUT_LOG_FORMAT"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "discover",
				Usage:  "Run one discovery for a term, country and date window",
				Action: discoverCommand,
				Flags:  append(requestFlags(), engineFlags()...),
			},
			{
				Name:   "serve",
				Usage:  "Serve discovery runs over HTTP",
				Action: serveCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						Value:   ":8080",
						EnvVars: []string{"SCOUT_ADDR"},
					},
				}, engineFlags()...),
			},
			{
				Name:  "runs",
				Usage: "Inspect stored runs",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List recent runs, newest first",
						Action: runsListCommand,
						Flags: []cli.Flag{
							dbFlag(),
							&cli.IntFlag{
								Name:  "limit",
								Usage: "Maximum number of runs to list",
								Value: 20,
							},
						},
					},
					{
						Name:      "show",
						Usage:     "Show a stored run",
						ArgsUsage: "<run-id>",
						Action:    runsShowCommand,
						Flags: []cli.Flag{
							dbFlag(),
							&cli.BoolFlag{
								Name:  "json",
								Usage: "Print the run as JSON",
							},
						},
					},
					{
						Name:      "delete",
						Usage:     "Delete a stored run",
						ArgsUsage: "<run-id>",
						Action:    runsDeleteCommand,
						Flags:     []cli.Flag{dbFlag()},
					},
				},
			},
			{
				Name:  "cache",
				Usage: "Manage the provider result cache",
				Subcommands: []*cli.Command{
					{
						Name:   "purge",
						Usage:  "Remove every cached provider response",
						Action: cachePurgeCommand,
						Flags:  []cli.Flag{dbFlag(), pgURLFlag()},
					},
					{
						Name:   "prune",
						Usage:  "Remove expired entries from the shared cache",
						Action: cachePruneCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "pg-url",
								Usage:    "PostgreSQL URL of the shared cache tier",
								EnvVars:  []string{"SCOUT_PG_URL"},
								Required: true,
							},
						},
					},
				},
			},
		},
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "db",
		Aliases: []string{"d"},
		Usage:   "Path to BadgerDB database directory",
		Value:   "scout_db",
		EnvVars: []string{"SCOUT_DB"},
	}
}

func pgURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "pg-url",
		Usage:   "PostgreSQL URL of the shared cache tier (disabled if empty)",
		EnvVars: []string{"SCOUT_PG_URL"},
	}
}

func requestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "term",
			Aliases: []string{"t"},
			Usage:   "Search term",
		},
		&cli.StringFlag{
			Name:    "country",
			Aliases: []string{"c"},
			Usage:   "ISO country code or group (DACH, EU, NORDICS, BENELUX)",
		},
		&cli.StringFlag{
			Name:     "from",
			Usage:    "Window start (YYYY-MM-DD)",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "to",
			Usage:    "Window end (YYYY-MM-DD)",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:  "industry",
			Usage: "Industry term; repeat for several",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print the run result as JSON",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Print a per-stage trace to stderr",
		},
	}
}

func engineFlags() []cli.Flag {
	return []cli.Flag{
		dbFlag(),
		pgURLFlag(),
		&cli.StringFlag{
			Name:     "search-url",
			Usage:    "Base URL of the JSON web-search API (SearXNG compatible)",
			EnvVars:  []string{"SCOUT_SEARCH_URL"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "feed-template",
			Usage:   "RSS search URL template of the fallback provider",
			EnvVars: []string{"SCOUT_FEED_TEMPLATE"},
		},
		&cli.BoolFlag{
			Name:  "no-feed",
			Usage: "Disable the RSS fallback provider",
		},
		&cli.StringFlag{
			Name:    "ai-host",
			Usage:   "OpenAI-compatible host for relevance scoring and embeddings (disabled if empty)",
			EnvVars: []string{"SCOUT_AI_HOST"},
		},
		&cli.StringFlag{
			Name:    "classifier-model",
			Usage:   "Relevance classifier model name",
			Value:   "qwen2.5:3b",
			EnvVars: []string{"SCOUT_CLASSIFIER_MODEL"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "embeddinggemma",
			EnvVars: []string{"SCOUT_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "ai-token",
			Usage:   "API token for the AI host",
			EnvVars: []string{"SCOUT_AI_TOKEN"},
		},
		&cli.DurationFlag{
			Name:    "deadline",
			Usage:   "Overall time budget of one run",
			Value:   3 * time.Minute,
			EnvVars: []string{"SCOUT_DEADLINE"},
		},
		&cli.IntFlag{
			Name:    "min-results",
			Usage:   "Accepted results below which the date window is widened",
			Value:   3,
			EnvVars: []string{"SCOUT_MIN_RESULTS"},
		},
		&cli.IntFlag{
			Name:    "max-variants",
			Usage:   "Maximum query variants per window",
			Value:   15,
			EnvVars: []string{"SCOUT_MAX_VARIANTS"},
		},
		&cli.Float64Flag{
			Name:    "rate",
			Usage:   "Initial requests per second per provider",
			Value:   2,
			EnvVars: []string{"SCOUT_RATE"},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(c.String("log-format")) {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.String("log-format"))
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
