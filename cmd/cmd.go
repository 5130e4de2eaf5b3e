// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

const version = "0.1.0"

// newApp builds the root command. The --config flag is visible to every subcommand.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "mixtape",
		Usage:   "Turn a mood into a mixtape with an LLM and the Spotify catalog",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("MIXTAPE_CONFIG"),
			},
		},
		Commands: r.register(),
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file if missing, then initialize the database and run migrations",
		Action: r.Setup,
	}
}

func rollbackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "rollback",
		Usage:  "Roll back the most recently applied migration",
		Action: r.Rollback,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides config and PORT)",
			},
		},
		Action: r.Serve,
	}
}

func analyzeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Extract mood, language, genre and keywords from a prompt and search for matching tracks",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "prompt"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-search",
				Usage: "Only analyze the prompt",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
		},
		Action: r.Analyze,
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the Spotify catalog",
		ArgsUsage: "<keyword>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Search,
	}
}

func userCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage accounts",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("MIXTAPE_PASSWORD")},
				},
				Action: r.UserCreate,
			},
		},
	}
}

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "Username that owns the queue",
		Required: true,
	}
}

func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Inspect and edit a user's mixtape queue",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the queue in insertion order",
				Flags: []cli.Flag{
					userFlag(),
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.QueueList,
			},
			{
				Name:      "add",
				Usage:     "Search the catalog and add one of the results",
				ArgsUsage: "<keyword>...",
				Flags: []cli.Flag{
					userFlag(),
					&cli.IntFlag{
						Name:  "pick",
						Usage: "1-based index of the search result to add",
						Value: 1,
					},
				},
				Action: r.QueueAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a track from the queue",
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{Name: "track-id", Usage: "Spotify track ID", Required: true},
				},
				Action: r.QueueRemove,
			},
			{
				Name:  "export",
				Usage: "Write the queue to a file",
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, markdown, text or json",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (directory for markdown). Defaults to the username",
					},
				},
				Action: r.QueueExport,
			},
		},
	}
}

func expandCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "expand",
		Usage: "Recommend songs like the given seeds and add the matches to a queue",
		Flags: []cli.Flag{
			userFlag(),
			&cli.StringSliceFlag{
				Name:    "song",
				Aliases: []string{"s"},
				Usage:   `Seed song as "Title - Artist" (repeat at least 4 times)`,
			},
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		},
		Action: r.Expand,
	}
}

func tokensCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tokens",
		Usage: "Maintain revoked session tokens",
		Commands: []*cli.Command{
			{
				Name:   "purge",
				Usage:  "Delete revocations for tokens that have already expired",
				Action: r.TokensPurge,
			},
		},
	}
}
