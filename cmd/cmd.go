// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the config file and database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create a config file and initialize the run-history database",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authCommand verifies Spotify credentials and scopes
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Verify Spotify credentials and required scopes",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "url",
				Usage: "Print the authorization URL instead of authenticating",
			},
		},
		Action: r.Auth,
	}
}

// generateCommand runs the full weekly pipeline
func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Build and publish this week's discovery playlist",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Assemble and print the mix without creating a playlist",
			},
			&cli.BoolFlag{
				Name:  "no-artwork",
				Usage: "Skip cover art generation",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record the run in the local database",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the result as JSON",
			},
			&cli.StringFlag{
				Name:  "market",
				Usage: "Market code for searches and artist lookups (overrides config)",
			},
			&cli.FloatFlag{
				Name:  "temperature",
				Usage: "Sampling temperature for AI query suggestions",
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "Random seed for the anchor shuffle (0 uses the clock)",
			},
		},
		Action: r.Generate,
	}
}

// previewCommand launches the interactive TUI
func previewCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "preview",
		Usage:  "Interactively preview the mix before publishing",
		Flags:  []cli.Flag{},
		Action: r.Preview,
	}
}

// historyCommand lists past runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List past weekly mix runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 10,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// exportCommand writes a past run to a file
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a past run as CSV, Markdown or plain text",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "id",
				Usage: "Run ID to export (defaults to the most recent run)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: csv, md or txt",
				Value:   "txt",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (defaults to stdout)",
			},
		},
		Action: r.Export,
	}
}
