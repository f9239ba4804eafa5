// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}

// setupCommand handles database initialization.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize the local mapping database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "core",
				Usage:  "Create the Core schema (non-production environments only)",
				Action: r.SetupCore,
			},
		},
	}
}

// extractCommand copies documents from the legacy store into the local cache.
func extractCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Fetch legacy documents into the local cache",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "category",
				Usage: "Only extract one category (users or playlists)",
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "Documents per query page (default from config)",
			},
		},
		Action: r.Extract,
	}
}

func ingestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Resolve and validate without writing anything",
		},
		&cli.IntFlag{
			Name:  "concurrency",
			Usage: "Documents processed in parallel per batch (default from config)",
		},
		&cli.StringFlag{
			Name:  "file",
			Usage: "Only ingest one cached document (file name with or without .json)",
		},
		&cli.BoolFlag{
			Name:  "progress",
			Usage: "Show a live progress display",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Summary format: text, json or csv",
			Value: "text",
		},
		&cli.BoolFlag{
			Name:  "manifest",
			Usage: "Write a JSON run manifest next to the error artifacts",
		},
	}
}

// ingestCommand loads cached documents into Core.
func ingestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Ingest cached documents into Core",
		Commands: []*cli.Command{
			{
				Name:   "users",
				Usage:  "Resolve identities and create Core users",
				Flags:  ingestFlags(),
				Action: r.IngestUsers,
			},
			{
				Name:   "playlists",
				Usage:  "Reconcile playlists and their items into Core",
				Flags:  ingestFlags(),
				Action: r.IngestPlaylists,
			},
		},
	}
}

// playlistsCommand holds playlist maintenance operations.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "Playlist maintenance",
		Commands: []*cli.Command{
			{
				Name:  "reconcile",
				Usage: "Retry playlist items skipped for a missing catalog entry",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Only report which items would now resolve",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistsReconcile,
			},
			{
				Name:      "show",
				Usage:     "Print a Core playlist and its items",
				ArgsUsage: "<playlist-id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistsShow,
			},
		},
	}
}

// resetCommand deletes auth accounts for every cached user email.
func resetCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Delete auth accounts of all cached users (test environments)",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "Confirm the deletion",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Reset,
	}
}

// statusCommand prints run history and ledger counts.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show recent ingestion runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "category",
				Usage: "Only show runs for one category",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
		},
		Action: r.Status,
	}
}
