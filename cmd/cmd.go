// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles configuration and database setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config file from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show applied and pending migrations",
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recently applied migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// importCommand handles artist imports.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import artists with their albums and tracks",
		Commands: []*cli.Command{
			{
				Name:  "artist",
				Usage: "Import a single artist by catalog id",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "popular",
						Usage: "Flag the artist and its tracks as popular",
					},
					&cli.BoolFlag{
						Name:  "process",
						Usage: "Record the run as an import process",
					},
				},
				Action: r.ImportArtist,
			},
			{
				Name:      "artists",
				Usage:     "Import many artists concurrently",
				ArgsUsage: "[id...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "File with one artist id per line",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent artist imports (default from config)",
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Artist imports started per second",
						Value: 2,
					},
					&cli.BoolFlag{
						Name:  "popular",
						Usage: "Flag the artists and their tracks as popular",
					},
				},
				Action: r.ImportArtists,
			},
		},
	}
}

// searchCommand queries the remote catalog.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the remote catalog",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Comma separated kinds: artist, album, track",
				Value:   "artist",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum results per kind",
				Value: 20,
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Index of the first result",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Search,
	}
}

// genreCommand resolves genre tags without touching the catalog.
func genreCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "genre",
		Usage:     "Resolve genre tags to a canonical genre",
		ArgsUsage: "<tag...>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "list",
				Usage: "List the canonical genres",
			},
		},
		Action: r.Genre,
	}
}

// catalogCommand handles exports of imported data.
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Inspect imported catalog data",
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Export an imported artist and its tracks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "artist",
						Aliases:  []string{"a"},
						Usage:    "Catalog id of the artist",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format: csv, markdown, txt, json",
						Value: "txt",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path (prints to stdout when empty)",
					},
				},
				Action: r.CatalogExport,
			},
		},
	}
}

// processCommand inspects recorded import processes.
func processCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "process",
		Usage: "Inspect import processes",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List import processes, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show processes with this status",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of processes",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ProcessList,
			},
			{
				Name:  "show",
				Usage: "Show one import process",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.ProcessShow,
			},
		},
	}
}
