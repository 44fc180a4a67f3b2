// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output", Value: true},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func passwordFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "password",
		Usage:   "Admin password (prompted when omitted)",
		Sources: cli.EnvVars("LUNA_ADMIN_PASSWORD"),
	}
}

// setupCommand handles setup operations for the database and configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a configuration file from the bundled template",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// dbCommand handles schema maintenance.
func dbCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "Database maintenance",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "List applied migration versions",
				Action: r.DBStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.DBRollback,
			},
		},
	}
}

// serveCommand runs the JSON API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the LunaStream API server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (default from [server] host and port)"},
			&cli.BoolFlag{Name: "migrate", Usage: "Run pending migrations before serving", Value: true},
		},
		Action: r.Serve,
	}
}

// authCommand handles sign-in against the identity provider.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the signed-in identity",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in through the browser (OpenID Connect)",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "timeout", Usage: "How long to wait for the callback", Value: loginTimeout},
					&cli.BoolFlag{Name: "no-browser", Usage: "Print the login URL instead of opening it"},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the saved session; progress falls back to this device",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the saved session and check the API",
				Action: r.AuthStatus,
			},
		},
	}
}

// progressCommand manages continue-watching entries.
func progressCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "progress",
		Aliases: []string{"continue", "cw"},
		Usage:   "Continue-watching list",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List entries, most recent first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "text, json, csv or markdown", Value: "text"},
				},
				Action: r.ProgressList,
			},
			{
				Name:      "add",
				Usage:     "Record progress for a movie or series",
				ArgsUsage: "<movie|tv> <id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "kind"},
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Display title (looked up when omitted)"},
					&cli.IntFlag{Name: "season", Aliases: []string{"s"}},
					&cli.IntFlag{Name: "episode", Aliases: []string{"e"}},
					&cli.FloatFlag{Name: "position", Usage: "Seconds watched"},
					&cli.FloatFlag{Name: "duration", Usage: "Runtime in seconds"},
				},
				Action: r.ProgressAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove an entry",
				ArgsUsage: "<movie|tv> <id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "kind"},
					&cli.StringArg{Name: "id"},
				},
				Action: r.ProgressRemove,
			},
			{
				Name:  "export",
				Usage: "Write the list to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "text, json, csv or markdown", Value: "json"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file path", Value: "watch_progress"},
				},
				Action: r.ProgressExport,
			},
		},
	}
}

// searchCommand searches every provider in scope.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search movies, TV and anime",
		ArgsUsage: "<query>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags: append(outputFlags(),
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "all, movie, tv or anime", Value: "all"},
		),
		Action: r.Search,
	}
}

// browseCommand lists popular titles of one kind.
func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "browse",
		Usage:     "Browse popular titles",
		ArgsUsage: "<movie|tv|anime>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "kind"},
		},
		Flags: append(outputFlags(),
			&cli.StringFlag{Name: "sort", Usage: "popularity, rating, release or relevance", Value: "popularity"},
		),
		Action: r.Browse,
	}
}

func detailsCommand(name, usage string, action cli.ActionFunc) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<id>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags:  outputFlags(),
		Action: action,
	}
}

func movieCommand(r *Runner) *cli.Command {
	return detailsCommand("movie", "Show movie details", r.MovieDetails)
}

func tvCommand(r *Runner) *cli.Command {
	return detailsCommand("tv", "Show series details", r.TVDetails)
}

func animeCommand(r *Runner) *cli.Command {
	return detailsCommand("anime", "Show anime details", r.AnimeDetails)
}

func personCommand(r *Runner) *cli.Command {
	return detailsCommand("person", "Show a cast member's known-for titles and filmography", r.PersonDetails)
}

// seasonCommand lists the episodes of one season.
func seasonCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "season",
		Usage:     "List the episodes of a season",
		ArgsUsage: "<series id> <season>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
			&cli.StringArg{Name: "season"},
		},
		Flags:  outputFlags(),
		Action: r.Season,
	}
}

// homeCommand renders the landing page rows.
func homeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "home",
		Usage: "Show trending and popular rows",
		Flags: append(outputFlags(),
			&cli.IntFlag{Name: "limit", Usage: "Titles per row", Value: 10},
			&cli.IntFlag{Name: "workers", Usage: "Concurrent row fetches", Value: 3},
		),
		Action: r.Home,
	}
}

// sportsCommand handles live sports listings.
func sportsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sports",
		Usage: "Live sports",
		Commands: []*cli.Command{
			{
				Name:  "live",
				Usage: "List live matches grouped by sport",
				Flags: append(outputFlags(),
					&cli.StringFlag{Name: "sport", Usage: "Sport id, or all", Value: "all"},
					&cli.BoolFlag{Name: "popular", Usage: "Only popular matches"},
				),
				Action: r.SportsLive,
			},
			{
				Name:      "streams",
				Usage:     "List streams for a match source",
				ArgsUsage: "<source> <id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "source"},
					&cli.StringArg{Name: "id"},
				},
				Flags: append(outputFlags(),
					&cli.BoolFlag{Name: "open", Usage: "Open the first stream"},
				),
				Action: r.SportsStreams,
			},
		},
	}
}

func playFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "player", Aliases: []string{"p"}, Usage: "Embed player (default from settings)"},
		&cli.BoolFlag{Name: "print", Usage: "Print the embed URL instead of opening it"},
	}
}

// playCommand opens a title in an embed player and records progress.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Open a title in the browser",
		Commands: []*cli.Command{
			{
				Name:      "movie",
				Usage:     "Play a movie",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     playFlags(),
				Action:    r.PlayMovie,
			},
			{
				Name:      "tv",
				Usage:     "Play an episode; resumes the saved episode when none is given",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: append(playFlags(),
					&cli.IntFlag{Name: "season", Aliases: []string{"s"}},
					&cli.IntFlag{Name: "episode", Aliases: []string{"e"}},
				),
				Action: r.PlayTV,
			},
			{
				Name:      "anime",
				Usage:     "Play an anime episode",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: append(playFlags(),
					&cli.IntFlag{Name: "episode", Aliases: []string{"e"}, Value: 1},
					&cli.BoolFlag{Name: "dub", Usage: "Prefer the dubbed audio"},
				),
				Action: r.PlayAnime,
			},
			{
				Name:   "resume",
				Usage:  "Resume the most recent continue-watching entry",
				Flags:  playFlags(),
				Action: r.PlayResume,
			},
		},
	}
}

// playersCommand lists the embed players.
func playersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "players",
		Usage: "List embed players",
		Flags: append(outputFlags(),
			&cli.BoolFlag{Name: "anime", Usage: "List anime players"},
		),
		Action: r.Players,
	}
}

// settingsCommand reads and writes device preferences.
func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Device preferences",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show all settings, or one key",
				ArgsUsage: "[key]",
				Arguments: []cli.Argument{&cli.StringArg{Name: "key"}},
				Flags:     outputFlags(),
				Action:    r.SettingsGet,
			},
			{
				Name:      "set",
				Usage:     "Change a setting (play_trailers, show_intro, player, accent_color)",
				ArgsUsage: "<key> <value>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
					&cli.StringArg{Name: "value"},
				},
				Action: r.SettingsSet,
			},
		},
	}
}

// notificationsCommand reads the signed-in user's notifications.
func notificationsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "notifications",
		Aliases: []string{"inbox"},
		Usage:   "Notifications for the signed-in user",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List notifications with read state",
				Flags:  outputFlags(),
				Action: r.NotificationsList,
			},
			{
				Name:      "read",
				Usage:     "Mark a notification read",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.NotificationsRead,
			},
			{
				Name:   "read-all",
				Usage:  "Mark every notification read",
				Action: r.NotificationsReadAll,
			},
		},
	}
}

// adminCommand manages notifications with the admin password.
func adminCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "Administrative commands",
		Commands: []*cli.Command{
			{
				Name:  "notify",
				Usage: "Publish a notification to every user",
				Flags: []cli.Flag{
					passwordFlag(),
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "content", Required: true},
				},
				Action: r.AdminNotify,
			},
			{
				Name:   "notifications",
				Usage:  "List every notification",
				Flags:  append(outputFlags(), passwordFlag()),
				Action: r.AdminNotifications,
			},
			{
				Name:      "delete",
				Usage:     "Delete a notification",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{passwordFlag()},
				Action:    r.AdminDelete,
			},
			{
				Name:   "hash-password",
				Usage:  "Print a bcrypt hash for [server] admin_password_hash",
				Flags:  []cli.Flag{passwordFlag()},
				Action: r.AdminHashPassword,
			},
		},
	}
}

// statsCommand reads and records usage counters.
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Usage statistics",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the counters",
				Flags:  outputFlags(),
				Action: r.StatsShow,
			},
			{
				Name:      "track",
				Usage:     "Record an event (unique_visitor, watch, tmdb_request, user_signup)",
				ArgsUsage: "<event>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "event"}},
				Action:    r.StatsTrack,
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the LunaStream API",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Direct GET, prints the response",
				ArgsUsage: "<path>",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "Direct POST with JSON body",
				ArgsUsage: "<path>",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive continue-watching and search UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-file", Usage: "Where to write logs while the UI is running"},
		},
		Action: r.TUI,
	}
}
