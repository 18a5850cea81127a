package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/database"
	"github.com/hearth-chat/hearth/internal/logging"
	"github.com/hearth-chat/hearth/internal/markup"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/hearth-chat/hearth/internal/reorder"
	"github.com/hearth-chat/hearth/internal/server"
	"github.com/hearth-chat/hearth/internal/themes"
	"github.com/hearth-chat/hearth/pkg/crypto"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// configFilename is the config file read when --config is not given
const configFilename = "hearth.toml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var (
		logCfg logging.Config
		closer func()
	)

	app := &cli.Command{
		Name:    "hearth-server",
		Usage:   "Terminal chat server",
		Version: server.Version,
		Flags:   logCfg.Flags("stderr"),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := logCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closer = f
			logging.Default().Debug("logger configured", "logger", logCfg)
			return logging.With(ctx, logging.Default()), nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if closer != nil {
				closer()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdInit(),
			cmdHashToken(),
			cmdRender(),
			cmdMove(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run hearth-server", logging.ErrAttr(err))
		return err
	}
	return nil
}

// serverFlags binds the config file and the flags that override it
type serverFlags struct {
	configPath string
	host       string
	port       int
	dbPath     string
	tokenHash  string
	noSeed     bool
}

func (f *serverFlags) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Sources:     cli.EnvVars("HEARTH_CONFIG"),
			Usage:       "Path to the TOML config file",
			Value:       configFilename,
			Destination: &f.configPath,
		},
		&cli.StringFlag{
			Name:        "host",
			Sources:     cli.EnvVars("HEARTH_HOST"),
			Usage:       "Host to bind to (overrides config)",
			Destination: &f.host,
		},
		&cli.IntFlag{
			Name:        "port",
			Aliases:     []string{"p"},
			Sources:     cli.EnvVars("HEARTH_PORT"),
			Usage:       "Port to bind to (overrides config)",
			Destination: &f.port,
		},
		&cli.StringFlag{
			Name:        "db",
			Sources:     cli.EnvVars("HEARTH_DB"),
			Usage:       "Path to the database file (overrides config)",
			Destination: &f.dbPath,
		},
		&cli.StringFlag{
			Name:        "api-token-hash",
			Sources:     cli.EnvVars("HEARTH_API_TOKEN_HASH"),
			Usage:       "bcrypt hash of the API token, see hash-token (overrides config)",
			Destination: &f.tokenHash,
		},
		&cli.BoolFlag{
			Name:        "no-seed",
			Sources:     cli.EnvVars("HEARTH_NO_SEED"),
			Usage:       "Do not create the demo server in an empty database",
			Destination: &f.noSeed,
		},
	}
}

// Load reads the config file and applies the overrides
func (f *serverFlags) Load() (*server.Config, error) {
	config, err := server.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.host != "" {
		config.Host = f.host
	}
	if f.port != 0 {
		config.Port = f.port
	}
	if f.dbPath != "" {
		config.DatabasePath = f.dbPath
	}
	if f.tokenHash != "" {
		config.APITokenHash = f.tokenHash
	}
	if f.noSeed {
		config.Seed = false
	}
	return config, nil
}

func cmdServe() *cli.Command {
	var flags serverFlags

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run the REST API and websocket gateway",
		Flags:   flags.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			config, err := flags.Load()
			if err != nil {
				return err
			}
			logger := logging.From(ctx)
			logger.Info("configuration loaded", "config", config)

			db, err := database.New(config.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			if config.Seed {
				srv, err := db.EnsureDefaultServer(ctx)
				if err != nil {
					return err
				}
				logger.Info("default server ready", "server_id", srv.ID, "name", srv.Name)
			}

			if info, err := os.Stat(config.DatabasePath); err == nil {
				logger.Info("database opened",
					"path", config.DatabasePath,
					"size", humanize.Bytes(uint64(info.Size())),
					"modified", humanize.Time(info.ModTime()),
				)
			}

			return server.New(config, db).Run(ctx)
		},
	}
}

func cmdHashToken() *cli.Command {
	var generate int

	return &cli.Command{
		Name:      "hash-token",
		Usage:     "Print the bcrypt hash for api_token_hash",
		ArgsUsage: "[token]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "generate",
				Aliases:     []string{"g"},
				Usage:       "Generate a random token of this many bytes instead of reading one",
				Destination: &generate,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			token := c.Args().First()
			if generate > 0 {
				t, err := crypto.GenerateToken(generate)
				if err != nil {
					return err
				}
				token = t
				fmt.Fprintf(c.Root().Writer, "token: %s\n", token)
			}
			if token == "" {
				data, err := io.ReadAll(io.LimitReader(c.Root().Reader, 4096))
				if err != nil {
					return goerr.Wrap(err, "failed to read token from stdin")
				}
				token = strings.TrimSpace(string(data))
			}

			hash, err := crypto.HashToken(token)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "api_token_hash = %q\n", hash)
			return nil
		},
	}
}

func cmdRender() *cli.Command {
	var (
		flags    serverFlags
		serverID string
		userID   string
		format   string
	)

	return &cli.Command{
		Name:      "render",
		Usage:     "Render message markup with the mentions of a server",
		ArgsUsage: "<content>",
		Flags: append(flags.Flags(),
			&cli.StringFlag{
				Name:        "server-id",
				Usage:       "Server whose users, roles and channels resolve mentions (default: the first server)",
				Destination: &serverID,
			},
			&cli.StringFlag{
				Name:        "user-id",
				Usage:       "Viewer, for highlighting mentions of the current user",
				Destination: &userID,
			},
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "Output format [html|terminal]",
				Value:       "html",
				Destination: &format,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			content := strings.Join(c.Args().Slice(), " ")
			if content == "" {
				return goerr.New("content is required")
			}

			config, err := flags.Load()
			if err != nil {
				return err
			}
			db, err := database.New(config.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			sid, err := resolveServer(ctx, db, serverID)
			if err != nil {
				return err
			}
			lookup, err := db.Lookup(ctx, sid)
			if err != nil {
				return err
			}

			opts := markup.Options{Lookup: lookup}
			if userID != "" {
				id, err := uuid.Parse(userID)
				if err != nil {
					return goerr.Wrap(err, "invalid user id", goerr.V("user_id", userID))
				}
				opts.CurrentUserID = id
			}

			var out string
			switch format {
			case "html":
				out = markup.Render(content, opts)
			case "terminal":
				styles := themes.GetDefaultTheme().BuildStyles()
				out = markup.NewTerminal(styles.Markup).Render(content, opts)
			default:
				return goerr.New("invalid format", goerr.V("format", format))
			}
			fmt.Fprintln(c.Root().Writer, out)
			return nil
		},
	}
}

func cmdMove() *cli.Command {
	var (
		flags    serverFlags
		serverID string
		zone     string
	)

	return &cli.Command{
		Name:      "move",
		Usage:     "Move a channel next to or into another, as a sidebar drop would",
		ArgsUsage: "<channel> <target>",
		Flags: append(flags.Flags(),
			&cli.StringFlag{
				Name:        "server-id",
				Usage:       "Server the channels belong to (default: the first server)",
				Destination: &serverID,
			},
			&cli.StringFlag{
				Name:        "zone",
				Aliases:     []string{"z"},
				Usage:       "Where the channel lands relative to the target [before|after|inside]",
				Value:       "before",
				Destination: &zone,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 2 {
				return goerr.New("expected a channel and a target", goerr.V("args", c.Args().Slice()))
			}
			z, err := reorder.ParseZone(strings.ToLower(zone))
			if err != nil {
				return err
			}

			config, err := flags.Load()
			if err != nil {
				return err
			}
			db, err := database.New(config.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			sid, err := resolveServer(ctx, db, serverID)
			if err != nil {
				return err
			}
			channels, err := db.GetServerChannels(ctx, sid)
			if err != nil {
				return err
			}
			source, err := findChannel(channels, c.Args().Get(0))
			if err != nil {
				return err
			}
			target, err := findChannel(channels, c.Args().Get(1))
			if err != nil {
				return err
			}

			updates, err := reorder.Compute(reorder.FromChannels(channels), reorder.Drop{
				Source: source.ID,
				Target: target.ID,
				Zone:   z,
			})
			if err != nil {
				return err
			}
			if len(updates) == 0 {
				fmt.Fprintln(c.Root().Writer, "Nothing to move")
				return nil
			}
			if _, err := db.ApplyChannelUpdates(ctx, sid, updates); err != nil {
				return err
			}
			logging.From(ctx).Info("channel moved",
				"channel", source.Name, "target", target.Name, "zone", z, "updates", len(updates))
			fmt.Fprintf(c.Root().Writer, "Moved %s %s %s (%d channels updated)\n", source.Name, z, target.Name, len(updates))
			return nil
		},
	}
}

// findChannel matches a channel by id, then by case-insensitive name
func findChannel(channels []*models.Channel, ref string) (*models.Channel, error) {
	if id, err := uuid.Parse(ref); err == nil {
		for _, ch := range channels {
			if ch.ID == id {
				return ch, nil
			}
		}
		return nil, goerr.New("channel not found", goerr.V("id", id))
	}

	var found *models.Channel
	for _, ch := range channels {
		if !strings.EqualFold(ch.Name, ref) {
			continue
		}
		if found != nil {
			return nil, goerr.New("channel name is ambiguous, use the id", goerr.V("name", ref))
		}
		found = ch
	}
	if found == nil {
		return nil, goerr.New("channel not found", goerr.V("name", ref))
	}
	return found, nil
}

func resolveServer(ctx context.Context, db *database.DB, raw string) (uuid.UUID, error) {
	if raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, goerr.Wrap(err, "invalid server id", goerr.V("server_id", raw))
		}
		return id, nil
	}
	servers, err := db.ListServers(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if len(servers) == 0 {
		return uuid.Nil, goerr.New("database has no servers; run serve once to seed it")
	}
	return servers[0].ID, nil
}
