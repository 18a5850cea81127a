package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/client"
	"github.com/hearth-chat/hearth/internal/deeplink"
	"github.com/hearth-chat/hearth/internal/logging"
	"github.com/hearth-chat/hearth/internal/protocol"
	"github.com/hearth-chat/hearth/internal/themes"
	"github.com/hearth-chat/hearth/internal/tui"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}

type clientFlags struct {
	configPath string
	server     string
	serverID   string
	userID     string
	user       string
	token      string
	theme      string
	open       string
}

func run(ctx context.Context, args []string) error {
	var (
		logCfg logging.Config
		flags  clientFlags
		closer func()
	)

	prefsDir, err := client.DefaultDir()
	if err != nil {
		return err
	}

	app := &cli.Command{
		Name:  "hearth",
		Usage: "Terminal chat client",
		Flags: append(logCfg.Flags(filepath.Join(prefsDir, "client.log")),
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Sources:     cli.EnvVars("HEARTH_CLIENT_CONFIG"),
				Usage:       "Path to the client config file (default: user config dir)",
				Destination: &flags.configPath,
			},
			&cli.StringFlag{
				Name:        "server",
				Aliases:     []string{"s"},
				Sources:     cli.EnvVars("HEARTH_SERVER"),
				Usage:       "Server address, e.g. localhost:8080 or https://chat.example.com",
				Destination: &flags.server,
			},
			&cli.StringFlag{
				Name:        "server-id",
				Sources:     cli.EnvVars("HEARTH_SERVER_ID"),
				Usage:       "Server to open (default: the first server)",
				Destination: &flags.serverID,
			},
			&cli.StringFlag{
				Name:        "user-id",
				Sources:     cli.EnvVars("HEARTH_USER_ID"),
				Usage:       "User id to post as",
				Destination: &flags.userID,
			},
			&cli.StringFlag{
				Name:        "user",
				Aliases:     []string{"u"},
				Sources:     cli.EnvVars("HEARTH_USER"),
				Usage:       "Username to post as, resolved through the member list",
				Destination: &flags.user,
			},
			&cli.StringFlag{
				Name:        "token",
				Sources:     cli.EnvVars("HEARTH_TOKEN"),
				Usage:       "API token when the server requires one",
				Destination: &flags.token,
			},
			&cli.StringFlag{
				Name:        "theme",
				Sources:     cli.EnvVars("HEARTH_THEME"),
				Usage:       "Theme name (saved as the new default)",
				Destination: &flags.theme,
			},
			&cli.StringFlag{
				Name:        "open",
				Usage:       "hearth:// link to open on start",
				Destination: &flags.open,
			},
		),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := logCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closer = f
			return logging.With(ctx, logging.Default()), nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if closer != nil {
				closer()
			}
			return nil
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runClient(ctx, &flags, prefsDir)
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run hearth", logging.ErrAttr(err))
		os.Stderr.WriteString("hearth: " + err.Error() + "\n")
		return err
	}
	return nil
}

// loadConfig reads the config file and applies the flag overrides
func (f *clientFlags) loadConfig() (*client.Config, error) {
	path := f.configPath
	if path == "" {
		p, err := client.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	config, err := client.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if f.server != "" {
		config.Server = f.server
	}
	if f.token != "" {
		config.Token = f.token
	}
	if f.theme != "" {
		config.Theme = f.theme
	}
	for _, id := range []struct {
		raw  string
		name string
		dst  *uuid.UUID
	}{
		{f.serverID, "server_id", &config.ServerID},
		{f.userID, "user_id", &config.UserID},
	} {
		if id.raw == "" {
			continue
		}
		parsed, err := uuid.Parse(id.raw)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid id", goerr.V(id.name, id.raw))
		}
		*id.dst = parsed
	}
	return config, nil
}

func runClient(ctx context.Context, flags *clientFlags, prefsDir string) error {
	logger := logging.From(ctx)

	config, err := flags.loadConfig()
	if err != nil {
		return err
	}
	logger.Info("client starting", "config", config)

	var open *deeplink.Link
	if flags.open != "" {
		link, ok := deeplink.Parse(flags.open)
		if !ok {
			return goerr.New("not a hearth:// link", goerr.V("open", flags.open))
		}
		open = &link
		if sid, _ := link.ServerChannel(); sid != uuid.Nil {
			config.ServerID = sid
		}
	}

	api, err := client.NewAPI(config.Server, config.ServerID, config.Token)
	if err != nil {
		return err
	}

	setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	ping := api.Ping(setupCtx, 5*time.Second)
	if !ping.Success {
		return goerr.New("server is not reachable", goerr.V("server", config.Server), goerr.V("error", ping.Error))
	}
	logger.Info("server reachable", "version", ping.Version, "latency", ping.Latency, "clients", ping.Clients)

	if config.ServerID == uuid.Nil {
		servers, err := api.ListServers(setupCtx)
		if err != nil {
			return err
		}
		if len(servers) == 0 {
			return goerr.New("server has no chat servers", goerr.V("server", config.Server))
		}
		config.ServerID = servers[0].ID
		api = api.WithServer(config.ServerID)
	}
	if config.UserID == uuid.Nil {
		id, err := resolveUser(setupCtx, api, flags.user)
		if err != nil {
			return err
		}
		config.UserID = id
	}

	prefs, err := client.NewConfigManager(prefsDir)
	if err != nil {
		return err
	}
	if config.Theme != "" {
		theme := strings.ToLower(config.Theme)
		if err := prefs.Update(func(c *client.AppConfig) { c.UI.Theme = theme }); err != nil {
			logger.Warn("failed to save theme", logging.ErrAttr(err))
		}
	}

	model, err := tui.NewApp(ctx, tui.Options{
		ServerID: config.ServerID,
		UserID:   config.UserID,
		Backend:  api,
		Prefs:    prefs,
		Themes:   themes.Loader{UserDir: filepath.Join(prefs.Dir(), "themes")},
		Open:     open,
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	conn := client.NewConnection(config.Server, config.ServerID, config.UserID, config.Token)
	conn.SetHandlers(
		func(msg *protocol.Message) { p.Send(tui.GatewayMsg{Message: msg}) },
		func(state client.ConnState) { p.Send(tui.ConnStateMsg{State: state}) },
		func(err error) { p.Send(tui.ErrMsg{Err: err}) },
	)

	connCtx, stopConn := context.WithCancel(ctx)
	defer stopConn()
	go func() {
		if err := conn.Run(connCtx); err != nil {
			p.Send(tui.ErrMsg{Err: err})
		}
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return goerr.Wrap(err, "failed to run program")
	}
	return nil
}

// resolveUser finds the member to post as by username. Without a name the
// server must have exactly one member.
func resolveUser(ctx context.Context, api *client.API, username string) (uuid.UUID, error) {
	members, err := api.SearchMembers(ctx, username, 100)
	if err != nil {
		return uuid.Nil, err
	}

	var names []string
	for _, m := range members {
		if username != "" && strings.EqualFold(m.Username, username) {
			return m.ID, nil
		}
		names = append(names, m.Username)
	}
	if username == "" && len(members) == 1 {
		return members[0].ID, nil
	}
	return uuid.Nil, goerr.New("pass --user or --user-id to choose who to post as",
		goerr.V("user", username), goerr.V("members", names))
}
