package tui

import (
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/deeplink"
	"github.com/m-mizutani/goerr/v2"
)

// Command represents a parsed slash command
type Command struct {
	Name string
	Args []string
}

var (
	errNotCommand   = errors.New("not a command")
	errEmptyCommand = errors.New("empty command")
)

// ParseCommand parses a slash command string into a Command struct
func ParseCommand(input string) (*Command, error) {
	if !strings.HasPrefix(input, "/") {
		return nil, errNotCommand
	}

	parts := strings.Fields(input[1:])
	if len(parts) == 0 {
		return nil, errEmptyCommand
	}

	return &Command{
		Name: strings.ToLower(parts[0]),
		Args: parts[1:],
	}, nil
}

const helpText = "/theme [name]  /themes  /members  /ping  /open <hearth://...>  /quit"

const pingTimeout = 5 * time.Second

// execute runs a command against the app. It returns a status line and
// an optional command to run.
func (a *App) execute(cmd *Command) (string, tea.Cmd, error) {
	switch cmd.Name {
	case "theme":
		return a.commandTheme(cmd.Args)

	case "themes":
		a.openThemeBrowser()
		return "", nil, nil

	case "ping":
		p, ok := a.backend.(pinger)
		if !ok {
			return "", nil, goerr.New("backend does not support ping")
		}
		ctx := a.ctx
		return "Pinging...", func() tea.Msg {
			return pingMsg{result: p.Ping(ctx, pingTimeout)}
		}, nil

	case "members":
		a.layout.ToggleMembers()
		state := "hidden"
		if a.layout.ShowMembers {
			state = "shown"
		}
		return "Member list " + state, a.saveLayout(), nil

	case "open":
		if len(cmd.Args) != 1 {
			return "", nil, goerr.New("usage: /open hearth://channel/<id>")
		}
		link, ok := deeplink.Parse(cmd.Args[0])
		if !ok {
			return "", nil, goerr.New("not a hearth link", goerr.V("link", cmd.Args[0]))
		}
		return a.openLink(link)

	case "quit", "exit", "q":
		return "", tea.Quit, nil

	case "help", "?":
		return helpText, nil, nil

	default:
		return "", nil, goerr.New("unknown command /"+cmd.Name, goerr.V("command", cmd.Name))
	}
}

func (a *App) commandTheme(args []string) (string, tea.Cmd, error) {
	if len(args) == 0 {
		return "Theme: " + a.themes.DisplayName(a.themeName), nil, nil
	}

	name := strings.ToLower(args[0])
	theme, err := a.themes.Get(name)
	if err != nil {
		return "", nil, err
	}
	a.applyTheme(name, theme)
	return "Theme set to " + a.themes.DisplayName(name), a.saveTheme(), nil
}

// openLink navigates to the channel a deep link points at
func (a *App) openLink(link deeplink.Link) (string, tea.Cmd, error) {
	serverID, channelID := link.ServerChannel()
	if serverID != uuid.Nil && serverID != a.serverID {
		return "", nil, goerr.New("link points at another server", goerr.V("server_id", serverID))
	}
	if channelID == uuid.Nil {
		return "", nil, goerr.New("link does not name a channel", goerr.V("link", link.String()))
	}
	node, ok := a.tree.NodeMap[channelID]
	if !ok || !node.Channel.IsTextBased() {
		return "", nil, goerr.New("unknown channel", goerr.V("channel_id", channelID))
	}
	return "#" + node.Channel.Name, a.selectChannel(node.Channel), nil
}
