package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hearth-chat/hearth/internal/logging"
	"github.com/hearth-chat/hearth/internal/server"
	"github.com/hearth-chat/hearth/pkg/crypto"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// setupModel is the form of the init command
type setupModel struct {
	inputs    []textinput.Model
	focused   int
	done      bool
	cancelled bool
	err       string
}

const (
	fieldHost = iota
	fieldPort
	fieldDB
	fieldToken
	numFields
)

var fieldLabels = []string{"Bind Host", "Port", "Database Path", "API Token (blank for none)"}

func newSetupModel(defaults *server.Config) setupModel {
	inputs := make([]textinput.Model, numFields)

	inputs[fieldHost] = textinput.New()
	inputs[fieldHost].Placeholder = "0.0.0.0"
	inputs[fieldHost].SetValue(defaults.Host)
	inputs[fieldHost].Focus()
	inputs[fieldHost].CharLimit = 64

	inputs[fieldPort] = textinput.New()
	inputs[fieldPort].Placeholder = "8080"
	inputs[fieldPort].SetValue(strconv.Itoa(defaults.Port))
	inputs[fieldPort].CharLimit = 5

	inputs[fieldDB] = textinput.New()
	inputs[fieldDB].Placeholder = "hearth.db"
	inputs[fieldDB].SetValue(defaults.DatabasePath)
	inputs[fieldDB].CharLimit = 128

	inputs[fieldToken] = textinput.New()
	inputs[fieldToken].Placeholder = "leave blank to allow anonymous writes"
	inputs[fieldToken].EchoMode = textinput.EchoPassword
	inputs[fieldToken].CharLimit = 128

	return setupModel{inputs: inputs}
}

func (m setupModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m setupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit

		case "tab", "down", "enter":
			if msg.String() == "enter" && m.focused == numFields-1 {
				if _, err := m.port(); err != nil {
					m.err = "Port must be a number between 1 and 65535."
					return m, nil
				}
				m.done = true
				return m, tea.Quit
			}
			m.inputs[m.focused].Blur()
			m.focused = (m.focused + 1) % numFields
			m.inputs[m.focused].Focus()
			return m, nil

		case "shift+tab", "up":
			m.inputs[m.focused].Blur()
			m.focused = (m.focused - 1 + numFields) % numFields
			m.inputs[m.focused].Focus()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return m, cmd
}

func (m setupModel) port() (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(m.inputs[fieldPort].Value()))
	if err != nil {
		return 0, err
	}
	if port < 1 || port > 65535 {
		return 0, goerr.New("port out of range", goerr.V("port", port))
	}
	return port, nil
}

// config builds the server config from the form. The token is returned
// separately since only its hash is stored.
func (m setupModel) config() (*server.Config, string, error) {
	port, err := m.port()
	if err != nil {
		return nil, "", err
	}
	config := server.DefaultConfig()
	config.Host = strings.TrimSpace(m.inputs[fieldHost].Value())
	config.Port = port
	if db := strings.TrimSpace(m.inputs[fieldDB].Value()); db != "" {
		config.DatabasePath = db
	}

	token := strings.TrimSpace(m.inputs[fieldToken].Value())
	if token != "" {
		hash, err := crypto.HashToken(token)
		if err != nil {
			return nil, "", err
		}
		config.APITokenHash = hash
	}
	return config, token, nil
}

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#bd93f9")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555"))
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f8f8f2")).
			Background(lipgloss.Color("#bd93f9")).
			Bold(true).
			Padding(0, 2)
)

func (m setupModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Hearth Server Setup"))
	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render("Tab/↑↓ to navigate · Enter on last field to confirm · Esc to cancel"))
	b.WriteString("\n\n")

	for i, label := range fieldLabels {
		b.WriteString(labelStyle.Render(label))
		b.WriteString("\n")
		b.WriteString("  " + m.inputs[i].View())
		b.WriteString("\n\n")
	}

	if m.err != "" {
		b.WriteString(errStyle.Render("  ⚠ " + m.err))
		b.WriteString("\n")
	}
	return b.String()
}

var errSetupCancelled = errors.New("setup cancelled")

func cmdInit() *cli.Command {
	var (
		path  string
		force bool
	)

	return &cli.Command{
		Name:  "init",
		Usage: "Write a config file interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Sources:     cli.EnvVars("HEARTH_CONFIG"),
				Usage:       "Path of the config file to write",
				Value:       configFilename,
				Destination: &path,
			},
			&cli.BoolFlag{
				Name:        "force",
				Usage:       "Overwrite an existing config file",
				Destination: &force,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if _, err := os.Stat(path); err == nil && !force {
				return goerr.New("config file already exists, use --force to overwrite", goerr.V("path", path))
			}

			defaults, err := server.LoadConfig(path)
			if err != nil {
				return err
			}

			result, err := tea.NewProgram(newSetupModel(defaults), tea.WithContext(ctx)).Run()
			if err != nil {
				return goerr.Wrap(err, "setup failed")
			}
			final := result.(setupModel)
			if final.cancelled || !final.done {
				return errSetupCancelled
			}

			config, token, err := final.config()
			if err != nil {
				return err
			}
			data, err := toml.Marshal(config)
			if err != nil {
				return goerr.Wrap(err, "failed to encode config")
			}
			if err := os.WriteFile(path, data, 0600); err != nil {
				return goerr.Wrap(err, "failed to write config", goerr.V("path", path))
			}
			logging.From(ctx).Info("config written", "path", path, "config", config)

			out := c.Root().Writer
			fmt.Fprintf(out, "Config written to %s\n", path)
			fmt.Fprintf(out, "Share this address: %s\n", config.Addr())
			if token != "" {
				fmt.Fprintln(out, "Clients must pass the API token with --token")
			}
			return nil
		},
	}
}
