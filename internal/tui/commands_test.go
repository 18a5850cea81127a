package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hearth-chat/hearth/internal/client"
	"github.com/m-mizutani/gt"
)

func TestParseCommand(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    *Command
		wantErr error
	}{
		{name: "simple", input: "/quit", want: &Command{Name: "quit", Args: []string{}}},
		{name: "args", input: "/theme  Nord ", want: &Command{Name: "theme", Args: []string{"Nord"}}},
		{name: "case", input: "/MEMBERS", want: &Command{Name: "members", Args: []string{}}},
		{name: "not a command", input: "hello", wantErr: errNotCommand},
		{name: "empty", input: "/  ", wantErr: errEmptyCommand},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := ParseCommand(tc.input)
			if tc.wantErr != nil {
				gt.True(t, errors.Is(err, tc.wantErr))
				return
			}
			gt.NoError(t, err)
			gt.V(t, cmd.Name).Equal(tc.want.Name)
			gt.A(t, cmd.Args).Equal(tc.want.Args)
		})
	}
}

func TestExecute_Unknown(t *testing.T) {
	f := newFixture(t, nil)

	_, _, err := f.app.execute(&Command{Name: "dance"})
	gt.Error(t, err)

	status, cmd, err := f.app.execute(&Command{Name: "quit"})
	gt.NoError(t, err)
	gt.V(t, status).Equal("")
	gt.True(t, cmd != nil)
}

func TestExecute_Ping(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.ping = &client.PingResult{Success: true, Version: "1.2.3", Latency: 3 * time.Millisecond, Clients: 1200}

	status, cmd, err := f.app.execute(&Command{Name: "ping"})
	gt.NoError(t, err)
	gt.V(t, status).Equal("Pinging...")
	gt.True(t, f.run(cmd) == nil)
	gt.False(t, f.app.statusError)
	gt.S(t, f.app.status).Contains("1.2.3")
	gt.S(t, f.app.status).Contains("3ms")
	gt.S(t, f.app.status).Contains("1,200 online")

	f.backend.ping = &client.PingResult{Error: "connection refused"}
	_, cmd, err = f.app.execute(&Command{Name: "ping"})
	gt.NoError(t, err)
	f.run(cmd)
	gt.True(t, f.app.statusError)
}

func TestThemeBrowser(t *testing.T) {
	f := newFixture(t, nil)

	status, _, err := f.app.execute(&Command{Name: "themes"})
	gt.NoError(t, err)
	gt.V(t, status).Equal("")
	gt.V(t, f.app.browser).NotNil()
	gt.A(t, f.app.browser.names).Equal([]string{"dracula", "gruvbox", "nord"})
	gt.V(t, f.app.browser.selected).Equal(0)
	gt.S(t, f.app.View()).Contains("SELECT THEME")

	// moving previews without saving
	f.press(tea.KeyMsg{Type: tea.KeyDown})
	gt.V(t, f.app.themeName).Equal("gruvbox")
	f.press(tea.KeyMsg{Type: tea.KeyEsc})
	gt.True(t, f.app.browser == nil)
	gt.V(t, f.app.themeName).Equal("dracula")

	f.press(tea.KeyMsg{Type: tea.KeyCtrlT})
	f.press(tea.KeyMsg{Type: tea.KeyDown})
	f.press(tea.KeyMsg{Type: tea.KeyDown})
	cmd := f.press(tea.KeyMsg{Type: tea.KeyEnter})
	gt.True(t, f.app.browser == nil)
	gt.V(t, f.app.themeName).Equal("nord")
	gt.True(t, f.run(cmd) == nil)

	cfg, err := f.prefs.LoadAppConfig()
	gt.NoError(t, err)
	gt.V(t, cfg.UI.Theme).Equal("nord")
}
