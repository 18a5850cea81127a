package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/markup"
	"github.com/hearth-chat/hearth/internal/themes"
)

// themeBrowser is the interactive theme picker with live preview
type themeBrowser struct {
	names    []string
	selected int
	// restored on cancel
	previousName  string
	previousTheme *themes.Theme
	theme         *themes.Theme
}

// openThemeBrowser opens the picker with the cursor on the active theme
func (a *App) openThemeBrowser() {
	names := a.themes.List()
	if len(names) == 0 {
		names = []string{themes.DefaultName}
	}

	current := 0
	for i, n := range names {
		if n == a.themeName {
			current = i
			break
		}
	}

	prev, err := a.themes.Get(a.themeName)
	if err != nil {
		prev = themes.GetDefaultTheme()
	}
	a.browser = &themeBrowser{
		names:         names,
		selected:      current,
		previousName:  a.themeName,
		previousTheme: prev,
		theme:         prev,
	}
	a.ac.Close()
}

func (a *App) handleThemeBrowserKey(key string) tea.Cmd {
	b := a.browser
	switch key {
	case "up", "k":
		if b.selected > 0 {
			b.selected--
			a.previewTheme(b.names[b.selected])
		}

	case "down", "j":
		if b.selected < len(b.names)-1 {
			b.selected++
			a.previewTheme(b.names[b.selected])
		}

	case "enter":
		name := b.names[b.selected]
		a.browser = nil
		if name == b.previousName {
			return nil
		}
		a.setStatus("Theme set to " + a.themes.DisplayName(name))
		return a.saveTheme()

	case "esc", "ctrl+t":
		a.browser = nil
		a.applyTheme(b.previousName, b.previousTheme)
	}
	return nil
}

// previewTheme applies a theme without saving it
func (a *App) previewTheme(name string) {
	t, err := a.themes.Get(name)
	if err != nil {
		a.setError(err)
		return
	}
	a.browser.theme = t
	a.applyTheme(name, t)
}

// previewMessages are rendered through the markup pipeline so mentions,
// code and links show in the previewed colors
var previewMessages = []struct {
	author  string
	self    bool
	content string
}{
	{"alex", false, "Welcome to **hearth**! Check <#00000000-0000-0000-0000-00000000000a> first."},
	{"you", true, "Thanks! The `j`/`k` keys move the drop target, _nice_."},
	{"sam", false, "Hey <@00000000-0000-0000-0000-00000000000b>, docs are at https://example.com ||spoiler||"},
}

var (
	previewChannel = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	previewUser    = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
)

func (a *App) renderThemeBrowser() string {
	b := a.browser
	s := a.styles
	t := b.theme

	width := max(a.width, 40)
	height := max(a.height, 10)
	listWidth := 28
	previewWidth := max(width-listWidth-4, 30)

	var list strings.Builder
	list.WriteString(s.Header.Render("SELECT THEME"))
	list.WriteString("\n")
	list.WriteString(s.Placeholder.Width(listWidth - 2).Render("↑↓ navigate · Enter save · Esc cancel"))
	list.WriteString("\n\n")
	for i, slug := range b.names {
		name := truncate(a.themes.DisplayName(slug), listWidth-6)
		if i == b.selected {
			list.WriteString(s.PopupSelected.Width(listWidth - 2).Render("▶ " + name))
		} else {
			list.WriteString(s.SidebarItem.Width(listWidth - 2).Render("  " + name))
		}
		list.WriteString("\n")
	}
	listPanel := s.PanelFocus.
		Border(lipgloss.RoundedBorder()).
		Width(listWidth).
		Height(height - 3).
		Render(list.String())

	var prev strings.Builder
	prev.WriteString(s.Header.Render(t.Meta.Name))
	if t.Meta.Author != "" {
		prev.WriteString(s.Timestamp.Render("  by " + t.Meta.Author))
	}
	prev.WriteString("\n\n")

	swatch := func(color, label string) string {
		block := lipgloss.NewStyle().Background(lipgloss.Color(color)).Render("  ")
		return block + " " + s.Timestamp.Render(label)
	}
	swatches := []string{
		swatch(t.Colors.Background, "Background"),
		swatch(t.Colors.Foreground, "Foreground"),
		swatch(t.Colors.Purple, "Purple"),
		swatch(t.Colors.Cyan, "Cyan"),
		swatch(t.Colors.Green, "Green"),
		swatch(t.Colors.Red, "Red"),
		swatch(t.Colors.Orange, "Orange"),
		swatch(t.Colors.Yellow, "Yellow"),
	}
	cell := lipgloss.NewStyle().Width((previewWidth - 6) / 2)
	for i := 0; i < len(swatches); i += 2 {
		row := cell.Render(swatches[i])
		if i+1 < len(swatches) {
			row += "   " + cell.Render(swatches[i+1])
		}
		prev.WriteString(row + "\n")
	}

	prev.WriteString("\n")
	prev.WriteString(s.CategoryName.Render("── Chat Preview ──"))
	prev.WriteString("\n")

	opts := markup.Options{
		Lookup: markup.Lookup{
			Users:    map[uuid.UUID]markup.UserInfo{previewUser: {Username: "you"}},
			Channels: map[uuid.UUID]string{previewChannel: "rules"},
		},
		CurrentUserID: previewUser,
	}
	for _, m := range previewMessages {
		name := s.UsernameOther.Render(m.author)
		if m.self {
			name = s.UsernameSelf.Render(m.author)
		}
		prev.WriteString(name + "  " + a.renderer.Render(m.content, opts) + "\n")
	}

	prev.WriteString("\n")
	prev.WriteString(s.StatusBar.Width(previewWidth - 4).Render(" #general  variant: " + t.Meta.Variant))

	previewPanel := s.Panel.
		Border(lipgloss.RoundedBorder()).
		Width(previewWidth).
		Height(height - 3).
		Render(prev.String())

	title := s.StatusBar.Width(width).Bold(true).Render("  Hearth Theme Browser")
	return lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinHorizontal(lipgloss.Top, listPanel, previewPanel))
}
