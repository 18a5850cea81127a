// Package themes loads the TUI color themes. A theme is a TOML file with a
// base palette and semantic colors mapped onto it.
package themes

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/hearth-chat/hearth/internal/markup"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// Theme represents a complete color theme
type Theme struct {
	Meta     ThemeMeta      `toml:"meta"`
	Colors   ThemeColors    `toml:"colors"`
	Semantic SemanticColors `toml:"semantic"`
}

// ThemeMeta contains metadata about the theme
type ThemeMeta struct {
	Name    string `toml:"name"`
	Author  string `toml:"author"`
	Variant string `toml:"variant"` // "dark" or "light"
	// CodeStyle is the chroma style for fenced code blocks
	CodeStyle string `toml:"code_style"`
}

// ThemeColors contains the base color palette
type ThemeColors struct {
	Background string `toml:"background"`
	Selection  string `toml:"selection"`
	Foreground string `toml:"foreground"`
	Comment    string `toml:"comment"`
	Red        string `toml:"red"`
	Orange     string `toml:"orange"`
	Yellow     string `toml:"yellow"`
	Green      string `toml:"green"`
	Cyan       string `toml:"cyan"`
	Purple     string `toml:"purple"`
	Pink       string `toml:"pink"`
}

// SemanticColors maps colors to specific UI purposes
type SemanticColors struct {
	SidebarFg       string `toml:"sidebar_fg"`
	SidebarSelected string `toml:"sidebar_selected"`
	SidebarMoving   string `toml:"sidebar_moving"`

	ChatFg            string `toml:"chat_fg"`
	ChatTimestamp     string `toml:"chat_timestamp"`
	ChatUsernameSelf  string `toml:"chat_username_self"`
	ChatUsernameOther string `toml:"chat_username_other"`
	ChatMention       string `toml:"chat_mention"`
	ChatMentionBg     string `toml:"chat_mention_bg"`
	ChatMentionSelf   string `toml:"chat_mention_self"`
	ChatCode          string `toml:"chat_code"`
	ChatCodeBg        string `toml:"chat_code_bg"`
	ChatLink          string `toml:"chat_link"`

	InputBorder      string `toml:"input_border"`
	InputBorderFocus string `toml:"input_border_focus"`

	PopupBg       string `toml:"popup_bg"`
	PopupSelected string `toml:"popup_selected"`

	Error   string `toml:"error"`
	Warning string `toml:"warning"`
	Success string `toml:"success"`
	Info    string `toml:"info"`
	Border  string `toml:"border"`
}

// Styles contains pre-computed lipgloss styles for the theme
type Styles struct {
	// Sidebar
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style
	SidebarMoving   lipgloss.Style
	DropTarget      lipgloss.Style
	CategoryName    lipgloss.Style
	Header          lipgloss.Style

	// Chat
	MessageContent lipgloss.Style
	Timestamp      lipgloss.Style
	UsernameSelf   lipgloss.Style
	UsernameOther  lipgloss.Style
	SystemMessage  lipgloss.Style

	// Input and popup
	InputField    lipgloss.Style
	InputFocused  lipgloss.Style
	Popup         lipgloss.Style
	PopupItem     lipgloss.Style
	PopupSelected lipgloss.Style
	PopupDetail   lipgloss.Style

	// Feedback
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Info    lipgloss.Style

	Panel       lipgloss.Style
	PanelFocus  lipgloss.Style
	StatusBar   lipgloss.Style
	Placeholder lipgloss.Style

	// Markup holds the styles for rendered message content
	Markup markup.TerminalStyles
}

// LoadTheme loads a theme from a TOML file
func LoadTheme(path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read theme file", goerr.V("path", path))
	}
	return parseTheme(data)
}

func parseTheme(data []byte) (*Theme, error) {
	theme := GetDefaultTheme()
	if err := toml.Unmarshal(data, theme); err != nil {
		return nil, goerr.Wrap(err, "failed to parse theme")
	}
	return theme, nil
}

func color(c string) lipgloss.Color {
	return lipgloss.Color(c)
}

// BuildStyles creates lipgloss styles from a theme
func (t *Theme) BuildStyles() *Styles {
	s := &Styles{}
	sem := t.Semantic

	s.SidebarItem = lipgloss.NewStyle().
		Foreground(color(sem.SidebarFg)).
		PaddingLeft(1)
	s.SidebarSelected = lipgloss.NewStyle().
		Background(color(sem.SidebarSelected)).
		Foreground(color(sem.SidebarFg)).
		Bold(true).
		PaddingLeft(1)
	s.SidebarMoving = lipgloss.NewStyle().
		Foreground(color(sem.SidebarMoving)).
		Bold(true).
		Italic(true).
		PaddingLeft(1)
	s.DropTarget = lipgloss.NewStyle().
		Foreground(color(t.Colors.Background)).
		Background(color(sem.SidebarMoving)).
		PaddingLeft(1)
	s.CategoryName = lipgloss.NewStyle().
		Foreground(color(t.Colors.Comment)).
		Bold(true)
	s.Header = lipgloss.NewStyle().
		Foreground(color(t.Colors.Foreground)).
		Background(color(t.Colors.Selection)).
		Bold(true).
		Padding(0, 1)

	s.MessageContent = lipgloss.NewStyle().Foreground(color(sem.ChatFg))
	s.Timestamp = lipgloss.NewStyle().Foreground(color(sem.ChatTimestamp)).Faint(true)
	s.UsernameSelf = lipgloss.NewStyle().Foreground(color(sem.ChatUsernameSelf)).Bold(true)
	s.UsernameOther = lipgloss.NewStyle().Foreground(color(sem.ChatUsernameOther)).Bold(true)
	s.SystemMessage = lipgloss.NewStyle().Foreground(color(t.Colors.Comment)).Italic(true)

	s.InputField = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color(sem.InputBorder)).
		Padding(0, 1)
	s.InputFocused = s.InputField.BorderForeground(color(sem.InputBorderFocus))

	s.Popup = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(color(sem.Border)).
		Background(color(sem.PopupBg))
	s.PopupItem = lipgloss.NewStyle().Foreground(color(t.Colors.Foreground)).Padding(0, 1)
	s.PopupSelected = s.PopupItem.Background(color(sem.PopupSelected)).Bold(true)
	s.PopupDetail = lipgloss.NewStyle().Foreground(color(t.Colors.Comment))

	s.Error = lipgloss.NewStyle().Foreground(color(sem.Error))
	s.Warning = lipgloss.NewStyle().Foreground(color(sem.Warning))
	s.Success = lipgloss.NewStyle().Foreground(color(sem.Success))
	s.Info = lipgloss.NewStyle().Foreground(color(sem.Info))

	s.Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color(sem.Border))
	s.PanelFocus = s.Panel.BorderForeground(color(sem.InputBorderFocus))
	s.StatusBar = lipgloss.NewStyle().
		Background(color(t.Colors.Selection)).
		Foreground(color(t.Colors.Foreground)).
		Padding(0, 1)
	s.Placeholder = lipgloss.NewStyle().Foreground(color(t.Colors.Comment)).Italic(true)

	s.Markup = markup.TerminalStyles{
		Bold:        lipgloss.NewStyle().Bold(true),
		Italic:      lipgloss.NewStyle().Italic(true),
		Strike:      lipgloss.NewStyle().Strikethrough(true),
		Spoiler:     lipgloss.NewStyle().Foreground(color(t.Colors.Selection)).Background(color(t.Colors.Selection)),
		Code:        lipgloss.NewStyle().Foreground(color(sem.ChatCode)).Background(color(sem.ChatCodeBg)),
		Link:        lipgloss.NewStyle().Foreground(color(sem.ChatLink)).Underline(true),
		Mention:     lipgloss.NewStyle().Foreground(color(sem.ChatMention)).Background(color(sem.ChatMentionBg)),
		MentionSelf: lipgloss.NewStyle().Foreground(color(sem.ChatMentionSelf)).Bold(true),
		Quote:       lipgloss.NewStyle().Foreground(color(t.Colors.Comment)),
		Emoji:       lipgloss.NewStyle().Foreground(color(t.Colors.Yellow)),
		CodeTheme:   t.Meta.CodeStyle,
	}
	return s
}

// GetDefaultTheme returns the built-in Dracula theme
func GetDefaultTheme() *Theme {
	return &Theme{
		Meta: ThemeMeta{
			Name:      "Dracula",
			Author:    "Zeno Rocha",
			Variant:   "dark",
			CodeStyle: "dracula",
		},
		Colors: ThemeColors{
			Background: "#282A36",
			Selection:  "#44475A",
			Foreground: "#F8F8F2",
			Comment:    "#6272A4",
			Red:        "#FF5555",
			Orange:     "#FFB86C",
			Yellow:     "#F1FA8C",
			Green:      "#50FA7B",
			Cyan:       "#8BE9FD",
			Purple:     "#BD93F9",
			Pink:       "#FF79C6",
		},
		Semantic: SemanticColors{
			SidebarFg:         "#F8F8F2",
			SidebarSelected:   "#44475A",
			SidebarMoving:     "#FFB86C",
			ChatFg:            "#F8F8F2",
			ChatTimestamp:     "#6272A4",
			ChatUsernameSelf:  "#BD93F9",
			ChatUsernameOther: "#8BE9FD",
			ChatMention:       "#F8F8F2",
			ChatMentionBg:     "#44475A",
			ChatMentionSelf:   "#F1FA8C",
			ChatCode:          "#F8F8F2",
			ChatCodeBg:        "#21222C",
			ChatLink:          "#8BE9FD",
			InputBorder:       "#6272A4",
			InputBorderFocus:  "#BD93F9",
			PopupBg:           "#21222C",
			PopupSelected:     "#44475A",
			Error:             "#FF5555",
			Warning:           "#FFB86C",
			Success:           "#50FA7B",
			Info:              "#8BE9FD",
			Border:            "#6272A4",
		},
	}
}
