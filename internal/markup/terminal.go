package markup

import (
	"bytes"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// TerminalStyles holds the lipgloss styles used for each element
type TerminalStyles struct {
	Bold        lipgloss.Style
	Italic      lipgloss.Style
	Strike      lipgloss.Style
	Spoiler     lipgloss.Style
	Code        lipgloss.Style
	Link        lipgloss.Style
	Mention     lipgloss.Style
	MentionSelf lipgloss.Style
	Quote       lipgloss.Style
	Emoji       lipgloss.Style

	// CodeTheme is the chroma style used for fenced code blocks
	CodeTheme string
}

// DefaultTerminalStyles returns styles that read well on a dark terminal
func DefaultTerminalStyles() TerminalStyles {
	return TerminalStyles{
		Bold:        lipgloss.NewStyle().Bold(true),
		Italic:      lipgloss.NewStyle().Italic(true),
		Strike:      lipgloss.NewStyle().Strikethrough(true),
		Spoiler:     lipgloss.NewStyle().Foreground(lipgloss.Color("#4E5058")).Background(lipgloss.Color("#4E5058")),
		Code:        lipgloss.NewStyle().Foreground(lipgloss.Color("#E3E5E8")).Background(lipgloss.Color("#2B2D31")),
		Link:        lipgloss.NewStyle().Foreground(lipgloss.Color("#00A8FC")).Underline(true),
		Mention:     lipgloss.NewStyle().Foreground(lipgloss.Color("#C9CDFB")).Background(lipgloss.Color("#3C4270")),
		MentionSelf: lipgloss.NewStyle().Foreground(lipgloss.Color("#F0B232")).Bold(true),
		Quote:       lipgloss.NewStyle().Foreground(lipgloss.Color("#4E5058")),
		Emoji:       lipgloss.NewStyle().Foreground(lipgloss.Color("#F0B232")),
		CodeTheme:   "dracula",
	}
}

// Terminal renders message content as ANSI-styled text for the TUI
type Terminal struct {
	styles TerminalStyles
}

// NewTerminal creates a terminal renderer
func NewTerminal(styles TerminalStyles) *Terminal {
	return &Terminal{styles: styles}
}

// Render converts content into styled terminal text
func (t *Terminal) Render(content string, opts Options) string {
	doc := parse(tokenize(content, opts.Inline), opts.Inline)
	var b strings.Builder
	t.renderNodes(&b, doc.Children, opts)
	return b.String()
}

func (t *Terminal) renderNodes(b *strings.Builder, nodes []node, opts Options) {
	for _, n := range nodes {
		b.WriteString(t.renderNode(n, opts))
	}
}

func (t *Terminal) children(nodes []node, opts Options) string {
	var b strings.Builder
	t.renderNodes(&b, nodes, opts)
	return b.String()
}

func (t *Terminal) renderNode(n node, opts Options) string {
	switch n := n.(type) {
	case *textNode:
		return n.Content

	case *styleNode:
		inner := t.children(n.Children, opts)
		switch n.Kind {
		case nodeBold:
			return t.styles.Bold.Render(inner)
		case nodeItalic:
			return t.styles.Italic.Render(inner)
		case nodeStrikethrough:
			return t.styles.Strike.Render(inner)
		case nodeSpoiler:
			return t.styles.Spoiler.Render(inner)
		}
		return inner

	case *inlineCodeNode:
		return t.styles.Code.Render(n.Content)

	case *codeBlockNode:
		return "\n" + highlightCode(n.Content, n.Lang, t.styles.CodeTheme) + "\n"

	case *linkNode:
		if n.Auto {
			return t.styles.Link.Render(n.URL)
		}
		return t.styles.Link.Render(n.Text) + " (" + n.URL + ")"

	case *userMentionNode:
		label := "@" + opts.Lookup.UserName(n.UserID)
		if n.UserID == opts.CurrentUserID {
			return t.styles.MentionSelf.Render(label)
		}
		return t.styles.Mention.Render(label)

	case *roleMentionNode:
		name, color := opts.Lookup.Role(n.RoleID)
		style := t.styles.Mention
		if color != "" {
			style = style.Foreground(lipgloss.Color(color))
		}
		return style.Render("@" + name)

	case *channelMentionNode:
		return t.styles.Mention.Render("#" + opts.Lookup.ChannelName(n.ChannelID))

	case *specialMentionNode:
		return t.styles.MentionSelf.Render("@" + n.MentionType)

	case *emojiNode:
		return t.styles.Emoji.Render(":" + n.Name + ":")

	case *blockquoteNode:
		lines := strings.Split(t.children(n.Children, opts), "\n")
		bar := t.styles.Quote.Render("▎")
		for i, line := range lines {
			lines[i] = bar + " " + line
		}
		return strings.Join(lines, "\n") + "\n"

	case *lineBreakNode:
		return "\n"
	}
	return ""
}

// highlightCode colors a fenced block with chroma. On any failure, or when
// NO_COLOR is set, the code is returned unchanged.
func highlightCode(code, lang, theme string) string {
	if os.Getenv("NO_COLOR") != "" {
		return code
	}

	lexer := resolveLexer(code, lang)
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	style := styles.Get(theme)
	if style == nil {
		style = styles.Fallback
	}

	var buf bytes.Buffer
	if err := formatters.TTY256.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func resolveLexer(code, lang string) chroma.Lexer {
	lang = strings.ToLower(strings.TrimSpace(lang))
	var lexer chroma.Lexer
	if lang != "" {
		lexer = lexers.Get(lang)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}
