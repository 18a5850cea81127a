package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/client"
	"github.com/hearth-chat/hearth/internal/markup"
	"github.com/hearth-chat/hearth/internal/models"
)

// Consecutive messages by one author within this gap share a header
const groupGap = 5 * time.Minute

// View implements tea.Model
func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Loading..."
	}
	if a.browser != nil {
		return a.renderThemeBrowser()
	}

	height := a.height - 1
	var panels []string
	if a.panels.Sidebar > 0 {
		panels = append(panels, a.renderSidebar(a.panels.Sidebar, height))
	}
	panels = append(panels, a.renderChatPanel(a.panels.Chat, height))
	if a.panels.Members > 0 {
		panels = append(panels, a.renderMembers(a.panels.Members, height))
	}

	main := lipgloss.JoinHorizontal(lipgloss.Top, panels...)
	return lipgloss.JoinVertical(lipgloss.Left, main, a.renderStatusBar())
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

func channelPrefix(ch *models.Channel) string {
	switch {
	case ch.IsVoiceBased():
		return "🔊 "
	case ch.IsCategory():
		return ""
	default:
		return "# "
	}
}

// renderSidebar renders the channel tree. In move mode the picked-up
// channel and the drop target are highlighted.
func (a *App) renderSidebar(width, height int) string {
	var b strings.Builder
	s := a.styles

	b.WriteString(s.Header.Width(width).Render(truncate("CHANNELS", width-2)))
	b.WriteString("\n")

	for i, node := range a.tree.FlatList {
		ch := node.Channel
		label := strings.Repeat("  ", node.Depth) + channelPrefix(ch) + ch.Name
		if node.IsCategory() {
			marker := "▾ "
			if a.collapsed[ch.ID] {
				marker = "▸ "
			}
			label = marker + strings.ToUpper(ch.Name)
		}
		if n := a.unreadCount(node); n > 0 {
			badge := fmt.Sprintf(" (%d)", n)
			label = truncate(label, width-2-lipgloss.Width(badge)) + badge
		} else {
			label = truncate(label, width-2)
		}

		style := s.SidebarItem
		switch {
		case a.move != nil && ch.ID == a.move.source:
			style = s.SidebarMoving
		case a.move != nil && i == a.move.target:
			style = s.DropTarget
		case i == a.cursor && a.focus == FocusSidebar:
			style = s.SidebarSelected
		case node.IsCategory():
			style = s.CategoryName.PaddingLeft(1)
		case a.current != nil && ch.ID == a.current.ID:
			style = s.SidebarItem.Bold(true)
		}
		b.WriteString(style.Width(width).Render(label))
		b.WriteString("\n")
	}

	if len(a.tree.FlatList) == 0 {
		b.WriteString(s.Placeholder.PaddingLeft(1).Render("No channels"))
	}

	border := s.Panel
	if a.focus == FocusSidebar {
		border = s.PanelFocus
	}
	return border.
		Border(lipgloss.RoundedBorder(), false, true, false, false).
		Width(width).
		Height(height).
		Render(b.String())
}

// unreadCount is the number of unread mentions shown next to a sidebar
// entry. A collapsed category carries the sum of its channels.
func (a *App) unreadCount(node *ChannelTreeNode) int {
	if !node.IsCategory() {
		return a.unread[node.Channel.ID]
	}
	if !a.collapsed[node.Channel.ID] {
		return 0
	}
	n := 0
	for _, child := range node.Children {
		n += a.unread[child.Channel.ID]
	}
	return n
}

// renderChatPanel renders the channel header, messages, the mention popup
// and the input
func (a *App) renderChatPanel(width, height int) string {
	s := a.styles

	title := "Select a channel"
	if a.current != nil {
		title = "# " + a.current.Name
		if a.current.Topic != "" {
			title += " - " + a.current.Topic
		}
	}
	header := s.Header.Width(width).Render(truncate(title, width-2))

	var body string
	if len(a.messages) == 0 {
		body = s.Placeholder.Width(width).Height(a.chat.Height).Align(lipgloss.Center).Render("No messages yet. Say hello!")
	} else {
		body = a.chat.View()
	}

	input := s.InputField
	if a.focus == FocusInput {
		input = s.InputFocused
	}
	inputBox := input.Width(max(width-2, 1)).Render(a.input.View())

	parts := []string{header, body}
	if popup := a.renderPopup(width); popup != "" {
		parts = append(parts, popup)
	}
	parts = append(parts, inputBox)

	return lipgloss.NewStyle().Width(width).Height(height).MaxHeight(height).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

func (a *App) renderPopup(width int) string {
	if !a.ac.Active() {
		return ""
	}
	s := a.styles
	var lines []string
	for i, it := range a.ac.Items() {
		line := it.Display
		if it.Detail != "" {
			line += "  " + s.PopupDetail.Render(it.Detail)
		}
		style := s.PopupItem
		if i == a.ac.Selected() {
			style = s.PopupSelected
		}
		lines = append(lines, style.Render(line))
	}
	return s.Popup.Width(min(max(width-4, 10), 48)).Render(strings.Join(lines, "\n"))
}

// renderMembers renders the member list
func (a *App) renderMembers(width, height int) string {
	s := a.styles
	var b strings.Builder

	b.WriteString(s.Header.Width(width).Render(truncate("MEMBERS", width-2)))
	b.WriteString("\n")

	for _, m := range a.members {
		name := m.DisplayName
		if name == "" {
			name = m.Username
		}
		style := s.SidebarItem
		if m.ID == a.userID {
			style = s.UsernameSelf.PaddingLeft(1)
		} else if color := a.memberColor(m.RoleIDs); color != "" {
			style = style.Foreground(lipgloss.Color(color))
		}
		b.WriteString(style.Render(truncate(name, width-2)))
		b.WriteString("\n")
	}
	if len(a.members) == 0 {
		b.WriteString(s.Placeholder.PaddingLeft(1).Render("No members"))
	}

	return s.Panel.
		Border(lipgloss.RoundedBorder(), false, false, false, true).
		Width(width).
		Height(height).
		Render(b.String())
}

// memberColor returns the color of the first colored role, roles being
// listed highest first
func (a *App) memberColor(roleIDs []uuid.UUID) string {
	for _, id := range roleIDs {
		if _, color := a.lookup.Role(id); color != "" {
			return color
		}
	}
	return ""
}

// renderStatusBar renders the bottom status bar
func (a *App) renderStatusBar() string {
	s := a.styles

	var left string
	if a.connState == client.StateReady {
		left = s.Success.Render("● " + a.connState.String())
	} else {
		left = s.Error.Render("○ " + a.connState.String())
	}
	total := 0
	for _, n := range a.unread {
		total += n
	}
	if total > 0 {
		left += "  " + s.Error.Bold(true).Render(fmt.Sprintf("@%d", total))
	}

	center := a.status
	if center != "" {
		if a.statusError {
			center = s.Error.Render(center)
		} else {
			center = s.Info.Render(center)
		}
	}

	right := "Tab: focus  m: move  /help"
	if a.move != nil {
		right = "b/a/i: drop  esc: cancel"
	}

	space := a.width - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right) - 4
	var bar string
	if space > 0 {
		pad := space / 2
		bar = left + strings.Repeat(" ", pad) + center + strings.Repeat(" ", space-pad) + right
	} else {
		bar = left + "  " + center
	}
	return s.StatusBar.Width(a.width).MaxHeight(1).Render(bar)
}

// refreshChat rebuilds the message view. Message bodies come from the
// render cache; headers are rebuilt so relative timestamps stay current.
func (a *App) refreshChat(toBottom bool) {
	if a.styles == nil || a.renderer == nil {
		return
	}
	s := a.styles
	var b strings.Builder

	for i, msg := range a.messages {
		showHeader := i == 0
		if i > 0 {
			prev := a.messages[i-1]
			showHeader = prev.AuthorID != msg.AuthorID || msg.CreatedAt.Sub(prev.CreatedAt) >= groupGap
		}

		if showHeader {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(a.renderAuthor(msg))
			b.WriteString("  ")
			b.WriteString(s.Timestamp.Render(humanize.Time(msg.CreatedAt)))
			b.WriteString("\n")
		}

		body := a.renderBody(msg)
		if msg.MentionsUser(a.userID, a.roleIDs) {
			body = s.Warning.Render("▌") + body
		}
		b.WriteString(lipgloss.NewStyle().Width(max(a.chat.Width, 1)).Render(body))
		b.WriteString("\n")
	}

	a.chat.SetContent(b.String())
	if toBottom {
		a.chat.GotoBottom()
	}
}

func (a *App) renderAuthor(msg *models.Message) string {
	if msg.IsSystemMessage() {
		return a.styles.SystemMessage.Render("system")
	}
	name := a.styles.UsernameOther.Render(a.lookup.UserName(msg.AuthorID))
	if msg.AuthorID == a.userID {
		name = a.styles.UsernameSelf.Render(a.lookup.UserName(msg.AuthorID))
	}
	if msg.IsEdited() {
		name += a.styles.Timestamp.Render(" (edited)")
	}
	return name
}

func (a *App) renderBody(msg *models.Message) string {
	if body, ok := a.cache.Get(msg.ID); ok {
		return body
	}
	body := a.renderer.Render(msg.Content, markup.Options{Lookup: a.lookup, CurrentUserID: a.userID})
	if msg.IsSystemMessage() {
		body = a.styles.SystemMessage.Render(body)
	} else {
		body = a.styles.MessageContent.Render(body)
	}
	a.cache.Add(msg.ID, body)
	return body
}
