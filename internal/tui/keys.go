package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hearth-chat/hearth/internal/layout"
)

var errNoChannel = errors.New("select a text channel first")

// handleKeyPress handles keyboard input
func (a *App) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()

	if key == "ctrl+c" {
		return tea.Quit
	}
	if a.browser != nil {
		return a.handleThemeBrowserKey(key)
	}

	switch key {
	case "ctrl+t":
		a.move = nil
		a.openThemeBrowser()
		return nil

	case "ctrl+left":
		a.layout.ResizeSidebar(-layout.Step)
		return a.saveLayout()

	case "ctrl+right":
		a.layout.ResizeSidebar(layout.Step)
		return a.saveLayout()

	case "alt+left":
		a.layout.ResizeMembers(layout.Step)
		return a.saveLayout()

	case "alt+right":
		a.layout.ResizeMembers(-layout.Step)
		return a.saveLayout()
	}

	if a.move != nil {
		return a.handleMoveKey(key)
	}

	switch a.focus {
	case FocusInput:
		return a.handleInputKey(msg)
	case FocusChat:
		return a.handleChatKey(msg)
	default:
		return a.handleSidebarKey(key)
	}
}

// cycleFocus moves focus to the next or previous area
func (a *App) cycleFocus(delta int) {
	a.setFocus(FocusArea((int(a.focus) + delta + 3) % 3))
}

func (a *App) setFocus(f FocusArea) {
	a.focus = f
	if f == FocusInput {
		a.input.Focus()
		return
	}
	a.input.Blur()
	a.ac.Close()
}

func (a *App) handleSidebarKey(key string) tea.Cmd {
	switch key {
	case "tab":
		a.cycleFocus(1)
	case "shift+tab":
		a.cycleFocus(-1)
	case "q":
		return tea.Quit

	case "up", "k":
		a.navigateSidebar(-1)
	case "down", "j":
		a.navigateSidebar(1)

	case "enter", " ":
		node := a.selectedNode()
		if node == nil {
			return nil
		}
		if node.IsCategory() {
			return a.toggleCollapsed(node)
		}
		if node.Channel.IsTextBased() {
			cmd := a.selectChannel(node.Channel)
			a.setFocus(FocusInput)
			return cmd
		}
		a.setStatus("#" + node.Channel.Name + " is a " + node.Channel.Type.String() + " channel")

	case "m":
		a.startMove()
	}
	return nil
}

func (a *App) handleChatKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab":
		a.cycleFocus(1)
		return nil
	case "shift+tab":
		a.cycleFocus(-1)
		return nil
	case "esc":
		a.setFocus(FocusSidebar)
		return nil
	}

	var cmd tea.Cmd
	a.chat, cmd = a.chat.Update(msg)
	return cmd
}

func (a *App) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()

	value, cursor, consumed := a.ac.HandleKey(key, a.input.Value(), a.input.Position())
	if consumed {
		a.input.SetValue(value)
		a.input.SetCursor(cursor)
		return nil
	}

	switch key {
	case "enter":
		return a.submit()
	case "esc":
		a.setFocus(FocusSidebar)
		return nil
	case "tab":
		a.cycleFocus(1)
		return nil
	case "shift+tab":
		a.cycleFocus(-1)
		return nil
	}

	before := a.input.Value()
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)

	prevKind, prevQuery := a.ac.Kind(), a.ac.Query()
	a.ac.Refresh(a.input.Value(), a.input.Position(), a.lookup)
	if a.input.Value() != before && (a.ac.Kind() != prevKind || a.ac.Query() != prevQuery) {
		return tea.Batch(cmd, a.scheduleSearch())
	}
	return cmd
}

// navigateSidebar moves the sidebar cursor with wrap-around
func (a *App) navigateSidebar(delta int) {
	n := len(a.tree.FlatList)
	if n == 0 {
		return
	}
	a.cursor = (a.cursor + delta + n) % n
}

func (a *App) selectedNode() *ChannelTreeNode {
	if a.cursor < 0 || a.cursor >= len(a.tree.FlatList) {
		return nil
	}
	return a.tree.FlatList[a.cursor]
}

func (a *App) toggleCollapsed(node *ChannelTreeNode) tea.Cmd {
	id := node.Channel.ID
	collapsed := !a.collapsed[id]
	if collapsed {
		a.collapsed[id] = true
	} else {
		delete(a.collapsed, id)
	}
	a.tree.RebuildFlatList(a.collapsed)
	a.cursor = max(a.tree.Index(id), 0)
	return a.saveCollapsed(id, collapsed)
}
