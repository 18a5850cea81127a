package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/reorder"
)

// moveState is the keyboard stand-in for a drag: the picked-up channel
// and the flat-list index of the drop target under the cursor
type moveState struct {
	source uuid.UUID
	target int
}

func (a *App) startMove() {
	node := a.selectedNode()
	if node == nil {
		return
	}
	a.move = &moveState{source: node.Channel.ID, target: a.cursor}
	a.stepTarget(1)
	a.setStatus("Moving " + node.Channel.Name + ": j/k target, b before, a after, i inside, esc cancel")
}

// stepTarget moves the drop target, skipping the picked-up channel
func (a *App) stepTarget(delta int) {
	n := len(a.tree.FlatList)
	if n < 2 {
		return
	}
	t := a.move.target
	for range n {
		t = (t + delta + n) % n
		if a.tree.FlatList[t].Channel.ID != a.move.source {
			break
		}
	}
	a.move.target = t
}

func (a *App) handleMoveKey(key string) tea.Cmd {
	switch key {
	case "esc", "m":
		a.move = nil
		a.setStatus("Move cancelled")
	case "up", "k":
		a.stepTarget(-1)
	case "down", "j":
		a.stepTarget(1)
	case "b":
		return a.drop(reorder.Before)
	case "a":
		return a.drop(reorder.After)
	case "i":
		return a.drop(reorder.Inside)
	}
	return nil
}

// drop computes the updates for the drop, applies them optimistically and
// commits them in the background. A failed commit restores the snapshot.
func (a *App) drop(zone reorder.Zone) tea.Cmd {
	mv := a.move
	a.move = nil
	if mv.target < 0 || mv.target >= len(a.tree.FlatList) {
		return nil
	}
	target := a.tree.FlatList[mv.target].Channel

	updates, err := reorder.Compute(a.tree.Items(), reorder.Drop{Source: mv.source, Target: target.ID, Zone: zone})
	if err != nil {
		a.setError(err)
		return nil
	}
	if len(updates) == 0 {
		a.setStatus("Nothing to move")
		return nil
	}

	snapshot := a.tree.Channels()
	a.setChannels(applyUpdates(snapshot, updates))
	if i := a.tree.Index(mv.source); i >= 0 {
		a.cursor = i
	}

	backend := a.backend
	ctx := a.ctx
	return func() tea.Msg {
		return reorderMsg{snapshot: snapshot, err: reorder.Commit(ctx, backend, updates)}
	}
}
