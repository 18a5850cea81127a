package tui

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/hearth-chat/hearth/internal/reorder"
)

// ChannelTreeNode represents a node in the channel tree (category or channel)
type ChannelTreeNode struct {
	Channel  *models.Channel
	Children []*ChannelTreeNode
	Parent   *ChannelTreeNode
	Depth    int
}

// IsCategory reports whether the node is a category
func (n *ChannelTreeNode) IsCategory() bool {
	return n.Channel != nil && n.Channel.IsCategory()
}

// ChannelTree is the sidebar structure: top-level entries and categories
// with their channels, each group ordered by position
type ChannelTree struct {
	Root     *ChannelTreeNode
	NodeMap  map[uuid.UUID]*ChannelTreeNode
	FlatList []*ChannelTreeNode
	channels []*models.Channel
}

// BuildChannelTree constructs a tree from a flat list of channels. Channels
// whose parent is unknown are shown at the top level.
func BuildChannelTree(channels []*models.Channel, collapsed map[uuid.UUID]bool) *ChannelTree {
	tree := &ChannelTree{
		Root:     &ChannelTreeNode{},
		NodeMap:  make(map[uuid.UUID]*ChannelTreeNode, len(channels)),
		channels: channels,
	}

	for _, ch := range channels {
		tree.NodeMap[ch.ID] = &ChannelTreeNode{Channel: ch}
	}

	for _, ch := range channels {
		node := tree.NodeMap[ch.ID]
		parent := tree.Root
		if p, ok := tree.NodeMap[ch.ParentID]; ok && ch.HasParent() && p.IsCategory() {
			parent = p
		}
		node.Parent = parent
		if parent != tree.Root {
			node.Depth = 1
		}
		parent.Children = append(parent.Children, node)
	}

	sortChildren(tree.Root)
	for _, node := range tree.NodeMap {
		sortChildren(node)
	}

	tree.RebuildFlatList(collapsed)
	return tree
}

func sortChildren(node *ChannelTreeNode) {
	slices.SortStableFunc(node.Children, func(a, b *ChannelTreeNode) int {
		if c := cmp.Compare(a.Channel.Position, b.Channel.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.Channel.Name, b.Channel.Name)
	})
}

// RebuildFlatList reconstructs the flat list for rendering, hiding the
// children of collapsed categories
func (t *ChannelTree) RebuildFlatList(collapsed map[uuid.UUID]bool) {
	t.FlatList = t.FlatList[:0]
	for _, node := range t.Root.Children {
		t.FlatList = append(t.FlatList, node)
		if node.IsCategory() && !collapsed[node.Channel.ID] {
			t.FlatList = append(t.FlatList, node.Children...)
		}
	}
}

// Channels returns the channels the tree was built from
func (t *ChannelTree) Channels() []*models.Channel {
	return t.channels
}

// Index returns the position of a channel in the flat list, or -1
func (t *ChannelTree) Index(id uuid.UUID) int {
	return slices.IndexFunc(t.FlatList, func(n *ChannelTreeNode) bool { return n.Channel.ID == id })
}

// Items returns the reorder items of every channel in the tree
func (t *ChannelTree) Items() []reorder.Item {
	return reorder.FromChannels(t.channels)
}

// FirstText returns the first text channel in display order
func (t *ChannelTree) FirstText() *models.Channel {
	var walk func(nodes []*ChannelTreeNode) *models.Channel
	walk = func(nodes []*ChannelTreeNode) *models.Channel {
		for _, n := range nodes {
			if n.Channel.IsTextBased() {
				return n.Channel
			}
			if ch := walk(n.Children); ch != nil {
				return ch
			}
		}
		return nil
	}
	return walk(t.Root.Children)
}

// applyUpdates returns copies of channels with updates applied. The input
// is left untouched so it can serve as a rollback snapshot.
func applyUpdates(channels []*models.Channel, updates []reorder.Update) []*models.Channel {
	byID := make(map[uuid.UUID]reorder.Update, len(updates))
	for _, u := range updates {
		byID[u.ChannelID] = u
	}

	out := make([]*models.Channel, 0, len(channels))
	for _, ch := range channels {
		u, ok := byID[ch.ID]
		if !ok {
			out = append(out, ch)
			continue
		}
		c := *ch
		if u.Position != nil {
			c.SetPosition(*u.Position)
		}
		if u.ParentID != nil {
			c.SetParent(*u.ParentID)
		}
		out = append(out, &c)
	}
	return out
}
