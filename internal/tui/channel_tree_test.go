package tui

import (
	"testing"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/hearth-chat/hearth/internal/reorder"
	"github.com/m-mizutani/gt"
)

func TestBuildChannelTree(t *testing.T) {
	server := uuid.New()
	cat := models.NewCategory(server, "Voice")
	cat.Position = 1
	lounge := models.NewVoiceChannel(server, "lounge")
	lounge.ParentID = cat.ID
	general := models.NewTextChannel(server, "general")
	// same position: ordered by name
	announcements := models.NewTextChannel(server, "announcements")
	orphan := models.NewTextChannel(server, "orphan")
	orphan.ParentID = uuid.New()
	orphan.Position = 5
	nested := models.NewTextChannel(server, "nested")
	nested.ParentID = general.ID
	nested.Position = 4

	tree := BuildChannelTree([]*models.Channel{lounge, orphan, general, cat, nested, announcements}, nil)

	var names []string
	for _, n := range tree.FlatList {
		names = append(names, n.Channel.Name)
	}
	gt.A(t, names).Equal([]string{"announcements", "general", "Voice", "lounge", "nested", "orphan"})
	gt.V(t, tree.NodeMap[lounge.ID].Depth).Equal(1)
	gt.V(t, tree.NodeMap[nested.ID].Depth).Equal(0)
	gt.V(t, tree.Index(orphan.ID)).Equal(5)
	gt.V(t, tree.Index(uuid.New())).Equal(-1)
	gt.V(t, tree.FirstText().ID).Equal(announcements.ID)

	tree.RebuildFlatList(map[uuid.UUID]bool{cat.ID: true})
	gt.A(t, tree.FlatList).Length(5)
	gt.V(t, tree.Index(lounge.ID)).Equal(-1)

	gt.A(t, tree.Items()).Length(6)
}

func TestBuildChannelTree_Empty(t *testing.T) {
	tree := BuildChannelTree(nil, nil)
	gt.A(t, tree.FlatList).Length(0)
	gt.True(t, tree.FirstText() == nil)
}

func TestApplyUpdates(t *testing.T) {
	server := uuid.New()
	cat := models.NewCategory(server, "cat")
	a := models.NewTextChannel(server, "a")
	b := models.NewTextChannel(server, "b")
	b.Position = 1
	channels := []*models.Channel{a, b, cat}

	pos := 3
	out := applyUpdates(channels, []reorder.Update{
		{ChannelID: b.ID, Position: &pos, ParentID: &cat.ID},
	})

	gt.A(t, out).Length(3)
	gt.V(t, out[0]).Equal(a)
	gt.V(t, out[1].Position).Equal(3)
	gt.V(t, out[1].ParentID).Equal(cat.ID)
	gt.True(t, out[1].HasParent())
	gt.False(t, out[1].UpdatedAt.Before(b.UpdatedAt))
	gt.V(t, b.Position).Equal(1)
	gt.V(t, b.ParentID).Equal(uuid.Nil)
}

func TestChannelPrefix(t *testing.T) {
	server := uuid.New()
	gt.V(t, channelPrefix(models.NewTextChannel(server, "general"))).Equal("# ")
	gt.V(t, channelPrefix(models.NewVoiceChannel(server, "lounge"))).Equal("🔊 ")
	gt.V(t, channelPrefix(models.NewCategory(server, "text"))).Equal("")
}
