package layout_test

import (
	"testing"

	"github.com/hearth-chat/hearth/internal/layout"
	"github.com/m-mizutani/gt"
)

func TestCompute_Wide(t *testing.T) {
	p := layout.Default().Compute(120)
	gt.V(t, p.Sidebar).Equal(layout.DefaultSidebar)
	gt.V(t, p.Members).Equal(layout.DefaultMembers)
	gt.V(t, p.Chat).Equal(120 - layout.DefaultSidebar - layout.DefaultMembers - 2)
}

func TestCompute_MembersCollapseFirst(t *testing.T) {
	// 24 + 22 + 2 + 30 = 78 columns are needed for all three panels.
	p := layout.Default().Compute(70)
	gt.V(t, p.Members).Equal(0)
	gt.V(t, p.Sidebar).Equal(layout.DefaultSidebar)
	gt.V(t, p.Chat).Equal(70 - layout.DefaultSidebar - 2)
}

func TestCompute_SidebarShrinks(t *testing.T) {
	p := layout.Default().Compute(50)
	gt.V(t, p.Members).Equal(0)
	gt.V(t, p.Sidebar).Equal(18)
	gt.V(t, p.Chat).Equal(layout.MinChat)
}

func TestCompute_Narrow(t *testing.T) {
	p := layout.Default().Compute(40)
	gt.V(t, p.Sidebar).Equal(0)
	gt.V(t, p.Members).Equal(0)
	gt.V(t, p.Chat).Equal(38)

	gt.V(t, layout.Default().Compute(0).Chat).Equal(0)
}

func TestCompute_HiddenMembers(t *testing.T) {
	l := layout.Default()
	l.ToggleMembers()
	p := l.Compute(120)
	gt.V(t, p.Members).Equal(0)
	gt.V(t, p.Chat).Equal(120 - layout.DefaultSidebar - 2)
}

func TestResize(t *testing.T) {
	l := layout.Default()
	l.ResizeSidebar(layout.Step)
	gt.V(t, l.SidebarWidth).Equal(layout.DefaultSidebar + layout.Step)

	l.ResizeSidebar(1000)
	gt.V(t, l.SidebarWidth).Equal(layout.MaxSidebar)

	l.ResizeMembers(-1000)
	gt.V(t, l.MembersWidth).Equal(layout.MinMembers)
}

func TestNormalize(t *testing.T) {
	l := layout.Layout{SidebarWidth: 3, MembersWidth: 0}.Normalize()
	gt.V(t, l.SidebarWidth).Equal(layout.MinSidebar)
	gt.V(t, l.MembersWidth).Equal(layout.DefaultMembers)
}
