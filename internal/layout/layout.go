// Package layout splits the terminal width between the channel sidebar,
// the chat panel and the member list.
package layout

// Width bounds, in terminal columns
const (
	MinSidebar     = 16
	MaxSidebar     = 48
	DefaultSidebar = 24

	MinMembers     = 14
	MaxMembers     = 40
	DefaultMembers = 22

	MinChat = 30

	// Step is the number of columns one resize key press moves a divider
	Step = 2

	// borders is the horizontal space taken by panel borders
	borders = 2
)

// Layout holds the user's panel preferences. It is persisted as part of
// the UI config.
type Layout struct {
	SidebarWidth int  `json:"sidebar_width"`
	MembersWidth int  `json:"members_width"`
	ShowMembers  bool `json:"show_members"`
}

// Panels are the widths computed for one frame. A width of 0 means the
// panel is hidden.
type Panels struct {
	Sidebar int
	Chat    int
	Members int
}

// Default returns the initial layout
func Default() Layout {
	return Layout{
		SidebarWidth: DefaultSidebar,
		MembersWidth: DefaultMembers,
		ShowMembers:  true,
	}
}

// Normalize replaces unset widths with defaults and clamps the rest
func (l Layout) Normalize() Layout {
	if l.SidebarWidth == 0 {
		l.SidebarWidth = DefaultSidebar
	}
	if l.MembersWidth == 0 {
		l.MembersWidth = DefaultMembers
	}
	l.SidebarWidth = clamp(l.SidebarWidth, MinSidebar, MaxSidebar)
	l.MembersWidth = clamp(l.MembersWidth, MinMembers, MaxMembers)
	return l
}

// ResizeSidebar moves the sidebar divider by delta columns
func (l *Layout) ResizeSidebar(delta int) {
	l.SidebarWidth = clamp(l.Normalize().SidebarWidth+delta, MinSidebar, MaxSidebar)
}

// ResizeMembers grows or shrinks the member list by delta columns
func (l *Layout) ResizeMembers(delta int) {
	l.MembersWidth = clamp(l.Normalize().MembersWidth+delta, MinMembers, MaxMembers)
}

// ToggleMembers shows or hides the member list
func (l *Layout) ToggleMembers() {
	l.ShowMembers = !l.ShowMembers
}

// Compute fits the layout into total columns. The member list collapses
// first when the chat panel would drop below MinChat, then the sidebar
// shrinks toward its minimum, and on very narrow terminals it is hidden.
func (l Layout) Compute(total int) Panels {
	l = l.Normalize()
	p := Panels{Sidebar: l.SidebarWidth}
	if l.ShowMembers {
		p.Members = l.MembersWidth
	}

	chat := func() int { return total - p.Sidebar - p.Members - borders }

	if p.Members > 0 && chat() < MinChat {
		p.Members = 0
	}
	if c := chat(); c < MinChat {
		p.Sidebar = max(MinSidebar, p.Sidebar-(MinChat-c))
	}
	if chat() < MinChat {
		p.Sidebar = 0
	}
	p.Chat = max(chat(), 0)
	return p
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
