// Package tui is the terminal client: a channel sidebar with keyboard
// reordering, the message view and the member list.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hearth-chat/hearth/internal/autocomplete"
	"github.com/hearth-chat/hearth/internal/client"
	"github.com/hearth-chat/hearth/internal/deeplink"
	"github.com/hearth-chat/hearth/internal/layout"
	"github.com/hearth-chat/hearth/internal/logging"
	"github.com/hearth-chat/hearth/internal/markup"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/hearth-chat/hearth/internal/protocol"
	"github.com/hearth-chat/hearth/internal/reorder"
	"github.com/hearth-chat/hearth/internal/search"
	"github.com/hearth-chat/hearth/internal/themes"
	"github.com/m-mizutani/goerr/v2"
)

const (
	messagePageSize = 50
	renderCacheSize = 512
	inputCharLimit  = 4000
)

// Backend is the server API the app talks to
type Backend interface {
	reorder.Patcher
	ListChannels(ctx context.Context) ([]*models.Channel, error)
	ListMessages(ctx context.Context, channelID uuid.UUID, limit int, before *uuid.UUID) ([]*models.Message, error)
	SendMessage(ctx context.Context, channelID, author uuid.UUID, content string) (*models.Message, error)
	SearchMembers(ctx context.Context, query string, limit int) ([]protocol.MemberResponse, error)
	Lookup(ctx context.Context) (markup.Lookup, error)
}

// pinger is implemented by backends that can measure the server round trip
type pinger interface {
	Ping(ctx context.Context, timeout time.Duration) *client.PingResult
}

// FocusArea represents which area of the UI has focus
type FocusArea int

const (
	FocusSidebar FocusArea = iota
	FocusChat
	FocusInput
)

// Options configures a new App
type Options struct {
	ServerID uuid.UUID
	UserID   uuid.UUID
	Backend  Backend
	// Prefs persists layout, theme and collapsed categories; may be nil
	Prefs  *client.ConfigManager
	Themes themes.Loader
	// Open is navigated to once the channels are loaded
	Open *deeplink.Link
}

// App is the bubbletea model of the client
type App struct {
	ctx      context.Context
	backend  Backend
	prefs    *client.ConfigManager
	serverID uuid.UUID
	userID   uuid.UUID

	width  int
	height int
	focus  FocusArea
	layout layout.Layout
	panels layout.Panels

	themes    themes.Loader
	themeName string
	styles    *themes.Styles
	renderer  *markup.Terminal
	// Rendered message bodies by message id
	cache *lru.Cache[uuid.UUID, string]

	tree      *ChannelTree
	collapsed map[uuid.UUID]bool
	cursor    int
	current   *models.Channel
	move      *moveState
	browser   *themeBrowser

	lookup   markup.Lookup
	members  []protocol.MemberResponse
	roleIDs  []uuid.UUID
	messages []*models.Message
	// Unread mentions of the user by channel, for channels not open
	unread map[uuid.UUID]int

	input     textinput.Model
	chat      viewport.Model
	ac        autocomplete.State
	searchSeq search.Sequencer

	connState   client.ConnState
	status      string
	statusError bool
	pendingLink *deeplink.Link
}

// NewApp creates the application model
func NewApp(ctx context.Context, opts Options) (*App, error) {
	cache, err := lru.New[uuid.UUID, string](renderCacheSize)
	if err != nil {
		return nil, err
	}

	prefs := client.DefaultAppConfig()
	if opts.Prefs != nil {
		loaded, err := opts.Prefs.LoadAppConfig()
		if err != nil {
			logging.From(ctx).Warn("failed to load UI preferences", logging.ErrAttr(err))
		} else {
			prefs = loaded
		}
	}

	input := textinput.New()
	input.Placeholder = "Message"
	input.CharLimit = inputCharLimit
	input.Prompt = "> "

	a := &App{
		ctx:         ctx,
		backend:     opts.Backend,
		prefs:       opts.Prefs,
		serverID:    opts.ServerID,
		userID:      opts.UserID,
		focus:       FocusSidebar,
		layout:      prefs.UI.Layout.Normalize(),
		themes:      opts.Themes,
		cache:       cache,
		collapsed:   make(map[uuid.UUID]bool),
		unread:      make(map[uuid.UUID]int),
		input:       input,
		chat:        viewport.New(0, 0),
		pendingLink: opts.Open,
		tree:        BuildChannelTree(nil, nil),
	}

	for id := range prefs.UI.CollapsedCategories[opts.ServerID.String()] {
		if parsed, err := uuid.Parse(id); err == nil {
			a.collapsed[parsed] = true
		}
	}

	theme, err := a.themes.Get(prefs.UI.Theme)
	if err != nil {
		logging.From(ctx).Warn("failed to load theme, using default", logging.ErrAttr(err), "theme", prefs.UI.Theme)
		prefs.UI.Theme = themes.DefaultName
		theme = themes.GetDefaultTheme()
	}
	a.applyTheme(prefs.UI.Theme, theme)
	return a, nil
}

// --- Message types for tea.Cmd ---

// GatewayMsg carries a gateway message (READY or a dispatch)
type GatewayMsg struct {
	Message *protocol.Message
}

// ConnStateMsg reports a gateway connection state change
type ConnStateMsg struct {
	State client.ConnState
}

// ErrMsg reports an error to show in the status bar
type ErrMsg struct {
	Err error
}

type loadedMsg struct {
	channels []*models.Channel
	lookup   markup.Lookup
	members  []protocol.MemberResponse
	err      error
}

type channelsMsg struct {
	channels []*models.Channel
	err      error
}

type messagesMsg struct {
	channelID uuid.UUID
	messages  []*models.Message
	err       error
}

type sentMsg struct {
	message *models.Message
	err     error
}

type reorderMsg struct {
	snapshot []*models.Channel
	err      error
}

type searchTickMsg struct {
	gen   uint64
	query string
}

type memberSearchMsg struct {
	gen     uint64
	query   string
	members []protocol.MemberResponse
	err     error
}

type prefsSavedMsg struct {
	err error
}

type pingMsg struct {
	result *client.PingResult
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.load())
}

func (a *App) load() tea.Cmd {
	return func() tea.Msg {
		channels, err := a.backend.ListChannels(a.ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		lookup, err := a.backend.Lookup(a.ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		members, err := a.backend.SearchMembers(a.ctx, "", 100)
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{channels: channels, lookup: lookup, members: members}
	}
}

func (a *App) loadChannels() tea.Cmd {
	return func() tea.Msg {
		channels, err := a.backend.ListChannels(a.ctx)
		return channelsMsg{channels: channels, err: err}
	}
}

func (a *App) loadMessages(channelID uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		messages, err := a.backend.ListMessages(a.ctx, channelID, messagePageSize, nil)
		return messagesMsg{channelID: channelID, messages: messages, err: err}
	}
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a, a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case loadedMsg:
		if msg.err != nil {
			a.setError(msg.err)
			return a, nil
		}
		a.lookup = msg.lookup
		a.setMembers(msg.members)
		a.setChannels(msg.channels)
		return a, a.afterLoad()

	case channelsMsg:
		if msg.err != nil {
			a.setError(msg.err)
			return a, nil
		}
		a.setChannels(msg.channels)
		return a, nil

	case messagesMsg:
		if msg.err != nil {
			a.setError(msg.err)
			return a, nil
		}
		if a.current != nil && a.current.ID == msg.channelID {
			a.messages = msg.messages
			a.refreshChat(true)
		}
		return a, nil

	case sentMsg:
		if msg.err != nil {
			a.setError(msg.err)
			return a, nil
		}
		a.addMessage(msg.message)
		return a, nil

	case reorderMsg:
		if msg.err != nil {
			a.setChannels(msg.snapshot)
			a.setError(msg.err)
			return a, a.loadChannels()
		}
		a.setStatus("Channel moved")
		return a, nil

	case searchTickMsg:
		if !a.searchSeq.IsLatest(msg.gen) {
			return a, nil
		}
		return a, a.searchMembers(msg.gen, msg.query)

	case memberSearchMsg:
		if !a.searchSeq.IsLatest(msg.gen) {
			return a, nil
		}
		if msg.err != nil {
			logging.From(a.ctx).Warn("member search failed", logging.ErrAttr(msg.err))
			return a, nil
		}
		a.ac.Merge(msg.query, memberSuggestions(msg.members))
		return a, nil

	case prefsSavedMsg:
		if msg.err != nil {
			a.setError(msg.err)
		}
		return a, nil

	case pingMsg:
		r := msg.result
		if !r.Success {
			a.setError(goerr.New("ping failed", goerr.V("error", r.Error)))
			return a, nil
		}
		a.setStatus(fmt.Sprintf("Server %s: %s, %s online", r.Version, r.Latency.Round(time.Microsecond), humanize.Comma(int64(r.Clients))))
		return a, nil

	case GatewayMsg:
		return a, a.handleGateway(msg.Message)

	case ConnStateMsg:
		a.connState = msg.State
		return a, nil

	case ErrMsg:
		a.setError(msg.Err)
		return a, nil
	}

	var cmd tea.Cmd
	switch a.focus {
	case FocusInput:
		a.input, cmd = a.input.Update(msg)
	case FocusChat:
		a.chat, cmd = a.chat.Update(msg)
	}
	return a, cmd
}

func (a *App) afterLoad() tea.Cmd {
	if a.pendingLink != nil {
		link := *a.pendingLink
		a.pendingLink = nil
		status, cmd, err := a.openLink(link)
		if err != nil {
			a.setError(err)
		} else {
			a.setStatus(status)
			return cmd
		}
	}
	if a.current == nil {
		if ch := a.tree.FirstText(); ch != nil {
			return a.selectChannel(ch)
		}
	}
	return nil
}

func (a *App) handleGateway(msg *protocol.Message) tea.Cmd {
	switch msg.Op {
	case protocol.OpReady:
		a.setStatus("Connected")
		// events missed while disconnected are not replayed
		return a.loadChannels()

	case protocol.OpDispatch:
	default:
		return nil
	}

	switch msg.Type {
	case protocol.EventChannelUpdate:
		var payload protocol.ChannelUpdatePayload
		if err := msg.Decode(&payload); err != nil {
			a.setError(err)
			return nil
		}
		if payload.ServerID == a.serverID && a.move == nil {
			a.setChannels(payload.Channels)
		}

	case protocol.EventMessageCreate:
		var payload protocol.MessageCreatePayload
		if err := msg.Decode(&payload); err != nil {
			a.setError(err)
			return nil
		}
		if payload.Author != nil {
			if _, ok := a.lookup.Users[payload.Author.ID]; !ok && a.lookup.Users != nil {
				a.lookup.Users[payload.Author.ID] = markup.UserInfo{
					Username:    payload.Author.Username,
					DisplayName: payload.Author.GetDisplayName(),
				}
			}
		}
		if payload.Message != nil {
			a.addMessage(payload.Message)
		}

	case protocol.EventServerMemberAdd:
		return a.load()
	}
	return nil
}

func (a *App) setStatus(s string) {
	a.status = s
	a.statusError = false
}

func (a *App) setError(err error) {
	logging.From(a.ctx).Warn("client error", logging.ErrAttr(err))
	a.status = err.Error()
	a.statusError = true
}

func (a *App) setMembers(members []protocol.MemberResponse) {
	a.members = members
	a.roleIDs = nil
	for _, m := range members {
		if m.ID == a.userID {
			a.roleIDs = m.RoleIDs
		}
	}
}

// setChannels replaces the channel list, keeping the sidebar cursor and
// the open channel by id
func (a *App) setChannels(channels []*models.Channel) {
	var selected uuid.UUID
	if a.cursor >= 0 && a.cursor < len(a.tree.FlatList) {
		selected = a.tree.FlatList[a.cursor].Channel.ID
	}

	a.tree = BuildChannelTree(channels, a.collapsed)
	if i := a.tree.Index(selected); i >= 0 {
		a.cursor = i
	} else {
		a.cursor = min(a.cursor, max(len(a.tree.FlatList)-1, 0))
	}

	if a.lookup.Channels == nil {
		a.lookup.Channels = make(map[uuid.UUID]string, len(channels))
	}
	for _, ch := range channels {
		a.lookup.Channels[ch.ID] = ch.Name
	}

	if a.current != nil {
		if node, ok := a.tree.NodeMap[a.current.ID]; ok {
			a.current = node.Channel
		} else {
			a.current = nil
			a.messages = nil
			a.refreshChat(false)
		}
	}
}

func (a *App) selectChannel(ch *models.Channel) tea.Cmd {
	if i := a.tree.Index(ch.ID); i >= 0 {
		a.cursor = i
	}
	delete(a.unread, ch.ID)
	if a.current != nil && a.current.ID == ch.ID {
		return nil
	}
	a.current = ch
	a.messages = nil
	a.refreshChat(false)
	return a.loadMessages(ch.ID)
}

// addMessage appends a message of the open channel, ignoring duplicates
// from the REST reply and the gateway
func (a *App) addMessage(msg *models.Message) {
	if a.current == nil || msg.ChannelID != a.current.ID {
		a.countMention(msg)
		return
	}
	for _, m := range a.messages {
		if m.ID == msg.ID {
			return
		}
	}
	a.messages = append(a.messages, msg)
	a.refreshChat(true)
}

// countMention records a message in a channel that is not open when it
// notifies the user. The user's own messages never count.
func (a *App) countMention(msg *models.Message) {
	if _, ok := a.tree.NodeMap[msg.ChannelID]; !ok {
		return
	}
	if msg.AuthorID == a.userID || !msg.MentionsUser(a.userID, a.roleIDs) {
		return
	}
	a.unread[msg.ChannelID]++
}

func (a *App) applyTheme(name string, theme *themes.Theme) {
	a.themeName = name
	a.styles = theme.BuildStyles()
	a.renderer = markup.NewTerminal(a.styles.Markup)
	a.cache.Purge()
	a.refreshChat(false)
}

func (a *App) resize() {
	a.panels = a.layout.Compute(a.width)
	// header, input box (3) and status bar
	a.chat.Width = a.panels.Chat
	a.chat.Height = max(a.height-6, 1)
	a.input.Width = max(a.panels.Chat-6, 1)
	a.refreshChat(false)
}

func (a *App) savePrefs(fn func(*client.AppConfig)) tea.Cmd {
	if a.prefs == nil {
		return nil
	}
	prefs := a.prefs
	return func() tea.Msg {
		return prefsSavedMsg{err: prefs.Update(fn)}
	}
}

func (a *App) saveLayout() tea.Cmd {
	l := a.layout
	a.resize()
	return a.savePrefs(func(c *client.AppConfig) { c.UI.Layout = l })
}

func (a *App) saveTheme() tea.Cmd {
	name := a.themeName
	return a.savePrefs(func(c *client.AppConfig) { c.UI.Theme = name })
}

func (a *App) saveCollapsed(categoryID uuid.UUID, collapsed bool) tea.Cmd {
	serverID := a.serverID
	return a.savePrefs(func(c *client.AppConfig) { c.UI.SetCollapsed(serverID, categoryID, collapsed) })
}

func (a *App) submit() tea.Cmd {
	content := a.input.Value()
	if content == "" {
		return nil
	}

	if content[0] == '/' {
		cmd, err := ParseCommand(content)
		if err != nil {
			a.setError(err)
			return nil
		}
		a.input.Reset()
		a.ac.Close()
		status, teaCmd, err := a.execute(cmd)
		if err != nil {
			a.setError(err)
			return nil
		}
		if status != "" {
			a.setStatus(status)
		}
		return teaCmd
	}

	if a.current == nil || !a.current.IsTextBased() {
		a.setError(errNoChannel)
		return nil
	}

	channelID := a.current.ID
	a.input.Reset()
	a.ac.Close()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
		defer cancel()
		msg, err := a.backend.SendMessage(ctx, channelID, a.userID, content)
		return sentMsg{message: msg, err: err}
	}
}

// scheduleSearch starts the debounce for a remote member search of the
// current mention query
func (a *App) scheduleSearch() tea.Cmd {
	if a.ac.Kind() != autocomplete.KindMention || a.ac.Query() == "" {
		a.searchSeq.Next()
		return nil
	}
	gen := a.searchSeq.Next()
	query := a.ac.Query()
	return tea.Tick(search.DefaultDelay, func(time.Time) tea.Msg {
		return searchTickMsg{gen: gen, query: query}
	})
}

func (a *App) searchMembers(gen uint64, query string) tea.Cmd {
	return func() tea.Msg {
		members, err := a.backend.SearchMembers(a.ctx, query, autocomplete.Limit)
		return memberSearchMsg{gen: gen, query: query, members: members, err: err}
	}
}

func memberSuggestions(members []protocol.MemberResponse) []autocomplete.Suggestion {
	out := make([]autocomplete.Suggestion, 0, len(members))
	for _, m := range members {
		out = append(out, autocomplete.UserSuggestion(m.ID, m.Username, m.DisplayName))
	}
	return out
}
