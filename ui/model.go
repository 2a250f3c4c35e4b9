// Package ui is the bubbletea application: dashboard, chat view, insert
// mode, help, channel switcher, message search and debug window.
package ui

import (
	"context"
	"database/sql"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/junegunn/fzf/src/util"

	"github.com/onnwee/twt/config"
	"github.com/onnwee/twt/filters"
)

// inputCapacity bounds the compose line.
const inputCapacity = 4096

// Options wires the model to the rest of the app. DB and Followed may
// be nil (no persistence, anonymous session).
type Options struct {
	Config   *config.Config
	Bridge   Bridge
	Filters  *filters.Store
	DB       *sql.DB
	Followed func(context.Context) ([]FollowedEntry, error)
	Version  string
}

// liveInfo is the last live status seen for a channel.
type liveInfo struct {
	live      bool
	title     string
	game      string
	viewers   int
	startedAt time.Time
}

// Model is the bubbletea model. Value semantics per bubbletea
// convention; the maps inside are shared across copies.
type Model struct {
	cfg      *config.Config
	bridge   Bridge
	filters  *filters.Store
	dbx      *sql.DB
	followed func(context.Context) ([]FollowedEntry, error)
	version  string

	keys     KeyMap
	state    State
	previous State

	width  int
	height int

	channel    string
	rings      map[string]*Ring
	chatters   map[string][]string
	chatterSet map[string]map[string]struct{}
	roomStates map[string]map[string]int
	live       map[string]liveInfo

	// scroll is the offset from the bottom of the ring; 0 follows new
	// messages.
	scroll    int
	connected bool
	now       time.Time

	input      textinput.Model
	spin       spinner.Model
	suggestion string
	// switchFollowed narrows channel-switch suggestions to followed
	// channels; set by the dashboard's followed-search key.
	switchFollowed bool

	recent       []string
	followedList []FollowedEntry
	followedErr  string
	dash         dashboard

	searchQuery string
	searchHits  []SearchHit
	slab        *util.Slab
}

// New builds the model. The startup state follows first_state.
func New(opts Options) Model {
	input := textinput.New()
	input.CharLimit = inputCapacity
	input.Prompt = "> "

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := Model{
		cfg:        opts.Config,
		bridge:     opts.Bridge,
		filters:    opts.Filters,
		dbx:        opts.DB,
		followed:   opts.Followed,
		version:    opts.Version,
		keys:       DefaultKeyMap,
		state:      ParseState(opts.Config.Terminal.FirstState),
		previous:   StateDashboard,
		channel:    config.NormalizeChannel(opts.Config.Twitch.Channel),
		rings:      make(map[string]*Ring),
		chatters:   make(map[string][]string),
		chatterSet: make(map[string]map[string]struct{}),
		roomStates: make(map[string]map[string]int),
		live:       make(map[string]liveInfo),
		input:      input,
		spin:       spin,
		now:        time.Now(),
		slab:       util.MakeSlab(100*1024, 2048),
	}
	if m.channel != "" {
		m.ensureRing(m.channel)
	}
	m.dash.rebuild(m.channel, nil, nil)
	return m
}

// State exposes the active window, mostly for tests.
func (m Model) State() State { return m.state }

// Channel returns the channel the chat view is showing.
func (m Model) Channel() string { return m.channel }

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spin.Tick,
		textinput.Blink,
		waitForEvent(m.bridge.Events()),
		m.loadRecentCmd(),
		m.fetchFollowedCmd(),
		tickCmd(m.cfg.TickInterval()),
	)
}

func (m *Model) ensureRing(channel string) *Ring {
	r, ok := m.rings[channel]
	if !ok {
		r = NewRing(m.cfg.Terminal.MaximumMessages)
		m.rings[channel] = r
	}
	return r
}

func (m *Model) currentRing() *Ring {
	if m.channel == "" {
		return NewRing(1)
	}
	return m.ensureRing(m.channel)
}

// noteChatter records a login for @-completion, keeping first-seen order.
func (m *Model) noteChatter(channel, login string) {
	set, ok := m.chatterSet[channel]
	if !ok {
		set = make(map[string]struct{})
		m.chatterSet[channel] = set
	}
	if _, dup := set[login]; dup {
		return
	}
	set[login] = struct{}{}
	m.chatters[channel] = append(m.chatters[channel], login)
}

// goTo switches state, remembering the current one for Esc.
func (m *Model) goTo(next State) {
	if next == m.state {
		return
	}
	m.previous = m.state
	m.state = next
}

// back returns to the state that opened the current one.
func (m *Model) back() {
	m.state = m.previous
}

// notice appends a local feedback line to the current ring.
func (m *Model) notice(text string) {
	m.currentRing().Append(Line{Kind: LineNotice, Text: text, Time: time.Now()})
}

// event appends an announcement line to a channel's ring.
func (m *Model) event(channel, text string) {
	m.ensureRing(channel).Append(Line{Kind: LineEvent, Text: text, Time: time.Now()})
}

// clampScroll enforces the scroll bounds after ring mutations.
func (m *Model) clampScroll() {
	max := m.currentRing().Len() - 1
	if max < 0 {
		max = 0
	}
	if m.scroll > max {
		m.scroll = max
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}
