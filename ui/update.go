package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/onnwee/twt/chat"
	"github.com/onnwee/twt/config"
	"github.com/onnwee/twt/telemetry"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if w := msg.Width - 4; w > 0 {
			m.input.Width = w
		}
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd(m.cfg.TickInterval())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case chat.Event:
		cmd := m.handleEvent(msg)
		return m, tea.Batch(cmd, waitForEvent(m.bridge.Events()))

	case LiveStatusMsg:
		m.handleLiveStatus(chat.LiveStatus(msg))
		return m, nil

	case recentChannelsMsg:
		m.recent = []string(msg)
		m.rebuildDash()
		return m, nil

	case followedMsg:
		m.followedList = []FollowedEntry(msg)
		m.followedErr = ""
		m.rebuildDash()
		return m, nil

	case followedErrMsg:
		m.followedErr = msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Remaining messages (cursor blink and friends) go to the text input
	// while a text-entry state is active.
	if m.textEntry() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) textEntry() bool {
	switch m.state {
	case StateInsert, StateChannelSwitch, StateMessageSearch:
		return true
	default:
		return false
	}
}

func (m *Model) rebuildDash() {
	m.dash.rebuild(config.NormalizeChannel(m.cfg.Twitch.Channel), m.recent, m.followedList)
}

// ---- bridge events ----

func (m *Model) handleEvent(ev chat.Event) tea.Cmd {
	switch ev := ev.(type) {
	case chat.MessageEvent:
		return m.handleMessage(ev)

	case chat.NoticeEvent:
		m.event(ev.Channel, ev.Text)

	case chat.UserNoticeEvent:
		text := ev.SystemMsg
		if ev.Text != "" {
			if text != "" {
				text += ": "
			}
			text += ev.Text
		}
		m.ensureRing(ev.Channel).Append(Line{Kind: LineEvent, Text: text, Time: ev.Time})

	case chat.RoomStateEvent:
		m.handleRoomState(ev)

	case chat.ClearChatEvent:
		r := m.ensureRing(ev.Channel)
		switch {
		case ev.TargetLogin == "":
			r.Clear()
			m.event(ev.Channel, "chat was cleared by a moderator")
		case ev.BanDuration > 0:
			r.PurgeUser(ev.TargetLogin)
			m.event(ev.Channel, fmt.Sprintf("%s was timed out for %ds", ev.TargetLogin, ev.BanDuration))
		default:
			r.PurgeUser(ev.TargetLogin)
			m.event(ev.Channel, fmt.Sprintf("%s was banned", ev.TargetLogin))
		}
		m.clampScroll()

	case chat.ClearMessageEvent:
		m.ensureRing(ev.Channel).PurgeID(ev.TargetMsgID)
		m.clampScroll()

	case chat.JoinedEvent:
		m.event(ev.Channel, "joined #"+ev.Channel)

	case chat.ConnectedEvent:
		m.connected = true
		if m.channel != "" {
			m.event(m.channel, "connected to chat")
		}

	case chat.DisconnectedEvent:
		m.connected = false
		text := "disconnected from chat"
		if ev.Err != nil {
			text += ": " + ev.Err.Error()
		}
		if m.channel != "" {
			m.event(m.channel, text+", reconnecting")
		}
	}
	return nil
}

func (m *Model) handleMessage(ev chat.MessageEvent) tea.Cmd {
	if m.filters != nil && !ev.Self && m.filters.Contaminated(ev.Text) {
		telemetry.IncMessagesFiltered()
		return nil
	}
	line := Line{
		Kind:         LineChat,
		ID:           ev.ID,
		Author:       ev.Author,
		DisplayName:  ev.DisplayName,
		Color:        ev.Color,
		Text:         ev.Text,
		Time:         ev.Time,
		Action:       ev.Action,
		FirstMessage: ev.FirstMessage,
		Self:         ev.Self,
	}
	login := strings.ToLower(m.cfg.Twitch.Username)
	if login != "" && !ev.Self && strings.Contains(strings.ToLower(ev.Text), login) {
		line.Mention = true
	}

	r := m.ensureRing(ev.Channel)
	atCap := r.Len() == r.Cap()
	r.Append(line)
	m.noteChatter(ev.Channel, ev.Author)

	// A locked view stays put while new messages arrive below it.
	if ev.Channel == m.channel && m.scroll > 0 && !atCap {
		m.scroll++
	}
	m.clampScroll()

	if line.Mention {
		return m.storeMentionCmd(ev.Channel, line)
	}
	return nil
}

var roomStateNames = map[string]string{
	"emote-only":     "emote-only mode",
	"followers-only": "followers-only mode",
	"r9k":            "unique-chat mode",
	"slow":           "slow mode",
	"subs-only":      "subscribers-only mode",
}

func roomStateLine(state string, v int) (string, bool) {
	name, ok := roomStateNames[state]
	if !ok {
		return "", false
	}
	switch state {
	case "followers-only":
		// -1 off, 0 on for everyone, N minimum follow age in minutes.
		switch {
		case v < 0:
			return name + " disabled", true
		case v == 0:
			return name + " enabled", true
		default:
			return fmt.Sprintf("%s enabled (%d minutes)", name, v), true
		}
	case "slow":
		if v <= 0 {
			return name + " disabled", true
		}
		return fmt.Sprintf("%s enabled (%d seconds)", name, v), true
	default:
		if v == 0 {
			return name + " disabled", true
		}
		return name + " enabled", true
	}
}

// handleRoomState announces changes only: the first ROOMSTATE after a
// join seeds silently, repeats of the same value say nothing.
func (m *Model) handleRoomState(ev chat.RoomStateEvent) {
	stored, seen := m.roomStates[ev.Channel]
	if !seen {
		states := make(map[string]int, len(ev.States))
		for k, v := range ev.States {
			states[k] = v
		}
		m.roomStates[ev.Channel] = states
		return
	}
	for k, v := range ev.States {
		if old, ok := stored[k]; ok && old == v {
			continue
		}
		stored[k] = v
		if text, ok := roomStateLine(k, v); ok {
			m.event(ev.Channel, text)
		}
	}
}

func (m *Model) handleLiveStatus(s chat.LiveStatus) {
	m.live[s.Channel] = liveInfo{
		live:      s.Live,
		title:     s.Title,
		game:      s.GameName,
		viewers:   s.Viewers,
		startedAt: s.StartedAt,
	}
	for i := range m.followedList {
		if m.followedList[i].Login == s.Channel {
			m.followedList[i].Live = s.Live
		}
	}
	m.rebuildDash()
	if s.Channel == m.channel {
		if s.Live {
			m.event(s.Channel, fmt.Sprintf("%s went live: %s", s.Channel, s.Title))
		} else {
			m.event(s.Channel, s.Channel+" went offline")
		}
	}
}

// ---- keys ----

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case StateInsert, StateChannelSwitch, StateMessageSearch:
		return m.handleTextEntryKey(msg)
	case StateDashboard:
		return m.handleDashboardKey(msg)
	case StateHelp, StateDebug:
		return m.handleOverlayKey(msg)
	default:
		return m.handleNormalKey(msg)
	}
}

func (m Model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.goTo(StateHelp)
	case key.Matches(msg, k.Dashboard):
		m.goTo(StateDashboard)
		return m, m.fetchFollowedCmd()
	case key.Matches(msg, k.Insert):
		m.enterInsert("")
	case key.Matches(msg, k.InsertMention):
		m.enterInsert("@")
	case key.Matches(msg, k.InsertCommand):
		m.enterInsert("/")
	case key.Matches(msg, k.ChannelSwitch):
		m.switchFollowed = false
		m.enterTextEntry(StateChannelSwitch)
	case key.Matches(msg, k.Search):
		m.enterTextEntry(StateMessageSearch)
	case key.Matches(msg, k.ToggleFilters):
		if m.filters != nil {
			if m.filters.Toggle() {
				m.notice("filters enabled")
			} else {
				m.notice("filters disabled")
			}
		}
	case key.Matches(msg, k.ReverseFilter):
		if m.filters != nil {
			if m.filters.Reverse() {
				m.notice("filters reversed: only matching messages are shown")
			} else {
				m.notice("filters back to normal matching")
			}
		}
	case key.Matches(msg, k.Debug):
		m.goTo(StateDebug)
	case key.Matches(msg, k.Up):
		m.scrollBy(1)
	case key.Matches(msg, k.Down):
		m.scrollBy(-1)
	case key.Matches(msg, k.PageUp):
		m.scrollBy(m.pageSize())
	case key.Matches(msg, k.PageDown):
		m.scrollBy(-m.pageSize())
	case key.Matches(msg, k.Home):
		m.scroll = m.currentRing().Len() - 1
		m.clampScroll()
	case key.Matches(msg, k.End):
		m.scroll = 0
	case key.Matches(msg, k.Back):
		m.back()
	}
	return m, nil
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.goTo(StateHelp)
	case key.Matches(msg, k.Up):
		m.dash.move(-1)
	case key.Matches(msg, k.Down):
		m.dash.move(1)
	case key.Matches(msg, k.Select):
		if login, ok := m.dash.selected(); ok {
			return m.joinFromDashboard(login)
		}
	case key.Matches(msg, k.ChannelSwitch):
		m.switchFollowed = false
		m.enterTextEntry(StateChannelSwitch)
	case key.Matches(msg, k.Followed):
		m.switchFollowed = true
		m.enterTextEntry(StateChannelSwitch)
	case key.Matches(msg, k.Back):
		m.back()
	default:
		s := msg.String()
		if len(s) == 1 && s[0] >= '0' && s[0] <= '9' {
			// Digits past the end of the list are ignored.
			if login, ok := m.dash.at(int(s[0] - '0')); ok {
				return m.joinFromDashboard(login)
			}
		}
	}
	return m, nil
}

func (m Model) handleOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Back):
		m.back()
	case key.Matches(msg, k.Dashboard):
		m.goTo(StateDashboard)
		return m, m.fetchFollowedCmd()
	}
	return m, nil
}

func (m Model) handleTextEntryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Back):
		m.leaveTextEntry()
		m.back()
		return m, nil
	case key.Matches(msg, k.AcceptSuggest):
		if m.suggestion != "" {
			m.input.SetValue(m.suggestion)
			m.input.CursorEnd()
			m.suggestion = ""
		}
		return m, nil
	case key.Matches(msg, k.Send):
		switch m.state {
		case StateInsert:
			return m.submitMessage()
		case StateChannelSwitch:
			return m.submitChannel()
		default: // message search: close, keep the ring where it is
			m.leaveTextEntry()
			m.back()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.refreshSuggestion()
	if m.state == StateMessageSearch {
		m.searchQuery = m.input.Value()
		m.searchHits = SearchRing(m.currentRing(), m.searchQuery, m.slab)
	}
	return m, cmd
}

// ---- state entry/exit helpers ----

func (m *Model) enterInsert(prefill string) {
	if m.bridge.Anonymous() {
		m.notice("cannot chat anonymously: run with --login to authenticate")
		return
	}
	m.enterTextEntry(StateInsert)
	m.input.SetValue(prefill)
	m.input.CursorEnd()
}

func (m *Model) enterTextEntry(next State) {
	m.goTo(next)
	m.input.Reset()
	m.input.Focus()
	m.suggestion = ""
	if next == StateMessageSearch {
		m.searchQuery = ""
		m.searchHits = nil
	}
}

func (m *Model) leaveTextEntry() {
	m.input.Reset()
	m.input.Blur()
	m.suggestion = ""
}

func (m *Model) refreshSuggestion() {
	m.suggestion = ""
	val := m.input.Value()
	switch m.state {
	case StateInsert:
		if s, ok := Suggest(val, m.chatters[m.channel]); ok && s != val {
			m.suggestion = s
		}
	case StateChannelSwitch:
		// The followed-search entry point limits suggestions to followed
		// channels; the plain switch mixes in recently joined ones.
		candidates := make([]string, 0, len(m.recent)+len(m.followedList))
		if !m.switchFollowed {
			candidates = append(candidates, m.recent...)
		}
		for _, e := range m.followedList {
			candidates = append(candidates, e.Login)
		}
		if s, ok := SuggestPrefix(candidates, val); ok && s != val {
			m.suggestion = s
		}
	}
}

// ---- actions ----

func (m Model) submitMessage() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	m.leaveTextEntry()
	m.back()
	if text == "" {
		return m, nil
	}
	if m.channel == "" {
		m.notice("join a channel before chatting")
		return m, nil
	}
	if err := m.bridge.Say(m.channel, text); err != nil {
		m.notice("message not sent: " + err.Error())
	}
	return m, nil
}

func (m Model) submitChannel() (tea.Model, tea.Cmd) {
	login := config.NormalizeChannel(m.input.Value())
	m.leaveTextEntry()
	if !config.ValidChannel(login) {
		m.notice(fmt.Sprintf("invalid channel name %q", login))
		m.back()
		return m, nil
	}
	cmd := m.switchChannel(login)
	m.state = StateNormal
	m.previous = StateDashboard
	return m, cmd
}

func (m Model) joinFromDashboard(login string) (tea.Model, tea.Cmd) {
	cmd := m.switchChannel(login)
	m.goTo(StateNormal)
	return m, cmd
}

// switchChannel departs the current channel, joins the new one and makes
// it current. The join is always requested: the bridge dedupes repeats,
// and on startup the current channel has not been joined on the wire yet.
func (m *Model) switchChannel(login string) tea.Cmd {
	if login != m.channel {
		if m.channel != "" {
			m.bridge.Depart(m.channel)
		}
		m.channel = login
		m.scroll = 0
	}
	m.bridge.Join(login)
	m.ensureRing(login)
	return m.touchChannelCmd(login)
}

// ---- scrolling ----

func (m *Model) pageSize() int {
	if m.height > 4 {
		return m.height - 4
	}
	return 10
}

func (m *Model) scrollBy(delta int) {
	m.scroll += delta
	m.clampScroll()
}
