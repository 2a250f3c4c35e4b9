package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/onnwee/twt/chat"
	"github.com/onnwee/twt/config"
	"github.com/onnwee/twt/filters"
)

func newTestFilters(t *testing.T, patterns ...string) *filters.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filters.txt")
	if err := os.WriteFile(path, []byte(strings.Join(patterns, "\n")), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := filters.NewStore(path, true, false)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

type said struct {
	channel string
	text    string
}

type fakeBridge struct {
	events    chan chat.Event
	said      []said
	joined    []string
	departed  []string
	anonymous bool
	sayErr    error
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{events: make(chan chat.Event, 8)}
}

func (f *fakeBridge) Join(channel string)   { f.joined = append(f.joined, channel) }
func (f *fakeBridge) Depart(channel string) { f.departed = append(f.departed, channel) }
func (f *fakeBridge) Say(channel, text string) error {
	if f.sayErr != nil {
		return f.sayErr
	}
	f.said = append(f.said, said{channel: channel, text: text})
	return nil
}
func (f *fakeBridge) Events() <-chan chat.Event { return f.events }
func (f *fakeBridge) Anonymous() bool           { return f.anonymous }
func (f *fakeBridge) Connected() bool           { return true }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Twitch.Username = "tester"
	cfg.Twitch.Channel = "somestreamer"
	return cfg
}

func testModel(cfg *config.Config, bridge *fakeBridge) Model {
	return New(Options{Config: cfg, Bridge: bridge})
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+f":
		return tea.KeyMsg{Type: tea.KeyCtrlF}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	case "ctrl+d":
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "home":
		return tea.KeyMsg{Type: tea.KeyHome}
	case "end":
		return tea.KeyMsg{Type: tea.KeyEnd}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m
}

func feed(m Model, ev chat.Event) Model {
	next, _ := m.Update(ev)
	return next.(Model)
}

func TestStartupStateFollowsFirstState(t *testing.T) {
	tests := []struct {
		firstState string
		want       State
	}{
		{"", StateDashboard},
		{"dashboard", StateDashboard},
		{"normal", StateNormal},
		{"help", StateHelp},
		{"bogus", StateDashboard},
	}
	for _, tt := range tests {
		cfg := testConfig()
		cfg.Terminal.FirstState = tt.firstState
		m := testModel(cfg, newFakeBridge())
		if m.State() != tt.want {
			t.Errorf("first_state=%q: startup state = %v, want %v", tt.firstState, m.State(), tt.want)
		}
	}
}

func TestHelpOpensAndEscReturns(t *testing.T) {
	cfg := testConfig()
	cfg.Terminal.FirstState = "normal"
	m := testModel(cfg, newFakeBridge())

	for _, k := range []string{"?", "h"} {
		m = press(m, k)
		if m.State() != StateHelp {
			t.Fatalf("%q did not open help, state = %v", k, m.State())
		}
		m = press(m, "esc")
		if m.State() != StateNormal {
			t.Fatalf("Esc from help returned to %v, want normal", m.State())
		}
	}

	// Help opened from the dashboard returns to the dashboard.
	cfg2 := testConfig()
	m2 := testModel(cfg2, newFakeBridge())
	m2 = press(m2, "?")
	if m2.State() != StateHelp {
		t.Fatalf("help from dashboard: state = %v", m2.State())
	}
	m2 = press(m2, "esc")
	if m2.State() != StateDashboard {
		t.Errorf("Esc returned to %v, want dashboard", m2.State())
	}
}

func TestInsertEscCancelsWithoutSending(t *testing.T) {
	cfg := testConfig()
	cfg.Terminal.FirstState = "normal"
	bridge := newFakeBridge()
	m := testModel(cfg, bridge)

	for _, k := range []string{"i", "c"} {
		m = press(m, k)
		if m.State() != StateInsert {
			t.Fatalf("%q did not enter insert mode, state = %v", k, m.State())
		}
		m = press(m, "draft text", "esc")
		if m.State() != StateNormal {
			t.Fatalf("Esc left state %v, want normal", m.State())
		}
		if len(bridge.said) != 0 {
			t.Fatalf("cancelled compose still sent %v", bridge.said)
		}
		if m.input.Value() != "" {
			t.Errorf("cancelled input not cleared: %q", m.input.Value())
		}
	}
}

func TestInsertEnterSendsAndReturnsToNormal(t *testing.T) {
	cfg := testConfig()
	cfg.Terminal.FirstState = "normal"
	bridge := newFakeBridge()
	m := testModel(cfg, bridge)

	m = press(m, "i", "hello chat", "enter")
	if m.State() != StateNormal {
		t.Errorf("state after send = %v, want normal", m.State())
	}
	if len(bridge.said) != 1 || bridge.said[0] != (said{channel: "somestreamer", text: "hello chat"}) {
		t.Errorf("said = %v", bridge.said)
	}

	// Empty input sends nothing.
	m = press(m, "i", "enter")
	if len(bridge.said) != 1 {
		t.Errorf("empty compose sent a message: %v", bridge.said)
	}
}

func TestShiftSReturnsToDashboard(t *testing.T) {
	cfg := testConfig()
	cfg.Terminal.FirstState = "normal"
	m := testModel(cfg, newFakeBridge())

	m = press(m, "S")
	if m.State() != StateDashboard {
		t.Fatalf("S from normal: state = %v, want dashboard", m.State())
	}

	// Also from the help overlay.
	m = press(m, "?", "S")
	if m.State() != StateDashboard {
		t.Errorf("S from help: state = %v, want dashboard", m.State())
	}
}

func TestSendErrorBecomesNoticeLine(t *testing.T) {
	cfg := testConfig()
	cfg.Terminal.FirstState = "normal"
	bridge := newFakeBridge()
	bridge.sayErr = chatError("message exceeds the 500 character limit")
	m := testModel(cfg, bridge)

	m = press(m, "i", "way too long", "enter")
	lines := m.currentRing().Lines()
	if len(lines) != 1 || lines[0].Kind != LineNotice {
		t.Fatalf("expected one notice line, got %v", lines)
	}
	if !strings.Contains(lines[0].Text, "500 character") {
		t.Errorf("notice text = %q", lines[0].Text)
	}
}

type chatError string

func (e chatError) Error() string { return string(e) }

func TestAnonymousComposeShowsNotice(t *testing.T) {
	cfg := testConfig()
	cfg.Terminal.FirstState = "normal"
	bridge := newFakeBridge()
	bridge.anonymous = true
	m := testModel(cfg, bridge)

	m = press(m, "i")
	if m.State() != StateNormal {
		t.Errorf("anonymous compose entered %v, want to stay normal", m.State())
	}
	lines := m.currentRing().Lines()
	if len(lines) != 1 || lines[0].Kind != LineNotice || !strings.Contains(lines[0].Text, "login") {
		t.Errorf("expected a login-required notice, got %v", lines)
	}
}

func TestChannelSwitchValidatesAndJoins(t *testing.T) {
	cfg := testConfig()
	cfg.Terminal.FirstState = "normal"
	bridge := newFakeBridge()
	m := testModel(cfg, bridge)

	m = press(m, "s")
	if m.State() != StateChannelSwitch {
		t.Fatalf("s did not open the channel switcher, state = %v", m.State())
	}
	m = press(m, "OtherStreamer", "enter")
	if m.State() != StateNormal {
		t.Errorf("state after switch = %v", m.State())
	}
	if m.Channel() != "otherstreamer" {
		t.Errorf("channel = %q, want otherstreamer (lowercased)", m.Channel())
	}
	if len(bridge.departed) != 1 || bridge.departed[0] != "somestreamer" {
		t.Errorf("departed = %v", bridge.departed)
	}
	if len(bridge.joined) != 1 || bridge.joined[0] != "otherstreamer" {
		t.Errorf("joined = %v", bridge.joined)
	}

	// Names outside ^[a-zA-Z0-9_]{3,25}$ never reach the bridge.
	m = press(m, "s", "ab", "enter")
	if len(bridge.joined) != 1 {
		t.Errorf("invalid channel reached the bridge: %v", bridge.joined)
	}
}

func TestDashboardDigitJoins(t *testing.T) {
	cfg := testConfig()
	bridge := newFakeBridge()
	m := testModel(cfg, bridge)
	if m.State() != StateDashboard {
		t.Fatal("expected dashboard startup")
	}

	m = press(m, "0")
	if m.State() != StateNormal {
		t.Errorf("digit join left state %v", m.State())
	}
	if len(bridge.joined) != 1 || bridge.joined[0] != "somestreamer" {
		t.Errorf("joined = %v", bridge.joined)
	}

	// Digits past the list length are ignored.
	m = press(m, "S", "9")
	if len(bridge.joined) != 1 {
		t.Errorf("out-of-range digit joined: %v", bridge.joined)
	}
	if m.State() != StateDashboard {
		t.Errorf("out-of-range digit changed state to %v", m.State())
	}
}

func TestDashboardChannelSwitchKey(t *testing.T) {
	cfg := testConfig()
	bridge := newFakeBridge()
	m := testModel(cfg, bridge)
	if m.State() != StateDashboard {
		t.Fatal("expected dashboard startup")
	}

	m = press(m, "s")
	if m.State() != StateChannelSwitch {
		t.Fatalf("s on the dashboard left state %v, want channel switcher", m.State())
	}
	m = press(m, "otherstreamer", "enter")
	if m.State() != StateNormal {
		t.Errorf("state after switch = %v", m.State())
	}
	if len(bridge.joined) != 1 || bridge.joined[0] != "otherstreamer" {
		t.Errorf("joined = %v", bridge.joined)
	}
}

func TestFollowedSearchSuggestsFollowedOnly(t *testing.T) {
	cfg := testConfig()
	m := testModel(cfg, newFakeBridge())

	next, _ := m.Update(recentChannelsMsg{"recentchan"})
	m = next.(Model)
	next, _ = m.Update(followedMsg{{Login: "followedchan"}})
	m = next.(Model)

	// f narrows completion to followed channels.
	m = press(m, "f")
	if m.State() != StateChannelSwitch {
		t.Fatalf("f on the dashboard left state %v, want channel switcher", m.State())
	}
	m = press(m, "fol")
	if m.suggestion != "followedchan" {
		t.Errorf("followed search suggestion = %q, want followedchan", m.suggestion)
	}
	m = press(m, "esc", "f", "rec")
	if m.suggestion != "" {
		t.Errorf("followed search suggested %q from the recent list", m.suggestion)
	}

	// The plain switcher mixes recently joined channels back in.
	m = press(m, "esc", "s", "rec")
	if m.suggestion != "recentchan" {
		t.Errorf("channel switcher suggestion = %q, want recentchan", m.suggestion)
	}
}

func TestMessageEventsFillRingAndCapHolds(t *testing.T) {
	cfg := testConfig()
	cfg.Terminal.FirstState = "normal"
	cfg.Terminal.MaximumMessages = 3
	m := testModel(cfg, newFakeBridge())

	for i := 0; i < 5; i++ {
		m = feed(m, chat.MessageEvent{
			ID: string(rune('a' + i)), Channel: "somestreamer",
			Author: "viewer", Text: "msg", Time: time.Now(),
		})
	}
	if got := m.currentRing().Len(); got != 3 {
		t.Errorf("ring len = %d, want cap 3", got)
	}
}

func TestClearChatAndClearMessage(t *testing.T) {
	cfg := testConfig()
	cfg.Terminal.FirstState = "normal"
	m := testModel(cfg, newFakeBridge())

	m = feed(m, chat.MessageEvent{ID: "m1", Channel: "somestreamer", Author: "spammer", Text: "one"})
	m = feed(m, chat.MessageEvent{ID: "m2", Channel: "somestreamer", Author: "regular", Text: "two"})
	m = feed(m, chat.MessageEvent{ID: "m3", Channel: "somestreamer", Author: "spammer", Text: "three"})

	m = feed(m, chat.ClearChatEvent{Channel: "somestreamer", TargetLogin: "spammer", BanDuration: 600})
	var chatLines []Line
	for _, l := range m.currentRing().Lines() {
		if l.Kind == LineChat {
			chatLines = append(chatLines, l)
		}
	}
	if len(chatLines) != 1 || chatLines[0].Author != "regular" {
		t.Fatalf("after purge: %v", chatLines)
	}

	m = feed(m, chat.ClearMessageEvent{Channel: "somestreamer", TargetMsgID: "m2"})
	for _, l := range m.currentRing().Lines() {
		if l.ID == "m2" {
			t.Error("deleted message still in ring")
		}
	}

	m = feed(m, chat.ClearChatEvent{Channel: "somestreamer"})
	for _, l := range m.currentRing().Lines() {
		if l.Kind == LineChat {
			t.Error("full clear left chat lines behind")
		}
	}
}

func TestRoomStateAnnouncesTransitionsOnly(t *testing.T) {
	cfg := testConfig()
	cfg.Terminal.FirstState = "normal"
	m := testModel(cfg, newFakeBridge())

	countEvents := func() int {
		n := 0
		for _, l := range m.currentRing().Lines() {
			if l.Kind == LineEvent {
				n++
			}
		}
		return n
	}

	// First ROOMSTATE after join seeds silently.
	m = feed(m, chat.RoomStateEvent{Channel: "somestreamer", States: map[string]int{"slow": 0, "emote-only": 0}})
	if countEvents() != 0 {
		t.Fatalf("initial room state announced %d lines", countEvents())
	}

	m = feed(m, chat.RoomStateEvent{Channel: "somestreamer", States: map[string]int{"slow": 30}})
	if countEvents() != 1 {
		t.Fatalf("slow-mode transition announced %d lines, want 1", countEvents())
	}

	// Repeating the same value announces nothing.
	m = feed(m, chat.RoomStateEvent{Channel: "somestreamer", States: map[string]int{"slow": 30}})
	if countEvents() != 1 {
		t.Errorf("repeated room state announced again, %d lines", countEvents())
	}
}

func TestScrollLockAndClamp(t *testing.T) {
	cfg := testConfig()
	cfg.Terminal.FirstState = "normal"
	m := testModel(cfg, newFakeBridge())

	for i := 0; i < 10; i++ {
		m = feed(m, chat.MessageEvent{ID: string(rune('a' + i)), Channel: "somestreamer", Author: "viewer", Text: "msg"})
	}

	m = press(m, "up", "up")
	if m.scroll != 2 {
		t.Fatalf("scroll = %d, want 2", m.scroll)
	}

	// New messages must not move a locked view.
	m = feed(m, chat.MessageEvent{ID: "new", Channel: "somestreamer", Author: "viewer", Text: "newest"})
	if m.scroll != 3 {
		t.Errorf("scroll after new message = %d, want 3 (view locked)", m.scroll)
	}

	m = press(m, "end")
	if m.scroll != 0 {
		t.Errorf("End did not resume follow, scroll = %d", m.scroll)
	}

	// Clamped at the top.
	for i := 0; i < 100; i++ {
		m = press(m, "up")
	}
	if max := m.currentRing().Len() - 1; m.scroll != max {
		t.Errorf("scroll = %d, want clamp at %d", m.scroll, max)
	}
}

func TestFilteredMessagesNeverEnterRing(t *testing.T) {
	cfg := testConfig()
	cfg.Terminal.FirstState = "normal"
	store := newTestFilters(t, "bigfollows")
	bridge := newFakeBridge()
	m := New(Options{Config: cfg, Bridge: bridge, Filters: store})

	m = feed(m, chat.MessageEvent{ID: "m1", Channel: "somestreamer", Author: "bot", Text: "visit bigfollows dot com"})
	m = feed(m, chat.MessageEvent{ID: "m2", Channel: "somestreamer", Author: "human", Text: "hello"})

	lines := m.currentRing().Lines()
	if len(lines) != 1 || lines[0].ID != "m2" {
		t.Errorf("ring = %v, want only the clean message", lines)
	}
}

func TestMentionFlagged(t *testing.T) {
	cfg := testConfig()
	cfg.Terminal.FirstState = "normal"
	m := testModel(cfg, newFakeBridge())

	m = feed(m, chat.MessageEvent{ID: "m1", Channel: "somestreamer", Author: "viewer", Text: "hey @tester how goes"})
	m = feed(m, chat.MessageEvent{ID: "m2", Channel: "somestreamer", Author: "viewer", Text: "unrelated"})

	lines := m.currentRing().Lines()
	if !lines[0].Mention {
		t.Error("message naming our login not flagged as mention")
	}
	if lines[1].Mention {
		t.Error("unrelated message flagged as mention")
	}
}
