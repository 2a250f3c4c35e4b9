package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/onnwee/twt/chat"
)

func TestViewTooSmall(t *testing.T) {
	m := testModel(testConfig(), newFakeBridge())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 15, Height: 3})
	m = next.(Model)
	if got := m.View(); got != "window too small" {
		t.Errorf("View() = %q", got)
	}
}

func TestDashboardViewListsSections(t *testing.T) {
	m := testModel(testConfig(), newFakeBridge())
	next, _ := m.Update(recentChannelsMsg{"recentchannel"})
	m = next.(Model)
	next, _ = m.Update(followedMsg{{Login: "livefriend", Live: true}})
	m = next.(Model)

	view := m.View()
	for _, want := range []string{"Default", "Recent", "Followed", "somestreamer", "recentchannel", "livefriend"} {
		if !strings.Contains(view, want) {
			t.Errorf("dashboard view missing %q", want)
		}
	}
}

func TestHelpViewShowsContractKeys(t *testing.T) {
	cfg := testConfig()
	cfg.Terminal.FirstState = "help"
	m := testModel(cfg, newFakeBridge())

	view := m.View()
	for _, want := range []string{"?/h", "Esc", "i/c", "Enter", "S", "C-f", "Tab"} {
		if !strings.Contains(view, want) {
			t.Errorf("help view missing %q", want)
		}
	}
}

func TestChatViewShowsMessages(t *testing.T) {
	cfg := testConfig()
	cfg.Terminal.FirstState = "normal"
	m := testModel(cfg, newFakeBridge())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(Model)
	m = feed(m, chat.ConnectedEvent{})
	m = feed(m, chat.MessageEvent{ID: "m1", Channel: "somestreamer", Author: "viewer", DisplayName: "Viewer", Text: "hello world"})

	view := m.View()
	if !strings.Contains(view, "hello world") {
		t.Error("chat view missing the message text")
	}
	if !strings.Contains(view, "Viewer") {
		t.Error("chat view missing the display name")
	}
}

func TestAlignName(t *testing.T) {
	tests := []struct {
		name      string
		alignment string
		column    int
		want      string
	}{
		{"abc", "right", 5, "  abc"},
		{"abc", "left", 5, "abc  "},
		{"abc", "center", 5, " abc "},
		{"abcdef", "right", 5, "abcdef"},
	}
	for _, tt := range tests {
		if got := alignName(tt.name, len(tt.name), tt.column, tt.alignment); got != tt.want {
			t.Errorf("alignName(%q,%s) = %q, want %q", tt.name, tt.alignment, got, tt.want)
		}
	}
}

func TestTruncateDisplay(t *testing.T) {
	if got := truncateDisplay("verylongusername", 8); got != "verylong" {
		t.Errorf("truncateDisplay = %q", got)
	}
	if got := truncateDisplay("short", 8); got != "short" {
		t.Errorf("truncateDisplay = %q", got)
	}
	if got := truncateDisplay("anything", 0); got != "anything" {
		t.Errorf("zero max should not truncate, got %q", got)
	}
}
