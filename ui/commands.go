package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/onnwee/twt/chat"
	"github.com/onnwee/twt/db"
)

// Bridge is the slice of the IRC client the UI drives. chat.Client
// satisfies it; tests use a fake.
type Bridge interface {
	Join(channel string)
	Depart(channel string)
	Say(channel, text string) error
	Events() <-chan chat.Event
	Anonymous() bool
	Connected() bool
}

// FollowedEntry is one followed channel for the dashboard, live-first.
type FollowedEntry struct {
	Login string
	Live  bool
}

// LiveStatusMsg is injected by main via Program.Send when the live
// watcher observes a transition.
type LiveStatusMsg chat.LiveStatus

type tickMsg time.Time

type recentChannelsMsg []string

type followedMsg []FollowedEntry

type followedErrMsg struct{ err error }

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent relays one bridge event into the bubbletea loop; Update
// re-arms it after handling each event.
func waitForEvent(events <-chan chat.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return ev
	}
}

func (m *Model) loadRecentCmd() tea.Cmd {
	if m.dbx == nil || !m.cfg.Storage.Channels {
		return nil
	}
	dbx := m.dbx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		visits, err := db.RecentChannels(ctx, dbx, 10)
		if err != nil {
			return nil
		}
		logins := make([]string, 0, len(visits))
		for _, v := range visits {
			logins = append(logins, v.Login)
		}
		return recentChannelsMsg(logins)
	}
}

func (m *Model) touchChannelCmd(login string) tea.Cmd {
	if m.dbx == nil || !m.cfg.Storage.Channels {
		return nil
	}
	dbx := m.dbx
	load := m.loadRecentCmd()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.TouchChannel(ctx, dbx, login); err != nil {
			return nil
		}
		if load != nil {
			return load()
		}
		return nil
	}
}

func (m *Model) storeMentionCmd(channel string, l Line) tea.Cmd {
	if m.dbx == nil || !m.cfg.Storage.Mentions {
		return nil
	}
	dbx := m.dbx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.InsertMention(ctx, dbx, db.Mention{
			ID:        l.ID,
			Channel:   channel,
			Sender:    l.Author,
			Message:   l.Text,
			CreatedAt: l.Time,
		})
		return nil
	}
}

func (m *Model) fetchFollowedCmd() tea.Cmd {
	if m.followed == nil {
		return nil
	}
	fetch := m.followed
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		entries, err := fetch(ctx)
		if err != nil {
			return followedErrMsg{err: err}
		}
		return followedMsg(entries)
	}
}
