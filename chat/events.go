package chat

import "time"

// Event is anything the bridge reports to the UI. The concrete types
// below are the full set.
type Event interface {
	event()
}

// MessageEvent is a PRIVMSG, either received from the channel or echoed
// locally for our own sends (Self).
type MessageEvent struct {
	ID           string
	Channel      string
	Author       string
	DisplayName  string
	Color        string
	Text         string
	Badges       map[string]int
	Emotes       []string
	Time         time.Time
	Action       bool
	FirstMessage bool
	Self         bool
}

// NoticeEvent is a server NOTICE (e.g. "This room is now in slow mode").
type NoticeEvent struct {
	Channel string
	MsgID   string
	Text    string
}

// UserNoticeEvent is a USERNOTICE: subs, raids, announcements. SystemMsg
// is the server-rendered summary; Text is the optional user message.
type UserNoticeEvent struct {
	Channel   string
	SystemMsg string
	Text      string
	Time      time.Time
}

// RoomStateEvent carries the ROOMSTATE tag map: emote-only,
// followers-only, r9k, slow, subs-only. Values follow Twitch semantics
// (0 off, 1 on; followers-only/slow use minutes/seconds, -1 off).
type RoomStateEvent struct {
	Channel string
	States  map[string]int
}

// ClearChatEvent is a timeout, ban, or full chat clear. TargetLogin is
// empty for a full clear; BanDuration is 0 for a permanent ban.
type ClearChatEvent struct {
	Channel     string
	TargetLogin string
	BanDuration int
}

// ClearMessageEvent deletes a single message by id.
type ClearMessageEvent struct {
	Channel     string
	TargetMsgID string
}

// JoinedEvent confirms our own JOIN of a channel.
type JoinedEvent struct {
	Channel string
}

// ConnectedEvent fires once per successful (re)connect.
type ConnectedEvent struct{}

// DisconnectedEvent fires when the connection drops; the bridge is
// already scheduling a reconnect unless the error was fatal.
type DisconnectedEvent struct {
	Err error
}

func (MessageEvent) event()      {}
func (NoticeEvent) event()       {}
func (UserNoticeEvent) event()   {}
func (RoomStateEvent) event()    {}
func (ClearChatEvent) event()    {}
func (ClearMessageEvent) event() {}
func (JoinedEvent) event()       {}
func (ConnectedEvent) event()    {}
func (DisconnectedEvent) event() {}
