package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	twitch "github.com/gempir/go-twitch-irc/v4"
	"github.com/google/uuid"

	"github.com/onnwee/twt/backoff"
	"github.com/onnwee/twt/telemetry"
)

// MessageLimit is the maximum chat message length Twitch accepts.
const MessageLimit = 500

// eventBuffer bounds the UI-facing event channel. When the UI stalls the
// oldest events are dropped rather than blocking the IRC read loop.
const eventBuffer = 512

// Config describes how the bridge connects.
type Config struct {
	// Username is the login we chat as. Empty means anonymous read-only.
	Username string
	// Token is the OAuth token with the "oauth:" prefix.
	Token string
	// Address overrides the IRC endpoint (host:port) for tests; empty
	// uses the production endpoint with TLS.
	Address string
	// TLS applies when Address is set.
	TLS bool
	// Channels are joined on every (re)connect.
	Channels []string
}

// Client is the reconnecting IRC bridge. Construct with New, drive with
// Run, drain Events from a single goroutine.
type Client struct {
	mu       sync.Mutex
	cfg      Config
	token    string
	tc       *twitch.Client
	channels map[string]struct{}

	connected atomic.Bool
	events    chan Event

	policy backoff.Policy
}

// New builds a client. Run must be called before Join/Say take effect on
// the wire; channel membership requested earlier is applied on connect.
func New(cfg Config) *Client {
	c := &Client{
		cfg:      cfg,
		token:    cfg.Token,
		channels: make(map[string]struct{}),
		events:   make(chan Event, eventBuffer),
		policy:   backoff.NewPolicy(),
	}
	for _, ch := range cfg.Channels {
		if ch != "" {
			c.channels[ch] = struct{}{}
		}
	}
	return c
}

// Events returns the typed event stream. The channel is never closed;
// stop reading once Run has returned.
func (c *Client) Events() <-chan Event { return c.events }

// Anonymous reports whether the bridge is in read-only mode.
func (c *Client) Anonymous() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Username == "" || c.token == ""
}

// Connected reports whether an IRC session is currently established.
func (c *Client) Connected() bool { return c.connected.Load() }

// Channels returns the current membership set, sorted.
func (c *Client) Channels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// Join requests membership in a channel. Joining a channel we are
// already in is a no-op.
func (c *Client) Join(channel string) {
	c.mu.Lock()
	if _, ok := c.channels[channel]; ok {
		c.mu.Unlock()
		return
	}
	c.channels[channel] = struct{}{}
	tc := c.tc
	n := len(c.channels)
	c.mu.Unlock()
	telemetry.SetChannelsJoined(n)
	if tc != nil {
		tc.Join(channel)
	}
}

// Depart leaves a channel.
func (c *Client) Depart(channel string) {
	c.mu.Lock()
	delete(c.channels, channel)
	tc := c.tc
	n := len(c.channels)
	c.mu.Unlock()
	telemetry.SetChannelsJoined(n)
	if tc != nil {
		tc.Depart(channel)
	}
}

// Say sends a message. The text is trimmed; empty and over-limit
// messages are rejected before touching the wire. Successful sends are
// echoed back on the event channel with Self set, since Twitch does not
// echo our own PRIVMSGs.
func (c *Client) Say(channel, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("message is empty")
	}
	if utf8.RuneCountInString(text) > MessageLimit {
		return fmt.Errorf("message exceeds the %d character limit", MessageLimit)
	}

	c.mu.Lock()
	username := c.cfg.Username
	anonymous := username == "" || c.token == ""
	tc := c.tc
	c.mu.Unlock()

	if anonymous {
		return errors.New("cannot send: no login configured, run with --login")
	}
	if tc == nil || !c.connected.Load() {
		return errors.New("not connected to chat")
	}

	tc.Say(channel, text)
	telemetry.IncMessagesSent()
	c.emit(MessageEvent{
		ID:          uuid.NewString(),
		Channel:     channel,
		Author:      username,
		DisplayName: username,
		Text:        text,
		Time:        time.Now(),
		Self:        true,
	})
	return nil
}

// UpdateToken installs a rotated OAuth token. The running session keeps
// its current credentials; the new token applies on the next reconnect
// (go-twitch-irc reads it at dial time).
func (c *Client) UpdateToken(token string) {
	c.mu.Lock()
	c.token = token
	tc := c.tc
	c.mu.Unlock()
	if tc != nil {
		tc.SetIRCToken(token)
	}
}

// errConnLost marks a dropped session detected via a second OnConnect
// on the same underlying client. go-twitch-irc redials internally after
// a drop, so the re-fire is the only signal the connection went down.
var errConnLost = errors.New("irc connection lost")

// Run connects and blocks until ctx is cancelled or a fatal error (bad
// credentials, malformed channel) occurs. Transient disconnects reconnect
// with jittered exponential backoff and re-join all channels.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var sawConnect, droppedMid atomic.Bool
		tc := c.build(&sawConnect, &droppedMid)
		c.mu.Lock()
		c.tc = tc
		c.mu.Unlock()

		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				if err := tc.Disconnect(); err != nil {
					slog.Debug("irc disconnect", slog.Any("err", err))
				}
			case <-done:
			}
		}()

		err := tc.Connect()
		close(done)
		c.connected.Store(false)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, twitch.ErrClientDisconnected) {
			if !droppedMid.Load() {
				return nil
			}
			// The OnConnect handler forced this disconnect after the
			// library redialled on its own; treat it as a lost session
			// so this loop owns the backoff and rejoin.
			err = errConnLost
		}
		c.emit(DisconnectedEvent{Err: err})
		if backoff.IsFatal(err) {
			return fmt.Errorf("irc connect: %w", err)
		}

		if sawConnect.Load() {
			attempt = 0
		} else {
			attempt++
		}
		telemetry.IncIRCReconnects()
		slog.Warn("irc connection lost, reconnecting",
			slog.String("component", "chat"), slog.Int("attempt", attempt), slog.Any("err", err))
		if err := c.policy.Sleep(ctx, attempt); err != nil {
			return err
		}
	}
}

// build constructs a fresh go-twitch-irc client with all handlers wired.
// A new instance per connection round avoids carrying closed-connection
// state across reconnects.
func (c *Client) build(sawConnect, droppedMid *atomic.Bool) *twitch.Client {
	c.mu.Lock()
	username, token := c.cfg.Username, c.token
	addr, useTLS := c.cfg.Address, c.cfg.TLS
	chans := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		chans = append(chans, ch)
	}
	c.mu.Unlock()

	var tc *twitch.Client
	if username == "" || token == "" {
		tc = twitch.NewAnonymousClient()
	} else {
		tc = twitch.NewClient(username, token)
	}
	if addr != "" {
		tc.IrcAddress = addr
		tc.TLS = useTLS
	}
	tc.Capabilities = []string{twitch.TagsCapability, twitch.CommandsCapability}

	tc.OnConnect(func() {
		if !sawConnect.CompareAndSwap(false, true) {
			// Second 001 on the same client: the library lost the
			// connection and redialled internally. Force Connect to
			// return so Run can emit events and apply backoff.
			droppedMid.Store(true)
			go func() { _ = tc.Disconnect() }()
			return
		}
		c.connected.Store(true)
		c.emit(ConnectedEvent{})
	})
	tc.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		telemetry.IncMessagesReceived()
		emotes := make([]string, 0, len(msg.Emotes))
		for _, e := range msg.Emotes {
			emotes = append(emotes, e.Name)
		}
		c.emit(MessageEvent{
			ID:           msg.ID,
			Channel:      msg.Channel,
			Author:       msg.User.Name,
			DisplayName:  msg.User.DisplayName,
			Color:        msg.User.Color,
			Text:         msg.Message,
			Badges:       msg.User.Badges,
			Emotes:       emotes,
			Time:         msg.Time,
			Action:       msg.Action,
			FirstMessage: msg.FirstMessage,
		})
	})
	tc.OnNoticeMessage(func(msg twitch.NoticeMessage) {
		c.emit(NoticeEvent{Channel: msg.Channel, MsgID: msg.MsgID, Text: msg.Message})
	})
	tc.OnUserNoticeMessage(func(msg twitch.UserNoticeMessage) {
		c.emit(UserNoticeEvent{Channel: msg.Channel, SystemMsg: msg.SystemMsg, Text: msg.Message, Time: msg.Time})
	})
	tc.OnRoomStateMessage(func(msg twitch.RoomStateMessage) {
		states := make(map[string]int, len(msg.State))
		for k, v := range msg.State {
			states[k] = v
		}
		c.emit(RoomStateEvent{Channel: msg.Channel, States: states})
	})
	tc.OnClearChatMessage(func(msg twitch.ClearChatMessage) {
		c.emit(ClearChatEvent{Channel: msg.Channel, TargetLogin: msg.TargetUsername, BanDuration: msg.BanDuration})
	})
	tc.OnClearMessage(func(msg twitch.ClearMessage) {
		c.emit(ClearMessageEvent{Channel: msg.Channel, TargetMsgID: msg.TargetMsgID})
	})
	tc.OnSelfJoinMessage(func(msg twitch.UserJoinMessage) {
		c.emit(JoinedEvent{Channel: msg.Channel})
	})

	if len(chans) > 0 {
		tc.Join(chans...)
	}
	return tc
}

// emit delivers an event without ever blocking the read loop: when the
// buffer is full the oldest event is discarded to make room.
func (c *Client) emit(ev Event) {
	for {
		select {
		case c.events <- ev:
			return
		default:
		}
		select {
		case <-c.events:
			telemetry.IncEventsDropped()
		default:
		}
	}
}
