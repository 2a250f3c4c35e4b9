// Package chat is the IRC bridge between Twitch and the UI.
//
// It provides two entrypoints:
//   - Client: wraps go-twitch-irc with a reconnecting Run loop, join/part
//     and send operations, and a single typed event channel the UI drains.
//     Connecting without credentials falls back to an anonymous
//     (justinfan) session that can read but not send.
//   - StartLiveWatcher: polls Helix stream status for the joined channels
//     and reports live/offline transitions for the title bar and dashboard.
//
// Credentials: sending requires a username and an OAuth token with
// chat:read/chat:edit scopes, with the "oauth:" prefix the IRC server
// expects. The token can be rotated mid-session via UpdateToken; the new
// value is used on the next (re)connect.
package chat
