package ui

import "time"

// LineKind distinguishes chat from synthetic lines.
type LineKind int

const (
	// LineChat is a user message.
	LineChat LineKind = iota
	// LineEvent announces connection, join, room-state and moderation
	// activity.
	LineEvent
	// LineNotice is local feedback: send errors, filter toggles.
	LineNotice
)

// Line is one rendered row of a channel's history.
type Line struct {
	Kind         LineKind
	ID           string
	Author       string
	DisplayName  string
	Color        string
	Text         string
	Time         time.Time
	Action       bool
	FirstMessage bool
	Self         bool
	Mention      bool
}

// Ring is a capped per-channel message history. Appends past the cap
// evict oldest-first. Not goroutine-safe; owned by the UI loop.
type Ring struct {
	cap   int
	lines []Line
}

// NewRing creates a ring holding at most capacity lines (minimum 1).
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{cap: capacity}
}

// Append adds a line, evicting the oldest when full.
func (r *Ring) Append(l Line) {
	r.lines = append(r.lines, l)
	if len(r.lines) > r.cap {
		overflow := len(r.lines) - r.cap
		r.lines = append(r.lines[:0], r.lines[overflow:]...)
	}
}

// Len returns the number of stored lines.
func (r *Ring) Len() int { return len(r.lines) }

// Cap returns the maximum number of stored lines.
func (r *Ring) Cap() int { return r.cap }

// Lines returns the stored lines oldest-first. The slice is shared;
// callers must not mutate it.
func (r *Ring) Lines() []Line { return r.lines }

// Clear drops everything.
func (r *Ring) Clear() { r.lines = r.lines[:0] }

// PurgeUser removes all chat lines by login (timeouts and bans).
func (r *Ring) PurgeUser(login string) {
	kept := r.lines[:0]
	for _, l := range r.lines {
		if l.Kind == LineChat && l.Author == login {
			continue
		}
		kept = append(kept, l)
	}
	r.lines = kept
}

// PurgeID removes the line with the given message id, if present.
func (r *Ring) PurgeID(id string) {
	for i, l := range r.lines {
		if l.ID == id {
			r.lines = append(r.lines[:i], r.lines[i+1:]...)
			return
		}
	}
}
