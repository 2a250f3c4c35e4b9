package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChannelVisit is one row of the recently joined channel list.
type ChannelVisit struct {
	Login      string
	LastJoined time.Time
	JoinCount  int
}

// Mention is a stored chat message that mentioned our login.
type Mention struct {
	ID        string
	Channel   string
	Sender    string
	Message   string
	CreatedAt time.Time
}

// TouchChannel records a join: insert on first visit, otherwise bump the
// join count and refresh last_joined.
func TouchChannel(ctx context.Context, dbx *sql.DB, login string) error {
	q := `INSERT INTO channels(login, last_joined, join_count) VALUES(?,?,1)
		  ON CONFLICT(login) DO UPDATE SET
		    last_joined=excluded.last_joined,
		    join_count=channels.join_count+1`
	if _, err := dbx.ExecContext(ctx, q, login, formatTime(time.Now())); err != nil {
		return fmt.Errorf("touch channel %s: %w", login, err)
	}
	return nil
}

// RecentChannels lists visited channels, most recently joined first.
func RecentChannels(ctx context.Context, dbx *sql.DB, limit int) ([]ChannelVisit, error) {
	rows, err := dbx.QueryContext(ctx,
		`SELECT login, last_joined, join_count FROM channels ORDER BY last_joined DESC, login LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent channels: %w", err)
	}
	defer rows.Close()

	var out []ChannelVisit
	for rows.Next() {
		var v ChannelVisit
		if err := rows.Scan(&v.Login, &v.LastJoined, &v.JoinCount); err != nil {
			return nil, fmt.Errorf("scan channel row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// InsertMention stores a message that mentioned our login. A missing ID is
// filled with a fresh UUID.
func InsertMention(ctx context.Context, dbx *sql.DB, m Mention) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	q := `INSERT INTO mentions(id, channel, sender, message, created_at) VALUES(?,?,?,?,?)`
	if _, err := dbx.ExecContext(ctx, q, m.ID, m.Channel, m.Sender, m.Message, formatTime(m.CreatedAt)); err != nil {
		return fmt.Errorf("insert mention: %w", err)
	}
	return nil
}

// RecentMentions lists stored mentions, newest first.
func RecentMentions(ctx context.Context, dbx *sql.DB, limit int) ([]Mention, error) {
	rows, err := dbx.QueryContext(ctx,
		`SELECT id, channel, sender, message, created_at FROM mentions ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query mentions: %w", err)
	}
	defer rows.Close()

	var out []Mention
	for rows.Next() {
		var m Mention
		if err := rows.Scan(&m.ID, &m.Channel, &m.Sender, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mention row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
