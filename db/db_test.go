package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dbx, err := Connect(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { dbx.Close() })
	if err := Migrate(context.Background(), dbx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return dbx
}

func TestMigrateIdempotent(t *testing.T) {
	dbx := testDB(t)
	// A second run must not fail.
	if err := Migrate(context.Background(), dbx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestConnectRequiresPath(t *testing.T) {
	if _, err := Connect(""); err == nil {
		t.Fatal("Connect(\"\") expected error")
	}
}

func TestTouchChannel(t *testing.T) {
	dbx := testDB(t)
	ctx := context.Background()

	if err := TouchChannel(ctx, dbx, "somechannel"); err != nil {
		t.Fatalf("TouchChannel() error = %v", err)
	}
	if err := TouchChannel(ctx, dbx, "somechannel"); err != nil {
		t.Fatalf("TouchChannel() second error = %v", err)
	}

	visits, err := RecentChannels(ctx, dbx, 10)
	if err != nil {
		t.Fatalf("RecentChannels() error = %v", err)
	}
	if len(visits) != 1 {
		t.Fatalf("RecentChannels() returned %d rows, want 1", len(visits))
	}
	if visits[0].Login != "somechannel" {
		t.Errorf("login = %q, want somechannel", visits[0].Login)
	}
	if visits[0].JoinCount != 2 {
		t.Errorf("join_count = %d, want 2", visits[0].JoinCount)
	}
	if time.Since(visits[0].LastJoined) > time.Minute {
		t.Errorf("last_joined too old: %v", visits[0].LastJoined)
	}
}

func TestRecentChannelsOrderAndLimit(t *testing.T) {
	dbx := testDB(t)
	ctx := context.Background()

	// Seed with explicit timestamps so the ordering is unambiguous.
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	seed := []struct {
		login  string
		joined time.Time
	}{
		{"oldest", base},
		{"middle", base.Add(time.Hour)},
		{"newest", base.Add(2 * time.Hour)},
	}
	for _, s := range seed {
		_, err := dbx.ExecContext(ctx,
			`INSERT INTO channels(login, last_joined, join_count) VALUES(?,?,1)`,
			s.login, formatTime(s.joined))
		if err != nil {
			t.Fatalf("seed %s: %v", s.login, err)
		}
	}

	visits, err := RecentChannels(ctx, dbx, 2)
	if err != nil {
		t.Fatalf("RecentChannels() error = %v", err)
	}
	if len(visits) != 2 {
		t.Fatalf("RecentChannels(limit=2) returned %d rows", len(visits))
	}
	if visits[0].Login != "newest" || visits[1].Login != "middle" {
		t.Errorf("order = [%s %s], want [newest middle]", visits[0].Login, visits[1].Login)
	}
}

func TestMentionsRoundTrip(t *testing.T) {
	dbx := testDB(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	first := Mention{Channel: "somechannel", Sender: "alice", Message: "hey @me", CreatedAt: base}
	second := Mention{Channel: "somechannel", Sender: "bob", Message: "@me ping", CreatedAt: base.Add(time.Minute)}
	for _, m := range []Mention{first, second} {
		if err := InsertMention(ctx, dbx, m); err != nil {
			t.Fatalf("InsertMention() error = %v", err)
		}
	}

	got, err := RecentMentions(ctx, dbx, 10)
	if err != nil {
		t.Fatalf("RecentMentions() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentMentions() returned %d rows, want 2", len(got))
	}
	// Newest first.
	if got[0].Sender != "bob" || got[1].Sender != "alice" {
		t.Errorf("order = [%s %s], want [bob alice]", got[0].Sender, got[1].Sender)
	}
	if got[0].ID == "" {
		t.Error("InsertMention() did not assign an id")
	}
	if !got[1].CreatedAt.Equal(base) {
		t.Errorf("created_at = %v, want %v", got[1].CreatedAt, base)
	}
}

func TestTimestampScanRoundTrip(t *testing.T) {
	dbx := testDB(t)
	ctx := context.Background()

	in := time.Date(2026, 3, 15, 9, 30, 45, 123456789, time.UTC)
	_, err := dbx.ExecContext(ctx,
		`INSERT INTO channels(login, last_joined, join_count) VALUES('somechannel',?,1)`,
		formatTime(in))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	// The driver converts TIMESTAMP columns to time.Time on read, so rows
	// written as text must scan back without a manual parse step.
	var out time.Time
	err = dbx.QueryRowContext(ctx,
		`SELECT last_joined FROM channels WHERE login='somechannel'`).Scan(&out)
	if err != nil {
		t.Fatalf("scan last_joined: %v", err)
	}
	// Sub-second precision is dropped by the storage layout.
	if want := in.Truncate(time.Second); !out.Equal(want) {
		t.Errorf("round trip = %v, want %v", out, want)
	}
}
