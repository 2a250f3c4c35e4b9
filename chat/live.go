package chat

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/onnwee/twt/telemetry"
	"github.com/onnwee/twt/twitchapi"
)

const defaultLivePollInterval = 30 * time.Second

// LiveStatus reports a channel going live or offline. Title, GameName,
// Viewers and StartedAt are only meaningful while Live.
type LiveStatus struct {
	Channel   string
	Live      bool
	Title     string
	GameName  string
	Viewers   int
	StartedAt time.Time
}

// StreamLister is the slice of the Helix client the watcher needs.
type StreamLister interface {
	GetStreams(ctx context.Context, logins ...string) ([]twitchapi.Stream, error)
}

// LivePollInterval reads LIVE_POLL_INTERVAL, defaulting to 30s.
func LivePollInterval() time.Duration {
	if v := os.Getenv("LIVE_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		slog.Warn("invalid LIVE_POLL_INTERVAL, using default", slog.String("value", v))
	}
	return defaultLivePollInterval
}

// StartLiveWatcher polls stream status for the channels returned by
// channels() and calls notify on every transition. The first observation
// of a channel always notifies so the UI can seed its live set. Blocks
// until ctx is cancelled; poll failures are logged and retried on the
// next tick.
func StartLiveWatcher(ctx context.Context, helix StreamLister, interval time.Duration, channels func() []string, notify func(LiveStatus)) {
	if interval <= 0 {
		interval = defaultLivePollInterval
	}
	known := make(map[string]bool)

	poll := func() {
		logins := channels()
		if len(logins) == 0 {
			return
		}
		pollCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		streams, err := helix.GetStreams(pollCtx, logins...)
		cancel()
		if err != nil {
			slog.Warn("live status poll failed",
				slog.String("component", "live_watcher"), slog.Any("err", err))
			return
		}

		byLogin := make(map[string]twitchapi.Stream, len(streams))
		for _, s := range streams {
			byLogin[s.UserLogin] = s
		}

		liveCount := 0
		for _, login := range logins {
			s, live := byLogin[login]
			if live {
				liveCount++
			}
			was, seen := known[login]
			if seen && was == live {
				continue
			}
			known[login] = live
			status := LiveStatus{Channel: login, Live: live}
			if live {
				status.Title = s.Title
				status.GameName = s.GameName
				status.Viewers = s.ViewerCount
				status.StartedAt = s.StartedAt
			}
			notify(status)
		}
		telemetry.SetLiveChannels(liveCount)
	}

	// Poll once immediately so the dashboard has data on startup.
	poll()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}
