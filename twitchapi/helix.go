// Package twitchapi talks to the Twitch identity and Helix APIs: token
// validation and refresh, device-code login, and the read endpoints the
// client needs (users, live streams, followed channels).
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/onnwee/twt/backoff"
	"github.com/onnwee/twt/telemetry"
)

// helixMaxRetries bounds attempts per call: transient failures (429, 5xx,
// network) back off and retry; a 401 forces one token refresh.
const helixMaxRetries = 4

// helixPageSize is the maximum Helix page size.
const helixPageSize = 100

// User is one row from GET /helix/users.
type User struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// Stream is one row from GET /helix/streams. Only live streams appear.
type Stream struct {
	UserID      string    `json:"user_id"`
	UserLogin   string    `json:"user_login"`
	UserName    string    `json:"user_name"`
	GameName    string    `json:"game_name"`
	Title       string    `json:"title"`
	ViewerCount int       `json:"viewer_count"`
	StartedAt   time.Time `json:"started_at"`
}

// FollowedChannel is one row from GET /helix/channels/followed.
type FollowedChannel struct {
	BroadcasterID    string `json:"broadcaster_id"`
	BroadcasterLogin string `json:"broadcaster_login"`
	BroadcasterName  string `json:"broadcaster_name"`
}

// HelixClient issues authenticated Helix requests with bounded retries.
type HelixClient struct {
	TokenSource *TokenSource
	ClientID    string
	HTTPClient  *http.Client
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

// GetUsers resolves logins to user rows. At most helixPageSize logins per call.
func (hc *HelixClient) GetUsers(ctx context.Context, logins ...string) ([]User, error) {
	if len(logins) == 0 {
		return nil, fmt.Errorf("no logins given")
	}
	q := url.Values{}
	for _, l := range logins {
		q.Add("login", l)
	}
	var body struct {
		Data []User `json:"data"`
	}
	if err := hc.get(ctx, "/helix/users", q, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// GetStreams returns the live streams among the given logins. Channels
// that are offline are simply absent from the result.
func (hc *HelixClient) GetStreams(ctx context.Context, logins ...string) ([]Stream, error) {
	if len(logins) == 0 {
		return nil, fmt.Errorf("no logins given")
	}
	if len(logins) > helixPageSize {
		logins = logins[:helixPageSize]
	}
	q := url.Values{}
	for _, l := range logins {
		q.Add("user_login", l)
	}
	q.Set("first", fmt.Sprintf("%d", helixPageSize))
	var body struct {
		Data []Stream `json:"data"`
	}
	if err := hc.get(ctx, "/helix/streams", q, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// GetFollowedChannels lists every channel the user follows, walking the
// pagination cursor until exhausted.
func (hc *HelixClient) GetFollowedChannels(ctx context.Context, userID string) ([]FollowedChannel, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID empty")
	}
	var out []FollowedChannel
	after := ""
	for {
		q := url.Values{}
		q.Set("user_id", userID)
		q.Set("first", fmt.Sprintf("%d", helixPageSize))
		if after != "" {
			q.Set("after", after)
		}
		var body struct {
			Data       []FollowedChannel `json:"data"`
			Pagination struct {
				Cursor string `json:"cursor"`
			} `json:"pagination"`
		}
		if err := hc.get(ctx, "/helix/channels/followed", q, &body); err != nil {
			return nil, err
		}
		out = append(out, body.Data...)
		if body.Pagination.Cursor == "" || len(body.Data) == 0 {
			return out, nil
		}
		after = body.Pagination.Cursor
	}
}

// get performs an authenticated GET against api.twitch.tv and decodes the
// JSON response into out. 429 and 5xx responses retry with jittered
// backoff; a 401 invalidates the cached token so the next attempt uses a
// fresh one.
func (hc *HelixClient) get(ctx context.Context, path string, q url.Values, out any) error {
	policy := backoff.Policy{Base: 250 * time.Millisecond, Cap: 4 * time.Second}
	refreshed := false

	var lastErr error
	for attempt := 0; attempt < helixMaxRetries; attempt++ {
		if attempt > 0 {
			if err := policy.Sleep(ctx, attempt-1); err != nil {
				return err
			}
		}

		status, err := hc.doOnce(ctx, path, q, out)
		if err == nil {
			return nil
		}
		lastErr = err
		telemetry.IncHelixErrors()

		switch {
		case status == http.StatusUnauthorized && !refreshed:
			// One forced refresh per call; a second 401 is fatal.
			refreshed = true
			hc.TokenSource.Invalidate()
			slog.Debug("helix 401, forcing token refresh", slog.String("path", path))
		case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
			slog.Debug("helix transient failure, retrying",
				slog.String("path", path), slog.Int("status", status), slog.Int("attempt", attempt))
		case status == 0 && backoff.IsRetryable(err):
			// Network-level failure with no HTTP status.
			slog.Debug("helix request error, retrying", slog.String("path", path), slog.Any("err", err))
		default:
			return err
		}
	}
	return fmt.Errorf("helix %s: giving up after %d attempts: %w", path, helixMaxRetries, lastErr)
}

func (hc *HelixClient) doOnce(ctx context.Context, path string, q url.Values, out any) (int, error) {
	tok, err := hc.TokenSource.Get(ctx)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.twitch.tv"+path, nil)
	if err != nil {
		return 0, err
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)

	telemetry.IncHelixRequests()
	var resp *http.Response
	telemetry.TimeFunc(telemetry.HelixRequestDuration, func() {
		resp, err = hc.http().Do(req)
	})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("helix %s: %s: %s", path, resp.Status, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode helix response: %w", err)
	}
	return resp.StatusCode, nil
}
