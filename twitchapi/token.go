package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// expiryBuffer is how long before the real expiry a token is considered
// stale. Helix rejects tokens in their final seconds anyway.
const expiryBuffer = 60 * time.Second

// ValidateResult is the response of GET /oauth2/validate.
type ValidateResult struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	UserID    string   `json:"user_id"`
	Scopes    []string `json:"scopes"`
	ExpiresIn int      `json:"expires_in"`
}

// TokenSource caches a user OAuth token and its identity. The token is
// seeded from config or the encrypted store via SetToken and validated
// against id.twitch.tv, which also resolves our login and user id.
// When the cached token goes stale and a RefreshFunc is configured, Get
// transparently rotates it instead of failing.
type TokenSource struct {
	ClientID   string
	HTTPClient *http.Client

	// RefreshFunc exchanges the stored refresh token for a fresh access
	// token. Optional; without it a stale token is an error.
	RefreshFunc func(ctx context.Context) (access string, expiry time.Time, err error)

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	login     string
	userID    string
}

func (ts *TokenSource) http() *http.Client {
	if ts.HTTPClient != nil {
		return ts.HTTPClient
	}
	return http.DefaultClient
}

// SetToken seeds or replaces the cached token. A zero expiry means
// unknown; the next Get validates to learn the real lifetime.
func (ts *TokenSource) SetToken(tok string, expiry time.Time) {
	ts.mu.Lock()
	ts.token = tok
	ts.expiresAt = expiry
	ts.mu.Unlock()
}

// Login returns the account login learned from validation, if any.
func (ts *TokenSource) Login() string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.login
}

// UserID returns the account user id learned from validation, if any.
func (ts *TokenSource) UserID() string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.userID
}

// Get returns a valid access token, refreshing or validating as needed.
func (ts *TokenSource) Get(ctx context.Context) (string, error) {
	ts.mu.RLock()
	if ts.token != "" && !ts.expiresAt.IsZero() && time.Until(ts.expiresAt) > expiryBuffer {
		tok := ts.token
		ts.mu.RUnlock()
		return tok, nil
	}
	ts.mu.RUnlock()
	return ts.renew(ctx)
}

// Invalidate marks the cached token stale so the next Get revalidates.
// Helix calls it after a 401.
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	ts.expiresAt = time.Time{}
	ts.mu.Unlock()
}

func (ts *TokenSource) renew(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	// Someone else may have renewed while we waited for the lock.
	if ts.token != "" && !ts.expiresAt.IsZero() && time.Until(ts.expiresAt) > expiryBuffer {
		return ts.token, nil
	}

	// An unknown expiry is resolved by validating before giving up.
	if ts.token != "" && ts.expiresAt.IsZero() {
		res, err := ts.validateLocked(ctx)
		if err == nil {
			ts.applyValidation(res)
			if time.Until(ts.expiresAt) > expiryBuffer {
				return ts.token, nil
			}
		} else {
			slog.Debug("token validation failed", slog.Any("err", err))
		}
	}

	if ts.RefreshFunc == nil {
		if ts.token == "" {
			return "", errors.New("no twitch token configured")
		}
		return "", errors.New("twitch token expired and no refresh is configured")
	}

	access, expiry, err := ts.RefreshFunc(ctx)
	if err != nil {
		return "", fmt.Errorf("refresh twitch token: %w", err)
	}
	ts.token = access
	ts.expiresAt = expiry
	return ts.token, nil
}

// Validate calls GET https://id.twitch.tv/oauth2/validate with the cached
// token and records the resolved login, user id, and expiry.
func (ts *TokenSource) Validate(ctx context.Context) (*ValidateResult, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	res, err := ts.validateLocked(ctx)
	if err != nil {
		return nil, err
	}
	ts.applyValidation(res)
	return res, nil
}

func (ts *TokenSource) validateLocked(ctx context.Context) (*ValidateResult, error) {
	if ts.token == "" {
		return nil, errors.New("no twitch token configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://id.twitch.tv/oauth2/validate", nil)
	if err != nil {
		return nil, err
	}
	// The validate endpoint wants the legacy OAuth scheme, not Bearer.
	req.Header.Set("Authorization", "OAuth "+ts.token)
	resp, err := ts.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("twitch token validation failed: %s: %s", resp.Status, string(b))
	}
	var res ValidateResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (ts *TokenSource) applyValidation(res *ValidateResult) {
	ts.login = res.Login
	ts.userID = res.UserID
	ts.expiresAt = time.Now().Add(time.Duration(res.ExpiresIn) * time.Second)
}
