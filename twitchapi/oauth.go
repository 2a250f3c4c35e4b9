package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Endpoint is Twitch's OAuth2 endpoint set, including the device
// authorization URL used for logging in without a redirect server.
var Endpoint = oauth2.Endpoint{
	AuthURL:       "https://id.twitch.tv/oauth2/authorize",
	TokenURL:      "https://id.twitch.tv/oauth2/token",
	DeviceAuthURL: "https://id.twitch.tv/oauth2/device",
}

// RefreshResult represents the response from a refresh_token grant.
type RefreshResult struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	Scope        []string `json:"scope"`
	ExpiresIn    int      `json:"expires_in"`
}

// DeviceConfig builds the oauth2 config for Twitch's device-code grant.
// Public client: no secret is involved.
func DeviceConfig(clientID, scopes string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: clientID,
		Endpoint: Endpoint,
		Scopes:   strings.Fields(strings.ReplaceAll(scopes, ",", " ")),
	}
}

// StartDeviceAuth requests a device and user code. The caller shows
// VerificationURI and UserCode to the user, then polls with PollDeviceToken.
func StartDeviceAuth(ctx context.Context, clientID, scopes string) (*oauth2.DeviceAuthResponse, error) {
	if clientID == "" {
		return nil, errors.New("missing clientID for device auth")
	}
	cfg := DeviceConfig(clientID, scopes)
	// Twitch's device endpoint reads "scopes" where RFC 8628 says "scope".
	resp, err := cfg.DeviceAuth(ctx, oauth2.SetAuthURLParam("scopes", strings.Join(cfg.Scopes, " ")))
	if err != nil {
		return nil, fmt.Errorf("start device auth: %w", err)
	}
	return resp, nil
}

// PollDeviceToken blocks until the user approves the device code, the code
// expires, or ctx is cancelled.
func PollDeviceToken(ctx context.Context, clientID string, da *oauth2.DeviceAuthResponse) (*oauth2.Token, error) {
	if clientID == "" || da == nil {
		return nil, errors.New("missing clientID or device auth response")
	}
	cfg := DeviceConfig(clientID, "")
	tok, err := cfg.DeviceAccessToken(ctx, da)
	if err != nil {
		return nil, fmt.Errorf("device token poll: %w", err)
	}
	return tok, nil
}

// ComputeExpiry returns absolute expiry time from seconds, defaulting to +60m when unknown.
func ComputeExpiry(seconds int) time.Time {
	if seconds <= 0 {
		return time.Now().Add(60 * time.Minute)
	}
	return time.Now().Add(time.Duration(seconds) * time.Second)
}

// RefreshToken exchanges a refresh token for a new access token using the
// public-client refresh grant (client id only, no secret).
func RefreshToken(ctx context.Context, clientID, refreshToken string) (*RefreshResult, error) {
	if clientID == "" || refreshToken == "" {
		return nil, errors.New("missing clientID/refreshToken")
	}
	form := url.Values{}
	form.Set("client_id", clientID)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
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
		return nil, fmt.Errorf("twitch refresh failed: %s: %s", resp.Status, string(b))
	}
	var res RefreshResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	return &res, nil
}
