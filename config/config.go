// Package config loads the TOML configuration file and environment
// overrides into a typed Config used across the client. It applies
// sensible defaults so the binary can run with a minimal file, and
// generates a commented template on first run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultClientID is the public (non-confidential) application client id
// used for the device-code flow when the user does not supply their own.
const DefaultClientID = "twjpqcd0b3k5qyg02843wz95mvrhs2"

// DefaultScopes are requested during device-code login.
const DefaultScopes = "chat:read chat:edit user:read:follows"

// DefaultServer is the production IRC endpoint. A bare host implies TLS
// on port 6697; an explicit non-6697 port implies plaintext.
const DefaultServer = "irc.chat.twitch.tv"

// ErrGenerated is returned by Load when no config file existed and a
// template was written for the user to fill in.
var ErrGenerated = errors.New("config file generated")

// channelRe matches valid Twitch channel logins.
var channelRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,25}$`)

type Config struct {
	Twitch   Twitch   `toml:"twitch"`
	Terminal Terminal `toml:"terminal"`
	Storage  Storage  `toml:"storage"`
	Filters  Filters  `toml:"filters"`
	Frontend Frontend `toml:"frontend"`
}

type Twitch struct {
	// Username is the login of the account that chats.
	Username string `toml:"username"`
	// Channel is the default channel offered on the dashboard.
	Channel string `toml:"channel"`
	// Server is host or host:port. Port 6697 (or none) means TLS.
	Server string `toml:"server"`
	// Token is the OAuth token, with or without the "oauth:" prefix.
	// Leave empty to use the encrypted token store or --login.
	Token string `toml:"token"`
	// ClientID overrides DefaultClientID.
	ClientID string `toml:"client_id"`
}

type Terminal struct {
	// TickDelay is the UI tick in milliseconds.
	TickDelay int `toml:"tick_delay"`
	// MaximumMessages caps the per-channel message ring.
	MaximumMessages int `toml:"maximum_messages"`
	// FirstState is the startup window: dashboard, normal or help.
	FirstState string `toml:"first_state"`
}

type Storage struct {
	// Channels persists recently joined channels.
	Channels bool `toml:"channels"`
	// Mentions persists messages that mention twitch.username.
	Mentions bool `toml:"mentions"`
	// RetentionDays prunes stored mentions older than this. 0 keeps forever.
	RetentionDays int `toml:"retention_days"`
}

type Filters struct {
	Enabled  bool `toml:"enabled"`
	Reversed bool `toml:"reversed"`
}

type Frontend struct {
	DateShown             bool   `toml:"date_shown"`
	DateFormat            string `toml:"date_format"`
	MaximumUsernameLength int    `toml:"maximum_username_length"`
	UsernameAlignment     string `toml:"username_alignment"`
	Palette               string `toml:"palette"`
	TitleShown            bool   `toml:"title_shown"`
	Padding               bool   `toml:"padding"`
	Badges                bool   `toml:"badges"`
}

// Default returns the configuration used when keys are absent from the file.
func Default() *Config {
	return &Config{
		Twitch: Twitch{
			Server: DefaultServer,
		},
		Terminal: Terminal{
			TickDelay:       30,
			MaximumMessages: 500,
			FirstState:      "dashboard",
		},
		Storage: Storage{
			Channels:      true,
			RetentionDays: 90,
		},
		Frontend: Frontend{
			DateShown:             true,
			DateFormat:            "15:04:05",
			MaximumUsernameLength: 26,
			UsernameAlignment:     "right",
			Palette:               "pastel",
			TitleShown:            true,
			Padding:               true,
		},
	}
}

// ConfigDir returns the directory holding config.toml, filters.txt and the
// default log file: $XDG_CONFIG_HOME/twt or ~/.config/twt.
func ConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "twt"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "twt"), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DBPath returns the SQLite database location: TWT_DB_PATH if set, else
// $XDG_DATA_HOME/twt/twt.db or ~/.local/share/twt/twt.db.
func DBPath() (string, error) {
	if p := os.Getenv("TWT_DB_PATH"); p != "" {
		return p, nil
	}
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "twt", "twt.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "twt", "twt.db"), nil
}

// FiltersPath returns the message filter file location.
func FiltersPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "filters.txt"), nil
}

// Load reads the config file at path (or DefaultPath when empty), merges
// environment overrides, and validates nothing; call Validate once flag
// overrides have been applied. When the file does not exist, a commented
// template is written and an error wrapping ErrGenerated is returned.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := writeTemplate(path); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("configuration was generated at %s, fill it in and run again: %w", path, ErrGenerated)
	}

	cfg := Default()
	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv merges environment overrides. Env wins over the file; CLI flags
// (applied by the caller) win over env.
func (c *Config) applyEnv() {
	if v := os.Getenv("TWITCH_USERNAME"); v != "" {
		c.Twitch.Username = v
	}
	if v := os.Getenv("TWITCH_CHANNEL"); v != "" {
		c.Twitch.Channel = v
	}
	if v := os.Getenv("TWITCH_OAUTH_TOKEN"); v != "" {
		c.Twitch.Token = v
	}
	if v := os.Getenv("TWITCH_CLIENT_ID"); v != "" {
		c.Twitch.ClientID = v
	}
	if v := os.Getenv("TWITCH_SERVER"); v != "" {
		c.Twitch.Server = v
	}
}

// Validate checks everything that would otherwise surface as a confusing
// runtime failure. Token absence is allowed (anonymous mode or token store).
func (c *Config) Validate() error {
	if c.Twitch.Channel != "" && !ValidChannel(c.Twitch.Channel) {
		return fmt.Errorf("twitch.channel %q: channel names match ^[a-zA-Z0-9_]{3,25}$", c.Twitch.Channel)
	}
	if c.Twitch.Username != "" && !ValidChannel(c.Twitch.Username) {
		return fmt.Errorf("twitch.username %q: logins match ^[a-zA-Z0-9_]{3,25}$", c.Twitch.Username)
	}
	switch c.Terminal.FirstState {
	case "dashboard", "normal", "help":
	default:
		return fmt.Errorf("terminal.first_state %q: must be dashboard, normal or help", c.Terminal.FirstState)
	}
	if c.Terminal.MaximumMessages < 50 {
		return fmt.Errorf("terminal.maximum_messages %d: must be at least 50", c.Terminal.MaximumMessages)
	}
	if c.Terminal.TickDelay <= 0 {
		return fmt.Errorf("terminal.tick_delay %d: must be positive", c.Terminal.TickDelay)
	}
	switch c.Frontend.UsernameAlignment {
	case "left", "center", "right":
	default:
		return fmt.Errorf("frontend.username_alignment %q: must be left, center or right", c.Frontend.UsernameAlignment)
	}
	switch c.Frontend.Palette {
	case "pastel", "vibrant", "warm", "cool":
	default:
		return fmt.Errorf("frontend.palette %q: must be pastel, vibrant, warm or cool", c.Frontend.Palette)
	}
	if c.Storage.RetentionDays < 0 {
		return fmt.Errorf("storage.retention_days %d: must be >= 0", c.Storage.RetentionDays)
	}
	return nil
}

// ValidChannel reports whether name (case-insensitive) is a well-formed
// channel login.
func ValidChannel(name string) bool {
	return channelRe.MatchString(strings.ToLower(strings.TrimPrefix(name, "#")))
}

// NormalizeChannel lowercases and strips a leading '#'.
func NormalizeChannel(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "#"))
}

// IRCToken returns the token with the oauth: prefix the IRC server expects,
// or empty when no token is configured.
func (c *Config) IRCToken() string {
	t := strings.TrimSpace(c.Twitch.Token)
	if t == "" {
		return ""
	}
	if strings.HasPrefix(t, "oauth:") {
		return t
	}
	return "oauth:" + t
}

// BareToken returns the token without the oauth: prefix for Helix calls.
func (c *Config) BareToken() string {
	return strings.TrimPrefix(strings.TrimSpace(c.Twitch.Token), "oauth:")
}

// ClientID returns the configured client id or the application default.
func (c *Config) ClientID() string {
	if c.Twitch.ClientID != "" {
		return c.Twitch.ClientID
	}
	return DefaultClientID
}

// Anonymous reports whether the client should connect read-only.
func (c *Config) Anonymous() bool {
	return c.Twitch.Username == "" || strings.TrimSpace(c.Twitch.Token) == ""
}

// TickInterval converts terminal.tick_delay to a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Terminal.TickDelay) * time.Millisecond
}

// IRCAddress splits twitch.server into a dial address and a TLS decision.
// A missing port means the standard TLS port 6697; any other explicit port
// is treated as plaintext so local test servers work.
func (c *Config) IRCAddress() (addr string, useTLS bool) {
	server := c.Twitch.Server
	if server == "" {
		server = DefaultServer
	}
	host, port, ok := strings.Cut(server, ":")
	if !ok || port == "" {
		return host + ":6697", true
	}
	return host + ":" + port, port == "6697"
}

func writeTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(template), 0o600); err != nil {
		return fmt.Errorf("write config template: %w", err)
	}
	return nil
}

const template = `[twitch]
# The login of the account you chat as.
username = ""
# The default channel offered on the dashboard.
channel = ""
# IRC endpoint. Leave as-is unless you are pointing at a test server.
server = "irc.chat.twitch.tv"
# OAuth token ("oauth:" prefix optional). Prefer leaving this empty and
# running 'twt --login' so the token lands in the encrypted store.
token = ""
# Custom application client id. Empty uses the built-in public client.
client_id = ""

[terminal]
# UI tick in milliseconds.
tick_delay = 30
# Per-channel scrollback capacity.
maximum_messages = 500
# Window shown at startup: "dashboard", "normal" or "help".
first_state = "dashboard"

[storage]
# Remember recently joined channels.
channels = true
# Persist messages that mention your username.
mentions = false
# Days to keep stored mentions. 0 keeps them forever.
retention_days = 90

[filters]
# Drop messages matching the regexes in filters.txt.
enabled = false
# Invert the filters: only matching messages are kept.
reversed = false

[frontend]
# Show a timestamp column, formatted with a Go time layout.
date_shown = true
date_format = "15:04:05"
# Username column width and alignment: "left", "center" or "right".
maximum_username_length = 26
username_alignment = "right"
# Fallback username color palette: "pastel", "vibrant", "warm" or "cool".
palette = "pastel"
# Show the channel title bar.
title_shown = true
# Pad the chat frame by one column.
padding = true
# Render badge glyphs before usernames.
badges = false
`
