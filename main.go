// Command twt is a Twitch chat client for the terminal. It:
//   - Loads the TOML configuration and initializes structured logging to a
//     file (stdout belongs to the TUI).
//   - Opens the SQLite database and runs idempotent migrations.
//   - Resolves credentials: config token, encrypted token store, or the
//     device-code login flow when --login is given.
//   - Starts background work: the reconnecting IRC bridge, the filter file
//     watcher, live-status polling, mention retention, and the OAuth token
//     refresher.
//   - Runs the bubbletea program until the user quits.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/twt/chat"
	"github.com/onnwee/twt/config"
	"github.com/onnwee/twt/db"
	"github.com/onnwee/twt/filters"
	"github.com/onnwee/twt/oauth"
	"github.com/onnwee/twt/telemetry"
	"github.com/onnwee/twt/twitchapi"
	"github.com/onnwee/twt/ui"
)

// version is stamped by the build via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, config.ErrGenerated) || errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "twt:", err)
		os.Exit(1)
	}
}

type flags struct {
	configPath string
	channel    string
	username   string
	firstState string
	login      bool
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:     "twt",
		Short:   "Twitch chat in the terminal",
		Version: version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringVar(&f.configPath, "config", "", "path to config.toml (default: ~/.config/twt/config.toml)")
	cmd.Flags().StringVarP(&f.channel, "channel", "c", "", "channel to join, overriding the config")
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "login to chat as, overriding the config")
	cmd.Flags().StringVar(&f.firstState, "first-state", "", "startup window: dashboard, normal or help")
	cmd.Flags().BoolVar(&f.login, "login", false, "authenticate via the device-code flow and store the token")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "twt", version)
		},
	})
	return cmd
}

func run(ctx context.Context, f flags) error {
	if err := initLogging(); err != nil {
		return err
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		if errors.Is(err, config.ErrGenerated) {
			// First run: tell the user where the template landed.
			fmt.Fprintln(os.Stdout, err)
		}
		return err
	}
	if f.channel != "" {
		cfg.Twitch.Channel = f.channel
	}
	if f.username != "" {
		cfg.Twitch.Username = f.username
	}
	if f.firstState != "" {
		cfg.Terminal.FirstState = f.firstState
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dbPath, err := config.DBPath()
	if err != nil {
		return err
	}
	database, err := db.Connect(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()
	if err := db.Migrate(ctx, database); err != nil {
		return fmt.Errorf("migrate db: %w", err)
	}

	telemetry.Init()

	store, err := db.NewTokenStore(database)
	if err != nil {
		return err
	}

	// Credential resolution order: explicit config token, --login flow,
	// then whatever the encrypted store holds. No token means anonymous
	// read-only chat.
	ircToken := cfg.IRCToken()
	if f.login {
		access, err := deviceLogin(ctx, cfg, store)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		ircToken = "oauth:" + access
	}
	if ircToken == "" {
		tok, err := store.Get(ctx, db.ProviderTwitch)
		if err != nil {
			return fmt.Errorf("read token store: %w", err)
		}
		if tok.AccessToken != "" {
			ircToken = "oauth:" + tok.AccessToken
		}
	}

	var ts *twitchapi.TokenSource
	var helix *twitchapi.HelixClient
	if ircToken != "" {
		ts = &twitchapi.TokenSource{ClientID: cfg.ClientID()}
		ts.SetToken(strings.TrimPrefix(ircToken, "oauth:"), time.Time{})
		ts.RefreshFunc = func(rctx context.Context) (string, time.Time, error) {
			tok, err := store.Get(rctx, db.ProviderTwitch)
			if err != nil {
				return "", time.Time{}, err
			}
			if tok.RefreshToken == "" {
				return "", time.Time{}, errors.New("no refresh token stored, run with --login")
			}
			res, err := twitchapi.RefreshToken(rctx, cfg.ClientID(), tok.RefreshToken)
			if err != nil {
				return "", time.Time{}, err
			}
			expiry := twitchapi.ComputeExpiry(res.ExpiresIn)
			if err := store.Upsert(rctx, db.ProviderTwitch, db.Token{
				AccessToken:  res.AccessToken,
				RefreshToken: res.RefreshToken,
				Expiry:       expiry,
				Scope:        strings.Join(res.Scope, " "),
			}); err != nil {
				return "", time.Time{}, err
			}
			return res.AccessToken, expiry, nil
		}
		helix = &twitchapi.HelixClient{TokenSource: ts, ClientID: cfg.ClientID()}

		// Learn our login from the token when the config leaves it blank,
		// so --login alone is enough to chat.
		if cfg.Twitch.Username == "" {
			vctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if res, err := ts.Validate(vctx); err == nil {
				cfg.Twitch.Username = res.Login
			} else {
				slog.Warn("token validation failed, staying anonymous", slog.Any("err", err))
			}
			cancel()
		}
	}

	addr, useTLS := cfg.IRCAddress()
	var channels []string
	if cfg.Twitch.Channel != "" {
		channels = append(channels, config.NormalizeChannel(cfg.Twitch.Channel))
	}
	client := chat.New(chat.Config{
		Username: cfg.Twitch.Username,
		Token:    ircToken,
		Address:  addr,
		TLS:      useTLS,
		Channels: channels,
	})

	filtersPath, err := config.FiltersPath()
	if err != nil {
		return err
	}
	fstore, err := filters.NewStore(filtersPath, cfg.Filters.Enabled, cfg.Filters.Reversed)
	if err != nil {
		return fmt.Errorf("load filters: %w", err)
	}

	model := ui.New(ui.Options{
		Config:   cfg,
		Bridge:   client,
		Filters:  fstore,
		DB:       database,
		Followed: followedFetcher(helix),
		Version:  version,
	})
	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		if err := client.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return fstore.Watch(gctx)
	})
	g.Go(func() error {
		db.StartRetentionJob(gctx, database, db.LoadRetentionPolicy(cfg.Storage.RetentionDays))
		return nil
	})
	if helix != nil {
		g.Go(func() error {
			chat.StartLiveWatcher(gctx, helix, chat.LivePollInterval(), client.Channels, func(s chat.LiveStatus) {
				prog.Send(ui.LiveStatusMsg(s))
			})
			return nil
		})
	}
	if metricsAddr := os.Getenv("METRICS_ADDR"); metricsAddr != "" {
		g.Go(func() error {
			return telemetry.StartServer(gctx, metricsAddr)
		})
	}

	oauth.StartRefresher(gctx, store, db.ProviderTwitch, 30*time.Minute, 2*time.Hour,
		func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
			res, err := twitchapi.RefreshToken(rctx, cfg.ClientID(), refreshToken)
			if err != nil {
				return "", "", time.Time{}, "", err
			}
			return res.AccessToken, res.RefreshToken, twitchapi.ComputeExpiry(res.ExpiresIn), strings.Join(res.Scope, " "), nil
		},
		func(access string, expiry time.Time) {
			client.UpdateToken("oauth:" + access)
			if ts != nil {
				ts.SetToken(access, expiry)
			}
		})

	// A fatal background error (bad credentials, metrics port taken) must
	// tear the TUI down rather than leave it running blind.
	go func() {
		<-gctx.Done()
		prog.Quit()
	}()

	_, uiErr := prog.Run()
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if uiErr != nil && !errors.Is(uiErr, context.Canceled) && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return uiErr
	}
	return nil
}

// initLogging configures slog with level and format from the environment.
// Logs go to LOG_FILE (default twt.log in the config dir); writing to
// stdout would corrupt the terminal UI.
func initLogging() error {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	path := os.Getenv("LOG_FILE")
	if path == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		path = filepath.Join(dir, "twt.log")
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	var handler slog.Handler
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("file", path))
	return nil
}

// deviceLogin walks the device-code flow on stdout (the TUI has not
// started yet) and persists the resulting token to the encrypted store.
func deviceLogin(ctx context.Context, cfg *config.Config, store *db.TokenStore) (string, error) {
	da, err := twitchapi.StartDeviceAuth(ctx, cfg.ClientID(), config.DefaultScopes)
	if err != nil {
		return "", err
	}
	fmt.Printf("Open %s and enter the code: %s\n", da.VerificationURI, da.UserCode)
	fmt.Println("Waiting for approval...")

	tok, err := twitchapi.PollDeviceToken(ctx, cfg.ClientID(), da)
	if err != nil {
		return "", err
	}
	if err := store.Upsert(ctx, db.ProviderTwitch, db.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		Scope:        config.DefaultScopes,
	}); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	slog.Info("device login complete", slog.String("token_tail", maskToken(tok.AccessToken)))
	fmt.Println("Logged in. Token stored.")
	return tok.AccessToken, nil
}

// maskToken keeps only the last few characters for log lines.
func maskToken(tok string) string {
	if len(tok) <= 6 {
		return "***"
	}
	return "***" + tok[len(tok)-6:]
}

// followedFetcher builds the dashboard's followed-channels loader: the
// follow list joined against live stream status, in follow order. Nil
// when no credentials are available.
func followedFetcher(helix *twitchapi.HelixClient) func(context.Context) ([]ui.FollowedEntry, error) {
	if helix == nil {
		return nil
	}
	return func(ctx context.Context) ([]ui.FollowedEntry, error) {
		userID := helix.TokenSource.UserID()
		if userID == "" {
			res, err := helix.TokenSource.Validate(ctx)
			if err != nil {
				return nil, fmt.Errorf("resolve user id: %w", err)
			}
			userID = res.UserID
		}
		follows, err := helix.GetFollowedChannels(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(follows) == 0 {
			return nil, nil
		}
		logins := make([]string, 0, len(follows))
		for _, fc := range follows {
			logins = append(logins, fc.BroadcasterLogin)
		}
		live := make(map[string]bool)
		for start := 0; start < len(logins); start += 100 {
			end := min(start+100, len(logins))
			streams, err := helix.GetStreams(ctx, logins[start:end]...)
			if err != nil {
				return nil, err
			}
			for _, s := range streams {
				live[s.UserLogin] = true
			}
		}
		entries := make([]ui.FollowedEntry, 0, len(logins))
		for _, l := range logins {
			entries = append(entries, ui.FollowedEntry{Login: l, Live: live[l]})
		}
		return entries, nil
	}
}
