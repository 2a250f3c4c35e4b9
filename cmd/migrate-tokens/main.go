// Command migrate-tokens upgrades stored OAuth tokens from plaintext to
// encrypted storage. Rows with encryption_version=0 are re-written as
// AES-256-GCM ciphertext (version=1) using ENCRYPTION_KEY.
//
// Usage:
//
//	migrate-tokens [--dry-run] [--from-config] [--config PATH]
//
// Flags:
//
//	--dry-run      report what would change without writing
//	--from-config  import a plaintext token from config.toml into the
//	               encrypted store first
//	--config       config file location for --from-config
//
// Environment:
//
//	TWT_DB_PATH     database location (default: the standard data dir)
//	ENCRYPTION_KEY  base64-encoded 32-byte key, e.g. openssl rand -base64 32
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/onnwee/twt/config"
	"github.com/onnwee/twt/crypto"
	"github.com/onnwee/twt/db"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report what would change without writing")
	fromConfig := flag.Bool("from-config", false, "import the plaintext config.toml token into the store")
	configPath := flag.String("config", "", "config file location for --from-config")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	key := os.Getenv("ENCRYPTION_KEY")
	if key == "" {
		slog.Error("ENCRYPTION_KEY is required for migration")
		os.Exit(1)
	}
	encryptor, err := crypto.NewAESEncryptor(key)
	if err != nil {
		slog.Error("failed to initialize encryptor", slog.Any("err", err))
		os.Exit(1)
	}

	path, err := config.DBPath()
	if err != nil {
		slog.Error("failed to resolve db path", slog.Any("err", err))
		os.Exit(1)
	}
	database, err := db.Connect(path)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close db", slog.Any("err", err))
		}
	}()

	ctx := context.Background()
	if err := db.Migrate(ctx, database); err != nil {
		slog.Error("failed to migrate schema", slog.Any("err", err))
		os.Exit(1)
	}

	if *fromConfig {
		if err := importFromConfig(ctx, database, encryptor, *configPath, *dryRun); err != nil {
			slog.Error("config import failed", slog.Any("err", err))
			os.Exit(1)
		}
	}

	if err := migrateTokens(ctx, database, encryptor, *dryRun); err != nil {
		slog.Error("migration failed", slog.Any("err", err))
		os.Exit(1)
	}

	slog.Info("migration completed")
}

// importFromConfig copies a plaintext token out of config.toml into the
// encrypted store. The config file itself is left untouched; the user
// removes the token line once satisfied.
func importFromConfig(ctx context.Context, database *sql.DB, enc crypto.Encryptor, path string, dryRun bool) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	token := cfg.BareToken()
	if token == "" {
		slog.Info("config has no token to import")
		return nil
	}
	if dryRun {
		slog.Info("would import config token (dry-run)")
		return nil
	}
	store := &db.TokenStore{DB: database, Enc: enc}
	if err := store.Upsert(ctx, db.ProviderTwitch, db.Token{AccessToken: token}); err != nil {
		return fmt.Errorf("store config token: %w", err)
	}
	slog.Info("imported config token into the encrypted store",
		slog.String("provider", db.ProviderTwitch))
	return nil
}

// migrateTokens encrypts every plaintext row in oauth_tokens.
func migrateTokens(ctx context.Context, database *sql.DB, enc crypto.Encryptor, dryRun bool) error {
	rows, err := database.QueryContext(ctx,
		`SELECT provider, access_token, refresh_token
		 FROM oauth_tokens WHERE COALESCE(encryption_version, 0) = 0
		 ORDER BY provider`)
	if err != nil {
		return fmt.Errorf("query plaintext tokens: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()

	type row struct {
		provider        string
		access, refresh sql.NullString
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.provider, &r.access, &r.refresh); err != nil {
			return fmt.Errorf("scan token row: %w", err)
		}
		pending = append(pending, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate token rows: %w", err)
	}

	if len(pending) == 0 {
		slog.Info("no plaintext tokens found")
		return nil
	}
	slog.Info("found plaintext tokens", slog.Int("count", len(pending)), slog.Bool("dry_run", dryRun))

	migrated := 0
	for _, r := range pending {
		if dryRun {
			slog.Info("would migrate token (dry-run)", slog.String("provider", r.provider))
			migrated++
			continue
		}
		if err := migrateRow(ctx, database, enc, r.provider, r.access.String, r.refresh.String); err != nil {
			return fmt.Errorf("migrate %s: %w", r.provider, err)
		}
		slog.Info("migrated token", slog.String("provider", r.provider))
		migrated++
	}

	slog.Info("migration summary",
		slog.Int("total", len(pending)), slog.Int("migrated", migrated), slog.Bool("dry_run", dryRun))
	return nil
}

func migrateRow(ctx context.Context, database *sql.DB, enc crypto.Encryptor, provider, access, refresh string) error {
	encAccess, err := crypto.EncryptString(enc, access)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	encRefresh, err := crypto.EncryptString(enc, refresh)
	if err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}

	res, err := database.ExecContext(ctx,
		`UPDATE oauth_tokens
		 SET access_token = ?, refresh_token = ?,
		     encryption_version = 1, encryption_key_id = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE provider = ? AND COALESCE(encryption_version, 0) = 0`,
		encAccess, encRefresh, enc.KeyID(), provider)
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("expected 1 row updated, got %d (row changed concurrently?)", n)
	}
	return nil
}
