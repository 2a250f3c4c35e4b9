package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/onnwee/twt/crypto"
)

// ProviderTwitch is the provider key for the chat account's token row.
const ProviderTwitch = "twitch"

// Token is a stored OAuth token row, decrypted.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Scope        string
}

// Zero reports whether no token is stored.
func (t Token) Zero() bool { return t.AccessToken == "" && t.RefreshToken == "" }

// TokenStore reads and writes oauth_tokens rows, transparently encrypting
// them when an encryptor is configured. encryption_version distinguishes
// plaintext (0) from encrypted (1) rows so both read back correctly.
type TokenStore struct {
	DB  *sql.DB
	Enc crypto.Encryptor
}

// NewTokenStore builds a store using ENCRYPTION_KEY from the environment.
// Without a key, tokens are stored in plaintext and a warning is logged.
func NewTokenStore(dbx *sql.DB) (*TokenStore, error) {
	key := os.Getenv("ENCRYPTION_KEY")
	if key == "" {
		slog.Warn("ENCRYPTION_KEY not set, OAuth tokens will be stored in plaintext",
			slog.String("component", "tokenstore"))
		return &TokenStore{DB: dbx}, nil
	}
	enc, err := crypto.NewAESEncryptor(key)
	if err != nil {
		return nil, fmt.Errorf("initialize token encryption: %w", err)
	}
	slog.Info("OAuth token encryption enabled (AES-256-GCM)",
		slog.String("component", "tokenstore"), slog.String("key_id", enc.KeyID()))
	return &TokenStore{DB: dbx, Enc: enc}, nil
}

// Upsert stores or updates the token row for a provider.
func (s *TokenStore) Upsert(ctx context.Context, provider string, tok Token) error {
	encVersion := 0
	encKeyID := ""
	access := tok.AccessToken
	refresh := tok.RefreshToken

	if s.Enc != nil {
		encVersion = 1
		encKeyID = s.Enc.KeyID()

		var err error
		if access, err = crypto.EncryptString(s.Enc, access); err != nil {
			return fmt.Errorf("encrypt access token: %w", err)
		}
		if refresh, err = crypto.EncryptString(s.Enc, refresh); err != nil {
			return fmt.Errorf("encrypt refresh token: %w", err)
		}
	}

	q := `INSERT INTO oauth_tokens(provider, access_token, refresh_token, expires_at, scope, encryption_version, encryption_key_id, updated_at)
		  VALUES(?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
		  ON CONFLICT(provider) DO UPDATE SET
		    access_token=excluded.access_token,
		    refresh_token=excluded.refresh_token,
		    expires_at=excluded.expires_at,
		    scope=excluded.scope,
		    encryption_version=excluded.encryption_version,
		    encryption_key_id=excluded.encryption_key_id,
		    updated_at=CURRENT_TIMESTAMP`
	_, err := s.DB.ExecContext(ctx, q, provider, access, refresh, formatTime(tok.Expiry), tok.Scope, encVersion, encKeyID)
	return err
}

// Get retrieves and decrypts the token row for a provider. A missing row
// returns a zero Token and no error.
func (s *TokenStore) Get(ctx context.Context, provider string) (Token, error) {
	var (
		tok        Token
		expires    sql.NullTime
		encVersion int
		encKeyID   sql.NullString
	)
	row := s.DB.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, expires_at, scope, COALESCE(encryption_version, 0), encryption_key_id
		 FROM oauth_tokens WHERE provider = ?`, provider)
	err := row.Scan(&tok.AccessToken, &tok.RefreshToken, &expires, &tok.Scope, &encVersion, &encKeyID)
	if errors.Is(err, sql.ErrNoRows) {
		return Token{}, nil
	}
	if err != nil {
		return Token{}, err
	}

	if expires.Valid {
		tok.Expiry = expires.Time
	}

	if encVersion == 1 {
		if s.Enc == nil {
			return Token{}, fmt.Errorf("token row is encrypted but ENCRYPTION_KEY is not configured")
		}
		if tok.AccessToken, err = crypto.DecryptString(s.Enc, tok.AccessToken); err != nil {
			return Token{}, fmt.Errorf("decrypt access token: %w", err)
		}
		if tok.RefreshToken, err = crypto.DecryptString(s.Enc, tok.RefreshToken); err != nil {
			return Token{}, fmt.Errorf("decrypt refresh token: %w", err)
		}
	}

	return tok, nil
}
