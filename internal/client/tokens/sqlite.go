package tokens

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gofood/internal/client/migrations"
	"github.com/dmitrijs2005/gofood/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gofood/internal/common"
	"github.com/dmitrijs2005/gofood/internal/cryptox"
	"github.com/dmitrijs2005/gofood/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyKDFSalt      = "kdf_salt"
	nonceSize       = 12
)

// SQLiteStore keeps the pair in the local metadata table. With a non-nil key
// every token is sealed with AES-GCM before it touches the disk.
type SQLiteStore struct {
	db  *sql.DB
	key []byte
}

// NewSQLiteStore wraps an already migrated database. key may be nil for
// plaintext storage; otherwise it must be cryptox.KeySize bytes.
func NewSQLiteStore(db *sql.DB, key []byte) *SQLiteStore {
	return &SQLiteStore{db: db, key: key}
}

// RunMigrations applies the embedded schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// OpenSQLiteStore opens (or creates) the database at dsn, migrates it and,
// when passphrase is non-empty, derives the sealing key from it using a salt
// stored alongside the tokens.
func OpenSQLiteStore(ctx context.Context, dsn string, passphrase []byte) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open token db: %w", err)
	}
	// SQLite serialises writers anyway; one connection also keeps
	// ":memory:" databases alive.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate token db: %w", err)
	}

	if len(passphrase) == 0 {
		return NewSQLiteStore(db, nil), nil
	}

	key, err := deriveKey(ctx, db, passphrase)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLiteStore(db, key), nil
}

func deriveKey(ctx context.Context, db *sql.DB, passphrase []byte) ([]byte, error) {
	repo := metadata.NewSQLiteRepository(db)

	salt, err := repo.Get(ctx, keyKDFSalt)
	if err != nil {
		return nil, err
	}
	if salt == nil {
		salt = common.GenerateRandByteArray(cryptox.SaltSize)
		if err := repo.Set(ctx, keyKDFSalt, salt); err != nil {
			return nil, err
		}
	}
	return cryptox.DeriveKey(passphrase, salt), nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, keyAccessToken)
}

func (s *SQLiteStore) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, keyRefreshToken)
}

// SetTokens writes both tokens in one transaction.
func (s *SQLiteStore) SetTokens(ctx context.Context, access, refresh string) error {
	accessBlob, err := s.seal(access)
	if err != nil {
		return err
	}
	refreshBlob, err := s.seal(refresh)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyAccessToken, accessBlob); err != nil {
			return err
		}
		return repo.Set(ctx, keyRefreshToken, refreshBlob)
	})
}

// ClearAllTokens removes both tokens; the KDF salt is kept.
func (s *SQLiteStore) ClearAllTokens(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, keyAccessToken); err != nil {
			return err
		}
		return repo.Delete(ctx, keyRefreshToken)
	})
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, error) {
	blob, err := metadata.NewSQLiteRepository(s.db).Get(ctx, key)
	if err != nil {
		return "", err
	}
	if blob == nil {
		return "", nil
	}
	return s.open(blob)
}

func (s *SQLiteStore) seal(token string) ([]byte, error) {
	if s.key == nil {
		return []byte(token), nil
	}
	ct, nonce, err := cryptox.SealJSON(token, s.key)
	if err != nil {
		return nil, fmt.Errorf("seal token: %w", err)
	}
	return append(nonce, ct...), nil
}

func (s *SQLiteStore) open(blob []byte) (string, error) {
	if s.key == nil {
		return string(blob), nil
	}
	if len(blob) <= nonceSize {
		return "", common.ErrCorruptedTokenData
	}
	var token string
	if err := cryptox.OpenJSON(blob[nonceSize:], blob[:nonceSize], s.key, &token); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrCorruptedTokenData, err)
	}
	return token, nil
}
