package config

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/zalando/go-keyring"
	_ "modernc.org/sqlite"
)

// The configuration lives as a single encrypted row. The sqlite file is the
// default; a postgres URL in the environment moves the row there so several
// machines can share one config.
const (
	configTableName  = "app_config"
	configRowID      = 1
	keyringService   = "noder"
	keyringConfigKey = "config-master-key"

	configStoreTimeout = 5 * time.Second
)

func DefaultConfigDBPath() string {
	dir, _ := AppDataDir()
	return filepath.Join(dir, "noder.db")
}

// LegacySettingsPath is the settings.json the pre-bridge desktop builds
// wrote next to the rest of the app data.
func LegacySettingsPath() string {
	dir, _ := AppDataDir()
	return filepath.Join(dir, "settings.json")
}

func loadConfigFromStore(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigDBPath()
	}

	store, err := newConfigStore(path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), configStoreTimeout)
	defer cancel()

	cfg, exists, err := store.load(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return cfg, nil
	}

	// Empty store. Pull settings forward from wherever an older install
	// left them: a local sqlite row when the store moved to postgres,
	// then plain settings.json. Defaults only when neither exists.
	if store.driver == "postgres" {
		sqlitePath := path
		if strings.TrimSpace(sqlitePath) == "" {
			sqlitePath = DefaultConfigDBPath()
		}
		if migratedCfg, migrated, err := migrateConfigFromSQLiteFile(ctx, store, sqlitePath); err != nil {
			return nil, err
		} else if migrated {
			return migratedCfg, nil
		}
	}

	if legacyCfg, migrated, err := migrateLegacySettings(ctx, store, LegacySettingsPath()); err != nil {
		return nil, err
	} else if migrated {
		return legacyCfg, nil
	}

	cfg = DefaultConfig()
	if err := store.save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func saveConfigToStore(path string, cfg *Config) error {
	if path == "" {
		path = DefaultConfigDBPath()
	}

	store, err := newConfigStore(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), configStoreTimeout)
	defer cancel()
	return store.save(ctx, cfg)
}

type configStore struct {
	driver string
	dsn    string
}

func newConfigStore(path string) (*configStore, error) {
	driver, dsn, err := resolveConfigStoreTarget(path)
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, err
		}
	}

	return &configStore{driver: driver, dsn: dsn}, nil
}

// resolveConfigStoreTarget picks the backend. A postgres URL from the
// environment wins over the sqlite file path; NODER_STORAGE_DATABASE_URL
// only counts when the storage type says postgres, and bare POSTGRES_*
// variables (compose deployments) assemble a URL against the "postgres"
// host.
func resolveConfigStoreTarget(path string) (string, string, error) {
	dbURL := strings.TrimSpace(os.Getenv("NODER_CONFIG_DATABASE_URL"))

	if dbURL == "" && strings.EqualFold(strings.TrimSpace(os.Getenv("NODER_STORAGE_TYPE")), "postgres") {
		dbURL = strings.TrimSpace(os.Getenv("NODER_STORAGE_DATABASE_URL"))
	}

	if dbURL == "" {
		user := strings.TrimSpace(os.Getenv("POSTGRES_USER"))
		pass := strings.TrimSpace(os.Getenv("POSTGRES_PASSWORD"))
		name := strings.TrimSpace(os.Getenv("POSTGRES_DB"))
		if user != "" && pass != "" && name != "" {
			dbURL = fmt.Sprintf("postgres://%s:%s@postgres:5432/%s?sslmode=disable", user, pass, name)
		}
	}

	if dbURL != "" {
		return "postgres", ensurePostgresSSLMode(dbURL), nil
	}

	if path == "" {
		path = DefaultConfigDBPath()
	}
	if strings.TrimSpace(path) == "" {
		return "", "", errors.New("config DB path is empty")
	}
	return "sqlite", path, nil
}

// ensurePostgresSSLMode appends sslmode=disable unless the URL already
// states one. lib/pq defaults to require, which breaks local compose
// setups.
func ensurePostgresSSLMode(url string) string {
	if strings.Contains(url, "sslmode=") {
		return url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "sslmode=disable"
}

// placeholder renders the n-th positional query parameter for the store's
// SQL dialect (1-based).
func (s *configStore) placeholder(n int) string {
	if s.driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *configStore) open() (*sql.DB, error) {
	return sql.Open(s.driver, s.dsn)
}

func (s *configStore) load(ctx context.Context) (*Config, bool, error) {
	db, err := s.open()
	if err != nil {
		return nil, false, err
	}
	defer db.Close()

	if err := s.ensureSchema(ctx, db); err != nil {
		return nil, false, err
	}

	query := fmt.Sprintf("SELECT ciphertext, nonce, version FROM %s WHERE id = %s",
		configTableName, s.placeholder(1))

	var ciphertext, nonce []byte
	var version int
	if err := db.QueryRowContext(ctx, query, configRowID).Scan(&ciphertext, &nonce, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	cfg, err := decodeConfigRow(ciphertext, nonce)
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

func (s *configStore) save(ctx context.Context, cfg *Config) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := s.ensureSchema(ctx, db); err != nil {
		return err
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	key, err := getMasterKey()
	if err != nil {
		return err
	}

	ciphertext, nonce, err := encryptConfig(key, data)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, ciphertext, nonce, version, updated_at)
		VALUES (%s, %s, %s, %s, %s)
		ON CONFLICT(id) DO UPDATE SET
			ciphertext = excluded.ciphertext,
			nonce = excluded.nonce,
			version = excluded.version,
			updated_at = excluded.updated_at
	`, configTableName,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.placeholder(5))

	_, err = db.ExecContext(ctx, query, configRowID, ciphertext, nonce, 1, time.Now().UTC())
	return err
}

// ensureSchema creates the single-row table. The sqlite DDL is tried first;
// postgres rejects BLOB, so its BYTEA/TIMESTAMPTZ variant runs as the
// fallback.
func (s *configStore) ensureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			ciphertext BLOB NOT NULL,
			nonce BLOB NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			updated_at TEXT NOT NULL
		)
	`, configTableName))
	if err == nil {
		return nil
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			ciphertext BYTEA NOT NULL,
			nonce BYTEA NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`, configTableName))
	return err
}

// decodeConfigRow decrypts a stored row and unmarshals it over defaults, so
// fields added after the row was written keep their default values.
func decodeConfigRow(ciphertext, nonce []byte) (*Config, error) {
	key, err := getMasterKey()
	if err != nil {
		return nil, err
	}

	plaintext, err := decryptConfig(key, ciphertext, nonce)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(plaintext, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// migrateConfigFromSQLiteFile copies the encrypted row out of a local
// sqlite file into the target store. Used once when an install switches to
// postgres. A missing file or empty table is not an error.
func migrateConfigFromSQLiteFile(ctx context.Context, target *configStore, sqlitePath string) (*Config, bool, error) {
	if strings.TrimSpace(sqlitePath) == "" {
		return nil, false, nil
	}
	if _, err := os.Stat(sqlitePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	db, err := sql.Open("sqlite", sqlitePath)
	if err != nil {
		return nil, false, err
	}
	defer db.Close()

	var tableName string
	err = db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		configTableName,
	).Scan(&tableName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var ciphertext, nonce []byte
	var version int
	err = db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT ciphertext, nonce, version FROM %s WHERE id = ?", configTableName),
		configRowID,
	).Scan(&ciphertext, &nonce, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	cfg, err := decodeConfigRow(ciphertext, nonce)
	if err != nil {
		return nil, false, err
	}

	if err := target.save(ctx, cfg); err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// getMasterKey returns the 32-byte AES key. Lookup order: OS keyring,
// fallback file in the app data dir (headless machines without a keyring
// daemon), then a freshly generated key persisted to whichever of the two
// accepts it.
func getMasterKey() ([]byte, error) {
	if encoded, err := keyring.Get(keyringService, keyringConfigKey); err == nil {
		return decodeMasterKey(encoded)
	}

	if key, err := loadMasterKeyFromFallbackFile(); err == nil {
		return key, nil
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	encoded := base64.StdEncoding.EncodeToString(key)
	if err := keyring.Set(keyringService, keyringConfigKey, encoded); err != nil {
		return saveMasterKeyToFallbackFile(key)
	}
	return key, nil
}

func decodeMasterKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid config master key length")
	}
	return key, nil
}

func fallbackMasterKeyPath() string {
	dir, _ := AppDataDir()
	return filepath.Join(dir, ".config-master-key")
}

func loadMasterKeyFromFallbackFile() ([]byte, error) {
	data, err := os.ReadFile(fallbackMasterKeyPath())
	if err != nil {
		return nil, err
	}
	return decodeMasterKey(string(data))
}

func saveMasterKeyToFallbackFile(key []byte) ([]byte, error) {
	path := fallbackMasterKeyPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(path, []byte(encoded), 0600); err != nil {
		return nil, err
	}
	return key, nil
}

func encryptConfig(key, plaintext []byte) ([]byte, []byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

func decryptConfig(key, ciphertext, nonce []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, nonce, ciphertext, nil)
}
