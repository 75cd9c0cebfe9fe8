// Package keystore provides the durable key-value store backing session
// recovery: the timeout flag that survives gateway restarts and the opaque
// credential blob for the external identity provider.
package keystore

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/warelink/scangate/internal/domain"
	_ "modernc.org/sqlite"
)

const (
	keyTimeout    = "timeout"
	keyCredential = "credential"
)

// schemaVersion is incremented when the schema changes, forcing a rebuild.
const schemaVersion = 1

// Keystore is a SQLite-backed store for the session timeout flag and the
// stored credential.
type Keystore struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// Open opens or creates the keystore at path.
func Open(path string) (*Keystore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL mode keeps readers unblocked during timer writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Debug().Str("path", path).Msg("keystore opened")
	return &Keystore{db: db}, nil
}

func createSchema(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS metadata (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'")
	if err := row.Scan(&currentVersion); err != nil {
		currentVersion = 0
	}

	if currentVersion < schemaVersion {
		if _, err := db.Exec(`DROP TABLE IF EXISTS keystore`); err != nil {
			return err
		}
		if _, err := db.Exec(`INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)`, schemaVersion); err != nil {
			return err
		}
	}

	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS keystore (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`)
	return err
}

// Close closes the underlying database.
func (k *Keystore) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil
	}
	k.closed = true
	return k.db.Close()
}

// SetTimeout persists the session timeout flag.
func (k *Keystore) SetTimeout(timedOut bool) error {
	value := []byte("0")
	if timedOut {
		value = []byte("1")
	}
	return k.set(keyTimeout, value)
}

// Timeout reads the persisted timeout flag. Missing means false.
func (k *Keystore) Timeout() (bool, error) {
	value, err := k.get(keyTimeout)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(value) == 1 && value[0] == '1', nil
}

// SetCredential stores the opaque credential blob.
func (k *Keystore) SetCredential(blob []byte) error {
	return k.set(keyCredential, blob)
}

// Credential reads the stored credential. Returns domain.ErrNoCredential
// when none is stored.
func (k *Keystore) Credential() ([]byte, error) {
	value, err := k.get(keyCredential)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoCredential
	}
	return value, err
}

// ClearCredential removes the stored credential.
func (k *Keystore) ClearCredential() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return domain.ErrKeystoreClosed
	}
	_, err := k.db.Exec(`DELETE FROM keystore WHERE key = ?`, keyCredential)
	return err
}

func (k *Keystore) set(key string, value []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return domain.ErrKeystoreClosed
	}
	_, err := k.db.Exec(`INSERT OR REPLACE INTO keystore (key, value) VALUES (?, ?)`, key, value)
	return err
}

func (k *Keystore) get(key string) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil, domain.ErrKeystoreClosed
	}
	var value []byte
	err := k.db.QueryRow(`SELECT value FROM keystore WHERE key = ?`, key).Scan(&value)
	return value, err
}
