package session

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

const (
	keyToken    = "token"
	keyUsername = "username"
)

// CredentialStore persists the session token and username across process
// restarts, backed by a small SQLite key/value table. It holds exactly two
// entries; Clear removes both.
type CredentialStore struct {
	db *sql.DB
}

// OpenCredentialStore opens (or creates) the credential database at path,
// creating parent directories as needed.
func OpenCredentialStore(path string) (*CredentialStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS credentials (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}

	return &CredentialStore{db: db}, nil
}

// Load returns the persisted token and username. Missing entries come back
// as empty strings, not as an error.
func (s *CredentialStore) Load() (token, username string, err error) {
	rows, err := s.db.Query(`SELECT key, value FROM credentials`)
	if err != nil {
		return "", "", err
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return "", "", err
		}
		switch k {
		case keyToken:
			token = v
		case keyUsername:
			username = v
		}
	}
	return token, username, rows.Err()
}

// Save writes both entries atomically.
func (s *CredentialStore) Save(token, username string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, kv := range [][2]string{{keyToken, token}, {keyUsername, username}} {
		if _, err := tx.Exec(
			`INSERT INTO credentials (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			kv[0], kv[1],
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Clear removes both entries. Clearing an empty store is a no-op.
func (s *CredentialStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM credentials`)
	return err
}

// Close closes the underlying database connection.
func (s *CredentialStore) Close() error {
	return s.db.Close()
}
