package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS session (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteStore keeps the session in a local SQLite file.
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLite opens (and creates if needed) the session database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o700)
	if err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	_, err = db.Exec(schema)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create session table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) (*Session, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	err := s.db.SelectContext(ctx, &rows, `SELECT key, value FROM session WHERE key IN ($1, $2)`, KeyToken, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.Key] = r.Value
	}

	token, hasToken := values[KeyToken]
	rawUser, hasUser := values[KeyUser]
	if !hasToken && !hasUser {
		return nil, ErrNoSession
	}

	sess := &Session{Token: token}
	if hasToken && hasUser && token != "" {
		err = json.Unmarshal([]byte(rawUser), &sess.User)
		if err == nil {
			return sess, nil
		}
	}

	slog.Warn("discarding incomplete session", "has_token", hasToken, "has_user", hasUser)
	err = s.Clear(ctx)
	if err != nil {
		return nil, err
	}
	return nil, ErrNoSession
}

func (s *SQLiteStore) Save(ctx context.Context, sess Session) error {
	user, err := encode(sess)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return write(ctx, tx, sess.Token, user)
	})
}

func (s *SQLiteStore) Replace(ctx context.Context, expectedToken string, sess Session) error {
	user, err := encode(sess)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var current string
		err := tx.GetContext(ctx, &current, `SELECT value FROM session WHERE key = $1`, KeyToken)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoSession
		}
		if err != nil {
			return fmt.Errorf("failed to read session token: %w", err)
		}
		if current != expectedToken {
			return ErrNoSession
		}

		return write(ctx, tx, sess.Token, user)
	})
}

func encode(sess Session) (string, error) {
	if sess.Token == "" {
		return "", ErrEmptyToken
	}

	user, err := json.Marshal(sess.User)
	if err != nil {
		return "", fmt.Errorf("failed to encode user: %w", err)
	}
	return string(user), nil
}

func write(ctx context.Context, tx *sqlx.Tx, token, user string) error {
	for _, kv := range [][2]string{{KeyToken, token}, {KeyUser, user}} {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO session (key, value) VALUES ($1, $2)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, kv[0], kv[1])
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", kv[0], err)
		}
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM session WHERE key IN ($1, $2)`, KeyToken, KeyUser)
		if err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin session transaction: %w", err)
	}

	err = fn(tx)
	if err != nil {
		rbErr := tx.Rollback()
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Warn("session rollback failed", "error", rbErr)
		}
		return err
	}

	return tx.Commit()
}
