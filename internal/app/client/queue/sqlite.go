package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"reportsync/internal/domain/report"
)

type SQLiteStore struct {
	db        *sql.DB
	namespace string
}

func OpenSQLite(path, namespace string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, report.Storage("open", err)
	}
	// One connection serializes transactions inside this process; WAL plus
	// busy_timeout covers other processes sharing the file.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, namespace: namespace}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, report.Storage("init", err)
	}

	return s, nil
}

func (s *SQLiteStore) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value BLOB NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (namespace, key)
		);
	`)
	return err
}

func (s *SQLiteStore) View(ctx context.Context, fn func(Tx) error) error {
	return s.run(ctx, fn, false)
}

func (s *SQLiteStore) Update(ctx context.Context, fn func(Tx) error) error {
	return s.run(ctx, fn, true)
}

func (s *SQLiteStore) run(ctx context.Context, fn func(Tx) error, commit bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return report.Storage("begin", err)
	}

	if err := fn(&sqliteTx{ctx: ctx, tx: tx, namespace: s.namespace}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if !commit {
		if err := tx.Rollback(); err != nil {
			return report.Storage("rollback", err)
		}
		return nil
	}

	if err := tx.Commit(); err != nil {
		return report.Storage("commit", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqliteTx struct {
	ctx       context.Context
	tx        *sql.Tx
	namespace string
}

func (t *sqliteTx) Get(key string) ([]byte, error) {
	var value []byte
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`, t.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, report.Storage("get "+key, err)
	}
	return value, nil
}

func (t *sqliteTx) Put(key string, value []byte) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO kv (namespace, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE
		SET value = excluded.value, updated_at = excluded.updated_at
	`, t.namespace, key, value, time.Now().UTC())
	if err != nil {
		return report.Storage("put "+key, err)
	}
	return nil
}

func (t *sqliteTx) Delete(key string) error {
	_, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM kv WHERE namespace = ? AND key = ?`, t.namespace, key)
	if err != nil {
		return report.Storage("delete "+key, err)
	}
	return nil
}

func (t *sqliteTx) Keys(prefix string) ([]string, error) {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT key FROM kv
		WHERE namespace = ? AND substr(key, 1, length(?)) = ?
		ORDER BY key
	`, t.namespace, prefix, prefix)
	if err != nil {
		return nil, report.Storage("keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, report.Storage("keys", fmt.Errorf("scan: %w", err))
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, report.Storage("keys", err)
	}
	return keys, nil
}
