package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const createEntriesTable = `CREATE TABLE IF NOT EXISTS cache_entries (
	cache_key TEXT PRIMARY KEY,
	end_year  INTEGER NOT NULL,
	kind      TEXT NOT NULL,
	name      TEXT NOT NULL DEFAULT '',
	stored_at INTEGER NOT NULL,
	size      INTEGER NOT NULL,
	payload   BLOB NOT NULL
)`

// SQLiteStore keeps every entry as a row in one SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at path. ":memory:" gives
// a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: an in-memory database is per connection, and the
	// cache has a single writer anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createEntriesTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Driver() Driver { return DriverSQLite }

func (s *SQLiteStore) Read(ctx context.Context, key Key) (Entry, bool, error) {
	if err := key.Validate(); err != nil {
		return Entry{}, false, err
	}

	var (
		payload  []byte
		storedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, stored_at FROM cache_entries WHERE cache_key = ?`, key.String(),
	).Scan(&payload, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("select %s: %w", key, err)
	}
	return Entry{Key: key, Data: payload, StoredAt: time.Unix(0, storedAt).UTC()}, true, nil
}

func (s *SQLiteStore) Write(ctx context.Context, entry Entry) error {
	if err := entry.Key.Validate(); err != nil {
		return err
	}
	data := entry.Data
	if data == nil {
		data = []byte{}
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO cache_entries
		(cache_key, end_year, kind, name, stored_at, size, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			stored_at = excluded.stored_at,
			size = excluded.size,
			payload = excluded.payload`,
		entry.Key.String(), entry.Key.EndYear, string(entry.Key.Kind), entry.Key.Name,
		entry.StoredAt.UnixNano(), len(data), data)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", entry.Key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key Key) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_key = ?`, key.String())
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) List(ctx context.Context) (infos []EntryInfo, retErr error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cache_key, size, stored_at FROM cache_entries ORDER BY cache_key`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}()

	for rows.Next() {
		var (
			raw      string
			size     int64
			storedAt int64
		)
		if err := rows.Scan(&raw, &size, &storedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		key, err := ParseKey(raw)
		if err != nil {
			return nil, err
		}
		infos = append(infos, EntryInfo{Key: key, Size: size, StoredAt: time.Unix(0, storedAt).UTC()})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortInfos(infos)
	return infos, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
