package cache

import (
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidewatch/tidewatch"
	"github.com/tidwall/btree"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore is a cached object store persisted in SQLite with an in-memory
// B-tree in front of it:
//
// Layer 1: B-tree for lookups and snapshot-stable iteration
// Layer 2: SQLite tracked_objects table for durability across restarts
//
// All reads hit the tree; every mutation commits the row before touching the
// tree, so a crash between the two leaves at worst an already-applied row.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool

	entries *btree.Map[tidewatch.ObjectKey, tidewatch.ObjectMetadata]
}

// OpenSQLiteStore opens (or creates) the store at dbPath. The path can be
// ":memory:" for an ephemeral database.
func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// WAL keeps readers unblocked while actions are being folded in
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{
		db:      db,
		entries: btree.NewMap[tidewatch.ObjectKey, tidewatch.ObjectMetadata](0),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	if err := store.loadEntries(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (ss *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tracked_objects (
		id TEXT PRIMARY KEY,
		key BLOB NOT NULL UNIQUE,
		path TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		modify_time INTEGER NOT NULL,
		seen_time INTEGER NOT NULL,
		is_dir INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_tracked_objects_path ON tracked_objects(path);
	`

	_, err := ss.db.Exec(schema)
	return err
}

func (ss *SQLiteStore) loadEntries() error {
	rows, err := ss.db.Query(`SELECT key, path, size, modify_time, seen_time, is_dir FROM tracked_objects`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key []byte
		var meta tidewatch.ObjectMetadata
		var modifyTime, seenTime int64
		if err := rows.Scan(&key, &meta.Path, &meta.Size, &modifyTime, &seenTime, &meta.IsDir); err != nil {
			return err
		}
		meta.ModifiedAt = time.Unix(0, modifyTime)
		meta.SeenAt = time.Unix(0, seenTime)

		ss.entries.Set(tidewatch.ObjectKey(key), meta)
	}

	return rows.Err()
}

func (ss *SQLiteStore) Contains(key tidewatch.ObjectKey) bool {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	_, ok := ss.entries.Get(key)
	return ok
}

func (ss *SQLiteStore) Iterate(fn func(key tidewatch.ObjectKey, meta tidewatch.ObjectMetadata) bool) {
	ss.mu.RLock()
	snapshot := ss.entries.Copy()
	ss.mu.RUnlock()

	snapshot.Scan(fn)
}

func (ss *SQLiteStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return ss.entries.Len()
}

func (ss *SQLiteStore) Update(key tidewatch.ObjectKey, meta tidewatch.ObjectMetadata) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.closed {
		return tidewatch.ErrClosed
	}

	_, err := ss.db.Exec(`
		INSERT INTO tracked_objects (id, key, path, size, modify_time, seen_time, is_dir)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			path = excluded.path,
			size = excluded.size,
			modify_time = excluded.modify_time,
			seen_time = excluded.seen_time,
			is_dir = excluded.is_dir`,
		genRowID(), []byte(key), meta.Path, meta.Size,
		meta.ModifiedAt.UnixNano(), meta.SeenAt.UnixNano(), meta.IsDir)
	if err != nil {
		return err
	}

	ss.entries.Set(key, meta)
	return nil
}

func (ss *SQLiteStore) Remove(key tidewatch.ObjectKey) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.closed {
		return tidewatch.ErrClosed
	}

	if _, err := ss.db.Exec(`DELETE FROM tracked_objects WHERE key = ?`, []byte(key)); err != nil {
		return err
	}

	ss.entries.Delete(key)
	return nil
}

// Close releases the underlying database. Mutations after Close fail with
// ErrClosed, as does a second Close.
func (ss *SQLiteStore) Close() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.closed {
		return tidewatch.ErrClosed
	}
	ss.closed = true

	return ss.db.Close()
}

func genRowID() string {
	return uuid.Must(uuid.NewV7()).String()
}
