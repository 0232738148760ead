// Package db persists the objects accumulator of a run in SQLite so that
// table-of-contents and graph output can be produced without re-parsing.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jcdickinson/astdocs/internal/registry"
	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	conn *sql.DB
}

func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	d := &DB{conn: conn}
	if err := d.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return d, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS modules (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			position INTEGER NOT NULL,
			indexed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS objects (
			id INTEGER PRIMARY KEY,
			module_id INTEGER NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			local_path TEXT NOT NULL,
			abs_path TEXT NOT NULL,
			position INTEGER NOT NULL,
			UNIQUE(module_id, kind, local_path)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_objects_module ON objects (module_id)`,
		`CREATE INDEX IF NOT EXISTS idx_objects_abs ON objects (abs_path)`,
	}

	for _, q := range queries {
		if _, err := db.conn.Exec(q); err != nil {
			return fmt.Errorf("executing %q: %w", q, err)
		}
	}
	return nil
}

// SaveObjects replaces the stored modules named in objs, which move to the
// end of the index in objs order. Other stored modules are kept.
func (db *DB) SaveObjects(objs *registry.Objects) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(position), -1) + 1 FROM modules`).Scan(&next); err != nil {
		return fmt.Errorf("reading module positions: %w", err)
	}

	ids := make(map[string]int64)
	for _, name := range objs.Modules() {
		if _, err := tx.Exec(`DELETE FROM objects WHERE module_id IN (SELECT id FROM modules WHERE name = ?)`, name); err != nil {
			return fmt.Errorf("clearing module %s: %w", name, err)
		}
		if _, err := tx.Exec(`DELETE FROM modules WHERE name = ?`, name); err != nil {
			return fmt.Errorf("deleting module %s: %w", name, err)
		}
		result, err := tx.Exec(`INSERT INTO modules (name, position) VALUES (?, ?)`, name, next)
		if err != nil {
			return fmt.Errorf("inserting module %s: %w", name, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting module id: %w", err)
		}
		ids[name] = id
		next++
	}

	stmt, err := tx.Prepare(`INSERT INTO objects (module_id, kind, local_path, abs_path, position) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	position := 0
	var insertErr error
	objs.Each(func(module string, kind registry.Kind, local, abs string) {
		if insertErr != nil {
			return
		}
		if _, err := stmt.Exec(ids[module], string(kind), local, abs, position); err != nil {
			insertErr = fmt.Errorf("inserting object %s.%s: %w", module, local, err)
		}
		position++
	})
	if insertErr != nil {
		return insertErr
	}

	return tx.Commit()
}

// LoadObjects rebuilds the accumulator in the order modules were saved.
func (db *DB) LoadObjects() (*registry.Objects, error) {
	objs := registry.NewObjects()

	modules, err := db.conn.Query(`SELECT name FROM modules ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("listing modules: %w", err)
	}
	defer modules.Close()

	var names []string
	for modules.Next() {
		var name string
		if err := modules.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := modules.Err(); err != nil {
		return nil, err
	}

	for _, name := range names {
		rows, err := db.conn.Query(
			`SELECT o.kind, o.local_path, o.abs_path FROM objects o
			 JOIN modules m ON m.id = o.module_id
			 WHERE m.name = ? ORDER BY o.position`, name,
		)
		if err != nil {
			return nil, fmt.Errorf("listing objects of %s: %w", name, err)
		}

		objs.Ensure(name)
		for rows.Next() {
			var kind, local, abs string
			if err := rows.Scan(&kind, &local, &abs); err != nil {
				rows.Close()
				return nil, err
			}
			objs.Put(name, registry.Kind(kind), local, abs)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return objs, nil
}

// Clear removes every stored module and returns how many there were.
func (db *DB) Clear() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM modules`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting modules: %w", err)
	}
	if _, err := db.conn.Exec(`DELETE FROM objects`); err != nil {
		return 0, fmt.Errorf("clearing objects: %w", err)
	}
	if _, err := db.conn.Exec(`DELETE FROM modules`); err != nil {
		return 0, fmt.Errorf("clearing modules: %w", err)
	}
	return n, nil
}
