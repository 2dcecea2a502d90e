// internal/core/db/migrations.go
package db

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	embeddedmigrations "github.com/solatis/lifter/migrations"
)

/*
 * Cache schema migrations.
 *
 * Each embedded file under migrations/<dialect>/ is one schema version.
 * Versions apply in filename order, each in its own transaction together
 * with its row in lifter_schema. lib/pq runs one statement per Exec, so a
 * file is split on semicolons that sit outside string literals and
 * comments.
 */

const schemaTable = "lifter_schema"

// MigrationStatus reports whether one schema version is in place.
type MigrationStatus struct {
	ID        string
	Applied   bool
	AppliedAt *time.Time
}

type migration struct {
	id  string
	sql string
}

// MigrateUp applies every pending cache schema version.
func MigrateUp(conn *sqlx.DB) error {
	statuses, files, err := status(conn)
	if err != nil {
		return err
	}
	for i, m := range files {
		if statuses[i].Applied {
			continue
		}
		if err := apply(conn, m); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.id, err)
		}
	}
	return nil
}

// MigrateStatus lists every embedded schema version for the connection's
// dialect, in apply order.
func MigrateStatus(conn *sqlx.DB) ([]MigrationStatus, error) {
	statuses, _, err := status(conn)
	return statuses, err
}

func status(conn *sqlx.DB) ([]MigrationStatus, []migration, error) {
	files, err := migrationFiles(conn.DriverName())
	if err != nil {
		return nil, nil, err
	}
	applied, err := appliedVersions(conn)
	if err != nil {
		return nil, nil, err
	}
	statuses := make([]MigrationStatus, len(files))
	for i, m := range files {
		at, ok := applied[m.id]
		statuses[i] = MigrationStatus{ID: m.id, Applied: ok, AppliedAt: at}
	}
	return statuses, files, nil
}

func migrationSource(driver string) (embed.FS, string, error) {
	switch driver {
	case "sqlite3":
		return embeddedmigrations.SqliteMigrations, "sqlite", nil
	case "postgres":
		return embeddedmigrations.PostgresMigrations, "postgres", nil
	default:
		return embed.FS{}, "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func migrationFiles(driver string) ([]migration, error) {
	fsys, dir, err := migrationSource(driver)
	if err != nil {
		return nil, err
	}
	names, err := fs.Glob(fsys, dir+"/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	files := make([]migration, 0, len(names))
	for _, name := range names {
		content, err := fsys.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		files = append(files, migration{id: path.Base(name), sql: string(content)})
	}
	return files, nil
}

// appliedVersions maps each recorded version to its apply time. The
// tracking table is created on first use; applied_at is RFC 3339 text in
// both dialects.
func appliedVersions(conn *sqlx.DB) (map[string]*time.Time, error) {
	create := "CREATE TABLE IF NOT EXISTS " + schemaTable + " (version TEXT PRIMARY KEY, applied_at TEXT NOT NULL)"
	if _, err := conn.Exec(create); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", schemaTable, err)
	}

	rows, err := conn.Queryx("SELECT version, applied_at FROM " + schemaTable)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", schemaTable, err)
	}
	defer rows.Close()

	applied := make(map[string]*time.Time)
	for rows.Next() {
		var version, at string
		if err := rows.Scan(&version, &at); err != nil {
			return nil, err
		}
		var appliedAt *time.Time
		if t, err := time.Parse(time.RFC3339, at); err == nil {
			appliedAt = &t
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

func apply(conn *sqlx.DB, m migration) error {
	tx, err := conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(m.sql) {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("statement failed: %w", err)
		}
	}
	record := tx.Rebind("INSERT INTO " + schemaTable + " (version, applied_at) VALUES (?, ?)")
	if _, err := tx.Exec(record, m.id, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to record version: %w", err)
	}
	return tx.Commit()
}

// splitStatements cuts src at top-level semicolons. "--" line comments
// and "/* */" block comments are dropped; single-quoted literals are kept
// whole, including doubled '' escapes.
func splitStatements(src string) []string {
	var (
		stmts  []string
		cur    strings.Builder
		quoted bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case quoted:
			cur.WriteByte(c)
			if c == '\'' {
				quoted = false
			}
		case c == '\'':
			quoted = true
			cur.WriteByte(c)
		case c == '-' && i+1 < len(src) && src[i+1] == '-':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				i = len(src)
			} else {
				i += end + 3
			}
			cur.WriteByte(' ')
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return stmts
}
