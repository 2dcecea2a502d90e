// internal/core/db/queries.go
package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/qustavo/dotsql"
)

/*
 * Named cache statements.
 *
 * queries/*.sql holds dotsql-tagged statements written with ? placeholders.
 * LoadQueries renders each statement once and rebinds it for the
 * connection's driver; calls then only look up the finished string.
 */

//go:embed queries/*.sql
var queriesFS embed.FS

// ErrUnknownQuery indicates a statement name absent from queries/*.sql.
var ErrUnknownQuery = errors.New("unknown query")

// Queries runs named statements against one connection.
type Queries struct {
	db    *sqlx.DB
	stmts map[string]string
}

// LoadQueries parses the embedded statements for conn.
func LoadQueries(conn *sqlx.DB) (*Queries, error) {
	paths, err := fs.Glob(queriesFS, "queries/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list query files: %w", err)
	}

	dots := make([]*dotsql.DotSql, 0, len(paths))
	for _, p := range paths {
		content, err := queriesFS.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		dot, err := dotsql.LoadFromString(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", p, err)
		}
		dots = append(dots, dot)
	}

	merged := dotsql.Merge(dots...)
	stmts := make(map[string]string, len(merged.QueryMap()))
	for name := range merged.QueryMap() {
		raw, err := merged.Raw(name)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", name, err)
		}
		stmts[name] = conn.Rebind(strings.TrimSpace(raw))
	}
	return &Queries{db: conn, stmts: stmts}, nil
}

// Names lists the loaded statement names in order.
func (q *Queries) Names() []string {
	names := make([]string, 0, len(q.stmts))
	for name := range q.stmts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (q *Queries) statement(name string) (string, error) {
	stmt, ok := q.stmts[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownQuery, name)
	}
	return stmt, nil
}

func (q *Queries) Exec(name string, args ...any) (sql.Result, error) {
	stmt, err := q.statement(name)
	if err != nil {
		return nil, err
	}
	return q.db.Exec(stmt, args...)
}

// Get scans one row into dest; sql.ErrNoRows passes through.
func (q *Queries) Get(name string, dest any, args ...any) error {
	stmt, err := q.statement(name)
	if err != nil {
		return err
	}
	return q.db.Get(dest, stmt, args...)
}

func (q *Queries) Select(name string, dest any, args ...any) error {
	stmt, err := q.statement(name)
	if err != nil {
		return err
	}
	return q.db.Select(dest, stmt, args...)
}
