// internal/store/sqlstore/sqlstore.go
package sqlstore

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/solatis/lifter/internal/lookups"
	"github.com/solatis/lifter/internal/model"
	"github.com/solatis/lifter/internal/query"
	"github.com/solatis/lifter/internal/types"
)

/*
 * SQL backend: translates the query tree into a WHERE clause.
 *
 * Each model maps to one table (its plural name unless overridden). Paths
 * must be a single segment naming a column; when the model declares
 * fields, only declared fields are accepted. Identifiers are quoted with
 * double quotes, which both SQLite and PostgreSQL accept.
 *
 * Supported lookups: eq, ne, gt, gte, lt, lte, in, range and the string
 * lookups (LIKE with escaped wildcards; case-insensitive variants compare
 * LOWER() of both sides). exists and test have no SQL form and fail with
 * *types.UnsupportedQueryError, as do nested paths.
 */

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Backend queries tables through sqlx.
type Backend struct {
	db     *sqlx.DB
	sb     sq.StatementBuilderType
	tables map[string]string
}

// Option configures a Backend.
type Option func(*Backend)

// WithTable maps a model name to a table name.
func WithTable(modelName, table string) Option {
	return func(b *Backend) { b.tables[modelName] = table }
}

// New wraps an open connection. Placeholders follow the driver.
func New(db *sqlx.DB, opts ...Option) *Backend {
	var format sq.PlaceholderFormat = sq.Question
	if db.DriverName() == "postgres" {
		format = sq.Dollar
	}
	b := &Backend{
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(format),
		tables: make(map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) Name() string { return "sql" }

// Table returns the table queried for m.
func (b *Backend) Table(m *model.Model) string {
	if t, ok := b.tables[m.Name()]; ok {
		return t
	}
	return m.Plural()
}

// SelectSQL renders the SELECT statement for q.
func (b *Backend) SelectSQL(q query.Query, m *model.Model) (string, []any, error) {
	stmt := b.sb.Select("*").From(quote(b.Table(m)))
	stmt, err := b.where(stmt, q, m)
	if err != nil {
		return "", nil, err
	}
	for _, o := range q.Orderings {
		if o.Random {
			stmt = stmt.OrderBy("RANDOM()")
			continue
		}
		col, err := column(o.Path, m, o)
		if err != nil {
			return "", nil, err
		}
		dir := " ASC"
		if o.Reverse {
			dir = " DESC"
		}
		stmt = stmt.OrderBy(col + dir)
	}
	return stmt.ToSql()
}

// CountSQL renders the COUNT statement for q.
func (b *Backend) CountSQL(q query.Query, m *model.Model) (string, []any, error) {
	stmt, err := b.where(b.sb.Select("COUNT(*)").From(quote(b.Table(m))), q, m)
	if err != nil {
		return "", nil, err
	}
	return stmt.ToSql()
}

func (b *Backend) where(stmt sq.SelectBuilder, q query.Query, m *model.Model) (sq.SelectBuilder, error) {
	if q.Filters == nil {
		return stmt, nil
	}
	cond, err := translate(q.Filters, m)
	if err != nil {
		return stmt, err
	}
	return stmt.Where(cond), nil
}

func (b *Backend) Select(ctx context.Context, q query.Query, m *model.Model) ([]any, error) {
	stmt, args, err := b.SelectSQL(q, m)
	if err != nil {
		return nil, err
	}
	rows, err := b.db.QueryxContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStoreError, err)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", types.ErrStoreError, err)
		}
		for k, v := range row {
			if raw, ok := v.([]byte); ok {
				row[k] = string(raw)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStoreError, err)
	}
	return out, nil
}

func (b *Backend) Count(ctx context.Context, q query.Query, m *model.Model) (int, error) {
	stmt, args, err := b.CountSQL(q, m)
	if err != nil {
		return 0, err
	}
	var n int
	if err := b.db.GetContext(ctx, &n, stmt, args...); err != nil {
		return 0, fmt.Errorf("%w: %w", types.ErrStoreError, err)
	}
	return n, nil
}

func translate(node query.Node, m *model.Model) (sq.Sqlizer, error) {
	var cond sq.Sqlizer
	switch n := node.(type) {
	case *query.Leaf:
		c, err := translateLeaf(n, m)
		if err != nil {
			return nil, err
		}
		cond = c
	case *query.Composite:
		children := make([]sq.Sqlizer, 0, len(n.Children()))
		for _, child := range n.Children() {
			c, err := translate(child, m)
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		if n.Operator() == query.OpOr {
			cond = sq.Or(children)
		} else {
			cond = sq.And(children)
		}
	default:
		return nil, &types.UnsupportedQueryError{Node: node, Reason: fmt.Sprintf("unknown node %T", node)}
	}
	if node.Inverted() {
		return not{cond}, nil
	}
	return cond, nil
}

func translateLeaf(l *query.Leaf, m *model.Model) (sq.Sqlizer, error) {
	col, err := column(l.Path(), m, l)
	if err != nil {
		return nil, err
	}
	operand := l.Lookup().Operand

	switch kind := l.Lookup().Kind; kind {
	case lookups.KindEq:
		return sq.Eq{col: operand}, nil
	case lookups.KindNe:
		return sq.NotEq{col: operand}, nil
	case lookups.KindGt:
		return sq.Gt{col: operand}, nil
	case lookups.KindGte:
		return sq.GtOrEq{col: operand}, nil
	case lookups.KindLt:
		return sq.Lt{col: operand}, nil
	case lookups.KindLte:
		return sq.LtOrEq{col: operand}, nil
	case lookups.KindIn:
		return sq.Eq{col: operand}, nil
	case lookups.KindRange:
		bounds := operand.([]any)
		return sq.And{sq.GtOrEq{col: bounds[0]}, sq.LtOrEq{col: bounds[1]}}, nil
	case lookups.KindStartsWith, lookups.KindIStartsWith, lookups.KindEndsWith,
		lookups.KindIEndsWith, lookups.KindContains, lookups.KindIContains:
		s, ok := operand.(string)
		if !ok {
			return nil, &types.UnsupportedQueryError{Node: l, Reason: fmt.Sprintf("%s with %T operand", kind, operand)}
		}
		return like(col, kind, s), nil
	default:
		return nil, &types.UnsupportedQueryError{Node: l, Reason: kind.String() + " lookup not supported"}
	}
}

func like(col string, kind lookups.Kind, s string) sq.Sqlizer {
	pattern := escapeLike(s)
	switch kind {
	case lookups.KindStartsWith, lookups.KindIStartsWith:
		pattern += "%"
	case lookups.KindEndsWith, lookups.KindIEndsWith:
		pattern = "%" + pattern
	default:
		pattern = "%" + pattern + "%"
	}
	switch kind {
	case lookups.KindIStartsWith, lookups.KindIEndsWith, lookups.KindIContains:
		return sq.Expr("LOWER("+col+") LIKE LOWER(?) ESCAPE '\\'", pattern)
	default:
		return sq.Expr(col+" LIKE ? ESCAPE '\\'", pattern)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// column validates a single-segment path against m and quotes it.
func column(p query.Path, m *model.Model, node any) (string, error) {
	segments := p.Segments()
	if len(segments) != 1 {
		return "", &types.UnsupportedQueryError{Node: node, Reason: "nested path " + p.String() + " not supported"}
	}
	name := segments[0]
	if !identifier.MatchString(name) {
		return "", &types.UnsupportedQueryError{Node: node, Reason: fmt.Sprintf("invalid column name %q", name)}
	}
	if len(m.FieldNames()) > 0 {
		if _, ok := m.Field(name); !ok {
			return "", &types.UnsupportedQueryError{Node: node, Reason: fmt.Sprintf("unknown column %q", name)}
		}
	}
	return quote(name), nil
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// not negates a condition.
type not struct {
	inner sq.Sqlizer
}

func (n not) ToSql() (string, []any, error) {
	s, args, err := n.inner.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + s + ")", args, nil
}
