// internal/store/rest/querystring.go
package rest

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/solatis/lifter/internal/lookups"
	"github.com/solatis/lifter/internal/naming"
	"github.com/solatis/lifter/internal/query"
	"github.com/solatis/lifter/internal/types"
)

/*
 * Translation of a query tree into URL query parameters.
 *
 * A SupportTable declares what the remote API understands. Translation
 * checks every node before emitting anything: an unsupported lookup,
 * operator, negation or ordering fails the whole query with an
 * *types.UnsupportedQueryError carrying the offending node. There is no
 * partial translation and no local fallback.
 *
 * Leaves flatten into parameters keyed by their path, renamed segment by
 * segment. Repeated paths accumulate values instead of overwriting. An eq
 * leaf uses the bare key; other lookups append "__<lookup>".
 */

// Operator names used in support tables.
const (
	OperatorAnd = "AND"
	OperatorOr  = "OR"
	OperatorNot = "NOT"
)

// SupportTable lists the lookups and operators a remote API can express.
type SupportTable struct {
	Lookups   []string
	Operators []string
	Orderings bool
}

// SimpleSupport accepts eq leaves joined by AND.
var SimpleSupport = SupportTable{
	Lookups:   []string{"eq"},
	Operators: []string{OperatorAnd},
}

func (t SupportTable) hasLookup(name string) bool {
	for _, l := range t.Lookups {
		if l == name {
			return true
		}
	}
	return false
}

func (t SupportTable) hasOperator(name string) bool {
	for _, o := range t.Operators {
		if o == name {
			return true
		}
	}
	return false
}

// Builder translates filters and orderings into query parameters.
type Builder interface {
	Build(filters query.Node, orderings []query.Ordering) (url.Values, error)
}

// QueryStringBuilder is the default Builder.
type QueryStringBuilder struct {
	Support SupportTable
	// Names renames each path segment; nil keeps names unchanged.
	Names naming.Converter
	// OrderingKey is the parameter carrying orderings, when supported.
	OrderingKey string
}

// NewSimpleBuilder returns a builder for eq/AND with camelCase names.
func NewSimpleBuilder() *QueryStringBuilder {
	return &QueryStringBuilder{Support: SimpleSupport, Names: naming.CamelCase}
}

// CheckSupport walks node and fails on the first construct the table does
// not allow.
func (b *QueryStringBuilder) CheckSupport(node query.Node) error {
	return query.Walk(node, func(n query.Node) error {
		if n.Inverted() && !b.Support.hasOperator(OperatorNot) {
			return &types.UnsupportedQueryError{Node: n, Reason: "NOT operator not supported"}
		}
		switch x := n.(type) {
		case *query.Leaf:
			if name := x.Lookup().Name(); !b.Support.hasLookup(name) {
				return &types.UnsupportedQueryError{Node: n, Reason: name + " lookup not supported"}
			}
		case *query.Composite:
			if op := x.Operator().String(); !b.Support.hasOperator(op) {
				return &types.UnsupportedQueryError{Node: n, Reason: op + " operator not supported"}
			}
		}
		return nil
	})
}

func (b *QueryStringBuilder) Build(filters query.Node, orderings []query.Ordering) (url.Values, error) {
	values := url.Values{}
	if filters != nil {
		if err := b.CheckSupport(filters); err != nil {
			return nil, err
		}
		err := query.Walk(filters, func(n query.Node) error {
			leaf, ok := n.(*query.Leaf)
			if !ok {
				return nil
			}
			key := b.key(leaf.Path())
			if kind := leaf.Lookup().Kind; kind != lookups.KindEq {
				key += "__" + kind.String()
			}
			for _, v := range operandStrings(leaf.Lookup().Operand) {
				values.Add(key, v)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(orderings) > 0 {
		if !b.Support.Orderings || b.OrderingKey == "" {
			return nil, &types.UnsupportedQueryError{Node: orderings, Reason: "orderings not supported"}
		}
		parts := make([]string, len(orderings))
		for i, o := range orderings {
			if o.Random {
				return nil, &types.UnsupportedQueryError{Node: o, Reason: "random ordering not supported"}
			}
			parts[i] = b.key(o.Path)
			if o.Reverse {
				parts[i] = "-" + parts[i]
			}
		}
		values.Set(b.OrderingKey, strings.Join(parts, ","))
	}
	return values, nil
}

func (b *QueryStringBuilder) key(p query.Path) string {
	segments := p.Segments()
	if b.Names != nil {
		for i, s := range segments {
			segments[i] = b.Names(s)
		}
	}
	return strings.Join(segments, ".")
}

// operandStrings renders an operand; list operands (in, range) expand to
// one value each.
func operandStrings(operand any) []string {
	switch v := operand.(type) {
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = formatValue(item)
		}
		return out
	default:
		return []string{formatValue(operand)}
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
