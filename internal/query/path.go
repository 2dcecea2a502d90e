package query

import (
	"fmt"
	"strings"

	"github.com/solatis/lifter/internal/lookups"
	"github.com/solatis/lifter/internal/types"
)

// Path is an immutable dotted field path.
type Path struct {
	segments []string
}

// F builds a path from its segments: F("parent", "name") is parent.name.
func F(segments ...string) Path {
	out := make([]string, len(segments))
	copy(out, segments)
	return Path{segments: out}
}

// ParsePath accepts dotted (parent.name) and double-underscore
// (parent__name) notation.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, types.ErrEmptyPath
	}
	segments := strings.Split(strings.ReplaceAll(s, "__", "."), ".")
	for _, seg := range segments {
		if seg == "" {
			return Path{}, fmt.Errorf("%w: empty segment in %q", types.ErrEmptyPath, s)
		}
	}
	if len(segments) > types.MaxPathDepth {
		return Path{}, types.ErrPathTooDeep
	}
	return Path{segments: segments}, nil
}

// Segments returns a copy of the path segments.
func (p Path) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// Len returns the number of segments.
func (p Path) Len() int { return len(p.segments) }

// Child extends the path by one segment.
func (p Path) Child(name string) Path {
	return F(append(p.Segments(), name)...)
}

func (p Path) String() string { return strings.Join(p.segments, ".") }

func (p Path) leaf(kind lookups.Kind, operand any) Node {
	return &Leaf{path: p, lookup: lookups.Lookup{Kind: kind, Operand: operand}}
}

func (p Path) Eq(v any) Node  { return p.leaf(lookups.KindEq, v) }
func (p Path) Ne(v any) Node  { return p.leaf(lookups.KindNe, v) }
func (p Path) Gt(v any) Node  { return p.leaf(lookups.KindGt, v) }
func (p Path) Gte(v any) Node { return p.leaf(lookups.KindGte, v) }
func (p Path) Lt(v any) Node  { return p.leaf(lookups.KindLt, v) }
func (p Path) Lte(v any) Node { return p.leaf(lookups.KindLte, v) }

func (p Path) StartsWith(s string) Node  { return p.leaf(lookups.KindStartsWith, s) }
func (p Path) IStartsWith(s string) Node { return p.leaf(lookups.KindIStartsWith, s) }
func (p Path) EndsWith(s string) Node    { return p.leaf(lookups.KindEndsWith, s) }
func (p Path) IEndsWith(s string) Node   { return p.leaf(lookups.KindIEndsWith, s) }
func (p Path) Contains(v any) Node       { return p.leaf(lookups.KindContains, v) }
func (p Path) IContains(s string) Node   { return p.leaf(lookups.KindIContains, s) }

// In matches values equal to any of the operands.
func (p Path) In(values ...any) Node { return p.leaf(lookups.KindIn, values) }

// Range matches values in [lo, hi].
func (p Path) Range(lo, hi any) Node { return p.leaf(lookups.KindRange, []any{lo, hi}) }

// Exists matches records on which the path resolves.
func (p Path) Exists() Node { return p.leaf(lookups.KindExists, nil) }

// Test matches values satisfying pred. Queries holding an unkeyed test
// bypass the cache.
func (p Path) Test(pred lookups.Predicate) Node {
	return &Leaf{path: p, lookup: lookups.Lookup{Kind: lookups.KindTest, Test: pred}}
}

// KeyedTest is Test with a stable key standing in for pred in cache keys.
// Two predicates sharing a key must agree on every value.
func (p Path) KeyedTest(key string, pred lookups.Predicate) Node {
	return &Leaf{path: p, lookup: lookups.Lookup{Kind: lookups.KindTest, Test: pred, Key: key}}
}

// Lookup builds a leaf from a registry name, validating the operand.
func (p Path) Lookup(name string, operand any) (Node, error) {
	l, err := lookups.Named(name, operand)
	if err != nil {
		return nil, err
	}
	return &Leaf{path: p, lookup: l}, nil
}

// Asc orders ascending by the path.
func (p Path) Asc() Ordering { return Ordering{Path: p} }

// Desc orders descending by the path.
func (p Path) Desc() Ordering { return Ordering{Path: p, Reverse: true} }
