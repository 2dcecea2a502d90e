package query

import (
	"errors"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/solatis/lifter/internal/lookups"
)

// Hash returns a stable structural hash of q as 16 hex characters.
//
// The hash is order-sensitive: And(p, q) and And(q, p) hash differently.
// Test predicates hash by key and reducers by name, so the hash only
// identifies results when Cacheable reports true.
func (q Query) Hash() string {
	d := xxhash.New()
	fmt.Fprintf(d, "action=%s;", q.Action)
	writeNode(d, q.Filters)
	for _, o := range q.Orderings {
		fmt.Fprintf(d, "order=%s;", o)
	}
	if q.Window != nil {
		fmt.Fprintf(d, "window=%d:%d;", q.Window.Start, q.Window.Stop)
	}
	h := q.Hints
	fmt.Fprintf(d, "hints=%t,%t,%t,%d,%t;", h.ForceSingle, h.Distinct, h.Permissive, h.Mode, h.Flat)
	for _, p := range h.Projection {
		fmt.Fprintf(d, "project=%s;", p)
	}
	for _, a := range h.Aggregates {
		fmt.Fprintf(d, "agg=%s|%s|%s|%t;", a.Key(), a.Path, a.Name, a.builtin)
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

func writeNode(w io.Writer, node Node) {
	switch n := node.(type) {
	case nil:
		io.WriteString(w, "nil;")
	case *Leaf:
		fmt.Fprintf(w, "L(%t|%s|%s|", n.inverted, n.path, n.lookup.Kind)
		if n.lookup.Kind == lookups.KindTest {
			fmt.Fprintf(w, "key=%q", n.lookup.Key)
		} else {
			fmt.Fprintf(w, "%T=%#v", n.lookup.Operand, n.lookup.Operand)
		}
		io.WriteString(w, ");")
	case *Composite:
		fmt.Fprintf(w, "C(%t|%s|%d|", n.inverted, n.op, len(n.children))
		for _, child := range n.children {
			writeNode(w, child)
		}
		io.WriteString(w, ");")
	}
}

// Cacheable reports whether every test predicate in the filters carries a
// key. Without one the hash cannot tell two predicates apart.
func (q Query) Cacheable() bool {
	err := Walk(q.Filters, func(n Node) error {
		if leaf, ok := n.(*Leaf); ok && leaf.lookup.Kind == lookups.KindTest && leaf.lookup.Key == "" {
			return errUnkeyed
		}
		return nil
	})
	return err == nil
}

var errUnkeyed = errors.New("unkeyed test predicate")
