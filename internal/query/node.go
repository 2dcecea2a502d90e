// internal/query/node.go
package query

import (
	"fmt"
	"strings"

	"github.com/solatis/lifter/internal/lookups"
)

/*
 * Immutable boolean query tree.
 *
 * A Leaf binds a path to a lookup; a Composite joins subqueries with AND or
 * OR. Every node carries its own inverted flag which negates that node's
 * result only. Combinators never mutate their operands:
 *
 *   - Invert returns a copy with the flag toggled (double negation cancels)
 *   - And/Or on a non-inverted composite of the same operator append the
 *     other node as a new child; otherwise a fresh composite wraps both
 */

// Operator joins composite subqueries.
type Operator int

const (
	OpAnd Operator = iota
	OpOr
)

func (o Operator) String() string {
	if o == OpOr {
		return "OR"
	}
	return "AND"
}

// Node is a leaf or a composite.
type Node interface {
	Inverted() bool
	Invert() Node
	And(other Node) Node
	Or(other Node) Node
	String() string
}

// Leaf is a single path + lookup condition.
type Leaf struct {
	path     Path
	lookup   lookups.Lookup
	inverted bool
}

// NewLeaf binds a validated lookup to a path.
func NewLeaf(path Path, lookup lookups.Lookup) *Leaf {
	return &Leaf{path: path, lookup: lookup}
}

func (l *Leaf) Path() Path             { return l.path }
func (l *Leaf) Lookup() lookups.Lookup { return l.lookup }
func (l *Leaf) Inverted() bool         { return l.inverted }

func (l *Leaf) Invert() Node {
	c := *l
	c.inverted = !l.inverted
	return &c
}

func (l *Leaf) And(other Node) Node { return combine(OpAnd, l, other) }
func (l *Leaf) Or(other Node) Node  { return combine(OpOr, l, other) }

func (l *Leaf) String() string {
	var s string
	switch l.lookup.Kind {
	case lookups.KindExists:
		s = fmt.Sprintf("%s exists", l.path)
	case lookups.KindTest:
		s = fmt.Sprintf("%s test", l.path)
	default:
		s = fmt.Sprintf("%s %s %v", l.path, l.lookup.Kind, l.lookup.Operand)
	}
	if l.inverted {
		return "NOT (" + s + ")"
	}
	return s
}

// Composite is an AND/OR combination of subqueries.
type Composite struct {
	op       Operator
	children []Node
	inverted bool
}

func (c *Composite) Operator() Operator { return c.op }
func (c *Composite) Inverted() bool     { return c.inverted }

// Children returns a copy of the subqueries.
func (c *Composite) Children() []Node {
	out := make([]Node, len(c.children))
	copy(out, c.children)
	return out
}

func (c *Composite) Invert() Node {
	return &Composite{op: c.op, children: c.children, inverted: !c.inverted}
}

func (c *Composite) And(other Node) Node { return combine(OpAnd, c, other) }
func (c *Composite) Or(other Node) Node  { return combine(OpOr, c, other) }

func (c *Composite) String() string {
	parts := make([]string, len(c.children))
	for i, child := range c.children {
		parts[i] = child.String()
	}
	s := "(" + strings.Join(parts, " "+c.op.String()+" ") + ")"
	if c.inverted {
		return "NOT " + s
	}
	return s
}

func combine(op Operator, left, right Node) Node {
	if right == nil {
		return left
	}
	if c, ok := left.(*Composite); ok && c.op == op && !c.inverted {
		if _, isLeaf := right.(*Leaf); isLeaf {
			children := make([]Node, len(c.children), len(c.children)+1)
			copy(children, c.children)
			return &Composite{op: op, children: append(children, right)}
		}
	}
	return &Composite{op: op, children: []Node{left, right}}
}

// And folds nodes into a conjunction. Nil nodes are skipped; the result is
// nil when no node remains.
func And(nodes ...Node) Node { return fold(OpAnd, nodes) }

// Or folds nodes into a disjunction.
func Or(nodes ...Node) Node { return fold(OpOr, nodes) }

// Not inverts node.
func Not(node Node) Node { return node.Invert() }

func fold(op Operator, nodes []Node) Node {
	var acc Node
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if acc == nil {
			acc = n
			continue
		}
		acc = combine(op, acc, n)
	}
	return acc
}

// Walk visits node and its descendants depth-first. Returning an error
// from fn stops the walk.
func Walk(node Node, fn func(Node) error) error {
	if node == nil {
		return nil
	}
	if err := fn(node); err != nil {
		return err
	}
	if c, ok := node.(*Composite); ok {
		for _, child := range c.children {
			if err := Walk(child, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
