// internal/query/evaluate.go
package query

import (
	"fmt"

	"github.com/solatis/lifter/internal/lookups"
	"github.com/solatis/lifter/internal/resolve"
	"github.com/solatis/lifter/internal/types"
)

/*
 * In-process evaluation of a query tree against one record.
 *
 * Leaves resolve their path and apply the lookup. A missing field is a
 * query error and propagates, except:
 *   - exists resolves softly and answers false
 *   - permissive evaluation resolves every leaf softly
 *
 * Composites short-circuit: AND stops at the first false child, OR at the
 * first true one.
 */

// Match evaluates node against record. A nil node matches everything.
func Match(node Node, record any, permissive bool) (bool, error) {
	switch n := node.(type) {
	case nil:
		return true, nil
	case *Leaf:
		return matchLeaf(n, record, permissive)
	case *Composite:
		return matchComposite(n, record, permissive)
	default:
		return false, fmt.Errorf("unknown query node %T", node)
	}
}

func matchLeaf(l *Leaf, record any, permissive bool) (bool, error) {
	var value any
	var err error
	if permissive || l.lookup.Kind.AbsorbsMissing() {
		value, err = resolve.SoftPath(record, l.path.segments)
	} else {
		value, err = resolve.Path(record, l.path.segments)
	}
	if err != nil {
		return false, err
	}
	result := l.lookup.Match(value)
	if l.inverted {
		return !result, nil
	}
	return result, nil
}

func matchComposite(c *Composite, record any, permissive bool) (bool, error) {
	result := c.op == OpAnd
	for _, child := range c.children {
		ok, err := Match(child, record, permissive)
		if err != nil {
			return false, err
		}
		if c.op == OpAnd && !ok {
			result = false
			break
		}
		if c.op == OpOr && ok {
			result = true
			break
		}
	}
	if c.inverted {
		return !result, nil
	}
	return result, nil
}

// Validate checks every leaf for path depth and operand shape before any
// record is evaluated.
func Validate(node Node) error {
	return Walk(node, func(n Node) error {
		leaf, ok := n.(*Leaf)
		if !ok {
			return nil
		}
		if leaf.path.Len() == 0 {
			return types.ErrEmptyPath
		}
		if leaf.path.Len() > types.MaxPathDepth {
			return types.ErrPathTooDeep
		}
		if leaf.lookup.Kind == lookups.KindTest {
			if leaf.lookup.Test == nil {
				return fmt.Errorf("%w: %s has no predicate", types.ErrInvalidLookup, leaf.path)
			}
			return nil
		}
		if _, err := lookups.New(leaf.lookup.Kind, leaf.lookup.Operand); err != nil {
			return fmt.Errorf("%s: %w", leaf.path, err)
		}
		return nil
	})
}
