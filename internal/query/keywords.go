package query

import (
	"sort"
	"strings"

	"github.com/solatis/lifter/internal/lookups"
)

// Keyword builds a leaf from "path__lookup" notation. A trailing segment
// naming a registered lookup selects it; otherwise the lookup is eq.
//
//	Keyword("a__gte", 1)               a >= 1
//	Keyword("parent__name", "x")       parent.name == "x"
//	Keyword("name__istartswith", "t")  name istartswith "t"
func Keyword(key string, value any) (Node, error) {
	parts := strings.Split(key, "__")
	if len(parts) > 1 {
		if _, ok := lookups.ByName(parts[len(parts)-1]); ok {
			p, err := ParsePath(strings.Join(parts[:len(parts)-1], "."))
			if err != nil {
				return nil, err
			}
			if parts[len(parts)-1] == "exists" {
				node := p.Exists()
				if b, ok := value.(bool); ok && !b {
					return node.Invert(), nil
				}
				return node, nil
			}
			return p.Lookup(parts[len(parts)-1], value)
		}
	}
	p, err := ParsePath(key)
	if err != nil {
		return nil, err
	}
	return p.Eq(value), nil
}

// Keywords AND-combines one leaf per key, in sorted key order so the
// resulting tree (and its hash) does not depend on map iteration.
func Keywords(kw map[string]any) (Node, error) {
	keys := make([]string, 0, len(kw))
	for k := range kw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	nodes := make([]Node, 0, len(keys))
	for _, k := range keys {
		n, err := Keyword(k, kw[k])
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return And(nodes...), nil
}
