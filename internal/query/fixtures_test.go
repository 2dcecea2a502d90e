package query

var (
	parents = []map[string]any{
		{"name": "parent_1"},
		{"name": "parent_2"},
	}
	objects = []any{
		map[string]any{"name": "test_1", "order": 2, "a": 1, "parent": parents[0], "label": "alabama", "surname": "Mister T"},
		map[string]any{"name": "test_2", "order": 3, "a": 1, "parent": parents[0], "label": "arkansas", "surname": "Colonel"},
		map[string]any{"name": "test_3", "order": 1, "a": 2, "parent": parents[1], "label": "texas", "surname": "Lincoln"},
		map[string]any{"name": "test_4", "order": 4, "a": 2, "parent": parents[1], "label": "washington", "surname": "clint"},
	}
)

// filterIndexes returns the indexes of objects matching node.
func filterIndexes(node Node, records []any) ([]int, error) {
	var out []int
	for i, r := range records {
		ok, err := Match(node, r, false)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, i)
		}
	}
	return out, nil
}
