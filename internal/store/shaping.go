package store

import (
	"github.com/solatis/lifter/internal/lookups"
	"github.com/solatis/lifter/internal/query"
	"github.com/solatis/lifter/internal/resolve"
)

// Distinct drops repeated rows, keeping the first occurrence in order.
func Distinct(rows []any) []any {
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		seen := false
		for _, kept := range out {
			if lookups.Equal(row, kept) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, row)
		}
	}
	return out
}

// Project maps records to the shape selected by the projection hints:
// map rows keyed by dotted path, tuples in path order, or bare values when
// Flat is set. Fields missing under permissive resolution project as nil.
func Project(records []any, h query.Hints) ([]any, error) {
	out := make([]any, len(records))
	for i, record := range records {
		values := make([]any, len(h.Projection))
		for j, p := range h.Projection {
			v, err := projectValue(record, p, h.Permissive)
			if err != nil {
				return nil, err
			}
			values[j] = v
		}

		switch {
		case h.Flat:
			out[i] = values[0]
		case h.Mode == query.ProjectTuple:
			out[i] = values
		default:
			row := make(map[string]any, len(values))
			for j, p := range h.Projection {
				row[p.String()] = values[j]
			}
			out[i] = row
		}
	}
	return out, nil
}

func projectValue(record any, p query.Path, permissive bool) (any, error) {
	var v any
	var err error
	if permissive {
		v, err = resolve.SoftPath(record, p.Segments())
	} else {
		v, err = resolve.Path(record, p.Segments())
	}
	if err != nil {
		return nil, err
	}
	return plain(v), nil
}

// plain turns resolver sentinels into ordinary values.
func plain(v any) any {
	switch x := v.(type) {
	case *resolve.ScatteredView:
		items := x.Values()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = plain(item)
		}
		return out
	default:
		if v == resolve.Missing {
			return nil
		}
		return v
	}
}
