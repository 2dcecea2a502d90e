// internal/resolve/resolve.go
package resolve

import (
	"github.com/solatis/lifter/internal/types"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

/*
 * Attribute resolution for records of unknown shape.
 *
 * A record is any value; resolution tries a small closed capability set in
 * a fixed order and the first success wins:
 *
 *   1. keyed lookup: map[string]any, map[string]string, Keyed, *structpb.Struct.
 *      A present key wins even when its value is the zero value. An absent
 *      key on a keyed record is a MissingField error, not a fallthrough.
 *   2. attribute table: Attributed, then protobuf messages by field name.
 *   3. collections ([]any, []map[string]any, Iterable, *structpb.ListValue,
 *      *ScatteredView) become a ScatteredView over their elements.
 *   4. anything else fails with *types.MissingFieldError.
 *
 * Strings are scalars here, never collections of characters.
 */

// Keyed is implemented by records that expose mapping-style access.
type Keyed interface {
	Key(name string) (any, bool)
}

// Attributed is implemented by records that expose named attributes.
type Attributed interface {
	Attr(name string) (any, bool)
}

// Iterable is implemented by records that are collections of sub-records.
type Iterable interface {
	Items() []any
}

// Attr resolves name against record.
func Attr(record any, name string) (any, error) {
	switch r := record.(type) {
	case map[string]any:
		if v, ok := r[name]; ok {
			return v, nil
		}
		return nil, missing(record, name)
	case map[string]string:
		if v, ok := r[name]; ok {
			return v, nil
		}
		return nil, missing(record, name)
	case Keyed:
		if v, ok := r.Key(name); ok {
			return v, nil
		}
		return nil, missing(record, name)
	case *structpb.Struct:
		if v, ok := r.GetFields()[name]; ok {
			return fromStructValue(v), nil
		}
		return nil, missing(record, name)
	}

	if a, ok := record.(Attributed); ok {
		if v, ok := a.Attr(name); ok {
			return v, nil
		}
	}

	switch r := record.(type) {
	case *ScatteredView:
		return r.Attr(name), nil
	case *structpb.ListValue:
		return NewView(listItems(r), name), nil
	case proto.Message:
		if v, ok := messageField(r, name); ok {
			return v, nil
		}
	case []any:
		return NewView(r, name), nil
	case []map[string]any:
		items := make([]any, len(r))
		for i := range r {
			items[i] = r[i]
		}
		return NewView(items, name), nil
	case Iterable:
		return NewView(r.Items(), name), nil
	}

	return nil, missing(record, name)
}

// Path resolves each segment in turn starting from record.
// Returns types.ErrPathTooDeep if segments exceed types.MaxPathDepth.
func Path(record any, segments []string) (any, error) {
	if len(segments) > types.MaxPathDepth {
		return nil, types.ErrPathTooDeep
	}
	current := record
	for _, seg := range segments {
		next, err := Attr(current, seg)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// SoftPath resolves like Path but reports a missing field as Missing.
// Other errors (depth) still propagate.
func SoftPath(record any, segments []string) (any, error) {
	v, err := Path(record, segments)
	if err != nil {
		if IsMissing(err) {
			return Missing, nil
		}
		return nil, err
	}
	return v, nil
}

func missing(record any, name string) error {
	return &types.MissingFieldError{Record: record, Name: name}
}
