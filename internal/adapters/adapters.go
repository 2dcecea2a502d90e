// internal/adapters/adapters.go
package adapters

import (
	"fmt"
	"regexp"

	"github.com/solatis/lifter/internal/model"
	"github.com/solatis/lifter/internal/naming"
	"github.com/solatis/lifter/internal/parsers"
	"github.com/solatis/lifter/internal/types"
	"github.com/xeipuuv/gojsonschema"
)

/*
 * Adapters turn raw backend items into model records.
 *
 * Every adapter runs the same pipeline:
 *   1. extract a name→value mapping from the raw item
 *   2. rename keys with the naming converter (snake_case by default)
 *   3. clean each value: a registered cleaner wins, then the model's
 *      field coercion, else the value passes through
 *
 * The result is a model.Record. Extraction differs per adapter: maps are
 * taken as-is (optionally under a key, optionally schema-validated), strings
 * are matched against a regular expression's named groups, XML elements
 * contribute one entry per child element.
 */

// Adapter converts a raw item into a record of m.
type Adapter interface {
	Adapt(raw any, m *model.Model) (any, error)
}

// Cleaner rewrites one field value. raw is the renamed mapping being
// cleaned.
type Cleaner func(raw map[string]any, value any) (any, error)

// base carries the renaming and cleaning stages.
type base struct {
	names    naming.Converter
	cleaners map[string]Cleaner
}

// Option configures an adapter.
type Option func(*base)

// WithNames replaces the key converter. naming.Identity keeps keys as-is.
func WithNames(c naming.Converter) Option {
	return func(b *base) { b.names = c }
}

// WithCleaner registers a cleaner for the field name (after renaming).
func WithCleaner(field string, fn Cleaner) Option {
	return func(b *base) { b.cleaners[field] = fn }
}

func newBase(opts []Option) base {
	b := base{names: naming.SnakeCase, cleaners: make(map[string]Cleaner)}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b base) finish(raw map[string]any, m *model.Model) (model.Record, error) {
	renamed := make(map[string]any, len(raw))
	for k, v := range raw {
		renamed[b.names(k)] = v
	}

	out := make(model.Record, len(renamed))
	for k, v := range renamed {
		if clean, ok := b.cleaners[k]; ok {
			cleaned, err := clean(renamed, v)
			if err != nil {
				return nil, fmt.Errorf("%w: clean %s: %w", types.ErrInvalidRecord, k, err)
			}
			out[k] = cleaned
			continue
		}
		if m != nil {
			if f, ok := m.Field(k); ok {
				coerced, err := f.Coerce(v)
				if err != nil {
					return nil, fmt.Errorf("%w: %w", types.ErrInvalidRecord, err)
				}
				out[k] = coerced
				continue
			}
		}
		out[k] = v
	}
	return out, nil
}

// Map adapts map[string]any items.
type Map struct {
	base
	recursive bool
	key       string
	schema    *gojsonschema.Schema
}

// MapOption configures a Map adapter.
type MapOption func(*Map) error

// Recursive converts nested maps to records of the generic model.
func Recursive(on bool) MapOption {
	return func(a *Map) error {
		a.recursive = on
		return nil
	}
}

// UnderKey adapts only the mapping stored under key.
func UnderKey(key string) MapOption {
	return func(a *Map) error {
		a.key = key
		return nil
	}
}

// WithSchema validates each raw item against a JSON Schema document.
func WithSchema(schema string) MapOption {
	return func(a *Map) error {
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
		if err != nil {
			return fmt.Errorf("invalid schema: %w", err)
		}
		a.schema = s
		return nil
	}
}

// NewMap builds a map adapter. Recursion is on by default.
func NewMap(mapOpts []MapOption, opts ...Option) (*Map, error) {
	a := &Map{base: newBase(opts), recursive: true}
	for _, opt := range mapOpts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Default is the adapter stores use when none is configured.
func Default() *Map {
	a, _ := NewMap(nil)
	return a
}

func (a *Map) Adapt(raw any, m *model.Model) (any, error) {
	data, ok := asMap(raw)
	if !ok {
		return nil, fmt.Errorf("%w: expected a mapping, got %T", types.ErrInvalidRecord, raw)
	}
	if a.key != "" {
		inner, ok := asMap(data[a.key])
		if !ok {
			return nil, fmt.Errorf("%w: no mapping under key %q", types.ErrInvalidRecord, a.key)
		}
		data = inner
	}
	if err := a.validate(data); err != nil {
		return nil, err
	}

	if a.recursive {
		converted := make(map[string]any, len(data))
		for k, v := range data {
			if _, nested := asMap(v); nested {
				r, err := a.adaptNested(v)
				if err != nil {
					return nil, err
				}
				v = r
			}
			converted[k] = v
		}
		data = converted
	}
	return a.finish(data, m)
}

func (a *Map) adaptNested(v any) (any, error) {
	// Nested records carry no schema of their own.
	nested := &Map{base: a.base, recursive: true}
	return nested.Adapt(v, model.Generic)
}

func (a *Map) validate(data map[string]any) error {
	if a.schema == nil {
		return nil
	}
	result, err := a.schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return fmt.Errorf("%w: %v", types.ErrInvalidRecord, errs)
	}
	return nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case model.Record:
		return m, true
	default:
		return nil, false
	}
}

// Regex adapts strings through a pattern's named groups.
type Regex struct {
	base
	pattern *regexp.Regexp
}

// NewRegex compiles pattern. Only named groups become fields.
func NewRegex(pattern string, opts ...Option) (*Regex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	return &Regex{base: newBase(opts), pattern: re}, nil
}

func (a *Regex) Adapt(raw any, m *model.Model) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: expected a string, got %T", types.ErrInvalidRecord, raw)
	}
	match := a.pattern.FindStringSubmatchIndex(s)
	if match == nil || match[0] != 0 {
		return nil, fmt.Errorf("%w: %q does not match %s", types.ErrInvalidRecord, s, a.pattern)
	}

	data := make(map[string]any)
	for i, name := range a.pattern.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		if match[2*i] < 0 {
			data[name] = nil
			continue
		}
		data[name] = s[match[2*i]:match[2*i+1]]
	}
	return a.finish(data, m)
}

// XML adapts *parsers.Element items: each child element becomes a field
// named after its local tag, valued by its text.
type XML struct {
	base
}

// NewXML builds an XML element adapter.
func NewXML(opts ...Option) *XML {
	return &XML{base: newBase(opts)}
}

func (a *XML) Adapt(raw any, m *model.Model) (any, error) {
	e, ok := raw.(*parsers.Element)
	if !ok {
		return nil, fmt.Errorf("%w: expected an XML element, got %T", types.ErrInvalidRecord, raw)
	}
	data := make(map[string]any, len(e.Children))
	for _, c := range e.Children {
		data[c.Local] = c.Text
	}
	return a.finish(data, m)
}
