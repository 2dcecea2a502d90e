// Package model declares record schemas: a named model with an immutable
// table of field descriptors.
//
// A model supplies the identity components of a cache key (app name, name),
// the remote resource name (plural or singular) and the per-field coercion
// rules adapters apply at ingestion.
package model

import (
	"fmt"
	"sort"
)

// Model is an immutable schema declaration.
type Model struct {
	name    string
	plural  string
	app     string
	fields  map[string]Field
	ordered []string
}

// Option configures a model under construction.
type Option func(*Model) error

// New builds a model. Without WithPlural the plural is name + "s".
func New(name string, opts ...Option) (*Model, error) {
	if name == "" {
		return nil, fmt.Errorf("model name is required")
	}
	m := &Model{
		name:   name,
		plural: name + "s",
		fields: make(map[string]Field),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
	}
	return m, nil
}

// MustNew is New that panics on error, for package-level declarations.
func MustNew(name string, opts ...Option) *Model {
	m, err := New(name, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// WithApp sets the application namespace.
func WithApp(app string) Option {
	return func(m *Model) error {
		m.app = app
		return nil
	}
}

// WithPlural overrides the plural resource name.
func WithPlural(plural string) Option {
	return func(m *Model) error {
		if plural == "" {
			return fmt.Errorf("plural name must not be empty")
		}
		m.plural = plural
		return nil
	}
}

// WithField registers a field descriptor.
func WithField(f Field) Option {
	return func(m *Model) error {
		if f.Name == "" {
			return fmt.Errorf("field name is required")
		}
		if _, exists := m.fields[f.Name]; exists {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		m.fields[f.Name] = f
		m.ordered = append(m.ordered, f.Name)
		return nil
	}
}

// WithFields registers several fields of the given type.
func WithFields(t FieldType, names ...string) Option {
	return func(m *Model) error {
		for _, name := range names {
			if err := WithField(Field{Name: name, Type: t})(m); err != nil {
				return err
			}
		}
		return nil
	}
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Plural returns the plural resource name.
func (m *Model) Plural() string { return m.plural }

// App returns the application namespace (may be empty).
func (m *Model) App() string { return m.app }

// Field returns the descriptor registered under name.
func (m *Model) Field(name string) (Field, bool) {
	f, ok := m.fields[name]
	return f, ok
}

// FieldNames returns field names in declaration order.
func (m *Model) FieldNames() []string {
	out := make([]string, len(m.ordered))
	copy(out, m.ordered)
	return out
}

// PrimaryKey returns the primary key field, if one was declared.
func (m *Model) PrimaryKey() (Field, bool) {
	for _, name := range m.ordered {
		if f := m.fields[name]; f.PrimaryKey {
			return f, true
		}
	}
	return Field{}, false
}

// Generic is the schema-less model used for projected and nested records.
var Generic = MustNew("model")

// Record is the record produced by adapters: a mapping of field name to value.
type Record map[string]any

// Key implements keyed resolution.
func (r Record) Key(name string) (any, bool) {
	v, ok := r[name]
	return v, ok
}

// Keys returns the record keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
