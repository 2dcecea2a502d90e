package model

import "testing"

func TestNew(t *testing.T) {
	m, err := New("user",
		WithApp("myapp"),
		WithField(Field{Name: "id", Type: FieldTypeInteger, PrimaryKey: true}),
		WithFields(FieldTypeText, "name", "email"),
	)
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	if m.Name() != "user" || m.Plural() != "users" || m.App() != "myapp" {
		t.Errorf("New() = %s/%s/%s, want user/users/myapp", m.Name(), m.Plural(), m.App())
	}
	names := m.FieldNames()
	if len(names) != 3 || names[0] != "id" || names[2] != "email" {
		t.Errorf("FieldNames() = %v, want [id name email]", names)
	}
	pk, ok := m.PrimaryKey()
	if !ok || pk.Name != "id" {
		t.Errorf("PrimaryKey() = %v, %v, want id", pk, ok)
	}
	if f, ok := m.Field("name"); !ok || f.Type != FieldTypeText {
		t.Errorf("Field(name) = %v, %v", f, ok)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name  string
		model string
		opts  []Option
	}{
		{"empty name", "", nil},
		{"empty plural", "user", []Option{WithPlural("")}},
		{"duplicate field", "user", []Option{WithFields(FieldTypeAny, "a", "a")}},
		{"unnamed field", "user", []Option{WithField(Field{})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.model, tt.opts...); err == nil {
				t.Errorf("New() error = nil, want error")
			}
		})
	}
}

func TestRecordKey(t *testing.T) {
	r := Record{"b": 2, "a": 1}
	if v, ok := r.Key("a"); !ok || v != 1 {
		t.Errorf("Key(a) = %v, %v", v, ok)
	}
	if _, ok := r.Key("c"); ok {
		t.Errorf("Key(c) found, want missing")
	}
	if keys := r.Keys(); keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Keys() = %v, want sorted", keys)
	}
}
