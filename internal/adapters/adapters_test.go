package adapters

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/solatis/lifter/internal/model"
	"github.com/solatis/lifter/internal/naming"
	"github.com/solatis/lifter/internal/parsers"
	"github.com/solatis/lifter/internal/types"
)

var logEntry = model.MustNew("logentry")

func TestMap_Adapt(t *testing.T) {
	user := model.MustNew("user",
		model.WithField(model.Field{Name: "age", Type: model.FieldTypeInteger}),
	)

	t.Run("renames and coerces", func(t *testing.T) {
		got, err := Default().Adapt(map[string]any{"firstName": "Ada", "age": "36"}, user)
		if err != nil {
			t.Fatalf("Adapt() error = %v, want nil", err)
		}
		r := got.(model.Record)
		if r["first_name"] != "Ada" {
			t.Errorf("first_name = %v, want Ada", r["first_name"])
		}
		if r["age"] != int64(36) {
			t.Errorf("age = %#v, want int64(36)", r["age"])
		}
	})

	t.Run("recursive", func(t *testing.T) {
		got, err := Default().Adapt(map[string]any{"parent": map[string]any{"userName": "p"}}, user)
		if err != nil {
			t.Fatalf("Adapt() error = %v, want nil", err)
		}
		parent, ok := got.(model.Record)["parent"].(model.Record)
		if !ok || parent["user_name"] != "p" {
			t.Errorf("parent = %#v, want record with user_name", got.(model.Record)["parent"])
		}
	})

	t.Run("not recursive keeps nested maps", func(t *testing.T) {
		a, err := NewMap([]MapOption{Recursive(false)}, WithNames(naming.Identity))
		if err != nil {
			t.Fatalf("NewMap() error = %v, want nil", err)
		}
		got, _ := a.Adapt(map[string]any{"parentObj": map[string]any{"x": 1}}, user)
		if _, ok := got.(model.Record)["parentObj"].(map[string]any); !ok {
			t.Errorf("parentObj = %T, want map[string]any", got.(model.Record)["parentObj"])
		}
	})

	t.Run("under key", func(t *testing.T) {
		a, _ := NewMap([]MapOption{UnderKey("data")})
		got, err := a.Adapt(map[string]any{"data": map[string]any{"age": 3}}, user)
		if err != nil {
			t.Fatalf("Adapt() error = %v, want nil", err)
		}
		if got.(model.Record)["age"] != int64(3) {
			t.Errorf("age = %#v", got.(model.Record)["age"])
		}
		if _, err := a.Adapt(map[string]any{"other": 1}, user); !errors.Is(err, types.ErrInvalidRecord) {
			t.Errorf("Adapt() without key error = %v, want ErrInvalidRecord", err)
		}
	})

	t.Run("coercion failure", func(t *testing.T) {
		_, err := Default().Adapt(map[string]any{"age": "old"}, user)
		if !errors.Is(err, types.ErrInvalidRecord) || !errors.Is(err, types.ErrCoercionFailed) {
			t.Errorf("Adapt() error = %v, want ErrInvalidRecord wrapping ErrCoercionFailed", err)
		}
	})

	t.Run("non-map input", func(t *testing.T) {
		if _, err := Default().Adapt("text", user); !errors.Is(err, types.ErrInvalidRecord) {
			t.Errorf("Adapt() error = %v, want ErrInvalidRecord", err)
		}
	})
}

func TestMap_Schema(t *testing.T) {
	schema := `{
		"type": "object",
		"required": ["name"],
		"properties": {"name": {"type": "string"}, "age": {"type": "integer"}}
	}`
	a, err := NewMap([]MapOption{WithSchema(schema)})
	if err != nil {
		t.Fatalf("NewMap() error = %v, want nil", err)
	}

	if _, err := a.Adapt(map[string]any{"name": "x", "age": 3}, model.Generic); err != nil {
		t.Errorf("Adapt(valid) error = %v, want nil", err)
	}
	if _, err := a.Adapt(map[string]any{"age": 3}, model.Generic); !errors.Is(err, types.ErrInvalidRecord) {
		t.Errorf("Adapt(missing name) error = %v, want ErrInvalidRecord", err)
	}
	if _, err := NewMap([]MapOption{WithSchema(`{"type": 12}`)}); err == nil {
		t.Error("NewMap() with invalid schema succeeded")
	}
}

func TestRegex_Adapt(t *testing.T) {
	a, err := NewRegex(`(?P<level>.*) - (?P<date>.*) - (?P<message>.*)`,
		WithCleaner("date", func(_ map[string]any, v any) (any, error) {
			parts := strings.Split(v.(string), "/")
			if len(parts) != 3 {
				return nil, errors.New("bad date")
			}
			year, _ := strconv.Atoi(parts[0])
			month, _ := strconv.Atoi(parts[1])
			day, _ := strconv.Atoi(parts[2])
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
		}),
	)
	if err != nil {
		t.Fatalf("NewRegex() error = %v, want nil", err)
	}

	got, err := a.Adapt("INFO - 2016/3/23 - Something happened", logEntry)
	if err != nil {
		t.Fatalf("Adapt() error = %v, want nil", err)
	}
	r := got.(model.Record)
	if r["level"] != "INFO" || r["message"] != "Something happened" {
		t.Errorf("Adapt() = %v", r)
	}
	if !r["date"].(time.Time).Equal(time.Date(2016, 3, 23, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", r["date"])
	}

	if _, err := a.Adapt("no separators here", logEntry); !errors.Is(err, types.ErrInvalidRecord) {
		t.Errorf("Adapt(non-matching) error = %v, want ErrInvalidRecord", err)
	}
	if _, err := a.Adapt("X - 2016 - m", logEntry); !errors.Is(err, types.ErrInvalidRecord) {
		t.Errorf("Adapt(bad date) error = %v, want ErrInvalidRecord", err)
	}
	if _, err := NewRegex(`(`); err == nil {
		t.Error("NewRegex() with invalid pattern succeeded")
	}
}

func TestXML_Adapt(t *testing.T) {
	items, err := parsers.XML{Path: "Contents"}.Parse([]byte(`<R><Contents><Key>a.txt</Key><LastModified>2016-01-01</LastModified></Contents></R>`))
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}
	file := model.MustNew("staticfile",
		model.WithField(model.Field{Name: "last_modified", Type: model.FieldTypeDate}),
	)

	got, err := NewXML().Adapt(items[0], file)
	if err != nil {
		t.Fatalf("Adapt() error = %v, want nil", err)
	}
	r := got.(model.Record)
	if r["key"] != "a.txt" {
		t.Errorf("key = %v, want a.txt", r["key"])
	}
	if d, ok := r["last_modified"].(time.Time); !ok || d.Year() != 2016 {
		t.Errorf("last_modified = %#v, want a 2016 date", r["last_modified"])
	}

	if _, err := NewXML().Adapt("x", file); !errors.Is(err, types.ErrInvalidRecord) {
		t.Errorf("Adapt(string) error = %v, want ErrInvalidRecord", err)
	}
}
