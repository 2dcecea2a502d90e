// internal/model/coercion.go
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/solatis/lifter/internal/types"
)

/*
 * Field coercion applied by adapters at ingestion time.
 *
 * Type modes:
 *   - INTEGER: strict, numeric strings and whole floats become int64
 *   - NUMERIC: strict, numbers and numeric strings become float64
 *   - TEXT: lenient, everything becomes its string form
 *   - BOOLEAN: strict, bool only ("true"/"false" strings accepted)
 *   - DATE / DATETIME: strings parsed with the field layout into time.Time
 *   - ANY: value passes through unchanged
 *
 * Null values stay nil for every type; they are never a coercion failure.
 */

// FieldType selects the coercion applied to a field.
type FieldType int

const (
	FieldTypeAny FieldType = iota
	FieldTypeInteger
	FieldTypeNumeric
	FieldTypeText
	FieldTypeBoolean
	FieldTypeDate
	FieldTypeDateTime
)

// Default layouts for date fields.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = time.RFC3339
)

// Field describes one attribute of a model.
type Field struct {
	Name       string
	Type       FieldType
	PrimaryKey bool
	Layout     string // time layout for date fields; defaults per type
}

// Coerce converts a raw value to the field's declared type.
func (f Field) Coerce(value any) (any, error) {
	v, err := Coerce(value, f.Type, f.Layout)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.Name, err)
	}
	return v, nil
}

// Coerce converts value to fieldType. layout is used by date types; an empty
// layout selects the default.
func Coerce(value any, fieldType FieldType, layout string) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch fieldType {
	case FieldTypeAny:
		return value, nil
	case FieldTypeInteger:
		return coerceInteger(value)
	case FieldTypeNumeric:
		return coerceNumeric(value)
	case FieldTypeText:
		return coerceText(value), nil
	case FieldTypeBoolean:
		return coerceBoolean(value)
	case FieldTypeDate:
		if layout == "" {
			layout = DateLayout
		}
		return coerceTime(value, layout, true)
	case FieldTypeDateTime:
		return coerceDateTime(value, layout)
	default:
		return nil, types.ErrCoercionFailed
	}
}

func coerceInteger(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != float64(int64(v)) {
			return nil, types.ErrCoercionFailed
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, types.ErrCoercionFailed
		}
		return n, nil
	default:
		return nil, types.ErrCoercionFailed
	}
}

// coerceNumeric rejects booleans and whitespace-only strings.
func coerceNumeric(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, types.ErrCoercionFailed
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, types.ErrCoercionFailed
		}
		return f, nil
	default:
		return nil, types.ErrCoercionFailed
	}
}

func coerceText(value any) any {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func coerceBoolean(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return nil, types.ErrCoercionFailed
}

func coerceDateTime(value any, layout string) (any, error) {
	if layout != "" {
		return coerceTime(value, layout, false)
	}
	if t, err := coerceTime(value, DateTimeLayout, false); err == nil {
		return t, nil
	}
	return coerceTime(value, DateLayout, false)
}

func coerceTime(value any, layout string, truncate bool) (any, error) {
	switch v := value.(type) {
	case time.Time:
		if truncate {
			return v.Truncate(24 * time.Hour), nil
		}
		return v, nil
	case string:
		t, err := time.Parse(layout, strings.TrimSpace(v))
		if err != nil {
			return nil, types.ErrCoercionFailed
		}
		return t, nil
	default:
		return nil, types.ErrCoercionFailed
	}
}
