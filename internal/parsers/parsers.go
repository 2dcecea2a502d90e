// internal/parsers/parsers.go
package parsers

import (
	"bufio"
	"bytes"
	"fmt"
	"mime"
	"strings"

	"github.com/goccy/go-json"
)

/*
 * Parsers turn a fetched payload into a list of raw items for an adapter.
 *
 * Each parser returns []any. JSON payloads yield their top-level array, or
 * a one-item list for any other document; the REST store and document
 * store unwrap envelopes with ResultsKey before adapting. Lines yields one
 * string per non-empty line. XML yields *Element values selected by a
 * path below the root.
 */

// Parser decodes a payload into raw items.
type Parser interface {
	Parse(content []byte) ([]any, error)
}

// Func adapts a function to Parser.
type Func func(content []byte) ([]any, error)

func (f Func) Parse(content []byte) ([]any, error) { return f(content) }

// JSON decodes JSON documents.
type JSON struct {
	// ResultsKey, when set, selects the item list under this top-level key.
	ResultsKey string
}

func (p JSON) Parse(content []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	doc = normalizeNumbers(doc)

	if p.ResultsKey != "" {
		obj, ok := doc.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("results key %q on non-object document", p.ResultsKey)
		}
		inner, ok := obj[p.ResultsKey]
		if !ok {
			return nil, fmt.Errorf("results key %q not found", p.ResultsKey)
		}
		doc = inner
	}

	if items, ok := doc.([]any); ok {
		return items, nil
	}
	return []any{doc}, nil
}

// normalizeNumbers turns json.Number into int64 where exact, else float64.
func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = normalizeNumbers(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalizeNumbers(x[k])
		}
		return x
	default:
		return v
	}
}

// Lines splits text into non-empty lines.
type Lines struct{}

func (Lines) Parse(content []byte) ([]any, error) {
	var items []any
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		items = append(items, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lines: %w", err)
	}
	return items, nil
}

// ForContentType picks a parser from a Content-Type header. Unknown types
// fall back to JSON.
func ForContentType(contentType string, resultsKey string) Parser {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case strings.HasSuffix(mediaType, "/xml"), strings.HasSuffix(mediaType, "+xml"):
		return XML{}
	case mediaType == "text/plain":
		return Lines{}
	default:
		return JSON{ResultsKey: resultsKey}
	}
}
