package naming

import "testing"

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"firstName":      "first_name",
		"FirstName":      "first_name",
		"HTTPResponse":   "http_response",
		"already_snake":  "already_snake",
		"ETag":           "e_tag",
		"LastModified":   "last_modified",
		"StorageClass":   "storage_class",
		"value2Go":       "value2_go",
		"":               "",
	}
	for in, want := range tests {
		if got := SnakeCase(in); got != want {
			t.Errorf("SnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCamelCase(t *testing.T) {
	tests := map[string]string{
		"first_name":    "firstName",
		"name":          "name",
		"order_by_date": "orderByDate",
		"":              "",
	}
	for in, want := range tests {
		if got := CamelCase(in); got != want {
			t.Errorf("CamelCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []string{"first_name", "is_active", "order_by_date"} {
		if got := SnakeCase(CamelCase(s)); got != s {
			t.Errorf("SnakeCase(CamelCase(%q)) = %q", s, got)
		}
	}
}
