package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		check   func(t *testing.T, out string)
	}{
		{
			name: "json default",
			cfg:  Config{},
			check: func(t *testing.T, out string) {
				if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"msg":"hello"`) {
					t.Errorf("output = %q, want JSON", out)
				}
			},
		},
		{
			name: "text",
			cfg:  Config{Level: "INFO", Format: "text"},
			check: func(t *testing.T, out string) {
				if !strings.Contains(out, "msg=hello") {
					t.Errorf("output = %q, want text", out)
				}
			},
		},
		{
			name: "level filters",
			cfg:  Config{Level: "error"},
			check: func(t *testing.T, out string) {
				if out != "" {
					t.Errorf("output = %q, want nothing below error", out)
				}
			},
		},
		{name: "bad level", cfg: Config{Level: "loud"}, wantErr: true},
		{name: "bad format", cfg: Config{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(&buf, tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			l.Info("hello")
			tt.check(t, buf.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	if l, _ := ParseLevel("Debug"); l != slog.LevelDebug {
		t.Errorf("ParseLevel(Debug) = %v", l)
	}
	if l, _ := ParseLevel("warning"); l != slog.LevelWarn {
		t.Errorf("ParseLevel(warning) = %v", l)
	}
	if OrDiscard(nil) == nil {
		t.Error("OrDiscard(nil) = nil")
	}
}
