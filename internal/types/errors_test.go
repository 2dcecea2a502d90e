package types

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestStatusError_Unwrap(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{400, ErrBadQuery},
		{404, ErrBadQuery},
		{499, ErrBadQuery},
		{500, ErrStoreError},
		{503, ErrStoreError},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &StatusError{URL: "http://x", StatusCode: tt.status})
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false, want true", err, tt.want)
			}
		})
	}
}

func TestMissingFieldError(t *testing.T) {
	err := error(&MissingFieldError{Record: map[string]any{}, Name: "a"})
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("errors.Is(ErrMissingField) = false, want true")
	}
	var mf *MissingFieldError
	if !errors.As(err, &mf) || mf.Name != "a" {
		t.Errorf("errors.As() name = %v, want a", mf)
	}
}

func TestNewRequestID(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := NewRequestID()
	ts := RequestIDTime(id)
	if ts.IsZero() {
		t.Fatalf("RequestIDTime(%q) is zero", id)
	}
	if ts.Before(before) {
		t.Errorf("RequestIDTime() = %v, want after %v", ts, before)
	}
	if !RequestIDTime("not-a-uuid").IsZero() {
		t.Errorf("RequestIDTime(invalid) should be zero")
	}
}

func TestActionValid(t *testing.T) {
	for _, a := range []Action{ActionSelect, ActionCount, ActionExists, ActionValues, ActionAggregate} {
		if !a.Valid() {
			t.Errorf("%q.Valid() = false, want true", a)
		}
	}
	if Action("delete").Valid() {
		t.Errorf("delete.Valid() = true, want false")
	}
}
