package observability

import (
	"errors"
	"testing"
	"time"
)

func TestFieldConstructors(t *testing.T) {
	err := errors.New("boom")
	cases := []struct {
		field Field
		key   string
		value interface{}
	}{
		{String("name", "a.pdf"), "name", "a.pdf"},
		{Int("workers", 4), "workers", 4},
		{Int64("bytes", 1024), "bytes", int64(1024)},
		{Bool("ocr", true), "ocr", true},
		{Duration("took", time.Second), "took", time.Second},
		{Error("err", err), "err", error(err)},
	}
	for _, c := range cases {
		if c.field.Key() != c.key {
			t.Fatalf("key = %q, want %q", c.field.Key(), c.key)
		}
		if c.field.Value() != c.value {
			t.Fatalf("value for %q = %v, want %v", c.key, c.field.Value(), c.value)
		}
	}
}

func TestNopLoggerWith(t *testing.T) {
	var l Logger = NopLogger{}
	l2 := l.With(String("k", "v"))
	if l2 == nil {
		t.Fatalf("With returned nil logger")
	}
	l2.Info("ignored", Int("n", 1))
}
