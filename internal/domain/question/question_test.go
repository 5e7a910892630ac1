package question

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/docqa/internal/domain"
)

func TestNew_Valid(t *testing.T) {
	tests := []string{
		"What does Oxylabs provide?",
		"hello",
		"  hello  ",
		strings.Repeat("a", MaxLength),
		strings.Repeat("ж", MaxLength),
	}
	for _, raw := range tests {
		q, err := New(raw)
		if err != nil {
			t.Fatalf("New(%q): unexpected error: %v", raw, err)
		}
		if q.Text() != raw {
			t.Errorf("Text() = %q, want verbatim %q", q.Text(), raw)
		}
	}
}

func TestNew_TooShort(t *testing.T) {
	for _, raw := range []string{"", "hi", "    ", "  abcd  ", "\tab\n"} {
		_, err := New(raw)
		if err == nil {
			t.Fatalf("New(%q): expected error", raw)
		}
		if !errors.Is(err, domain.ErrInvalidQuestion) {
			t.Errorf("expected ErrInvalidQuestion, got %v", err)
		}
		if !errors.Is(err, ErrTooShort) {
			t.Errorf("expected ErrTooShort, got %v", err)
		}
	}
}

func TestNew_TooLong(t *testing.T) {
	_, err := New(strings.Repeat("a", MaxLength+1))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrInvalidQuestion) {
		t.Errorf("expected ErrInvalidQuestion, got %v", err)
	}
	if !errors.Is(err, ErrTooLong) {
		t.Errorf("expected ErrTooLong, got %v", err)
	}
}

func TestNew_MaxLengthCountsRawText(t *testing.T) {
	// 498 letters padded with spaces: trimmed length is fine, raw length is not.
	raw := "  " + strings.Repeat("a", MaxLength-1) + "  "
	if _, err := New(raw); err == nil {
		t.Fatal("expected error: raw length exceeds the maximum")
	}
}
