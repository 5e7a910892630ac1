package question

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Length bounds in characters. MinLength applies to the trimmed text,
// MaxLength to the text as submitted.
const (
	MinLength = 5
	MaxLength = 500
)

// Validation errors. Both wrap domain.ErrInvalidQuestion.
var (
	ErrTooShort = fmt.Errorf("%w: please write a longer question", domain.ErrInvalidQuestion)
	ErrTooLong  = fmt.Errorf("%w: question must be at most %d characters", domain.ErrInvalidQuestion, MaxLength)
)

// Question is a validated user question (immutable value object).
type Question struct {
	text string
}

// New validates raw and creates a Question. The text is kept verbatim;
// trimming is only used for the minimum-length check.
func New(raw string) (Question, error) {
	if utf8.RuneCountInString(raw) > MaxLength {
		return Question{}, ErrTooLong
	}
	if utf8.RuneCountInString(strings.TrimSpace(raw)) < MinLength {
		return Question{}, ErrTooShort
	}
	return Question{text: raw}, nil
}

// Text returns the question exactly as submitted.
func (q Question) Text() string { return q.text }
