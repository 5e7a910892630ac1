package document

import "fmt"

// Document is a loaded corpus file (immutable value object).
type Document struct {
	source string
	text   string
}

// New validates and creates a Document. source is the file path the text was read from.
// Empty text is allowed: an empty file yields a document with zero chunks.
func New(source, text string) (Document, error) {
	if source == "" {
		return Document{}, fmt.Errorf("document source is required")
	}
	return Document{source: source, text: text}, nil
}

// Source returns the path the document was loaded from.
func (d Document) Source() string { return d.source }

// Text returns the full document text.
func (d Document) Text() string { return d.text }
