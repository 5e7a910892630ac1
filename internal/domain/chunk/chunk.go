package chunk

// Chunk is a contiguous piece of a source document produced by the splitter.
type Chunk struct {
	source     string
	text       string
	startIndex int
}

// New creates a Chunk. startIndex is the character offset of text in the
// source document, or -1 when it could not be located.
func New(source, text string, startIndex int) Chunk {
	return Chunk{source: source, text: text, startIndex: startIndex}
}

// Source returns the path of the document the chunk was cut from.
func (c Chunk) Source() string { return c.source }

// Text returns the chunk text.
func (c Chunk) Text() string { return c.text }

// StartIndex returns the character offset of the chunk within its document.
func (c Chunk) StartIndex() int { return c.startIndex }
