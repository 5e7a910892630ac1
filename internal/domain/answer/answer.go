package answer

import "github.com/kailas-cloud/docqa/internal/domain/chunk"

// Answer is a synthesized answer together with the chunks it was generated from.
type Answer struct {
	text    string
	context []chunk.Chunk
}

// New creates an Answer.
func New(text string, context []chunk.Chunk) Answer {
	return Answer{text: text, context: context}
}

// Text returns the generated answer.
func (a Answer) Text() string { return a.text }

// Context returns the chunks that were put into the prompt, in retrieval order.
func (a Answer) Context() []chunk.Chunk { return a.context }

// Sources returns the unique source paths of the context chunks,
// keeping the order of first appearance.
func (a Answer) Sources() []string {
	sources := make([]string, 0, len(a.context))
	seen := make(map[string]struct{}, len(a.context))
	for _, c := range a.context {
		src := c.Source()
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		sources = append(sources, src)
	}
	return sources
}
