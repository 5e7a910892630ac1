package query

import (
	"context"

	domanswer "github.com/kailas-cloud/docqa/internal/domain/answer"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/domain/question"
)

// Retriever finds context chunks for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]chunk.Chunk, error)
}

// Synthesizer answers a question from context chunks.
type Synthesizer interface {
	Synthesize(ctx context.Context, q question.Question, chunks []chunk.Chunk) (domanswer.Answer, error)
}

// IndexSizer reports how many chunks the loaded index holds.
type IndexSizer interface {
	Len() int
}
