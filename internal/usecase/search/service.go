package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/docqa/internal/domain/chunk"
)

// Params holds MMR retrieval settings.
type Params struct {
	K          int     // chunks returned
	FetchK     int     // similarity candidates considered
	LambdaMult float64 // 1 = pure relevance, 0 = pure diversity
}

// Service retrieves context chunks for a question.
type Service struct {
	index  Index
	embed  Embedder
	params Params
}

// New creates a retrieval service.
func New(index Index, embed Embedder, params Params) *Service {
	return &Service{index: index, embed: embed, params: params}
}

// Retrieve embeds the query, fetches FetchK nearest chunks and re-ranks them
// with MMR down to K. Chunks are returned in selection order.
func (s *Service) Retrieve(ctx context.Context, query string) ([]chunk.Chunk, error) {
	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	candidates, err := s.index.Nearest(embResult.Embedding, s.params.FetchK)
	if err != nil {
		return nil, fmt.Errorf("nearest: %w", err)
	}

	vectors := make([][]float32, len(candidates))
	for i, c := range candidates {
		vectors[i] = c.Entry.Vector
	}

	picked := selectMMR(embResult.Embedding, vectors, s.params.K, s.params.LambdaMult)
	out := make([]chunk.Chunk, len(picked))
	for i, idx := range picked {
		e := candidates[idx].Entry
		out[i] = chunk.New(e.Source, e.Text, e.StartIndex)
	}
	return out, nil
}
