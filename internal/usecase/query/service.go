package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/docqa/internal/domain"
	domanswer "github.com/kailas-cloud/docqa/internal/domain/answer"
	"github.com/kailas-cloud/docqa/internal/domain/question"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// Service runs the retrieval-augmented answer pipeline for one question.
type Service struct {
	index     IndexSizer
	retriever Retriever
	answers   Synthesizer
}

// New creates a query service.
func New(index IndexSizer, retriever Retriever, answers Synthesizer) *Service {
	return &Service{index: index, retriever: retriever, answers: answers}
}

// Ask validates raw, retrieves context and synthesizes an answer.
// Validation failures return domain.ErrInvalidQuestion before any provider
// is called; an index without entries returns domain.ErrEmptyIndex.
func (s *Service) Ask(ctx context.Context, raw string) (domanswer.Answer, error) {
	ans, err := s.ask(ctx, raw)
	metrics.QueriesTotal.WithLabelValues(outcome(err)).Inc()
	return ans, err
}

func (s *Service) ask(ctx context.Context, raw string) (domanswer.Answer, error) {
	q, err := question.New(raw)
	if err != nil {
		return domanswer.Answer{}, err //nolint:wrapcheck // already a domain error
	}

	if s.index.Len() == 0 {
		return domanswer.Answer{}, domain.ErrEmptyIndex
	}

	chunks, err := s.retriever.Retrieve(ctx, q.Text())
	if err != nil {
		return domanswer.Answer{}, fmt.Errorf("retrieve: %w", err)
	}

	ans, err := s.answers.Synthesize(ctx, q, chunks)
	if err != nil {
		return domanswer.Answer{}, fmt.Errorf("synthesize: %w", err)
	}
	return ans, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidQuestion):
		return "invalid"
	case errors.Is(err, domain.ErrEmptyIndex):
		return "empty_index"
	default:
		return "error"
	}
}
