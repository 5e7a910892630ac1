package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domanswer "github.com/kailas-cloud/docqa/internal/domain/answer"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/domain/question"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	queryuc "github.com/kailas-cloud/docqa/internal/usecase/query"
)

// --- stubs ---

type stubIndex struct{ n int }

func (s stubIndex) Len() int { return s.n }

type stubRetriever struct {
	chunks []chunk.Chunk
	err    error
	calls  int
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string) ([]chunk.Chunk, error) {
	s.calls++
	return s.chunks, s.err
}

type stubSynthesizer struct {
	text  string
	err   error
	calls int
}

func (s *stubSynthesizer) Synthesize(
	_ context.Context, _ question.Question, chunks []chunk.Chunk,
) (domanswer.Answer, error) {
	s.calls++
	if s.err != nil {
		return domanswer.Answer{}, s.err
	}
	return domanswer.New(s.text, chunks), nil
}

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(_ context.Context) error { return s.err }

// --- helpers ---

type testEnv struct {
	router    http.Handler
	retriever *stubRetriever
	answers   *stubSynthesizer
}

func newTestEnv(indexLen int, retriever *stubRetriever, answers *stubSynthesizer) *testEnv {
	idx := stubIndex{n: indexLen}
	srv := NewServer(
		queryuc.New(idx, retriever, answers),
		healthuc.New(idx, nil, nil),
		zap.NewNop(),
	)
	r := chi.NewRouter()
	srv.Register(r)
	return &testEnv{router: r, retriever: retriever, answers: answers}
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
