package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/config"
	openaiTransport "github.com/kailas-cloud/docqa/internal/transport/openai"
	answeruc "github.com/kailas-cloud/docqa/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	queryuc "github.com/kailas-cloud/docqa/internal/usecase/query"
	searchuc "github.com/kailas-cloud/docqa/internal/usecase/search"
	"github.com/kailas-cloud/docqa/internal/usecase/startup"
)

// fakeOpenAI serves /embeddings and /chat/completions. Embeddings are
// keyword indicators so that similarity is predictable.
type fakeOpenAI struct {
	mu           sync.Mutex
	embedInputs  []string
	systemPrompt string
	userPrompt   string
	failChat     bool
}

var keywords = []string{"oxylabs", "proxies", "gb"}

func keywordVector(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(keywords)+1)
	for i, k := range keywords {
		if strings.Contains(lower, k) {
			vec[i] = 1
		}
	}
	vec[len(keywords)] = 1
	return vec
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/embeddings":
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.embedInputs = append(f.embedInputs, req.Input...)
		data := make([]map[string]any, len(req.Input))
		for i, in := range req.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": keywordVector(in)}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]any{"prompt_tokens": 3, "total_tokens": 3},
		})
	case "/chat/completions":
		if f.failChat {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"model overloaded, request id abc-secret","type":"server_error"}}`))
			return
		}
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) == 2 {
			f.systemPrompt = req.Messages[0].Content
			f.userPrompt = req.Messages[1].Content
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "Oxylabs provides proxies for web scraping."},
			}},
			"usage": map[string]any{"prompt_tokens": 50, "completion_tokens": 8, "total_tokens": 58},
		})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeOpenAI) embedCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.embedInputs)
}

// newE2ERouter wires the full pipeline the way cmd/docqa does, minus the cache.
func newE2ERouter(t *testing.T, fake *fakeOpenAI, files map[string]string) (http.Handler, *startup.Index) {
	t.Helper()
	upstream := httptest.NewServer(fake)
	t.Cleanup(upstream.Close)

	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	if err := os.Mkdir(dataDir, 0o750); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dataDir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Config{OpenAI: config.OpenAIConfig{APIKey: "sk-test", BaseURL: upstream.URL}}
	cfg.ApplyDefaults()
	cfg.Corpus.DataDir = dataDir
	cfg.VectorStore.Dir = filepath.Join(root, "chroma_db")

	provider := &openaiTransport.Config{
		APIKey:   cfg.OpenAI.APIKey,
		BaseURL:  cfg.OpenAI.BaseURL,
		Provider: "openai",
		Logger:   zap.NewNop(),
	}
	embCfg := *provider
	embCfg.Model = cfg.OpenAI.EmbeddingModel
	chatCfg := *provider
	chatCfg.Model = cfg.OpenAI.ChatModel

	embedder := openaiTransport.NewEmbedder(&embCfg)
	idx, err := startup.Initialize(context.Background(), cfg, embedder, zap.NewNop())
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	retriever := searchuc.New(idx, embedder, searchuc.Params{
		K:          cfg.Retrieval.K,
		FetchK:     cfg.Retrieval.FetchK,
		LambdaMult: cfg.LambdaMult(),
	})
	answers := answeruc.New(openaiTransport.NewChat(&chatCfg, cfg.OpenAI.MaxTokens), cfg.Prompt.Subject, zap.NewNop())
	srv := NewServer(queryuc.New(idx, retriever, answers), healthuc.New(idx, nil, embedder), zap.NewNop())

	r := chi.NewRouter()
	srv.Register(r)
	return r, idx
}

func TestE2E_OxylabsQuestion(t *testing.T) {
	fake := &fakeOpenAI{}
	router, idx := newE2ERouter(t, fake, map[string]string{
		"a.txt": "Oxylabs provides proxies for web scraping.",
		"b.txt": "Residential traffic is billed per GB.",
	})
	if got := fake.embedCalls(); got != idx.Chunks() || got != 2 {
		t.Fatalf("expected one embedding call per chunk (2), got %d", got)
	}

	rr := doRequest(t, router, "POST", "/query", `{"question":"What does Oxylabs provide?"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (body %s)", rr.Code, rr.Body.String())
	}

	var resp QueryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "Oxylabs provides proxies for web scraping." {
		t.Errorf("answer: got %q", resp.Answer)
	}
	if len(resp.Sources) == 0 || filepath.Base(resp.Sources[0]) != "a.txt" {
		t.Errorf("expected a.txt as the first source, got %v", resp.Sources)
	}

	if !strings.Contains(fake.systemPrompt, "Oxylabs provides proxies for web scraping.") {
		t.Errorf("system prompt misses retrieved context: %q", fake.systemPrompt)
	}
	if !strings.Contains(fake.systemPrompt, "Oxylabs developer documentation") {
		t.Errorf("system prompt misses subject: %q", fake.systemPrompt)
	}
	if fake.userPrompt != "What does Oxylabs provide?" {
		t.Errorf("user turn: got %q", fake.userPrompt)
	}
}

func TestE2E_SingleDocumentSources(t *testing.T) {
	fake := &fakeOpenAI{}
	router, _ := newE2ERouter(t, fake, map[string]string{
		"a.txt": "Oxylabs provides proxies for web scraping.",
	})

	rr := doRequest(t, router, "POST", "/query", `{"question":"What does Oxylabs provide?"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (body %s)", rr.Code, rr.Body.String())
	}

	var resp QueryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer == "" {
		t.Error("expected a non-empty answer")
	}
	if len(resp.Sources) != 1 || filepath.Base(resp.Sources[0]) != "a.txt" {
		t.Errorf("expected exactly [.../a.txt], got %v", resp.Sources)
	}
}

func TestE2E_InvalidQuestionMakesNoProviderCalls(t *testing.T) {
	fake := &fakeOpenAI{}
	router, _ := newE2ERouter(t, fake, map[string]string{"a.txt": "Oxylabs provides proxies."})
	before := fake.embedCalls()

	rr := doRequest(t, router, "POST", "/query", `{"question":"hi"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422", rr.Code)
	}
	if fake.embedCalls() != before {
		t.Error("embedding provider called for an invalid question")
	}
}

func TestE2E_ChatFailureIs500WithoutDetail(t *testing.T) {
	fake := &fakeOpenAI{failChat: true}
	router, _ := newE2ERouter(t, fake, map[string]string{"a.txt": "Oxylabs provides proxies."})

	rr := doRequest(t, router, "POST", "/query", `{"question":"What does Oxylabs provide?"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "abc-secret") || strings.Contains(rr.Body.String(), "overloaded") {
		t.Errorf("provider detail leaked: %s", rr.Body.String())
	}
	resp := decodeError(t, rr.Body.Bytes())
	if resp.Code != CodeInternalError {
		t.Errorf("code: got %q", resp.Code)
	}
}

func TestE2E_EmptyFilesGiveEmptyIndex(t *testing.T) {
	fake := &fakeOpenAI{}
	router, idx := newE2ERouter(t, fake, map[string]string{"empty.txt": "   \n"})
	if idx.Len() != 0 {
		t.Fatalf("expected empty index, got %d entries", idx.Len())
	}

	rr := doRequest(t, router, "POST", "/query", `{"question":"What does Oxylabs provide?"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
	if resp := decodeError(t, rr.Body.Bytes()); resp.Code != CodeEmptyIndex {
		t.Errorf("code: got %q", resp.Code)
	}

	rr = doRequest(t, router, "GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("/health must stay 200 on an empty index, got %d", rr.Code)
	}
}
