package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/docqa/internal/config"
	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/repository/vectorstore"
)

// countingEmbedder returns a deterministic 2-d vector per text and counts calls.
type countingEmbedder struct {
	texts  []string
	failAt int
}

func (c *countingEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	c.texts = append(c.texts, text)
	if c.failAt > 0 && len(c.texts) == c.failAt {
		return domain.EmbeddingResult{}, domain.ErrEmbeddingProviderError
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text)), 1}, TotalTokens: 1}, nil
}

func testChunks() []chunk.Chunk {
	return []chunk.Chunk{
		chunk.New("data/a.txt", "Oxylabs provides proxies.", 0),
		chunk.New("data/a.txt", "For web scraping.", 26),
		chunk.New("data/b.txt", "Pricing is per GB.", 0),
	}
}

func testParams(dir string) Params {
	return Params{
		Dir:            dir,
		StalePolicy:    config.StalePolicyWarn,
		EmbeddingModel: "text-embedding-ada-002",
		ChunkSize:      600,
		ChunkOverlap:   175,
	}
}

func TestBuild_CreatesStoreWithOneCallPerChunk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chroma_db")
	emb := &countingEmbedder{}
	svc := New(emb, testParams(dir), zap.NewNop())

	res, err := svc.Build(context.Background(), testChunks(), "sum-1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Mode != ModeCreated {
		t.Errorf("expected mode %q, got %q", ModeCreated, res.Mode)
	}
	if len(emb.texts) != 3 {
		t.Fatalf("expected 3 embed calls, got %d", len(emb.texts))
	}
	for i, c := range testChunks() {
		if emb.texts[i] != c.Text() {
			t.Errorf("call %d embedded %q, want %q", i, emb.texts[i], c.Text())
		}
	}
	if res.Store.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", res.Store.Len())
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expected store directory to exist: %v", err)
	}
	if m := res.Store.Manifest(); m.CorpusChecksum != "sum-1" || m.EmbeddingModel != "text-embedding-ada-002" {
		t.Errorf("unexpected manifest %+v", m)
	}
}

func TestBuild_ExistingStoreMakesNoEmbedCalls(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chroma_db")
	if _, err := New(&countingEmbedder{}, testParams(dir), zap.NewNop()).
		Build(context.Background(), testChunks(), "sum-1"); err != nil {
		t.Fatalf("first Build: %v", err)
	}

	emb := &countingEmbedder{}
	res, err := New(emb, testParams(dir), zap.NewNop()).Build(context.Background(), testChunks(), "sum-1")
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if len(emb.texts) != 0 {
		t.Errorf("expected 0 embed calls, got %d", len(emb.texts))
	}
	if res.Mode != ModeLoaded || res.Stale {
		t.Errorf("expected fresh loaded store, got mode=%q stale=%v", res.Mode, res.Stale)
	}
	if res.Store.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", res.Store.Len())
	}
}

func TestBuild_StaleStoreWarnPolicyReuses(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chroma_db")
	if _, err := New(&countingEmbedder{}, testParams(dir), zap.NewNop()).
		Build(context.Background(), testChunks(), "old"); err != nil {
		t.Fatal(err)
	}

	core, logs := observer.New(zap.WarnLevel)
	emb := &countingEmbedder{}
	res, err := New(emb, testParams(dir), zap.New(core)).
		Build(context.Background(), testChunks()[:1], "new")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !res.Stale || res.Mode != ModeLoaded {
		t.Errorf("expected stale loaded store, got mode=%q stale=%v", res.Mode, res.Stale)
	}
	if len(emb.texts) != 0 {
		t.Errorf("warn policy must not re-embed, got %d calls", len(emb.texts))
	}
	if res.Store.Len() != 3 {
		t.Errorf("expected the old 3 entries, got %d", res.Store.Len())
	}
	if logs.FilterMessageSnippet("different corpus").Len() == 0 {
		t.Error("expected a staleness warning")
	}
}

func TestBuild_StaleStoreRebuildPolicy(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chroma_db")
	if _, err := New(&countingEmbedder{}, testParams(dir), zap.NewNop()).
		Build(context.Background(), testChunks(), "old"); err != nil {
		t.Fatal(err)
	}

	params := testParams(dir)
	params.StalePolicy = config.StalePolicyRebuild
	emb := &countingEmbedder{}
	res, err := New(emb, params, zap.NewNop()).Build(context.Background(), testChunks()[:2], "new")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Mode != ModeRebuilt {
		t.Errorf("expected mode %q, got %q", ModeRebuilt, res.Mode)
	}
	if len(emb.texts) != 2 || res.Store.Len() != 2 {
		t.Errorf("expected 2 calls and 2 entries, got %d calls, %d entries", len(emb.texts), res.Store.Len())
	}
	if res.Store.Manifest().CorpusChecksum != "new" {
		t.Errorf("expected new checksum, got %q", res.Store.Manifest().CorpusChecksum)
	}
}

func TestBuild_RebuildPolicyKeepsFreshStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chroma_db")
	params := testParams(dir)
	params.StalePolicy = config.StalePolicyRebuild
	if _, err := New(&countingEmbedder{}, params, zap.NewNop()).
		Build(context.Background(), testChunks(), "same"); err != nil {
		t.Fatal(err)
	}

	emb := &countingEmbedder{}
	res, err := New(emb, params, zap.NewNop()).Build(context.Background(), testChunks(), "same")
	if err != nil {
		t.Fatal(err)
	}
	if res.Mode != ModeLoaded || len(emb.texts) != 0 {
		t.Errorf("fresh store must be reused, got mode=%q calls=%d", res.Mode, len(emb.texts))
	}
}

func TestBuild_EmbedErrorAbortsWithoutStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chroma_db")
	emb := &countingEmbedder{failAt: 2}

	_, err := New(emb, testParams(dir), zap.NewNop()).Build(context.Background(), testChunks(), "x")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if len(emb.texts) != 2 {
		t.Errorf("expected to stop after the failing call, got %d calls", len(emb.texts))
	}
	if vectorstore.Exists(dir) {
		t.Error("no store directory may be left behind after a failed build")
	}
}

func TestBuild_EmptyExistingDirectory(t *testing.T) {
	dir := t.TempDir()
	emb := &countingEmbedder{}

	res, err := New(emb, testParams(dir), zap.NewNop()).Build(context.Background(), testChunks(), "x")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Store.Len() != 0 || len(emb.texts) != 0 {
		t.Errorf("expected an empty loaded store, got %d entries, %d calls", res.Store.Len(), len(emb.texts))
	}
}
