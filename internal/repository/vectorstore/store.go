package vectorstore

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/docqa/internal/domain"
)

const (
	entriesFile  = "entries.parquet"
	manifestFile = "manifest.yaml"

	manifestVersion = 1
)

// Entry is one indexed chunk with its embedding.
type Entry struct {
	Source     string
	Text       string
	StartIndex int
	Vector     []float32
}

// Manifest describes how a store was built.
type Manifest struct {
	Version        int       `yaml:"version"`
	EmbeddingModel string    `yaml:"embedding_model"`
	Dimensions     int       `yaml:"dimensions"`
	Entries        int       `yaml:"entries"`
	ChunkSize      int       `yaml:"chunk_size"`
	ChunkOverlap   int       `yaml:"chunk_overlap"`
	CorpusChecksum string    `yaml:"corpus_checksum"`
	CreatedAt      time.Time `yaml:"created_at"`
}

// Candidate is a similarity search hit.
type Candidate struct {
	Entry Entry
	Score float64 // cosine similarity to the query
}

// entryRow is the on-disk parquet layout of an Entry.
type entryRow struct {
	Source     string    `parquet:"source"`
	Text       string    `parquet:"text"`
	StartIndex int64     `parquet:"start_index"`
	Vector     []float32 `parquet:"vector"`
}

// Store is an immutable in-memory vector index persisted to a directory.
// It is safe for concurrent reads.
type Store struct {
	dir      string
	entries  []Entry
	norms    []float64
	dims     int
	manifest Manifest
}

// Exists reports whether anything exists at dir. Any existing path counts,
// so a half-written or empty directory is opened rather than rebuilt.
func Exists(dir string) bool {
	_, err := os.Stat(dir)
	return err == nil
}

// Remove deletes the store directory.
func Remove(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove store %s: %w", dir, err)
	}
	return nil
}

// Open loads a persisted store. A directory without an entries file is an
// empty store; unreadable or inconsistent files are domain.ErrCorruptStore.
func Open(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat store %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store path %s is not a directory: %w", dir, domain.ErrCorruptStore)
	}

	manifest, err := readManifest(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}

	entriesPath := filepath.Join(dir, entriesFile)
	if _, err := os.Stat(entriesPath); errors.Is(err, fs.ErrNotExist) {
		return newStore(dir, nil, manifest)
	}

	rows, err := parquet.ReadFile[entryRow](entriesPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %v: %w", entriesPath, err, domain.ErrCorruptStore)
	}
	if manifest.Entries != 0 && manifest.Entries != len(rows) {
		return nil, fmt.Errorf("manifest lists %d entries, file has %d: %w",
			manifest.Entries, len(rows), domain.ErrCorruptStore)
	}

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = Entry{
			Source:     r.Source,
			Text:       r.Text,
			StartIndex: int(r.StartIndex),
			Vector:     r.Vector,
		}
	}
	return newStore(dir, entries, manifest)
}

// Create persists entries to dir and returns the opened store. The directory
// is written under a temporary name and renamed into place, so a crash never
// leaves a partial store at dir.
func Create(dir string, entries []Entry, manifest Manifest) (*Store, error) {
	s, err := newStore(dir, entries, manifest)
	if err != nil {
		return nil, err
	}
	s.manifest.Version = manifestVersion
	s.manifest.Dimensions = s.dims
	s.manifest.Entries = len(entries)
	if s.manifest.CreatedAt.IsZero() {
		s.manifest.CreatedAt = time.Now().UTC()
	}

	parent := filepath.Dir(filepath.Clean(dir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("create parent %s: %w", parent, err)
	}
	tmp, err := os.MkdirTemp(parent, ".docqa-store-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp) //nolint:errcheck // no-op after a successful rename

	if len(entries) > 0 {
		rows := make([]entryRow, len(entries))
		for i, e := range entries {
			rows[i] = entryRow{
				Source:     e.Source,
				Text:       e.Text,
				StartIndex: int64(e.StartIndex),
				Vector:     e.Vector,
			}
		}
		if err := parquet.WriteFile(filepath.Join(tmp, entriesFile), rows); err != nil {
			return nil, fmt.Errorf("write entries: %w", err)
		}
	}

	data, err := yaml.Marshal(s.manifest)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, manifestFile), data, 0o600); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := os.Rename(tmp, dir); err != nil {
		return nil, fmt.Errorf("move store into %s: %w", dir, err)
	}
	return s, nil
}

func newStore(dir string, entries []Entry, manifest Manifest) (*Store, error) {
	s := &Store{
		dir:      dir,
		entries:  entries,
		norms:    make([]float64, len(entries)),
		manifest: manifest,
	}
	for i, e := range entries {
		if len(e.Vector) == 0 {
			return nil, fmt.Errorf("entry %d has no vector: %w", i, domain.ErrCorruptStore)
		}
		if i == 0 {
			s.dims = len(e.Vector)
		} else if len(e.Vector) != s.dims {
			return nil, fmt.Errorf("entry %d has %d dimensions, expected %d: %w",
				i, len(e.Vector), s.dims, domain.ErrVectorDimMismatch)
		}
		s.norms[i] = norm(e.Vector)
	}
	return s, nil
}

func readManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return Manifest{}, nil
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %v: %w", err, domain.ErrCorruptStore)
	}
	return m, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

// Dimensions returns the vector length, or 0 for an empty store.
func (s *Store) Dimensions() int { return s.dims }

// Manifest returns the build metadata.
func (s *Store) Manifest() Manifest { return s.manifest }

// Nearest returns up to n entries ordered by descending cosine similarity to
// query. Ties keep insertion order.
func (s *Store) Nearest(query []float32, n int) ([]Candidate, error) {
	if len(s.entries) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if len(query) != s.dims {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w",
			len(query), s.dims, domain.ErrVectorDimMismatch)
	}
	if n <= 0 {
		return nil, nil
	}

	qNorm := norm(query)
	out := make([]Candidate, len(s.entries))
	for i, e := range s.entries {
		out[i] = Candidate{Entry: e, Score: cosine(query, e.Vector, qNorm, s.norms[i])}
	}
	slices.SortStableFunc(out, func(a, b Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	if n < len(out) {
		out = out[:n]
	}
	return out, nil
}

// CosineSimilarity returns the cosine similarity of two equal-length vectors,
// or 0 when either has zero norm.
func CosineSimilarity(a, b []float32) float64 {
	return cosine(a, b, norm(a), norm(b))
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
