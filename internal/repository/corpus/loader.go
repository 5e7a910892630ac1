package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/document"
)

// Loader reads the documents of a corpus directory.
type Loader struct {
	dir    string
	ext    string
	logger *zap.Logger
}

// NewLoader creates a loader for files with extension ext directly under dir.
func NewLoader(dir, ext string, logger *zap.Logger) *Loader {
	return &Loader{dir: dir, ext: ext, logger: logger}
}

// Load reads every regular file directly under the directory whose name ends
// with the configured extension, in name order. Subdirectories are not
// descended into.
func (l *Loader) Load() ([]document.Document, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", l.dir, domain.ErrDataDirNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", l.dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", l.dir, domain.ErrDataDirNotFound)
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", l.dir, err)
	}

	var docs []document.Document
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), l.ext) {
			continue
		}
		path := filepath.Join(l.dir, e.Name())
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		doc, err := document.New(path, string(data))
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", path, err)
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no %s files in %s: %w", l.ext, l.dir, domain.ErrEmptyCorpus)
	}

	l.logger.Info("Loaded documents", zap.String("dir", l.dir), zap.Int("count", len(docs)))
	return docs, nil
}

// Checksum fingerprints a set of documents by source and content. The
// result is stable across runs for an unchanged corpus.
func Checksum(docs []document.Document) string {
	h := sha256.New()
	for _, d := range docs {
		fmt.Fprintf(h, "%d:%s\x00%d:", len(d.Source()), d.Source(), len(d.Text()))
		h.Write([]byte(d.Text()))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
