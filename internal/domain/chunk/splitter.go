package chunk

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/docqa/internal/domain/document"
)

// markdownSeparators are tried in order, from the coarsest Markdown
// structure down to single characters. The empty separator splits per character.
var markdownSeparators = []string{
	`\n#{1,6} `,
	"```\n",
	`\n\*\*\*+\n`,
	`\n---+\n`,
	`\n___+\n`,
	`\n\n`,
	`\n`,
	` `,
	``,
}

var markdownPatterns = compileSeparators(markdownSeparators)

func compileSeparators(seps []string) map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(seps))
	for _, s := range seps {
		if s == "" {
			continue
		}
		out[s] = regexp.MustCompile(s)
	}
	return out
}

// MarkdownSplitter cuts text into chunks of at most ChunkSize characters,
// preferring Markdown boundaries. Adjacent chunks share up to ChunkOverlap
// characters. Separators stay attached to the start of the following piece.
type MarkdownSplitter struct {
	size    int
	overlap int
}

// NewMarkdownSplitter validates the sizes and creates a splitter.
func NewMarkdownSplitter(size, overlap int) (*MarkdownSplitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap > size {
		return nil, fmt.Errorf("chunk overlap must be between 0 and %d, got %d", size, overlap)
	}
	return &MarkdownSplitter{size: size, overlap: overlap}, nil
}

// SplitDocuments splits every document, keeping document order.
func (s *MarkdownSplitter) SplitDocuments(docs []document.Document) []Chunk {
	var out []Chunk
	for _, d := range docs {
		out = append(out, s.Split(d)...)
	}
	return out
}

// Split cuts a single document into chunks annotated with their start offset.
func (s *MarkdownSplitter) Split(doc document.Document) []Chunk {
	text := doc.Text()
	texts := s.SplitText(text)
	out := make([]Chunk, 0, len(texts))

	index, prevLen := 0, 0
	for _, t := range texts {
		from := max(0, index+prevLen-s.overlap)
		index = runeIndexFrom(text, t, from)
		prevLen = utf8.RuneCountInString(t)
		out = append(out, New(doc.Source(), t, index))
	}
	return out
}

// SplitText returns the chunk texts for text. Chunks are whitespace-trimmed
// and never empty.
func (s *MarkdownSplitter) SplitText(text string) []string {
	return s.split(text, markdownSeparators)
}

func (s *MarkdownSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if markdownPatterns[sep].MatchString(text) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var chunks, good []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if length(piece) < s.size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}
	return chunks
}

// merge packs pieces into chunks no longer than size, carrying a tail of up
// to overlap characters into the next chunk.
func (s *MarkdownSplitter) merge(pieces []string) []string {
	var (
		out     []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := length(p)
		if total+n > s.size && len(current) > 0 {
			if doc := join(current); doc != "" {
				out = append(out, doc)
			}
			for total > s.overlap || (total+n > s.size && total > 0) {
				total -= length(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if doc := join(current); doc != "" {
		out = append(out, doc)
	}
	return out
}

// splitKeepSeparator splits text on every match of separator, keeping each
// match at the start of the piece that follows it. Empty pieces are dropped.
func splitKeepSeparator(text, separator string) []string {
	if separator == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	var out []string
	prev := 0
	for _, loc := range markdownPatterns[separator].FindAllStringIndex(text, -1) {
		if piece := text[prev:loc[0]]; piece != "" {
			out = append(out, piece)
		}
		prev = loc[0]
	}
	if piece := text[prev:]; piece != "" {
		out = append(out, piece)
	}
	return out
}

func join(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func length(s string) int { return utf8.RuneCountInString(s) }

// runeIndexFrom finds sub in text at or after the character offset from and
// returns its character offset, or -1.
func runeIndexFrom(text, sub string, from int) int {
	byteFrom := 0
	for i := 0; i < from && byteFrom < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[byteFrom:])
		byteFrom += size
	}
	idx := strings.Index(text[byteFrom:], sub)
	if idx < 0 {
		return -1
	}
	return utf8.RuneCountInString(text[:byteFrom+idx])
}
