package chunking

import (
	"regexp"
	"strings"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

const (
	DefaultChunkSize = 800
	DefaultOverlap   = 200
)

var paragraphBreak = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)

// Splitter groups blank-line separated paragraphs into chunks of at most
// ChunkSize whitespace-delimited words. A paragraph is never split, so a
// single oversized paragraph forms its own chunk.
//
// Overlap is carried for reporting only; consecutive chunks do not share text.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []domain.Chunk {
	paragraphs := Paragraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	out := make([]domain.Chunk, 0, len(paragraphs))
	current := make([]string, 0, 4)
	currentWords := 0

	seal := func() {
		if len(current) == 0 {
			return
		}
		out = append(out, domain.Chunk{
			ID:   len(out),
			Text: strings.Join(current, "\n\n"),
		})
		current = current[:0]
		currentWords = 0
	}

	for _, paragraph := range paragraphs {
		words := len(strings.Fields(paragraph))
		if currentWords+words > s.ChunkSize {
			seal()
		}
		current = append(current, paragraph)
		currentWords += words
	}
	seal()

	return out
}

// Paragraphs returns the trimmed non-empty blank-line separated blocks of text.
func Paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	raw := paragraphBreak.Split(text, -1)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
