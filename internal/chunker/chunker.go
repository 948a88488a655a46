package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

type Mode string

const (
	ModeFixed     Mode = "fixed"
	ModeParagraph Mode = "paragraph"
	ModeMarkdown  Mode = "markdown"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 150
)

type Options struct {
	Size    int
	Overlap int
	Mode    Mode
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.Mode == "" {
		o.Mode = ModeFixed
	}
	return o
}

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFixed:
		return ModeFixed, nil
	case ModeParagraph:
		return ModeParagraph, nil
	case ModeMarkdown:
		return ModeMarkdown, nil
	}
	return "", fmt.Errorf("unsupported chunk mode: %s", s)
}

var blankLineRE = regexp.MustCompile(`\n[ \t]*\n+`)

// Chunk splits text into segments sized for embedding. Sizes and overlap
// are measured in runes so multi-byte text never gets split mid-character.
func Chunk(text string, opts Options) ([]string, error) {
	opts = opts.withDefaults()
	if text == "" {
		return nil, nil
	}
	switch opts.Mode {
	case ModeFixed:
		return chunkFixed(text, opts.Size, opts.Overlap), nil
	case ModeParagraph:
		return chunkParagraphs(text, opts.Size, opts.Overlap), nil
	case ModeMarkdown:
		return chunkMarkdown(text, opts.Size, opts.Overlap), nil
	}
	return nil, fmt.Errorf("unsupported chunk mode: %s", opts.Mode)
}

// chunkFixed slides a window of size runes over the text, retaining overlap
// runes between consecutive windows. The advance is clamped to at least one
// rune so a pathological overlap >= size still terminates.
func chunkFixed(text string, size, overlap int) []string {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil
	}
	advance := size - overlap
	if advance < 1 {
		advance = 1
	}
	var chunks []string
	for start := 0; start < total; start += advance {
		end := start + size
		if end >= total {
			chunks = append(chunks, string(runes[start:total]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// chunkParagraphs splits on blank-line boundaries, preserving paragraph
// order. Paragraphs that exceed the chunk size fall back to fixed-mode
// chunking so no single segment outgrows the embedding window.
func chunkParagraphs(text string, size, overlap int) []string {
	var chunks []string
	for _, para := range blankLineRE.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len([]rune(para)) <= size {
			chunks = append(chunks, para)
			continue
		}
		chunks = append(chunks, chunkFixed(para, size, overlap)...)
	}
	return chunks
}
