package chunker

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// chunkMarkdown walks the markdown AST and groups blocks under their nearest
// h1/h2 heading. Each group carries its heading as context for the embedding.
// Groups that outgrow the chunk size fall back to fixed-mode chunking.
func chunkMarkdown(markdown string, size, overlap int) []string {
	md := goldmark.New()
	reader := text.NewReader([]byte(markdown))
	doc := md.Parser().Parse(reader)

	var chunks []string
	var current []string
	var currentLen int
	var heading string

	flush := func() {
		if len(current) == 0 {
			return
		}
		content := strings.Join(current, "\n\n")
		if heading != "" {
			content = "Heading: " + heading + "\n" + content
		}
		if len([]rune(content)) > size {
			chunks = append(chunks, chunkFixed(content, size, overlap)...)
		} else {
			chunks = append(chunks, content)
		}
		current = nil
		currentLen = 0
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if h, ok := node.(*ast.Heading); ok && h.Level <= 2 {
			flush()
			heading = string(h.Text(reader.Source()))
			continue
		}
		txt := extractText(node, reader.Source())
		if txt == "" {
			continue
		}
		if currentLen > 0 && currentLen+len([]rune(txt)) > size {
			flush()
		}
		current = append(current, txt)
		currentLen += len([]rune(txt))
	}
	flush()
	return chunks
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.FencedCodeBlock:
			for i := 0; i < v.Lines().Len(); i++ {
				line := v.Lines().At(i)
				sb.Write(line.Value(source))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
