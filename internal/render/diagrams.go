package render

import (
	"bytes"
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"doorhole/internal/diagram"
)

// diagramSpan is the byte range of a diagram block in the composed
// markdown, from the opening fence marker to the end of the closing fence.
type diagramSpan struct {
	start, stop int
	source      string
}

// diagramSpans parses src and returns the diagram blocks in document
// order, including those nested in lists and block quotes.
func diagramSpans(src []byte) []diagramSpan {
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))
	var out []diagramSpan
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		fb, ok := n.(*ast.FencedCodeBlock)
		if !entering || !ok {
			return ast.WalkContinue, nil
		}
		if fb.Info != nil && diagram.IsDiagram(string(fb.Language(src))) {
			out = append(out, diagramSpan{
				start:  openingFence(fb, src),
				stop:   closingFence(fb, src),
				source: blockText(fb, src),
			})
		}
		return ast.WalkSkipChildren, nil
	})
	return out
}

// openingFence walks back from the info string over the fence marker.
func openingFence(fb *ast.FencedCodeBlock, src []byte) int {
	i := fb.Info.Segment.Start
	for i > 0 && (src[i-1] == ' ' || src[i-1] == '\t') {
		i--
	}
	for i > 0 && (src[i-1] == '`' || src[i-1] == '~') {
		i--
	}
	return i
}

// closingFence returns the end of the closing fence line, or the end of the
// body when the block is unterminated.
func closingFence(fb *ast.FencedCodeBlock, src []byte) int {
	pos := len(src)
	if nl := bytes.IndexByte(src[fb.Info.Segment.Stop:], '\n'); nl >= 0 {
		pos = fb.Info.Segment.Stop + nl + 1
	}
	if lines := fb.Lines(); lines.Len() > 0 {
		pos = lines.At(lines.Len() - 1).Stop
	}
	stop := len(src)
	if nl := bytes.IndexByte(src[pos:], '\n'); nl >= 0 {
		stop = pos + nl
	}
	marker := src[openingFence(fb, src)]
	line := bytes.TrimLeft(src[pos:stop], " \t>")
	n := 0
	for n < len(line) && line[n] == marker {
		n++
	}
	if n >= 3 && len(bytes.TrimSpace(line[n:])) == 0 {
		return stop
	}
	if pos > 0 && src[pos-1] == '\n' {
		return pos - 1
	}
	return pos
}

// replaceDiagrams renders every diagram block and puts an image reference
// to the cached file in its place.
func replaceDiagrams(ctx context.Context, md string, base string, d *diagram.Renderer) (string, error) {
	if d == nil {
		return md, nil
	}
	src := []byte(md)
	spans := diagramSpans(src)
	if len(spans) == 0 {
		return md, nil
	}
	var b strings.Builder
	next := 0
	for _, s := range spans {
		img, err := d.Render(ctx, s.source, base)
		if err != nil {
			return "", err
		}
		b.Write(src[next:s.start])
		if img.Path != "" {
			b.WriteString("![UML Diagram](file://" + img.Path + ")")
		} else {
			b.WriteString("*UML Diagram*")
		}
		next = s.stop
	}
	b.Write(src[next:])
	return b.String(), nil
}
