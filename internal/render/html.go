package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	ghtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"doorhole/internal/diagram"
)

var (
	baseDirKey    = parser.NewContextKey()
	renderCtxKey  = parser.NewContextKey()
	diagramErrKey = parser.NewContextKey()
)

const diagramAttr = "doorhole-diagram"

// HTML converts markdown to HTML with tables, definition lists, footnotes,
// diagram blocks and highlighted code.
type HTML struct {
	md       goldmark.Markdown
	diagrams *diagram.Renderer
}

// NewHTML builds the converter. codeStyle is a chroma style name.
func NewHTML(diagrams *diagram.Renderer, codeStyle string) *HTML {
	if codeStyle == "" {
		codeStyle = "github"
	}
	h := &HTML{diagrams: diagrams}
	h.md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.DefinitionList,
			extension.Footnote,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(&linkBaseTransformer{}, 100),
				util.Prioritized(&diagramTransformer{diagrams: diagrams}, 200),
			),
		),
		goldmark.WithRendererOptions(
			// Requirement text may embed raw HTML.
			ghtml.WithUnsafe(),
			renderer.WithNodeRenderers(
				util.Prioritized(&codeBlockRenderer{style: codeStyle}, 100),
			),
		),
	)
	return h
}

// Render converts the composed markdown of src.
func (h *HTML) Render(ctx context.Context, src Source) Result {
	return h.Convert(ctx, Compose(src), BaseDir(src))
}

// Convert converts md; relative links and images resolve against base and
// local diagram commands run there.
func (h *HTML) Convert(ctx context.Context, md string, base string) Result {
	pc := parser.NewContext()
	pc.Set(baseDirKey, base)
	pc.Set(renderCtxKey, ctx)

	var buf bytes.Buffer
	if err := h.md.Convert([]byte(md), &buf, parser.WithContext(pc)); err != nil {
		return Result{Err: err}
	}
	if err, ok := pc.Get(diagramErrKey).(error); ok && err != nil {
		return Result{Err: err}
	}
	return Result{Text: buf.String()}
}

// Fallback converts the banner plus the raw composed markdown, skipping
// diagram rendering.
func (h *HTML) Fallback(src Source, cause error) string {
	plain := goldmark.New(goldmark.WithExtensions(extension.GFM))
	md := WithBanner(cause, Compose(src))
	var buf bytes.Buffer
	if err := plain.Convert([]byte(md), &buf); err != nil {
		return "<pre>" + html.EscapeString(md) + "</pre>"
	}
	return buf.String()
}

// linkBaseTransformer rewrites relative image and link destinations to
// absolute file URLs below the base directory.
type linkBaseTransformer struct{}

func (t *linkBaseTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	base, _ := pc.Get(baseDirKey).(string)
	if base == "" {
		return
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Image:
			v.Destination = resolveDest(base, v.Destination)
		case *ast.Link:
			v.Destination = resolveDest(base, v.Destination)
		}
		return ast.WalkContinue, nil
	})
}

func resolveDest(base string, dest []byte) []byte {
	d := string(dest)
	if d == "" || strings.HasPrefix(d, "#") || strings.Contains(d, "://") ||
		strings.HasPrefix(d, "mailto:") || strings.HasPrefix(d, "data:") || filepath.IsAbs(d) {
		return dest
	}
	return []byte("file://" + filepath.ToSlash(filepath.Join(base, d)))
}

// diagramTransformer renders diagram blocks while parsing, where the base
// directory and context are available, and stores the markup on the node.
type diagramTransformer struct {
	diagrams *diagram.Renderer
}

func (t *diagramTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	if t.diagrams == nil {
		return
	}
	base, _ := pc.Get(baseDirKey).(string)
	ctx, _ := pc.Get(renderCtxKey).(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}
	source := reader.Source()
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		fb, ok := n.(*ast.FencedCodeBlock)
		if !entering || !ok || !diagram.IsDiagram(string(fb.Language(source))) {
			return ast.WalkContinue, nil
		}
		img, err := t.diagrams.Render(ctx, blockText(fb, source), base)
		if err != nil {
			pc.Set(diagramErrKey, err)
			return ast.WalkStop, nil
		}
		fb.SetAttributeString(diagramAttr, []byte(diagramMarkup(img)))
		return ast.WalkSkipChildren, nil
	})
}

func diagramMarkup(d diagram.Diagram) string {
	if d.Format == "svg" {
		return `<div class="uml" title="UML">` + diagram.InlineSVG(d.Data) + "</div>\n"
	}
	return fmt.Sprintf(`<div class="uml"><img alt="UML Diagram" title="UML" src="data:image/%s;base64,%s"/></div>`+"\n",
		d.Format, base64.StdEncoding.EncodeToString(d.Data))
}

func blockText(n ast.Node, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

// codeBlockRenderer emits pre-rendered diagrams and highlights the rest
// with chroma.
type codeBlockRenderer struct {
	style string
}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeBlockRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	fb := node.(*ast.FencedCodeBlock)
	if v, ok := fb.AttributeString(diagramAttr); ok {
		if b, ok := v.([]byte); ok {
			_, _ = w.Write(b)
			return ast.WalkSkipChildren, nil
		}
	}
	code := blockText(fb, source)
	lang := string(fb.Language(source))
	if lang != "" {
		var buf bytes.Buffer
		if err := quick.Highlight(&buf, code, lang, "html", r.style); err == nil {
			_, _ = w.Write(buf.Bytes())
			return ast.WalkSkipChildren, nil
		}
	}
	_, _ = w.WriteString("<pre><code>")
	_, _ = w.WriteString(html.EscapeString(code))
	_, _ = w.WriteString("</code></pre>\n")
	return ast.WalkSkipChildren, nil
}

// Page wraps rendered sections into a standalone HTML document.
func Page(title string, sections []string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title>\n<style>\n")
	b.WriteString(pageCSS)
	b.WriteString("</style>\n</head>\n<body>\n")
	for _, s := range sections {
		b.WriteString("<section class=\"item\">\n")
		b.WriteString(s)
		b.WriteString("</section>\n")
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

const pageCSS = `body { font-family: sans-serif; max-width: 60em; margin: 2em auto; }
section.item { border-bottom: 1px solid #ddd; padding: 0.5em 0; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 0.2em 0.5em; }
div.uml svg { max-width: 100%; height: auto; }
`
