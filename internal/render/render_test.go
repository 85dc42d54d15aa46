package render

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"doorhole/internal/diagram"
	"doorhole/internal/store"
)

type fakeItem struct {
	uid, header, text, path string
	level                   string
	normative               bool
}

func (f fakeItem) UID() string { return f.uid }
func (f fakeItem) Level() store.Level { return store.MustLevel(f.level) }
func (f fakeItem) Header() string { return f.header }
func (f fakeItem) Text() string { return f.text }
func (f fakeItem) Normative() bool { return f.normative }
func (f fakeItem) Path() string { return f.path }

func TestHeading(t *testing.T) {
	cases := []struct {
		name      string
		level     string
		header    string
		uid       string
		normative bool
		body      []string
		wantLine  string
		wantRest  []string
	}{
		{
			name:     "heading takes first body line",
			level:    "2.0",
			uid:      "REQ-001",
			body:     []string{"First line", "Second line"},
			wantLine: "## 2 First line",
			wantRest: []string{"Second line"},
		},
		{
			name:     "heading with header keeps body",
			level:    "2.0",
			header:   "Overview",
			uid:      "REQ-001",
			body:     []string{"Body"},
			wantLine: "## 2 Overview",
			wantRest: []string{"Body"},
		},
		{
			name:     "requirement without header uses uid",
			level:    "2.1",
			uid:      "REQ-002",
			body:     []string{"Body"},
			wantLine: "## 2.1 REQ-002",
			wantRest: []string{"Body"},
		},
		{
			name:      "normative requirement with header shows uid",
			level:     "1.2",
			header:    "Stop",
			uid:       "SYS003",
			normative: true,
			body:      []string{"Body"},
			wantLine:  "## 1.2 Stop (SYS003)",
			wantRest:  []string{"Body"},
		},
		{
			name:     "informative requirement with header hides uid",
			level:    "1.2",
			header:   "Stop",
			uid:      "SYS003",
			wantLine: "## 1.2 Stop",
		},
		{
			name:     "nested heading",
			level:    "1.2.0",
			header:   "Timing",
			wantLine: "### 1.2 Timing",
		},
		{
			name:     "empty heading",
			level:    "3.0",
			wantLine: "## 3",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			line, rest := Heading(store.MustLevel(tc.level), tc.header, tc.uid, tc.normative, tc.body)
			if line != tc.wantLine {
				t.Fatalf("line: expected %q; got %q", tc.wantLine, line)
			}
			if len(rest) != len(tc.wantRest) || (len(rest) > 0 && !reflect.DeepEqual(rest, tc.wantRest)) {
				t.Fatalf("rest: expected %q; got %q", tc.wantRest, rest)
			}
		})
	}
}

func TestCompose(t *testing.T) {
	got := Compose(fakeItem{uid: "REQ-002", level: "2.1", text: "Line one\nLine two\n"})
	want := "## 2.1 REQ-002\n\nLine one\nLine two"
	if got != want {
		t.Fatalf("expected %q; got %q", want, got)
	}
	if got := Compose(fakeItem{uid: "X", level: "1.0", header: "Only"}); got != "## 1 Only" {
		t.Fatalf("expected bare heading; got %q", got)
	}
}

func TestDiagramSpans_FindsNestedBlocks(t *testing.T) {
	md := "a\n```plantuml\nA -> B\n```\n\n1. Step\n\n    ```puml\n    C -> D\n    ```\n\n> ~~~ plantuml\n> E -> F\n> ~~~\n\n```go\nx := 1\n```\n"
	spans := diagramSpans([]byte(md))
	if len(spans) != 3 {
		t.Fatalf("expected 3 diagram blocks; got %d", len(spans))
	}
	for i, want := range []string{"A -> B", "C -> D", "E -> F"} {
		s := spans[i]
		if strings.TrimSpace(s.source) != want {
			t.Fatalf("block %d: expected source %q; got %q", i, want, s.source)
		}
		fenced := md[s.start:s.stop]
		if !strings.HasPrefix(fenced, "```") && !strings.HasPrefix(fenced, "~~~") {
			t.Fatalf("block %d: expected span to start at the fence; got %q", i, fenced)
		}
		if !strings.HasSuffix(fenced, "```") && !strings.HasSuffix(fenced, "~~~") {
			t.Fatalf("block %d: expected span to end at the closing fence; got %q", i, fenced)
		}
	}
}

func TestDiagramSpans_UnterminatedBlockRunsToEnd(t *testing.T) {
	md := "intro\n```plantuml\nA -> B\n"
	spans := diagramSpans([]byte(md))
	if len(spans) != 1 {
		t.Fatalf("expected 1 block; got %d", len(spans))
	}
	if got := md[spans[0].start:spans[0].stop]; got != "```plantuml\nA -> B" {
		t.Fatalf("unexpected span %q", got)
	}
}

func svgServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<?xml version="1.0"?><svg>ok</svg>`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestReplaceDiagrams_UsesCachedImage(t *testing.T) {
	srv := svgServer(t)
	d := diagram.New(diagram.Config{Server: srv.URL, CacheDir: t.TempDir()}, nil)

	md := "intro\n```plantuml\nA -> B\n```\n```go\nx := 1\n```\nend"
	out, err := replaceDiagrams(context.Background(), md, t.TempDir(), d)
	if err != nil {
		t.Fatalf("replaceDiagrams: %v", err)
	}
	if !strings.Contains(out, "![UML Diagram](file://") {
		t.Fatalf("expected image reference; got %q", out)
	}
	if strings.Contains(out, "A -> B") {
		t.Fatalf("expected diagram source to be replaced; got %q", out)
	}
	if !strings.Contains(out, "x := 1") || !strings.HasSuffix(out, "end") {
		t.Fatalf("expected other content to survive; got %q", out)
	}
}

func TestReplaceDiagrams_ListAndBlockQuote(t *testing.T) {
	srv := svgServer(t)
	d := diagram.New(diagram.Config{Server: srv.URL, CacheDir: t.TempDir()}, nil)

	md := "1. Step\n\n    ```plantuml\n    A -> B\n    ```\n\n> ```plantuml\n> C -> D\n> ```\n"
	out, err := replaceDiagrams(context.Background(), md, t.TempDir(), d)
	if err != nil {
		t.Fatalf("replaceDiagrams: %v", err)
	}
	if strings.Contains(out, "A -> B") || strings.Contains(out, "C -> D") {
		t.Fatalf("expected nested diagram sources to be replaced; got %q", out)
	}
	if !strings.Contains(out, "    ![UML Diagram](file://") {
		t.Fatalf("expected the list item image to keep its indentation; got %q", out)
	}
	if !strings.Contains(out, "> ![UML Diagram](file://") {
		t.Fatalf("expected the quoted image to stay in the quote; got %q", out)
	}
	if !strings.HasPrefix(out, "1. Step\n") {
		t.Fatalf("expected surrounding content to survive; got %q", out)
	}
}

func brokenDiagrams(t *testing.T) *diagram.Renderer {
	t.Helper()
	return diagram.New(diagram.Config{
		Command:  filepath.Join(t.TempDir(), "no-such-plantuml"),
		CacheDir: t.TempDir(),
	}, nil)
}

func TestTerminal_BrokenDiagramFallsBackWithBanner(t *testing.T) {
	wd, _ := os.Getwd()
	dir := t.TempDir()
	src := fakeItem{
		uid:   "SYS001",
		level: "1.0",
		text:  "Title\n\n```plantuml\nA -> B\n```",
		path:  filepath.Join(dir, "SYS001.yml"),
	}
	term := NewTerminal("dark", brokenDiagrams(t))

	res := term.Render(context.Background(), src, 80)
	if res.OK() {
		t.Fatalf("expected render error for a missing diagram command")
	}
	out := ansi.Strip(term.Fallback(src, res.Err, 80))
	if !strings.Contains(out, "An error occurred while displaying the content") {
		t.Fatalf("expected banner; got %q", out)
	}
	if !strings.Contains(out, "A -> B") {
		t.Fatalf("expected raw diagram source in fallback; got %q", out)
	}
	if now, _ := os.Getwd(); now != wd {
		t.Fatalf("working directory changed from %s to %s", wd, now)
	}
}

func TestTerminal_RendersHeading(t *testing.T) {
	term := NewTerminal("light", nil)
	res := term.Render(context.Background(), fakeItem{uid: "REQ-002", level: "2.1", text: "Shall **work**."}, 40)
	if !res.OK() {
		t.Fatalf("Render: %v", res.Err)
	}
	out := ansi.Strip(res.Text)
	if !strings.Contains(out, "2.1 REQ-002") || !strings.Contains(out, "work") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestHTML_ConvertExtensionsAndRelativeImages(t *testing.T) {
	h := NewHTML(nil, "")
	md := "| a | b |\n|---|---|\n| 1 | 2 |\n\nTerm\n: Definition\n\n![pic](img/a.png)\n\n[web](https://example.com)\n"
	res := h.Convert(context.Background(), md, "/data/reqs")
	if !res.OK() {
		t.Fatalf("Convert: %v", res.Err)
	}
	for _, want := range []string{"<table>", "<dl>", "<dd>Definition</dd>", `src="file:///data/reqs/img/a.png"`, `href="https://example.com"`} {
		if !strings.Contains(res.Text, want) {
			t.Fatalf("expected %q in %s", want, res.Text)
		}
	}
}

func TestHTML_InlinesDiagramSVG(t *testing.T) {
	srv := svgServer(t)
	h := NewHTML(diagram.New(diagram.Config{Server: srv.URL, CacheDir: t.TempDir()}, nil), "")
	res := h.Convert(context.Background(), "```puml\nA -> B\n```\n\n```go\nx := 1\n```\n", t.TempDir())
	if !res.OK() {
		t.Fatalf("Convert: %v", res.Err)
	}
	if !strings.Contains(res.Text, "<svg>ok</svg>") || strings.Contains(res.Text, "<?xml") {
		t.Fatalf("expected inline svg; got %s", res.Text)
	}
	if strings.Contains(res.Text, "A -&gt; B") {
		t.Fatalf("expected diagram source to be replaced; got %s", res.Text)
	}
}

func TestHTML_BrokenDiagramReportsError(t *testing.T) {
	h := NewHTML(brokenDiagrams(t), "")
	src := fakeItem{uid: "SYS001", level: "1.1", text: "```plantuml\nA -> B\n```", path: filepath.Join(t.TempDir(), "SYS001.yml")}
	res := h.Render(context.Background(), src)
	if res.OK() {
		t.Fatalf("expected error")
	}
	out := h.Fallback(src, res.Err)
	if !strings.Contains(out, "An error occurred while displaying the content") {
		t.Fatalf("expected banner in %s", out)
	}
}

func TestCache_FirstRenderWinsUntilInvalidated(t *testing.T) {
	c := NewCache()
	calls := 0
	fn := func() string { calls++; return "v" }
	c.Get(Coord{Row: 1, Col: 2}, 40, fn)
	c.Get(Coord{Row: 1, Col: 2}, 40, fn)
	if calls != 1 {
		t.Fatalf("expected one render; got %d", calls)
	}
	c.Get(Coord{Row: 1, Col: 2}, 60, fn)
	c.Get(Coord{Row: 2, Col: 2}, 40, fn)
	if calls != 3 {
		t.Fatalf("expected width and row to key the cache; got %d", calls)
	}
	c.InvalidateRow(1)
	if c.Len() != 1 {
		t.Fatalf("expected only row 2 to remain; got %d", c.Len())
	}
	c.Invalidate()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache")
	}
}
