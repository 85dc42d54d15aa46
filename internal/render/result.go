package render

import "strings"

// Banner heads the fallback text shown when rendering fails.
const Banner = "**An error occurred while displaying the content**"

// Result is the outcome of one render. Err is set when the markdown could
// not be rendered; Text is then empty.
type Result struct {
	Text string
	Err  error
}

func (r Result) OK() bool { return r.Err == nil }

// WithBanner prefixes markdown with the warning banner and the reason.
func WithBanner(err error, markdown string) string {
	var b strings.Builder
	b.WriteString(Banner)
	b.WriteString("\n\n: ")
	if err != nil {
		b.WriteString(err.Error())
	}
	b.WriteString("\n\n")
	b.WriteString(markdown)
	return b.String()
}
